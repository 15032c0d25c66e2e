package directory

import (
	"context"
	"errors"
	"log/slog"

	"formcheck/internal/fieldcheck/ports"
	"formcheck/pkg/platform/circuit"
	"formcheck/pkg/platform/sentinel"
)

// Failover queries a primary directory and, once the breaker has opened
// after consecutive primary failures, answers failed lookups from a fallback.
// The primary is always tried first so it can close the breaker again.
type Failover struct {
	primary  ports.ExistenceChecker
	fallback ports.ExistenceChecker
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

type FailoverOption func(*Failover)

func WithFailoverLogger(logger *slog.Logger) FailoverOption {
	return func(f *Failover) {
		f.logger = logger
	}
}

func NewFailover(primary, fallback ports.ExistenceChecker, breaker *circuit.Breaker, opts ...FailoverOption) (*Failover, error) {
	if primary == nil {
		return nil, errors.New("primary directory is required")
	}
	if fallback == nil {
		return nil, errors.New("fallback directory is required")
	}
	if breaker == nil {
		breaker = circuit.New("directory")
	}
	f := &Failover{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

func (f *Failover) Exists(ctx context.Context, value, domain string) (bool, error) {
	exists, err := f.primary.Exists(ctx, value, domain)
	if err == nil || errors.Is(err, sentinel.ErrNotFound) {
		if _, change := f.breaker.RecordSuccess(); change.Closed {
			f.logger.InfoContext(ctx, "directory circuit closed", "breaker", f.breaker.Name())
		}
		return exists, err
	}
	// A cancelled lookup says nothing about the primary's health.
	if ctx.Err() != nil {
		return false, err
	}

	useFallback, change := f.breaker.RecordFailure()
	if change.Opened {
		f.logger.WarnContext(ctx, "directory circuit opened", "breaker", f.breaker.Name(), "error", err)
	}
	if !useFallback {
		return false, err
	}
	return f.fallback.Exists(ctx, value, domain)
}

// Degraded reports whether lookups are currently served by the fallback.
func (f *Failover) Degraded() bool {
	return f.breaker.IsOpen()
}
