// Package availability issues existence queries for validated candidates and
// makes sure only the newest query of a field can change its state.
//
// Every check is tagged with a sequence number taken from the field's
// Tracker. Responses race freely; when one arrives its sequence is compared
// with the tracker's latest under the field lock, and anything older is
// dropped. Superseded checks are never aborted, only ignored.
package availability

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"formcheck/internal/fieldcheck/metrics"
	"formcheck/internal/fieldcheck/models"
	"formcheck/internal/fieldcheck/ports"
	id "formcheck/pkg/domain"
	"formcheck/pkg/platform/sentinel"
)

const tracerName = "formcheck/internal/fieldcheck/availability"

// DefaultTimeout bounds a single existence query.
const DefaultTimeout = 10 * time.Second

// Tracker is the sequence authority of one field.
type Tracker interface {
	// Next issues a new sequence number, making every earlier one stale.
	Next() uint64
	// IsLatest reports whether seq is the newest issued sequence.
	IsLatest(seq uint64) bool
	// ApplyIfLatest runs fn only if seq is still the newest sequence. The
	// comparison and fn happen atomically with respect to Next.
	ApplyIfLatest(seq uint64, fn func()) bool
}

// ResolveFunc receives the outcome of the newest check of a field.
type ResolveFunc func(candidate models.Candidate, outcome models.ValidationState)

// Checker runs existence queries for one field.
type Checker struct {
	exists  ports.ExistenceChecker
	limiter *rate.Limiter
	timeout time.Duration
	tracer  trace.Tracer
	metrics *metrics.Metrics
	clock   clock.Clock
	logger  *slog.Logger

	mu      sync.Mutex
	pending *models.PendingCheck
	wg      sync.WaitGroup
}

type Option func(*Checker)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Checker) {
		c.metrics = m
	}
}

// WithLimiter throttles outgoing queries. Checks waiting for a token are
// skipped if they become stale before the token arrives.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Checker) {
		c.limiter = l
	}
}

// WithTimeout bounds each query; zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		c.timeout = d
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Checker) {
		c.tracer = t
	}
}

func WithClock(c clock.Clock) Option {
	return func(ch *Checker) {
		ch.clock = c
	}
}

// New creates a Checker that queries exists.
func New(exists ports.ExistenceChecker, opts ...Option) (*Checker, error) {
	if exists == nil {
		return nil, errors.New("existence checker is required")
	}

	c := &Checker{
		exists:  exists,
		limiter: rate.NewLimiter(rate.Inf, 1),
		timeout: DefaultTimeout,
		tracer:  otel.Tracer(tracerName),
		clock:   clock.New(),
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Check assigns the next sequence of tracker to a new candidate and queries
// it in the background. resolve is invoked through tracker.ApplyIfLatest, so
// it only ever sees the outcome of the newest check.
func (c *Checker) Check(ctx context.Context, tracker Tracker, field id.FieldID, value, domain string, resolve ResolveFunc) models.Candidate {
	candidate := models.Candidate{
		Field:    field,
		Value:    value,
		Context:  domain,
		Sequence: tracker.Next(),
	}
	pending := models.NewPendingCheck(candidate)

	c.mu.Lock()
	if c.pending != nil {
		c.pending.Cancel()
	}
	c.pending = pending
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx, tracker, pending, resolve)
	}()
	return candidate
}

// Cancel marks the live check, if any, as cancelled. Its query may still be
// in flight; its result will be ignored.
func (c *Checker) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		c.pending.Cancel()
		c.pending = nil
	}
}

// Pending returns the live check, or nil.
func (c *Checker) Pending() *models.PendingCheck {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Wait blocks until every issued check has finished.
func (c *Checker) Wait() {
	c.wg.Wait()
}

func (c *Checker) run(ctx context.Context, tracker Tracker, pending *models.PendingCheck, resolve ResolveFunc) {
	defer c.release(pending)
	candidate := pending.Candidate

	if err := c.limiter.Wait(ctx); err != nil {
		c.metrics.IncrementChecksSkipped()
		if ctx.Err() != nil {
			c.logger.DebugContext(ctx, "availability check abandoned",
				"field", candidate.Field, "sequence", candidate.Sequence, "error", err)
			return
		}
		// The limiter can never admit this check, so fail it rather than leave the field checking.
		c.logger.WarnContext(ctx, "availability check rejected by limiter",
			"field", candidate.Field, "sequence", candidate.Sequence, "error", err)
		tracker.ApplyIfLatest(candidate.Sequence, func() {
			resolve(candidate, models.StateCheckFailed)
		})
		return
	}

	if pending.Cancelled() || !tracker.IsLatest(candidate.Sequence) {
		c.metrics.IncrementChecksSkipped()
		c.logger.DebugContext(ctx, "availability check superseded before sending",
			"field", candidate.Field, "sequence", candidate.Sequence)
		return
	}

	outcome := c.query(ctx, candidate)

	applied := tracker.ApplyIfLatest(candidate.Sequence, func() {
		resolve(candidate, outcome)
	})
	if !applied {
		c.metrics.IncrementStaleResponses()
		c.logger.DebugContext(ctx, "dropping stale availability response",
			"field", candidate.Field, "sequence", candidate.Sequence, "outcome", outcome)
	}
}

func (c *Checker) query(ctx context.Context, candidate models.Candidate) models.ValidationState {
	ctx, span := c.tracer.Start(ctx, "availability.check", trace.WithAttributes(
		attribute.String("field", candidate.Field.String()),
		attribute.String("domain", candidate.Context),
		attribute.Int64("sequence", int64(candidate.Sequence)),
	))
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.metrics.IncrementChecksIssued()
	start := c.clock.Now()
	exists, err := c.exists.Exists(ctx, candidate.Value, candidate.Context)
	outcome := Outcome(exists, err)
	c.metrics.ObserveCheck(outcome, c.clock.Since(start))

	span.SetAttributes(attribute.String("outcome", outcome.String()))
	if outcome == models.StateCheckFailed {
		span.RecordError(err)
		span.SetStatus(codes.Error, "availability check failed")
		c.logger.WarnContext(ctx, "availability check failed",
			"field", candidate.Field, "sequence", candidate.Sequence, "error", err)
	}
	return outcome
}

func (c *Checker) release(pending *models.PendingCheck) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == pending {
		c.pending = nil
	}
}

// Outcome maps a directory answer onto a field state: existence is Taken,
// absence (including a wrapped sentinel.ErrNotFound) is Available, and any
// other error is CheckFailed.
func Outcome(exists bool, err error) models.ValidationState {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return models.StateAvailable
	case err != nil:
		return models.StateCheckFailed
	case exists:
		return models.StateTaken
	default:
		return models.StateAvailable
	}
}
