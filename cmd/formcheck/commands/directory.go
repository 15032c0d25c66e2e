package commands

import (
	"context"
	"fmt"
	"log/slog"

	"formcheck/internal/directory"
	"formcheck/internal/fieldcheck/models"
	"formcheck/internal/fieldcheck/ports"
	"formcheck/internal/platform/config"
	"formcheck/internal/platform/httpserver"
	"formcheck/internal/platform/redis"
	"formcheck/pkg/platform/circuit"
)

// backend is the directory a watch session queries, plus what it needs to
// release and report on.
type backend struct {
	checker ports.ExistenceChecker
	health  map[string]httpserver.HealthCheck
	close   func() error
}

func buildDirectory(ctx context.Context, cfg config.Config, kind models.FieldKind, log *slog.Logger) (*backend, error) {
	seed := directory.WithTaken(cfg.Directory.Taken...)
	if kind == models.KindEmail {
		seed = directory.WithTakenRaw(cfg.Directory.Taken...)
	}
	memory := directory.NewMemory(seed, directory.WithLatency(cfg.Directory.Latency))
	if cfg.Directory.Backend == config.BackendMemory {
		return &backend{checker: memory, close: func() error { return nil }}, nil
	}

	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect directory: %w", err)
	}
	primary, err := directory.NewRedis(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	b := &backend{
		checker: primary,
		health:  map[string]httpserver.HealthCheck{"redis": client.Health},
		close:   client.Close,
	}
	if cfg.Directory.Backend == config.BackendRedis {
		return b, nil
	}

	breaker := circuit.New("directory",
		circuit.WithFailureThreshold(cfg.Directory.FailureThreshold),
		circuit.WithSuccessThreshold(cfg.Directory.SuccessThreshold),
	)
	failover, err := directory.NewFailover(primary, memory, breaker, directory.WithFailoverLogger(log))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	b.checker = failover
	return b, nil
}
