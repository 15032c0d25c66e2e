package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"formcheck/internal/fieldcheck/metrics"
	"formcheck/internal/fieldcheck/models"
	"formcheck/internal/fieldcheck/ports"
	"formcheck/internal/fieldcheck/service"
	"formcheck/internal/platform/httpserver"
	platformmetrics "formcheck/internal/platform/metrics"
	id "formcheck/pkg/domain"
	pkgstrings "formcheck/pkg/platform/strings"
)

type watchOptions struct {
	taken    string
	context  string
	latency  time.Duration
	debounce time.Duration
	email    bool
}

func watchCmd(root *rootOptions) *cobra.Command {
	opts := &watchOptions{}
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Validate values typed on stdin as a form field would",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, root, opts, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.taken, "taken", "", "comma-separated taken names (name or name@domain; whole addresses with --email) for the memory directory")
	cmd.Flags().StringVar(&opts.context, "context", "", "initial domain (defaults to FORMCHECK_DEFAULT_DOMAIN)")
	cmd.Flags().DurationVar(&opts.latency, "latency", 0, "simulated lookup latency for the memory directory")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 0, "quiet period before a check (defaults to FORMCHECK_DEBOUNCE)")
	cmd.Flags().BoolVar(&opts.email, "email", false, "validate an email field instead of a username")
	return cmd
}

func runWatch(ctx context.Context, root *rootOptions, opts *watchOptions, in io.Reader, out io.Writer) error {
	cfg := root.cfg
	log := root.log
	if opts.taken != "" {
		cfg.Directory.Taken = pkgstrings.SplitCSV(opts.taken)
	}
	if opts.latency > 0 {
		cfg.Directory.Latency = opts.latency
	}

	field := cfg.UsernameField()
	fieldID := id.FieldID("username")
	if opts.email {
		field = cfg.EmailField()
		fieldID = id.FieldID("email")
	}
	if opts.context != "" {
		field.Context = opts.context
	}
	if opts.debounce > 0 {
		field.Debounce = opts.debounce
	}

	dir, err := buildDirectory(ctx, cfg, field.Kind, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := dir.close(); err != nil {
			log.Warn("failed to close directory", "error", err)
		}
	}()

	reg := platformmetrics.NewRegistry()
	svcOpts := []service.Option{
		service.WithLogger(log),
		service.WithMetrics(metrics.New(reg)),
		service.WithQueryTimeout(cfg.Checks.Timeout),
	}
	if cfg.Checks.Rate > 0 {
		svcOpts = append(svcOpts, service.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Checks.Rate), cfg.Checks.Burst)))
	}
	svc := service.New(svcOpts...)
	defer svc.Close()

	printer := &statePrinter{out: out}
	svc.Subscribe(printer)

	if _, err := svc.Register(fieldID, field, dir.checker); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	inputCtx, inputDone := context.WithCancel(gctx)

	if cfg.MetricsAddr != "" {
		srv := httpserver.New(cfg.MetricsAddr, httpserver.NewRouter(platformmetrics.Handler(reg), dir.health))
		g.Go(func() error {
			log.Info("serving metrics", "addr", cfg.MetricsAddr)
			return httpserver.Serve(inputCtx, srv)
		})
	}

	g.Go(func() error {
		defer inputDone()
		if err := feed(inputCtx, svc, fieldID, in, out); err != nil {
			return err
		}
		return settle(inputCtx, svc, fieldID, field.Debounce+cfg.Checks.Timeout)
	})

	return g.Wait()
}

// feed turns each input line into an input event for field.
func feed(ctx context.Context, svc *service.Service, field id.FieldID, in io.Reader, out io.Writer) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if err := apply(svc, field, line); err != nil {
				fmt.Fprintf(out, "error: %v\n", err)
			}
		}
	}
}

func apply(svc *service.Service, field id.FieldID, line string) error {
	switch {
	case strings.HasPrefix(line, "/context "):
		return svc.OnContextChanged(field, strings.TrimSpace(strings.TrimPrefix(line, "/context ")))
	case line == "/recheck":
		return svc.Recheck(field)
	default:
		return svc.OnValueChanged(field, line)
	}
}

// settle waits until the field leaves StateChecking, or until limit passes.
func settle(ctx context.Context, svc *service.Service, field id.FieldID, limit time.Duration) error {
	deadline := time.NewTimer(limit)
	defer deadline.Stop()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		state, err := svc.CurrentState(field)
		if err != nil {
			return err
		}
		if state != models.StateChecking {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-deadline.C:
			return fmt.Errorf("field %s still checking after %s", field, limit)
		case <-ticker.C:
		}
	}
}

// statePrinter writes one line per state change.
type statePrinter struct {
	mu  sync.Mutex
	out io.Writer
}

var _ ports.StateListener = (*statePrinter)(nil)

func (p *statePrinter) OnStateChanged(change models.StateChange) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "%s: %s -> %s\n", change.Field, change.Previous, change.State)
}
