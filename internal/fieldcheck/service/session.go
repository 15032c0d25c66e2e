package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"

	"formcheck/internal/fieldcheck/availability"
	"formcheck/internal/fieldcheck/debounce"
	"formcheck/internal/fieldcheck/metrics"
	"formcheck/internal/fieldcheck/models"
	"formcheck/internal/fieldcheck/statemachine"
	"formcheck/internal/fieldcheck/syntax"
	id "formcheck/pkg/domain"
)

// session is the per-field state. mu serializes input events, debounce fires
// and check resolutions; every state transition and every write of latest
// happens under it.
type session struct {
	id        id.SessionID
	field     id.FieldID
	cfg       models.FieldConfig
	checker   *availability.Checker
	debouncer *debounce.Debouncer
	logger    *slog.Logger
	metrics   *metrics.Metrics
	notify    func(models.StateChange)

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	value       string
	context     string
	machine     *statemachine.Machine
	debounceGen uint64
	closed      bool

	// latest is written under mu and read lock-free by checks deciding
	// whether to send their query.
	latest atomic.Uint64
	// state mirrors machine.Current() for readers that must not take mu.
	state atomic.Value
}

func newSession(
	sessionID id.SessionID,
	field id.FieldID,
	cfg models.FieldConfig,
	checker *availability.Checker,
	clk clock.Clock,
	logger *slog.Logger,
	m *metrics.Metrics,
	notify func(models.StateChange),
) *session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:        sessionID,
		field:     field,
		cfg:       cfg,
		checker:   checker,
		debouncer: debounce.New(clk),
		logger:    logger,
		metrics:   m,
		notify:    notify,
		ctx:       ctx,
		cancel:    cancel,
		context:   cfg.Context,
		machine:   statemachine.New(logger),
	}
	s.state.Store(s.machine.Current())
	return s
}

// Next implements availability.Tracker. Callers hold mu.
func (s *session) Next() uint64 {
	return s.latest.Add(1)
}

// IsLatest implements availability.Tracker.
func (s *session) IsLatest(seq uint64) bool {
	return s.latest.Load() == seq
}

// ApplyIfLatest implements availability.Tracker.
func (s *session) ApplyIfLatest(seq uint64, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.latest.Load() != seq {
		return false
	}
	fn()
	return true
}

func (s *session) current() models.ValidationState {
	return s.state.Load().(models.ValidationState)
}

func (s *session) setValue(value string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.value = value
	s.evaluateLocked()
	return true
}

func (s *session) setContext(context string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.context = context
	s.evaluateLocked()
	return true
}

func (s *session) recheck() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if syntax.ClassifyField(s.cfg, s.value) != models.StateSyntaxOK {
		return true
	}
	s.cancelDebounceLocked()
	s.transitionLocked(models.StateChecking)
	s.issueLocked()
	return true
}

// evaluateLocked invalidates every in-flight check and classifies the
// current value. Only a syntactically valid value arms the debounce.
func (s *session) evaluateLocked() {
	s.latest.Add(1)
	s.checker.Cancel()

	verdict := syntax.ClassifyField(s.cfg, s.value)
	if verdict != models.StateSyntaxOK {
		s.cancelDebounceLocked()
		s.transitionLocked(verdict)
		return
	}

	s.transitionLocked(models.StateChecking)
	s.debounceGen++
	gen := s.debounceGen
	s.debouncer.Schedule(func() { s.fire(gen) }, s.cfg.Debounce)
}

// fire runs when the debounce window elapses. A fire racing with a newer
// input event finds a different generation and does nothing.
func (s *session) fire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || gen != s.debounceGen {
		return
	}
	s.issueLocked()
}

func (s *session) issueLocked() {
	candidate := s.checker.Check(s.ctx, s, s.field, s.value, s.context, s.resolveLocked)
	s.logger.Debug("availability check issued",
		"sequence", candidate.Sequence, "context", candidate.Context)
}

// resolveLocked is invoked through ApplyIfLatest, so mu is held and the
// candidate is the newest one.
func (s *session) resolveLocked(candidate models.Candidate, outcome models.ValidationState) {
	s.logger.Debug("availability check resolved",
		"sequence", candidate.Sequence, "state", outcome)
	s.transitionLocked(outcome)
}

func (s *session) cancelDebounceLocked() {
	s.debounceGen++
	s.debouncer.Cancel()
}

func (s *session) transitionLocked(target models.ValidationState) {
	previous := s.machine.Current()
	changed, err := s.machine.Enter(s.ctx, target)
	if err != nil {
		s.logger.Error("rejected field state transition",
			"from", previous, "state", target, "error", err)
		return
	}
	if !changed {
		return
	}

	state := s.machine.Current()
	s.state.Store(state)
	s.metrics.IncrementStateTransitions(state)
	s.notify(models.StateChange{
		Field:    s.field,
		Session:  s.id,
		Previous: previous,
		State:    state,
		Sequence: s.latest.Load(),
	})
}

func (s *session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancelDebounceLocked()
	s.latest.Add(1)
	s.checker.Cancel()
	s.cancel()
}
