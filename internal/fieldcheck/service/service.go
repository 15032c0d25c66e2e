// Package service hosts the field validation controller. It owns one session
// per registered form field and routes value changes through syntax
// classification, debouncing and availability checks.
package service

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"formcheck/internal/fieldcheck/availability"
	"formcheck/internal/fieldcheck/metrics"
	"formcheck/internal/fieldcheck/models"
	"formcheck/internal/fieldcheck/ports"
	id "formcheck/pkg/domain"
	dErrors "formcheck/pkg/domain-errors"
	"formcheck/pkg/platform/sentinel"
)

// Service is the field validation controller. All methods are safe for
// concurrent use.
type Service struct {
	clock        clock.Clock
	logger       *slog.Logger
	metrics      *metrics.Metrics
	limiter      *rate.Limiter
	tracer       trace.Tracer
	queryTimeout time.Duration

	mu       sync.RWMutex
	sessions map[id.FieldID]*session
	closed   bool

	listenersMu    sync.RWMutex
	listeners      map[uint64]ports.StateListener
	nextListenerID uint64
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithClock sets the time source used for debouncing. Tests pass a
// clock.Mock.
func WithClock(c clock.Clock) Option {
	return func(s *Service) {
		s.clock = c
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLimiter throttles availability queries across all fields.
func WithLimiter(l *rate.Limiter) Option {
	return func(s *Service) {
		s.limiter = l
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithQueryTimeout bounds each availability query.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Service) {
		s.queryTimeout = d
	}
}

func New(opts ...Option) *Service {
	s := &Service{
		clock:        clock.New(),
		logger:       slog.New(slog.DiscardHandler),
		queryTimeout: availability.DefaultTimeout,
		sessions:     make(map[id.FieldID]*session),
		listeners:    make(map[uint64]ports.StateListener),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register starts validating a field. The field begins in StateEmpty with an
// empty value and cfg.Context as its context.
//
// Errors: CodeInvalidInput for a malformed field id, an invalid config or a
// nil checker; CodeConflict if the field is already registered.
func (s *Service) Register(field id.FieldID, cfg models.FieldConfig, exists ports.ExistenceChecker) (id.SessionID, error) {
	if _, err := id.ParseFieldID(field.String()); err != nil {
		return id.SessionID{}, err
	}
	if exists == nil {
		return id.SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "existence checker is required")
	}
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return id.SessionID{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return id.SessionID{}, dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeInvariantViolation, "controller is closed")
	}
	if _, ok := s.sessions[field]; ok {
		return id.SessionID{}, dErrors.New(dErrors.CodeConflict, "field already registered: "+field.String())
	}

	sess, err := s.newSession(field, cfg, exists)
	if err != nil {
		return id.SessionID{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create field session")
	}
	s.sessions[field] = sess
	s.metrics.SetActiveFields(len(s.sessions))
	s.logger.Info("field registered",
		"field", field, "session", sess.id, "kind", cfg.Kind, "context", cfg.Context)
	return sess.id, nil
}

func (s *Service) newSession(field id.FieldID, cfg models.FieldConfig, exists ports.ExistenceChecker) (*session, error) {
	sessionID := id.NewSessionID()
	logger := s.logger.With("field", field, "session", sessionID)

	opts := []availability.Option{
		availability.WithLogger(logger),
		availability.WithMetrics(s.metrics),
		availability.WithClock(s.clock),
		availability.WithTimeout(s.queryTimeout),
	}
	if s.limiter != nil {
		opts = append(opts, availability.WithLimiter(s.limiter))
	}
	if s.tracer != nil {
		opts = append(opts, availability.WithTracer(s.tracer))
	}
	checker, err := availability.New(exists, opts...)
	if err != nil {
		return nil, err
	}
	return newSession(sessionID, field, cfg, checker, s.clock, logger, s.metrics, s.notify), nil
}

// Unregister stops validating a field. Its pending debounce is dropped, any
// in-flight check is invalidated and its request context is cancelled.
//
// Errors: CodeNotFound if the field is not registered.
func (s *Service) Unregister(field id.FieldID) error {
	s.mu.Lock()
	sess, ok := s.sessions[field]
	if ok {
		delete(s.sessions, field)
		s.metrics.SetActiveFields(len(s.sessions))
	}
	s.mu.Unlock()
	if !ok {
		return notRegistered(field)
	}

	sess.close()
	s.logger.Info("field unregistered", "field", field, "session", sess.id)
	return nil
}

// Close unregisters every field and waits for outstanding checks to return.
// Registering after Close fails.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	clear(s.sessions)
	s.metrics.SetActiveFields(0)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
	for _, sess := range sessions {
		sess.checker.Wait()
	}
}

// OnValueChanged feeds a new input value into a field.
//
// Errors: CodeNotFound if the field is not registered.
func (s *Service) OnValueChanged(field id.FieldID, value string) error {
	sess, err := s.session(field)
	if err != nil {
		return err
	}
	if !sess.setValue(value) {
		return notRegistered(field)
	}
	return nil
}

// OnContextChanged switches the context (for example the selected domain) a
// field is checked against and re-validates the current value.
//
// Errors: CodeNotFound if the field is not registered; CodeInvalidInput if
// the context is not among the field's allowed contexts.
func (s *Service) OnContextChanged(field id.FieldID, context string) error {
	sess, err := s.session(field)
	if err != nil {
		return err
	}
	if !sess.cfg.AllowsContext(context) {
		return dErrors.New(dErrors.CodeInvalidInput, "context not allowed for field: "+context)
	}
	if !sess.setContext(context) {
		return notRegistered(field)
	}
	return nil
}

// Recheck issues an availability check for the current value right away,
// skipping the debounce window. It does nothing when the value does not pass
// syntax classification.
//
// Errors: CodeNotFound if the field is not registered.
func (s *Service) Recheck(field id.FieldID) error {
	sess, err := s.session(field)
	if err != nil {
		return err
	}
	if !sess.recheck() {
		return notRegistered(field)
	}
	return nil
}

// CurrentState returns the field's state. It is safe to call from a
// StateListener.
//
// Errors: CodeNotFound if the field is not registered.
func (s *Service) CurrentState(field id.FieldID) (models.ValidationState, error) {
	sess, err := s.session(field)
	if err != nil {
		return "", err
	}
	return sess.current(), nil
}

// Fields lists the registered fields in name order.
func (s *Service) Fields() []id.FieldID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fields := make([]id.FieldID, 0, len(s.sessions))
	for field := range s.sessions {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	return fields
}

// Subscribe registers a listener for state changes of every field and
// returns a function that removes it. Changes of one field are delivered in
// the order they happen, while the field is locked: listeners must not
// block or feed input back into the controller synchronously.
func (s *Service) Subscribe(listener ports.StateListener) (unsubscribe func()) {
	s.listenersMu.Lock()
	defer s.listenersMu.Unlock()
	s.nextListenerID++
	key := s.nextListenerID
	s.listeners[key] = listener
	return func() {
		s.listenersMu.Lock()
		defer s.listenersMu.Unlock()
		delete(s.listeners, key)
	}
}

func (s *Service) notify(change models.StateChange) {
	s.listenersMu.RLock()
	keys := make([]uint64, 0, len(s.listeners))
	for key := range s.listeners {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	listeners := make([]ports.StateListener, 0, len(keys))
	for _, key := range keys {
		listeners = append(listeners, s.listeners[key])
	}
	s.listenersMu.RUnlock()

	for _, l := range listeners {
		l.OnStateChanged(change)
	}
}

func (s *Service) session(field id.FieldID) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[field]
	if !ok {
		return nil, notRegistered(field)
	}
	return sess, nil
}

func notRegistered(field id.FieldID) error {
	return dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "field not registered: "+field.String())
}

// IsNotRegistered reports whether err means the field is unknown.
func IsNotRegistered(err error) bool {
	return dErrors.HasCode(err, dErrors.CodeNotFound) && errors.Is(err, sentinel.ErrNotFound)
}
