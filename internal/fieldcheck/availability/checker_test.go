package availability

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"
	"golang.org/x/time/rate"

	"formcheck/internal/fieldcheck/metrics"
	"formcheck/internal/fieldcheck/models"
	"formcheck/internal/fieldcheck/ports"
	"formcheck/internal/fieldcheck/ports/mocks"
	id "formcheck/pkg/domain"
	"formcheck/pkg/platform/sentinel"
)

type seqTracker struct {
	mu     sync.Mutex
	latest uint64
}

func (t *seqTracker) Next() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latest++
	return t.latest
}

func (t *seqTracker) IsLatest(seq uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return seq == t.latest
}

func (t *seqTracker) ApplyIfLatest(seq uint64, fn func()) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if seq != t.latest {
		return false
	}
	fn()
	return true
}

type resolution struct {
	candidate models.Candidate
	outcome   models.ValidationState
}

type CheckerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	exists   *mocks.MockExistenceChecker
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	spans    *tracetest.SpanRecorder
	tracker  *seqTracker
	resolved chan resolution
	field    id.FieldID
}

func TestCheckerSuite(t *testing.T) {
	suite.Run(t, new(CheckerSuite))
}

func (s *CheckerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.exists = mocks.NewMockExistenceChecker(s.ctrl)
	s.registry = prometheus.NewRegistry()
	s.metrics = metrics.New(s.registry)
	s.spans = tracetest.NewSpanRecorder()
	s.tracker = &seqTracker{}
	s.resolved = make(chan resolution, 8)
	s.field = id.FieldID("username")
}

func (s *CheckerSuite) newChecker(exists ports.ExistenceChecker, opts ...Option) *Checker {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(s.spans))
	base := []Option{
		WithMetrics(s.metrics),
		WithTracer(tp.Tracer("test")),
	}
	c, err := New(exists, append(base, opts...)...)
	s.Require().NoError(err)
	return c
}

func (s *CheckerSuite) resolve(candidate models.Candidate, outcome models.ValidationState) {
	s.resolved <- resolution{candidate: candidate, outcome: outcome}
}

func (s *CheckerSuite) drained() []resolution {
	var out []resolution
	for {
		select {
		case r := <-s.resolved:
			out = append(out, r)
		default:
			return out
		}
	}
}

// =============================================================================
// Construction
// =============================================================================

func (s *CheckerSuite) TestNewRequiresExistenceChecker() {
	_, err := New(nil)
	s.Require().Error(err)
}

// =============================================================================
// Outcomes
// =============================================================================

func (s *CheckerSuite) TestCheckResolvesOutcome() {
	cases := []struct {
		name    string
		exists  bool
		err     error
		outcome models.ValidationState
	}{
		{name: "existing identifier is taken", exists: true, outcome: models.StateTaken},
		{name: "missing identifier is available", exists: false, outcome: models.StateAvailable},
		{name: "not found error is available", err: fmt.Errorf("lookup: %w", sentinel.ErrNotFound), outcome: models.StateAvailable},
		{name: "transport error fails the check", err: errors.New("connection reset"), outcome: models.StateCheckFailed},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			s.SetupTest()
			s.exists.EXPECT().Exists(gomock.Any(), "alice", "example.com").Return(tc.exists, tc.err)
			c := s.newChecker(s.exists)

			candidate := c.Check(context.Background(), s.tracker, s.field, "alice", "example.com", s.resolve)
			c.Wait()

			s.Equal(uint64(1), candidate.Sequence)
			got := s.drained()
			s.Require().Len(got, 1)
			s.Equal(candidate, got[0].candidate)
			s.Equal(tc.outcome, got[0].outcome)
			s.Nil(c.Pending())
		})
	}
}

func (s *CheckerSuite) TestFailedCheckRecordsSpanError() {
	s.exists.EXPECT().Exists(gomock.Any(), "alice", "example.com").Return(false, errors.New("boom"))
	c := s.newChecker(s.exists)

	c.Check(context.Background(), s.tracker, s.field, "alice", "example.com", s.resolve)
	c.Wait()

	ended := s.spans.Ended()
	s.Require().Len(ended, 1)
	span := ended[0]
	s.Equal("availability.check", span.Name())
	s.Equal(codes.Error, span.Status().Code)
	s.Contains(span.Attributes(), attribute.String("outcome", "check_failed"))
	s.Contains(span.Attributes(), attribute.String("field", "username"))
	s.Contains(span.Attributes(), attribute.Int64("sequence", 1))
}

func (s *CheckerSuite) TestTimeoutFailsTheCheck() {
	blocking := ports.ExistenceCheckerFunc(func(ctx context.Context, _, _ string) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	})
	c := s.newChecker(blocking, WithTimeout(10*time.Millisecond))

	c.Check(context.Background(), s.tracker, s.field, "alice", "example.com", s.resolve)
	c.Wait()

	got := s.drained()
	s.Require().Len(got, 1)
	s.Equal(models.StateCheckFailed, got[0].outcome)
}

// =============================================================================
// Staleness
// =============================================================================

// gatedDirectory answers each value only once its gate is opened and
// announces every query it receives.
type gatedDirectory struct {
	gates   map[string]chan struct{}
	started chan string
}

func newGatedDirectory(values ...string) *gatedDirectory {
	d := &gatedDirectory{gates: make(map[string]chan struct{}), started: make(chan string, len(values))}
	for _, v := range values {
		d.gates[v] = make(chan struct{})
	}
	return d
}

func (d *gatedDirectory) Exists(_ context.Context, value, _ string) (bool, error) {
	d.started <- value
	<-d.gates[value]
	return value == "alice", nil
}

func (s *CheckerSuite) TestStaleResponseIsDropped() {
	dir := newGatedDirectory("alice", "alicia")
	c := s.newChecker(dir)

	first := c.Check(context.Background(), s.tracker, s.field, "alice", "example.com", s.resolve)
	s.Equal("alice", <-dir.started)
	second := c.Check(context.Background(), s.tracker, s.field, "alicia", "example.com", s.resolve)
	s.Equal("alicia", <-dir.started)
	s.Greater(second.Sequence, first.Sequence)

	close(dir.gates["alicia"])
	close(dir.gates["alice"])
	c.Wait()

	got := s.drained()
	s.Require().Len(got, 1)
	s.Equal(second, got[0].candidate)
	s.Equal(models.StateAvailable, got[0].outcome)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.StaleResponses))
	s.Equal(float64(2), testutil.ToFloat64(s.metrics.ChecksIssued))
}

func (s *CheckerSuite) TestOlderResponseArrivingFirstIsDropped() {
	dir := newGatedDirectory("alice", "alicia")
	c := s.newChecker(dir)

	c.Check(context.Background(), s.tracker, s.field, "alice", "example.com", s.resolve)
	s.Equal("alice", <-dir.started)
	second := c.Check(context.Background(), s.tracker, s.field, "alicia", "example.com", s.resolve)
	s.Equal("alicia", <-dir.started)

	close(dir.gates["alice"])
	s.Require().Eventually(func() bool {
		return testutil.ToFloat64(s.metrics.StaleResponses) == 1
	}, time.Second, time.Millisecond)
	s.Empty(s.drained())

	close(dir.gates["alicia"])
	c.Wait()

	got := s.drained()
	s.Require().Len(got, 1)
	s.Equal(second, got[0].candidate)
	s.Equal(models.StateAvailable, got[0].outcome)
}

func (s *CheckerSuite) TestInvalidatedCheckIsDroppedEvenIfNoNewerCheckRuns() {
	dir := newGatedDirectory("alice")
	c := s.newChecker(dir)

	c.Check(context.Background(), s.tracker, s.field, "alice", "example.com", s.resolve)
	s.Equal("alice", <-dir.started)
	// A local rejection bumps the sequence without issuing a check.
	s.tracker.Next()
	c.Cancel()
	s.Nil(c.Pending())

	close(dir.gates["alice"])
	c.Wait()

	s.Empty(s.drained())
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.StaleResponses))
}

func (s *CheckerSuite) TestSupersededCheckWaitingOnLimiterIsNeverSent() {
	limiter := rate.NewLimiter(rate.Every(50*time.Millisecond), 1)
	s.Require().True(limiter.Allow())

	var mu sync.Mutex
	var queried []string
	recording := ports.ExistenceCheckerFunc(func(_ context.Context, value, _ string) (bool, error) {
		mu.Lock()
		defer mu.Unlock()
		queried = append(queried, value)
		return false, nil
	})
	c := s.newChecker(recording, WithLimiter(limiter))

	c.Check(context.Background(), s.tracker, s.field, "alice", "example.com", s.resolve)
	second := c.Check(context.Background(), s.tracker, s.field, "alicia", "example.com", s.resolve)
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	s.Equal([]string{"alicia"}, queried)
	got := s.drained()
	s.Require().Len(got, 1)
	s.Equal(second, got[0].candidate)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.ChecksSkipped))
}

func (s *CheckerSuite) TestCancelledContextAbandonsThrottledCheck() {
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	s.Require().True(limiter.Allow())
	c := s.newChecker(s.exists, WithLimiter(limiter))

	ctx, cancel := context.WithCancel(context.Background())
	c.Check(ctx, s.tracker, s.field, "alice", "example.com", s.resolve)
	cancel()
	c.Wait()

	s.Empty(s.drained())
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.ChecksSkipped))
}

func (s *CheckerSuite) TestLimiterErrorSkipsQueryAndFailsCheck() {
	// A zero burst can never admit a single check.
	limiter := rate.NewLimiter(rate.Every(time.Second), 0)
	c := s.newChecker(s.exists, WithLimiter(limiter))

	c.Check(context.Background(), s.tracker, s.field, "alice", "example.com", s.resolve)
	c.Wait()

	got := s.drained()
	s.Require().Len(got, 1)
	s.Equal(models.StateCheckFailed, got[0].outcome)
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.ChecksSkipped))
	s.Equal(float64(0), testutil.ToFloat64(s.metrics.ChecksIssued))
}

func TestOutcome(t *testing.T) {
	assert.Equal(t, models.StateTaken, Outcome(true, nil))
	assert.Equal(t, models.StateAvailable, Outcome(false, nil))
	assert.Equal(t, models.StateAvailable, Outcome(true, sentinel.ErrNotFound))
	assert.Equal(t, models.StateCheckFailed, Outcome(false, sentinel.ErrUnavailable))
	require.Equal(t, models.StateCheckFailed, Outcome(true, context.DeadlineExceeded))
}
