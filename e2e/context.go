package e2e

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"formcheck/internal/directory"
	"formcheck/internal/fieldcheck/models"
	"formcheck/internal/fieldcheck/service"
	id "formcheck/pkg/domain"
)

// TestContext drives one controller on a mock clock against an in-memory
// directory. Lookups for stalled names never answer until the scenario ends.
type TestContext struct {
	clock   *clock.Mock
	service *service.Service
	memory  *directory.Memory

	mu      sync.Mutex
	stalled map[string]bool
	queries []string
	changes []models.StateChange
}

func NewTestContext() *TestContext {
	tc := &TestContext{
		clock:   clock.NewMock(),
		memory:  directory.NewMemory(),
		stalled: make(map[string]bool),
	}
	tc.service = service.New(service.WithClock(tc.clock))
	tc.service.Subscribe(tc)
	return tc
}

// Close releases the controller and any stalled lookups.
func (tc *TestContext) Close() {
	tc.service.Close()
}

func (tc *TestContext) OnStateChanged(change models.StateChange) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.changes = append(tc.changes, change)
}

func (tc *TestContext) Exists(ctx context.Context, value, domain string) (bool, error) {
	tc.mu.Lock()
	tc.queries = append(tc.queries, value)
	stalled := tc.stalled[value]
	tc.mu.Unlock()

	if stalled {
		<-ctx.Done()
		return false, ctx.Err()
	}
	return tc.memory.Exists(ctx, value, domain)
}

func (tc *TestContext) RegisterField(name string, cfg models.FieldConfig) error {
	_, err := tc.service.Register(id.FieldID(name), cfg, tc)
	return err
}

func (tc *TestContext) Type(field, value string) error {
	return tc.service.OnValueChanged(id.FieldID(field), value)
}

func (tc *TestContext) SwitchContext(field, domain string) error {
	return tc.service.OnContextChanged(id.FieldID(field), domain)
}

func (tc *TestContext) Recheck(field string) error {
	return tc.service.Recheck(id.FieldID(field))
}

func (tc *TestContext) Advance(d time.Duration) {
	tc.clock.Add(d)
}

func (tc *TestContext) Take(value, domain string) {
	tc.memory.Add(value, domain)
}

func (tc *TestContext) Free(value, domain string) {
	tc.memory.Remove(value, domain)
}

func (tc *TestContext) Stall(value string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.stalled[value] = true
}

func (tc *TestContext) Queries() []string {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return append([]string(nil), tc.queries...)
}

func (tc *TestContext) States(field string) []models.ValidationState {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	var out []models.ValidationState
	for _, c := range tc.changes {
		if c.Field == id.FieldID(field) {
			out = append(out, c.State)
		}
	}
	return out
}

// AwaitState polls until field reaches want or timeout passes.
func (tc *TestContext) AwaitState(field string, want models.ValidationState, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		got, err := tc.service.CurrentState(id.FieldID(field))
		if err != nil {
			return err
		}
		if got == want {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("field %s is %s, expected %s", field, got, want)
		}
		time.Sleep(time.Millisecond)
	}
}

// HoldsState fails if field leaves want within d.
func (tc *TestContext) HoldsState(field string, want models.ValidationState, d time.Duration) error {
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		got, err := tc.service.CurrentState(id.FieldID(field))
		if err != nil {
			return err
		}
		if got != want {
			return fmt.Errorf("field %s moved to %s, expected to stay %s", field, got, want)
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}
