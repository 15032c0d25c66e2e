package service

import (
	"context"
	"sync"

	"formcheck/internal/fieldcheck/models"
)

// fakeDirectory answers from a set of taken names. Values listed in gated
// block until released or until the request context ends.
type fakeDirectory struct {
	mu      sync.Mutex
	taken   map[string]bool
	gates   map[string]chan struct{}
	errs    map[string][]error
	calls   []string
	started chan string
}

func newFakeDirectory(taken ...string) *fakeDirectory {
	d := &fakeDirectory{
		taken:   make(map[string]bool),
		gates:   make(map[string]chan struct{}),
		errs:    make(map[string][]error),
		started: make(chan string, 64),
	}
	for _, name := range taken {
		d.taken[name] = true
	}
	return d
}

func key(value, domain string) string {
	if domain == "" {
		return value
	}
	return value + "@" + domain
}

// gate makes queries for value block until release is called.
func (d *fakeDirectory) gate(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gates[value] = make(chan struct{})
}

func (d *fakeDirectory) release(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	close(d.gates[value])
}

// failNext queues errors returned by the next queries for value.
func (d *fakeDirectory) failNext(value string, errs ...error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errs[value] = append(d.errs[value], errs...)
}

func (d *fakeDirectory) Exists(ctx context.Context, value, domain string) (bool, error) {
	d.mu.Lock()
	d.calls = append(d.calls, value)
	gate := d.gates[value]
	var err error
	if queued := d.errs[value]; len(queued) > 0 {
		err, d.errs[value] = queued[0], queued[1:]
	}
	taken := d.taken[key(value, domain)]
	d.mu.Unlock()

	d.started <- value
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	if err != nil {
		return false, err
	}
	return taken, nil
}

func (d *fakeDirectory) queried() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// recorder collects state changes in delivery order.
type recorder struct {
	mu      sync.Mutex
	changes []models.StateChange
}

func (r *recorder) OnStateChanged(change models.StateChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func (r *recorder) states() []models.ValidationState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ValidationState, 0, len(r.changes))
	for _, c := range r.changes {
		out = append(out, c.State)
	}
	return out
}

func (r *recorder) all() []models.StateChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.StateChange(nil), r.changes...)
}
