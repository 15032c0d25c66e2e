// Package statemachine holds the transition table for a field's
// ValidationState. Input events may move a field into any local state or into
// Checking; only a Checking field may resolve into an availability outcome.
package statemachine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/looplab/fsm"

	"formcheck/internal/fieldcheck/models"
)

// Event names a transition.
type Event string

const (
	EventClear        Event = "clear"
	EventTooShort     Event = "too_short"
	EventInvalidChars Event = "invalid_chars"
	EventCheck        Event = "check"
	EventAvailable    Event = "available"
	EventTaken        Event = "taken"
	EventCheckFailed  Event = "check_failed"
)

var allStates = []string{
	string(models.StateEmpty),
	string(models.StateTooShort),
	string(models.StateInvalidChars),
	string(models.StateChecking),
	string(models.StateAvailable),
	string(models.StateTaken),
	string(models.StateCheckFailed),
}

var checkingOnly = []string{string(models.StateChecking)}

func transitions() fsm.Events {
	return fsm.Events{
		{Name: string(EventClear), Src: allStates, Dst: string(models.StateEmpty)},
		{Name: string(EventTooShort), Src: allStates, Dst: string(models.StateTooShort)},
		{Name: string(EventInvalidChars), Src: allStates, Dst: string(models.StateInvalidChars)},
		{Name: string(EventCheck), Src: allStates, Dst: string(models.StateChecking)},
		{Name: string(EventAvailable), Src: checkingOnly, Dst: string(models.StateAvailable)},
		{Name: string(EventTaken), Src: checkingOnly, Dst: string(models.StateTaken)},
		{Name: string(EventCheckFailed), Src: checkingOnly, Dst: string(models.StateCheckFailed)},
	}
}

// EventFor returns the event that moves a field into state.
func EventFor(state models.ValidationState) (Event, error) {
	switch state {
	case models.StateEmpty:
		return EventClear, nil
	case models.StateTooShort:
		return EventTooShort, nil
	case models.StateInvalidChars:
		return EventInvalidChars, nil
	case models.StateChecking, models.StateSyntaxOK:
		return EventCheck, nil
	case models.StateAvailable:
		return EventAvailable, nil
	case models.StateTaken:
		return EventTaken, nil
	case models.StateCheckFailed:
		return EventCheckFailed, nil
	}
	return "", fmt.Errorf("no event leads to state %q", state)
}

// Machine wraps one field's FSM. It is not safe for concurrent use; the
// owning session serializes access.
type Machine struct {
	fsm    *fsm.FSM
	logger *slog.Logger
}

// New creates a machine in StateEmpty.
func New(logger *slog.Logger) *Machine {
	m := &Machine{logger: logger}
	m.fsm = fsm.NewFSM(
		string(models.StateEmpty),
		transitions(),
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				if m.logger != nil {
					m.logger.DebugContext(ctx, "field state entered", "event", e.Event, "from", e.Src, "to", e.Dst)
				}
			},
		},
	)
	return m
}

// Current returns the active state.
func (m *Machine) Current() models.ValidationState {
	return models.ValidationState(m.fsm.Current())
}

// Can reports whether ev is permitted from the current state.
func (m *Machine) Can(ev Event) bool {
	return m.fsm.Can(string(ev))
}

// Fire applies ev. changed is false when the field was already in the target
// state; an event not permitted from the current state returns an error.
func (m *Machine) Fire(ctx context.Context, ev Event) (changed bool, err error) {
	err = m.fsm.Event(ctx, string(ev))
	if err == nil {
		return true, nil
	}
	var noTransition fsm.NoTransitionError
	if errors.As(err, &noTransition) {
		return false, nil
	}
	return false, fmt.Errorf("fire %s from %s: %w", ev, m.fsm.Current(), err)
}

// Enter moves the machine into state via the matching event.
func (m *Machine) Enter(ctx context.Context, state models.ValidationState) (bool, error) {
	ev, err := EventFor(state)
	if err != nil {
		return false, err
	}
	return m.Fire(ctx, ev)
}
