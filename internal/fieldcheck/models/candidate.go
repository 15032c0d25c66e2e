package models

import (
	"sync/atomic"

	id "formcheck/pkg/domain"
)

// Candidate is the immutable snapshot submitted to an availability check.
// Sequence is strictly increasing per field session.
type Candidate struct {
	Field    id.FieldID
	Value    string
	Context  string
	Sequence uint64
}

// PendingCheck tracks one issued check. A cancelled check still resolves, but
// its result is never applied.
type PendingCheck struct {
	Candidate Candidate
	cancelled atomic.Bool
}

func NewPendingCheck(c Candidate) *PendingCheck {
	return &PendingCheck{Candidate: c}
}

func (p *PendingCheck) Cancel() {
	p.cancelled.Store(true)
}

func (p *PendingCheck) Cancelled() bool {
	return p.cancelled.Load()
}

// StateChange is delivered to listeners whenever a field changes state.
type StateChange struct {
	Field    id.FieldID
	Session  id.SessionID
	Previous ValidationState
	State    ValidationState
	// Sequence is the field sequence at the time of the transition.
	Sequence uint64
}
