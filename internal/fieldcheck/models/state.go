package models

// ValidationState is what the view renders for a field. Exactly one state is
// active per field at any time.
type ValidationState string

const (
	StateEmpty        ValidationState = "empty"
	StateTooShort     ValidationState = "too_short"
	StateInvalidChars ValidationState = "invalid_chars"
	StateChecking     ValidationState = "checking"
	StateAvailable    ValidationState = "available"
	StateTaken        ValidationState = "taken"
	StateCheckFailed  ValidationState = "check_failed"
)

// StateSyntaxOK is the classifier verdict for a value that passed every local
// rule. It is never the state of a field: the controller turns it into
// StateChecking.
const StateSyntaxOK ValidationState = "syntax_ok"

var fieldStates = map[ValidationState]bool{
	StateEmpty:        true,
	StateTooShort:     true,
	StateInvalidChars: true,
	StateChecking:     true,
	StateAvailable:    true,
	StateTaken:        true,
	StateCheckFailed:  true,
}

// AllStates lists every field state in display order.
func AllStates() []ValidationState {
	return []ValidationState{
		StateEmpty, StateTooShort, StateInvalidChars, StateChecking,
		StateAvailable, StateTaken, StateCheckFailed,
	}
}

// IsValid reports whether s is one of the field states.
func (s ValidationState) IsValid() bool {
	return fieldStates[s]
}

// IsLocalReject reports whether the state was decided without a remote query.
func (s ValidationState) IsLocalReject() bool {
	return s == StateTooShort || s == StateInvalidChars
}

// IsResolved reports whether the state is the outcome of an availability check.
func (s ValidationState) IsResolved() bool {
	return s == StateAvailable || s == StateTaken || s == StateCheckFailed
}

func (s ValidationState) String() string {
	return string(s)
}
