package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Directory adapters return these
// (optionally wrapped) so the availability checker can map them onto outcomes:
// - ErrNotFound: the queried identifier does not exist (maps to Available)
// - ErrUnavailable: the directory could not be reached (maps to CheckFailed)
// - ErrConflict: the identifier is already registered
// - ErrInvalidState: a component was used in the wrong lifecycle state
//
// For API misuse (bad input, unknown fields), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
)
