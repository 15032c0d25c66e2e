// Package domain holds typed identifiers shared across formcheck packages.
package domain

import (
	"regexp"

	"github.com/google/uuid"

	dErrors "formcheck/pkg/domain-errors"
)

// SessionID identifies one registration of a form field. A field that is
// unregistered and registered again gets a fresh SessionID.
type SessionID uuid.UUID

// NewSessionID generates a random session identifier.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

// ParseSessionID parses external input into a SessionID.
//
// Errors: returns CodeInvalidInput for empty, malformed or nil UUIDs.
func ParseSessionID(s string) (SessionID, error) {
	if s == "" {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "session id cannot be empty")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid session id format")
	}
	if parsed == uuid.Nil {
		return SessionID{}, dErrors.New(dErrors.CodeInvalidInput, "session id cannot be nil")
	}
	return SessionID(parsed), nil
}

func (id SessionID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether the identifier is the zero UUID.
func (id SessionID) IsNil() bool {
	return uuid.UUID(id) == uuid.Nil
}

// FieldID names a form field, e.g. "username" or "email".
// Invariant: 1-64 characters from [A-Za-z0-9_.-].
type FieldID string

const maxFieldIDLength = 64

var fieldIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ParseFieldID validates a field name coming from a view or configuration.
//
// Errors: returns CodeInvalidInput when the name is empty, too long or uses
// characters outside the allowed set.
func ParseFieldID(s string) (FieldID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "field id cannot be empty")
	}
	if len(s) > maxFieldIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "field id too long")
	}
	if !fieldIDPattern.MatchString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "field id contains invalid characters")
	}
	return FieldID(s), nil
}

func (id FieldID) String() string {
	return string(id)
}
