package models

import (
	"slices"
	"time"

	dErrors "formcheck/pkg/domain-errors"
)

// FieldKind selects the syntax rules applied to a field.
type FieldKind string

const (
	// KindIdentifier is the node part of an account name: no whitespace, no "@".
	KindIdentifier FieldKind = "identifier"
	// KindEmail must match the email shape pattern.
	KindEmail FieldKind = "email"
)

func (k FieldKind) IsValid() bool {
	return k == KindIdentifier || k == KindEmail
}

func (k FieldKind) String() string {
	return string(k)
}

// ParseFieldKind constructs a FieldKind from external input.
func ParseFieldKind(s string) (FieldKind, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "field kind cannot be empty")
	}
	k := FieldKind(s)
	if !k.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid field kind: must be 'identifier' or 'email'")
	}
	return k, nil
}

const (
	DefaultDebounce = 500 * time.Millisecond

	DefaultIdentifierMinLength = 3
	DefaultIdentifierMaxLength = 32
	// MaxIdentifierLength caps any configured identifier maximum.
	MaxIdentifierLength = 255

	DefaultEmailMinLength = 3
	DefaultEmailMaxLength = 254
)

// FieldConfig describes one form field.
type FieldConfig struct {
	Kind      FieldKind
	MinLength int
	MaxLength int
	// Debounce is the quiet period before an availability check is issued.
	Debounce time.Duration
	// Context is the initial context, e.g. the selected domain.
	Context string
	// Contexts restricts the contexts a field may switch to. Empty means any.
	Contexts []string
}

// DefaultIdentifierField returns the defaults for a username field.
func DefaultIdentifierField(context string) FieldConfig {
	return FieldConfig{
		Kind:      KindIdentifier,
		MinLength: DefaultIdentifierMinLength,
		MaxLength: DefaultIdentifierMaxLength,
		Debounce:  DefaultDebounce,
		Context:   context,
	}
}

// DefaultEmailField returns the defaults for an email field.
func DefaultEmailField() FieldConfig {
	return FieldConfig{
		Kind:      KindEmail,
		MinLength: DefaultEmailMinLength,
		MaxLength: DefaultEmailMaxLength,
		Debounce:  DefaultDebounce,
	}
}

// Normalize fills zero values with defaults and caps identifier lengths.
func (c FieldConfig) Normalize() FieldConfig {
	if c.Debounce == 0 {
		c.Debounce = DefaultDebounce
	}
	switch c.Kind {
	case KindIdentifier:
		if c.MinLength == 0 {
			c.MinLength = DefaultIdentifierMinLength
		}
		if c.MaxLength == 0 {
			c.MaxLength = DefaultIdentifierMaxLength
		}
		c.MaxLength = min(c.MaxLength, MaxIdentifierLength)
	case KindEmail:
		if c.MinLength == 0 {
			c.MinLength = DefaultEmailMinLength
		}
		if c.MaxLength == 0 {
			c.MaxLength = DefaultEmailMaxLength
		}
	}
	return c
}

// Validate checks the invariants of a normalized config.
func (c FieldConfig) Validate() error {
	if !c.Kind.IsValid() {
		return dErrors.New(dErrors.CodeInvalidInput, "invalid field kind")
	}
	if c.MinLength < 1 {
		return dErrors.New(dErrors.CodeInvalidInput, "min length must be at least 1")
	}
	if c.MaxLength < c.MinLength {
		return dErrors.New(dErrors.CodeInvalidInput, "max length must not be below min length")
	}
	if c.Debounce < 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "debounce must not be negative")
	}
	if !c.AllowsContext(c.Context) {
		return dErrors.New(dErrors.CodeInvalidInput, "initial context is not allowed")
	}
	return nil
}

// AllowsContext reports whether ctx is permitted for the field.
func (c FieldConfig) AllowsContext(ctx string) bool {
	return len(c.Contexts) == 0 || slices.Contains(c.Contexts, ctx)
}
