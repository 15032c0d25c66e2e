// Package ports defines the capabilities the field-validation engine consumes
// and the hooks it exposes to views.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks ExistenceChecker,StateListener

import (
	"context"

	"formcheck/internal/fieldcheck/models"
)

// ExistenceChecker answers whether an identifier is already taken within a
// context (for example a username within a domain).
//
// Implementations return (true, nil) when the identifier exists and
// (false, nil) when it does not. An error wrapping sentinel.ErrNotFound is
// also read as "does not exist"; any other error is a transport failure.
type ExistenceChecker interface {
	Exists(ctx context.Context, value, domain string) (bool, error)
}

// ExistenceCheckerFunc adapts a function to ExistenceChecker.
type ExistenceCheckerFunc func(ctx context.Context, value, domain string) (bool, error)

func (f ExistenceCheckerFunc) Exists(ctx context.Context, value, domain string) (bool, error) {
	return f(ctx, value, domain)
}

// StateListener is notified after every state change of a field. Listeners
// run while the field is locked: they may read state but must not block.
type StateListener interface {
	OnStateChanged(change models.StateChange)
}

// StateListenerFunc adapts a function to StateListener.
type StateListenerFunc func(change models.StateChange)

func (f StateListenerFunc) OnStateChanged(change models.StateChange) {
	f(change)
}
