// Package credential defines the contract with the external identity source.
// The gateway consumes credentials; it never mints or persists them beyond
// the lifetime of one dispatcher call.
package credential

import (
	"context"
	"errors"
)

// ErrNotLinked means non-interactive acquisition cannot proceed because the
// installation has no linked account; an interactive attempt may succeed.
var ErrNotLinked = errors.New("account not linked")

// ErrUserCancelled means the user dismissed an interactive acquisition.
var ErrUserCancelled = errors.New("user cancelled credential acquisition")

// Credential is an opaque bearer value. Its internal structure is unknown to
// this subsystem.
type Credential struct {
	Token string
}

// Provider acquires credentials from the identity source.
type Provider interface {
	// Acquire returns a credential, prompting the user only when interactive
	// is true. Fails with ErrNotLinked or ErrUserCancelled.
	Acquire(ctx context.Context, interactive bool) (Credential, error)

	// InvalidateCache clears any cached credential so the next Acquire is
	// forced to go back to the identity source.
	InvalidateCache()
}

// Static is a Provider backed by a fixed token. Useful for tests and for
// environments where the token is provisioned out of band.
type Static struct {
	Token string
}

func (s Static) Acquire(ctx context.Context, interactive bool) (Credential, error) {
	if err := ctx.Err(); err != nil {
		return Credential{}, err
	}
	if s.Token == "" {
		return Credential{}, ErrNotLinked
	}
	return Credential{Token: s.Token}, nil
}

func (s Static) InvalidateCache() {}
