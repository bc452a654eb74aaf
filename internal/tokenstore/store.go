// Package tokenstore keeps the single bearer credential of the client in a
// durable, string-keyed store.
package tokenstore

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Key is the fixed storage key of the credential in every backend.
const Key = "token"

var (
	ErrNoCredential    = errors.New("no credential stored")
	ErrEmptyCredential = errors.New("credential must not be empty")
)

// Store holds at most one credential. Expiry is never checked: a stale token
// is indistinguishable from a valid one until a request fails.
type Store interface {
	// Get returns ErrNoCredential when nothing is stored.
	Get(ctx context.Context) (domain.Credential, error)
	Set(ctx context.Context, c domain.Credential) error
	// Clear is a no-op when nothing is stored.
	Clear(ctx context.Context) error
}

// Present reports whether s currently holds a credential. Read errors count as
// absent.
func Present(ctx context.Context, s Store) bool {
	_, err := s.Get(ctx)
	return err == nil
}
