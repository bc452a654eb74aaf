// Package session derives the authenticated flag from the token store and
// keeps it in step with every credential change.
package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/state"
	"github.com/fjod/go_cart/storefront/internal/tokenstore"
)

// Gate is the single source of the "authenticated" flag read by route
// authorization.
type Gate struct {
	tokens *tokenstore.Watched
	store  *state.Store
	log    *zap.Logger
	stop   func()
}

// NewGate subscribes to tokens. Call Init before the first read and Close when
// the root context is torn down.
func NewGate(tokens *tokenstore.Watched, store *state.Store, log *zap.Logger) *Gate {
	g := &Gate{tokens: tokens, store: store, log: log}
	g.stop = tokens.OnChange(g.onTokenChange)
	return g
}

// Init derives the flag from credential presence. It runs once at start.
func (g *Gate) Init(ctx context.Context) error {
	_, err := g.tokens.Get(ctx)
	switch {
	case err == nil:
		g.store.Dispatch(state.LoginSucceeded{})
	case errors.Is(err, tokenstore.ErrNoCredential):
		g.store.Dispatch(state.LoggedOut{})
	default:
		g.store.Dispatch(state.LoggedOut{})
		return fmt.Errorf("read credential: %w", err)
	}
	return nil
}

func (g *Gate) Authenticated() bool {
	return g.store.State().Authenticated
}

// Authenticate flips the flag after a successful login or signup. It is the
// only way in when the server returned no token.
func (g *Gate) Authenticate() {
	g.store.Dispatch(state.LoginSucceeded{})
}

// Credential returns the stored token, or tokenstore.ErrNoCredential.
func (g *Gate) Credential(ctx context.Context) (domain.Credential, error) {
	return g.tokens.Get(ctx)
}

// Claims decodes the stored credential for display.
func (g *Gate) Claims(ctx context.Context) (Claims, error) {
	c, err := g.tokens.Get(ctx)
	if err != nil {
		return Claims{}, err
	}
	return DecodeClaims(c)
}

// Logout clears the credential. The flag and the cart follow through the
// token-store reaction.
func (g *Gate) Logout(ctx context.Context) error {
	if err := g.tokens.Clear(ctx); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	return nil
}

func (g *Gate) Close() {
	g.stop()
}

func (g *Gate) onTokenChange(e tokenstore.Event) {
	g.log.Debug("credential changed", zap.Stringer("event", e))
	switch e {
	case tokenstore.EventSet:
		g.store.Dispatch(state.LoginSucceeded{})
	case tokenstore.EventCleared:
		g.store.Dispatch(state.LoggedOut{})
	}
}
