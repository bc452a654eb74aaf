package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/state"
	"github.com/fjod/go_cart/storefront/internal/tokenstore"
)

type brokenStore struct {
	tokenstore.MemoryStore
}

func (*brokenStore) Get(context.Context) (domain.Credential, error) {
	return "", errors.New("disk on fire")
}

func newGate(t *testing.T, s tokenstore.Store) (*Gate, *tokenstore.Watched, *state.Store) {
	t.Helper()
	tokens := tokenstore.Watch(s)
	st := state.NewStore(state.State{})
	g := NewGate(tokens, st, zap.NewNop())
	t.Cleanup(g.Close)
	return g, tokens, st
}

func TestInit_DerivesFromPresence(t *testing.T) {
	ctx := context.Background()

	mem := tokenstore.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, "abc"))
	g, _, _ := newGate(t, mem)
	require.NoError(t, g.Init(ctx))
	assert.True(t, g.Authenticated())

	g2, _, _ := newGate(t, tokenstore.NewMemoryStore())
	require.NoError(t, g2.Init(ctx))
	assert.False(t, g2.Authenticated())
}

func TestInit_ReadFailureMeansLoggedOut(t *testing.T) {
	g, _, _ := newGate(t, &brokenStore{})

	err := g.Init(context.Background())
	assert.ErrorContains(t, err, "disk on fire")
	assert.False(t, g.Authenticated())
}

func TestGate_FollowsTokenStoreChanges(t *testing.T) {
	ctx := context.Background()
	g, tokens, st := newGate(t, tokenstore.NewMemoryStore())
	require.NoError(t, g.Init(ctx))

	require.NoError(t, tokens.Set(ctx, "abc"))
	assert.True(t, g.Authenticated())

	st.Dispatch(state.CartSynced{Seq: 1, Items: []domain.CartItem{{ProductID: 1, Quantity: 1}}})

	// a clear from anywhere deauthenticates and drops the cart
	require.NoError(t, tokens.Clear(ctx))
	assert.False(t, g.Authenticated())
	assert.True(t, st.State().Cart.IsEmpty())
}

func TestAuthenticate_WithoutToken(t *testing.T) {
	g, _, _ := newGate(t, tokenstore.NewMemoryStore())
	require.NoError(t, g.Init(context.Background()))

	g.Authenticate()

	assert.True(t, g.Authenticated())
	_, err := g.Credential(context.Background())
	assert.ErrorIs(t, err, tokenstore.ErrNoCredential)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	mem := tokenstore.NewMemoryStore()
	require.NoError(t, mem.Set(ctx, "abc"))
	g, _, _ := newGate(t, mem)
	require.NoError(t, g.Init(ctx))

	require.NoError(t, g.Logout(ctx))

	assert.False(t, g.Authenticated())
	assert.False(t, tokenstore.Present(ctx, mem))
}

func TestClose_StopsFollowing(t *testing.T) {
	ctx := context.Background()
	g, tokens, _ := newGate(t, tokenstore.NewMemoryStore())
	require.NoError(t, g.Init(ctx))

	g.Close()
	require.NoError(t, tokens.Set(ctx, "abc"))

	assert.False(t, g.Authenticated())
}

func TestDecodeClaims(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "asha",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("server-only-key"))
	require.NoError(t, err)

	claims, err := DecodeClaims(domain.Credential(signed))
	require.NoError(t, err)
	assert.Equal(t, "asha", claims.Subject)
	assert.True(t, claims.ExpiresAt.Equal(exp))
	assert.False(t, claims.Expired(exp.Add(-time.Second)))
	assert.True(t, claims.Expired(exp.Add(time.Second)))
}

func TestDecodeClaims_OpaqueToken(t *testing.T) {
	_, err := DecodeClaims("abc")
	assert.ErrorIs(t, err, ErrOpaqueToken)

	assert.False(t, Claims{}.Expired(time.Now()), "no expiry means never expired")
}

func TestGateClaims(t *testing.T) {
	g, tokens, _ := newGate(t, tokenstore.NewMemoryStore())
	ctx := context.Background()

	_, err := g.Claims(ctx)
	assert.ErrorIs(t, err, tokenstore.ErrNoCredential)

	require.NoError(t, tokens.Set(ctx, "opaque"))
	_, err = g.Claims(ctx)
	assert.ErrorIs(t, err, ErrOpaqueToken)
}
