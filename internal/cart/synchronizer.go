// Package cart keeps the client cart equal to the server's. Mutations are
// round-tripped and always followed by a refetch; nothing is assumed locally.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/state"
	"github.com/fjod/go_cart/storefront/internal/tokenstore"
)

var (
	// ErrNotAuthenticated means no credential is stored; no request was made.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrSessionChanged means the credential changed while a request was in
	// flight and its result was dropped.
	ErrSessionChanged = errors.New("session changed during request")
	// ErrMutationFailed wraps a rejected or undelivered add/remove.
	ErrMutationFailed = errors.New("cart mutation failed")
)

var tracer = otel.Tracer("github.com/fjod/go_cart/storefront/internal/cart")

// API is the part of the storefront API the synchronizer calls.
type API interface {
	GetCart(ctx context.Context, token domain.Credential) ([]domain.CartItem, error)
	AddToCart(ctx context.Context, token domain.Credential, productID int64) error
	RemoveFromCart(ctx context.Context, token domain.Credential, productID int64) error
}

// Credentials yields the current bearer token.
type Credentials interface {
	Get(ctx context.Context) (domain.Credential, error)
}

type Synchronizer struct {
	api    API
	tokens Credentials
	store  *state.Store
	log    *zap.Logger
	seq    atomic.Uint64
}

func NewSynchronizer(api API, tokens Credentials, store *state.Store, log *zap.Logger) *Synchronizer {
	return &Synchronizer{
		api:    api,
		tokens: tokens,
		store:  store,
		log:    log,
	}
}

// Snapshot is the cart as last reconciled, with any pending-removal overlay.
func (s *Synchronizer) Snapshot() domain.CartSnapshot {
	return s.store.State().Cart
}

// Fetch replaces the cart with the server's. On failure the last known cart
// stays in place; the error is returned for callers that care.
func (s *Synchronizer) Fetch(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "cart.Fetch")
	defer span.End()

	token, err := s.credential(ctx)
	if err != nil {
		return err
	}

	seq := s.seq.Add(1)
	items, err := s.api.GetCart(ctx, token)
	if err != nil {
		s.logFailure("fetch cart failed", err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("fetch cart: %w", err)
	}
	if err := s.live(ctx, token); err != nil {
		s.log.Debug("dropping cart response", zap.Uint64("seq", seq), zap.Error(err))
		return err
	}

	next := s.store.Dispatch(state.CartSynced{Seq: seq, Items: items})
	span.SetAttributes(attribute.Int("cart.count", next.Cart.Count()))
	return nil
}

// Add asks the server to add one unit of productID, then refetches.
func (s *Synchronizer) Add(ctx context.Context, productID int64) error {
	ctx, span := tracer.Start(ctx, "cart.Add")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", productID))

	token, err := s.credential(ctx)
	if err != nil {
		return err
	}

	if err := s.api.AddToCart(ctx, token, productID); err != nil {
		s.logFailure("add to cart failed", err, zap.Int64("product_id", productID))
		s.store.Dispatch(state.CartMutationFailed{Op: "add", ProductID: productID, Err: err})
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: add product %d: %w", ErrMutationFailed, productID, err)
	}
	if err := s.live(ctx, token); err != nil {
		return err
	}
	return s.Fetch(ctx)
}

// Remove asks the server to drop the line for productID. Once the server
// confirms, the line is hidden until the refetch replaces the cart.
func (s *Synchronizer) Remove(ctx context.Context, productID int64) error {
	ctx, span := tracer.Start(ctx, "cart.Remove")
	defer span.End()
	span.SetAttributes(attribute.Int64("product.id", productID))

	token, err := s.credential(ctx)
	if err != nil {
		return err
	}

	if err := s.api.RemoveFromCart(ctx, token, productID); err != nil {
		s.logFailure("remove from cart failed", err, zap.Int64("product_id", productID))
		s.store.Dispatch(state.CartMutationFailed{Op: "remove", ProductID: productID, Err: err})
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("%w: remove product %d: %w", ErrMutationFailed, productID, err)
	}
	if err := s.live(ctx, token); err != nil {
		return err
	}

	s.store.Dispatch(state.RemovalConfirmed{ProductID: productID})
	return s.Fetch(ctx)
}

func (s *Synchronizer) credential(ctx context.Context) (domain.Credential, error) {
	token, err := s.tokens.Get(ctx)
	if errors.Is(err, tokenstore.ErrNoCredential) {
		return "", ErrNotAuthenticated
	}
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	return token, nil
}

// live reports whether a settled response may still be applied: the caller is
// still waiting and the session is the one the request was made for.
func (s *Synchronizer) live(ctx context.Context, token domain.Credential) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	current, err := s.tokens.Get(ctx)
	if err != nil || current != token {
		return ErrSessionChanged
	}
	return nil
}

// logFailure logs unreachable servers at error and rejected requests at warn.
func (s *Synchronizer) logFailure(msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if api.IsNetwork(err) {
		s.log.Error(msg, fields...)
		return
	}
	s.log.Warn(msg, fields...)
}
