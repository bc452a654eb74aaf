// Package catalog loads the product list for the products view.
package catalog

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/tokenstore"
)

const (
	MsgLoadFailed = "Failed to load products. Please try again later."
	MsgEmpty      = "No products available"
)

type API interface {
	ListProducts(ctx context.Context, token domain.Credential) ([]domain.Product, error)
}

type Credentials interface {
	Get(ctx context.Context) (domain.Credential, error)
}

type Catalog struct {
	api    API
	tokens Credentials
	log    *zap.Logger
	sfg    singleflight.Group // collapses concurrent loads for the same credential
}

func New(api API, tokens Credentials, log *zap.Logger) *Catalog {
	return &Catalog{
		api:    api,
		tokens: tokens,
		log:    log,
	}
}

// List returns the products visible to the current session. The listing is
// public; the credential is sent only when one is stored.
func (c *Catalog) List(ctx context.Context) ([]domain.Product, error) {
	token, err := c.tokens.Get(ctx)
	if err != nil && !errors.Is(err, tokenstore.ErrNoCredential) {
		c.log.Warn("read credential failed, listing anonymously", zap.Error(err))
	}
	if err != nil {
		token = ""
	}

	// the shared call outlives any single caller; the client timeout bounds it
	ch := c.sfg.DoChan(token.String(), func() (interface{}, error) {
		return c.api.ListProducts(context.WithoutCancel(ctx), token)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.log.Warn("list products failed", zap.Error(res.Err))
			return nil, res.Err
		}
		products := res.Val.([]domain.Product)
		return append([]domain.Product(nil), products...), nil
	}
}
