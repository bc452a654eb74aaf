package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type AddItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type RemoveItemRequestDTO struct {
	ProductID int64 `json:"product_id"`
}

type CredentialsDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// authResponseDTO accepts both token field names the server may use.
type authResponseDTO struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	Message     string `json:"message"`
}

type checkoutResponseDTO struct {
	Message string `json:"message"`
}

// AuthResult is a successful login or signup. Token is empty when the server
// reported success without one.
type AuthResult struct {
	Token   domain.Credential
	Message string
}

type CheckoutResult struct {
	Message string
}

// ListProducts is GET /api/products. The token is optional. A body that is not
// a JSON array reads as no products.
func (c *Client) ListProducts(ctx context.Context, token domain.Credential) ([]domain.Product, error) {
	var raw json.RawMessage
	if err := c.do(ctx, "list products", http.MethodGet, "/api/products", token, nil, &raw); err != nil {
		return nil, err
	}

	var products []domain.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		c.log.Debug("products body is not a list, treating as empty")
		return []domain.Product{}, nil
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// GetCart is GET /api/cart.
func (c *Client) GetCart(ctx context.Context, token domain.Credential) ([]domain.CartItem, error) {
	var items []domain.CartItem
	if err := c.do(ctx, "fetch cart", http.MethodGet, "/api/cart", token, nil, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.CartItem{}
	}
	return items, nil
}

// AddToCart is POST /api/cart/add with a quantity of one. Merging into an
// existing line is the server's job.
func (c *Client) AddToCart(ctx context.Context, token domain.Credential, productID int64) error {
	req := AddItemRequestDTO{ProductID: productID, Quantity: 1}
	return c.do(ctx, "add to cart", http.MethodPost, "/api/cart/add", token, req, nil)
}

// RemoveFromCart removes the whole line for productID using the configured
// wire shape.
func (c *Client) RemoveFromCart(ctx context.Context, token domain.Credential, productID int64) error {
	method, path, body := c.removeRequest(productID)
	return c.do(ctx, "remove from cart", method, path, token, body, nil)
}

func (c *Client) removeRequest(productID int64) (string, string, any) {
	if c.removeStyle == RemoveStyleDelete {
		return http.MethodDelete, fmt.Sprintf("/api/cart/remove/%d", productID), nil
	}
	return http.MethodPost, "/api/cart/remove", RemoveItemRequestDTO{ProductID: productID}
}

// Checkout is POST /api/checkout.
func (c *Client) Checkout(ctx context.Context, token domain.Credential, order domain.OrderSubmission) (CheckoutResult, error) {
	var resp checkoutResponseDTO
	if err := c.do(ctx, "checkout", http.MethodPost, "/api/checkout", token, order, &resp); err != nil {
		return CheckoutResult{}, err
	}
	return CheckoutResult{Message: resp.Message}, nil
}

func (c *Client) Login(ctx context.Context, username, password string) (AuthResult, error) {
	return c.authenticate(ctx, "login", "/api/login", username, password)
}

func (c *Client) Signup(ctx context.Context, username, password string) (AuthResult, error) {
	return c.authenticate(ctx, "signup", "/api/signup", username, password)
}

func (c *Client) authenticate(ctx context.Context, op, path, username, password string) (AuthResult, error) {
	var resp authResponseDTO
	req := CredentialsDTO{Username: username, Password: password}
	if err := c.do(ctx, op, http.MethodPost, path, "", req, &resp); err != nil {
		return AuthResult{}, err
	}

	token := resp.Token
	if token == "" {
		token = resp.AccessToken
	}
	return AuthResult{Token: domain.Credential(token), Message: resp.Message}, nil
}
