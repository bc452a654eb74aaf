package web

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/app"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/tokenstore"
)

// ClientMock is an in-memory storefront API.
type ClientMock struct {
	mu       sync.Mutex
	items    []domain.CartItem
	products []domain.Product
	token    domain.Credential
	loginErr error
	orders   int
}

func (c *ClientMock) ListProducts(context.Context, domain.Credential) ([]domain.Product, error) {
	return c.products, nil
}

func (c *ClientMock) GetCart(context.Context, domain.Credential) ([]domain.CartItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.CartItem{}, c.items...), nil
}

func (c *ClientMock) AddToCart(_ context.Context, _ domain.Credential, productID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, domain.CartItem{ProductID: productID, Quantity: 1, Price: 3})
	return nil
}

func (c *ClientMock) RemoveFromCart(context.Context, domain.Credential, int64) error {
	return &api.ServerError{Op: "remove", Status: 500}
}

func (c *ClientMock) Checkout(context.Context, domain.Credential, domain.OrderSubmission) (api.CheckoutResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders++
	return api.CheckoutResult{}, nil
}

func (c *ClientMock) Login(context.Context, string, string) (api.AuthResult, error) {
	return api.AuthResult{Token: c.token}, c.loginErr
}

func (c *ClientMock) Signup(context.Context, string, string) (api.AuthResult, error) {
	return api.AuthResult{Token: c.token}, c.loginErr
}

func newServer(t *testing.T, client *ClientMock, token domain.Credential) http.Handler {
	t.Helper()
	tokens := tokenstore.NewMemoryStore()
	if token != "" {
		require.NoError(t, tokens.Set(context.Background(), token))
	}
	a := app.New(client, tokens, zap.NewNop())
	t.Cleanup(a.Close)
	require.NoError(t, a.Start(context.Background()))
	return NewRouter(NewHandler(a, 5*time.Second, zap.NewNop()), 5*time.Second, zap.NewNop())
}

func serve(h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(method, target, bytes.NewReader(body))
	h.ServeHTTP(recorder, request)
	return recorder
}

func decodeView(t *testing.T, recorder *httptest.ResponseRecorder) ViewResponse {
	t.Helper()
	var response ViewResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	return response
}

func decodeError(t *testing.T, recorder *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&response))
	return response
}

func TestHealth(t *testing.T) {
	h := newServer(t, &ClientMock{}, "")

	recorder := serve(h, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"))
}

func TestRequestID_Propagated(t *testing.T) {
	h := newServer(t, &ClientMock{}, "")
	request := httptest.NewRequest(http.MethodGet, "/health", nil)
	request.Header.Set("X-Request-ID", "test-request-123")
	recorder := httptest.NewRecorder()

	h.ServeHTTP(recorder, request)

	assert.Equal(t, "test-request-123", recorder.Header().Get("X-Request-ID"))
}

func TestRoot_RedirectsToLogin(t *testing.T) {
	h := newServer(t, &ClientMock{}, "abc")

	recorder := serve(h, http.MethodGet, "/", nil)

	assert.Equal(t, http.StatusMovedPermanently, recorder.Code)
	assert.Equal(t, "/login", recorder.Header().Get("Location"))
}

func TestProtectedViews_Unauthorized(t *testing.T) {
	h := newServer(t, &ClientMock{}, "")

	for _, path := range []string{"/products", "/cart", "/checkout"} {
		t.Run(path, func(t *testing.T) {
			recorder := serve(h, http.MethodGet, path, nil)

			assert.Equal(t, http.StatusSeeOther, recorder.Code)
			assert.Equal(t, "/login", recorder.Header().Get("Location"))
		})
	}
}

func TestShowCart_Success(t *testing.T) {
	client := &ClientMock{items: []domain.CartItem{{ProductID: 1, Quantity: 2, Price: 10}}}
	h := newServer(t, client, "abc")

	recorder := serve(h, http.MethodGet, "/cart", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	response := decodeView(t, recorder)
	assert.Equal(t, "/cart", response.View.Path)
	assert.Equal(t, 2, response.View.CartCount)
	require.Len(t, response.View.Cart.Lines, 1)
	assert.Equal(t, "Unnamed Product", response.View.Cart.Lines[0].Name)
	assert.Equal(t, "20.00", response.View.Cart.Total)
}

func TestLogin_InvalidJSON(t *testing.T) {
	h := newServer(t, &ClientMock{}, "")

	recorder := serve(h, http.MethodPost, "/login", []byte("invalid json"))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_request", decodeError(t, recorder).Code)
}

func TestLogin_Success(t *testing.T) {
	h := newServer(t, &ClientMock{token: "abc"}, "")
	body, _ := json.Marshal(CredentialsRequestDTO{Username: "asha", Password: "pw"})

	recorder := serve(h, http.MethodPost, "/login", body)

	require.Equal(t, http.StatusOK, recorder.Code)
	response := decodeView(t, recorder)
	assert.Equal(t, "/products", response.View.Path)
	assert.True(t, response.View.Authenticated)
	require.Len(t, response.Notifications, 1)
	assert.Equal(t, "Login successful!", response.Notifications[0].Message)

	assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/cart", nil).Code)
}

func TestLogin_Rejected(t *testing.T) {
	client := &ClientMock{loginErr: &api.ServerError{Op: "login", Status: 401, Message: "Incorrect password"}}
	h := newServer(t, client, "")
	body, _ := json.Marshal(CredentialsRequestDTO{Username: "asha", Password: "bad"})

	recorder := serve(h, http.MethodPost, "/login", body)

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	response := decodeError(t, recorder)
	assert.Equal(t, "login_failed", response.Code)
	assert.Equal(t, "Incorrect password", response.Error)
}

func TestLogin_MissingFields(t *testing.T) {
	h := newServer(t, &ClientMock{}, "")
	body, _ := json.Marshal(CredentialsRequestDTO{Username: "asha"})

	recorder := serve(h, http.MethodPost, "/login", body)

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "missing_fields", decodeError(t, recorder).Code)
}

func TestToggleMode(t *testing.T) {
	h := newServer(t, &ClientMock{}, "")

	recorder := serve(h, http.MethodPost, "/login/mode", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "signup", decodeView(t, recorder).View.Login.Mode)
}

func TestAddItem_InvalidProductID(t *testing.T) {
	h := newServer(t, &ClientMock{}, "abc")

	tests := []struct {
		name      string
		productID string
	}{
		{"non-numeric product_id", "abc"},
		{"zero product_id", "0"},
		{"negative product_id", "-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recorder := serve(h, http.MethodPost, "/cart/items/"+tt.productID, nil)

			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Equal(t, "invalid_product_id", decodeError(t, recorder).Code)
		})
	}
}

func TestAddItem_Success(t *testing.T) {
	h := newServer(t, &ClientMock{}, "abc")

	recorder := serve(h, http.MethodPost, "/cart/items/7", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, 1, decodeView(t, recorder).View.CartCount)
}

func TestAddItem_WithoutSession(t *testing.T) {
	h := newServer(t, &ClientMock{}, "")

	recorder := serve(h, http.MethodPost, "/cart/items/7", nil)

	assert.Equal(t, http.StatusSeeOther, recorder.Code)
	assert.Equal(t, "/login", recorder.Header().Get("Location"))
}

func TestRemoveItem_Failure(t *testing.T) {
	client := &ClientMock{items: []domain.CartItem{{ProductID: 1, Quantity: 1}}}
	h := newServer(t, client, "abc")
	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/cart", nil).Code)

	recorder := serve(h, http.MethodDelete, "/cart/items/1", nil)

	assert.Equal(t, http.StatusBadGateway, recorder.Code)
	assert.Equal(t, "cart_update_failed", decodeError(t, recorder).Code)

	notifications := serve(h, http.MethodGet, "/notifications", nil)
	assert.Contains(t, notifications.Body.String(), app.MsgRemoveFailed)
}

func TestCheckout_MissingFieldsThenOrder(t *testing.T) {
	client := &ClientMock{items: []domain.CartItem{{ProductID: 1, Quantity: 2, Price: 10}}}
	h := newServer(t, client, "abc")
	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/checkout", nil).Code)

	partial, _ := json.Marshal(map[string]string{"full_name": "Asha", "city": "Pune"})
	require.Equal(t, http.StatusOK, serve(h, http.MethodPut, "/checkout/shipping", partial).Code)

	recorder := serve(h, http.MethodPost, "/checkout/orders", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	response := decodeError(t, recorder)
	assert.Equal(t, "missing_fields", response.Code)
	assert.Equal(t, "street,state,postal_code,phone", response.Details)

	rest, _ := json.Marshal(map[string]string{"street": "1 Main", "state": "MH", "postal_code": "411001", "phone": "555"})
	require.Equal(t, http.StatusOK, serve(h, http.MethodPut, "/checkout/shipping", rest).Code)

	recorder = serve(h, http.MethodPost, "/checkout/orders", nil)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "/login", decodeView(t, recorder).View.Path)
	assert.Equal(t, 1, client.orders)
}

func TestCheckout_UnknownField(t *testing.T) {
	client := &ClientMock{items: []domain.CartItem{{ProductID: 1, Quantity: 1}}}
	h := newServer(t, client, "abc")
	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/checkout", nil).Code)

	recorder := serve(h, http.MethodPut, "/checkout/shipping", []byte(`{"zip":"1"}`))

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "invalid_field", decodeError(t, recorder).Code)
}

func TestCheckout_UnknownFieldRejectsWholeUpdate(t *testing.T) {
	client := &ClientMock{items: []domain.CartItem{{ProductID: 1, Quantity: 1}}}
	h := newServer(t, client, "abc")
	require.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/checkout", nil).Code)

	recorder := serve(h, http.MethodPut, "/checkout/shipping", []byte(`{"full_name":"Asha","city":"Pune","zip":"1"}`))
	require.Equal(t, http.StatusBadRequest, recorder.Code)

	recorder = serve(h, http.MethodPost, "/checkout/orders", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, recorder.Code)
	assert.Equal(t, "full_name,street,city,state,postal_code,phone", decodeError(t, recorder).Details)
}

func TestRespondJSON_EncodeFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	h := NewHandler(nil, time.Second, zap.New(core))

	h.respondJSON(httptest.NewRecorder(), http.StatusOK, map[string]any{"bad": make(chan int)})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "failed to encode response", logs.All()[0].Message)
}

func TestOrder_WrongView(t *testing.T) {
	h := newServer(t, &ClientMock{}, "abc")

	recorder := serve(h, http.MethodPost, "/checkout/orders", nil)

	assert.Equal(t, http.StatusConflict, recorder.Code)
}

func TestLogout(t *testing.T) {
	h := newServer(t, &ClientMock{}, "abc")

	recorder := serve(h, http.MethodPost, "/logout", nil)

	require.Equal(t, http.StatusOK, recorder.Code)
	response := decodeView(t, recorder)
	assert.False(t, response.View.Authenticated)
	assert.True(t, strings.HasPrefix(response.View.Path, "/login"))
	assert.Equal(t, http.StatusSeeOther, serve(h, http.MethodGet, "/products", nil).Code)
}
