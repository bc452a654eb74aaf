// Package web serves the storefront views over HTTP for a thin browser page.
// Every response carries the active view model and the notifications raised
// while producing it.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/app"
	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/fjod/go_cart/storefront/internal/router"
)

// App is the part of the root context the handlers drive.
type App interface {
	Navigate(ctx context.Context, path string) (app.View, error)
	View() app.View
	Current() string
	Authenticated() bool
	Notifications() []notify.Notification
	Login(ctx context.Context, username, password string) error
	ToggleAuthMode() (auth.Mode, error)
	AddToCart(ctx context.Context, productID int64) error
	RemoveFromCart(ctx context.Context, productID int64) error
	SetShippingField(name, value string) error
	PlaceOrder(ctx context.Context) error
	Logout(ctx context.Context) error
}

type Handler struct {
	app     App
	timeout time.Duration
	log     *zap.Logger
}

func NewHandler(a App, timeout time.Duration, log *zap.Logger) *Handler {
	return &Handler{
		app:     a,
		timeout: timeout,
		log:     log,
	}
}

type CredentialsRequestDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ViewResponse struct {
	View          app.View              `json:"view"`
	Notifications []notify.Notification `json:"notifications"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

// ShowView navigates to the request path and renders the resulting view.
func (h *Handler) ShowView(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	view, err := h.app.Navigate(ctx, r.URL.Path)
	if errors.Is(err, app.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "not_found", "no such view")
		return
	}
	if err != nil {
		h.log.Error("navigate failed", zap.String("path", r.URL.Path), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	h.respondView(w, http.StatusOK, view)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CredentialsRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if !h.ensureView(ctx, w, router.PathLogin) {
		return
	}

	err := h.app.Login(ctx, req.Username, req.Password)
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		h.respondError(w, http.StatusBadRequest, "missing_fields", verr.Error())
	case err != nil:
		msg := auth.MsgServerError
		if v := h.app.View(); v.Login != nil && v.Login.Error != "" {
			msg = v.Login.Error
		}
		h.respondError(w, http.StatusUnauthorized, "login_failed", msg)
	default:
		h.respondView(w, http.StatusOK, h.app.View())
	}
}

func (h *Handler) ToggleMode(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if !h.ensureView(ctx, w, router.PathLogin) {
		return
	}
	if _, err := h.app.ToggleAuthMode(); err != nil {
		h.respondError(w, http.StatusConflict, "wrong_view", err.Error())
		return
	}
	h.respondView(w, http.StatusOK, h.app.View())
}

func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, h.app.AddToCart)
}

func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.mutateCart(w, r, h.app.RemoveFromCart)
}

func (h *Handler) mutateCart(w http.ResponseWriter, r *http.Request, op func(context.Context, int64) error) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	productIDStr := chi.URLParam(r, "product_id")
	productID, err := strconv.ParseInt(productIDStr, 10, 64)
	if err != nil || productID <= 0 {
		h.respondError(w, http.StatusBadRequest, "invalid_product_id", "product_id must be a positive integer")
		return
	}

	err = op(ctx, productID)
	switch {
	case errors.Is(err, cart.ErrNotAuthenticated):
		http.Redirect(w, r, router.PathLogin, http.StatusSeeOther)
	case errors.Is(err, cart.ErrMutationFailed):
		h.respondError(w, http.StatusBadGateway, "cart_update_failed", err.Error())
	case err != nil:
		// the mutation went through; only the refetch did not
		h.log.Warn("cart refresh after update failed", zap.Int64("product_id", productID), zap.Error(err))
		h.respondView(w, http.StatusOK, h.app.View())
	default:
		h.respondView(w, http.StatusOK, h.app.View())
	}
}

// UpdateShipping sets the posted form fields, given as a JSON object keyed by
// field name. An unknown name rejects the whole update.
func (h *Handler) UpdateShipping(w http.ResponseWriter, r *http.Request) {
	var fields map[string]string
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	for name := range fields {
		if !slices.Contains(domain.ShippingFields, name) {
			h.respondError(w, http.StatusBadRequest, "invalid_field", "unknown field "+name)
			return
		}
	}

	for _, name := range domain.ShippingFields {
		value, ok := fields[name]
		if !ok {
			continue
		}
		if err := h.app.SetShippingField(name, value); err != nil {
			h.respondError(w, http.StatusConflict, "wrong_view", err.Error())
			return
		}
	}
	h.respondView(w, http.StatusOK, h.app.View())
}

func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	err := h.app.PlaceOrder(ctx)
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		h.respondJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "required fields missing",
			Code:    "missing_fields",
			Details: strings.Join(verr.Fields, ","),
		})
	case errors.Is(err, app.ErrWrongView), errors.Is(err, checkout.ErrNotReady):
		h.respondError(w, http.StatusConflict, "wrong_view", err.Error())
	case err != nil:
		h.respondError(w, http.StatusBadGateway, "order_failed", checkout.MsgOrderFailed)
	default:
		h.respondView(w, http.StatusOK, h.app.View())
	}
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.app.Logout(ctx); err != nil {
		h.respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	h.respondView(w, http.StatusOK, h.app.View())
}

func (h *Handler) Notifications(w http.ResponseWriter, _ *http.Request) {
	h.respondJSON(w, http.StatusOK, nonNil(h.app.Notifications()))
}

// ensureView navigates to p unless it is already active.
func (h *Handler) ensureView(ctx context.Context, w http.ResponseWriter, p string) bool {
	if h.app.Current() == p {
		return true
	}
	if _, err := h.app.Navigate(ctx, p); err != nil {
		h.respondError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return false
	}
	return true
}

func (h *Handler) respondView(w http.ResponseWriter, status int, v app.View) {
	h.respondJSON(w, status, ViewResponse{
		View:          v,
		Notifications: nonNil(h.app.Notifications()),
	})
}

func nonNil(ns []notify.Notification) []notify.Notification {
	if ns == nil {
		return []notify.Notification{}
	}
	return ns
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Warn("failed to encode response", zap.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, code, message string) {
	h.respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
