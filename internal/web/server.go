package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/router"
)

const maxRequestBodySize = 1 << 20 // 1MB

// NewRouter mounts the view routes. Protected views answer 303 to the login
// view when the session is not authenticated.
func NewRouter(h *Handler, requestTimeout time.Duration, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(log))
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.RequestSize(maxRequestBodySize))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get(router.PathRoot, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, router.PathLogin, http.StatusMovedPermanently)
	})

	r.Get(router.PathLogin, h.ShowView)
	r.Post(router.PathLogin, h.Login)
	r.Post("/login/mode", h.ToggleMode)

	r.Group(func(r chi.Router) {
		r.Use(router.RequireAuth(h.app.Authenticated))
		r.Get(router.PathProducts, h.ShowView)
		r.Get(router.PathCart, h.ShowView)
		r.Get(router.PathCheckout, h.ShowView)
	})

	r.Post("/cart/items/{product_id}", h.AddItem)
	r.Delete("/cart/items/{product_id}", h.RemoveItem)
	r.Put("/checkout/shipping", h.UpdateShipping)
	r.Post("/checkout/orders", h.PlaceOrder)

	r.Post("/logout", h.Logout)
	r.Get("/notifications", h.Notifications)

	return otelhttp.NewHandler(r, "storefront-web")
}
