// Package app is the root context: it owns the session and cart state, the
// navigation history, and the flow of whichever view is active.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"github.com/fjod/go_cart/storefront/internal/router"
	"github.com/fjod/go_cart/storefront/internal/session"
	"github.com/fjod/go_cart/storefront/internal/state"
	"github.com/fjod/go_cart/storefront/internal/tokenstore"
)

const (
	MsgLoginRequired = "Please login to modify your cart."
	MsgRemoveFailed  = "Error removing item from cart."
	MsgAddFailed     = "Error adding item to cart."
)

// maxHops bounds redirect chains within one navigation.
const maxHops = 8

var (
	ErrNotFound     = errors.New("no such view")
	ErrRedirectLoop = errors.New("too many redirects")
	ErrWrongView    = errors.New("action not available on the current view")
)

// API is everything the views call on the storefront API.
type API interface {
	cart.API
	catalog.API
	checkout.API
	auth.API
}

type App struct {
	client  API
	tokens  *tokenstore.Watched
	store   *state.Store
	gate    *session.Gate
	cart    *cart.Synchronizer
	catalog *catalog.Catalog
	notes   *notify.Queue
	log     *zap.Logger

	root       context.Context
	cancelRoot context.CancelFunc

	mu         sync.Mutex
	history    []string
	viewCtx    context.Context
	cancelView context.CancelFunc
	redirects  []redirect
	login      *auth.Flow
	checkout   *checkout.Flow
	products   []domain.Product
	productErr bool
}

type redirect struct {
	path    string
	replace bool
}

// New wires the components around tokens. Call Start before the first
// navigation and Close when done.
func New(client API, tokens tokenstore.Store, log *zap.Logger) *App {
	root, cancel := context.WithCancel(context.Background())
	watched := tokenstore.Watch(tokens)
	store := state.NewStore(state.State{})

	a := &App{
		client:     client,
		tokens:     watched,
		store:      store,
		gate:       session.NewGate(watched, store, log.Named("session")),
		cart:       cart.NewSynchronizer(client, watched, store, log.Named("cart")),
		catalog:    catalog.New(client, watched, log.Named("catalog")),
		notes:      notify.NewQueue(),
		log:        log,
		root:       root,
		cancelRoot: cancel,
		viewCtx:    root,
		cancelView: func() {},
	}
	store.Subscribe(func(st state.State) {
		log.Debug("state changed",
			zap.Bool("authenticated", st.Authenticated),
			zap.Int("cart_count", st.Cart.Count()),
			zap.Uint64("cart_seq", st.CartSeq))
	})
	return a
}

// Start derives the session from the stored credential and, when logged in,
// loads the cart so the count is right from the first view.
func (a *App) Start(ctx context.Context) error {
	if err := a.gate.Init(ctx); err != nil {
		a.log.Error("session init failed", zap.Error(err))
		return err
	}
	if a.gate.Authenticated() {
		_ = a.cart.Fetch(ctx)
	}
	return nil
}

// Close cancels every in-flight view operation and stops following the token
// store.
func (a *App) Close() {
	a.mu.Lock()
	a.cancelView()
	a.mu.Unlock()
	a.cancelRoot()
	a.gate.Close()
}

func (a *App) Authenticated() bool {
	return a.gate.Authenticated()
}

func (a *App) State() state.State {
	return a.store.State()
}

// Credential is the stored token, or tokenstore.ErrNoCredential.
func (a *App) Credential(ctx context.Context) (domain.Credential, error) {
	return a.gate.Credential(ctx)
}

// Claims decodes the stored credential for a status display.
func (a *App) Claims(ctx context.Context) (session.Claims, error) {
	return a.gate.Claims(ctx)
}

// Notifications drains messages raised since the last call.
func (a *App) Notifications() []notify.Notification {
	return a.notes.Drain()
}

// History returns the navigation stack, oldest first.
func (a *App) History() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.history...)
}

// Current is the path of the active view, empty before the first navigation.
func (a *App) Current() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current()
}

func (a *App) current() string {
	if len(a.history) == 0 {
		return ""
	}
	return a.history[len(a.history)-1]
}

// Navigate resolves p through the route table and activates the resulting
// view. Route redirects replace the entry being navigated to; redirects
// raised by a view while loading follow with their own replace flag.
func (a *App) Navigate(ctx context.Context, p string) (View, error) {
	return a.navigate(ctx, p, false)
}

func (a *App) navigate(ctx context.Context, p string, replace bool) (View, error) {
	for range maxHops {
		d := router.Resolve(p, a.gate.Authenticated())
		if d.NotFound {
			return a.View(), fmt.Errorf("%w: %s", ErrNotFound, d.Path)
		}
		if d.Redirect {
			p = d.Path
			continue
		}

		viewCtx := a.activate(d.Path, replace)
		a.enter(ctx, viewCtx, d.Path)

		next, ok := a.nextRedirect()
		if !ok {
			return a.View(), nil
		}
		p, replace = next.path, next.replace
	}
	return a.View(), ErrRedirectLoop
}

// activate records the history entry and tears down the previous view.
func (a *App) activate(p string, replace bool) context.Context {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.cancelView()
	a.viewCtx, a.cancelView = context.WithCancel(a.root)

	if replace && len(a.history) > 0 {
		a.history[len(a.history)-1] = p
	} else {
		a.history = append(a.history, p)
	}
	a.log.Debug("view activated", zap.String("path", p), zap.Bool("replace", replace))
	return a.viewCtx
}

func (a *App) enter(ctx, viewCtx context.Context, p string) {
	ctx, cancel := bind(ctx, viewCtx)
	defer cancel()

	switch p {
	case router.PathLogin:
		flow := auth.NewFlow(a.client, a.tokens, a.gate, a.notes, navigator{a}, a.log.Named("auth"))
		a.mu.Lock()
		a.login = flow
		a.mu.Unlock()

	case router.PathProducts:
		products, err := a.catalog.List(ctx)
		if ctx.Err() != nil {
			return
		}
		a.mu.Lock()
		a.products, a.productErr = products, err != nil
		a.mu.Unlock()
		_ = a.cart.Fetch(ctx)

	case router.PathCart:
		if err := a.cart.Fetch(ctx); errors.Is(err, cart.ErrNotAuthenticated) {
			// a session accepted without a token still has nothing to send
			a.notes.Error(MsgLoginRequired)
			navigator{a}.Redirect(router.PathLogin, true)
		}

	case router.PathCheckout:
		flow := checkout.NewFlow(a.client, a.tokens, a.notes, navigator{a}, a.log.Named("checkout"))
		a.mu.Lock()
		a.checkout = flow
		a.mu.Unlock()
		_ = flow.Start(ctx)
	}
}

// bind returns a context done when either parent is.
func bind(ctx, viewCtx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(viewCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// opContext binds ctx to the active view, so leaving the view cancels it.
// Navigation that follows an action must use the caller's ctx, not this one.
func (a *App) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	a.mu.Lock()
	viewCtx := a.viewCtx
	a.mu.Unlock()
	return bind(ctx, viewCtx)
}

type navigator struct {
	a *App
}

func (n navigator) Redirect(path string, replace bool) {
	n.a.mu.Lock()
	defer n.a.mu.Unlock()
	n.a.redirects = append(n.a.redirects, redirect{path: path, replace: replace})
}

func (a *App) nextRedirect() (redirect, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.redirects) == 0 {
		return redirect{}, false
	}
	r := a.redirects[len(a.redirects)-1]
	a.redirects = nil
	return r, true
}

// follow performs a redirect raised by an action, if any.
func (a *App) follow(ctx context.Context) error {
	next, ok := a.nextRedirect()
	if !ok {
		return nil
	}
	_, err := a.navigate(ctx, next.path, next.replace)
	return err
}

// Login submits the login view's form in its current mode.
func (a *App) Login(ctx context.Context, username, password string) error {
	a.mu.Lock()
	flow := a.login
	a.mu.Unlock()
	if flow == nil || a.Current() != router.PathLogin {
		return ErrWrongView
	}

	opCtx, cancel := a.opContext(ctx)
	defer cancel()
	if err := flow.Submit(opCtx, username, password); err != nil {
		return err
	}
	return a.follow(ctx)
}

// ToggleAuthMode switches the login view between login and signup.
func (a *App) ToggleAuthMode() (auth.Mode, error) {
	a.mu.Lock()
	flow := a.login
	a.mu.Unlock()
	if flow == nil || a.Current() != router.PathLogin {
		return auth.ModeLogin, ErrWrongView
	}
	return flow.ToggleMode(), nil
}

// AddToCart adds one unit. Without a credential the user is sent to login.
func (a *App) AddToCart(ctx context.Context, productID int64) error {
	opCtx, cancel := a.opContext(ctx)
	defer cancel()

	err := a.cart.Add(opCtx, productID)
	switch {
	case errors.Is(err, cart.ErrNotAuthenticated):
		return a.requireLogin(ctx, err)
	case errors.Is(err, cart.ErrMutationFailed):
		a.notes.Error(MsgAddFailed)
	}
	return err
}

// RemoveFromCart removes the product's line.
func (a *App) RemoveFromCart(ctx context.Context, productID int64) error {
	opCtx, cancel := a.opContext(ctx)
	defer cancel()

	err := a.cart.Remove(opCtx, productID)
	switch {
	case errors.Is(err, cart.ErrNotAuthenticated):
		return a.requireLogin(ctx, err)
	case errors.Is(err, cart.ErrMutationFailed):
		a.notes.Error(MsgRemoveFailed)
	}
	return err
}

func (a *App) requireLogin(ctx context.Context, cause error) error {
	a.notes.Error(MsgLoginRequired)
	if _, err := a.Navigate(ctx, router.PathLogin); err != nil {
		return errors.Join(cause, err)
	}
	return cause
}

// SetShippingField fills one checkout form field.
func (a *App) SetShippingField(name, value string) error {
	flow, err := a.checkoutFlow()
	if err != nil {
		return err
	}
	return flow.SetField(name, value)
}

// PlaceOrder submits the checkout form.
func (a *App) PlaceOrder(ctx context.Context) error {
	flow, err := a.checkoutFlow()
	if err != nil {
		return err
	}

	opCtx, cancel := a.opContext(ctx)
	defer cancel()
	if err := flow.Submit(opCtx); err != nil {
		return err
	}
	return a.follow(ctx)
}

func (a *App) checkoutFlow() (*checkout.Flow, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.checkout == nil || a.current() != router.PathCheckout {
		return nil, ErrWrongView
	}
	return a.checkout, nil
}

// Logout clears the credential; the session and cart follow, and the user
// lands on the login view.
func (a *App) Logout(ctx context.Context) error {
	if err := a.gate.Logout(ctx); err != nil {
		a.log.Error("logout failed", zap.Error(err))
		return err
	}
	_, err := a.Navigate(ctx, router.PathRoot)
	return err
}
