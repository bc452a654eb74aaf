// Package checkout drives one visit to the checkout view: load the cart once,
// collect the shipping form, submit a single order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/router"
	"github.com/fjod/go_cart/storefront/internal/tokenstore"
)

const (
	MsgEmptyCart   = "Your cart is empty."
	MsgLoadFailed  = "Unable to load cart. Please try again."
	MsgOrderPlaced = "Order placed successfully!"
	MsgOrderFailed = "Failed to place order. Please try again."
	MsgLoginFirst  = "Please login to place an order."
)

var (
	ErrEmptyCart = errors.New("cart is empty, nothing to checkout")
	ErrNotReady  = errors.New("checkout is not accepting input")
)

var tracer = otel.Tracer("github.com/fjod/go_cart/storefront/internal/checkout")

type API interface {
	GetCart(ctx context.Context, token domain.Credential) ([]domain.CartItem, error)
	Checkout(ctx context.Context, token domain.Credential, order domain.OrderSubmission) (api.CheckoutResult, error)
}

type Credentials interface {
	Get(ctx context.Context) (domain.Credential, error)
}

type Notifier interface {
	Info(msg string)
	Success(msg string)
	Error(msg string)
}

// Navigator moves the user to another view once the current call returns.
type Navigator interface {
	Redirect(path string, replace bool)
}

type Flow struct {
	api    API
	tokens Credentials
	notify Notifier
	nav    Navigator
	log    *zap.Logger

	mu    sync.Mutex
	phase Phase
	items []domain.CartItem
	form  domain.ShippingForm
	err   error
}

func NewFlow(api API, tokens Credentials, notifier Notifier, nav Navigator, log *zap.Logger) *Flow {
	return &Flow{
		api:    api,
		tokens: tokens,
		notify: notifier,
		nav:    nav,
		log:    log,
		phase:  PhaseLoading,
	}
}

// Start loads the cart the order will be placed for. An empty or unreadable
// cart sends the user back to the cart view; a missing credential sends them
// to login.
func (f *Flow) Start(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "checkout.Start")
	defer span.End()

	items, err := f.loadCart(ctx)
	if ctx.Err() != nil {
		f.setPhase(PhaseAborted)
		return ctx.Err()
	}
	if errors.Is(err, tokenstore.ErrNoCredential) {
		f.setPhase(PhaseAborted)
		f.notify.Error(MsgLoginFirst)
		f.nav.Redirect(router.PathLogin, true)
		return err
	}
	if err != nil {
		f.log.Warn("checkout cart load failed", zap.Error(err))
		span.SetStatus(codes.Error, err.Error())
		f.abort(MsgLoadFailed)
		return fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		f.abort(MsgEmptyCart)
		return ErrEmptyCart
	}

	f.mu.Lock()
	f.items = items
	f.phase = PhaseReady
	f.mu.Unlock()

	span.SetAttributes(attribute.Int("cart.lines", len(items)))
	return nil
}

func (f *Flow) loadCart(ctx context.Context) ([]domain.CartItem, error) {
	token, err := f.tokens.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("read credential: %w", err)
	}
	items, err := f.api.GetCart(ctx, token)
	if err != nil {
		return nil, err
	}
	return append([]domain.CartItem(nil), items...), nil
}

func (f *Flow) abort(msg string) {
	f.setPhase(PhaseAborted)
	f.notify.Error(msg)
	f.nav.Redirect(router.PathCart, true)
}

func (f *Flow) setPhase(p Phase) {
	f.mu.Lock()
	f.phase = p
	f.mu.Unlock()
}

func (f *Flow) Phase() Phase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// Err is the last submission failure, nil after a success.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Items returns a copy of the cart captured at Start.
func (f *Flow) Items() []domain.CartItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.CartItem(nil), f.items...)
}

func (f *Flow) Form() domain.ShippingForm {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form
}

func (f *Flow) SetField(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.phase.Editable() {
		return ErrNotReady
	}
	return f.form.Set(name, value)
}

// Missing lists required fields still empty, in display order.
func (f *Flow) Missing() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.form.Missing()
}

// Submit places the order. With any field empty it returns a
// *domain.ValidationError and no request is made. A failed submission keeps
// the form and may be retried.
func (f *Flow) Submit(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "checkout.Submit")
	defer span.End()

	f.mu.Lock()
	if !f.phase.Editable() {
		f.mu.Unlock()
		return ErrNotReady
	}
	if err := f.form.Validate(); err != nil {
		f.mu.Unlock()
		return err
	}
	f.phase = PhaseSubmitting
	order := domain.NewOrderSubmission(f.form, f.items)
	f.mu.Unlock()

	err := f.place(ctx, order)
	if ctx.Err() != nil {
		f.mu.Lock()
		f.phase = PhaseFailed
		f.err = ctx.Err()
		f.mu.Unlock()
		return ctx.Err()
	}
	if err != nil {
		f.log.Warn("place order failed", zap.Int("lines", len(order.Items)), zap.Error(err))
		span.SetStatus(codes.Error, err.Error())
		f.mu.Lock()
		f.phase = PhaseFailed
		f.err = err
		f.mu.Unlock()
		f.notify.Error(MsgOrderFailed)
		return fmt.Errorf("place order: %w", err)
	}

	f.mu.Lock()
	f.phase = PhaseSucceeded
	f.err = nil
	f.mu.Unlock()

	f.log.Info("order placed", zap.Int("lines", len(order.Items)))
	f.notify.Success(MsgOrderPlaced)
	f.nav.Redirect(router.PathRoot, false)
	return nil
}

func (f *Flow) place(ctx context.Context, order domain.OrderSubmission) error {
	token, err := f.tokens.Get(ctx)
	if err != nil {
		return fmt.Errorf("read credential: %w", err)
	}
	_, err = f.api.Checkout(ctx, token, order)
	return err
}

type Line struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

func (l Line) String() string {
	return fmt.Sprintf("%s × %d", l.Name, l.Quantity)
}

type Summary struct {
	Lines []Line `json:"lines"`
	Total string `json:"total"`
}

// Summary renders the captured cart with amounts to two decimals.
func (f *Flow) Summary() Summary {
	items := f.Items()
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		lines = append(lines, Line{
			Name:      item.DisplayName(),
			Quantity:  item.Quantity,
			LineTotal: domain.FormatAmount(item.LineTotal()),
		})
	}
	return Summary{
		Lines: lines,
		Total: domain.FormatAmount(domain.NewCartSnapshot(items).Total()),
	}
}
