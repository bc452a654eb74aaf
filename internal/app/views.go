package app

import (
	"github.com/fjod/go_cart/storefront/internal/auth"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/router"
)

const (
	MsgCartEmpty  = "Your cart is empty."
	MsgCartStale  = "Your last cart change did not go through."
	ProceedToBuy  = "Proceed to Buy"
	productsTitle = "Shopping Store"
)

// View is the render model of the active view. Exactly one of the per-view
// fields is set.
type View struct {
	Path          string `json:"path"`
	Authenticated bool   `json:"authenticated"`
	CartCount     int    `json:"cart_count"`

	Login    *LoginView    `json:"login,omitempty"`
	Products *ProductsView `json:"products,omitempty"`
	Cart     *CartView     `json:"cart,omitempty"`
	Checkout *CheckoutView `json:"checkout,omitempty"`
}

type LoginView struct {
	Mode         string `json:"mode"`
	Title        string `json:"title"`
	TogglePrompt string `json:"toggle_prompt"`
	ToggleLabel  string `json:"toggle_label"`
	Phase        string `json:"phase"`
	Error        string `json:"error,omitempty"`
}

type ProductsView struct {
	Title    string           `json:"title"`
	Products []domain.Product `json:"products"`
	// Message is the error or empty-state text, if any.
	Message string `json:"message,omitempty"`
	Failed  bool   `json:"failed"`
}

type CartLine struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Price     string `json:"price"`
	Quantity  int    `json:"quantity"`
	LineTotal string `json:"line_total"`
}

type CartView struct {
	Lines   []CartLine `json:"lines"`
	Count   int        `json:"count"`
	Total   string     `json:"total"`
	Message string     `json:"message,omitempty"`
	// Action is the label of the checkout button, empty when the cart is.
	Action string `json:"action,omitempty"`
	// Error is set while the last add or remove failed and no fetch has
	// succeeded since.
	Error string `json:"error,omitempty"`
}

type CheckoutView struct {
	Phase   string              `json:"phase"`
	Summary checkout.Summary    `json:"summary"`
	Form    domain.ShippingForm `json:"form"`
	Missing []string            `json:"missing"`
	Error   string              `json:"error,omitempty"`
}

// View renders the active view from current state.
func (a *App) View() View {
	st := a.store.State()

	a.mu.Lock()
	path := a.current()
	login := a.login
	flow := a.checkout
	products := a.products
	productErr := a.productErr
	a.mu.Unlock()

	v := View{
		Path:          path,
		Authenticated: st.Authenticated,
		CartCount:     st.Cart.Count(),
	}

	switch path {
	case router.PathLogin:
		if login != nil {
			v.Login = loginView(login)
		}
	case router.PathProducts:
		v.Products = productsView(products, productErr)
	case router.PathCart:
		v.Cart = cartView(st.Cart, st.LastMutationError)
	case router.PathCheckout:
		if flow != nil {
			v.Checkout = checkoutView(flow)
		}
	}
	return v
}

func loginView(f *auth.Flow) *LoginView {
	mode := f.Mode()
	return &LoginView{
		Mode:         mode.String(),
		Title:        mode.Title(),
		TogglePrompt: mode.TogglePrompt(),
		ToggleLabel:  mode.ToggleLabel(),
		Phase:        string(f.Phase()),
		Error:        f.Err(),
	}
}

func productsView(products []domain.Product, failed bool) *ProductsView {
	v := &ProductsView{Title: productsTitle, Products: make([]domain.Product, 0, len(products))}
	switch {
	case failed:
		v.Failed = true
		v.Message = catalog.MsgLoadFailed
	case len(products) == 0:
		v.Message = catalog.MsgEmpty
	}
	for _, p := range products {
		p.Image = p.DisplayImage()
		v.Products = append(v.Products, p)
	}
	return v
}

func cartView(snap domain.CartSnapshot, mutationErr error) *CartView {
	items := snap.Visible()
	v := &CartView{
		Lines: make([]CartLine, 0, len(items)),
		Count: snap.Count(),
		Total: domain.FormatAmount(snap.Total()),
	}
	for _, item := range items {
		v.Lines = append(v.Lines, CartLine{
			ProductID: item.ProductID,
			Name:      item.DisplayName(),
			Image:     item.DisplayImage(),
			Price:     domain.FormatAmount(item.Price),
			Quantity:  item.Quantity,
			LineTotal: domain.FormatAmount(item.LineTotal()),
		})
	}
	if len(items) == 0 {
		v.Message = MsgCartEmpty
	} else {
		v.Action = ProceedToBuy
	}
	if mutationErr != nil {
		v.Error = MsgCartStale
	}
	return v
}

func checkoutView(f *checkout.Flow) *CheckoutView {
	v := &CheckoutView{
		Phase:   f.Phase().String(),
		Summary: f.Summary(),
		Form:    f.Form(),
		Missing: f.Missing(),
	}
	if err := f.Err(); err != nil {
		v.Error = checkout.MsgOrderFailed
	}
	return v
}
