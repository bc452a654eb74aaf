// Package state holds the application-level session and cart state and the
// reducer that is the only way to change it.
package state

import (
	"github.com/fjod/go_cart/storefront/internal/domain"
)

// State is owned by the root context and handed to views by reference.
type State struct {
	Authenticated bool
	Cart          domain.CartSnapshot
	// CartSeq is the sequence number of the fetch that produced Cart.
	CartSeq uint64
	// LastMutationError is the last failed add/remove, cleared by the next
	// successful fetch.
	LastMutationError error
}

// Action is one of the variants below.
type Action interface {
	isAction()
}

// LoginSucceeded marks the session authenticated.
type LoginSucceeded struct{}

// LoggedOut ends the session and drops the cart so no stale data crosses a
// logout/login boundary.
type LoggedOut struct{}

// CartSynced replaces the cart wholesale with a server response. Seq orders
// fetches by issue time; an older response never overwrites a newer one.
type CartSynced struct {
	Seq   uint64
	Items []domain.CartItem
}

// CartMutationFailed records a failed add or remove. The cart is unchanged.
type CartMutationFailed struct {
	Op        string
	ProductID int64
	Err       error
}

// RemovalConfirmed hides a line the server removed until the reconciling
// fetch lands.
type RemovalConfirmed struct {
	ProductID int64
}

func (LoginSucceeded) isAction()     {}
func (LoggedOut) isAction()          {}
func (CartSynced) isAction()         {}
func (CartMutationFailed) isAction() {}
func (RemovalConfirmed) isAction()   {}

// Reduce is pure: it returns the next state and never mutates s.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case LoginSucceeded:
		s.Authenticated = true
	case LoggedOut:
		s = State{CartSeq: s.CartSeq}
	case CartSynced:
		if !s.Authenticated || a.Seq < s.CartSeq {
			return s
		}
		s.Cart = domain.NewCartSnapshot(a.Items)
		s.CartSeq = a.Seq
		s.LastMutationError = nil
	case CartMutationFailed:
		s.LastMutationError = a.Err
	case RemovalConfirmed:
		if !s.Authenticated {
			return s
		}
		s.Cart = s.Cart.WithPendingRemoval(a.ProductID)
	}
	return s
}
