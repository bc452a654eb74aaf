package domain

import "strconv"

const (
	placeholderName  = "Unnamed Product"
	placeholderImage = "/placeholder.png"
)

// CartItem is one cart line as returned by the cart endpoint. Name, Image and
// Price are display data owned by the server.
type CartItem struct {
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Image     string  `json:"image"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

func (i CartItem) DisplayName() string {
	if i.Name == "" {
		return placeholderName
	}
	return i.Name
}

func (i CartItem) DisplayImage() string {
	if i.Image == "" {
		return placeholderImage
	}
	return i.Image
}

// LineTotal is price times quantity.
func (i CartItem) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}

// CartSnapshot is the server-authoritative cart held by the client. It is a
// value: every change produces a new snapshot.
//
// A snapshot may carry a pending-removal overlay: product IDs the server has
// confirmed removing but that the last fetch still listed. Overlaid lines are
// hidden from Visible and Count. The overlay never survives a fetch because
// NewCartSnapshot always starts without one.
type CartSnapshot struct {
	Items   []CartItem
	pending map[int64]struct{}
}

// NewCartSnapshot copies items into a snapshot with no overlay.
func NewCartSnapshot(items []CartItem) CartSnapshot {
	if len(items) == 0 {
		return CartSnapshot{}
	}
	cp := make([]CartItem, len(items))
	copy(cp, items)
	return CartSnapshot{Items: cp}
}

// WithPendingRemoval returns a copy of s with productID hidden until the next
// authoritative fetch replaces the snapshot.
func (s CartSnapshot) WithPendingRemoval(productID int64) CartSnapshot {
	pending := make(map[int64]struct{}, len(s.pending)+1)
	for id := range s.pending {
		pending[id] = struct{}{}
	}
	pending[productID] = struct{}{}
	return CartSnapshot{Items: s.Items, pending: pending}
}

func (s CartSnapshot) PendingRemoval(productID int64) bool {
	_, ok := s.pending[productID]
	return ok
}

// HasPending reports whether any overlay is active.
func (s CartSnapshot) HasPending() bool {
	return len(s.pending) > 0
}

// Visible returns the lines to display, in server order, without overlaid
// lines.
func (s CartSnapshot) Visible() []CartItem {
	out := make([]CartItem, 0, len(s.Items))
	for _, item := range s.Items {
		if s.PendingRemoval(item.ProductID) {
			continue
		}
		out = append(out, item)
	}
	return out
}

// Count is the sum of visible quantities. It is derived on every call and is
// never stored.
func (s CartSnapshot) Count() int {
	count := 0
	for _, item := range s.Visible() {
		count += item.Quantity
	}
	return count
}

func (s CartSnapshot) Total() float64 {
	var total float64
	for _, item := range s.Visible() {
		total += item.LineTotal()
	}
	return total
}

func (s CartSnapshot) IsEmpty() bool {
	return len(s.Visible()) == 0
}

// FormatAmount renders a money amount with two decimals.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
