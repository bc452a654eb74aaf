package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCartSnapshot_CountIsSumOfQuantities(t *testing.T) {
	cases := [][]CartItem{
		nil,
		{{ProductID: 1, Quantity: 2, Price: 10}, {ProductID: 2, Quantity: 1, Price: 5}},
		{{ProductID: 7, Quantity: 99}},
		{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 1}, {ProductID: 3, Quantity: 4}},
	}

	for _, items := range cases {
		s := NewCartSnapshot(items)
		want := 0
		for _, item := range s.Visible() {
			want += item.Quantity
		}
		assert.Equal(t, want, s.Count())
	}
}

func TestCartSnapshot_LineTotalFormatting(t *testing.T) {
	s := NewCartSnapshot([]CartItem{
		{ProductID: 1, Quantity: 2, Price: 10},
		{ProductID: 2, Quantity: 1, Price: 5},
	})

	assert.Equal(t, 3, s.Count())
	assert.Equal(t, "20.00", FormatAmount(s.Items[0].LineTotal()))
	assert.Equal(t, "25.00", FormatAmount(s.Total()))
}

func TestCartSnapshot_CopiesInput(t *testing.T) {
	items := []CartItem{{ProductID: 1, Quantity: 2}}
	s := NewCartSnapshot(items)

	items[0].Quantity = 50

	assert.Equal(t, 2, s.Items[0].Quantity)
}

func TestCartSnapshot_PendingRemovalOverlay(t *testing.T) {
	s := NewCartSnapshot([]CartItem{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	})

	overlaid := s.WithPendingRemoval(2)

	assert.True(t, overlaid.PendingRemoval(2))
	assert.False(t, s.PendingRemoval(2), "original snapshot must stay untouched")
	assert.Equal(t, 2, overlaid.Count())
	require.Len(t, overlaid.Visible(), 1)
	assert.Equal(t, int64(1), overlaid.Visible()[0].ProductID)
	assert.Len(t, overlaid.Items, 2, "overlay hides lines without dropping them")

	refetched := NewCartSnapshot(overlaid.Items)
	assert.False(t, refetched.HasPending())
	assert.Equal(t, 3, refetched.Count())
}

func TestCartSnapshot_IsEmptyWhenEverythingPending(t *testing.T) {
	s := NewCartSnapshot([]CartItem{{ProductID: 4, Quantity: 1}}).WithPendingRemoval(4)
	assert.True(t, s.IsEmpty())
	assert.Equal(t, 0, s.Count())
}

func TestCartItem_DisplayPlaceholders(t *testing.T) {
	item := CartItem{ProductID: 1}
	assert.Equal(t, "Unnamed Product", item.DisplayName())
	assert.Equal(t, "/placeholder.png", item.DisplayImage())

	item = CartItem{Name: "Mug", Image: "/images/mug.png"}
	assert.Equal(t, "Mug", item.DisplayName())
	assert.Equal(t, "/images/mug.png", item.DisplayImage())
}

func TestCartItem_DecodesServerShape(t *testing.T) {
	var items []CartItem
	body := `[{"product_id":1,"name":"Mug","image":"/images/mug.png","price":12.5,"quantity":3}]`
	require.NoError(t, json.Unmarshal([]byte(body), &items))
	require.Len(t, items, 1)
	assert.Equal(t, CartItem{ProductID: 1, Name: "Mug", Image: "/images/mug.png", Price: 12.5, Quantity: 3}, items[0])
}
