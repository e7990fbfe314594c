package cart

import (
	"context"

	"github.com/shopspring/decimal"
)

// LineItem is a transient cart entry; it is never persisted as such.
type LineItem struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Subtotal returns Quantity × UnitPrice.
func (i LineItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Provider supplies the items to be ordered for a session.
type Provider interface {
	Snapshot(ctx context.Context, sessionID string) ([]LineItem, error)
}

// SampleProvider returns the same demo cart for every session. There is no
// cart persistence behind it.
type SampleProvider struct {
	items []LineItem
}

func NewSampleProvider() *SampleProvider {
	return &SampleProvider{items: []LineItem{
		{ProductID: 1, Name: "Pro Wireless Earbuds", Quantity: 2, UnitPrice: decimal.RequireFromString("2499.00")},
		{ProductID: 3, Name: "Portable Bluetooth Speaker", Quantity: 1, UnitPrice: decimal.RequireFromString("3200.00")},
	}}
}

func (p *SampleProvider) Snapshot(_ context.Context, _ string) ([]LineItem, error) {
	out := make([]LineItem, len(p.items))
	copy(out, p.items)
	return out, nil
}

// Total sums the subtotals of items, rounded to currency precision.
func Total(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total.Round(2)
}
