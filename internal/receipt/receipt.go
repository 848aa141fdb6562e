// Package receipt holds the purchase domain types and the money arithmetic
// behind a fiscal receipt: line items, the aggregated income declaration sent
// to the tax service, and the printable-receipt link.
package receipt

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// ItemID is an opaque line-item identifier. Clients send it as either a JSON
// string or a bare number; both decode to the same textual form.
type ItemID string

func (id *ItemID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = ItemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("receipt: item id must be a string or number: %w", err)
	}
	*id = ItemID(n.String())
	return nil
}

func (id ItemID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(id))), nil
}

// LineItem is one purchased position as received from the client.
// Immutable once decoded.
type LineItem struct {
	ID       ItemID          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity,omitempty"`
}

// EffectiveQuantity returns the quantity with the default of 1 applied.
// Clients routinely omit the field for single-unit purchases.
func (li LineItem) EffectiveQuantity() int64 {
	if li.Quantity <= 0 {
		return 1
	}
	return li.Quantity
}

// Subtotal is price × quantity, unrounded. Rounding happens once, on the
// grand total — never per line.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(li.EffectiveQuantity()))
}

// Total sums price×quantity over items and rounds the sum to 2 decimal
// places, half away from zero. The single rounding point is deliberate:
// items=[{10.005 ×2},{5 ×1}] totals 25.01, not 25.02.
func Total(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, li := range items {
		sum = sum.Add(li.Subtotal())
	}
	return sum.Round(2)
}

// Declaration is the payload registered with the tax service. All line items
// collapse into one declared income position under the service's display
// name; the itemized breakdown only ever appears in the customer email.
type Declaration struct {
	Name     string
	Amount   decimal.Decimal // rounded to 2 places
	Quantity int64           // always 1
}

// NewDeclaration builds the single-position declaration for a purchase.
func NewDeclaration(appName string, items []LineItem) Declaration {
	return Declaration{
		Name:     appName,
		Amount:   Total(items),
		Quantity: 1,
	}
}

// PrintLink returns the tax service's printable-receipt URL for a registered
// receipt.
func PrintLink(inn, receiptID string) string {
	return fmt.Sprintf("https://lknpd.nalog.ru/api/v1/receipt/%s/%s/print", inn, receiptID)
}
