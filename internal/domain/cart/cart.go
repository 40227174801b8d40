// Package cart implements the per-identity shopping cart: an in-memory line
// store with durable write-through persistence and change notification.
package cart

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for cart mutations.
var (
	// ErrUnauthenticated is returned when a mutation is attempted with no
	// signed-in identity. Callers treat it as a recoverable no-op.
	ErrUnauthenticated = errors.New("no signed-in identity")

	// ErrInvalidInput is returned for a non-positive quantity or a missing
	// product id. Nothing is mutated.
	ErrInvalidInput = errors.New("invalid cart input")

	// ErrOutOfStock is returned when an add targets a product whose known
	// stock is zero or negative.
	ErrOutOfStock = errors.New("product out of stock")
)

// Line is a single cart entry. Name and UnitPrice are copied from the
// catalog at add time and may go stale relative to it. StockSnapshot is the
// last-known available stock, refreshed on every add; nil means unknown.
type Line struct {
	ProductID      string
	Name           string
	UnitPrice      decimal.Decimal
	ImageRef       string
	Quantity       int
	StockSnapshot  *int
	Selected       bool
	WarrantyMonths *int
}

// Subtotal returns UnitPrice multiplied by Quantity.
func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// MutationResult reports the informational outcome of an add or quantity
// update. Clamped is set when the requested quantity exceeded known stock
// and was reduced; Quantity is the quantity the line ended up with (zero
// when the line was removed or the add was discarded).
type MutationResult struct {
	Clamped  bool
	Quantity int
}

// clampToStock reduces quantity to the known stock level. The second return
// value reports whether a reduction happened.
func clampToStock(quantity int, stock *int) (int, bool) {
	if stock == nil || quantity <= *stock {
		return quantity, false
	}
	return *stock, true
}
