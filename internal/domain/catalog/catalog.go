package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item available for purchase. Stock and
// WarrantyMonths are nil when the catalog does not track them for the
// product.
type Product struct {
	ID             string
	Name           string
	Price          decimal.Decimal
	ImageURL       string
	Stock          *int
	WarrantyMonths *int
}

// InStock reports whether the product can be added to a cart. Unknown stock
// counts as available.
func (p Product) InStock() bool {
	return p.Stock == nil || *p.Stock > 0
}

// Lookup provides read access to the product catalog.
type Lookup interface {
	GetProduct(ctx context.Context, id string) (*Product, error)
}

// Repository extends Lookup with listing for the storefront browse surface.
type Repository interface {
	Lookup
	List(ctx context.Context) ([]Product, error)
}
