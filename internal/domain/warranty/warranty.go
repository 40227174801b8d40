// Package warranty holds the per-line warranty records issued at checkout.
package warranty

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested warranty does not exist.
var ErrNotFound = errors.New("warranty not found")

// DefaultPeriodMonths is applied when neither the cart line nor the catalog
// knows a product's warranty period.
const DefaultPeriodMonths = 12

// Status is the claim state of a warranty. Expiry is not a status: it is
// derived from the purchase date whenever the warranty is displayed.
type Status string

const (
	StatusActive       Status = "Active"
	StatusPendingClaim Status = "PendingClaim"
	StatusProcessed    Status = "Processed"
	StatusRejected     Status = "Rejected"
)

// Warranty is one product's warranty for one order line.
type Warranty struct {
	ID           string
	OwnerID      string
	OrderID      string
	ProductID    string
	ProductName  string
	PurchaseDate time.Time
	PeriodMonths int
	Status       Status
}

// ExpiresAt derives the warranty end date. It is never stored.
func (w Warranty) ExpiresAt() time.Time {
	return w.PurchaseDate.AddDate(0, w.PeriodMonths, 0)
}

// Expired reports whether the warranty has lapsed at the given instant.
func (w Warranty) Expired(now time.Time) bool {
	return w.ExpiresAt().Before(now)
}

// Repository defines persistence operations for warranties.
type Repository interface {
	Create(ctx context.Context, w *Warranty) error
	// ListByOwner returns the owner's warranties, newest purchase first.
	ListByOwner(ctx context.Context, ownerID string) ([]Warranty, error)
}
