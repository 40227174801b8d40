// Package order holds the persisted order model and its status rules.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Status is the fulfillment state of an order.
type Status string

const (
	StatusProcessing Status = "Processing"
	StatusShipping   Status = "Shipping"
	StatusCompleted  Status = "Completed"
	StatusCancelled  Status = "Cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusShipping, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether the status machine allows moving to the
// target status. Forward only: Processing -> Shipping -> Completed, with
// Cancelled reachable from Processing or Shipping.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusProcessing:
		return to == StatusShipping || to == StatusCompleted || to == StatusCancelled
	case StatusShipping:
		return to == StatusCompleted || to == StatusCancelled
	default:
		return false
	}
}

// LineItem is the denormalized snapshot of one purchased cart line. It is
// frozen at commit time and never re-reads the catalog.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	ImageRef  string          `json:"image_ref"`
}

// ShippingInfo is the delivery address captured at checkout.
type ShippingInfo struct {
	FullName    string `json:"full_name"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	City        string `json:"city"`
	District    string `json:"district"`
	Ward        string `json:"ward,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Order is a persisted customer order. Identity fields are immutable once
// created; only the status fields advance afterwards.
type Order struct {
	ID                 string
	OwnerID            string
	CreatedAt          time.Time
	Lines              []LineItem
	Shipping           ShippingInfo
	PaymentMethodLabel string
	TotalAmount        decimal.Decimal
	DepositRequired    decimal.Decimal
	AmountDue          decimal.Decimal
	OrderStatus        Status
	PaymentStatus      string
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	// ListByOwner returns the owner's orders, newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
}
