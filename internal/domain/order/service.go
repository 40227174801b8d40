package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
)

// ErrNotOwner is returned when someone other than the order's owner tries
// to read it or advance its status.
var ErrNotOwner = errors.New("order belongs to another identity")

// InvalidTransitionError indicates a status change the state machine does
// not allow.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}

// Service exposes the owner-facing order operations. Back-office transitions
// (Shipping, Cancelled) are out of its scope.
type Service struct {
	orders Repository
}

// NewService creates an order Service.
func NewService(orders Repository) *Service {
	return &Service{orders: orders}
}

// Get returns the order if it belongs to ownerID.
func (s *Service) Get(ctx context.Context, orderID, ownerID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	return o, nil
}

// History returns the owner's orders, newest first.
func (s *Service) History(ctx context.Context, ownerID string) ([]Order, error) {
	return s.orders.ListByOwner(ctx, ownerID)
}

// MarkCompleted advances the order to Completed. Only the owner may do this,
// and only from Processing or Shipping.
func (s *Service) MarkCompleted(ctx context.Context, orderID, ownerID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.OwnerID != ownerID {
		return nil, ErrNotOwner
	}
	if !o.OrderStatus.CanTransition(StatusCompleted) {
		return nil, &InvalidTransitionError{From: o.OrderStatus, To: StatusCompleted}
	}
	if err := s.orders.UpdateStatus(ctx, orderID, StatusCompleted); err != nil {
		return nil, errors.Wrap(err, "update order status")
	}
	o.OrderStatus = StatusCompleted
	return o, nil
}
