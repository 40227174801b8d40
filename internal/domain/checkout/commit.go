package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sellphone/storefront/internal/domain/cart"
	"github.com/sellphone/storefront/internal/domain/catalog"
	"github.com/sellphone/storefront/internal/domain/order"
	"github.com/sellphone/storefront/internal/domain/warranty"
)

// OrderWriteError wraps a failure to persist the order document. Nothing
// was pruned from the cart.
type OrderWriteError struct {
	Err error
}

func (e *OrderWriteError) Error() string { return fmt.Sprintf("write order: %v", e.Err) }
func (e *OrderWriteError) Unwrap() error { return e.Err }

// WarrantyWriteError wraps a failure to persist one or more warranty
// documents. The order document already exists and is not rolled back; the
// cart is not pruned.
type WarrantyWriteError struct {
	OrderID string
	Err     error
}

func (e *WarrantyWriteError) Error() string {
	return fmt.Sprintf("write warranties for order %s: %v", e.OrderID, e.Err)
}
func (e *WarrantyWriteError) Unwrap() error { return e.Err }

// Pruner removes committed lines from the cart after a successful commit.
// *cart.Store satisfies it.
type Pruner interface {
	RemoveLine(productID string)
}

// Workflow commits an assembled Draft: one order write, a concurrent fan-out
// of warranty writes, then cart pruning. The backing store offers no
// cross-document transaction, so the sequence is a set of independent writes
// with an accepted inconsistency window: an order whose warranties failed to
// write stays in place and the whole commit is reported as failed.
type Workflow struct {
	orders     order.Repository
	warranties warranty.Repository
	catalog    catalog.Lookup
	now        func() time.Time
	lg         *zap.Logger
}

// NewWorkflow creates a commit Workflow.
func NewWorkflow(orders order.Repository, warranties warranty.Repository, cat catalog.Lookup, lg *zap.Logger) *Workflow {
	return &Workflow{
		orders:     orders,
		warranties: warranties,
		catalog:    cat,
		now:        time.Now,
		lg:         lg,
	}
}

// Commit runs the checkout sequence for the draft on behalf of ownerID and
// returns the new order id. The product ids to prune are captured from the
// draft before any write: a user re-selecting lines mid-commit cannot widen
// or narrow what gets removed. There is no mid-flight cancellation; once the
// order write begins the sequence runs to completion or failure.
func (w *Workflow) Commit(ctx context.Context, draft *Draft, ownerID string, pruner Pruner) (string, error) {
	if draft == nil || len(draft.Lines) == 0 {
		return "", ErrEmptySelection
	}

	// Captured at commit start; the prune step uses exactly this set.
	committed := make([]string, len(draft.Lines))
	for i, l := range draft.Lines {
		committed[i] = l.ProductID
	}

	orderID := uuid.New().String()
	placedAt := w.now().UTC()

	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"write order", func(ctx context.Context) error {
			if err := w.orders.Create(ctx, w.buildOrder(draft, orderID, ownerID, placedAt)); err != nil {
				return &OrderWriteError{Err: err}
			}
			return nil
		}},
		{"issue warranties", func(ctx context.Context) error {
			if err := w.issueWarranties(ctx, draft, orderID, ownerID, placedAt); err != nil {
				return &WarrantyWriteError{OrderID: orderID, Err: err}
			}
			return nil
		}},
		{"prune cart", func(context.Context) error {
			for _, id := range committed {
				pruner.RemoveLine(id)
			}
			return nil
		}},
	}

	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			w.lg.Error("checkout commit failed",
				zap.String("step", step.name),
				zap.String("order_id", orderID),
				zap.String("owner_id", ownerID),
				zap.Error(err))
			return "", errors.Wrap(err, step.name)
		}
	}

	w.lg.Info("order committed",
		zap.String("order_id", orderID),
		zap.String("owner_id", ownerID),
		zap.Int("lines", len(committed)))
	return orderID, nil
}

func (w *Workflow) buildOrder(draft *Draft, orderID, ownerID string, placedAt time.Time) *order.Order {
	lines := make([]order.LineItem, len(draft.Lines))
	for i, l := range draft.Lines {
		lines[i] = order.LineItem{
			ProductID: l.ProductID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			ImageRef:  l.ImageRef,
		}
	}
	return &order.Order{
		ID:                 orderID,
		OwnerID:            ownerID,
		CreatedAt:          placedAt,
		Lines:              lines,
		Shipping:           draft.Shipping,
		PaymentMethodLabel: draft.Method.Label(),
		TotalAmount:        draft.Subtotal.Add(draft.ShippingFee),
		DepositRequired:    draft.DepositRequired,
		AmountDue:          draft.AmountDue,
		OrderStatus:        draft.OrderStatus,
		PaymentStatus:      draft.PaymentStatus,
	}
}

// issueWarranties writes one warranty per line concurrently and joins the
// results. All warranties share the order's placement timestamp as their
// purchase date.
func (w *Workflow) issueWarranties(ctx context.Context, draft *Draft, orderID, ownerID string, placedAt time.Time) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, l := range draft.Lines {
		g.Go(func() error {
			wt := &warranty.Warranty{
				ID:           uuid.New().String(),
				OwnerID:      ownerID,
				OrderID:      orderID,
				ProductID:    l.ProductID,
				ProductName:  l.Name,
				PurchaseDate: placedAt,
				PeriodMonths: w.warrantyMonths(ctx, l),
				Status:       warranty.StatusActive,
			}
			return w.warranties.Create(ctx, wt)
		})
	}
	return g.Wait()
}

// warrantyMonths resolves a line's warranty period: the value copied into
// the cart at add time, then the catalog, then the storefront default.
func (w *Workflow) warrantyMonths(ctx context.Context, l cart.Line) int {
	if l.WarrantyMonths != nil {
		return *l.WarrantyMonths
	}
	p, err := w.catalog.GetProduct(ctx, l.ProductID)
	if err == nil && p.WarrantyMonths != nil {
		return *p.WarrantyMonths
	}
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		w.lg.Warn("catalog lookup failed, using default warranty period",
			zap.String("product_id", l.ProductID), zap.Error(err))
	}
	return warranty.DefaultPeriodMonths
}
