package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sellphone/storefront/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders
		(id, owner_id, created_at, lines, shipping, payment_method,
		 total_amount, deposit_required, amount_due, order_status, payment_status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	getOrderSQL = `SELECT id, owner_id, created_at, lines, shipping, payment_method,
		total_amount, deposit_required, amount_due, order_status, payment_status
		FROM orders WHERE id = $1`

	listOrdersByOwnerSQL = `SELECT id, owner_id, created_at, lines, shipping, payment_method,
		total_amount, deposit_required, amount_due, order_status, payment_status
		FROM orders WHERE owner_id = $1 ORDER BY created_at DESC`

	updateOrderStatusSQL = `UPDATE orders SET order_status = $2 WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. The
// denormalized line snapshot and shipping info are serialized to JSONB.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	linesJSON, err := json.Marshal(o.Lines)
	if err != nil {
		return fmt.Errorf("marshaling order lines: %w", err)
	}
	shippingJSON, err := json.Marshal(o.Shipping)
	if err != nil {
		return fmt.Errorf("marshaling shipping info: %w", err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.OwnerID, o.CreatedAt, linesJSON, shippingJSON, o.PaymentMethodLabel,
		o.TotalAmount, o.DepositRequired, o.AmountDue, string(o.OrderStatus), o.PaymentStatus,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// ListByOwner returns the owner's orders, newest first.
func (r *OrderRepository) ListByOwner(ctx context.Context, ownerID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersByOwnerSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for %q: %w", ownerID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// UpdateStatus sets the order's fulfillment status.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status order.Status) error {
	tag, err := r.pool.Exec(ctx, updateOrderStatusSQL, id, string(status))
	if err != nil {
		return fmt.Errorf("updating order %q status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o            order.Order
		status       string
		linesJSON    []byte
		shippingJSON []byte
	)
	err := row.Scan(
		&o.ID, &o.OwnerID, &o.CreatedAt, &linesJSON, &shippingJSON, &o.PaymentMethodLabel,
		&o.TotalAmount, &o.DepositRequired, &o.AmountDue, &status, &o.PaymentStatus,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(linesJSON, &o.Lines); err != nil {
		return o, fmt.Errorf("unmarshaling order lines: %w", err)
	}
	if err := json.Unmarshal(shippingJSON, &o.Shipping); err != nil {
		return o, fmt.Errorf("unmarshaling shipping info: %w", err)
	}
	o.OrderStatus = order.Status(status)
	return o, nil
}
