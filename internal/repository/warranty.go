package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sellphone/storefront/internal/domain/warranty"
)

const (
	createWarrantySQL = `INSERT INTO warranties
		(id, owner_id, order_id, product_id, product_name, purchase_date, period_months, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	listWarrantiesByOwnerSQL = `SELECT id, owner_id, order_id, product_id, product_name,
		purchase_date, period_months, status
		FROM warranties WHERE owner_id = $1 ORDER BY purchase_date DESC`
)

var _ warranty.Repository = (*WarrantyRepository)(nil)

// WarrantyRepository implements warranty.Repository backed by PostgreSQL.
type WarrantyRepository struct {
	pool *pgxpool.Pool
}

// NewWarrantyRepository returns a WarrantyRepository that uses the given pool.
func NewWarrantyRepository(pool *pgxpool.Pool) *WarrantyRepository {
	return &WarrantyRepository{pool: pool}
}

// Create persists a new warranty.
func (r *WarrantyRepository) Create(ctx context.Context, w *warranty.Warranty) error {
	_, err := r.pool.Exec(ctx, createWarrantySQL,
		w.ID, w.OwnerID, w.OrderID, w.ProductID, w.ProductName,
		w.PurchaseDate, w.PeriodMonths, string(w.Status),
	)
	if err != nil {
		return fmt.Errorf("creating warranty %q: %w", w.ID, err)
	}
	return nil
}

// ListByOwner returns the owner's warranties, newest purchase first.
func (r *WarrantyRepository) ListByOwner(ctx context.Context, ownerID string) ([]warranty.Warranty, error) {
	rows, err := r.pool.Query(ctx, listWarrantiesByOwnerSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing warranties for %q: %w", ownerID, err)
	}
	return pgx.CollectRows(rows, scanWarranty)
}

func scanWarranty(row pgx.CollectableRow) (warranty.Warranty, error) {
	var (
		w      warranty.Warranty
		status string
	)
	err := row.Scan(
		&w.ID, &w.OwnerID, &w.OrderID, &w.ProductID, &w.ProductName,
		&w.PurchaseDate, &w.PeriodMonths, &status,
	)
	w.Status = warranty.Status(status)
	return w, err
}
