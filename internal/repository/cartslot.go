package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sellphone/storefront/internal/domain/cart"
)

const (
	getCartSlotSQL = `SELECT data FROM cart_slots WHERE key = $1`

	setCartSlotSQL = `INSERT INTO cart_slots (key, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`

	removeCartSlotSQL = `DELETE FROM cart_slots WHERE key = $1`
)

var _ cart.Slot = (*CartSlotRepository)(nil)

// CartSlotRepository implements the durable per-identity cart slot on
// PostgreSQL. Last writer wins: concurrent sessions for one identity are
// not coordinated.
type CartSlotRepository struct {
	pool *pgxpool.Pool
}

// NewCartSlotRepository returns a CartSlotRepository that uses the given pool.
func NewCartSlotRepository(pool *pgxpool.Pool) *CartSlotRepository {
	return &CartSlotRepository{pool: pool}
}

// Get returns the stored snapshot bytes, or (nil, nil) when the key has
// never been written.
func (r *CartSlotRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, getCartSlotSQL, key).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("getting cart slot %q: %w", key, err)
	}
	return data, nil
}

// Set upserts the snapshot bytes for the key.
func (r *CartSlotRepository) Set(ctx context.Context, key string, data []byte) error {
	if _, err := r.pool.Exec(ctx, setCartSlotSQL, key, data); err != nil {
		return fmt.Errorf("setting cart slot %q: %w", key, err)
	}
	return nil
}

// Remove deletes the slot. Removing an absent key is not an error.
func (r *CartSlotRepository) Remove(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, removeCartSlotSQL, key); err != nil {
		return fmt.Errorf("removing cart slot %q: %w", key, err)
	}
	return nil
}
