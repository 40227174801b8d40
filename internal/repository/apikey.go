package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sellphone/storefront/internal/domain/identity"
)

// ErrKeyNotFound is returned when no identity matches an API key hash.
var ErrKeyNotFound = errors.New("api key not found")

const findIdentityByHashSQL = `SELECT owner_id, email FROM api_keys WHERE key_hash = $1`

// APIKeyRepository resolves HMAC-SHA256 API key hashes to identities. The
// authentication flow that mints keys lives outside this module; from here
// a request either maps to an identity or it does not.
type APIKeyRepository struct {
	pool *pgxpool.Pool
}

// NewAPIKeyRepository returns an APIKeyRepository that uses the given pool.
func NewAPIKeyRepository(pool *pgxpool.Pool) *APIKeyRepository {
	return &APIKeyRepository{pool: pool}
}

// FindByHash returns the identity owning the hashed key.
func (r *APIKeyRepository) FindByHash(ctx context.Context, hash string) (*identity.Identity, error) {
	var id identity.Identity
	err := r.pool.QueryRow(ctx, findIdentityByHashSQL, hash).Scan(&id.ID, &id.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("finding api key: %w", err)
	}
	return &id, nil
}
