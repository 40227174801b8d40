package api

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/sellphone/storefront/internal/domain/identity"
	"github.com/sellphone/storefront/internal/repository"
)

// identityKey is the context key for the resolved identity.
type identityKey struct{}

// IdentityFromContext extracts the signed-in identity, or nil when the
// request is anonymous.
func IdentityFromContext(ctx context.Context) *identity.Identity {
	if id, ok := ctx.Value(identityKey{}).(*identity.Identity); ok {
		return id
	}
	return nil
}

// KeyResolver maps an API key hash to an identity. Satisfied by
// repository.APIKeyRepository.
type KeyResolver interface {
	FindByHash(ctx context.Context, hash string) (*identity.Identity, error)
}

// Security resolves the api_key request header to an identity. Keys are
// compared by HMAC-SHA256 with a server-side pepper, so the raw key never
// reaches storage.
type Security struct {
	keys   KeyResolver
	pepper []byte
}

// NewSecurity creates a Security with the given key resolver and pepper.
func NewSecurity(keys KeyResolver, pepper []byte) *Security {
	return &Security{keys: keys, pepper: pepper}
}

// HashKey computes the peppered HMAC-SHA256 digest of a raw API key.
func (s *Security) HashKey(raw string) string {
	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(raw))
	return hex.EncodeToString(mac.Sum(nil))
}

// Require wraps a handler so it only runs with a resolved identity in the
// request context. Requests without a valid key get 401.
func (s *Security) Require(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("api_key")
		if raw == "" {
			writeError(w, r, http.StatusUnauthorized, "api key required")
			return
		}

		id, err := s.keys.FindByHash(r.Context(), s.HashKey(raw))
		if err != nil {
			if errors.Is(err, repository.ErrKeyNotFound) {
				writeError(w, r, http.StatusUnauthorized, "invalid api key")
				return
			}
			zctx.From(r.Context()).Error("api key lookup", zap.Error(err))
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
