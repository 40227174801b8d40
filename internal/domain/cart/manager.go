package cart

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sellphone/storefront/internal/domain/identity"
)

// Manager hands out one Store per signed-in identity, loading it from
// durable storage on first use. It is the server-side rendition of the
// storefront's single reactive cart: each identity still has exactly one
// logical owner session, the manager just keeps several of them resident.
type Manager struct {
	slot Slot
	lg   *zap.Logger

	mu     sync.Mutex
	stores map[string]*storeEntry
}

// storeEntry pairs a resident store with a gate closed once its first-use
// load has finished, so concurrent callers never see a half-loaded store.
type storeEntry struct {
	store  *Store
	loaded chan struct{}
}

// NewManager creates a Manager backed by the given durable slot.
func NewManager(slot Slot, lg *zap.Logger) *Manager {
	return &Manager{
		slot:   slot,
		lg:     lg,
		stores: make(map[string]*storeEntry),
	}
}

// For returns the Store owning the identity's cart, creating and loading it
// on first use. Callers arriving while that first load is still reading the
// slot block until it completes: handing the store out early would let the
// load result overwrite a mutation already confirmed to the caller.
func (m *Manager) For(ctx context.Context, who identity.Identity) *Store {
	m.mu.Lock()
	e, ok := m.stores[who.ID]
	if !ok {
		e = &storeEntry{
			store:  NewStore(m.slot, m.lg.With(zap.String("owner_id", who.ID))),
			loaded: make(chan struct{}),
		}
		m.stores[who.ID] = e
		m.mu.Unlock()
		e.store.Load(ctx, &who)
		close(e.loaded)
		return e.store
	}
	m.mu.Unlock()
	<-e.loaded
	return e.store
}

// SignOut drops the identity's resident store after signing it out, so a
// later sign-in starts from durable storage again. The store is closed
// before the sign-out load so any pending durable write drains while the
// identity is still attached.
func (m *Manager) SignOut(ctx context.Context, ownerID string) {
	m.mu.Lock()
	e, ok := m.stores[ownerID]
	delete(m.stores, ownerID)
	m.mu.Unlock()
	if !ok {
		return
	}
	<-e.loaded
	e.store.Close()
	e.store.Load(ctx, nil)
}

// Close stops every resident store's save queue.
func (m *Manager) Close() {
	m.mu.Lock()
	entries := make([]*storeEntry, 0, len(m.stores))
	for _, e := range m.stores {
		entries = append(entries, e)
	}
	m.stores = make(map[string]*storeEntry)
	m.mu.Unlock()
	for _, e := range entries {
		<-e.loaded
		e.store.Close()
	}
}
