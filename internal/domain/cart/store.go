package cart

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sellphone/storefront/internal/domain/catalog"
	"github.com/sellphone/storefront/internal/domain/identity"
)

// Store is the single source of truth for one identity's cart. All mutation
// is synchronous against in-memory state; durable persistence is a
// best-effort side effect routed through a coalescing save queue, and
// subscribers are notified after every change.
type Store struct {
	slot  Slot
	lg    *zap.Logger
	saver *saveQueue

	mu      sync.Mutex
	owner   *identity.Identity
	lines   []Line
	ready   bool
	loadGen int
	subs    map[int]func()
	nextSub int
}

// NewStore creates a Store backed by the given durable slot. The store is
// empty and not ready until Load runs for an identity.
func NewStore(slot Slot, lg *zap.Logger) *Store {
	s := &Store{
		slot: slot,
		lg:   lg,
		subs: make(map[int]func()),
	}
	s.saver = newSaveQueue(s.persist, lg)
	return s
}

// Close stops the background save queue, draining any pending write.
func (s *Store) Close() {
	s.saver.Close()
}

// Load replaces in-memory state from durable storage for the given identity.
// A nil identity signs the store out and clears it. Missing or corrupt
// storage yields an empty cart: load failures are logged, never surfaced.
// Until Load completes, mutations apply in memory but are not re-persisted,
// so a slow load cannot race a stale overwrite back to storage.
func (s *Store) Load(ctx context.Context, who *identity.Identity) {
	s.mu.Lock()
	s.owner = who
	s.ready = false
	s.lines = nil
	s.loadGen++
	gen := s.loadGen
	s.mu.Unlock()

	if who == nil {
		s.mu.Lock()
		s.ready = true
		s.mu.Unlock()
		s.notifySubs()
		return
	}

	var lines []Line
	data, err := s.slot.Get(ctx, SlotKey(who.ID))
	switch {
	case err != nil:
		s.lg.Warn("cart load failed, starting empty",
			zap.String("owner_id", who.ID), zap.Error(err))
	case data != nil:
		lines, err = decodeLines(data)
		if err != nil {
			s.lg.Warn("cart snapshot corrupt, starting empty",
				zap.String("owner_id", who.ID), zap.Error(err))
			lines = nil
		}
	}

	s.mu.Lock()
	if s.loadGen != gen {
		// A newer Load superseded this one while we were reading.
		s.mu.Unlock()
		return
	}
	s.lines = lines
	s.ready = true
	s.mu.Unlock()
	s.notifySubs()
}

// Ready reports whether the initial load for the current identity has
// completed.
func (s *Store) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// AddLine adds quantity units of the product, merging into an existing line
// for the same product id. Quantities are clamped to known stock; a clamp is
// reported through the result, not as an error. A new line whose clamped
// quantity would be zero or less is discarded entirely.
func (s *Store) AddLine(product catalog.Product, quantity int) (MutationResult, error) {
	s.mu.Lock()
	if s.owner == nil {
		s.mu.Unlock()
		return MutationResult{}, ErrUnauthenticated
	}
	if product.ID == "" || quantity <= 0 {
		s.mu.Unlock()
		return MutationResult{}, ErrInvalidInput
	}
	if product.Stock != nil && *product.Stock <= 0 {
		s.mu.Unlock()
		return MutationResult{}, ErrOutOfStock
	}

	var res MutationResult
	if i := s.indexOf(product.ID); i >= 0 {
		q, clamped := clampToStock(s.lines[i].Quantity+quantity, product.Stock)
		s.lines[i].Quantity = q
		s.lines[i].StockSnapshot = cloneInt(product.Stock)
		res = MutationResult{Clamped: clamped, Quantity: q}
	} else {
		q, clamped := clampToStock(quantity, product.Stock)
		if q <= 0 {
			s.mu.Unlock()
			return MutationResult{Clamped: clamped}, nil
		}
		s.lines = append(s.lines, Line{
			ProductID:      product.ID,
			Name:           product.Name,
			UnitPrice:      product.Price,
			ImageRef:       product.ImageURL,
			Quantity:       q,
			StockSnapshot:  cloneInt(product.Stock),
			Selected:       true,
			WarrantyMonths: cloneInt(product.WarrantyMonths),
		})
		res = MutationResult{Clamped: clamped, Quantity: q}
	}
	s.mu.Unlock()
	s.changed()
	return res, nil
}

// RemoveLine deletes the line for the product id. Idempotent: an absent id
// is a no-op.
func (s *Store) RemoveLine(productID string) {
	s.mu.Lock()
	i := s.indexOf(productID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.lines = append(s.lines[:i], s.lines[i+1:]...)
	s.mu.Unlock()
	s.changed()
}

// SetQuantity updates a line's quantity in place. A quantity of zero or less
// removes the line; a quantity above known stock is clamped and reported.
// An absent product id is a no-op.
func (s *Store) SetQuantity(productID string, quantity int) MutationResult {
	s.mu.Lock()
	i := s.indexOf(productID)
	if i < 0 {
		s.mu.Unlock()
		return MutationResult{}
	}
	if quantity <= 0 {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
		s.mu.Unlock()
		s.changed()
		return MutationResult{}
	}
	q, clamped := clampToStock(quantity, s.lines[i].StockSnapshot)
	s.lines[i].Quantity = q
	s.mu.Unlock()
	s.changed()
	return MutationResult{Clamped: clamped, Quantity: q}
}

// ToggleSelected flips the selection flag of the line for the product id.
func (s *Store) ToggleSelected(productID string) {
	s.mu.Lock()
	i := s.indexOf(productID)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.lines[i].Selected = !s.lines[i].Selected
	s.mu.Unlock()
	s.changed()
}

// SelectAll marks every line selected.
func (s *Store) SelectAll() {
	s.setAllSelected(true)
}

// DeselectAll marks every line unselected.
func (s *Store) DeselectAll() {
	s.setAllSelected(false)
}

func (s *Store) setAllSelected(v bool) {
	s.mu.Lock()
	for i := range s.lines {
		s.lines[i].Selected = v
	}
	s.mu.Unlock()
	s.changed()
}

// Lines returns a snapshot copy of every line in cart order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, len(s.lines))
	for i, l := range s.lines {
		out[i] = cloneLine(l)
	}
	return out
}

// SelectedLines returns a snapshot copy of the currently selected lines.
// The returned slice does not mutate when the store changes later.
func (s *Store) SelectedLines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Line
	for _, l := range s.lines {
		if l.Selected {
			out = append(out, cloneLine(l))
		}
	}
	return out
}

// AllSelected reports whether every line is selected. An empty cart is
// never "all selected".
func (s *Store) AllSelected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.lines) == 0 {
		return false
	}
	for _, l := range s.lines {
		if !l.Selected {
			return false
		}
	}
	return true
}

// TotalQuantity sums line quantities, optionally over selected lines only.
func (s *Store) TotalQuantity(selectedOnly bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, l := range s.lines {
		if selectedOnly && !l.Selected {
			continue
		}
		total += l.Quantity
	}
	return total
}

// TotalPrice sums price times quantity, optionally over selected lines only.
func (s *Store) TotalPrice(selectedOnly bool) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := decimal.Zero
	for _, l := range s.lines {
		if selectedOnly && !l.Selected {
			continue
		}
		total = total.Add(l.Subtotal())
	}
	return total
}

// Clear empties the in-memory cart and erases the durable slot for the
// current identity. The erase goes through the save queue so it lands after
// any snapshot write already in flight and cancels a pending one; removing
// the slot directly could leave a just-queued save to re-create it.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	if s.owner == nil {
		s.mu.Unlock()
		return
	}
	key := SlotKey(s.owner.ID)
	s.lines = nil
	s.mu.Unlock()

	err := s.saver.Sync(ctx, func(ctx context.Context) error {
		return s.slot.Remove(ctx, key)
	})
	if err != nil {
		s.lg.Warn("cart slot erase failed", zap.String("key", key), zap.Error(err))
	}
	s.notifySubs()
}

// Subscribe registers a callback invoked after every state change. The
// returned function cancels the subscription. Callbacks must not call back
// into the store synchronously from themselves while holding their own locks
// in a way that could re-enter.
func (s *Store) Subscribe(fn func()) (cancel func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// indexOf returns the position of the line for productID, or -1.
// Caller holds s.mu.
func (s *Store) indexOf(productID string) int {
	for i, l := range s.lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

// changed runs the post-mutation side effects: a durable write when the
// initial load has completed, and subscriber notification.
func (s *Store) changed() {
	s.mu.Lock()
	persist := s.ready && s.owner != nil
	s.mu.Unlock()
	if persist {
		s.saver.Notify()
	}
	s.notifySubs()
}

func (s *Store) notifySubs() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// persist writes the current full state to the durable slot. Called only
// from the save queue, which guarantees a single write in flight.
func (s *Store) persist(ctx context.Context) error {
	s.mu.Lock()
	if !s.ready || s.owner == nil {
		s.mu.Unlock()
		return nil
	}
	key := SlotKey(s.owner.ID)
	data := encodeLines(s.lines)
	s.mu.Unlock()
	return s.slot.Set(ctx, key, data)
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneLine(l Line) Line {
	l.StockSnapshot = cloneInt(l.StockSnapshot)
	l.WarrantyMonths = cloneInt(l.WarrantyMonths)
	return l
}
