package cart

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sellphone/storefront/internal/domain/catalog"
	"github.com/sellphone/storefront/internal/domain/identity"
)

// --- Mock implementations ---

// memorySlot is an in-memory Slot with optional fault injection.
type memorySlot struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	setErr error
	sets   int
}

func newMemorySlot() *memorySlot {
	return &memorySlot{data: make(map[string][]byte)}
}

func (m *memorySlot) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	b, ok := m.data[key]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (m *memorySlot) Set(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets++
	if m.setErr != nil {
		return m.setErr
	}
	b := make([]byte, len(data))
	copy(b, data)
	m.data[key] = b
	return nil
}

func (m *memorySlot) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memorySlot) stored(key string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key]
}

// slowReadSlot holds the first Get until released, pinning a load in flight.
type slowReadSlot struct {
	*memorySlot
	reading chan struct{}
	release chan struct{}
}

func newSlowReadSlot() *slowReadSlot {
	return &slowReadSlot{
		memorySlot: newMemorySlot(),
		reading:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
}

func (s *slowReadSlot) Get(ctx context.Context, key string) ([]byte, error) {
	select {
	case s.reading <- struct{}{}:
	default:
	}
	<-s.release
	return s.memorySlot.Get(ctx, key)
}

// slowWriteSlot holds the first Set until released, pinning a durable write
// in flight.
type slowWriteSlot struct {
	*memorySlot
	writing chan struct{}
	release chan struct{}
}

func newSlowWriteSlot() *slowWriteSlot {
	return &slowWriteSlot{
		memorySlot: newMemorySlot(),
		writing:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
}

func (s *slowWriteSlot) Set(ctx context.Context, key string, data []byte) error {
	select {
	case s.writing <- struct{}{}:
	default:
	}
	<-s.release
	return s.memorySlot.Set(ctx, key, data)
}

// --- Helpers ---

func intPtr(v int) *int { return &v }

func phone(id string, price int64, stock *int) catalog.Product {
	return catalog.Product{
		ID:       id,
		Name:     "Phone " + id,
		Price:    decimal.NewFromInt(price),
		ImageURL: "https://img.example/" + id + ".jpg",
		Stock:    stock,
	}
}

func newLoadedStore(t *testing.T, slot Slot) *Store {
	t.Helper()
	s := NewStore(slot, zap.NewNop())
	t.Cleanup(s.Close)
	s.Load(context.Background(), &identity.Identity{ID: "u1", Email: "u1@example.com"})
	require.True(t, s.Ready())
	return s
}

// --- Tests ---

func TestAddLine_Unauthenticated(t *testing.T) {
	s := NewStore(newMemorySlot(), zap.NewNop())
	defer s.Close()

	_, err := s.AddLine(phone("p1", 100, nil), 1)
	require.ErrorIs(t, err, ErrUnauthenticated)
	assert.Empty(t, s.Lines())
}

func TestAddLine_InvalidInput(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())

	_, err := s.AddLine(phone("", 100, nil), 1)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.AddLine(phone("p1", 100, nil), 0)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = s.AddLine(phone("p1", 100, nil), -3)
	require.ErrorIs(t, err, ErrInvalidInput)

	assert.Empty(t, s.Lines())
}

func TestAddLine_OutOfStock(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())

	_, err := s.AddLine(phone("p1", 100, intPtr(0)), 1)
	require.ErrorIs(t, err, ErrOutOfStock)
	assert.Empty(t, s.Lines())
}

func TestAddLine_NewLineSelectedByDefault(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())

	res, err := s.AddLine(phone("p1", 100, intPtr(5)), 2)
	require.NoError(t, err)
	assert.False(t, res.Clamped)
	assert.Equal(t, 2, res.Quantity)

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, lines[0].Selected)
}

func TestAddLine_MergesSameProduct(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())

	_, err := s.AddLine(phone("p1", 100, intPtr(10)), 2)
	require.NoError(t, err)
	_, err = s.AddLine(phone("p1", 100, intPtr(10)), 3)
	require.NoError(t, err)

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestAddLine_ClampsMergedQuantityToStock(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())

	_, err := s.AddLine(phone("p1", 100, intPtr(4)), 3)
	require.NoError(t, err)

	res, err := s.AddLine(phone("p1", 100, intPtr(4)), 3)
	require.NoError(t, err)
	assert.True(t, res.Clamped)
	assert.Equal(t, 4, res.Quantity)

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 4, lines[0].Quantity)
}

func TestAddLine_RefreshesStockSnapshot(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())

	_, err := s.AddLine(phone("p1", 100, intPtr(10)), 1)
	require.NoError(t, err)
	_, err = s.AddLine(phone("p1", 100, intPtr(3)), 1)
	require.NoError(t, err)

	lines := s.Lines()
	require.Len(t, lines, 1)
	require.NotNil(t, lines[0].StockSnapshot)
	assert.Equal(t, 3, *lines[0].StockSnapshot)
}

func TestAddLine_UnknownStockNeverClamps(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())

	res, err := s.AddLine(phone("p1", 100, nil), 999)
	require.NoError(t, err)
	assert.False(t, res.Clamped)
	assert.Equal(t, 999, res.Quantity)
}

func TestRemoveLine_Idempotent(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())

	_, err := s.AddLine(phone("p1", 100, nil), 1)
	require.NoError(t, err)

	s.RemoveLine("p1")
	assert.Empty(t, s.Lines())

	// Removing again is a no-op.
	s.RemoveLine("p1")
	assert.Empty(t, s.Lines())
}

func TestSetQuantity_ZeroRemovesLine(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())

	_, err := s.AddLine(phone("p1", 100, nil), 2)
	require.NoError(t, err)

	res := s.SetQuantity("p1", 0)
	assert.Equal(t, 0, res.Quantity)
	assert.Empty(t, s.Lines())
}

func TestSetQuantity_ClampsToStockSnapshot(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())

	_, err := s.AddLine(phone("p1", 100, intPtr(5)), 1)
	require.NoError(t, err)

	res := s.SetQuantity("p1", 50)
	assert.True(t, res.Clamped)
	assert.Equal(t, 5, res.Quantity)

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Quantity)
}

func TestSetQuantity_AbsentProductNoop(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())

	res := s.SetQuantity("missing", 3)
	assert.Equal(t, MutationResult{}, res)
}

func TestToggleSelected(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())

	_, err := s.AddLine(phone("p1", 100, nil), 1)
	require.NoError(t, err)

	s.ToggleSelected("p1")
	assert.False(t, s.Lines()[0].Selected)

	s.ToggleSelected("p1")
	assert.True(t, s.Lines()[0].Selected)
}

func TestSelectAll_DeselectAll(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())

	_, err := s.AddLine(phone("p1", 100, nil), 1)
	require.NoError(t, err)
	_, err = s.AddLine(phone("p2", 200, nil), 1)
	require.NoError(t, err)

	s.DeselectAll()
	assert.False(t, s.AllSelected())
	assert.Empty(t, s.SelectedLines())

	s.SelectAll()
	assert.True(t, s.AllSelected())
	assert.Len(t, s.SelectedLines(), 2)
}

func TestAllSelected_EmptyCartIsFalse(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())
	assert.False(t, s.AllSelected())
}

func TestTotals_SelectedOnly(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())

	_, err := s.AddLine(phone("p1", 100, nil), 2)
	require.NoError(t, err)
	_, err = s.AddLine(phone("p2", 250, nil), 1)
	require.NoError(t, err)
	s.ToggleSelected("p2")

	assert.Equal(t, 3, s.TotalQuantity(false))
	assert.Equal(t, 2, s.TotalQuantity(true))
	assert.True(t, s.TotalPrice(false).Equal(decimal.NewFromInt(450)))
	assert.True(t, s.TotalPrice(true).Equal(decimal.NewFromInt(200)))
}

func TestTotals_UnaffectedBySelectionToggleRoundTrip(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())

	_, err := s.AddLine(phone("p1", 100, nil), 2)
	require.NoError(t, err)
	before := s.TotalPrice(false)

	s.ToggleSelected("p1")
	s.ToggleSelected("p1")

	assert.True(t, s.TotalPrice(false).Equal(before))
	assert.Equal(t, 2, s.TotalQuantity(false))
}

func TestSelectedLines_SnapshotDoesNotTrackStore(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())

	_, err := s.AddLine(phone("p1", 100, nil), 1)
	require.NoError(t, err)

	snap := s.SelectedLines()
	require.Len(t, snap, 1)

	s.SetQuantity("p1", 7)
	assert.Equal(t, 1, snap[0].Quantity)
}

func TestLoad_MissingSlotYieldsEmptyCart(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())
	assert.Empty(t, s.Lines())
}

func TestLoad_FailedReadYieldsEmptyCart(t *testing.T) {
	slot := newMemorySlot()
	slot.getErr = errors.New("storage down")

	s := newLoadedStore(t, slot)
	assert.True(t, s.Ready())
	assert.Empty(t, s.Lines())
}

func TestLoad_CorruptSnapshotYieldsEmptyCart(t *testing.T) {
	slot := newMemorySlot()
	slot.data[SlotKey("u1")] = []byte("{not json")

	s := newLoadedStore(t, slot)
	assert.True(t, s.Ready())
	assert.Empty(t, s.Lines())
}

func TestLoad_RestoresPersistedLines(t *testing.T) {
	slot := newMemorySlot()
	slot.data[SlotKey("u1")] = encodeLines([]Line{
		{
			ProductID: "p1",
			Name:      "Phone p1",
			UnitPrice: decimal.NewFromInt(100),
			Quantity:  2,
			Selected:  true,
		},
	})

	s := newLoadedStore(t, slot)
	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestLoad_NilIdentitySignsOut(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())

	_, err := s.AddLine(phone("p1", 100, nil), 1)
	require.NoError(t, err)

	s.Load(context.Background(), nil)
	assert.True(t, s.Ready())
	assert.Empty(t, s.Lines())

	_, err = s.AddLine(phone("p1", 100, nil), 1)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestLoad_IdentitySwitchStartsFromOwnSlot(t *testing.T) {
	slot := newMemorySlot()
	s := newLoadedStore(t, slot)

	_, err := s.AddLine(phone("p1", 100, nil), 1)
	require.NoError(t, err)

	s.Load(context.Background(), &identity.Identity{ID: "u2"})
	assert.Empty(t, s.Lines())
}

func TestClear_EmptiesCartAndErasesSlot(t *testing.T) {
	slot := newMemorySlot()
	s := newLoadedStore(t, slot)

	_, err := s.AddLine(phone("p1", 100, nil), 1)
	require.NoError(t, err)
	slot.data[SlotKey("u1")] = []byte("[]")

	s.Clear(context.Background())
	assert.Empty(t, s.Lines())
	assert.Nil(t, slot.stored(SlotKey("u1")))
}

func TestClear_OutlivesInFlightSave(t *testing.T) {
	slot := newSlowWriteSlot()
	s := newLoadedStore(t, slot)

	_, err := s.AddLine(phone("p1", 100, nil), 1)
	require.NoError(t, err)
	<-slot.writing // snapshot write now in flight

	cleared := make(chan struct{})
	go func() {
		s.Clear(context.Background())
		close(cleared)
	}()

	// Clear must not finish while the snapshot write can still land after
	// the erase and re-create the slot.
	select {
	case <-cleared:
		t.Fatal("Clear returned while a snapshot write was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(slot.release)
	<-cleared
	assert.Empty(t, s.Lines())
	assert.Nil(t, slot.stored(SlotKey("u1")))
}

func TestSubscribe_NotifiedOnMutation(t *testing.T) {
	s := newLoadedStore(t, newMemorySlot())

	var mu sync.Mutex
	calls := 0
	cancel := s.Subscribe(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	_, err := s.AddLine(phone("p1", 100, nil), 1)
	require.NoError(t, err)

	mu.Lock()
	after := calls
	mu.Unlock()
	assert.Equal(t, 1, after)

	cancel()
	s.RemoveLine("p1")

	mu.Lock()
	assert.Equal(t, after, calls)
	mu.Unlock()
}

func TestStore_PersistsAfterMutation(t *testing.T) {
	slot := newMemorySlot()
	s := newLoadedStore(t, slot)

	_, err := s.AddLine(phone("p1", 100, intPtr(5)), 2)
	require.NoError(t, err)
	s.Close() // drains the pending write

	data := slot.stored(SlotKey("u1"))
	require.NotNil(t, data)

	lines, err := decodeLines(data)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestStore_LastMutationWinsDurably(t *testing.T) {
	slot := newMemorySlot()
	s := newLoadedStore(t, slot)

	_, err := s.AddLine(phone("p1", 100, nil), 1)
	require.NoError(t, err)
	_, err = s.AddLine(phone("p2", 200, nil), 1)
	require.NoError(t, err)
	s.SetQuantity("p1", 4)
	s.RemoveLine("p2")
	s.Close()

	lines, err := decodeLines(slot.stored(SlotKey("u1")))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].ProductID)
	assert.Equal(t, 4, lines[0].Quantity)
}

func TestStore_SaveFailureKeepsMemoryAuthoritative(t *testing.T) {
	slot := newMemorySlot()
	slot.setErr = errors.New("storage down")
	s := newLoadedStore(t, slot)

	_, err := s.AddLine(phone("p1", 100, nil), 1)
	require.NoError(t, err)

	lines := s.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p1", lines[0].ProductID)
}

func TestManager_LoadsOnFirstUseAndKeepsResident(t *testing.T) {
	slot := newMemorySlot()
	slot.data[SlotKey("u1")] = encodeLines([]Line{
		{ProductID: "p1", UnitPrice: decimal.NewFromInt(100), Quantity: 1, Selected: true},
	})

	m := NewManager(slot, zap.NewNop())
	defer m.Close()

	s := m.For(context.Background(), identity.Identity{ID: "u1"})
	require.Len(t, s.Lines(), 1)

	again := m.For(context.Background(), identity.Identity{ID: "u1"})
	assert.Same(t, s, again)
}

func TestManager_IsolatesIdentities(t *testing.T) {
	m := NewManager(newMemorySlot(), zap.NewNop())
	defer m.Close()

	s1 := m.For(context.Background(), identity.Identity{ID: "u1"})
	s2 := m.For(context.Background(), identity.Identity{ID: "u2"})
	require.NotSame(t, s1, s2)

	_, err := s1.AddLine(phone("p1", 100, nil), 1)
	require.NoError(t, err)
	assert.Empty(t, s2.Lines())
}

func TestManager_SignOutDropsStore(t *testing.T) {
	slot := newMemorySlot()
	m := NewManager(slot, zap.NewNop())
	defer m.Close()

	s := m.For(context.Background(), identity.Identity{ID: "u1"})
	_, err := s.AddLine(phone("p1", 100, nil), 1)
	require.NoError(t, err)

	m.SignOut(context.Background(), "u1")

	fresh := m.For(context.Background(), identity.Identity{ID: "u1"})
	require.NotSame(t, s, fresh)
}

func TestManager_ForWaitsForInFlightLoad(t *testing.T) {
	slot := newSlowReadSlot()
	slot.data[SlotKey("u1")] = encodeLines([]Line{
		{ProductID: "p1", UnitPrice: decimal.NewFromInt(100), Quantity: 1, Selected: true},
	})

	m := NewManager(slot, zap.NewNop())
	defer m.Close()

	first := make(chan *Store)
	go func() {
		first <- m.For(context.Background(), identity.Identity{ID: "u1"})
	}()
	<-slot.reading // initial load now reading the slot

	second := make(chan *Store)
	go func() {
		second <- m.For(context.Background(), identity.Identity{ID: "u1"})
	}()

	// Handing out the store before the load completes would let the load
	// result overwrite a mutation already confirmed to the second caller.
	select {
	case <-second:
		t.Fatal("For returned a store before its initial load finished")
	case <-time.After(50 * time.Millisecond):
	}

	close(slot.release)
	s := <-first
	require.Same(t, s, <-second)
	require.True(t, s.Ready())

	_, err := s.AddLine(phone("p2", 200, nil), 1)
	require.NoError(t, err)
	lines := s.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "p1", lines[0].ProductID)
	assert.Equal(t, "p2", lines[1].ProductID)
}
