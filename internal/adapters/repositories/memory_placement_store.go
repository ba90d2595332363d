package repositories

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
	"yard-placement-service/internal/domain"
	"yard-placement-service/internal/ports"

	"github.com/google/uuid"
)

// In-process implementation of the PlacementStore port.
//
// Each bay has its own mutex, created lazily, which serializes
// check-and-reserve for that stack. A store-wide RWMutex guards the record
// maps themselves and is only held for the duration of a map access, so
// confirmations in different bays run in parallel.
type MemoryPlacementStore struct {
	locksMu sync.Mutex
	locks   map[domain.BayKey]*sync.Mutex

	mu          sync.RWMutex
	records     map[uuid.UUID]domain.PlacementRecord
	activeSlot  map[domain.Slot]uuid.UUID
	activeOwner map[int64]uuid.UUID
}

var _ ports.PlacementStore = (*MemoryPlacementStore)(nil)

func NewMemoryPlacementStore(initial ...domain.PlacementRecord) (*MemoryPlacementStore, error) {
	s := &MemoryPlacementStore{
		locks:       make(map[domain.BayKey]*sync.Mutex),
		records:     make(map[uuid.UUID]domain.PlacementRecord),
		activeSlot:  make(map[domain.Slot]uuid.UUID),
		activeOwner: make(map[int64]uuid.UUID),
	}
	for _, r := range initial {
		if err := s.insert(r); err != nil {
			return nil, fmt.Errorf("memory placement store: load %s: %w", r.Slot, err)
		}
	}
	return s, nil
}

func (s *MemoryPlacementStore) ListActive(ctx context.Context) ([]domain.PlacementRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.PlacementRecord, 0, len(s.activeSlot))
	for _, id := range s.activeSlot {
		out = append(out, s.records[id])
	}
	sortRecords(out)
	return out, nil
}

func (s *MemoryPlacementStore) ActiveFor(ctx context.Context, containerID int64) (*domain.PlacementRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.activeOwner[containerID]
	if !ok {
		return nil, fmt.Errorf("container %d: %w", containerID, domain.ErrNotPlaced)
	}
	rec := s.records[id]
	return &rec, nil
}

func (s *MemoryPlacementStore) History(ctx context.Context, containerID int64) ([]domain.PlacementRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []domain.PlacementRecord{}
	for _, r := range s.records {
		if r.ContainerID == containerID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b domain.PlacementRecord) int {
		if c := a.PlacedAt.Compare(b.PlacedAt); c != 0 {
			return c
		}
		// A relocation releases and places at the same instant; the released record comes first.
		return boolOrder(a.Active(), b.Active())
	})
	return out, nil
}

func boolOrder(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func (s *MemoryPlacementStore) WithBays(ctx context.Context, bays []domain.BayKey, fn func(tx ports.BayTx) error) error {
	ordered := slices.Clone(bays)
	slices.SortFunc(ordered, domain.CompareBays)
	ordered = slices.Compact(ordered)

	for _, b := range ordered {
		l := s.bayLock(b)
		l.Lock()
		defer l.Unlock()
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	tx := &memoryBayTx{store: s, locked: ordered}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *MemoryPlacementStore) bayLock(b domain.BayKey) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	l, ok := s.locks[b]
	if !ok {
		l = &sync.Mutex{}
		s.locks[b] = l
	}
	return l
}

func (s *MemoryPlacementStore) insert(rec domain.PlacementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !rec.Active() {
		s.records[rec.ID] = rec
		return nil
	}
	if _, ok := s.activeSlot[rec.Slot]; ok {
		return fmt.Errorf("insert %s: %w", rec.Slot, domain.ErrSlotTaken)
	}
	if _, ok := s.activeOwner[rec.ContainerID]; ok {
		return fmt.Errorf("insert container %d: %w", rec.ContainerID, domain.ErrAlreadyPlaced)
	}

	s.records[rec.ID] = rec
	s.activeSlot[rec.Slot] = rec.ID
	s.activeOwner[rec.ContainerID] = rec.ID
	return nil
}

// memoryBayTx applies writes immediately and undoes them on rollback.
// Readers outside the locked bays may observe uncommitted writes; they only
// ever read snapshots that confirmation re-validates anyway.
type memoryBayTx struct {
	store  *MemoryPlacementStore
	locked []domain.BayKey
	undo   []func()
}

func (tx *memoryBayTx) holds(b domain.BayKey) bool {
	return slices.Contains(tx.locked, b)
}

func (tx *memoryBayTx) Records(ctx context.Context, bay domain.BayKey) ([]domain.PlacementRecord, error) {
	if !tx.holds(bay) {
		return nil, fmt.Errorf("bay %s is not locked by this transaction", bay)
	}

	s := tx.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.PlacementRecord
	for slot, id := range s.activeSlot {
		if slot.BayKey() == bay {
			out = append(out, s.records[id])
		}
	}
	sortRecords(out)
	return out, nil
}

func (tx *memoryBayTx) Insert(ctx context.Context, rec domain.PlacementRecord) error {
	if !tx.holds(rec.Slot.BayKey()) {
		return fmt.Errorf("bay %s is not locked by this transaction", rec.Slot.BayKey())
	}
	if err := tx.store.insert(rec); err != nil {
		return err
	}

	s := tx.store
	tx.undo = append(tx.undo, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.records, rec.ID)
		delete(s.activeSlot, rec.Slot)
		delete(s.activeOwner, rec.ContainerID)
	})
	return nil
}

func (tx *memoryBayTx) Release(ctx context.Context, id uuid.UUID, at time.Time) error {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || !rec.Active() {
		return fmt.Errorf("release placement %s: %w", id, domain.ErrNotPlaced)
	}
	if !tx.holds(rec.Slot.BayKey()) {
		return fmt.Errorf("bay %s is not locked by this transaction", rec.Slot.BayKey())
	}

	prev := rec
	rec.ReleasedAt = &at
	s.records[id] = rec
	delete(s.activeSlot, rec.Slot)
	delete(s.activeOwner, rec.ContainerID)

	tx.undo = append(tx.undo, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.records[id] = prev
		s.activeSlot[prev.Slot] = id
		s.activeOwner[prev.ContainerID] = id
	})
	return nil
}

func (tx *memoryBayTx) rollback() {
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func sortRecords(recs []domain.PlacementRecord) {
	slices.SortFunc(recs, func(a, b domain.PlacementRecord) int {
		return domain.CompareSlots(a.Slot, b.Slot)
	})
}
