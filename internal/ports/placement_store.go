package ports

import (
	"context"
	"time"
	"yard-placement-service/internal/domain"

	"github.com/google/uuid"
)

// Port: durable placement records plus the atomic check-and-reserve primitive.
type PlacementStore interface {
	// Return every active placement record.
	ListActive(ctx context.Context) ([]domain.PlacementRecord, error)

	// Return the active record of a container or an error wrapping domain.ErrNotPlaced.
	ActiveFor(ctx context.Context, containerID int64) (*domain.PlacementRecord, error)

	// Return every record of a container, released ones included, oldest first.
	History(ctx context.Context, containerID int64) ([]domain.PlacementRecord, error)

	// Run fn while holding exclusive locks on the given bays.
	// Implementations acquire locks in domain.CompareBays order so callers
	// locking several bays cannot deadlock. Writes made through the BayTx are
	// committed only if fn returns nil.
	WithBays(ctx context.Context, bays []domain.BayKey, fn func(tx BayTx) error) error
}

// Transaction scoped to a set of locked bays.
type BayTx interface {
	// Return the active records of a locked bay, ordered by slot.
	Records(ctx context.Context, bay domain.BayKey) ([]domain.PlacementRecord, error)

	// Insert an active record. Returns an error wrapping domain.ErrSlotTaken when
	// the exact slot is occupied, or domain.ErrAlreadyPlaced when the container
	// already holds an active record.
	Insert(ctx context.Context, rec domain.PlacementRecord) error

	// Close an active record. Returns an error wrapping domain.ErrNotPlaced when
	// the record is not active.
	Release(ctx context.Context, id uuid.UUID, at time.Time) error
}
