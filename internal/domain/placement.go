package domain

import (
	"time"

	"github.com/google/uuid"
)

// Durable fact that a container occupies a slot.
// A record is active until ReleasedAt is set (container exit or relocation).
// Billing and dwell-time consumers read records but never mutate them.
type PlacementRecord struct {
	ID              uuid.UUID
	ContainerID     int64
	ContainerNumber string
	Slot            Slot
	Length          LengthClass
	Status          ContainerStatus
	PlacedAt        time.Time
	PlacedBy        string
	ReleasedAt      *time.Time
}

func (r PlacementRecord) Active() bool { return r.ReleasedAt == nil }

// Ephemeral, non-reserving recommendation for a container.
// It is recomputed per request and never persisted; confirmation re-validates it.
type Suggestion struct {
	ContainerID  int64
	Suggested    Slot
	Reason       string
	Alternatives []Slot
	ComputedAt   time.Time
}

type PlacementEventType string

const (
	EventCommitted PlacementEventType = "committed"
	EventReleased  PlacementEventType = "released"
	EventRelocated PlacementEventType = "relocated"
)

// Notification emitted after a placement change has been committed.
// From is set only for relocations.
type PlacementEvent struct {
	Type   PlacementEventType
	Record PlacementRecord
	From   *Slot
	At     time.Time
}
