package ports

import (
	"context"
	"yard-placement-service/internal/domain"
)

// Port: fan-out of committed placement changes to downstream consumers
// (yard visualization, dwell-time billing).
type EventPublisher interface {
	Publish(ctx context.Context, ev domain.PlacementEvent) error
}
