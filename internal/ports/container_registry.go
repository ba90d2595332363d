package ports

import (
	"context"
	"yard-placement-service/internal/domain"
)

// Port: read access to container attributes owned by terminal operations.
type ContainerRegistry interface {
	// Return the container or an error wrapping domain.ErrContainerNotFound.
	GetContainer(ctx context.Context, containerID int64) (*domain.Container, error)
}
