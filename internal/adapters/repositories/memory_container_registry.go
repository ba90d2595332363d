package repositories

import (
	"context"
	"fmt"
	"sync"
	"yard-placement-service/internal/domain"
	"yard-placement-service/internal/ports"
)

// In-process implementation of the ContainerRegistry port, used for local runs and tests.
type MemoryContainerRegistry struct {
	mu         sync.RWMutex
	containers map[int64]domain.Container
}

var _ ports.ContainerRegistry = (*MemoryContainerRegistry)(nil)

func NewMemoryContainerRegistry(containers ...domain.Container) *MemoryContainerRegistry {
	r := &MemoryContainerRegistry{containers: make(map[int64]domain.Container, len(containers))}
	for _, c := range containers {
		r.containers[c.ContainerID] = c
	}
	return r
}

func (r *MemoryContainerRegistry) Put(c domain.Container) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.containers[c.ContainerID] = c
}

func (r *MemoryContainerRegistry) GetContainer(ctx context.Context, containerID int64) (*domain.Container, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.containers[containerID]
	if !ok {
		return nil, fmt.Errorf("container %d: %w", containerID, domain.ErrContainerNotFound)
	}
	return &c, nil
}
