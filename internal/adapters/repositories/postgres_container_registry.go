package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
	"yard-placement-service/internal/domain"
	"yard-placement-service/internal/ports"
)

// Postgres-backed implementation of the ContainerRegistry port.
// Dwell time is derived from arrived_at at read time.
type PostgresContainerRegistry struct {
	DB  *sql.DB
	Now func() time.Time
}

var _ ports.ContainerRegistry = (*PostgresContainerRegistry)(nil)

func NewPostgresContainerRegistry(db *sql.DB) *PostgresContainerRegistry {
	return &PostgresContainerRegistry{DB: db, Now: time.Now}
}

func (r *PostgresContainerRegistry) GetContainer(ctx context.Context, containerID int64) (*domain.Container, error) {
	if r.DB == nil {
		return nil, errors.New("postgres container registry: DB is nil")
	}

	query := `
	SELECT
		container_id,
		container_number,
		iso_type,
		status,
		arrived_at
	FROM containers
	WHERE container_id = $1;
	`
	var (
		c         domain.Container
		status    string
		arrivedAt time.Time
	)
	err := r.DB.QueryRowContext(ctx, query, containerID).Scan(&c.ContainerID, &c.ContainerNumber, &c.ISOType, &status, &arrivedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("container %d: %w", containerID, domain.ErrContainerNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get container %d: %w", containerID, err)
	}

	if c.Status, err = domain.ParseContainerStatus(status); err != nil {
		return nil, fmt.Errorf("get container %d: %w", containerID, err)
	}
	if dwell := r.Now().Sub(arrivedAt); dwell > 0 {
		c.DwellTime = dwell
	}
	return &c, nil
}
