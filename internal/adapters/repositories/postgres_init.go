package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Initialize the Postgres schema. Safe to run repeatedly.
//
// A slot or container is held by at most one active placement, enforced by
// partial unique indexes over rows with no release time. Overlapping 20ft and
// 40ft footprints cannot be expressed as a key; they are guarded by the
// per-bay row lock in bay_locks.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createContainersQuery := `
	CREATE TABLE IF NOT EXISTS containers (
		container_id BIGINT PRIMARY KEY,
		container_number TEXT NOT NULL UNIQUE,
		iso_type TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('laden', 'empty')),
		arrived_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createPlacementsQuery := `
	CREATE TABLE IF NOT EXISTS placements (
		placement_id UUID PRIMARY KEY,
		container_id BIGINT NOT NULL,
		container_number TEXT NOT NULL,
		zone TEXT NOT NULL,
		row_no INTEGER NOT NULL CHECK (row_no > 0),
		bay_no INTEGER NOT NULL CHECK (bay_no > 0),
		tier INTEGER NOT NULL CHECK (tier > 0),
		sub_slot TEXT NOT NULL DEFAULT '' CHECK (sub_slot IN ('', 'A', 'B')),
		length_class INTEGER NOT NULL,
		status TEXT NOT NULL,
		placed_at TIMESTAMPTZ NOT NULL,
		placed_by TEXT NOT NULL,
		released_at TIMESTAMPTZ
	);
	`

	createActiveSlotIndexQuery := `
	CREATE UNIQUE INDEX IF NOT EXISTS placements_active_slot
	ON placements (zone, row_no, bay_no, tier, sub_slot)
	WHERE released_at IS NULL;
	`

	createActiveContainerIndexQuery := `
	CREATE UNIQUE INDEX IF NOT EXISTS placements_active_container
	ON placements (container_id)
	WHERE released_at IS NULL;
	`

	createBayIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_placements_bay
	ON placements (zone, row_no, bay_no)
	WHERE released_at IS NULL;
	`

	createBayLocksQuery := `
	CREATE TABLE IF NOT EXISTS bay_locks (
		zone TEXT NOT NULL,
		row_no INTEGER NOT NULL,
		bay_no INTEGER NOT NULL,
		PRIMARY KEY (zone, row_no, bay_no)
	);
	`

	statements := []string{
		createContainersQuery,
		createPlacementsQuery,
		createActiveSlotIndexQuery,
		createActiveContainerIndexQuery,
		createBayIndexQuery,
		createBayLocksQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

// Populate the containers table from a JSON seed file. Existing rows with the
// same container_id are replaced.
func SeedFromJSON(ctx context.Context, db *sql.DB, jsonPath string) (int, error) {
	containers, err := LoadContainerSeeds(jsonPath)
	if err != nil {
		return 0, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("seed containers: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	INSERT INTO containers (
		container_id,
		container_number,
		iso_type,
		status,
		arrived_at
	)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (container_id) DO UPDATE SET
		container_number = EXCLUDED.container_number,
		iso_type = EXCLUDED.iso_type,
		status = EXCLUDED.status,
		arrived_at = EXCLUDED.arrived_at;
	`
	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("seed containers: prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, c := range containers {
		if _, err := stmt.ExecContext(ctx, c.ContainerID, c.ContainerNumber, c.ISOType, string(c.Status), now.Add(-c.DwellTime)); err != nil {
			return 0, fmt.Errorf("seed containers: insert container_id=%d: %w", c.ContainerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("seed containers: commit tx: %w", err)
	}

	return len(containers), nil
}

