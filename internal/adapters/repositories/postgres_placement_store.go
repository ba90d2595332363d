package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"
	"yard-placement-service/internal/domain"
	"yard-placement-service/internal/platform/obs"
	"yard-placement-service/internal/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres-backed implementation of the PlacementStore port.
//
// WithBays runs in one transaction and takes a row lock per bay in bay_locks,
// so two confirmations touching the same stack serialize while different
// stacks proceed in parallel. The partial unique indexes remain the last line
// of defence for exact-slot and per-container uniqueness.
type PostgresPlacementStore struct{ DB *sql.DB }

var _ ports.PlacementStore = (*PostgresPlacementStore)(nil)

func NewPostgresPlacementStore(db *sql.DB) *PostgresPlacementStore {
	return &PostgresPlacementStore{DB: db}
}

const selectPlacementColumns = `
	SELECT
		placement_id,
		container_id,
		container_number,
		zone,
		row_no,
		bay_no,
		tier,
		sub_slot,
		length_class,
		status,
		placed_at,
		placed_by,
		released_at
	FROM placements
`

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresPlacementStore) ListActive(ctx context.Context) (_ []domain.PlacementRecord, err error) {
	defer obs.Time(ctx, "postgres.ListActive")(&err)

	if s.DB == nil {
		return nil, errors.New("postgres placement store: DB is nil")
	}

	query := selectPlacementColumns + `
	WHERE released_at IS NULL
	ORDER BY zone, row_no, bay_no, tier, sub_slot;
	`
	recs, err := queryPlacements(ctx, s.DB, query)
	if err != nil {
		return nil, fmt.Errorf("list active placements: %w", err)
	}
	return recs, nil
}

func (s *PostgresPlacementStore) ActiveFor(ctx context.Context, containerID int64) (*domain.PlacementRecord, error) {
	if s.DB == nil {
		return nil, errors.New("postgres placement store: DB is nil")
	}

	query := selectPlacementColumns + `
	WHERE container_id = $1 AND released_at IS NULL;
	`
	recs, err := queryPlacements(ctx, s.DB, query, containerID)
	if err != nil {
		return nil, fmt.Errorf("active placement of container %d: %w", containerID, err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("container %d: %w", containerID, domain.ErrNotPlaced)
	}
	return &recs[0], nil
}

func (s *PostgresPlacementStore) History(ctx context.Context, containerID int64) ([]domain.PlacementRecord, error) {
	if s.DB == nil {
		return nil, errors.New("postgres placement store: DB is nil")
	}

	query := selectPlacementColumns + `
	WHERE container_id = $1
	ORDER BY placed_at, released_at IS NULL, released_at;
	`
	recs, err := queryPlacements(ctx, s.DB, query, containerID)
	if err != nil {
		return nil, fmt.Errorf("placement history of container %d: %w", containerID, err)
	}
	return recs, nil
}

func (s *PostgresPlacementStore) WithBays(ctx context.Context, bays []domain.BayKey, fn func(tx ports.BayTx) error) (err error) {
	defer obs.Time(ctx, "postgres.WithBays")(&err)

	if s.DB == nil {
		return errors.New("postgres placement store: DB is nil")
	}

	ordered := slices.Clone(bays)
	slices.SortFunc(ordered, domain.CompareBays)
	ordered = slices.Compact(ordered)

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("with bays: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, b := range ordered {
		if err := lockBay(ctx, tx, b); err != nil {
			return err
		}
	}

	if err := fn(&postgresBayTx{tx: tx, locked: ordered}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("with bays: commit tx: %w", classify(err))
	}
	return nil
}

// lockBay makes sure the lock row exists, then holds it until the
// transaction ends.
func lockBay(ctx context.Context, tx *sql.Tx, b domain.BayKey) error {
	ensure := `
	INSERT INTO bay_locks (zone, row_no, bay_no)
	VALUES ($1, $2, $3)
	ON CONFLICT DO NOTHING;
	`
	if _, err := tx.ExecContext(ctx, ensure, b.Zone, b.Row, b.Bay); err != nil {
		return fmt.Errorf("lock bay %s: ensure row: %w", b, err)
	}

	lock := `
	SELECT 1 FROM bay_locks
	WHERE zone = $1 AND row_no = $2 AND bay_no = $3
	FOR UPDATE;
	`
	var one int
	if err := tx.QueryRowContext(ctx, lock, b.Zone, b.Row, b.Bay).Scan(&one); err != nil {
		return fmt.Errorf("lock bay %s: %w", b, err)
	}
	return nil
}

type postgresBayTx struct {
	tx     *sql.Tx
	locked []domain.BayKey
}

func (t *postgresBayTx) holds(b domain.BayKey) bool {
	return slices.Contains(t.locked, b)
}

func (t *postgresBayTx) Records(ctx context.Context, bay domain.BayKey) ([]domain.PlacementRecord, error) {
	if !t.holds(bay) {
		return nil, fmt.Errorf("bay %s is not locked by this transaction", bay)
	}

	query := selectPlacementColumns + `
	WHERE zone = $1 AND row_no = $2 AND bay_no = $3 AND released_at IS NULL
	ORDER BY tier, sub_slot;
	`
	return queryPlacements(ctx, t.tx, query, bay.Zone, bay.Row, bay.Bay)
}

func (t *postgresBayTx) Insert(ctx context.Context, rec domain.PlacementRecord) error {
	if !t.holds(rec.Slot.BayKey()) {
		return fmt.Errorf("bay %s is not locked by this transaction", rec.Slot.BayKey())
	}

	query := `
	INSERT INTO placements (
		placement_id,
		container_id,
		container_number,
		zone,
		row_no,
		bay_no,
		tier,
		sub_slot,
		length_class,
		status,
		placed_at,
		placed_by
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	_, err := t.tx.ExecContext(ctx, query,
		rec.ID,
		rec.ContainerID,
		rec.ContainerNumber,
		rec.Slot.Zone,
		rec.Slot.Row,
		rec.Slot.Bay,
		rec.Slot.Tier,
		string(rec.Slot.SubSlot),
		int(rec.Length),
		string(rec.Status),
		rec.PlacedAt.UTC(),
		rec.PlacedBy,
	)
	if err != nil {
		return fmt.Errorf("insert placement at %s: %w", rec.Slot, classify(err))
	}
	return nil
}

func (t *postgresBayTx) Release(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `
	UPDATE placements
	SET released_at = $2
	WHERE placement_id = $1 AND released_at IS NULL
	RETURNING zone, row_no, bay_no;
	`
	var b domain.BayKey
	err := t.tx.QueryRowContext(ctx, query, id, at.UTC()).Scan(&b.Zone, &b.Row, &b.Bay)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("release placement %s: %w", id, domain.ErrNotPlaced)
	}
	if err != nil {
		return fmt.Errorf("release placement %s: %w", id, err)
	}
	if !t.holds(b) {
		return fmt.Errorf("bay %s is not locked by this transaction", b)
	}
	return nil
}

// classify maps unique violations on the active-placement indexes to domain errors.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return err
	}
	if pgErr.ConstraintName == "placements_active_container" {
		return fmt.Errorf("%s: %w", pgErr.ConstraintName, domain.ErrAlreadyPlaced)
	}
	return fmt.Errorf("%s: %w", pgErr.ConstraintName, domain.ErrSlotTaken)
}

func queryPlacements(ctx context.Context, q queryer, query string, args ...any) ([]domain.PlacementRecord, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query placements table: %w", err)
	}
	defer rows.Close()

	recs := make([]domain.PlacementRecord, 0, 64)
	for rows.Next() {
		var (
			rec      domain.PlacementRecord
			subSlot  string
			length   int
			status   string
			released sql.NullTime
		)
		err := rows.Scan(
			&rec.ID,
			&rec.ContainerID,
			&rec.ContainerNumber,
			&rec.Slot.Zone,
			&rec.Slot.Row,
			&rec.Slot.Bay,
			&rec.Slot.Tier,
			&subSlot,
			&length,
			&status,
			&rec.PlacedAt,
			&rec.PlacedBy,
			&released,
		)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}

		rec.Slot.SubSlot = domain.SubSlot(subSlot)
		rec.Length = domain.LengthClass(length)
		if rec.Status, err = domain.ParseContainerStatus(status); err != nil {
			return nil, fmt.Errorf("scan row %s: %w", rec.ID, err)
		}
		if released.Valid {
			at := released.Time
			rec.ReleasedAt = &at
		}
		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration: %w", err)
	}

	return recs, nil
}
