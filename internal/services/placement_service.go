package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"
	"yard-placement-service/internal/domain"
	"yard-placement-service/internal/platform/obs"
	"yard-placement-service/internal/ports"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type ConfirmOutcome string

const (
	OutcomeCommitted ConfirmOutcome = "committed"
	OutcomeRejected  ConfirmOutcome = "rejected"
)

type ConfirmRequest struct {
	ContainerID int64
	Slot        domain.Slot
	PlacedBy    string

	// Slot was offered by a suggestion, as primary or alternative. Support
	// lost beneath such a slot since then is reported as a rejection, not as
	// an invalid position.
	FromSuggestion bool
}

// Result of a confirmation. A rejection is an expected outcome, not an error:
// Rejection explains it and Resuggestion carries a fresh suggestion, or is nil
// when the yard has no capacity left for the container.
type ConfirmResult struct {
	Outcome      ConfirmOutcome
	Record       *domain.PlacementRecord
	Rejection    *domain.RejectedError
	Resuggestion *domain.Suggestion
}

// PlacementService suggests yard slots and serializes their allocation.
//
// Suggestions are computed on a read-only snapshot and reserve nothing.
// Every write goes through PlacementStore.WithBays, which re-reads the bay
// under lock and re-runs every rule before writing, so a stale suggestion is
// rejected rather than silently reassigned.
type PlacementService struct {
	topology  *domain.Topology
	registry  ports.ContainerRegistry
	store     ports.PlacementStore
	publisher ports.EventPublisher
	rules     *RuleEngine
	ranker    *Ranker
	now       func() time.Time
}

type Option func(*PlacementService)

// WithPublisher enables event fan-out after each committed change.
func WithPublisher(p ports.EventPublisher) Option {
	return func(s *PlacementService) { s.publisher = p }
}

func WithClock(now func() time.Time) Option {
	return func(s *PlacementService) { s.now = now }
}

func WithRules(rules ...Rule) Option {
	return func(s *PlacementService) { s.rules = NewRuleEngine(rules...) }
}

func NewPlacementService(
	topology *domain.Topology,
	registry ports.ContainerRegistry,
	store ports.PlacementStore,
	opts ...Option,
) (*PlacementService, error) {
	if err := topology.Validate(); err != nil {
		return nil, fmt.Errorf("new placement service: %w", err)
	}
	if registry == nil || store == nil {
		return nil, errors.New("new placement service: registry and store are required")
	}

	ranker, err := NewRanker(topology.Ranking)
	if err != nil {
		return nil, fmt.Errorf("new placement service: %w", err)
	}

	s := &PlacementService{
		topology: topology,
		registry: registry,
		store:    store,
		rules:    NewRuleEngine(),
		ranker:   ranker,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *PlacementService) Topology() *domain.Topology { return s.topology }

// Suggest computes a primary slot and ranked alternatives for an unplaced container.
// It is read-only: the container attributes and the occupancy snapshot are loaded
// concurrently and nothing is reserved.
func (s *PlacementService) Suggest(ctx context.Context, containerID int64) (_ *domain.Suggestion, err error) {
	defer obs.Time(ctx, "placement.Suggest")(&err)
	defer func() { obs.Suggestions.WithLabelValues(suggestOutcome(err)).Inc() }()

	var (
		container *domain.Container
		records   []domain.PlacementRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c, err := s.registry.GetContainer(gctx, containerID)
		if err != nil {
			return fmt.Errorf("get container: %w", err)
		}
		container = c
		return nil
	})
	g.Go(func() error {
		recs, err := s.store.ListActive(gctx)
		if err != nil {
			return fmt.Errorf("list active placements: %w", err)
		}
		records = recs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("suggest container %d: %w", containerID, err)
	}

	for _, r := range records {
		if r.ContainerID == containerID {
			return nil, fmt.Errorf("suggest container %d: at %s: %w", containerID, r.Slot, domain.ErrAlreadyPlaced)
		}
	}

	d, err := NewDemand(container)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}

	return s.suggestOn(NewGrid(s.topology, records), d, containerID)
}

// suggestOn ranks the legal slots of grid for d, leaving out any excluded slot.
func (s *PlacementService) suggestOn(grid *Grid, d Demand, containerID int64, exclude ...domain.Slot) (*domain.Suggestion, error) {
	legal := slices.DeleteFunc(s.rules.LegalSlots(grid, d), func(slot domain.Slot) bool {
		return slices.Contains(exclude, slot)
	})
	if len(legal) == 0 {
		return nil, fmt.Errorf("suggest container %d (%s %s): %w", containerID, d.Length, d.Status, domain.ErrNoCapacity)
	}

	sug, err := s.ranker.Rank(grid, d, legal)
	if err != nil {
		return nil, fmt.Errorf("suggest container %d: rank: %w", containerID, err)
	}
	sug.ComputedAt = s.now()
	return &sug, nil
}

// Confirm atomically re-validates and reserves the chosen slot. The slot may be
// the suggested one, an alternative, or a manual position; all take the same path.
//
// A slot taken since the suggestion yields OutcomeRejected with a fresh
// suggestion attached. A position breaking any other rule yields a
// *domain.InvalidPositionError.
func (s *PlacementService) Confirm(ctx context.Context, req ConfirmRequest) (_ *ConfirmResult, err error) {
	defer obs.Time(ctx, "placement.Confirm")(&err)

	res, err := s.confirm(ctx, req)
	obs.Confirmations.WithLabelValues(confirmOutcome(res, err)).Inc()
	return res, err
}

func (s *PlacementService) confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResult, error) {
	placedBy := strings.TrimSpace(req.PlacedBy)
	if placedBy == "" {
		return nil, errors.New("confirm placement: placed_by must not be empty")
	}

	container, err := s.registry.GetContainer(ctx, req.ContainerID)
	if err != nil {
		return nil, fmt.Errorf("confirm placement: get container: %w", err)
	}
	d, err := NewDemand(container)
	if err != nil {
		return nil, fmt.Errorf("confirm placement: %w", err)
	}

	switch current, err := s.store.ActiveFor(ctx, req.ContainerID); {
	case err == nil:
		return nil, fmt.Errorf("confirm placement: container %d at %s: %w", req.ContainerID, current.Slot, domain.ErrAlreadyPlaced)
	case !errors.Is(err, domain.ErrNotPlaced):
		return nil, fmt.Errorf("confirm placement: %w", err)
	}

	bay := req.Slot.BayKey()
	var rec domain.PlacementRecord

	err = s.store.WithBays(ctx, []domain.BayKey{bay}, func(tx ports.BayTx) error {
		recs, err := tx.Records(ctx, bay)
		if err != nil {
			return fmt.Errorf("read bay %s: %w", bay, err)
		}
		if err := s.validate(NewGrid(s.topology, recs), d, req.Slot, req.FromSuggestion); err != nil {
			return err
		}

		rec = domain.PlacementRecord{
			ID:              uuid.New(),
			ContainerID:     container.ContainerID,
			ContainerNumber: container.ContainerNumber,
			Slot:            req.Slot,
			Length:          d.Length,
			Status:          d.Status,
			PlacedAt:        s.now(),
			PlacedBy:        placedBy,
		}
		return tx.Insert(ctx, rec)
	})

	var rejected *domain.RejectedError
	switch {
	case err == nil:
	case errors.As(err, &rejected):
		return s.rejection(ctx, req.ContainerID, rejected, s.Suggest), nil
	case errors.Is(err, domain.ErrSlotTaken):
		// Lost the race at the storage layer.
		return s.rejection(ctx, req.ContainerID, &domain.RejectedError{Slot: req.Slot, Reason: "reserved by a concurrent confirmation"}, s.Suggest), nil
	default:
		return nil, fmt.Errorf("confirm placement of container %d at %s: %w", req.ContainerID, req.Slot, err)
	}

	slog.InfoContext(ctx, "placement committed",
		"req_id", obs.RequestID(ctx),
		"container", rec.ContainerNumber,
		"slot", rec.Slot.String(),
		"placed_by", rec.PlacedBy,
	)
	s.publish(ctx, domain.PlacementEvent{Type: domain.EventCommitted, Record: rec, At: rec.PlacedAt})

	return &ConfirmResult{Outcome: OutcomeCommitted, Record: &rec}, nil
}

// validate runs every rule against the locked snapshot. Occupancy conflicts on
// an otherwise valid slot mean the position was taken. So does lost support
// beneath a slot that a suggestion offered. Anything else is an invalid position.
func (s *PlacementService) validate(g *Grid, d Demand, slot domain.Slot, fromSuggestion bool) error {
	violations := Violations(s.rules.Check(g, d, slot))
	if len(violations) == 0 {
		return nil
	}

	taken, unsupported := false, false
	for _, v := range violations {
		switch v.Rule {
		case domain.RuleOccupancyExclusion, domain.RuleFootprintFit:
			taken = true
		case domain.RuleTierSupport:
			unsupported = true
		default:
			return &domain.InvalidPositionError{Slot: slot, Violations: violations}
		}
	}
	if taken || (unsupported && fromSuggestion) {
		return &domain.RejectedError{Slot: slot, Reason: violations[0].Detail}
	}
	return &domain.InvalidPositionError{Slot: slot, Violations: violations}
}

// resuggestMove proposes a new slot for a placed container, judged as if it had
// already left its current slot, which is never proposed.
func (s *PlacementService) resuggestMove(d Demand, from domain.Slot) func(context.Context, int64) (*domain.Suggestion, error) {
	return func(ctx context.Context, containerID int64) (*domain.Suggestion, error) {
		recs, err := s.store.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("resuggest move of container %d: %w", containerID, err)
		}
		return s.suggestOn(NewGrid(s.topology, recs).Without(containerID), d, containerID, from)
	}
}

func (s *PlacementService) rejection(
	ctx context.Context,
	containerID int64,
	rejected *domain.RejectedError,
	resuggest func(context.Context, int64) (*domain.Suggestion, error),
) *ConfirmResult {
	slog.InfoContext(ctx, "placement rejected",
		"req_id", obs.RequestID(ctx),
		"container_id", containerID,
		"slot", rejected.Slot.String(),
		"reason", rejected.Reason,
	)

	res := &ConfirmResult{Outcome: OutcomeRejected, Rejection: rejected}
	sug, err := resuggest(ctx, containerID)
	if err != nil {
		// The rejection still stands; the caller sees no resuggestion.
		slog.WarnContext(ctx, "resuggestion failed", "req_id", obs.RequestID(ctx), "container_id", containerID, "err", err)
		return res
	}
	res.Resuggestion = sug
	return res
}

// Release closes the active placement of a container leaving the yard.
// A container with anything stacked on top cannot be released.
func (s *PlacementService) Release(ctx context.Context, containerID int64) (_ *domain.PlacementRecord, err error) {
	defer obs.Time(ctx, "placement.Release")(&err)

	current, err := s.store.ActiveFor(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("release container %d: %w", containerID, err)
	}

	bay := current.Slot.BayKey()
	var released domain.PlacementRecord

	err = s.store.WithBays(ctx, []domain.BayKey{bay}, func(tx ports.BayTx) error {
		recs, err := tx.Records(ctx, bay)
		if err != nil {
			return fmt.Errorf("read bay %s: %w", bay, err)
		}
		g := NewGrid(s.topology, recs)

		rec, ok := g.OccupantOf(current.Slot)
		if !ok || rec.ID != current.ID {
			return fmt.Errorf("placement %s moved concurrently: %w", current.ID, domain.ErrNotPlaced)
		}
		if err := blockedFromAbove(g, rec); err != nil {
			return err
		}

		at := s.now()
		if err := tx.Release(ctx, rec.ID, at); err != nil {
			return err
		}
		rec.ReleasedAt = &at
		released = rec
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("release container %d: %w", containerID, err)
	}

	obs.Releases.WithLabelValues("release").Inc()
	slog.InfoContext(ctx, "placement released", "req_id", obs.RequestID(ctx), "container", released.ContainerNumber, "slot", released.Slot.String())
	s.publish(ctx, domain.PlacementEvent{Type: domain.EventReleased, Record: released, At: *released.ReleasedAt})

	return &released, nil
}

// Relocate moves a placed container to a new slot in one atomic step.
// Both bays are locked; the destination is validated as if the container had
// already left its current slot.
func (s *PlacementService) Relocate(ctx context.Context, req ConfirmRequest) (_ *ConfirmResult, err error) {
	defer obs.Time(ctx, "placement.Relocate")(&err)

	placedBy := strings.TrimSpace(req.PlacedBy)
	if placedBy == "" {
		return nil, errors.New("relocate placement: placed_by must not be empty")
	}

	current, err := s.store.ActiveFor(ctx, req.ContainerID)
	if err != nil {
		return nil, fmt.Errorf("relocate container %d: %w", req.ContainerID, err)
	}
	if current.Slot == req.Slot {
		return nil, &domain.InvalidPositionError{Slot: req.Slot, Violations: []*domain.RuleViolation{{
			Rule:   domain.RuleOccupancyExclusion,
			Slot:   req.Slot,
			Detail: "container already occupies this slot",
		}}}
	}

	container, err := s.registry.GetContainer(ctx, req.ContainerID)
	if err != nil {
		return nil, fmt.Errorf("relocate container %d: get container: %w", req.ContainerID, err)
	}
	d, err := NewDemand(container)
	if err != nil {
		return nil, fmt.Errorf("relocate placement: %w", err)
	}

	from, to := current.Slot.BayKey(), req.Slot.BayKey()
	bays := []domain.BayKey{from}
	if to != from {
		bays = append(bays, to)
	}

	var moved domain.PlacementRecord
	err = s.store.WithBays(ctx, bays, func(tx ports.BayTx) error {
		var recs []domain.PlacementRecord
		for _, b := range bays {
			r, err := tx.Records(ctx, b)
			if err != nil {
				return fmt.Errorf("read bay %s: %w", b, err)
			}
			recs = append(recs, r...)
		}
		g := NewGrid(s.topology, recs)

		rec, ok := g.OccupantOf(current.Slot)
		if !ok || rec.ID != current.ID {
			return fmt.Errorf("placement %s moved concurrently: %w", current.ID, domain.ErrNotPlaced)
		}
		if err := blockedFromAbove(g, rec); err != nil {
			return err
		}
		if err := s.validate(g.Without(req.ContainerID), d, req.Slot, req.FromSuggestion); err != nil {
			return err
		}

		at := s.now()
		if err := tx.Release(ctx, rec.ID, at); err != nil {
			return err
		}
		moved = domain.PlacementRecord{
			ID:              uuid.New(),
			ContainerID:     rec.ContainerID,
			ContainerNumber: rec.ContainerNumber,
			Slot:            req.Slot,
			Length:          d.Length,
			Status:          d.Status,
			PlacedAt:        at,
			PlacedBy:        placedBy,
		}
		return tx.Insert(ctx, moved)
	})

	var rejected *domain.RejectedError
	switch {
	case err == nil:
	case errors.As(err, &rejected):
		return s.rejection(ctx, req.ContainerID, rejected, s.resuggestMove(d, current.Slot)), nil
	case errors.Is(err, domain.ErrSlotTaken):
		rejected = &domain.RejectedError{Slot: req.Slot, Reason: "reserved by a concurrent confirmation"}
		return s.rejection(ctx, req.ContainerID, rejected, s.resuggestMove(d, current.Slot)), nil
	default:
		return nil, fmt.Errorf("relocate container %d to %s: %w", req.ContainerID, req.Slot, err)
	}

	obs.Releases.WithLabelValues("relocate").Inc()
	slog.InfoContext(ctx, "placement relocated",
		"req_id", obs.RequestID(ctx),
		"container", moved.ContainerNumber,
		"from", current.Slot.String(),
		"to", moved.Slot.String(),
	)
	fromSlot := current.Slot
	s.publish(ctx, domain.PlacementEvent{Type: domain.EventRelocated, Record: moved, From: &fromSlot, At: moved.PlacedAt})

	return &ConfirmResult{Outcome: OutcomeCommitted, Record: &moved}, nil
}

// ListActive returns active placements ordered by slot, optionally limited to one zone.
func (s *PlacementService) ListActive(ctx context.Context, zone string) ([]domain.PlacementRecord, error) {
	recs, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list placements: %w", err)
	}

	out := make([]domain.PlacementRecord, 0, len(recs))
	for _, r := range recs {
		if zone == "" || strings.EqualFold(r.Slot.Zone, zone) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b domain.PlacementRecord) int {
		return domain.CompareSlots(a.Slot, b.Slot)
	})
	return out, nil
}

// History returns every placement a container has had, oldest first. A container
// with no placements is looked up in the registry so unknown ids are reported.
func (s *PlacementService) History(ctx context.Context, containerID int64) ([]domain.PlacementRecord, error) {
	recs, err := s.store.History(ctx, containerID)
	if err != nil {
		return nil, fmt.Errorf("placement history of container %d: %w", containerID, err)
	}
	if len(recs) == 0 {
		if _, err := s.registry.GetContainer(ctx, containerID); err != nil {
			return nil, fmt.Errorf("placement history: %w", err)
		}
	}
	return recs, nil
}

func blockedFromAbove(g *Grid, rec domain.PlacementRecord) error {
	if above := g.Above(rec.Slot); len(above) > 0 {
		return &domain.RuleViolation{
			Rule:   domain.RuleTierSupport,
			Slot:   rec.Slot,
			Detail: fmt.Sprintf("%s is stacked on top", above[0].ContainerNumber),
		}
	}
	return nil
}

// publish is best effort: the placement is already committed, so a failed
// notification is logged and never undoes it.
func (s *PlacementService) publish(ctx context.Context, ev domain.PlacementEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "placement event publish failed", "req_id", obs.RequestID(ctx), "type", ev.Type, "err", err)
	}
}

func suggestOutcome(err error) string {
	switch {
	case err == nil:
		return "suggested"
	case errors.Is(err, domain.ErrNoCapacity):
		return "no_capacity"
	default:
		return "error"
	}
}

func confirmOutcome(res *ConfirmResult, err error) string {
	var invalid *domain.InvalidPositionError
	switch {
	case err == nil && res != nil:
		return string(res.Outcome)
	case errors.As(err, &invalid):
		return "invalid"
	default:
		return "error"
	}
}
