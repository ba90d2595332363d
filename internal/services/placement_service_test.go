package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"yard-placement-service/internal/domain"

	"github.com/google/go-cmp/cmp"
)

func TestSuggest_EmptyZone(t *testing.T) {
	f := newFixture(t, oneZone(1, 1, 4), []domain.Container{container(1, domain.Length40)})

	sug, err := f.svc.Suggest(context.Background(), 1)
	if err != nil {
		t.Fatalf("Suggest error = %v", err)
	}

	want := &domain.Suggestion{
		ContainerID:  1,
		Suggested:    mustSlot(t, "A-R1-B1-T1"),
		Reason:       "nearest free ground level slot in zone A, only legal position",
		Alternatives: []domain.Slot{},
		ComputedAt:   testNow,
	}
	if diff := cmp.Diff(want, sug); diff != "" {
		t.Fatalf("Suggest mismatch (-want +got):\n%s", diff)
	}

	recs, _ := f.svc.ListActive(context.Background(), "")
	if len(recs) != 0 {
		t.Fatalf("Suggest reserved %d placements, want none", len(recs))
	}
}

func TestSuggest_StacksFullLengthOnFullLength(t *testing.T) {
	f := newFixture(t, oneZone(1, 1, 2),
		[]domain.Container{container(1, domain.Length40)},
		placed(t, 9, "A-R1-B1-T1", domain.Length40),
	)

	sug, err := f.svc.Suggest(context.Background(), 1)
	if err != nil {
		t.Fatalf("Suggest error = %v", err)
	}
	if got := sug.Suggested.String(); got != "A-R1-B1-T2" {
		t.Fatalf("Suggested = %s, want A-R1-B1-T2", got)
	}
}

func TestSuggest_PairsTwentyFooters(t *testing.T) {
	f := newFixture(t, oneZone(1, 1, 2),
		[]domain.Container{container(1, domain.Length20)},
		placed(t, 9, "A-R1-B1-T1-A", domain.Length20),
	)

	sug, err := f.svc.Suggest(context.Background(), 1)
	if err != nil {
		t.Fatalf("Suggest error = %v", err)
	}
	if diff := cmp.Diff([]string{"A-R1-B1-T1-B", "A-R1-B1-T2-A"}, append([]string{sug.Suggested.String()}, slotStrings(sug.Alternatives)...)); diff != "" {
		t.Fatalf("ranking mismatch (-want +got):\n%s", diff)
	}
}

func TestSuggest_NoCapacity(t *testing.T) {
	f := newFixture(t, oneZone(1, 1, 1),
		[]domain.Container{container(1, domain.Length40)},
		placed(t, 9, "A-R1-B1-T1", domain.Length40),
	)

	_, err := f.svc.Suggest(context.Background(), 1)
	if !errors.Is(err, domain.ErrNoCapacity) {
		t.Fatalf("Suggest error = %v, want ErrNoCapacity", err)
	}
}

func TestSuggest_UnknownAndPlacedContainers(t *testing.T) {
	f := newFixture(t, oneZone(1, 2, 1),
		[]domain.Container{container(9, domain.Length40)},
		placed(t, 9, "A-R1-B1-T1", domain.Length40),
	)

	if _, err := f.svc.Suggest(context.Background(), 404); !errors.Is(err, domain.ErrContainerNotFound) {
		t.Fatalf("Suggest(unknown) error = %v, want ErrContainerNotFound", err)
	}
	if _, err := f.svc.Suggest(context.Background(), 9); !errors.Is(err, domain.ErrAlreadyPlaced) {
		t.Fatalf("Suggest(placed) error = %v, want ErrAlreadyPlaced", err)
	}
}

func TestConfirm_CommitsAndPublishes(t *testing.T) {
	f := newFixture(t, oneZone(1, 2, 1), []domain.Container{container(1, domain.Length40)})
	ctx := context.Background()

	sug, err := f.svc.Suggest(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	res, err := f.svc.Confirm(ctx, ConfirmRequest{ContainerID: 1, Slot: sug.Suggested, PlacedBy: "op-7"})
	if err != nil {
		t.Fatalf("Confirm error = %v", err)
	}
	if res.Outcome != OutcomeCommitted {
		t.Fatalf("Outcome = %s, want committed", res.Outcome)
	}
	if res.Record.Slot != sug.Suggested || res.Record.PlacedBy != "op-7" || !res.Record.PlacedAt.Equal(testNow) {
		t.Fatalf("Record = %+v, want slot %s by op-7 at %s", res.Record, sug.Suggested, testNow)
	}

	active, err := f.store.ActiveFor(ctx, 1)
	if err != nil || active.ID != res.Record.ID {
		t.Fatalf("ActiveFor = %+v, %v, want record %s", active, err, res.Record.ID)
	}
	if len(f.publisher.events) != 1 || f.publisher.events[0].Type != domain.EventCommitted {
		t.Fatalf("events = %+v, want one committed event", f.publisher.events)
	}
}

func TestConfirm_StaleSuggestionIsRejectedWithResuggestion(t *testing.T) {
	f := newFixture(t, oneZone(1, 2, 1), []domain.Container{
		container(1, domain.Length40),
		container(2, domain.Length40),
	})
	ctx := context.Background()

	sug1, _ := f.svc.Suggest(ctx, 1)
	sug2, _ := f.svc.Suggest(ctx, 2)
	if sug1.Suggested != sug2.Suggested {
		t.Fatalf("suggestions differ: %s vs %s", sug1.Suggested, sug2.Suggested)
	}

	if res, err := f.svc.Confirm(ctx, ConfirmRequest{ContainerID: 1, Slot: sug1.Suggested, PlacedBy: "op-1"}); err != nil || res.Outcome != OutcomeCommitted {
		t.Fatalf("first Confirm = %+v, %v, want committed", res, err)
	}

	res, err := f.svc.Confirm(ctx, ConfirmRequest{ContainerID: 2, Slot: sug2.Suggested, PlacedBy: "op-2"})
	if err != nil {
		t.Fatalf("second Confirm error = %v, want a rejection result", err)
	}
	if res.Outcome != OutcomeRejected {
		t.Fatalf("Outcome = %s, want rejected", res.Outcome)
	}
	if res.Rejection == nil || res.Rejection.Slot != sug2.Suggested {
		t.Fatalf("Rejection = %+v, want slot %s", res.Rejection, sug2.Suggested)
	}
	if !errors.Is(res.Rejection, domain.ErrSlotTaken) {
		t.Fatalf("Rejection %v does not wrap ErrSlotTaken", res.Rejection)
	}
	if res.Resuggestion == nil || res.Resuggestion.Suggested.String() != "A-R1-B2-T1" {
		t.Fatalf("Resuggestion = %+v, want A-R1-B2-T1", res.Resuggestion)
	}
	if _, err := f.store.ActiveFor(ctx, 2); !errors.Is(err, domain.ErrNotPlaced) {
		t.Fatalf("rejected container has an active record: %v", err)
	}
}

func TestConfirm_ManualPositionNeverCoerced(t *testing.T) {
	f := newFixture(t, oneZone(1, 2, 2), []domain.Container{container(1, domain.Length40)})
	ctx := context.Background()

	tests := []struct {
		slot string
		rule domain.RuleName
	}{
		{"A-R1-B3-T1", domain.RuleBounds},
		{"A-R1-B1-T3", domain.RuleTierCap},
		{"A-R1-B2-T2", domain.RuleTierSupport},
		{"B-R1-B1-T1", domain.RuleBounds},
	}
	for _, tt := range tests {
		_, err := f.svc.Confirm(ctx, ConfirmRequest{ContainerID: 1, Slot: mustSlot(t, tt.slot), PlacedBy: "op-1"})

		var invalid *domain.InvalidPositionError
		if !errors.As(err, &invalid) {
			t.Fatalf("Confirm(%s) error = %v, want *InvalidPositionError", tt.slot, err)
		}
		if invalid.Slot.String() != tt.slot {
			t.Fatalf("InvalidPositionError.Slot = %s, want %s", invalid.Slot, tt.slot)
		}
		found := false
		for _, v := range invalid.Violations {
			found = found || v.Rule == tt.rule
		}
		if !found {
			t.Fatalf("Confirm(%s) violations = %v, want %s", tt.slot, invalid.Violations, tt.rule)
		}
	}

	recs, _ := f.svc.ListActive(ctx, "")
	if len(recs) != 0 {
		t.Fatalf("invalid confirmations left %d placements, want none", len(recs))
	}
}

func TestConfirm_AlternativeAndManualPathsMatch(t *testing.T) {
	f := newFixture(t, oneZone(1, 3, 1), []domain.Container{
		container(1, domain.Length40),
		container(2, domain.Length40),
	})
	ctx := context.Background()

	sug, _ := f.svc.Suggest(ctx, 1)
	res, err := f.svc.Confirm(ctx, ConfirmRequest{ContainerID: 1, Slot: sug.Alternatives[0], PlacedBy: "op-1"})
	if err != nil || res.Outcome != OutcomeCommitted {
		t.Fatalf("Confirm(alternative) = %+v, %v, want committed", res, err)
	}

	res, err = f.svc.Confirm(ctx, ConfirmRequest{ContainerID: 2, Slot: mustSlot(t, "A-R1-B3-T1"), PlacedBy: "op-2"})
	if err != nil || res.Outcome != OutcomeCommitted {
		t.Fatalf("Confirm(manual) = %+v, %v, want committed", res, err)
	}
}

func TestConfirm_Errors(t *testing.T) {
	f := newFixture(t, oneZone(1, 2, 1),
		[]domain.Container{container(1, domain.Length40)},
		placed(t, 1, "A-R1-B1-T1", domain.Length40),
	)
	ctx := context.Background()

	if _, err := f.svc.Confirm(ctx, ConfirmRequest{ContainerID: 1, Slot: mustSlot(t, "A-R1-B2-T1")}); err == nil {
		t.Fatal("Confirm without placed_by succeeded, want error")
	}
	if _, err := f.svc.Confirm(ctx, ConfirmRequest{ContainerID: 1, Slot: mustSlot(t, "A-R1-B2-T1"), PlacedBy: "op"}); !errors.Is(err, domain.ErrAlreadyPlaced) {
		t.Fatalf("Confirm(placed) error = %v, want ErrAlreadyPlaced", err)
	}
	if _, err := f.svc.Confirm(ctx, ConfirmRequest{ContainerID: 5, Slot: mustSlot(t, "A-R1-B2-T1"), PlacedBy: "op"}); !errors.Is(err, domain.ErrContainerNotFound) {
		t.Fatalf("Confirm(unknown) error = %v, want ErrContainerNotFound", err)
	}
}

func TestConfirm_PublishFailureKeepsPlacement(t *testing.T) {
	f := newFixture(t, oneZone(1, 1, 1), []domain.Container{container(1, domain.Length40)})
	f.publisher.fail = true

	res, err := f.svc.Confirm(context.Background(), ConfirmRequest{ContainerID: 1, Slot: mustSlot(t, "A-R1-B1-T1"), PlacedBy: "op"})
	if err != nil || res.Outcome != OutcomeCommitted {
		t.Fatalf("Confirm = %+v, %v, want committed despite publish failure", res, err)
	}
}

// Many operators confirm overlapping footprints of one position at once:
// 40ft containers the whole position, 20ft containers its half A.
func TestConfirm_ConcurrentOverlappingFootprints(t *testing.T) {
	const n = 16

	var containers []domain.Container
	for i := int64(1); i <= n; i++ {
		length := domain.Length40
		if i%2 == 0 {
			length = domain.Length20
		}
		containers = append(containers, container(i, length))
	}
	f := newFixture(t, oneZone(1, 1, 1), containers)
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		committed []int64
		errs      []error
	)
	for i := int64(1); i <= n; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			slot := "A-R1-B1-T1"
			if id%2 == 0 {
				slot = "A-R1-B1-T1-A"
			}
			res, err := f.svc.Confirm(ctx, ConfirmRequest{ContainerID: id, Slot: mustSlot(t, slot), PlacedBy: "op"})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			if res.Outcome == OutcomeCommitted {
				committed = append(committed, id)
			}
		}(i)
	}
	wg.Wait()

	if len(errs) > 0 {
		t.Fatalf("concurrent Confirm errors: %v", errs)
	}
	if len(committed) != 1 {
		t.Fatalf("committed = %v, want exactly one winner", committed)
	}

	recs, _ := f.svc.ListActive(ctx, "")
	if len(recs) != 1 || recs[0].ContainerID != committed[0] {
		t.Fatalf("active = %+v, want only container %d", recs, committed[0])
	}
}

func TestConfirm_ConcurrentDistinctBays(t *testing.T) {
	const n = 8

	var containers []domain.Container
	for i := int64(1); i <= n; i++ {
		containers = append(containers, container(i, domain.Length40))
	}
	f := newFixture(t, oneZone(1, n, 1), containers)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]*ConfirmResult, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			slot := domain.Slot{Zone: "A", Row: 1, Bay: i + 1, Tier: 1}
			results[i], errs[i] = f.svc.Confirm(ctx, ConfirmRequest{ContainerID: int64(i + 1), Slot: slot, PlacedBy: "op"})
		}(i)
	}
	wg.Wait()

	for i := range results {
		if errs[i] != nil || results[i].Outcome != OutcomeCommitted {
			t.Fatalf("Confirm #%d = %+v, %v, want committed", i+1, results[i], errs[i])
		}
	}
}

func TestRelease(t *testing.T) {
	f := newFixture(t, oneZone(1, 1, 2), nil,
		placed(t, 1, "A-R1-B1-T1", domain.Length40),
		placed(t, 2, "A-R1-B1-T2", domain.Length40),
	)
	ctx := context.Background()

	_, err := f.svc.Release(ctx, 1)
	var v *domain.RuleViolation
	if !errors.As(err, &v) || v.Rule != domain.RuleTierSupport {
		t.Fatalf("Release(bottom) error = %v, want TierSupport violation", err)
	}

	rec, err := f.svc.Release(ctx, 2)
	if err != nil {
		t.Fatalf("Release(top) error = %v", err)
	}
	if rec.ReleasedAt == nil || !rec.ReleasedAt.Equal(testNow) {
		t.Fatalf("ReleasedAt = %v, want %s", rec.ReleasedAt, testNow)
	}

	if _, err := f.svc.Release(ctx, 1); err != nil {
		t.Fatalf("Release(bottom) after top left: %v", err)
	}
	if _, err := f.svc.Release(ctx, 1); !errors.Is(err, domain.ErrNotPlaced) {
		t.Fatalf("second Release error = %v, want ErrNotPlaced", err)
	}

	if got := len(f.publisher.events); got != 2 {
		t.Fatalf("published %d events, want 2", got)
	}
	if hist, err := f.svc.History(ctx, 1); err != nil || len(hist) != 1 || hist[0].Active() {
		t.Fatalf("History(1) = %+v, want one released record", hist)
	}
}

func TestRelocate(t *testing.T) {
	f := newFixture(t, oneZone(1, 2, 2),
		[]domain.Container{container(1, domain.Length40)},
		placed(t, 1, "A-R1-B1-T1", domain.Length40),
	)
	ctx := context.Background()

	res, err := f.svc.Relocate(ctx, ConfirmRequest{ContainerID: 1, Slot: mustSlot(t, "A-R1-B2-T1"), PlacedBy: "op"})
	if err != nil || res.Outcome != OutcomeCommitted {
		t.Fatalf("Relocate = %+v, %v, want committed", res, err)
	}

	recs, _ := f.svc.ListActive(ctx, "A")
	if len(recs) != 1 || recs[0].Slot.String() != "A-R1-B2-T1" {
		t.Fatalf("active = %+v, want container 1 at A-R1-B2-T1", recs)
	}
	hist, err := f.svc.History(ctx, 1)
	if err != nil || len(hist) != 2 || hist[0].Active() || !hist[1].Active() {
		t.Fatalf("History(1) = %+v, want released then active", hist)
	}

	ev := f.publisher.events[len(f.publisher.events)-1]
	if ev.Type != domain.EventRelocated || ev.From == nil || ev.From.String() != "A-R1-B1-T1" {
		t.Fatalf("last event = %+v, want relocation from A-R1-B1-T1", ev)
	}

	var invalid *domain.InvalidPositionError
	if _, err := f.svc.Relocate(ctx, ConfirmRequest{ContainerID: 1, Slot: mustSlot(t, "A-R1-B2-T1"), PlacedBy: "op"}); !errors.As(err, &invalid) {
		t.Fatalf("Relocate(same slot) error = %v, want *InvalidPositionError", err)
	}
	// B1 is empty now, so T2 there would float.
	if _, err := f.svc.Relocate(ctx, ConfirmRequest{ContainerID: 1, Slot: mustSlot(t, "A-R1-B1-T2"), PlacedBy: "op"}); !errors.As(err, &invalid) {
		t.Fatalf("Relocate(floating) error = %v, want *InvalidPositionError", err)
	}
}

func TestRelocate_OntoOwnStackIsInvalid(t *testing.T) {
	f := newFixture(t, oneZone(1, 1, 2),
		[]domain.Container{container(1, domain.Length40)},
		placed(t, 1, "A-R1-B1-T1", domain.Length40),
	)

	// Once the container leaves T1 nothing would support it at T2.
	_, err := f.svc.Relocate(context.Background(), ConfirmRequest{ContainerID: 1, Slot: mustSlot(t, "A-R1-B1-T2"), PlacedBy: "op"})
	var invalid *domain.InvalidPositionError
	if !errors.As(err, &invalid) {
		t.Fatalf("Relocate error = %v, want *InvalidPositionError", err)
	}
}

func TestRelocate_TakenDestinationIsRejected(t *testing.T) {
	f := newFixture(t, oneZone(1, 3, 1),
		[]domain.Container{container(1, domain.Length40), container(2, domain.Length40)},
		placed(t, 1, "A-R1-B1-T1", domain.Length40),
		placed(t, 2, "A-R1-B2-T1", domain.Length40),
	)

	res, err := f.svc.Relocate(context.Background(), ConfirmRequest{ContainerID: 1, Slot: mustSlot(t, "A-R1-B2-T1"), PlacedBy: "op"})
	if err != nil || res.Outcome != OutcomeRejected {
		t.Fatalf("Relocate = %+v, %v, want rejected", res, err)
	}
	active, _ := f.store.ActiveFor(context.Background(), 1)
	if active.Slot.String() != "A-R1-B1-T1" {
		t.Fatalf("container 1 moved to %s after rejection", active.Slot)
	}
	// The container's own slot is never offered back.
	if res.Resuggestion == nil || res.Resuggestion.Suggested.String() != "A-R1-B3-T1" {
		t.Fatalf("Resuggestion = %+v, want A-R1-B3-T1", res.Resuggestion)
	}
	if len(res.Resuggestion.Alternatives) != 0 {
		t.Fatalf("Alternatives = %v, want none", res.Resuggestion.Alternatives)
	}
}

func TestConfirm_LostSupportUnderSuggestedSlotIsRejected(t *testing.T) {
	f := newFixture(t, oneZone(1, 1, 2),
		[]domain.Container{container(1, domain.Length40), container(9, domain.Length40)},
		placed(t, 9, "A-R1-B1-T1", domain.Length40),
	)
	ctx := context.Background()

	wf := f.svc.NewWorkflow(1)
	sug, err := wf.Start(ctx)
	if err != nil || sug.Suggested.String() != "A-R1-B1-T2" {
		t.Fatalf("Start = %+v, %v, want A-R1-B1-T2", sug, err)
	}
	if _, err := f.svc.Release(ctx, 9); err != nil {
		t.Fatal(err)
	}

	res, err := wf.Confirm(ctx, sug.Suggested, "op")
	if err != nil || res.Outcome != OutcomeRejected {
		t.Fatalf("Confirm = %+v, %v, want rejected", res, err)
	}
	if res.Resuggestion == nil || res.Resuggestion.Suggested.String() != "A-R1-B1-T1" {
		t.Fatalf("Resuggestion = %+v, want A-R1-B1-T1", res.Resuggestion)
	}

	// Typed in by hand, the same floating slot is an invalid position.
	var invalid *domain.InvalidPositionError
	if _, err := f.svc.Confirm(ctx, ConfirmRequest{ContainerID: 1, Slot: sug.Suggested, PlacedBy: "op"}); !errors.As(err, &invalid) {
		t.Fatalf("Confirm(manual) error = %v, want *InvalidPositionError", err)
	}
}

func TestConfirm_PlacedContainerOnOccupiedSlot(t *testing.T) {
	f := newFixture(t, oneZone(1, 2, 1),
		[]domain.Container{container(1, domain.Length40), container(2, domain.Length40)},
		placed(t, 1, "A-R1-B1-T1", domain.Length40),
		placed(t, 2, "A-R1-B2-T1", domain.Length40),
	)

	res, err := f.svc.Confirm(context.Background(), ConfirmRequest{ContainerID: 1, Slot: mustSlot(t, "A-R1-B2-T1"), PlacedBy: "op"})
	if !errors.Is(err, domain.ErrAlreadyPlaced) {
		t.Fatalf("Confirm = %+v, %v, want ErrAlreadyPlaced", res, err)
	}
}

func TestListActive_FiltersByZone(t *testing.T) {
	topo := &domain.Topology{Zones: []domain.Zone{
		{Code: "A", Rows: 1, Bays: 2, MaxTier: 1},
		{Code: "B", Rows: 1, Bays: 1, MaxTier: 1},
	}}
	f := newFixture(t, topo, nil,
		placed(t, 1, "B-R1-B1-T1", domain.Length40),
		placed(t, 2, "A-R1-B2-T1", domain.Length40),
		placed(t, 3, "A-R1-B1-T1", domain.Length40),
	)

	all, _ := f.svc.ListActive(context.Background(), "")
	if diff := cmp.Diff([]string{"A-R1-B1-T1", "A-R1-B2-T1", "B-R1-B1-T1"}, recordSlots(all)); diff != "" {
		t.Fatalf("ListActive mismatch (-want +got):\n%s", diff)
	}
	b, _ := f.svc.ListActive(context.Background(), "b")
	if len(b) != 1 || b[0].ContainerID != 1 {
		t.Fatalf("ListActive(b) = %+v, want container 1", b)
	}
}

func recordSlots(recs []domain.PlacementRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Slot.String())
	}
	return out
}

func TestNewPlacementService_RejectsBadTopology(t *testing.T) {
	f := newFixture(t, oneZone(1, 1, 1), nil)

	_, err := NewPlacementService(&domain.Topology{}, f.registry, f.store)
	var cfgErr *domain.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("NewPlacementService error = %v, want *domain.ConfigError", err)
	}
}
