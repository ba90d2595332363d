package services

import (
	"context"
	"errors"
	"testing"
	"yard-placement-service/internal/domain"
)

func TestWorkflow_SuggestThenCommit(t *testing.T) {
	f := newFixture(t, oneZone(1, 2, 1), []domain.Container{container(1, domain.Length40)})
	ctx := context.Background()

	wf := f.svc.NewWorkflow(1)
	if wf.State() != StateIdle {
		t.Fatalf("initial state = %s, want idle", wf.State())
	}

	sug, err := wf.Start(ctx)
	if err != nil {
		t.Fatalf("Start error = %v", err)
	}
	if wf.State() != StateSuggested || wf.Suggestion() != sug {
		t.Fatalf("state = %s, want suggested with the returned suggestion", wf.State())
	}

	if _, err := wf.Start(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Start from suggested error = %v, want ErrInvalidTransition", err)
	}

	res, err := wf.Confirm(ctx, sug.Suggested, "op-1")
	if err != nil || res.Outcome != OutcomeCommitted {
		t.Fatalf("Confirm = %+v, %v, want committed", res, err)
	}
	if wf.State() != StateCommitted || wf.Result() != res {
		t.Fatalf("state = %s, want committed", wf.State())
	}

	if _, err := wf.Confirm(ctx, sug.Suggested, "op-1"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Confirm from committed error = %v, want ErrInvalidTransition", err)
	}
	wf.Cancel()
	if wf.State() != StateCommitted || wf.Result() != res {
		t.Fatalf("state after Cancel = %s, want committed", wf.State())
	}
}

func TestWorkflow_RejectedThenRestart(t *testing.T) {
	f := newFixture(t, oneZone(1, 2, 1), []domain.Container{
		container(1, domain.Length40),
		container(2, domain.Length40),
	})
	ctx := context.Background()

	first, second := f.svc.NewWorkflow(1), f.svc.NewWorkflow(2)
	sug1, _ := first.Start(ctx)
	sug2, _ := second.Start(ctx)

	if _, err := first.Confirm(ctx, sug1.Suggested, "op-1"); err != nil {
		t.Fatal(err)
	}
	res, err := second.Confirm(ctx, sug2.Suggested, "op-2")
	if err != nil || res.Outcome != OutcomeRejected {
		t.Fatalf("Confirm = %+v, %v, want rejected", res, err)
	}
	if second.State() != StateRejected {
		t.Fatalf("state = %s, want rejected", second.State())
	}
	second.Cancel()
	if second.State() != StateRejected {
		t.Fatalf("state after Cancel = %s, want rejected", second.State())
	}
	if second.Suggestion() != res.Resuggestion || second.Suggestion().Suggested.String() != "A-R1-B2-T1" {
		t.Fatalf("Suggestion = %+v, want the resuggestion A-R1-B2-T1", second.Suggestion())
	}

	if _, err := second.Start(ctx); err != nil {
		t.Fatalf("Start after rejection error = %v", err)
	}
	if second.State() != StateSuggested {
		t.Fatalf("state = %s, want suggested", second.State())
	}
}

func TestWorkflow_CancelAndInvalidConfirm(t *testing.T) {
	f := newFixture(t, oneZone(1, 1, 1), []domain.Container{container(1, domain.Length40)})
	ctx := context.Background()

	wf := f.svc.NewWorkflow(1)
	wf.Cancel()
	if wf.State() != StateIdle {
		t.Fatalf("state after Cancel from idle = %s, want idle", wf.State())
	}

	if _, err := wf.Start(ctx); err != nil {
		t.Fatal(err)
	}
	// An invalid manual position leaves the operator free to pick again.
	if _, err := wf.Confirm(ctx, mustSlot(t, "A-R9-B1-T1"), "op"); err == nil {
		t.Fatal("Confirm(invalid) error = nil, want InvalidPositionError")
	}
	if wf.State() != StateSuggested {
		t.Fatalf("state after invalid confirm = %s, want suggested", wf.State())
	}

	wf.Cancel()
	if wf.State() != StateIdle || wf.Suggestion() != nil {
		t.Fatalf("state = %s with suggestion %v, want idle and none", wf.State(), wf.Suggestion())
	}
	recs, _ := f.svc.ListActive(ctx, "")
	if len(recs) != 0 {
		t.Fatalf("cancelled workflow left %d placements", len(recs))
	}
}
