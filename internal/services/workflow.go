package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"yard-placement-service/internal/domain"
)

type WorkflowState int

const (
	StateIdle WorkflowState = iota
	StateSuggested
	StateCommitted
	StateRejected
)

func (s WorkflowState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSuggested:
		return "suggested"
	case StateCommitted:
		return "committed"
	case StateRejected:
		return "rejected"
	}
	return fmt.Sprintf("WorkflowState(%d)", int(s))
}

var ErrInvalidTransition = errors.New("invalid workflow transition")

// Workflow is one operator's placement session for one container:
//
//	Idle -> Start -> Suggested -> Confirm -> Committed | Rejected
//	Suggested -> Cancel -> Idle
//
// Cancel in any other state does nothing.
// A suggestion holds nothing in the store, so Cancel never calls it.
// After a rejection Start may be called again; Resuggestion already holds the
// next proposal when the yard still has capacity.
// A Workflow is not safe for concurrent use; concurrent operators each own one.
type Workflow struct {
	svc         *PlacementService
	containerID int64
	state       WorkflowState
	suggestion  *domain.Suggestion
	result      *ConfirmResult
}

func (s *PlacementService) NewWorkflow(containerID int64) *Workflow {
	return &Workflow{svc: s, containerID: containerID, state: StateIdle}
}

func (w *Workflow) State() WorkflowState { return w.state }

func (w *Workflow) Suggestion() *domain.Suggestion { return w.suggestion }

func (w *Workflow) Result() *ConfirmResult { return w.result }

// Start computes a suggestion. Allowed from Idle and Rejected.
func (w *Workflow) Start(ctx context.Context) (*domain.Suggestion, error) {
	if w.state != StateIdle && w.state != StateRejected {
		return nil, fmt.Errorf("start placement in state %s: %w", w.state, ErrInvalidTransition)
	}

	sug, err := w.svc.Suggest(ctx, w.containerID)
	if err != nil {
		return nil, err
	}
	w.suggestion = sug
	w.result = nil
	w.state = StateSuggested
	return sug, nil
}

// Confirm reserves slot, which may be the suggestion, an alternative, or a manual position.
// Invalid positions and infrastructure errors leave the workflow in Suggested.
func (w *Workflow) Confirm(ctx context.Context, slot domain.Slot, placedBy string) (*ConfirmResult, error) {
	if w.state != StateSuggested {
		return nil, fmt.Errorf("confirm placement in state %s: %w", w.state, ErrInvalidTransition)
	}

	res, err := w.svc.Confirm(ctx, ConfirmRequest{
		ContainerID:    w.containerID,
		Slot:           slot,
		PlacedBy:       placedBy,
		FromSuggestion: w.offered(slot),
	})
	if err != nil {
		return nil, err
	}

	w.result = res
	switch res.Outcome {
	case OutcomeCommitted:
		w.state = StateCommitted
	case OutcomeRejected:
		w.state = StateRejected
		w.suggestion = res.Resuggestion
	}
	return res, nil
}

func (w *Workflow) offered(slot domain.Slot) bool {
	return w.suggestion != nil && (w.suggestion.Suggested == slot || slices.Contains(w.suggestion.Alternatives, slot))
}

// Cancel discards the current suggestion. It is safe in any state: outside
// Suggested there is nothing to discard and the state is left as is.
func (w *Workflow) Cancel() {
	if w.state != StateSuggested {
		return
	}
	w.suggestion = nil
	w.state = StateIdle
}
