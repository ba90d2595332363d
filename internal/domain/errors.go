package domain

import (
	"errors"
	"fmt"
)

var (
	// No legal slot exists for the container under current policy and occupancy.
	ErrNoCapacity = errors.New("no capacity")

	ErrContainerNotFound = errors.New("container not found")
	ErrAlreadyPlaced     = errors.New("container already placed")
	ErrNotPlaced         = errors.New("container not placed")

	// The slot (or an overlapping footprint) was taken by a concurrent confirmation.
	ErrSlotTaken = errors.New("slot taken")
)

// Name of a placement rule; used to tag violations.
type RuleName string

const (
	RuleBounds             RuleName = "Bounds"
	RuleZoneEligibility    RuleName = "ZoneEligibility"
	RuleTierCap            RuleName = "TierCap"
	RuleTierSupport        RuleName = "TierSupport"
	RuleFootprintFit       RuleName = "FootprintFit"
	RuleOccupancyExclusion RuleName = "OccupancyExclusion"
)

// A specific rule a requested slot fails.
type RuleViolation struct {
	Rule   RuleName
	Slot   Slot
	Detail string
}

func (v *RuleViolation) Error() string {
	return fmt.Sprintf("%s violated at %s: %s", v.Rule, v.Slot, v.Detail)
}

// The chosen slot became unavailable between suggestion and confirmation.
// This is an expected outcome under concurrent operators, not a fault.
type RejectedError struct {
	Slot   Slot
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("position %s just taken: %s", e.Slot, e.Reason)
}

func (e *RejectedError) Unwrap() error { return ErrSlotTaken }

// Yard topology is missing or inconsistent. Fatal at startup.
type ConfigError struct {
	Field  string
	Detail string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid yard configuration: %s: %s", e.Field, e.Detail)
}

// An operator-specified position fails one or more placement rules.
// The position is reported as is and never coerced to a nearby legal slot.
type InvalidPositionError struct {
	Slot       Slot
	Violations []*RuleViolation
}

func (e *InvalidPositionError) Error() string {
	msg := fmt.Sprintf("invalid position %s", e.Slot)
	for i, v := range e.Violations {
		sep := "; "
		if i == 0 {
			sep = ": "
		}
		msg += sep + string(v.Rule) + " (" + v.Detail + ")"
	}
	return msg
}

func (e *InvalidPositionError) Unwrap() []error {
	out := make([]error, 0, len(e.Violations))
	for _, v := range e.Violations {
		out = append(out, v)
	}
	return out
}
