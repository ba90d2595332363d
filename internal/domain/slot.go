package domain

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Half of a 40ft-length bay position. Only 20ft containers use a sub-slot;
// full-length containers occupy the whole position and carry SubSlotNone.
type SubSlot string

const (
	SubSlotNone SubSlot = ""
	SubSlotA    SubSlot = "A"
	SubSlotB    SubSlot = "B"
)

// Other returns the complementary half, or SubSlotNone for SubSlotNone.
func (s SubSlot) Other() SubSlot {
	switch s {
	case SubSlotA:
		return SubSlotB
	case SubSlotB:
		return SubSlotA
	default:
		return SubSlotNone
	}
}

func subSlotRank(s SubSlot) int {
	switch s {
	case SubSlotA:
		return 1
	case SubSlotB:
		return 2
	default:
		return 0
	}
}

// Addressable storage location in the yard grid.
// The zero SubSlot means the slot spans the whole bay-tier position.
type Slot struct {
	Zone    string
	Row     int
	Bay     int
	Tier    int
	SubSlot SubSlot
}

// Identifies one vertical stack column footprint: every tier of a (zone, row, bay).
type BayKey struct {
	Zone string
	Row  int
	Bay  int
}

func (k BayKey) String() string {
	return fmt.Sprintf("%s-R%d-B%d", k.Zone, k.Row, k.Bay)
}

func (s Slot) BayKey() BayKey {
	return BayKey{Zone: s.Zone, Row: s.Row, Bay: s.Bay}
}

// WithSubSlot returns a copy of s addressing the given half.
func (s Slot) WithSubSlot(sub SubSlot) Slot {
	s.SubSlot = sub
	return s
}

// Below returns the slot one tier lower with the same sub-slot.
func (s Slot) Below() Slot {
	s.Tier--
	return s
}

// Above returns the slot one tier higher with the same sub-slot.
func (s Slot) Above() Slot {
	s.Tier++
	return s
}

// String renders the canonical form, e.g. "A-R1-B1-T1" or "A-R1-B1-T1-B".
func (s Slot) String() string {
	base := fmt.Sprintf("%s-R%d-B%d-T%d", s.Zone, s.Row, s.Bay, s.Tier)
	if s.SubSlot == SubSlotNone {
		return base
	}
	return base + "-" + string(s.SubSlot)
}

// ParseSlot parses the canonical slot form. Input is case-insensitive.
func ParseSlot(raw string) (Slot, error) {
	parts := strings.Split(strings.ToUpper(strings.TrimSpace(raw)), "-")
	if len(parts) != 4 && len(parts) != 5 {
		return Slot{}, fmt.Errorf("parse slot %q: expected ZONE-R<row>-B<bay>-T<tier>[-A|B]", raw)
	}

	zone := parts[0]
	if zone == "" {
		return Slot{}, fmt.Errorf("parse slot %q: zone must not be empty", raw)
	}

	row, err := parseCoordinate(parts[1], "R")
	if err != nil {
		return Slot{}, fmt.Errorf("parse slot %q: row: %w", raw, err)
	}
	bay, err := parseCoordinate(parts[2], "B")
	if err != nil {
		return Slot{}, fmt.Errorf("parse slot %q: bay: %w", raw, err)
	}
	tier, err := parseCoordinate(parts[3], "T")
	if err != nil {
		return Slot{}, fmt.Errorf("parse slot %q: tier: %w", raw, err)
	}

	s := Slot{Zone: zone, Row: row, Bay: bay, Tier: tier}
	if len(parts) == 5 {
		switch SubSlot(parts[4]) {
		case SubSlotA, SubSlotB:
			s.SubSlot = SubSlot(parts[4])
		default:
			return Slot{}, fmt.Errorf("parse slot %q: sub-slot must be A or B", raw)
		}
	}

	return s, nil
}

func parseCoordinate(part, prefix string) (int, error) {
	digits, ok := strings.CutPrefix(part, prefix)
	if !ok {
		return 0, fmt.Errorf("%q must start with %q", part, prefix)
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", part)
	}
	if n < 1 {
		return 0, fmt.Errorf("%q must be positive", part)
	}
	return n, nil
}

// CompareSlots orders slots by (zone, row, bay, tier, sub_slot).
// It is the deterministic tie-break used wherever slot order matters.
func CompareSlots(a, b Slot) int {
	if c := CompareBays(a.BayKey(), b.BayKey()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Tier, b.Tier); c != 0 {
		return c
	}
	return cmp.Compare(subSlotRank(a.SubSlot), subSlotRank(b.SubSlot))
}

func CompareBays(a, b BayKey) int {
	if c := cmp.Compare(a.Zone, b.Zone); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Row, b.Row); c != 0 {
		return c
	}
	return cmp.Compare(a.Bay, b.Bay)
}
