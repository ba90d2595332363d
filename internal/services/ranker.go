package services

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"
	"yard-placement-service/internal/domain"
)

// A ranking criterion. Criteria are applied in configured order, each one
// breaking ties left by the previous; slot order is always the final tie-break.
type Criterion string

const (
	// Fill the free half of a position already holding one 20ft container.
	CriterionPairing Criterion = "pairing"
	// Lower handling distance from the gate first.
	CriterionProximity Criterion = "proximity"
	// Ground level before stacking.
	CriterionTier Criterion = "tier"
	// Bays already holding containers of the same length and status first.
	CriterionConsolidation Criterion = "consolidation"
)

var DefaultRankingOrder = []Criterion{
	CriterionPairing,
	CriterionProximity,
	CriterionTier,
	CriterionConsolidation,
}

const DefaultAlternatives = 4

// Per-candidate values the criteria compare.
type candidate struct {
	slot          domain.Slot
	paired        bool
	distance      int
	consolidation int
}

type Ranker struct {
	order        []Criterion
	alternatives int
	urgentDwell  time.Duration
	rowWeight    int
	bayWeight    int
}

func NewRanker(policy domain.RankingPolicy) (*Ranker, error) {
	order := make([]Criterion, 0, len(policy.Order))
	for _, name := range policy.Order {
		c := Criterion(name)
		switch c {
		case CriterionPairing, CriterionProximity, CriterionTier, CriterionConsolidation:
		default:
			return nil, &domain.ConfigError{Field: "ranking.order", Detail: fmt.Sprintf("unknown criterion %q", name)}
		}
		if slices.Contains(order, c) {
			return nil, &domain.ConfigError{Field: "ranking.order", Detail: fmt.Sprintf("duplicate criterion %q", name)}
		}
		order = append(order, c)
	}
	if len(order) == 0 {
		order = slices.Clone(DefaultRankingOrder)
	}

	r := &Ranker{
		order:        order,
		alternatives: policy.Alternatives,
		urgentDwell:  policy.UrgentDwell,
		rowWeight:    policy.RowWeight,
		bayWeight:    policy.BayWeight,
	}
	if r.alternatives == 0 {
		r.alternatives = DefaultAlternatives
	}
	if r.rowWeight == 0 {
		r.rowWeight = 1
	}
	if r.bayWeight == 0 {
		r.bayWeight = 1
	}
	return r, nil
}

// Order returns the criteria applied to d. A container whose dwell time has
// reached the urgency threshold is ranked with proximity first.
func (r *Ranker) Order(d Demand) []Criterion {
	if r.urgentDwell <= 0 || d.DwellTime < r.urgentDwell {
		return r.order
	}
	order := make([]Criterion, 0, len(r.order)+1)
	order = append(order, CriterionProximity)
	for _, c := range r.order {
		if c != CriterionProximity {
			order = append(order, c)
		}
	}
	return order
}

// Distance is the handling cost of reaching a slot from the gate.
func (r *Ranker) Distance(z domain.Zone, s domain.Slot) int {
	return z.GateDistance + (s.Row-1)*r.rowWeight + (s.Bay-1)*r.bayWeight
}

// Rank orders legal slots and returns the primary suggestion with up to
// r.alternatives runners-up. The result is a pure function of its inputs.
func (r *Ranker) Rank(g *Grid, d Demand, legal []domain.Slot) (domain.Suggestion, error) {
	if len(legal) == 0 {
		return domain.Suggestion{}, domain.ErrNoCapacity
	}

	cands := make([]candidate, 0, len(legal))
	for _, s := range legal {
		z, ok := g.Topology().Zone(s.Zone)
		if !ok {
			return domain.Suggestion{}, errors.New("rank: legal slot in unknown zone " + s.Zone)
		}
		cands = append(cands, candidate{
			slot:          s,
			paired:        r.paired(g, s),
			distance:      r.Distance(z, s),
			consolidation: r.likeNeighbours(g, d, s),
		})
	}

	order := r.Order(d)
	slices.SortStableFunc(cands, func(a, b candidate) int {
		for _, c := range order {
			if v := compareBy(c, a, b); v != 0 {
				return v
			}
		}
		return domain.CompareSlots(a.slot, b.slot)
	})

	k := min(r.alternatives, len(cands)-1)
	alts := make([]domain.Slot, 0, k)
	for _, c := range cands[1 : 1+k] {
		alts = append(alts, c.slot)
	}

	var runnerUp *candidate
	if len(cands) > 1 {
		runnerUp = &cands[1]
	}

	return domain.Suggestion{
		ContainerID:  d.ContainerID,
		Suggested:    cands[0].slot,
		Reason:       reason(order, cands[0], runnerUp),
		Alternatives: alts,
	}, nil
}

func compareBy(c Criterion, a, b candidate) int {
	switch c {
	case CriterionPairing:
		// true sorts first
		return cmp.Compare(boolRank(b.paired), boolRank(a.paired))
	case CriterionProximity:
		return cmp.Compare(a.distance, b.distance)
	case CriterionTier:
		return cmp.Compare(a.slot.Tier, b.slot.Tier)
	case CriterionConsolidation:
		return cmp.Compare(b.consolidation, a.consolidation)
	}
	return 0
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (r *Ranker) paired(g *Grid, s domain.Slot) bool {
	if s.SubSlot == domain.SubSlotNone {
		return false
	}
	other, ok := g.OccupantOf(s.WithSubSlot(s.SubSlot.Other()))
	return ok && other.Length == domain.Length20
}

func (r *Ranker) likeNeighbours(g *Grid, d Demand, s domain.Slot) int {
	n := 0
	for _, rec := range g.SlotsInBay(s.Zone, s.Row, s.Bay) {
		if rec.Length == d.Length && rec.Status == d.Status {
			n++
		}
	}
	return n
}

// reason explains the choice by the first criterion separating the primary
// suggestion from the runner-up.
func reason(order []Criterion, best candidate, runnerUp *candidate) string {
	s := best.slot
	level := "ground level"
	if s.Tier > 1 {
		level = fmt.Sprintf("tier %d stacked", s.Tier)
	}

	var decisive Criterion
	if runnerUp != nil {
		for _, c := range order {
			if compareBy(c, best, *runnerUp) != 0 {
				decisive = c
				break
			}
		}
	}

	switch decisive {
	case CriterionPairing:
		return fmt.Sprintf("fills the free half of a 20ft position, %s slot in zone %s", level, s.Zone)
	case CriterionTier:
		if s.Tier == 1 {
			return fmt.Sprintf("free ground level slot preferred over stacking in zone %s", s.Zone)
		}
		return fmt.Sprintf("lowest free tier, %s slot in zone %s", level, s.Zone)
	case CriterionConsolidation:
		return fmt.Sprintf("%s slot in zone %s next to %d like containers", level, s.Zone, best.consolidation)
	case CriterionProximity:
		return fmt.Sprintf("nearest free %s slot in zone %s", level, s.Zone)
	}
	if runnerUp == nil {
		return fmt.Sprintf("nearest free %s slot in zone %s, only legal position", level, s.Zone)
	}
	return fmt.Sprintf("nearest free %s slot in zone %s, first by slot order", level, s.Zone)
}
