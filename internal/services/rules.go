package services

import (
	"fmt"
	"time"
	"yard-placement-service/internal/domain"

	"go.uber.org/multierr"
)

// Demand describes the container being placed, reduced to what the rules
// and the ranker need.
type Demand struct {
	ContainerID int64
	Length      domain.LengthClass
	Status      domain.ContainerStatus
	Group       domain.CargoGroup
	DwellTime   time.Duration
}

func NewDemand(c *domain.Container) (Demand, error) {
	iso, err := domain.ParseISOType(c.ISOType)
	if err != nil {
		return Demand{}, fmt.Errorf("container %d: %w", c.ContainerID, err)
	}
	return Demand{
		ContainerID: c.ContainerID,
		Length:      iso.Length,
		Status:      c.Status,
		Group:       iso.Group,
		DwellTime:   c.DwellTime,
	}, nil
}

// A single placement constraint. Check returns nil or a *domain.RuleViolation.
type Rule interface {
	Name() domain.RuleName
	Check(g *Grid, d Demand, s domain.Slot) error
}

type BoundsRule struct{}

func (BoundsRule) Name() domain.RuleName { return domain.RuleBounds }

func (r BoundsRule) Check(g *Grid, d Demand, s domain.Slot) error {
	z, ok := g.Topology().Zone(s.Zone)
	if !ok {
		return violation(r, s, "unknown zone %q", s.Zone)
	}
	if !z.Contains(s) {
		return violation(r, s, "row/bay outside zone %s (%d rows x %d bays)", z.Code, z.Rows, z.Bays)
	}
	if s.Tier < 1 {
		return violation(r, s, "tier must be at least 1")
	}
	if d.Length.FullLength() && s.SubSlot != domain.SubSlotNone {
		return violation(r, s, "%s container takes the whole position, sub-slot must be absent", d.Length)
	}
	if !d.Length.FullLength() && s.SubSlot == domain.SubSlotNone {
		return violation(r, s, "%s container needs sub-slot A or B", d.Length)
	}
	return nil
}

type ZoneEligibilityRule struct{}

func (ZoneEligibilityRule) Name() domain.RuleName { return domain.RuleZoneEligibility }

func (r ZoneEligibilityRule) Check(g *Grid, d Demand, s domain.Slot) error {
	z, ok := g.Topology().Zone(s.Zone)
	if !ok {
		return nil
	}
	if !z.Policy.Accepts(d.Status, d.Length, d.Group) {
		return violation(r, s, "zone %s does not accept %s %s %s containers", z.Code, d.Status, d.Length, d.Group)
	}
	return nil
}

type TierCapRule struct{}

func (TierCapRule) Name() domain.RuleName { return domain.RuleTierCap }

func (r TierCapRule) Check(g *Grid, _ Demand, s domain.Slot) error {
	z, ok := g.Topology().Zone(s.Zone)
	if !ok {
		return nil
	}
	if s.Tier > z.MaxTier {
		return violation(r, s, "zone %s stacks at most %d high", z.Code, z.MaxTier)
	}
	return nil
}

// Tier t>1 must rest on a container of the same or larger footprint.
// Two 20ft halves do not support a full-length container.
type TierSupportRule struct{}

func (TierSupportRule) Name() domain.RuleName { return domain.RuleTierSupport }

func (r TierSupportRule) Check(g *Grid, d Demand, s domain.Slot) error {
	if s.Tier <= 1 {
		return nil
	}
	below := s.Below()

	if full, ok := g.OccupantOf(below.WithSubSlot(domain.SubSlotNone)); ok {
		if supports(full.Length, d.Length) {
			return nil
		}
		return violation(r, s, "%s container at %s cannot carry a %s container", full.Length, full.Slot, d.Length)
	}

	if !d.Length.FullLength() {
		if half, ok := g.OccupantOf(below); ok && half.Length == domain.Length20 {
			return nil
		}
		return violation(r, s, "no 20ft container beneath at %s", below)
	}

	if len(g.PositionOccupants(below)) > 0 {
		return violation(r, s, "20ft halves at %s cannot carry a %s container", below.WithSubSlot(domain.SubSlotNone), d.Length)
	}
	return violation(r, s, "nothing beneath at %s", below)
}

func supports(beneath, top domain.LengthClass) bool {
	return beneath >= top
}

// 20ft and full-length containers never share a bay-tier position.
type FootprintFitRule struct{}

func (FootprintFitRule) Name() domain.RuleName { return domain.RuleFootprintFit }

func (r FootprintFitRule) Check(g *Grid, d Demand, s domain.Slot) error {
	if d.Length.FullLength() {
		for _, sub := range []domain.SubSlot{domain.SubSlotA, domain.SubSlotB} {
			if half, ok := g.OccupantOf(s.WithSubSlot(sub)); ok {
				return violation(r, s, "20ft container %s holds half %s", half.ContainerNumber, sub)
			}
		}
		return nil
	}
	if full, ok := g.OccupantOf(s.WithSubSlot(domain.SubSlotNone)); ok {
		return violation(r, s, "%s container %s holds the whole position", full.Length, full.ContainerNumber)
	}
	return nil
}

type OccupancyExclusionRule struct{}

func (OccupancyExclusionRule) Name() domain.RuleName { return domain.RuleOccupancyExclusion }

func (r OccupancyExclusionRule) Check(g *Grid, d Demand, s domain.Slot) error {
	if d.Length.FullLength() {
		if occ := g.PositionOccupants(s); len(occ) > 0 {
			return violation(r, s, "occupied by %s", occ[0].ContainerNumber)
		}
		return nil
	}
	if occ, ok := g.OccupantOf(s); ok {
		return violation(r, s, "occupied by %s", occ.ContainerNumber)
	}
	return nil
}

func violation(r Rule, s domain.Slot, format string, args ...any) error {
	return &domain.RuleViolation{Rule: r.Name(), Slot: s, Detail: fmt.Sprintf(format, args...)}
}

// DefaultRules is the full rule set in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		BoundsRule{},
		ZoneEligibilityRule{},
		TierCapRule{},
		TierSupportRule{},
		FootprintFitRule{},
		OccupancyExclusionRule{},
	}
}

// RuleEngine composes rules with an all-must-pass filter.
type RuleEngine struct {
	rules []Rule
}

func NewRuleEngine(rules ...Rule) *RuleEngine {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &RuleEngine{rules: rules}
}

// Allows reports whether s is legal, stopping at the first failing rule.
func (e *RuleEngine) Allows(g *Grid, d Demand, s domain.Slot) bool {
	for _, r := range e.rules {
		if r.Check(g, d, s) != nil {
			return false
		}
	}
	return true
}

// Check evaluates every rule and returns all violations combined with multierr.
func (e *RuleEngine) Check(g *Grid, d Demand, s domain.Slot) error {
	var err error
	for _, r := range e.rules {
		err = multierr.Append(err, r.Check(g, d, s))
	}
	return err
}

// LegalSlots enumerates every legal destination for d.
//
// For each bay only tiers up to one above the current stack are tried,
// since nothing higher could be supported. Occupied footprints are skipped
// before any rule runs.
func (e *RuleEngine) LegalSlots(g *Grid, d Demand) []domain.Slot {
	subs := []domain.SubSlot{domain.SubSlotNone}
	if !d.Length.FullLength() {
		subs = []domain.SubSlot{domain.SubSlotA, domain.SubSlotB}
	}

	var legal []domain.Slot
	for _, z := range g.Topology().Zones {
		if !z.Policy.Accepts(d.Status, d.Length, d.Group) {
			continue
		}
		for row := 1; row <= z.Rows; row++ {
			for bay := 1; bay <= z.Bays; bay++ {
				top := g.StackHeight(domain.BayKey{Zone: z.Code, Row: row, Bay: bay})
				maxTier := min(top+1, z.MaxTier)
				for tier := 1; tier <= maxTier; tier++ {
					for _, sub := range subs {
						s := domain.Slot{Zone: z.Code, Row: row, Bay: bay, Tier: tier, SubSlot: sub}
						if g.IsFootprintFree(s, d.Length) && e.Allows(g, d, s) {
							legal = append(legal, s)
						}
					}
				}
			}
		}
	}
	return legal
}

// Violations flattens an error returned by Check.
func Violations(err error) []*domain.RuleViolation {
	var out []*domain.RuleViolation
	for _, e := range multierr.Errors(err) {
		if v, ok := e.(*domain.RuleViolation); ok {
			out = append(out, v)
		}
	}
	return out
}
