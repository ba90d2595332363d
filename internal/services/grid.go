package services

import (
	"slices"
	"yard-placement-service/internal/domain"
)

// Grid is a read-only occupancy snapshot of the yard.
//
// It is built from active placement records at call time and never outlives a
// single suggestion or confirmation. Lookups are map based so no query scans
// the full zone/row/bay/tier space.
type Grid struct {
	topology *domain.Topology
	bySlot   map[domain.Slot]domain.PlacementRecord
	byBay    map[domain.BayKey][]domain.PlacementRecord
}

func NewGrid(topology *domain.Topology, records []domain.PlacementRecord) *Grid {
	g := &Grid{
		topology: topology,
		bySlot:   make(map[domain.Slot]domain.PlacementRecord, len(records)),
		byBay:    make(map[domain.BayKey][]domain.PlacementRecord),
	}

	for _, r := range records {
		if !r.Active() {
			continue
		}
		g.bySlot[r.Slot] = r
		k := r.Slot.BayKey()
		g.byBay[k] = append(g.byBay[k], r)
	}

	for _, recs := range g.byBay {
		slices.SortFunc(recs, func(a, b domain.PlacementRecord) int {
			return domain.CompareSlots(a.Slot, b.Slot)
		})
	}

	return g
}

func (g *Grid) Topology() *domain.Topology { return g.topology }

// OccupantOf returns the record holding exactly this slot.
func (g *Grid) OccupantOf(s domain.Slot) (domain.PlacementRecord, bool) {
	r, ok := g.bySlot[s]
	return r, ok
}

// SlotsInBay returns the occupants of one stack, ordered by tier then sub-slot.
func (g *Grid) SlotsInBay(zone string, row, bay int) []domain.PlacementRecord {
	return g.byBay[domain.BayKey{Zone: zone, Row: row, Bay: bay}]
}

// PositionOccupants returns whatever occupies any part of the bay-tier position of s:
// a full-length container, or up to two 20ft halves.
func (g *Grid) PositionOccupants(s domain.Slot) []domain.PlacementRecord {
	var out []domain.PlacementRecord
	for _, sub := range []domain.SubSlot{domain.SubSlotNone, domain.SubSlotA, domain.SubSlotB} {
		if r, ok := g.bySlot[s.WithSubSlot(sub)]; ok {
			out = append(out, r)
		}
	}
	return out
}

// IsFootprintFree reports whether a container of the given length could physically
// sit at s, ignoring stacking support.
func (g *Grid) IsFootprintFree(s domain.Slot, length domain.LengthClass) bool {
	if length.FullLength() {
		return len(g.PositionOccupants(s)) == 0
	}
	if s.SubSlot == domain.SubSlotNone {
		return false
	}
	if _, ok := g.bySlot[s.WithSubSlot(domain.SubSlotNone)]; ok {
		return false
	}
	_, ok := g.bySlot[s]
	return !ok
}

// StackHeight returns the highest occupied tier in a bay, or 0 for an empty bay.
func (g *Grid) StackHeight(k domain.BayKey) int {
	recs := g.byBay[k]
	if len(recs) == 0 {
		return 0
	}
	return recs[len(recs)-1].Slot.Tier
}

// Without returns a snapshot that no longer contains the given container.
// Relocation validates the destination as if the container had already left.
func (g *Grid) Without(containerID int64) *Grid {
	records := make([]domain.PlacementRecord, 0, len(g.bySlot))
	for _, r := range g.bySlot {
		if r.ContainerID != containerID {
			records = append(records, r)
		}
	}
	return NewGrid(g.topology, records)
}

// Occupants supported by s: anything resting directly on top of it.
func (g *Grid) Above(s domain.Slot) []domain.PlacementRecord {
	above := s.Above()
	if s.SubSlot != domain.SubSlotNone {
		var out []domain.PlacementRecord
		for _, sub := range []domain.SubSlot{domain.SubSlotNone, s.SubSlot} {
			if r, ok := g.bySlot[above.WithSubSlot(sub)]; ok {
				out = append(out, r)
			}
		}
		return out
	}
	return g.PositionOccupants(above)
}
