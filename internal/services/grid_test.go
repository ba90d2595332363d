package services

import (
	"testing"
	"yard-placement-service/internal/domain"
)

func TestGrid(t *testing.T) {
	g := NewGrid(oneZone(1, 2, 3), []domain.PlacementRecord{
		placed(t, 1, "A-R1-B1-T1", domain.Length40),
		placed(t, 2, "A-R1-B1-T2-A", domain.Length20),
		placed(t, 3, "A-R1-B1-T2-B", domain.Length20),
		placed(t, 4, "A-R1-B1-T3-A", domain.Length20),
	})

	if got := g.StackHeight(domain.BayKey{Zone: "A", Row: 1, Bay: 1}); got != 3 {
		t.Fatalf("StackHeight(B1) = %d, want 3", got)
	}
	if got := g.StackHeight(domain.BayKey{Zone: "A", Row: 1, Bay: 2}); got != 0 {
		t.Fatalf("StackHeight(B2) = %d, want 0", got)
	}
	if got := len(g.SlotsInBay("A", 1, 1)); got != 4 {
		t.Fatalf("SlotsInBay(B1) = %d records, want 4", got)
	}
	if got := len(g.PositionOccupants(mustSlot(t, "A-R1-B1-T2"))); got != 2 {
		t.Fatalf("PositionOccupants(T2) = %d, want 2", got)
	}

	for _, tt := range []struct {
		slot   string
		length domain.LengthClass
		want   bool
	}{
		{"A-R1-B1-T1", domain.Length40, false},
		{"A-R1-B1-T2", domain.Length40, false},
		{"A-R1-B1-T3-B", domain.Length20, true},
		{"A-R1-B1-T3-A", domain.Length20, false},
		{"A-R1-B1-T1-A", domain.Length20, false},
		{"A-R1-B2-T1", domain.Length20, false},
		{"A-R1-B2-T1", domain.Length45, true},
	} {
		if got := g.IsFootprintFree(mustSlot(t, tt.slot), tt.length); got != tt.want {
			t.Fatalf("IsFootprintFree(%s, %s) = %v, want %v", tt.slot, tt.length, got, tt.want)
		}
	}

	above := g.Above(mustSlot(t, "A-R1-B1-T1"))
	if len(above) != 2 {
		t.Fatalf("Above(T1) = %d records, want both halves", len(above))
	}
	if got := g.Above(mustSlot(t, "A-R1-B1-T2-B")); len(got) != 0 {
		t.Fatalf("Above(T2-B) = %+v, want nothing", got)
	}
	if got := g.Above(mustSlot(t, "A-R1-B1-T2-A")); len(got) != 1 || got[0].ContainerID != 4 {
		t.Fatalf("Above(T2-A) = %+v, want container 4", got)
	}

	without := g.Without(4)
	if _, ok := without.OccupantOf(mustSlot(t, "A-R1-B1-T3-A")); ok {
		t.Fatal("Without(4) still holds container 4")
	}
	if _, ok := g.OccupantOf(mustSlot(t, "A-R1-B1-T3-A")); !ok {
		t.Fatal("Without mutated the original grid")
	}
}

func TestGrid_IgnoresReleasedRecords(t *testing.T) {
	rec := placed(t, 1, "A-R1-B1-T1", domain.Length40)
	at := testNow
	rec.ReleasedAt = &at

	g := NewGrid(oneZone(1, 1, 1), []domain.PlacementRecord{rec})
	if _, ok := g.OccupantOf(rec.Slot); ok {
		t.Fatal("released record occupies its slot")
	}
}
