package domain

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/multierr"
)

// Restricts which containers a zone accepts. An empty list accepts everything.
type ZonePolicy struct {
	Statuses []ContainerStatus
	Lengths  []LengthClass
	Groups   []CargoGroup
}

func (p ZonePolicy) Accepts(status ContainerStatus, length LengthClass, group CargoGroup) bool {
	if len(p.Statuses) > 0 && !slices.Contains(p.Statuses, status) {
		return false
	}
	if len(p.Lengths) > 0 && !slices.Contains(p.Lengths, length) {
		return false
	}
	if len(p.Groups) > 0 && !slices.Contains(p.Groups, group) {
		return false
	}
	return true
}

// Static description of one yard zone.
// GateDistance is the handling distance from the gate/ramp to the zone entrance.
type Zone struct {
	Code         string
	Rows         int
	Bays         int
	MaxTier      int
	GateDistance int
	Policy       ZonePolicy
}

func (z Zone) Contains(s Slot) bool {
	return s.Zone == z.Code &&
		s.Row >= 1 && s.Row <= z.Rows &&
		s.Bay >= 1 && s.Bay <= z.Bays
}

// Tunables of the suggestion ranker.
type RankingPolicy struct {
	Order        []string
	Alternatives int
	UrgentDwell  time.Duration
	RowWeight    int
	BayWeight    int
}

// Yard layout loaded once at startup and never mutated by the engine.
type Topology struct {
	Zones   []Zone
	Ranking RankingPolicy
}

func (t *Topology) Zone(code string) (Zone, bool) {
	for _, z := range t.Zones {
		if z.Code == code {
			return z, true
		}
	}
	return Zone{}, false
}

// Validate reports every inconsistency as a ConfigError.
func (t *Topology) Validate() error {
	if t == nil {
		return &ConfigError{Field: "topology", Detail: "missing"}
	}

	var err error
	if len(t.Zones) == 0 {
		err = multierr.Append(err, &ConfigError{Field: "zones", Detail: "at least one zone is required"})
	}

	seen := make(map[string]struct{}, len(t.Zones))
	for i, z := range t.Zones {
		field := fmt.Sprintf("zones[%d]", i)
		if z.Code == "" {
			err = multierr.Append(err, &ConfigError{Field: field + ".code", Detail: "must not be empty"})
		}
		if _, dup := seen[z.Code]; dup {
			err = multierr.Append(err, &ConfigError{Field: field + ".code", Detail: fmt.Sprintf("duplicate zone %q", z.Code)})
		}
		seen[z.Code] = struct{}{}

		if z.Rows <= 0 {
			err = multierr.Append(err, &ConfigError{Field: field + ".rows", Detail: fmt.Sprintf("must be positive, got %d", z.Rows)})
		}
		if z.Bays <= 0 {
			err = multierr.Append(err, &ConfigError{Field: field + ".bays", Detail: fmt.Sprintf("must be positive, got %d", z.Bays)})
		}
		if z.MaxTier <= 0 {
			err = multierr.Append(err, &ConfigError{Field: field + ".max_tier", Detail: fmt.Sprintf("must be positive, got %d", z.MaxTier)})
		}
		if z.GateDistance < 0 {
			err = multierr.Append(err, &ConfigError{Field: field + ".gate_distance", Detail: "must not be negative"})
		}
		for _, l := range z.Policy.Lengths {
			if !l.Valid() {
				err = multierr.Append(err, &ConfigError{Field: field + ".policy.lengths", Detail: fmt.Sprintf("unsupported length %d", int(l))})
			}
		}
	}

	r := t.Ranking
	if r.Alternatives < 0 {
		err = multierr.Append(err, &ConfigError{Field: "ranking.alternatives", Detail: "must not be negative"})
	}
	if r.RowWeight < 0 || r.BayWeight < 0 {
		err = multierr.Append(err, &ConfigError{Field: "ranking", Detail: "row_weight and bay_weight must not be negative"})
	}
	if r.UrgentDwell < 0 {
		err = multierr.Append(err, &ConfigError{Field: "ranking.urgent_dwell", Detail: "must not be negative"})
	}

	return err
}
