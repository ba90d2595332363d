package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"
	"yard-placement-service/internal/domain"

	"gopkg.in/yaml.v3"
)

type topologyFile struct {
	Zones   []zoneFile  `yaml:"zones"`
	Ranking rankingFile `yaml:"ranking"`
}

type zoneFile struct {
	Code         string     `yaml:"code"`
	Rows         int        `yaml:"rows"`
	Bays         int        `yaml:"bays"`
	MaxTier      int        `yaml:"max_tier"`
	GateDistance int        `yaml:"gate_distance"`
	Policy       policyFile `yaml:"policy"`
}

type policyFile struct {
	Statuses []string `yaml:"statuses"`
	Lengths  []int    `yaml:"lengths"`
	Groups   []string `yaml:"groups"`
}

type rankingFile struct {
	Order        []string `yaml:"order"`
	Alternatives int      `yaml:"alternatives"`
	UrgentDwell  string   `yaml:"urgent_dwell"`
	RowWeight    int      `yaml:"row_weight"`
	BayWeight    int      `yaml:"bay_weight"`
}

var knownGroups = []domain.CargoGroup{
	domain.GroupGeneral,
	domain.GroupReefer,
	domain.GroupOpenTop,
	domain.GroupTank,
	domain.GroupPlatform,
	domain.GroupOther,
}

// LoadTopology reads and validates the yard topology file.
// Any problem is fatal at startup and reported as one or more *domain.ConfigError.
func LoadTopology(path string) (*domain.Topology, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load topology: read %q: %w", path, err)
	}
	t, err := ParseTopology(raw)
	if err != nil {
		return nil, fmt.Errorf("load topology %q: %w", path, err)
	}
	return t, nil
}

func ParseTopology(raw []byte) (*domain.Topology, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var f topologyFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &domain.ConfigError{Field: "topology", Detail: "file is empty"}
		}
		return nil, &domain.ConfigError{Field: "topology", Detail: err.Error()}
	}

	t := &domain.Topology{Zones: make([]domain.Zone, 0, len(f.Zones))}
	for i, zf := range f.Zones {
		z, err := zoneFromFile(i, zf)
		if err != nil {
			return nil, err
		}
		t.Zones = append(t.Zones, z)
	}

	t.Ranking = domain.RankingPolicy{
		Order:        f.Ranking.Order,
		Alternatives: f.Ranking.Alternatives,
		RowWeight:    f.Ranking.RowWeight,
		BayWeight:    f.Ranking.BayWeight,
	}
	if s := strings.TrimSpace(f.Ranking.UrgentDwell); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, &domain.ConfigError{Field: "ranking.urgent_dwell", Detail: err.Error()}
		}
		t.Ranking.UrgentDwell = d
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func zoneFromFile(i int, zf zoneFile) (domain.Zone, error) {
	field := fmt.Sprintf("zones[%d]", i)

	code := strings.ToUpper(strings.TrimSpace(zf.Code))
	if strings.Contains(code, "-") {
		return domain.Zone{}, &domain.ConfigError{Field: field + ".code", Detail: fmt.Sprintf("%q must not contain '-'", zf.Code)}
	}

	z := domain.Zone{
		Code:         code,
		Rows:         zf.Rows,
		Bays:         zf.Bays,
		MaxTier:      zf.MaxTier,
		GateDistance: zf.GateDistance,
	}

	for _, s := range zf.Policy.Statuses {
		st, err := domain.ParseContainerStatus(s)
		if err != nil {
			return domain.Zone{}, &domain.ConfigError{Field: field + ".policy.statuses", Detail: err.Error()}
		}
		z.Policy.Statuses = append(z.Policy.Statuses, st)
	}
	for _, l := range zf.Policy.Lengths {
		z.Policy.Lengths = append(z.Policy.Lengths, domain.LengthClass(l))
	}
	for _, g := range zf.Policy.Groups {
		cg := domain.CargoGroup(strings.ToLower(strings.TrimSpace(g)))
		if !slices.Contains(knownGroups, cg) {
			return domain.Zone{}, &domain.ConfigError{Field: field + ".policy.groups", Detail: fmt.Sprintf("unknown group %q", g)}
		}
		z.Policy.Groups = append(z.Policy.Groups, cg)
	}

	return z, nil
}
