package repositories

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
	"yard-placement-service/internal/domain"
)

type ContainerSeed struct {
	ContainerID     int64   `json:"container_id"`
	ContainerNumber string  `json:"container_number"`
	ISOType         string  `json:"iso_type"`
	Status          string  `json:"status"`
	DwellHours      float64 `json:"dwell_hours"`
}

// LoadContainerSeeds reads and validates container seed data from a JSON file.
func LoadContainerSeeds(jsonPath string) ([]domain.Container, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("seed containers: read %q: %w", jsonPath, err)
	}

	var data []ContainerSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return nil, fmt.Errorf("seed containers: parse json: %w", err)
	}

	out := make([]domain.Container, 0, len(data))
	seen := make(map[int64]struct{}, len(data))
	for i, item := range data {
		if item.ContainerID <= 0 {
			return nil, fmt.Errorf("seed containers: invalid container_id at index %d: %d", i+1, item.ContainerID)
		}
		if _, dup := seen[item.ContainerID]; dup {
			return nil, fmt.Errorf("seed containers: duplicate container_id at index %d: %d", i+1, item.ContainerID)
		}
		seen[item.ContainerID] = struct{}{}

		number := strings.ToUpper(strings.TrimSpace(item.ContainerNumber))
		if number == "" {
			return nil, fmt.Errorf("seed containers: container_number at index %d must not be empty", i+1)
		}
		if _, err := domain.ParseISOType(item.ISOType); err != nil {
			return nil, fmt.Errorf("seed containers: index %d: %w", i+1, err)
		}
		status, err := domain.ParseContainerStatus(item.Status)
		if err != nil {
			return nil, fmt.Errorf("seed containers: index %d: %w", i+1, err)
		}
		if item.DwellHours < 0 {
			return nil, fmt.Errorf("seed containers: dwell_hours at index %d must not be negative", i+1)
		}

		out = append(out, domain.Container{
			ContainerID:     item.ContainerID,
			ContainerNumber: number,
			ISOType:         strings.ToUpper(strings.TrimSpace(item.ISOType)),
			Status:          status,
			DwellTime:       time.Duration(item.DwellHours * float64(time.Hour)),
		})
	}

	return out, nil
}
