package dto

import "time"

type SuggestRequest struct {
	ContainerID int64 `json:"container_id"`
}

type SuggestionResponse struct {
	ContainerID  int64     `json:"container_id"`
	Suggested    string    `json:"suggested"`
	Reason       string    `json:"reason"`
	Alternatives []string  `json:"alternatives"`
	ComputedAt   time.Time `json:"computed_at"`
}

type ConfirmRequest struct {
	ContainerID int64  `json:"container_id"`
	Position    string `json:"position"`
	PlacedBy    string `json:"placed_by"`
	// Set when position was taken from a suggestion rather than typed in.
	FromSuggestion bool `json:"from_suggestion,omitempty"`
}

type PlacementHistoryResponse struct {
	ContainerID int64               `json:"container_id"`
	Placements  []PlacementResponse `json:"placements"`
}

type ReleaseRequest struct {
	ContainerID int64 `json:"container_id"`
}

type PlacementResponse struct {
	PlacementID     string     `json:"placement_id"`
	ContainerID     int64      `json:"container_id"`
	ContainerNumber string     `json:"container_number"`
	Position        string     `json:"position"`
	Length          int        `json:"length"`
	Status          string     `json:"status"`
	PlacedAt        time.Time  `json:"placed_at"`
	PlacedBy        string     `json:"placed_by"`
	ReleasedAt      *time.Time `json:"released_at,omitempty"`
}

type ListPlacementResponse struct {
	Placements []PlacementResponse `json:"placements"`
}

// Returned with 409 when the chosen position was taken concurrently.
type RejectionResponse struct {
	Error        string              `json:"error"`
	Position     string              `json:"position"`
	Reason       string              `json:"reason"`
	Resuggestion *SuggestionResponse `json:"resuggestion"`
}

type ViolationResponse struct {
	Rule     string `json:"rule"`
	Position string `json:"position"`
	Detail   string `json:"detail"`
}

// Returned with 422 when the position breaks placement rules.
type InvalidPositionResponse struct {
	Error      string              `json:"error"`
	Position   string              `json:"position"`
	Violations []ViolationResponse `json:"violations"`
}

type ZonePolicyResponse struct {
	Statuses []string `json:"statuses,omitempty"`
	Lengths  []int    `json:"lengths,omitempty"`
	Groups   []string `json:"groups,omitempty"`
}

type ZoneResponse struct {
	Code         string             `json:"code"`
	Rows         int                `json:"rows"`
	Bays         int                `json:"bays"`
	MaxTier      int                `json:"max_tier"`
	GateDistance int                `json:"gate_distance"`
	Policy       ZonePolicyResponse `json:"policy"`
}

type TopologyResponse struct {
	Zones        []ZoneResponse `json:"zones"`
	RankingOrder []string       `json:"ranking_order"`
	Alternatives int            `json:"alternatives"`
	UrgentDwell  string         `json:"urgent_dwell,omitempty"`
}
