package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"yard-placement-service/internal/api/dto"
	"yard-placement-service/internal/domain"
	"yard-placement-service/internal/platform/obs"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.WarnContext(r.Context(), "encode failed", "req_id", obs.RequestID(r.Context()), "method", r.Method, "path", r.URL.Path, "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

func allow(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method == method {
		return true
	}
	w.Header().Set("Allow", method)
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	return false
}

// decodeBody reads exactly one JSON object into v and writes a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

// writeServiceError maps placement errors to status codes. Anything
// unrecognised is logged and hidden behind a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalid   *domain.InvalidPositionError
		violation *domain.RuleViolation
	)
	switch {
	case errors.As(err, &invalid):
		res := dto.InvalidPositionResponse{
			Error:      "invalid position",
			Position:   invalid.Slot.String(),
			Violations: make([]dto.ViolationResponse, 0, len(invalid.Violations)),
		}
		for _, v := range invalid.Violations {
			res.Violations = append(res.Violations, toViolationResponse(v))
		}
		writeJSON(w, r, http.StatusUnprocessableEntity, res)
	case errors.As(err, &violation):
		writeJSON(w, r, http.StatusConflict, dto.InvalidPositionResponse{
			Error:      violation.Error(),
			Position:   violation.Slot.String(),
			Violations: []dto.ViolationResponse{toViolationResponse(violation)},
		})
	case errors.Is(err, domain.ErrNoCapacity):
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrContainerNotFound), errors.Is(err, domain.ErrNotPlaced):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyPlaced):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		slog.ErrorContext(r.Context(), "request failed", "req_id", obs.RequestID(r.Context()), "method", r.Method, "path", r.URL.Path, "err", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func toViolationResponse(v *domain.RuleViolation) dto.ViolationResponse {
	return dto.ViolationResponse{Rule: string(v.Rule), Position: v.Slot.String(), Detail: v.Detail}
}

func toSuggestionResponse(s *domain.Suggestion) *dto.SuggestionResponse {
	if s == nil {
		return nil
	}
	alts := make([]string, 0, len(s.Alternatives))
	for _, a := range s.Alternatives {
		alts = append(alts, a.String())
	}
	return &dto.SuggestionResponse{
		ContainerID:  s.ContainerID,
		Suggested:    s.Suggested.String(),
		Reason:       s.Reason,
		Alternatives: alts,
		ComputedAt:   s.ComputedAt,
	}
}

func toPlacementResponse(rec domain.PlacementRecord) dto.PlacementResponse {
	return dto.PlacementResponse{
		PlacementID:     rec.ID.String(),
		ContainerID:     rec.ContainerID,
		ContainerNumber: rec.ContainerNumber,
		Position:        rec.Slot.String(),
		Length:          int(rec.Length),
		Status:          string(rec.Status),
		PlacedAt:        rec.PlacedAt,
		PlacedBy:        rec.PlacedBy,
		ReleasedAt:      rec.ReleasedAt,
	}
}
