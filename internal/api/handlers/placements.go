package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"yard-placement-service/internal/api/dto"
	"yard-placement-service/internal/domain"
	"yard-placement-service/internal/services"
)

type PlacementHandler struct {
	Service *services.PlacementService
}

// List returns active placements, optionally filtered by ?zone=.
func (h *PlacementHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	recs, err := h.Service.ListActive(r.Context(), strings.TrimSpace(r.URL.Query().Get("zone")))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := dto.ListPlacementResponse{Placements: make([]dto.PlacementResponse, 0, len(recs))}
	for _, rec := range recs {
		res.Placements = append(res.Placements, toPlacementResponse(rec))
	}
	writeJSON(w, r, http.StatusOK, res)
}

// History returns every placement of ?container_id=, released ones included.
func (h *PlacementHandler) History(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	containerID, err := strconv.ParseInt(r.URL.Query().Get("container_id"), 10, 64)
	if err != nil || containerID <= 0 {
		writeError(w, r, http.StatusBadRequest, "container_id must be a positive integer")
		return
	}

	recs, err := h.Service.History(r.Context(), containerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	res := dto.PlacementHistoryResponse{ContainerID: containerID, Placements: make([]dto.PlacementResponse, 0, len(recs))}
	for _, rec := range recs {
		res.Placements = append(res.Placements, toPlacementResponse(rec))
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *PlacementHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	var req dto.SuggestRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ContainerID <= 0 {
		writeError(w, r, http.StatusBadRequest, "container_id must be positive")
		return
	}

	sug, err := h.Service.Suggest(r.Context(), req.ContainerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toSuggestionResponse(sug))
}

// Confirm reserves the suggested, an alternative, or a manually chosen position.
func (h *PlacementHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	req, ok := h.decodeConfirm(w, r)
	if !ok {
		return
	}

	res, err := h.Service.Confirm(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeConfirmResult(w, r, http.StatusCreated, res)
}

func (h *PlacementHandler) Release(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	var req dto.ReleaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ContainerID <= 0 {
		writeError(w, r, http.StatusBadRequest, "container_id must be positive")
		return
	}

	rec, err := h.Service.Release(r.Context(), req.ContainerID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, toPlacementResponse(*rec))
}

func (h *PlacementHandler) Relocate(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}

	req, ok := h.decodeConfirm(w, r)
	if !ok {
		return
	}

	res, err := h.Service.Relocate(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeConfirmResult(w, r, http.StatusOK, res)
}

func (h *PlacementHandler) decodeConfirm(w http.ResponseWriter, r *http.Request) (services.ConfirmRequest, bool) {
	var req dto.ConfirmRequest
	if !decodeBody(w, r, &req) {
		return services.ConfirmRequest{}, false
	}
	if req.ContainerID <= 0 {
		writeError(w, r, http.StatusBadRequest, "container_id must be positive")
		return services.ConfirmRequest{}, false
	}
	if strings.TrimSpace(req.PlacedBy) == "" {
		writeError(w, r, http.StatusBadRequest, "placed_by is required")
		return services.ConfirmRequest{}, false
	}

	slot, err := domain.ParseSlot(req.Position)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return services.ConfirmRequest{}, false
	}

	return services.ConfirmRequest{
		ContainerID:    req.ContainerID,
		Slot:           slot,
		PlacedBy:       req.PlacedBy,
		FromSuggestion: req.FromSuggestion,
	}, true
}

func writeConfirmResult(w http.ResponseWriter, r *http.Request, okStatus int, res *services.ConfirmResult) {
	if res.Outcome == services.OutcomeRejected {
		writeJSON(w, r, http.StatusConflict, dto.RejectionResponse{
			Error:        res.Rejection.Error(),
			Position:     res.Rejection.Slot.String(),
			Reason:       res.Rejection.Reason,
			Resuggestion: toSuggestionResponse(res.Resuggestion),
		})
		return
	}
	writeJSON(w, r, okStatus, toPlacementResponse(*res.Record))
}
