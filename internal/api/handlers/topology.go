package handlers

import (
	"net/http"
	"yard-placement-service/internal/api/dto"
	"yard-placement-service/internal/domain"
	"yard-placement-service/internal/services"
)

type TopologyHandler struct {
	Topology *domain.Topology
}

func (h *TopologyHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}

	t := h.Topology
	res := dto.TopologyResponse{
		Zones:        make([]dto.ZoneResponse, 0, len(t.Zones)),
		RankingOrder: t.Ranking.Order,
		Alternatives: t.Ranking.Alternatives,
	}
	if len(res.RankingOrder) == 0 {
		for _, c := range services.DefaultRankingOrder {
			res.RankingOrder = append(res.RankingOrder, string(c))
		}
	}
	if res.Alternatives == 0 {
		res.Alternatives = services.DefaultAlternatives
	}
	if t.Ranking.UrgentDwell > 0 {
		res.UrgentDwell = t.Ranking.UrgentDwell.String()
	}

	for _, z := range t.Zones {
		zr := dto.ZoneResponse{
			Code:         z.Code,
			Rows:         z.Rows,
			Bays:         z.Bays,
			MaxTier:      z.MaxTier,
			GateDistance: z.GateDistance,
		}
		for _, s := range z.Policy.Statuses {
			zr.Policy.Statuses = append(zr.Policy.Statuses, string(s))
		}
		for _, l := range z.Policy.Lengths {
			zr.Policy.Lengths = append(zr.Policy.Lengths, int(l))
		}
		for _, g := range z.Policy.Groups {
			zr.Policy.Groups = append(zr.Policy.Groups, string(g))
		}
		res.Zones = append(res.Zones, zr)
	}

	writeJSON(w, r, http.StatusOK, res)
}
