package handler

import (
	"net/http"

	"github.com/iho/sarathi/internal/adapter/http/dto"
)

// ScoreHandler serves credit scores.
type ScoreHandler struct {
	scores ScoreService
}

// NewScoreHandler creates a new ScoreHandler.
func NewScoreHandler(scores ScoreService) *ScoreHandler {
	return &ScoreHandler{scores: scores}
}

// Get returns the caller's latest score, recomputing it when stale.
func (h *ScoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	score, err := h.scores.GetLatestOrRecompute(r.Context(), actor.UserID)
	if err != nil {
		writeDomainError(w, r, "failed to get score", err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ScoreFromDomain(score))
}

// History returns the caller's score snapshots.
func (h *ScoreHandler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(w, r)
	if !ok {
		return
	}

	scores, err := h.scores.History(r.Context(), actor.UserID)
	if err != nil {
		writeDomainError(w, r, "failed to get score history", err)
		return
	}

	resp := make([]dto.ScoreResponse, len(scores))
	for i, s := range scores {
		resp[i] = dto.ScoreFromDomain(s)
	}
	writeJSON(w, http.StatusOK, resp)
}
