package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"refdata-backend/application/services"
	"refdata-backend/domain/core/entities"
	"refdata-backend/domain/history"
)

// HistoryHandler serves audit timeline HTTP requests
type HistoryHandler struct {
	history *services.HistoryService
	logger  *zap.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history *services.HistoryService, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{history: history, logger: logger}
}

// GetEntityTimeline handles GET /history/entities/{entityID}
func (h *HistoryHandler) GetEntityTimeline(w http.ResponseWriter, r *http.Request) {
	facts, err := h.history.TimelineForEntity(r.Context(), chi.URLParam(r, "entityID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, facts)
}

// GetEntitySteps handles GET /history/entities/{entityID}/steps:
// the timeline replayed into before/after snapshots per event
func (h *HistoryHandler) GetEntitySteps(w http.ResponseWriter, r *http.Request) {
	facts, err := h.history.TimelineForEntity(r.Context(), chi.URLParam(r, "entityID"))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	steps := services.AsSnapshots(facts, history.EmptySnapshot())
	respondJSON(w, h.logger, http.StatusOK, steps)
}

// GetTimeline handles GET /history?classes=refbook_item,aspect
func (h *HistoryHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	classes := []string{entities.ClassItem, entities.ClassOwner}
	if raw := r.URL.Query().Get("classes"); raw != "" {
		classes = strings.Split(raw, ",")
	}
	facts, err := h.history.TimelineForClasses(r.Context(), classes)
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	respondJSON(w, h.logger, http.StatusOK, facts)
}
