package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/spiffler33/lean-insights/internal/api/respond"
	"github.com/spiffler33/lean-insights/internal/model"
	"github.com/spiffler33/lean-insights/internal/services"
)

type PatternHandler struct {
	svc *services.JournalService
}

func NewPatternHandler(svc *services.JournalService) *PatternHandler {
	return &PatternHandler{svc: svc}
}

func (h *PatternHandler) GetPatterns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respond.WriteBadRequest(w, "invalid limit")
			return
		}
		limit = n
	}
	view, err := h.svc.Patterns(r.Context(), mux.Vars(r)["userId"], limit)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, view)
}

func (h *PatternHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	windowDays := 0
	if raw := r.URL.Query().Get("windowDays"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respond.WriteBadRequest(w, "invalid windowDays")
			return
		}
		windowDays = n
	}
	ins, err := h.svc.Insights(r.Context(), mux.Vars(r)["userId"], windowDays)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if ins == nil {
		ins = []model.Insight{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{"insights": ins})
}

// GetContext renders the relevance block for the posted text. An empty
// context field means no pattern qualifies yet.
func (h *PatternHandler) GetContext(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	ctxBlock, err := h.svc.Context(r.Context(), mux.Vars(r)["userId"], in.Text)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]string{"context": ctxBlock})
}

func (h *PatternHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, st)
}
