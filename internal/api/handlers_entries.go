package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/spiffler33/lean-insights/internal/api/respond"
	"github.com/spiffler33/lean-insights/internal/model"
	"github.com/spiffler33/lean-insights/internal/services"
)

type EntryHandler struct {
	svc *services.JournalService
}

func NewEntryHandler(svc *services.JournalService) *EntryHandler { return &EntryHandler{svc: svc} }

func (h *EntryHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	var in struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	out, err := h.svc.CreateEntry(r.Context(), userID, in.Content)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, out)
}

func (h *EntryHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	req := model.ListEntriesRequest{
		UserID: mux.Vars(r)["userId"],
		Search: r.URL.Query().Get("search"),
		Tag:    r.URL.Query().Get("tag"),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			respond.WriteBadRequest(w, "invalid limit")
			return
		}
		req.Limit = limit
	}

	entries, err := h.svc.ListEntries(r.Context(), req)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []*model.Entry{}
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

func (h *EntryHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	out, err := h.svc.GetEntry(r.Context(), vars["userId"], vars["entryId"])
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

func (h *EntryHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var in struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respond.WriteBadRequest(w, "invalid json")
		return
	}
	out, err := h.svc.UpdateEntry(r.Context(), vars["userId"], vars["entryId"], in.Content)
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, out)
}

func (h *EntryHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	if err := h.svc.DeleteEntry(r.Context(), vars["userId"], vars["entryId"]); err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *EntryHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	after, err := parseDateParam(q.Get("after"))
	if err != nil {
		respond.WriteBadRequest(w, "invalid after date, want YYYY-MM-DD")
		return
	}
	before, err := parseDateParam(q.Get("before"))
	if err != nil {
		respond.WriteBadRequest(w, "invalid before date, want YYYY-MM-DD")
		return
	}
	md, err := h.svc.ExportMarkdown(r.Context(), mux.Vars(r)["userId"], after, before, q.Get("tag"))
	if err != nil {
		respond.WriteServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="journal-export.md"`)
	_, _ = w.Write([]byte(md))
}

// parseDateParam parses an optional YYYY-MM-DD query value, midnight UTC.
func parseDateParam(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
