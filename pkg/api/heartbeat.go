package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type heartbeatHandler struct {
	agg HeartbeatSource
}

type heartbeatRequest struct {
	AgentID  string         `json:"agent_id"`
	Message  string         `json:"message"`
	Metadata map[string]any `json:"metadata"`
}

// ingest handles POST /heartbeat
func (h *heartbeatHandler) ingest(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AgentID == "" {
		writeError(w, http.StatusBadRequest, "agent_id is required")
		return
	}

	if _, err := h.agg.Record(req.AgentID, req.Message, req.Metadata); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record heartbeat")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// list handles GET /heartbeat/status
func (h *heartbeatHandler) list(w http.ResponseWriter, r *http.Request) {
	statuses, err := h.agg.Statuses()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load agent statuses")
		return
	}
	writeJSON(w, http.StatusOK, statuses)
}

// byName handles GET /heartbeat/status/{name}
func (h *heartbeatHandler) byName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	status, ok, err := h.agg.StatusByName(name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load agent status")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "unknown agent: "+name)
		return
	}
	writeJSON(w, http.StatusOK, status)
}
