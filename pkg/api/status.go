package api

import (
	"fmt"
	"net/http"
)

type statusHandler struct {
	network NetworkSource
	limiter *rateLimiter
}

// get handles GET /status
func (h *statusHandler) get(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.allow() {
		writeError(w, http.StatusTooManyRequests,
			fmt.Sprintf("Rate limit exceeded (%d req/min)", h.limiter.limit))
		return
	}

	status, err := h.network.Status()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute network status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}
