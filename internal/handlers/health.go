package handlers

import (
	"net/http"
	"time"
)

// HealthHandler reports liveness of the development backend.
type HealthHandler struct {
	Started time.Time
	NowFunc func() time.Time
}

type healthResponse struct {
	Status        string `json:"status"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// Handle implements GET and HEAD /healthz.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
	default:
		w.Header().Set("Allow", "GET, HEAD")
		respondError(r.Context(), w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
		return
	}

	now := time.Now
	if h.NowFunc != nil {
		now = h.NowFunc
	}
	resp := healthResponse{Status: "ok"}
	if !h.Started.IsZero() {
		resp.UptimeSeconds = int64(now().Sub(h.Started) / time.Second)
	}
	respondSuccess(r.Context(), w, http.StatusOK, resp, "")
}
