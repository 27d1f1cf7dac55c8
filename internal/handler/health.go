package handler

import (
	"context"
	"net/http"
	"time"
)

const healthTimeout = 2 * time.Second

type healthBody struct {
	Status string `json:"status"`
	Store  string `json:"store"`
	Cache  string `json:"cache"`
}

// health reports 503 only when the store is down; the service keeps
// working without its cache, so a cache failure is "degraded".
func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	body := healthBody{Status: "ok", Store: "ok", Cache: "ok"}
	status := http.StatusOK

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Error("Health check: store unreachable", "error", err)
			body.Store, body.Status = "down", "down"
			status = http.StatusServiceUnavailable
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(ctx); err != nil {
			h.logger.Warn("Health check: cache unreachable", "error", err)
			body.Cache = "down"
			if status == http.StatusOK {
				body.Status = "degraded"
			}
		}
	}

	writeJSON(w, status, body)
}
