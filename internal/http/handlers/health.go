package handlers

import (
	"context"
	"net/http"
	"time"
)

const healthPingTimeout = 2 * time.Second

// Health answers 200 while the store responds and 503 otherwise.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{"status": "ok"}
	if a.Store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()
		if err := a.Store.Ping(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("health: store ping failed")
			a.json(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": "storage_unavailable"})
			return
		}
		body["store"] = "ok"
	}
	a.json(w, http.StatusOK, body)
}
