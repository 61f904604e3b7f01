package handlers

import (
	"net/http"

	"mrwiat/internal/providers/video"
)

func (a *App) Pricing(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"prices":              a.Billing.Prices(),
		"supported_durations": video.SupportedDurations,
	})
}
