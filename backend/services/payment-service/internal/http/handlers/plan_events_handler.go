package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// PlanCacheInvalidator drops cached plan answers.
type PlanCacheInvalidator interface {
	Invalidate(ctx context.Context, plate string) error
}

type planChangedRequest struct {
	PlateNumber string `json:"plate_number"`
}

// NewPlanChangedHandler returns POST /internal/plans/changed, called by the user service when a
// subscription starts or ends. cache may be nil when caching is disabled.
func NewPlanChangedHandler(cache PlanCacheInvalidator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req planChangedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		plate := strings.TrimSpace(req.PlateNumber)
		if plate == "" {
			writeError(w, http.StatusBadRequest, "plate_number is required")
			return
		}

		if cache != nil {
			if err := cache.Invalidate(r.Context(), plate); err != nil {
				logger.Warn("failed to invalidate plan cache", zap.String("plate", plate), zap.Error(err))
				writeError(w, http.StatusServiceUnavailable, "plan cache unavailable")
				return
			}
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "ok"})
	}
}
