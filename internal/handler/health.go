package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/toolrelay/toolrelay/internal/models"
)

const version = "1.0.0"

// HealthChecker is implemented by services that can report connectivity
type HealthChecker interface {
	TestConnection(ctx context.Context) error
}

// HealthHandler handles GET /health with optional dependency checks
type HealthHandler struct {
	modelConfigured bool
	checkers        map[string]HealthChecker
}

// NewHealthHandler takes the optional dependencies by name; nil entries are
// reported as disabled.
func NewHealthHandler(modelConfigured bool, checkers map[string]HealthChecker) *HealthHandler {
	return &HealthHandler{modelConfigured: modelConfigured, checkers: checkers}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{"server": "ok"}
	overallStatus := "healthy"

	if h.modelConfigured {
		checks["model"] = "ok"
	} else {
		checks["model"] = "not configured"
		overallStatus = "degraded"
	}

	// Use a short timeout for health checks so they don't block
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for name, c := range h.checkers {
		if c == nil {
			checks[name] = "disabled"
			continue
		}
		if err := c.TestConnection(ctx); err != nil {
			checks[name] = "unavailable: " + err.Error()
			overallStatus = "degraded"
		} else {
			checks[name] = "ok"
		}
	}

	statusCode := http.StatusOK
	if overallStatus == "degraded" {
		statusCode = http.StatusServiceUnavailable
	}

	models.WriteJSON(w, statusCode, models.HealthResponse{
		Status:  overallStatus,
		Version: version,
		Checks:  checks,
	})
}
