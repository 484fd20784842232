package api

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/detrin/sentinel/pkg/database"
	"github.com/detrin/sentinel/pkg/version"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusDegraded  = "degraded"
	healthStatusUnhealthy = "unhealthy"
)

// healthHandler handles GET /health.
// Returns a minimal, safe response suitable for unauthenticated access.
// Only the supervisor's own components (database, watchdog loop) are
// checked. Action targets (SMTP relay, webhook endpoints) are excluded so
// an orchestrator never restarts the supervisor over a broken notification
// channel.
func (s *Server) healthHandler(c *echo.Context) error {
	reqCtx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	_, err := database.Health(reqCtx, s.dbClient.DB())
	if err != nil {
		status = healthStatusUnhealthy
		checks["database"] = HealthCheck{Status: healthStatusUnhealthy, Message: err.Error()}
	} else {
		checks["database"] = HealthCheck{Status: healthStatusHealthy}
	}

	if s.watchdog != nil {
		check := HealthCheck{Status: healthStatusHealthy}
		if !s.watchdog.Running() {
			check = HealthCheck{Status: healthStatusDegraded, Message: "watchdog loop is not running"}
			if status == healthStatusHealthy {
				status = healthStatusDegraded
			}
		} else if last := s.watchdog.LastTick(); !last.IsZero() {
			check.Message = "last tick " + last.UTC().Format(time.RFC3339)
		}
		checks["watchdog"] = check
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, &HealthResponse{
		Status:  status,
		Version: version.GitCommit,
		Checks:  checks,
	})
}
