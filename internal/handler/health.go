package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthHandler answers liveness probes.
type HealthHandler struct {
	DB *sql.DB
}

// Check pings the database with a short deadline. A healthy service
// answers 200; a lost database answers 503 so the orchestrator can
// restart or reroute.
func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()
	if err := h.DB.PingContext(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{
			"success": false,
			"status":  "degraded",
			"message": "database unreachable",
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "status": "ok"})
}
