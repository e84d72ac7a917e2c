package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/supervitec/field-movement-api/internal/middleware"
	"github.com/supervitec/field-movement-api/internal/model"
	"github.com/supervitec/field-movement-api/internal/repository"
)

// DashboardHandler serves the admin overview numbers.
type DashboardHandler struct {
	Users     *repository.UserRepo
	Movements *repository.MovementRepo
	Messages  *repository.MessageRepo
	Log       zerolog.Logger
}

const recentFeedLimit = 20

// Stats returns headline numbers scoped to the caller: admins see
// platform-wide totals including user counts, field personnel see
// their own movement volume over the last day and thirty days.
func (h *DashboardHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	now := time.Now().UTC()

	scope := middleware.UserID(c) // own movements only
	isAdmin := middleware.Role(c) == model.RoleAdmin
	if isAdmin {
		scope = 0 // everyone
	}

	dayCount, dayDistance, err := h.Movements.StatsSince(ctx, scope, now.AddDate(0, 0, -1))
	if err != nil {
		h.Log.Error().Err(err).Msg("dashboard: daily movement stats")
		return jsonError(c, http.StatusInternalServerError, "could not load dashboard")
	}
	monthCount, monthDistance, err := h.Movements.StatsSince(ctx, scope, now.AddDate(0, 0, -30))
	if err != nil {
		h.Log.Error().Err(err).Msg("dashboard: monthly movement stats")
		return jsonError(c, http.StatusInternalServerError, "could not load dashboard")
	}

	stats := echo.Map{
		"last_24h": echo.Map{
			"movements":         dayCount,
			"total_distance_km": dayDistance,
		},
		"last_30d": echo.Map{
			"movements":         monthCount,
			"total_distance_km": monthDistance,
		},
	}
	if isAdmin {
		totalUsers, activeUsers, err := h.Users.Counts(ctx)
		if err != nil {
			h.Log.Error().Err(err).Msg("dashboard: user counts")
			return jsonError(c, http.StatusInternalServerError, "could not load dashboard")
		}
		stats["total_users"] = totalUsers
		stats["active_users"] = activeUsers
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "stats": stats})
}

// RecentActivity returns the newest movements and messages across the
// platform for the admin activity feed.
func (h *DashboardHandler) RecentActivity(c echo.Context) error {
	ctx := c.Request().Context()

	movements, err := h.Movements.Recent(ctx, recentFeedLimit)
	if err != nil {
		h.Log.Error().Err(err).Msg("dashboard: recent movements")
		return jsonError(c, http.StatusInternalServerError, "could not load recent activity")
	}
	messages, err := h.Messages.Recent(ctx, recentFeedLimit)
	if err != nil {
		h.Log.Error().Err(err).Msg("dashboard: recent messages")
		return jsonError(c, http.StatusInternalServerError, "could not load recent activity")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"movements": movements,
		"messages":  messages,
	})
}

// Metrics returns per-region movement volume over the last thirty
// days.
func (h *DashboardHandler) Metrics(c echo.Context) error {
	since := time.Now().UTC().AddDate(0, 0, -30)
	regions, err := h.Movements.MetricsByRegion(c.Request().Context(), since)
	if err != nil {
		h.Log.Error().Err(err).Msg("dashboard: region metrics")
		return jsonError(c, http.StatusInternalServerError, "could not load metrics")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "regions": regions})
}

// Charts returns daily movement buckets over the last thirty days,
// shaped for a time-series chart.
func (h *DashboardHandler) Charts(c echo.Context) error {
	since := time.Now().UTC().AddDate(0, 0, -30)
	days, err := h.Movements.DailyBuckets(c.Request().Context(), since)
	if err != nil {
		h.Log.Error().Err(err).Msg("dashboard: daily buckets")
		return jsonError(c, http.StatusInternalServerError, "could not load chart data")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "days": days})
}
