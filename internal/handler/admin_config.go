package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/supervitec/field-movement-api/internal/middleware"
	"github.com/supervitec/field-movement-api/internal/repository"
)

// AdminConfigHandler exposes each administrator's platform
// preferences: push notifications, automatic monthly reports,
// automatic backups and security alerts.
type AdminConfigHandler struct {
	Configs *repository.AdminConfigRepo
	Log     zerolog.Logger
}

// adminConfigPatch updates only the toggles the caller sent.
type adminConfigPatch struct {
	PushNotifications *bool `json:"push_notifications"`
	AutoReports       *bool `json:"auto_reports"`
	AutoBackups       *bool `json:"auto_backups"`
	SecurityAlerts    *bool `json:"security_alerts"`
}

// Get returns the caller's preferences, falling back to the defaults
// when nothing has been saved yet.
func (h *AdminConfigHandler) Get(c echo.Context) error {
	cfg, err := h.Configs.Get(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		h.Log.Error().Err(err).Msg("admin config: load")
		return jsonError(c, http.StatusInternalServerError, "could not load configuration")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "config": cfg})
}

// Update applies a partial change to the caller's preferences and
// returns the resulting configuration.
func (h *AdminConfigHandler) Update(c echo.Context) error {
	var patch adminConfigPatch
	if err := c.Bind(&patch); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	if patch.PushNotifications == nil && patch.AutoReports == nil &&
		patch.AutoBackups == nil && patch.SecurityAlerts == nil {
		return jsonError(c, http.StatusBadRequest, "no settings to update")
	}

	ctx := c.Request().Context()
	cfg, err := h.Configs.Get(ctx, middleware.UserID(c))
	if err != nil {
		h.Log.Error().Err(err).Msg("admin config: load before update")
		return jsonError(c, http.StatusInternalServerError, "could not update configuration")
	}

	if patch.PushNotifications != nil {
		cfg.PushNotifications = *patch.PushNotifications
	}
	if patch.AutoReports != nil {
		cfg.AutoReports = *patch.AutoReports
	}
	if patch.AutoBackups != nil {
		cfg.AutoBackups = *patch.AutoBackups
	}
	if patch.SecurityAlerts != nil {
		cfg.SecurityAlerts = *patch.SecurityAlerts
	}

	if err := h.Configs.Upsert(ctx, cfg); err != nil {
		h.Log.Error().Err(err).Msg("admin config: save")
		return jsonError(c, http.StatusInternalServerError, "could not update configuration")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "config": cfg})
}
