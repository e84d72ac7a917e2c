package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/supervitec/field-movement-api/internal/middleware"
	"github.com/supervitec/field-movement-api/internal/model"
	"github.com/supervitec/field-movement-api/internal/queue"
	"github.com/supervitec/field-movement-api/internal/report"
	"github.com/supervitec/field-movement-api/internal/repository"
	queue_publisher "github.com/supervitec/field-movement-api/internal/service"
)

// MovementHandler implements movement registration, aggregation,
// updates and the admin surface.
type MovementHandler struct {
	Movements *repository.MovementRepo
	Users     *repository.UserRepo
	RabbitURL string
	Log       zerolog.Logger
}

// Register validates and stores a new movement for the caller. Field
// problems reject the request with the full list of offending fields;
// zero-valued metrics are accepted and echoed back as warnings. A
// movement arriving already completed is published to the event queue.
func (h *MovementHandler) Register(c echo.Context) error {
	var in model.MovementInput
	if err := c.Bind(&in); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	fields, warnings := in.Validate()
	if len(fields) > 0 {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", fields)
	}

	ctx := c.Request().Context()
	owner, err := h.Users.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		h.Log.Error().Err(err).Msg("movement: load owner")
		return jsonError(c, http.StatusInternalServerError, "could not register movement")
	}

	m := in.ToMovement(owner)
	id, err := h.Movements.Create(ctx, m)
	if err != nil {
		h.Log.Error().Err(err).Msg("movement: create")
		return jsonError(c, http.StatusInternalServerError, "could not register movement")
	}
	m.ID = id
	m.CreatedAt = time.Now().UTC()

	if m.State == model.StateCompleted {
		h.publishCompleted(m, owner)
	}

	h.Log.Info().Uint64("movement_id", id).Uint64("user_id", owner.ID).
		Str("region", m.Region).Msg("movement registered")

	resp := echo.Map{
		"success":  true,
		"movement": m,
		"user":     owner.Public(),
	}
	if len(warnings) > 0 {
		resp["warnings"] = warnings
	}
	return c.JSON(http.StatusCreated, resp)
}

// Daily returns the caller's movements and aggregate for one calendar
// day. Admins may aggregate another user (or everyone) via ?user_id.
// A day with no movements yields a zero-valued aggregate, not an error.
func (h *MovementHandler) Daily(c echo.Context) error {
	day, err := time.Parse("2006-01-02", c.Param("date"))
	if err != nil {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"date"})
	}
	return h.rangeResponse(c, day, day.AddDate(0, 0, 1))
}

// Monthly returns the caller's movements and aggregate for one
// calendar month. Each movement carries its start location so clients
// can render the month on a map.
func (h *MovementHandler) Monthly(c echo.Context) error {
	month, errM := strconv.Atoi(c.Param("month"))
	year, errY := strconv.Atoi(c.Param("year"))
	if errM != nil || errY != nil || month < 1 || month > 12 {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"month", "year"})
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return h.rangeResponse(c, from, from.AddDate(0, 1, 0))
}

func (h *MovementHandler) rangeResponse(c echo.Context, from, to time.Time) error {
	userID := middleware.UserID(c)
	if middleware.Role(c) == model.RoleAdmin {
		if q := c.QueryParam("user_id"); q != "" {
			id, err := strconv.ParseUint(q, 10, 64)
			if err != nil {
				return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"user_id"})
			}
			userID = id // 0 aggregates everyone
		}
	}

	ctx := c.Request().Context()
	agg, err := h.Movements.AggregateRange(ctx, userID, from, to)
	if err != nil {
		h.Log.Error().Err(err).Msg("movement: aggregate range")
		return jsonError(c, http.StatusInternalServerError, "could not compute aggregate")
	}
	movements, err := h.Movements.ListRange(ctx, userID, "", from, to)
	if err != nil {
		h.Log.Error().Err(err).Msg("movement: list range")
		return jsonError(c, http.StatusInternalServerError, "could not list movements")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":   true,
		"aggregate": agg,
		"movements": emptyIfNil(movements),
	})
}

// movementPatch is the allow-list of fields an update may touch.
// Anything else in the request body is ignored; owners cannot move a
// record between users or resurrect a soft-deleted one.
type movementPatch struct {
	State        *string              `json:"state"`
	EndLocation  *model.LocationInput `json:"end_location"`
	DistanceKM   *float64             `json:"distance_km"`
	AvgSpeedKMH  *float64             `json:"avg_speed_kmh"`
	MaxSpeedKMH  *float64             `json:"max_speed_kmh"`
	DurationMin  *float64             `json:"duration_min"`
	Date         *string              `json:"date"`
	Region       *string              `json:"region"`
	Observations *string              `json:"observations"`
	Route        []model.RoutePoint   `json:"route"`
	Incidents    []model.Incident     `json:"incidents"`
}

// Update applies an allow-listed patch to a movement. Only the owner
// or an admin may touch it. A transition into the completed state
// stamps the end time and recomputes the duration from the start fix.
func (h *MovementHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"id"})
	}
	var patch movementPatch
	if err := c.Bind(&patch); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}

	ctx := c.Request().Context()
	m, err := h.Movements.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "movement not found")
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("movement: load for update")
		return jsonError(c, http.StatusInternalServerError, "could not update movement")
	}
	if !m.IsActive {
		return jsonError(c, http.StatusNotFound, "movement not found")
	}
	if m.UserID != middleware.UserID(c) && middleware.Role(c) != model.RoleAdmin {
		return jsonError(c, http.StatusForbidden, "insufficient permissions")
	}

	var fields []string
	if patch.State != nil && !model.ValidState(*patch.State) {
		fields = append(fields, "state")
	}
	var patchDate time.Time
	if patch.Date != nil {
		d, ok := model.ParseDate(*patch.Date)
		if !ok {
			fields = append(fields, "date")
		}
		patchDate = d
	}
	if patch.Region != nil && !model.ValidRegion(*patch.Region) {
		fields = append(fields, "region")
	}
	for _, n := range []struct {
		name  string
		value *float64
	}{
		{"distance_km", patch.DistanceKM},
		{"avg_speed_kmh", patch.AvgSpeedKMH},
		{"max_speed_kmh", patch.MaxSpeedKMH},
		{"duration_min", patch.DurationMin},
	} {
		if n.value != nil && *n.value < 0 {
			fields = append(fields, n.name)
		}
	}
	if patch.EndLocation != nil && (patch.EndLocation.Latitude == nil || patch.EndLocation.Longitude == nil) {
		fields = append(fields, "end_location")
	}
	if len(fields) > 0 {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", fields)
	}

	wasCompleted := m.State == model.StateCompleted
	now := time.Now().UTC()

	if patch.EndLocation != nil {
		end := model.Location{
			Latitude:  *patch.EndLocation.Latitude,
			Longitude: *patch.EndLocation.Longitude,
			Timestamp: now,
			Address:   patch.EndLocation.Address,
		}
		if patch.EndLocation.Timestamp != nil {
			end.Timestamp = *patch.EndLocation.Timestamp
		}
		m.End = &end
	}
	if patch.DistanceKM != nil {
		m.DistanceKM = *patch.DistanceKM
	}
	if patch.AvgSpeedKMH != nil {
		m.AvgSpeedKMH = *patch.AvgSpeedKMH
	}
	if patch.MaxSpeedKMH != nil {
		m.MaxSpeedKMH = *patch.MaxSpeedKMH
	}
	if patch.DurationMin != nil {
		m.DurationMin = *patch.DurationMin
	}
	if patch.Date != nil {
		m.Date = patchDate
	}
	if patch.Region != nil {
		m.Region = *patch.Region
	}
	if patch.Observations != nil {
		m.Observations = *patch.Observations
	}
	if patch.Route != nil {
		m.Route = patch.Route
	}
	if patch.Incidents != nil {
		m.Incidents = patch.Incidents
	}
	if patch.State != nil {
		if *patch.State == model.StateCompleted && !wasCompleted {
			endedAt := now
			if m.End != nil && !m.End.Timestamp.IsZero() {
				endedAt = m.End.Timestamp
			}
			m.Complete(endedAt)
		} else {
			m.State = *patch.State
		}
	}

	if err := h.Movements.Update(ctx, m); err != nil {
		h.Log.Error().Err(err).Uint64("movement_id", id).Msg("movement: update")
		return jsonError(c, http.StatusInternalServerError, "could not update movement")
	}

	if m.State == model.StateCompleted && !wasCompleted {
		if owner, err := h.Users.GetByID(ctx, m.UserID); err == nil {
			h.publishCompleted(m, owner)
		}
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "movement": m})
}

// Delete soft-deletes a movement. Admin only; the record survives for
// audit but leaves every listing and aggregate.
func (h *MovementHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"id"})
	}
	err = h.Movements.SoftDelete(c.Request().Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "movement not found")
	}
	if err != nil {
		h.Log.Error().Err(err).Uint64("movement_id", id).Msg("movement: soft delete")
		return jsonError(c, http.StatusInternalServerError, "could not delete movement")
	}
	h.Log.Info().Uint64("movement_id", id).Uint64("admin_id", middleware.UserID(c)).
		Msg("movement soft-deleted")
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "movement deleted"})
}

// ListAll returns every movement in the system, soft-deleted records
// included. Admin only; ?user_id= narrows to one user.
func (h *MovementHandler) ListAll(c echo.Context) error {
	var userID uint64
	if q := c.QueryParam("user_id"); q != "" {
		id, err := strconv.ParseUint(q, 10, 64)
		if err != nil {
			return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"user_id"})
		}
		userID = id
	}
	movements, err := h.Movements.List(c.Request().Context(), userID, true)
	if err != nil {
		h.Log.Error().Err(err).Msg("movement: list all")
		return jsonError(c, http.StatusInternalServerError, "could not list movements")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "movements": emptyIfNil(movements)})
}

// Export streams the month's movements as an XLSX workbook, optionally
// narrowed with ?region=. Admin only.
func (h *MovementHandler) Export(c echo.Context) error {
	month, errM := strconv.Atoi(c.Param("month"))
	year, errY := strconv.Atoi(c.Param("year"))
	if errM != nil || errY != nil || month < 1 || month > 12 {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"month", "year"})
	}
	region := c.QueryParam("region")
	if region != "" && !model.ValidRegion(region) {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"region"})
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)

	ctx := c.Request().Context()
	movements, err := h.Movements.ListRange(ctx, 0, region, from, from.AddDate(0, 1, 0))
	if err != nil {
		h.Log.Error().Err(err).Msg("movement: export list")
		return jsonError(c, http.StatusInternalServerError, "could not export movements")
	}
	users, err := h.Users.List(ctx, "")
	if err != nil {
		h.Log.Error().Err(err).Msg("movement: export users")
		return jsonError(c, http.StatusInternalServerError, "could not export movements")
	}
	names := make(map[uint64]string, len(users))
	for _, u := range users {
		names[u.ID] = u.FullName
	}

	xlsx, err := report.MovementsWorkbook(movements, names)
	if err != nil {
		h.Log.Error().Err(err).Msg("movement: build workbook")
		return jsonError(c, http.StatusInternalServerError, "could not export movements")
	}

	filename := fmt.Sprintf("movements-%04d-%02d.xlsx", year, month)
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", xlsx)
}

func (h *MovementHandler) publishCompleted(m model.Movement, owner model.User) {
	endedAt := time.Now().UTC()
	if m.EndedAt != nil {
		endedAt = *m.EndedAt
	}
	ev := queue.MovementCompletedEvent{
		MovementID:  m.ID,
		UserID:      owner.ID,
		UserName:    owner.FullName,
		Region:      m.Region,
		Kind:        m.Kind,
		DistanceKM:  m.DistanceKM,
		DurationMin: m.DurationMin,
		EndedAt:     endedAt,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = queue_publisher.PublishMovementCompleted(ctx, h.RabbitURL, ev, h.Log)
	}()
}

func emptyIfNil(ms []model.Movement) []model.Movement {
	if ms == nil {
		return []model.Movement{}
	}
	return ms
}
