package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/supervitec/field-movement-api/internal/middleware"
	"github.com/supervitec/field-movement-api/internal/model"
	"github.com/supervitec/field-movement-api/internal/repository"
	"github.com/supervitec/field-movement-api/internal/session"
)

// UserHandler is the admin surface for managing accounts.
type UserHandler struct {
	Users    *repository.UserRepo
	Sessions *session.Store
	Log      zerolog.Logger
}

// List returns all users, optionally filtered with ?region=.
func (h *UserHandler) List(c echo.Context) error {
	region := c.QueryParam("region")
	if region != "" && !model.ValidRegion(region) {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"region"})
	}
	users, err := h.Users.List(c.Request().Context(), region)
	if err != nil {
		h.Log.Error().Err(err).Msg("users: list")
		return jsonError(c, http.StatusInternalServerError, "could not list users")
	}
	out := make([]model.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "users": out})
}

// Get returns one user.
func (h *UserHandler) Get(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"id"})
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "user not found")
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("users: get")
		return jsonError(c, http.StatusInternalServerError, "could not load user")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u.Public()})
}

type userPatch struct {
	FullName *string `json:"full_name"`
	Email    *string `json:"email"`
}

// Update changes a user's profile fields (name, email).
func (h *UserHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"id"})
	}
	var patch userPatch
	if err := c.Bind(&patch); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	if patch.Email != nil && *patch.Email == "" {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"email"})
	}

	ctx := c.Request().Context()
	if _, err := h.Users.GetByID(ctx, id); errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "user not found")
	}

	err = h.Users.UpdateProfile(ctx, id, patch.FullName, patch.Email)
	if errors.Is(err, repository.ErrEmailExists) {
		return jsonError(c, http.StatusConflict, "email already registered")
	}
	if err != nil {
		h.Log.Error().Err(err).Uint64("user_id", id).Msg("users: update")
		return jsonError(c, http.StatusInternalServerError, "could not update user")
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		h.Log.Error().Err(err).Msg("users: reload after update")
		return jsonError(c, http.StatusInternalServerError, "could not update user")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u.Public()})
}

type toggleRequest struct {
	Active *bool `json:"active"`
}

// Toggle flips or sets an account's active flag. Without a body the
// flag is inverted; {"active": bool} sets it explicitly. A disabled
// account keeps its data but can no longer sign in or refresh.
func (h *UserHandler) Toggle(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"id"})
	}
	var req toggleRequest
	_ = c.Bind(&req)

	ctx := c.Request().Context()
	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "user not found")
	}
	if err != nil {
		h.Log.Error().Err(err).Uint64("user_id", id).Msg("users: load for toggle")
		return jsonError(c, http.StatusInternalServerError, "could not update user")
	}

	active := !u.IsActive
	if req.Active != nil {
		active = *req.Active
	}
	if id == middleware.UserID(c) && !active {
		return jsonError(c, http.StatusBadRequest, "cannot disable your own account")
	}

	if err := h.Users.SetActive(ctx, id, active); err != nil {
		h.Log.Error().Err(err).Uint64("user_id", id).Msg("users: toggle")
		return jsonError(c, http.StatusInternalServerError, "could not update user")
	}
	h.Log.Info().Uint64("user_id", id).Bool("active", active).
		Uint64("admin_id", middleware.UserID(c)).Msg("user active flag changed")
	return c.JSON(http.StatusOK, echo.Map{"success": true, "active": active})
}

// Delete removes a user entirely. Their movements are soft-deleted and
// their messages removed in the same transaction, so history stays
// consistent without orphaned references.
func (h *UserHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"id"})
	}
	if id == middleware.UserID(c) {
		return jsonError(c, http.StatusBadRequest, "cannot delete your own account")
	}

	err = h.Users.DeleteCascade(c.Request().Context(), id)
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "user not found")
	}
	if err != nil {
		h.Log.Error().Err(err).Uint64("user_id", id).Msg("users: delete cascade")
		return jsonError(c, http.StatusInternalServerError, "could not delete user")
	}
	h.Log.Info().Uint64("user_id", id).Uint64("admin_id", middleware.UserID(c)).
		Msg("user deleted")
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "user deleted"})
}

// ActiveSessions lists a user's live sessions. Stale descriptors are
// pruned first so the admin view never shows sessions past the
// inactivity threshold or the hard ceiling.
func (h *UserHandler) ActiveSessions(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"id"})
	}
	ctx := c.Request().Context()
	if err := h.Sessions.PruneExpired(ctx, id); err != nil {
		h.Log.Warn().Err(err).Uint64("user_id", id).Msg("users: prune sessions")
	}
	sessions, err := h.Sessions.ActiveSessions(ctx, id)
	if err != nil {
		h.Log.Error().Err(err).Uint64("user_id", id).Msg("users: list sessions")
		return jsonError(c, http.StatusInternalServerError, "could not list sessions")
	}
	if sessions == nil {
		sessions = []session.Descriptor{}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "sessions": sessions})
}
