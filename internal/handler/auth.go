package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/supervitec/field-movement-api/internal/auth"
	"github.com/supervitec/field-movement-api/internal/config"
	"github.com/supervitec/field-movement-api/internal/mailer"
	"github.com/supervitec/field-movement-api/internal/middleware"
	"github.com/supervitec/field-movement-api/internal/model"
	"github.com/supervitec/field-movement-api/internal/repository"
	"github.com/supervitec/field-movement-api/internal/utils"
)

const minPasswordLen = 6

// resetTokenTTL bounds how long a password-recovery link stays usable.
const resetTokenTTL = time.Hour

// AuthHandler implements registration, login, token refresh and the
// password lifecycle.
type AuthHandler struct {
	Users    UserStore
	Issuer   *auth.Issuer
	Sessions SessionStore
	Mail     *mailer.Mailer
	Cfg      config.Config
	Log      zerolog.Logger
}

type registerRequest struct {
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	Region    string `json:"region"`
	Transport string `json:"transport"`
}

// Register creates an account. The role defaults to inspector; only
// the seeded bootstrap path creates admins, never this endpoint.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}

	var fields []string
	if req.FullName == "" {
		fields = append(fields, "full_name")
	}
	if req.Email == "" {
		fields = append(fields, "email")
	}
	if len(req.Password) < minPasswordLen {
		fields = append(fields, "password")
	}
	if !model.ValidRegion(req.Region) {
		fields = append(fields, "region")
	}
	if !model.ValidTransport(req.Transport) {
		fields = append(fields, "transport")
	}
	if req.Role == "" {
		req.Role = model.RoleInspector
	}
	if req.Role == model.RoleAdmin || !model.ValidRole(req.Role) {
		fields = append(fields, "role")
	}
	if len(fields) > 0 {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", fields)
	}

	u := model.User{
		FullName:  req.FullName,
		Email:     req.Email,
		Role:      req.Role,
		Region:    req.Region,
		Transport: req.Transport,
		IsActive:  true,
	}
	id, err := h.Users.Create(c.Request().Context(), u, req.Password, h.Cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return jsonError(c, http.StatusConflict, "email already registered")
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("register: create user")
		return jsonError(c, http.StatusInternalServerError, "could not create user")
	}
	u.ID = id

	pair, err := h.Issuer.IssuePair(u)
	if err != nil {
		h.Log.Error().Err(err).Msg("register: issue tokens")
		return jsonError(c, http.StatusInternalServerError, "could not issue tokens")
	}
	h.Log.Info().Uint64("user_id", id).Str("email", u.Email).Msg("user registered")
	return c.JSON(http.StatusCreated, echo.Map{
		"success":       true,
		"user":          u.Public(),
		"access_token":  pair.Access.Token,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.Access.ExpiresAt,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a fresh token pair. Disabled
// accounts authenticate but are rejected with 403 so the client can
// show a distinct message.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Password == "" {
		return jsonError(c, http.StatusBadRequest, "email and password are required")
	}

	ctx := c.Request().Context()
	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("login: load user")
		return jsonError(c, http.StatusInternalServerError, "could not sign in")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return jsonError(c, http.StatusUnauthorized, "invalid credentials")
	}
	if !u.IsActive {
		return jsonError(c, http.StatusForbidden, "account is disabled")
	}

	pair, err := h.Issuer.IssuePair(u)
	if err != nil {
		h.Log.Error().Err(err).Msg("login: issue tokens")
		return jsonError(c, http.StatusInternalServerError, "could not sign in")
	}
	if err := h.Users.TouchLogin(ctx, u.ID); err != nil {
		h.Log.Warn().Err(err).Uint64("user_id", u.ID).Msg("login: touch last_login")
	}
	_ = h.Sessions.RecordActivity(ctx, u.ID, pair.Access.TokenID, c.RealIP(), c.Request().UserAgent())

	h.Log.Info().Uint64("user_id", u.ID).Msg("user logged in")
	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"user":          u.Public(),
		"access_token":  pair.Access.Token,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.Access.ExpiresAt,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh rotates a valid refresh token into a brand-new pair. The
// consumed token's id goes into the revocation set for the remainder
// of its life, so a replayed refresh token is rejected even though its
// signature and expiry still verify.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshRequest
	if err := c.Bind(&req); err != nil || req.RefreshToken == "" {
		return jsonError(c, http.StatusBadRequest, "refresh_token is required")
	}

	claims, err := h.Issuer.VerifyRefresh(req.RefreshToken)
	if err != nil {
		msg := "invalid token"
		if errors.Is(err, auth.ErrTokenExpired) {
			msg = "token expired"
		}
		return jsonError(c, http.StatusUnauthorized, msg)
	}

	ctx := c.Request().Context()
	if h.Sessions.IsRevoked(ctx, claims.TokenID) {
		return jsonError(c, http.StatusUnauthorized, "invalid token")
	}

	u, err := h.Users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusUnauthorized, "invalid token")
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("refresh: load user")
		return jsonError(c, http.StatusInternalServerError, "could not refresh session")
	}
	if !u.IsActive {
		return jsonError(c, http.StatusForbidden, "account is disabled")
	}

	if err := h.Sessions.RevokeToken(ctx, claims.TokenID, time.Until(claims.ExpiresAt)); err != nil {
		h.Log.Warn().Err(err).Str("token_id", claims.TokenID).Msg("refresh: revoke consumed token")
	}
	_ = h.Sessions.EndSession(ctx, u.ID, claims.TokenID)

	pair, err := h.Issuer.IssuePair(u)
	if err != nil {
		h.Log.Error().Err(err).Msg("refresh: issue tokens")
		return jsonError(c, http.StatusInternalServerError, "could not refresh session")
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success":       true,
		"access_token":  pair.Access.Token,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.Access.ExpiresAt,
	})
}

// Logout ends the caller's session and, when the client hands back its
// refresh token, revokes it for the remainder of its life.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	userID := middleware.UserID(c)
	tokenID, _ := c.Get(middleware.CtxTokenID).(string)

	var req refreshRequest
	if err := c.Bind(&req); err == nil && req.RefreshToken != "" {
		if claims, err := h.Issuer.VerifyRefresh(req.RefreshToken); err == nil {
			_ = h.Sessions.RevokeToken(ctx, claims.TokenID, time.Until(claims.ExpiresAt))
		}
	}
	_ = h.Sessions.EndSession(ctx, userID, tokenID)

	h.Log.Info().Uint64("user_id", userID).Msg("user logged out")
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "logged out"})
}

// Me returns the authenticated user's own record.
func (h *AuthHandler) Me(c echo.Context) error {
	u, err := h.Users.GetByID(c.Request().Context(), middleware.UserID(c))
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "user not found")
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("me: load user")
		return jsonError(c, http.StatusInternalServerError, "could not load user")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u.Public()})
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword rotates the caller's password after re-checking the
// current one.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request body")
	}
	if len(req.NewPassword) < minPasswordLen {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"new_password"})
	}

	ctx := c.Request().Context()
	u, err := h.Users.GetByID(ctx, middleware.UserID(c))
	if err != nil {
		h.Log.Error().Err(err).Msg("change-password: load user")
		return jsonError(c, http.StatusInternalServerError, "could not change password")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
		return jsonError(c, http.StatusUnauthorized, "current password is incorrect")
	}
	if err := h.Users.UpdatePassword(ctx, u.ID, req.NewPassword, h.Cfg.BcryptCost); err != nil {
		h.Log.Error().Err(err).Msg("change-password: update")
		return jsonError(c, http.StatusInternalServerError, "could not change password")
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "password updated"})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset issues a one-hour recovery token and mails a
// reset link. Delivery is synchronous: the client must know whether
// the mail actually went out.
func (h *AuthHandler) RequestPasswordReset(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return jsonError(c, http.StatusBadRequest, "email is required")
	}
	// Recovery is the one flow where the response must reflect actual
	// delivery; with no SMTP relay configured there is nothing to
	// promise, so fail up front instead of answering 200 for a mail
	// that never left.
	if !h.Mail.Enabled() {
		return jsonError(c, http.StatusServiceUnavailable, "mail service is not available")
	}

	ctx := c.Request().Context()
	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusNotFound, "email not registered")
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("password-reset: load user")
		return jsonError(c, http.StatusInternalServerError, "could not start recovery")
	}

	token, err := utils.RandomHex(32)
	if err != nil {
		h.Log.Error().Err(err).Msg("password-reset: token generation")
		return jsonError(c, http.StatusInternalServerError, "could not start recovery")
	}
	expires := time.Now().UTC().Add(resetTokenTTL)
	if err := h.Users.SetResetToken(ctx, u.ID, token, expires); err != nil {
		h.Log.Error().Err(err).Msg("password-reset: store token")
		return jsonError(c, http.StatusInternalServerError, "could not start recovery")
	}

	if err := h.Mail.SendPasswordReset(u.Email, u.FullName, h.Cfg.FrontendURL, token); err != nil {
		h.Log.Error().Err(err).Str("email", u.Email).Msg("password-reset: send mail")
		return jsonError(c, http.StatusInternalServerError, "could not send recovery email")
	}

	h.Log.Info().Uint64("user_id", u.ID).Msg("password recovery mail sent")
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "recovery email sent"})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ResetPassword consumes a recovery token and sets the new password.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil || req.Token == "" {
		return jsonError(c, http.StatusBadRequest, "token is required")
	}
	if len(req.Password) < minPasswordLen {
		return jsonValidation(c, http.StatusBadRequest, "validation failed", []string{"password"})
	}

	ctx := c.Request().Context()
	u, err := h.Users.GetByResetToken(ctx, req.Token)
	if errors.Is(err, repository.ErrNotFound) {
		return jsonError(c, http.StatusBadRequest, "invalid or expired token")
	}
	if err != nil {
		h.Log.Error().Err(err).Msg("password-reset: lookup token")
		return jsonError(c, http.StatusInternalServerError, "could not reset password")
	}

	if err := h.Users.UpdatePassword(ctx, u.ID, req.Password, h.Cfg.BcryptCost); err != nil {
		h.Log.Error().Err(err).Msg("password-reset: update password")
		return jsonError(c, http.StatusInternalServerError, "could not reset password")
	}
	if err := h.Users.ClearResetToken(ctx, u.ID); err != nil {
		h.Log.Warn().Err(err).Uint64("user_id", u.ID).Msg("password-reset: clear token")
	}

	h.Log.Info().Uint64("user_id", u.ID).Msg("password reset completed")
	return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "password updated"})
}
