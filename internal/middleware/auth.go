// Package middleware provides the request gates executed before
// business logic: bearer-token authentication, role enforcement and
// auth-route rate limiting.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/supervitec/field-movement-api/internal/auth"
	"github.com/supervitec/field-movement-api/internal/session"
)

// Context keys populated by Authenticate for downstream handlers.
const (
	CtxUserID  = "user_id"
	CtxEmail   = "email"
	CtxRole    = "role"
	CtxName    = "name"
	CtxTokenID = "token_id"
)

// Authenticate validates the Bearer access token on every protected
// route. A missing or malformed header, a bad signature and a passed
// expiry each terminate the request with 401 before any handler runs.
// On success the decoded claims land in the request context and the
// session tracker records activity; tracking is advisory and never
// fails the request.
func Authenticate(issuer *auth.Issuer, sessions *session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "message": "missing bearer token",
				})
			}
			raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "message": "missing bearer token",
				})
			}

			claims, err := issuer.VerifyAccess(raw)
			if err != nil {
				msg := "invalid token"
				if errors.Is(err, auth.ErrTokenExpired) {
					msg = "token expired"
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"success": false, "message": msg,
				})
			}

			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxEmail, claims.Email)
			c.Set(CtxRole, claims.Role)
			c.Set(CtxName, claims.Name)
			c.Set(CtxTokenID, claims.TokenID)

			if sessions != nil {
				ip := c.RealIP()
				ua := c.Request().UserAgent()
				go func(cl auth.Claims) {
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = sessions.RecordActivity(ctx, cl.UserID, cl.TokenID, ip, ua)
				}(claims)
			}
			return next(c)
		}
	}
}

// UserID returns the authenticated user's id from the context, or 0.
func UserID(c echo.Context) uint64 {
	id, _ := c.Get(CtxUserID).(uint64)
	return id
}

// Role returns the authenticated user's role from the context.
func Role(c echo.Context) string {
	r, _ := c.Get(CtxRole).(string)
	return r
}
