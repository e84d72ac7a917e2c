package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/supervitec/field-movement-api/internal/model"
)

// RequireRole enforces that the authenticated user holds one of the
// given roles. It assumes Authenticate already stored the role in the
// context; a missing or unknown role is rejected with 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(string)
			if !ok || !allowed[role] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"success": false, "message": "insufficient permissions",
				})
			}
			return next(c)
		}
	}
}

// RequireAdmin gates admin-only routes. Tokens minted before the
// claims schema was unified carry the role under the legacy "rol"
// key; claim decoding in the auth package accepts both, so a single
// role check here covers old and new tokens alike.
func RequireAdmin() echo.MiddlewareFunc {
	return RequireRole(model.RoleAdmin)
}
