// Package router wires every HTTP route to its handler and gates.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/supervitec/field-movement-api/internal/auth"
	"github.com/supervitec/field-movement-api/internal/config"
	"github.com/supervitec/field-movement-api/internal/handler"
	"github.com/supervitec/field-movement-api/internal/middleware"
	"github.com/supervitec/field-movement-api/internal/session"
)

// Deps carries everything route registration needs. Handlers are
// constructed by the caller so tests can register the same surface
// against fakes.
type Deps struct {
	Issuer    *auth.Issuer
	Sessions  *session.Store
	Redis     *redis.Client
	RateLimit config.RateLimitConfig

	Auth        *handler.AuthHandler
	Movements   *handler.MovementHandler
	Users       *handler.UserHandler
	Messages    *handler.MessageHandler
	Dashboard   *handler.DashboardHandler
	AdminConfig *handler.AdminConfigHandler
	Health      *handler.HealthHandler
}

// Register mounts the whole API under /api/v1. The auth group carries
// the per-IP rate limiter; everything else requires a valid access
// token, and admin-only routes add the role gate per route.
func Register(e *echo.Echo, d Deps) {
	api := e.Group("/api/v1")
	api.GET("/system/health", d.Health.Check)

	// Credential endpoints: throttled, no token required.
	authGroup := api.Group("/auth")
	authGroup.Use(middleware.NewAuthRateLimiter(d.RateLimit, d.Redis))
	authGroup.POST("/register", d.Auth.Register)
	authGroup.POST("/login", d.Auth.Login)
	authGroup.POST("/refresh", d.Auth.Refresh)
	authGroup.POST("/request-password-reset", d.Auth.RequestPasswordReset)
	authGroup.POST("/reset-password", d.Auth.ResetPassword)

	authed := api.Group("")
	authed.Use(middleware.Authenticate(d.Issuer, d.Sessions))
	admin := middleware.RequireAdmin()

	authed.POST("/auth/logout", d.Auth.Logout)
	authed.GET("/auth/me", d.Auth.Me)
	authed.PUT("/auth/change-password", d.Auth.ChangePassword)

	// Movements. Registration and the per-caller aggregates are open
	// to any authenticated user; the full listing, deletion and the
	// export are admin surface.
	authed.POST("/movements", d.Movements.Register)
	authed.GET("/movements/daily/:date", d.Movements.Daily)
	authed.GET("/movements/monthly/:month/:year", d.Movements.Monthly)
	authed.PATCH("/movements/:id", d.Movements.Update)
	authed.GET("/movements", d.Movements.ListAll, admin)
	authed.DELETE("/movements/:id", d.Movements.Delete, admin)
	authed.GET("/movements/export/:month/:year", d.Movements.Export, admin)

	// Messaging.
	authed.POST("/messages", d.Messages.Send)
	authed.GET("/messages", d.Messages.Inbox)
	authed.GET("/messages/admin/all", d.Messages.ListAll, admin)
	authed.GET("/messages/admin/user/:userId", d.Messages.ListForUser, admin)
	authed.PUT("/messages/read-all", d.Messages.MarkAllRead)
	authed.GET("/messages/:id", d.Messages.Get)
	authed.PUT("/messages/:id/read", d.Messages.MarkRead)
	authed.DELETE("/messages/:id", d.Messages.Delete)

	authed.GET("/dashboard/stats", d.Dashboard.Stats)
	authed.GET("/dashboard/recent-activity", d.Dashboard.RecentActivity, admin)
	authed.GET("/dashboard/metrics", d.Dashboard.Metrics, admin)
	authed.GET("/dashboard/charts", d.Dashboard.Charts, admin)

	// Per-admin platform preferences.
	authed.GET("/admin/config", d.AdminConfig.Get, admin)
	authed.PUT("/admin/config", d.AdminConfig.Update, admin)

	// User management, all admin.
	users := authed.Group("/users", admin)
	users.GET("", d.Users.List)
	users.GET("/:id", d.Users.Get)
	users.PUT("/:id", d.Users.Update)
	users.PATCH("/:id/toggle-status", d.Users.Toggle)
	users.DELETE("/:id", d.Users.Delete)
	users.GET("/:id/sessions", d.Users.ActiveSessions)
}
