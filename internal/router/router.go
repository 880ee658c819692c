// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/assistly/assistant-backend/internal/config"
	"github.com/assistly/assistant-backend/internal/handler"
	"github.com/assistly/assistant-backend/internal/middleware"
	"github.com/assistly/assistant-backend/internal/repository"
	"github.com/assistly/assistant-backend/internal/service"
)

// Deps carries everything route registration needs. main builds one of
// these after wiring the services.
type Deps struct {
	Cfg      config.Config
	Rdb      *redis.Client
	Resolver *service.TenantResolver
	Users    *repository.UserRepo

	Auth   *handler.AuthHandler
	Invite *handler.InviteHandler
	Me     *handler.MeHandler
	Credit *handler.CreditHandler
	Admin  *handler.AdminHandler
}

// Register wires the full route table onto the Echo instance.
//
// Everything except /healthz runs behind tenant resolution: a request
// without a valid X-Tenant-Key never reaches a handler. On top of that,
// /v1/auth endpoints are public but rate-limited, /v1 endpoints require a
// valid access token, and /v1/admin additionally requires a superuser.
func Register(e *echo.Echo, d Deps) {
	// Health check stays outside tenant resolution so load balancers can
	// probe without a tenant key.
	e.GET("/healthz", handler.Health)

	resolve := middleware.ResolveTenant(d.Resolver)

	// Rate limiting protects the unauthenticated surface (login brute
	// force, verification code guessing). Disabled when Redis is absent.
	limited := []echo.MiddlewareFunc{resolve}
	if d.Rdb != nil {
		limited = append(limited, middleware.NewTokenBucket(config.LoadRateLimitConfig(), d.Rdb))
	}

	pub := e.Group("/v1/auth", limited...)
	pub.POST("/register", d.Auth.Register)
	pub.POST("/login", d.Auth.Login)
	pub.POST("/login-federated", d.Auth.LoginFederated)
	pub.POST("/refresh-token", d.Auth.Refresh)
	pub.POST("/verify", d.Auth.Verify)
	pub.POST("/verify/resend", d.Auth.ResendVerify)
	pub.POST("/password-recovery", d.Auth.PasswordRecovery)
	pub.POST("/reset-password", d.Auth.ResetPassword)

	// Invitation lookup is public: the landing page runs before the
	// invitee has an account.
	e.GET("/v1/invite/:code", d.Invite.Lookup, limited...)

	// Authenticated surface.
	auth := e.Group("/v1", resolve, middleware.JWTAuth(d.Cfg.JWTSecret, d.Users))

	auth.POST("/invite", d.Invite.Create)

	auth.GET("/me", d.Me.Get)
	auth.PATCH("/me", d.Me.Update)
	auth.PATCH("/me/password", d.Me.ChangePassword)
	auth.DELETE("/me", d.Me.Delete)

	auth.POST("/credit/add", d.Credit.AddCredit)
	auth.POST("/chat/charge", d.Credit.ChargeChat)
	auth.POST("/redeem/use/:code", d.Credit.UseRedeemCode)

	// The unit ID for a placement almost never changes; cache the lookup
	// per tenant when Redis is available.
	if d.Rdb != nil {
		auth.GET("/ads/unit-id", d.Credit.AdUnitID,
			middleware.NewRedisCache(config.LoadCacheConfig(), d.Rdb))
	} else {
		auth.GET("/ads/unit-id", d.Credit.AdUnitID)
	}
	auth.POST("/ads/reward", d.Credit.AdReward)

	// Superuser-only surface.
	admin := auth.Group("/admin", middleware.RequireSuperuser())
	admin.POST("/tenants", d.Admin.CreateTenant)
	admin.GET("/tenants", d.Admin.ListTenants)
	admin.GET("/tenants/:id", d.Admin.GetTenant)
	admin.PUT("/tenants/:id", d.Admin.UpdateTenant)
	admin.POST("/tenants/:id/rotate-key", d.Admin.RotateTenantKey)
	admin.POST("/redeem-codes", d.Admin.CreateRedeemCode)
	admin.DELETE("/redeem-codes/:code", d.Admin.DeleteRedeemCode)
	admin.POST("/ads", d.Admin.CreateAd)
}
