package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/assistly/assistant-backend/internal/model"
	"github.com/assistly/assistant-backend/internal/repository"
	"github.com/assistly/assistant-backend/internal/service"
)

// TenantKeyHeader carries the tenant resolution key on every request.
const TenantKeyHeader = "X-Tenant-Key"

// ResolveTenant returns middleware that resolves the tenant once per
// request and stores it in the context. Downstream middleware and handlers
// read the resolved tenant instead of re-resolving the key, so the tenant
// a token is checked against is the tenant the request was admitted for.
func ResolveTenant(resolver *service.TenantResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(TenantKeyHeader)
			tenant, err := resolver.Resolve(c.Request().Context(), key)
			if err != nil {
				if errors.Is(err, repository.ErrTenantInactive) {
					return c.JSON(http.StatusForbidden, echo.Map{"error": "tenant inactive"})
				}
				if errors.Is(err, repository.ErrTenantNotFound) {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown tenant"})
				}
				zap.L().Error("tenant resolution failed", zap.Error(err))
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "tenant resolution failed"})
			}
			c.Set("tenant", tenant)
			return next(c)
		}
	}
}

// TenantFrom extracts the resolved tenant stored by ResolveTenant.
func TenantFrom(c echo.Context) (model.Tenant, bool) {
	t, ok := c.Get("tenant").(model.Tenant)
	return t, ok
}

// tenantIDFrom returns the resolved tenant's ID or "none"; used for
// tenant-scoped cache and rate-limit keys.
func tenantIDFrom(c echo.Context) string {
	if t, ok := TenantFrom(c); ok {
		return t.ID
	}
	return "none"
}
