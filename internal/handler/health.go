package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health answers liveness probes. It runs outside tenant resolution so a
// balancer without a tenant key can still reach it.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
