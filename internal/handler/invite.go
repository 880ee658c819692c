package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/assistly/assistant-backend/internal/middleware"
	"github.com/assistly/assistant-backend/internal/model"
	"github.com/assistly/assistant-backend/internal/service"
	"github.com/assistly/assistant-backend/internal/utils"
)

// InviteHandler covers invitation creation (authenticated) and the public
// lookup used by the deeplink landing page.
type InviteHandler struct {
	Accounts *service.AccountService
}

func NewInviteHandler(accounts *service.AccountService) *InviteHandler {
	return &InviteHandler{Accounts: accounts}
}

type inviteReq struct {
	Email string `json:"email"`
}

// Create issues an invitation for the given email and returns the
// deeplink the caller can share. The inviter is the authed user.
func (h *InviteHandler) Create(c echo.Context) error {
	tenant, ok := middleware.TenantFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown tenant"})
	}
	inviter, ok := middleware.UserFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req inviteReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cred, err := h.Accounts.Invite(ctx, tenant, inviter, req.Email)
	if err != nil {
		if errors.Is(err, service.ErrInviteeExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "user already registered"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "invite failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"deeplink":   fmt.Sprintf("%s/invite?code=%s", tenant.DeeplinkBaseURL, cred.Code),
		"expires_at": cred.ExpiresAt,
	})
}

// Lookup is the public, read-only side: the landing page shows who was
// invited without consuming the code.
func (h *InviteHandler) Lookup(c echo.Context) error {
	tenant, ok := middleware.TenantFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown tenant"})
	}
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cred, err := h.Accounts.InviteLookup(ctx, tenant, code)
	if err != nil {
		switch {
		case errors.Is(err, model.ErrCredentialNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "code_not_found"})
		case errors.Is(err, model.ErrCredentialExpired):
			return c.JSON(http.StatusGone, echo.Map{"error": "code_expired"})
		case errors.Is(err, model.ErrCredentialAlreadyConsumed):
			return c.JSON(http.StatusGone, echo.Map{"error": "code_consumed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"email":      utils.DetagEmail(tenant.Tag, cred.Email),
		"expires_at": cred.ExpiresAt,
	})
}
