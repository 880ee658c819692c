package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/assistly/assistant-backend/internal/middleware"
	"github.com/assistly/assistant-backend/internal/repository"
	"github.com/assistly/assistant-backend/internal/utils"
)

// MeHandler serves the authed user's own profile.
type MeHandler struct {
	Users      *repository.UserRepo
	BcryptCost int
}

func NewMeHandler(users *repository.UserRepo, bcryptCost int) *MeHandler {
	return &MeHandler{Users: users, BcryptCost: bcryptCost}
}

type profilePatchReq struct {
	FullName *string `json:"full_name"`
}
type passwordPatchReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// Get returns the profile of the token's user.
func (h *MeHandler) Get(c echo.Context) error {
	tenant, _ := middleware.TenantFrom(c)
	u, ok := middleware.UserFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	return c.JSON(http.StatusOK, publicUser(tenant, u))
}

// Update patches mutable profile fields. Only full_name for now.
func (h *MeHandler) Update(c echo.Context) error {
	tenant, _ := middleware.TenantFrom(c)
	u, ok := middleware.UserFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req profilePatchReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.FullName != nil {
		u.FullName = strings.TrimSpace(*req.FullName)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdateProfile(ctx, &u); err != nil {
		zap.L().Error("profile update failed", zap.String("user_id", u.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, publicUser(tenant, u))
}

// ChangePassword verifies the current password before replacing it.
// Federated and anonymous accounts have no password to change.
func (h *MeHandler) ChangePassword(c echo.Context) error {
	u, ok := middleware.UserFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req passwordPatchReq
	if err := c.Bind(&req); err != nil || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new_password required"})
	}
	if u.HashedPassword == nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "account has no password"})
	}
	if !utils.VerifyPassword(*u.HashedPassword, req.CurrentPassword) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "current password incorrect"})
	}

	hashed, err := utils.HashPassword(req.NewPassword, h.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash failed"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.UpdatePassword(ctx, u.ID, hashed); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Delete deactivates the account. Rows stay for the ledger's sake, the
// auth middleware rejects inactive users from then on.
func (h *MeHandler) Delete(c echo.Context) error {
	u, ok := middleware.UserFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.SetActive(ctx, u.ID, false); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "account deactivated"})
}
