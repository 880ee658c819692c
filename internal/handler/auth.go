package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/assistly/assistant-backend/internal/config"
	"github.com/assistly/assistant-backend/internal/middleware"
	"github.com/assistly/assistant-backend/internal/model"
	"github.com/assistly/assistant-backend/internal/repository"
	"github.com/assistly/assistant-backend/internal/service"
	"github.com/assistly/assistant-backend/internal/utils"
)

// AuthHandler bundles dependencies for the register/login/verify/reset
// endpoints. Tenant resolution has already happened in middleware; every
// method reads the resolved tenant from the context.
type AuthHandler struct {
	Cfg      config.Config
	Accounts *service.AccountService
	Users    *repository.UserRepo
}

func NewAuthHandler(cfg config.Config, accounts *service.AccountService, users *repository.UserRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Accounts: accounts, Users: users}
}

// ----- DTOs -----

type registerReq struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	InviteCode string `json:"invite_code"`
	Anonymous  bool   `json:"anonymous"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type federatedReq struct {
	FederatedID string `json:"federated_id"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type codeReq struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}
type resetReq struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	FullName   string `json:"full_name,omitempty"`
	Credit     int    `json:"credit"`
	IsVerified bool   `json:"is_verified"`
	IsPremium  bool   `json:"is_premium"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func publicUser(tenant model.Tenant, u model.User) userPart {
	return userPart{
		ID:         u.ID,
		Email:      utils.DetagEmail(tenant.Tag, u.Email),
		FullName:   u.FullName,
		Credit:     u.Credit,
		IsVerified: u.IsVerified,
		IsPremium:  u.IsPremium,
	}
}

func (h *AuthHandler) tokenPair(tenant model.Tenant, u model.User) (authResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, tenant.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.JWTSecret, u.ID, tenant.ID, h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    publicUser(tenant, u),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Token, Expires: refresh.Exp},
	}, nil
}

// Register: create a user under the resolved tenant and return tokens
// immediately. An invite code in the body consumes the invitation and
// credits the inviter in the same transaction as the user creation.
func (h *AuthHandler) Register(c echo.Context) error {
	tenant, ok := middleware.TenantFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown tenant"})
	}
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || (req.Password == "" && !req.Anonymous) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Accounts.Register(ctx, tenant, service.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		FullName:   req.FullName,
		InviteCode: strings.TrimSpace(req.InviteCode),
		Anonymous:  req.Anonymous,
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrEmailExists):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		case errors.Is(err, model.ErrCredentialNotFound):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "code_not_found"})
		case errors.Is(err, model.ErrCredentialExpired):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "code_expired"})
		case errors.Is(err, model.ErrCredentialAlreadyConsumed):
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "code_consumed"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}

	resp, err := h.tokenPair(tenant, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusCreated, resp)
}

// Login: verify credentials within the tenant and return a new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	tenant, ok := middleware.TenantFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown tenant"})
	}
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Accounts.Authenticate(ctx, tenant, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrUserInactive) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "inactive user"})
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	resp, err := h.tokenPair(tenant, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// LoginFederated: resolve by external identity, creating the account on
// first login.
func (h *AuthHandler) LoginFederated(c echo.Context) error {
	tenant, ok := middleware.TenantFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown tenant"})
	}
	var req federatedReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if strings.TrimSpace(req.FederatedID) == "" || strings.TrimSpace(req.Email) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "federated_id/email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Accounts.LoginFederated(ctx, tenant, strings.TrimSpace(req.FederatedID), req.Email, req.FullName)
	if err != nil {
		if errors.Is(err, service.ErrUserInactive) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "inactive user"})
		}
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "federated login failed"})
	}

	resp, err := h.tokenPair(tenant, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh: validate the refresh token against the resolved tenant and
// issue a fresh pair. Tokens are stateless, so the old refresh token
// simply ages out.
func (h *AuthHandler) Refresh(c echo.Context) error {
	tenant, ok := middleware.TenantFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown tenant"})
	}
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "refresh_token required"})
	}

	claims, err := utils.ValidateToken(h.Cfg.JWTSecret, strings.TrimSpace(req.RefreshToken), tenant.ID)
	if err != nil || claims.TokenType != utils.TokenTypeRefresh {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, tenant.ID, claims.UserID)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid refresh"})
	}
	if !u.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "inactive user"})
	}

	resp, err := h.tokenPair(tenant, u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Verify: consume a verification code and mark the account verified.
func (h *AuthHandler) Verify(c echo.Context) error {
	tenant, ok := middleware.TenantFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown tenant"})
	}
	var req codeReq
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Accounts.VerifyEmail(ctx, tenant, req.Email, req.Code); err != nil {
		return credentialError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "email verified"})
}

// ResendVerify: supersede any outstanding code and email a fresh one.
func (h *AuthHandler) ResendVerify(c echo.Context) error {
	tenant, ok := middleware.TenantFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown tenant"})
	}
	var req codeReq
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	err := h.Accounts.ResendVerification(ctx, tenant, req.Email)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyVerified) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "already verified"})
		}
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "resend failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "verification email sent"})
}

// PasswordRecovery: issue a reset code and email it.
func (h *AuthHandler) PasswordRecovery(c echo.Context) error {
	tenant, ok := middleware.TenantFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown tenant"})
	}
	var req codeReq
	if err := c.Bind(&req); err != nil || req.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Accounts.RequestPasswordReset(ctx, tenant, req.Email); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "recovery failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password recovery email sent"})
}

// ResetPassword: consume a reset code and replace the password in the
// same transaction.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	tenant, ok := middleware.TenantFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown tenant"})
	}
	var req resetReq
	if err := c.Bind(&req); err != nil || req.Email == "" || req.Code == "" || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/code/new_password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Accounts.ResetPassword(ctx, tenant, req.Email, req.Code, req.NewPassword); err != nil {
		return credentialError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// credentialError maps credential state-machine failures to distinct 400
// responses so clients can tell "resend" from "already used" from "typo".
func credentialError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, model.ErrCredentialNotFound):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code_not_found"})
	case errors.Is(err, model.ErrCredentialExpired):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code_expired"})
	case errors.Is(err, model.ErrCredentialAlreadyConsumed):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code_consumed"})
	case errors.Is(err, model.ErrCredentialCodeMismatch):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code_mismatch"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "operation failed"})
}
