package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/assistly/assistant-backend/internal/model"
	"github.com/assistly/assistant-backend/internal/repository"
	"github.com/assistly/assistant-backend/internal/service"
	"github.com/assistly/assistant-backend/internal/utils"
)

// Minimum voucher value. Smaller top-ups go through ad rewards instead.
const minRedeemValue = 50

// AdminHandler serves the superuser-only surface: tenant lifecycle,
// voucher management and ad placements. Superuser status is enforced by
// middleware before any of these run.
type AdminHandler struct {
	Tenants  *repository.TenantRepo
	Redeems  *repository.RedeemRepo
	Ads      *repository.AdRepo
	Resolver *service.TenantResolver
}

func NewAdminHandler(tenants *repository.TenantRepo, redeems *repository.RedeemRepo, ads *repository.AdRepo, resolver *service.TenantResolver) *AdminHandler {
	return &AdminHandler{Tenants: tenants, Redeems: redeems, Ads: ads, Resolver: resolver}
}

type tenantReq struct {
	Name                   string `json:"name"`
	Tag                    string `json:"tag"`
	DefaultUserCredit      *int   `json:"default_user_credit"`
	DefaultAnonymousCredit *int   `json:"default_anonymous_credit"`
	DeeplinkBaseURL        string `json:"deeplink_base_url"`
	IsActive               *bool  `json:"is_active"`
}

type tenantResp struct {
	ID                     string `json:"id"`
	Name                   string `json:"name"`
	TenantKey              string `json:"tenant_key"`
	Tag                    string `json:"tag"`
	IsActive               bool   `json:"is_active"`
	DefaultUserCredit      int    `json:"default_user_credit"`
	DefaultAnonymousCredit int    `json:"default_anonymous_credit"`
	DeeplinkBaseURL        string `json:"deeplink_base_url"`
}

func toTenantResp(t model.Tenant) tenantResp {
	return tenantResp{
		ID:                     t.ID,
		Name:                   t.Name,
		TenantKey:              t.TenantKey,
		Tag:                    t.Tag,
		IsActive:               t.IsActive,
		DefaultUserCredit:      t.DefaultUserCredit,
		DefaultAnonymousCredit: t.DefaultAnonymousCredit,
		DeeplinkBaseURL:        t.DeeplinkBaseURL,
	}
}

// CreateTenant provisions a tenant with a freshly generated key.
func (h *AdminHandler) CreateTenant(c echo.Context) error {
	var req tenantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Tag = strings.ToLower(strings.TrimSpace(req.Tag))
	if req.Name == "" || req.Tag == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/tag required"})
	}

	key, err := utils.NewURLSafeToken(32)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "key generation failed"})
	}
	t := model.Tenant{
		Name:                   req.Name,
		TenantKey:              key,
		Tag:                    req.Tag,
		IsActive:               true,
		DefaultUserCredit:      10,
		DefaultAnonymousCredit: 3,
		DeeplinkBaseURL:        strings.TrimRight(req.DeeplinkBaseURL, "/"),
	}
	if req.DefaultUserCredit != nil {
		t.DefaultUserCredit = *req.DefaultUserCredit
	}
	if req.DefaultAnonymousCredit != nil {
		t.DefaultAnonymousCredit = *req.DefaultAnonymousCredit
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tenants.Create(ctx, &t); err != nil {
		zap.L().Error("tenant create failed", zap.String("name", t.Name), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, toTenantResp(t))
}

// ListTenants pages through all tenants.
func (h *AdminHandler) ListTenants(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tenants, err := h.Tenants.List(ctx, limit, offset)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "list failed"})
	}
	out := make([]tenantResp, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, toTenantResp(t))
	}
	return c.JSON(http.StatusOK, echo.Map{"tenants": out})
}

// GetTenant returns one tenant by ID.
func (h *AdminHandler) GetTenant(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tenants.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, toTenantResp(t))
}

// UpdateTenant patches tenant settings. The cached resolution entry is
// dropped so the change takes effect on the next request, not a TTL later.
func (h *AdminHandler) UpdateTenant(c echo.Context) error {
	var req tenantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tenants.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		t.Name = name
	}
	if req.DefaultUserCredit != nil {
		t.DefaultUserCredit = *req.DefaultUserCredit
	}
	if req.DefaultAnonymousCredit != nil {
		t.DefaultAnonymousCredit = *req.DefaultAnonymousCredit
	}
	if req.DeeplinkBaseURL != "" {
		t.DeeplinkBaseURL = strings.TrimRight(req.DeeplinkBaseURL, "/")
	}
	if req.IsActive != nil {
		t.IsActive = *req.IsActive
	}

	if err := h.Tenants.Update(ctx, &t); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	h.Resolver.Invalidate(ctx, t.TenantKey)
	return c.JSON(http.StatusOK, toTenantResp(t))
}

// RotateTenantKey replaces the tenant key. The old key stops resolving
// immediately; clients must be reconfigured out of band.
func (h *AdminHandler) RotateTenantKey(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	t, err := h.Tenants.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	newKey, err := utils.NewURLSafeToken(32)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "key generation failed"})
	}
	if err := h.Tenants.RotateKey(ctx, t.ID, newKey); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "rotate failed"})
	}
	h.Resolver.Invalidate(ctx, t.TenantKey)
	return c.JSON(http.StatusOK, echo.Map{"tenant_key": newKey})
}

// ----- redeem codes -----

type redeemCreateReq struct {
	Code  string `json:"code"`
	Value int    `json:"value"`
}

// CreateRedeemCode mints a voucher. A blank code gets a generated one.
func (h *AdminHandler) CreateRedeemCode(c echo.Context) error {
	var req redeemCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Value < minRedeemValue {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "value below minimum"})
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		var err error
		code, err = utils.NewURLSafeToken(16)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "code generation failed"})
		}
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rc := model.RedeemCode{ID: uuid.NewString(), Code: code, Value: req.Value}
	if err := h.Redeems.Insert(ctx, &rc); err != nil {
		if errors.Is(err, repository.ErrRedeemCodeExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "code already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"code": rc.Code, "value": rc.Value})
}

// DeleteRedeemCode removes an unused voucher.
func (h *AdminHandler) DeleteRedeemCode(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Redeems.Delete(ctx, c.Param("code")); err != nil {
		if errors.Is(err, repository.ErrRedeemCodeInvalid) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "code not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "code deleted"})
}

// ----- ads -----

type adCreateReq struct {
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	UnitID   string `json:"unit_id"`
}

// CreateAd registers an ad placement for a tenant.
func (h *AdminHandler) CreateAd(c echo.Context) error {
	var req adCreateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.UnitID = strings.TrimSpace(req.UnitID)
	if req.TenantID == "" || req.Name == "" || req.UnitID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "tenant_id/name/unit_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Tenants.GetByID(ctx, req.TenantID); err != nil {
		if errors.Is(err, repository.ErrTenantNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "tenant not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}

	ad := model.Ad{TenantID: req.TenantID, Name: req.Name, UnitID: req.UnitID, IsActive: true}
	if err := h.Ads.Create(ctx, &ad); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": ad.ID, "name": ad.Name, "unit_id": ad.UnitID})
}
