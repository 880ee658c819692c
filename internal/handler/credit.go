package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/assistly/assistant-backend/internal/middleware"
	"github.com/assistly/assistant-backend/internal/model"
	"github.com/assistly/assistant-backend/internal/repository"
	"github.com/assistly/assistant-backend/internal/service"
)

// Ad reward bounds. The client reports the reward the network granted;
// anything outside this range is treated as a tampered request.
const (
	minAdReward = 1
	maxAdReward = 5
)

// CreditHandler covers balance mutations and the ad placement lookup.
type CreditHandler struct {
	Ledger *service.CreditLedger
	Ads    *repository.AdRepo
}

func NewCreditHandler(ledger *service.CreditLedger, ads *repository.AdRepo) *CreditHandler {
	return &CreditHandler{Ledger: ledger, Ads: ads}
}

type topupReq struct {
	Amount int `json:"amount"`
}
type chargeReq struct {
	HadSources        bool `json:"had_sources"`
	NeededTranslation bool `json:"needed_translation"`
}
type rewardReq struct {
	Amount int `json:"amount"`
}

// AddCredit is a manual top-up for the authed user.
func (h *CreditHandler) AddCredit(c echo.Context) error {
	u, ok := middleware.UserFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req topupReq
	if err := c.Bind(&req); err != nil || req.Amount <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "amount must be positive"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	remaining, err := h.Ledger.Grant(ctx, u.ID, req.Amount, model.ReasonManualTopup)
	if err != nil {
		zap.L().Error("topup failed", zap.String("user_id", u.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "topup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"remaining_credit": remaining})
}

// ChargeChat prices one chat turn and debits it. Running out of credit is
// not an error here: the response carries is_credit_sufficient=false and
// the client treats the answer as the user's last free one.
func (h *CreditHandler) ChargeChat(c echo.Context) error {
	u, ok := middleware.UserFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req chargeReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cost := h.Ledger.Cost(req.HadSources, req.NeededTranslation, u.IsPremium)
	res, err := h.Ledger.Debit(ctx, u, cost)
	if err != nil {
		zap.L().Error("chat charge failed", zap.String("user_id", u.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "charge failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"cost":                 cost,
		"charged":              res.Applied,
		"remaining_credit":     res.Remaining,
		"is_credit_sufficient": res.Sufficient,
	})
}

// UseRedeemCode burns a voucher for the authed user.
func (h *CreditHandler) UseRedeemCode(c echo.Context) error {
	u, ok := middleware.UserFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "code required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	value, remaining, err := h.Ledger.Redeem(ctx, u.ID, code)
	if err != nil {
		if errors.Is(err, repository.ErrRedeemCodeInvalid) {
			// Unknown and already-used codes read the same on purpose.
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid redeem code"})
		}
		zap.L().Error("redeem failed", zap.String("user_id", u.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "redeem failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"value": value, "remaining_credit": remaining})
}

// AdUnitID resolves a named ad placement for the tenant.
func (h *CreditHandler) AdUnitID(c echo.Context) error {
	tenant, ok := middleware.TenantFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unknown tenant"})
	}
	name := strings.TrimSpace(c.QueryParam("ad_name"))
	if name == "" {
		name = "rewarded"
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ad, err := h.Ads.GetActiveByName(ctx, tenant.ID, name)
	if err != nil {
		if errors.Is(err, repository.ErrAdNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "ad not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lookup failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"name": ad.Name, "unit_id": ad.UnitID})
}

// AdReward grants the credit a rewarded ad earned.
func (h *CreditHandler) AdReward(c echo.Context) error {
	u, ok := middleware.UserFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	}
	var req rewardReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Amount < minAdReward || req.Amount > maxAdReward {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "reward out of range"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	remaining, err := h.Ledger.Grant(ctx, u.ID, req.Amount, model.ReasonAdReward)
	if err != nil {
		zap.L().Error("ad reward failed", zap.String("user_id", u.ID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "reward failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"remaining_credit": remaining})
}
