package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assistly/assistant-backend/internal/model"
	"github.com/assistly/assistant-backend/internal/repository"
)

func TestCost(t *testing.T) {
	l := &CreditLedger{}

	tests := []struct {
		name        string
		sources     bool
		translation bool
		premium     bool
		want        int
	}{
		{"base", false, false, false, 1},
		{"with sources", true, false, false, 2},
		{"with translation", false, true, false, 2},
		{"sources and translation", true, true, false, 3},
		{"premium pays nothing", true, true, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.Cost(tt.sources, tt.translation, tt.premium))
		})
	}
}

func TestDebit(t *testing.T) {
	ctx := context.Background()
	store := newFakeUserStore()
	u := *store.add(model.User{ID: "user-1", TenantID: "tenant-1", Credit: 10})
	l := NewCreditLedger(&fakeTx{}, store, nil)

	res, err := l.Debit(ctx, u, 3)
	require.NoError(t, err)
	assert.Equal(t, DebitResult{Applied: 3, Sufficient: true, Remaining: 7}, res)

	// Balance (now 7) short of the charge: clamp to zero, flag insufficient.
	res, err = l.Debit(ctx, u, 100)
	require.NoError(t, err)
	assert.Equal(t, DebitResult{Applied: 7, Sufficient: false, Remaining: 0}, res)

	// Zero balance stays zero on further debits.
	res, err = l.Debit(ctx, u, 1)
	require.NoError(t, err)
	assert.Equal(t, DebitResult{Applied: 0, Sufficient: false, Remaining: 0}, res)
}

func TestDebitZeroAmountSkipsStore(t *testing.T) {
	tx := &fakeTx{}
	store := newFakeUserStore()
	u := model.User{ID: "user-1", Credit: 7, IsPremium: true}
	l := NewCreditLedger(tx, store, nil)

	res, err := l.Debit(context.Background(), u, l.Cost(true, true, u.IsPremium))
	require.NoError(t, err)
	assert.Equal(t, DebitResult{Applied: 0, Sufficient: true, Remaining: 7}, res)
	assert.Zero(t, tx.calls, "premium debit must not open a transaction")
}

func TestGrant(t *testing.T) {
	ctx := context.Background()
	store := newFakeUserStore()
	store.add(model.User{ID: "user-1", Credit: 1})
	l := NewCreditLedger(&fakeTx{}, store, nil)

	remaining, err := l.Grant(ctx, "user-1", 4, model.ReasonAdReward)
	require.NoError(t, err)
	assert.Equal(t, 5, remaining)
	require.Len(t, store.grants, 1)
	assert.Equal(t, model.ReasonAdReward, store.grants[0].Reason)

	_, err = l.Grant(ctx, "user-1", 0, model.ReasonManualTopup)
	assert.ErrorIs(t, err, ErrNonPositiveGrant)
	_, err = l.Grant(ctx, "user-1", -3, model.ReasonManualTopup)
	assert.ErrorIs(t, err, ErrNonPositiveGrant)
}

func TestRedeem(t *testing.T) {
	ctx := context.Background()
	store := newFakeUserStore()
	store.add(model.User{ID: "user-1", Credit: 0})
	redeems := &fakeRedeemStore{codes: map[string]*model.RedeemCode{
		"GIFT50": {ID: "rc-1", Code: "GIFT50", Value: 50},
	}}
	l := NewCreditLedger(&fakeTx{}, store, redeems)

	value, remaining, err := l.Redeem(ctx, "user-1", "GIFT50")
	require.NoError(t, err)
	assert.Equal(t, 50, value)
	assert.Equal(t, 50, remaining)

	// Second use and an unknown code fail identically.
	_, _, err = l.Redeem(ctx, "user-1", "GIFT50")
	assert.ErrorIs(t, err, repository.ErrRedeemCodeInvalid)
	_, _, err = l.Redeem(ctx, "user-1", "NOPE")
	assert.ErrorIs(t, err, repository.ErrRedeemCodeInvalid)
}
