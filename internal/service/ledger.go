package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/assistly/assistant-backend/internal/model"
)

// ErrNonPositiveGrant is returned when a grant amount is zero or negative.
// Per-reason upper bounds (ad rewards, top-ups) are enforced at the API
// boundary, not here.
var ErrNonPositiveGrant = errors.New("grant amount must be positive")

type balanceStore interface {
	DebitTx(ctx context.Context, tx *sql.Tx, userID string, amount int) (applied int, sufficient bool, remaining int, err error)
	GrantTx(ctx context.Context, tx *sql.Tx, userID string, amount int, reason model.GrantReason) (int, error)
}

type redeemStore interface {
	UseTx(ctx context.Context, tx *sql.Tx, code string) (int, error)
}

// DebitResult reports the outcome of a debit. Sufficient=false is a normal
// result, not an error: the priced operation still runs and the caller
// flags the response as the user's last one.
type DebitResult struct {
	Applied    int
	Sufficient bool
	Remaining  int
}

// CreditLedger prices operations and mutates user balances. Every balance
// write goes through DebitTx/GrantTx under a row lock; the ledger never
// assigns credit directly, so the non-negativity invariant holds at every
// mutation site.
type CreditLedger struct {
	tx     Transactor
	store  balanceStore
	redeem redeemStore
}

func NewCreditLedger(tx Transactor, store balanceStore, redeem redeemStore) *CreditLedger {
	return &CreditLedger{tx: tx, store: store, redeem: redeem}
}

// Cost computes the price of a chat turn: base 1, +1 when retrieval
// sources were returned, +1 when the input needed translation. Premium
// users are charged nothing regardless.
func (l *CreditLedger) Cost(hadSources, neededTranslation, premium bool) int {
	if premium {
		return 0
	}
	cost := 1
	if hadSources {
		cost++
	}
	if neededTranslation {
		cost++
	}
	return cost
}

// Debit applies up to amount against the user's balance. A zero amount
// (premium pricing) touches nothing. The partial-debit policy clamps at
// zero: applied = min(balance, amount).
func (l *CreditLedger) Debit(ctx context.Context, user model.User, amount int) (DebitResult, error) {
	if amount <= 0 {
		return DebitResult{Applied: 0, Sufficient: true, Remaining: user.Credit}, nil
	}
	var res DebitResult
	err := l.tx.Transact(ctx, func(tx *sql.Tx) error {
		applied, sufficient, remaining, err := l.store.DebitTx(ctx, tx, user.ID, amount)
		if err != nil {
			return err
		}
		res = DebitResult{Applied: applied, Sufficient: sufficient, Remaining: remaining}
		return nil
	})
	if err != nil {
		return DebitResult{}, err
	}
	return res, nil
}

// Grant unconditionally adds amount to the user's balance and records the
// reason. Returns the new balance.
func (l *CreditLedger) Grant(ctx context.Context, userID string, amount int, reason model.GrantReason) (int, error) {
	if amount <= 0 {
		return 0, ErrNonPositiveGrant
	}
	var remaining int
	err := l.tx.Transact(ctx, func(tx *sql.Tx) error {
		var err error
		remaining, err = l.store.GrantTx(ctx, tx, userID, amount, reason)
		return err
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}

// Redeem marks the voucher used and grants its value in one transaction.
// A rollback on either side leaves the voucher reusable.
func (l *CreditLedger) Redeem(ctx context.Context, userID, code string) (value, remaining int, err error) {
	err = l.tx.Transact(ctx, func(tx *sql.Tx) error {
		v, err := l.redeem.UseTx(ctx, tx, code)
		if err != nil {
			return err
		}
		value = v
		remaining, err = l.store.GrantTx(ctx, tx, userID, v, model.ReasonRedeemCode)
		return err
	})
	if err != nil {
		return 0, 0, err
	}
	return value, remaining, nil
}
