package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"github.com/assistly/assistant-backend/internal/model"
)

// RedeemRepo provides access to the `redeem_codes` table. Codes are
// global, not tenant-scoped: a voucher printed on a card works in any
// client application.
type RedeemRepo struct{ db *sql.DB }

func NewRedeemRepo(db *sql.DB) *RedeemRepo { return &RedeemRepo{db: db} }

// Insert stores a new redeem code. A duplicate code string maps to
// ErrRedeemCodeExists.
func (r *RedeemRepo) Insert(ctx context.Context, rc *model.RedeemCode) error {
	if rc.ID == "" {
		rc.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO redeem_codes (id, code, value, is_used) VALUES (?,?,?,FALSE)",
		rc.ID, rc.Code, rc.Value)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrRedeemCodeExists
	}
	return err
}

// Delete removes a code by its code string.
func (r *RedeemRepo) Delete(ctx context.Context, code string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM redeem_codes WHERE code=?", code)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrRedeemCodeInvalid
	}
	return nil
}

// UseTx locks the code row, verifies it is unused and marks it used, all
// inside the caller's transaction. Returns the code's value. Unknown and
// already-used codes are indistinguishable to the caller.
func (r *RedeemRepo) UseTx(ctx context.Context, tx *sql.Tx, code string) (int, error) {
	var (
		id     string
		value  int
		isUsed bool
	)
	err := tx.QueryRowContext(ctx,
		"SELECT id, value, is_used FROM redeem_codes WHERE code=? LIMIT 1 FOR UPDATE",
		code).Scan(&id, &value, &isUsed)
	if err == sql.ErrNoRows {
		return 0, ErrRedeemCodeInvalid
	}
	if err != nil {
		return 0, err
	}
	if isUsed {
		return 0, ErrRedeemCodeInvalid
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE redeem_codes SET is_used=TRUE WHERE id=?", id); err != nil {
		return 0, err
	}
	return value, nil
}
