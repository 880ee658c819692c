package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/assistly/assistant-backend/internal/model"
	"github.com/assistly/assistant-backend/internal/utils"
)

// UserRepo provides access to the `users` table and owns every write to
// the credit column. Balance mutations happen only through DebitTx and
// GrantTx, inside a transaction, with the row locked; each mutation also
// appends a credit_ledger audit row.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = "id, tenant_id, email, hashed_password, full_name, credit, is_active, is_verified, is_premium, is_superuser, is_anonymous, federated_id, created_at, updated_at"

type rowScanner interface{ Scan(dest ...any) error }

func scanUser(row rowScanner) (model.User, error) {
	var (
		u       model.User
		hashed  sql.NullString
		fedID   sql.NullString
		fullNam sql.NullString
	)
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &hashed, &fullNam, &u.Credit,
		&u.IsActive, &u.IsVerified, &u.IsPremium, &u.IsSuperuser, &u.IsAnonymous,
		&fedID, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, err
	}
	if hashed.Valid {
		u.HashedPassword = &hashed.String
	}
	if fedID.Valid {
		u.FederatedID = &fedID.String
	}
	u.FullName = fullNam.String
	return u, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Create inserts a user. The email is stored tagged; collisions on either
// the physical email index or the (tenant_id, email) composite index map
// to ErrEmailExists (MySQL duplicate-entry error 1062).
func (r *UserRepo) Create(ctx context.Context, tenant model.Tenant, u *model.User) error {
	return r.create(ctx, r.db, tenant, u)
}

// CreateTx is Create inside the caller's transaction, so registration can
// commit the user row, the registration grant and an invite consumption as
// one unit.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sql.Tx, tenant model.Tenant, u *model.User) error {
	return r.create(ctx, tx, tenant, u)
}

func (r *UserRepo) create(ctx context.Context, db execer, tenant model.Tenant, u *model.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.TenantID = tenant.ID
	u.Email = utils.TagEmail(tenant.Tag, u.Email)
	_, err := db.ExecContext(ctx,
		`INSERT INTO users (id, tenant_id, email, hashed_password, full_name, credit, is_active, is_verified, is_premium, is_superuser, is_anonymous, federated_id)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		u.ID, u.TenantID, u.Email, u.HashedPassword, u.FullName, u.Credit,
		u.IsActive, u.IsVerified, u.IsPremium, u.IsSuperuser, u.IsAnonymous, u.FederatedID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// GetByEmail looks a user up within one tenant by real or already-tagged
// email.
func (r *UserRepo) GetByEmail(ctx context.Context, tenant model.Tenant, email string) (model.User, error) {
	tagged := utils.TagEmail(tenant.Tag, email)
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE tenant_id=? AND email=? LIMIT 1",
		tenant.ID, tagged))
}

// GetByFederatedID looks a user up within one tenant by external identity.
func (r *UserRepo) GetByFederatedID(ctx context.Context, tenantID, federatedID string) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE tenant_id=? AND federated_id=? LIMIT 1",
		tenantID, federatedID))
}

// GetByID fetches a user by primary key, scoped to the tenant so a leaked
// ID from another tenant never resolves.
func (r *UserRepo) GetByID(ctx context.Context, tenantID, id string) (model.User, error) {
	return scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE tenant_id=? AND id=? LIMIT 1",
		tenantID, id))
}

// UpdateProfile mutates the user's editable profile fields.
func (r *UserRepo) UpdateProfile(ctx context.Context, u *model.User) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET full_name=?, is_premium=?, updated_at=? WHERE id=?",
		u.FullName, u.IsPremium, time.Now().UTC(), u.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// SetActive soft-enables or soft-disables the account. Users are never
// hard-deleted.
func (r *UserRepo) SetActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET is_active=?, updated_at=? WHERE id=?",
		active, time.Now().UTC(), id)
	return err
}

// UpdatePassword replaces the stored hash outside any credential flow
// (authenticated password change).
func (r *UserRepo) UpdatePassword(ctx context.Context, id, hashed string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE users SET hashed_password=?, updated_at=? WHERE id=?",
		hashed, time.Now().UTC(), id)
	return err
}

// UpdatePasswordTx is UpdatePassword inside the caller's transaction, used
// when the reset-code consumption and the rehash must commit together.
func (r *UserRepo) UpdatePasswordTx(ctx context.Context, tx *sql.Tx, id, hashed string) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE users SET hashed_password=?, updated_at=? WHERE id=?",
		hashed, time.Now().UTC(), id)
	return err
}

// SetVerifiedTx marks the user verified inside the caller's transaction,
// in the same commit as the verification-code consumption.
func (r *UserRepo) SetVerifiedTx(ctx context.Context, tx *sql.Tx, id string) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE users SET is_verified=TRUE, updated_at=? WHERE id=?",
		time.Now().UTC(), id)
	return err
}

// DebitTx subtracts up to amount from the user's balance under a row lock
// and returns what was applied. When the balance is short the debit is
// clamped to zero and sufficient=false; insufficiency is a normal outcome,
// not an error. The lock serializes concurrent debits so two callers can
// never both observe the pre-debit balance.
func (r *UserRepo) DebitTx(ctx context.Context, tx *sql.Tx, userID string, amount int) (applied int, sufficient bool, remaining int, err error) {
	var credit int
	err = tx.QueryRowContext(ctx,
		"SELECT credit FROM users WHERE id=? FOR UPDATE", userID).Scan(&credit)
	if err == sql.ErrNoRows {
		return 0, false, 0, ErrUserNotFound
	}
	if err != nil {
		return 0, false, 0, err
	}
	applied = amount
	sufficient = true
	if credit < amount {
		applied = credit
		sufficient = false
	}
	remaining = credit - applied
	_, err = tx.ExecContext(ctx,
		"UPDATE users SET credit=?, updated_at=? WHERE id=?",
		remaining, time.Now().UTC(), userID)
	if err != nil {
		return 0, false, 0, err
	}
	if err = appendLedgerTx(ctx, tx, userID, -applied, -amount, ""); err != nil {
		return 0, false, 0, err
	}
	return applied, sufficient, remaining, nil
}

// GrantTx adds amount to the user's balance under a row lock and records
// the reason in the ledger. Amount must already be validated positive by
// the caller.
func (r *UserRepo) GrantTx(ctx context.Context, tx *sql.Tx, userID string, amount int, reason model.GrantReason) (remaining int, err error) {
	var credit int
	err = tx.QueryRowContext(ctx,
		"SELECT credit FROM users WHERE id=? FOR UPDATE", userID).Scan(&credit)
	if err == sql.ErrNoRows {
		return 0, ErrUserNotFound
	}
	if err != nil {
		return 0, err
	}
	remaining = credit + amount
	_, err = tx.ExecContext(ctx,
		"UPDATE users SET credit=?, updated_at=? WHERE id=?",
		remaining, time.Now().UTC(), userID)
	if err != nil {
		return 0, err
	}
	if err = appendLedgerTx(ctx, tx, userID, amount, amount, reason); err != nil {
		return 0, err
	}
	return remaining, nil
}

func appendLedgerTx(ctx context.Context, tx *sql.Tx, userID string, delta, requested int, reason model.GrantReason) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO credit_ledger (id, user_id, delta, requested, reason) VALUES (?,?,?,?,?)",
		uuid.NewString(), userID, delta, requested, string(reason))
	return err
}
