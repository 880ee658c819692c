package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/assistly/assistant-backend/internal/model"
)

// CredentialRepo provides access to the `credentials` table, which holds
// all three ephemeral-code kinds. Consumption runs under a row lock so two
// concurrent consumes of the same code cannot both observe it unconsumed.
type CredentialRepo struct{ db *sql.DB }

func NewCredentialRepo(db *sql.DB) *CredentialRepo { return &CredentialRepo{db: db} }

const credentialColumns = "id, tenant_id, kind, user_id, email, inviter_id, code, created_at, expires_at, consumed_at"

func scanCredential(row rowScanner) (model.Credential, error) {
	var (
		c        model.Credential
		userID   sql.NullString
		inviter  sql.NullString
		consumed sql.NullTime
	)
	err := row.Scan(&c.ID, &c.TenantID, &c.Kind, &userID, &c.Email, &inviter,
		&c.Code, &c.CreatedAt, &c.ExpiresAt, &consumed)
	if err == sql.ErrNoRows {
		return model.Credential{}, model.ErrCredentialNotFound
	}
	if err != nil {
		return model.Credential{}, err
	}
	if userID.Valid {
		c.UserID = &userID.String
	}
	if inviter.Valid {
		c.InviterID = &inviter.String
	}
	if consumed.Valid {
		t := consumed.Time
		c.ConsumedAt = &t
	}
	return c, nil
}

// Insert stores a freshly issued credential. Issuance always creates a new
// row; superseding earlier rows is the caller's decision.
func (r *CredentialRepo) Insert(ctx context.Context, c *model.Credential) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO credentials (id, tenant_id, kind, user_id, email, inviter_id, code, created_at, expires_at)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		c.ID, c.TenantID, string(c.Kind), c.UserID, c.Email, c.InviterID,
		c.Code, c.CreatedAt, c.ExpiresAt)
	return err
}

// DeleteUnconsumed removes prior unconsumed rows for (tenant, kind, email).
// Called on reissue so only the latest code can ever validate. Consumed
// rows stay for the audit trail.
func (r *CredentialRepo) DeleteUnconsumed(ctx context.Context, tenantID string, kind model.CredentialKind, email string) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM credentials WHERE tenant_id=? AND kind=? AND email=? AND consumed_at IS NULL",
		tenantID, string(kind), email)
	return err
}

// LatestByEmail returns the most recent credential for (tenant, kind,
// email) regardless of state. Used by callers that reuse a still-valid
// code instead of issuing a new one.
func (r *CredentialRepo) LatestByEmail(ctx context.Context, tenantID string, kind model.CredentialKind, email string) (model.Credential, error) {
	return scanCredential(r.db.QueryRowContext(ctx,
		"SELECT "+credentialColumns+" FROM credentials WHERE tenant_id=? AND kind=? AND email=? ORDER BY created_at DESC LIMIT 1",
		tenantID, string(kind), email))
}

// GetByCode returns an invitation-style credential by its code within a
// tenant, without consuming it. Backing for the invite landing page.
func (r *CredentialRepo) GetByCode(ctx context.Context, tenantID string, kind model.CredentialKind, code string) (model.Credential, error) {
	return scanCredential(r.db.QueryRowContext(ctx,
		"SELECT "+credentialColumns+" FROM credentials WHERE tenant_id=? AND kind=? AND code=? LIMIT 1",
		tenantID, string(kind), code))
}

// LatestForUpdateTx locks and returns the most recent credential for
// (tenant, kind, email) inside the caller's transaction. The lock is the
// mutual exclusion that makes check-then-consume safe.
func (r *CredentialRepo) LatestForUpdateTx(ctx context.Context, tx *sql.Tx, tenantID string, kind model.CredentialKind, email string) (model.Credential, error) {
	return scanCredential(tx.QueryRowContext(ctx,
		"SELECT "+credentialColumns+" FROM credentials WHERE tenant_id=? AND kind=? AND email=? ORDER BY created_at DESC LIMIT 1 FOR UPDATE",
		tenantID, string(kind), email))
}

// CodeForUpdateTx locks and returns a credential by code inside the
// caller's transaction. Used for invitation consumption, which is keyed by
// code rather than by latest-for-email.
func (r *CredentialRepo) CodeForUpdateTx(ctx context.Context, tx *sql.Tx, tenantID string, kind model.CredentialKind, code string) (model.Credential, error) {
	return scanCredential(tx.QueryRowContext(ctx,
		"SELECT "+credentialColumns+" FROM credentials WHERE tenant_id=? AND kind=? AND code=? LIMIT 1 FOR UPDATE",
		tenantID, string(kind), code))
}

// MarkConsumedTx sets consumed_at inside the caller's transaction. The
// guard on consumed_at IS NULL makes the terminal transition single-shot
// even if a caller bypassed the row lock.
func (r *CredentialRepo) MarkConsumedTx(ctx context.Context, tx *sql.Tx, id string, at time.Time) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE credentials SET consumed_at=? WHERE id=? AND consumed_at IS NULL",
		at.UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrCredentialAlreadyConsumed
	}
	return nil
}
