package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/assistly/assistant-backend/internal/model"
	"github.com/assistly/assistant-backend/internal/utils"
)

// Transactor runs a function inside one database transaction. Satisfied by
// repository.Store in production and by trivial fakes in tests.
type Transactor interface {
	Transact(ctx context.Context, fn func(*sql.Tx) error) error
}

type credentialStore interface {
	Insert(ctx context.Context, c *model.Credential) error
	DeleteUnconsumed(ctx context.Context, tenantID string, kind model.CredentialKind, email string) error
	LatestByEmail(ctx context.Context, tenantID string, kind model.CredentialKind, email string) (model.Credential, error)
	GetByCode(ctx context.Context, tenantID string, kind model.CredentialKind, code string) (model.Credential, error)
	LatestForUpdateTx(ctx context.Context, tx *sql.Tx, tenantID string, kind model.CredentialKind, email string) (model.Credential, error)
	CodeForUpdateTx(ctx context.Context, tx *sql.Tx, tenantID string, kind model.CredentialKind, code string) (model.Credential, error)
	MarkConsumedTx(ctx context.Context, tx *sql.Tx, id string, at time.Time) error
}

// CredentialPolicy carries the per-kind TTLs. Code format is fixed per
// kind: six random digits for verify/reset, a 32-byte URL-safe token for
// invitations.
type CredentialPolicy struct {
	VerifyTTL time.Duration
	ResetTTL  time.Duration
	InviteTTL time.Duration
}

// DefaultCredentialPolicy mirrors the product defaults: verification codes
// live minutes, reset codes hours, invitations days.
func DefaultCredentialPolicy() CredentialPolicy {
	return CredentialPolicy{
		VerifyTTL: 10 * time.Minute,
		ResetTTL:  24 * time.Hour,
		InviteTTL: 7 * 24 * time.Hour,
	}
}

func (p CredentialPolicy) ttl(kind model.CredentialKind) time.Duration {
	switch kind {
	case model.KindVerify:
		return p.VerifyTTL
	case model.KindReset:
		return p.ResetTTL
	default:
		return p.InviteTTL
	}
}

// FollowUp is applied inside the consumption transaction after the
// credential flips to consumed: mark a user verified, rehash a password,
// grant an inviter bonus. It commits or rolls back together with the
// consumption itself.
type FollowUp func(ctx context.Context, tx *sql.Tx, cred model.Credential) error

// CredentialEngine is the one state machine behind verification codes,
// password-reset codes and invitations. Issue creates a new row;
// ValidateAndConsume / ConsumeByCode move a row to its terminal consumed
// state under a row lock so the transition happens at most once even under
// concurrent requests.
type CredentialEngine struct {
	tx     Transactor
	store  credentialStore
	policy CredentialPolicy
	now    func() time.Time
}

func NewCredentialEngine(tx Transactor, store credentialStore, policy CredentialPolicy) *CredentialEngine {
	return &CredentialEngine{tx: tx, store: store, policy: policy, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the engine's clock. Expiry tests manipulate time
// through this instead of sleeping.
func (e *CredentialEngine) WithClock(now func() time.Time) *CredentialEngine {
	e.now = now
	return e
}

func (e *CredentialEngine) generateCode(kind model.CredentialKind) (string, error) {
	if kind == model.KindInvite {
		return utils.NewURLSafeToken(32)
	}
	return utils.NewNumericCode(6)
}

// Issue creates a fresh credential for (tenant, kind, email). It never
// touches earlier rows; callers that want "latest wins" semantics call
// Reissue instead.
func (e *CredentialEngine) Issue(ctx context.Context, tenant model.Tenant, kind model.CredentialKind, userID *string, email string, inviterID *string) (model.Credential, error) {
	code, err := e.generateCode(kind)
	if err != nil {
		return model.Credential{}, fmt.Errorf("generate code: %w", err)
	}
	now := e.now()
	cred := model.Credential{
		TenantID:  tenant.ID,
		Kind:      kind,
		UserID:    userID,
		Email:     utils.TagEmail(tenant.Tag, email),
		InviterID: inviterID,
		Code:      code,
		CreatedAt: now,
		ExpiresAt: now.Add(e.policy.ttl(kind)),
	}
	if err := e.store.Insert(ctx, &cred); err != nil {
		return model.Credential{}, fmt.Errorf("insert credential: %w", err)
	}
	return cred, nil
}

// Reissue deletes prior unconsumed rows for (tenant, kind, email) and
// issues a new credential, so only the newest code can ever validate.
func (e *CredentialEngine) Reissue(ctx context.Context, tenant model.Tenant, kind model.CredentialKind, userID *string, email string, inviterID *string) (model.Credential, error) {
	tagged := utils.TagEmail(tenant.Tag, email)
	if err := e.store.DeleteUnconsumed(ctx, tenant.ID, kind, tagged); err != nil {
		return model.Credential{}, fmt.Errorf("supersede credentials: %w", err)
	}
	return e.Issue(ctx, tenant, kind, userID, email, inviterID)
}

// ValidateAndConsume checks the supplied code against the latest
// credential for (tenant, kind, email) and, on success, marks it consumed
// and applies followUp, all in one transaction behind a row lock. Two
// concurrent calls cannot both succeed.
func (e *CredentialEngine) ValidateAndConsume(ctx context.Context, tenant model.Tenant, kind model.CredentialKind, email, code string, followUp FollowUp) (model.Credential, error) {
	tagged := utils.TagEmail(tenant.Tag, email)
	var consumed model.Credential
	err := e.tx.Transact(ctx, func(tx *sql.Tx) error {
		cred, err := e.store.LatestForUpdateTx(ctx, tx, tenant.ID, kind, tagged)
		if err != nil {
			return err
		}
		return e.consumeTx(ctx, tx, cred, code, followUp, &consumed)
	})
	if err != nil {
		return model.Credential{}, err
	}
	return consumed, nil
}

// ConsumeByCode is ValidateAndConsume keyed by the code itself instead of
// by email. Invitations are consumed this way: the registering client only
// holds the invite token from the deeplink.
func (e *CredentialEngine) ConsumeByCode(ctx context.Context, tenant model.Tenant, kind model.CredentialKind, code string, followUp FollowUp) (model.Credential, error) {
	var consumed model.Credential
	err := e.tx.Transact(ctx, func(tx *sql.Tx) error {
		return e.ConsumeByCodeTx(ctx, tx, tenant, kind, code, followUp, &consumed)
	})
	if err != nil {
		return model.Credential{}, err
	}
	return consumed, nil
}

// ConsumeByCodeTx runs the by-code consumption inside an existing
// transaction, for callers that must commit it together with other writes
// (registration with an invite code).
func (e *CredentialEngine) ConsumeByCodeTx(ctx context.Context, tx *sql.Tx, tenant model.Tenant, kind model.CredentialKind, code string, followUp FollowUp, consumed *model.Credential) error {
	cred, err := e.store.CodeForUpdateTx(ctx, tx, tenant.ID, kind, code)
	if err != nil {
		return err
	}
	return e.consumeTx(ctx, tx, cred, code, followUp, consumed)
}

func (e *CredentialEngine) consumeTx(ctx context.Context, tx *sql.Tx, cred model.Credential, code string, followUp FollowUp, consumed *model.Credential) error {
	if err := cred.Validate(code, e.now()); err != nil {
		return err
	}
	at := e.now()
	if err := e.store.MarkConsumedTx(ctx, tx, cred.ID, at); err != nil {
		return err
	}
	cred.ConsumedAt = &at
	if followUp != nil {
		if err := followUp(ctx, tx, cred); err != nil {
			return err
		}
	}
	if consumed != nil {
		*consumed = cred
	}
	return nil
}

// Peek returns an invitation by code without consuming it, for the invite
// landing page. Expired invitations are reported as expired rather than
// missing.
func (e *CredentialEngine) Peek(ctx context.Context, tenant model.Tenant, kind model.CredentialKind, code string) (model.Credential, error) {
	cred, err := e.store.GetByCode(ctx, tenant.ID, kind, code)
	if err != nil {
		return model.Credential{}, err
	}
	if cred.ConsumedAt != nil {
		return model.Credential{}, model.ErrCredentialAlreadyConsumed
	}
	if cred.IsExpired(e.now()) {
		return model.Credential{}, model.ErrCredentialExpired
	}
	return cred, nil
}
