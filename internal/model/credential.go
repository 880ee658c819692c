package model

import (
	"errors"
	"time"
)

// CredentialKind distinguishes the three short-lived code flavours. They
// share one table, one state machine and one set of invariants; only the
// code format and TTL differ per kind.
type CredentialKind string

const (
	KindVerify CredentialKind = "verify"
	KindReset  CredentialKind = "reset"
	KindInvite CredentialKind = "invite"
)

// Credential validation errors. Each is surfaced distinctly so the client
// UI can tell "resend a new code" apart from "already used" and "wrong
// code".
var (
	ErrCredentialNotFound        = errors.New("credential not found")
	ErrCredentialExpired         = errors.New("credential expired")
	ErrCredentialAlreadyConsumed = errors.New("credential already consumed")
	ErrCredentialCodeMismatch    = errors.New("credential code mismatch")
)

// Credential is a row in the `credentials` table: a single-use, short-lived
// code issued to an email address within one tenant.
//
// UserID is set for verify/reset codes; invitations key by the invitee
// email instead and carry the InviterID so consumption can apply the
// inviter bonus exactly once. ConsumedAt is set at most once, only by a
// successful consume, and marks the terminal state. Expiry is implicit:
// an expired row is rejected at validation time, never mutated or purged,
// so the audit trail survives.
type Credential struct {
	ID         string
	TenantID   string
	Kind       CredentialKind
	UserID     *string
	Email      string // tagged form
	InviterID  *string
	Code       string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// IsExpired reports whether the credential is past its expiry. Both sides
// of the comparison are normalized to UTC.
func (c *Credential) IsExpired(now time.Time) bool {
	return now.UTC().After(c.ExpiresAt.UTC())
}

// Validate checks a supplied code against the credential's state machine
// without mutating anything. Check order: consumed, expired, mismatch.
// A consumed credential reports ErrCredentialAlreadyConsumed even when the
// supplied code is wrong, so a retried consume is distinguishable from a
// typo.
func (c *Credential) Validate(code string, now time.Time) error {
	if c.ConsumedAt != nil {
		return ErrCredentialAlreadyConsumed
	}
	if c.IsExpired(now) {
		return ErrCredentialExpired
	}
	if c.Code != code {
		return ErrCredentialCodeMismatch
	}
	return nil
}
