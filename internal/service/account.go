package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/assistly/assistant-backend/internal/model"
	"github.com/assistly/assistant-backend/internal/queue"
	"github.com/assistly/assistant-backend/internal/utils"
)

// Account-flow errors surfaced to handlers.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user inactive")
	ErrAlreadyVerified    = errors.New("user already verified")
	ErrInviteeExists      = errors.New("invited email already registered")
)

type userStore interface {
	CreateTx(ctx context.Context, tx *sql.Tx, tenant model.Tenant, u *model.User) error
	GetByEmail(ctx context.Context, tenant model.Tenant, email string) (model.User, error)
	GetByFederatedID(ctx context.Context, tenantID, federatedID string) (model.User, error)
	GetByID(ctx context.Context, tenantID, id string) (model.User, error)
	UpdatePasswordTx(ctx context.Context, tx *sql.Tx, id, hashed string) error
	SetVerifiedTx(ctx context.Context, tx *sql.Tx, id string) error
	GrantTx(ctx context.Context, tx *sql.Tx, userID string, amount int, reason model.GrantReason) (int, error)
}

// AccountService composes the identity store, the credential engine and
// the credit ledger into the register/login/verify/reset/invite flows.
// Flows that pair a credential consumption with a user mutation run both
// inside one transaction.
type AccountService struct {
	tx         Transactor
	users      userStore
	creds      *CredentialEngine
	notifier   Notifier
	bcryptCost int
}

func NewAccountService(tx Transactor, users userStore, creds *CredentialEngine, notifier Notifier, bcryptCost int) *AccountService {
	return &AccountService{tx: tx, users: users, creds: creds, notifier: notifier, bcryptCost: bcryptCost}
}

// RegisterInput carries everything a registration may include. InviteCode
// is optional; FederatedID marks a first federated login; Anonymous
// accounts get the tenant's anonymous credit default and no password.
type RegisterInput struct {
	Email       string
	Password    string
	FullName    string
	InviteCode  string
	FederatedID *string
	Anonymous   bool
}

// Register creates a user under the tenant, seeds the balance through a
// registration grant and, when an invite code is supplied, consumes the
// invitation and applies the inviter bonus, all in one transaction. A
// retried registration with an already-consumed code fails whole, so the
// bonus can never apply twice.
func (s *AccountService) Register(ctx context.Context, tenant model.Tenant, in RegisterInput) (model.User, error) {
	u := model.User{
		Email:       strings.ToLower(strings.TrimSpace(in.Email)),
		FullName:    in.FullName,
		IsActive:    true,
		IsAnonymous: in.Anonymous,
		FederatedID: in.FederatedID,
	}
	if in.Password != "" {
		hashed, err := utils.HashPassword(in.Password, s.bcryptCost)
		if err != nil {
			return model.User{}, fmt.Errorf("hash password: %w", err)
		}
		u.HashedPassword = &hashed
	}
	if in.FederatedID != nil {
		u.IsVerified = true
	}
	seed := tenant.DefaultUserCredit
	if in.Anonymous {
		seed = tenant.DefaultAnonymousCredit
	}

	err := s.tx.Transact(ctx, func(tx *sql.Tx) error {
		if err := s.users.CreateTx(ctx, tx, tenant, &u); err != nil {
			return err
		}
		if seed > 0 {
			balance, err := s.users.GrantTx(ctx, tx, u.ID, seed, model.ReasonRegistrationDefault)
			if err != nil {
				return err
			}
			u.Credit = balance
		}
		if in.InviteCode != "" {
			var cred model.Credential
			if err := s.creds.ConsumeByCodeTx(ctx, tx, tenant, model.KindInvite, in.InviteCode, nil, &cred); err != nil {
				return err
			}
			if cred.InviterID != nil {
				if _, err := s.users.GrantTx(ctx, tx, *cred.InviterID, tenant.DefaultUserCredit, model.ReasonInvitationBonus); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return model.User{}, err
	}

	if !in.Anonymous && in.FederatedID == nil {
		if err := s.sendVerification(ctx, tenant, u); err != nil {
			zap.L().Warn("verification email not dispatched",
				zap.String("tenant_id", tenant.ID), zap.String("user_id", u.ID), zap.Error(err))
		}
	}
	return u, nil
}

// Authenticate checks email+password within the tenant. The same error
// covers unknown email and wrong password so accounts cannot be
// enumerated; inactive accounts are reported distinctly.
func (s *AccountService) Authenticate(ctx context.Context, tenant model.Tenant, email, password string) (model.User, error) {
	u, err := s.users.GetByEmail(ctx, tenant, email)
	if err != nil {
		return model.User{}, ErrInvalidCredentials
	}
	if u.HashedPassword == nil || !utils.VerifyPassword(*u.HashedPassword, password) {
		return model.User{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return model.User{}, ErrUserInactive
	}
	return u, nil
}

// LoginFederated resolves a user by external identity, creating the
// account on first login with the tenant's registration defaults.
func (s *AccountService) LoginFederated(ctx context.Context, tenant model.Tenant, federatedID, email, fullName string) (model.User, error) {
	u, err := s.users.GetByFederatedID(ctx, tenant.ID, federatedID)
	if err == nil {
		if !u.IsActive {
			return model.User{}, ErrUserInactive
		}
		return u, nil
	}
	return s.Register(ctx, tenant, RegisterInput{
		Email:       email,
		FullName:    fullName,
		FederatedID: &federatedID,
	})
}

// VerifyEmail consumes a verification code and marks the user verified in
// the same transaction.
func (s *AccountService) VerifyEmail(ctx context.Context, tenant model.Tenant, email, code string) (model.Credential, error) {
	return s.creds.ValidateAndConsume(ctx, tenant, model.KindVerify, email, code,
		func(ctx context.Context, tx *sql.Tx, cred model.Credential) error {
			if cred.UserID == nil {
				return model.ErrCredentialNotFound
			}
			return s.users.SetVerifiedTx(ctx, tx, *cred.UserID)
		})
}

// ResendVerification supersedes any outstanding verification code and
// emails a fresh one.
func (s *AccountService) ResendVerification(ctx context.Context, tenant model.Tenant, email string) error {
	u, err := s.users.GetByEmail(ctx, tenant, email)
	if err != nil {
		return err
	}
	if u.IsVerified {
		return ErrAlreadyVerified
	}
	return s.sendVerification(ctx, tenant, u)
}

func (s *AccountService) sendVerification(ctx context.Context, tenant model.Tenant, u model.User) error {
	cred, err := s.creds.Reissue(ctx, tenant, model.KindVerify, &u.ID, u.Email, nil)
	if err != nil {
		return err
	}
	real := utils.DetagEmail(tenant.Tag, u.Email)
	s.dispatch(ctx, tenant, queue.EmailEvent{
		To:      real,
		Kind:    string(model.KindVerify),
		Subject: fmt.Sprintf("%s - verify your email", tenant.Name),
		Body: fmt.Sprintf("Your verification code is %s. It expires in %d minutes.\n%s/verify?otp=%s",
			cred.Code, int(s.creds.policy.VerifyTTL.Minutes()), tenant.DeeplinkBaseURL, cred.Code),
	})
	return nil
}

// RequestPasswordReset issues a reset code for an existing account and
// emails it. Issuance succeeds even if the email is never delivered.
func (s *AccountService) RequestPasswordReset(ctx context.Context, tenant model.Tenant, email string) error {
	u, err := s.users.GetByEmail(ctx, tenant, email)
	if err != nil {
		return err
	}
	cred, err := s.creds.Reissue(ctx, tenant, model.KindReset, &u.ID, u.Email, nil)
	if err != nil {
		return err
	}
	real := utils.DetagEmail(tenant.Tag, u.Email)
	s.dispatch(ctx, tenant, queue.EmailEvent{
		To:      real,
		Kind:    string(model.KindReset),
		Subject: fmt.Sprintf("%s - password recovery", tenant.Name),
		Body: fmt.Sprintf("Your password reset code is %s. It expires in %d hours.",
			cred.Code, int(s.creds.policy.ResetTTL.Hours())),
	})
	return nil
}

// ResetPassword consumes a reset code and rehashes the password in the
// same transaction.
func (s *AccountService) ResetPassword(ctx context.Context, tenant model.Tenant, email, code, newPassword string) error {
	hashed, err := utils.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.creds.ValidateAndConsume(ctx, tenant, model.KindReset, email, code,
		func(ctx context.Context, tx *sql.Tx, cred model.Credential) error {
			if cred.UserID == nil {
				return model.ErrCredentialNotFound
			}
			return s.users.UpdatePasswordTx(ctx, tx, *cred.UserID, hashed)
		})
	return err
}

// Invite issues an invitation credential for an address not yet registered
// in the tenant and emails the deeplink. The inviter bonus is applied only
// when the invitee registers with the code.
func (s *AccountService) Invite(ctx context.Context, tenant model.Tenant, inviter model.User, inviteeEmail string) (model.Credential, error) {
	if _, err := s.users.GetByEmail(ctx, tenant, inviteeEmail); err == nil {
		return model.Credential{}, ErrInviteeExists
	}
	cred, err := s.creds.Issue(ctx, tenant, model.KindInvite, nil, inviteeEmail, &inviter.ID)
	if err != nil {
		return model.Credential{}, err
	}
	inviterName := inviter.FullName
	if inviterName == "" {
		inviterName = utils.DetagEmail(tenant.Tag, inviter.Email)
	}
	s.dispatch(ctx, tenant, queue.EmailEvent{
		To:      strings.ToLower(strings.TrimSpace(inviteeEmail)),
		Kind:    string(model.KindInvite),
		Subject: fmt.Sprintf("%s - %s invited you", tenant.Name, inviterName),
		Body: fmt.Sprintf("%s invited you to join %s. Register with this link:\n%s/invite?code=%s",
			inviterName, tenant.Name, tenant.DeeplinkBaseURL, cred.Code),
	})
	return cred, nil
}

// InviteLookup returns a pending invitation by code without consuming it.
func (s *AccountService) InviteLookup(ctx context.Context, tenant model.Tenant, code string) (model.Credential, error) {
	return s.creds.Peek(ctx, tenant, model.KindInvite, code)
}

// dispatch publishes an email event best-effort. A broker failure is
// logged and swallowed; the credential that triggered the email is already
// committed and can be re-sent.
func (s *AccountService) dispatch(ctx context.Context, tenant model.Tenant, evt queue.EmailEvent) {
	if s.notifier == nil {
		return
	}
	evt.TenantID = tenant.ID
	evt.TenantName = tenant.Name
	evt.PublishedAt = time.Now().UTC().Format(time.RFC3339)
	if err := s.notifier.PublishEmail(ctx, evt); err != nil {
		zap.L().Warn("email event publish failed",
			zap.String("tenant_id", tenant.ID), zap.String("kind", evt.Kind), zap.Error(err))
	}
}
