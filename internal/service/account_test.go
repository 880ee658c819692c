package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assistly/assistant-backend/internal/model"
	"github.com/assistly/assistant-backend/internal/repository"
	"github.com/assistly/assistant-backend/internal/utils"
)

const testBcryptCost = 4 // bcrypt.MinCost, keeps the suite fast

func newTestAccounts(now time.Time) (*AccountService, *fakeUserStore, *fakeCredStore, *fakeNotifier) {
	users := newFakeUserStore()
	creds := &fakeCredStore{}
	notifier := &fakeNotifier{}
	engine := NewCredentialEngine(&fakeTx{}, creds, DefaultCredentialPolicy()).
		WithClock(func() time.Time { return now })
	svc := NewAccountService(&fakeTx{}, users, engine, notifier, testBcryptCost)
	return svc, users, creds, notifier
}

func TestRegister(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, users, _, notifier := newTestAccounts(now)
	ctx := context.Background()
	tenant := testTenant()

	u, err := svc.Register(ctx, tenant, RegisterInput{
		Email:    "User@Example.com",
		Password: "hunter2-long",
		FullName: "Test User",
	})
	require.NoError(t, err)
	assert.Equal(t, "acme+user@example.com", u.Email)
	assert.Equal(t, tenant.DefaultUserCredit, u.Credit)
	assert.False(t, u.IsVerified)
	require.NotNil(t, u.HashedPassword)
	assert.True(t, utils.VerifyPassword(*u.HashedPassword, "hunter2-long"))

	// Seed grant went through the ledger, not a direct assignment.
	require.Len(t, users.grants, 1)
	assert.Equal(t, model.ReasonRegistrationDefault, users.grants[0].Reason)
	assert.Equal(t, tenant.DefaultUserCredit, users.grants[0].Delta)

	// Verification email dispatched to the real, untagged address.
	require.Len(t, notifier.events, 1)
	assert.Equal(t, "verify:user@example.com", notifier.events[0])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestAccounts(now)
	ctx := context.Background()
	tenant := testTenant()

	_, err := svc.Register(ctx, tenant, RegisterInput{Email: "a@b.co", Password: "password-1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, tenant, RegisterInput{Email: "a@b.co", Password: "password-2"})
	assert.ErrorIs(t, err, repository.ErrEmailExists)

	// The same mailbox registers cleanly under another tenant: the tag
	// keeps the two rows from colliding on the shared email index.
	other := testTenant()
	other.ID = "tenant-2"
	other.Tag = "globex"
	u, err := svc.Register(ctx, other, RegisterInput{Email: "a@b.co", Password: "password-3"})
	require.NoError(t, err)
	assert.Equal(t, "globex+a@b.co", u.Email)
}

func TestRegisterAnonymous(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _, _, notifier := newTestAccounts(now)
	ctx := context.Background()
	tenant := testTenant()

	u, err := svc.Register(ctx, tenant, RegisterInput{
		Email:     "device-42@anon.local",
		Anonymous: true,
	})
	require.NoError(t, err)
	assert.True(t, u.IsAnonymous)
	assert.Nil(t, u.HashedPassword)
	assert.Equal(t, tenant.DefaultAnonymousCredit, u.Credit)
	assert.Empty(t, notifier.events, "anonymous accounts get no verification email")
}

func TestRegisterWithInviteCode(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, users, _, _ := newTestAccounts(now)
	ctx := context.Background()
	tenant := testTenant()

	inviter, err := svc.Register(ctx, tenant, RegisterInput{Email: "host@b.co", Password: "password-1"})
	require.NoError(t, err)
	cred, err := svc.Invite(ctx, tenant, inviter, "guest@b.co")
	require.NoError(t, err)

	invitee, err := svc.Register(ctx, tenant, RegisterInput{
		Email:      "guest@b.co",
		Password:   "password-2",
		InviteCode: cred.Code,
	})
	require.NoError(t, err)
	assert.Equal(t, tenant.DefaultUserCredit, invitee.Credit)

	// Inviter got the bonus exactly once.
	host, err := users.GetByID(ctx, tenant.ID, inviter.ID)
	require.NoError(t, err)
	assert.Equal(t, 2*tenant.DefaultUserCredit, host.Credit)

	// Replaying the code in a new registration fails whole: no user, no
	// second bonus.
	_, err = svc.Register(ctx, tenant, RegisterInput{
		Email:      "another@b.co",
		Password:   "password-3",
		InviteCode: cred.Code,
	})
	assert.ErrorIs(t, err, model.ErrCredentialAlreadyConsumed)
	host, _ = users.GetByID(ctx, tenant.ID, inviter.ID)
	assert.Equal(t, 2*tenant.DefaultUserCredit, host.Credit)
}

func TestInviteExistingUser(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _, _, _ := newTestAccounts(now)
	ctx := context.Background()
	tenant := testTenant()

	inviter, err := svc.Register(ctx, tenant, RegisterInput{Email: "host@b.co", Password: "password-1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, tenant, RegisterInput{Email: "taken@b.co", Password: "password-2"})
	require.NoError(t, err)

	_, err = svc.Invite(ctx, tenant, inviter, "taken@b.co")
	assert.ErrorIs(t, err, ErrInviteeExists)
}

func TestAuthenticate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, users, _, _ := newTestAccounts(now)
	ctx := context.Background()
	tenant := testTenant()

	u, err := svc.Register(ctx, tenant, RegisterInput{Email: "a@b.co", Password: "password-1"})
	require.NoError(t, err)

	got, err := svc.Authenticate(ctx, tenant, "a@b.co", "password-1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, tenant, "a@b.co", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, tenant, "nobody@b.co", "password-1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	users.users[u.ID].IsActive = false
	_, err = svc.Authenticate(ctx, tenant, "a@b.co", "password-1")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestLoginFederated(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _, _, notifier := newTestAccounts(now)
	ctx := context.Background()
	tenant := testTenant()

	// First login creates the account, already verified, no email.
	u, err := svc.LoginFederated(ctx, tenant, "google-123", "fed@b.co", "Fed User")
	require.NoError(t, err)
	assert.True(t, u.IsVerified)
	assert.Equal(t, tenant.DefaultUserCredit, u.Credit)
	assert.Empty(t, notifier.events)

	// Second login resolves the same account.
	again, err := svc.LoginFederated(ctx, tenant, "google-123", "fed@b.co", "Fed User")
	require.NoError(t, err)
	assert.Equal(t, u.ID, again.ID)
}

func TestVerifyEmail(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, users, creds, _ := newTestAccounts(now)
	ctx := context.Background()
	tenant := testTenant()

	u, err := svc.Register(ctx, tenant, RegisterInput{Email: "a@b.co", Password: "password-1"})
	require.NoError(t, err)
	cred, err := creds.LatestByEmail(ctx, tenant.ID, model.KindVerify, u.Email)
	require.NoError(t, err)

	_, err = svc.VerifyEmail(ctx, tenant, "a@b.co", cred.Code)
	require.NoError(t, err)
	assert.True(t, users.users[u.ID].IsVerified)

	// Resending for a verified account is rejected.
	err = svc.ResendVerification(ctx, tenant, "a@b.co")
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestResendVerificationSupersedes(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _, creds, _ := newTestAccounts(now)
	ctx := context.Background()
	tenant := testTenant()

	u, err := svc.Register(ctx, tenant, RegisterInput{Email: "a@b.co", Password: "password-1"})
	require.NoError(t, err)
	old, err := creds.LatestByEmail(ctx, tenant.ID, model.KindVerify, u.Email)
	require.NoError(t, err)

	require.NoError(t, svc.ResendVerification(ctx, tenant, "a@b.co"))

	// Old code gone, new one validates.
	_, err = svc.VerifyEmail(ctx, tenant, "a@b.co", old.Code)
	assert.Error(t, err)
}

func TestResetPassword(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _, creds, notifier := newTestAccounts(now)
	ctx := context.Background()
	tenant := testTenant()

	u, err := svc.Register(ctx, tenant, RegisterInput{Email: "a@b.co", Password: "old-password"})
	require.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(ctx, tenant, "a@b.co"))
	assert.Contains(t, notifier.events, "reset:a@b.co")

	cred, err := creds.LatestByEmail(ctx, tenant.ID, model.KindReset, u.Email)
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, tenant, "a@b.co", cred.Code, "new-password"))

	_, err = svc.Authenticate(ctx, tenant, "a@b.co", "old-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, tenant, "a@b.co", "new-password")
	assert.NoError(t, err)

	// The code is single-use.
	err = svc.ResetPassword(ctx, tenant, "a@b.co", cred.Code, "third-password")
	assert.ErrorIs(t, err, model.ErrCredentialAlreadyConsumed)
}

func TestRegisterSurvivesBrokerFailure(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _, _, notifier := newTestAccounts(now)
	notifier.fail = true
	ctx := context.Background()
	tenant := testTenant()

	u, err := svc.Register(ctx, tenant, RegisterInput{Email: "a@b.co", Password: "password-1"})
	require.NoError(t, err, "a dead broker must not fail registration")
	assert.NotEmpty(t, u.ID)
}
