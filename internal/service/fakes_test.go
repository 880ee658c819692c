package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/assistly/assistant-backend/internal/model"
	"github.com/assistly/assistant-backend/internal/queue"
	"github.com/assistly/assistant-backend/internal/repository"
	"github.com/assistly/assistant-backend/internal/utils"
)

// fakeTx satisfies Transactor without a database. The nil *sql.Tx is fine
// because every fake store ignores its tx argument.
type fakeTx struct{ calls int }

func (f *fakeTx) Transact(ctx context.Context, fn func(*sql.Tx) error) error {
	f.calls++
	return fn(nil)
}

// fakeCredStore keeps credentials in insertion order, newest last.
type fakeCredStore struct {
	rows []*model.Credential
	seq  int
}

func (f *fakeCredStore) Insert(ctx context.Context, c *model.Credential) error {
	f.seq++
	c.ID = fmt.Sprintf("cred-%d", f.seq)
	cp := *c
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeCredStore) DeleteUnconsumed(ctx context.Context, tenantID string, kind model.CredentialKind, email string) error {
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.TenantID == tenantID && r.Kind == kind && r.Email == email && r.ConsumedAt == nil {
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return nil
}

func (f *fakeCredStore) latest(tenantID string, kind model.CredentialKind, email string) (*model.Credential, error) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		r := f.rows[i]
		if r.TenantID == tenantID && r.Kind == kind && r.Email == email {
			return r, nil
		}
	}
	return nil, model.ErrCredentialNotFound
}

func (f *fakeCredStore) byCode(tenantID string, kind model.CredentialKind, code string) (*model.Credential, error) {
	for _, r := range f.rows {
		if r.TenantID == tenantID && r.Kind == kind && r.Code == code {
			return r, nil
		}
	}
	return nil, model.ErrCredentialNotFound
}

func (f *fakeCredStore) LatestByEmail(ctx context.Context, tenantID string, kind model.CredentialKind, email string) (model.Credential, error) {
	r, err := f.latest(tenantID, kind, email)
	if err != nil {
		return model.Credential{}, err
	}
	return *r, nil
}

func (f *fakeCredStore) GetByCode(ctx context.Context, tenantID string, kind model.CredentialKind, code string) (model.Credential, error) {
	r, err := f.byCode(tenantID, kind, code)
	if err != nil {
		return model.Credential{}, err
	}
	return *r, nil
}

func (f *fakeCredStore) LatestForUpdateTx(ctx context.Context, tx *sql.Tx, tenantID string, kind model.CredentialKind, email string) (model.Credential, error) {
	return f.LatestByEmail(ctx, tenantID, kind, email)
}

func (f *fakeCredStore) CodeForUpdateTx(ctx context.Context, tx *sql.Tx, tenantID string, kind model.CredentialKind, code string) (model.Credential, error) {
	return f.GetByCode(ctx, tenantID, kind, code)
}

func (f *fakeCredStore) MarkConsumedTx(ctx context.Context, tx *sql.Tx, id string, at time.Time) error {
	for _, r := range f.rows {
		if r.ID == id {
			if r.ConsumedAt != nil {
				return model.ErrCredentialAlreadyConsumed
			}
			t := at
			r.ConsumedAt = &t
			return nil
		}
	}
	return model.ErrCredentialNotFound
}

// fakeUserStore implements userStore and balanceStore over a map.
type fakeUserStore struct {
	users  map[string]*model.User // by ID
	grants []model.LedgerEntry
	seq    int
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*model.User{}}
}

func (f *fakeUserStore) add(u model.User) *model.User {
	cp := u
	f.users[cp.ID] = &cp
	return &cp
}

func (f *fakeUserStore) CreateTx(ctx context.Context, tx *sql.Tx, tenant model.Tenant, u *model.User) error {
	tagged := utils.TagEmail(tenant.Tag, u.Email)
	for _, ex := range f.users {
		if ex.Email == tagged {
			return repository.ErrEmailExists
		}
	}
	f.seq++
	u.ID = fmt.Sprintf("user-%d", f.seq)
	u.TenantID = tenant.ID
	u.Email = tagged
	f.add(*u)
	return nil
}

func (f *fakeUserStore) GetByEmail(ctx context.Context, tenant model.Tenant, email string) (model.User, error) {
	tagged := utils.TagEmail(tenant.Tag, email)
	for _, u := range f.users {
		if u.TenantID == tenant.ID && u.Email == tagged {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (f *fakeUserStore) GetByFederatedID(ctx context.Context, tenantID, federatedID string) (model.User, error) {
	for _, u := range f.users {
		if u.TenantID == tenantID && u.FederatedID != nil && *u.FederatedID == federatedID {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrUserNotFound
}

func (f *fakeUserStore) GetByID(ctx context.Context, tenantID, id string) (model.User, error) {
	if u, ok := f.users[id]; ok && u.TenantID == tenantID {
		return *u, nil
	}
	return model.User{}, repository.ErrUserNotFound
}

func (f *fakeUserStore) UpdatePasswordTx(ctx context.Context, tx *sql.Tx, id, hashed string) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.HashedPassword = &hashed
	return nil
}

func (f *fakeUserStore) SetVerifiedTx(ctx context.Context, tx *sql.Tx, id string) error {
	u, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.IsVerified = true
	return nil
}

func (f *fakeUserStore) DebitTx(ctx context.Context, tx *sql.Tx, userID string, amount int) (int, bool, int, error) {
	u, ok := f.users[userID]
	if !ok {
		return 0, false, 0, repository.ErrUserNotFound
	}
	applied := amount
	sufficient := true
	if u.Credit < amount {
		applied = u.Credit
		sufficient = false
	}
	u.Credit -= applied
	f.grants = append(f.grants, model.LedgerEntry{UserID: userID, Delta: -applied, Requested: -amount})
	return applied, sufficient, u.Credit, nil
}

func (f *fakeUserStore) GrantTx(ctx context.Context, tx *sql.Tx, userID string, amount int, reason model.GrantReason) (int, error) {
	u, ok := f.users[userID]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	u.Credit += amount
	f.grants = append(f.grants, model.LedgerEntry{UserID: userID, Delta: amount, Requested: amount, Reason: reason})
	return u.Credit, nil
}

// fakeRedeemStore implements redeemStore.
type fakeRedeemStore struct {
	codes map[string]*model.RedeemCode
}

func (f *fakeRedeemStore) UseTx(ctx context.Context, tx *sql.Tx, code string) (int, error) {
	rc, ok := f.codes[code]
	if !ok || rc.IsUsed {
		return 0, repository.ErrRedeemCodeInvalid
	}
	rc.IsUsed = true
	return rc.Value, nil
}

// fakeNotifier records published email events.
type fakeNotifier struct {
	events []string // "kind:to"
	fail   bool
}

func (f *fakeNotifier) PublishEmail(ctx context.Context, evt queue.EmailEvent) error {
	if f.fail {
		return fmt.Errorf("broker down")
	}
	f.events = append(f.events, evt.Kind+":"+evt.To)
	return nil
}

func testTenant() model.Tenant {
	return model.Tenant{
		ID:                     "tenant-1",
		Name:                   "Acme Assistant",
		TenantKey:              "key-1",
		Tag:                    "acme",
		IsActive:               true,
		DefaultUserCredit:      10,
		DefaultAnonymousCredit: 3,
		DeeplinkBaseURL:        "https://acme.example.com",
	}
}
