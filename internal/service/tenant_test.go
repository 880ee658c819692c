package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assistly/assistant-backend/internal/model"
	"github.com/assistly/assistant-backend/internal/repository"
)

type fakeTenantStore struct {
	byKey    map[string]model.Tenant
	hits     int
	failures int // transient errors returned before lookups start succeeding
}

func (f *fakeTenantStore) GetByKey(ctx context.Context, key string) (model.Tenant, error) {
	f.hits++
	if f.failures > 0 {
		f.failures--
		return model.Tenant{}, assert.AnError
	}
	t, ok := f.byKey[key]
	if !ok {
		return model.Tenant{}, repository.ErrTenantNotFound
	}
	return t, nil
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	active := testTenant()
	inactive := testTenant()
	inactive.ID = "tenant-2"
	inactive.TenantKey = "key-2"
	inactive.IsActive = false

	store := &fakeTenantStore{byKey: map[string]model.Tenant{
		active.TenantKey:   active,
		inactive.TenantKey: inactive,
	}}
	r := NewTenantResolver(store, nil, 30*time.Second)

	got, err := r.Resolve(ctx, active.TenantKey)
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)

	_, err = r.Resolve(ctx, inactive.TenantKey)
	assert.ErrorIs(t, err, repository.ErrTenantInactive)

	_, err = r.Resolve(ctx, "no-such-key")
	assert.ErrorIs(t, err, repository.ErrTenantNotFound)

	_, err = r.Resolve(ctx, "")
	assert.ErrorIs(t, err, repository.ErrTenantNotFound)
	// The empty key short-circuits before the store.
	assert.Equal(t, 3, store.hits)
}

func TestResolveRetriesTransientFailureOnce(t *testing.T) {
	ctx := context.Background()
	active := testTenant()

	store := &fakeTenantStore{
		byKey:    map[string]model.Tenant{active.TenantKey: active},
		failures: 1,
	}
	r := NewTenantResolver(store, nil, time.Minute)

	got, err := r.Resolve(ctx, active.TenantKey)
	require.NoError(t, err)
	assert.Equal(t, active.ID, got.ID)
	assert.Equal(t, 2, store.hits)

	// Two consecutive failures exhaust the single retry.
	store.failures = 2
	_, err = r.Resolve(ctx, active.TenantKey)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 4, store.hits)
}

func TestResolveWithoutCacheHitsStoreEveryTime(t *testing.T) {
	ctx := context.Background()
	active := testTenant()
	store := &fakeTenantStore{byKey: map[string]model.Tenant{active.TenantKey: active}}
	r := NewTenantResolver(store, nil, time.Minute)

	for i := 0; i < 3; i++ {
		_, err := r.Resolve(ctx, active.TenantKey)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, store.hits)
}
