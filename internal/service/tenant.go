// Package service implements the business operations behind the HTTP
// layer: tenant resolution, the ephemeral credential engine, the credit
// ledger and the account flows composed from them. Services accept small
// store interfaces so tests can run against fakes; the repository types
// satisfy them in production.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/assistly/assistant-backend/internal/model"
	"github.com/assistly/assistant-backend/internal/repository"
)

type tenantGetter interface {
	GetByKey(ctx context.Context, tenantKey string) (model.Tenant, error)
}

// TenantResolver resolves a request-supplied tenant key to a tenant row.
// A Redis read-through cache sits in front of the store; it is never
// authoritative (every miss and every invalidation falls back to the
// database) and a nil client disables caching entirely, the same
// degrade-gracefully contract the Redis constructor has.
type TenantResolver struct {
	store tenantGetter
	cache *redis.Client
	ttl   time.Duration
}

func NewTenantResolver(store tenantGetter, cache *redis.Client, ttl time.Duration) *TenantResolver {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &TenantResolver{store: store, cache: cache, ttl: ttl}
}

// cacheKey hashes the tenant key before it becomes a Redis key; tenant
// keys are secrets and must not be readable from a cache dump.
func cacheKey(tenantKey string) string {
	sum := sha256.Sum256([]byte(tenantKey))
	return "tenant:" + hex.EncodeToString(sum[:])
}

// Resolve returns the tenant for a key. ErrTenantNotFound for an unknown
// or empty key, ErrTenantInactive when the tenant is switched off. The
// active check runs on every call, including cache hits, so deactivation
// takes effect within one cache TTL at worst and immediately after an
// Invalidate.
func (r *TenantResolver) Resolve(ctx context.Context, tenantKey string) (model.Tenant, error) {
	if tenantKey == "" {
		return model.Tenant{}, repository.ErrTenantNotFound
	}
	if r.cache != nil {
		if raw, err := r.cache.Get(ctx, cacheKey(tenantKey)).Bytes(); err == nil {
			var t model.Tenant
			if json.Unmarshal(raw, &t) == nil {
				if !t.IsActive {
					return model.Tenant{}, repository.ErrTenantInactive
				}
				return t, nil
			}
		}
	}
	t, err := r.store.GetByKey(ctx, tenantKey)
	if err != nil && !errors.Is(err, repository.ErrTenantNotFound) && ctx.Err() == nil {
		// Reads are idempotent, so one retry on a transient store failure
		// is safe. Write paths never do this.
		zap.L().Warn("tenant lookup failed, retrying once", zap.Error(err))
		t, err = r.store.GetByKey(ctx, tenantKey)
	}
	if err != nil {
		return model.Tenant{}, err
	}
	if r.cache != nil {
		if raw, err := json.Marshal(t); err == nil {
			if err := r.cache.Set(ctx, cacheKey(tenantKey), raw, r.ttl).Err(); err != nil {
				zap.L().Warn("tenant cache set failed", zap.Error(err))
			}
		}
	}
	if !t.IsActive {
		return model.Tenant{}, repository.ErrTenantInactive
	}
	return t, nil
}

// Invalidate drops the cache entry for a key. Called after key rotation
// and tenant updates so the old key stops resolving immediately.
func (r *TenantResolver) Invalidate(ctx context.Context, tenantKey string) {
	if r.cache == nil || tenantKey == "" {
		return
	}
	if err := r.cache.Del(ctx, cacheKey(tenantKey)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		zap.L().Warn("tenant cache invalidate failed", zap.Error(err))
	}
}
