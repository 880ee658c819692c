package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/assistly/assistant-backend/internal/model"
)

// TenantRepo provides access to the `tenants` table. Tenants are created
// and mutated by administrative operations only; request handling reads
// them through the resolver's cache.
type TenantRepo struct{ db *sql.DB }

func NewTenantRepo(db *sql.DB) *TenantRepo { return &TenantRepo{db: db} }

const tenantColumns = "id, name, tenant_key, tag, is_active, default_user_credit, default_anonymous_credit, deeplink_base_url, created_at, updated_at"

func scanTenant(row *sql.Row) (model.Tenant, error) {
	var t model.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.TenantKey, &t.Tag, &t.IsActive,
		&t.DefaultUserCredit, &t.DefaultAnonymousCredit, &t.DeeplinkBaseURL,
		&t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Tenant{}, ErrTenantNotFound
	}
	return t, err
}

// Create inserts a new tenant and returns it with generated fields set.
func (r *TenantRepo) Create(ctx context.Context, t *model.Tenant) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tenants (id, name, tenant_key, tag, is_active, default_user_credit, default_anonymous_credit, deeplink_base_url)
		 VALUES (?,?,?,?,?,?,?,?)`,
		t.ID, t.Name, t.TenantKey, t.Tag, t.IsActive,
		t.DefaultUserCredit, t.DefaultAnonymousCredit, t.DeeplinkBaseURL)
	return err
}

// GetByKey fetches a tenant by its resolution key.
func (r *TenantRepo) GetByKey(ctx context.Context, tenantKey string) (model.Tenant, error) {
	tenantKey = strings.TrimSpace(tenantKey)
	return scanTenant(r.db.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE tenant_key=? LIMIT 1", tenantKey))
}

// GetByID fetches a tenant by primary key.
func (r *TenantRepo) GetByID(ctx context.Context, id string) (model.Tenant, error) {
	return scanTenant(r.db.QueryRowContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants WHERE id=? LIMIT 1", id))
}

// List returns tenants ordered by creation time.
func (r *TenantRepo) List(ctx context.Context, limit, offset int) ([]model.Tenant, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants ORDER BY created_at LIMIT ? OFFSET ?", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Tenant
	for rows.Next() {
		var t model.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.TenantKey, &t.Tag, &t.IsActive,
			&t.DefaultUserCredit, &t.DefaultAnonymousCredit, &t.DeeplinkBaseURL,
			&t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update mutates the tenant's administrative fields. The tenant key is not
// touched here; rotation has its own path.
func (r *TenantRepo) Update(ctx context.Context, t *model.Tenant) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE tenants SET name=?, is_active=?, default_user_credit=?, default_anonymous_credit=?, deeplink_base_url=?, updated_at=?
		 WHERE id=?`,
		t.Name, t.IsActive, t.DefaultUserCredit, t.DefaultAnonymousCredit,
		t.DeeplinkBaseURL, time.Now().UTC(), t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTenantNotFound
	}
	return nil
}

// RotateKey replaces the tenant's resolution key. The old key stops
// resolving immediately; callers must also invalidate any resolver cache
// entry for it.
func (r *TenantRepo) RotateKey(ctx context.Context, id, newKey string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE tenants SET tenant_key=?, updated_at=? WHERE id=?",
		newKey, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTenantNotFound
	}
	return nil
}
