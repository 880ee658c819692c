package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/assistly/assistant-backend/internal/model"
)

// AdRepo provides access to the `ads` table of per-tenant ad placements.
type AdRepo struct{ db *sql.DB }

func NewAdRepo(db *sql.DB) *AdRepo { return &AdRepo{db: db} }

// Create inserts an ad placement for a tenant.
func (r *AdRepo) Create(ctx context.Context, a *model.Ad) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO ads (id, tenant_id, name, unit_id, is_active) VALUES (?,?,?,?,?)",
		a.ID, a.TenantID, a.Name, a.UnitID, a.IsActive)
	return err
}

// GetActiveByName returns the active ad with the given name in the tenant.
func (r *AdRepo) GetActiveByName(ctx context.Context, tenantID, name string) (model.Ad, error) {
	var a model.Ad
	err := r.db.QueryRowContext(ctx,
		`SELECT id, tenant_id, name, unit_id, is_active, created_at, updated_at
		 FROM ads WHERE tenant_id=? AND name=? AND is_active=TRUE LIMIT 1`,
		tenantID, name).Scan(&a.ID, &a.TenantID, &a.Name, &a.UnitID, &a.IsActive,
		&a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.Ad{}, ErrAdNotFound
	}
	return a, err
}
