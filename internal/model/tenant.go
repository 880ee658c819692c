package model

import "time"

// Tenant represents a client application sharing this deployment, as
// stored in the `tenants` table. Each tenant has isolated users and its
// own defaults. The TenantKey is a caller-supplied secret sent in the
// X-Tenant-Key header and is the only way a request resolves a tenant.
//
// Fields:
//  ID                     – primary key (UUID string).
//  Name                   – human-readable tenant name.
//  TenantKey              – unique resolution key; rotated, never reused.
//  Tag                    – short identifier used to tag stored emails.
//  IsActive               – inactive tenants reject every request.
//  DefaultUserCredit      – credit granted to a new registered user.
//  DefaultAnonymousCredit – credit granted to a new anonymous user.
//  DeeplinkBaseURL        – base URL for invitation deeplinks.
type Tenant struct {
	ID                     string
	Name                   string
	TenantKey              string
	Tag                    string
	IsActive               bool
	DefaultUserCredit      int
	DefaultAnonymousCredit int
	DeeplinkBaseURL        string
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
