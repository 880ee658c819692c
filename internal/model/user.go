package model

import "time"

// User represents a row in the `users` table. A user belongs to exactly
// one tenant; TenantID is immutable after creation. Email is stored in
// tagged form (tenant tag + real address) so that the same real mailbox
// can exist under several tenants despite a single physical unique index.
// Uniqueness of (tenant_id, email) is additionally enforced by a composite
// index.
//
// Credit is a non-negative integer balance. It is never assigned directly;
// every mutation goes through the ledger's debit/grant paths.
type User struct {
	ID             string
	TenantID       string
	Email          string // tagged form
	HashedPassword *string
	FullName       string
	Credit         int
	IsActive       bool
	IsVerified     bool
	IsPremium      bool
	IsSuperuser    bool
	IsAnonymous    bool
	FederatedID    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
