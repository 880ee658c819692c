package model

import "time"

// Ad is a row in the `ads` table: a named mobile ad placement owned by one
// tenant. Clients look up the unit ID by name; watching a rewarded ad
// grants a small credit bonus through the ledger.
type Ad struct {
	ID        string
	TenantID  string
	Name      string
	UnitID    string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
