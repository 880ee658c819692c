package model

// RedeemCode is a row in the `redeem_codes` table: a single-use top-up
// voucher created by an administrator. Value is the credit granted on use
// and is at least 50 by policy, enforced at the admin API boundary.
type RedeemCode struct {
	ID     string
	Code   string
	Value  int
	IsUsed bool
}
