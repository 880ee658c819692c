package model

import "time"

// GrantReason enumerates why credit was added to a balance. Debits carry
// no reason; they are always priced-operation charges.
type GrantReason string

const (
	ReasonRegistrationDefault GrantReason = "registration_default"
	ReasonInvitationBonus     GrantReason = "invitation_bonus"
	ReasonAdReward            GrantReason = "ad_reward"
	ReasonManualTopup         GrantReason = "manual_topup"
	ReasonRedeemCode          GrantReason = "redeem_code"
)

// LedgerEntry is an append-only audit row in the `credit_ledger` table.
// Delta is the signed amount actually applied to the balance; Requested
// records what the caller asked for, which differs from Delta on a
// partial debit.
type LedgerEntry struct {
	ID        string
	UserID    string
	Delta     int
	Requested int
	Reason    GrantReason
	CreatedAt time.Time
}
