package models

import "time"

// Giveaway is the durable record of a funded reward pool. It is created
// exactly once, at creation-transaction confirmation, and is immutable
// afterwards. ClaimedCount and IsActive are contract-derived and filled in
// at read time, never persisted.
type Giveaway struct {
	ID             string    `json:"id"`
	Creator        string    `json:"creator"`
	Token          string    `json:"token"`
	Amount         string    `json:"amount"`
	RewardPerClaim string    `json:"rewardPerClaim"`
	MaxClaims      int       `json:"maxClaims"`
	ExpiresAt      int64     `json:"expiresAt"`
	TxHash         string    `json:"txHash"`
	TokenSymbol    string    `json:"tokenSymbol,omitempty"`
	TokenDecimals  int       `json:"tokenDecimals,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`

	// Derived status, populated by the status service on reads.
	ClaimedCount uint64 `json:"claimedCount"`
	IsActive     bool   `json:"isActive"`
	WinnerCount  int64  `json:"winnerCount"`
}
