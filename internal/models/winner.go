package models

import "time"

// Winner is the off-chain ledger row for one confirmed claim. The
// (GiveawayID, FID) pair is unique; first writer wins and later writers for
// the same key are no-ops. That upsert is the sole concurrency primitive
// protecting the ledger against races between the direct-claim path and the
// reconciliation path.
type Winner struct {
	ID         int64     `json:"id"`
	GiveawayID string    `json:"giveawayId"`
	FID        uint64    `json:"fid"`
	TxHash     string    `json:"txHash"`
	Amount     string    `json:"amount"`
	Username   string    `json:"username"`
	AvatarURL  string    `json:"avatarUrl"`
	CreatedAt  time.Time `json:"createdAt"`
}
