// Package service implements the claim-authorization and reconciliation
// engine: ownership verification, authorization signing, contract status
// caching, claim recording and ledger backfill.
package service

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/AyuTriphasari/baget/internal/adapter"
	"github.com/AyuTriphasari/baget/internal/models"
	"github.com/AyuTriphasari/baget/internal/types"
)

// ChainReader is the read-only blockchain surface the core depends on. The
// state-changing claim call is submitted by clients; this service only
// authorizes it.
type ChainReader interface {
	GiveawayStatus(ctx context.Context, giveawayID *big.Int) (*types.GiveawayStatus, error)
	TransactionReceipt(ctx context.Context, txHash string) (*ethtypes.Receipt, error)
	ContractAddress() common.Address
}

// LogIndexer queries historical contract events by topic filter.
type LogIndexer interface {
	FilterLogs(ctx context.Context, contract common.Address, topic0, topic1 common.Hash, fromBlock uint64) ([]adapter.IndexedLog, error)
}

// ProfileResolver resolves FIDs to social profiles.
type ProfileResolver interface {
	User(ctx context.Context, fid uint64) (*types.Profile, error)
	UsersBulk(ctx context.Context, fids []uint64) ([]*types.Profile, error)
}

// WinnerStore is the winner ledger surface used by the core.
type WinnerStore interface {
	Upsert(ctx context.Context, w *models.Winner) (*models.Winner, bool, error)
	ListByGiveaway(ctx context.Context, giveawayID string) ([]*models.Winner, error)
	CountByGiveaway(ctx context.Context, giveawayID string) (int64, error)
	FidsByGiveaway(ctx context.Context, giveawayID string) (map[uint64]bool, error)
}

// GiveawayStore is the giveaway table surface used by the core.
type GiveawayStore interface {
	Create(ctx context.Context, g *models.Giveaway) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Giveaway, error)
	ListByCreator(ctx context.Context, creator, cursor string, limit int) ([]*models.Giveaway, error)
	ListLatest(ctx context.Context, limit int) ([]*models.Giveaway, error)
}
