package service

import (
	"context"
	"errors"
	"math/big"

	apperrors "github.com/AyuTriphasari/baget/internal/errors"
	"github.com/AyuTriphasari/baget/internal/logging"
	"github.com/AyuTriphasari/baget/internal/models"
	"github.com/AyuTriphasari/baget/internal/storage"
	"github.com/AyuTriphasari/baget/internal/types"
)

// RegisterRequest records a giveaway after its creation transaction
// confirms.
type RegisterRequest struct {
	GiveawayID     string `json:"giveawayId"`
	Creator        string `json:"creator"`
	Token          string `json:"token"`
	Amount         string `json:"amount"`
	RewardPerClaim string `json:"rewardPerClaim"`
	MaxClaims      int    `json:"maxClaims"`
	ExpiresAt      int64  `json:"expiresAt"`
	TxHash         string `json:"txHash"`
	TokenSymbol    string `json:"tokenSymbol"`
	TokenDecimals  int    `json:"tokenDecimals"`
}

// GiveawayView is a giveaway decorated with its winner ledger.
type GiveawayView struct {
	*models.Giveaway
	Winners []*models.Winner `json:"winners"`
}

// GiveawayService owns the giveaway records and their read-time decoration
// with contract status and the winner ledger.
type GiveawayService struct {
	giveaways  GiveawayStore
	winners    WinnerStore
	status     *StatusService
	reconciler *Reconciler
	logger     *logging.Logger
}

// NewGiveawayService creates the giveaway service.
func NewGiveawayService(giveaways GiveawayStore, winners WinnerStore, status *StatusService, reconciler *Reconciler, logger *logging.Logger) *GiveawayService {
	return &GiveawayService{
		giveaways:  giveaways,
		winners:    winners,
		status:     status,
		reconciler: reconciler,
		logger:     logger.WithField("component", "giveaways"),
	}
}

// Register persists a giveaway record. Registration is idempotent: a repeat
// for an existing id returns the originally persisted record unchanged.
func (s *GiveawayService) Register(ctx context.Context, req *RegisterRequest) (*models.Giveaway, error) {
	canonical, err := types.CanonicalGiveawayID(req.GiveawayID)
	if err != nil {
		return nil, apperrors.NewInvalidParameterError("giveawayId", err.Error())
	}
	if !types.IsValidAddress(req.Creator) {
		return nil, apperrors.NewInvalidParameterError("creator", "must be a 0x-prefixed 20-byte hex address")
	}
	if !types.IsValidAddress(req.Token) {
		return nil, apperrors.NewInvalidParameterError("token", "must be a 0x-prefixed 20-byte hex address")
	}
	if !isUint256Decimal(req.Amount) {
		return nil, apperrors.NewInvalidParameterError("amount", "must be a non-negative decimal string")
	}
	if !isUint256Decimal(req.RewardPerClaim) {
		return nil, apperrors.NewInvalidParameterError("rewardPerClaim", "must be a non-negative decimal string")
	}
	if req.MaxClaims <= 0 {
		return nil, apperrors.NewInvalidParameterError("maxClaims", "must be a positive integer")
	}
	if !types.IsValidTxHash(req.TxHash) {
		return nil, apperrors.NewInvalidParameterError("txHash", "must be a 0x-prefixed 32-byte hex hash")
	}

	giveaway := &models.Giveaway{
		ID:             canonical,
		Creator:        req.Creator,
		Token:          req.Token,
		Amount:         req.Amount,
		RewardPerClaim: req.RewardPerClaim,
		MaxClaims:      req.MaxClaims,
		ExpiresAt:      req.ExpiresAt,
		TxHash:         req.TxHash,
		TokenSymbol:    req.TokenSymbol,
		TokenDecimals:  req.TokenDecimals,
	}

	inserted, err := s.giveaways.Create(ctx, giveaway)
	if err != nil {
		return nil, apperrors.NewDatabaseError("register giveaway", err)
	}
	if !inserted {
		existing, err := s.giveaways.GetByID(ctx, canonical)
		if err != nil {
			return nil, apperrors.NewDatabaseError("load giveaway", err)
		}
		return existing, nil
	}

	s.logger.WithFields(map[string]interface{}{
		"giveawayId": canonical,
		"creator":    req.Creator,
	}).Info("registered giveaway")

	return giveaway, nil
}

// Get returns a giveaway decorated with contract status and its winner
// ledger. fresh bypasses the status cache. When the contract reports more
// claims than the ledger holds, a reconciliation run is triggered before the
// winners are returned.
func (s *GiveawayService) Get(ctx context.Context, giveawayID string, fresh bool) (*GiveawayView, error) {
	canonical, err := types.CanonicalGiveawayID(giveawayID)
	if err != nil {
		return nil, apperrors.NewInvalidParameterError("giveawayId", err.Error())
	}

	giveaway, err := s.giveaways.GetByID(ctx, canonical)
	if err != nil {
		if errors.Is(err, storage.ErrGiveawayNotFound) {
			return nil, apperrors.NewNotFoundError("giveaway", canonical)
		}
		return nil, apperrors.NewDatabaseError("load giveaway", err)
	}

	winners, err := s.winners.ListByGiveaway(ctx, canonical)
	if err != nil {
		return nil, apperrors.NewDatabaseError("load winners", err)
	}

	s.decorate(ctx, giveaway, int64(len(winners)), fresh)

	// The contract saw claims the ledger missed; backfill and re-read.
	if giveaway.ClaimedCount > uint64(len(winners)) {
		if synced := s.reconciler.Sync(ctx, canonical); synced > 0 {
			if refreshed, err := s.winners.ListByGiveaway(ctx, canonical); err == nil {
				winners = refreshed
				giveaway.WinnerCount = int64(len(winners))
			}
		}
	}

	return &GiveawayView{Giveaway: giveaway, Winners: winners}, nil
}

// ListByCreator returns a creator's giveaways, newest first, keyset-paged by
// cursor. Status decoration uses the cache only; a page of giveaways must
// not fan out into a page of contract calls.
func (s *GiveawayService) ListByCreator(ctx context.Context, creator, cursor string, limit int) ([]*models.Giveaway, error) {
	if !types.IsValidAddress(creator) {
		return nil, apperrors.NewInvalidParameterError("creator", "must be a 0x-prefixed 20-byte hex address")
	}

	giveaways, err := s.giveaways.ListByCreator(ctx, creator, cursor, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list giveaways", err)
	}

	s.decorateList(ctx, giveaways)
	return giveaways, nil
}

// ListLatest returns the most recently created giveaways.
func (s *GiveawayService) ListLatest(ctx context.Context, limit int) ([]*models.Giveaway, error) {
	giveaways, err := s.giveaways.ListLatest(ctx, limit)
	if err != nil {
		return nil, apperrors.NewDatabaseError("list giveaways", err)
	}

	s.decorateList(ctx, giveaways)
	return giveaways, nil
}

// decorate fills the derived status fields. Contract read failures fall back
// to ledger-derived values instead of failing the read.
func (s *GiveawayService) decorate(ctx context.Context, giveaway *models.Giveaway, winnerCount int64, fresh bool) {
	giveaway.WinnerCount = winnerCount

	status, err := s.status.GetStatus(ctx, giveaway.ID, fresh)
	if err != nil {
		s.logger.WithError(err).WithField("giveawayId", giveaway.ID).Warn("status read failed, using ledger fallback")
		giveaway.ClaimedCount = uint64(winnerCount)
		// With the contract unreadable the giveaway is reported active;
		// the contract remains the authority on whether a claim succeeds.
		giveaway.IsActive = true
		return
	}

	giveaway.ClaimedCount = status.ClaimedCount
	giveaway.IsActive = status.IsActive
}

func (s *GiveawayService) decorateList(ctx context.Context, giveaways []*models.Giveaway) {
	for _, giveaway := range giveaways {
		count, err := s.winners.CountByGiveaway(ctx, giveaway.ID)
		if err != nil {
			s.logger.WithError(err).WithField("giveawayId", giveaway.ID).Warn("winner count failed")
		}
		s.decorate(ctx, giveaway, count, false)
	}
}

// isUint256Decimal reports whether s is a plain decimal within uint256 range.
func isUint256Decimal(s string) bool {
	if s == "" {
		return false
	}
	n, ok := new(big.Int).SetString(s, 10)
	return ok && n.Sign() >= 0 && n.BitLen() <= 256
}
