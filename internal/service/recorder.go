package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/AyuTriphasari/baget/internal/adapter"
	apperrors "github.com/AyuTriphasari/baget/internal/errors"
	"github.com/AyuTriphasari/baget/internal/logging"
	"github.com/AyuTriphasari/baget/internal/models"
	"github.com/AyuTriphasari/baget/internal/types"
)

// RecordRequest is a confirmed-claim notification from a client.
type RecordRequest struct {
	GiveawayID string `json:"giveawayId"`
	FID        uint64 `json:"fid"`
	TxHash     string `json:"txHash"`
	Amount     string `json:"amount"`
}

// Recorder writes confirmed claims into the winner ledger. Nothing a client
// submits is trusted: the transaction receipt is fetched independently and
// must carry a claim event from the giveaway contract matching the submitted
// giveaway and FID.
type Recorder struct {
	chain    ChainReader
	profiles ProfileResolver
	winners  WinnerStore
	status   *StatusService
	logger   *logging.Logger
}

// NewRecorder creates the claim recorder.
func NewRecorder(chain ChainReader, profiles ProfileResolver, winners WinnerStore, status *StatusService, logger *logging.Logger) *Recorder {
	return &Recorder{
		chain:    chain,
		profiles: profiles,
		winners:  winners,
		status:   status,
		logger:   logger.WithField("component", "recorder"),
	}
}

// RecordClaim verifies the claim transaction and upserts the winner row.
// Repeat submissions for the same (giveaway, FID) return the originally
// persisted row unchanged.
func (r *Recorder) RecordClaim(ctx context.Context, req *RecordRequest) (*models.Winner, error) {
	canonical, err := types.CanonicalGiveawayID(req.GiveawayID)
	if err != nil {
		return nil, apperrors.NewInvalidParameterError("giveawayId", err.Error())
	}
	if req.FID == 0 {
		return nil, apperrors.NewInvalidParameterError("fid", "must be a positive integer")
	}
	if !types.IsValidTxHash(req.TxHash) {
		return nil, apperrors.NewInvalidParameterError("txHash", "must be a 0x-prefixed 32-byte hex hash")
	}

	event, err := r.verifyReceipt(ctx, canonical, req.FID, req.TxHash)
	if err != nil {
		return nil, err
	}

	// Profile enrichment is best-effort; the ledger falls back to the
	// deterministic FID placeholder.
	var profile *types.Profile
	if p, err := r.profiles.User(ctx, req.FID); err != nil {
		r.logger.WithError(err).WithField("fid", req.FID).Warn("profile lookup failed, recording without profile")
	} else {
		profile = p
	}

	winner := &models.Winner{
		GiveawayID: canonical,
		FID:        req.FID,
		TxHash:     strings.ToLower(req.TxHash),
		Amount:     event.Amount.String(),
		Username:   types.DisplayName(profile, req.FID),
	}
	if profile != nil {
		winner.AvatarURL = profile.AvatarURL
	}

	persisted, inserted, err := r.winners.Upsert(ctx, winner)
	if err != nil {
		return nil, apperrors.NewDatabaseError("record claim", err)
	}

	if inserted {
		r.status.Invalidate(ctx, canonical)
		r.logger.WithFields(map[string]interface{}{
			"giveawayId": canonical,
			"fid":        req.FID,
			"txHash":     winner.TxHash,
		}).Info("recorded claim")
	}

	return persisted, nil
}

// verifyReceipt fetches the receipt and finds the claim event matching the
// submitted giveaway and FID. The event's amount is authoritative; whatever
// the client sent is ignored.
func (r *Recorder) verifyReceipt(ctx context.Context, canonical string, fid uint64, txHash string) (*adapter.RewardClaimedEvent, error) {
	receipt, err := r.chain.TransactionReceipt(ctx, txHash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return nil, apperrors.NewReceiptVerificationError("transaction not found")
		}
		return nil, apperrors.NewChainReadError("transaction receipt", err)
	}

	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return nil, apperrors.NewReceiptVerificationError("transaction failed")
	}

	contract := r.chain.ContractAddress()
	for _, log := range receipt.Logs {
		if log.Address != contract {
			continue
		}
		event, err := adapter.DecodeRewardClaimed(log.Topics, log.Data, txHash)
		if err != nil {
			continue
		}

		eventGiveaway, err := types.GiveawayIDToUUID(event.GiveawayID)
		if err != nil || eventGiveaway != canonical || event.FID != fid {
			continue
		}
		return event, nil
	}

	return nil, apperrors.NewReceiptVerificationError("no matching claim event in receipt")
}
