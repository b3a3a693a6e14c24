package service

import (
	"context"
	"time"

	"github.com/AyuTriphasari/baget/internal/adapter"
	apperrors "github.com/AyuTriphasari/baget/internal/errors"
	"github.com/AyuTriphasari/baget/internal/logging"
	"github.com/AyuTriphasari/baget/internal/models"
	"github.com/AyuTriphasari/baget/internal/storage"
	"github.com/AyuTriphasari/baget/internal/types"
)

// Reconciler backfills the winner ledger from on-chain claim events. Clients
// can crash between the claim transaction confirming and the record call, so
// the chain, not the ledger, is the source of truth for who claimed.
type Reconciler struct {
	chain       ChainReader
	logs        LogIndexer
	profiles    ProfileResolver
	winners     WinnerStore
	giveaways   GiveawayStore
	debounce    storage.TTLStore
	debounceTTL time.Duration
	logger      *logging.Logger
	now         func() time.Time
}

// NewReconciler creates the event reconciler.
func NewReconciler(
	chain ChainReader,
	logs LogIndexer,
	profiles ProfileResolver,
	winners WinnerStore,
	giveaways GiveawayStore,
	debounce storage.TTLStore,
	debounceTTL time.Duration,
	logger *logging.Logger,
) *Reconciler {
	return &Reconciler{
		chain:       chain,
		logs:        logs,
		profiles:    profiles,
		winners:     winners,
		giveaways:   giveaways,
		debounce:    debounce,
		debounceTTL: debounceTTL,
		logger:      logger.WithField("component", "reconciler"),
		now:         time.Now,
	}
}

// Sync brings the ledger for a giveaway up to date with on-chain claim
// events and returns the number of winners inserted. Runs are debounced per
// giveaway; a run inside the debounce window is a no-op. Reconciliation is an
// accelerator for read freshness, so any failure degrades to zero synced and
// a log line rather than failing the triggering request.
func (r *Reconciler) Sync(ctx context.Context, giveawayID string) int {
	inserted, err := r.sync(ctx, giveawayID)
	if err != nil {
		r.logger.WithError(apperrors.NewReconciliationError(giveawayID, err)).Warn("reconciliation failed")
		return 0
	}
	return inserted
}

func (r *Reconciler) sync(ctx context.Context, giveawayID string) (int, error) {
	canonical, err := types.CanonicalGiveawayID(giveawayID)
	if err != nil {
		return 0, err
	}

	claimed, err := r.debounce.SetIfAbsent(ctx, "sync:"+canonical, r.now().Unix(), r.debounceTTL)
	if err != nil {
		return 0, err
	}
	if !claimed {
		return 0, nil
	}

	giveaway, err := r.giveaways.GetByID(ctx, canonical)
	if err != nil {
		return 0, err
	}

	fromBlock, err := r.creationBlock(ctx, giveaway)
	if err != nil {
		return 0, err
	}

	id, err := types.ParseGiveawayID(canonical)
	if err != nil {
		return 0, err
	}

	logs, err := r.logs.FilterLogs(ctx, r.chain.ContractAddress(),
		adapter.RewardClaimedTopic, adapter.GiveawayIDTopic(id), fromBlock)
	if err != nil {
		return 0, err
	}
	if len(logs) == 0 {
		return 0, nil
	}

	existing, err := r.winners.FidsByGiveaway(ctx, canonical)
	if err != nil {
		return 0, err
	}

	// Collect events the ledger is missing, de-duplicated within the batch,
	// tracking the highest block covered by this sweep.
	missing := make([]*adapter.RewardClaimedEvent, 0)
	seen := make(map[uint64]bool)
	var throughBlock uint64
	for i := range logs {
		if block, err := logs[i].BlockNumberUint(); err == nil && block > throughBlock {
			throughBlock = block
		}
		event, err := logs[i].Decode()
		if err != nil {
			r.logger.WithError(err).Warn("skipping undecodable claim log")
			continue
		}
		if existing[event.FID] || seen[event.FID] {
			continue
		}
		seen[event.FID] = true
		missing = append(missing, event)
	}
	if len(missing) == 0 {
		return 0, nil
	}

	profiles := r.resolveProfiles(ctx, missing)

	inserted := 0
	for _, event := range missing {
		winner := &models.Winner{
			GiveawayID: canonical,
			FID:        event.FID,
			TxHash:     event.TxHash,
			Amount:     event.Amount.String(),
			Username:   types.DisplayName(profiles[event.FID], event.FID),
		}
		if p := profiles[event.FID]; p != nil {
			winner.AvatarURL = p.AvatarURL
		}

		if _, wasNew, err := r.winners.Upsert(ctx, winner); err != nil {
			return inserted, err
		} else if wasNew {
			inserted++
		}
	}

	if inserted > 0 {
		r.logger.WithFields(map[string]interface{}{
			"giveawayId":   canonical,
			"inserted":     inserted,
			"throughBlock": throughBlock,
		}).Info("reconciled missing winners")
	}

	return inserted, nil
}

// creationBlock resolves the scan lower bound from the giveaway's creation
// transaction, so the log query never walks back to genesis. A giveaway
// recorded without a creation hash falls back to block zero.
func (r *Reconciler) creationBlock(ctx context.Context, giveaway *models.Giveaway) (uint64, error) {
	if !types.IsValidTxHash(giveaway.TxHash) {
		return 0, nil
	}
	receipt, err := r.chain.TransactionReceipt(ctx, giveaway.TxHash)
	if err != nil {
		return 0, err
	}
	return receipt.BlockNumber.Uint64(), nil
}

// resolveProfiles bulk-resolves profiles for the missing events, chunked to
// the lookup ceiling. Failures leave the map sparse; the ledger falls back to
// FID placeholders.
func (r *Reconciler) resolveProfiles(ctx context.Context, events []*adapter.RewardClaimedEvent) map[uint64]*types.Profile {
	fids := make([]uint64, 0, len(events))
	for _, event := range events {
		fids = append(fids, event.FID)
	}

	profiles := make(map[uint64]*types.Profile, len(fids))
	for start := 0; start < len(fids); start += adapter.MaxFidsPerLookup {
		end := start + adapter.MaxFidsPerLookup
		if end > len(fids) {
			end = len(fids)
		}

		batch, err := r.profiles.UsersBulk(ctx, fids[start:end])
		if err != nil {
			r.logger.WithError(err).Warn("bulk profile lookup failed, using placeholders")
			continue
		}
		for _, p := range batch {
			profiles[p.FID] = p
		}
	}

	return profiles
}
