package service

import (
	"context"
	"time"

	apperrors "github.com/AyuTriphasari/baget/internal/errors"
	"github.com/AyuTriphasari/baget/internal/logging"
	"github.com/AyuTriphasari/baget/internal/storage"
	"github.com/AyuTriphasari/baget/internal/types"
)

// statusCacheEntry is the cached contract status plus its fetch time, so
// callers can tell how stale a hit is.
type statusCacheEntry struct {
	IsActive     bool   `json:"isActive"`
	ClaimedCount uint64 `json:"claimedCount"`
	FetchedAt    int64  `json:"fetchedAt"`
}

// StatusService serves contract-derived giveaway status through a short TTL
// cache, absorbing bursts of reads against the rate-limited RPC endpoint.
type StatusService struct {
	chain  ChainReader
	cache  storage.TTLStore
	ttl    time.Duration
	logger *logging.Logger
	now    func() time.Time
}

// NewStatusService creates the cached status reader.
func NewStatusService(chain ChainReader, cache storage.TTLStore, ttl time.Duration, logger *logging.Logger) *StatusService {
	return &StatusService{
		chain:  chain,
		cache:  cache,
		ttl:    ttl,
		logger: logger.WithField("component", "status"),
		now:    time.Now,
	}
}

// GetStatus returns {isActive, claimedCount} for a giveaway. Cached values
// are served for the configured TTL; force bypasses the cache and refreshes
// it. Failed contract reads are never cached.
func (s *StatusService) GetStatus(ctx context.Context, giveawayID string, force bool) (*types.GiveawayStatus, error) {
	canonical, err := types.CanonicalGiveawayID(giveawayID)
	if err != nil {
		return nil, apperrors.NewInvalidParameterError("giveawayId", err.Error())
	}
	key := "status:" + canonical

	if !force {
		var entry statusCacheEntry
		hit, err := s.cache.Get(ctx, key, &entry)
		if err != nil {
			s.logger.WithError(err).Warn("status cache read failed")
		} else if hit {
			return &types.GiveawayStatus{
				IsActive:     entry.IsActive,
				ClaimedCount: entry.ClaimedCount,
			}, nil
		}
	}

	id, err := types.ParseGiveawayID(canonical)
	if err != nil {
		return nil, apperrors.NewInvalidParameterError("giveawayId", err.Error())
	}

	status, err := s.chain.GiveawayStatus(ctx, id)
	if err != nil {
		return nil, apperrors.NewChainReadError("giveaway status", err)
	}

	entry := statusCacheEntry{
		IsActive:     status.IsActive,
		ClaimedCount: status.ClaimedCount,
		FetchedAt:    s.now().Unix(),
	}
	if err := s.cache.Set(ctx, key, entry, s.ttl); err != nil {
		s.logger.WithError(err).Warn("status cache write failed")
	}

	return status, nil
}

// Invalidate drops the cached status for a giveaway. Called after a claim is
// recorded so the next read reflects the new claimed count.
func (s *StatusService) Invalidate(ctx context.Context, giveawayID string) {
	canonical, err := types.CanonicalGiveawayID(giveawayID)
	if err != nil {
		return
	}
	if err := s.cache.Delete(ctx, "status:"+canonical); err != nil {
		s.logger.WithError(err).Warn("status cache invalidation failed")
	}
}
