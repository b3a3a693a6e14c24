package service

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/AyuTriphasari/baget/internal/errors"
	"github.com/AyuTriphasari/baget/internal/storage"
	"github.com/AyuTriphasari/baget/internal/types"
)

func TestStatusService_CacheHit(t *testing.T) {
	chain := &mockChainReader{
		statusFunc: func(ctx context.Context, giveawayID *big.Int) (*types.GiveawayStatus, error) {
			return &types.GiveawayStatus{IsActive: true, ClaimedCount: 4}, nil
		},
	}
	svc := NewStatusService(chain, storage.NewMemoryTTLStore(), 10*time.Second, testLogger())

	first, err := svc.GetStatus(testContext(t), testGiveawayID, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), first.ClaimedCount)

	second, err := svc.GetStatus(testContext(t), testGiveawayID, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, chain.statusCalls, "second read inside the TTL must not hit the chain")
}

func TestStatusService_CacheKeyIsCanonical(t *testing.T) {
	chain := &mockChainReader{}
	svc := NewStatusService(chain, storage.NewMemoryTTLStore(), 10*time.Second, testLogger())

	_, err := svc.GetStatus(testContext(t), testGiveawayID, false)
	require.NoError(t, err)

	// The decimal encoding of the same id must hit the same cache entry.
	n, err := types.ParseGiveawayID(testGiveawayID)
	require.NoError(t, err)
	_, err = svc.GetStatus(testContext(t), n.String(), false)
	require.NoError(t, err)

	assert.Equal(t, 1, chain.statusCalls)
}

func TestStatusService_ForceBypassesCache(t *testing.T) {
	chain := &mockChainReader{}
	svc := NewStatusService(chain, storage.NewMemoryTTLStore(), 10*time.Second, testLogger())

	_, err := svc.GetStatus(testContext(t), testGiveawayID, false)
	require.NoError(t, err)
	_, err = svc.GetStatus(testContext(t), testGiveawayID, true)
	require.NoError(t, err)

	assert.Equal(t, 2, chain.statusCalls)
}

func TestStatusService_FailureNotCached(t *testing.T) {
	failing := true
	chain := &mockChainReader{
		statusFunc: func(ctx context.Context, giveawayID *big.Int) (*types.GiveawayStatus, error) {
			if failing {
				return nil, errors.New("rpc unreachable")
			}
			return &types.GiveawayStatus{IsActive: true, ClaimedCount: 1}, nil
		},
	}
	svc := NewStatusService(chain, storage.NewMemoryTTLStore(), 10*time.Second, testLogger())

	_, err := svc.GetStatus(testContext(t), testGiveawayID, false)
	require.Error(t, err)
	assert.Equal(t, apperrors.CategoryChainRead, apperrors.Categorize(err).Category)

	// The failure must not poison the cache; the next read retries the chain.
	failing = false
	status, err := svc.GetStatus(testContext(t), testGiveawayID, false)
	require.NoError(t, err)
	assert.True(t, status.IsActive)
	assert.Equal(t, 2, chain.statusCalls)
}

func TestStatusService_InvalidID(t *testing.T) {
	svc := NewStatusService(&mockChainReader{}, storage.NewMemoryTTLStore(), 10*time.Second, testLogger())

	_, err := svc.GetStatus(testContext(t), "not-an-id", false)
	require.Error(t, err)
	assert.Equal(t, apperrors.CategoryValidation, apperrors.Categorize(err).Category)
}

func TestStatusService_Invalidate(t *testing.T) {
	chain := &mockChainReader{}
	svc := NewStatusService(chain, storage.NewMemoryTTLStore(), 10*time.Second, testLogger())

	_, err := svc.GetStatus(testContext(t), testGiveawayID, false)
	require.NoError(t, err)

	svc.Invalidate(testContext(t), testGiveawayID)

	_, err = svc.GetStatus(testContext(t), testGiveawayID, false)
	require.NoError(t, err)
	assert.Equal(t, 2, chain.statusCalls)
}
