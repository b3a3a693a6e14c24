package service

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"

	"github.com/AyuTriphasari/baget/internal/adapter"
	"github.com/AyuTriphasari/baget/internal/logging"
	"github.com/AyuTriphasari/baget/internal/models"
	"github.com/AyuTriphasari/baget/internal/storage"
	"github.com/AyuTriphasari/baget/internal/types"
)

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func testLogger() *logging.Logger {
	return logging.NewLogger(logging.LevelError, logging.FormatText)
}

// Mock dependencies for testing

type mockChainReader struct {
	statusFunc  func(ctx context.Context, giveawayID *big.Int) (*types.GiveawayStatus, error)
	receiptFunc func(ctx context.Context, txHash string) (*ethtypes.Receipt, error)
	contract    common.Address

	statusCalls  int
	receiptCalls int
}

func (m *mockChainReader) GiveawayStatus(ctx context.Context, giveawayID *big.Int) (*types.GiveawayStatus, error) {
	m.statusCalls++
	if m.statusFunc != nil {
		return m.statusFunc(ctx, giveawayID)
	}
	return &types.GiveawayStatus{IsActive: true, ClaimedCount: 0}, nil
}

func (m *mockChainReader) TransactionReceipt(ctx context.Context, txHash string) (*ethtypes.Receipt, error) {
	m.receiptCalls++
	if m.receiptFunc != nil {
		return m.receiptFunc(ctx, txHash)
	}
	return nil, errors.New("no receipt configured")
}

func (m *mockChainReader) ContractAddress() common.Address {
	return m.contract
}

type mockLogIndexer struct {
	filterFunc  func(ctx context.Context, contract common.Address, topic0, topic1 common.Hash, fromBlock uint64) ([]adapter.IndexedLog, error)
	filterCalls int
}

func (m *mockLogIndexer) FilterLogs(ctx context.Context, contract common.Address, topic0, topic1 common.Hash, fromBlock uint64) ([]adapter.IndexedLog, error) {
	m.filterCalls++
	if m.filterFunc != nil {
		return m.filterFunc(ctx, contract, topic0, topic1, fromBlock)
	}
	return nil, nil
}

type mockProfileResolver struct {
	userFunc func(ctx context.Context, fid uint64) (*types.Profile, error)
	bulkFunc func(ctx context.Context, fids []uint64) ([]*types.Profile, error)
}

func (m *mockProfileResolver) User(ctx context.Context, fid uint64) (*types.Profile, error) {
	if m.userFunc != nil {
		return m.userFunc(ctx, fid)
	}
	return nil, nil
}

func (m *mockProfileResolver) UsersBulk(ctx context.Context, fids []uint64) ([]*types.Profile, error) {
	if m.bulkFunc != nil {
		return m.bulkFunc(ctx, fids)
	}
	return nil, nil
}

// memWinnerStore is an in-memory WinnerStore with the same idempotent upsert
// semantics as the Postgres repository.
type memWinnerStore struct {
	mu      sync.Mutex
	winners map[string]map[uint64]*models.Winner
	nextID  int64

	upsertErr error
}

func newMemWinnerStore() *memWinnerStore {
	return &memWinnerStore{winners: make(map[string]map[uint64]*models.Winner)}
}

func (s *memWinnerStore) Upsert(ctx context.Context, w *models.Winner) (*models.Winner, bool, error) {
	if s.upsertErr != nil {
		return nil, false, s.upsertErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byFID, ok := s.winners[w.GiveawayID]
	if !ok {
		byFID = make(map[uint64]*models.Winner)
		s.winners[w.GiveawayID] = byFID
	}

	if existing, ok := byFID[w.FID]; ok {
		return existing, false, nil
	}

	s.nextID++
	stored := *w
	stored.ID = s.nextID
	stored.CreatedAt = time.Now()
	byFID[w.FID] = &stored
	return &stored, true, nil
}

func (s *memWinnerStore) ListByGiveaway(ctx context.Context, giveawayID string) ([]*models.Winner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Winner
	for _, w := range s.winners[giveawayID] {
		out = append(out, w)
	}
	return out, nil
}

func (s *memWinnerStore) CountByGiveaway(ctx context.Context, giveawayID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.winners[giveawayID])), nil
}

func (s *memWinnerStore) FidsByGiveaway(ctx context.Context, giveawayID string) (map[uint64]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fids := make(map[uint64]bool, len(s.winners[giveawayID]))
	for fid := range s.winners[giveawayID] {
		fids[fid] = true
	}
	return fids, nil
}

// memGiveawayStore is an in-memory GiveawayStore.
type memGiveawayStore struct {
	mu        sync.Mutex
	giveaways map[string]*models.Giveaway
}

func newMemGiveawayStore() *memGiveawayStore {
	return &memGiveawayStore{giveaways: make(map[string]*models.Giveaway)}
}

func (s *memGiveawayStore) Create(ctx context.Context, g *models.Giveaway) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.giveaways[g.ID]; ok {
		return false, nil
	}
	stored := *g
	stored.CreatedAt = time.Now()
	s.giveaways[g.ID] = &stored
	return true, nil
}

func (s *memGiveawayStore) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.giveaways[id]
	if !ok {
		return nil, storage.ErrGiveawayNotFound
	}
	copied := *g
	return &copied, nil
}

func (s *memGiveawayStore) ListByCreator(ctx context.Context, creator, cursor string, limit int) ([]*models.Giveaway, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Giveaway
	for _, g := range s.giveaways {
		if g.Creator == creator {
			copied := *g
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memGiveawayStore) ListLatest(ctx context.Context, limit int) ([]*models.Giveaway, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*models.Giveaway
	for _, g := range s.giveaways {
		copied := *g
		out = append(out, &copied)
	}
	return out, nil
}
