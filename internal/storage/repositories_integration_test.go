package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AyuTriphasari/baget/internal/config"
	"github.com/AyuTriphasari/baget/internal/models"
)

// setupTestDB connects to a local Postgres with the migrations applied.
// Skipped in short mode and when no database is reachable.
func setupTestDB(t *testing.T) *PostgresDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	cfg := &config.PostgresConfig{
		Host:           "localhost",
		Port:           "5432",
		Database:       "baget",
		User:           "baget",
		Password:       "",
		MaxConnections: 5,
	}

	db, err := NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}
	t.Cleanup(db.Close)

	if err := db.Ping(testContext(t)); err != nil {
		t.Skipf("Skipping test - Postgres not available: %v", err)
	}

	return db
}

const testClaimTxHash = "0x" +
	"abababababababababababababababababababababababababababababababab"

func testGiveaway(creator string) *models.Giveaway {
	return &models.Giveaway{
		ID:             uuid.NewString(),
		Creator:        creator,
		Token:          "0x0000000000000000000000000000000000000000",
		Amount:         "1000000",
		RewardPerClaim: "100000",
		MaxClaims:      10,
		ExpiresAt:      time.Now().Add(24 * time.Hour).Unix(),
		TxHash:         "0x" + uuid.NewString()[:8] + "00000000000000000000000000000000000000000000000000000000",
	}
}

func cleanupGiveaway(t *testing.T, db *PostgresDB, id string) {
	t.Cleanup(func() {
		ctx := testContext(t)
		_, _ = db.Pool().Exec(ctx, `DELETE FROM winners WHERE giveaway_id = $1`, id)
		_, _ = db.Pool().Exec(ctx, `DELETE FROM giveaways WHERE id = $1`, id)
	})
}

func TestGiveawayRepository_CreateAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGiveawayRepository(db)
	ctx := testContext(t)

	g := testGiveaway("0x1111111111111111111111111111111111111111")
	cleanupGiveaway(t, db, g.ID)

	inserted, err := repo.Create(ctx, g)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Create is first-writer-wins.
	repeat := *g
	repeat.MaxClaims = 99
	inserted, err = repo.Create(ctx, &repeat)
	require.NoError(t, err)
	assert.False(t, inserted)

	got, err := repo.GetByID(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, g.Creator, got.Creator)
	assert.Equal(t, 10, got.MaxClaims)
}

func TestGiveawayRepository_GetByID_NotFound(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGiveawayRepository(db)

	_, err := repo.GetByID(testContext(t), uuid.NewString())
	assert.ErrorIs(t, err, ErrGiveawayNotFound)
}

func TestGiveawayRepository_ListByCreator(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGiveawayRepository(db)
	ctx := testContext(t)

	creator := "0x" + uuid.NewString()[:8] + "11111111111111111111111111111111"

	var ids []string
	for i := 0; i < 3; i++ {
		g := testGiveaway(creator)
		cleanupGiveaway(t, db, g.ID)
		_, err := repo.Create(ctx, g)
		require.NoError(t, err)
		ids = append(ids, g.ID)
	}

	page, err := repo.ListByCreator(ctx, creator, "", 2)
	require.NoError(t, err)
	require.Len(t, page, 2)

	rest, err := repo.ListByCreator(ctx, creator, page[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)

	seen := map[string]bool{page[0].ID: true, page[1].ID: true, rest[0].ID: true}
	for _, id := range ids {
		assert.True(t, seen[id], "cursor pages must cover all rows exactly once")
	}
}

func TestWinnerRepository_UpsertIdempotent(t *testing.T) {
	db := setupTestDB(t)
	giveaways := NewGiveawayRepository(db)
	winners := NewWinnerRepository(db)
	ctx := testContext(t)

	g := testGiveaway("0x2222222222222222222222222222222222222222")
	cleanupGiveaway(t, db, g.ID)
	_, err := giveaways.Create(ctx, g)
	require.NoError(t, err)

	w := &models.Winner{
		GiveawayID: g.ID,
		FID:        12345,
		TxHash:     testClaimTxHash,
		Amount:     "5000",
		Username:   "@alice",
	}

	first, inserted, err := winners.Upsert(ctx, w)
	require.NoError(t, err)
	assert.True(t, inserted)

	// Repeat with different metadata; the persisted row must win.
	repeat := *w
	repeat.Username = "@mallory"
	second, inserted, err := winners.Upsert(ctx, &repeat)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "@alice", second.Username)

	count, err := winners.CountByGiveaway(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestWinnerRepository_UpsertConcurrent(t *testing.T) {
	db := setupTestDB(t)
	giveaways := NewGiveawayRepository(db)
	winners := NewWinnerRepository(db)
	ctx := testContext(t)

	g := testGiveaway("0x4444444444444444444444444444444444444444")
	cleanupGiveaway(t, db, g.ID)
	_, err := giveaways.Create(ctx, g)
	require.NoError(t, err)

	// Race the direct-claim and reconciliation paths on one (giveaway, fid)
	// key. The unique constraint is the only synchronization.
	const writers = 8

	type result struct {
		row      *models.Winner
		inserted bool
		err      error
	}

	results := make(chan result, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			row, inserted, err := winners.Upsert(ctx, &models.Winner{
				GiveawayID: g.ID,
				FID:        777,
				TxHash:     testClaimTxHash,
				Amount:     "5000",
				Username:   fmt.Sprintf("@writer%d", i),
			})
			results <- result{row: row, inserted: inserted, err: err}
		}(i)
	}
	wg.Wait()
	close(results)

	insertedCount := 0
	var winnerID int64
	for res := range results {
		require.NoError(t, res.err)
		if res.inserted {
			insertedCount++
		}
		if winnerID == 0 {
			winnerID = res.row.ID
		}
		assert.Equal(t, winnerID, res.row.ID, "every writer observes the same persisted row")
	}
	assert.Equal(t, 1, insertedCount, "exactly one writer inserts; the rest are no-ops")

	count, err := winners.CountByGiveaway(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestWinnerRepository_FidsByGiveaway(t *testing.T) {
	db := setupTestDB(t)
	giveaways := NewGiveawayRepository(db)
	winners := NewWinnerRepository(db)
	ctx := testContext(t)

	g := testGiveaway("0x3333333333333333333333333333333333333333")
	cleanupGiveaway(t, db, g.ID)
	_, err := giveaways.Create(ctx, g)
	require.NoError(t, err)

	for _, fid := range []uint64{1, 2, 3} {
		_, _, err := winners.Upsert(ctx, &models.Winner{
			GiveawayID: g.ID,
			FID:        fid,
			TxHash:     testClaimTxHash,
			Amount:     "100",
			Username:   "FID: 1",
		})
		require.NoError(t, err)
	}

	fids, err := winners.FidsByGiveaway(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, map[uint64]bool{1: true, 2: true, 3: true}, fids)

	list, err := winners.ListByGiveaway(ctx, g.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
