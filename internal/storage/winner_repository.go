package storage

import (
	"context"
	"fmt"

	"github.com/AyuTriphasari/baget/internal/models"
)

// WinnerRepository handles the winner ledger. The unique constraint on
// (giveaway_id, fid) is the enforcement mechanism for at-most-one winner per
// identity per giveaway; there is no application-level locking around the
// write path.
type WinnerRepository struct {
	db *PostgresDB
}

// NewWinnerRepository creates a new winner repository
func NewWinnerRepository(db *PostgresDB) *WinnerRepository {
	return &WinnerRepository{db: db}
}

const winnerColumns = `id, giveaway_id, fid, tx_hash, amount, username, avatar_url, created_at`

// Upsert inserts a winner row if the (giveawayId, fid) key is free. First
// writer wins; later writers for the same key are no-ops, not errors. The
// persisted row is returned either way, along with whether this call
// inserted it.
func (r *WinnerRepository) Upsert(ctx context.Context, w *models.Winner) (*models.Winner, bool, error) {
	insert := `
		INSERT INTO winners (giveaway_id, fid, tx_hash, amount, username, avatar_url)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (giveaway_id, fid) DO NOTHING
	`

	result, err := r.db.Pool().Exec(ctx, insert,
		w.GiveawayID,
		w.FID,
		w.TxHash,
		w.Amount,
		w.Username,
		w.AvatarURL,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to upsert winner: %w", err)
	}
	inserted := result.RowsAffected() > 0

	query := `SELECT ` + winnerColumns + ` FROM winners WHERE giveaway_id = $1 AND fid = $2`

	var row models.Winner
	err = r.db.Pool().QueryRow(ctx, query, w.GiveawayID, w.FID).Scan(
		&row.ID,
		&row.GiveawayID,
		&row.FID,
		&row.TxHash,
		&row.Amount,
		&row.Username,
		&row.AvatarURL,
		&row.CreatedAt,
	)
	if err != nil {
		return nil, inserted, fmt.Errorf("failed to read winner after upsert: %w", err)
	}

	return &row, inserted, nil
}

// ListByGiveaway returns the full winner list for a giveaway, oldest first
func (r *WinnerRepository) ListByGiveaway(ctx context.Context, giveawayID string) ([]*models.Winner, error) {
	query := `SELECT ` + winnerColumns + ` FROM winners WHERE giveaway_id = $1 ORDER BY created_at ASC, id ASC`

	rows, err := r.db.Pool().Query(ctx, query, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to list winners: %w", err)
	}
	defer rows.Close()

	var winners []*models.Winner
	for rows.Next() {
		var w models.Winner
		err := rows.Scan(
			&w.ID,
			&w.GiveawayID,
			&w.FID,
			&w.TxHash,
			&w.Amount,
			&w.Username,
			&w.AvatarURL,
			&w.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan winner: %w", err)
		}
		winners = append(winners, &w)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating winners: %w", err)
	}

	return winners, nil
}

// CountByGiveaway returns the ledger winner count for a giveaway
func (r *WinnerRepository) CountByGiveaway(ctx context.Context, giveawayID string) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM winners WHERE giveaway_id = $1`

	if err := r.db.Pool().QueryRow(ctx, query, giveawayID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count winners: %w", err)
	}

	return count, nil
}

// FidsByGiveaway returns the set of identities already in the ledger for a
// giveaway. Used by the reconciler to diff against on-chain events.
func (r *WinnerRepository) FidsByGiveaway(ctx context.Context, giveawayID string) (map[uint64]bool, error) {
	query := `SELECT fid FROM winners WHERE giveaway_id = $1`

	rows, err := r.db.Pool().Query(ctx, query, giveawayID)
	if err != nil {
		return nil, fmt.Errorf("failed to list winner fids: %w", err)
	}
	defer rows.Close()

	fids := make(map[uint64]bool)
	for rows.Next() {
		var fid uint64
		if err := rows.Scan(&fid); err != nil {
			return nil, fmt.Errorf("failed to scan fid: %w", err)
		}
		fids[fid] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fids: %w", err)
	}

	return fids, nil
}
