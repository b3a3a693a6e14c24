package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AyuTriphasari/baget/internal/models"
	"github.com/jackc/pgx/v5"
)

// GiveawayRepository handles giveaway persistence
type GiveawayRepository struct {
	db *PostgresDB
}

// NewGiveawayRepository creates a new giveaway repository
func NewGiveawayRepository(db *PostgresDB) *GiveawayRepository {
	return &GiveawayRepository{db: db}
}

// ErrGiveawayNotFound is returned when no giveaway row exists for an id.
var ErrGiveawayNotFound = errors.New("giveaway not found")

const giveawayColumns = `id, creator, token, amount, reward_per_claim, max_claims,
	expires_at, tx_hash, token_symbol, token_decimals, created_at`

// Create inserts a giveaway exactly once. A second insert for the same id is
// a no-op; the row is immutable after creation.
func (r *GiveawayRepository) Create(ctx context.Context, g *models.Giveaway) (bool, error) {
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO giveaways (id, creator, token, amount, reward_per_claim, max_claims,
			expires_at, tx_hash, token_symbol, token_decimals, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := r.db.Pool().Exec(ctx, query,
		g.ID,
		g.Creator,
		g.Token,
		g.Amount,
		g.RewardPerClaim,
		g.MaxClaims,
		g.ExpiresAt,
		g.TxHash,
		g.TokenSymbol,
		g.TokenDecimals,
		g.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to create giveaway: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

// GetByID retrieves a giveaway by its canonical id
func (r *GiveawayRepository) GetByID(ctx context.Context, id string) (*models.Giveaway, error) {
	query := `SELECT ` + giveawayColumns + ` FROM giveaways WHERE id = $1`

	g, err := scanGiveaway(r.db.Pool().QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGiveawayNotFound
		}
		return nil, fmt.Errorf("failed to get giveaway: %w", err)
	}

	return g, nil
}

// MaxPageSize caps cursor-paginated listings.
const MaxPageSize = 50

// ListByCreator retrieves a creator's giveaways ordered by creation
// descending. The cursor is the last-seen giveaway id from the previous
// page; an empty cursor starts from the newest row.
func (r *GiveawayRepository) ListByCreator(ctx context.Context, creator, cursor string, limit int) ([]*models.Giveaway, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	query := `SELECT ` + giveawayColumns + ` FROM giveaways WHERE lower(creator) = lower($1)`
	args := []any{creator}

	if cursor != "" {
		query += ` AND (created_at, id) < (SELECT created_at, id FROM giveaways WHERE id = $2)`
		args = append(args, cursor)
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	return r.queryGiveaways(ctx, query, args...)
}

// ListLatest retrieves the most recently created giveaways
func (r *GiveawayRepository) ListLatest(ctx context.Context, limit int) ([]*models.Giveaway, error) {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}

	query := `SELECT ` + giveawayColumns + ` FROM giveaways ORDER BY created_at DESC, id DESC LIMIT $1`
	return r.queryGiveaways(ctx, query, limit)
}

func (r *GiveawayRepository) queryGiveaways(ctx context.Context, query string, args ...any) ([]*models.Giveaway, error) {
	rows, err := r.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list giveaways: %w", err)
	}
	defer rows.Close()

	var giveaways []*models.Giveaway
	for rows.Next() {
		g, err := scanGiveaway(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan giveaway: %w", err)
		}
		giveaways = append(giveaways, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating giveaways: %w", err)
	}

	return giveaways, nil
}

func scanGiveaway(row pgx.Row) (*models.Giveaway, error) {
	var g models.Giveaway
	err := row.Scan(
		&g.ID,
		&g.Creator,
		&g.Token,
		&g.Amount,
		&g.RewardPerClaim,
		&g.MaxClaims,
		&g.ExpiresAt,
		&g.TxHash,
		&g.TokenSymbol,
		&g.TokenDecimals,
		&g.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}
