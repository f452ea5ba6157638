package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/domain"
)

// MarketRepository handles all database operations for betting Markets.
type MarketRepository struct {
	db *sqlx.DB
}

// NewMarketRepository creates a new MarketRepository.
func NewMarketRepository(db *sqlx.DB) *MarketRepository {
	return &MarketRepository{db: db}
}

// Create inserts a new market row.
func (r *MarketRepository) Create(ctx context.Context, m *domain.Market) error {
	query := `
		INSERT INTO betting_markets
			(id, stream, host, mint, vault, kind, outcomes,
			 total_pool, total_liquidity, fee_percentage,
			 resolution_deadline, resolved, winning_outcome, payout_denominator,
			 randomness_requested, created_at)
		VALUES
			(:id, :stream, :host, :mint, :vault, :kind, :outcomes,
			 :total_pool, :total_liquidity, :fee_percentage,
			 :resolution_deadline, :resolved, :winning_outcome, :payout_denominator,
			 :randomness_requested, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("market_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a market by its derived identity.
func (r *MarketRepository) GetByID(ctx context.Context, id address.ID) (*domain.Market, error) {
	var m domain.Market
	err := r.db.GetContext(ctx, &m, `SELECT * FROM betting_markets WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMarketNotFound
		}
		return nil, fmt.Errorf("market_repo.GetByID: %w", err)
	}
	return &m, nil
}

// GetByStream fetches the single market bound to a stream, if any.
func (r *MarketRepository) GetByStream(ctx context.Context, streamID address.ID) (*domain.Market, error) {
	var m domain.Market
	err := r.db.GetContext(ctx, &m, `SELECT * FROM betting_markets WHERE stream = $1`, streamID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMarketNotFound
		}
		return nil, fmt.Errorf("market_repo.GetByStream: %w", err)
	}
	return &m, nil
}

// GetByIDForUpdate fetches and row-locks a market within tx, for PlaceBet,
// ResolveMarket, and ClaimWinnings.
func (r *MarketRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id address.ID) (*domain.Market, error) {
	var m domain.Market
	err := tx.GetContext(ctx, &m, `SELECT * FROM betting_markets WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrMarketNotFound
		}
		return nil, fmt.Errorf("market_repo.GetByIDForUpdate: %w", err)
	}
	return &m, nil
}

// Update persists the mutable fields of m within tx.
func (r *MarketRepository) Update(ctx context.Context, tx *sqlx.Tx, m *domain.Market) error {
	query := `
		UPDATE betting_markets SET
			outcomes = :outcomes,
			total_pool = :total_pool,
			resolved = :resolved,
			winning_outcome = :winning_outcome,
			payout_denominator = :payout_denominator,
			randomness_requested = :randomness_requested
		WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, m)
	if err != nil {
		return fmt.Errorf("market_repo.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrMarketNotFound
	}
	return nil
}

// GetExpiredUnresolved returns every market past its resolution deadline that
// has not yet been resolved, oldest deadline first. The scheduler's
// dispute-window sweep does not call it; that sweep reads resolution records
// through ResolutionRepository.
func (r *MarketRepository) GetExpiredUnresolved(ctx context.Context, now time.Time) ([]*domain.Market, error) {
	var markets []*domain.Market
	err := r.db.SelectContext(ctx, &markets,
		`SELECT * FROM betting_markets WHERE resolved = false AND resolution_deadline <= $1 ORDER BY resolution_deadline ASC`,
		now)
	if err != nil {
		return nil, fmt.Errorf("market_repo.GetExpiredUnresolved: %w", err)
	}
	return markets, nil
}

// ListAll returns a paginated slice of markets across every stream, newest
// first — the admin-facing counterpart to List, which scopes to one stream.
func (r *MarketRepository) ListAll(ctx context.Context, limit, offset int) ([]*domain.Market, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM betting_markets`); err != nil {
		return nil, 0, fmt.Errorf("market_repo.ListAll count: %w", err)
	}
	var markets []*domain.Market
	if err := r.db.SelectContext(ctx, &markets,
		`SELECT * FROM betting_markets ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset); err != nil {
		return nil, 0, fmt.Errorf("market_repo.ListAll select: %w", err)
	}
	return markets, total, nil
}

// List returns a paginated slice of markets for a stream, newest first.
func (r *MarketRepository) List(ctx context.Context, streamID address.ID, limit, offset int) ([]*domain.Market, int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM betting_markets WHERE stream = $1`, streamID); err != nil {
		return nil, 0, fmt.Errorf("market_repo.List count: %w", err)
	}
	var markets []*domain.Market
	if err := r.db.SelectContext(ctx, &markets,
		`SELECT * FROM betting_markets WHERE stream = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		streamID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("market_repo.List select: %w", err)
	}
	return markets, total, nil
}
