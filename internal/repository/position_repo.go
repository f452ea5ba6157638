package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/domain"
)

// PositionRepository handles all database operations for BettorPositions.
type PositionRepository struct {
	db *sqlx.DB
}

// NewPositionRepository creates a new PositionRepository.
func NewPositionRepository(db *sqlx.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// GetOrCreateForUpdate fetches and row-locks the bettor's position in
// marketID within tx, inserting an empty position first if none exists —
// matching the spec's "created on a bettor's first PlaceBet" lifecycle.
func (r *PositionRepository) GetOrCreateForUpdate(ctx context.Context, tx *sqlx.Tx, marketID, bettorID address.ID) (*domain.BettorPosition, error) {
	id := address.BettorPosition(marketID, bettorID[:])

	_, err := tx.ExecContext(ctx, `
		INSERT INTO bettor_positions (id, bettor, market, entries, total_invested, has_claimed, created_at)
		VALUES ($1, $2, $3, '[]', 0, false, now())
		ON CONFLICT (id) DO NOTHING`,
		id, bettorID, marketID)
	if err != nil {
		return nil, fmt.Errorf("position_repo.GetOrCreateForUpdate insert: %w", err)
	}

	var p domain.BettorPosition
	if err := tx.GetContext(ctx, &p, `SELECT * FROM bettor_positions WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, fmt.Errorf("position_repo.GetOrCreateForUpdate lock: %w", err)
	}
	return &p, nil
}

// GetForUpdate fetches and row-locks an existing position, failing if the
// bettor has never placed a bet in this market.
func (r *PositionRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, marketID, bettorID address.ID) (*domain.BettorPosition, error) {
	id := address.BettorPosition(marketID, bettorID[:])
	var p domain.BettorPosition
	err := tx.GetContext(ctx, &p, `SELECT * FROM bettor_positions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, fmt.Errorf("position_repo.GetForUpdate: %w", err)
	}
	return &p, nil
}

// Update persists the mutable fields of p within tx.
func (r *PositionRepository) Update(ctx context.Context, tx *sqlx.Tx, p *domain.BettorPosition) error {
	query := `
		UPDATE bettor_positions SET
			entries = :entries,
			total_invested = :total_invested,
			has_claimed = :has_claimed
		WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, p)
	if err != nil {
		return fmt.Errorf("position_repo.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrPositionNotFound
	}
	return nil
}

// GetByID fetches a single bettor's position in a market without locking,
// for read-only "my position" queries.
func (r *PositionRepository) GetByID(ctx context.Context, marketID, bettorID address.ID) (*domain.BettorPosition, error) {
	id := address.BettorPosition(marketID, bettorID[:])
	var p domain.BettorPosition
	err := r.db.GetContext(ctx, &p, `SELECT * FROM bettor_positions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPositionNotFound
		}
		return nil, fmt.Errorf("position_repo.GetByID: %w", err)
	}
	return &p, nil
}

// GetByMarket returns every bettor position in a market, used by the
// back-office market detail view.
func (r *PositionRepository) GetByMarket(ctx context.Context, marketID address.ID) ([]*domain.BettorPosition, error) {
	var positions []*domain.BettorPosition
	err := r.db.SelectContext(ctx, &positions, `SELECT * FROM bettor_positions WHERE market = $1`, marketID)
	if err != nil {
		return nil, fmt.Errorf("position_repo.GetByMarket: %w", err)
	}
	return positions, nil
}

// GetByBettor returns a bettor's position history across markets, paginated.
func (r *PositionRepository) GetByBettor(ctx context.Context, bettorID address.ID, limit, offset int) ([]*domain.BettorPosition, error) {
	var positions []*domain.BettorPosition
	err := r.db.SelectContext(ctx, &positions,
		`SELECT * FROM bettor_positions WHERE bettor = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		bettorID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("position_repo.GetByBettor: %w", err)
	}
	return positions, nil
}
