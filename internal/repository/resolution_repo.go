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

// ResolutionRepository handles all database operations for
// MarketResolutionRecords — the request/callback protocol state between a
// market and the randomness oracle.
type ResolutionRepository struct {
	db *sqlx.DB
}

// NewResolutionRepository creates a new ResolutionRepository.
func NewResolutionRepository(db *sqlx.DB) *ResolutionRepository {
	return &ResolutionRepository{db: db}
}

// Create inserts a new resolution record on a market's first randomness
// request.
func (r *ResolutionRepository) Create(ctx context.Context, tx *sqlx.Tx, rec *domain.MarketResolutionRecord) error {
	query := `
		INSERT INTO market_resolution_records
			(id, market, use_case, eligible_validators, request_id,
			 selected_validators, resolved_outcome, callback_received_at,
			 dispute_window_deadline, finalized, created_at)
		VALUES
			(:id, :market, :use_case, :eligible_validators, :request_id,
			 :selected_validators, :resolved_outcome, :callback_received_at,
			 :dispute_window_deadline, :finalized, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("resolution_repo.Create: %w", err)
	}
	return nil
}

// GetByRequestIDForUpdate fetches the resolution record awaiting a specific oracle
// callback, row-locked for the callback handler's update.
func (r *ResolutionRepository) GetByRequestIDForUpdate(ctx context.Context, tx *sqlx.Tx, requestID string) (*domain.MarketResolutionRecord, error) {
	var rec domain.MarketResolutionRecord
	err := tx.GetContext(ctx, &rec,
		`SELECT * FROM market_resolution_records WHERE request_id = $1 FOR UPDATE`, requestID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrResolutionNotFound
		}
		return nil, fmt.Errorf("resolution_repo.GetByRequestIDForUpdate: %w", err)
	}
	return &rec, nil
}

// GetByMarket fetches the resolution record bound to a market, if any.
func (r *ResolutionRepository) GetByMarket(ctx context.Context, marketID address.ID) (*domain.MarketResolutionRecord, error) {
	var rec domain.MarketResolutionRecord
	err := r.db.GetContext(ctx, &rec, `SELECT * FROM market_resolution_records WHERE market = $1`, marketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrResolutionNotFound
		}
		return nil, fmt.Errorf("resolution_repo.GetByMarket: %w", err)
	}
	return &rec, nil
}

// Update persists the mutable fields of rec within tx.
func (r *ResolutionRepository) Update(ctx context.Context, tx *sqlx.Tx, rec *domain.MarketResolutionRecord) error {
	query := `
		UPDATE market_resolution_records SET
			selected_validators = :selected_validators,
			resolved_outcome = :resolved_outcome,
			callback_received_at = :callback_received_at,
			dispute_window_deadline = :dispute_window_deadline,
			finalized = :finalized
		WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, rec)
	if err != nil {
		return fmt.Errorf("resolution_repo.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrResolutionNotFound
	}
	return nil
}

// GetUnfinalizedPastDisputeWindow returns every resolution record whose
// dispute window has closed but which has not yet been finalized — fed to
// the scheduler's finalizer sweep.
func (r *ResolutionRepository) GetUnfinalizedPastDisputeWindow(ctx context.Context) ([]*domain.MarketResolutionRecord, error) {
	var recs []*domain.MarketResolutionRecord
	err := r.db.SelectContext(ctx, &recs, `
		SELECT * FROM market_resolution_records
		WHERE finalized = false
		  AND callback_received_at IS NOT NULL
		  AND dispute_window_deadline <= now()
		ORDER BY dispute_window_deadline ASC`)
	if err != nil {
		return nil, fmt.Errorf("resolution_repo.GetUnfinalizedPastDisputeWindow: %w", err)
	}
	return recs, nil
}
