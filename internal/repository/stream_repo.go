// Package repository holds one *Repository type per aggregate, each a thin
// sqlx wrapper the way the teacher's market_repo.go/wallet_repo.go are:
// NamedExecContext for inserts, GetContext/SelectContext for reads,
// FOR UPDATE row locks plus RowsAffected checks for guarded mutations.
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

// StreamRepository handles all database operations for Streams.
type StreamRepository struct {
	db *sqlx.DB
}

// NewStreamRepository creates a new StreamRepository.
func NewStreamRepository(db *sqlx.DB) *StreamRepository {
	return &StreamRepository{db: db}
}

// Create inserts a new stream row.
func (r *StreamRepository) Create(ctx context.Context, s *domain.Stream) error {
	query := `
		INSERT INTO streams
			(id, host, name, mint, escrow_account, type, status,
			 min_duration_seconds, min_amount, unlock_time,
			 start_time, end_time, total_deposited, total_distributed, created_at)
		VALUES
			(:id, :host, :name, :mint, :escrow_account, :type, :status,
			 :min_duration_seconds, :min_amount, :unlock_time,
			 :start_time, :end_time, :total_deposited, :total_distributed, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, s); err != nil {
		return fmt.Errorf("stream_repo.Create: %w", err)
	}
	return nil
}

// GetByID fetches a stream by its derived identity.
func (r *StreamRepository) GetByID(ctx context.Context, id address.ID) (*domain.Stream, error) {
	var s domain.Stream
	err := r.db.GetContext(ctx, &s, `SELECT * FROM streams WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrStreamNotFound
		}
		return nil, fmt.Errorf("stream_repo.GetByID: %w", err)
	}
	return &s, nil
}

// GetByIDForUpdate fetches and row-locks a stream within tx, for operations
// (Deposit, Distribute, Refund, status transitions) that mutate it.
func (r *StreamRepository) GetByIDForUpdate(ctx context.Context, tx *sqlx.Tx, id address.ID) (*domain.Stream, error) {
	var s domain.Stream
	err := tx.GetContext(ctx, &s, `SELECT * FROM streams WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrStreamNotFound
		}
		return nil, fmt.Errorf("stream_repo.GetByIDForUpdate: %w", err)
	}
	return &s, nil
}

// List returns the host's streams ordered newest-first, for
// StreamService.ListStreamsByHost.
func (r *StreamRepository) List(ctx context.Context, host address.ID, limit, offset int) ([]*domain.Stream, int, error) {
	var streams []*domain.Stream
	err := r.db.SelectContext(ctx, &streams,
		`SELECT * FROM streams WHERE host = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		host, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("stream_repo.List: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM streams WHERE host = $1`, host); err != nil {
		return nil, 0, fmt.Errorf("stream_repo.List: count: %w", err)
	}
	return streams, total, nil
}

// ListAll returns a paginated slice of streams across every host, newest
// first — the admin-facing counterpart to List, which scopes to one host.
func (r *StreamRepository) ListAll(ctx context.Context, limit, offset int) ([]*domain.Stream, int, error) {
	var streams []*domain.Stream
	err := r.db.SelectContext(ctx, &streams,
		`SELECT * FROM streams ORDER BY created_at DESC LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("stream_repo.ListAll: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM streams`); err != nil {
		return nil, 0, fmt.Errorf("stream_repo.ListAll: count: %w", err)
	}
	return streams, total, nil
}

// Update persists the mutable fields of s within tx.
func (r *StreamRepository) Update(ctx context.Context, tx *sqlx.Tx, s *domain.Stream) error {
	query := `
		UPDATE streams SET
			status = :status,
			start_time = :start_time,
			end_time = :end_time,
			total_deposited = :total_deposited,
			total_distributed = :total_distributed
		WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, s)
	if err != nil {
		return fmt.Errorf("stream_repo.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrStreamNotFound
	}
	return nil
}
