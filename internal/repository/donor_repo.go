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

// DonorRepository handles all database operations for DonorAccounts.
type DonorRepository struct {
	db *sqlx.DB
}

// NewDonorRepository creates a new DonorRepository.
func NewDonorRepository(db *sqlx.DB) *DonorRepository {
	return &DonorRepository{db: db}
}

// GetOrCreateForUpdate fetches and row-locks the donor account for
// (streamID, donorID) within tx, inserting a fresh zero-balance row first if
// none exists — matching the spec's "created on a donor's first successful
// deposit" lifecycle.
func (r *DonorRepository) GetOrCreateForUpdate(ctx context.Context, tx *sqlx.Tx, streamID, donorID address.ID, firstDepositAt interface{}) (*domain.DonorAccount, error) {
	id := address.DonorAccount(streamID, donorID[:])

	_, err := tx.ExecContext(ctx, `
		INSERT INTO donor_accounts (id, donor, stream, amount, refunded, first_deposit_at)
		VALUES ($1, $2, $3, 0, false, $4)
		ON CONFLICT (id) DO NOTHING`,
		id, donorID, streamID, firstDepositAt)
	if err != nil {
		return nil, fmt.Errorf("donor_repo.GetOrCreateForUpdate insert: %w", err)
	}

	var d domain.DonorAccount
	if err := tx.GetContext(ctx, &d, `SELECT * FROM donor_accounts WHERE id = $1 FOR UPDATE`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDonorNotFound
		}
		return nil, fmt.Errorf("donor_repo.GetOrCreateForUpdate lock: %w", err)
	}
	return &d, nil
}

// GetForUpdate fetches and row-locks an existing donor account, failing if
// the donor has never deposited to this stream.
func (r *DonorRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, streamID, donorID address.ID) (*domain.DonorAccount, error) {
	id := address.DonorAccount(streamID, donorID[:])
	var d domain.DonorAccount
	err := tx.GetContext(ctx, &d, `SELECT * FROM donor_accounts WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDonorNotFound
		}
		return nil, fmt.Errorf("donor_repo.GetForUpdate: %w", err)
	}
	return &d, nil
}

// Update persists the mutable fields of d within tx.
func (r *DonorRepository) Update(ctx context.Context, tx *sqlx.Tx, d *domain.DonorAccount) error {
	res, err := tx.NamedExecContext(ctx, `
		UPDATE donor_accounts SET amount = :amount, refunded = :refunded WHERE id = :id`, d)
	if err != nil {
		return fmt.Errorf("donor_repo.Update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrDonorNotFound
	}
	return nil
}

// SumAmountsForStream returns Σ donor.amount over every donor account tied
// to streamID, as decimal text. Nothing in the repository calls it.
func (r *DonorRepository) SumAmountsForStream(ctx context.Context, streamID address.ID) (string, error) {
	var total string
	err := r.db.GetContext(ctx, &total,
		`SELECT COALESCE(SUM(amount), 0)::text FROM donor_accounts WHERE stream = $1`, streamID)
	if err != nil {
		return "", fmt.Errorf("donor_repo.SumAmountsForStream: %w", err)
	}
	return total, nil
}
