// Package ledger implements the token transfer facility the spec treats as
// an external collaborator: "the token transfer primitive (assumed to move
// tokens atomically and fail on insufficient balance)". Here that facility
// is a Postgres-backed token-account table rather than an actual chain, but
// the contract is identical — TokenMover.Transfer either fully commits or
// reports ErrInsufficientFunds, never partially.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/domain"
	"github.com/streamvault/streamvault/internal/fxmath"
)

// TokenMover is the consumed token transfer interface every service in
// internal/service depends on. Implementations must be callable exactly
// once per logical transfer within a single sqlx.Tx — PostgresTokenMover
// does all of its locking, balance-checking, and mutation inside that one
// call.
type TokenMover interface {
	// Transfer atomically moves amount of mint from the from account to the
	// to account. Returns domain.ErrInsufficientFunds if from's balance
	// cannot cover amount, domain.ErrMintMismatch if either account is
	// already bound to a different mint.
	Transfer(ctx context.Context, tx *sqlx.Tx, mint string, from, to address.ID, amount fxmath.Fixed) error

	// Balance returns the current balance of a token account, creating it
	// with a zero balance if it does not yet exist. Used by invariant
	// checks (escrow balance >= outstanding obligations).
	Balance(ctx context.Context, tx *sqlx.Tx, mint string, account address.ID) (fxmath.Fixed, error)

	// Credit deposits amount into account without debiting any other
	// account — used only where the spec's token facility is a one-sided
	// mint/faucet shim for test fixtures, never on a production path.
	Credit(ctx context.Context, tx *sqlx.Tx, mint string, account address.ID, amount fxmath.Fixed) error
}

// PostgresTokenMover implements TokenMover against a token_accounts table:
// one row per (mint, account) pair, balance tracked in a NUMERIC column.
type PostgresTokenMover struct{}

// NewPostgresTokenMover constructs a PostgresTokenMover. It holds no state
// of its own — every call takes the *sqlx.Tx it should operate within, the
// way WalletRepository's balance methods do.
func NewPostgresTokenMover() *PostgresTokenMover {
	return &PostgresTokenMover{}
}

func (m *PostgresTokenMover) ensureAccount(ctx context.Context, tx *sqlx.Tx, mint string, account address.ID) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO token_accounts (id, mint, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (id) DO NOTHING`,
		account, mint)
	if err != nil {
		return fmt.Errorf("ledger.ensureAccount: %w", err)
	}
	return nil
}

// Transfer implements TokenMover.
func (m *PostgresTokenMover) Transfer(ctx context.Context, tx *sqlx.Tx, mint string, from, to address.ID, amount fxmath.Fixed) error {
	if amount.Sign() <= 0 {
		return domain.ErrInvalidAmount
	}
	if err := m.ensureAccount(ctx, tx, mint, from); err != nil {
		return err
	}
	if err := m.ensureAccount(ctx, tx, mint, to); err != nil {
		return err
	}

	var fromMint string
	var fromBalance fxmath.Fixed
	err := tx.QueryRowxContext(ctx,
		`SELECT mint, balance FROM token_accounts WHERE id = $1 FOR UPDATE`, from,
	).Scan(&fromMint, &fromBalance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrInsufficientFunds
		}
		return fmt.Errorf("ledger.Transfer lock from: %w", err)
	}
	if fromMint != mint {
		return domain.ErrMintMismatch
	}
	var toMint string
	if err := tx.GetContext(ctx, &toMint, `SELECT mint FROM token_accounts WHERE id = $1`, to); err != nil {
		return fmt.Errorf("ledger.Transfer read to: %w", err)
	}
	if toMint != mint {
		return domain.ErrMintMismatch
	}
	if fromBalance.Cmp(amount) < 0 {
		return domain.ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE token_accounts SET balance = balance - $1 WHERE id = $2`,
		amount, from,
	); err != nil {
		return fmt.Errorf("ledger.Transfer debit: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE token_accounts SET balance = balance + $1 WHERE id = $2`,
		amount, to,
	); err != nil {
		return fmt.Errorf("ledger.Transfer credit: %w", err)
	}
	return nil
}

// Balance implements TokenMover.
func (m *PostgresTokenMover) Balance(ctx context.Context, tx *sqlx.Tx, mint string, account address.ID) (fxmath.Fixed, error) {
	if err := m.ensureAccount(ctx, tx, mint, account); err != nil {
		return fxmath.Fixed{}, err
	}
	var balance fxmath.Fixed
	err := tx.GetContext(ctx, &balance,
		`SELECT balance FROM token_accounts WHERE id = $1`, account)
	if err != nil {
		return fxmath.Fixed{}, fmt.Errorf("ledger.Balance: %w", err)
	}
	return balance, nil
}

// Credit implements TokenMover.
func (m *PostgresTokenMover) Credit(ctx context.Context, tx *sqlx.Tx, mint string, account address.ID, amount fxmath.Fixed) error {
	if amount.Sign() <= 0 {
		return domain.ErrInvalidAmount
	}
	if err := m.ensureAccount(ctx, tx, mint, account); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE token_accounts SET balance = balance + $1 WHERE id = $2`,
		amount, account,
	); err != nil {
		return fmt.Errorf("ledger.Credit: %w", err)
	}
	return nil
}
