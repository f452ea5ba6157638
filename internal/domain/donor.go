package domain

import (
	"time"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/fxmath"
)

// DonorAccount is a per-donor sub-ledger within one stream. At most one
// exists per (stream, donor) pair; it is created on the donor's first
// successful deposit and never destroyed thereafter.
type DonorAccount struct {
	ID       address.ID   `json:"id"        db:"id"`
	Donor    address.ID   `json:"donor"     db:"donor"`
	Stream   address.ID   `json:"stream"    db:"stream"`
	Amount   fxmath.Fixed `json:"amount"    db:"amount"`
	Refunded bool         `json:"refunded"  db:"refunded"`

	FirstDepositAt time.Time `json:"first_deposit_at" db:"first_deposit_at"`
}

// ApplyDeposit increments the donor's outstanding contribution by amount.
// Returns ErrArithmeticOverflow if the new total would escape the
// representable fixed-point range.
func (d *DonorAccount) ApplyDeposit(amount fxmath.Fixed) error {
	next, err := fxmath.CheckedAdd(d.Amount, amount)
	if err != nil {
		return ErrArithmeticOverflow
	}
	d.Amount = next
	return nil
}

// ApplyRefund preconditions and applies a refund of amount against the
// donor's outstanding contribution, flipping Refunded once it reaches zero.
func (d *DonorAccount) ApplyRefund(amount fxmath.Fixed) error {
	if d.Refunded {
		return ErrAlreadyRefunded
	}
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if amount.Cmp(d.Amount) > 0 {
		return ErrInsufficientFunds
	}
	next, err := fxmath.CheckedSub(d.Amount, amount)
	if err != nil {
		return ErrArithmeticOverflow
	}
	d.Amount = next
	if d.Amount.IsZero() {
		d.Refunded = true
	}
	return nil
}
