package domain

import (
	"time"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/fxmath"
)

// StreamStatus represents the lifecycle state of a stream.
type StreamStatus string

const (
	StreamInitialized StreamStatus = "initialized"
	StreamActive      StreamStatus = "active"
	StreamEnded       StreamStatus = "ended"
	StreamCancelled   StreamStatus = "cancelled"
)

// StreamType discriminates the three deposit/distribution precondition
// regimes a stream can be created with. Exactly one of the *Params fields
// on Stream is meaningful, selected by this tag.
type StreamType string

const (
	StreamPrepaid     StreamType = "prepaid"
	StreamConditional StreamType = "conditional"
	StreamLive        StreamType = "live"
)

// PrepaidParams gates Distribute behind a minimum elapsed duration since
// StartStream.
type PrepaidParams struct {
	MinDuration time.Duration `json:"min_duration" db:"min_duration"`
}

// ConditionalParams gates Distribute behind a minimum aggregate deposit, a
// wall-clock unlock time, or both. At least one field must be set — this is
// enforced at Initialize time, not by the type itself.
type ConditionalParams struct {
	MinAmount  *fxmath.Fixed `json:"min_amount,omitempty" db:"min_amount"`
	UnlockTime *time.Time    `json:"unlock_time,omitempty" db:"unlock_time"`
}

// Stream is a time-bounded escrow record created by a host. Donors fund its
// escrow; the host distributes to recipients and/or refunds donors.
type Stream struct {
	ID   address.ID `json:"id"   db:"id"`
	Host address.ID `json:"host" db:"host"`
	Name string     `json:"name" db:"name"`
	Mint string     `json:"mint" db:"mint"`

	// EscrowAccount is the derived identity of the stream's single token
	// escrow account (address.MarketVault's sibling, derived from the
	// stream ID with address.StreamEscrow in StreamService.Initialize).
	EscrowAccount address.ID `json:"escrow_account" db:"escrow_account"`

	Type   StreamType   `json:"type"   db:"type"`
	Status StreamStatus `json:"status" db:"status"`

	Prepaid     *PrepaidParams     `json:"prepaid,omitempty"     db:"-"`
	Conditional *ConditionalParams `json:"conditional,omitempty" db:"-"`

	// MinDurationSeconds and the conditional columns are the flattened,
	// sqlx-addressable projections of Prepaid/Conditional — Postgres has no
	// native sum type, so the flattened columns are what persistence reads
	// and writes; Prepaid/Conditional are populated from them by the
	// repository layer after a row scan.
	MinDurationSeconds *int64        `json:"-" db:"min_duration_seconds"`
	MinAmount          *fxmath.Fixed `json:"-" db:"min_amount"`
	UnlockTime         *time.Time    `json:"-" db:"unlock_time"`

	StartTime *time.Time `json:"start_time,omitempty" db:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty"   db:"end_time"`

	TotalDeposited   fxmath.Fixed `json:"total_deposited"   db:"total_deposited"`
	TotalDistributed fxmath.Fixed `json:"total_distributed" db:"total_distributed"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsActive reports whether the stream currently accepts host-gated mutation
// beyond the Initialized defaults.
func (s *Stream) IsActive() bool { return s.Status == StreamActive }

// IsTerminal reports whether the stream has reached Ended or Cancelled,
// from which the transition table permits no further moves.
func (s *Stream) IsTerminal() bool {
	return s.Status == StreamEnded || s.Status == StreamCancelled
}

// ValidateName enforces the 4-32 byte bound on stream names. Initialize
// must call this before any record is written.
func ValidateName(name string) error {
	n := len(name)
	if n < MinStreamNameBytes || n > MaxStreamNameBytes {
		return ErrInvalidStreamName
	}
	return nil
}

// Outstanding returns total_deposited - total_distributed, the amount still
// held in escrow against future distribution or refund.
func (s *Stream) Outstanding() (fxmath.Fixed, error) {
	return fxmath.CheckedSub(s.TotalDeposited, s.TotalDistributed)
}

// CanDeposit reports whether the stream's current status permits a deposit
// under its type's rules, per the §4.2 status table.
func (s *Stream) CanDeposit() error {
	switch s.Type {
	case StreamPrepaid, StreamConditional:
		if s.Status == StreamInitialized || s.Status == StreamActive {
			return nil
		}
		return ErrStreamNotActive
	case StreamLive:
		if s.Status == StreamActive {
			return nil
		}
		return ErrDepositNotAllowed
	default:
		return ErrInvalidStreamType
	}
}

// CanDistribute reports whether the stream's current status and type-gate
// permit a distribution at wall-clock time now. The amount is not checked
// here.
func (s *Stream) CanDistribute(now time.Time) error {
	if s.Status != StreamActive {
		return ErrStreamNotActive
	}
	switch s.Type {
	case StreamPrepaid:
		if s.StartTime == nil {
			return ErrStreamNotStarted
		}
		if s.MinDurationSeconds != nil {
			elapsed := now.Sub(*s.StartTime)
			if elapsed < time.Duration(*s.MinDurationSeconds)*time.Second {
				return ErrDurationNotMet
			}
		}
		return nil
	case StreamConditional:
		amountOK := s.MinAmount == nil
		if s.MinAmount != nil && s.TotalDeposited.Cmp(*s.MinAmount) >= 0 {
			amountOK = true
		}
		timeOK := s.UnlockTime == nil || !now.Before(*s.UnlockTime)
		if !amountOK || !timeOK {
			return ErrConditionsNotMet
		}
		return nil
	case StreamLive:
		return nil
	default:
		return ErrInvalidStreamType
	}
}

// CanRefund reports whether the stream's current status permits a refund —
// disallowed only once the stream has reached Ended (Cancelled streams may
// still refund remaining donors).
func (s *Stream) CanRefund() error {
	if s.Status == StreamEnded {
		return ErrStreamAlreadyEnded
	}
	return nil
}

// StreamSummary is a derived, read-only view of a Stream for list/detail API
// responses — it omits the type-gate internals a caller has no business
// reading (MinAmount, UnlockTime, etc.), the way MarketSummary omits
// PayoutDenominator.
type StreamSummary struct {
	ID               address.ID   `json:"id"`
	Host             address.ID   `json:"host"`
	Name             string       `json:"name"`
	Mint             string       `json:"mint"`
	Type             StreamType   `json:"type"`
	Status           StreamStatus `json:"status"`
	TotalDeposited   fxmath.Fixed `json:"total_deposited"`
	TotalDistributed fxmath.Fixed `json:"total_distributed"`
	CreatedAt        time.Time    `json:"created_at"`
}

// ToSummary builds a StreamSummary from the stream.
func (s *Stream) ToSummary() StreamSummary {
	return StreamSummary{
		ID:               s.ID,
		Host:             s.Host,
		Name:             s.Name,
		Mint:             s.Mint,
		Type:             s.Type,
		Status:           s.Status,
		TotalDeposited:   s.TotalDeposited,
		TotalDistributed: s.TotalDistributed,
		CreatedAt:        s.CreatedAt,
	}
}
