// Package domain defines the core business entities of the stream-escrow
// and LMSR betting-market system: streams, donor accounts, betting markets,
// bettor positions, and market resolution records.
package domain

import (
	"time"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/fxmath"
)

// MarketKind discriminates how a market's outcome vector is interpreted.
// Binary and Multiple markets hold a plain description per outcome; Scalar
// markets store a fixed binning and outcome descriptions name the bin
// bounds, but the engine treats all three identically once initialized.
type MarketKind string

const (
	MarketBinary   MarketKind = "binary"
	MarketMultiple MarketKind = "multiple"
	MarketScalar   MarketKind = "scalar"
)

// Outcome is one mutually exclusive resolution of a betting market.
type Outcome struct {
	Description      string       `json:"description"       db:"description"`
	TotalShares      fxmath.Fixed `json:"total_shares"      db:"total_shares"`
	LiquidityReserve fxmath.Fixed `json:"liquidity_reserve" db:"liquidity_reserve"`
	TotalBacking     fxmath.Fixed `json:"total_backing"     db:"total_backing"`
}

// Market is an LMSR-priced prediction market attached to at most one
// stream. Identity is derived from (tag "betting_market", stream identity).
type Market struct {
	ID     address.ID `json:"id"     db:"id"`
	Stream address.ID `json:"stream" db:"stream"`
	Host   address.ID `json:"host"   db:"host"`
	Mint   string     `json:"mint"   db:"mint"`
	Vault  address.ID `json:"vault"  db:"vault"`

	Kind     MarketKind  `json:"kind"     db:"kind"`
	Outcomes OutcomeList `json:"outcomes" db:"outcomes"`

	TotalPool      fxmath.Fixed `json:"total_pool"      db:"total_pool"`
	TotalLiquidity fxmath.Fixed `json:"total_liquidity" db:"total_liquidity"`
	FeePercentage  int64        `json:"fee_percentage"  db:"fee_percentage"`

	ResolutionDeadline time.Time `json:"resolution_deadline" db:"resolution_deadline"`
	Resolved           bool      `json:"resolved"            db:"resolved"`
	WinningOutcome     *int      `json:"winning_outcome,omitempty" db:"winning_outcome"`
	// PayoutDenominator snapshots outcomes[winning_outcome].total_shares at
	// resolution, freezing the divisor ClaimWinnings uses even if later
	// bookkeeping touches TotalShares for any other reason.
	PayoutDenominator *fxmath.Fixed `json:"payout_denominator,omitempty" db:"payout_denominator"`

	RandomnessRequested bool `json:"randomness_requested" db:"randomness_requested"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsOpen reports whether the market accepts new bets at wall-clock time now.
func (m *Market) IsOpen(now time.Time) error {
	if m.Resolved {
		return ErrMarketResolved
	}
	if !now.Before(m.ResolutionDeadline) {
		return ErrMarketExpired
	}
	return nil
}

// ValidOutcome reports whether id addresses a real outcome slot.
func (m *Market) ValidOutcome(id int) error {
	if id < 0 || id >= len(m.Outcomes) {
		return ErrInvalidOutcome
	}
	return nil
}

// ImpliedProbability returns exp(q_k/b) / sum_j exp(q_j/b) for outcome k —
// a read-only view, never consulted by PlaceBet or ResolveMarket.
func (m *Market) ImpliedProbability(k int) (fxmath.Fixed, error) {
	if err := m.ValidOutcome(k); err != nil {
		return fxmath.Fixed{}, err
	}
	var total fxmath.Fixed
	expByOutcome := make([]fxmath.Fixed, len(m.Outcomes))
	for i, o := range m.Outcomes {
		ratio, err := fxmath.CheckedDiv(o.TotalShares, m.TotalLiquidity)
		if err != nil {
			return fxmath.Fixed{}, err
		}
		e, err := fxmath.ExpFixed(ratio)
		if err != nil {
			return fxmath.Fixed{}, err
		}
		expByOutcome[i] = e
		total, err = fxmath.CheckedAdd(total, e)
		if err != nil {
			return fxmath.Fixed{}, err
		}
	}
	if total.IsZero() {
		return fxmath.Fixed{}, ErrArithmeticOverflow
	}
	return fxmath.CheckedDiv(expByOutcome[k], total)
}

// TotalSharesAcrossOutcomes sums TotalShares over every outcome, used by the
// testable-property that ties outcome share totals to position totals.
func (m *Market) TotalSharesAcrossOutcomes() (fxmath.Fixed, error) {
	var total fxmath.Fixed
	var err error
	for _, o := range m.Outcomes {
		total, err = fxmath.CheckedAdd(total, o.TotalShares)
		if err != nil {
			return fxmath.Fixed{}, err
		}
	}
	return total, nil
}

// MarketSummary is a derived, read-only view of a Market used for API
// responses and broadcasts — it never carries mutation-relevant fields like
// PayoutDenominator.
type MarketSummary struct {
	ID                 address.ID   `json:"id"`
	Stream             address.ID   `json:"stream"`
	Kind               MarketKind   `json:"kind"`
	Outcomes           []Outcome    `json:"outcomes"`
	TotalPool          fxmath.Fixed `json:"total_pool"`
	Resolved           bool         `json:"resolved"`
	WinningOutcome     *int         `json:"winning_outcome,omitempty"`
	ResolutionDeadline time.Time    `json:"resolution_deadline"`
}

// ToSummary builds a MarketSummary from the market.
func (m *Market) ToSummary() MarketSummary {
	return MarketSummary{
		ID:                 m.ID,
		Stream:             m.Stream,
		Kind:               m.Kind,
		Outcomes:           m.Outcomes,
		TotalPool:          m.TotalPool,
		Resolved:           m.Resolved,
		WinningOutcome:     m.WinningOutcome,
		ResolutionDeadline: m.ResolutionDeadline,
	}
}
