package domain

import (
	"time"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/fxmath"
)

// PositionEntry is a bettor's holding in one outcome of a market.
type PositionEntry struct {
	OutcomeID int          `json:"outcome_id" db:"outcome_id"`
	Shares    fxmath.Fixed `json:"shares"     db:"shares"`
}

// BettorPosition tracks one bettor's stake across a market's outcomes.
// Identity is derived from (tag "bettor_position", market identity, bettor
// identity); at most one exists per (market, bettor) pair.
type BettorPosition struct {
	ID     address.ID `json:"id"     db:"id"`
	Bettor address.ID `json:"bettor" db:"bettor"`
	Market address.ID `json:"market" db:"market"`

	Entries PositionEntryList `json:"entries" db:"entries"`

	TotalInvested fxmath.Fixed `json:"total_invested" db:"total_invested"`
	HasClaimed    bool         `json:"has_claimed"    db:"has_claimed"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SharesIn returns the bettor's shares in outcomeID, or zero if the bettor
// has no entry for that outcome.
func (p *BettorPosition) SharesIn(outcomeID int) fxmath.Fixed {
	for _, e := range p.Entries {
		if e.OutcomeID == outcomeID {
			return e.Shares
		}
	}
	return fxmath.Zero()
}

// AddShares adds delta shares of outcomeID to the position, creating a new
// entry if the bettor has not yet held that outcome, and increments
// TotalInvested by grossAmount (the full amount paid, fee included).
func (p *BettorPosition) AddShares(outcomeID int, delta fxmath.Fixed, grossAmount fxmath.Fixed) error {
	for i, e := range p.Entries {
		if e.OutcomeID == outcomeID {
			next, err := fxmath.CheckedAdd(e.Shares, delta)
			if err != nil {
				return ErrArithmeticOverflow
			}
			p.Entries[i].Shares = next
			invested, err := fxmath.CheckedAdd(p.TotalInvested, grossAmount)
			if err != nil {
				return ErrArithmeticOverflow
			}
			p.TotalInvested = invested
			return nil
		}
	}
	if len(p.Entries) >= MaxPositionsPerBettor {
		return ErrArithmeticOverflow
	}
	p.Entries = append(p.Entries, PositionEntry{OutcomeID: outcomeID, Shares: delta})
	invested, err := fxmath.CheckedAdd(p.TotalInvested, grossAmount)
	if err != nil {
		return ErrArithmeticOverflow
	}
	p.TotalInvested = invested
	return nil
}

// CalculatePayout computes the bettor's pro-rata share of totalPool given
// the frozen payoutDenominator, per the ClaimWinnings contract in §4.3:
// payout = total_pool * shares_in_winner / payout_denominator.
func (p *BettorPosition) CalculatePayout(winningOutcome int, totalPool, payoutDenominator fxmath.Fixed) (fxmath.Fixed, error) {
	shares := p.SharesIn(winningOutcome)
	if shares.IsZero() {
		return fxmath.Fixed{}, ErrNothingToClaim
	}
	if payoutDenominator.IsZero() {
		return fxmath.Fixed{}, ErrArithmeticOverflow
	}
	numerator, err := fxmath.CheckedMul(totalPool, shares)
	if err != nil {
		return fxmath.Fixed{}, ErrArithmeticOverflow
	}
	payout, err := fxmath.CheckedDiv(numerator, payoutDenominator)
	if err != nil {
		return fxmath.Fixed{}, ErrArithmeticOverflow
	}
	return payout, nil
}
