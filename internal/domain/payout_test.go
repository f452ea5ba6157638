package domain_test

import (
	"testing"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/domain"
	"github.com/streamvault/streamvault/internal/fxmath"
)

// TestCalculatePayout_SoleWinner matches §8 scenario 6: a single bettor
// holds every share in the winning outcome, so the full pool is returned.
func TestCalculatePayout_SoleWinner(t *testing.T) {
	totalPool := fxmath.FromInt64(1000)
	payoutDenominator := fxmath.FromInt64(40) // all shares belong to this bettor

	pos := &domain.BettorPosition{
		ID:      address.Derive("test_position"),
		Entries: []domain.PositionEntry{{OutcomeID: 0, Shares: fxmath.FromInt64(40)}},
	}

	payout, err := pos.CalculatePayout(0, totalPool, payoutDenominator)
	if err != nil {
		t.Fatalf("CalculatePayout: %v", err)
	}
	if payout.Cmp(totalPool) != 0 {
		t.Errorf("sole winner payout = %s, want %s", payout, totalPool)
	}
}

// TestCalculatePayout_ProRata checks a bettor holding half the winning
// shares receives half the pool.
func TestCalculatePayout_ProRata(t *testing.T) {
	totalPool := fxmath.FromInt64(1000)
	payoutDenominator := fxmath.FromInt64(40)

	pos := &domain.BettorPosition{
		Entries: []domain.PositionEntry{{OutcomeID: 0, Shares: fxmath.FromInt64(20)}},
	}

	payout, err := pos.CalculatePayout(0, totalPool, payoutDenominator)
	if err != nil {
		t.Fatalf("CalculatePayout: %v", err)
	}
	want := fxmath.FromInt64(500)
	if payout.Cmp(want) != 0 {
		t.Errorf("pro-rata payout = %s, want %s", payout, want)
	}
}

// TestCalculatePayout_NothingToClaim checks a position with zero shares in
// the winning outcome (§8 boundary behavior).
func TestCalculatePayout_NothingToClaim(t *testing.T) {
	pos := &domain.BettorPosition{
		Entries: []domain.PositionEntry{{OutcomeID: 1, Shares: fxmath.FromInt64(5)}},
	}
	_, err := pos.CalculatePayout(0, fxmath.FromInt64(1000), fxmath.FromInt64(40))
	if err != domain.ErrNothingToClaim {
		t.Errorf("CalculatePayout with no winning shares = %v, want ErrNothingToClaim", err)
	}
}

// TestAddShares_AccumulatesAndCreatesEntries mirrors how PlaceBet updates a
// position across repeated purchases of the same and different outcomes.
func TestAddShares_AccumulatesAndCreatesEntries(t *testing.T) {
	pos := &domain.BettorPosition{}

	if err := pos.AddShares(0, fxmath.FromInt64(5), fxmath.FromInt64(100)); err != nil {
		t.Fatalf("AddShares: %v", err)
	}
	if err := pos.AddShares(0, fxmath.FromInt64(3), fxmath.FromInt64(60)); err != nil {
		t.Fatalf("AddShares: %v", err)
	}
	if err := pos.AddShares(1, fxmath.FromInt64(2), fxmath.FromInt64(40)); err != nil {
		t.Fatalf("AddShares: %v", err)
	}

	if got := pos.SharesIn(0); got.Cmp(fxmath.FromInt64(8)) != 0 {
		t.Errorf("SharesIn(0) = %s, want 8", got)
	}
	if got := pos.SharesIn(1); got.Cmp(fxmath.FromInt64(2)) != 0 {
		t.Errorf("SharesIn(1) = %s, want 2", got)
	}
	if pos.TotalInvested.Cmp(fxmath.FromInt64(200)) != 0 {
		t.Errorf("TotalInvested = %s, want 200", pos.TotalInvested)
	}
	if len(pos.Entries) != 2 {
		t.Errorf("len(Entries) = %d, want 2", len(pos.Entries))
	}
}
