package domain_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/domain"
	"github.com/streamvault/streamvault/internal/fxmath"
)

func bigFromString(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad literal: " + s)
	}
	return n
}

func delta(a, b fxmath.Fixed) *big.Int {
	d := new(big.Int).Sub(a.Raw(), b.Raw())
	return d.Abs(d)
}

func newTestMarket(b, fee int64) *domain.Market {
	return &domain.Market{
		ID:             address.Derive("test_market"),
		Kind:           domain.MarketBinary,
		Outcomes:       []domain.Outcome{{Description: "A"}, {Description: "B"}},
		TotalLiquidity: fxmath.FromInt64(b),
		FeePercentage:  fee,
	}
}

func TestMarket_IsOpen(t *testing.T) {
	now := time.Now().UTC()
	m := newTestMarket(10_000, 250)
	m.ResolutionDeadline = now.Add(time.Hour)

	if err := m.IsOpen(now); err != nil {
		t.Errorf("expected market to be open, got %v", err)
	}

	m.Resolved = true
	if err := m.IsOpen(now); err != domain.ErrMarketResolved {
		t.Errorf("IsOpen() on resolved market = %v, want ErrMarketResolved", err)
	}

	m.Resolved = false
	if err := m.IsOpen(now.Add(2 * time.Hour)); err != domain.ErrMarketExpired {
		t.Errorf("IsOpen() past deadline = %v, want ErrMarketExpired", err)
	}
}

func TestMarket_ValidOutcome(t *testing.T) {
	m := newTestMarket(10_000, 250)
	if err := m.ValidOutcome(0); err != nil {
		t.Errorf("ValidOutcome(0) = %v, want nil", err)
	}
	if err := m.ValidOutcome(2); err != domain.ErrInvalidOutcome {
		t.Errorf("ValidOutcome(2) = %v, want ErrInvalidOutcome", err)
	}
	if err := m.ValidOutcome(-1); err != domain.ErrInvalidOutcome {
		t.Errorf("ValidOutcome(-1) = %v, want ErrInvalidOutcome", err)
	}
}

// TestMarket_ImpliedProbability_EvenSplit checks that two outcomes with
// identical share totals (here, zero shares each) imply a 50/50 split.
func TestMarket_ImpliedProbability_EvenSplit(t *testing.T) {
	m := newTestMarket(10_000, 250)

	pA, err := m.ImpliedProbability(0)
	if err != nil {
		t.Fatalf("ImpliedProbability(0): %v", err)
	}
	pB, err := m.ImpliedProbability(1)
	if err != nil {
		t.Fatalf("ImpliedProbability(1): %v", err)
	}

	half := fxmath.FromRaw(bigFromString("500000"))
	tolerance := fxmath.FromRaw(bigFromString("10"))
	if delta(pA, half).Cmp(tolerance.Raw()) > 0 {
		t.Errorf("ImpliedProbability(0) = %s, want ~0.5", pA)
	}
	if delta(pB, half).Cmp(tolerance.Raw()) > 0 {
		t.Errorf("ImpliedProbability(1) = %s, want ~0.5", pB)
	}
}

func TestMarket_ImpliedProbability_InvalidOutcome(t *testing.T) {
	m := newTestMarket(10_000, 250)
	if _, err := m.ImpliedProbability(9); err != domain.ErrInvalidOutcome {
		t.Errorf("ImpliedProbability(9) = %v, want ErrInvalidOutcome", err)
	}
}

func TestMarket_TotalSharesAcrossOutcomes(t *testing.T) {
	m := newTestMarket(10_000, 250)
	m.Outcomes[0].TotalShares = fxmath.FromInt64(3)
	m.Outcomes[1].TotalShares = fxmath.FromInt64(5)

	total, err := m.TotalSharesAcrossOutcomes()
	if err != nil {
		t.Fatalf("TotalSharesAcrossOutcomes: %v", err)
	}
	if total.Cmp(fxmath.FromInt64(8)) != 0 {
		t.Errorf("TotalSharesAcrossOutcomes() = %s, want 8", total)
	}
}
