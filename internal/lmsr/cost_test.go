package lmsr_test

import (
	"testing"

	"github.com/streamvault/streamvault/internal/fxmath"
	"github.com/streamvault/streamvault/internal/lmsr"
)

// TestPlaceBetScenario mirrors the binary-market scenario: liquidity
// b=10_000 (scaled), fee=250 bps, a bet of 1000 tokens on outcome A with a
// 5-share slippage floor. The resulting share delta must not exceed what
// net (amount less fee) actually buys, and must clear min_shares.
func TestPlaceBetScenario(t *testing.T) {
	b := fxmath.FromInt64(10_000)
	amount := fxmath.FromInt64(1_000)
	minShares := fxmath.FromInt64(5)

	fee, err := fxmath.ApplyBPS(amount, 250)
	if err != nil {
		t.Fatalf("ApplyBPS: %v", err)
	}
	net, err := fxmath.CheckedSub(amount, fee)
	if err != nil {
		t.Fatalf("CheckedSub: %v", err)
	}

	q := []fxmath.Fixed{fxmath.Zero(), fxmath.Zero()}
	delta, err := lmsr.MaxAffordableShares(q, 0, net, b)
	if err != nil {
		t.Fatalf("MaxAffordableShares: %v", err)
	}

	if delta.Cmp(minShares) < 0 {
		t.Fatalf("delta = %s, want >= %s (min_shares)", delta, minShares)
	}

	price, err := lmsr.PriceDelta(q, 0, delta, b)
	if err != nil {
		t.Fatalf("PriceDelta: %v", err)
	}
	if price.Cmp(net) > 0 {
		t.Errorf("price for delta=%s is %s, exceeds net %s", delta, price, net)
	}

	// One more whole share should cost more than net (delta is maximal).
	oneMore, err := fxmath.CheckedAdd(delta, fxmath.FromInt64(1))
	if err != nil {
		t.Fatalf("CheckedAdd: %v", err)
	}
	nextPrice, err := lmsr.PriceDelta(q, 0, oneMore, b)
	if err != nil {
		t.Fatalf("PriceDelta: %v", err)
	}
	if nextPrice.Cmp(net) <= 0 {
		t.Errorf("delta=%s is not maximal: one more share still costs %s <= net %s", delta, nextPrice, net)
	}
}

// TestCostSymmetry checks the round-trip law from §8 through the cost
// function's convexity: C(q+delta)+C(q-delta) must not fall below 2*C(q).
// Only this lower bound is asserted.
func TestCostSymmetry(t *testing.T) {
	b := fxmath.FromInt64(10_000)
	q := []fxmath.Fixed{fxmath.FromInt64(100), fxmath.FromInt64(50)}
	delta := fxmath.FromInt64(10)

	base, err := lmsr.Cost(q, b)
	if err != nil {
		t.Fatalf("Cost: %v", err)
	}

	up := []fxmath.Fixed{fxmath.FromInt64(110), fxmath.FromInt64(50)}
	down := []fxmath.Fixed{fxmath.FromInt64(90), fxmath.FromInt64(50)}

	cUp, err := lmsr.Cost(up, b)
	if err != nil {
		t.Fatalf("Cost(up): %v", err)
	}
	cDown, err := lmsr.Cost(down, b)
	if err != nil {
		t.Fatalf("Cost(down): %v", err)
	}

	sum, err := fxmath.CheckedAdd(cUp, cDown)
	if err != nil {
		t.Fatalf("CheckedAdd: %v", err)
	}
	twiceBase, err := fxmath.CheckedMul(base, fxmath.FromInt64(2))
	if err != nil {
		t.Fatalf("CheckedMul: %v", err)
	}
	// Convexity: C(q+d) + C(q-d) >= 2*C(q), i.e. sum should not be less.
	if sum.Cmp(twiceBase) < 0 {
		t.Errorf("convexity violated: C(q+d)+C(q-d) = %s < 2*C(q) = %s", sum, twiceBase)
	}
	_ = delta
}

func TestImpliedProbabilitySumsToOne(t *testing.T) {
	b := fxmath.FromInt64(10_000)
	q := []fxmath.Fixed{fxmath.FromInt64(300), fxmath.FromInt64(100)}

	var total fxmath.Fixed
	for k := range q {
		p, err := lmsr.ImpliedProbability(q, k, b)
		if err != nil {
			t.Fatalf("ImpliedProbability(%d): %v", k, err)
		}
		var addErr error
		total, addErr = fxmath.CheckedAdd(total, p)
		if addErr != nil {
			t.Fatalf("CheckedAdd: %v", addErr)
		}
	}
	one := fxmath.FromInt64(1)
	tolerance := fxmath.FromRaw(bigTen())
	if diff := absDiff(total, one); diff.Cmp(tolerance.Raw()) > 0 {
		t.Errorf("sum of implied probabilities = %s, want ~1", total)
	}
}
