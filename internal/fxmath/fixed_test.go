package fxmath_test

import (
	"math/big"
	"testing"

	"github.com/streamvault/streamvault/internal/fxmath"
)

func TestCheckedAddSub(t *testing.T) {
	a := fxmath.FromInt64(5)
	b := fxmath.FromInt64(3)

	sum, err := fxmath.CheckedAdd(a, b)
	if err != nil {
		t.Fatalf("CheckedAdd: %v", err)
	}
	if sum.Cmp(fxmath.FromInt64(8)) != 0 {
		t.Errorf("5+3 = %s, want 8", sum)
	}

	diff, err := fxmath.CheckedSub(a, b)
	if err != nil {
		t.Fatalf("CheckedSub: %v", err)
	}
	if diff.Cmp(fxmath.FromInt64(2)) != 0 {
		t.Errorf("5-3 = %s, want 2", diff)
	}
}

func TestCheckedMulDiv(t *testing.T) {
	a := fxmath.FromInt64(6)
	b := fxmath.FromInt64(3)

	prod, err := fxmath.CheckedMul(a, b)
	if err != nil {
		t.Fatalf("CheckedMul: %v", err)
	}
	if prod.Cmp(fxmath.FromInt64(18)) != 0 {
		t.Errorf("6*3 = %s, want 18", prod)
	}

	quot, err := fxmath.CheckedDiv(a, b)
	if err != nil {
		t.Fatalf("CheckedDiv: %v", err)
	}
	if quot.Cmp(fxmath.FromInt64(2)) != 0 {
		t.Errorf("6/3 = %s, want 2", quot)
	}
}

func TestCheckedDivByZero(t *testing.T) {
	_, err := fxmath.CheckedDiv(fxmath.FromInt64(1), fxmath.Zero())
	if err != fxmath.ErrDivByZero {
		t.Errorf("CheckedDiv by zero = %v, want ErrDivByZero", err)
	}
}

func TestCheckedAddOverflow(t *testing.T) {
	max := fxmath.FromRaw(new(big.Int).Lsh(big.NewInt(1), 127))
	_, err := fxmath.CheckedAdd(max, fxmath.FromInt64(1))
	if err != fxmath.ErrOverflow {
		t.Errorf("CheckedAdd overflow = %v, want ErrOverflow", err)
	}
}

func TestApplyBPS(t *testing.T) {
	tests := []struct {
		amount int64
		bps    int64
		want   int64
	}{
		{1_000_000, 250, 25_000}, // 2.5% of 1_000_000 = 25_000
		{1_000_000_000, 250, 25_000_000},
		{100, 10_000, 100}, // 100% passthrough
		{100, 0, 0},
	}
	for _, tt := range tests {
		got, err := fxmath.ApplyBPS(fxmath.FromRaw(big.NewInt(tt.amount)), tt.bps)
		if err != nil {
			t.Fatalf("ApplyBPS(%d, %d): %v", tt.amount, tt.bps, err)
		}
		if got.Raw().Cmp(big.NewInt(tt.want)) != 0 {
			t.Errorf("ApplyBPS(%d, %d) = %s, want raw %d", tt.amount, tt.bps, got, tt.want)
		}
	}
}

func TestApplyBPSRejectsOutOfRange(t *testing.T) {
	if _, err := fxmath.ApplyBPS(fxmath.FromInt64(1), 10_001); err != fxmath.ErrDomain {
		t.Errorf("ApplyBPS(1, 10001) = %v, want ErrDomain", err)
	}
	if _, err := fxmath.ApplyBPS(fxmath.FromInt64(1), -1); err != fxmath.ErrDomain {
		t.Errorf("ApplyBPS(1, -1) = %v, want ErrDomain", err)
	}
}

// TestLnExpRoundTrip checks ln(exp(x)) ≈ x for a handful of representative
// values, with a tolerance of a few Scale units to absorb Taylor truncation.
func TestLnExpRoundTrip(t *testing.T) {
	tolerance := big.NewInt(5) // 5 raw units at Scale=1e6 => 5e-6 absolute

	for _, n := range []int64{0, 1, 2, 5, -1, -3} {
		x := fxmath.FromInt64(n)
		ex, err := fxmath.ExpFixed(x)
		if err != nil {
			t.Fatalf("ExpFixed(%d): %v", n, err)
		}
		back, err := fxmath.LnFixed(ex)
		if err != nil {
			t.Fatalf("LnFixed(exp(%d)): %v", n, err)
		}
		delta := new(big.Int).Sub(back.Raw(), x.Raw())
		delta.Abs(delta)
		if delta.Cmp(tolerance) > 0 {
			t.Errorf("ln(exp(%d)) = %s, want ~%d (delta %s)", n, back, n, delta)
		}
	}
}

// TestExpZeroIsOne checks the base case exp(0) == 1.
func TestExpZeroIsOne(t *testing.T) {
	got, err := fxmath.ExpFixed(fxmath.Zero())
	if err != nil {
		t.Fatalf("ExpFixed(0): %v", err)
	}
	if got.Cmp(fxmath.FromInt64(1)) != 0 {
		t.Errorf("exp(0) = %s, want 1", got)
	}
}

// TestLnOneIsZero checks the base case ln(1) == 0.
func TestLnOneIsZero(t *testing.T) {
	got, err := fxmath.LnFixed(fxmath.FromInt64(1))
	if err != nil {
		t.Fatalf("LnFixed(1): %v", err)
	}
	if !got.IsZero() {
		t.Errorf("ln(1) = %s, want 0", got)
	}
}

func TestLnRejectsNonPositive(t *testing.T) {
	if _, err := fxmath.LnFixed(fxmath.Zero()); err != fxmath.ErrDomain {
		t.Errorf("LnFixed(0) = %v, want ErrDomain", err)
	}
	if _, err := fxmath.LnFixed(fxmath.FromInt64(-1)); err != fxmath.ErrDomain {
		t.Errorf("LnFixed(-1) = %v, want ErrDomain", err)
	}
}
