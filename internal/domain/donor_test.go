package domain_test

import (
	"testing"

	"github.com/streamvault/streamvault/internal/domain"
	"github.com/streamvault/streamvault/internal/fxmath"
)

// TestPartialThenFullRefund matches §8 scenario 3.
func TestPartialThenFullRefund(t *testing.T) {
	d := &domain.DonorAccount{Amount: fxmath.FromInt64(5_000_000)}

	if err := d.ApplyRefund(fxmath.FromInt64(2_000)); err != nil {
		t.Fatalf("first refund: %v", err)
	}
	if d.Amount.Cmp(fxmath.FromInt64(4_998_000)) != 0 {
		t.Errorf("amount after partial refund = %s, want 4998000", d.Amount)
	}
	if d.Refunded {
		t.Errorf("refunded should still be false after partial refund")
	}

	if err := d.ApplyRefund(fxmath.FromInt64(4_998_000)); err != nil {
		t.Fatalf("second refund: %v", err)
	}
	if !d.Amount.IsZero() {
		t.Errorf("amount after full refund = %s, want 0", d.Amount)
	}
	if !d.Refunded {
		t.Errorf("refunded should be true once amount hits zero")
	}

	if err := d.ApplyRefund(fxmath.FromInt64(1_000)); err != domain.ErrAlreadyRefunded {
		t.Errorf("refund after fully refunded = %v, want ErrAlreadyRefunded", err)
	}
}

func TestApplyDepositAccumulates(t *testing.T) {
	d := &domain.DonorAccount{}
	if err := d.ApplyDeposit(fxmath.FromInt64(1_000_000)); err != nil {
		t.Fatalf("ApplyDeposit: %v", err)
	}
	if err := d.ApplyDeposit(fxmath.FromInt64(2_000_000)); err != nil {
		t.Fatalf("ApplyDeposit: %v", err)
	}
	if d.Amount.Cmp(fxmath.FromInt64(3_000_000)) != 0 {
		t.Errorf("Amount = %s, want 3000000", d.Amount)
	}
}

func TestRefundRejectsOverAmount(t *testing.T) {
	d := &domain.DonorAccount{Amount: fxmath.FromInt64(100)}
	if err := d.ApplyRefund(fxmath.FromInt64(101)); err != domain.ErrInsufficientFunds {
		t.Errorf("over-refund = %v, want ErrInsufficientFunds", err)
	}
}

func TestRefundRejectsNonPositiveAmount(t *testing.T) {
	d := &domain.DonorAccount{Amount: fxmath.FromInt64(100)}
	if err := d.ApplyRefund(fxmath.Zero()); err != domain.ErrInvalidAmount {
		t.Errorf("refund of zero = %v, want ErrInvalidAmount", err)
	}
}
