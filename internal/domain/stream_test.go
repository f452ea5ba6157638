package domain_test

import (
	"testing"
	"time"

	"github.com/streamvault/streamvault/internal/domain"
	"github.com/streamvault/streamvault/internal/fxmath"
)

// TestPrepaidLifecycle matches §8 scenario 1: distribute fails before
// min_duration elapses and succeeds once it has.
func TestPrepaidLifecycle(t *testing.T) {
	start := time.Unix(100, 0).UTC()
	minDuration := int64(5)
	s := &domain.Stream{
		Type:               domain.StreamPrepaid,
		Status:             domain.StreamActive,
		StartTime:          &start,
		MinDurationSeconds: &minDuration,
	}

	if err := s.CanDistribute(time.Unix(101, 0).UTC()); err != domain.ErrDurationNotMet {
		t.Errorf("CanDistribute at t=101 = %v, want ErrDurationNotMet", err)
	}
	if err := s.CanDistribute(time.Unix(106, 0).UTC()); err != nil {
		t.Errorf("CanDistribute at t=106 = %v, want nil", err)
	}
}

// TestConditionalUnlockByTimeOnly matches §8 scenario 2.
func TestConditionalUnlockByTimeOnly(t *testing.T) {
	t0 := time.Unix(1000, 0).UTC()
	unlock := t0.Add(2 * time.Second)
	s := &domain.Stream{
		Type:       domain.StreamConditional,
		Status:     domain.StreamActive,
		UnlockTime: &unlock,
	}

	if err := s.CanDistribute(t0.Add(1 * time.Second)); err != domain.ErrConditionsNotMet {
		t.Errorf("CanDistribute before unlock = %v, want ErrConditionsNotMet", err)
	}
	if err := s.CanDistribute(t0.Add(3 * time.Second)); err != nil {
		t.Errorf("CanDistribute after unlock = %v, want nil", err)
	}
}

func TestConditionalUnlockByAmount(t *testing.T) {
	minAmount := fxmath.FromInt64(5)
	s := &domain.Stream{
		Type:           domain.StreamConditional,
		Status:         domain.StreamActive,
		MinAmount:      &minAmount,
		TotalDeposited: fxmath.FromInt64(4),
	}
	if err := s.CanDistribute(time.Now()); err != domain.ErrConditionsNotMet {
		t.Errorf("CanDistribute below min_amount = %v, want ErrConditionsNotMet", err)
	}
	s.TotalDeposited = fxmath.FromInt64(5)
	if err := s.CanDistribute(time.Now()); err != nil {
		t.Errorf("CanDistribute at min_amount = %v, want nil", err)
	}
}

func TestLiveStreamDepositRules(t *testing.T) {
	s := &domain.Stream{Type: domain.StreamLive, Status: domain.StreamInitialized}
	if err := s.CanDeposit(); err != domain.ErrDepositNotAllowed {
		t.Errorf("Live stream deposit while Initialized = %v, want ErrDepositNotAllowed", err)
	}
	s.Status = domain.StreamActive
	if err := s.CanDeposit(); err != nil {
		t.Errorf("Live stream deposit while Active = %v, want nil", err)
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"abc", false}, // 3 bytes: rejected
		{"abcd", true}, // 4 bytes: accepted
		{string(make([]byte, 32)), true},
		{string(make([]byte, 33)), false},
	}
	for _, tt := range tests {
		err := domain.ValidateName(tt.name)
		if tt.ok && err != nil {
			t.Errorf("ValidateName(len=%d) = %v, want nil", len(tt.name), err)
		}
		if !tt.ok && err != domain.ErrInvalidStreamName {
			t.Errorf("ValidateName(len=%d) = %v, want ErrInvalidStreamName", len(tt.name), err)
		}
	}
}

// TestMultiDonorDistribute matches §8 scenario 5: distributing from the
// aggregate escrow never touches individual donor amounts.
func TestMultiDonorDistribute(t *testing.T) {
	s := &domain.Stream{
		Type:           domain.StreamLive,
		Status:         domain.StreamActive,
		TotalDeposited: fxmath.FromInt64(6_000_000),
	}
	if err := s.CanDistribute(time.Now()); err != nil {
		t.Fatalf("CanDistribute: %v", err)
	}
	s.TotalDistributed = fxmath.FromInt64(3_000_000)
	outstanding, err := s.Outstanding()
	if err != nil {
		t.Fatalf("Outstanding: %v", err)
	}
	if outstanding.Cmp(fxmath.FromInt64(3_000_000)) != 0 {
		t.Errorf("Outstanding() = %s, want 3000000", outstanding)
	}
}
