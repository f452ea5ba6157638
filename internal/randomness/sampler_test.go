package randomness_test

import (
	"testing"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/domain"
	"github.com/streamvault/streamvault/internal/randomness"
)

func eligiblePool(n int) []domain.EligibleValidator {
	pool := make([]domain.EligibleValidator, n)
	for i := 0; i < n; i++ {
		pool[i] = domain.EligibleValidator{
			Identity: address.Derive("test_validator", []byte{byte(i)}),
			Stake:    domain.ValidatorStakeRequirement * int64(i+1),
		}
	}
	return pool
}

// TestSampler_Deterministic confirms the same (eligible set, seed) pair
// always selects the same committee.
func TestSampler_Deterministic(t *testing.T) {
	pool := eligiblePool(10)
	seed := [32]byte{1, 2, 3, 4, 5, 6, 7, 8}

	s := randomness.NewSampler()
	first, err := s.Select(pool, seed)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	second, err := s.Select(pool, seed)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	if len(first) != len(second) {
		t.Fatalf("length mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("selection differs at index %d: %x vs %x", i, first[i], second[i])
		}
	}
}

// TestSampler_RespectsBounds confirms the selected committee size falls
// within [MinValidators, MaxValidators] for a generously sized pool, and
// caps at pool size when the pool is smaller than MaxValidators.
func TestSampler_RespectsBounds(t *testing.T) {
	s := randomness.NewSampler()

	large, err := s.Select(eligiblePool(20), [32]byte{9})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(large) != domain.MaxValidators {
		t.Errorf("expected %d selected from a large pool, got %d", domain.MaxValidators, len(large))
	}

	small, err := s.Select(eligiblePool(domain.MinValidators), [32]byte{9})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(small) != domain.MinValidators {
		t.Errorf("expected %d selected from a minimal pool, got %d", domain.MinValidators, len(small))
	}
}

// TestSampler_TooFewEligible confirms an error when fewer than MinValidators
// candidates meet the stake requirement.
func TestSampler_TooFewEligible(t *testing.T) {
	s := randomness.NewSampler()
	pool := []domain.EligibleValidator{
		{Identity: address.Derive("v", []byte{1}), Stake: domain.ValidatorStakeRequirement},
	}

	if _, err := s.Select(pool, [32]byte{1}); err != domain.ErrInsufficientEligibleValidators {
		t.Errorf("expected ErrInsufficientEligibleValidators, got: %v", err)
	}
}

// TestSampler_NoDuplicates confirms a selected committee never repeats an
// identity.
func TestSampler_NoDuplicates(t *testing.T) {
	s := randomness.NewSampler()
	selected, err := s.Select(eligiblePool(15), [32]byte{42})
	if err != nil {
		t.Fatalf("Select: %v", err)
	}

	seen := make(map[address.ID]bool, len(selected))
	for _, id := range selected {
		if seen[id] {
			t.Errorf("duplicate identity in selection: %x", id)
		}
		seen[id] = true
	}
}
