package randomness

import (
	"bytes"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/domain"
)

// Sampler draws a validator committee via weighted reservoir sampling
// (algorithm A-ExpJ: each candidate gets key = u^(1/stake) for u drawn from
// a PRNG seeded by the oracle's 32-byte seed, and the top keys win), so the
// same (eligible set, seed) pair always selects the same committee.
type Sampler struct{}

// NewSampler builds a Sampler.
func NewSampler() *Sampler { return &Sampler{} }

// Select implements service.ValidatorSampler.
func (s *Sampler) Select(eligible []domain.EligibleValidator, seed [32]byte) ([]address.ID, error) {
	qualified := make([]domain.EligibleValidator, 0, len(eligible))
	for _, v := range eligible {
		if v.Stake >= domain.ValidatorStakeRequirement {
			qualified = append(qualified, v)
		}
	}
	if len(qualified) < domain.MinValidators {
		return nil, domain.ErrInsufficientEligibleValidators
	}

	count := domain.MaxValidators
	if len(qualified) < count {
		count = len(qualified)
	}

	rng := rand.New(rand.NewChaCha8(seed))

	type ranked struct {
		id  address.ID
		key float64
	}
	keys := make([]ranked, len(qualified))
	for i, v := range qualified {
		u := rng.Float64()
		if u <= 0 {
			u = math.SmallestNonzeroFloat64
		}
		keys[i] = ranked{id: v.Identity, key: math.Pow(u, 1/float64(v.Stake))}
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].key != keys[j].key {
			return keys[i].key > keys[j].key
		}
		return bytes.Compare(keys[i].id[:], keys[j].id[:]) < 0
	})

	selected := make([]address.ID, count)
	for i := 0; i < count; i++ {
		selected[i] = keys[i].id
	}
	return selected, nil
}
