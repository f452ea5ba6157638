// Package lmsr implements the logarithmic market scoring rule cost function
// in deterministic fixed-point arithmetic: pure math, no I/O, no persistence.
// The transactional orchestration around it (loading a Market, moving
// tokens, updating a BettorPosition) lives in internal/service.
package lmsr

import (
	"math/big"

	"github.com/streamvault/streamvault/internal/fxmath"
)

// maxSearchSteps bounds the binary search PlaceBet price inversion runs to
// find the largest integer share delta affordable for a given net spend.
// It caps both phases: at most 64 doublings of the upper bound (starting
// from one whole share), then at most 64 halvings of the bracket, which
// reach single-raw-unit precision for brackets up to 2^64 raw units wide.
const maxSearchSteps = 64

// Cost computes C(q) = b * ln( sum_i exp(q_i/b) ) for the given outstanding
// share quantities q and liquidity parameter b.
func Cost(q []fxmath.Fixed, b fxmath.Fixed) (fxmath.Fixed, error) {
	var sum fxmath.Fixed
	for _, qi := range q {
		ratio, err := fxmath.CheckedDiv(qi, b)
		if err != nil {
			return fxmath.Fixed{}, err
		}
		e, err := fxmath.ExpFixed(ratio)
		if err != nil {
			return fxmath.Fixed{}, err
		}
		sum, err = fxmath.CheckedAdd(sum, e)
		if err != nil {
			return fxmath.Fixed{}, err
		}
	}
	lnSum, err := fxmath.LnFixed(sum)
	if err != nil {
		return fxmath.Fixed{}, err
	}
	return fxmath.CheckedMul(b, lnSum)
}

// PriceDelta returns C(q + delta*e_k) - C(q): the cost of buying delta
// shares of outcome k given the market's current outstanding quantities.
func PriceDelta(q []fxmath.Fixed, k int, delta, b fxmath.Fixed) (fxmath.Fixed, error) {
	before, err := Cost(q, b)
	if err != nil {
		return fxmath.Fixed{}, err
	}
	bumped := make([]fxmath.Fixed, len(q))
	copy(bumped, q)
	nextQk, err := fxmath.CheckedAdd(bumped[k], delta)
	if err != nil {
		return fxmath.Fixed{}, err
	}
	bumped[k] = nextQk
	after, err := Cost(bumped, b)
	if err != nil {
		return fxmath.Fixed{}, err
	}
	return fxmath.CheckedSub(after, before)
}

// ImpliedProbability returns exp(q_k/b) / sum_j exp(q_j/b), the read-only
// price view for outcome k.
func ImpliedProbability(q []fxmath.Fixed, k int, b fxmath.Fixed) (fxmath.Fixed, error) {
	var total fxmath.Fixed
	var numerator fxmath.Fixed
	for i, qi := range q {
		ratio, err := fxmath.CheckedDiv(qi, b)
		if err != nil {
			return fxmath.Fixed{}, err
		}
		e, err := fxmath.ExpFixed(ratio)
		if err != nil {
			return fxmath.Fixed{}, err
		}
		if i == k {
			numerator = e
		}
		total, err = fxmath.CheckedAdd(total, e)
		if err != nil {
			return fxmath.Fixed{}, err
		}
	}
	return fxmath.CheckedDiv(numerator, total)
}

// MaxAffordableShares finds, by monotone binary search, the largest share
// quantity of outcome k, as an integer number of raw fixed-point units (not
// rounded to whole shares), that can be purchased for at most net, given
// current quantities q and liquidity b. The cost
// function is convex and strictly increasing in delta for fixed q, so the
// search converges to a unique answer.
func MaxAffordableShares(q []fxmath.Fixed, k int, net, b fxmath.Fixed) (fxmath.Fixed, error) {
	if net.Sign() <= 0 {
		return fxmath.Zero(), nil
	}

	lo := fxmath.Zero()
	hi := fxmath.FromInt64(1)

	// Grow hi until its price exceeds net, doubling each step.
	for step := 0; step < maxSearchSteps; step++ {
		price, err := PriceDelta(q, k, hi, b)
		if err != nil {
			return fxmath.Fixed{}, err
		}
		if price.Cmp(net) > 0 {
			break
		}
		doubled, err := fxmath.CheckedMul(hi, fxmath.FromInt64(2))
		if err != nil {
			// hi has saturated the representable range; treat it as the
			// search ceiling rather than propagating overflow here.
			break
		}
		hi = doubled
	}

	// Bisect [lo, hi] down to a single raw unit of precision.
	one := fxmath.FromRaw(big.NewInt(1))
	for step := 0; step < maxSearchSteps; step++ {
		width, err := fxmath.CheckedSub(hi, lo)
		if err != nil {
			return fxmath.Fixed{}, err
		}
		if width.Cmp(one) <= 0 {
			break
		}
		mid, err := midpoint(lo, hi)
		if err != nil {
			return fxmath.Fixed{}, err
		}
		price, err := PriceDelta(q, k, mid, b)
		if err != nil {
			return fxmath.Fixed{}, err
		}
		if price.Cmp(net) <= 0 {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, nil
}

func midpoint(lo, hi fxmath.Fixed) (fxmath.Fixed, error) {
	sum, err := fxmath.CheckedAdd(lo, hi)
	if err != nil {
		return fxmath.Fixed{}, err
	}
	return fxmath.CheckedDiv(sum, fxmath.FromInt64(2))
}
