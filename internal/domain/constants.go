package domain

import "time"

// Protocol constants. These bind the randomness coordinator and the LMSR
// engine's validator-reward carve-out; they are not environment-configurable
// because a deployment that changed them mid-flight would invalidate every
// in-flight resolution record.
const (
	// MinValidators is the smallest eligible-validator set a weighted
	// reservoir sample will produce for ValidatorSelection randomness.
	MinValidators = 3
	// MaxValidators is the largest eligible-validator set a weighted
	// reservoir sample will produce for ValidatorSelection randomness.
	MaxValidators = 7
	// ValidatorStakeRequirement is the minimum stake, in the stream's mint
	// base units, a validator must hold to be eligible for selection.
	ValidatorStakeRequirement = 10_000_000
	// DisputeWindow is how long after a randomness callback the host may
	// still override the resolution before it becomes binding.
	DisputeWindow = 3600 * time.Second
	// ValidatorRewardBPS is the basis-point share of total_pool carved out
	// for selected validators at resolution, before payout_denominator is
	// frozen.
	ValidatorRewardBPS = 50

	// MinStreamNameBytes and MaxStreamNameBytes bound a stream's name.
	MinStreamNameBytes = 4
	MaxStreamNameBytes = 32

	// MinOutcomes and MaxOutcomes bound a betting market's outcome vector.
	MinOutcomes = 2
	MaxOutcomes = 8

	// MaxFeeBPS is the largest fee_percentage a market may be initialized
	// with.
	MaxFeeBPS = 10_000

	// MaxPositionsPerBettor bounds the fixed-capacity outcome list on a
	// BettorPosition — a bettor's stake is spread across at most this many
	// distinct outcomes of one market.
	MaxPositionsPerBettor = MaxOutcomes
)
