package domain

import (
	"time"

	"github.com/streamvault/streamvault/internal/address"
)

// RandomnessUseCase discriminates how a resolution record consumes the
// randomness oracle's 32-byte seed on callback.
type RandomnessUseCase string

const (
	// UseCaseValidatorSelection consumes the seed via weighted reservoir
	// sampling over EligibleValidators.
	UseCaseValidatorSelection RandomnessUseCase = "validator_selection"
	// UseCaseOutcomeSeeding consumes the seed by modular reduction over the
	// market's outcome count, then calls ResolveMarket internally.
	UseCaseOutcomeSeeding RandomnessUseCase = "outcome_seeding"
)

// EligibleValidator is one candidate in a ValidatorSelection randomness
// request's weighted pool.
type EligibleValidator struct {
	Identity address.ID `json:"identity" db:"identity"`
	Stake    int64      `json:"stake"    db:"stake"`
}

// MarketResolutionRecord mediates the request/callback protocol between a
// market and the randomness oracle. Identity is derived from (tag
// "market_resolution", market identity); created on the market's first
// randomness request.
type MarketResolutionRecord struct {
	ID     address.ID `json:"id"     db:"id"`
	Market address.ID `json:"market" db:"market"`

	UseCase            RandomnessUseCase     `json:"use_case"            db:"use_case"`
	EligibleValidators EligibleValidatorList `json:"eligible_validators" db:"eligible_validators"`
	RequestID          string                `json:"request_id"          db:"request_id"`

	SelectedValidators SelectedValidatorList `json:"selected_validators,omitempty" db:"selected_validators"`

	ResolvedOutcome       *int       `json:"resolved_outcome,omitempty" db:"resolved_outcome"`
	CallbackReceivedAt    *time.Time `json:"callback_received_at,omitempty" db:"callback_received_at"`
	DisputeWindowDeadline *time.Time `json:"dispute_window_deadline,omitempty" db:"dispute_window_deadline"`
	Finalized             bool       `json:"finalized" db:"finalized"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// WithinDisputeWindow reports whether now still falls inside the window
// during which a host override is permitted instead of the callback result
// being binding.
func (r *MarketResolutionRecord) WithinDisputeWindow(now time.Time) bool {
	if r.DisputeWindowDeadline == nil {
		return false
	}
	return now.Before(*r.DisputeWindowDeadline)
}

// ValidateSelectedValidators checks a committee produced by the sampler in
// the randomness package: it returns ErrArithmeticOverflow unless the
// committee has between MinValidators and MaxValidators entries. Stake
// eligibility is not checked here.
func ValidateSelectedValidators(selected []address.ID) error {
	if len(selected) < MinValidators || len(selected) > MaxValidators {
		return ErrArithmeticOverflow
	}
	return nil
}
