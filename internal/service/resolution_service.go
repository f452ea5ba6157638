package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/config"
	"github.com/streamvault/streamvault/internal/domain"
	"github.com/streamvault/streamvault/internal/fxmath"
	"github.com/streamvault/streamvault/internal/ledger"
	"github.com/streamvault/streamvault/internal/repository"
)

// RandomnessRequester is the capability ResolutionService needs from the
// randomness oracle client: submit a request and get back whatever
// transport-level handle the oracle uses to correlate its callback. The
// concrete HTTP client lives outside this package so ResolutionService never
// depends on the oracle's transport.
type RandomnessRequester interface {
	RequestRandomness(ctx context.Context, requestID string, useCase domain.RandomnessUseCase) error
}

// ValidatorSampler selects MinValidators..MaxValidators identities from an
// eligible pool, deterministically seeded by a 32-byte oracle seed. The
// weighted-reservoir implementation lives outside this package since it
// needs a seeded PRNG; ResolutionService only consumes the result.
type ValidatorSampler interface {
	Select(eligible []domain.EligibleValidator, seed [32]byte) ([]address.ID, error)
}

// ResolutionService mediates the request/callback protocol between a
// betting market and the external randomness oracle: requesting a seed,
// consuming its callback, holding a dispute window during which the host
// may override the tentative outcome, and finalizing — at which point the
// market is actually resolved and validators are paid their carve-out.
type ResolutionService struct {
	db             *sqlx.DB
	marketRepo     *repository.MarketRepository
	resolutionRepo *repository.ResolutionRepository
	mover          ledger.TokenMover
	oracle         RandomnessRequester
	sampler        ValidatorSampler
	engine         *MarketEngineService
	cfg            *config.Config
}

// NewResolutionService builds a ResolutionService.
func NewResolutionService(
	db *sqlx.DB,
	marketRepo *repository.MarketRepository,
	resolutionRepo *repository.ResolutionRepository,
	mover ledger.TokenMover,
	oracle RandomnessRequester,
	sampler ValidatorSampler,
	engine *MarketEngineService,
	cfg *config.Config,
) *ResolutionService {
	return &ResolutionService{
		db:             db,
		marketRepo:     marketRepo,
		resolutionRepo: resolutionRepo,
		mover:          mover,
		oracle:         oracle,
		sampler:        sampler,
		engine:         engine,
		cfg:            cfg,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// RequestMarketResolution
// ──────────────────────────────────────────────────────────────────────────────

// RequestMarketResolution opens a new resolution record for a market and
// submits the randomness request to the oracle. The oracle call happens
// before the record is persisted, mirroring the fetch-before-commit shape
// used everywhere an external call precedes a local write: a failed
// request should never leave a dangling, unresolvable record behind.
func (s *ResolutionService) RequestMarketResolution(ctx context.Context, marketID address.ID, useCase domain.RandomnessUseCase, eligible []domain.EligibleValidator) (*domain.MarketResolutionRecord, error) {
	requestID := uuid.New().String()

	if err := s.oracle.RequestRandomness(ctx, requestID, useCase); err != nil {
		return nil, fmt.Errorf("resolution_service.RequestMarketResolution: oracle request: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("resolution_service.RequestMarketResolution: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var market *domain.Market
	market, err = s.marketRepo.GetByIDForUpdate(ctx, tx, marketID)
	if err != nil {
		return nil, fmt.Errorf("resolution_service.RequestMarketResolution: %w", err)
	}
	if market.Resolved {
		err = domain.ErrAlreadyResolved
		return nil, err
	}
	if market.RandomnessRequested {
		err = domain.ErrAlreadyResolved
		return nil, err
	}

	rec := &domain.MarketResolutionRecord{
		ID:                 address.MarketResolution(marketID),
		Market:             marketID,
		UseCase:            useCase,
		EligibleValidators: eligible,
		RequestID:          requestID,
		Finalized:          false,
		CreatedAt:          time.Now().UTC(),
	}
	if err = s.resolutionRepo.Create(ctx, tx, rec); err != nil {
		return nil, fmt.Errorf("resolution_service.RequestMarketResolution: %w", err)
	}

	market.RandomnessRequested = true
	if err = s.marketRepo.Update(ctx, tx, market); err != nil {
		return nil, fmt.Errorf("resolution_service.RequestMarketResolution: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("resolution_service.RequestMarketResolution: commit: %w", err)
	}
	return rec, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// HandleRandomnessCallback
// ──────────────────────────────────────────────────────────────────────────────

// HandleRandomnessCallback consumes a verified 32-byte oracle seed for an
// outstanding request. ValidatorSelection records are finalized immediately
// — the sampled committee carries no dispute exposure. OutcomeSeeding
// records instead record a tentative winning outcome and open a dispute
// window; FinalizeExpiredResolutions makes the outcome binding once that
// window closes, giving OverrideResolution a chance to run first.
func (s *ResolutionService) HandleRandomnessCallback(ctx context.Context, requestID string, seed [32]byte) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("resolution_service.HandleRandomnessCallback: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var rec *domain.MarketResolutionRecord
	rec, err = s.resolutionRepo.GetByRequestIDForUpdate(ctx, tx, requestID)
	if err != nil {
		return fmt.Errorf("resolution_service.HandleRandomnessCallback: %w", err)
	}
	if rec.CallbackReceivedAt != nil {
		err = domain.ErrAlreadyResolved
		return err
	}

	now := time.Now().UTC()
	rec.CallbackReceivedAt = &now

	switch rec.UseCase {
	case domain.UseCaseValidatorSelection:
		var selected []address.ID
		selected, err = s.sampler.Select(rec.EligibleValidators, seed)
		if err != nil {
			return fmt.Errorf("resolution_service.HandleRandomnessCallback: sample: %w", err)
		}
		if err = domain.ValidateSelectedValidators(selected); err != nil {
			return err
		}
		rec.SelectedValidators = selected
		rec.Finalized = true

	case domain.UseCaseOutcomeSeeding:
		var market *domain.Market
		market, err = s.marketRepo.GetByIDForUpdate(ctx, tx, rec.Market)
		if err != nil {
			return fmt.Errorf("resolution_service.HandleRandomnessCallback: %w", err)
		}
		outcome := seedToOutcome(seed, len(market.Outcomes))
		rec.ResolvedOutcome = &outcome
		deadline := now.Add(disputeWindow(s.cfg))
		rec.DisputeWindowDeadline = &deadline
		rec.Finalized = false

	default:
		err = fmt.Errorf("resolution_service.HandleRandomnessCallback: unknown use case %q", rec.UseCase)
		return err
	}

	if err = s.resolutionRepo.Update(ctx, tx, rec); err != nil {
		return fmt.Errorf("resolution_service.HandleRandomnessCallback: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("resolution_service.HandleRandomnessCallback: commit: %w", err)
	}
	return nil
}

// seedToOutcome reduces a 32-byte oracle seed to an outcome index by taking
// its low 8 bytes as a big-endian uint64 and reducing modulo numOutcomes.
func seedToOutcome(seed [32]byte, numOutcomes int) int {
	var v uint64
	for _, b := range seed[24:] {
		v = v<<8 | uint64(b)
	}
	return int(v % uint64(numOutcomes))
}

func disputeWindow(cfg *config.Config) time.Duration {
	if cfg.Randomness.DisputeWindow > 0 {
		return cfg.Randomness.DisputeWindow
	}
	return domain.DisputeWindow
}

// ──────────────────────────────────────────────────────────────────────────────
// OverrideResolution
// ──────────────────────────────────────────────────────────────────────────────

// OverrideResolution lets a market's host replace the oracle's tentative
// outcome while the dispute window is still open. Unlike the sweep-driven
// path, this resolves the market immediately — the host's word is final the
// moment it's given, not just recorded for a later sweep to pick up.
// FinalizeExpiredResolutions later finds the record already finalized and
// skips it.
func (s *ResolutionService) OverrideResolution(ctx context.Context, marketID, caller address.ID, outcome int) error {
	market, err := s.marketRepo.GetByID(ctx, marketID)
	if err != nil {
		return fmt.Errorf("resolution_service.OverrideResolution: %w", err)
	}
	if market.Host != caller {
		return domain.ErrUnauthorized
	}
	if err := market.ValidOutcome(outcome); err != nil {
		return err
	}

	rec, err := s.resolutionRepo.GetByMarket(ctx, marketID)
	if err != nil {
		return fmt.Errorf("resolution_service.OverrideResolution: %w", err)
	}
	if rec.Finalized || !rec.WithinDisputeWindow(time.Now().UTC()) {
		return domain.ErrAlreadyResolved
	}

	resolvedMarket, err := s.engine.ResolveMarket(ctx, marketID, outcome)
	if err != nil {
		return fmt.Errorf("resolution_service.OverrideResolution: resolve market: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("resolution_service.OverrideResolution: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rec.ResolvedOutcome = &outcome
	rec.Finalized = true
	if err = s.resolutionRepo.Update(ctx, tx, rec); err != nil {
		return fmt.Errorf("resolution_service.OverrideResolution: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("resolution_service.OverrideResolution: commit: %w", err)
	}

	if len(rec.SelectedValidators) > 0 {
		if err := s.payValidatorRewards(ctx, resolvedMarket, rec); err != nil {
			return fmt.Errorf("resolution_service.OverrideResolution: pay validators: %w", err)
		}
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// FinalizeExpiredResolutions — called by the Scheduler every tick
// ──────────────────────────────────────────────────────────────────────────────

// FinalizeExpiredResolutions fetches every resolution record whose dispute
// window has closed but which has not yet been finalized, and finalizes
// each one. A single failing record does NOT abort the others.
func (s *ResolutionService) FinalizeExpiredResolutions(ctx context.Context) error {
	recs, err := s.resolutionRepo.GetUnfinalizedPastDisputeWindow(ctx)
	if err != nil {
		return fmt.Errorf("resolution_service.FinalizeExpiredResolutions: fetch: %w", err)
	}

	for _, rec := range recs {
		if err := s.finalize(ctx, rec); err != nil {
			slog.Default().Error("finalize resolution", "resolution", rec.ID, "err", err)
		}
	}
	return nil
}

// finalize binds rec's resolved outcome by calling through to the market
// engine, then pays the validator reward carve-out out of the market's
// vault before the engine's own commit, matching the domain invariant that
// payout_denominator freezes TotalShares as it stood once resolved — the
// validator payout must happen first or not at all relative to that freeze.
// A market the host already resolved directly via OverrideResolution is
// left alone: ResolveMarket's ErrAlreadyResolved just means this sweep has
// nothing left to do but mark the record finalized.
func (s *ResolutionService) finalize(ctx context.Context, rec *domain.MarketResolutionRecord) error {
	if rec.ResolvedOutcome == nil {
		return fmt.Errorf("resolution %s reached the dispute-window sweep with no resolved outcome", rec.ID)
	}

	market, err := s.engine.ResolveMarket(ctx, rec.Market, *rec.ResolvedOutcome)
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyResolved) {
			market, err = s.engine.GetMarket(ctx, rec.Market)
			if err != nil {
				return fmt.Errorf("resolution_service.finalize: %w", err)
			}
		} else {
			return fmt.Errorf("resolution_service.finalize: resolve market: %w", err)
		}
	}

	if len(rec.SelectedValidators) > 0 {
		if err := s.payValidatorRewards(ctx, market, rec); err != nil {
			return fmt.Errorf("resolution_service.finalize: pay validators: %w", err)
		}
	}

	return s.markFinalized(ctx, rec)
}

func (s *ResolutionService) markFinalized(ctx context.Context, rec *domain.MarketResolutionRecord) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rec.Finalized = true
	if err = s.resolutionRepo.Update(ctx, tx, rec); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// payValidatorRewards splits the configured basis-point carve-out of the
// market's total pool evenly across the selected validators, transferring
// each share out of the market vault and logging it for audit.
func (s *ResolutionService) payValidatorRewards(ctx context.Context, market *domain.Market, rec *domain.MarketResolutionRecord) error {
	rewardBPS := s.cfg.Randomness.ValidatorRewardBPS
	if rewardBPS <= 0 {
		rewardBPS = domain.ValidatorRewardBPS
	}

	pool, err := fxmath.ApplyBPS(market.TotalPool, rewardBPS)
	if err != nil {
		return fmt.Errorf("apply bps: %w", err)
	}
	if pool.IsZero() {
		return nil
	}

	share, err := fxmath.CheckedDiv(pool, fxmath.FromInt64(int64(len(rec.SelectedValidators))))
	if err != nil {
		return fmt.Errorf("split reward: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, validator := range rec.SelectedValidators {
		if err = s.mover.Transfer(ctx, tx, market.Mint, market.Vault, validator, share); err != nil {
			return fmt.Errorf("transfer to validator %s: %w", validator, err)
		}
		if err = s.logValidatorReward(ctx, tx, market.ID, validator, share); err != nil {
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *ResolutionService) logValidatorReward(ctx context.Context, tx *sqlx.Tx, marketID, validator address.ID, amount fxmath.Fixed) error {
	entry := &domain.ValidatorRewardLog{
		ID:        address.ValidatorReward(marketID, validator[:]),
		Market:    marketID,
		Validator: validator,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	_, err := tx.NamedExecContext(ctx, `
		INSERT INTO validator_reward_logs (id, market, validator, amount, created_at)
		VALUES (:id, :market, :validator, :amount, :created_at)
		ON CONFLICT DO NOTHING`, entry)
	if err != nil {
		return fmt.Errorf("log validator reward: %w", err)
	}
	return nil
}
