package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/config"
	"github.com/streamvault/streamvault/internal/domain"
	"github.com/streamvault/streamvault/internal/fxmath"
	"github.com/streamvault/streamvault/internal/ledger"
	"github.com/streamvault/streamvault/internal/lmsr"
	"github.com/streamvault/streamvault/internal/repository"
)

// InitializeMarketRequest carries the parameters for opening a new LMSR
// betting market bound to a stream.
type InitializeMarketRequest struct {
	Stream              address.ID
	Host                address.ID
	Mint                string
	Kind                domain.MarketKind
	OutcomeDescriptions []string
	LiquidityParam      fxmath.Fixed
	FeePercentageBPS    int64
	ResolutionDeadline  time.Time
}

// Broadcaster pushes live market state to connected WebSocket clients. Wired
// in optionally via SetBroadcaster; nil by default so the service works in
// tests and headless contexts without a hub.
type Broadcaster interface {
	BroadcastNewMarket(marketID, stream address.ID, resolutionDeadline time.Time)
	BroadcastBetPlaced(marketID address.ID, outcomeID int)
	BroadcastOddsUpdate(summary domain.MarketSummary)
	BroadcastMarketResolved(marketID address.ID, winningOutcome int)
}

// MarketEngineService orchestrates LMSR betting-market operations: creation,
// bet placement, resolution, and claiming. All balance-affecting steps run
// inside a single PostgreSQL transaction, the same shape the teacher's
// BetService/ResolutionService use for wallet deduction + bet persistence.
type MarketEngineService struct {
	db           *sqlx.DB
	marketRepo   *repository.MarketRepository
	positionRepo *repository.PositionRepository
	mover        ledger.TokenMover
	cfg          *config.Config
	broadcaster  Broadcaster
}

// NewMarketEngineService creates a MarketEngineService.
func NewMarketEngineService(
	db *sqlx.DB,
	marketRepo *repository.MarketRepository,
	positionRepo *repository.PositionRepository,
	mover ledger.TokenMover,
	cfg *config.Config,
) *MarketEngineService {
	return &MarketEngineService{
		db:           db,
		marketRepo:   marketRepo,
		positionRepo: positionRepo,
		mover:        mover,
		cfg:          cfg,
	}
}

// SetBroadcaster wires an optional live-update push target, the same
// late-binding pattern the teacher uses for its WS hub.
func (s *MarketEngineService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// ──────────────────────────────────────────────────────────────────────────────
// InitializeBettingMarket
// ──────────────────────────────────────────────────────────────────────────────

// InitializeBettingMarket opens a new LMSR market bound to a stream. At most
// one market may exist per stream; the repository layer's unique constraint
// on the stream column backs this, but callers should check GetByStream
// first to fail fast with a friendlier error.
func (s *MarketEngineService) InitializeBettingMarket(ctx context.Context, req InitializeMarketRequest) (*domain.Market, error) {
	if len(req.OutcomeDescriptions) < domain.MinOutcomes || len(req.OutcomeDescriptions) > domain.MaxOutcomes {
		return nil, domain.ErrInvalidOutcome
	}
	if req.FeePercentageBPS < 0 || req.FeePercentageBPS > s.cfg.Market.MaxFeePercentageBPS {
		return nil, domain.ErrInvalidAmount
	}

	b := req.LiquidityParam
	if b.IsZero() {
		b = fxmath.FromRaw(big.NewInt(s.cfg.Market.DefaultLiquidityParam))
	}

	marketID := address.BettingMarket(req.Stream)
	vault := address.MarketVault(marketID)

	outcomes := make(domain.OutcomeList, len(req.OutcomeDescriptions))
	for i, desc := range req.OutcomeDescriptions {
		outcomes[i] = domain.Outcome{Description: desc}
	}

	market := &domain.Market{
		ID:                 marketID,
		Stream:             req.Stream,
		Host:               req.Host,
		Mint:               req.Mint,
		Vault:              vault,
		Kind:               req.Kind,
		Outcomes:           outcomes,
		TotalLiquidity:     b,
		FeePercentage:      req.FeePercentageBPS,
		ResolutionDeadline: req.ResolutionDeadline,
		CreatedAt:          time.Now().UTC(),
	}

	if err := s.marketRepo.Create(ctx, market); err != nil {
		return nil, fmt.Errorf("market_engine_service.InitializeBettingMarket: %w", err)
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastNewMarket(market.ID, market.Stream, market.ResolutionDeadline)
	}
	return market, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// PlaceBet
// ──────────────────────────────────────────────────────────────────────────────

// PlaceBet moves grossAmount from bettor into the market's vault, applies
// the market's fee, converts the net amount into shares of outcomeID via the
// LMSR cost function, and records the resulting position — all inside one
// transaction. minShares enforces the caller's slippage tolerance.
func (s *MarketEngineService) PlaceBet(ctx context.Context, marketID, bettor address.ID, outcomeID int, grossAmount, minShares fxmath.Fixed) (*domain.BettorPosition, error) {
	if grossAmount.Sign() <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("market_engine_service.PlaceBet: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var market *domain.Market
	market, err = s.marketRepo.GetByIDForUpdate(ctx, tx, marketID)
	if err != nil {
		return nil, fmt.Errorf("market_engine_service.PlaceBet: %w", err)
	}
	if err = market.IsOpen(time.Now().UTC()); err != nil {
		return nil, err
	}
	if err = market.ValidOutcome(outcomeID); err != nil {
		return nil, err
	}

	var fee, net fxmath.Fixed
	fee, err = fxmath.ApplyBPS(grossAmount, market.FeePercentage)
	if err != nil {
		return nil, domain.ErrArithmeticOverflow
	}
	net, err = fxmath.CheckedSub(grossAmount, fee)
	if err != nil {
		return nil, domain.ErrArithmeticOverflow
	}

	q := make([]fxmath.Fixed, len(market.Outcomes))
	for i, o := range market.Outcomes {
		q[i] = o.TotalShares
	}

	var shares fxmath.Fixed
	shares, err = lmsr.MaxAffordableShares(q, outcomeID, net, market.TotalLiquidity)
	if err != nil {
		return nil, fmt.Errorf("market_engine_service.PlaceBet: price inversion: %w", err)
	}
	if shares.Cmp(minShares) < 0 {
		err = domain.ErrSlippageExceeded
		return nil, err
	}

	if err = s.mover.Transfer(ctx, tx, market.Mint, bettor, market.Vault, grossAmount); err != nil {
		return nil, fmt.Errorf("market_engine_service.PlaceBet: transfer: %w", err)
	}

	market.Outcomes[outcomeID].TotalShares, err = fxmath.CheckedAdd(market.Outcomes[outcomeID].TotalShares, shares)
	if err != nil {
		err = domain.ErrArithmeticOverflow
		return nil, err
	}
	market.Outcomes[outcomeID].TotalBacking, err = fxmath.CheckedAdd(market.Outcomes[outcomeID].TotalBacking, net)
	if err != nil {
		err = domain.ErrArithmeticOverflow
		return nil, err
	}
	market.TotalPool, err = fxmath.CheckedAdd(market.TotalPool, grossAmount)
	if err != nil {
		err = domain.ErrArithmeticOverflow
		return nil, err
	}
	if err = s.marketRepo.Update(ctx, tx, market); err != nil {
		return nil, fmt.Errorf("market_engine_service.PlaceBet: market update: %w", err)
	}

	var position *domain.BettorPosition
	position, err = s.positionRepo.GetOrCreateForUpdate(ctx, tx, marketID, bettor)
	if err != nil {
		return nil, fmt.Errorf("market_engine_service.PlaceBet: position lookup: %w", err)
	}
	if err = position.AddShares(outcomeID, shares, grossAmount); err != nil {
		return nil, err
	}
	if err = s.positionRepo.Update(ctx, tx, position); err != nil {
		return nil, fmt.Errorf("market_engine_service.PlaceBet: position update: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("market_engine_service.PlaceBet: commit: %w", err)
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastBetPlaced(marketID, outcomeID)
		s.broadcaster.BroadcastOddsUpdate(market.ToSummary())
	}
	return position, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// ResolveMarket
// ──────────────────────────────────────────────────────────────────────────────

// ResolveMarket freezes winningOutcome's total shares as the payout
// denominator and marks the market resolved. Called either by the
// randomness callback handler (outcome-seeding use case) or, within the
// dispute window, by a host override — both funnel through this single
// entry point so the invariant (resolved exactly once, denominator frozen
// at resolution time) holds regardless of caller.
func (s *MarketEngineService) ResolveMarket(ctx context.Context, marketID address.ID, winningOutcome int) (*domain.Market, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("market_engine_service.ResolveMarket: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var market *domain.Market
	market, err = s.marketRepo.GetByIDForUpdate(ctx, tx, marketID)
	if err != nil {
		return nil, fmt.Errorf("market_engine_service.ResolveMarket: %w", err)
	}
	if market.Resolved {
		err = domain.ErrAlreadyResolved
		return nil, err
	}
	if err = market.ValidOutcome(winningOutcome); err != nil {
		return nil, err
	}

	denominator := market.Outcomes[winningOutcome].TotalShares
	market.Resolved = true
	market.WinningOutcome = &winningOutcome
	market.PayoutDenominator = &denominator

	if err = s.marketRepo.Update(ctx, tx, market); err != nil {
		return nil, fmt.Errorf("market_engine_service.ResolveMarket: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("market_engine_service.ResolveMarket: commit: %w", err)
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastMarketResolved(market.ID, winningOutcome)
	}
	return market, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// ClaimWinnings
// ──────────────────────────────────────────────────────────────────────────────

// ClaimWinnings pays a bettor's pro-rata share of the pool out of the
// market's vault and marks the position claimed. Idempotent: a second call
// fails with ErrAlreadyClaimed rather than double-paying.
func (s *MarketEngineService) ClaimWinnings(ctx context.Context, marketID, bettor address.ID) (fxmath.Fixed, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fxmath.Fixed{}, fmt.Errorf("market_engine_service.ClaimWinnings: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var market *domain.Market
	market, err = s.marketRepo.GetByIDForUpdate(ctx, tx, marketID)
	if err != nil {
		return fxmath.Fixed{}, fmt.Errorf("market_engine_service.ClaimWinnings: %w", err)
	}
	if !market.Resolved || market.WinningOutcome == nil || market.PayoutDenominator == nil {
		err = domain.ErrMarketNotResolved
		return fxmath.Fixed{}, err
	}

	var position *domain.BettorPosition
	position, err = s.positionRepo.GetForUpdate(ctx, tx, marketID, bettor)
	if err != nil {
		return fxmath.Fixed{}, fmt.Errorf("market_engine_service.ClaimWinnings: %w", err)
	}
	if position.HasClaimed {
		err = domain.ErrAlreadyClaimed
		return fxmath.Fixed{}, err
	}

	var payout fxmath.Fixed
	payout, err = position.CalculatePayout(*market.WinningOutcome, market.TotalPool, *market.PayoutDenominator)
	if err != nil {
		return fxmath.Fixed{}, err
	}

	if err = s.mover.Transfer(ctx, tx, market.Mint, market.Vault, bettor, payout); err != nil {
		return fxmath.Fixed{}, fmt.Errorf("market_engine_service.ClaimWinnings: transfer: %w", err)
	}

	position.HasClaimed = true
	if err = s.positionRepo.Update(ctx, tx, position); err != nil {
		return fxmath.Fixed{}, fmt.Errorf("market_engine_service.ClaimWinnings: position update: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fxmath.Fixed{}, fmt.Errorf("market_engine_service.ClaimWinnings: commit: %w", err)
	}
	return payout, nil
}

// GetMarket fetches a market by its derived identity for read-only queries.
func (s *MarketEngineService) GetMarket(ctx context.Context, marketID address.ID) (*domain.Market, error) {
	market, err := s.marketRepo.GetByID(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("market_engine_service.GetMarket: %w", err)
	}
	return market, nil
}

// GetMarketOdds returns the LMSR-implied probability of each outcome, a
// read-only view that never feeds back into the cost function — the market
// itself only ever moves in response to PlaceBet/ResolveMarket.
func (s *MarketEngineService) GetMarketOdds(ctx context.Context, marketID address.ID) ([]fxmath.Fixed, error) {
	market, err := s.GetMarket(ctx, marketID)
	if err != nil {
		return nil, err
	}

	odds := make([]fxmath.Fixed, len(market.Outcomes))
	for k := range market.Outcomes {
		p, err := market.ImpliedProbability(k)
		if err != nil {
			return nil, fmt.Errorf("market_engine_service.GetMarketOdds: %w", err)
		}
		odds[k] = p
	}
	return odds, nil
}

// GetPosition fetches a bettor's position in a market for read-only queries.
func (s *MarketEngineService) GetPosition(ctx context.Context, marketID, bettor address.ID) (*domain.BettorPosition, error) {
	position, err := s.positionRepo.GetByID(ctx, marketID, bettor)
	if err != nil {
		return nil, fmt.Errorf("market_engine_service.GetPosition: %w", err)
	}
	return position, nil
}

// ListPositionsByBettor returns a bettor's position history across markets,
// newest first.
func (s *MarketEngineService) ListPositionsByBettor(ctx context.Context, bettor address.ID, limit, offset int) ([]*domain.BettorPosition, error) {
	positions, err := s.positionRepo.GetByBettor(ctx, bettor, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("market_engine_service.ListPositionsByBettor: %w", err)
	}
	return positions, nil
}
