package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/streamvault/streamvault/internal/address"
	"github.com/streamvault/streamvault/internal/config"
	"github.com/streamvault/streamvault/internal/domain"
	"github.com/streamvault/streamvault/internal/fxmath"
	"github.com/streamvault/streamvault/internal/ledger"
	"github.com/streamvault/streamvault/internal/repository"
)

// InitializeStreamRequest carries the parameters for creating a new stream.
// Exactly one of Prepaid/Conditional should be set, selected by Type; Live
// streams set neither.
type InitializeStreamRequest struct {
	Host        address.ID
	Name        string
	Mint        string
	Type        domain.StreamType
	Prepaid     *domain.PrepaidParams
	Conditional *domain.ConditionalParams
}

// StreamService orchestrates the stream-escrow lifecycle: initialization,
// starting, deposits, distributions, refunds, and termination. All money
// movement happens inside a single PostgreSQL transaction alongside the
// TokenMover credit/transfer calls, the same way the teacher's bet placement
// combines a wallet deduction with a bet row insert atomically.
type StreamService struct {
	db         *sqlx.DB
	streamRepo *repository.StreamRepository
	donorRepo  *repository.DonorRepository
	mover      ledger.TokenMover
	cfg        *config.Config
}

// NewStreamService creates a StreamService.
func NewStreamService(
	db *sqlx.DB,
	streamRepo *repository.StreamRepository,
	donorRepo *repository.DonorRepository,
	mover ledger.TokenMover,
	cfg *config.Config,
) *StreamService {
	return &StreamService{
		db:         db,
		streamRepo: streamRepo,
		donorRepo:  donorRepo,
		mover:      mover,
		cfg:        cfg,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Initialize
// ──────────────────────────────────────────────────────────────────────────────

// Initialize creates a new stream in StreamInitialized status, deriving its
// identity and escrow account from (host, name).
func (s *StreamService) Initialize(ctx context.Context, req InitializeStreamRequest) (*domain.Stream, error) {
	if err := domain.ValidateName(req.Name); err != nil {
		return nil, err
	}

	mint := req.Mint
	if mint == "" {
		mint = s.cfg.Stream.DefaultMint
	}

	id := address.Stream(req.Host[:], []byte(req.Name))
	escrow := address.StreamEscrow(id)

	if _, err := s.streamRepo.GetByID(ctx, id); err == nil {
		return nil, domain.ErrStreamAlreadyInitialized
	} else if !errors.Is(err, domain.ErrStreamNotFound) {
		return nil, fmt.Errorf("stream_service.Initialize: %w", err)
	}

	stream := &domain.Stream{
		ID:            id,
		Host:          req.Host,
		Name:          req.Name,
		Mint:          mint,
		EscrowAccount: escrow,
		Type:          req.Type,
		Status:        domain.StreamInitialized,
		CreatedAt:     time.Now().UTC(),
	}

	switch req.Type {
	case domain.StreamPrepaid:
		if req.Prepaid == nil {
			return nil, domain.ErrInvalidStreamType
		}
		floor := s.cfg.Stream.MinDurationFloor
		if req.Prepaid.MinDuration < floor {
			return nil, domain.ErrInvalidStreamType
		}
		seconds := int64(req.Prepaid.MinDuration / time.Second)
		stream.Prepaid = req.Prepaid
		stream.MinDurationSeconds = &seconds
	case domain.StreamConditional:
		if req.Conditional == nil || (req.Conditional.MinAmount == nil && req.Conditional.UnlockTime == nil) {
			return nil, domain.ErrInvalidStreamType
		}
		stream.Conditional = req.Conditional
		stream.MinAmount = req.Conditional.MinAmount
		stream.UnlockTime = req.Conditional.UnlockTime
	case domain.StreamLive:
		// no preconditions beyond Active status
	default:
		return nil, domain.ErrInvalidStreamType
	}

	if err := s.streamRepo.Create(ctx, stream); err != nil {
		return nil, fmt.Errorf("stream_service.Initialize: %w", err)
	}
	return stream, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// StartStream
// ──────────────────────────────────────────────────────────────────────────────

// StartStream transitions a stream from Initialized to Active, stamping
// StartTime. Only the host may call this.
func (s *StreamService) StartStream(ctx context.Context, streamID, caller address.ID) (*domain.Stream, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("stream_service.StartStream: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var stream *domain.Stream
	stream, err = s.streamRepo.GetByIDForUpdate(ctx, tx, streamID)
	if err != nil {
		return nil, fmt.Errorf("stream_service.StartStream: %w", err)
	}
	if stream.Host != caller {
		err = domain.ErrUnauthorized
		return nil, err
	}
	if stream.Status != domain.StreamInitialized {
		err = domain.ErrStreamAlreadyStarted
		return nil, err
	}

	now := time.Now().UTC()
	stream.Status = domain.StreamActive
	stream.StartTime = &now

	if err = s.streamRepo.Update(ctx, tx, stream); err != nil {
		return nil, fmt.Errorf("stream_service.StartStream: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("stream_service.StartStream: commit: %w", err)
	}
	return stream, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Deposit
// ──────────────────────────────────────────────────────────────────────────────

// Deposit moves amount from the donor's token account into the stream's
// escrow account and credits the donor's sub-ledger, inside one transaction.
func (s *StreamService) Deposit(ctx context.Context, streamID, donor address.ID, amount fxmath.Fixed) (*domain.DonorAccount, error) {
	if amount.Sign() <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("stream_service.Deposit: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var stream *domain.Stream
	stream, err = s.streamRepo.GetByIDForUpdate(ctx, tx, streamID)
	if err != nil {
		return nil, fmt.Errorf("stream_service.Deposit: %w", err)
	}
	if err = stream.CanDeposit(); err != nil {
		return nil, err
	}

	if err = s.mover.Transfer(ctx, tx, stream.Mint, donor, stream.EscrowAccount, amount); err != nil {
		return nil, fmt.Errorf("stream_service.Deposit: transfer: %w", err)
	}

	var donorAccount *domain.DonorAccount
	donorAccount, err = s.donorRepo.GetOrCreateForUpdate(ctx, tx, streamID, donor, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("stream_service.Deposit: donor lookup: %w", err)
	}
	if err = donorAccount.ApplyDeposit(amount); err != nil {
		return nil, err
	}
	if err = s.donorRepo.Update(ctx, tx, donorAccount); err != nil {
		return nil, fmt.Errorf("stream_service.Deposit: donor update: %w", err)
	}

	var total fxmath.Fixed
	total, err = fxmath.CheckedAdd(stream.TotalDeposited, amount)
	if err != nil {
		err = domain.ErrArithmeticOverflow
		return nil, err
	}
	stream.TotalDeposited = total
	if err = s.streamRepo.Update(ctx, tx, stream); err != nil {
		return nil, fmt.Errorf("stream_service.Deposit: stream update: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("stream_service.Deposit: commit: %w", err)
	}
	return donorAccount, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Distribute
// ──────────────────────────────────────────────────────────────────────────────

// Distribute pays amount out of the stream's escrow to recipient, gated by
// the stream's type-specific preconditions (§4.2). Only the host may call
// this.
func (s *StreamService) Distribute(ctx context.Context, streamID, caller, recipient address.ID, amount fxmath.Fixed) (*domain.Stream, error) {
	if amount.Sign() <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("stream_service.Distribute: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var stream *domain.Stream
	stream, err = s.streamRepo.GetByIDForUpdate(ctx, tx, streamID)
	if err != nil {
		return nil, fmt.Errorf("stream_service.Distribute: %w", err)
	}
	if stream.Host != caller {
		err = domain.ErrUnauthorized
		return nil, err
	}
	now := time.Now().UTC()
	if err = stream.CanDistribute(now); err != nil {
		return nil, err
	}

	var outstanding fxmath.Fixed
	outstanding, err = stream.Outstanding()
	if err != nil {
		return nil, err
	}
	if amount.Cmp(outstanding) > 0 {
		err = domain.ErrInsufficientFunds
		return nil, err
	}

	if err = s.mover.Transfer(ctx, tx, stream.Mint, stream.EscrowAccount, recipient, amount); err != nil {
		return nil, fmt.Errorf("stream_service.Distribute: transfer: %w", err)
	}

	var distributed fxmath.Fixed
	distributed, err = fxmath.CheckedAdd(stream.TotalDistributed, amount)
	if err != nil {
		err = domain.ErrArithmeticOverflow
		return nil, err
	}
	stream.TotalDistributed = distributed
	if err = s.streamRepo.Update(ctx, tx, stream); err != nil {
		return nil, fmt.Errorf("stream_service.Distribute: stream update: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("stream_service.Distribute: commit: %w", err)
	}
	return stream, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Refund
// ──────────────────────────────────────────────────────────────────────────────

// Refund returns amount from the stream's escrow back to donor, decrementing
// their sub-ledger. Either the host or the donor themself may call this.
func (s *StreamService) Refund(ctx context.Context, streamID, caller, donor address.ID, amount fxmath.Fixed) (*domain.DonorAccount, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("stream_service.Refund: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var stream *domain.Stream
	stream, err = s.streamRepo.GetByIDForUpdate(ctx, tx, streamID)
	if err != nil {
		return nil, fmt.Errorf("stream_service.Refund: %w", err)
	}
	if caller != stream.Host && caller != donor {
		err = domain.ErrUnauthorized
		return nil, err
	}
	if err = stream.CanRefund(); err != nil {
		return nil, err
	}

	var donorAccount *domain.DonorAccount
	donorAccount, err = s.donorRepo.GetForUpdate(ctx, tx, streamID, donor)
	if err != nil {
		return nil, fmt.Errorf("stream_service.Refund: %w", err)
	}
	if err = donorAccount.ApplyRefund(amount); err != nil {
		return nil, err
	}

	if err = s.mover.Transfer(ctx, tx, stream.Mint, stream.EscrowAccount, donor, amount); err != nil {
		return nil, fmt.Errorf("stream_service.Refund: transfer: %w", err)
	}
	if err = s.donorRepo.Update(ctx, tx, donorAccount); err != nil {
		return nil, fmt.Errorf("stream_service.Refund: donor update: %w", err)
	}

	var deposited fxmath.Fixed
	deposited, err = fxmath.CheckedSub(stream.TotalDeposited, amount)
	if err != nil {
		err = domain.ErrArithmeticOverflow
		return nil, err
	}
	stream.TotalDeposited = deposited
	if err = s.streamRepo.Update(ctx, tx, stream); err != nil {
		return nil, fmt.Errorf("stream_service.Refund: stream update: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("stream_service.Refund: commit: %w", err)
	}
	return donorAccount, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// CompleteStream
// ──────────────────────────────────────────────────────────────────────────────

// CompleteStream transitions an Active stream to Ended. Only the host may
// call this; once Ended, no further deposits, distributions, or refunds are
// permitted.
func (s *StreamService) CompleteStream(ctx context.Context, streamID, caller address.ID) (*domain.Stream, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("stream_service.CompleteStream: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var stream *domain.Stream
	stream, err = s.streamRepo.GetByIDForUpdate(ctx, tx, streamID)
	if err != nil {
		return nil, fmt.Errorf("stream_service.CompleteStream: %w", err)
	}
	if stream.Host != caller {
		err = domain.ErrUnauthorized
		return nil, err
	}
	if stream.IsTerminal() {
		err = domain.ErrStreamAlreadyEnded
		return nil, err
	}
	if stream.Status != domain.StreamActive || stream.StartTime == nil {
		err = domain.ErrStreamNotStarted
		return nil, err
	}

	now := time.Now().UTC()
	stream.Status = domain.StreamEnded
	stream.EndTime = &now
	if err = s.streamRepo.Update(ctx, tx, stream); err != nil {
		return nil, fmt.Errorf("stream_service.CompleteStream: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("stream_service.CompleteStream: commit: %w", err)
	}
	return stream, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// UpdateStream
// ──────────────────────────────────────────────────────────────────────────────

// UpdateStream lets the host change a stream's end_time and/or explicitly
// transition it to Ended or Cancelled, per the §4.2 transition table: only
// Initialized and Active are a source of a host-triggered transition, and
// only to Ended or Cancelled — Ended/Cancelled are terminal.
func (s *StreamService) UpdateStream(ctx context.Context, streamID, caller address.ID, newEndTime *time.Time, newStatus *domain.StreamStatus) (*domain.Stream, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("stream_service.UpdateStream: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var stream *domain.Stream
	stream, err = s.streamRepo.GetByIDForUpdate(ctx, tx, streamID)
	if err != nil {
		return nil, fmt.Errorf("stream_service.UpdateStream: %w", err)
	}
	if stream.Host != caller {
		err = domain.ErrUnauthorized
		return nil, err
	}

	if newStatus != nil {
		if stream.IsTerminal() {
			err = domain.ErrInvalidStatusTransition
			return nil, err
		}
		switch *newStatus {
		case domain.StreamEnded, domain.StreamCancelled:
			stream.Status = *newStatus
		default:
			err = domain.ErrInvalidStatusTransition
			return nil, err
		}
		if newEndTime == nil {
			now := time.Now().UTC()
			stream.EndTime = &now
		}
	}

	if newEndTime != nil {
		stream.EndTime = newEndTime
	}

	if err = s.streamRepo.Update(ctx, tx, stream); err != nil {
		return nil, fmt.Errorf("stream_service.UpdateStream: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("stream_service.UpdateStream: commit: %w", err)
	}
	return stream, nil
}

// GetStream fetches a stream by its derived identity for read-only queries.
func (s *StreamService) GetStream(ctx context.Context, streamID address.ID) (*domain.Stream, error) {
	stream, err := s.streamRepo.GetByID(ctx, streamID)
	if err != nil {
		return nil, fmt.Errorf("stream_service.GetStream: %w", err)
	}
	return stream, nil
}

// GetStreamSummary fetches a stream and returns its read-only summary view,
// for API responses that have no business seeing internal gating fields.
func (s *StreamService) GetStreamSummary(ctx context.Context, streamID address.ID) (*domain.StreamSummary, error) {
	stream, err := s.GetStream(ctx, streamID)
	if err != nil {
		return nil, err
	}
	summary := stream.ToSummary()
	return &summary, nil
}

// ListStreamsByHost returns the streams a host has created, newest first.
func (s *StreamService) ListStreamsByHost(ctx context.Context, host address.ID, limit, offset int) ([]domain.StreamSummary, int, error) {
	streams, total, err := s.streamRepo.List(ctx, host, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("stream_service.ListStreamsByHost: %w", err)
	}
	summaries := make([]domain.StreamSummary, len(streams))
	for i, stream := range streams {
		summaries[i] = stream.ToSummary()
	}
	return summaries, total, nil
}
