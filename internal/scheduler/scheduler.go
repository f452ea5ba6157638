// Package scheduler runs the single background goroutine that enforces the
// dispute window on market resolutions: DisputeFinalizer wakes on a tick,
// asks ResolutionService for every record whose window has closed, and
// finalizes them.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/streamvault/streamvault/internal/config"
	"github.com/streamvault/streamvault/internal/service"
)

// ──────────────────────────────────────────────────────────────────────────────
// DisputeFinalizer
// ──────────────────────────────────────────────────────────────────────────────

// DisputeFinalizer wires a ResolutionService into a ticking background loop.
// Call Start(ctx) once from main(); cancel the context to shut it down
// gracefully.
type DisputeFinalizer struct {
	resolutionSvc *service.ResolutionService
	interval      time.Duration
	logger        *slog.Logger
}

// NewDisputeFinalizer creates a DisputeFinalizer. The sweep interval comes
// from cfg.Randomness.FinalizeSweepInterval, falling back to 5 seconds when
// unset so a zero-value config still boots.
func NewDisputeFinalizer(resolutionSvc *service.ResolutionService, cfg *config.Config, logger *slog.Logger) *DisputeFinalizer {
	interval := cfg.Randomness.FinalizeSweepInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &DisputeFinalizer{
		resolutionSvc: resolutionSvc,
		interval:      interval,
		logger:        logger,
	}
}

// Start launches the sweep goroutine. It returns immediately; the loop runs
// until ctx is cancelled.
func (f *DisputeFinalizer) Start(ctx context.Context) {
	go f.sweepLoop(ctx)
	f.logger.Info("dispute finalizer started", "interval", f.interval)
}

// ──────────────────────────────────────────────────────────────────────────────
// sweepLoop
// ──────────────────────────────────────────────────────────────────────────────

// sweepLoop finalizes every resolution record past its dispute window on
// every tick. A market the host already resolved directly via
// OverrideResolution marks its record finalized immediately, so
// ResolutionService's fetch never surfaces it here — nothing extra to check.
func (f *DisputeFinalizer) sweepLoop(ctx context.Context) {
	defer f.recoverAndLog("sweepLoop")

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("sweepLoop: shutting down")
			return
		case <-ticker.C:
			if err := f.resolutionSvc.FinalizeExpiredResolutions(ctx); err != nil {
				f.logger.Error("sweepLoop: FinalizeExpiredResolutions", "err", err)
			}
		}
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside the sweep goroutine to catch unexpected
// panics, log them, and allow the scheduler process to continue running.
func (f *DisputeFinalizer) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		f.logger.Error("PANIC recovered in scheduler loop",
			"loop", loop, "panic", r)
	}
}
