// Package main is the entry point for the streamvault stream-escrow and
// LMSR prediction-market API server. It wires together all services and
// starts the HTTP server alongside the dispute-finalize scheduler.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	"github.com/streamvault/streamvault/internal/api"
	"github.com/streamvault/streamvault/internal/config"
	"github.com/streamvault/streamvault/internal/ledger"
	"github.com/streamvault/streamvault/internal/randomness"
	"github.com/streamvault/streamvault/internal/repository"
	"github.com/streamvault/streamvault/internal/scheduler"
	"github.com/streamvault/streamvault/internal/service"
	"github.com/streamvault/streamvault/internal/ws"
)

func main() {
	// ── 1. Logger ─────────────────────────────────────────────────────────────
	cfg := config.MustLoad()

	var logHandler slog.Handler
	if cfg.IsProd() {
		logHandler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		logHandler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	logger := slog.New(logHandler)
	slog.SetDefault(logger)

	logger.Info("starting streamvault server", "env", cfg.Server.Env, "port", cfg.Server.Port)

	// ── 2. Database ───────────────────────────────────────────────────────────
	db, err := sqlx.Connect("postgres", cfg.DB.DSN)
	if err != nil {
		logger.Error("database connection failed", "err", err)
		os.Exit(1)
	}
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.DB.ConnMaxLifetime)

	if err = db.Ping(); err != nil {
		logger.Error("database ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("database connected")

	// ── 3. Migrations ─────────────────────────────────────────────────────────
	if err = runMigrations(db, "migrations"); err != nil {
		logger.Error("migrations failed", "err", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// ── 4. Repositories ───────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	streamRepo := repository.NewStreamRepository(db)
	donorRepo := repository.NewDonorRepository(db)
	marketRepo := repository.NewMarketRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	resolutionRepo := repository.NewResolutionRepository(db)

	// ── 5. Ledger ─────────────────────────────────────────────────────────────
	mover := ledger.NewPostgresTokenMover()

	// ── 6. Randomness oracle + sampler ────────────────────────────────────────
	oracle, err := randomness.NewHTTPOracle(cfg)
	if err != nil {
		logger.Error("oracle setup failed", "err", err)
		os.Exit(1)
	}
	sampler := randomness.NewSampler()

	// ── 7. Services (order matters for injection) ─────────────────────────────
	authSvc := service.NewAuthService(db, userRepo, cfg)

	streamSvc := service.NewStreamService(db, streamRepo, donorRepo, mover, cfg)

	marketSvc := service.NewMarketEngineService(db, marketRepo, positionRepo, mover, cfg)

	resolutionSvc := service.NewResolutionService(db, marketRepo, resolutionRepo, mover, oracle, sampler, marketSvc, cfg)

	// ── 8. Live-update hub ────────────────────────────────────────────────────
	var wsAllowedOrigins []string
	if ori := os.Getenv("WS_ALLOWED_ORIGINS"); ori != "" {
		for _, o := range strings.Split(ori, ",") {
			wsAllowedOrigins = append(wsAllowedOrigins, strings.TrimSpace(o))
		}
	}
	hub := ws.NewHub([]byte(cfg.JWT.AccessSecret), wsAllowedOrigins)
	marketSvc.SetBroadcaster(hub)

	// ── 9. Root context + signal handling ─────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 10. Start hub + scheduler ─────────────────────────────────────────────
	go hub.Run()
	logger.Info("live-update hub started")

	finalizer := scheduler.NewDisputeFinalizer(resolutionSvc, cfg, logger)
	finalizer.Start(ctx)

	// ── 11. HTTP Router ───────────────────────────────────────────────────────
	router := api.SetupRouter(api.RouterDeps{
		AuthSvc:       authSvc,
		StreamSvc:     streamSvc,
		MarketSvc:     marketSvc,
		ResolutionSvc: resolutionSvc,
		Oracle:        oracle,
		UserRepo:      userRepo,
		Hub:           hub,
		Cfg:           cfg,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// ── 12. Start server ──────────────────────────────────────────────────────
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
			stop() // trigger graceful shutdown
		}
	}()

	// ── 13. Graceful shutdown ─────────────────────────────────────────────────
	<-ctx.Done()
	logger.Info("shutdown signal received, draining connections…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "err", err)
	}

	db.Close()
	logger.Info("server stopped cleanly")
}

// runMigrations reads all *.sql files from dir, sorted by name, and executes
// them sequentially.  Idempotent: SQL files should use IF NOT EXISTS / ON CONFLICT.
func runMigrations(db *sqlx.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("runMigrations: read dir %q: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("runMigrations: read %q: %w", f, err)
		}
		if _, err = db.Exec(string(data)); err != nil {
			return fmt.Errorf("runMigrations: exec %q: %w", f, err)
		}
		slog.Info("migration applied", "file", filepath.Base(f))
	}
	return nil
}
