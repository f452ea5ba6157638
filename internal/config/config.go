// Package config provides application configuration loaded from environment variables.
// Use the package-level Get() function to obtain the singleton Config instance.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ──────────────────────────────────────────────────────────────────────────────
// Sub-config structs
// ──────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port                 string        // e.g. "8080"
	BackofficePort       string        // e.g. "8081"
	BackofficeAllowedIPs string        // comma-separated allowlist; empty disables the check
	Env                  string        // "development" | "production"
	ReadTimeout          time.Duration // default 10s
	WriteTimeout         time.Duration // default 10s
	AllowedOrigins       []string      // CORS allow-list, consulted only in production
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	DSN             string        // full postgres DSN
	MaxOpenConns    int           // default 25
	MaxIdleConns    int           // default 10
	ConnMaxLifetime time.Duration // default 5m
}

// JWTConfig holds JWT signing settings.
type JWTConfig struct {
	AccessSecret  string        // must be set
	RefreshSecret string        // must be set
	AccessTTL     time.Duration // default 15m
	RefreshTTL    time.Duration // default 720h (30 days)
}

// StreamConfig holds tunable limits for stream lifecycle operations.
type StreamConfig struct {
	DefaultMint      string        // mint used when a creation request omits one
	MinDurationFloor time.Duration // smallest MinDuration a prepaid stream may set
	MaxDormantAge    time.Duration // loaded from env; no code reads it and no dormant-stream sweep exists
}

// MarketConfig holds LMSR betting-market defaults and bounds.
type MarketConfig struct {
	DefaultLiquidityParam   int64         // scaled fixed-point `b` used when a request omits one
	MaxFeePercentageBPS     int64         // deployer-configurable ceiling, never above domain.MaxFeeBPS
	DefaultResolutionWindow time.Duration // fallback window when a request omits a deadline
}

// RandomnessConfig holds the external verifiable-randomness oracle's
// connection settings and the dispute-window / reward parameters that gate
// how its callbacks are consumed.
type RandomnessConfig struct {
	OracleBaseURL         string        // base URL of the randomness oracle service
	OraclePublicKey       string        // hex-encoded ed25519 public key verifying callback signatures
	RequestTimeout        time.Duration // default 5s
	DisputeWindow         time.Duration // default 1h, overrides domain.DisputeWindow when set
	ValidatorRewardBPS    int64         // overrides domain.ValidatorRewardBPS when set (0 = use default)
	FinalizeSweepInterval time.Duration // how often DisputeFinalizer polls for expired windows, default 5s
}

// ──────────────────────────────────────────────────────────────────────────────
// Top-level Config
// ──────────────────────────────────────────────────────────────────────────────

// Config is the root configuration object for the entire application.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	JWT        JWTConfig
	Stream     StreamConfig
	Market     MarketConfig
	Randomness RandomnessConfig
}

// IsProd returns true when running in the production environment.
func (c *Config) IsProd() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// Returns every validation error found, combined with errors.Join.
func (c *Config) Validate() error {
	var errs []error

	// JWT secrets are mandatory
	if c.JWT.AccessSecret == "" {
		errs = append(errs, errors.New("JWT_ACCESS_SECRET must be set"))
	}
	if c.JWT.RefreshSecret == "" {
		errs = append(errs, errors.New("JWT_REFRESH_SECRET must be set"))
	}

	// In production, DB DSN must be explicit
	if c.IsProd() && c.DB.DSN == "" {
		errs = append(errs, errors.New("DATABASE_DSN must be set in production"))
	}

	if c.Market.MaxFeePercentageBPS <= 0 || c.Market.MaxFeePercentageBPS > 10_000 {
		errs = append(errs, fmt.Errorf(
			"MARKET_MAX_FEE_BPS must be between 1 and 10000, got %d", c.Market.MaxFeePercentageBPS,
		))
	}

	if c.IsProd() && c.Randomness.OracleBaseURL == "" {
		errs = append(errs, errors.New("RANDOMNESS_ORACLE_BASE_URL must be set in production"))
	}
	if c.IsProd() && c.Randomness.OraclePublicKey == "" {
		errs = append(errs, errors.New("RANDOMNESS_ORACLE_PUBLIC_KEY must be set in production"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Singleton
// ──────────────────────────────────────────────────────────────────────────────

var (
	instance *Config
	once     sync.Once
	loadErr  error
)

// Get returns the singleton Config, loading it once from environment variables.
// Panics if loading fails — call this early in main() to catch misconfigurations
// at startup.
func Get() *Config {
	once.Do(func() {
		instance, loadErr = load()
	})
	if loadErr != nil {
		panic(fmt.Sprintf("config: failed to load: %v", loadErr))
	}
	return instance
}

// MustLoad loads and validates configuration. Intended for use in main().
// Panics on any error so misconfiguration is caught immediately at boot.
func MustLoad() *Config {
	cfg := Get()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("config: validation failed: %v", err))
	}
	return cfg
}

// ──────────────────────────────────────────────────────────────────────────────
// Internal loader
// ──────────────────────────────────────────────────────────────────────────────

func load() (*Config, error) {
	cfg := &Config{}

	// ── Server ────────────────────────────────────────────────────────────────
	cfg.Server = ServerConfig{
		Port:                 getEnv("SERVER_PORT", "8080"),
		BackofficePort:       getEnv("BACKOFFICE_PORT", "8081"),
		BackofficeAllowedIPs: getEnv("BACKOFFICE_ALLOWED_IPS", ""),
		Env:                  getEnv("ENVIRONMENT", "development"),
		ReadTimeout:          getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:         getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
		AllowedOrigins:       getStringSlice("CORS_ALLOWED_ORIGINS", nil),
	}

	// ── Database ──────────────────────────────────────────────────────────────
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		// Build DSN from individual components for convenience in dev
		dsn = fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_USER", "postgres"),
			getEnv("DB_PASSWORD", ""),
			getEnv("DB_NAME", "streamvault"),
			getEnv("DB_SSLMODE", "disable"),
		)
	}

	maxOpen, err := getInt("DB_MAX_OPEN_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_OPEN_CONNS: %w", err)
	}
	maxIdle, err := getInt("DB_MAX_IDLE_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("DB_MAX_IDLE_CONNS: %w", err)
	}

	cfg.DB = DBConfig{
		DSN:             dsn,
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	// ── JWT ───────────────────────────────────────────────────────────────────
	cfg.JWT = JWTConfig{
		AccessSecret:  getEnv("JWT_ACCESS_SECRET", ""),
		RefreshSecret: getEnv("JWT_REFRESH_SECRET", ""),
		AccessTTL:     getDuration("JWT_ACCESS_TTL", 15*time.Minute),
		RefreshTTL:    getDuration("JWT_REFRESH_TTL", 30*24*time.Hour),
	}

	// ── Stream ────────────────────────────────────────────────────────────────
	cfg.Stream = StreamConfig{
		DefaultMint:      getEnv("STREAM_DEFAULT_MINT", "USDC"),
		MinDurationFloor: getDuration("STREAM_MIN_DURATION_FLOOR", 60*time.Second),
		MaxDormantAge:    getDuration("STREAM_MAX_DORMANT_AGE", 30*24*time.Hour),
	}

	// ── Market ────────────────────────────────────────────────────────────────
	defaultB, err := getInt("MARKET_DEFAULT_LIQUIDITY_PARAM", 10_000_000_000)
	if err != nil {
		return nil, fmt.Errorf("MARKET_DEFAULT_LIQUIDITY_PARAM: %w", err)
	}
	maxFeeBPS, err := getInt("MARKET_MAX_FEE_BPS", 1_000)
	if err != nil {
		return nil, fmt.Errorf("MARKET_MAX_FEE_BPS: %w", err)
	}

	cfg.Market = MarketConfig{
		DefaultLiquidityParam:   int64(defaultB),
		MaxFeePercentageBPS:     int64(maxFeeBPS),
		DefaultResolutionWindow: getDuration("MARKET_DEFAULT_RESOLUTION_WINDOW", 24*time.Hour),
	}

	// ── Randomness ────────────────────────────────────────────────────────────
	rewardBPS, err := getInt("RANDOMNESS_VALIDATOR_REWARD_BPS", 0)
	if err != nil {
		return nil, fmt.Errorf("RANDOMNESS_VALIDATOR_REWARD_BPS: %w", err)
	}

	cfg.Randomness = RandomnessConfig{
		OracleBaseURL:         getEnv("RANDOMNESS_ORACLE_BASE_URL", ""),
		OraclePublicKey:       getEnv("RANDOMNESS_ORACLE_PUBLIC_KEY", ""),
		RequestTimeout:        getDuration("RANDOMNESS_REQUEST_TIMEOUT", 5*time.Second),
		DisputeWindow:         getDuration("RANDOMNESS_DISPUTE_WINDOW", time.Hour),
		ValidatorRewardBPS:    int64(rewardBPS),
		FinalizeSweepInterval: getDuration("RANDOMNESS_FINALIZE_SWEEP_INTERVAL", 5*time.Second),
	}

	return cfg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helper functions
// ──────────────────────────────────────────────────────────────────────────────

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	return n, nil
}

// getDuration parses an env var as a Go duration string (e.g. "15m", "2s").
// Falls back to defaultVal if the variable is unset or empty.
func getDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		// Fall back to default without logging; do not crash on parse error
		return defaultVal
	}
	return d
}

// getStringSlice parses a comma-separated env var into a slice, trimming
// whitespace around each element. Falls back to defaultVal if unset.
func getStringSlice(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
