package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the call-analysis service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Analysis engine configuration
	AnalysisWindowMs   int64 `envconfig:"ANALYSIS_WINDOW_MS" default:"120000"`  // Trailing window evaluated per tick
	FollowUpDeadlineMs int64 `envconfig:"FOLLOWUP_DEADLINE_MS" default:"25000"` // Reply deadline before a question is missed
	MaxAnalysisChunks  int   `envconfig:"MAX_ANALYSIS_CHUNKS" default:"220"`    // Max transcript chunks accepted per request

	// Default tuning knobs (0-100), used when a request omits them
	DefaultSensitivity            float64 `envconfig:"DEFAULT_SENSITIVITY" default:"50"`
	DefaultCoachingAggressiveness float64 `envconfig:"DEFAULT_COACHING_AGGRESSIVENESS" default:"40"`

	// Realtime session cadence
	AnalysisCadenceMs     int64   `envconfig:"ANALYSIS_CADENCE_MS" default:"15000"`     // Min interval between engine runs
	AnalysisUICooldownMs  int64   `envconfig:"ANALYSIS_UI_COOLDOWN_MS" default:"8000"`  // Min interval between pushed results
	MinAnalysisConfidence float64 `envconfig:"MIN_ANALYSIS_CONFIDENCE" default:"0.55"`  // Results below this are suppressed
	WarmupContextSec      int64   `envconfig:"WARMUP_CONTEXT_SEC" default:"60"`         // Context window during call warmup
	SteadyContextSec      int64   `envconfig:"STEADY_CONTEXT_SEC" default:"120"`        // Context window after warmup
	MaxPendingPackets     int     `envconfig:"MAX_PENDING_PACKETS" default:"120"`       // Per-session transcript packet cap

	// Optional LLM refiner overlay for the REST endpoint
	RefinerEnabled bool   `envconfig:"REFINER_ENABLED" default:"false"`
	RefinerURL     string `envconfig:"REFINER_URL" default:""`
	RefinerTimeout int    `envconfig:"REFINER_TIMEOUT" default:"10"` // seconds

	// Resilience configuration for the refiner call path
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables
// It first attempts to load from .env file if it exists, then from environment
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.AnalysisWindowMs <= 0 {
		return fmt.Errorf("ANALYSIS_WINDOW_MS must be positive, got %d", c.AnalysisWindowMs)
	}
	if c.FollowUpDeadlineMs <= 0 {
		return fmt.Errorf("FOLLOWUP_DEADLINE_MS must be positive, got %d", c.FollowUpDeadlineMs)
	}
	if c.MaxAnalysisChunks <= 0 {
		return fmt.Errorf("MAX_ANALYSIS_CHUNKS must be positive, got %d", c.MaxAnalysisChunks)
	}
	if c.DefaultSensitivity < 0 || c.DefaultSensitivity > 100 {
		return fmt.Errorf("DEFAULT_SENSITIVITY must be within 0-100, got %v", c.DefaultSensitivity)
	}
	if c.DefaultCoachingAggressiveness < 0 || c.DefaultCoachingAggressiveness > 100 {
		return fmt.Errorf("DEFAULT_COACHING_AGGRESSIVENESS must be within 0-100, got %v", c.DefaultCoachingAggressiveness)
	}
	if c.MinAnalysisConfidence < 0 || c.MinAnalysisConfidence > 1 {
		return fmt.Errorf("MIN_ANALYSIS_CONFIDENCE must be within 0-1, got %v", c.MinAnalysisConfidence)
	}
	if c.RefinerEnabled && c.RefinerURL == "" {
		return fmt.Errorf("REFINER_URL is required when REFINER_ENABLED is true")
	}
	return nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
