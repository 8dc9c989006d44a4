package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Env string `env:"ENV" envDefault:"production"`

	// Server configuration
	Server ServerConfig

	// CSV import configuration
	Import ImportConfig

	// Recommendation panel configuration
	Recommendation RecommendationConfig

	// Grid session configuration
	Grid GridConfig

	// Seed data configuration
	Seed SeedConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string        `env:"PORT" envDefault:"8080"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
}

// ImportConfig holds CSV upload settings
type ImportConfig struct {
	MaxUploadSize   int64  `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB
	ErrorPreview    int    `env:"IMPORT_ERROR_PREVIEW" envDefault:"100"`
	ErrorReportPath string `env:"IMPORT_ERROR_REPORT_PATH" envDefault:"/v1/imports/%s/errors?format=csv"`
}

// RecommendationConfig holds language model settings
type RecommendationConfig struct {
	APIKey        string        `env:"OPENAI_API_KEY"`
	BaseURL       string        `env:"OPENAI_BASE_URL"`
	Model         string        `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	Temperature   float64       `env:"OPENAI_TEMPERATURE" envDefault:"0.2"`
	MaxTokens     int64         `env:"OPENAI_MAX_TOKENS" envDefault:"512"`
	Timeout       time.Duration `env:"RECOMMENDATION_TIMEOUT" envDefault:"60s"`
	RefreshRate   string        `env:"RECOMMENDATION_REFRESH_RATE" envDefault:"10-M"`
	UserContext   string        `env:"RECOMMENDATION_USER_CONTEXT"`
	SystemContext string        `env:"RECOMMENDATION_SYSTEM_CONTEXT"`
	StartOnBoot   bool          `env:"RECOMMENDATION_START_ON_BOOT" envDefault:"true"`
}

// GridConfig holds grid session settings
type GridConfig struct {
	SessionTTL    time.Duration `env:"GRID_SESSION_TTL" envDefault:"30m"`
	SweepInterval time.Duration `env:"GRID_SWEEP_INTERVAL" envDefault:"1m"`
	BlurGrace     time.Duration `env:"GRID_BLUR_GRACE" envDefault:"100ms"`
}

// SeedConfig controls the demo data loaded at startup
type SeedConfig struct {
	Enabled     bool `env:"SEED_ENABLED" envDefault:"true"`
	SampleUsers int  `env:"SEED_SAMPLE_USERS" envDefault:"100"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"` // "json" or "pretty"
}

// LoadEnv loads the given dotenv files that exist, later files not overriding earlier ones
func LoadEnv(files ...string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load reads configuration from .env files and environment variables
func Load() (*Config, error) {
	if _, err := LoadEnv(".env", ".env.local"); err != nil {
		return nil, fmt.Errorf("failed to load env files: %w", err)
	}
	return Parse()
}

// Parse reads configuration from environment variables only
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Import.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be positive")
	}
	if c.Recommendation.Timeout <= 0 {
		return fmt.Errorf("RECOMMENDATION_TIMEOUT must be positive")
	}
	if c.Recommendation.Temperature < 0 || c.Recommendation.Temperature > 2 {
		return fmt.Errorf("OPENAI_TEMPERATURE must be between 0 and 2")
	}
	if c.Grid.SweepInterval <= 0 {
		return fmt.Errorf("GRID_SWEEP_INTERVAL must be positive")
	}
	if c.Seed.SampleUsers < 0 {
		return fmt.Errorf("SEED_SAMPLE_USERS must not be negative")
	}
	switch c.Log.Format {
	case "json", "pretty":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or pretty, got %q", c.Log.Format)
	}
	return nil
}

// IsDevelopment reports whether ENV is development
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// RecommendationsEnabled reports whether a language model is configured
func (c *RecommendationConfig) RecommendationsEnabled() bool {
	return c.APIKey != "" || c.BaseURL != ""
}
