package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`
	RedisURL    string `mapstructure:"REDIS_URL"`

	SessionSecret      string        `mapstructure:"SESSION_SECRET"`
	SessionIdleTimeout time.Duration `mapstructure:"SESSION_IDLE_TIMEOUT"`
	BcryptCost         int           `mapstructure:"BCRYPT_COST"`

	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`

	CompletionBaseURL        string        `mapstructure:"COMPLETION_BASE_URL"`
	CompletionAPIKey         string        `mapstructure:"COMPLETION_API_KEY"`
	CompletionModel          string        `mapstructure:"COMPLETION_MODEL"`
	CompletionMaxAttempts    int           `mapstructure:"COMPLETION_MAX_ATTEMPTS"`
	CompletionBaseDelay      time.Duration `mapstructure:"COMPLETION_BASE_DELAY"`
	CompletionMaxDelay       time.Duration `mapstructure:"COMPLETION_MAX_DELAY"`
	CompletionAttemptTimeout time.Duration `mapstructure:"COMPLETION_ATTEMPT_TIMEOUT"`
	CompletionMaxTokens      int           `mapstructure:"COMPLETION_MAX_TOKENS"`
	CompletionTemperature    float64       `mapstructure:"COMPLETION_TEMPERATURE"`
	CompletionJitter         bool          `mapstructure:"COMPLETION_JITTER"`
	CompletionReferer        string        `mapstructure:"COMPLETION_REFERER"`
	CompletionTitle          string        `mapstructure:"COMPLETION_TITLE"`

	ChatHistoryTurns int `mapstructure:"CHAT_HISTORY_TURNS"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL",
	"SESSION_SECRET", "SESSION_IDLE_TIMEOUT", "BCRYPT_COST",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT",
	"COMPLETION_BASE_URL", "COMPLETION_API_KEY", "COMPLETION_MODEL", "COMPLETION_MAX_ATTEMPTS",
	"COMPLETION_BASE_DELAY", "COMPLETION_MAX_DELAY", "COMPLETION_ATTEMPT_TIMEOUT",
	"COMPLETION_MAX_TOKENS", "COMPLETION_TEMPERATURE", "COMPLETION_JITTER",
	"COMPLETION_REFERER", "COMPLETION_TITLE",
	"CHAT_HISTORY_TURNS",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_URL", "sqlite://healthai.db")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("SESSION_IDLE_TIMEOUT", "30m")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 1)
	v.SetDefault("RATE_LIMIT_BURST", 60)
	v.SetDefault("REQUEST_TIMEOUT", "3m")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("COMPLETION_BASE_URL", "https://openrouter.ai/api/v1")
	v.SetDefault("COMPLETION_MODEL", "meta-llama/llama-3.1-8b-instruct:free")
	v.SetDefault("COMPLETION_MAX_ATTEMPTS", 3)
	v.SetDefault("COMPLETION_BASE_DELAY", "2s")
	v.SetDefault("COMPLETION_MAX_DELAY", "30s")
	v.SetDefault("COMPLETION_ATTEMPT_TIMEOUT", "45s")
	v.SetDefault("COMPLETION_MAX_TOKENS", 2000)
	v.SetDefault("COMPLETION_TEMPERATURE", 0.7)
	v.SetDefault("COMPLETION_JITTER", false)
	v.SetDefault("COMPLETION_TITLE", "HealthAI")
	v.SetDefault("CHAT_HISTORY_TURNS", 5)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// CompletionBudget is the worst-case wall time of one gateway call: every
// attempt timing out plus every backoff wait between attempts. It saturates
// at the largest Duration instead of overflowing.
func (c *Config) CompletionBudget() time.Duration {
	total := time.Duration(c.CompletionMaxAttempts) * c.CompletionAttemptTimeout
	d := c.CompletionBaseDelay
	for attempt := 0; attempt < c.CompletionMaxAttempts-1; attempt++ {
		wait := d
		if c.CompletionMaxDelay > 0 && wait > c.CompletionMaxDelay {
			wait = c.CompletionMaxDelay
		}
		if total > math.MaxInt64-wait {
			return math.MaxInt64
		}
		total += wait
		if d > math.MaxInt64/2 {
			d = math.MaxInt64
		} else {
			d *= 2
		}
	}
	return total
}

// Validate checks that the configuration is safe to run. Production requires
// a session secret and a completion API key. The request timeout must leave
// room for a full retry cycle of the completion gateway.
func (c *Config) Validate() error {
	if c.IsProduction() && c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required in production")
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters, got %d", len(c.SessionSecret))
	}
	if c.IsProduction() && c.CompletionAPIKey == "" {
		return fmt.Errorf("COMPLETION_API_KEY is required in production")
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be positive")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}

	if c.CompletionMaxAttempts < 1 {
		return fmt.Errorf("COMPLETION_MAX_ATTEMPTS must be at least 1, got %d", c.CompletionMaxAttempts)
	}
	if c.CompletionBaseDelay < 0 {
		return fmt.Errorf("COMPLETION_BASE_DELAY must not be negative")
	}
	if c.CompletionAttemptTimeout <= 0 {
		return fmt.Errorf("COMPLETION_ATTEMPT_TIMEOUT must be positive")
	}
	if c.CompletionMaxTokens <= 0 {
		return fmt.Errorf("COMPLETION_MAX_TOKENS must be positive")
	}
	if c.CompletionTemperature < 0 || c.CompletionTemperature > 2 {
		return fmt.Errorf("COMPLETION_TEMPERATURE must be between 0 and 2, got %g", c.CompletionTemperature)
	}
	if budget := c.CompletionBudget(); c.RequestTimeout <= budget {
		return fmt.Errorf("REQUEST_TIMEOUT (%s) must exceed the completion retry budget (%s)", c.RequestTimeout, budget)
	}

	if c.RateLimitRPS <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	if c.ChatHistoryTurns < 0 {
		return fmt.Errorf("CHAT_HISTORY_TURNS must not be negative")
	}

	return nil
}
