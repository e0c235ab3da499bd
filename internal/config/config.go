package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr     string
	DBPath   string
	LogLevel string

	// Background pre-generation pool
	GenWorkerCount int
	GenQueueSize   int

	// Text-generation collaborator
	GeneratorMode  string // "api" or "mock"
	AnthropicModel string
	GenRetries     int

	// Retrieval scheduling delays (days)
	FollowUpBaseDelayDays  int
	FollowUpRetryDelayDays int
	CurveballAfterPassDays int

	// Session lifecycle
	SessionStaleAfterMin  int
	GenerationPollMillis  int
	GenerationPollRetries int

	// Displayed brain-calorie bounds
	BCalLessonScale float64
	BCalClampMin    float64
	BCalClampMax    float64
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:                   envOr("ADDR", ":8080"),
		DBPath:                 envOr("DB_PATH", "file:ideaflash.db"),
		LogLevel:               envOr("LOG_LEVEL", "INFO"),
		GenWorkerCount:         envIntOr("GEN_WORKER_COUNT", 2),
		GenQueueSize:           envIntOr("GEN_QUEUE_SIZE", 16),
		GeneratorMode:          envOr("GENERATOR_MODE", "api"),
		AnthropicModel:         envOr("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
		GenRetries:             envIntOr("GEN_RETRIES", 2),
		FollowUpBaseDelayDays:  envIntOr("FOLLOWUP_BASE_DELAY_DAYS", 2),
		FollowUpRetryDelayDays: envIntOr("FOLLOWUP_RETRY_DELAY_DAYS", 1),
		CurveballAfterPassDays: envIntOr("CURVEBALL_AFTER_PASS_DAYS", 7),
		SessionStaleAfterMin:   envIntOr("SESSION_STALE_AFTER_MIN", 5),
		GenerationPollMillis:   envIntOr("GENERATION_POLL_MILLIS", 500),
		GenerationPollRetries:  envIntOr("GENERATION_POLL_RETRIES", 20),
		BCalLessonScale:        envFloatOr("BCAL_LESSON_SCALE", 1.0),
		BCalClampMin:           envFloatOr("BCAL_CLAMP_MIN", 60),
		BCalClampMax:           envFloatOr("BCAL_CLAMP_MAX", 500),
	}
}

// Validate checks that the loaded configuration is usable.
func (c Config) Validate() error {
	var errs []string

	if c.Addr == "" {
		errs = append(errs, "ADDR cannot be empty")
	}
	if c.DBPath == "" {
		errs = append(errs, "DB_PATH cannot be empty")
	}
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		errs = append(errs, fmt.Sprintf("LOG_LEVEL %q is not one of DEBUG, INFO, WARN, ERROR", c.LogLevel))
	}
	if c.GenWorkerCount < 1 {
		errs = append(errs, "GEN_WORKER_COUNT must be at least 1")
	}
	if c.GenQueueSize < 1 {
		errs = append(errs, "GEN_QUEUE_SIZE must be at least 1")
	}
	if c.GeneratorMode != "api" && c.GeneratorMode != "mock" {
		errs = append(errs, fmt.Sprintf("GENERATOR_MODE %q is not one of api, mock", c.GeneratorMode))
	}
	if c.GenRetries < 0 {
		errs = append(errs, "GEN_RETRIES cannot be negative")
	}
	if c.FollowUpBaseDelayDays < 1 {
		errs = append(errs, "FOLLOWUP_BASE_DELAY_DAYS must be at least 1")
	}
	if c.FollowUpRetryDelayDays < 1 {
		errs = append(errs, "FOLLOWUP_RETRY_DELAY_DAYS must be at least 1")
	}
	if c.CurveballAfterPassDays < 1 {
		errs = append(errs, "CURVEBALL_AFTER_PASS_DAYS must be at least 1")
	}
	if c.SessionStaleAfterMin < 1 {
		errs = append(errs, "SESSION_STALE_AFTER_MIN must be at least 1")
	}
	if c.GenerationPollMillis < 1 {
		errs = append(errs, "GENERATION_POLL_MILLIS must be at least 1")
	}
	if c.GenerationPollRetries < 0 {
		errs = append(errs, "GENERATION_POLL_RETRIES cannot be negative")
	}
	if c.BCalClampMin >= c.BCalClampMax {
		errs = append(errs, "BCAL_CLAMP_MIN must be below BCAL_CLAMP_MAX")
	}
	if c.BCalLessonScale <= 0 {
		errs = append(errs, "BCAL_LESSON_SCALE must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envFloatOr(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
		log.Printf("invalid value for %s=%q, using default %g", key, v, def)
	}
	return def
}
