package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vilela/ideaflash/internal/config"
)

func validConfig() config.Config {
	return config.Config{
		Addr:                   ":8080",
		DBPath:                 "test.db",
		LogLevel:               "INFO",
		GenWorkerCount:         2,
		GenQueueSize:           16,
		GeneratorMode:          "mock",
		GenRetries:             2,
		FollowUpBaseDelayDays:  2,
		FollowUpRetryDelayDays: 1,
		CurveballAfterPassDays: 7,
		SessionStaleAfterMin:   5,
		GenerationPollMillis:   500,
		GenerationPollRetries:  20,
		BCalLessonScale:        1.0,
		BCalClampMin:           60,
		BCalClampMax:           500,
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	err := validConfig().Validate()
	assert.NoError(t, err)
}

func TestValidate_EmptyAddr(t *testing.T) {
	cfg := validConfig()
	cfg.Addr = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ADDR cannot be empty")
}

func TestValidate_EmptyDBPath(t *testing.T) {
	cfg := validConfig()
	cfg.DBPath = ""

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "DB_PATH cannot be empty")
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{name: "invalid level", level: "INVALID", wantErr: true},
		{name: "empty level", level: "", wantErr: true},
		{name: "lowercase valid level", level: "debug", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.LogLevel = tt.level

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "LOG_LEVEL")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_InvalidGeneratorMode(t *testing.T) {
	cfg := validConfig()
	cfg.GeneratorMode = "cli"

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "GENERATOR_MODE")
}

func TestValidate_InvalidDelays(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(*config.Config)
		expectedError string
	}{
		{
			name:          "zero base delay",
			mutate:        func(c *config.Config) { c.FollowUpBaseDelayDays = 0 },
			expectedError: "FOLLOWUP_BASE_DELAY_DAYS",
		},
		{
			name:          "zero retry delay",
			mutate:        func(c *config.Config) { c.FollowUpRetryDelayDays = 0 },
			expectedError: "FOLLOWUP_RETRY_DELAY_DAYS",
		},
		{
			name:          "zero curveball delay",
			mutate:        func(c *config.Config) { c.CurveballAfterPassDays = 0 },
			expectedError: "CURVEBALL_AFTER_PASS_DAYS",
		},
		{
			name:          "negative staleness window",
			mutate:        func(c *config.Config) { c.SessionStaleAfterMin = -1 },
			expectedError: "SESSION_STALE_AFTER_MIN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}

func TestValidate_InvalidWorkerCounts(t *testing.T) {
	tests := []struct {
		name          string
		workers       int
		queue         int
		expectedError string
	}{
		{name: "zero workers", workers: 0, queue: 16, expectedError: "GEN_WORKER_COUNT"},
		{name: "negative workers", workers: -1, queue: 16, expectedError: "GEN_WORKER_COUNT"},
		{name: "zero queue", workers: 2, queue: 0, expectedError: "GEN_QUEUE_SIZE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.GenWorkerCount = tt.workers
			cfg.GenQueueSize = tt.queue

			err := cfg.Validate()
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.expectedError)
		})
	}
}

func TestValidate_InvalidBCalBounds(t *testing.T) {
	cfg := validConfig()
	cfg.BCalClampMin = 500
	cfg.BCalClampMax = 60

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "BCAL_CLAMP_MIN")
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Addr = ""
	cfg.DBPath = ""
	cfg.LogLevel = "INVALID"
	cfg.GenWorkerCount = 0

	err := cfg.Validate()
	require.Error(t, err)

	errStr := err.Error()
	assert.Contains(t, errStr, "ADDR cannot be empty")
	assert.Contains(t, errStr, "DB_PATH cannot be empty")
	assert.Contains(t, errStr, "LOG_LEVEL")
	assert.Contains(t, errStr, "GEN_WORKER_COUNT")
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	originalAddr := os.Getenv("ADDR")
	originalDBPath := os.Getenv("DB_PATH")

	defer func() {
		if originalAddr != "" {
			os.Setenv("ADDR", originalAddr)
		} else {
			os.Unsetenv("ADDR")
		}
		if originalDBPath != "" {
			os.Setenv("DB_PATH", originalDBPath)
		} else {
			os.Unsetenv("DB_PATH")
		}
	}()

	os.Setenv("ADDR", ":9090")
	os.Setenv("DB_PATH", "custom.db")

	cfg := config.Load()

	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, "custom.db", cfg.DBPath)
}
