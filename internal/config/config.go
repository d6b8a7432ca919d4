// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vnote-labs/coach/internal/llm"
)

// Config holds all application configuration.
type Config struct {
	LLM       llm.Config
	DBPath    string
	PlanFile  string
	ExportDir string
	LogLevel  slog.Level
	Sentiment SentimentConfig
}

// SentimentConfig controls the optional model-backed sentiment pass.
type SentimentConfig struct {
	Advanced bool
	URL      string
	APIKey   string
	Model    string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	dbPath, err := defaultDBPath()
	if err != nil {
		return nil, err
	}

	level, err := parseLevel(getEnv("COACH_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		LLM:       llm.LoadConfig(),
		DBPath:    getEnv("COACH_DB", dbPath),
		PlanFile:  getEnv("COACH_PLAN_FILE", ""),
		ExportDir: getEnv("COACH_EXPORT_DIR", "."),
		LogLevel:  level,
		Sentiment: SentimentConfig{
			Advanced: getEnvBool("COACH_ADVANCED_SENTIMENT", false),
			URL:      getEnv("COACH_SENTIMENT_URL", ""),
			APIKey:   getEnv("COACH_SENTIMENT_API_KEY", ""),
			Model:    getEnv("COACH_SENTIMENT_MODEL", "gpt-4o-mini"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("COACH_DB cannot be empty")
	}
	if c.ExportDir == "" {
		return fmt.Errorf("COACH_EXPORT_DIR cannot be empty")
	}
	if c.LLM.Endpoint != "" && !strings.HasPrefix(c.LLM.Endpoint, "http://") && !strings.HasPrefix(c.LLM.Endpoint, "https://") {
		return fmt.Errorf("COACH_AI_URL must be an http(s) URL, got %q", c.LLM.Endpoint)
	}
	if c.Sentiment.Advanced {
		if c.Sentiment.APIKey == "" {
			return fmt.Errorf("COACH_SENTIMENT_API_KEY is required when COACH_ADVANCED_SENTIMENT is enabled")
		}
		if c.Sentiment.Model == "" {
			return fmt.Errorf("COACH_SENTIMENT_MODEL cannot be empty")
		}
	}
	return nil
}

func defaultDBPath() (string, error) {
	if _, ok := os.LookupEnv("COACH_DB"); ok {
		return "", nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".coach", "coach.db"), nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("COACH_LOG_LEVEL: %w", err)
	}
	return level, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
