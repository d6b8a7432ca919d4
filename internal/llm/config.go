package llm

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the chat transport.
type Config struct {
	LogCalls    bool
	Endpoint    string
	APIKey      string
	Model       string
	Temperature float64
	Stream      bool
	TimeoutMs   int // 0 disables the client-side timeout
	MaxRetries  int
	RetryDelays []time.Duration
}

// DefaultRetryDelays are the waits between retried attempts.
var DefaultRetryDelays = []time.Duration{
	250 * time.Millisecond,
	500 * time.Millisecond,
	1000 * time.Millisecond,
}

// DefaultConfig returns a Config with sensible defaults. The endpoint is
// empty until COACH_AI_URL is set.
func DefaultConfig() Config {
	return Config{
		Model:       "llama-3.1-8b-instant",
		Temperature: 0.3,
		Stream:      true,
		MaxRetries:  1,
		RetryDelays: DefaultRetryDelays,
	}
}

// LoadConfig reads chat configuration from environment variables,
// falling back to defaults for any unset values.
func LoadConfig() Config {
	cfg := DefaultConfig()

	if v := os.Getenv("COACH_LLM_LOG_CALLS"); v != "" {
		cfg.LogCalls, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("COACH_AI_URL"); v != "" {
		cfg.Endpoint = strings.TrimRight(v, "/")
	}
	cfg.APIKey = os.Getenv("COACH_AI_API_KEY")
	if v := os.Getenv("COACH_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("COACH_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 2 {
			cfg.Temperature = f
		}
	}
	if v := os.Getenv("COACH_STREAM"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Stream = b
		}
	}
	if v := os.Getenv("COACH_TIMEOUT_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.TimeoutMs = n
		}
	}
	if v := os.Getenv("COACH_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}

	return cfg
}

// retryDelay returns the wait before retry number attempt (0-based).
func (c Config) retryDelay(attempt int) time.Duration {
	if len(c.RetryDelays) == 0 {
		return 0
	}
	if attempt >= len(c.RetryDelays) {
		return c.RetryDelays[len(c.RetryDelays)-1]
	}
	return c.RetryDelays[attempt]
}
