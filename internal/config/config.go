package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the bridge.
type Config struct {
	Port string
	Env  string

	// ChatDBPath is the foreign Messages database. The bridge only ever
	// opens it read-only.
	ChatDBPath string
	// LocalDBPath is the bridge's own state database.
	LocalDBPath string

	PollInterval time.Duration
	// WatchChatDB wakes the poller on chat.db file writes instead of
	// waiting out the full interval.
	WatchChatDB bool

	// HistoryLimit caps conversation history fetches from the local store.
	HistoryLimit int
	// MessageFetchLimit caps the GET /messages response.
	MessageFetchLimit int

	SendRetryCount int
	SendRetryDelay time.Duration

	EnableTypingIndicator bool
}

// Load reads configuration from environment variables. In development it
// loads from a .env file if present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                  getEnv("PORT", "8765"),
		Env:                   getEnv("ENV", "development"),
		ChatDBPath:            getEnv("CHAT_DB_PATH", defaultChatDBPath()),
		LocalDBPath:           getEnv("LOCAL_DB_PATH", "conversation_state.db"),
		PollInterval:          getEnvDuration("POLL_INTERVAL", 500*time.Millisecond),
		WatchChatDB:           getEnv("WATCH_CHAT_DB", "false") == "true",
		HistoryLimit:          getEnvInt("MESSAGE_HISTORY_LIMIT", 20),
		MessageFetchLimit:     getEnvInt("MESSAGE_FETCH_LIMIT", 100),
		SendRetryCount:        getEnvInt("SEND_RETRY_COUNT", 3),
		SendRetryDelay:        getEnvDuration("SEND_RETRY_DELAY", time.Second),
		EnableTypingIndicator: getEnv("ENABLE_TYPING_INDICATOR", "true") == "true",
	}

	return cfg
}

// Validate checks configuration invariants before startup.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("MESSAGE_HISTORY_LIMIT must be non-negative, got %d", c.HistoryLimit)
	}
	if c.SendRetryCount < 1 {
		return fmt.Errorf("SEND_RETRY_COUNT must be at least 1, got %d", c.SendRetryCount)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func defaultChatDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "chat.db"
	}
	return filepath.Join(home, "Library", "Messages", "chat.db")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvDuration accepts either a Go duration string ("500ms") or a bare
// float number of seconds ("0.5"), the format the original deployments used.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.ParseFloat(value, 64); err == nil {
		return time.Duration(secs * float64(time.Second))
	}
	return defaultValue
}
