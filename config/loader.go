package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds the application configuration
type Config struct {
	TelegramBotToken string
	TelegramChatID   int64

	TokenAddress     string
	PumpPortalAPIKey string

	AIAPIKey  string
	AIBaseURL string
	AIModel   string

	XClientID     string
	XClientSecret string
	XCommunityID  string

	DashboardPort int

	// Data files (relative to working directory unless overridden)
	StateFile   string
	LedgerFile  string
	ActionsFile string
	TokenFile   string
}

// PumpPortalWSURL builds the feed endpoint, attaching the API key when present.
func (c *Config) PumpPortalWSURL() string {
	if c.PumpPortalAPIKey != "" {
		return "wss://pumpportal.fun/api/data?api-key=" + c.PumpPortalAPIKey
	}
	return "wss://pumpportal.fun/api/data"
}

// LoadConfig loads variables from .env and returns a Config struct
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Warn("⚠️  .env file not found. Relying on system environment variables.")
	}

	chatID, _ := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)

	port := 8765
	if v := os.Getenv("DASHBOARD_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			port = p
		}
	}

	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:   chatID,
		TokenAddress:     os.Getenv("TOKEN_ADDRESS"),
		PumpPortalAPIKey: os.Getenv("PUMPPORTAL_API_KEY"),
		AIAPIKey:         os.Getenv("AI_API_KEY"),
		AIBaseURL:        os.Getenv("AI_BASE_URL"),
		AIModel:          os.Getenv("AI_MODEL"),
		XClientID:        os.Getenv("X_CLIENT_ID"),
		XClientSecret:    os.Getenv("X_CLIENT_SECRET"),
		XCommunityID:     os.Getenv("X_COMMUNITY_ID"),
		DashboardPort:    port,
		StateFile:        envOr("STATE_FILE", "monitor_state.json"),
		LedgerFile:       envOr("LEDGER_FILE", "replied_tweets.json"),
		ActionsFile:      envOr("ACTIONS_FILE", "actions.json"),
		TokenFile:        envOr("OAUTH_TOKEN_FILE", "oauth_tokens.json"),
	}

	if cfg.AIModel == "" {
		cfg.AIModel = "gpt-4o"
	}

	if cfg.PumpPortalAPIKey == "" {
		log.Warn("⚠️  PUMPPORTAL_API_KEY not set - only bonding curve trades will be available")
	}

	return cfg
}

// Validate returns an error listing every missing required variable.
func (c *Config) Validate() error {
	checks := []struct {
		name string
		ok   bool
	}{
		{"TELEGRAM_BOT_TOKEN", c.TelegramBotToken != ""},
		{"TELEGRAM_CHAT_ID", c.TelegramChatID != 0},
		{"TOKEN_ADDRESS", c.TokenAddress != ""},
		{"AI_API_KEY", c.AIAPIKey != ""},
		{"X_CLIENT_ID", c.XClientID != ""},
		{"X_CLIENT_SECRET", c.XClientSecret != ""},
		{"X_COMMUNITY_ID", c.XCommunityID != ""},
	}

	var missing []string
	for _, chk := range checks {
		if !chk.ok {
			missing = append(missing, chk.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
