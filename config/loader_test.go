package config

import (
	"strings"
	"testing"
)

func fullConfig() *Config {
	return &Config{
		TelegramBotToken: "token",
		TelegramChatID:   12345,
		TokenAddress:     "So1anaTokenAddress",
		AIAPIKey:         "key",
		XClientID:        "id",
		XClientSecret:    "secret",
		XCommunityID:     "community",
	}
}

func TestValidateComplete(t *testing.T) {
	if err := fullConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateListsAllMissing(t *testing.T) {
	cfg := fullConfig()
	cfg.TelegramBotToken = ""
	cfg.AIAPIKey = ""
	cfg.XCommunityID = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, name := range []string{"TELEGRAM_BOT_TOKEN", "AI_API_KEY", "X_COMMUNITY_ID"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error should name %s: %v", name, err)
		}
	}
	if strings.Contains(err.Error(), "TOKEN_ADDRESS") {
		t.Errorf("error should not name present variables: %v", err)
	}
}

func TestPumpPortalWSURL(t *testing.T) {
	cfg := &Config{}
	if got := cfg.PumpPortalWSURL(); got != "wss://pumpportal.fun/api/data" {
		t.Errorf("unexpected URL without key: %s", got)
	}

	cfg.PumpPortalAPIKey = "abc123"
	if got := cfg.PumpPortalWSURL(); got != "wss://pumpportal.fun/api/data?api-key=abc123" {
		t.Errorf("unexpected URL with key: %s", got)
	}
}
