package main

import (
	"fmt"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"token-radar/config"
)

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	log.Info(strings.Repeat("=", 60))
	log.Info("PumpPortal Token Monitor Starting (Silent Mode)...")
	log.Infof("Token: %s", cfg.TokenAddress)
	log.Info("Mode: Silent tracking - no trade alerts")
	log.Info("Analysis: Manual only - use /analyze command")
	log.Info(strings.Repeat("=", 60))

	state := LoadState(cfg.StateFile, cfg.TokenAddress)
	log.Infof("Style: %s", strings.ToUpper(state.AnalysisMode()))

	ledger := NewReplyLedger(cfg.LedgerFile)
	actions := NewActionLog(cfg.ActionsFile)
	push := NewPushService()
	if push != nil {
		go push.StartWorker()
	}

	hub := NewHub(state, actions)
	actions.Attach(hub, push)

	ai := NewAIClient(cfg, state)
	oauth := NewOAuthHandler(cfg.XClientID, cfg.XClientSecret, cfg.TokenFile)
	x := NewXClient(oauth, cfg.XCommunityID)

	metrics := NewMetricsFetcher(cfg.TokenAddress, state, hub)
	go metrics.StartRefresher()
	log.Info("✅ Periodic metrics refresh started")

	tasks := NewTaskManager(state, ai, x, ledger, actions)

	bot, err := NewTelegramBot(cfg, state, ai, x, oauth, tasks, ledger, actions, hub)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	tasks.SetNotifier(bot.SendAlert)

	processor := NewTradeProcessor(state, metrics, hub, ai)
	feed := NewFeedListener(cfg.PumpPortalWSURL(), cfg.TokenAddress, processor, func() {
		bot.SendAlert(fmt.Sprintf(
			"🟢 *Monitor Connected (Silent Mode)*\n\n"+
				"Watching: `%s`\n"+
				"Mode: 🔇 Silent tracking (no trade alerts)\n"+
				"Analysis: 🎯 Manual only (use /analyze)\n"+
				"Style: %s\n\n"+
				"✅ Monitoring started...\n"+
				"Use /status to check stats or /analyze for the AI's take.",
			cfg.TokenAddress, strings.ToUpper(state.AnalysisMode())))
	})
	go feed.Start()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.HandleWebSocket)
	mux.HandleFunc("/health", healthHandler(state, hub))
	go func() {
		addr := fmt.Sprintf(":%d", cfg.DashboardPort)
		log.Infof("🌐 Dashboard WebSocket server on %s", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Errorf("Dashboard server error: %v", err)
		}
	}()

	// Telegram long-poll is the foreground loop.
	bot.Run()
}
