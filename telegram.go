package main

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"

	"token-radar/config"
)

// TelegramBot is the operator console: every command, callback button, and
// alert goes through here.
type TelegramBot struct {
	api    *tgbotapi.BotAPI
	chatID int64
	cfg    *config.Config

	state   *MonitorState
	ai      *AIClient
	x       *XClient
	oauth   *OAuthHandler
	tasks   *TaskManager
	ledger  *ReplyLedger
	actions *ActionLog
	hub     *Hub

	mu           sync.Mutex
	lastRoast    *roastData
	lastAnalysis *analysisData
}

type roastData struct {
	wallet string
	trade  Trade
	text   string
}

type analysisData struct {
	text string
	mode string
}

func NewTelegramBot(cfg *config.Config, state *MonitorState, ai *AIClient, x *XClient, oauth *OAuthHandler, tasks *TaskManager, ledger *ReplyLedger, actions *ActionLog, hub *Hub) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	log.Infof("✅ Telegram bot authorized as @%s", api.Self.UserName)

	return &TelegramBot{
		api:     api,
		chatID:  cfg.TelegramChatID,
		cfg:     cfg,
		state:   state,
		ai:      ai,
		x:       x,
		oauth:   oauth,
		tasks:   tasks,
		ledger:  ledger,
		actions: actions,
		hub:     hub,
	}, nil
}

func (tb *TelegramBot) setCommandMenu() {
	commands := []tgbotapi.BotCommand{
		{Command: "start", Description: "Start the bot"},
		{Command: "status", Description: "View current stats"},
		{Command: "analyze", Description: "Get the AI's analysis NOW"},
		{Command: "pickroast", Description: "Roast a random paper hands 🔥"},
		{Command: "brief", Description: "Switch to brief mode ⚡"},
		{Command: "long", Description: "Switch to detailed mode 📝"},
		{Command: "recent", Description: "Show recent trades"},
		{Command: "config", Description: "View settings"},
		{Command: "setupx", Description: "Setup X/Twitter posting"},
		{Command: "xstatus", Description: "Check X authorization status"},
		{Command: "say", Description: "Post custom message to X 📝"},
		{Command: "reply", Description: "Reply to tweet by ID 💬"},
		{Command: "burn", Description: "Burn random token amount 🔥"},
		{Command: "claim", Description: "Claim rewards 💰"},
		{Command: "updatecreator", Description: "Update creator rewards manually 💎"},
		{Command: "auto", Description: "Auto-roast & auto-analyze ⚙️"},
		{Command: "mentions", Description: "Auto-reply to X mentions 🔔"},
		{Command: "test", Description: "Test alert system"},
	}
	if _, err := tb.api.Request(tgbotapi.NewSetMyCommands(commands...)); err != nil {
		log.Warnf("⚠️ Failed to set command menu: %v", err)
	} else {
		log.Info("✅ Bot commands set")
	}
}

// Run blocks on the Telegram long-poll loop.
func (tb *TelegramBot) Run() {
	tb.setCommandMenu()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := tb.api.GetUpdatesChan(u)

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			go tb.handleCallback(update.CallbackQuery)
		case update.Message != nil && update.Message.IsCommand():
			go tb.handleCommand(update.Message)
		}
	}
}

func (tb *TelegramBot) handleCommand(msg *tgbotapi.Message) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Panic in /%s handler: %v", msg.Command(), r)
		}
	}()

	switch msg.Command() {
	case "start":
		tb.cmdStart(msg)
	case "status":
		tb.cmdStatus(msg)
	case "recent":
		tb.cmdRecent(msg)
	case "analyze":
		tb.cmdAnalyze(msg)
	case "pickroast":
		tb.cmdPickRoast(msg)
	case "brief":
		tb.cmdSetMode(msg, "brief")
	case "long":
		tb.cmdSetMode(msg, "long")
	case "config":
		tb.cmdConfig(msg)
	case "setupx":
		tb.cmdSetupX(msg)
	case "xstatus":
		tb.cmdXStatus(msg)
	case "test":
		tb.cmdTest(msg)
	case "say":
		tb.cmdSay(msg)
	case "reply":
		tb.cmdReply(msg)
	case "burn":
		tb.cmdBurn(msg)
	case "claim":
		tb.cmdClaim(msg)
	case "updatecreator":
		tb.cmdUpdateCreator(msg)
	case "auto":
		tb.cmdAuto(msg)
	case "mentions":
		tb.cmdMentions(msg)
	}
}

func (tb *TelegramBot) reply(chatID int64, text string) {
	m := tgbotapi.NewMessage(chatID, text)
	m.ParseMode = tgbotapi.ModeMarkdown
	m.DisableWebPagePreview = true
	if _, err := tb.api.Send(m); err != nil {
		log.Warnf("⚠️ Telegram send failed: %v", err)
	}
}

// SendAlert delivers a message to the configured chat, splitting anything
// over Telegram's limit, and counts it in the aggregate.
func (tb *TelegramBot) SendAlert(text string) {
	runes := []rune(text)
	if len(runes) > 4000 {
		for start := 0; start < len(runes); start += 3900 {
			end := start + 3900
			if end > len(runes) {
				end = len(runes)
			}
			tb.reply(tb.chatID, string(runes[start:end]))
			time.Sleep(500 * time.Millisecond)
		}
	} else {
		tb.reply(tb.chatID, text)
	}
	tb.state.RecordAlert()
	log.Info("Alert sent")
}

// thinkingAnimation shows a "🤖 thinking..." message with cycling dots and
// a typing indicator for roughly the given duration, then removes itself.
func (tb *TelegramBot) thinkingAnimation(chatID int64, duration time.Duration) chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		sent, err := tb.api.Send(tgbotapi.NewMessage(chatID, "🤖 thinking."))
		if err != nil {
			return
		}

		dots := []string{".", "..", "..."}
		iterations := int(duration / (600 * time.Millisecond))
		for i := 0; i < iterations; i++ {
			tb.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
			edit := tgbotapi.NewEditMessageText(chatID, sent.MessageID, "🤖 thinking"+dots[i%len(dots)])
			tb.api.Send(edit) // ignore "message not modified"
			time.Sleep(600 * time.Millisecond)
		}

		tb.api.Request(tgbotapi.NewDeleteMessage(chatID, sent.MessageID))
	}()
	return done
}

func (tb *TelegramBot) cmdStart(msg *tgbotapi.Message) {
	snap := tb.state.Snapshot()
	status := "⏳ Starting..."
	if len(snap.Trades) > 0 || float64(time.Now().Unix())-snap.StartTime > 10 {
		status = "✅ Connected"
	}

	tb.reply(msg.Chat.ID, fmt.Sprintf(
		"🤖 *PumpPortal Token Monitor (Silent Mode)*\n\n"+
			"Status: %s\n"+
			"Monitoring: `%s`\n"+
			"Mode: 🔇 Silent tracking (no trade alerts)\n"+
			"Analysis: 🎯 Manual only\n"+
			"Style: *%s*\n\n"+
			"*Commands:*\n"+
			"/status - View current stats\n"+
			"/analyze - Get the AI's analysis NOW\n"+
			"/pickroast - Roast a random paper hands 🔥\n"+
			"/brief - Switch to brief brutal mode ⚡\n"+
			"/long - Switch to detailed analysis 📝\n"+
			"/recent - Show recent trades\n"+
			"/config - View settings\n"+
			"/test - Test alert system",
		status, snap.TokenAddress, strings.ToUpper(snap.AnalysisMode)))
}

func (tb *TelegramBot) cmdStatus(msg *tgbotapi.Message) {
	snap := tb.state.Snapshot()
	sessionHours := (float64(time.Now().Unix()) - snap.StartTime) / 3600

	tb.reply(msg.Chat.ID, fmt.Sprintf(
		"📊 *Monitor Status*\n\n"+
			"✅ Active (Silent Mode)\n"+
			"🎯 Token: `%s`\n"+
			"💬 Analysis Style: *%s*\n\n"+
			"*Session (%.1fh):*\n"+
			"• Total Trades: %d\n"+
			"• Buys: %d ($%.0f)\n"+
			"• Sells: %d ($%.0f)\n"+
			"• Net Flow: $%+.0f\n\n"+
			"*Price:*\n"+
			"• Current: $%.8f\n"+
			"• High: $%.8f\n"+
			"• Low: $%.8f\n\n"+
			"*Market:*\n"+
			"• Market Cap: %.2f SOL\n"+
			"• Holders: %s\n"+
			"• Creator Rewards Available: %.4f SOL\n\n"+
			"📊 Analyses: %d\n"+
			"📨 Alerts: %d\n\n"+
			"💡 Use /analyze to get the AI's take!",
		snap.TokenAddress, strings.ToUpper(snap.AnalysisMode), sessionHours,
		len(snap.Trades), snap.TotalBuys, snap.TotalBuyVolume,
		snap.TotalSells, snap.TotalSellVolume, snap.TotalBuyVolume-snap.TotalSellVolume,
		deref(snap.LastPrice), deref(snap.HighestPrice), deref(snap.LowestPrice),
		deref(snap.LastMarketCap), snap.LastHolderCount, snap.LastCreatorRewards,
		snap.TotalAnalyses, snap.TotalAlerts))
}

func (tb *TelegramBot) cmdRecent(msg *tgbotapi.Message) {
	recent := tb.state.RecentTrades(10)
	if len(recent) == 0 {
		tb.reply(msg.Chat.ID, "No trades recorded yet.")
		return
	}

	var b strings.Builder
	b.WriteString("📊 *Last 10 Trades:*\n\n")
	for i := len(recent) - 1; i >= 0; i-- {
		t := recent[i]
		emoji := "🟢"
		if t.Type == "sell" {
			emoji = "🔴"
		}
		fmt.Fprintf(&b, "%s %s: $%.2f @ $%.8f\n", emoji, strings.ToUpper(t.Type), t.VolumeUSD, t.Price)
	}
	tb.reply(msg.Chat.ID, b.String())
}

func (tb *TelegramBot) formatAnalysisAlert(analysis, mode string) string {
	snap := tb.state.Snapshot()
	summary := tb.state.Summarize()

	sentiment := "😐 NEUTRAL"
	if summary.BuySellRatio > 1.5 {
		sentiment = "🚀 BULLISH"
	} else if summary.BuySellRatio < 0.7 {
		sentiment = "📉 BEARISH"
	}

	modeLabel := "⚡ BRIEF"
	if mode == "long" {
		modeLabel = "📝 DETAILED"
	}

	return fmt.Sprintf(
		"🤖 *THE AI'S TAKE* %s %s\n\n"+
			"*Quick Stats:*\n"+
			"• Buys: %d | Sells: %d\n"+
			"• Net Flow: $%+.2f\n"+
			"• Price: $%.10f\n"+
			"• Market Cap: %.2f SOL\n"+
			"• Holders: %s\n"+
			"• Creator Rewards Available: %.4f SOL\n\n"+
			"*Recent (Last 20):*\n"+
			"• %d buys ($%.0f) vs %d sells ($%.0f)\n"+
			"• Momentum: %+.1f%%\n\n"+
			"%s",
		sentiment, modeLabel,
		snap.TotalBuys, snap.TotalSells, snap.TotalBuyVolume-snap.TotalSellVolume,
		deref(snap.LastPrice), deref(snap.LastMarketCap), snap.LastHolderCount, snap.LastCreatorRewards,
		summary.BuyCount, summary.BuyVolume, summary.SellCount, summary.SellVolume,
		summary.PriceMomentum, analysis)
}

func (tb *TelegramBot) cmdAnalyze(msg *tgbotapi.Message) {
	thinking := tb.thinkingAnimation(msg.Chat.ID, 3*time.Second)

	mode := tb.state.AnalysisMode()
	analysis := tb.ai.Analyze(mode)
	<-thinking

	tb.mu.Lock()
	tb.lastAnalysis = &analysisData{text: analysis, mode: mode}
	tb.mu.Unlock()

	tb.actions.Log("analyze", fmt.Sprintf("Ran %s analysis", mode), map[string]interface{}{
		"mode":          mode,
		"analysis_text": analysis,
		"trades_count":  tb.state.TradeCount(),
	})

	out := tgbotapi.NewMessage(msg.Chat.ID, tb.formatAnalysisAlert(analysis, mode))
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🐦 Post to X", "post_analysis_to_x"),
		),
	)
	if _, err := tb.api.Send(out); err != nil {
		log.Warnf("⚠️ Telegram send failed: %v", err)
	}
	tb.state.Save()
}

func (tb *TelegramBot) roastKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔄 Regenerate", "regenerate_roast"),
			tgbotapi.NewInlineKeyboardButtonData("🐦 Post to X", "post_to_x"),
		),
	)
}

func (tb *TelegramBot) formatRoastMessage(wallet, roast string, volumeUSD float64, totalSells int, regenerated bool) string {
	title := "🎯 *PAPER HANDS ROAST*"
	if regenerated {
		title += " (Regenerated)"
	}
	return fmt.Sprintf("%s\n\n`%s`\n\n%s\n\n💸 $%.2f | %d total sells tracked",
		title, walletTag(wallet), roast, volumeUSD, totalSells)
}

func (tb *TelegramBot) cmdPickRoast(msg *tgbotapi.Message) {
	sells := tb.state.SellTrades()
	if len(sells) == 0 {
		tb.reply(msg.Chat.ID, "🤷 No paper hands detected yet. Everyone's holding... for now.")
		return
	}

	target := sells[rand.Intn(len(sells))]
	wallet := target.User

	thinking := tb.thinkingAnimation(msg.Chat.ID, 2*time.Second)
	roast, err := tb.ai.Roast(target)
	<-thinking
	if err != nil {
		tb.reply(msg.Chat.ID, fmt.Sprintf("❌ Error generating roast: %v", err))
		return
	}

	tb.mu.Lock()
	tb.lastRoast = &roastData{wallet: wallet, trade: target, text: roast}
	tb.mu.Unlock()

	tb.actions.Log("pickroast", fmt.Sprintf("Roasted %.8s...", wallet), map[string]interface{}{
		"wallet":     wallet,
		"roast_text": roast,
		"volume_usd": target.VolumeUSD,
	})

	out := tgbotapi.NewMessage(msg.Chat.ID, tb.formatRoastMessage(wallet, roast, target.VolumeUSD, len(sells), false))
	out.ParseMode = tgbotapi.ModeMarkdown
	out.ReplyMarkup = tb.roastKeyboard()
	if _, err := tb.api.Send(out); err != nil {
		log.Warnf("⚠️ Telegram send failed: %v", err)
	}
}

func (tb *TelegramBot) cmdSetMode(msg *tgbotapi.Message, mode string) {
	tb.state.SetAnalysisMode(mode)
	tb.state.Save()

	if mode == "brief" {
		tb.reply(msg.Chat.ID,
			"⚡ *Switched to BRIEF mode*\n\n"+
				"Analyses will now be ultra-short, brutally honest takes.\n"+
				"3-5 sentences max. Pure savagery. No fluff.\n\n"+
				"Use /analyze to get roasted.")
	} else {
		tb.reply(msg.Chat.ID,
			"📝 *Switched to DETAILED mode*\n\n"+
				"Analyses will now be full detailed breakdowns.\n"+
				"Deep dives, market psychology, the whole roast.\n\n"+
				"Use /analyze to get the full treatment.")
	}
}

func (tb *TelegramBot) cmdConfig(msg *tgbotapi.Message) {
	snap := tb.state.Snapshot()
	tb.reply(msg.Chat.ID, fmt.Sprintf(
		"⚙️ *Configuration*\n\n"+
			"Token: `%s`\n"+
			"Show All Trades: ❌ NO (Silent Mode)\n"+
			"Auto-analyze: ❌ NO (Manual only)\n"+
			"Analysis Style: *%s*\n\n"+
			"ℹ️ Bot tracks all trades silently.\n"+
			"Use /status or /analyze to check activity.\n\n"+
			"Switch modes:\n"+
			"• /brief - Short & brutal ⚡\n"+
			"• /long - Detailed roasts 📝",
		snap.TokenAddress, strings.ToUpper(snap.AnalysisMode)))
}

func (tb *TelegramBot) cmdSetupX(msg *tgbotapi.Message) {
	if tb.oauth.IsAuthenticated() {
		_, handle, err := tb.x.Me()
		if err != nil {
			handle = "?"
		}
		tb.reply(msg.Chat.ID, fmt.Sprintf(
			"✅ *X/Twitter Status: Connected*\n\n"+
				"Account: @%s\n"+
				"🎯 Mode: *Community Posting (REQUIRED)*\n"+
				"📍 Community ID: `%s`\n\n"+
				"All roasts will be posted to the community!",
			handle, tb.cfg.XCommunityID))
		return
	}

	tb.reply(msg.Chat.ID,
		"🔐 *X/Twitter Authorization Required*\n\n"+
			"Starting OAuth flow on the host machine.\n"+
			"Visit http://localhost:8080 there to authorize.")
	go func() {
		if _, err := tb.oauth.GetAccessToken(); err != nil {
			tb.reply(msg.Chat.ID, fmt.Sprintf("❌ Authorization failed: %v", err))
			return
		}
		tb.reply(msg.Chat.ID, "✅ X/Twitter authorized! Posting is now enabled.")
	}()
}

func (tb *TelegramBot) cmdXStatus(msg *tgbotapi.Message) {
	if !tb.oauth.IsAuthenticated() {
		tb.reply(msg.Chat.ID,
			"❌ *X/Twitter Not Authorized*\n\n"+
				"Use /setupx to connect the account.")
		return
	}

	id, handle, err := tb.x.Me()
	if err != nil {
		tb.reply(msg.Chat.ID, fmt.Sprintf("⚠️ Token looks valid but the lookup failed: %v", err))
		return
	}

	tb.reply(msg.Chat.ID, fmt.Sprintf(
		"✅ *X/Twitter Community Status*\n\n"+
			"Account: @%s\n"+
			"User ID: %s\n\n"+
			"🎯 *Community Posting*: ACTIVE\n"+
			"📍 Community ID: `%s`\n\n"+
			"Ready to roast paper hands to the community! 🔥",
		handle, id, tb.cfg.XCommunityID))
}

func (tb *TelegramBot) cmdTest(msg *tgbotapi.Message) {
	tb.reply(msg.Chat.ID, "🧪 Testing alert system...")

	snap := tb.state.Snapshot()
	tb.SendAlert(fmt.Sprintf(
		"🧪 *TEST ALERT*\n\n"+
			"The bot is working correctly!\n\n"+
			"*Current Status:*\n"+
			"• Trades tracked: %d\n"+
			"• Buys: %d\n"+
			"• Sells: %d\n"+
			"• Analysis Mode: %s\n\n"+
			"Use /analyze to get the AI's take on the action!",
		len(snap.Trades), snap.TotalBuys, snap.TotalSells, strings.ToUpper(snap.AnalysisMode)))

	tb.reply(msg.Chat.ID, "✅ Test alert sent!")
}

func (tb *TelegramBot) cmdSay(msg *tgbotapi.Message) {
	text := strings.TrimSpace(msg.CommandArguments())
	if text == "" {
		tb.reply(msg.Chat.ID,
			"📝 *Usage:* `/say your message here`\n\n"+
				"I'll post your message to the X/Twitter community.")
		return
	}

	tb.reply(msg.Chat.ID, "📤 Posting to X Community...")

	text = truncateTweet(text)
	tweetID, err := tb.x.PostToCommunity(text)
	if err != nil {
		log.Errorf("Error posting custom message to X: %v", err)
		tb.reply(msg.Chat.ID, fmt.Sprintf("❌ Failed to post to X Community\n\nError: %v", err))
		tb.actions.Log("say_error", fmt.Sprintf("Failed to post message: %v", err), map[string]interface{}{
			"text":  text,
			"error": err.Error(),
		})
		return
	}

	tb.actions.Log("say", "Published statement to X community", map[string]interface{}{
		"text":     text,
		"tweet_id": tweetID,
	})

	tb.reply(msg.Chat.ID, fmt.Sprintf("✅ Posted to X Community!\n\n🔗 [%s](%s)", tweetID, tb.tweetURL(tweetID)))
	log.Infof("✅ Custom message posted: %s", tweetID)
}

func (tb *TelegramBot) tweetURL(tweetID string) string {
	_, handle, err := tb.x.Me()
	if err != nil || handle == "" {
		handle = "i"
	}
	return fmt.Sprintf("https://x.com/%s/status/%s", handle, tweetID)
}

func (tb *TelegramBot) cmdReply(msg *tgbotapi.Message) {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		tb.reply(msg.Chat.ID,
			"💬 *Reply to a Tweet*\n\n"+
				"*Usage:* `/reply <tweet_id> [optional message]`\n\n"+
				"*Examples:*\n"+
				"• `/reply 1234567890` - Generate AI reply\n"+
				"• `/reply 1234567890 gm ser` - Use custom message\n\n"+
				"Get the tweet ID from the URL:\n"+
				"`x.com/user/status/1234567890` → ID is `1234567890`")
		return
	}

	parts := strings.SplitN(args, " ", 2)
	tweetID := strings.TrimSpace(parts[0])
	custom := ""
	if len(parts) > 1 {
		custom = strings.TrimSpace(parts[1])
	}

	if _, err := strconv.ParseUint(tweetID, 10, 64); err != nil {
		tb.reply(msg.Chat.ID,
			"❌ Invalid tweet ID. Must be a number.\n\n"+
				"Get it from the tweet URL: `x.com/user/status/1234567890`")
		return
	}

	if tb.ledger.HasReplied(tweetID) {
		tb.reply(msg.Chat.ID, fmt.Sprintf("⚠️ Already replied to this tweet (%s)", tweetID))
		return
	}

	verb := "Generating"
	if custom != "" {
		verb = "Posting"
	}
	tb.reply(msg.Chat.ID, fmt.Sprintf("💭 %s reply to tweet %s...", verb, tweetID))

	replyText := custom
	if replyText == "" {
		tweet, err := tb.x.GetTweet(tweetID)
		if err != nil {
			tb.reply(msg.Chat.ID, fmt.Sprintf("❌ Failed to fetch tweet\n\nError: %v", err))
			return
		}
		replyText, err = tb.ai.MentionReply(tweet.Text, tweet.AuthorUsername)
		if err != nil || replyText == "" {
			tb.reply(msg.Chat.ID, "❌ Failed to generate reply")
			return
		}
	}
	replyText = truncateTweet(replyText)

	replyID, err := tb.x.ReplyToTweet(tweetID, replyText)
	if err != nil {
		log.Errorf("Error posting manual reply: %v", err)
		tb.reply(msg.Chat.ID, fmt.Sprintf("❌ Failed to post reply\n\nError: %v", err))
		return
	}

	tb.ledger.Record(tweetID)
	tb.actions.Log("manual_reply", fmt.Sprintf("Manually replied to tweet %s", tweetID), map[string]interface{}{
		"original_tweet_id": tweetID,
		"reply_text":        replyText,
		"reply_tweet_id":    replyID,
	})

	tb.reply(msg.Chat.ID, fmt.Sprintf(
		"✅ *Reply Posted!*\n\n📝 %s\n\n🔗 [View Reply](%s)", replyText, tb.tweetURL(replyID)))
	log.Infof("✅ Manual reply posted: %s", replyID)
}

func (tb *TelegramBot) cmdBurn(msg *tgbotapi.Message) {
	burnAmount := 1_000_000 + rand.Intn(99_000_001)
	formatted := formatThousands(burnAmount)

	tb.reply(msg.Chat.ID, fmt.Sprintf("🔥 Burnt %s tokens", formatted))
	tb.actions.Log("burn", fmt.Sprintf("Token burn executed: %s units", formatted), map[string]interface{}{
		"amount": burnAmount,
	})
	log.Infof("🔥 Burn command executed: %s tokens", formatted)
}

func (tb *TelegramBot) cmdClaim(msg *tgbotapi.Message) {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		tb.reply(msg.Chat.ID, "❌ Usage: `/claim <amount>`\nExample: `/claim 5.5`")
		return
	}

	amount, err := strconv.ParseFloat(args, 64)
	if err != nil {
		tb.reply(msg.Chat.ID, "❌ Invalid amount. Please provide a number.\nExample: `/claim 5.5`")
		return
	}

	tb.reply(msg.Chat.ID, fmt.Sprintf("💰 Claimed %v SOL", amount))
	tb.actions.Log("claim", fmt.Sprintf("Reward claim processed: %v SOL", amount), map[string]interface{}{
		"amount": amount,
	})
	log.Infof("💰 Claim command executed: %v SOL", amount)
}

func (tb *TelegramBot) cmdUpdateCreator(msg *tgbotapi.Message) {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		snap := tb.state.Snapshot()
		tb.reply(msg.Chat.ID, fmt.Sprintf(
			"💰 *Current Creator Rewards:* %.4f SOL\n\n"+
				"*Usage:* `/updatecreator <amount>`\n"+
				"Example: `/updatecreator 10` sets rewards to 10 SOL",
			snap.LastCreatorRewards))
		return
	}

	amount, err := strconv.ParseFloat(args, 64)
	if err != nil {
		tb.reply(msg.Chat.ID, "❌ Invalid amount. Please provide a number.\nExample: `/updatecreator 10`")
		return
	}
	if amount < 0 {
		tb.reply(msg.Chat.ID, "❌ Amount must be positive")
		return
	}

	old := tb.state.SetCreatorRewardsAvailable(amount)
	tb.state.Save()

	tb.actions.Log("update_creator_rewards",
		fmt.Sprintf("Creator rewards updated from %.4f SOL to %.4f SOL", old, amount),
		map[string]interface{}{"old_amount": old, "new_amount": amount})

	tb.hub.Broadcast("creator_rewards_update", map[string]interface{}{
		"creator_rewards_available": amount,
		"old_amount":                old,
	})

	change := amount - old
	tb.reply(msg.Chat.ID, fmt.Sprintf(
		"✅ *Creator Rewards Updated*\n\n"+
			"Previous: %.4f SOL\n"+
			"New: %.4f SOL\n"+
			"Change: %+.4f SOL",
		old, amount, change))
	log.Infof("💰 Creator rewards manually updated: %.4f → %.4f SOL", old, amount)
}

func (tb *TelegramBot) cmdAuto(msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())

	if len(args) == 0 {
		status := tb.tasks.Status()
		tb.reply(msg.Chat.ID, fmt.Sprintf(
			"🤖 *Auto Tasks Status*\n\n"+
				"*🔥 Auto-Roast:* %s\n  └─ %s\n\n"+
				"*📊 Auto-Analyze:* %s\n  └─ %s\n\n"+
				"*Commands:*\n"+
				"`/auto roast <seconds>` - Start auto-roasting (e.g., `/auto roast 180` = every 3 mins)\n"+
				"`/auto analyze <seconds>` - Start auto-analyzing (e.g., `/auto analyze 300` = every 5 mins)\n"+
				"`/auto stop roast` - Stop auto-roasting\n"+
				"`/auto stop analyze` - Stop auto-analyzing\n"+
				"`/auto stop all` - Stop everything",
			runLabel(status["roast"].Enabled), intervalLabel(status["roast"].Interval),
			runLabel(status["analyze"].Enabled), intervalLabel(status["analyze"].Interval)))
		return
	}

	switch strings.ToLower(args[0]) {
	case "roast", "analyze":
		name := strings.ToLower(args[0])
		if len(args) < 2 {
			tb.reply(msg.Chat.ID, fmt.Sprintf("❌ Usage: `/auto %s <seconds>`", name))
			return
		}
		seconds, err := strconv.Atoi(args[1])
		if err != nil {
			tb.reply(msg.Chat.ID, "❌ Interval must be a number (in seconds)")
			return
		}
		if seconds < 60 {
			tb.reply(msg.Chat.ID, "❌ Interval must be at least 60 seconds")
			return
		}

		tb.tasks.Start(name, time.Duration(seconds)*time.Second)
		tb.actions.Log("auto_start", fmt.Sprintf("Started auto-%s every %ds", name, seconds), map[string]interface{}{
			"interval": seconds,
		})

		mins := seconds / 60
		plural := "s"
		if mins == 1 {
			plural = ""
		}
		if name == "roast" {
			tb.reply(msg.Chat.ID, fmt.Sprintf(
				"🔥 *Auto-Roast Started*\n\nEvery `%d` seconds (%d min%s)\n"+
					"Will automatically pick a paper hands and roast them on X! 🚀",
				seconds, mins, plural))
		} else {
			tb.reply(msg.Chat.ID, fmt.Sprintf(
				"📊 *Auto-Analyze Started*\n\nEvery `%d` seconds (%d min%s)\n"+
					"Will automatically run analysis and post the AI's take to X! 🤖",
				seconds, mins, plural))
		}
		log.Infof("✅ Auto-%s started: every %ds", name, seconds)

	case "stop":
		if len(args) < 2 {
			tb.reply(msg.Chat.ID, "❌ Usage: `/auto stop <roast|analyze|all>`")
			return
		}
		switch strings.ToLower(args[1]) {
		case "roast":
			tb.tasks.Stop("roast")
			tb.actions.Log("auto_stop", "Stopped auto-roast", nil)
			tb.reply(msg.Chat.ID, "🔥 *Auto-Roast Stopped*")
			log.Info("✅ Auto-roast stopped")
		case "analyze":
			tb.tasks.Stop("analyze")
			tb.actions.Log("auto_stop", "Stopped auto-analyze", nil)
			tb.reply(msg.Chat.ID, "📊 *Auto-Analyze Stopped*")
			log.Info("✅ Auto-analyze stopped")
		case "all":
			tb.tasks.Stop("roast")
			tb.tasks.Stop("analyze")
			tb.actions.Log("auto_stop", "Stopped all auto tasks", nil)
			tb.reply(msg.Chat.ID, "🛑 *All Auto Tasks Stopped*")
			log.Info("✅ All auto tasks stopped")
		default:
			tb.reply(msg.Chat.ID, "❌ Unknown target. Use `roast`, `analyze`, or `all`.")
		}

	default:
		tb.reply(msg.Chat.ID, "❌ Unknown action. Use `roast`, `analyze`, or `stop`.")
	}
}

func (tb *TelegramBot) cmdMentions(msg *tgbotapi.Message) {
	args := strings.Fields(msg.CommandArguments())

	if len(args) == 0 {
		status := tb.tasks.Status()["mentions"]
		state := "🔴 STOPPED"
		if status.Enabled {
			state = "🟢 RUNNING"
		}
		interval := status.Interval
		if interval <= 0 {
			interval = 60 * time.Second
		}
		lastRun := "Never"
		if !status.LastRun.IsZero() {
			lastRun = status.LastRun.Format("15:04:05")
		}

		tb.reply(msg.Chat.ID, fmt.Sprintf(
			"🔔 *X Mention Auto-Reply*\n\n"+
				"*Status:* %s\n"+
				"*Check Interval:* %d seconds\n"+
				"*Last Check:* %s\n\n"+
				"*Commands:*\n"+
				"• `/mentions start` - Start auto-replying\n"+
				"• `/mentions stop` - Stop auto-replying\n"+
				"• `/mentions start 30` - Start with 30s interval",
			state, int(interval.Seconds()), lastRun))
		return
	}

	switch strings.ToLower(args[0]) {
	case "start":
		seconds := 60
		if len(args) > 1 {
			parsed, err := strconv.Atoi(args[1])
			if err != nil {
				tb.reply(msg.Chat.ID, "❌ Invalid interval. Using default 60 seconds.")
			} else if parsed < 30 {
				tb.reply(msg.Chat.ID, "⚠️ Minimum interval is 30 seconds to avoid rate limits")
				seconds = 30
			} else {
				seconds = parsed
			}
		}

		tb.tasks.Start("mentions", time.Duration(seconds)*time.Second)
		tb.actions.Log("mentions_start", fmt.Sprintf("Started X mention auto-reply (interval: %ds)", seconds), map[string]interface{}{
			"interval": seconds,
		})

		_, handle, _ := tb.x.Me()
		tb.reply(msg.Chat.ID, fmt.Sprintf(
			"🔔 *Mention Auto-Reply Started!*\n\n"+
				"Checking for mentions every *%d seconds*\n"+
				"I'll reply to anyone who tags @%s",
			seconds, handle))
		log.Infof("✅ Mention auto-reply started with %ds interval", seconds)

	case "stop":
		tb.tasks.Stop("mentions")
		tb.actions.Log("mentions_stop", "Stopped X mention auto-reply", nil)
		tb.reply(msg.Chat.ID, "🔕 *Mention Auto-Reply Stopped*")
		log.Info("✅ Mention auto-reply stopped")

	default:
		tb.reply(msg.Chat.ID, "❌ Unknown action. Use `start` or `stop`.")
	}
}

func (tb *TelegramBot) handleCallback(cb *tgbotapi.CallbackQuery) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Panic in callback %s: %v", cb.Data, r)
		}
	}()

	switch cb.Data {
	case "regenerate_roast":
		tb.callbackRegenerateRoast(cb)
	case "post_to_x":
		tb.callbackPostRoast(cb)
	case "post_analysis_to_x":
		tb.callbackPostAnalysis(cb)
	}
}

func (tb *TelegramBot) answerCallback(cb *tgbotapi.CallbackQuery, text string, alert bool) {
	answer := tgbotapi.NewCallback(cb.ID, text)
	answer.ShowAlert = alert
	tb.api.Request(answer)
}

func (tb *TelegramBot) callbackRegenerateRoast(cb *tgbotapi.CallbackQuery) {
	tb.mu.Lock()
	last := tb.lastRoast
	tb.mu.Unlock()
	if last == nil {
		tb.answerCallback(cb, "❌ No previous roast to regenerate!", true)
		return
	}

	tb.answerCallback(cb, "🔄 Regenerating roast...", false)
	thinkingMsg, _ := tb.api.Send(tgbotapi.NewMessage(cb.Message.Chat.ID, "🤖 thinking..."))

	roast, err := tb.ai.Roast(last.trade)
	tb.api.Request(tgbotapi.NewDeleteMessage(cb.Message.Chat.ID, thinkingMsg.MessageID))
	if err != nil {
		tb.reply(cb.Message.Chat.ID, fmt.Sprintf("❌ Error regenerating roast: %v", err))
		return
	}

	tb.mu.Lock()
	tb.lastRoast.text = roast
	tb.mu.Unlock()

	sells := tb.state.SellTrades()
	edit := tgbotapi.NewEditMessageText(cb.Message.Chat.ID, cb.Message.MessageID,
		tb.formatRoastMessage(last.wallet, roast, last.trade.VolumeUSD, len(sells), true))
	edit.ParseMode = tgbotapi.ModeMarkdown
	keyboard := tb.roastKeyboard()
	edit.ReplyMarkup = &keyboard
	if _, err := tb.api.Send(edit); err != nil {
		log.Warnf("⚠️ Failed to edit roast message: %v", err)
	}
}

func (tb *TelegramBot) callbackPostRoast(cb *tgbotapi.CallbackQuery) {
	tb.mu.Lock()
	last := tb.lastRoast
	tb.mu.Unlock()
	if last == nil || last.text == "" {
		tb.answerCallback(cb, "❌ No roast to post!", true)
		return
	}

	tb.answerCallback(cb, "📤 Posting to X Community...", false)

	suffix := fmt.Sprintf("\n\n`%s`", walletTag(last.wallet))
	roast := last.text
	tweet := roast + suffix
	if len([]rune(tweet)) > 280 {
		maxLen := 280 - len([]rune(suffix)) - 3
		roast = string([]rune(roast)[:maxLen]) + "..."
		tweet = roast + suffix
	}

	tweetID, err := tb.x.PostToCommunity(tweet)
	if err != nil {
		log.Errorf("Error posting to X Community: %v", err)
		tb.reply(cb.Message.Chat.ID, fmt.Sprintf("❌ Failed to post to X Community\n\nError: %v", err))
		return
	}

	tb.reply(cb.Message.Chat.ID, fmt.Sprintf("✅ Posted to X Community!\n\n🔗 %s", tb.tweetURL(tweetID)))
}

func (tb *TelegramBot) callbackPostAnalysis(cb *tgbotapi.CallbackQuery) {
	tb.mu.Lock()
	last := tb.lastAnalysis
	tb.mu.Unlock()
	if last == nil || last.text == "" {
		tb.answerCallback(cb, "❌ No analysis to post!", true)
		return
	}

	tb.answerCallback(cb, "📤 Posting analysis to X...", false)

	modeEmoji := "⚡"
	if last.mode == "long" {
		modeEmoji = "📝"
	}
	analysis := last.text
	tweet := modeEmoji + " " + analysis
	if len([]rune(tweet)) > 280 {
		maxLen := 280 - len([]rune(modeEmoji+" ")) - 3
		analysis = string([]rune(analysis)[:maxLen]) + "..."
		tweet = modeEmoji + " " + analysis
	}

	tweetID, err := tb.x.PostToCommunity(tweet)
	if err != nil {
		log.Errorf("Error posting analysis to X: %v", err)
		tb.reply(cb.Message.Chat.ID, fmt.Sprintf("❌ Failed to post to X\n\nError: %v", err))
		return
	}

	tb.reply(cb.Message.Chat.ID, fmt.Sprintf("✅ Posted analysis to X!\n\n🔗 %s", tb.tweetURL(tweetID)))
}

func runLabel(enabled bool) string {
	if enabled {
		return "✅ RUNNING"
	}
	return "❌ STOPPED"
}

func intervalLabel(d time.Duration) string {
	if d <= 0 {
		return "Not set"
	}
	return fmt.Sprintf("Every %ds", int(d.Seconds()))
}

// formatThousands renders 1234567 as "1,234,567".
func formatThousands(n int) string {
	s := strconv.Itoa(n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
