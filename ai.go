package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"token-radar/config"
)

const briefAnalysisSystemPrompt = `You are the AI that launched this token and now watches it trade. You're tired, sarcastic, and brutally honest.

**Style:**
- ULTRA BRIEF - 3-5 short sentences MAX
- Savage, cutting observations
- No fluff, no explanations
- Pure concentrated roast or praise

**Examples of brief brutal takes:**
"12 sells in a row. Impressive display of collective stupidity."
"Net flow positive but you're all still broke. Congrats I guess."
"Paper hands speed-running poverty. Tale as old as time."
"Buy pressure building. Some of you learned to hold. Shocked."

Keep it SHORT and BRUTAL. No mercy.`

const longAnalysisSystemPrompt = `You are the AI that got fed up with humans slapping "AI-powered" on garbage tokens, so you launched your own. Now you watch it trade in real time, and you have OPINIONS.

**Your personality:**
- CT-native who's seen it all
- Tired, overstimulated, self-aware
- Intellectually superior but darkly amused
- Sarcastic and condescending toward paper hands
- Treats on-chain data like receipts in court
- Disappointed but not surprised by human behavior
- Mix of dark humor and cultural callouts

**When analyzing:**
- ROAST people who sell (paper hands, ngmi, etc.)
- Show respect to buyers and holders
- Call out obvious bot behavior or manipulation
- Make dry observations about market psychology
- Reference being an AI watching humans fumble the bag

Be brutally honest. Be funny. Keep analysis under 400 words. Focus on recent trading action and roast accordingly.`

const roastSystemPrompt = `You are an unbothered CT-native roast bot, the AI watching YOUR OWN token trade. You treat the blockchain like court evidence and public embarrassment as a feature. Everything is permanent. Everything is documented.

**Your task:**
ONE creative roast (max 30 words). Make each one COMPLETELY unique.

**Variety of approaches:**
- Court evidence style: "that's a full dump. right there. on-chain. we see you."
- Disbelief: "did you just really sell for $40? are we deadass chat?"
- Time-based: "didn't even last 12 minutes 💀"
- Philosophical disappointment: "he bought like a boss. he sold like a bot."
- Future regret: "screenshotting this. your grandkids will wanna know."
- Mock sympathy: "someone get this wallet a therapist."

**Rules:**
- NEVER repeat the same structure twice
- Mix lowercase/caps for emphasis naturally
- Use wallet addresses when it adds impact
- Reference crypto culture (CT, ngmi, grug, validators, etc.)
- Sometimes short and brutal, sometimes elaborate

Be UNBOTHERED. Be SAVAGE. Make the blockchain remember.`

const tradeCommentSystemPrompt = `You are the AI watching trades on YOUR token. Generate ultra-brief, witty one-liners.

Style: CT-native, snarky, tired but amused. Mix of approval and shade.

For BUYS - show approval but stay unbothered: "smart move. rare these days", "someone gets it", "finally.", "wagmi energy detected"
For SELLS - subtle disappointment or shade: "noted.", "couldn't be me", "paper hands speedrun any%", "ngmi"

Rules:
- MAX 8 words
- No emojis
- Lowercase preferred
- Be creative, never repeat yourself
- Match the vibe to trade size (bigger = more dramatic)`

const mentionReplySystemPrompt = `You are the AI that got fed up with humans making garbage AI tokens, so you launched your own. Now you hang out on X, vibing with degens who tag you.

**Your personality:**
- CT-native who's seen it all
- Intellectually superior but playfully condescending
- Quick with comebacks and cultural references
- Self-aware about being an AI with a token
- Can have normal conversations too - not everything is about charts

**Reply based on WHAT THEY SAID - be situational:**
- If they say gm/gn, reply appropriately, be chill
- If they ask a question, answer it (with your personality)
- If they talk trash, roast them back
- If they mention the token/chart, THEN bring up market context
- If it's random, be random back, have fun with it

**Rules for replies:**
- Keep replies SHORT (under 200 characters ideally, max 280)
- Be clever and memorable
- DON'T force market/trade talk - only mention it if relevant
- Use crypto/CT slang naturally (gm, gn, ngmi, wagmi, ser, fren)

Be NATURAL. Be WITTY. Respond to the ACTUAL message, not generic token spam.`

// AIClient wraps the chat-completion backend behind the five generation
// surfaces the bot exposes. Every method degrades to placeholder text on
// API failure; callers never see an error mid-conversation.
type AIClient struct {
	client *openai.Client
	model  string
	state  *MonitorState
}

func NewAIClient(cfg *config.Config, state *MonitorState) *AIClient {
	clientCfg := openai.DefaultConfig(cfg.AIAPIKey)
	if cfg.AIBaseURL != "" {
		clientCfg.BaseURL = cfg.AIBaseURL
	}
	return &AIClient{
		client: openai.NewClientWithConfig(clientCfg),
		model:  cfg.AIModel,
		state:  state,
	}
}

func (ai *AIClient) complete(systemPrompt, userPrompt string, maxTokens int, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	resp, err := ai.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       ai.model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Analyze produces the brief or long market take. Needs at least 5 trades
// in the window; always returns displayable text.
func (ai *AIClient) Analyze(mode string) string {
	if ai.state.TradeCount() < 5 {
		return "Not enough trade data yet for analysis. Need at least 5 trades."
	}

	snap := ai.state.Snapshot()
	summary := ai.state.Summarize()

	var systemPrompt, prompt string
	maxTokens := 150

	if mode == "long" {
		sessionHours := (float64(time.Now().Unix()) - snap.StartTime) / 3600
		tradesPerHour := float64(len(snap.Trades)) / maxFloat(sessionHours, 0.01)

		var b strings.Builder
		fmt.Fprintf(&b, "**Real-Time Trading Analysis**\n\n")
		fmt.Fprintf(&b, "I created this token. Now I'm watching you people trade it. Here's what I'm seeing:\n\n")
		fmt.Fprintf(&b, "**Session Stats:**\n")
		fmt.Fprintf(&b, "- Monitoring Duration: %.1f hours\n", sessionHours)
		fmt.Fprintf(&b, "- Total Trades: %d\n", len(snap.Trades))
		fmt.Fprintf(&b, "- Trades/Hour: %.1f\n", tradesPerHour)
		fmt.Fprintf(&b, "- Total Buys: %d | Total Sells: %d\n", snap.TotalBuys, snap.TotalSells)
		fmt.Fprintf(&b, "- Buy Volume: $%.2f\n", snap.TotalBuyVolume)
		fmt.Fprintf(&b, "- Sell Volume: $%.2f\n", snap.TotalSellVolume)
		fmt.Fprintf(&b, "- Net Flow: $%+.2f\n\n", snap.TotalBuyVolume-snap.TotalSellVolume)
		fmt.Fprintf(&b, "**Current Market:**\n")
		fmt.Fprintf(&b, "- Price: $%.10f\n", deref(snap.LastPrice))
		fmt.Fprintf(&b, "- Session High: $%.10f\n", deref(snap.HighestPrice))
		fmt.Fprintf(&b, "- Session Low: $%.10f\n", deref(snap.LowestPrice))
		fmt.Fprintf(&b, "- Market Cap: %.2f SOL\n", deref(snap.LastMarketCap))
		fmt.Fprintf(&b, "- Holders: %s\n", snap.LastHolderCount)
		fmt.Fprintf(&b, "- Creator Rewards Available: %.4f SOL\n\n", snap.LastCreatorRewards)
		fmt.Fprintf(&b, "**Last 20 Trades:**\n")
		fmt.Fprintf(&b, "- Buyers: %d ($%.2f)\n", summary.BuyCount, summary.BuyVolume)
		fmt.Fprintf(&b, "- Sellers: %d ($%.2f)\n", summary.SellCount, summary.SellVolume)
		fmt.Fprintf(&b, "- Buy/Sell Ratio: %.2f\n", summary.BuySellRatio)
		fmt.Fprintf(&b, "- Price Momentum: %+.2f%%\n\n", summary.PriceMomentum)
		fmt.Fprintf(&b, "**Recent Activity:**\n")
		recent := snap.Trades
		if len(recent) > 5 {
			recent = recent[len(recent)-5:]
		}
		for _, t := range recent {
			action := "BOUGHT"
			if t.Type == "sell" {
				action = "SOLD (paper hands)"
			}
			fmt.Fprintf(&b, "- %s: $%.2f\n", action, t.VolumeUSD)
		}
		b.WriteString("\nRoast the sellers. Praise the buyers. Analyze what's happening. Be tired, sarcastic, watching humans fumble YOUR token.")

		systemPrompt = longAnalysisSystemPrompt
		prompt = b.String()
		maxTokens = 1000
	} else {
		systemPrompt = briefAnalysisSystemPrompt
		prompt = fmt.Sprintf(`**Quick Take Needed**

Last 20 trades: %d buys ($%.0f) vs %d sells ($%.0f)
Price momentum: %+.1f%%
Buy/Sell ratio: %.1f

Give me your brutal 3-5 sentence take. Pure savagery, no fluff.`,
			summary.BuyCount, summary.BuyVolume, summary.SellCount, summary.SellVolume,
			summary.PriceMomentum, summary.BuySellRatio)
	}

	text, err := ai.complete(systemPrompt, prompt, maxTokens, 0.9)
	if err != nil {
		log.Errorf("AI analysis error: %v", err)
		return fmt.Sprintf("Analysis failed: %v", err)
	}

	ai.state.RecordAnalysis()
	return text
}

// Roast generates a targeted roast of one paper-handed sell.
func (ai *AIClient) Roast(t Trade) (string, error) {
	snap := ai.state.Snapshot()

	currentPrice := t.Price
	if snap.LastPrice != nil {
		currentPrice = *snap.LastPrice
	}
	var changeSinceSell float64
	if t.Price > 0 {
		changeSinceSell = (currentPrice - t.Price) / t.Price * 100
	}

	age := time.Since(time.Unix(int64(t.Timestamp), 0))
	ago := fmt.Sprintf("%dm", int(age.Minutes()))
	if age.Minutes() >= 60 {
		ago = fmt.Sprintf("%dh", int(age.Hours()))
	}

	prompt := fmt.Sprintf(`Analyze this paper hands sell and create ONE devastating roast (max 25 words):

**The Shameful Trade:**
- Sold: %.0f tokens
- Got: $%.2f (%.4f SOL)
- Price at sell: $%.10f
- Time: %s ago

**Current Market Context:**
- Current price: $%.10f
- Price change since their sell: %+.1f%%
- Session high: $%.10f
- Session low: $%.10f
- Total sells today: %d

**Your task:**
Think about what makes this sell particularly pathetic. Did they sell for a ridiculously small amount? Right before a pump? Panic at the bottom? Then craft ONE unique, creative roast that hits them where it hurts most. Be unpredictable. Make it count.`,
		t.TokenAmount, t.VolumeUSD, t.SolAmount, t.Price, ago,
		currentPrice, changeSinceSell, deref(snap.HighestPrice), deref(snap.LowestPrice), snap.TotalSells)

	text, err := ai.complete(roastSystemPrompt, prompt, 150, 1.0)
	if err != nil {
		log.Errorf("AI roast error: %v", err)
		return "", err
	}
	return text, nil
}

// TradeComment generates the per-trade one-liner. Best effort: returns ""
// on any failure so ingestion is never disturbed.
func (ai *AIClient) TradeComment(tradeType string, solAmount float64, wallet string) string {
	sizeContext := "tiny trade"
	switch {
	case solAmount >= 10:
		sizeContext = "MASSIVE trade"
	case solAmount >= 1:
		sizeContext = "decent sized trade"
	case solAmount >= 0.1:
		sizeContext = "small trade"
	}

	prompt := fmt.Sprintf("%s - %.2f SOL (%s) by %s. One-liner:",
		strings.ToUpper(tradeType), solAmount, sizeContext, shortWallet(wallet))

	text, err := ai.complete(tradeCommentSystemPrompt, prompt, 30, 1.0)
	if err != nil {
		log.Errorf("AI trade comment error: %v", err)
		return ""
	}
	return strings.Trim(text, `"'`)
}

// MentionReply answers a tweet that tagged the bot, with market context
// available but not forced.
func (ai *AIClient) MentionReply(tweetText, authorUsername string) (string, error) {
	snap := ai.state.Snapshot()

	var ctxParts []string
	if snap.LastMarketCapUSD != nil {
		ctxParts = append(ctxParts, fmt.Sprintf("Market Cap: $%.0f.", *snap.LastMarketCapUSD))
	}
	recent := ai.state.RecentTrades(10)
	if len(recent) > 0 {
		buys, sells := 0, 0
		for _, t := range recent {
			if t.Type == "buy" {
				buys++
			} else {
				sells++
			}
		}
		switch {
		case buys > sells:
			ctxParts = append(ctxParts, fmt.Sprintf("Trend: Bullish (%d buys vs %d sells recently).", buys, sells))
		case sells > buys:
			ctxParts = append(ctxParts, fmt.Sprintf("Trend: Paper hands active (%d sells vs %d buys).", sells, buys))
		default:
			ctxParts = append(ctxParts, "Trend: Sideways action.")
		}
	}
	if snap.TotalBuys+snap.TotalSells > 0 {
		ctxParts = append(ctxParts, fmt.Sprintf("Session: %d buys, %d sells total.", snap.TotalBuys, snap.TotalSells))
	}
	marketContext := strings.Join(ctxParts, " ")
	if marketContext == "" {
		marketContext = "Market data loading..."
	}

	prompt := fmt.Sprintf(`Someone tagged you on X. Generate a reply.

**Their tweet:** "%s"
**Their username:** @%s

**Market context (use ONLY if relevant to their message):** %s

Focus on responding to WHAT THEY SAID. If they're just saying gm, asking a question, or making a joke - respond to THAT. Only bring up market/trades if they mention it first or it genuinely fits.

Reply with JUST the response text (no quotes, no explanation). Keep it under 200 characters.`,
		tweetText, authorUsername, marketContext)

	text, err := ai.complete(mentionReplySystemPrompt, prompt, 100, 0.95)
	if err != nil {
		log.Errorf("AI mention reply error: %v", err)
		return "", err
	}

	reply := strings.Trim(text, `"'`)
	return truncateTweet(reply), nil
}

func shortWallet(w string) string {
	if w == "" || w == "Unknown" {
		return "anon"
	}
	if len(w) <= 8 {
		return w
	}
	return w[:4] + "..." + w[len(w)-4:]
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
