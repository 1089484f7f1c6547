package main

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	initialRetryDelay = 1 * time.Second
	maxRetryDelay     = 60 * time.Second
)

// feedMessage is the PumpPortal wire shape. Only the fields the processor
// consumes are mapped.
type feedMessage struct {
	Message         string  `json:"message"`
	TxType          string  `json:"txType"`
	Name            string  `json:"name"`
	SolAmount       float64 `json:"solAmount"`
	TokenAmount     float64 `json:"tokenAmount"`
	MarketCapSol    float64 `json:"marketCapSol"`
	TraderPublicKey string  `json:"traderPublicKey"`
	Signature       string  `json:"signature"`
}

// FeedListener holds the persistent PumpPortal connection for one token.
type FeedListener struct {
	url          string
	tokenAddress string
	processor    *TradeProcessor
	onConnect    func()
}

func NewFeedListener(url, tokenAddress string, processor *TradeProcessor, onConnect func()) *FeedListener {
	return &FeedListener{
		url:          url,
		tokenAddress: tokenAddress,
		processor:    processor,
		onConnect:    onConnect,
	}
}

// Start runs the connect/subscribe/read loop forever. Transport failures
// reconnect with exponential backoff; malformed messages are logged and
// dropped without tearing down the connection.
func (fl *FeedListener) Start() {
	log.Info("Connecting to PumpPortal WebSocket...")
	log.Infof("Monitoring token: %s", fl.tokenAddress)

	retryDelay := initialRetryDelay

	for {
		conn, _, err := websocket.DefaultDialer.Dial(fl.url, nil)
		if err != nil {
			log.Errorf("WebSocket error: %v. Reconnecting in %v...", err, retryDelay)
			time.Sleep(retryDelay)
			retryDelay = nextBackoff(retryDelay)
			continue
		}

		log.Info("✅ Connected to PumpPortal WebSocket")
		retryDelay = initialRetryDelay

		sub := map[string]interface{}{
			"method": "subscribeTokenTrade",
			"keys":   []string{fl.tokenAddress},
		}
		if err := conn.WriteJSON(sub); err != nil {
			log.Errorf("Failed to subscribe: %v", err)
			conn.Close()
			time.Sleep(retryDelay)
			retryDelay = nextBackoff(retryDelay)
			continue
		}
		log.Infof("📡 Subscribed to trades for %s", fl.tokenAddress)

		if fl.onConnect != nil {
			go fl.onConnect()
		}

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Errorf("WebSocket read error: %v. Reconnecting in %v...", err, retryDelay)
				conn.Close()
				break
			}
			fl.processor.ProcessMessage(message)
		}

		time.Sleep(retryDelay)
		retryDelay = nextBackoff(retryDelay)
	}
}

// nextBackoff doubles the delay up to the 60s cap.
func nextBackoff(d time.Duration) time.Duration {
	d *= 2
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return d
}

// TradeProcessor folds feed messages into the aggregate and triggers the
// non-blocking side effects (AI comment, dashboard broadcast).
type TradeProcessor struct {
	state   *MonitorState
	metrics *MetricsFetcher
	hub     *Hub
	ai      *AIClient // nil disables trade comments
}

func NewTradeProcessor(state *MonitorState, metrics *MetricsFetcher, hub *Hub, ai *AIClient) *TradeProcessor {
	return &TradeProcessor{state: state, metrics: metrics, hub: hub, ai: ai}
}

// ProcessMessage handles one raw feed message. Nothing escapes this
// boundary: parse errors and panics are logged with the offending payload
// and the listener moves on to the next message.
func (tp *TradeProcessor) ProcessMessage(raw []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Error in trade processing: %v. Data: %s", r, string(raw))
		}
	}()

	var msg feedMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Errorf("Failed to parse message: %v", err)
		return
	}

	// Subscription acknowledgements carry a "message" field.
	if msg.Message != "" && strings.Contains(strings.ToLower(msg.Message), "subscribed") {
		log.Info("Subscription confirmation received")
		return
	}

	// Token creation notices are not trades.
	if msg.TxType == "create" {
		log.Debugf("Skipping token creation event for %s", msg.Name)
		return
	}
	if msg.TxType != "buy" && msg.TxType != "sell" {
		log.Warnf("Unknown txType: %s", msg.TxType)
		return
	}

	volumeUSD := msg.SolAmount * solPriceUSD

	var price float64
	if msg.TokenAmount > 0 {
		price = msg.SolAmount / msg.TokenAmount
	}

	user := msg.TraderPublicKey
	if user == "" {
		user = "Unknown"
	}

	// Best-effort metrics refresh every 10th trade; cached values carry
	// over on failure and the trade itself is never blocked.
	snap := tp.state.Snapshot()
	holderCount := snap.LastHolderCount
	marketCapSol := msg.MarketCapSol
	creatorRewardsAvailable := snap.LastCreatorRewards
	if n := tp.state.TradeCount(); n > 0 && n%10 == 0 && tp.metrics != nil {
		m := tp.metrics.Fetch()
		holderCount = m.HolderCount
		if m.MarketCapSol > 0 {
			marketCapSol = m.MarketCapSol
		}
		creatorRewardsAvailable = m.CreatorRewardsAvailable
		tp.state.SetMetrics(m)
		log.Infof("Updated metrics - Holders: %s, Market Cap: $%.0f (%.2f SOL), Creator Rewards: %.4f SOL",
			holderCount, m.MarketCapUSD, m.MarketCapSol, creatorRewardsAvailable)
	}

	trade := Trade{
		Timestamp:    float64(time.Now().UnixNano()) / 1e9,
		Type:         msg.TxType,
		Price:        price,
		SolAmount:    msg.SolAmount,
		VolumeUSD:    volumeUSD,
		TokenAmount:  msg.TokenAmount,
		MarketCapSol: marketCapSol,
		HolderCount:  holderCount,
		User:         user,
		Signature:    msg.Signature,
	}

	tp.state.ApplyTrade(trade)

	emoji := "🟢"
	if trade.Type == "sell" {
		emoji = "🔴"
	}
	log.Infof("%s %s: %v SOL ($%.2f) at $%.8f", emoji, strings.ToUpper(trade.Type), trade.SolAmount, trade.VolumeUSD, trade.Price)

	if err := tp.state.Save(); err != nil {
		log.Warnf("⚠️ Failed to persist state: %v", err)
	}

	// Side effects run off the ingestion path: the one-liner comment is
	// generated, attached, and then the trade plus the updated aggregate
	// are broadcast. The next feed message never waits on any of this.
	go tp.finishTrade(trade)
}

func (tp *TradeProcessor) finishTrade(trade Trade) {
	if tp.ai != nil {
		if comment := tp.ai.TradeComment(trade.Type, trade.SolAmount, trade.User); comment != "" {
			if updated, ok := tp.state.AttachComment(trade.Signature, comment); ok {
				trade = updated
			} else {
				trade.AIComment = comment
			}
		}
	}

	if tp.hub != nil {
		tp.hub.Broadcast("trade", trade)
		tp.hub.Broadcast("state_update", tp.state.StateUpdate())
	}
}
