package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// Fixed SOL/USD estimate used for per-trade volume. Kept constant so
	// session counters stay internally consistent; the metrics refresher
	// tracks a live quote separately for the USD market cap display.
	solPriceUSD = 100.0

	// Creator rewards accrue at 0.05% of traded USD volume.
	creatorRewardRate = 0.0005

	// In-memory rolling window of recent trades.
	maxTrades = 100
)

// FlexCount is a holder count that upstream APIs report either as a number
// or as the "?" sentinel when unknown.
type FlexCount string

func (f *FlexCount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexCount(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexCount(fmt.Sprintf("%.0f", n))
		return nil
	}
	*f = "?"
	return nil
}

// Trade is one observed buy or sell on the monitored token.
type Trade struct {
	Timestamp    float64   `json:"timestamp"` // seconds since epoch
	Type         string    `json:"type"`      // "buy" or "sell"
	Price        float64   `json:"price"`     // SOL per token
	SolAmount    float64   `json:"sol_amount"`
	VolumeUSD    float64   `json:"volume_usd"`
	TokenAmount  float64   `json:"token_amount"`
	MarketCapSol float64   `json:"market_cap_sol"`
	HolderCount  FlexCount `json:"holder_count"`
	User         string    `json:"user"`
	Signature    string    `json:"signature"`
	AIComment    string    `json:"ai_comment,omitempty"`
}

// StateSnapshot is the persisted/broadcast shape of the aggregate state.
// The trade window is always serialized as an empty list on disk.
type StateSnapshot struct {
	TokenAddress       string    `json:"token_address"`
	Trades             []Trade   `json:"trades"`
	TotalBuys          int       `json:"total_buys"`
	TotalSells         int       `json:"total_sells"`
	TotalBuyVolume     float64   `json:"total_buy_volume"`
	TotalSellVolume    float64   `json:"total_sell_volume"`
	CreatorRewards     float64   `json:"creator_rewards"`
	LastPrice          *float64  `json:"last_price"`
	HighestPrice       *float64  `json:"highest_price"`
	LowestPrice        *float64  `json:"lowest_price"`
	LastMarketCap      *float64  `json:"last_market_cap"`
	LastMarketCapUSD   *float64  `json:"last_market_cap_usd"`
	LastHolderCount    FlexCount `json:"last_holder_count"`
	LastCreatorRewards float64   `json:"last_creator_rewards_available"`
	TotalAnalyses      int       `json:"total_analyses"`
	TotalAlerts        int       `json:"total_alerts"`
	StartTime          float64   `json:"start_time"`
	LastAnalysisTime   float64   `json:"last_analysis_time"`
	AnalysisMode       string    `json:"analysis_mode"`
}

// TradeSummary aggregates the last 20 trades for analysis prompts and alerts.
type TradeSummary struct {
	TotalTrades   int
	BuyCount      int
	SellCount     int
	BuyVolume     float64
	SellVolume    float64
	NetVolume     float64
	AvgBuySize    float64
	AvgSellSize   float64
	BuySellRatio  float64
	PriceMomentum float64 // percent over the window
}

// MonitorState is the process-wide aggregate. All mutation goes through its
// methods so the window cap, counters, and price extremes are enforced in
// one place.
type MonitorState struct {
	mu     sync.RWMutex
	snap   StateSnapshot
	path   string
	saveMu sync.Mutex
}

// LoadState builds the aggregate by overlaying the persisted file (if any)
// on in-code defaults. The trade window always starts empty; a corrupted
// file is treated as absent.
func LoadState(path, tokenAddress string) *MonitorState {
	snap := StateSnapshot{
		TokenAddress:    tokenAddress,
		Trades:          []Trade{},
		LastHolderCount: "?",
		StartTime:       float64(time.Now().Unix()),
		AnalysisMode:    "brief",
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &snap); err != nil {
			log.Warn("⚠️ Corrupted state file, resetting")
			snap = StateSnapshot{
				TokenAddress:    tokenAddress,
				Trades:          []Trade{},
				LastHolderCount: "?",
				StartTime:       float64(time.Now().Unix()),
				AnalysisMode:    "brief",
			}
		}
	}

	// Fresh window every run, and the token under watch comes from config,
	// not from whatever the file last saw.
	snap.Trades = []Trade{}
	snap.TokenAddress = tokenAddress
	if snap.AnalysisMode != "brief" && snap.AnalysisMode != "long" {
		snap.AnalysisMode = "brief"
	}
	if snap.StartTime == 0 {
		snap.StartTime = float64(time.Now().Unix())
	}
	if snap.LastHolderCount == "" {
		snap.LastHolderCount = "?"
	}

	ms := &MonitorState{snap: snap, path: path}
	if err := ms.Save(); err != nil {
		log.Warnf("⚠️ Failed to write initial state file: %v", err)
	}
	return ms
}

// Save rewrites the state file. The trade window is excluded from the
// persisted payload.
func (ms *MonitorState) Save() error {
	ms.mu.RLock()
	onDisk := ms.snap
	ms.mu.RUnlock()

	onDisk.Trades = []Trade{}
	data, err := json.MarshalIndent(onDisk, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}
	// Write-then-rename keeps the file whole: concurrent savers and crashes
	// can never leave a half-written document at ms.path.
	ms.saveMu.Lock()
	defer ms.saveMu.Unlock()
	tmp := ms.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	if err := os.Rename(tmp, ms.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}

// ApplyTrade folds one trade into the aggregate: window append with FIFO
// eviction, cumulative counters, creator-reward accrual, and price extremes.
func (ms *MonitorState) ApplyTrade(t Trade) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	ms.snap.Trades = append(ms.snap.Trades, t)
	if len(ms.snap.Trades) > maxTrades {
		ms.snap.Trades = ms.snap.Trades[len(ms.snap.Trades)-maxTrades:]
	}

	if t.Type == "buy" {
		ms.snap.TotalBuys++
		ms.snap.TotalBuyVolume += t.VolumeUSD
	} else {
		ms.snap.TotalSells++
		ms.snap.TotalSellVolume += t.VolumeUSD
	}

	ms.snap.CreatorRewards += t.VolumeUSD * creatorRewardRate

	if t.Price > 0 {
		p := t.Price
		ms.snap.LastPrice = &p
		if ms.snap.HighestPrice == nil || p > *ms.snap.HighestPrice {
			hp := p
			ms.snap.HighestPrice = &hp
		}
		if ms.snap.LowestPrice == nil || p < *ms.snap.LowestPrice {
			lp := p
			ms.snap.LowestPrice = &lp
		}
	}

	mc := t.MarketCapSol
	ms.snap.LastMarketCap = &mc
	ms.snap.LastHolderCount = t.HolderCount
}

// AttachComment sets the AI one-liner on the trade matching the signature.
// Returns the updated trade and whether it was found.
func (ms *MonitorState) AttachComment(signature, comment string) (Trade, bool) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for i := len(ms.snap.Trades) - 1; i >= 0; i-- {
		if ms.snap.Trades[i].Signature == signature {
			ms.snap.Trades[i].AIComment = comment
			return ms.snap.Trades[i], true
		}
	}
	return Trade{}, false
}

// SetMetrics applies an out-of-band metrics refresh.
func (ms *MonitorState) SetMetrics(m TokenMetrics) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	mc := m.MarketCapSol
	ms.snap.LastMarketCap = &mc
	mcu := m.MarketCapUSD
	ms.snap.LastMarketCapUSD = &mcu
	if m.HolderCount != "" {
		ms.snap.LastHolderCount = m.HolderCount
	}
	ms.snap.LastCreatorRewards = m.CreatorRewardsAvailable
}

// SetCreatorRewardsAvailable manually overrides the cached creator-reward
// figure. Returns the previous value.
func (ms *MonitorState) SetCreatorRewardsAvailable(amount float64) float64 {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	old := ms.snap.LastCreatorRewards
	ms.snap.LastCreatorRewards = amount
	return old
}

// SetAnalysisMode switches between "brief" and "long".
func (ms *MonitorState) SetAnalysisMode(mode string) {
	ms.mu.Lock()
	ms.snap.AnalysisMode = mode
	ms.mu.Unlock()
}

func (ms *MonitorState) AnalysisMode() string {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.snap.AnalysisMode
}

func (ms *MonitorState) RecordAnalysis() {
	ms.mu.Lock()
	ms.snap.TotalAnalyses++
	ms.snap.LastAnalysisTime = float64(time.Now().Unix())
	ms.mu.Unlock()
}

func (ms *MonitorState) RecordAlert() {
	ms.mu.Lock()
	ms.snap.TotalAlerts++
	ms.mu.Unlock()
}

// Snapshot returns a copy of the aggregate with a copied trade window.
func (ms *MonitorState) Snapshot() StateSnapshot {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	out := ms.snap
	out.Trades = append([]Trade(nil), ms.snap.Trades...)
	return out
}

// RecentTrades returns up to n most-recent trades, oldest first.
func (ms *MonitorState) RecentTrades(n int) []Trade {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	trades := ms.snap.Trades
	if len(trades) > n {
		trades = trades[len(trades)-n:]
	}
	return append([]Trade(nil), trades...)
}

// SellTrades returns every sell in the window.
func (ms *MonitorState) SellTrades() []Trade {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	var sells []Trade
	for _, t := range ms.snap.Trades {
		if t.Type == "sell" {
			sells = append(sells, t)
		}
	}
	return sells
}

func (ms *MonitorState) TradeCount() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.snap.Trades)
}

// Summarize analyzes the last 20 trades in the window.
func (ms *MonitorState) Summarize() TradeSummary {
	recent := ms.RecentTrades(20)
	if len(recent) == 0 {
		return TradeSummary{}
	}

	var s TradeSummary
	s.TotalTrades = len(recent)
	for _, t := range recent {
		if t.Type == "buy" {
			s.BuyCount++
			s.BuyVolume += t.VolumeUSD
		} else {
			s.SellCount++
			s.SellVolume += t.VolumeUSD
		}
	}
	s.NetVolume = s.BuyVolume - s.SellVolume
	if s.BuyCount > 0 {
		s.AvgBuySize = s.BuyVolume / float64(s.BuyCount)
	}
	if s.SellCount > 0 {
		s.AvgSellSize = s.SellVolume / float64(s.SellCount)
	}
	denom := s.SellCount
	if denom == 0 {
		denom = 1
	}
	s.BuySellRatio = float64(s.BuyCount) / float64(denom)
	if len(recent) > 1 && recent[0].Price > 0 {
		s.PriceMomentum = (recent[len(recent)-1].Price - recent[0].Price) / recent[0].Price * 100
	}
	return s
}

// StateUpdate is the delta broadcast to the dashboard after each trade.
func (ms *MonitorState) StateUpdate() map[string]interface{} {
	snap := ms.Snapshot()
	return map[string]interface{}{
		"total_buys":                     snap.TotalBuys,
		"total_sells":                    snap.TotalSells,
		"total_buy_volume":               snap.TotalBuyVolume,
		"total_sell_volume":              snap.TotalSellVolume,
		"creator_rewards":                snap.CreatorRewards,
		"last_price":                     snap.LastPrice,
		"highest_price":                  snap.HighestPrice,
		"lowest_price":                   snap.LowestPrice,
		"last_market_cap":                snap.LastMarketCap,
		"last_market_cap_usd":            snap.LastMarketCapUSD,
		"last_holder_count":              snap.LastHolderCount,
		"last_creator_rewards_available": snap.LastCreatorRewards,
	}
}
