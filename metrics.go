package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"
	log "github.com/sirupsen/logrus"
)

// TokenMetrics is one out-of-band snapshot of market figures for the token.
type TokenMetrics struct {
	MarketCapSol            float64
	MarketCapUSD            float64
	LiquidityUSD            float64
	Volume24h               float64
	PriceUSD                float64
	PriceNative             float64
	HolderCount             FlexCount
	CreatorRewardsAvailable float64
}

// MetricsFetcher resolves token metrics via DexScreener, falling back to the
// PumpPortal metadata endpoint, falling back to the last cached values. It
// also keeps a live SOL/USD quote from Binance spot for USD conversions.
type MetricsFetcher struct {
	tokenAddress string
	httpClient   *http.Client
	spot         *binance.Client

	state *MonitorState
	hub   *Hub
}

func NewMetricsFetcher(tokenAddress string, state *MonitorState, hub *Hub) *MetricsFetcher {
	return &MetricsFetcher{
		tokenAddress: tokenAddress,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		spot:         binance.NewClient("", ""), // public endpoints only
		state:        state,
		hub:          hub,
	}
}

type dexScreenerPair struct {
	FDV       float64 `json:"fdv"`
	MarketCap float64 `json:"marketCap"`
	Liquidity struct {
		USD float64 `json:"usd"`
	} `json:"liquidity"`
	Volume struct {
		H24 float64 `json:"h24"`
	} `json:"volume"`
	PriceNative string `json:"priceNative"`
	PriceUsd    string `json:"priceUsd"`
}

type pumpPortalMetadata struct {
	MarketCapSol            float64         `json:"marketCapSol"`
	MarketCapUsd            float64         `json:"marketCapUsd"`
	HolderCount             FlexCount       `json:"holderCount"`
	Supply                  json.RawMessage `json:"supply"`
	CreatorRewardsAvailable float64         `json:"creatorRewardsAvailable"`
	CreatorRewards          float64         `json:"creatorRewards"`
}

// Fetch runs the fallback chain. It never returns an error: the tertiary
// fallback is the current cached state, so trade processing is never blocked
// or failed by a metrics outage.
func (mf *MetricsFetcher) Fetch() TokenMetrics {
	if m, err := mf.fetchDexScreener(); err == nil {
		return m
	} else {
		log.Warnf("DexScreener API failed: %v, trying PumpPortal fallback...", err)
	}

	if m, err := mf.fetchPumpPortal(); err == nil {
		return m
	} else {
		log.Debugf("Both APIs failed, returning current state: %v", err)
	}

	snap := mf.state.Snapshot()
	m := TokenMetrics{
		HolderCount:             snap.LastHolderCount,
		CreatorRewardsAvailable: snap.LastCreatorRewards,
	}
	if snap.LastMarketCap != nil {
		m.MarketCapSol = *snap.LastMarketCap
	}
	if snap.LastMarketCapUSD != nil {
		m.MarketCapUSD = *snap.LastMarketCapUSD
	}
	return m
}

func (mf *MetricsFetcher) fetchDexScreener() (TokenMetrics, error) {
	url := "https://api.dexscreener.com/tokens/v1/solana/" + mf.tokenAddress
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return TokenMetrics{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := mf.httpClient.Do(req)
	if err != nil {
		return TokenMetrics{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return TokenMetrics{}, fmt.Errorf("dexscreener status %d", resp.StatusCode)
	}

	var pairs []dexScreenerPair
	if err := json.NewDecoder(resp.Body).Decode(&pairs); err != nil {
		return TokenMetrics{}, fmt.Errorf("decode dexscreener response: %w", err)
	}
	if len(pairs) == 0 {
		return TokenMetrics{}, fmt.Errorf("no pairs found")
	}

	// First pair is the most liquid one.
	pair := pairs[0]
	marketCapUSD := pair.FDV
	if marketCapUSD == 0 {
		marketCapUSD = pair.MarketCap
	}
	priceUSD, _ := strconv.ParseFloat(pair.PriceUsd, 64)
	priceNative, _ := strconv.ParseFloat(pair.PriceNative, 64)

	var marketCapSol float64
	if priceUSD > 0 {
		marketCapSol = marketCapUSD / priceUSD * priceNative
	} else if quote, err := mf.solQuote(); err == nil && quote > 0 {
		marketCapSol = marketCapUSD / quote
	}

	log.Infof("✅ DexScreener: Market Cap $%.0f (%.2f SOL), Liquidity $%.0f, 24h Volume $%.0f",
		marketCapUSD, marketCapSol, pair.Liquidity.USD, pair.Volume.H24)

	return TokenMetrics{
		MarketCapSol: marketCapSol,
		MarketCapUSD: marketCapUSD,
		LiquidityUSD: pair.Liquidity.USD,
		Volume24h:    pair.Volume.H24,
		PriceUSD:     priceUSD,
		PriceNative:  priceNative,
		HolderCount:  "?", // DexScreener doesn't provide holder count
	}, nil
}

func (mf *MetricsFetcher) fetchPumpPortal() (TokenMetrics, error) {
	url := "https://api.pumpportal.fun/metadata/" + mf.tokenAddress
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return TokenMetrics{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return TokenMetrics{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return TokenMetrics{}, fmt.Errorf("pumpportal status %d", resp.StatusCode)
	}

	var meta pumpPortalMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return TokenMetrics{}, fmt.Errorf("decode pumpportal metadata: %w", err)
	}

	rewards := meta.CreatorRewardsAvailable
	if rewards == 0 {
		rewards = meta.CreatorRewards
	}
	holders := meta.HolderCount
	if holders == "" {
		holders = "?"
	}

	return TokenMetrics{
		MarketCapSol:            meta.MarketCapSol,
		MarketCapUSD:            meta.MarketCapUsd,
		HolderCount:             holders,
		CreatorRewardsAvailable: rewards,
	}, nil
}

// solQuote fetches the current SOL/USDT spot price from Binance.
func (mf *MetricsFetcher) solQuote() (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	prices, err := mf.spot.NewListPricesService().Symbol("SOLUSDT").Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("binance SOL quote: %w", err)
	}
	if len(prices) == 0 {
		return 0, fmt.Errorf("binance returned no SOLUSDT price")
	}
	return strconv.ParseFloat(prices[0].Price, 64)
}

// StartRefresher periodically refreshes metrics and broadcasts them to the
// dashboard, whether or not the upstream fetch succeeded (cached values are
// still pushed so viewers converge).
func (mf *MetricsFetcher) StartRefresher() {
	log.Info("📊 Starting periodic token metrics refresh (every 30 seconds)")
	time.Sleep(5 * time.Second) // let startup settle

	for {
		time.Sleep(30 * time.Second)

		m := mf.Fetch()
		mf.state.SetMetrics(m)
		if err := mf.state.Save(); err != nil {
			log.Warnf("⚠️ Failed to persist state after metrics refresh: %v", err)
		}
		log.Infof("📊 Got fresh metrics - Market Cap: $%.0f (%.2f SOL)", m.MarketCapUSD, m.MarketCapSol)

		snap := mf.state.Snapshot()
		mf.hub.Broadcast("state_update", map[string]interface{}{
			"last_market_cap":                snap.LastMarketCap,
			"last_market_cap_usd":            snap.LastMarketCapUSD,
			"last_holder_count":              snap.LastHolderCount,
			"last_creator_rewards_available": snap.LastCreatorRewards,
		})
	}
}
