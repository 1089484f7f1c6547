package main

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func newTestState(t *testing.T) *MonitorState {
	t.Helper()
	path := filepath.Join(t.TempDir(), "monitor_state.json")
	return LoadState(path, "TestToken111111111111111111111111111111111")
}

func buyTrade(volumeUSD float64) Trade {
	return Trade{
		Type:        "buy",
		Price:       0.000001,
		SolAmount:   volumeUSD / solPriceUSD,
		VolumeUSD:   volumeUSD,
		TokenAmount: 1000,
		HolderCount: "42",
		User:        "WalletAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		Signature:   "sigbuy",
	}
}

func sellTrade(volumeUSD float64) Trade {
	t := buyTrade(volumeUSD)
	t.Type = "sell"
	t.Signature = "sigsell"
	return t
}

func TestApplyTradeCounters(t *testing.T) {
	ms := newTestState(t)

	ms.ApplyTrade(buyTrade(200))
	ms.ApplyTrade(buyTrade(100))
	ms.ApplyTrade(sellTrade(50))

	snap := ms.Snapshot()
	if snap.TotalBuys != 2 || snap.TotalSells != 1 {
		t.Fatalf("expected 2 buys / 1 sell, got %d / %d", snap.TotalBuys, snap.TotalSells)
	}
	if snap.TotalBuyVolume != 300 {
		t.Errorf("expected buy volume 300, got %v", snap.TotalBuyVolume)
	}
	if snap.TotalSellVolume != 50 {
		t.Errorf("expected sell volume 50, got %v", snap.TotalSellVolume)
	}

	wantRewards := 350 * creatorRewardRate
	if math.Abs(snap.CreatorRewards-wantRewards) > 1e-9 {
		t.Errorf("expected creator rewards %v, got %v", wantRewards, snap.CreatorRewards)
	}
}

func TestTradeWindowEviction(t *testing.T) {
	ms := newTestState(t)

	for i := 0; i < maxTrades+25; i++ {
		tr := buyTrade(10)
		tr.Timestamp = float64(i)
		ms.ApplyTrade(tr)
	}

	if got := ms.TradeCount(); got != maxTrades {
		t.Fatalf("expected window capped at %d, got %d", maxTrades, got)
	}
	// Oldest entries must have been evicted.
	recent := ms.RecentTrades(maxTrades)
	if recent[0].Timestamp != 25 {
		t.Errorf("expected oldest surviving timestamp 25, got %v", recent[0].Timestamp)
	}
}

func TestPriceExtremes(t *testing.T) {
	ms := newTestState(t)

	for _, p := range []float64{0.002, 0.005, 0.001} {
		tr := buyTrade(10)
		tr.Price = p
		ms.ApplyTrade(tr)
	}

	snap := ms.Snapshot()
	if deref(snap.LastPrice) != 0.001 {
		t.Errorf("expected last price 0.001, got %v", deref(snap.LastPrice))
	}
	if deref(snap.HighestPrice) != 0.005 {
		t.Errorf("expected high 0.005, got %v", deref(snap.HighestPrice))
	}
	if deref(snap.LowestPrice) != 0.001 {
		t.Errorf("expected low 0.001, got %v", deref(snap.LowestPrice))
	}
}

func TestZeroPriceDoesNotTouchExtremes(t *testing.T) {
	ms := newTestState(t)

	tr := buyTrade(10)
	tr.Price = 0
	ms.ApplyTrade(tr)

	snap := ms.Snapshot()
	if snap.LastPrice != nil || snap.HighestPrice != nil || snap.LowestPrice != nil {
		t.Error("zero-price trade must leave price extremes unset")
	}
}

func TestAttachComment(t *testing.T) {
	ms := newTestState(t)
	ms.ApplyTrade(buyTrade(10))

	updated, ok := ms.AttachComment("sigbuy", "noted.")
	if !ok {
		t.Fatal("expected comment to attach")
	}
	if updated.AIComment != "noted." {
		t.Errorf("expected comment on returned trade, got %q", updated.AIComment)
	}

	if _, ok := ms.AttachComment("nosuchsig", "x"); ok {
		t.Error("expected attach to miss for unknown signature")
	}
}

func TestPersistenceExcludesTrades(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitor_state.json")

	ms := LoadState(path, "TokenA")
	ms.ApplyTrade(buyTrade(100))
	ms.ApplyTrade(sellTrade(40))
	if err := ms.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}
	var onDisk StateSnapshot
	if err := json.Unmarshal(data, &onDisk); err != nil {
		t.Fatalf("unmarshal state file: %v", err)
	}
	if len(onDisk.Trades) != 0 {
		t.Errorf("trade window must not be persisted, got %d entries", len(onDisk.Trades))
	}

	// Counters survive a restart, window starts empty.
	reloaded := LoadState(path, "TokenA")
	snap := reloaded.Snapshot()
	if snap.TotalBuys != 1 || snap.TotalSells != 1 {
		t.Errorf("expected counters to survive reload, got %d buys / %d sells", snap.TotalBuys, snap.TotalSells)
	}
	if len(snap.Trades) != 0 {
		t.Errorf("expected empty window after reload, got %d", len(snap.Trades))
	}
}

func TestCorruptedStateFileResets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "monitor_state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	ms := LoadState(path, "TokenB")
	snap := ms.Snapshot()
	if snap.TokenAddress != "TokenB" {
		t.Errorf("expected token from config, got %q", snap.TokenAddress)
	}
	if snap.TotalBuys != 0 || snap.AnalysisMode != "brief" {
		t.Error("expected defaults after corrupted file")
	}
}

func TestFlexCountAcceptsStringAndNumber(t *testing.T) {
	var f FlexCount
	if err := json.Unmarshal([]byte(`"123"`), &f); err != nil || f != "123" {
		t.Errorf("string form: got %q, err %v", f, err)
	}
	if err := json.Unmarshal([]byte(`456`), &f); err != nil || f != "456" {
		t.Errorf("number form: got %q, err %v", f, err)
	}
	if err := json.Unmarshal([]byte(`[1]`), &f); err != nil || f != "?" {
		t.Errorf("unknown form: got %q, err %v", f, err)
	}
}

func TestSummarize(t *testing.T) {
	ms := newTestState(t)

	first := buyTrade(100)
	first.Price = 0.001
	ms.ApplyTrade(first)
	for i := 0; i < 2; i++ {
		ms.ApplyTrade(sellTrade(25))
	}
	last := buyTrade(100)
	last.Price = 0.002
	ms.ApplyTrade(last)

	s := ms.Summarize()
	if s.TotalTrades != 4 || s.BuyCount != 2 || s.SellCount != 2 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if s.NetVolume != 150 {
		t.Errorf("expected net volume 150, got %v", s.NetVolume)
	}
	if s.BuySellRatio != 1.0 {
		t.Errorf("expected ratio 1.0, got %v", s.BuySellRatio)
	}
	if math.Abs(s.PriceMomentum-100) > 1e-9 {
		t.Errorf("expected +100%% momentum, got %v", s.PriceMomentum)
	}
}

func TestSummarizeNoSellsUsesUnitDenominator(t *testing.T) {
	ms := newTestState(t)
	for i := 0; i < 3; i++ {
		ms.ApplyTrade(buyTrade(10))
	}
	if got := ms.Summarize().BuySellRatio; got != 3.0 {
		t.Errorf("expected ratio 3.0 with zero sells, got %v", got)
	}
}

func TestConcurrentSavesKeepFileWhole(t *testing.T) {
	ms := newTestState(t)

	// Trade processor, metrics refresher, and command handlers can all save
	// at once; the file must stay a single complete JSON document.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				ms.ApplyTrade(buyTrade(10))
				if err := ms.Save(); err != nil {
					t.Errorf("save: %v", err)
				}
			}
		}()
	}
	wg.Wait()
	if err := ms.Save(); err != nil {
		t.Fatalf("final save: %v", err)
	}

	data, err := os.ReadFile(ms.path)
	if err != nil {
		t.Fatalf("read state file: %v", err)
	}
	var snap StateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("state file is not valid JSON after concurrent saves: %v", err)
	}
	if snap.TotalBuys != 160 {
		t.Errorf("expected 160 buys persisted, got %d", snap.TotalBuys)
	}
	if _, err := os.Stat(ms.path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after save")
	}
}
