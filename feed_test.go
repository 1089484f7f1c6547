package main

import (
	"testing"
	"time"
)

func newTestProcessor(t *testing.T) (*TradeProcessor, *MonitorState) {
	t.Helper()
	ms := newTestState(t)
	// No metrics, hub, or AI: ingestion must work standalone.
	return NewTradeProcessor(ms, nil, nil, nil), ms
}

func TestProcessMessageBuy(t *testing.T) {
	tp, ms := newTestProcessor(t)

	tp.ProcessMessage([]byte(`{
		"txType": "buy",
		"solAmount": 2.0,
		"tokenAmount": 1000,
		"marketCapSol": 55.5,
		"traderPublicKey": "TraderAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		"signature": "sig1"
	}`))

	snap := ms.Snapshot()
	if snap.TotalBuys != 1 {
		t.Fatalf("expected 1 buy, got %d", snap.TotalBuys)
	}
	tr := snap.Trades[0]
	if tr.Price != 0.002 {
		t.Errorf("expected price 0.002, got %v", tr.Price)
	}
	if tr.VolumeUSD != 200 {
		t.Errorf("expected volume $200, got %v", tr.VolumeUSD)
	}
	if tr.MarketCapSol != 55.5 {
		t.Errorf("expected market cap carried from message, got %v", tr.MarketCapSol)
	}
	if tr.User != "TraderAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA" {
		t.Errorf("unexpected user %q", tr.User)
	}
}

func TestProcessMessageZeroTokens(t *testing.T) {
	tp, ms := newTestProcessor(t)

	tp.ProcessMessage([]byte(`{"txType":"sell","solAmount":1.0,"tokenAmount":0,"signature":"s"}`))

	snap := ms.Snapshot()
	if len(snap.Trades) != 1 {
		t.Fatalf("expected trade recorded, got %d", len(snap.Trades))
	}
	if snap.Trades[0].Price != 0 {
		t.Errorf("zero token amount must yield price 0, got %v", snap.Trades[0].Price)
	}
}

func TestProcessMessageSkipsCreate(t *testing.T) {
	tp, ms := newTestProcessor(t)

	tp.ProcessMessage([]byte(`{"txType":"create","name":"NewToken","solAmount":5}`))

	if ms.TradeCount() != 0 {
		t.Error("create events must not be recorded as trades")
	}
}

func TestProcessMessageSkipsSubscriptionAck(t *testing.T) {
	tp, ms := newTestProcessor(t)

	tp.ProcessMessage([]byte(`{"message":"Successfully subscribed to keys."}`))

	if ms.TradeCount() != 0 {
		t.Error("subscription ack must not be recorded")
	}
}

func TestProcessMessageDropsUnknownType(t *testing.T) {
	tp, ms := newTestProcessor(t)

	tp.ProcessMessage([]byte(`{"txType":"airdrop","solAmount":1,"tokenAmount":10}`))

	if ms.TradeCount() != 0 {
		t.Error("unknown txType must be dropped")
	}
}

func TestProcessMessageMalformedJSON(t *testing.T) {
	tp, ms := newTestProcessor(t)

	tp.ProcessMessage([]byte(`{"txType": "buy", "solAmount":`))

	if ms.TradeCount() != 0 {
		t.Error("malformed payload must be dropped, not recorded")
	}
}

func TestProcessMessageMissingTrader(t *testing.T) {
	tp, ms := newTestProcessor(t)

	tp.ProcessMessage([]byte(`{"txType":"buy","solAmount":0.5,"tokenAmount":100,"signature":"s"}`))

	if got := ms.Snapshot().Trades[0].User; got != "Unknown" {
		t.Errorf("expected user fallback Unknown, got %q", got)
	}
}

func TestNextBackoff(t *testing.T) {
	d := initialRetryDelay
	want := []time.Duration{
		2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 32 * time.Second, 60 * time.Second, 60 * time.Second,
	}
	for i, w := range want {
		d = nextBackoff(d)
		if d != w {
			t.Fatalf("step %d: expected %v, got %v", i, w, d)
		}
	}
}
