package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	return conn
}

func TestHubInitialStateAndPing(t *testing.T) {
	ms := newTestState(t)
	ms.ApplyTrade(buyTrade(100))
	actions := newTestActionLog(t)
	actions.Log("test", "wired", nil)
	hub := NewHub(ms, actions)

	conn := dialTestHub(t, hub)

	var initial Envelope
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial state: %v", err)
	}
	if initial.Type != "initial_state" {
		t.Fatalf("expected initial_state, got %q", initial.Type)
	}

	payload, ok := initial.Data.(map[string]interface{})
	if !ok {
		t.Fatal("initial_state data should be an object")
	}
	for _, key := range []string{"state", "recent_trades", "recent_actions"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("initial_state missing %q", key)
		}
	}

	if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	var pong Envelope
	if err := conn.ReadJSON(&pong); err != nil {
		t.Fatalf("read pong: %v", err)
	}
	if pong.Type != "pong" {
		t.Errorf("expected pong, got %q", pong.Type)
	}
}

func TestHubBroadcast(t *testing.T) {
	ms := newTestState(t)
	hub := NewHub(ms, newTestActionLog(t))

	conn := dialTestHub(t, hub)

	// Drain the initial state frame first.
	var initial Envelope
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial state: %v", err)
	}

	// Registration is complete once initial_state is delivered.
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}

	hub.Broadcast("trade", buyTrade(42))

	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read broadcast: %v", err)
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode broadcast: %v", err)
	}
	if env.Type != "trade" {
		t.Errorf("expected trade event, got %q", env.Type)
	}
	if env.Timestamp == "" {
		t.Error("broadcast envelope missing timestamp")
	}
}

func TestHubConcurrentPingAndBroadcast(t *testing.T) {
	ms := newTestState(t)
	hub := NewHub(ms, newTestActionLog(t))

	conn := dialTestHub(t, hub)

	var initial Envelope
	if err := conn.ReadJSON(&initial); err != nil {
		t.Fatalf("read initial state: %v", err)
	}

	// Drain server frames so neither side stalls on a full buffer.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Pongs from the connection handler and broadcasts from other goroutines
	// hit the same socket; both must go through the per-client write lock.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			hub.Broadcast("trade", buyTrade(float64(i)))
		}
	}()
	for i := 0; i < 100; i++ {
		if err := conn.WriteJSON(map[string]string{"type": "ping"}); err != nil {
			t.Fatalf("write ping %d: %v", i, err)
		}
	}
	wg.Wait()

	if hub.ClientCount() != 1 {
		t.Fatalf("client should survive concurrent writes, got %d connected", hub.ClientCount())
	}
}
