package main

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Hub maintains the set of connected dashboard viewers and fans out event
// envelopes. Delivery is best-effort: a failed write drops the client.
type Hub struct {
	clients   map[*hubClient]bool
	clientsMu sync.Mutex
	upgrader  websocket.Upgrader

	state   *MonitorState
	actions *ActionLog
}

// hubClient serializes writes to one connection. The connection handler
// (initial state, pongs) and Broadcast write the same socket from different
// goroutines, and gorilla/websocket allows only one writer at a time.
type hubClient struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *hubClient) send(payload []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *hubClient) sendJSON(v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.send(payload)
}

// Envelope is the dashboard wire format.
type Envelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

func NewHub(state *MonitorState, actions *ActionLog) *Hub {
	return &Hub{
		clients: make(map[*hubClient]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // local dashboard, any origin
			},
		},
		state:   state,
		actions: actions,
	}
}

// HandleWebSocket manages one viewer connection lifecycle.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("Upgrade error: %v", err)
		return
	}

	client := &hubClient{conn: conn}
	h.register(client)
	defer func() {
		h.unregister(client)
		conn.Close()
	}()

	// Initial state: aggregate snapshot, last 20 trades, last 20 actions.
	snap := h.state.Snapshot()
	initial := Envelope{
		Type: "initial_state",
		Data: map[string]interface{}{
			"state":          initialStateFields(snap),
			"recent_trades":  h.state.RecentTrades(20),
			"recent_actions": h.actions.Recent(20),
		},
	}
	if err := client.sendJSON(initial); err != nil {
		return
	}

	// Read loop: viewers only ever send pings; everything else is ignored.
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var inbound struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &inbound); err != nil {
			continue
		}
		if inbound.Type == "ping" {
			if err := client.sendJSON(Envelope{Type: "pong"}); err != nil {
				break
			}
		}
	}
}

func initialStateFields(snap StateSnapshot) map[string]interface{} {
	return map[string]interface{}{
		"token_address":       snap.TokenAddress,
		"total_buys":          snap.TotalBuys,
		"total_sells":         snap.TotalSells,
		"total_buy_volume":    snap.TotalBuyVolume,
		"total_sell_volume":   snap.TotalSellVolume,
		"creator_rewards":     snap.CreatorRewards,
		"last_price":          snap.LastPrice,
		"highest_price":       snap.HighestPrice,
		"lowest_price":        snap.LowestPrice,
		"last_market_cap":     snap.LastMarketCap,
		"last_market_cap_usd": snap.LastMarketCapUSD,
		"last_holder_count":   snap.LastHolderCount,
		"total_analyses":      snap.TotalAnalyses,
		"start_time":          snap.StartTime,
		"analysis_mode":       snap.AnalysisMode,
	}
}

func (h *Hub) register(client *hubClient) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	h.clients[client] = true
	log.Infof("🌐 Dashboard connected. Total: %d", len(h.clients))
}

func (h *Hub) unregister(client *hubClient) {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		log.Infof("🌐 Dashboard disconnected. Total: %d", len(h.clients))
	}
}

// Broadcast wraps data in an envelope and sends it to every viewer. Clients
// whose write fails are removed; there is no retry or queueing.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	envelope := Envelope{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().Format(time.RFC3339),
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		log.Warnf("Broadcast marshal error: %v", err)
		return
	}

	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	for client := range h.clients {
		if err := client.send(payload); err != nil {
			client.conn.Close()
			delete(h.clients, client)
		}
	}
}

// ClientCount reports currently connected viewers.
func (h *Hub) ClientCount() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}
