package main

import (
	"encoding/json"
	"net/http"
	"time"
)

// healthHandler reports liveness plus a few monitor vitals.
func healthHandler(state *MonitorState, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := state.Snapshot()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":            "healthy",
			"time":              time.Now().Format(time.RFC3339),
			"token":             snap.TokenAddress,
			"trades_in_window":  len(snap.Trades),
			"dashboard_clients": hub.ClientCount(),
			"uptime_seconds":    int(float64(time.Now().Unix()) - snap.StartTime),
		})
	}
}
