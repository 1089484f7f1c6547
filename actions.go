package main

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const maxActions = 500

// ActionEntry is one logged bot action, shown in the dashboard activity feed.
type ActionEntry struct {
	Timestamp   string                 `json:"timestamp"`
	Type        string                 `json:"type"`
	Description string                 `json:"description"`
	Details     map[string]interface{} `json:"details"`
}

// ActionLog is the capped on-disk record of everything the bot does, fanned
// out to the dashboard and (optionally) to mobile push.
type ActionLog struct {
	mu   sync.Mutex
	path string

	hub  *Hub
	push *PushService
}

func NewActionLog(path string) *ActionLog {
	return &ActionLog{path: path}
}

// Attach wires the broadcast targets. Separate from the constructor because
// the hub needs the action log for its initial_state payload.
func (al *ActionLog) Attach(hub *Hub, push *PushService) {
	al.hub = hub
	al.push = push
}

func (al *ActionLog) load() []ActionEntry {
	data, err := os.ReadFile(al.path)
	if err != nil {
		return []ActionEntry{}
	}
	var entries []ActionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return []ActionEntry{}
	}
	return entries
}

// Log appends an action, trims to the newest 500, rewrites the file, and
// broadcasts the entry.
func (al *ActionLog) Log(actionType, description string, details map[string]interface{}) {
	if details == nil {
		details = map[string]interface{}{}
	}
	entry := ActionEntry{
		Timestamp:   time.Now().Format(time.RFC3339),
		Type:        actionType,
		Description: description,
		Details:     details,
	}

	al.mu.Lock()
	entries := append(al.load(), entry)
	if len(entries) > maxActions {
		entries = entries[len(entries)-maxActions:]
	}
	if data, err := json.MarshalIndent(entries, "", "  "); err == nil {
		if err := os.WriteFile(al.path, data, 0644); err != nil {
			log.Warnf("⚠️ Failed to write actions log: %v", err)
		}
	}
	al.mu.Unlock()

	log.Infof("📋 Action logged: %s - %s", actionType, description)

	if al.hub != nil {
		go al.hub.Broadcast("action", entry)
	}
	if al.push != nil {
		al.push.SendActionPush(entry)
	}
}

// Recent returns up to n most-recent entries, oldest first.
func (al *ActionLog) Recent(n int) []ActionEntry {
	al.mu.Lock()
	defer al.mu.Unlock()
	entries := al.load()
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries
}
