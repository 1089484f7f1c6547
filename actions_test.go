package main

import (
	"fmt"
	"path/filepath"
	"testing"
)

func newTestActionLog(t *testing.T) *ActionLog {
	t.Helper()
	return NewActionLog(filepath.Join(t.TempDir(), "actions.json"))
}

func TestActionLogAppendAndRecent(t *testing.T) {
	al := newTestActionLog(t)

	al.Log("burn", "Token burn executed: 1,000,000 units", map[string]interface{}{"amount": 1000000})
	al.Log("say", "Published statement to X community", nil)

	recent := al.Recent(10)
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if recent[0].Type != "burn" || recent[1].Type != "say" {
		t.Errorf("expected oldest-first ordering, got %s then %s", recent[0].Type, recent[1].Type)
	}
	if recent[1].Details == nil {
		t.Error("nil details must be stored as an empty map")
	}
}

func TestActionLogCap(t *testing.T) {
	al := newTestActionLog(t)

	for i := 0; i < maxActions+20; i++ {
		al.Log("test", fmt.Sprintf("entry %d", i), nil)
	}

	all := al.Recent(maxActions + 100)
	if len(all) != maxActions {
		t.Fatalf("expected cap %d, got %d", maxActions, len(all))
	}
	if all[0].Description != "entry 20" {
		t.Errorf("expected oldest surviving entry 20, got %q", all[0].Description)
	}
}

func TestActionLogRecentLimit(t *testing.T) {
	al := newTestActionLog(t)
	for i := 0; i < 30; i++ {
		al.Log("test", fmt.Sprintf("entry %d", i), nil)
	}
	if got := len(al.Recent(20)); got != 20 {
		t.Errorf("expected 20 entries, got %d", got)
	}
}
