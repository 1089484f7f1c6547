package main

import (
	"testing"
	"time"
)

type fakeComposer struct{}

func (fakeComposer) Roast(Trade) (string, error)                 { return "mid sell", nil }
func (fakeComposer) Analyze(string) string                       { return "steady tape" }
func (fakeComposer) MentionReply(string, string) (string, error) { return "gm", nil }

type fakeXSurface struct {
	mentions []Mention
	replied  []string
}

func (f *fakeXSurface) PostToCommunity(text string) (string, error) { return "700", nil }
func (f *fakeXSurface) ReplyToTweet(tweetID, text string) (string, error) {
	f.replied = append(f.replied, tweetID)
	return "800", nil
}
func (f *fakeXSurface) FetchMentions(sinceID string) ([]Mention, error) { return f.mentions, nil }
func (f *fakeXSurface) Me() (string, string, error)                     { return "1", "radarbot", nil }

func newTestTaskManager(t *testing.T) *TaskManager {
	t.Helper()
	ms := newTestState(t)
	ledger := newTestLedger(t)
	actions := newTestActionLog(t)
	// No AI or X client: these tests only exercise lifecycle bookkeeping,
	// not the iteration bodies.
	return NewTaskManager(ms, nil, nil, ledger, actions)
}

func TestTaskStartStop(t *testing.T) {
	tm := newTestTaskManager(t)

	if !tm.Start("analyze", 5*time.Minute) {
		t.Fatal("expected start to succeed")
	}
	status := tm.Status()["analyze"]
	if !status.Enabled {
		t.Error("expected task enabled after start")
	}
	if status.Interval != 5*time.Minute {
		t.Errorf("expected interval 5m, got %v", status.Interval)
	}

	if !tm.Stop("analyze") {
		t.Fatal("expected stop to succeed")
	}
	status = tm.Status()["analyze"]
	if status.Enabled {
		t.Error("expected task disabled after stop")
	}
	if status.Interval != 0 {
		t.Errorf("expected interval cleared after stop, got %v", status.Interval)
	}
}

func TestTaskStartUnknownName(t *testing.T) {
	tm := newTestTaskManager(t)
	if tm.Start("nosuchtask", time.Minute) {
		t.Error("unknown task name must not start")
	}
	if tm.Stop("nosuchtask") {
		t.Error("unknown task name must not stop")
	}
}

func TestTaskRestartSupersedesOldLoop(t *testing.T) {
	tm := newTestTaskManager(t)

	tm.Start("roast", 10*time.Minute)
	tm.mu.Lock()
	firstGen := tm.tasks["roast"].gen
	tm.mu.Unlock()
	tm.Start("roast", 3*time.Minute)
	tm.mu.Lock()
	secondGen := tm.tasks["roast"].gen
	tm.mu.Unlock()

	if secondGen <= firstGen {
		t.Fatal("restart must bump the generation so the old loop exits")
	}
	if alive, _ := tm.alive("roast", firstGen); alive {
		t.Error("old generation must no longer be alive")
	}
	if alive, interval := tm.alive("roast", secondGen); !alive || interval != 3*time.Minute {
		t.Errorf("new generation should be alive with the new interval, got %v", interval)
	}
}

func TestStopAll(t *testing.T) {
	tm := newTestTaskManager(t)
	tm.Start("roast", time.Minute)
	tm.Start("analyze", time.Minute)
	tm.Start("mentions", time.Minute)

	tm.StopAll()

	for name, status := range tm.Status() {
		if status.Enabled {
			t.Errorf("task %s still enabled after StopAll", name)
		}
	}
}

func TestMentionSweepSkipsWithoutPausing(t *testing.T) {
	ms := newTestState(t)
	ledger := newTestLedger(t)
	x := &fakeXSurface{mentions: []Mention{
		{ID: "103", Text: "@radarbot hello", AuthorUsername: "bob"},
		{ID: "102", Text: "@radarbot gm", AuthorUsername: "alice"},
		{ID: "101", Text: "replying to myself", AuthorUsername: "radarbot"},
	}}
	ledger.Record("102")
	ledger.Record("103")
	tm := NewTaskManager(ms, fakeComposer{}, x, ledger, newTestActionLog(t))

	start := time.Now()
	n, err := tm.ProcessMentions()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 replies, got %d", n)
	}
	if len(x.replied) != 0 {
		t.Errorf("no posts expected, got %v", x.replied)
	}
	if elapsed := time.Since(start); elapsed >= 2*time.Second {
		t.Errorf("skipped mentions must not pause the sweep, took %v", elapsed)
	}
}

func TestMentionSweepRepliesAndLedgers(t *testing.T) {
	ms := newTestState(t)
	ledger := newTestLedger(t)
	x := &fakeXSurface{mentions: []Mention{
		{ID: "205", Text: "@radarbot wen moon", AuthorUsername: "carol"},
	}}
	tm := NewTaskManager(ms, fakeComposer{}, x, ledger, newTestActionLog(t))

	n, err := tm.ProcessMentions()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 reply, got %d", n)
	}
	if len(x.replied) != 1 || x.replied[0] != "205" {
		t.Errorf("expected reply to tweet 205, got %v", x.replied)
	}
	if !ledger.HasReplied("205") {
		t.Error("replied tweet must be ledgered")
	}

	// Second sweep sees the same page and must not double-reply.
	if n, err := tm.ProcessMentions(); err != nil || n != 0 {
		t.Errorf("second sweep should reply to nothing, got n=%d err=%v", n, err)
	}
	if len(x.replied) != 1 {
		t.Errorf("double reply posted: %v", x.replied)
	}
}
