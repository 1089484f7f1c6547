package main

import (
	"fmt"
	"path/filepath"
	"testing"
)

func newTestLedger(t *testing.T) *ReplyLedger {
	t.Helper()
	return NewReplyLedger(filepath.Join(t.TempDir(), "replied_tweets.json"))
}

func TestLedgerRecordAndLookup(t *testing.T) {
	rl := newTestLedger(t)

	if rl.HasReplied("100") {
		t.Fatal("fresh ledger should be empty")
	}

	rl.Record("100")
	if !rl.HasReplied("100") {
		t.Fatal("expected recorded id to be found")
	}
	if got := rl.LastMentionID(); got != "100" {
		t.Errorf("expected last mention id 100, got %q", got)
	}
}

func TestLedgerRecordIdempotent(t *testing.T) {
	rl := newTestLedger(t)

	rl.Record("42")
	rl.Record("42")
	rl.Record("42")

	lf := rl.load()
	if len(lf.RepliedTweetIDs) != 1 {
		t.Errorf("expected 1 entry after repeated records, got %d", len(lf.RepliedTweetIDs))
	}
}

func TestLedgerLastMentionIDIsNumericMax(t *testing.T) {
	rl := newTestLedger(t)

	rl.Record("900")
	rl.Record("1000")
	rl.Record("99") // numerically smaller, lexically larger than "1000"

	if got := rl.LastMentionID(); got != "1000" {
		t.Errorf("expected numeric max 1000, got %q", got)
	}
}

func TestLedgerPrunesNumericallySmallest(t *testing.T) {
	rl := newTestLedger(t)

	for i := 1; i <= maxLedgerEntries+10; i++ {
		rl.Record(fmt.Sprintf("%d", i))
	}

	lf := rl.load()
	if len(lf.RepliedTweetIDs) != maxLedgerEntries {
		t.Fatalf("expected cap %d, got %d", maxLedgerEntries, len(lf.RepliedTweetIDs))
	}
	if rl.HasReplied("5") {
		t.Error("expected numerically smallest ids to be pruned")
	}
	if !rl.HasReplied(fmt.Sprintf("%d", maxLedgerEntries+10)) {
		t.Error("expected largest id to survive pruning")
	}
}

func TestNumericLess(t *testing.T) {
	if !numericLess("99", "1000") {
		t.Error("99 should order before 1000 numerically")
	}
	if numericLess("1000", "99") {
		t.Error("1000 should not order before 99")
	}
	// Non-numeric ids fall back to string comparison.
	if !numericLess("abc", "abd") {
		t.Error("expected string fallback ordering")
	}
}
