package main

import (
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const maxLedgerEntries = 1000

// ReplyLedger is the durable record of tweet ids already replied to, plus
// the highest-seen mention id for incremental polling.
type ReplyLedger struct {
	mu   sync.Mutex
	path string
}

type ledgerFile struct {
	RepliedTweetIDs []string `json:"replied_tweet_ids"`
	LastMentionID   string   `json:"last_mention_id,omitempty"`
	LastUpdated     string   `json:"last_updated"`
}

func NewReplyLedger(path string) *ReplyLedger {
	return &ReplyLedger{path: path}
}

func (rl *ReplyLedger) load() ledgerFile {
	data, err := os.ReadFile(rl.path)
	if err != nil {
		return ledgerFile{}
	}
	var lf ledgerFile
	if err := json.Unmarshal(data, &lf); err != nil {
		log.Warn("⚠️ Corrupted replied_tweets file, resetting")
		return ledgerFile{}
	}
	return lf
}

// HasReplied reports whether the tweet id is already ledgered.
func (rl *ReplyLedger) HasReplied(tweetID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for _, id := range rl.load().RepliedTweetIDs {
		if id == tweetID {
			return true
		}
	}
	return false
}

// LastMentionID returns the highest mention id ever recorded, or "".
func (rl *ReplyLedger) LastMentionID() string {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.load().LastMentionID
}

// Record adds a replied tweet id, prunes the set to the 1000 numerically
// largest ids, advances last_mention_id if this id is newer, and rewrites
// the file.
func (rl *ReplyLedger) Record(tweetID string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	lf := rl.load()

	seen := false
	for _, id := range lf.RepliedTweetIDs {
		if id == tweetID {
			seen = true
			break
		}
	}
	if !seen {
		lf.RepliedTweetIDs = append(lf.RepliedTweetIDs, tweetID)
	}

	if len(lf.RepliedTweetIDs) > maxLedgerEntries {
		// Prune the numerically smallest ids, keeping the most recent.
		sort.Slice(lf.RepliedTweetIDs, func(i, j int) bool {
			return numericLess(lf.RepliedTweetIDs[i], lf.RepliedTweetIDs[j])
		})
		lf.RepliedTweetIDs = lf.RepliedTweetIDs[len(lf.RepliedTweetIDs)-maxLedgerEntries:]
	}

	if lf.LastMentionID == "" || numericLess(lf.LastMentionID, tweetID) {
		lf.LastMentionID = tweetID
	}
	lf.LastUpdated = time.Now().Format(time.RFC3339)

	data, err := json.MarshalIndent(lf, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(rl.path, data, 0644); err != nil {
		log.Warnf("⚠️ Failed to write replied_tweets file: %v", err)
		return
	}
	log.Infof("📝 Saved replied tweet ID: %s", tweetID)
}

// numericLess compares tweet ids as integers, falling back to string order
// for ids that don't parse.
func numericLess(a, b string) bool {
	ai, errA := strconv.ParseUint(a, 10, 64)
	bi, errB := strconv.ParseUint(b, 10, 64)
	if errA != nil || errB != nil {
		return a < b
	}
	return ai < bi
}
