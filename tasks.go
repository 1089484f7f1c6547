package main

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// TaskStatus is a point-in-time view of one auto task for status displays.
type TaskStatus struct {
	Enabled  bool
	Interval time.Duration
	LastRun  time.Time
}

type autoTask struct {
	enabled       bool
	interval      time.Duration
	lastRun       time.Time
	lastMentionID string // mentions task only
	repliedCount  int    // mentions task only
	gen           int    // bumped on every Start so a superseded loop exits
}

// textComposer is the slice of the AI client the auto tasks use.
type textComposer interface {
	Roast(t Trade) (string, error)
	Analyze(mode string) string
	MentionReply(tweetText, authorUsername string) (string, error)
}

// xSurface is the slice of the X client the auto tasks use.
type xSurface interface {
	PostToCommunity(text string) (string, error)
	ReplyToTweet(tweetID, text string) (string, error)
	FetchMentions(sinceID string) ([]Mention, error)
	Me() (string, string, error)
}

// TaskManager runs the autonomous behaviors: periodic roasts, periodic
// analyses, and the mention-reply loop. Each task is one goroutine that
// re-checks its enabled flag every wake-up.
type TaskManager struct {
	mu      sync.Mutex
	state   *MonitorState
	ai      textComposer
	x       xSurface
	ledger  *ReplyLedger
	actions *ActionLog

	// notify delivers operator-facing messages (Telegram). Optional.
	notify func(string)

	tasks map[string]*autoTask
}

func NewTaskManager(state *MonitorState, ai textComposer, x xSurface, ledger *ReplyLedger, actions *ActionLog) *TaskManager {
	return &TaskManager{
		state:   state,
		ai:      ai,
		x:       x,
		ledger:  ledger,
		actions: actions,
		tasks: map[string]*autoTask{
			"roast":    {},
			"analyze":  {},
			"mentions": {},
		},
	}
}

// SetNotifier wires the Telegram alert sink after the bot is constructed.
func (tm *TaskManager) SetNotifier(fn func(string)) {
	tm.notify = fn
}

// Start enables a task with the given interval, superseding any running
// instance of the same task.
func (tm *TaskManager) Start(name string, interval time.Duration) bool {
	tm.mu.Lock()
	task, ok := tm.tasks[name]
	if !ok {
		tm.mu.Unlock()
		return false
	}
	task.enabled = true
	task.interval = interval
	task.gen++
	gen := task.gen
	tm.mu.Unlock()

	switch name {
	case "roast":
		go tm.roastLoop(gen)
	case "analyze":
		go tm.analyzeLoop(gen)
	case "mentions":
		go tm.mentionsLoop(gen)
	}
	return true
}

// Stop disables a task. The goroutine notices on its next wake-up.
func (tm *TaskManager) Stop(name string) bool {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	task, ok := tm.tasks[name]
	if !ok {
		return false
	}
	task.enabled = false
	task.interval = 0
	return true
}

// StopAll disables every task.
func (tm *TaskManager) StopAll() {
	for name := range tm.tasks {
		tm.Stop(name)
	}
}

// Status reports the current task states keyed by task name.
func (tm *TaskManager) Status() map[string]TaskStatus {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	out := make(map[string]TaskStatus, len(tm.tasks))
	for name, task := range tm.tasks {
		out[name] = TaskStatus{Enabled: task.enabled, Interval: task.interval, LastRun: task.lastRun}
	}
	return out
}

// alive reports whether the loop generation is still the active one and
// the task remains enabled, and returns the configured interval.
func (tm *TaskManager) alive(name string, gen int) (bool, time.Duration) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	task := tm.tasks[name]
	return task.enabled && task.gen == gen, task.interval
}

func (tm *TaskManager) markRun(name string) {
	tm.mu.Lock()
	tm.tasks[name].lastRun = time.Now()
	tm.mu.Unlock()
}

func (tm *TaskManager) roastLoop(gen int) {
	log.Info("🔥 Auto-roast task started")
	for {
		ok, interval := tm.alive("roast", gen)
		if !ok {
			log.Info("🔥 Auto-roast task stopped")
			return
		}
		if interval <= 0 {
			time.Sleep(time.Second)
			continue
		}

		tm.roastOnce()
		tm.markRun("roast")
		time.Sleep(interval)
	}
}

func (tm *TaskManager) roastOnce() {
	if tm.ai == nil || tm.x == nil {
		return
	}
	sells := tm.state.SellTrades()
	if len(sells) == 0 {
		return
	}
	target := sells[rand.Intn(len(sells))]
	wallet := target.User

	roast, err := tm.ai.Roast(target)
	if err != nil {
		log.Errorf("Error generating auto-roast: %v", err)
		return
	}

	suffix := fmt.Sprintf("\n\n`%s`", walletTag(wallet))
	tweet := roast + suffix
	if len([]rune(tweet)) > 280 {
		maxLen := 280 - len([]rune(suffix)) - 3
		roast = string([]rune(roast)[:maxLen]) + "..."
		tweet = roast + suffix
	}

	tweetID, err := tm.x.PostToCommunity(tweet)
	if err != nil {
		log.Errorf("Error posting auto-roast to X: %v", err)
		tm.actions.Log("auto_roast_error", fmt.Sprintf("Failed to post roast: %v", err), map[string]interface{}{
			"wallet": wallet,
			"error":  err.Error(),
		})
		return
	}

	tm.actions.Log("auto_roast", fmt.Sprintf("Posted roast for %.8s...", wallet), map[string]interface{}{
		"wallet":     wallet,
		"roast_text": roast,
		"tweet_id":   tweetID,
		"volume_usd": target.VolumeUSD,
	})
	log.Infof("✅ Auto-roast posted: %s", tweetID)
}

func (tm *TaskManager) analyzeLoop(gen int) {
	log.Info("📊 Auto-analyze task started")
	for {
		ok, interval := tm.alive("analyze", gen)
		if !ok {
			log.Info("📊 Auto-analyze task stopped")
			return
		}
		if interval <= 0 {
			time.Sleep(time.Second)
			continue
		}

		tm.analyzeOnce()
		tm.markRun("analyze")
		time.Sleep(interval)
	}
}

func (tm *TaskManager) analyzeOnce() {
	if tm.ai == nil || tm.x == nil {
		return
	}
	mode := tm.state.AnalysisMode()
	analysis := tm.ai.Analyze(mode)

	modeEmoji := "⚡"
	if mode == "long" {
		modeEmoji = "📝"
	}
	tweet := modeEmoji + " " + analysis
	if len([]rune(tweet)) > 280 {
		maxLen := 280 - len([]rune(modeEmoji+" ")) - 3
		analysis = string([]rune(analysis)[:maxLen]) + "..."
		tweet = modeEmoji + " " + analysis
	}

	tweetID, err := tm.x.PostToCommunity(tweet)
	if err != nil {
		log.Errorf("Error posting auto-analysis to X: %v", err)
		tm.actions.Log("auto_analyze_error", fmt.Sprintf("Failed to post analysis: %v", err), map[string]interface{}{
			"mode":  mode,
			"error": err.Error(),
		})
		return
	}

	tm.actions.Log("auto_analyze", fmt.Sprintf("Posted analysis (%s)", mode), map[string]interface{}{
		"mode":          mode,
		"analysis_text": analysis,
		"tweet_id":      tweetID,
	})
	log.Infof("✅ Auto-analysis posted: %s", tweetID)
}

func (tm *TaskManager) mentionsLoop(gen int) {
	log.Info("🔔 Auto-mentions task started")
	for {
		ok, interval := tm.alive("mentions", gen)
		if !ok {
			log.Info("🔕 Auto-mentions task stopped")
			return
		}
		if interval <= 0 {
			interval = 60 * time.Second
		}

		if err := tm.mentionsOnce(); err != nil {
			log.Errorf("Error in auto-mentions task: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}
		tm.markRun("mentions")
		time.Sleep(interval)
	}
}

// ProcessMentions runs one mention sweep. Exported path for the manual
// /mentions command; the auto loop uses the same sweep.
func (tm *TaskManager) ProcessMentions() (int, error) {
	before := tm.repliedSoFar()
	if err := tm.mentionsOnce(); err != nil {
		return 0, err
	}
	return tm.repliedSoFar() - before, nil
}

func (tm *TaskManager) repliedSoFar() int {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	return tm.tasks["mentions"].repliedCount
}

func (tm *TaskManager) mentionsOnce() error {
	if tm.ai == nil || tm.x == nil {
		return fmt.Errorf("x posting not configured")
	}
	tm.mu.Lock()
	sinceID := tm.tasks["mentions"].lastMentionID
	tm.mu.Unlock()
	if sinceID == "" {
		sinceID = tm.ledger.LastMentionID()
	}

	mentions, err := tm.x.FetchMentions(sinceID)
	if err != nil {
		return err
	}

	_, selfUsername, _ := tm.x.Me()

	// Oldest first so replies land in conversation order.
	for i := len(mentions) - 1; i >= 0; i-- {
		m := mentions[i]

		if strings.EqualFold(m.AuthorUsername, selfUsername) {
			continue
		}
		if tm.ledger.HasReplied(m.ID) {
			log.Infof("⏭️ Already replied to tweet %s from @%s, skipping", m.ID, m.AuthorUsername)
			continue
		}

		log.Infof("📩 Processing mention from @%s: %.50s...", m.AuthorUsername, m.Text)

		reply, err := tm.ai.MentionReply(m.Text, m.AuthorUsername)
		if err == nil && reply != "" {
			replyID, err := tm.x.ReplyToTweet(m.ID, reply)
			if err != nil {
				log.Errorf("Failed to post reply: %v", err)
			} else {
				tm.actions.Log("mention_reply", fmt.Sprintf("Replied to @%s", m.AuthorUsername), map[string]interface{}{
					"original_tweet_id": m.ID,
					"original_text":     firstN(m.Text, 100),
					"reply_text":        reply,
					"reply_tweet_id":    replyID,
				})

				if tm.notify != nil {
					tm.notify(fmt.Sprintf(
						"💬 *Mention Reply Sent*\n\n📩 From: @%s\n📝 Original: %s\n\n🤖 Reply: %s\n\n🔗 [View Tweet](https://x.com/%s/status/%s)",
						m.AuthorUsername, firstN(m.Text, 80), reply, selfUsername, replyID))
				}

				tm.ledger.Record(m.ID)
				tm.mu.Lock()
				tm.tasks["mentions"].repliedCount++
				tm.mu.Unlock()
				log.Infof("✅ Replied to @%s: %s", m.AuthorUsername, reply)
			}

			// Spacing between posts to stay under rate limits. Skipped
			// mentions cost no API write, so they take no pause.
			time.Sleep(2 * time.Second)
		}

		tm.mu.Lock()
		tm.tasks["mentions"].lastMentionID = m.ID
		tm.mu.Unlock()
	}
	return nil
}

func walletTag(wallet string) string {
	if len(wallet) <= 16 {
		return wallet
	}
	return wallet[:8] + "..." + wallet[len(wallet)-8:]
}

func firstN(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
