package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"StakePool/internal/model"
	"StakePool/internal/notifier"
	"StakePool/internal/recorder"

	"github.com/holiman/uint256"
	"github.com/robfig/cron/v3"
)

// PoolView is the read side of the staking pool the scheduler reports on.
type PoolView interface {
	Snapshot() *model.PoolSnapshot
	Params() model.PoolParams
	Account(addr model.Address) (*model.Account, bool)
	PendingReward(addr model.Address) (*uint256.Int, error)
}

// Notifier delivers formatted messages.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// Scheduler manages all cron tasks and the chat command surface.
type Scheduler struct {
	Cron     *cron.Cron
	Pool     PoolView
	Notifier Notifier // nil disables outgoing messages
	Recorder recorder.Recorder
	Ctx      context.Context

	// NotifyEvents forwards every committed ledger event to the notifier.
	NotifyEvents bool
	Now          func() time.Time

	sends sync.WaitGroup
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, pool PoolView, n Notifier, rec recorder.Recorder) *Scheduler {
	if rec == nil {
		rec = recorder.NewNoopRecorder()
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds()),
		Pool:     pool,
		Notifier: n,
		Recorder: rec,
		Ctx:      ctx,
		Now:      time.Now,
	}
}

// RegisterAll registers the report and snapshot tasks. An empty spec skips the task.
func (s *Scheduler) RegisterAll(reportCron, snapshotCron string) error {
	if reportCron != "" {
		if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
			return fmt.Errorf("register report task: %w", err)
		}
	}
	if snapshotCron != "" {
		if _, err := s.Cron.AddFunc(snapshotCron, func() { s.snapshotTask() }); err != nil {
			return fmt.Errorf("register snapshot task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs and pending sends.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	s.sends.Wait()
	log.Println("[INFO] scheduler stopped")
}

// RunReportNow executes the report task immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunReportNow() {
	s.reportTask()
}

func (s *Scheduler) reportTask() {
	log.Println("[INFO] running pool report")
	snap := s.snapshotTask()
	s.trySend(notifier.FormatReport(snap))
}

func (s *Scheduler) snapshotTask() *model.PoolSnapshot {
	snap := s.Pool.Snapshot()
	if err := s.Recorder.RecordSnapshot(snap); err != nil {
		log.Printf("[ERROR] record snapshot: %v", err)
	}
	return snap
}

// HandleEvent records a committed ledger event and, when enabled, announces it.
// The announcement is sent in the background; Stop waits for it.
func (s *Scheduler) HandleEvent(evt model.LedgerEvent) {
	if err := s.Recorder.RecordEvent(&evt); err != nil {
		log.Printf("[ERROR] record event %s: %v", evt.ID, err)
	}
	if !s.NotifyEvents || s.Notifier == nil {
		return
	}
	text := notifier.FormatEvent(evt, s.Pool.Params())
	s.sends.Add(1)
	go func() {
		defer s.sends.Done()
		s.trySend(text)
	}()
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return helpText
	}
	switch fields[0] {
	case "/pool":
		return notifier.FormatPoolStatus(s.Pool.Snapshot())
	case "/report":
		s.reportTask()
		return ""
	case "/account":
		if len(fields) < 2 {
			return "usage: /account <address>"
		}
		return s.accountReply(model.Address(fields[1]))
	case "/history":
		if len(fields) < 2 {
			return "usage: /history <address>"
		}
		return s.historyReply(model.Address(fields[1]))
	default:
		return helpText
	}
}

const helpText = "Available commands:\n• /pool\n• /report\n• /account &lt;address&gt;\n• /history &lt;address&gt;"

// Commands lists the chat commands HandleCommand understands.
func (s *Scheduler) Commands() []notifier.BotCommand {
	return []notifier.BotCommand{
		{Command: "pool", Description: "Pool totals and parameters"},
		{Command: "report", Description: "Send the pool report now"},
		{Command: "account", Description: "Position of an address"},
		{Command: "history", Description: "Last operations of an address"},
	}
}

func (s *Scheduler) accountReply(addr model.Address) string {
	acc, ok := s.Pool.Account(addr)
	if !ok {
		return fmt.Sprintf("No position for %s", addr)
	}
	pending, err := s.Pool.PendingReward(addr)
	if err != nil {
		log.Printf("[WARN] pending reward for %s: %v", addr, err)
		pending = acc.RewardAccrued
	}
	return notifier.FormatAccount(acc, pending, s.Pool.Params(), s.Now())
}

func (s *Scheduler) historyReply(addr model.Address) string {
	events, err := s.Recorder.History(addr, 10)
	if err != nil {
		log.Printf("[ERROR] load history for %s: %v", addr, err)
		return "History is unavailable right now"
	}
	if len(events) == 0 {
		return fmt.Sprintf("No history for %s", addr)
	}
	params := s.Pool.Params()
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🧾 <b>%s</b> last %d operations\n\n", addr, len(events)))
	for _, evt := range events {
		b.WriteString(fmt.Sprintf("%s %s\n", evt.Timestamp.Format("01-02 15:04"), notifier.FormatEvent(evt, params)))
	}
	return b.String()
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
