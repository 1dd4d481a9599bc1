package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jmhodges/clock"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/domain"
)

// ErrNoTimezone is returned when a recurring reminder is requested for a
// user without a configured timezone. The setup flow must guarantee one
// exists before calling SetRecurring.
var ErrNoTimezone = errors.New("timezone is required for recurring reminders")

// FireFunc is invoked when a reminder job triggers.
type FireFunc func(chatID int64, rescheduleIfMissed bool)

// Job is a snapshot of one registered trigger.
type Job struct {
	ID     string
	ChatID int64
}

// Scheduler owns the reminder job registry: daily recurring triggers backed
// by cron and one-shot follow-ups backed by timers, all keyed by
// deterministic job ids so re-registration replaces instead of duplicating.
type Scheduler struct {
	log *zap.Logger
	clk clock.Clock

	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	timers  map[string]*clock.Timer
	args    map[string]int64 // job id -> chat id, mirrors the job's call args
	fire    FireFunc
}

// New creates a stopped scheduler. Cron runs in UTC; local times are
// converted at registration.
func New(log *zap.Logger, clk clock.Clock) *Scheduler {
	return &Scheduler{
		log:     log,
		clk:     clk,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		entries: map[string]cron.EntryID{},
		timers:  map[string]*clock.Timer{},
		args:    map[string]int64{},
	}
}

// Bind sets the callback fired by triggers. Construction order requires a
// late bind: the dialogue flow needs the scheduler for follow-ups and the
// scheduler needs the flow to fire.
func (s *Scheduler) Bind(fire FireFunc) {
	s.mu.Lock()
	s.fire = fire
	s.mu.Unlock()
}

// Start begins firing cron entries.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts cron (waiting for running jobs) and cancels pending one-shots.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
		delete(s.args, id)
	}
	s.log.Info("scheduler stopped")
}

// RecurringJobID derives the deterministic id for a daily reminder slot.
// The id embeds the local time, so the same logical slot maps to the same
// id even when the user's timezone later changes.
func RecurringJobID(chatID int64, localHour, localMinute int) string {
	return fmt.Sprintf("feed_%d_%s", chatID, domain.FormatHHMM(localHour, localMinute))
}

// OneShotJobID derives the deterministic id for a follow-up at a UTC instant.
func OneShotJobID(chatID int64, at time.Time) string {
	return fmt.Sprintf("followup_%d_%s", chatID, at.UTC().Format("20060102_1504"))
}

func chatToken(chatID int64) string {
	return fmt.Sprintf("_%d_", chatID)
}

// SetRecurring registers (or replaces) a daily reminder at the user's local
// hour:minute. The timezone is mandatory; an unparsable offset is logged
// and the local time is used as-is, so the reminder still fires, just in
// server time.
func (s *Scheduler) SetRecurring(chatID int64, localHour, localMinute int, timezone string) error {
	if strings.TrimSpace(timezone) == "" {
		return ErrNoTimezone
	}
	gmtHour, gmtMinute, ok := domain.ToGMT(localHour, localMinute, timezone)
	if !ok {
		s.log.Warn("unparsable timezone offset, scheduling in server time",
			zap.Int64("chatID", chatID),
			zap.String("timezone", timezone))
	}

	id := RecurringJobID(chatID, localHour, localMinute)
	spec := fmt.Sprintf("%d %d * * *", gmtMinute, gmtHour)

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, exists := s.entries[id]; exists {
		s.cron.Remove(old)
	}
	entryID, err := s.cron.AddFunc(spec, func() {
		s.dispatch(chatID, true)
	})
	if err != nil {
		return fmt.Errorf("add recurring job %s: %w", id, err)
	}
	s.entries[id] = entryID
	s.args[id] = chatID

	s.log.Info("recurring reminder registered",
		zap.String("job", id),
		zap.String("gmt", domain.FormatHHMM(gmtHour, gmtMinute)))
	return nil
}

// SetOneShot registers (or replaces) a single-fire follow-up at the given
// UTC instant and returns its job id.
func (s *Scheduler) SetOneShot(chatID int64, at time.Time) string {
	id := OneShotJobID(chatID, at)
	delay := at.Sub(s.clk.Now())
	if delay < 0 {
		delay = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, exists := s.timers[id]; exists {
		old.Stop()
	}
	t := s.clk.NewTimer(delay)
	s.timers[id] = t
	go func() {
		<-t.C
		s.mu.Lock()
		delete(s.timers, id)
		delete(s.args, id)
		s.mu.Unlock()
		s.dispatch(chatID, true)
	}()
	s.args[id] = chatID

	s.log.Info("follow-up reminder registered",
		zap.String("job", id),
		zap.Time("at", at.UTC()))
	return id
}

// ClearChat removes every job whose id contains the chat's delimited token.
// Schedule changes always go clear-then-recreate, never incremental edits.
// A job that references the chat in its args but not in its id is a
// consistency violation: it is logged and removed anyway. Returns the
// number of jobs removed.
func (s *Scheduler) ClearChat(chatID int64) int {
	token := chatToken(chatID)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, entryID := range s.entries {
		if !s.ownedLocked(id, token, chatID) {
			continue
		}
		s.cron.Remove(entryID)
		delete(s.entries, id)
		delete(s.args, id)
		removed++
	}
	for id, t := range s.timers {
		if !s.ownedLocked(id, token, chatID) {
			continue
		}
		t.Stop()
		delete(s.timers, id)
		delete(s.args, id)
		removed++
	}
	if removed > 0 {
		s.log.Info("cleared reminder jobs", zap.Int64("chatID", chatID), zap.Int("removed", removed))
	}
	return removed
}

func (s *Scheduler) ownedLocked(id, token string, chatID int64) bool {
	if strings.Contains(id, token) {
		return true
	}
	if s.args[id] == chatID {
		s.log.Warn("job references chat in args but not in id, removing",
			zap.String("job", id),
			zap.Int64("chatID", chatID))
		return true
	}
	return false
}

// Jobs returns a snapshot of all registered jobs, sorted by id.
func (s *Scheduler) Jobs() []Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	jobs := make([]Job, 0, len(s.entries)+len(s.timers))
	for id := range s.entries {
		jobs = append(jobs, Job{ID: id, ChatID: s.args[id]})
	}
	for id := range s.timers {
		jobs = append(jobs, Job{ID: id, ChatID: s.args[id]})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	return jobs
}

func (s *Scheduler) dispatch(chatID int64, rescheduleIfMissed bool) {
	s.mu.Lock()
	fire := s.fire
	s.mu.Unlock()
	if fire == nil {
		s.log.Error("reminder fired with no handler bound", zap.Int64("chatID", chatID))
		return
	}
	fire(chatID, rescheduleIfMissed)
}
