package feeding

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/jmhodges/clock"
	"go.uber.org/zap"

	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/domain"
	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/scheduler"
	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/store"
)

const (
	questionText  = "Time to feed your cat! Did you?"
	timeoutText   = "Time's up!"
	remindText    = " Will remind again in 1 hour."
	noPhotoRemark = "\nNo photo though? :("

	askTimeout    = 300 * time.Second
	followupDelay = time.Hour
)

// ErrTimeout is returned by Asker implementations when the user did not
// reply in time.
var ErrTimeout = errors.New("no reply before timeout")

// Reply is one inbound message delivered to a waiting ask.
type Reply struct {
	UserID  int64
	Text    string
	PhotoID string
	VideoID string
}

// Asker is the slice of the chat transport the flow needs: send a text,
// or ask a question and block until a reply or timeout.
type Asker interface {
	Send(chatID int64, text string) error
	Ask(ctx context.Context, chatID int64, question string, timeout time.Duration) (*Reply, error)
}

// Options control a single reminder firing.
type Options struct {
	// RescheduleIfMissed creates a one-hour follow-up when the ask times
	// out. True for regular firings, false for the post-setup preview.
	RescheduleIfMissed bool
	// LogFeeding persists a Feeding event on confirmation. False for the
	// preview, which must not count as a real feeding.
	LogFeeding bool
}

// Service drives the reminder dialogue (ask, wait, branch) and owns
// schedule orchestration: apply, stop, restore.
type Service struct {
	repo      store.Repo
	sched     *scheduler.Scheduler
	asker     Asker
	log       *zap.Logger
	clk       clock.Clock
	responses []string
}

// New wires the flow. The responses slice is the success-message pool;
// it must be non-empty.
func New(repo store.Repo, sched *scheduler.Scheduler, asker Asker, log *zap.Logger, clk clock.Clock, responses []string) *Service {
	return &Service{
		repo:      repo,
		sched:     sched,
		asker:     asker,
		log:       log,
		clk:       clk,
		responses: responses,
	}
}

// FireHandler adapts the flow into the scheduler's callback.
func (s *Service) FireHandler() scheduler.FireFunc {
	return func(chatID int64, rescheduleIfMissed bool) {
		s.RunReminder(context.Background(), chatID, Options{
			RescheduleIfMissed: rescheduleIfMissed,
			LogFeeding:         true,
		})
	}
}

// RunReminder runs one firing: ask the feeding question, then either
// register the feeding (reply arrived) or send the time's-up notice and,
// when requested, schedule a follow-up one hour out.
func (s *Service) RunReminder(ctx context.Context, chatID int64, opts Options) {
	reply, err := s.asker.Ask(ctx, chatID, questionText, askTimeout)
	switch {
	case err == nil && reply != nil:
		text, regErr := s.RegisterFeeding(ctx, chatID, reply, opts.LogFeeding)
		if regErr != nil {
			s.log.Error("register feeding failed", zap.Error(regErr), zap.Int64("chatID", chatID))
		}
		if sendErr := s.asker.Send(chatID, text); sendErr != nil {
			s.log.Error("send reply failed", zap.Error(sendErr), zap.Int64("chatID", chatID))
		}

	case errors.Is(err, ErrTimeout):
		text := timeoutText
		if opts.RescheduleIfMissed {
			text += remindText
			s.sched.SetOneShot(chatID, s.clk.Now().Add(followupDelay))
		}
		if sendErr := s.asker.Send(chatID, text); sendErr != nil {
			s.log.Error("send timeout notice failed", zap.Error(sendErr), zap.Int64("chatID", chatID))
		}

	default:
		// Shutdown or transport failure; the next firing will try again.
		s.log.Warn("reminder ask aborted", zap.Error(err), zap.Int64("chatID", chatID))
	}
}

// RegisterFeeding builds the success reply for a confirmed feeding and,
// unless suppressed, persists the Feeding event with the schedule type
// active at logging time. Any non-empty reply counts as confirmation.
func (s *Service) RegisterFeeding(ctx context.Context, chatID int64, reply *Reply, logFeeding bool) (string, error) {
	scheduleType := domain.Manual
	if sch, err := s.repo.GetSchedule(ctx, chatID); err == nil {
		scheduleType = sch.Type
	} else if !errors.Is(err, store.ErrNotFound) {
		s.log.Warn("get schedule failed, logging as manual", zap.Error(err), zap.Int64("chatID", chatID))
	}

	text := s.responses[rand.Intn(len(s.responses))]
	if reply.PhotoID == "" && reply.VideoID == "" {
		text += noPhotoRemark
	}

	if !logFeeding {
		return text, nil
	}
	_, err := s.repo.InsertFeeding(ctx, &domain.Feeding{
		UserID:       chatID,
		Timestamp:    s.clk.Now().UTC(),
		ScheduleType: scheduleType,
		PhotoID:      reply.PhotoID,
		VideoID:      reply.VideoID,
	})
	if err != nil {
		return text, err
	}
	return text, nil
}

// ApplySchedule replaces the user's schedule wholesale: clear existing
// jobs, persist the new schedule, register one recurring job per local
// time. The user must already have a timezone.
func (s *Service) ApplySchedule(ctx context.Context, userID int64, typ domain.ScheduleType) ([]string, error) {
	times := domain.PresetTimes[typ]
	sch := domain.Schedule{UserID: userID, Type: typ, Times: times}
	if err := sch.Validate(); err != nil {
		return nil, err
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Timezone == "" {
		return nil, scheduler.ErrNoTimezone
	}

	s.sched.ClearChat(userID)
	if err := s.repo.UpsertSchedule(ctx, userID, typ, times); err != nil {
		return nil, err
	}
	for _, t := range times {
		hour, minute, err := domain.ParseHHMM(t)
		if err != nil {
			return nil, err
		}
		if err := s.sched.SetRecurring(userID, hour, minute, user.Timezone); err != nil {
			return nil, err
		}
	}

	s.log.Info("schedule applied",
		zap.Int64("userID", userID),
		zap.String("type", string(typ)),
		zap.Strings("times", times),
		zap.String("timezone", user.Timezone))
	return times, nil
}

// StopSchedule removes the user's jobs and records the stopped state.
func (s *Service) StopSchedule(ctx context.Context, userID int64) error {
	s.sched.ClearChat(userID)
	return s.repo.UpsertSchedule(ctx, userID, domain.Stopped, []string{})
}
