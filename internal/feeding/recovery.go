package feeding

import (
	"context"

	"go.uber.org/zap"

	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/domain"
)

// Restore re-creates recurring jobs for every persisted schedule after a
// restart. Recovery is best effort: a user without a timezone is skipped
// with a warning (their schedule stays dormant until they set one), and a
// bad time entry never aborts the remaining entries or other users.
func (s *Service) Restore(ctx context.Context) {
	schedules, err := s.repo.ListSchedules(ctx)
	if err != nil {
		s.log.Error("schedule recovery failed to list schedules", zap.Error(err))
		return
	}

	restored := 0
	for _, sch := range schedules {
		user, err := s.repo.GetUser(ctx, sch.UserID)
		if err != nil {
			s.log.Warn("schedule owner lookup failed, skipping",
				zap.Int64("userID", sch.UserID), zap.Error(err))
			continue
		}
		if user.Timezone == "" {
			s.log.Warn("user has schedule but no timezone set, skipping",
				zap.Int64("userID", sch.UserID))
			continue
		}

		for _, t := range sch.Times {
			hour, minute, err := domain.ParseHHMM(t)
			if err != nil {
				s.log.Error("malformed schedule time, skipping entry",
					zap.Int64("userID", sch.UserID), zap.String("time", t), zap.Error(err))
				continue
			}
			if err := s.sched.SetRecurring(sch.UserID, hour, minute, user.Timezone); err != nil {
				s.log.Error("failed to restore reminder",
					zap.Int64("userID", sch.UserID), zap.String("time", t), zap.Error(err))
				continue
			}
			restored++
			s.log.Info("restored reminder",
				zap.Int64("userID", sch.UserID),
				zap.String("time", t),
				zap.String("timezone", user.Timezone))
		}
	}
	s.log.Info("schedule recovery complete", zap.Int("jobs", restored))
}
