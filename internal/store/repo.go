package store

import (
	"context"
	"errors"
	"time"

	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Repo defines storage operations for users, schedules and feedings.
type Repo interface {
	// UpsertUser creates the user or refreshes identity fields (username,
	// full name, updated_at). Timezone, partners and created_at are
	// preserved on update.
	UpsertUser(ctx context.Context, u *domain.User) error
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
	SetUserTimezone(ctx context.Context, userID int64, timezone string) error
	AddPartner(ctx context.Context, userID, partnerID int64) error
	ListUsers(ctx context.Context, limit int) ([]domain.User, error)

	// UpsertSchedule overwrites the user's schedule wholesale.
	UpsertSchedule(ctx context.Context, userID int64, typ domain.ScheduleType, times []string) error
	GetSchedule(ctx context.Context, userID int64) (*domain.Schedule, error)
	ListSchedules(ctx context.Context) ([]domain.Schedule, error)

	InsertFeeding(ctx context.Context, f *domain.Feeding) (int64, error)
	QueryFeedings(ctx context.Context, userID int64, start, end *time.Time, limit int) ([]domain.Feeding, error)
	MarkPartnersNotified(ctx context.Context, feedingID int64, partnerIDs []int64) error

	Close() error
}
