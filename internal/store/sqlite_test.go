package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/domain"
)

func openTestRepo(t *testing.T) *SQLiteRepo {
	t.Helper()
	repo, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestUpsertUser_PreservesTimezoneAndPartners(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	require.NoError(t, repo.UpsertUser(ctx, &domain.User{UserID: 1, Username: "alice", FullName: "Alice A"}))
	require.NoError(t, repo.SetUserTimezone(ctx, 1, "GMT+3"))
	require.NoError(t, repo.AddPartner(ctx, 1, 77))

	// A later message with a changed username must not wipe tz or partners.
	require.NoError(t, repo.UpsertUser(ctx, &domain.User{UserID: 1, Username: "alice2", FullName: "Alice B"}))

	u, err := repo.GetUser(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "alice2", u.Username)
	require.Equal(t, "Alice B", u.FullName)
	require.Equal(t, "GMT+3", u.Timezone)
	require.Equal(t, []int64{77}, u.Partners)
}

func TestAddPartner_IgnoresDuplicates(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	require.NoError(t, repo.UpsertUser(ctx, &domain.User{UserID: 1}))
	require.NoError(t, repo.AddPartner(ctx, 1, 77))
	require.NoError(t, repo.AddPartner(ctx, 1, 77))

	u, err := repo.GetUser(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []int64{77}, u.Partners)
}

func TestGetUser_NotFound(t *testing.T) {
	repo := openTestRepo(t)
	_, err := repo.GetUser(context.Background(), 404)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertSchedule_Overwrites(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	require.NoError(t, repo.UpsertSchedule(ctx, 1, domain.FourTimes, domain.PresetTimes[domain.FourTimes]))
	require.NoError(t, repo.UpsertSchedule(ctx, 1, domain.TwoTimes, domain.PresetTimes[domain.TwoTimes]))

	sch, err := repo.GetSchedule(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, domain.TwoTimes, sch.Type)
	require.Equal(t, []string{"08:00", "20:00"}, sch.Times)

	all, err := repo.ListSchedules(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestQueryFeedings_WindowAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	base := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		_, err := repo.InsertFeeding(ctx, &domain.Feeding{
			UserID:       1,
			Timestamp:    base.AddDate(0, 0, i),
			ScheduleType: domain.TwoTimes,
		})
		require.NoError(t, err)
	}
	_, err := repo.InsertFeeding(ctx, &domain.Feeding{UserID: 2, Timestamp: base})
	require.NoError(t, err)

	all, err := repo.QueryFeedings(ctx, 1, nil, nil, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.True(t, all[0].Timestamp.After(all[2].Timestamp), "newest first")

	start := base.AddDate(0, 0, 1)
	end := base.AddDate(0, 0, 1)
	window, err := repo.QueryFeedings(ctx, 1, &start, &end, 10)
	require.NoError(t, err)
	require.Len(t, window, 1)
	require.Equal(t, start, window[0].Timestamp)
}

func TestMarkPartnersNotified(t *testing.T) {
	ctx := context.Background()
	repo := openTestRepo(t)

	id, err := repo.InsertFeeding(ctx, &domain.Feeding{UserID: 1, Timestamp: time.Now()})
	require.NoError(t, err)

	require.NoError(t, repo.MarkPartnersNotified(ctx, id, []int64{5, 6}))
	require.NoError(t, repo.MarkPartnersNotified(ctx, id, []int64{6, 7}))

	feedings, err := repo.QueryFeedings(ctx, 1, nil, nil, 1)
	require.NoError(t, err)
	require.Len(t, feedings, 1)
	require.Equal(t, []int64{5, 6, 7}, feedings[0].PartnersNotified)

	require.ErrorIs(t, repo.MarkPartnersNotified(ctx, 9999, []int64{1}), ErrNotFound)
}
