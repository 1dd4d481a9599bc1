package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/calmmage/simple-cat-feeding-reminder-bot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
type SQLiteRepo struct{ db *sql.DB }

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Reasonable pooling for SQLite; it's a single-writer engine.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// UpsertUser inserts the user or refreshes username, full name and
// updated_at. Timezone, partners and created_at survive updates, mirroring
// a set-on-insert upsert.
func (r *SQLiteRepo) UpsertUser(ctx context.Context, u *domain.User) error {
	if u == nil {
		return errors.New("nil user")
	}

	now := time.Now().UTC().Unix()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, username, full_name, timezone, partners, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username   = excluded.username,
			full_name  = excluded.full_name,
			updated_at = excluded.updated_at`,
		u.UserID, toNullString(u.Username), u.FullName,
		toNullString(u.Timezone), idsToJSON(u.Partners), now, now,
	)
	return err
}

// GetUser returns a user by id or ErrNotFound.
func (r *SQLiteRepo) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, username, full_name, timezone, partners, created_at, updated_at
		FROM users
		WHERE user_id = ?`,
		userID,
	)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		id        int64
		username  sql.NullString
		fullName  string
		timezone  sql.NullString
		partners  string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&id, &username, &fullName, &timezone, &partners, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &domain.User{
		UserID:    id,
		Username:  fromNullString(username),
		FullName:  fullName,
		Timezone:  fromNullString(timezone),
		Partners:  idsFromJSON(partners),
		CreatedAt: time.Unix(createdAt, 0).UTC(),
		UpdatedAt: time.Unix(updatedAt, 0).UTC(),
	}, nil
}

// SetUserTimezone stores the canonical GMT±HH:MM string for a user.
func (r *SQLiteRepo) SetUserTimezone(ctx context.Context, userID int64, timezone string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET timezone = ?, updated_at = ?
		WHERE user_id = ?`,
		timezone, time.Now().UTC().Unix(), userID,
	)
	return err
}

// AddPartner appends a partner id to the user's partner set, ignoring duplicates.
func (r *SQLiteRepo) AddPartner(ctx context.Context, userID, partnerID int64) error {
	u, err := r.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, p := range u.Partners {
		if p == partnerID {
			return nil
		}
	}
	partners := append(u.Partners, partnerID)
	_, err = r.db.ExecContext(ctx, `
		UPDATE users
		SET partners = ?, updated_at = ?
		WHERE user_id = ?`,
		idsToJSON(partners), time.Now().UTC().Unix(), userID,
	)
	return err
}

// ListUsers returns up to limit users, oldest first.
func (r *SQLiteRepo) ListUsers(ctx context.Context, limit int) ([]domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, username, full_name, timezone, partners, created_at, updated_at
		FROM users
		ORDER BY created_at ASC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.User
	for rows.Next() {
		var (
			id        int64
			username  sql.NullString
			fullName  string
			timezone  sql.NullString
			partners  string
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(&id, &username, &fullName, &timezone, &partners, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		res = append(res, domain.User{
			UserID:    id,
			Username:  fromNullString(username),
			FullName:  fullName,
			Timezone:  fromNullString(timezone),
			Partners:  idsFromJSON(partners),
			CreatedAt: time.Unix(createdAt, 0).UTC(),
			UpdatedAt: time.Unix(updatedAt, 0).UTC(),
		})
	}
	return res, rows.Err()
}

// UpsertSchedule overwrites the user's schedule wholesale.
func (r *SQLiteRepo) UpsertSchedule(ctx context.Context, userID int64, typ domain.ScheduleType, times []string) error {
	now := time.Now().UTC().Unix()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO schedules (user_id, type, times, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			type       = excluded.type,
			times      = excluded.times,
			updated_at = excluded.updated_at`,
		userID, string(typ), timesToJSON(times), now, now,
	)
	return err
}

// GetSchedule returns the user's schedule or ErrNotFound.
func (r *SQLiteRepo) GetSchedule(ctx context.Context, userID int64) (*domain.Schedule, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT user_id, type, times, created_at, updated_at
		FROM schedules
		WHERE user_id = ?`,
		userID,
	)
	var (
		id        int64
		typ       string
		times     string
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&id, &typ, &times, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &domain.Schedule{
		UserID:    id,
		Type:      domain.ScheduleType(typ),
		Times:     timesFromJSON(times),
		CreatedAt: time.Unix(createdAt, 0).UTC(),
		UpdatedAt: time.Unix(updatedAt, 0).UTC(),
	}, nil
}

// ListSchedules returns every stored schedule (startup recovery path).
func (r *SQLiteRepo) ListSchedules(ctx context.Context) ([]domain.Schedule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, type, times, created_at, updated_at
		FROM schedules`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Schedule
	for rows.Next() {
		var (
			id        int64
			typ       string
			times     string
			createdAt int64
			updatedAt int64
		)
		if err := rows.Scan(&id, &typ, &times, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		res = append(res, domain.Schedule{
			UserID:    id,
			Type:      domain.ScheduleType(typ),
			Times:     timesFromJSON(times),
			CreatedAt: time.Unix(createdAt, 0).UTC(),
			UpdatedAt: time.Unix(updatedAt, 0).UTC(),
		})
	}
	return res, rows.Err()
}

// InsertFeeding appends a feeding event and returns its id.
func (r *SQLiteRepo) InsertFeeding(ctx context.Context, f *domain.Feeding) (int64, error) {
	if f == nil {
		return 0, errors.New("nil feeding")
	}
	ts := f.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO feedings (user_id, ts, schedule_type, photo_id, video_id, partners_notified)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.UserID, ts.UTC().Unix(), string(f.ScheduleType),
		toNullString(f.PhotoID), toNullString(f.VideoID), idsToJSON(f.PartnersNotified),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// QueryFeedings returns the user's feedings newest first, optionally bounded
// by [start, end].
func (r *SQLiteRepo) QueryFeedings(ctx context.Context, userID int64, start, end *time.Time, limit int) ([]domain.Feeding, error) {
	q := `
		SELECT id, user_id, ts, schedule_type, photo_id, video_id, partners_notified
		FROM feedings
		WHERE user_id = ?`
	args := []any{userID}
	if start != nil {
		q += " AND ts >= ?"
		args = append(args, start.UTC().Unix())
	}
	if end != nil {
		q += " AND ts <= ?"
		args = append(args, end.UTC().Unix())
	}
	q += " ORDER BY ts DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []domain.Feeding
	for rows.Next() {
		var (
			id       int64
			uid      int64
			ts       int64
			typ      string
			photoID  sql.NullString
			videoID  sql.NullString
			notified string
		)
		if err := rows.Scan(&id, &uid, &ts, &typ, &photoID, &videoID, &notified); err != nil {
			return nil, err
		}
		res = append(res, domain.Feeding{
			ID:               id,
			UserID:           uid,
			Timestamp:        time.Unix(ts, 0).UTC(),
			ScheduleType:     domain.ScheduleType(typ),
			PhotoID:          fromNullString(photoID),
			VideoID:          fromNullString(videoID),
			PartnersNotified: idsFromJSON(notified),
		})
	}
	return res, rows.Err()
}

// MarkPartnersNotified records which partners were told about a feeding.
func (r *SQLiteRepo) MarkPartnersNotified(ctx context.Context, feedingID int64, partnerIDs []int64) error {
	row := r.db.QueryRowContext(ctx, `SELECT partners_notified FROM feedings WHERE id = ?`, feedingID)
	var notified string
	if err := row.Scan(&notified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	merged := idsFromJSON(notified)
	for _, p := range partnerIDs {
		seen := false
		for _, e := range merged {
			if e == p {
				seen = true
				break
			}
		}
		if !seen {
			merged = append(merged, p)
		}
	}
	_, err := r.db.ExecContext(ctx, `UPDATE feedings SET partners_notified = ? WHERE id = ?`,
		idsToJSON(merged), feedingID)
	return err
}
