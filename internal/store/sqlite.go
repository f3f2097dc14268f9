package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aatumaykin/campusnews/internal/logger"
	"github.com/aatumaykin/campusnews/internal/reminder"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const reminderColumns = `id, created_at, modified_at, start_date, end_date, interval_seconds,
	ignore_next_occurrence, is_active, next_occurrence, is_expired,
	channel_id, author_id, title, text, priority`

type sqliteStore struct {
	db     *sql.DB
	logger *logger.Logger
}

func openSQLite(cfg Config, log *logger.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// One writer: the daemon and CLI commands serialize on the file lock.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, logger: log.With(logger.Field{Key: "driver", Value: "sqlite"})}

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) Load(ctx context.Context) ([]reminder.Reminder, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+reminderColumns+` FROM reminders ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []reminder.Reminder{}
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (s *sqliteStore) Get(ctx context.Context, id string) (reminder.Reminder, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reminderColumns+` FROM reminders WHERE id = ?`, id)
	r, err := scanReminder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return reminder.Reminder{}, ErrNotFound
	}
	return r, err
}

func (s *sqliteStore) Upsert(ctx context.Context, r *reminder.Reminder) error {
	assignID(r)

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders(seq, `+reminderColumns+`)
		 VALUES((SELECT COALESCE(MAX(seq), 0) + 1 FROM reminders),?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   created_at=excluded.created_at,
		   modified_at=excluded.modified_at,
		   start_date=excluded.start_date,
		   end_date=excluded.end_date,
		   interval_seconds=excluded.interval_seconds,
		   ignore_next_occurrence=excluded.ignore_next_occurrence,
		   is_active=excluded.is_active,
		   next_occurrence=excluded.next_occurrence,
		   is_expired=excluded.is_expired,
		   channel_id=excluded.channel_id,
		   author_id=excluded.author_id,
		   title=excluded.title,
		   text=excluded.text,
		   priority=excluded.priority`,
		r.ID, formatTime(r.CreatedAt), formatTime(r.ModifiedAt),
		formatTime(r.StartDate), formatTime(r.EndDate), r.IntervalSeconds,
		r.IgnoreNextOccurrence, r.IsActive, formatTime(r.NextOccurrence), r.IsExpired,
		r.ChannelID, r.AuthorID, r.Title, r.Text, nullStr(string(r.Priority)),
	)
	if err != nil {
		return err
	}

	s.logger.Debug("reminder upserted", logger.Field{Key: "reminder_id", Value: r.ID})
	return nil
}

func (s *sqliteStore) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	s.logger.Debug("reminder removed", logger.Field{Key: "reminder_id", Value: id})
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReminder(row rowScanner) (reminder.Reminder, error) {
	var (
		r                                        reminder.Reminder
		created, modified, start, end, next, pri sql.NullString
	)
	err := row.Scan(&r.ID, &created, &modified, &start, &end, &r.IntervalSeconds,
		&r.IgnoreNextOccurrence, &r.IsActive, &next, &r.IsExpired,
		&r.ChannelID, &r.AuthorID, &r.Title, &r.Text, &pri)
	if err != nil {
		return reminder.Reminder{}, err
	}

	for _, f := range []struct {
		dst *time.Time
		src sql.NullString
	}{
		{&r.CreatedAt, created},
		{&r.ModifiedAt, modified},
		{&r.StartDate, start},
		{&r.EndDate, end},
		{&r.NextOccurrence, next},
	} {
		if *f.dst, err = parseTime(f.src); err != nil {
			return reminder.Reminder{}, fmt.Errorf("reminder %s: %w", r.ID, err)
		}
	}
	r.Priority = reminder.Priority(pri.String)

	return r, nil
}

// Timestamps are stored as RFC 3339 text in UTC; zero times become NULL.
func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(v sql.NullString) (time.Time, error) {
	if !v.Valid || v.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, v.String)
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
