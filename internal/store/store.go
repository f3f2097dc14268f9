// Package store persists reminders.
//
// Two drivers are available:
//   - "jsonl": one JSON document per line, rewritten atomically on change
//   - "sqlite": SQLite database file (pure Go driver)
//
// Both serialize their own writes, so a CLI process and the daemon may share
// a store file. Persistence format is private to each driver.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aatumaykin/campusnews/internal/logger"
	"github.com/aatumaykin/campusnews/internal/reminder"
)

// ErrNotFound is returned when no reminder has the requested ID.
var ErrNotFound = errors.New("reminder not found")

// Store is the persistence API used by the dispatcher and the CLI.
type Store interface {
	// Load returns all reminders in creation order.
	Load(ctx context.Context) ([]reminder.Reminder, error)
	// Get returns one reminder or ErrNotFound.
	Get(ctx context.Context, id string) (reminder.Reminder, error)
	// Upsert inserts or replaces r. An empty r.ID is assigned a new UUID.
	Upsert(ctx context.Context, r *reminder.Reminder) error
	// Remove deletes a reminder or returns ErrNotFound.
	Remove(ctx context.Context, id string) error
	Close() error
}

// Config configures storage.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Open initializes the configured store.
func Open(cfg Config, log *logger.Logger) (Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("store")

	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", "jsonl":
		return openJSONL(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", driver)
	}
}

func assignID(r *reminder.Reminder) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
}
