package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aatumaykin/campusnews/internal/logger"
	"github.com/aatumaykin/campusnews/internal/reminder"
)

// jsonlStore keeps all reminders in a JSON Lines file. Every change rewrites
// the whole file through a temporary file and a rename.
type jsonlStore struct {
	mu       sync.Mutex
	filePath string
	logger   *logger.Logger
}

func openJSONL(cfg Config, log *logger.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for jsonl driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &jsonlStore{filePath: path, logger: log.With(logger.Field{Key: "driver", Value: "jsonl"})}, nil
}

func (s *jsonlStore) Load(ctx context.Context) ([]reminder.Reminder, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *jsonlStore) Get(ctx context.Context, id string) (reminder.Reminder, error) {
	items, err := s.Load(ctx)
	if err != nil {
		return reminder.Reminder{}, err
	}
	for _, r := range items {
		if r.ID == id {
			return r, nil
		}
	}
	return reminder.Reminder{}, ErrNotFound
}

func (s *jsonlStore) Upsert(ctx context.Context, r *reminder.Reminder) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}

	assignID(r)

	found := false
	for i := range items {
		if items[i].ID == r.ID {
			items[i] = *r
			found = true
			break
		}
	}
	if !found {
		items = append(items, *r)
	}

	if err := s.save(items); err != nil {
		return err
	}

	s.logger.Debug("reminder upserted",
		logger.Field{Key: "reminder_id", Value: r.ID},
		logger.Field{Key: "updated", Value: found})
	return nil
}

func (s *jsonlStore) Remove(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load()
	if err != nil {
		return err
	}

	kept := items[:0]
	removed := false
	for _, r := range items {
		if r.ID == id {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	if !removed {
		return ErrNotFound
	}

	if err := s.save(kept); err != nil {
		return err
	}

	s.logger.Debug("reminder removed", logger.Field{Key: "reminder_id", Value: id})
	return nil
}

func (s *jsonlStore) Close() error { return nil }

// load reads the file. A missing file is an empty store; malformed lines are
// logged and skipped.
func (s *jsonlStore) load() ([]reminder.Reminder, error) {
	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return []reminder.Reminder{}, nil
	}
	if err != nil {
		s.logger.Error("failed to open storage file", err,
			logger.Field{Key: "file", Value: s.filePath})
		return nil, err
	}
	defer file.Close()

	var items []reminder.Reminder
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var r reminder.Reminder
		if err := json.Unmarshal(line, &r); err != nil {
			s.logger.Error("failed to unmarshal reminder line", err,
				logger.Field{Key: "file", Value: s.filePath},
				logger.Field{Key: "line", Value: lineNum})
			continue
		}
		items = append(items, r)
	}

	if err := scanner.Err(); err != nil {
		s.logger.Error("error scanning storage file", err,
			logger.Field{Key: "file", Value: s.filePath})
		return nil, err
	}

	return items, nil
}

// save writes items to a temporary file and renames it over the store file.
func (s *jsonlStore) save(items []reminder.Reminder) error {
	tmpPath := s.filePath + ".tmp"

	file, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		s.logger.Error("failed to create temporary storage file", err,
			logger.Field{Key: "file", Value: tmpPath})
		return err
	}

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	for _, r := range items {
		if err := enc.Encode(r); err != nil {
			file.Close()
			s.logger.Error("failed to write reminder", err,
				logger.Field{Key: "reminder_id", Value: r.ID})
			return err
		}
	}

	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		file.Close()
		s.logger.Error("failed to sync temporary file", err,
			logger.Field{Key: "file", Value: tmpPath})
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		s.logger.Error("failed to rename temporary file", err,
			logger.Field{Key: "from", Value: tmpPath},
			logger.Field{Key: "to", Value: s.filePath})
		return err
	}

	s.logger.Debug("reminders saved",
		logger.Field{Key: "count", Value: len(items)},
		logger.Field{Key: "file", Value: s.filePath})
	return nil
}
