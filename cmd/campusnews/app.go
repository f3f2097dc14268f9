package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aatumaykin/campusnews/internal/config"
	"github.com/aatumaykin/campusnews/internal/logger"
	"github.com/aatumaykin/campusnews/internal/reminder"
	"github.com/aatumaykin/campusnews/internal/session"
	"github.com/aatumaykin/campusnews/internal/store"
)

// app bundles the collaborators a command needs.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	store   store.Store
	calc    *reminder.Calculator
	limits  reminder.Limits
	session session.Session
	clock   reminder.Clock
}

// loadConfig loads the optional .env file and the configuration, applies
// flag overrides and validates the result.
func loadConfig(opts *globalOptions) (*config.Config, error) {
	if err := config.LoadEnvOptional(opts.envFile); err != nil {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	cfg, err := config.LoadOrDefault(opts.configPath)
	if err != nil {
		return nil, err
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return cfg, nil
}

func openApp(opts *globalOptions) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	loc, err := cfg.Scheduler.Location()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(store.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: cfg.Storage.BusyTimeout(),
	}, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &app{
		cfg:     cfg,
		log:     log,
		store:   st,
		calc:    reminder.NewCalculator(loc, reminder.AdvancePolicy(cfg.Scheduler.AdvancePolicy)),
		limits:  reminder.Limits{TitleMax: cfg.Limits.TitleMax, TextMax: cfg.Limits.TextMax},
		session: session.New(cfg.Session.UserID, cfg.Session.Moderates),
		clock:   reminder.SystemClock{},
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// withSession overrides the configured operator when flags are set.
func (a *app) withSession(user string, moderates []string) {
	if strings.TrimSpace(user) == "" && len(moderates) == 0 {
		return
	}
	if strings.TrimSpace(user) == "" {
		user = a.session.UserID
	}
	if len(moderates) == 0 {
		moderates = a.session.Moderates
	}
	a.session = session.New(user, moderates)
}
