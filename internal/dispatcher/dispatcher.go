// Package dispatcher drives the reminder core on a cron tick.
//
// Every tick the dispatcher loads all reminders from the store, establishes
// or restores the held occurrence of each one, emits an announcement for every
// occurrence that became due and persists the display caches. Reminders are
// edited out of process (CLI); an edit bumps ModifiedAt, which makes the
// dispatcher re-derive the held occurrence from StartDate.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/aatumaykin/campusnews/internal/bus"
	"github.com/aatumaykin/campusnews/internal/logger"
	"github.com/aatumaykin/campusnews/internal/metrics"
	"github.com/aatumaykin/campusnews/internal/reminder"
	"github.com/aatumaykin/campusnews/internal/retry"
	"github.com/aatumaykin/campusnews/internal/store"
)

// DefaultPollSpec is used when Config.PollSpec is empty.
const DefaultPollSpec = "@every 30s"

var (
	ErrAlreadyStarted = errors.New("dispatcher already started")
	ErrNotStarted     = errors.New("dispatcher not started")
)

// Sink receives emitted announcements. *bus.AnnouncementBus implements it.
type Sink interface {
	Publish(a bus.Announcement) error
}

// Config configures a Dispatcher.
type Config struct {
	PollSpec    string               // cron spec or @every descriptor
	MissedGrace time.Duration        // occurrences later than this are not emitted
	Calculator  *reminder.Calculator // nil means local zone, rescan policy
	Retry       retry.Config         // emission retry; Retryable defaults to bus.ErrQueueFull
	Clock       reminder.Clock       // nil means SystemClock
	Metrics     *metrics.Metrics     // optional
	Limiter     *rate.Limiter        // optional emission throttle
}

// Report summarizes one tick.
type Report struct {
	Evaluated  int
	Fired      int
	Skipped    int
	Suppressed int
	Missed     int
	Expired    int
	Errors     int
}

// held is the runtime state of a reminder between ticks.
type held struct {
	modifiedAt time.Time
	next       time.Time
}

// Dispatcher evaluates reminders periodically and publishes announcements.
type Dispatcher struct {
	cfg    Config
	store  store.Store
	sink   Sink
	calc   *reminder.Calculator
	clock  reminder.Clock
	m      *metrics.Metrics
	logger *logger.Logger

	tickMu sync.Mutex
	state  map[string]held

	mu      sync.Mutex
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// New creates a dispatcher. The poll spec is validated here.
func New(cfg Config, st store.Store, sink Sink, log *logger.Logger) (*Dispatcher, error) {
	if st == nil || sink == nil {
		return nil, errors.New("dispatcher requires a store and a sink")
	}
	if cfg.PollSpec == "" {
		cfg.PollSpec = DefaultPollSpec
	}
	if _, err := cron.ParseStandard(cfg.PollSpec); err != nil {
		return nil, fmt.Errorf("invalid poll spec %q: %w", cfg.PollSpec, err)
	}
	if cfg.Calculator == nil {
		cfg.Calculator = reminder.NewCalculator(nil, reminder.AdvanceRescan)
	}
	if cfg.Clock == nil {
		cfg.Clock = reminder.SystemClock{}
	}
	if cfg.Retry.Retryable == nil {
		cfg.Retry.Retryable = retry.On(bus.ErrQueueFull)
	}
	if log == nil {
		log = logger.Nop()
	}
	log = log.Named("dispatcher")
	if cfg.Retry.Logger == nil {
		cfg.Retry.Logger = log
	}

	return &Dispatcher{
		cfg:    cfg,
		store:  st,
		sink:   sink,
		calc:   cfg.Calculator,
		clock:  cfg.Clock,
		m:      cfg.Metrics,
		logger: log,
		state:  make(map[string]held),
	}, nil
}

// Start schedules Tick on the poll spec and runs one tick right away.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started {
		return ErrAlreadyStarted
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.cron = cron.New(
		cron.WithLocation(d.calc.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := d.cron.AddFunc(d.cfg.PollSpec, d.runTick); err != nil {
		d.cancel()
		return fmt.Errorf("invalid poll spec %q: %w", d.cfg.PollSpec, err)
	}

	d.started = true
	d.cron.Start()
	go d.runTick()

	d.logger.Info("dispatcher started",
		logger.Field{Key: "poll_spec", Value: d.cfg.PollSpec},
		logger.Field{Key: "timezone", Value: d.calc.Location().String()},
		logger.Field{Key: "advance_policy", Value: string(d.calc.Policy())})
	return nil
}

// Stop stops scheduling and waits for a running tick to finish.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return ErrNotStarted
	}
	d.cancel()
	d.started = false
	c := d.cron
	d.mu.Unlock()

	<-c.Stop().Done()
	d.waitTick()

	d.logger.Info("dispatcher stopped")
	return nil
}

// IsStarted returns true if the dispatcher is started.
func (d *Dispatcher) IsStarted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.started
}

// waitTick blocks until a tick in progress has finished.
func (d *Dispatcher) waitTick() {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()
}

func (d *Dispatcher) runTick() {
	defer func() {
		if r := recover(); r != nil {
			d.m.Error(metrics.StageCompute)
			d.logger.Error("dispatcher tick panic recovered", fmt.Errorf("panic: %v", r))
		}
	}()

	d.mu.Lock()
	ctx := d.ctx
	d.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}

	if _, err := d.Tick(ctx, d.clock.Now()); err != nil && !errors.Is(err, context.Canceled) {
		d.logger.ErrorCtx(ctx, "dispatcher tick failed", err)
	}
}

// Tick evaluates every stored reminder at now. Per-reminder failures are
// logged and counted; only a failure to load the store is returned.
func (d *Dispatcher) Tick(ctx context.Context, now time.Time) (Report, error) {
	d.tickMu.Lock()
	defer d.tickMu.Unlock()

	started := time.Now()
	defer func() { d.m.ObserveTick(time.Since(started)) }()

	var rep Report

	items, err := d.store.Load(ctx)
	if err != nil {
		d.m.Error(metrics.StageLoad)
		return rep, fmt.Errorf("load reminders: %w", err)
	}

	seen := make(map[string]struct{}, len(items))
	for i := range items {
		r := &items[i]
		seen[r.ID] = struct{}{}

		if r.IsExpired {
			delete(d.state, r.ID)
			continue
		}

		rep.Evaluated++
		if err := d.evaluate(ctx, r, now, &rep); err != nil {
			rep.Errors++
			d.logger.ErrorCtx(ctx, "reminder evaluation failed", err,
				logger.Field{Key: "reminder_id", Value: r.ID})
		}
	}

	for id := range d.state {
		if _, ok := seen[id]; !ok {
			delete(d.state, id)
		}
	}
	d.m.SetTracked(len(d.state))

	if rep.Fired+rep.Skipped+rep.Suppressed+rep.Missed+rep.Expired > 0 {
		d.logger.InfoCtx(ctx, "dispatcher tick",
			logger.Field{Key: "evaluated", Value: rep.Evaluated},
			logger.Field{Key: "fired", Value: rep.Fired},
			logger.Field{Key: "skipped", Value: rep.Skipped},
			logger.Field{Key: "suppressed", Value: rep.Suppressed},
			logger.Field{Key: "missed", Value: rep.Missed},
			logger.Field{Key: "expired", Value: rep.Expired})
	}

	return rep, nil
}

// evaluate processes one reminder and persists it when a stored field changed.
func (d *Dispatcher) evaluate(ctx context.Context, r *reminder.Reminder, now time.Time, rep *Report) error {
	loadedModifiedAt := r.ModifiedAt
	prevNext := r.NextOccurrence
	prevExpired := r.IsExpired

	err := d.process(ctx, r, now, rep)

	if r.RefreshExpired(now) {
		delete(d.state, r.ID)
		rep.Expired++
		d.m.Expired()
		d.logger.InfoCtx(ctx, "reminder expired",
			logger.Field{Key: "reminder_id", Value: r.ID},
			logger.Field{Key: "title", Value: r.Title})
	} else if _, ok := d.state[r.ID]; ok {
		d.state[r.ID] = held{modifiedAt: r.ModifiedAt, next: r.NextOccurrence}
	}

	dirty := !r.ModifiedAt.Equal(loadedModifiedAt) ||
		!r.NextOccurrence.Equal(prevNext) ||
		r.IsExpired != prevExpired
	if dirty {
		if perr := d.persist(ctx, r, loadedModifiedAt); perr != nil {
			return errors.Join(err, perr)
		}
	}

	return err
}

// process establishes the held occurrence and works through every due one.
func (d *Dispatcher) process(ctx context.Context, r *reminder.Reminder, now time.Time, rep *Report) error {
	if h, ok := d.state[r.ID]; ok && h.modifiedAt.Equal(r.ModifiedAt) {
		r.NextOccurrence = h.next
	} else {
		armed := r.IgnoreNextOccurrence
		if _, err := d.calc.FirstOccurrence(r, now); err != nil {
			delete(d.state, r.ID)
			d.m.Error(metrics.StageCompute)
			return err
		}
		if armed && !r.IgnoreNextOccurrence {
			r.Touch(now)
			rep.Skipped++
			d.m.Skipped()
			d.logger.InfoCtx(ctx, "occurrence skipped",
				logger.Field{Key: "reminder_id", Value: r.ID},
				logger.Field{Key: "next", Value: r.NextOccurrence})
		}
	}
	d.state[r.ID] = held{modifiedAt: r.ModifiedAt, next: r.NextOccurrence}

	for reminder.Due(*r, now) {
		occurrence := r.NextOccurrence
		var err error

		switch {
		case r.IgnoreNextOccurrence:
			_, _, err = reminder.Skip(r, d.calc.Advance)
			if err == nil {
				r.Touch(now)
				rep.Skipped++
				d.m.Skipped()
			}

		case !r.IsActive:
			_, err = d.calc.Advance(r)
			rep.Suppressed++
			d.m.Suppressed()
			d.logger.DebugCtx(ctx, "occurrence suppressed, reminder inactive",
				logger.Field{Key: "reminder_id", Value: r.ID},
				logger.Field{Key: "occurrence", Value: occurrence})

		case d.cfg.MissedGrace > 0 && now.Sub(occurrence) > d.cfg.MissedGrace:
			_, err = d.calc.Advance(r)
			rep.Missed++
			d.m.Missed()
			d.logger.WarnCtx(ctx, "occurrence missed",
				logger.Field{Key: "reminder_id", Value: r.ID},
				logger.Field{Key: "occurrence", Value: occurrence},
				logger.Field{Key: "late", Value: now.Sub(occurrence).String()})

		default:
			if perr := d.emit(ctx, *r, occurrence, now); perr != nil {
				// Keep the occurrence held; the next tick retries it until
				// it falls out of the grace period.
				d.m.Error(metrics.StagePublish)
				return perr
			}
			_, err = d.calc.Advance(r)
			rep.Fired++
			d.m.Fired()
		}

		if err != nil {
			d.m.Error(metrics.StageCompute)
			return err
		}
	}

	return nil
}

func (d *Dispatcher) emit(ctx context.Context, r reminder.Reminder, occurrence, now time.Time) error {
	if d.cfg.Limiter != nil {
		if err := d.cfg.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("emission throttle: %w", err)
		}
	}

	a := bus.NewAnnouncement(r, occurrence, now)

	err := retry.Do(ctx, d.cfg.Retry, func() error {
		return d.sink.Publish(a)
	})
	if err != nil {
		return fmt.Errorf("publish announcement for %s: %w", r.ID, err)
	}

	d.logger.InfoCtx(ctx, "announcement emitted",
		logger.Field{Key: "reminder_id", Value: r.ID},
		logger.Field{Key: "announcement_id", Value: a.ID},
		logger.Field{Key: "channel_id", Value: r.ChannelID},
		logger.Field{Key: "occurrence", Value: occurrence})
	return nil
}

// persist writes r back unless it was edited since it was loaded; the edit
// wins and the next tick re-establishes from it.
func (d *Dispatcher) persist(ctx context.Context, r *reminder.Reminder, loadedModifiedAt time.Time) error {
	current, err := d.store.Get(ctx, r.ID)
	if errors.Is(err, store.ErrNotFound) {
		delete(d.state, r.ID)
		return nil
	}
	if err != nil {
		d.m.Error(metrics.StagePersist)
		return fmt.Errorf("reload reminder %s: %w", r.ID, err)
	}
	if !current.ModifiedAt.Equal(loadedModifiedAt) {
		delete(d.state, r.ID)
		d.logger.DebugCtx(ctx, "reminder edited during tick, not persisting",
			logger.Field{Key: "reminder_id", Value: r.ID})
		return nil
	}

	if err := d.store.Upsert(ctx, r); err != nil {
		d.m.Error(metrics.StagePersist)
		return fmt.Errorf("persist reminder %s: %w", r.ID, err)
	}
	return nil
}
