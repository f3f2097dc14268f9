package bus

import (
	"context"
	"errors"
	"sync"

	"github.com/aatumaykin/campusnews/internal/logger"
)

var (
	ErrQueueFull      = errors.New("queue is full")
	ErrAlreadyStarted = errors.New("announcement bus is already started")
	ErrNotStarted     = errors.New("announcement bus is not started")
)

// AnnouncementBus is an asynchronous fan-out queue of announcements.
type AnnouncementBus struct {
	mu      sync.RWMutex
	logger  *logger.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	done    chan struct{}

	queue            chan Announcement
	subscriberBuffer int
	subscribers      map[int64]chan Announcement
	subscriberID     int64
}

// New creates an AnnouncementBus. capacity bounds the shared queue,
// subscriberBuffer bounds each subscriber channel.
func New(capacity, subscriberBuffer int, log *logger.Logger) *AnnouncementBus {
	if capacity < 1 {
		capacity = 1
	}
	if subscriberBuffer < 1 {
		subscriberBuffer = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &AnnouncementBus{
		logger:           log.Named("bus"),
		queue:            make(chan Announcement, capacity),
		subscriberBuffer: subscriberBuffer,
		subscribers:      make(map[int64]chan Announcement),
	}
}

// Start starts the distribution goroutine.
func (b *AnnouncementBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return ErrAlreadyStarted
	}

	b.ctx, b.cancel = context.WithCancel(ctx)
	b.done = make(chan struct{})
	b.started = true

	go b.distribute(b.ctx, b.done)

	b.logger.Info("announcement bus started", logger.Field{Key: "capacity", Value: cap(b.queue)})
	return nil
}

// Stop stops distribution and closes all subscriber channels.
// Announcements still queued are dropped.
func (b *AnnouncementBus) Stop() error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return ErrNotStarted
	}

	b.logger.Info("stopping announcement bus", logger.Field{Key: "pending", Value: len(b.queue)})

	b.cancel()
	b.started = false
	done := b.done
	b.mu.Unlock()

	// distribute holds the read lock while fanning out
	<-done

	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		close(ch)
		delete(b.subscribers, id)
	}

	// Drain so a restart does not replay stale announcements.
	for len(b.queue) > 0 {
		<-b.queue
	}

	b.logger.Info("announcement bus stopped")
	return nil
}

// Publish enqueues a without blocking.
func (b *AnnouncementBus) Publish(a Announcement) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.started {
		return ErrNotStarted
	}

	select {
	case b.queue <- a:
		b.logger.DebugCtx(b.ctx, "announcement published",
			logger.Field{Key: "announcement_id", Value: a.ID},
			logger.Field{Key: "reminder_id", Value: a.ReminderID},
			logger.Field{Key: "channel_id", Value: a.ChannelID})
		return nil
	default:
		b.logger.WarnCtx(b.ctx, "announcement queue full",
			logger.Field{Key: "capacity", Value: cap(b.queue)})
		return ErrQueueFull
	}
}

// Subscribe returns a channel receiving every announcement published from
// now on. The channel is closed when ctx is done or the bus stops.
// Returns nil if the bus is not started.
func (b *AnnouncementBus) Subscribe(ctx context.Context) <-chan Announcement {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.started {
		return nil
	}

	ch := make(chan Announcement, b.subscriberBuffer)
	b.subscriberID++
	id := b.subscriberID
	b.subscribers[id] = ch

	b.logger.DebugCtx(ctx, "subscriber added", logger.Field{Key: "subscriber_id", Value: id})

	go func(busCtx context.Context) {
		select {
		case <-ctx.Done():
			b.unsubscribe(id)
		case <-busCtx.Done():
		}
	}(b.ctx)

	return ch
}

func (b *AnnouncementBus) unsubscribe(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		close(ch)
		delete(b.subscribers, id)
		b.logger.Debug("subscriber removed", logger.Field{Key: "subscriber_id", Value: id})
	}
}

// distribute fans queued announcements out to all subscribers.
func (b *AnnouncementBus) distribute(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case a := <-b.queue:
			b.mu.RLock()
			for id, ch := range b.subscribers {
				select {
				case ch <- a:
				default:
					// Subscriber channel is full, skip
					b.logger.Warn("subscriber channel full, dropping announcement",
						logger.Field{Key: "subscriber_id", Value: id},
						logger.Field{Key: "announcement_id", Value: a.ID})
				}
			}
			b.mu.RUnlock()
		}
	}
}

// IsStarted returns true if the bus is started.
func (b *AnnouncementBus) IsStarted() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.started
}

// Pending returns the number of queued announcements not yet distributed.
func (b *AnnouncementBus) Pending() int {
	return len(b.queue)
}
