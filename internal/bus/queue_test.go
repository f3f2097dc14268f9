package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aatumaykin/campusnews/internal/logger"
	"github.com/aatumaykin/campusnews/internal/reminder"
)

func newTestBus(t *testing.T, capacity int) *AnnouncementBus {
	t.Helper()
	b := New(capacity, 4, logger.Nop())
	require.NoError(t, b.Start(context.Background()))
	t.Cleanup(func() {
		if b.IsStarted() {
			_ = b.Stop()
		}
	})
	return b
}

func testAnnouncement(title string) Announcement {
	r := reminder.Reminder{
		ID:        "r-1",
		ChannelID: "news",
		AuthorID:  "moderator-1",
		Title:     title,
		Text:      "body",
		Priority:  reminder.PriorityHigh,
	}
	at := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	return NewAnnouncement(r, at, at.Add(10*time.Second))
}

func TestNew(t *testing.T) {
	b := New(100, 10, logger.Nop())

	require.NotNil(t, b)
	assert.False(t, b.IsStarted(), "New() returned a started bus")
}

func TestAnnouncementBus_StartStop(t *testing.T) {
	b := New(10, 10, logger.Nop())
	ctx := context.Background()

	assert.ErrorIs(t, b.Stop(), ErrNotStarted)

	require.NoError(t, b.Start(ctx))
	assert.True(t, b.IsStarted())
	assert.ErrorIs(t, b.Start(ctx), ErrAlreadyStarted)

	require.NoError(t, b.Stop())
	assert.False(t, b.IsStarted())

	// restart after stop
	require.NoError(t, b.Start(ctx))
	require.NoError(t, b.Stop())
}

func TestAnnouncementBus_PublishNotStarted(t *testing.T) {
	b := New(10, 10, logger.Nop())

	assert.ErrorIs(t, b.Publish(testAnnouncement("x")), ErrNotStarted)
	assert.Nil(t, b.Subscribe(context.Background()))
}

func TestAnnouncementBus_FanOut(t *testing.T) {
	b := newTestBus(t, 10)
	ctx := context.Background()

	first := b.Subscribe(ctx)
	second := b.Subscribe(ctx)
	require.NotNil(t, first)
	require.NotNil(t, second)

	sent := testAnnouncement("Exam registration")
	require.NoError(t, b.Publish(sent))

	for _, ch := range []<-chan Announcement{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, sent, got)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for announcement")
		}
	}
}

func TestAnnouncementBus_QueueFull(t *testing.T) {
	// No distribution goroutine, so the queue is never drained.
	b := New(1, 1, logger.Nop())
	b.ctx = context.Background()
	b.started = true

	require.NoError(t, b.Publish(testAnnouncement("one")))
	assert.ErrorIs(t, b.Publish(testAnnouncement("two")), ErrQueueFull)
	assert.Equal(t, 1, b.Pending())
}

func TestAnnouncementBus_SubscriberContextCancel(t *testing.T) {
	b := newTestBus(t, 10)

	ctx, cancel := context.WithCancel(context.Background())
	ch := b.Subscribe(ctx)
	require.NotNil(t, ch)

	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed after cancel")
	case <-time.After(time.Second):
		t.Fatal("subscriber channel was not closed")
	}
}

func TestAnnouncementBus_StopClosesSubscribers(t *testing.T) {
	b := New(10, 10, logger.Nop())
	require.NoError(t, b.Start(context.Background()))

	ch := b.Subscribe(context.Background())
	require.NoError(t, b.Stop())

	_, ok := <-ch
	assert.False(t, ok)
}

func TestNewAnnouncement(t *testing.T) {
	a := testAnnouncement("Library hours")
	b := testAnnouncement("Library hours")

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID, "every emission gets its own id")
	assert.Equal(t, "r-1", a.ReminderID)
	assert.Equal(t, "news", a.ChannelID)
	assert.Equal(t, "moderator-1", a.AuthorID)
	assert.Equal(t, reminder.PriorityHigh, a.Priority)
	assert.Equal(t, 10*time.Second, a.Late())
}
