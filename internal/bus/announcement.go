// Package bus provides the in-process announcement bus.
//
// The dispatcher publishes an Announcement each time a reminder fires;
// delivery components (channel posters, loggers, push gateways) subscribe
// and receive every announcement published after they subscribed.
//
// Announcements support JSON serialization for transport and storage.
package bus

import (
	"time"

	"github.com/google/uuid"

	"github.com/aatumaykin/campusnews/internal/reminder"
)

// Announcement is one emission of a reminder into its channel.
type Announcement struct {
	ID         string            `json:"id"`
	ReminderID string            `json:"reminder_id"`
	ChannelID  string            `json:"channel_id"`
	AuthorID   string            `json:"author_id"`
	Title      string            `json:"title"`
	Text       string            `json:"text"`
	Priority   reminder.Priority `json:"priority,omitempty"`
	Occurrence time.Time         `json:"occurrence"` // запланированное время срабатывания
	EmittedAt  time.Time         `json:"emitted_at"`
}

// NewAnnouncement builds the announcement for the given occurrence of r.
func NewAnnouncement(r reminder.Reminder, occurrence, now time.Time) Announcement {
	return Announcement{
		ID:         uuid.NewString(),
		ReminderID: r.ID,
		ChannelID:  r.ChannelID,
		AuthorID:   r.AuthorID,
		Title:      r.Title,
		Text:       r.Text,
		Priority:   r.Priority,
		Occurrence: occurrence,
		EmittedAt:  now,
	}
}

// Late reports how long after its occurrence the announcement was emitted.
func (a Announcement) Late() time.Duration {
	return a.EmittedAt.Sub(a.Occurrence)
}
