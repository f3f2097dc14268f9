package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aatumaykin/campusnews/internal/reminder"
)

func TestNew_TrimsInput(t *testing.T) {
	s := New("  moderator-1 ", []string{"news", " ", " events "})

	assert.Equal(t, "moderator-1", s.UserID)
	assert.Equal(t, []string{"news", "events"}, s.Moderates)
}

func TestSession_CanManage(t *testing.T) {
	tests := []struct {
		name    string
		session Session
		channel string
		want    bool
	}{
		{"moderated channel", New("u", []string{"news"}), "news", true},
		{"other channel", New("u", []string{"news"}), "sports", false},
		{"wildcard", New("u", []string{AllChannels}), "sports", true},
		{"no user", New("", []string{AllChannels}), "news", false},
		{"no channels", New("u", nil), "news", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.session.CanManage(tt.channel))
		})
	}
}

func TestSession_Authorize(t *testing.T) {
	assert.ErrorIs(t, New("", nil).Authorize("news"), ErrNoUser)
	assert.ErrorIs(t, New("u", []string{"news"}).Authorize("sports"), ErrForbidden)
	assert.NoError(t, New("u", []string{"news"}).Authorize("news"))
}

func TestSession_Stamp(t *testing.T) {
	r := reminder.Reminder{AuthorID: "someone-else"}
	New("moderator-1", nil).Stamp(&r)

	assert.Equal(t, "moderator-1", r.AuthorID)
}
