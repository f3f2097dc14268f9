// Package session describes the operator on whose behalf reminders are
// created and managed. A Session is built from configuration or flags and
// passed explicitly to every operation that needs it.
package session

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/aatumaykin/campusnews/internal/reminder"
)

// AllChannels in Moderates grants access to every channel.
const AllChannels = "*"

var (
	ErrNoUser    = errors.New("session has no user")
	ErrForbidden = errors.New("channel is not moderated by this user")
)

// Session is the acting operator.
type Session struct {
	UserID    string
	Moderates []string
}

// New builds a session, dropping blank channel entries.
func New(userID string, moderates []string) Session {
	s := Session{UserID: strings.TrimSpace(userID)}
	for _, ch := range moderates {
		if ch = strings.TrimSpace(ch); ch != "" {
			s.Moderates = append(s.Moderates, ch)
		}
	}
	return s
}

// CanManage reports whether the operator may create or change reminders of
// channel.
func (s Session) CanManage(channel string) bool {
	if s.UserID == "" {
		return false
	}
	return slices.Contains(s.Moderates, AllChannels) || slices.Contains(s.Moderates, channel)
}

// Authorize returns an error unless the operator may manage channel.
func (s Session) Authorize(channel string) error {
	if s.UserID == "" {
		return ErrNoUser
	}
	if !s.CanManage(channel) {
		return fmt.Errorf("%w: %s", ErrForbidden, channel)
	}
	return nil
}

// Stamp records the operator as author of r.
func (s Session) Stamp(r *reminder.Reminder) {
	r.AuthorID = s.UserID
}
