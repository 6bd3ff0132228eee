package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/GuelfoNero-beep/D117/internal/application"
)

var (
	userCounter  uint64
	eventCounter uint64
)

// ReferenceTime returns the canonical timestamp used across tests.
func ReferenceTime() time.Time {
	return time.Date(2025, time.June, 14, 9, 0, 0, 0, time.UTC)
}

// UserOption customises a user fixture.
type UserOption func(*application.User)

// WithUserID overrides the generated identifier.
func WithUserID(id string) UserOption {
	return func(u *application.User) { u.UID = id }
}

// WithNickname sets the login nickname.
func WithNickname(nickname string) UserOption {
	return func(u *application.User) { u.Nickname = nickname }
}

// WithCredential sets the login credential.
func WithCredential(credential string) UserOption {
	return func(u *application.User) { u.Credential = credential }
}

// AsAdmin grants the administrator role.
func AsAdmin() UserOption {
	return func(u *application.User) { u.Role = application.RoleAdmin }
}

// NewUser creates a member account with unique identifier and nickname.
func NewUser(opts ...UserOption) application.User {
	id := atomic.AddUint64(&userCounter, 1)
	user := application.User{
		UID:        fmt.Sprintf("fixture-user-%03d", id),
		Name:       fmt.Sprintf("Nome %d", id),
		Surname:    fmt.Sprintf("Cognome %d", id),
		Phone:      "3330000000",
		Nickname:   fmt.Sprintf("fratello%03d", id),
		Credential: "password",
		Role:       application.RoleMember,
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// EventOption customises an event fixture.
type EventOption func(*application.Event)

// WithEventID overrides the generated identifier.
func WithEventID(id string) EventOption {
	return func(e *application.Event) { e.ID = id }
}

// WithEventName sets the event name.
func WithEventName(name string) EventOption {
	return func(e *application.Event) { e.Name = name }
}

// WithWindow sets start and duration.
func WithWindow(start time.Time, d time.Duration) EventOption {
	return func(e *application.Event) {
		e.StartsAt = start
		e.EndsAt = start.Add(d)
	}
}

// NewEvent creates a two hour event one week after ReferenceTime.
func NewEvent(opts ...EventOption) application.Event {
	id := atomic.AddUint64(&eventCounter, 1)
	start := ReferenceTime().Add(7 * 24 * time.Hour)
	event := application.Event{
		ID:          fmt.Sprintf("fixture-evt-%03d", id),
		Name:        fmt.Sprintf("Tornata %d", id),
		Description: "Lavori rituali",
		StartsAt:    start,
		EndsAt:      start.Add(2 * time.Hour),
	}
	for _, opt := range opts {
		opt(&event)
	}
	return event
}
