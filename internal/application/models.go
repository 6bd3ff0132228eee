package application

import "time"

// Role distinguishes administrators from ordinary members.
type Role string

const (
	// RoleAdmin grants access to every administrative operation.
	RoleAdmin Role = "admin"
	// RoleMember is the default role of an enrolled member.
	RoleMember Role = "member"
)

// Principal represents the authenticated user invoking a service method.
type Principal struct {
	UserID  string
	IsAdmin bool
}

// User is an account able to log into the portal.
type User struct {
	UID        string `json:"uid" yaml:"uid"`
	Name       string `json:"name" yaml:"name" validate:"required"`
	Surname    string `json:"surname" yaml:"surname" validate:"required"`
	Phone      string `json:"phone" yaml:"phone"`
	Nickname   string `json:"nickname" yaml:"nickname" validate:"required"`
	Credential string `json:"credential" yaml:"credential" validate:"required"`
	Role       Role   `json:"role" yaml:"role" validate:"oneof=admin member"`
}

// Key returns the identifier used by store.EntityStore.
func (u User) Key() string { return u.UID }

// WithKey returns a copy carrying id.
func (u User) WithKey(id string) User { u.UID = id; return u }

// IsAdmin reports whether the user holds the administrator role.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// FullName joins name and surname.
func (u User) FullName() string { return u.Name + " " + u.Surname }

// Event is a scheduled lodge activity members can book.
type Event struct {
	ID          string    `json:"id"`
	Name        string    `json:"name" validate:"required"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
	StartsAt    time.Time `json:"startsAt" validate:"required"`
	EndsAt      time.Time `json:"endsAt" validate:"required,gtefield=StartsAt"`
}

// Key returns the identifier used by store.EntityStore.
func (e Event) Key() string { return e.ID }

// WithKey returns a copy carrying id.
func (e Event) WithKey(id string) Event { e.ID = id; return e }

// AudioGuide is a reference recording listed in sort order.
type AudioGuide struct {
	ID        string `json:"id" yaml:"id"`
	FileName  string `json:"fileName" yaml:"fileName" validate:"required"`
	AudioURL  string `json:"audioUrl" yaml:"audioUrl" validate:"required"`
	ImageURL  string `json:"imageUrl" yaml:"imageUrl"`
	SortOrder int    `json:"sortOrder" yaml:"sortOrder"`
}

// Key returns the identifier used by store.EntityStore.
func (a AudioGuide) Key() string { return a.ID }

// WithKey returns a copy carrying id.
func (a AudioGuide) WithKey(id string) AudioGuide { a.ID = id; return a }

// DirectoryMember is a contact card, optionally linked to a User.
type DirectoryMember struct {
	ID         string `json:"id" yaml:"id"`
	UserID     string `json:"userId,omitempty" yaml:"userId"`
	Name       string `json:"name" yaml:"name" validate:"required"`
	Surname    string `json:"surname" yaml:"surname" validate:"required"`
	Phone      string `json:"phone" yaml:"phone"`
	Profession string `json:"profession" yaml:"profession"`
	Address    string `json:"address" yaml:"address"`
	Company    string `json:"company" yaml:"company"`
}

// Key returns the identifier used by store.EntityStore.
func (d DirectoryMember) Key() string { return d.ID }

// WithKey returns a copy carrying id.
func (d DirectoryMember) WithKey(id string) DirectoryMember { d.ID = id; return d }

// Booking records that a user reserved a place at an event.
type Booking struct {
	ID       string    `json:"id"`
	EventID  string    `json:"eventId" validate:"required"`
	UserID   string    `json:"userId" validate:"required"`
	BookedAt time.Time `json:"bookedAt"`
}

// Key returns the identifier used by store.EntityStore.
func (b Booking) Key() string { return b.ID }

// WithKey returns a copy carrying id.
func (b Booking) WithKey(id string) Booking { b.ID = id; return b }

// UsefulReference is a titled note shown to every member.
type UsefulReference struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title" validate:"required"`
	Body  string `json:"body" yaml:"body"`
}

// Key returns the identifier used by store.EntityStore.
func (r UsefulReference) Key() string { return r.ID }

// WithKey returns a copy carrying id.
func (r UsefulReference) WithKey(id string) UsefulReference { r.ID = id; return r }

// OverlapWarning flags an already booked event whose time range intersects a new booking.
type OverlapWarning struct {
	EventID   string
	EventName string
	StartsAt  time.Time
	EndsAt    time.Time
}

// BookingResult is returned by BookingService.Book.
type BookingResult struct {
	Booking  Booking
	Event    Event
	Warnings []OverlapWarning
	// CalendarFile names the exported .ics file, empty when export failed.
	CalendarFile string
	// ExportErr reports a failed calendar export; the booking stands regardless.
	ExportErr error
}
