package application

import (
	"context"
	"log/slog"

	"github.com/GuelfoNero-beep/D117/internal/persistence"
	"github.com/GuelfoNero-beep/D117/internal/store"
)

// Identifier prefixes per collection.
const (
	PrefixUser      = "user"
	PrefixEvent     = "evt"
	PrefixAudio     = "ag"
	PrefixDirectory = "dir"
	PrefixBooking   = "book"
	PrefixReference = "ref"
)

// Collections groups one EntityStore per entity kind.
type Collections struct {
	Users       *store.EntityStore[User]
	Events      *store.EntityStore[Event]
	AudioGuides *store.EntityStore[AudioGuide]
	Directory   *store.EntityStore[DirectoryMember]
	Bookings    *store.EntityStore[Booking]
	References  *store.EntityStore[UsefulReference]
}

// CollectionsOptions tunes OpenCollections.
type CollectionsOptions struct {
	// IDGenerator builds the identifier source for a prefix. Defaults to store.PrefixedUUID.
	IDGenerator func(prefix string) func() string
	Observer    store.Observer
	Logger      *slog.Logger
}

// OpenCollections loads every collection from adapter, seeding from defaults.
func OpenCollections(ctx context.Context, adapter *persistence.Adapter, defaults Defaults, opts CollectionsOptions) *Collections {
	ids := opts.IDGenerator
	if ids == nil {
		ids = store.PrefixedUUID
	}
	logger := defaultLogger(opts.Logger)

	return &Collections{
		Users: store.Open(ctx, adapter, persistence.KeyUsers, defaults.Users,
			store.WithIDGenerator[User](ids(PrefixUser)),
			store.UniqueBy("nickname", func(u User) string { return u.Nickname }, ErrNicknameTaken),
			store.WithObserver[User](opts.Observer),
			store.WithLogger[User](logger),
		),
		Events: store.Open(ctx, adapter, persistence.KeyEvents, defaults.Events,
			store.WithIDGenerator[Event](ids(PrefixEvent)),
			store.WithTimestampFields[Event]("startsAt", "endsAt"),
			store.WithObserver[Event](opts.Observer),
			store.WithLogger[Event](logger),
		),
		AudioGuides: store.Open(ctx, adapter, persistence.KeyAudioGuides, defaults.AudioGuides,
			store.WithIDGenerator[AudioGuide](ids(PrefixAudio)),
			store.WithObserver[AudioGuide](opts.Observer),
			store.WithLogger[AudioGuide](logger),
		),
		Directory: store.Open(ctx, adapter, persistence.KeyDirectory, defaults.Directory,
			store.WithIDGenerator[DirectoryMember](ids(PrefixDirectory)),
			store.WithObserver[DirectoryMember](opts.Observer),
			store.WithLogger[DirectoryMember](logger),
		),
		Bookings: store.Open(ctx, adapter, persistence.KeyBookings, defaults.Bookings,
			store.WithIDGenerator[Booking](ids(PrefixBooking)),
			store.WithTimestampFields[Booking]("bookedAt"),
			store.UniqueBy("event_user", bookingPairKey, ErrDuplicateBooking),
			store.WithObserver[Booking](opts.Observer),
			store.WithLogger[Booking](logger),
		),
		References: store.Open(ctx, adapter, persistence.KeyReferences, defaults.References,
			store.WithIDGenerator[UsefulReference](ids(PrefixReference)),
			store.WithObserver[UsefulReference](opts.Observer),
			store.WithLogger[UsefulReference](logger),
		),
	}
}

// Sizes reports the number of records held per collection key.
func (c *Collections) Sizes() map[string]int {
	return map[string]int{
		c.Users.Kind():       c.Users.Len(),
		c.Events.Kind():      c.Events.Len(),
		c.AudioGuides.Kind(): c.AudioGuides.Len(),
		c.Directory.Kind():   c.Directory.Len(),
		c.Bookings.Kind():    c.Bookings.Len(),
		c.References.Kind():  c.References.Len(),
	}
}

func bookingPairKey(b Booking) string {
	if b.EventID == "" || b.UserID == "" {
		return ""
	}
	return b.EventID + "\x00" + b.UserID
}
