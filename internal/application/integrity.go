package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/GuelfoNero-beep/D117/internal/store"
)

// IntegrityCoordinator performs deletions that span several collections.
type IntegrityCoordinator struct {
	users    *store.EntityStore[User]
	events   *store.EntityStore[Event]
	bookings *store.EntityStore[Booking]
	logger   *slog.Logger
}

// NewIntegrityCoordinator wires the coordinator to the collections it guards.
func NewIntegrityCoordinator(c *Collections, logger *slog.Logger) *IntegrityCoordinator {
	return &IntegrityCoordinator{
		users:    c.Users,
		events:   c.Events,
		bookings: c.Bookings,
		logger:   defaultLogger(logger),
	}
}

// DeleteEvent removes the event and every booking referencing it. It returns
// the number of bookings removed. When the event does not exist ErrNotFound is
// returned and bookings are left untouched.
func (c *IntegrityCoordinator) DeleteEvent(ctx context.Context, eventID string) (removed int, err error) {
	if c == nil {
		err = fmt.Errorf("IntegrityCoordinator is nil")
		return
	}

	logger := serviceLogger(ctx, c.logger, "IntegrityCoordinator", "DeleteEvent", "event_id", eventID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "event deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "event deleted", "bookings_removed", removed)
	}()

	if err = c.events.Remove(ctx, eventID); err != nil {
		err = mapStoreError(err)
		return
	}
	removed = len(c.bookings.RemoveWhere(ctx, func(b Booking) bool { return b.EventID == eventID }))
	return
}

// DeleteUser removes a user unless it is the account logged into session.
// Directory entries and bookings referencing the user are left in place.
func (c *IntegrityCoordinator) DeleteUser(ctx context.Context, session *Session, userID string) (err error) {
	if c == nil {
		return fmt.Errorf("IntegrityCoordinator is nil")
	}

	logger := serviceLogger(ctx, c.logger, "IntegrityCoordinator", "DeleteUser", "user_id", userID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "user deletion failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user deleted")
	}()

	if current, ok := session.Current(); ok && current.UID == userID {
		return ErrSelfDeletionDenied
	}
	return mapStoreError(c.users.Remove(ctx, userID))
}
