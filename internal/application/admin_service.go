package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/GuelfoNero-beep/D117/internal/store"
)

// AdminService performs administrator CRUD over every collection.
type AdminService struct {
	c         *Collections
	integrity *IntegrityCoordinator
	logger    *slog.Logger
}

// NewAdminService wires dependencies for the admin service.
func NewAdminService(c *Collections, integrity *IntegrityCoordinator) *AdminService {
	return NewAdminServiceWithLogger(c, integrity, nil)
}

// NewAdminServiceWithLogger wires dependencies with a specified logger.
func NewAdminServiceWithLogger(c *Collections, integrity *IntegrityCoordinator, logger *slog.Logger) *AdminService {
	return &AdminService{c: c, integrity: integrity, logger: defaultLogger(logger)}
}

func (s *AdminService) authorize(session *Session) error {
	if s == nil {
		return fmt.Errorf("AdminService is nil")
	}
	if _, ok := session.Current(); !ok {
		return ErrNoSession
	}
	if !session.IsAdmin() {
		return ErrUnauthorized
	}
	return nil
}

// mutate runs fn for an administrator and logs the outcome.
func (s *AdminService) mutate(ctx context.Context, session *Session, operation, id string, fn func() (string, error)) (err error) {
	logger := serviceLogger(ctx, s.logger, "AdminService", operation,
		"actor_id", session.Principal().UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "admin operation failed", "target_id", id, "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "admin operation succeeded", "target_id", id)
	}()

	if err = s.authorize(session); err != nil {
		return err
	}
	id, err = fn()
	return mapStoreError(err)
}

func create[T store.Entity[T]](ctx context.Context, s *AdminService, session *Session, st *store.EntityStore[T], operation string, record T) (created T, err error) {
	err = s.mutate(ctx, session, operation, "", func() (string, error) {
		if vErr := validateRecord(record); vErr.HasErrors() {
			return "", vErr
		}
		var addErr error
		created, addErr = st.Add(ctx, record)
		return created.Key(), addErr
	})
	return created, err
}

func update[T store.Entity[T]](ctx context.Context, s *AdminService, session *Session, st *store.EntityStore[T], operation string, record T) (updated T, err error) {
	err = s.mutate(ctx, session, operation, record.Key(), func() (string, error) {
		if _, getErr := st.Get(ctx, record.Key()); getErr != nil {
			return record.Key(), getErr
		}
		if vErr := validateRecord(record); vErr.HasErrors() {
			return record.Key(), vErr
		}
		var updErr error
		updated, updErr = st.Update(ctx, record)
		return record.Key(), updErr
	})
	return updated, err
}

func remove[T store.Entity[T]](ctx context.Context, s *AdminService, session *Session, st *store.EntityStore[T], operation, id string) error {
	return s.mutate(ctx, session, operation, id, func() (string, error) {
		return id, st.Remove(ctx, id)
	})
}

func list[T store.Entity[T]](ctx context.Context, s *AdminService, session *Session, st *store.EntityStore[T]) ([]T, error) {
	if err := s.authorize(session); err != nil {
		return nil, err
	}
	return st.List(ctx), nil
}

// ListUsers returns every account.
func (s *AdminService) ListUsers(ctx context.Context, session *Session) ([]User, error) {
	return list(ctx, s, session, s.c.Users)
}

// CreateUser adds an account. Role defaults to member and nicknames must be unique.
func (s *AdminService) CreateUser(ctx context.Context, session *Session, user User) (User, error) {
	user = normalizeUser(user)
	return create(ctx, s, session, s.c.Users, "CreateUser", user)
}

// UpdateUser replaces an account. An empty credential keeps the stored one.
func (s *AdminService) UpdateUser(ctx context.Context, session *Session, user User) (User, error) {
	user = normalizeUser(user)
	if user.Credential == "" {
		if existing, err := s.c.Users.Get(ctx, user.UID); err == nil {
			user.Credential = existing.Credential
		}
	}
	updated, err := update(ctx, s, session, s.c.Users, "UpdateUser", user)
	if err == nil {
		session.refresh(updated)
	}
	return updated, err
}

// DeleteUser removes an account other than the one in use.
func (s *AdminService) DeleteUser(ctx context.Context, session *Session, userID string) error {
	return s.mutate(ctx, session, "DeleteUser", userID, func() (string, error) {
		return userID, s.integrity.DeleteUser(ctx, session, userID)
	})
}

// ListEvents returns every event in insertion order.
func (s *AdminService) ListEvents(ctx context.Context, session *Session) ([]Event, error) {
	return list(ctx, s, session, s.c.Events)
}

// CreateEvent adds an event; the end may not precede the start.
func (s *AdminService) CreateEvent(ctx context.Context, session *Session, event Event) (Event, error) {
	return create(ctx, s, session, s.c.Events, "CreateEvent", normalizeEvent(event))
}

// UpdateEvent replaces an event.
func (s *AdminService) UpdateEvent(ctx context.Context, session *Session, event Event) (Event, error) {
	return update(ctx, s, session, s.c.Events, "UpdateEvent", normalizeEvent(event))
}

// DeleteEvent removes an event together with its bookings.
func (s *AdminService) DeleteEvent(ctx context.Context, session *Session, eventID string) (removedBookings int, err error) {
	err = s.mutate(ctx, session, "DeleteEvent", eventID, func() (string, error) {
		var delErr error
		removedBookings, delErr = s.integrity.DeleteEvent(ctx, eventID)
		return eventID, delErr
	})
	return removedBookings, err
}

// ListAudioGuides returns every audio guide in insertion order.
func (s *AdminService) ListAudioGuides(ctx context.Context, session *Session) ([]AudioGuide, error) {
	return list(ctx, s, session, s.c.AudioGuides)
}

// CreateAudioGuide adds an audio guide.
func (s *AdminService) CreateAudioGuide(ctx context.Context, session *Session, guide AudioGuide) (AudioGuide, error) {
	return create(ctx, s, session, s.c.AudioGuides, "CreateAudioGuide", guide)
}

// UpdateAudioGuide replaces an audio guide.
func (s *AdminService) UpdateAudioGuide(ctx context.Context, session *Session, guide AudioGuide) (AudioGuide, error) {
	return update(ctx, s, session, s.c.AudioGuides, "UpdateAudioGuide", guide)
}

// DeleteAudioGuide removes an audio guide.
func (s *AdminService) DeleteAudioGuide(ctx context.Context, session *Session, id string) error {
	return remove(ctx, s, session, s.c.AudioGuides, "DeleteAudioGuide", id)
}

// ListDirectory returns every directory member in insertion order.
func (s *AdminService) ListDirectory(ctx context.Context, session *Session) ([]DirectoryMember, error) {
	return list(ctx, s, session, s.c.Directory)
}

// CreateDirectoryMember adds a directory member.
func (s *AdminService) CreateDirectoryMember(ctx context.Context, session *Session, member DirectoryMember) (DirectoryMember, error) {
	return create(ctx, s, session, s.c.Directory, "CreateDirectoryMember", member)
}

// UpdateDirectoryMember replaces a directory member.
func (s *AdminService) UpdateDirectoryMember(ctx context.Context, session *Session, member DirectoryMember) (DirectoryMember, error) {
	return update(ctx, s, session, s.c.Directory, "UpdateDirectoryMember", member)
}

// DeleteDirectoryMember removes a directory member.
func (s *AdminService) DeleteDirectoryMember(ctx context.Context, session *Session, id string) error {
	return remove(ctx, s, session, s.c.Directory, "DeleteDirectoryMember", id)
}

// ListReferences returns every useful reference.
func (s *AdminService) ListReferences(ctx context.Context, session *Session) ([]UsefulReference, error) {
	return list(ctx, s, session, s.c.References)
}

// CreateReference adds a useful reference.
func (s *AdminService) CreateReference(ctx context.Context, session *Session, ref UsefulReference) (UsefulReference, error) {
	return create(ctx, s, session, s.c.References, "CreateReference", ref)
}

// UpdateReference replaces a useful reference.
func (s *AdminService) UpdateReference(ctx context.Context, session *Session, ref UsefulReference) (UsefulReference, error) {
	return update(ctx, s, session, s.c.References, "UpdateReference", ref)
}

// DeleteReference removes a useful reference.
func (s *AdminService) DeleteReference(ctx context.Context, session *Session, id string) error {
	return remove(ctx, s, session, s.c.References, "DeleteReference", id)
}

// ListBookings returns every booking.
func (s *AdminService) ListBookings(ctx context.Context, session *Session) ([]Booking, error) {
	return list(ctx, s, session, s.c.Bookings)
}

// DeleteBooking removes any booking.
func (s *AdminService) DeleteBooking(ctx context.Context, session *Session, id string) error {
	return remove(ctx, s, session, s.c.Bookings, "DeleteBooking", id)
}

func normalizeUser(u User) User {
	u.Name = strings.TrimSpace(u.Name)
	u.Surname = strings.TrimSpace(u.Surname)
	u.Phone = strings.TrimSpace(u.Phone)
	u.Nickname = strings.TrimSpace(u.Nickname)
	if u.Role == "" {
		u.Role = RoleMember
	}
	return u
}

func normalizeEvent(e Event) Event {
	e.Name = strings.TrimSpace(e.Name)
	e.StartsAt = e.StartsAt.UTC()
	e.EndsAt = e.EndsAt.UTC()
	return e
}
