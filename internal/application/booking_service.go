package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/GuelfoNero-beep/D117/internal/calendar"
	"github.com/GuelfoNero-beep/D117/internal/scheduler"
	"github.com/GuelfoNero-beep/D117/internal/store"
)

// CalendarExporter saves a calendar file for a booked event and returns its name.
type CalendarExporter interface {
	Export(ctx context.Context, entry calendar.Entry) (string, error)
}

// BookingObserver is notified of booking outcomes.
type BookingObserver interface {
	BookingAttempted(outcome string)
	CalendarExported(err error)
}

// BookingService creates bookings and triggers the calendar export.
type BookingService struct {
	events   *store.EntityStore[Event]
	bookings *store.EntityStore[Booking]
	exporter CalendarExporter
	observer BookingObserver
	now      func() time.Time
	logger   *slog.Logger
}

// NewBookingService wires dependencies for the booking service.
func NewBookingService(c *Collections, exporter CalendarExporter, observer BookingObserver, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(c, exporter, observer, now, nil)
}

// NewBookingServiceWithLogger wires dependencies with a specified logger.
func NewBookingServiceWithLogger(c *Collections, exporter CalendarExporter, observer BookingObserver, now func() time.Time, logger *slog.Logger) *BookingService {
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		events:   c.Events,
		bookings: c.Bookings,
		exporter: exporter,
		observer: observer,
		now:      now,
		logger:   defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// Book reserves eventID for the session user. A second booking of the same
// event by the same user fails with ErrDuplicateBooking. After the booking is
// stored the calendar file is exported; an export failure is reported in the
// result and does not undo the booking.
func (s *BookingService) Book(ctx context.Context, session *Session, eventID string) (result BookingResult, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "Book", "event_id", eventID)
	defer func() {
		if s.observer != nil {
			s.observer.BookingAttempted(bookingOutcome(err))
		}
		if err != nil {
			logger.ErrorContext(ctx, "booking failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"booking_id", result.Booking.ID,
			"user_id", result.Booking.UserID,
			"overlaps", len(result.Warnings),
			"calendar_file", result.CalendarFile,
		).InfoContext(ctx, "event booked")
	}()

	user, ok := session.Current()
	if !ok {
		err = ErrNoSession
		return
	}

	var event Event
	if event, err = s.events.Get(ctx, eventID); err != nil {
		err = mapStoreError(err)
		return
	}

	warnings := s.overlaps(ctx, user.UID, event)

	var booking Booking
	booking, err = s.bookings.Add(ctx, Booking{EventID: event.ID, UserID: user.UID, BookedAt: s.now().UTC()})
	if err != nil {
		return
	}

	result = BookingResult{Booking: booking, Event: event, Warnings: warnings}
	if s.exporter != nil {
		result.CalendarFile, result.ExportErr = s.exporter.Export(ctx, EventEntry(event))
		if s.observer != nil {
			s.observer.CalendarExported(result.ExportErr)
		}
		if result.ExportErr != nil {
			logger.WarnContext(ctx, "calendar export failed", "error", result.ExportErr)
		}
	}
	return
}

// Cancel removes a booking owned by the session user. Administrators may cancel any booking.
func (s *BookingService) Cancel(ctx context.Context, session *Session, bookingID string) (err error) {
	logger := s.loggerWith(ctx, "Cancel", "booking_id", bookingID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "cancellation failed", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking cancelled")
	}()

	principal := session.Principal()
	if principal.UserID == "" {
		return ErrNoSession
	}

	booking, err := s.bookings.Get(ctx, bookingID)
	if err != nil {
		return mapStoreError(err)
	}
	if booking.UserID != principal.UserID && !principal.IsAdmin {
		return ErrUnauthorized
	}
	return mapStoreError(s.bookings.Remove(ctx, bookingID))
}

// IsBooked reports whether userID holds a booking for eventID.
func (s *BookingService) IsBooked(ctx context.Context, eventID, userID string) bool {
	_, ok := s.bookings.Find(ctx, func(b Booking) bool { return b.EventID == eventID && b.UserID == userID })
	return ok
}

// BookingsFor lists the bookings of userID in booking order.
func (s *BookingService) BookingsFor(ctx context.Context, userID string) []Booking {
	return s.bookings.Filter(ctx, func(b Booking) bool { return b.UserID == userID })
}

// overlaps reports events already booked by userID that intersect event.
func (s *BookingService) overlaps(ctx context.Context, userID string, event Event) []OverlapWarning {
	booked := s.BookingsFor(ctx, userID)
	if len(booked) == 0 {
		return nil
	}

	slots := make([]scheduler.Slot, 0, len(booked))
	byID := make(map[string]Event, len(booked))
	for _, b := range booked {
		other, err := s.events.Get(ctx, b.EventID)
		if err != nil {
			continue
		}
		byID[other.ID] = other
		slots = append(slots, scheduler.Slot{ID: other.ID, Start: other.StartsAt, End: other.EndsAt})
	}

	conflicts := scheduler.DetectConflicts(slots, scheduler.Slot{ID: event.ID, Start: event.StartsAt, End: event.EndsAt})
	warnings := make([]OverlapWarning, 0, len(conflicts))
	for _, c := range conflicts {
		other := byID[c.WithID]
		warnings = append(warnings, OverlapWarning{
			EventID:   other.ID,
			EventName: other.Name,
			StartsAt:  other.StartsAt,
			EndsAt:    other.EndsAt,
		})
	}
	return warnings
}

// EventEntry converts an event into its calendar representation.
func EventEntry(e Event) calendar.Entry {
	return calendar.Entry{
		ID:          e.ID,
		Summary:     e.Name,
		Description: e.Description,
		Start:       e.StartsAt,
		End:         e.EndsAt,
	}
}

func bookingOutcome(err error) string {
	if err == nil {
		return "booked"
	}
	return ErrorKind(err)
}
