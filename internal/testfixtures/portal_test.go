package testfixtures

import (
	"context"
	"testing"
)

func TestNewPortalSeedsDefaults(t *testing.T) {
	p := NewPortal(t)

	if got := p.Collections.Users.Len(); got != 4 {
		t.Fatalf("expected 4 seeded users, got %d", got)
	}
	if got := p.Collections.Bookings.Len(); got != 0 {
		t.Fatalf("expected no seeded bookings, got %d", got)
	}

	admin := p.LoginAs(t, "admin", "admin")
	if !admin.IsAdmin() || !p.Session.IsAdmin() {
		t.Fatalf("expected admin session, got %+v", admin)
	}
}

func TestPortalUsesDeterministicIdentifiers(t *testing.T) {
	p := NewPortal(t)
	p.LoginAs(t, "mario", "password")

	result, err := p.Bookings.Book(context.Background(), p.Session, "evt01")
	if err != nil {
		t.Fatalf("book: %v", err)
	}
	if result.Booking.ID != "book-001" {
		t.Fatalf("expected book-001, got %q", result.Booking.ID)
	}
	if !result.Booking.BookedAt.Equal(ReferenceTime()) {
		t.Fatalf("expected booking stamped with clock time, got %v", result.Booking.BookedAt)
	}
}

func TestSQLiteStorageBacksPortal(t *testing.T) {
	storage := NewSQLiteStorage(t)
	p := NewPortal(t, WithStorage(storage))
	p.LoginAs(t, "luca", "password")

	if _, err := p.Bookings.Book(context.Background(), p.Session, "evt02"); err != nil {
		t.Fatalf("book: %v", err)
	}

	reopened := p.Reopen(t)
	if got := reopened.Bookings.Len(); got != 1 {
		t.Fatalf("expected persisted booking after reopen, got %d", got)
	}
	if got := reopened.Users.Len(); got != 0 {
		t.Fatalf("users were never saved, expected empty defaults, got %d", got)
	}
}
