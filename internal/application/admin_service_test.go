package application_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GuelfoNero-beep/D117/internal/application"
	"github.com/GuelfoNero-beep/D117/internal/testfixtures"
)

func TestAdminService_Authorization(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := testfixtures.NewPortal(t)

	if _, err := p.Admin.ListUsers(ctx, p.Session); !errors.Is(err, application.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}

	p.LoginAs(t, "mario", "password")
	if _, err := p.Admin.CreateReference(ctx, p.Session, application.UsefulReference{Title: "x"}); !errors.Is(err, application.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := p.Admin.DeleteEvent(ctx, p.Session, "evt01"); !errors.Is(err, application.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if p.Collections.References.Len() != 7 || p.Collections.Events.Len() != 3 {
		t.Fatalf("unauthorized calls must not mutate collections")
	}
}

func TestAdminService_Users(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := testfixtures.NewPortal(t)
	admin := p.LoginAs(t, "admin", "admin")

	created, err := p.Admin.CreateUser(ctx, p.Session, application.User{
		Name: " Paolo ", Surname: "Neri", Nickname: "paolo", Credential: "segreto",
	})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if created.UID != "user-001" || created.Role != application.RoleMember || created.Name != "Paolo" {
		t.Fatalf("unexpected created user %+v", created)
	}

	t.Run("nickname must be unique", func(t *testing.T) {
		_, err := p.Admin.CreateUser(ctx, p.Session, application.User{
			Name: "Altro", Surname: "Paolo", Nickname: "paolo", Credential: "x",
		})
		if !errors.Is(err, application.ErrNicknameTaken) {
			t.Fatalf("expected ErrNicknameTaken, got %v", err)
		}
	})

	t.Run("empty credential keeps the stored one", func(t *testing.T) {
		updated := created
		updated.Credential = ""
		updated.Phone = "3339990000"
		if _, err := p.Admin.UpdateUser(ctx, p.Session, updated); err != nil {
			t.Fatalf("UpdateUser: %v", err)
		}
		if _, err := p.Auth.Login(ctx, application.NewSession(), "paolo", "segreto"); err != nil {
			t.Fatalf("expected old credential to still work: %v", err)
		}
	})

	t.Run("unknown account is not found before validation", func(t *testing.T) {
		_, err := p.Admin.UpdateUser(ctx, p.Session, application.User{UID: "user-999", Name: "Nessuno", Surname: "Ignoto", Nickname: "nessuno"})
		if !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("nickname with spaces is rejected", func(t *testing.T) {
		_, err := p.Admin.CreateUser(ctx, p.Session, application.User{
			Name: "Gian", Surname: "Maria", Nickname: "gian maria", Credential: "x",
		})
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["nickname"] != "must not contain spaces" {
			t.Fatalf("expected nickname validation error, got %v", err)
		}
	})

	t.Run("updating the account in use refreshes the session", func(t *testing.T) {
		self := admin
		self.Name = "Gran Maestro"
		self.Credential = ""
		if _, err := p.Admin.UpdateUser(ctx, p.Session, self); err != nil {
			t.Fatalf("UpdateUser: %v", err)
		}
		if current, _ := p.Session.Current(); current.Name != "Gran Maestro" {
			t.Fatalf("expected refreshed session, got %+v", current)
		}
	})

	t.Run("validation reports every missing field", func(t *testing.T) {
		_, err := p.Admin.CreateUser(ctx, p.Session, application.User{Nickname: "anonimo"})
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"name", "surname", "credential"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s error, got %v", field, vErr.FieldErrors)
			}
		}
	})

	t.Run("self deletion is refused", func(t *testing.T) {
		if err := p.Admin.DeleteUser(ctx, p.Session, admin.UID); !errors.Is(err, application.ErrSelfDeletionDenied) {
			t.Fatalf("expected ErrSelfDeletionDenied, got %v", err)
		}
		if err := p.Admin.DeleteUser(ctx, p.Session, created.UID); err != nil {
			t.Fatalf("DeleteUser: %v", err)
		}
	})
}

func TestAdminService_Events(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := testfixtures.NewPortal(t)
	p.LoginAs(t, "admin", "admin")

	rome := time.FixedZone("CEST", 2*60*60)
	start := time.Date(2025, time.June, 21, 20, 0, 0, 0, rome)

	t.Run("end before start is rejected", func(t *testing.T) {
		_, err := p.Admin.CreateEvent(ctx, p.Session, application.Event{
			Name: "Solstizio", StartsAt: start, EndsAt: start.Add(-time.Hour),
		})
		var vErr *application.ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["endsAt"] == "" {
			t.Fatalf("expected endsAt validation error, got %v", err)
		}
	})

	created, err := p.Admin.CreateEvent(ctx, p.Session, application.Event{
		Name: "Solstizio", StartsAt: start, EndsAt: start.Add(3 * time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if created.ID != "evt-001" || created.StartsAt.Location() != time.UTC {
		t.Fatalf("expected generated id and UTC times, got %+v", created)
	}

	t.Run("update of a missing event", func(t *testing.T) {
		ghost := created
		ghost.ID = "evt-999"
		if _, err := p.Admin.UpdateEvent(ctx, p.Session, ghost); !errors.Is(err, application.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("delete cascades to bookings", func(t *testing.T) {
		member := application.NewSession()
		if _, err := p.Auth.Login(ctx, member, "luca", "password"); err != nil {
			t.Fatalf("Login: %v", err)
		}
		if _, err := p.Bookings.Book(ctx, member, created.ID); err != nil {
			t.Fatalf("Book: %v", err)
		}

		removed, err := p.Admin.DeleteEvent(ctx, p.Session, created.ID)
		if err != nil || removed != 1 {
			t.Fatalf("expected one booking removed, got %d (%v)", removed, err)
		}
		bookings, err := p.Admin.ListBookings(ctx, p.Session)
		if err != nil || len(bookings) != 0 {
			t.Fatalf("expected no bookings left, got %+v (%v)", bookings, err)
		}
	})
}

func TestAdminService_Content(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	p := testfixtures.NewPortal(t)
	p.LoginAs(t, "admin", "admin")

	guide, err := p.Admin.CreateAudioGuide(ctx, p.Session, application.AudioGuide{FileName: "Catena d'Unione", AudioURL: "audio/catena.mp3", SortOrder: 0})
	if err != nil {
		t.Fatalf("CreateAudioGuide: %v", err)
	}
	if guides := p.Catalog.AudioGuides(ctx); guides[0].ID != guide.ID {
		t.Fatalf("expected new guide first, got %s", guides[0].ID)
	}

	member, err := p.Admin.CreateDirectoryMember(ctx, p.Session, application.DirectoryMember{Name: "Dante", Surname: "Alighieri", Profession: "Poeta"})
	if err != nil {
		t.Fatalf("CreateDirectoryMember: %v", err)
	}
	member.Company = "Commedia"
	if _, err := p.Admin.UpdateDirectoryMember(ctx, p.Session, member); err != nil {
		t.Fatalf("UpdateDirectoryMember: %v", err)
	}
	if got := p.Catalog.Directory(ctx, "commedia"); len(got) != 1 {
		t.Fatalf("expected updated member to be searchable, got %+v", got)
	}

	if _, err := p.Admin.CreateReference(ctx, p.Session, application.UsefulReference{Body: "senza titolo"}); err == nil {
		t.Fatalf("expected validation error for missing title")
	}
	if err := p.Admin.DeleteReference(ctx, p.Session, "ref07"); err != nil {
		t.Fatalf("DeleteReference: %v", err)
	}
	if err := p.Admin.DeleteReference(ctx, p.Session, "ref07"); !errors.Is(err, application.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	refs, _ := p.Admin.ListReferences(ctx, p.Session)
	if len(refs) != 6 {
		t.Fatalf("expected 6 references, got %d", len(refs))
	}
}
