package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/GuelfoNero-beep/D117/internal/application"
	"github.com/GuelfoNero-beep/D117/internal/calendar"
	"github.com/GuelfoNero-beep/D117/internal/metrics"
)

const helpText = `commands:
  login <nickname> <secret>   logout   whoami
  events   book <eventId>   bookings   cancel <bookingId>
  audio   directory [term]   search <term>   refs   metrics   help   quit
  (directory treats list, add, update and delete as admin actions;
  search always searches the directory)
admin (the "admin" prefix is optional):
  [admin] <users|events|audio|directory|refs|bookings> list
  [admin] <users|events|audio|directory|refs> add <json>
  [admin] <users|events|audio|directory|refs> update <json>
  [admin] <users|events|audio|directory|refs|bookings> delete <id>`

var errQuit = errors.New("quit")

// shell is the line oriented front end standing in for the portal UI. It owns
// the session for the lifetime of the process.
type shell struct {
	session  *application.Session
	auth     *application.AuthService
	bookings *application.BookingService
	catalog  *application.CatalogService
	admin    *application.AdminService
	metrics  *metrics.Recorder
	loc      *time.Location
	out      io.Writer
}

// run reads commands from in until EOF, "quit" or ctx cancellation.
func (s *shell) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	s.prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		err := s.execute(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		s.prompt()
	}
	return scanner.Err()
}

func (s *shell) prompt() {
	if user, ok := s.session.Current(); ok {
		fmt.Fprintf(s.out, "%s> ", user.Nickname)
		return
	}
	fmt.Fprint(s.out, "> ")
}

// execute runs a single command line.
func (s *shell) execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	parts := strings.SplitN(line, " ", 3)
	cmd := parts[0]
	arg := func(i int) string {
		if i < len(parts) {
			return strings.TrimSpace(parts[i])
		}
		return ""
	}

	switch cmd {
	case "help":
		fmt.Fprintln(s.out, helpText)
	case "quit", "exit":
		return errQuit
	case "login":
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return errors.New("usage: login <nickname> <secret>")
		}
		user, err := s.auth.Login(ctx, s.session, fields[1], fields[2])
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "welcome %s (%s)\n", user.FullName(), user.Role)
	case "logout":
		s.auth.Logout(ctx, s.session)
		fmt.Fprintln(s.out, "logged out")
	case "whoami":
		user, ok := s.session.Current()
		if !ok {
			return application.ErrNoSession
		}
		fmt.Fprintf(s.out, "%s %s (%s)\n", user.Nickname, user.FullName(), user.Role)
	case "events":
		if arg(1) != "" {
			return s.adminCommand(ctx, cmd, arg(1), arg(2))
		}
		return s.listEvents(ctx)
	case "book":
		return s.book(ctx, arg(1))
	case "bookings":
		if arg(1) != "" {
			return s.adminCommand(ctx, cmd, arg(1), arg(2))
		}
		return s.myBookings(ctx)
	case "cancel":
		if err := s.bookings.Cancel(ctx, s.session, arg(1)); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "booking cancelled")
	case "audio":
		if arg(1) != "" {
			return s.adminCommand(ctx, cmd, arg(1), arg(2))
		}
		for _, g := range s.catalog.AudioGuides(ctx) {
			fmt.Fprintf(s.out, "%d. %s  %s\n", g.SortOrder, g.FileName, g.AudioURL)
		}
	case "directory":
		switch arg(1) {
		case "list", "add", "update", "delete":
			return s.adminCommand(ctx, cmd, arg(1), arg(2))
		}
		s.searchDirectory(ctx, strings.TrimPrefix(line, cmd))
	case "search":
		s.searchDirectory(ctx, strings.TrimPrefix(line, cmd))
	case "refs":
		if arg(1) != "" {
			return s.adminCommand(ctx, cmd, arg(1), arg(2))
		}
		for _, r := range s.catalog.References(ctx) {
			fmt.Fprintf(s.out, "%s\n  %s\n", r.Title, r.Body)
		}
	case "users":
		return s.adminCommand(ctx, cmd, arg(1), arg(2))
	case "admin":
		fields := strings.SplitN(line, " ", 4)
		if len(fields) < 3 {
			return errors.New("usage: admin <collection> <action> [json|id]")
		}
		payload := ""
		if len(fields) == 4 {
			payload = strings.TrimSpace(fields[3])
		}
		return s.adminCommand(ctx, fields[1], fields[2], payload)
	case "metrics":
		return s.metrics.WriteText(s.out)
	default:
		return errors.Errorf("unknown command %q, try help", cmd)
	}
	return nil
}

func (s *shell) listEvents(ctx context.Context) error {
	user, _ := s.session.Current()
	for _, e := range s.catalog.Events(ctx) {
		mark := " "
		if user.UID != "" && s.bookings.IsBooked(ctx, e.ID, user.UID) {
			mark = "*"
		}
		fmt.Fprintf(s.out, "%s %s  %s  %s\n", mark, e.ID, e.Name, calendar.FormatRange(e.StartsAt, e.EndsAt, s.loc))
	}
	return nil
}

func (s *shell) searchDirectory(ctx context.Context, term string) {
	for _, m := range s.catalog.Directory(ctx, strings.TrimSpace(term)) {
		fmt.Fprintf(s.out, "%s %s | %s | %s | %s | %s\n", m.Name, m.Surname, m.Profession, m.Company, m.Phone, m.Address)
	}
}

func (s *shell) book(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("usage: book <eventId>")
	}
	result, err := s.bookings.Book(ctx, s.session, eventID)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "booked %s (%s)\n", result.Event.Name, result.Booking.ID)
	for _, w := range result.Warnings {
		fmt.Fprintf(s.out, "warning: overlaps %s, %s\n", w.EventName, calendar.FormatRange(w.StartsAt, w.EndsAt, s.loc))
	}
	if result.ExportErr != nil {
		fmt.Fprintf(s.out, "calendar file not saved: %v\n", result.ExportErr)
		return nil
	}
	fmt.Fprintf(s.out, "calendar file: %s\n", result.CalendarFile)
	return nil
}

func (s *shell) myBookings(ctx context.Context) error {
	user, ok := s.session.Current()
	if !ok {
		return application.ErrNoSession
	}
	for _, b := range s.bookings.BookingsFor(ctx, user.UID) {
		fmt.Fprintf(s.out, "%s  %s  booked %s\n", b.ID, b.EventID, b.BookedAt.In(s.loc).Format("02/01/2006 15:04"))
	}
	return nil
}

// adminCommand dispatches "<kind> <action> [payload]".
func (s *shell) adminCommand(ctx context.Context, kind, action, payload string) error {
	a, sess := s.admin, s.session
	switch kind {
	case "users":
		return crud(s, action, payload,
			func() ([]application.User, error) { return a.ListUsers(ctx, sess) },
			func(u application.User) (application.User, error) { return a.CreateUser(ctx, sess, u) },
			func(u application.User) (application.User, error) { return a.UpdateUser(ctx, sess, u) },
			func(id string) error { return a.DeleteUser(ctx, sess, id) },
		)
	case "events":
		return crud(s, action, payload,
			func() ([]application.Event, error) { return a.ListEvents(ctx, sess) },
			func(e application.Event) (application.Event, error) { return a.CreateEvent(ctx, sess, e) },
			func(e application.Event) (application.Event, error) { return a.UpdateEvent(ctx, sess, e) },
			func(id string) error {
				removed, err := a.DeleteEvent(ctx, sess, id)
				if err == nil && removed > 0 {
					fmt.Fprintf(s.out, "%d bookings removed\n", removed)
				}
				return err
			},
		)
	case "audio":
		return crud(s, action, payload,
			func() ([]application.AudioGuide, error) { return a.ListAudioGuides(ctx, sess) },
			func(g application.AudioGuide) (application.AudioGuide, error) { return a.CreateAudioGuide(ctx, sess, g) },
			func(g application.AudioGuide) (application.AudioGuide, error) { return a.UpdateAudioGuide(ctx, sess, g) },
			func(id string) error { return a.DeleteAudioGuide(ctx, sess, id) },
		)
	case "directory":
		return crud(s, action, payload,
			func() ([]application.DirectoryMember, error) { return a.ListDirectory(ctx, sess) },
			func(m application.DirectoryMember) (application.DirectoryMember, error) {
				return a.CreateDirectoryMember(ctx, sess, m)
			},
			func(m application.DirectoryMember) (application.DirectoryMember, error) {
				return a.UpdateDirectoryMember(ctx, sess, m)
			},
			func(id string) error { return a.DeleteDirectoryMember(ctx, sess, id) },
		)
	case "refs":
		return crud(s, action, payload,
			func() ([]application.UsefulReference, error) { return a.ListReferences(ctx, sess) },
			func(r application.UsefulReference) (application.UsefulReference, error) {
				return a.CreateReference(ctx, sess, r)
			},
			func(r application.UsefulReference) (application.UsefulReference, error) {
				return a.UpdateReference(ctx, sess, r)
			},
			func(id string) error { return a.DeleteReference(ctx, sess, id) },
		)
	case "bookings":
		return crud(s, action, payload,
			func() ([]application.Booking, error) { return a.ListBookings(ctx, sess) },
			nil,
			nil,
			func(id string) error { return a.DeleteBooking(ctx, sess, id) },
		)
	}
	return errors.Errorf("unknown collection %q", kind)
}

// crud runs one admin action for a collection. A nil add or update marks the
// action unsupported for that collection.
func crud[T any](s *shell, action, payload string, list func() ([]T, error), add, update func(T) (T, error), del func(string) error) error {
	switch action {
	case "list":
		records, err := list()
		if err != nil {
			return err
		}
		for _, r := range records {
			if err := s.printJSON(r); err != nil {
				return err
			}
		}
		return nil
	case "add", "update":
		fn := add
		if action == "update" {
			fn = update
		}
		if fn == nil {
			return errors.Errorf("%s is not supported here", action)
		}
		var record T
		if err := json.Unmarshal([]byte(payload), &record); err != nil {
			return errors.Wrap(err, "decode record")
		}
		saved, err := fn(record)
		if err != nil {
			return err
		}
		return s.printJSON(saved)
	case "delete":
		if payload == "" {
			return errors.New("usage: <collection> delete <id>")
		}
		if err := del(payload); err != nil {
			return err
		}
		fmt.Fprintln(s.out, "deleted", payload)
		return nil
	}
	return errors.Errorf("unknown action %q", action)
}

func (s *shell) printJSON(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "encode record")
	}
	_, err = fmt.Fprintln(s.out, string(raw))
	return err
}
