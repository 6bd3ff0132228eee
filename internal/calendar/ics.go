// Package calendar renders booked events as iCalendar files and saves them.
package calendar

import (
	"strings"
	"time"
	"unicode"
)

const icsTimeLayout = "20060102T150405Z"

// Entry is the calendar view of an event.
type Entry struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

// Format carries the identifiers embedded in every rendered file.
type Format struct {
	ProductID string
	UIDDomain string
}

// DefaultFormat returns the portal's product identifier and UID domain.
func DefaultFormat() Format {
	return Format{ProductID: "-//OrienteD117//App//IT", UIDDomain: "oriented117.it"}
}

// Render produces a single-event VCALENDAR with LF line endings and no
// trailing newline. Timestamps are written in UTC; stamp becomes DTSTAMP.
// Newlines in the description are escaped as the two characters \n.
func (f Format) Render(entry Entry, stamp time.Time) []byte {
	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + f.ProductID,
		"BEGIN:VEVENT",
		"UID:" + entry.ID + "@" + f.UIDDomain,
		"DTSTAMP:" + stamp.UTC().Format(icsTimeLayout),
		"DTSTART:" + entry.Start.UTC().Format(icsTimeLayout),
		"DTEND:" + entry.End.UTC().Format(icsTimeLayout),
		"SUMMARY:" + entry.Summary,
		"DESCRIPTION:" + strings.ReplaceAll(entry.Description, "\n", `\n`),
		"END:VEVENT",
		"END:VCALENDAR",
	}
	return []byte(strings.Join(lines, "\n"))
}

// Render renders entry with DefaultFormat.
func Render(entry Entry, stamp time.Time) []byte {
	return DefaultFormat().Render(entry, stamp)
}

// FileName derives the download name from an event name: every whitespace
// rune becomes an underscore and ".ics" is appended.
func FileName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, name) + ".ics"
}

var italianMonths = [...]string{
	"gennaio", "febbraio", "marzo", "aprile", "maggio", "giugno",
	"luglio", "agosto", "settembre", "ottobre", "novembre", "dicembre",
}

// FormatRange renders a human readable Italian range such as
// "21 giugno 2025, 18:00 - 20:00" in loc (UTC when nil).
func FormatRange(start, end time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	start, end = start.In(loc), end.In(loc)
	var b strings.Builder
	b.WriteString(start.Format("2 "))
	b.WriteString(italianMonths[start.Month()-1])
	b.WriteString(start.Format(" 2006, 15:04"))
	b.WriteString(" - ")
	if start.Year() != end.Year() || start.YearDay() != end.YearDay() {
		b.WriteString(end.Format("2 "))
		b.WriteString(italianMonths[end.Month()-1])
		b.WriteString(end.Format(" 2006, "))
	}
	b.WriteString(end.Format("15:04"))
	return b.String()
}
