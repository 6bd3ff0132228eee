package application

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CatalogService serves the member facing read models.
type CatalogService struct {
	c *Collections
}

// NewCatalogService constructs a CatalogService over the collections.
func NewCatalogService(c *Collections) *CatalogService {
	return &CatalogService{c: c}
}

// Events returns every event ordered by start time.
func (s *CatalogService) Events(ctx context.Context) []Event {
	events := s.c.Events.List(ctx)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartsAt.Before(events[j].StartsAt)
	})
	return events
}

// AudioGuides returns the guides ordered by sort order, ties in insertion order.
func (s *CatalogService) AudioGuides(ctx context.Context) []AudioGuide {
	guides := s.c.AudioGuides.List(ctx)
	sort.SliceStable(guides, func(i, j int) bool {
		return guides[i].SortOrder < guides[j].SortOrder
	})
	return guides
}

// References returns the useful references in insertion order.
func (s *CatalogService) References(ctx context.Context) []UsefulReference {
	return s.c.References.List(ctx)
}

// Directory returns the members whose name, surname, profession or company
// contains term, ignoring case and accents. An empty term returns everyone.
func (s *CatalogService) Directory(ctx context.Context, term string) []DirectoryMember {
	members := s.c.Directory.List(ctx)
	needle := foldForSearch(strings.TrimSpace(term))
	if needle == "" {
		return members
	}

	matches := make([]DirectoryMember, 0, len(members))
	for _, m := range members {
		for _, field := range []string{m.Name, m.Surname, m.Profession, m.Company} {
			if strings.Contains(foldForSearch(field), needle) {
				matches = append(matches, m)
				break
			}
		}
	}
	return matches
}

// LinkedUser resolves the optional user reference of a directory member.
// A missing or dangling reference reports false.
func (s *CatalogService) LinkedUser(ctx context.Context, member DirectoryMember) (User, bool) {
	if member.UserID == "" {
		return User{}, false
	}
	user, err := s.c.Users.Get(ctx, member.UserID)
	if err != nil {
		return User{}, false
	}
	return user, true
}

// foldForSearch removes diacritics and applies Unicode case folding.
func foldForSearch(s string) string {
	if s == "" {
		return s
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC, cases.Fold())
	folded, _, err := transform.String(t, s)
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}
