package application

import (
	_ "embed"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Defaults holds the seed collections used when storage is empty or unreadable.
type Defaults struct {
	Users       []User
	Events      []Event
	AudioGuides []AudioGuide
	Directory   []DirectoryMember
	Bookings    []Booking
	References  []UsefulReference
}

type seedEvent struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	ImageURL    string        `yaml:"imageUrl"`
	StartsIn    time.Duration `yaml:"startsIn"`
	Duration    time.Duration `yaml:"duration"`
}

type seedDocument struct {
	Users       []User            `yaml:"users"`
	Events      []seedEvent       `yaml:"events"`
	AudioGuides []AudioGuide      `yaml:"audioGuides"`
	Directory   []DirectoryMember `yaml:"directory"`
	References  []UsefulReference `yaml:"references"`
}

// LoadDefaults parses the embedded seed, resolving event offsets against now.
func LoadDefaults(now time.Time) (Defaults, error) {
	return parseDefaults(defaultsYAML, now)
}

func parseDefaults(raw []byte, now time.Time) (Defaults, error) {
	var doc seedDocument
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Defaults{}, errors.Wrap(err, "parse default collections")
	}

	now = now.UTC()
	events := make([]Event, 0, len(doc.Events))
	for _, seed := range doc.Events {
		start := now.Add(seed.StartsIn)
		events = append(events, Event{
			ID:          seed.ID,
			Name:        seed.Name,
			Description: seed.Description,
			ImageURL:    seed.ImageURL,
			StartsAt:    start,
			EndsAt:      start.Add(seed.Duration),
		})
	}

	return Defaults{
		Users:       doc.Users,
		Events:      events,
		AudioGuides: doc.AudioGuides,
		Directory:   doc.Directory,
		Bookings:    []Booking{},
		References:  doc.References,
	}, nil
}
