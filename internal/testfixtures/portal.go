package testfixtures

import (
	"context"
	"log/slog"
	"testing"

	"github.com/GuelfoNero-beep/D117/internal/application"
	"github.com/GuelfoNero-beep/D117/internal/calendar"
	"github.com/GuelfoNero-beep/D117/internal/logging"
	"github.com/GuelfoNero-beep/D117/internal/persistence"
	"github.com/GuelfoNero-beep/D117/internal/persistence/blobstore"
)

// Portal bundles collections and services over in-memory storage with a
// deterministic clock and identifier source.
type Portal struct {
	Storage     persistence.Storage
	Adapter     *persistence.Adapter
	Collections *application.Collections
	Session     *application.Session
	Calendar    *calendar.Exporter

	Auth      *application.AuthService
	Bookings  *application.BookingService
	Catalog   *application.CatalogService
	Admin     *application.AdminService
	Integrity *application.IntegrityCoordinator

	Clock  *Clock
	IDs    *IDGenerator
	Logger *slog.Logger
}

// PortalOption customises NewPortal.
type PortalOption func(*portalConfig)

type portalConfig struct {
	defaults *application.Defaults
	storage  persistence.Storage
	exporter application.CalendarExporter
	clock    *Clock
}

// WithDefaults replaces the seed collections. Without it the embedded seed is used.
func WithDefaults(d application.Defaults) PortalOption {
	return func(c *portalConfig) { c.defaults = &d }
}

// WithStorage replaces the in-memory storage.
func WithStorage(s persistence.Storage) PortalOption {
	return func(c *portalConfig) { c.storage = s }
}

// WithCalendarExporter replaces the in-memory calendar exporter used by BookingService.
func WithCalendarExporter(e application.CalendarExporter) PortalOption {
	return func(c *portalConfig) { c.exporter = e }
}

// WithClock shares clock with the harness.
func WithClock(clock *Clock) PortalOption {
	return func(c *portalConfig) { c.clock = clock }
}

// NewPortal builds a Portal and registers cleanup with tb.
func NewPortal(tb testing.TB, opts ...PortalOption) *Portal {
	tb.Helper()

	cfg := portalConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.clock == nil {
		cfg.clock = NewClock(ReferenceTime())
	}
	if cfg.storage == nil {
		cfg.storage = blobstore.OpenMemory()
	}
	if cfg.defaults == nil {
		d, err := application.LoadDefaults(cfg.clock.Now())
		if err != nil {
			tb.Fatalf("failed to load defaults: %v", err)
		}
		cfg.defaults = &d
	}

	logger := logging.Discard()
	ids := NewIDGenerator()
	adapter := persistence.NewAdapter(cfg.storage,
		persistence.WithMigrations(application.LegacyMigrations()),
		persistence.WithClock(cfg.clock.NowFunc()),
		persistence.WithLogger(logger),
	)
	collections := application.OpenCollections(context.Background(), adapter, *cfg.defaults, application.CollectionsOptions{
		IDGenerator: ids.ForPrefix,
		Logger:      logger,
	})

	exporter := calendar.NewMemoryExporter(calendar.DefaultFormat(), cfg.clock.NowFunc(), logger)
	var bookingExporter application.CalendarExporter = exporter
	if cfg.exporter != nil {
		bookingExporter = cfg.exporter
	}

	integrity := application.NewIntegrityCoordinator(collections, logger)
	p := &Portal{
		Storage:     cfg.storage,
		Adapter:     adapter,
		Collections: collections,
		Session:     application.NewSession(),
		Calendar:    exporter,
		Auth:        application.NewAuthServiceWithLogger(collections.Users, nil, logger),
		Bookings:    application.NewBookingServiceWithLogger(collections, bookingExporter, nil, cfg.clock.NowFunc(), logger),
		Catalog:     application.NewCatalogService(collections),
		Admin:       application.NewAdminServiceWithLogger(collections, integrity, logger),
		Integrity:   integrity,
		Clock:       cfg.clock,
		IDs:         ids,
		Logger:      logger,
	}

	tb.Cleanup(func() {
		_ = exporter.Close()
		_ = cfg.storage.Close()
	})
	return p
}

// LoginAs logs nickname into the harness session, failing the test on error.
func (p *Portal) LoginAs(tb testing.TB, nickname, credential string) application.User {
	tb.Helper()
	user, err := p.Auth.Login(context.Background(), p.Session, nickname, credential)
	if err != nil {
		tb.Fatalf("login as %q failed: %v", nickname, err)
	}
	return user
}

// Reopen loads a fresh set of collections from the same storage, as a restart would.
func (p *Portal) Reopen(tb testing.TB) *application.Collections {
	tb.Helper()
	return application.OpenCollections(context.Background(), p.Adapter, application.Defaults{}, application.CollectionsOptions{
		IDGenerator: p.IDs.ForPrefix,
		Logger:      p.Logger,
	})
}
