package main

import (
	"context"
	"log/slog"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/GuelfoNero-beep/D117/internal/application"
	"github.com/GuelfoNero-beep/D117/internal/calendar"
	"github.com/GuelfoNero-beep/D117/internal/config"
	"github.com/GuelfoNero-beep/D117/internal/logging"
	"github.com/GuelfoNero-beep/D117/internal/metrics"
	"github.com/GuelfoNero-beep/D117/internal/persistence"
	"github.com/GuelfoNero-beep/D117/internal/persistence/blobstore"
	"github.com/GuelfoNero-beep/D117/internal/persistence/sqlite"
)

// configEnv names the variable holding an explicit configuration file path.
const configEnv = "PORTAL_CONFIG"

const displayZone = "Europe/Rome"

type shellParams struct {
	fx.In

	Session  *application.Session
	Auth     *application.AuthService
	Bookings *application.BookingService
	Catalog  *application.CatalogService
	Admin    *application.AdminService
	Metrics  *metrics.Recorder
}

func main() {
	fx.New(
		options(),
		fx.Invoke(startShell),
	).Run()
}

func options() fx.Option {
	return fx.Options(
		injectInfra(),
		injectStorage(),
		injectService(),
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger}
		}),
	)
}

func injectInfra() fx.Option {
	return fx.Provide(
		newConfig,
		newLogger,
		metrics.NewRecorder,
	)
}

func injectStorage() fx.Option {
	return fx.Provide(
		newStorage,
		newAdapter,
		newCollections,
		newExporter,
	)
}

func injectService() fx.Option {
	return fx.Provide(
		newSession,
		newIntegrity,
		newAuthService,
		newBookingService,
		application.NewCatalogService,
		application.NewAdminServiceWithLogger,
		newShell,
	)
}

func newConfig() (config.Config, error) {
	return config.Load(os.Getenv(configEnv))
}

func newLogger(cfg config.Config) (*slog.Logger, error) {
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

// newStorage opens the document storage selected by storage.driver and closes
// it when the application stops.
func newStorage(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) (persistence.Storage, error) {
	var storage persistence.Storage
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.Storage.SQLitePath, logger)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite storage")
		}
		if err := s.Migrate(context.Background()); err != nil {
			_ = s.Close()
			return nil, errors.Wrap(err, "migrate sqlite storage")
		}
		if err := logRevisions(context.Background(), s, logger); err != nil {
			_ = s.Close()
			return nil, err
		}
		storage = s
	case config.DriverFiles:
		s, err := blobstore.OpenDir(cfg.Storage.Dir)
		if err != nil {
			return nil, errors.Wrap(err, "open file storage")
		}
		storage = s
	case config.DriverMemory:
		storage = blobstore.OpenMemory()
	default:
		return nil, errors.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}

	logger.Info("storage opened", "driver", cfg.Storage.Driver)
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return storage.Close()
		},
	})
	return storage, nil
}

func newAdapter(storage persistence.Storage, recorder *metrics.Recorder, logger *slog.Logger) *persistence.Adapter {
	return persistence.NewAdapter(storage,
		persistence.WithMigrations(application.LegacyMigrations()),
		persistence.WithObserver(recorder),
		persistence.WithLogger(logger),
	)
}

func newCollections(adapter *persistence.Adapter, recorder *metrics.Recorder, logger *slog.Logger) (*application.Collections, error) {
	defaults, err := application.LoadDefaults(time.Now())
	if err != nil {
		return nil, err
	}
	ctx := logging.ContextWithLogger(context.Background(), logger)
	c := application.OpenCollections(ctx, adapter, defaults, application.CollectionsOptions{
		Observer: recorder,
		Logger:   logger,
	})

	sizes := c.Sizes()
	attrs := make([]any, 0, 2*len(sizes))
	for _, key := range persistence.Keys() {
		attrs = append(attrs, key, sizes[key])
	}
	logger.Info("collections loaded", attrs...)
	return c, nil
}

// logRevisions reports how often each collection document has been written.
func logRevisions(ctx context.Context, s *sqlite.Storage, logger *slog.Logger) error {
	attrs := make([]any, 0, 2*len(persistence.Keys()))
	for _, key := range persistence.Keys() {
		rev, err := s.Revision(ctx, key)
		if err != nil {
			return err
		}
		attrs = append(attrs, key, rev)
	}
	logger.InfoContext(ctx, "document revisions", attrs...)
	return nil
}

// newExporter writes calendar files to calendar.exportDir. The memory driver
// keeps them in memory as well.
func newExporter(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) (*calendar.Exporter, error) {
	format := calendar.Format{ProductID: cfg.Calendar.ProductID, UIDDomain: cfg.Calendar.UIDDomain}

	var exporter *calendar.Exporter
	if cfg.Storage.Driver == config.DriverMemory {
		exporter = calendar.NewMemoryExporter(format, time.Now, logger)
	} else {
		var err error
		if exporter, err = calendar.OpenDirExporter(cfg.Calendar.ExportDir, format, time.Now, logger); err != nil {
			return nil, errors.Wrap(err, "open calendar export dir")
		}
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return exporter.Close()
		},
	})
	return exporter, nil
}

// newSession creates the process wide session, cleared on shutdown.
func newSession(lc fx.Lifecycle) *application.Session {
	session := application.NewSession()
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			session.Clear()
			return nil
		},
	})
	return session
}

func newIntegrity(c *application.Collections, logger *slog.Logger) *application.IntegrityCoordinator {
	return application.NewIntegrityCoordinator(c, logger)
}

func newAuthService(c *application.Collections, recorder *metrics.Recorder, logger *slog.Logger) *application.AuthService {
	return application.NewAuthServiceWithLogger(c.Users, recorder, logger)
}

func newBookingService(c *application.Collections, exporter *calendar.Exporter, recorder *metrics.Recorder, logger *slog.Logger) *application.BookingService {
	return application.NewBookingServiceWithLogger(c, exporter, recorder, time.Now, logger)
}

func newShell(p shellParams) *shell {
	loc, err := time.LoadLocation(displayZone)
	if err != nil {
		loc = time.UTC
	}
	return &shell{
		session:  p.Session,
		auth:     p.Auth,
		bookings: p.Bookings,
		catalog:  p.Catalog,
		admin:    p.Admin,
		metrics:  p.Metrics,
		loc:      loc,
		out:      os.Stdout,
	}
}

// startShell runs the shell on stdin once the application has started and
// shuts the application down when the shell returns.
func startShell(lc fx.Lifecycle, shutdowner fx.Shutdowner, sh *shell, logger *slog.Logger) {
	ctx, cancel := context.WithCancel(logging.ContextWithLogger(context.Background(), logger))
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := sh.run(ctx, os.Stdin); err != nil {
					logger.Error("shell stopped", "error", err)
				}
				if err := shutdowner.Shutdown(); err != nil {
					logger.Error("failed to shut down", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
