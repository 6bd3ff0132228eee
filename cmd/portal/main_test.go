package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/GuelfoNero-beep/D117/internal/config"
	"github.com/GuelfoNero-beep/D117/internal/logging"
	"github.com/GuelfoNero-beep/D117/internal/metrics"
	"github.com/GuelfoNero-beep/D117/internal/persistence"
	"github.com/GuelfoNero-beep/D117/internal/testfixtures"
)

func TestOptionsGraphIsComplete(t *testing.T) {
	require.NoError(t, fx.ValidateApp(options(), fx.Invoke(startShell)))
}

func TestNewStorage(t *testing.T) {
	dir := t.TempDir()

	for _, driver := range []string{config.DriverSQLite, config.DriverFiles, config.DriverMemory} {
		t.Run(driver, func(t *testing.T) {
			cfg := config.Default()
			cfg.Storage.Driver = driver
			cfg.Storage.SQLitePath = filepath.Join(dir, "portal.db")
			cfg.Storage.Dir = filepath.Join(dir, "data")

			lc := fxtest.NewLifecycle(t)
			storage, err := newStorage(lc, cfg, logging.Discard())
			require.NoError(t, err)
			lc.RequireStart()

			ctx := context.Background()
			require.NoError(t, storage.Put(ctx, persistence.KeyReferences, []byte(`[]`)))
			got, err := storage.Get(ctx, persistence.KeyReferences)
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(got))

			lc.RequireStop()
		})
	}

	t.Run("unknown driver", func(t *testing.T) {
		cfg := config.Default()
		cfg.Storage.Driver = "postgres"
		_, err := newStorage(fxtest.NewLifecycle(t), cfg, logging.Discard())
		assert.ErrorContains(t, err, "unsupported storage driver")
	})
}

func newTestShell(t *testing.T) (*shell, *bytes.Buffer, *testfixtures.Portal) {
	t.Helper()
	p := testfixtures.NewPortal(t)
	out := &bytes.Buffer{}
	return &shell{
		session:  p.Session,
		auth:     p.Auth,
		bookings: p.Bookings,
		catalog:  p.Catalog,
		admin:    p.Admin,
		metrics:  metrics.NewRecorder(),
		loc:      time.UTC,
		out:      out,
	}, out, p
}

func TestShellMemberSession(t *testing.T) {
	sh, out, p := newTestShell(t)

	script := strings.Join([]string{
		"login mario wrong",
		"login mario password",
		"whoami",
		"book evt01",
		"book evt01",
		"events",
		"bookings",
		"directory medico",
		"users list",
		"logout",
		"quit",
		"whoami",
	}, "\n")
	require.NoError(t, sh.run(context.Background(), strings.NewReader(script)))

	text := out.String()
	assert.Contains(t, text, "error: application: invalid credentials")
	assert.Contains(t, text, "welcome Mario Rossi (member)")
	assert.Contains(t, text, "booked Tornata Rituale (book-001)")
	assert.Contains(t, text, "calendar file: Tornata_Rituale.ics")
	assert.Contains(t, text, "error: application: event already booked")
	assert.Contains(t, text, "* evt01  Tornata Rituale")
	assert.Contains(t, text, "Luca Bianchi | Medico")
	assert.Contains(t, text, "error: application: unauthorized")
	assert.Contains(t, text, "logged out")
	assert.NotContains(t, text, "no active session", "commands after quit must not run")

	assert.Equal(t, 1, p.Collections.Bookings.Len())
}

func TestShellAdminCommands(t *testing.T) {
	sh, out, p := newTestShell(t)
	ctx := context.Background()

	require.NoError(t, sh.execute(ctx, "login admin admin"))
	require.NoError(t, sh.execute(ctx, `refs add {"title":"Tegolatura","body":"Nuove regole"}`))
	require.NoError(t, sh.execute(ctx, `events add {"name":"Agape","startsAt":"2025-07-01T19:00:00Z","endsAt":"2025-07-01T22:00:00Z"}`))
	assert.Error(t, sh.execute(ctx, `events add {"name":"Rovescio","startsAt":"2025-07-01T19:00:00Z","endsAt":"2025-07-01T18:00:00Z"}`))
	assert.Error(t, sh.execute(ctx, "bookings add {}"))
	assert.Error(t, sh.execute(ctx, "users delete admin01"))
	require.NoError(t, sh.execute(ctx, "directory delete dir04"))
	require.NoError(t, sh.execute(ctx, "metrics"))

	assert.Equal(t, 8, p.Collections.References.Len())
	assert.Equal(t, 4, p.Collections.Events.Len())
	assert.Equal(t, 3, p.Collections.Directory.Len())
	assert.Contains(t, out.String(), `"title":"Tegolatura"`)
	assert.Contains(t, out.String(), "deleted dir04")
}

func TestShellEventDeleteCascades(t *testing.T) {
	sh, out, p := newTestShell(t)
	ctx := context.Background()

	require.NoError(t, sh.execute(ctx, "login mario password"))
	require.NoError(t, sh.execute(ctx, "book evt01"))
	require.NoError(t, sh.execute(ctx, "login admin admin"))

	require.NoError(t, sh.execute(ctx, "events delete evt01"))
	assert.Contains(t, out.String(), "1 bookings removed")
	assert.Contains(t, out.String(), "deleted evt01")
	assert.Equal(t, 2, p.Collections.Events.Len())
	assert.Equal(t, 0, p.Collections.Bookings.Len())

	assert.ErrorContains(t, sh.execute(ctx, "events delete evt01"), "not found")
}

func TestShellAdminPrefixAndSearch(t *testing.T) {
	sh, out, p := newTestShell(t)
	ctx := context.Background()

	require.NoError(t, sh.execute(ctx, "login admin admin"))
	require.NoError(t, sh.execute(ctx, `admin directory add {"name":"Lista","surname":"Bianca","profession":"list maker"}`))
	assert.Equal(t, 5, p.Collections.Directory.Len())

	out.Reset()
	require.NoError(t, sh.execute(ctx, "search list"))
	assert.Contains(t, out.String(), "Lista Bianca | list maker")

	require.NoError(t, sh.execute(ctx, "admin events delete evt02"))
	assert.Equal(t, 2, p.Collections.Events.Len())
	assert.Error(t, sh.execute(ctx, "admin events"))
}

func TestLogRevisions(t *testing.T) {
	ctx := context.Background()
	storage := testfixtures.NewSQLiteStorage(t)
	require.NoError(t, storage.Put(ctx, persistence.KeyUsers, []byte(`[]`)))
	require.NoError(t, storage.Put(ctx, persistence.KeyUsers, []byte(`[]`)))

	var buf bytes.Buffer
	logger, err := logging.New(&buf, "info", "text")
	require.NoError(t, err)

	require.NoError(t, logRevisions(ctx, storage, logger))
	assert.Contains(t, buf.String(), "app_users=2")
	assert.Contains(t, buf.String(), "app_events=0")
}
