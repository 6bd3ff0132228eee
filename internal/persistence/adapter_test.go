package persistence_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GuelfoNero-beep/D117/internal/persistence"
	"github.com/GuelfoNero-beep/D117/internal/persistence/blobstore"
)

type item struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	StartAt time.Time `json:"startAt"`
}

type recordingObserver struct {
	loads []persistence.LoadOutcome
	saves []error
}

func (r *recordingObserver) CollectionLoaded(_ string, outcome persistence.LoadOutcome) {
	r.loads = append(r.loads, outcome)
}

func (r *recordingObserver) CollectionSaved(_ string, err error) {
	r.saves = append(r.saves, err)
}

type failingStorage struct{ err error }

func (f failingStorage) Get(context.Context, string) ([]byte, error) { return nil, f.err }
func (f failingStorage) Put(context.Context, string, []byte) error   { return f.err }
func (failingStorage) Close() error                                  { return nil }

var fixedNow = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func newAdapter(t *testing.T, opts ...persistence.AdapterOption) (*persistence.Adapter, *blobstore.Storage) {
	t.Helper()
	storage := blobstore.OpenMemory()
	t.Cleanup(func() { _ = storage.Close() })
	opts = append([]persistence.AdapterOption{persistence.WithClock(func() time.Time { return fixedNow })}, opts...)
	return persistence.NewAdapter(storage, opts...), storage
}

func TestLoad_FallsBackToDefaults(t *testing.T) {
	t.Parallel()

	defaults := []item{{ID: "d1", Title: "default"}}

	t.Run("absent key", func(t *testing.T) {
		t.Parallel()
		obs := &recordingObserver{}
		adapter, storage := newAdapter(t, persistence.WithObserver(obs))

		got := persistence.Load(context.Background(), adapter, "things", defaults, "startAt")
		assert.Equal(t, defaults, got)
		assert.Equal(t, []persistence.LoadOutcome{persistence.OutcomeDefault}, obs.loads)

		_, err := storage.Get(context.Background(), "things")
		assert.ErrorIs(t, err, persistence.ErrNotFound, "defaults must not be written back")
	})

	for name, payload := range map[string]string{
		"corrupt json":         `[{"id":`,
		"not a document":       `"hello"`,
		"newer schema":         `{"schema":99,"kind":"things","records":[]}`,
		"bad timestamp":        `[{"id":"x","startAt":"yesterday"}]`,
		"record type mismatch": `[{"id":42}]`,
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			obs := &recordingObserver{}
			adapter, storage := newAdapter(t, persistence.WithObserver(obs))
			require.NoError(t, storage.Put(context.Background(), "things", []byte(payload)))

			got := persistence.Load(context.Background(), adapter, "things", defaults, "startAt")
			assert.Equal(t, defaults, got)
			assert.Equal(t, []persistence.LoadOutcome{persistence.OutcomeFallback}, obs.loads)
		})
	}

	t.Run("storage error", func(t *testing.T) {
		t.Parallel()
		adapter := persistence.NewAdapter(failingStorage{err: errors.New("disk gone")})
		got := persistence.Load(context.Background(), adapter, "things", defaults)
		assert.Equal(t, defaults, got)
	})
}

func TestLoad_RevivesTimestamps(t *testing.T) {
	t.Parallel()

	adapter, storage := newAdapter(t)
	payload := `[
		{"id":"a","title":"iso","startAt":"2025-06-21T18:00:00.000Z"},
		{"id":"b","title":"offset","startAt":"2025-06-21T20:00:00+02:00"},
		{"id":"c","title":"epoch","startAt":1750528800000},
		{"id":"d","title":"date","startAt":"2025-06-21"}
	]`
	require.NoError(t, storage.Put(context.Background(), "things", []byte(payload)))

	got := persistence.Load[item](context.Background(), adapter, "things", nil, "startAt")
	require.Len(t, got, 4)

	want := time.Date(2025, 6, 21, 18, 0, 0, 0, time.UTC)
	for _, it := range got[:3] {
		assert.True(t, it.StartAt.Equal(want), "%s: got %s", it.Title, it.StartAt)
	}
	assert.True(t, got[3].StartAt.Equal(time.Date(2025, 6, 21, 0, 0, 0, 0, time.UTC)))
}

func TestSave_WritesVersionedEnvelope(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	adapter, storage := newAdapter(t, persistence.WithObserver(obs))
	ctx := context.Background()
	start := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, persistence.Save(ctx, adapter, "things", []item{{ID: "a", Title: "one", StartAt: start}}))

	raw, err := storage.Get(ctx, "things")
	require.NoError(t, err)

	var envelope struct {
		Schema  int               `json:"schema"`
		Kind    string            `json:"kind"`
		SavedAt time.Time         `json:"savedAt"`
		Records []json.RawMessage `json:"records"`
	}
	require.NoError(t, json.Unmarshal(raw, &envelope))
	assert.Equal(t, persistence.CurrentSchema, envelope.Schema)
	assert.Equal(t, "things", envelope.Kind)
	assert.True(t, envelope.SavedAt.Equal(fixedNow))
	assert.Len(t, envelope.Records, 1)
	assert.Equal(t, []error{nil}, obs.saves)

	got := persistence.Load[item](ctx, adapter, "things", nil, "startAt")
	require.Len(t, got, 1)
	assert.True(t, got[0].StartAt.Equal(start))
}

func TestSave_PropagatesStorageErrors(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	cause := errors.New("quota exceeded")
	adapter := persistence.NewAdapter(failingStorage{err: cause}, persistence.WithObserver(obs))

	err := persistence.Save(context.Background(), adapter, "things", []item{{ID: "a"}})
	require.ErrorIs(t, err, cause)
	require.Len(t, obs.saves, 1)
	assert.ErrorIs(t, obs.saves[0], cause)
}

func TestLoad_RunsMigrations(t *testing.T) {
	t.Parallel()

	migrations := persistence.NewMigrations()
	migrations.Register("things", 1, persistence.RenameFields(map[string]string{
		"titolo":     "title",
		"dataInizio": "startAt",
	}))
	adapter, storage := newAdapter(t, persistence.WithMigrations(migrations))
	ctx := context.Background()

	require.NoError(t, storage.Put(ctx, "things", []byte(`[{"id":"x","titolo":"Tornata","dataInizio":"2025-02-01T10:00:00Z"}]`)))

	got := persistence.Load[item](ctx, adapter, "things", nil, "startAt")
	require.Len(t, got, 1)
	assert.Equal(t, "Tornata", got[0].Title)
	assert.True(t, got[0].StartAt.Equal(time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)))

	// Current-schema documents bypass the legacy step.
	require.NoError(t, storage.Put(ctx, "things", []byte(`{"schema":2,"kind":"things","records":[{"id":"y","titolo":"ignored","title":"kept"}]}`)))
	got = persistence.Load[item](ctx, adapter, "things", nil)
	require.Len(t, got, 1)
	assert.Equal(t, "kept", got[0].Title)
}

func TestMigrations_Apply(t *testing.T) {
	t.Parallel()

	m := persistence.NewMigrations()
	failure := errors.New("boom")
	m.Register("k", 1, persistence.Chain(
		persistence.RenameFields(map[string]string{"a": "b"}),
		func(records []map[string]any) ([]map[string]any, error) {
			for _, r := range records {
				if r != nil {
					r["touched"] = true
				}
			}
			return records, nil
		},
	))
	m.Register("broken", 1, func([]map[string]any) ([]map[string]any, error) { return nil, failure })

	out, err := m.Apply("k", 1, 2, []map[string]any{{"a": 1}, nil})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"b": 1, "touched": true}, out[0])

	_, err = m.Apply("broken", 1, 2, []map[string]any{{}})
	require.ErrorIs(t, err, failure)

	out, err = m.Apply("unregistered", 1, 2, []map[string]any{{"a": 1}})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1}, out[0])
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 12, 24, 23, 0, 0, 0, time.UTC)
	for _, input := range []any{
		"2024-12-24T23:00:00Z",
		"2024-12-24T23:00:00.000Z",
		"2024-12-25T00:00:00+01:00",
		"2024-12-24T23:00:00",
		json.Number("1735081200000"),
		float64(1735081200000),
	} {
		got, err := persistence.ParseTimestamp(input)
		require.NoError(t, err, "%v", input)
		assert.True(t, got.Equal(want), "%v parsed as %s", input, got)
		assert.Equal(t, time.UTC, got.Location())
	}

	_, err := persistence.ParseTimestamp(true)
	assert.Error(t, err)
}
