package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/GuelfoNero-beep/D117/internal/logging"
)

// CurrentSchema is the document version written by Save.
const CurrentSchema = 2

// LoadOutcome classifies how a collection was obtained by Load.
type LoadOutcome string

const (
	// OutcomeStored means the persisted document was decoded successfully.
	OutcomeStored LoadOutcome = "stored"
	// OutcomeDefault means nothing was persisted under the key.
	OutcomeDefault LoadOutcome = "default"
	// OutcomeFallback means a persisted document existed but could not be used.
	OutcomeFallback LoadOutcome = "fallback"
)

// Observer receives load and save notifications, typically for metrics.
type Observer interface {
	CollectionLoaded(key string, outcome LoadOutcome)
	CollectionSaved(key string, err error)
}

// document is the versioned envelope persisted for every collection.
type document struct {
	Schema  int               `json:"schema"`
	Kind    string            `json:"kind"`
	SavedAt time.Time         `json:"savedAt"`
	Records []json.RawMessage `json:"records"`
}

// Adapter reads and writes named collections through a Storage.
type Adapter struct {
	storage    Storage
	migrations *Migrations
	observer   Observer
	now        func() time.Time
	logger     *slog.Logger
}

// AdapterOption customises an Adapter.
type AdapterOption func(*Adapter)

// WithMigrations installs the migrations run on documents older than CurrentSchema.
func WithMigrations(m *Migrations) AdapterOption {
	return func(a *Adapter) { a.migrations = m }
}

// WithObserver installs an Observer.
func WithObserver(o Observer) AdapterOption {
	return func(a *Adapter) { a.observer = o }
}

// WithClock overrides the time source used for the savedAt stamp.
func WithClock(now func() time.Time) AdapterOption {
	return func(a *Adapter) {
		if now != nil {
			a.now = now
		}
	}
}

// WithLogger sets the fallback logger used when the context carries none.
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) { a.logger = logger }
}

// NewAdapter constructs an Adapter around storage.
func NewAdapter(storage Storage, opts ...AdapterOption) *Adapter {
	a := &Adapter{storage: storage, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	if a.migrations == nil {
		a.migrations = NewMigrations()
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a
}

func (a *Adapter) loggerFor(ctx context.Context, key, operation string) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = a.logger
	}
	return logger.With("component", "persistence", "operation", operation, "key", key)
}

// Load returns the collection stored under key, or defaults when nothing usable
// is stored. Every field named in timestampFields is normalised to RFC 3339 UTC
// before decoding so that time.Time fields accept legacy representations.
//
// Load never fails: read, decode and migration errors are logged and the
// defaults are returned without being written back.
func Load[T any](ctx context.Context, a *Adapter, key string, defaults []T, timestampFields ...string) []T {
	logger := a.loggerFor(ctx, key, "load")

	records, err := a.read(ctx, key, timestampFields)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		logger.DebugContext(ctx, "no stored collection, using defaults")
		a.notifyLoad(key, OutcomeDefault)
		return defaults
	default:
		logger.WarnContext(ctx, "stored collection unusable, using defaults", "error", err)
		a.notifyLoad(key, OutcomeFallback)
		return defaults
	}

	out := make([]T, 0, len(records))
	for i, raw := range records {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			logger.WarnContext(ctx, "stored record undecodable, using defaults", "error", err, "index", i)
			a.notifyLoad(key, OutcomeFallback)
			return defaults
		}
		out = append(out, item)
	}

	logger.DebugContext(ctx, "collection loaded", "records", len(out))
	a.notifyLoad(key, OutcomeStored)
	return out
}

// Save writes the full collection under key, replacing whatever was stored.
func Save[T any](ctx context.Context, a *Adapter, key string, collection []T) (err error) {
	logger := a.loggerFor(ctx, key, "save")
	defer func() {
		if a.observer != nil {
			a.observer.CollectionSaved(key, err)
		}
		if err != nil {
			logger.ErrorContext(ctx, "collection save failed", "error", err)
		}
	}()

	doc := document{
		Schema:  CurrentSchema,
		Kind:    key,
		SavedAt: a.now().UTC(),
		Records: make([]json.RawMessage, 0, len(collection)),
	}
	for _, item := range collection {
		raw, mErr := json.Marshal(item)
		if mErr != nil {
			return pkgerrors.Wrapf(mErr, "encode %s record", key)
		}
		doc.Records = append(doc.Records, raw)
	}

	payload, mErr := json.Marshal(doc)
	if mErr != nil {
		return pkgerrors.Wrapf(mErr, "encode %s document", key)
	}
	if pErr := a.storage.Put(ctx, key, payload); pErr != nil {
		return pkgerrors.Wrapf(pErr, "write %s", key)
	}
	return nil
}

func (a *Adapter) read(ctx context.Context, key string, timestampFields []string) ([]json.RawMessage, error) {
	payload, err := a.storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	schema, records, err := decodeDocument(payload)
	if err != nil {
		return nil, err
	}
	if schema > CurrentSchema {
		return nil, pkgerrors.Wrapf(ErrUnsupportedSchema, "%s has schema %d", key, schema)
	}

	if schema < CurrentSchema || len(timestampFields) > 0 {
		records, err = a.upgrade(key, schema, records, timestampFields)
		if err != nil {
			return nil, err
		}
	}
	return records, nil
}

// upgrade runs registered migrations and timestamp revival over generic records.
func (a *Adapter) upgrade(key string, schema int, records []json.RawMessage, timestampFields []string) ([]json.RawMessage, error) {
	generic := make([]map[string]any, 0, len(records))
	for i, raw := range records {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			return nil, pkgerrors.Wrapf(err, "decode %s record %d", key, i)
		}
		generic = append(generic, rec)
	}

	generic, err := a.migrations.Apply(key, schema, CurrentSchema, generic)
	if err != nil {
		return nil, err
	}

	out := make([]json.RawMessage, 0, len(generic))
	for i, rec := range generic {
		if err := reviveTimestamps(rec, timestampFields); err != nil {
			return nil, pkgerrors.Wrapf(err, "%s record %d", key, i)
		}
		raw, err := json.Marshal(rec)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "re-encode %s record %d", key, i)
		}
		out = append(out, raw)
	}
	return out, nil
}

// decodeDocument accepts a versioned envelope or a bare JSON array, which is schema 1.
func decodeDocument(payload []byte) (int, []json.RawMessage, error) {
	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 {
		return 0, nil, ErrMalformedDocument
	}

	switch trimmed[0] {
	case '[':
		var records []json.RawMessage
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return 0, nil, pkgerrors.Wrap(ErrMalformedDocument, err.Error())
		}
		return 1, records, nil
	case '{':
		var doc document
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return 0, nil, pkgerrors.Wrap(ErrMalformedDocument, err.Error())
		}
		if doc.Schema < 1 {
			return 0, nil, pkgerrors.Wrap(ErrMalformedDocument, "missing schema version")
		}
		return doc.Schema, doc.Records, nil
	default:
		return 0, nil, ErrMalformedDocument
	}
}

func (a *Adapter) notifyLoad(key string, outcome LoadOutcome) {
	if a.observer != nil {
		a.observer.CollectionLoaded(key, outcome)
	}
}
