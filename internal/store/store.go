// Package store keeps the canonical in-memory copy of each entity collection
// and writes it back through the persistence adapter after every mutation.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/GuelfoNero-beep/D117/internal/logging"
	"github.com/GuelfoNero-beep/D117/internal/persistence"
)

var (
	// ErrNotFound is returned when no record carries the requested identifier.
	ErrNotFound = errors.New("store: not found")
	// ErrIDExhausted is returned when the identifier generator keeps colliding.
	ErrIDExhausted = errors.New("store: could not generate a unique identifier")
)

const maxIDAttempts = 16

// Entity is a value record identified by a string key.
type Entity[T any] interface {
	Key() string
	WithKey(id string) T
}

// Observer is notified after each mutation attempt.
type Observer interface {
	StoreMutated(kind, operation string, err error)
	StorePersisted(kind string, err error)
}

type uniqueIndex[T any] struct {
	name string
	key  func(T) string
	err  error
}

// EntityStore owns one collection of records of type T.
type EntityStore[T Entity[T]] struct {
	mu              sync.RWMutex
	kind            string
	items           []T
	adapter         *persistence.Adapter
	newID           func() string
	uniques         []uniqueIndex[T]
	timestampFields []string
	observer        Observer
	logger          *slog.Logger
}

// Option customises an EntityStore.
type Option[T Entity[T]] func(*EntityStore[T])

// WithIDGenerator overrides the identifier generator used by Add.
func WithIDGenerator[T Entity[T]](next func() string) Option[T] {
	return func(s *EntityStore[T]) {
		if next != nil {
			s.newID = next
		}
	}
}

// WithTimestampFields names the JSON fields revived as timestamps on load.
func WithTimestampFields[T Entity[T]](fields ...string) Option[T] {
	return func(s *EntityStore[T]) { s.timestampFields = fields }
}

// UniqueBy rejects Add and Update when another record maps to the same
// non-empty key. The supplied err is returned on violation.
func UniqueBy[T Entity[T]](name string, key func(T) string, err error) Option[T] {
	return func(s *EntityStore[T]) {
		s.uniques = append(s.uniques, uniqueIndex[T]{name: name, key: key, err: err})
	}
}

// WithObserver installs an Observer.
func WithObserver[T Entity[T]](o Observer) Option[T] {
	return func(s *EntityStore[T]) { s.observer = o }
}

// WithLogger sets the logger used when the context carries none.
func WithLogger[T Entity[T]](logger *slog.Logger) Option[T] {
	return func(s *EntityStore[T]) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// PrefixedUUID returns a generator producing identifiers such as "evt-<uuid>".
func PrefixedUUID(prefix string) func() string {
	return func() string {
		return prefix + "-" + uuid.NewString()
	}
}

// Open loads the collection stored under kind, falling back to defaults, and
// returns a store ready for use.
func Open[T Entity[T]](ctx context.Context, adapter *persistence.Adapter, kind string, defaults []T, opts ...Option[T]) *EntityStore[T] {
	s := &EntityStore[T]{
		kind:    kind,
		adapter: adapter,
		newID:   PrefixedUUID(kind),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.items = slices.Clone(persistence.Load(ctx, adapter, kind, defaults, s.timestampFields...))
	return s
}

// Kind returns the collection key.
func (s *EntityStore[T]) Kind() string {
	return s.kind
}

// List returns a copy of the collection in insertion order.
func (s *EntityStore[T]) List(context.Context) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.items)
}

// Len reports the number of records.
func (s *EntityStore[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Get returns the record with the given identifier.
func (s *EntityStore[T]) Get(_ context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if idx := s.indexLocked(id); idx >= 0 {
		return s.items[idx], nil
	}
	var zero T
	return zero, ErrNotFound
}

// Find returns the first record satisfying match.
func (s *EntityStore[T]) Find(_ context.Context, match func(T) bool) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if match(item) {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Filter returns every record satisfying match, in insertion order.
func (s *EntityStore[T]) Filter(_ context.Context, match func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []T
	for _, item := range s.items {
		if match(item) {
			out = append(out, item)
		}
	}
	return out
}

// Add assigns a fresh identifier to record, appends it and persists the collection.
// Any identifier already present on record is replaced.
func (s *EntityStore[T]) Add(ctx context.Context, record T) (created T, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.notify("add", &err)

	id, err := s.freshIDLocked()
	if err != nil {
		return created, err
	}
	record = record.WithKey(id)
	if err = s.checkUniqueLocked(record, -1); err != nil {
		return created, err
	}

	s.items = append(s.items, record)
	s.persistLocked(ctx)
	return record, nil
}

// Update replaces the record carrying the same identifier.
func (s *EntityStore[T]) Update(ctx context.Context, record T) (updated T, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.notify("update", &err)

	idx := s.indexLocked(record.Key())
	if idx < 0 {
		return updated, ErrNotFound
	}
	if err = s.checkUniqueLocked(record, idx); err != nil {
		return updated, err
	}

	s.items[idx] = record
	s.persistLocked(ctx)
	return record, nil
}

// Remove deletes the record with the given identifier.
func (s *EntityStore[T]) Remove(ctx context.Context, id string) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.notify("remove", &err)

	idx := s.indexLocked(id)
	if idx < 0 {
		return ErrNotFound
	}
	s.items = slices.Delete(s.items, idx, idx+1)
	s.persistLocked(ctx)
	return nil
}

// RemoveWhere deletes every record satisfying match, persists once when
// anything was removed, and returns the removed records.
func (s *EntityStore[T]) RemoveWhere(ctx context.Context, match func(T) bool) []T {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []T
	kept := s.items[:0:0]
	for _, item := range s.items {
		if match(item) {
			removed = append(removed, item)
			continue
		}
		kept = append(kept, item)
	}
	if len(removed) == 0 {
		return nil
	}

	s.items = kept
	s.persistLocked(ctx)
	if s.observer != nil {
		s.observer.StoreMutated(s.kind, "remove_where", nil)
	}
	return removed
}

func (s *EntityStore[T]) indexLocked(id string) int {
	return slices.IndexFunc(s.items, func(item T) bool { return item.Key() == id })
}

func (s *EntityStore[T]) freshIDLocked() (string, error) {
	for range maxIDAttempts {
		id := s.newID()
		if id != "" && s.indexLocked(id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrIDExhausted, s.kind)
}

// checkUniqueLocked validates record against every unique index, ignoring the
// element at skip (the record being replaced).
func (s *EntityStore[T]) checkUniqueLocked(record T, skip int) error {
	for _, idx := range s.uniques {
		want := idx.key(record)
		if want == "" {
			continue
		}
		for i, item := range s.items {
			if i != skip && idx.key(item) == want {
				return idx.err
			}
		}
	}
	return nil
}

// persistLocked writes the collection. Failures are logged and reported to the
// observer; the in-memory change is kept.
func (s *EntityStore[T]) persistLocked(ctx context.Context) {
	err := persistence.Save(ctx, s.adapter, s.kind, s.items)
	if s.observer != nil {
		s.observer.StorePersisted(s.kind, err)
	}
	if err != nil {
		s.loggerFor(ctx).WarnContext(ctx, "collection not persisted, keeping in-memory state", "error", err)
	}
}

func (s *EntityStore[T]) notify(operation string, err *error) {
	if s.observer != nil {
		s.observer.StoreMutated(s.kind, operation, *err)
	}
}

func (s *EntityStore[T]) loggerFor(ctx context.Context) *slog.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = s.logger
	}
	return logger.With("component", "store", "kind", s.kind)
}
