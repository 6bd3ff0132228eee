package persistence

import (
	"sync"

	pkgerrors "github.com/pkg/errors"
)

// Migration upgrades generic records of one collection from version N to N+1.
type Migration func(records []map[string]any) ([]map[string]any, error)

type migrationKey struct {
	kind string
	from int
}

// Migrations is a registry of per-collection document migrations.
type Migrations struct {
	mu    sync.RWMutex
	steps map[migrationKey]Migration
}

// NewMigrations returns an empty registry.
func NewMigrations() *Migrations {
	return &Migrations{steps: make(map[migrationKey]Migration)}
}

// Register installs fn as the upgrade of kind from version from to from+1.
func (m *Migrations) Register(kind string, from int, fn Migration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.steps[migrationKey{kind: kind, from: from}] = fn
}

// Apply runs every registered step for kind between from and to in order.
// Versions without a registered step leave the records untouched.
func (m *Migrations) Apply(kind string, from, to int, records []map[string]any) ([]map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for version := from; version < to; version++ {
		fn, ok := m.steps[migrationKey{kind: kind, from: version}]
		if !ok {
			continue
		}
		migrated, err := fn(records)
		if err != nil {
			return nil, pkgerrors.Wrapf(err, "migrate %s from schema %d", kind, version)
		}
		records = migrated
	}
	return records, nil
}

// RenameFields returns a Migration that renames record fields according to
// renames (old name to new name). A field already present under its new name wins.
func RenameFields(renames map[string]string) Migration {
	return func(records []map[string]any) ([]map[string]any, error) {
		for _, rec := range records {
			if rec == nil {
				continue
			}
			for from, to := range renames {
				value, ok := rec[from]
				if !ok {
					continue
				}
				delete(rec, from)
				if _, exists := rec[to]; !exists {
					rec[to] = value
				}
			}
		}
		return records, nil
	}
}

// Chain composes migrations into a single step.
func Chain(steps ...Migration) Migration {
	return func(records []map[string]any) ([]map[string]any, error) {
		var err error
		for _, step := range steps {
			if records, err = step(records); err != nil {
				return nil, err
			}
		}
		return records, nil
	}
}
