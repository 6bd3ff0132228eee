package persistence

import "context"

// Storage is a durable key/value store holding one serialized collection per key.
type Storage interface {
	// Get returns the payload stored under key or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the payload stored under key.
	Put(ctx context.Context, key string, payload []byte) error
	Close() error
}

// Collection keys shared with previously persisted browser data.
const (
	KeyUsers       = "app_users"
	KeyEvents      = "app_events"
	KeyAudioGuides = "app_audioGuides"
	KeyDirectory   = "app_directory"
	KeyBookings    = "app_bookings"
	KeyReferences  = "app_references"
)

// Keys lists every collection key in load order.
func Keys() []string {
	return []string{KeyUsers, KeyEvents, KeyAudioGuides, KeyDirectory, KeyBookings, KeyReferences}
}
