// Package blobstore persists collection documents as objects in a gocloud blob
// bucket, one object per collection key.
package blobstore

import (
	"context"

	"github.com/pkg/errors"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	"github.com/GuelfoNero-beep/D117/internal/persistence"
)

const objectSuffix = ".json"

// Storage implements persistence.Storage on top of a blob bucket.
type Storage struct {
	bucket *blob.Bucket
}

// New wraps an already opened bucket. Close closes the bucket.
func New(bucket *blob.Bucket) *Storage {
	return &Storage{bucket: bucket}
}

// OpenDir stores documents as JSON files below dir, creating it when missing.
func OpenDir(dir string) (*Storage, error) {
	bucket, err := fileblob.OpenBucket(dir, &fileblob.Options{CreateDir: true})
	if err != nil {
		return nil, errors.Wrapf(err, "open document directory %s", dir)
	}
	return New(bucket), nil
}

// OpenMemory returns a volatile storage, lost on Close.
func OpenMemory() *Storage {
	return New(memblob.OpenBucket(nil))
}

// Get implements persistence.Storage.
func (s *Storage) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := s.bucket.ReadAll(ctx, key+objectSuffix)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, persistence.ErrNotFound
		}
		return nil, errors.Wrapf(err, "read %s", key)
	}
	return payload, nil
}

// Put implements persistence.Storage.
func (s *Storage) Put(ctx context.Context, key string, payload []byte) error {
	opts := &blob.WriterOptions{ContentType: "application/json"}
	if err := s.bucket.WriteAll(ctx, key+objectSuffix, payload, opts); err != nil {
		return errors.Wrapf(err, "write %s", key)
	}
	return nil
}

// Close implements persistence.Storage.
func (s *Storage) Close() error {
	return s.bucket.Close()
}
