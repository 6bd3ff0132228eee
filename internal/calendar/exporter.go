package calendar

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"
	"gocloud.dev/blob"
	"gocloud.dev/blob/fileblob"
	"gocloud.dev/blob/memblob"
)

// ContentType is the MIME type of rendered files.
const ContentType = "text/calendar"

// Exporter renders entries and writes them into a blob bucket.
type Exporter struct {
	bucket *blob.Bucket
	format Format
	now    func() time.Time
	logger *slog.Logger
}

// NewExporter writes into bucket, which is closed by Close.
func NewExporter(bucket *blob.Bucket, format Format, now func() time.Time, logger *slog.Logger) *Exporter {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{bucket: bucket, format: format, now: now, logger: logger}
}

// OpenDirExporter saves files under dir, creating it when missing.
func OpenDirExporter(dir string, format Format, now func() time.Time, logger *slog.Logger) (*Exporter, error) {
	bucket, err := fileblob.OpenBucket(dir, &fileblob.Options{CreateDir: true})
	if err != nil {
		return nil, errors.Wrapf(err, "open calendar export directory %s", dir)
	}
	return NewExporter(bucket, format, now, logger), nil
}

// NewMemoryExporter keeps exported files in memory.
func NewMemoryExporter(format Format, now func() time.Time, logger *slog.Logger) *Exporter {
	return NewExporter(memblob.OpenBucket(nil), format, now, logger)
}

// Export renders entry and saves it under FileName(entry.Summary), returning
// the file name. An existing file with the same name is replaced.
func (e *Exporter) Export(ctx context.Context, entry Entry) (string, error) {
	name := FileName(entry.Summary)
	payload := e.format.Render(entry, e.now())

	if err := e.bucket.WriteAll(ctx, name, payload, &blob.WriterOptions{ContentType: ContentType}); err != nil {
		return "", errors.Wrapf(err, "save %s", name)
	}
	e.logger.DebugContext(ctx, "calendar file exported", "component", "calendar", "file", name, "event_id", entry.ID)
	return name, nil
}

// Read returns a previously exported file.
func (e *Exporter) Read(ctx context.Context, name string) ([]byte, error) {
	payload, err := e.bucket.ReadAll(ctx, name)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return payload, nil
}

// Close releases the bucket.
func (e *Exporter) Close() error {
	return e.bucket.Close()
}
