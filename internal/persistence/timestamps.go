package persistence

import (
	"encoding/json"
	"strings"
	"time"

	pkgerrors "github.com/pkg/errors"
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp converts a stored timestamp representation to a UTC time.
// Strings may be RFC 3339, zone-less ISO 8601 (taken as UTC) or a bare date.
// Numbers are epoch milliseconds.
func ParseTimestamp(value any) (time.Time, error) {
	switch v := value.(type) {
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, pkgerrors.Errorf("unrecognised timestamp %q", v)
	case json.Number:
		ms, err := v.Int64()
		if err != nil {
			f, fErr := v.Float64()
			if fErr != nil {
				return time.Time{}, pkgerrors.Wrapf(err, "timestamp %s", v)
			}
			ms = int64(f)
		}
		return time.UnixMilli(ms).UTC(), nil
	case float64:
		return time.UnixMilli(int64(v)).UTC(), nil
	case int64:
		return time.UnixMilli(v).UTC(), nil
	default:
		return time.Time{}, pkgerrors.Errorf("unsupported timestamp type %T", value)
	}
}

// reviveTimestamps rewrites the named fields of rec as RFC 3339 UTC strings.
// Absent and null fields are left alone.
func reviveTimestamps(rec map[string]any, fields []string) error {
	if rec == nil {
		return nil
	}
	for _, field := range fields {
		value, ok := rec[field]
		if !ok || value == nil {
			continue
		}
		t, err := ParseTimestamp(value)
		if err != nil {
			return pkgerrors.Wrapf(err, "field %s", field)
		}
		rec[field] = t.Format(time.RFC3339Nano)
	}
	return nil
}
