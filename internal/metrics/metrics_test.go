package metrics

import (
	"bytes"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GuelfoNero-beep/D117/internal/application"
	"github.com/GuelfoNero-beep/D117/internal/persistence"
	"github.com/GuelfoNero-beep/D117/internal/store"
)

var (
	_ persistence.Observer        = (*Recorder)(nil)
	_ store.Observer              = (*Recorder)(nil)
	_ application.LoginObserver   = (*Recorder)(nil)
	_ application.BookingObserver = (*Recorder)(nil)
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()

	r.CollectionLoaded(persistence.KeyEvents, persistence.OutcomeStored)
	r.CollectionLoaded(persistence.KeyEvents, persistence.OutcomeFallback)
	r.CollectionSaved(persistence.KeyBookings, nil)
	r.CollectionSaved(persistence.KeyBookings, errors.New("disk full"))
	r.StoreMutated(persistence.KeyBookings, "add", nil)
	r.StorePersisted(persistence.KeyBookings, errors.New("disk full"))
	r.StorePersisted(persistence.KeyBookings, nil)
	r.LoginAttempted(true)
	r.LoginAttempted(false)
	r.LoginAttempted(false)
	r.BookingAttempted("booked")
	r.BookingAttempted("duplicate_booking")
	r.CalendarExported(nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.loads.WithLabelValues(persistence.KeyEvents, "fallback")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.saves.WithLabelValues(persistence.KeyBookings, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.mutations.WithLabelValues(persistence.KeyBookings, "persist", "error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.logins.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.bookings.WithLabelValues("duplicate_booking")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.exports.WithLabelValues("ok")))
}

func TestWriteText(t *testing.T) {
	r := NewRecorder()
	r.LoginAttempted(true)

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	assert.Contains(t, buf.String(), `portal_login_attempts_total{result="ok"} 1`)
}
