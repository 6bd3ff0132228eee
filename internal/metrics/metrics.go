// Package metrics counts portal activity on a private Prometheus registry.
package metrics

import (
	"io"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/GuelfoNero-beep/D117/internal/persistence"
)

const namespace = "portal"

// Recorder implements the observer hooks of the persistence layer, the
// entity stores, authentication and booking.
type Recorder struct {
	registry *prometheus.Registry

	loads     *prometheus.CounterVec
	saves     *prometheus.CounterVec
	mutations *prometheus.CounterVec
	logins    *prometheus.CounterVec
	bookings  *prometheus.CounterVec
	exports   *prometheus.CounterVec
}

// NewRecorder registers every collector on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_loads_total",
			Help:      "Collections loaded, by key and outcome.",
		}, []string{"key", "outcome"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collection_saves_total",
			Help:      "Collection writes, by key and result.",
		}, []string{"key", "result"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_mutations_total",
			Help:      "Store mutations, by kind, operation and result.",
		}, []string{"kind", "operation", "result"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts, by result.",
		}, []string{"result"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_attempts_total",
			Help:      "Booking attempts, by outcome.",
		}, []string{"outcome"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calendar_exports_total",
			Help:      "Calendar file exports, by result.",
		}, []string{"result"}),
	}
	r.registry.MustRegister(r.loads, r.saves, r.mutations, r.logins, r.bookings, r.exports)
	return r
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// CollectionLoaded implements persistence.Observer.
func (r *Recorder) CollectionLoaded(key string, outcome persistence.LoadOutcome) {
	r.loads.WithLabelValues(key, string(outcome)).Inc()
}

// CollectionSaved implements persistence.Observer.
func (r *Recorder) CollectionSaved(key string, err error) {
	r.saves.WithLabelValues(key, result(err)).Inc()
}

// StoreMutated implements store.Observer.
func (r *Recorder) StoreMutated(kind, operation string, err error) {
	r.mutations.WithLabelValues(kind, operation, result(err)).Inc()
}

// StorePersisted implements store.Observer. Writes are already counted by
// CollectionSaved, so only failures that the store swallowed are tracked here.
func (r *Recorder) StorePersisted(kind string, err error) {
	if err != nil {
		r.mutations.WithLabelValues(kind, "persist", "error").Inc()
	}
}

// LoginAttempted implements application.LoginObserver.
func (r *Recorder) LoginAttempted(success bool) {
	if success {
		r.logins.WithLabelValues("ok").Inc()
		return
	}
	r.logins.WithLabelValues("rejected").Inc()
}

// BookingAttempted implements application.BookingObserver.
func (r *Recorder) BookingAttempted(outcome string) {
	r.bookings.WithLabelValues(outcome).Inc()
}

// CalendarExported implements application.BookingObserver.
func (r *Recorder) CalendarExported(err error) {
	r.exports.WithLabelValues(result(err)).Inc()
}

// WriteText dumps every metric family in the Prometheus text format.
func (r *Recorder) WriteText(w io.Writer) error {
	families, err := r.registry.Gather()
	if err != nil {
		return errors.Wrap(err, "gather metrics")
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return errors.Wrapf(err, "encode %s", mf.GetName())
		}
	}
	return nil
}
