package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	RSVPSubmissions   *prometheus.CounterVec
	GuestsArchived    prometheus.Counter
	GuestsSynced      prometheus.Counter
	SeatBookings      *prometheus.CounterVec
	AuditWriteErrors  *prometheus.CounterVec
	EventsEmitted     *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// NewMetrics registers the service metrics on reg.
// A nil reg uses the default prometheus registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RSVPSubmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rsvp_submissions_total",
			Help:      "The total number of committed RSVP submissions",
		}, []string{"status"}),
		GuestsArchived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guests_archived_total",
			Help:      "The total number of guests moved to the archive",
		}),
		GuestsSynced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guests_synced_total",
			Help:      "The total number of guest records created from accounts",
		}),
		SeatBookings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "seat_bookings_total",
			Help:      "Seat allocation attempts by result",
		}, []string{"result"}),
		AuditWriteErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_write_errors_total",
			Help:      "Best-effort audit writes that failed",
		}, []string{"log"}),
		EventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_emitted_total",
			Help:      "Lifecycle events emitted on the bus",
		}, []string{"type"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time taken by guest and booking operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}
