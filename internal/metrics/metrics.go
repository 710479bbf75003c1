package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spacebook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	reservationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spacebook",
			Name:      "reservations_created_total",
			Help:      "Reservations accepted by the conflict checks.",
		},
	)

	reservationStatusChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spacebook",
			Name:      "reservation_status_changes_total",
			Help:      "Status transitions by target status.",
		},
		[]string{"status"},
	)

	cascadeRejections = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spacebook",
			Name:      "cascade_rejections_total",
			Help:      "Pending reservations rejected by an overlapping approval.",
		},
	)

	validationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spacebook",
			Name:      "validation_failures_total",
			Help:      "Reservation validation failures by kind.",
		},
		[]string{"kind"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			reservationsCreated,
			reservationStatusChanges,
			cascadeRejections,
			validationFailures,
		)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncReservationCreated() {
	reservationsCreated.Inc()
}

func IncStatusChange(status string) {
	reservationStatusChanges.WithLabelValues(status).Inc()
}

func AddCascadeRejections(n int) {
	cascadeRejections.Add(float64(n))
}

func IncValidationFailure(kind string) {
	validationFailures.WithLabelValues(kind).Inc()
}
