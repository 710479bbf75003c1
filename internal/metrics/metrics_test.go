package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegisterIsIdempotent(t *testing.T) {
	assert.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestCounters(t *testing.T) {
	Register()

	before := testutil.ToFloat64(reservationsCreated)
	IncReservationCreated()
	assert.Equal(t, before+1, testutil.ToFloat64(reservationsCreated))

	IncHTTP("/api/v1/reservations")
	assert.GreaterOrEqual(t, testutil.ToFloat64(httpRequests.WithLabelValues("/api/v1/reservations")), float64(1))

	AddCascadeRejections(2)
	assert.GreaterOrEqual(t, testutil.ToFloat64(cascadeRejections), float64(2))

	IncStatusChange("approved")
	assert.GreaterOrEqual(t, testutil.ToFloat64(reservationStatusChanges.WithLabelValues("approved")), float64(1))

	IncValidationFailure("invalid_ordering")
	assert.GreaterOrEqual(t, testutil.ToFloat64(validationFailures.WithLabelValues("invalid_ordering")), float64(1))
}
