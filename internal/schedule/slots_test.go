package schedule

import (
	"testing"
	"time"

	"spacebook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reservation(t *testing.T, open, close string) *models.Reservation {
	t.Helper()
	return &models.Reservation{
		OpenTime:  mustTime(t, open),
		CloseTime: mustTime(t, close),
		Status:    models.StatusApproved,
	}
}

func slotTimes(slots []models.BusySlot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Time
	}
	return out
}

func TestBusySlotsEmpty(t *testing.T) {
	calc := NewCalculator(5, 10)

	slots := calc.BusySlots(nil)
	require.NotNil(t, slots)
	assert.Empty(t, slots)

	slots = calc.BusySlots([]*models.Reservation{})
	assert.Empty(t, slots)
}

func TestBusySlotsSingleReservation(t *testing.T) {
	calc := NewCalculator(5, 10)

	slots := calc.BusySlots([]*models.Reservation{
		reservation(t, "2025-03-10T10:00:00Z", "2025-03-10T11:00:00Z"),
	})

	times := slotTimes(slots)

	// Buffer before: 09:50, 09:55. Span: 10:00..10:55. Buffer after: 11:00, 11:05.
	require.Len(t, times, 16)
	assert.Equal(t, "09:50", times[0])
	assert.Equal(t, "09:55", times[1])
	assert.Equal(t, "10:00", times[2])
	assert.Equal(t, "10:55", times[13])
	assert.Equal(t, "11:00", times[14])
	assert.Equal(t, "11:05", times[15])
	assert.NotContains(t, times, "11:10")
	assert.NotContains(t, times, "09:45")
}

func TestBusySlotsOverlappingReservationsDeduplicate(t *testing.T) {
	calc := NewCalculator(5, 10)

	slots := calc.BusySlots([]*models.Reservation{
		reservation(t, "2025-03-10T10:00:00Z", "2025-03-10T11:00:00Z"),
		reservation(t, "2025-03-10T10:30:00Z", "2025-03-10T11:30:00Z"),
	})

	times := slotTimes(slots)
	seen := make(map[string]int)
	for _, tm := range times {
		seen[tm]++
	}
	for tm, n := range seen {
		assert.Equal(t, 1, n, "duplicate marker %s", tm)
	}
	assert.Contains(t, times, "11:15")
	assert.Contains(t, times, "11:35")
	assert.NotContains(t, times, "11:40")
}

func TestBusySlotsSortedAndIdempotent(t *testing.T) {
	calc := NewCalculator(5, 10)
	input := []*models.Reservation{
		reservation(t, "2025-03-10T14:00:00Z", "2025-03-10T15:00:00Z"),
		reservation(t, "2025-03-10T08:00:00Z", "2025-03-10T09:00:00Z"),
	}

	first := calc.BusySlots(input)
	second := calc.BusySlots(input)
	assert.Equal(t, first, second)

	times := slotTimes(first)
	for i := 1; i < len(times); i++ {
		assert.Less(t, times[i-1], times[i])
	}
}

func TestBusySlotsCustomGranularity(t *testing.T) {
	calc := NewCalculator(15, 0)

	slots := calc.BusySlots([]*models.Reservation{
		reservation(t, "2025-03-10T10:00:00Z", "2025-03-10T11:00:00Z"),
	})

	assert.Equal(t, []string{"10:00", "10:15", "10:30", "10:45"}, slotTimes(slots))
}

func TestBusySlotsNormalizesToUTC(t *testing.T) {
	calc := NewCalculator(5, 10)
	loc := time.FixedZone("UTC+3", 3*60*60)

	local := &models.Reservation{
		OpenTime:  time.Date(2025, 3, 10, 13, 0, 0, 0, loc),
		CloseTime: time.Date(2025, 3, 10, 14, 0, 0, 0, loc),
	}
	utc := reservation(t, "2025-03-10T10:00:00Z", "2025-03-10T11:00:00Z")

	assert.Equal(t, calc.BusySlots([]*models.Reservation{utc}), calc.BusySlots([]*models.Reservation{local}))
}
