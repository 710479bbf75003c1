package schedule

import (
	"sort"
	"time"

	"spacebook/internal/models"
)

// Calculator derives busy time-of-day markers from approved reservations.
// Step is the grid granularity, Buffer the technical padding applied before
// and after every reservation span.
type Calculator struct {
	Step   time.Duration
	Buffer time.Duration
}

func NewCalculator(stepMinutes, bufferMinutes int) Calculator {
	if stepMinutes <= 0 {
		stepMinutes = models.DefaultSlotStepMinutes
	}
	if bufferMinutes < 0 {
		bufferMinutes = models.DefaultSlotBufferMinutes
	}
	return Calculator{
		Step:   time.Duration(stepMinutes) * time.Minute,
		Buffer: time.Duration(bufferMinutes) * time.Minute,
	}
}

// BusySlots walks every reservation at Step granularity across three
// sub-ranges: [open-Buffer, open), [open, close) and [close, close+Buffer),
// collecting each visited instant's "HH:mm" marker. Markers are de-duplicated
// across reservations and returned sorted. Multi-day inputs collapse onto the
// same time-of-day grid, so callers wanting per-day results must pre-restrict
// the reservation set to one day.
func (c Calculator) BusySlots(reservations []*models.Reservation) []models.BusySlot {
	if len(reservations) == 0 {
		return []models.BusySlot{}
	}

	seen := make(map[string]struct{})
	for _, r := range reservations {
		span := NewInterval(r.OpenTime, r.CloseTime)

		c.mark(seen, NewInterval(span.Start.Add(-c.Buffer), span.Start))
		c.mark(seen, span)
		c.mark(seen, NewInterval(span.End, span.End.Add(c.Buffer)))
	}

	times := make([]string, 0, len(seen))
	for t := range seen {
		times = append(times, t)
	}
	sort.Strings(times)

	slots := make([]models.BusySlot, len(times))
	for i, t := range times {
		slots[i] = models.BusySlot{Time: t}
	}
	return slots
}

func (c Calculator) mark(seen map[string]struct{}, span Interval) {
	for cur := span.Start; span.Contains(cur); cur = cur.Add(c.Step) {
		seen[cur.Format("15:04")] = struct{}{}
	}
}
