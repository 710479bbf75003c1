package service

import (
	"fmt"
	"strings"
	"time"

	"spacebook/internal/models"
	"spacebook/internal/schedule"
)

// Validation failure kinds, also used as metric labels.
const (
	KindMissingFields           = "missing_fields"
	KindInvalidDateFormat       = "invalid_date_format"
	KindInvalidOrdering         = "invalid_ordering"
	KindInvalidHeadcount        = "invalid_headcount"
	KindDurationExceeded        = "duration_exceeded"
	KindMissingGroupDescription = "missing_group_description"
)

// ValidationError carries a machine-readable kind next to the message so
// transports can map it without string matching.
type ValidationError struct {
	Kind    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErr(kind, format string, args ...interface{}) error {
	return &ValidationError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Accepted timestamp layouts, tried in order.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// Validator checks booking requests before they touch storage. Checks run in
// a fixed order and the first failure wins.
type Validator struct {
	MaxDuration time.Duration
}

func NewValidator(maxDurationMinutes int) *Validator {
	if maxDurationMinutes <= 0 {
		maxDurationMinutes = models.DefaultMaxDurationMinutes
	}
	return &Validator{MaxDuration: time.Duration(maxDurationMinutes) * time.Minute}
}

// Validate parses and checks the raw input, returning a reservation ready
// for the conflict checks. All returned errors are *ValidationError.
func (v *Validator) Validate(in models.ReservationInput) (*models.Reservation, error) {
	var missing []string
	if in.UserID == 0 {
		missing = append(missing, "user_id")
	}
	if in.OpenTime == "" {
		missing = append(missing, "open_time")
	}
	if in.CloseTime == "" {
		missing = append(missing, "close_time")
	}
	if in.NumberOfPeople == 0 {
		missing = append(missing, "number_of_people")
	}
	if len(missing) > 0 {
		return nil, validationErr(KindMissingFields, "missing required fields: %s", strings.Join(missing, ", "))
	}

	open, err := parseTime(in.OpenTime)
	if err != nil {
		return nil, validationErr(KindInvalidDateFormat, "invalid open_time: %q", in.OpenTime)
	}
	close, err := parseTime(in.CloseTime)
	if err != nil {
		return nil, validationErr(KindInvalidDateFormat, "invalid close_time: %q", in.CloseTime)
	}

	span := schedule.NewInterval(open, close)
	if !span.Valid() {
		return nil, validationErr(KindInvalidOrdering, "close_time must be after open_time")
	}

	if in.NumberOfPeople < 0 {
		return nil, validationErr(KindInvalidHeadcount, "number_of_people must be positive")
	}

	if span.DurationMinutes() > int(v.MaxDuration/time.Minute) {
		return nil, validationErr(KindDurationExceeded, "reservation exceeds the maximum duration of %s", v.MaxDuration)
	}

	if strings.TrimSpace(in.GroupDescription) == "" {
		return nil, validationErr(KindMissingGroupDescription, "group_description is required")
	}

	return &models.Reservation{
		UserID:           in.UserID,
		OpenTime:         span.Start,
		CloseTime:        span.End,
		NumberOfPeople:   in.NumberOfPeople,
		Payment:          in.Payment,
		GroupDescription: in.GroupDescription,
		Status:           models.StatusPending,
	}, nil
}

func parseTime(value string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format: %q", value)
}
