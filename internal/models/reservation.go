package models

import "time"

type Reservation struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	OpenTime         time.Time `json:"open_time"`
	CloseTime        time.Time `json:"close_time"`
	NumberOfPeople   int       `json:"number_of_people"`
	Payment          float64   `json:"payment"`
	GroupDescription string    `json:"group_description"`
	ManagerComment   string    `json:"manager_comment,omitempty"`
	Status           string    `json:"status"` // pending, approved, rejected, cancelled
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Version          int64     `json:"version"`
}

// Duration returns the reserved span length.
func (r *Reservation) Duration() time.Duration {
	return r.CloseTime.Sub(r.OpenTime)
}

// BusySlot is a derived per-day time-of-day marker ("HH:mm"); never persisted.
type BusySlot struct {
	Time string `json:"time"`
}

// ReservationUpdate carries a partial field edit. Nil fields are left untouched.
type ReservationUpdate struct {
	Status         *string    `json:"status,omitempty"`
	OpenTime       *time.Time `json:"open_time,omitempty"`
	CloseTime      *time.Time `json:"close_time,omitempty"`
	NumberOfPeople *int       `json:"number_of_people,omitempty"`
	Payment        *float64   `json:"payment,omitempty"`
	GroupDesc      *string    `json:"group_description,omitempty"`
	ManagerComment *string    `json:"manager_comment,omitempty"`
}

// Empty reports whether the update would change nothing.
func (u ReservationUpdate) Empty() bool {
	return u.Status == nil && u.OpenTime == nil && u.CloseTime == nil &&
		u.NumberOfPeople == nil && u.Payment == nil && u.GroupDesc == nil &&
		u.ManagerComment == nil
}

// ReservationInput is a raw booking request as it arrives from a client.
// Times stay strings until validation parses them.
type ReservationInput struct {
	UserID           int64   `json:"user_id"`
	OpenTime         string  `json:"open_time"`
	CloseTime        string  `json:"close_time"`
	NumberOfPeople   int     `json:"number_of_people"`
	Payment          float64 `json:"payment"`
	GroupDescription string  `json:"group_description"`
}

// ReservationFilter narrows list queries; zero values mean "no constraint".
type ReservationFilter struct {
	UserID int64
	Status string
	Start  time.Time
	End    time.Time
}
