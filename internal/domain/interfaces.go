package domain

import (
	"context"
	"time"

	"spacebook/internal/database"
	"spacebook/internal/models"
)

type Repository interface {
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	CreateReservation(ctx context.Context, r *models.Reservation) error
	CreateReservationChecked(ctx context.Context, r *models.Reservation, policy database.ConflictPolicy) error
	GetApprovedBetween(ctx context.Context, start, end time.Time) ([]*models.Reservation, error)
	GetReservationsByQuery(ctx context.Context, filter models.ReservationFilter) ([]*models.Reservation, error)
	HasPendingOverlap(ctx context.Context, userID int64, open, close time.Time, includeApproved bool) (bool, error)
	CountPendingInWindow(ctx context.Context, userID int64, openTime time.Time, window time.Duration) (int, error)
	UpdateReservationFields(ctx context.Context, id int64, update models.ReservationUpdate) (*models.Reservation, error)
	UpdateReservationStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error
	ApproveAndRejectOverlapping(ctx context.Context, id, fromVersion int64) (*models.Reservation, []int64, error)
}

// LockRepository serializes booking attempts per user. Acquire returns false
// when the lock is already held.
type LockRepository interface {
	AcquireUserLock(ctx context.Context, userID int64, ttl time.Duration) (bool, error)
	ReleaseUserLock(ctx context.Context, userID int64) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type SheetsWriter interface {
	AppendReservation(ctx context.Context, r *models.Reservation) error
	UpsertReservation(ctx context.Context, r *models.Reservation) error
	UpdateReservationStatus(ctx context.Context, reservationID int64, status string) error
	ReplaceReservationsSheet(ctx context.Context, reservations []*models.Reservation) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, reservationID int64, r *models.Reservation, status string) error
}

type ReservationService interface {
	CreateReservation(ctx context.Context, in models.ReservationInput) (*models.Reservation, error)
	ApproveReservation(ctx context.Context, id, version, managerID int64) (*models.Reservation, []int64, error)
	RejectReservation(ctx context.Context, id, version, managerID int64) error
	CancelReservation(ctx context.Context, id, version, userID int64) error
	UpdateReservation(ctx context.Context, id int64, update models.ReservationUpdate) (*models.Reservation, error)
	GetReservation(ctx context.Context, id int64) (*models.Reservation, error)
	GetReservations(ctx context.Context, filter models.ReservationFilter) ([]*models.Reservation, error)
	BusySlots(ctx context.Context, start, end time.Time) ([]models.BusySlot, error)
}
