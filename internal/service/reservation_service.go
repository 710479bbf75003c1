package service

import (
	"context"
	"errors"
	"time"

	"spacebook/internal/config"
	"spacebook/internal/database"
	"spacebook/internal/domain"
	"spacebook/internal/events"
	"spacebook/internal/metrics"
	"spacebook/internal/models"
	"spacebook/internal/schedule"

	"github.com/rs/zerolog"
)

// ErrUserBusy другая заявка этого пользователя уже в обработке
var ErrUserBusy = errors.New("another reservation request for this user is in progress")

type ReservationService struct {
	repo         domain.Repository
	locks        domain.LockRepository
	eventBus     domain.EventPublisher
	sheetsWorker domain.SyncWorker
	validator    *Validator
	calculator   schedule.Calculator
	policy       database.ConflictPolicy
	lockTTL      time.Duration
	logger       *zerolog.Logger
}

func NewReservationService(
	repo domain.Repository,
	locks domain.LockRepository,
	eventBus domain.EventPublisher,
	sheetsWorker domain.SyncWorker,
	cfg config.BookingConfig,
	logger *zerolog.Logger,
) *ReservationService {
	return &ReservationService{
		repo:         repo,
		locks:        locks,
		eventBus:     eventBus,
		sheetsWorker: sheetsWorker,
		validator:    NewValidator(cfg.MaxDurationMinutes),
		calculator:   schedule.NewCalculator(cfg.SlotStepMinutes, cfg.SlotBufferMinutes),
		policy: database.ConflictPolicy{
			IncludeApproved:    cfg.SelfConflictIncludeApproved,
			PendingWindow:      time.Duration(cfg.PendingWindowDays) * 24 * time.Hour,
			MaxPendingInWindow: cfg.MaxPendingInWindow,
		},
		lockTTL: time.Duration(cfg.UserLockTTLSeconds) * time.Second,
		logger:  logger,
	}
}

// CreateReservation validates the input and runs the conflict-checked insert
// under the per-user lock.
func (s *ReservationService) CreateReservation(ctx context.Context, in models.ReservationInput) (*models.Reservation, error) {
	r, err := s.validator.Validate(in)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			metrics.IncValidationFailure(verr.Kind)
		}
		return nil, err
	}

	if s.locks != nil {
		acquired, err := s.locks.AcquireUserLock(ctx, r.UserID, s.lockTTL)
		if err != nil {
			return nil, err
		}
		if !acquired {
			return nil, ErrUserBusy
		}
		defer func() {
			if err := s.locks.ReleaseUserLock(ctx, r.UserID); err != nil {
				s.logger.Error().Err(err).Int64("user_id", r.UserID).Msg("release user lock error")
			}
		}()
	}

	if err := s.repo.CreateReservationChecked(ctx, r, s.policy); err != nil {
		return nil, err
	}

	metrics.IncReservationCreated()
	s.publishEvent(events.EventReservationCreated, r, 0, 0)
	s.enqueueSync(ctx, r, "upsert")

	return r, nil
}

// ApproveReservation approves a pending reservation and reports the pending
// reservations the sweep rejected.
func (s *ReservationService) ApproveReservation(ctx context.Context, id, version, managerID int64) (*models.Reservation, []int64, error) {
	approved, rejected, err := s.repo.ApproveAndRejectOverlapping(ctx, id, version)
	if err != nil {
		return nil, nil, err
	}

	metrics.IncStatusChange(models.StatusApproved)
	metrics.AddCascadeRejections(len(rejected))

	s.publishEvent(events.EventReservationApproved, approved, managerID, 0)
	s.enqueueSync(ctx, approved, "update_status")

	for _, rid := range rejected {
		r, err := s.repo.GetReservation(ctx, rid)
		if err != nil {
			s.logger.Error().Err(err).Int64("reservation_id", rid).Msg("load cascade-rejected reservation error")
			continue
		}
		s.publishEvent(events.EventReservationRejected, r, managerID, approved.ID)
		s.enqueueSync(ctx, r, "update_status")
	}

	return approved, rejected, nil
}

func (s *ReservationService) RejectReservation(ctx context.Context, id, version, managerID int64) error {
	return s.transition(ctx, id, version, models.StatusRejected, events.EventReservationRejected, managerID)
}

func (s *ReservationService) CancelReservation(ctx context.Context, id, version, userID int64) error {
	return s.transition(ctx, id, version, models.StatusCancelled, events.EventReservationCancelled, userID)
}

func (s *ReservationService) transition(ctx context.Context, id, version int64, status, eventType string, changedBy int64) error {
	current, err := s.repo.GetReservation(ctx, id)
	if err != nil {
		return err
	}
	if !models.CanTransition(current.Status, status) {
		return database.ErrInvalidTransition
	}

	if err := s.repo.UpdateReservationStatusWithVersion(ctx, id, version, status); err != nil {
		return err
	}

	metrics.IncStatusChange(status)

	updated, err := s.repo.GetReservation(ctx, id)
	if err == nil {
		s.publishEvent(eventType, updated, changedBy, 0)
		s.enqueueSync(ctx, updated, "update_status")
	}

	return nil
}

// UpdateReservation applies a partial field edit. Status changes go through
// the transition operations, never through here.
func (s *ReservationService) UpdateReservation(ctx context.Context, id int64, update models.ReservationUpdate) (*models.Reservation, error) {
	update.Status = nil
	if update.Empty() {
		return nil, database.ErrNoFields
	}

	if update.OpenTime != nil || update.CloseTime != nil {
		current, err := s.repo.GetReservation(ctx, id)
		if err != nil {
			return nil, err
		}
		open, close := current.OpenTime, current.CloseTime
		if update.OpenTime != nil {
			open = update.OpenTime.UTC()
		}
		if update.CloseTime != nil {
			close = update.CloseTime.UTC()
		}
		if !open.Before(close) {
			return nil, validationErr(KindInvalidOrdering, "close_time must be after open_time")
		}
		if close.Sub(open) > s.validator.MaxDuration {
			return nil, validationErr(KindDurationExceeded, "reservation exceeds the maximum duration of %s", s.validator.MaxDuration)
		}
	}
	if update.NumberOfPeople != nil && *update.NumberOfPeople <= 0 {
		return nil, validationErr(KindInvalidHeadcount, "number_of_people must be positive")
	}

	updated, err := s.repo.UpdateReservationFields(ctx, id, update)
	if err != nil {
		return nil, err
	}

	s.publishEvent(events.EventReservationUpdated, updated, 0, 0)
	s.enqueueSync(ctx, updated, "upsert")

	return updated, nil
}

func (s *ReservationService) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	return s.repo.GetReservation(ctx, id)
}

func (s *ReservationService) GetReservations(ctx context.Context, filter models.ReservationFilter) ([]*models.Reservation, error) {
	return s.repo.GetReservationsByQuery(ctx, filter)
}

// BusySlots projects the approved reservations between start and end onto
// the per-day time-of-day grid.
func (s *ReservationService) BusySlots(ctx context.Context, start, end time.Time) ([]models.BusySlot, error) {
	approved, err := s.repo.GetApprovedBetween(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return s.calculator.BusySlots(approved), nil
}

func (s *ReservationService) publishEvent(eventType string, r *models.Reservation, changedByID, causedBy int64) {
	if s.eventBus == nil {
		return
	}

	payload := events.ReservationEventPayload{
		ReservationID: r.ID,
		UserID:        r.UserID,
		Status:        r.Status,
		OpenTime:      r.OpenTime,
		CloseTime:     r.CloseTime,
		Comment:       r.ManagerComment,
		ChangedByID:   changedByID,
		CausedBy:      causedBy,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("reservation_id", r.ID).Msg("publish event error")
	}
}

func (s *ReservationService) enqueueSync(ctx context.Context, r *models.Reservation, taskType string) {
	if s.sheetsWorker == nil {
		return
	}

	var status string
	if taskType == "update_status" {
		status = r.Status
	}

	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, r.ID, r, status); err != nil {
		s.logger.Error().Err(err).Int64("reservation_id", r.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}
