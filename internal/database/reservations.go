package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"spacebook/internal/models"
)

// ConflictPolicy parameterizes the conflict checks performed inside the
// creation transaction. IncludeApproved widens self-conflict detection to the
// user's approved reservations; by default only pending ones count.
type ConflictPolicy struct {
	IncludeApproved    bool
	PendingWindow      time.Duration
	MaxPendingInWindow int
}

const reservationColumns = `id, user_id, open_time, close_time, number_of_people,
                 payment, group_description, manager_comment, status,
                 created_at, updated_at, version`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*models.Reservation, error) {
	var r models.Reservation
	err := row.Scan(
		&r.ID, &r.UserID, &r.OpenTime, &r.CloseTime, &r.NumberOfPeople,
		&r.Payment, &r.GroupDescription, &r.ManagerComment, &r.Status,
		&r.CreatedAt, &r.UpdatedAt, &r.Version,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// CreateReservation inserts without conflict checks. Callers on the booking
// path must use CreateReservationChecked instead.
func (db *DB) CreateReservation(ctx context.Context, r *models.Reservation) error {
	query := `INSERT INTO reservations (
				user_id, open_time, close_time, number_of_people, payment,
				group_description, manager_comment, status, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	if r.Status == "" {
		r.Status = models.StatusPending
	}
	result, err := db.ExecContext(ctx, query,
		r.UserID,
		r.OpenTime.UTC(),
		r.CloseTime.UTC(),
		r.NumberOfPeople,
		r.Payment,
		r.GroupDescription,
		r.ManagerComment,
		r.Status,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	r.ID = id
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1

	return nil
}

// CreateReservationChecked runs the self-overlap check, the rolling-window
// pending cap and the insert inside one transaction, so two concurrent
// requests from the same user cannot both pass a stale read.
func (db *DB) CreateReservationChecked(ctx context.Context, r *models.Reservation, policy ConflictPolicy) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	open := r.OpenTime.UTC()
	close := r.CloseTime.UTC()

	statuses := selfConflictStatuses(policy)
	queryOverlap := `SELECT COUNT(*) FROM reservations
              WHERE user_id = ? AND status IN (` + statusPlaceholders(statuses) + `)
              AND NOT (close_time <= ? OR open_time >= ?)`
	args := []any{r.UserID}
	for _, s := range statuses {
		args = append(args, s)
	}
	args = append(args, open, close)

	var overlapping int
	if err := tx.QueryRowContext(ctx, queryOverlap, args...).Scan(&overlapping); err != nil {
		return fmt.Errorf("failed to check self overlap in tx: %w", err)
	}
	if overlapping > 0 {
		return ErrSelfConflict
	}

	queryWindow := `SELECT COUNT(*) FROM reservations
              WHERE user_id = ? AND status = ? AND open_time BETWEEN ? AND ?`
	windowStart := open.Add(-policy.PendingWindow)
	var inWindow int
	if err := tx.QueryRowContext(ctx, queryWindow, r.UserID, models.StatusPending, windowStart, open).Scan(&inWindow); err != nil {
		return fmt.Errorf("failed to count pending in window in tx: %w", err)
	}
	if inWindow >= policy.MaxPendingInWindow {
		return ErrRateLimited
	}

	queryInsert := `INSERT INTO reservations (
				user_id, open_time, close_time, number_of_people, payment,
				group_description, manager_comment, status, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx, queryInsert,
		r.UserID,
		open,
		close,
		r.NumberOfPeople,
		r.Payment,
		r.GroupDescription,
		r.ManagerComment,
		models.StatusPending,
		now,
		now,
		1,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	r.ID = id
	r.Status = models.StatusPending
	r.CreatedAt = now
	r.UpdatedAt = now
	r.Version = 1

	return tx.Commit()
}

func selfConflictStatuses(policy ConflictPolicy) []string {
	if policy.IncludeApproved {
		return []string{models.StatusPending, models.StatusApproved}
	}
	return []string{models.StatusPending}
}

func statusPlaceholders(statuses []string) string {
	return strings.TrimSuffix(strings.Repeat("?, ", len(statuses)), ", ")
}

// HasPendingOverlap answers the read-only self-conflict question under
// half-open semantics: touching spans do not conflict.
func (db *DB) HasPendingOverlap(ctx context.Context, userID int64, open, close time.Time, includeApproved bool) (bool, error) {
	statuses := selfConflictStatuses(ConflictPolicy{IncludeApproved: includeApproved})
	query := `SELECT COUNT(*) FROM reservations
              WHERE user_id = ? AND status IN (` + statusPlaceholders(statuses) + `)
              AND NOT (close_time <= ? OR open_time >= ?)`
	args := []any{userID}
	for _, s := range statuses {
		args = append(args, s)
	}
	args = append(args, open.UTC(), close.UTC())

	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check pending overlap: %w", err)
	}
	return count > 0, nil
}

// CountPendingInWindow counts the user's pending reservations whose open
// time falls within [openTime-window, openTime], both bounds inclusive.
func (db *DB) CountPendingInWindow(ctx context.Context, userID int64, openTime time.Time, window time.Duration) (int, error) {
	query := `SELECT COUNT(*) FROM reservations
              WHERE user_id = ? AND status = ? AND open_time BETWEEN ? AND ?`
	open := openTime.UTC()
	var count int
	err := db.QueryRowContext(ctx, query, userID, models.StatusPending, open.Add(-window), open).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending in window: %w", err)
	}
	return count, nil
}

func (db *DB) GetReservation(ctx context.Context, id int64) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	r, err := scanReservation(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return r, nil
}

// GetApprovedBetween returns approved reservations intersecting the window:
// spans containing it, starting inside it, or ending inside it.
func (db *DB) GetApprovedBetween(ctx context.Context, start, end time.Time) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE status = ?
              AND (
                  (open_time <= ? AND close_time >= ?)
                  OR (open_time >= ? AND open_time <= ?)
                  OR (close_time >= ? AND close_time <= ?)
              )
              ORDER BY open_time ASC`
	s, e := start.UTC(), end.UTC()
	rows, err := db.QueryContext(ctx, query, models.StatusApproved, s, e, s, e, s, e)
	if err != nil {
		return nil, fmt.Errorf("failed to get approved reservations: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

// GetReservationsByQuery applies optional filters; zero values are skipped.
func (db *DB) GetReservationsByQuery(ctx context.Context, filter models.ReservationFilter) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE 1=1`
	var args []any

	if filter.UserID != 0 {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if !filter.Start.IsZero() {
		query += ` AND open_time >= ?`
		args = append(args, filter.Start.UTC())
	}
	if !filter.End.IsZero() {
		query += ` AND open_time <= ?`
		args = append(args, filter.End.UTC())
	}
	query += ` ORDER BY open_time ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	return collectReservations(rows)
}

func collectReservations(rows *sql.Rows) ([]*models.Reservation, error) {
	var reservations []*models.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reservations: %w", err)
	}
	return reservations, nil
}

// UpdateReservationFields applies a partial edit to a non-terminal
// reservation. Status is not updated here; transitions go through
// UpdateReservationStatusWithVersion or ApproveAndRejectOverlapping.
func (db *DB) UpdateReservationFields(ctx context.Context, id int64, update models.ReservationUpdate) (*models.Reservation, error) {
	var sets []string
	var args []any

	if update.OpenTime != nil {
		sets = append(sets, "open_time = ?")
		args = append(args, update.OpenTime.UTC())
	}
	if update.CloseTime != nil {
		sets = append(sets, "close_time = ?")
		args = append(args, update.CloseTime.UTC())
	}
	if update.NumberOfPeople != nil {
		sets = append(sets, "number_of_people = ?")
		args = append(args, *update.NumberOfPeople)
	}
	if update.Payment != nil {
		sets = append(sets, "payment = ?")
		args = append(args, *update.Payment)
	}
	if update.GroupDesc != nil {
		sets = append(sets, "group_description = ?")
		args = append(args, *update.GroupDesc)
	}
	if update.ManagerComment != nil {
		sets = append(sets, "manager_comment = ?")
		args = append(args, *update.ManagerComment)
	}
	if len(sets) == 0 {
		return nil, ErrNoFields
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM reservations WHERE id = ?`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read status: %w", err)
	}
	if models.IsTerminalStatus(status) {
		return nil, ErrTerminalStatus
	}

	sets = append(sets, "updated_at = ?", "version = version + 1")
	args = append(args, time.Now().UTC(), id)

	query := `UPDATE reservations SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update reservation fields: %w", err)
	}

	r, err := scanReservation(tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("failed to reload reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit update: %w", err)
	}
	return r, nil
}

// UpdateReservationStatusWithVersion performs an optimistic status write.
// The caller is responsible for validating the transition beforehand.
func (db *DB) UpdateReservationStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	query := `UPDATE reservations SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`
	result, err := db.ExecContext(ctx, query, status, time.Now().UTC(), id, fromVersion)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}

// ApproveAndRejectOverlapping transitions a pending reservation to approved
// and rejects every other pending reservation overlapping its span, all in
// one transaction. Callers never observe the approval without the sweep.
// Touching spans survive: the predicate is strict half-open overlap.
func (db *DB) ApproveAndRejectOverlapping(ctx context.Context, id, fromVersion int64) (*models.Reservation, []int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := scanReservation(tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if current.Status != models.StatusPending {
		return nil, nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	result, err := tx.ExecContext(ctx,
		`UPDATE reservations SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		models.StatusApproved, now, id, fromVersion)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to approve reservation: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return nil, nil, ErrConcurrentModification
	}

	open := current.OpenTime.UTC()
	close := current.CloseTime.UTC()

	queryOverlapping := `SELECT id FROM reservations
              WHERE id != ? AND status = ?
              AND (
                  (open_time < ? AND close_time > ?)
                  OR (open_time >= ? AND open_time < ?)
                  OR (close_time > ? AND close_time <= ?)
              )`
	rows, err := tx.QueryContext(ctx, queryOverlapping, id, models.StatusPending,
		close, open,
		open, close,
		open, close)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to find overlapping pending reservations: %w", err)
	}

	var rejected []int64
	for rows.Next() {
		var rid int64
		if err := rows.Scan(&rid); err != nil {
			rows.Close()
			return nil, nil, fmt.Errorf("failed to scan overlapping id: %w", err)
		}
		rejected = append(rejected, rid)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, nil, fmt.Errorf("failed to iterate overlapping ids: %w", err)
	}
	rows.Close()

	for _, rid := range rejected {
		_, err := tx.ExecContext(ctx,
			`UPDATE reservations SET status = ?, version = version + 1, updated_at = ? WHERE id = ?`,
			models.StatusRejected, now, rid)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to cascade-reject reservation %d: %w", rid, err)
		}
	}

	approved, err := scanReservation(tx.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reload approved reservation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit approval: %w", err)
	}
	return approved, rejected, nil
}
