package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/mindease/booking-api/internal/model"
	apperrors "github.com/mindease/booking-api/pkg/errors"
)

const appointmentColumns = `
	id, client_id, counsellor_id, start_time, duration_minutes,
	status, payment_status, amount, meeting_link, feedback_form_url,
	feedback_submitted, notes, cancel_reason, created_at, updated_at
`

// overlapCondition matches non-cancelled appointments whose half-open
// interval [start_time, start_time + duration) intersects [$2, $3).
const overlapCondition = `
	counsellor_id = $1
	AND status IN ('pending_payment', 'confirmed')
	AND start_time < $3
	AND start_time + make_interval(mins => duration_minutes) > $2
`

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var apt model.Appointment
	err := r.db.GetContext(ctx, &apt, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &apt, nil
}

// lockCounsellorTimeline serializes writers for one counsellor within the
// surrounding transaction. The lock is released on commit or rollback.
func lockCounsellorTimeline(ctx context.Context, tx *sqlx.Tx, counsellorID uuid.UUID) error {
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`, counsellorID)
	if err != nil {
		return fmt.Errorf("failed to acquire counsellor lock: %w", err)
	}
	return nil
}

func hasOverlap(ctx context.Context, tx *sqlx.Tx, counsellorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM appointments WHERE ` + overlapCondition
	args := []interface{}{counsellorID, start, end}
	if excludeID != nil {
		query += ` AND id != $4`
		args = append(args, *excludeID)
	}
	query += `)`

	var conflict bool
	if err := tx.GetContext(ctx, &conflict, query, args...); err != nil {
		return false, fmt.Errorf("failed to check conflicts: %w", err)
	}
	return conflict, nil
}

func (r *appointmentRepository) CreateIfFree(ctx context.Context, apt *model.Appointment) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockCounsellorTimeline(ctx, tx, apt.CounsellorID); err != nil {
		return err
	}

	conflict, err := hasOverlap(ctx, tx, apt.CounsellorID, apt.StartTime, apt.EndTime(), nil)
	if err != nil {
		return err
	}
	if conflict {
		return apperrors.SlotUnavailable("time slot conflicts with an existing appointment")
	}

	now := time.Now().UTC()
	apt.CreatedAt = now
	apt.UpdatedAt = now

	query := `
		INSERT INTO appointments (
			id, client_id, counsellor_id, start_time, duration_minutes,
			status, payment_status, amount, notes, feedback_submitted,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false, $10, $11)
	`
	_, err = tx.ExecContext(ctx, query,
		apt.ID,
		apt.ClientID,
		apt.CounsellorID,
		apt.StartTime,
		apt.DurationMinutes,
		apt.Status,
		apt.PaymentStatus,
		apt.Amount,
		apt.Notes,
		apt.CreatedAt,
		apt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) MoveIfFree(ctx context.Context, id uuid.UUID, newStart time.Time, durationMinutes int) (*model.Appointment, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var apt model.Appointment
	err = tx.GetContext(ctx, &apt, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("appointment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}

	if apt.Status != model.AppointmentStatusConfirmed {
		return nil, apperrors.Validation("only confirmed appointments can be rescheduled")
	}

	if err := lockCounsellorTimeline(ctx, tx, apt.CounsellorID); err != nil {
		return nil, err
	}

	newEnd := newStart.Add(time.Duration(durationMinutes) * time.Minute)
	conflict, err := hasOverlap(ctx, tx, apt.CounsellorID, newStart, newEnd, &id)
	if err != nil {
		return nil, err
	}
	if conflict {
		return nil, apperrors.SlotUnavailable("time slot conflicts with an existing appointment")
	}

	apt.StartTime = newStart
	apt.DurationMinutes = durationMinutes
	apt.MeetingLink = nil
	apt.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE appointments
		SET start_time = $1, duration_minutes = $2, meeting_link = NULL, updated_at = $3
		WHERE id = $4
	`
	if _, err := tx.ExecContext(ctx, query, apt.StartTime, apt.DurationMinutes, apt.UpdatedAt, id); err != nil {
		return nil, fmt.Errorf("failed to move appointment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reschedule: %w", err)
	}
	return &apt, nil
}

// transition runs a guarded UPDATE and reports whether a row changed.
func (r *appointmentRepository) transition(ctx context.Context, action, query string, args ...interface{}) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to %s: %w", action, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

func (r *appointmentRepository) Confirm(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE appointments
		SET status = 'confirmed', payment_status = 'paid', updated_at = $1
		WHERE id = $2 AND status = 'pending_payment'
	`
	return r.transition(ctx, "confirm appointment", query, time.Now().UTC(), id)
}

func (r *appointmentRepository) Cancel(ctx context.Context, id uuid.UUID, reason *string) (bool, error) {
	query := `
		UPDATE appointments
		SET status = 'cancelled', cancel_reason = $1, updated_at = $2
		WHERE id = $3 AND status IN ('pending_payment', 'confirmed')
	`
	return r.transition(ctx, "cancel appointment", query, reason, time.Now().UTC(), id)
}

func (r *appointmentRepository) Complete(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE appointments
		SET status = 'completed', updated_at = $1
		WHERE id = $2 AND status = 'confirmed'
	`
	return r.transition(ctx, "complete appointment", query, time.Now().UTC(), id)
}

func (r *appointmentRepository) ClaimRefund(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE appointments
		SET payment_status = 'refund_pending', updated_at = $1
		WHERE id = $2 AND payment_status = 'paid'
	`
	return r.transition(ctx, "claim refund", query, time.Now().UTC(), id)
}

func (r *appointmentRepository) MarkRefunded(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE appointments
		SET payment_status = 'refunded', updated_at = $1
		WHERE id = $2 AND payment_status = 'refund_pending'
	`
	return r.transition(ctx, "record refund", query, time.Now().UTC(), id)
}

func (r *appointmentRepository) SetMeetingLink(ctx context.Context, id uuid.UUID, link string) error {
	return r.setColumn(ctx, id, "meeting_link", link)
}

func (r *appointmentRepository) SetFeedbackFormURL(ctx context.Context, id uuid.UUID, url string) error {
	return r.setColumn(ctx, id, "feedback_form_url", url)
}

func (r *appointmentRepository) setColumn(ctx context.Context, id uuid.UUID, column, value string) error {
	query := fmt.Sprintf(`UPDATE appointments SET %s = $1, updated_at = $2 WHERE id = $3`, column)
	result, err := r.db.ExecContext(ctx, query, value, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", column, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("appointment")
	}
	return nil
}

func (r *appointmentRepository) ListByClient(ctx context.Context, clientID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return r.listByParty(ctx, "client_id", clientID, filters)
}

func (r *appointmentRepository) ListByCounsellor(ctx context.Context, counsellorID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	return r.listByParty(ctx, "counsellor_id", counsellorID, filters)
}

func (r *appointmentRepository) listByParty(ctx context.Context, column string, partyID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE ` + column + ` = $1`
	args := []interface{}{partyID}
	argCount := 2

	if filters != nil {
		if filters.Status != "" {
			query += fmt.Sprintf(" AND status = $%d", argCount)
			args = append(args, filters.Status)
			argCount++
		}
		if !filters.Range.From.IsZero() {
			query += fmt.Sprintf(" AND start_time >= $%d", argCount)
			args = append(args, filters.Range.From)
			argCount++
		}
		if !filters.Range.To.IsZero() {
			query += fmt.Sprintf(" AND start_time < $%d", argCount)
			args = append(args, filters.Range.To)
			argCount++
		}
	}

	query += " ORDER BY start_time DESC"

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListActiveOverlapping(ctx context.Context, counsellorID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE ` + overlapCondition
	args := []interface{}{counsellorID, from, to}
	if excludeID != nil {
		query += ` AND id != $4`
		args = append(args, *excludeID)
	}
	query += ` ORDER BY start_time ASC`

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list overlapping appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListElapsedConfirmed(ctx context.Context, asOf time.Time, limit int) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status = 'confirmed'
		AND start_time + make_interval(mins => duration_minutes) <= $1
		ORDER BY start_time ASC
		LIMIT $2
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, asOf, limit); err != nil {
		return nil, fmt.Errorf("failed to list elapsed appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListConfirmedWithoutMeetingLink(ctx context.Context, limit int) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status = 'confirmed' AND meeting_link IS NULL
		ORDER BY start_time ASC
		LIMIT $1
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list appointments missing meeting links: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListCancelledAwaitingRefund(ctx context.Context, retryBefore time.Time, limit int) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status = 'cancelled'
		AND (payment_status = 'paid'
			OR (payment_status = 'refund_pending' AND updated_at < $1))
		ORDER BY updated_at ASC
		LIMIT $2
	`
	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, retryBefore, limit); err != nil {
		return nil, fmt.Errorf("failed to list appointments awaiting refund: %w", err)
	}
	return appointments, nil
}
