package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mindease/booking-api/internal/model"
	apperrors "github.com/mindease/booking-api/pkg/errors"
)

const slotColumns = `id, counsellor_id, slot_date, start_time, end_time, is_available, created_at, updated_at`

func (r *slotRepository) Create(ctx context.Context, slot *model.Slot) error {
	now := time.Now().UTC()
	slot.CreatedAt = now
	slot.UpdatedAt = now

	query := `
		INSERT INTO slots (id, counsellor_id, slot_date, start_time, end_time, is_available, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		slot.ID,
		slot.CounsellorID,
		slot.Date,
		slot.StartTime,
		slot.EndTime,
		slot.IsAvailable,
		slot.CreatedAt,
		slot.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create slot: %w", err)
	}
	return nil
}

func (r *slotRepository) Get(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	var slot model.Slot
	err := r.db.GetContext(ctx, &slot, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("slot")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get slot: %w", err)
	}
	return &slot, nil
}

func (r *slotRepository) Update(ctx context.Context, slot *model.Slot) error {
	slot.UpdatedAt = time.Now().UTC()

	query := `UPDATE slots SET is_available = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, slot.IsAvailable, slot.UpdatedAt, slot.ID)
	if err != nil {
		return fmt.Errorf("failed to update slot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("slot")
	}
	return nil
}

func (r *slotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete slot: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("slot")
	}
	return nil
}

func (r *slotRepository) List(ctx context.Context, counsellorID uuid.UUID, rng model.DateRange) ([]*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE counsellor_id = $1`
	args := []interface{}{counsellorID}
	argCount := 2

	if !rng.From.IsZero() {
		query += fmt.Sprintf(" AND slot_date >= $%d", argCount)
		args = append(args, rng.From)
		argCount++
	}
	if !rng.To.IsZero() {
		query += fmt.Sprintf(" AND slot_date <= $%d", argCount)
		args = append(args, rng.To)
		argCount++
	}

	query += " ORDER BY slot_date ASC, start_time ASC"

	var slots []*model.Slot
	if err := r.db.SelectContext(ctx, &slots, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list slots: %w", err)
	}
	return slots, nil
}

func (r *slotRepository) ListAvailableOn(ctx context.Context, counsellorID uuid.UUID, at time.Time) ([]*model.Slot, error) {
	day := at.UTC().Truncate(24 * time.Hour)

	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE counsellor_id = $1 AND slot_date = $2 AND is_available = true
		ORDER BY start_time ASC
	`
	var slots []*model.Slot
	if err := r.db.SelectContext(ctx, &slots, query, counsellorID, day); err != nil {
		return nil, fmt.Errorf("failed to list available slots: %w", err)
	}
	return slots, nil
}
