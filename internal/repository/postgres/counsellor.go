package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mindease/booking-api/internal/model"
	apperrors "github.com/mindease/booking-api/pkg/errors"
)

func (r *counsellorRepository) Get(ctx context.Context, id uuid.UUID) (*model.Counsellor, error) {
	query := `
		SELECT id, display_name, email, session_fee, created_at, updated_at
		FROM counsellors
		WHERE id = $1
	`
	var counsellor model.Counsellor
	err := r.db.GetContext(ctx, &counsellor, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("counsellor")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get counsellor: %w", err)
	}
	return &counsellor, nil
}

func (r *counsellorRepository) GetFee(ctx context.Context, id uuid.UUID) (int64, error) {
	var fee int64
	err := r.db.GetContext(ctx, &fee, `SELECT session_fee FROM counsellors WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperrors.NotFound("counsellor")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get counsellor fee: %w", err)
	}
	return fee, nil
}

func (r *clientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	query := `
		SELECT id, display_name, email, created_at, updated_at
		FROM clients
		WHERE id = $1
	`
	var client model.Client
	err := r.db.GetContext(ctx, &client, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("client")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}
	return &client, nil
}
