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

const paymentIntentColumns = `id, appointment_id, provider_order_id, provider_payment_id, signature, verified, created_at, verified_at`

func (r *paymentIntentRepository) Create(ctx context.Context, intent *model.PaymentIntent) error {
	intent.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO payment_intents (id, appointment_id, provider_order_id, verified, created_at)
		VALUES ($1, $2, $3, false, $4)
	`
	_, err := r.db.ExecContext(ctx, query,
		intent.ID,
		intent.AppointmentID,
		intent.ProviderOrderID,
		intent.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment intent: %w", err)
	}
	return nil
}

func (r *paymentIntentRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.PaymentIntent, error) {
	query := `
		SELECT ` + paymentIntentColumns + `
		FROM payment_intents
		WHERE appointment_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var intent model.PaymentIntent
	err := r.db.GetContext(ctx, &intent, query, appointmentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("payment intent")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	return &intent, nil
}

func (r *paymentIntentRepository) GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (*model.PaymentIntent, error) {
	query := `SELECT ` + paymentIntentColumns + ` FROM payment_intents WHERE provider_payment_id = $1`

	var intent model.PaymentIntent
	err := r.db.GetContext(ctx, &intent, query, providerPaymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("payment intent")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment intent: %w", err)
	}
	return &intent, nil
}

func (r *paymentIntentRepository) MarkVerified(ctx context.Context, id uuid.UUID, providerPaymentID, signature string) error {
	query := `
		UPDATE payment_intents
		SET provider_payment_id = $1, signature = $2, verified = true, verified_at = $3
		WHERE id = $4 AND verified = false
	`
	result, err := r.db.ExecContext(ctx, query, providerPaymentID, signature, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to mark payment intent verified: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("unverified payment intent")
	}
	return nil
}
