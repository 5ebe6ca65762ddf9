package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentIntent ties a provider order to one appointment. At most one
// verified intent may exist per appointment; provider_payment_id is unique
// so replayed gateway callbacks are detected rather than reprocessed.
type PaymentIntent struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	AppointmentID     uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	ProviderOrderID   string     `db:"provider_order_id" json:"provider_order_id"`
	ProviderPaymentID *string    `db:"provider_payment_id" json:"provider_payment_id,omitempty"`
	Signature         *string    `db:"signature" json:"-"`
	Verified          bool       `db:"verified" json:"verified"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	VerifiedAt        *time.Time `db:"verified_at" json:"verified_at,omitempty"`
}

type CreatePaymentOrderRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id" binding:"required"`
}

// PaymentOrder is what the UI needs to launch the provider checkout.
type PaymentOrder struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	OrderID       string    `json:"order_id"`
	Amount        int64     `json:"amount"`
	Currency      string    `json:"currency"`
}

type VerifyPaymentRequest struct {
	AppointmentID     uuid.UUID `json:"appointment_id" binding:"required"`
	ProviderOrderID   string    `json:"provider_order_id" binding:"required"`
	ProviderPaymentID string    `json:"provider_payment_id" binding:"required"`
	Signature         string    `json:"signature" binding:"required"`
}
