package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mindease/booking-api/internal/model"
)

type SlotRepository interface {
	Create(ctx context.Context, slot *model.Slot) error
	Get(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	Update(ctx context.Context, slot *model.Slot) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, counsellorID uuid.UUID, rng model.DateRange) ([]*model.Slot, error)
	// ListAvailableOn returns slots marked available whose date matches the
	// UTC day containing at.
	ListAvailableOn(ctx context.Context, counsellorID uuid.UUID, at time.Time) ([]*model.Slot, error)
}

type AppointmentRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	// CreateIfFree inserts the appointment unless a non-cancelled appointment
	// for the same counsellor overlaps its interval. The conflict check and
	// insert run as one serializable unit per counsellor. Conflicts surface
	// as a SlotUnavailable error.
	CreateIfFree(ctx context.Context, apt *model.Appointment) error
	// MoveIfFree updates start time and duration under the same exclusion
	// guarantee, excluding the appointment itself from its conflict set, and
	// clears the meeting link. The status is re-checked on the locked row;
	// moving a non-confirmed appointment fails with Validation. Returns the
	// updated record.
	MoveIfFree(ctx context.Context, id uuid.UUID, newStart time.Time, durationMinutes int) (*model.Appointment, error)
	// The status transitions below are guarded on the current state and
	// report whether this caller applied the change. false means a concurrent
	// caller got there first; callers must not repeat side effects then.
	//
	// Confirm moves pending_payment to confirmed/paid.
	Confirm(ctx context.Context, id uuid.UUID) (bool, error)
	// Cancel moves pending_payment or confirmed to cancelled.
	Cancel(ctx context.Context, id uuid.UUID, reason *string) (bool, error)
	// Complete moves confirmed to completed.
	Complete(ctx context.Context, id uuid.UUID) (bool, error)
	// ClaimRefund moves payment_status from paid to refund_pending. The
	// winner is the only caller allowed to request the gateway refund.
	ClaimRefund(ctx context.Context, id uuid.UUID) (bool, error)
	// MarkRefunded moves payment_status from refund_pending to refunded.
	MarkRefunded(ctx context.Context, id uuid.UUID) (bool, error)
	SetMeetingLink(ctx context.Context, id uuid.UUID, link string) error
	SetFeedbackFormURL(ctx context.Context, id uuid.UUID, url string) error
	ListByClient(ctx context.Context, clientID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	ListByCounsellor(ctx context.Context, counsellorID uuid.UUID, filters *model.AppointmentFilters) ([]*model.Appointment, error)
	// ListActiveOverlapping returns pending_payment/confirmed appointments
	// for the counsellor that overlap the half-open interval [from, to).
	ListActiveOverlapping(ctx context.Context, counsellorID uuid.UUID, from, to time.Time, excludeID *uuid.UUID) ([]*model.Appointment, error)
	// ListElapsedConfirmed returns confirmed appointments whose end time is
	// at or before asOf.
	ListElapsedConfirmed(ctx context.Context, asOf time.Time, limit int) ([]*model.Appointment, error)
	ListConfirmedWithoutMeetingLink(ctx context.Context, limit int) ([]*model.Appointment, error)
	// ListCancelledAwaitingRefund returns cancelled appointments whose refund
	// has not settled: still paid, or claimed (refund_pending) but not
	// touched since retryBefore. The age filter keeps the sweep away from
	// claims whose gateway call may still be in flight.
	ListCancelledAwaitingRefund(ctx context.Context, retryBefore time.Time, limit int) ([]*model.Appointment, error)
}

type PaymentIntentRepository interface {
	Create(ctx context.Context, intent *model.PaymentIntent) error
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.PaymentIntent, error)
	GetByProviderPaymentID(ctx context.Context, providerPaymentID string) (*model.PaymentIntent, error)
	MarkVerified(ctx context.Context, id uuid.UUID, providerPaymentID, signature string) error
}

type CounsellorRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Counsellor, error)
	GetFee(ctx context.Context, id uuid.UUID) (int64, error)
}

type ClientRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*model.Client, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPending(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
}
