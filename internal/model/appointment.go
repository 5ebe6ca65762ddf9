package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPendingPayment AppointmentStatus = "pending_payment"
	AppointmentStatusConfirmed      AppointmentStatus = "confirmed"
	AppointmentStatusCancelled      AppointmentStatus = "cancelled"
	AppointmentStatusCompleted      AppointmentStatus = "completed"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid        PaymentStatus = "unpaid"
	PaymentStatusPaid          PaymentStatus = "paid"
	PaymentStatusRefundPending PaymentStatus = "refund_pending"
	PaymentStatusRefunded      PaymentStatus = "refunded"
)

// Appointment is the authoritative booking record. StartTime is a UTC
// instant; Amount is in minor currency units (paise).
type Appointment struct {
	Base
	ClientID          uuid.UUID         `db:"client_id" json:"client_id"`
	CounsellorID      uuid.UUID         `db:"counsellor_id" json:"counsellor_id"`
	StartTime         time.Time         `db:"start_time" json:"start_time"`
	DurationMinutes   int               `db:"duration_minutes" json:"duration_minutes"`
	Status            AppointmentStatus `db:"status" json:"status"`
	PaymentStatus     PaymentStatus     `db:"payment_status" json:"payment_status"`
	Amount            int64             `db:"amount" json:"amount"`
	MeetingLink       *string           `db:"meeting_link" json:"meeting_link,omitempty"`
	FeedbackFormURL   *string           `db:"feedback_form_url" json:"feedback_form_url,omitempty"`
	FeedbackSubmitted bool              `db:"feedback_submitted" json:"feedback_submitted"`
	Notes             string            `db:"notes" json:"notes,omitempty"`
	CancelReason      *string           `db:"cancel_reason" json:"cancel_reason,omitempty"`
}

// EndTime is the exclusive end of the booked interval.
func (a *Appointment) EndTime() time.Time {
	return a.StartTime.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Active reports whether the appointment occupies the counsellor's timeline
// for conflict purposes.
func (a *Appointment) Active() bool {
	return a.Status == AppointmentStatusPendingPayment || a.Status == AppointmentStatusConfirmed
}

func (a *Appointment) IsUpcoming(now time.Time) bool {
	return a.Status == AppointmentStatusConfirmed && a.StartTime.After(now)
}

type BookAppointmentRequest struct {
	CounsellorID    uuid.UUID `json:"counsellor_id" binding:"required"`
	StartTime       time.Time `json:"start_time" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,min=15,max=240"`
	Notes           string    `json:"notes" validate:"max=1000"`
}

type RescheduleAppointmentRequest struct {
	StartTime       time.Time `json:"start_time" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,min=15,max=240"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type CheckAvailabilityRequest struct {
	CounsellorID    uuid.UUID `json:"counsellor_id" binding:"required"`
	StartTime       time.Time `json:"start_time" binding:"required"`
	DurationMinutes int       `json:"duration_minutes" validate:"omitempty,min=15,max=240"`
}

type AppointmentFilters struct {
	Status AppointmentStatus
	Range  DateRange
}
