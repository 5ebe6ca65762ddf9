package scheduling

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mindease/booking-api/internal/model"
	"github.com/mindease/booking-api/internal/repository"
	"github.com/mindease/booking-api/internal/service/availability"
	"github.com/mindease/booking-api/internal/service/fee"
	apperrors "github.com/mindease/booking-api/pkg/errors"
	"github.com/mindease/booking-api/pkg/logger"
	"github.com/mindease/booking-api/pkg/metrics"
	"github.com/mindease/booking-api/pkg/payment"
)

// Business rules for appointment times.
const (
	MinAppointmentDuration = 15 * time.Minute
	MaxAppointmentDuration = 4 * time.Hour
	MaxAdvanceBooking      = 90 * 24 * time.Hour
	DefaultDurationMinutes = 60
	DefaultCurrency        = "INR"

	completionBatchSize = 100
	refundBatchSize     = 50

	// refundRetryAfter is how long a claimed refund is left alone before the
	// sweep re-attempts it. The claimant's gateway call must be over by then.
	refundRetryAfter = 5 * time.Minute
)

// Service orchestrates booking, payment confirmation, reschedule and
// cancellation against the appointment ledger. Availability is re-validated
// inside the ledger's serializable unit, so two concurrent requests for
// overlapping intervals cannot both commit.
type Service struct {
	appointments repository.AppointmentRepository
	payments     repository.PaymentIntentRepository
	outbox       repository.OutboxRepository
	resolver     *availability.Resolver
	fees         fee.Provider
	gateway      payment.Gateway
	logger       *logger.Logger
	metrics      *metrics.Metrics
	now          func() time.Time
}

func NewService(
	appointments repository.AppointmentRepository,
	payments repository.PaymentIntentRepository,
	outbox repository.OutboxRepository,
	resolver *availability.Resolver,
	fees fee.Provider,
	gateway payment.Gateway,
	log *logger.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		appointments: appointments,
		payments:     payments,
		outbox:       outbox,
		resolver:     resolver,
		fees:         fees,
		gateway:      gateway,
		logger:       log,
		metrics:      m,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) validateInterval(start time.Time, durationMinutes int, now time.Time) error {
	duration := time.Duration(durationMinutes) * time.Minute
	if duration < MinAppointmentDuration {
		return apperrors.Validation(fmt.Sprintf("appointment duration must be at least %v", MinAppointmentDuration))
	}
	if duration > MaxAppointmentDuration {
		return apperrors.Validation(fmt.Sprintf("appointment duration cannot exceed %v", MaxAppointmentDuration))
	}
	if !start.After(now) {
		return apperrors.InvalidTime("appointment time must be in the future")
	}
	if start.Sub(now) > MaxAdvanceBooking {
		return apperrors.Validation("appointment cannot be booked more than 90 days in advance")
	}
	return nil
}

// CheckAvailability answers the read-only availability question the booking
// UI asks before committing. A fixed now snapshot keeps the answer
// deterministic for the duration of the request.
func (s *Service) CheckAvailability(ctx context.Context, req *model.CheckAvailabilityRequest) (availability.Decision, error) {
	durationMinutes := req.DurationMinutes
	if durationMinutes == 0 {
		durationMinutes = DefaultDurationMinutes
	}
	if !req.StartTime.After(s.now()) {
		return availability.Decision{Available: false, Reason: "requested time is in the past"}, nil
	}
	return s.resolver.Check(ctx, req.CounsellorID, req.StartTime.UTC(), durationMinutes, nil)
}

// BookAppointment creates a pending_payment appointment. The resolver gives
// a fast answer with a reason; the ledger insert re-checks conflicts under
// the per-counsellor lock to close the check-then-act race.
func (s *Service) BookAppointment(ctx context.Context, actor model.Actor, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	if !actor.IsClient() {
		return nil, apperrors.Forbidden("only clients can book appointments")
	}

	durationMinutes := req.DurationMinutes
	if durationMinutes == 0 {
		durationMinutes = DefaultDurationMinutes
	}
	start := req.StartTime.UTC()
	if err := s.validateInterval(start, durationMinutes, s.now()); err != nil {
		return nil, err
	}

	decision, err := s.resolver.Check(ctx, req.CounsellorID, start, durationMinutes, nil)
	if err != nil {
		return nil, fmt.Errorf("availability check failed: %w", err)
	}
	if !decision.Available {
		return nil, apperrors.SlotUnavailable(decision.Reason)
	}

	amount, err := s.fees.Fee(ctx, req.CounsellorID)
	if err != nil {
		return nil, err
	}

	apt := &model.Appointment{
		Base:            model.Base{ID: uuid.New()},
		ClientID:        actor.ID,
		CounsellorID:    req.CounsellorID,
		StartTime:       start,
		DurationMinutes: durationMinutes,
		Status:          model.AppointmentStatusPendingPayment,
		PaymentStatus:   model.PaymentStatusUnpaid,
		Amount:          amount,
		Notes:           req.Notes,
	}
	if err := s.appointments.CreateIfFree(ctx, apt); err != nil {
		if apperrors.IsKind(err, apperrors.KindSlotUnavailable) {
			s.countConflict()
		}
		return nil, err
	}

	s.count(func(m *metrics.Metrics) { m.BookingsTotal.Inc() })
	s.logger.Info("appointment booked",
		"appointment_id", apt.ID.String(),
		"counsellor_id", apt.CounsellorID.String(),
		"start_time", apt.StartTime,
	)
	return apt, nil
}

// CreatePaymentOrder creates (or returns the still-pending) provider order
// for an appointment awaiting payment.
func (s *Service) CreatePaymentOrder(ctx context.Context, actor model.Actor, appointmentID uuid.UUID) (*model.PaymentOrder, error) {
	apt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if apt.ClientID != actor.ID {
		return nil, apperrors.Forbidden("appointment belongs to another client")
	}
	if apt.Status != model.AppointmentStatusPendingPayment {
		return nil, apperrors.Validation("appointment is not awaiting payment")
	}

	intent, err := s.payments.GetByAppointment(ctx, apt.ID)
	switch {
	case err == nil && intent.Verified:
		return nil, apperrors.Validation("appointment is already paid")
	case err == nil:
		// Pending order exists; hand it back rather than creating another.
		return &model.PaymentOrder{
			AppointmentID: apt.ID,
			OrderID:       intent.ProviderOrderID,
			Amount:        apt.Amount,
			Currency:      DefaultCurrency,
		}, nil
	case !apperrors.IsKind(err, apperrors.KindNotFound):
		return nil, err
	}

	order, err := s.gateway.CreateOrder(ctx, apt.Amount, DefaultCurrency, "appointment_"+apt.ID.String())
	if err != nil {
		return nil, err
	}

	intent = &model.PaymentIntent{
		ID:              uuid.New(),
		AppointmentID:   apt.ID,
		ProviderOrderID: order.OrderID,
	}
	if err := s.payments.Create(ctx, intent); err != nil {
		return nil, fmt.Errorf("failed to record payment intent: %w", err)
	}

	return &model.PaymentOrder{
		AppointmentID: apt.ID,
		OrderID:       order.OrderID,
		Amount:        order.Amount,
		Currency:      order.Currency,
	}, nil
}

// ConfirmPayment verifies the provider callback and transitions the
// appointment to confirmed/paid. It is idempotent under webhook retries: a
// replay with an already-verified payment reference returns the confirmed
// appointment without reprocessing.
func (s *Service) ConfirmPayment(ctx context.Context, actor model.Actor, req *model.VerifyPaymentRequest) (*model.Appointment, error) {
	apt, err := s.appointments.Get(ctx, req.AppointmentID)
	if err != nil {
		return nil, err
	}
	if apt.ClientID != actor.ID {
		return nil, apperrors.Forbidden("appointment belongs to another client")
	}

	if prior, err := s.payments.GetByProviderPaymentID(ctx, req.ProviderPaymentID); err == nil && prior.Verified {
		if prior.AppointmentID != apt.ID {
			return nil, apperrors.PaymentVerificationFailed("payment reference already used", nil)
		}
		if apt.Status == model.AppointmentStatusPendingPayment {
			// The payment was recorded but the status transition never
			// landed; finish it on the replay.
			return s.settleConfirmed(ctx, apt)
		}
		return apt, nil
	} else if err != nil && !apperrors.IsKind(err, apperrors.KindNotFound) {
		return nil, err
	}

	intent, err := s.payments.GetByAppointment(ctx, apt.ID)
	if err != nil {
		return nil, err
	}
	if intent.ProviderOrderID != req.ProviderOrderID {
		return nil, apperrors.PaymentVerificationFailed("order reference does not match appointment", nil)
	}
	if intent.Verified {
		// Same appointment, different payment reference than the verified one.
		return nil, apperrors.PaymentVerificationFailed("appointment already has a verified payment", nil)
	}

	if !s.gateway.Verify(req.ProviderOrderID, req.ProviderPaymentID, req.Signature) {
		s.count(func(m *metrics.Metrics) { m.PaymentsRejected.Inc() })
		return nil, apperrors.PaymentVerificationFailed("invalid payment signature", nil)
	}

	if err := s.payments.MarkVerified(ctx, intent.ID, req.ProviderPaymentID, req.Signature); err != nil {
		if !apperrors.IsKind(err, apperrors.KindNotFound) {
			return nil, err
		}
		// A concurrent retry won the verification race; settle alongside it.
	}
	return s.settleConfirmed(ctx, apt)
}

// settleConfirmed applies the confirmed/paid transition for a verified
// payment. Whichever caller wins the guarded update emits the event and the
// metric exactly once; losers report the settled record.
func (s *Service) settleConfirmed(ctx context.Context, apt *model.Appointment) (*model.Appointment, error) {
	won, err := s.appointments.Confirm(ctx, apt.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm appointment: %w", err)
	}
	if !won {
		return s.appointments.Get(ctx, apt.ID)
	}

	apt.Status = model.AppointmentStatusConfirmed
	apt.PaymentStatus = model.PaymentStatusPaid
	s.count(func(m *metrics.Metrics) { m.PaymentsVerified.Inc() })
	s.emit(ctx, model.EventAppointmentConfirmed, apt)
	s.logger.Info("payment confirmed", "appointment_id", apt.ID.String())
	return apt, nil
}

// RescheduleAppointment moves a confirmed appointment to a new interval.
// The move either fully succeeds or leaves the record untouched; the
// meeting link is invalidated and reissued by the dispatcher.
func (s *Service) RescheduleAppointment(ctx context.Context, actor model.Actor, id uuid.UUID, req *model.RescheduleAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if apt.ClientID != actor.ID {
		return nil, apperrors.Forbidden("only the client who booked can reschedule")
	}
	if apt.Status != model.AppointmentStatusConfirmed {
		return nil, apperrors.Validation("only confirmed appointments can be rescheduled")
	}

	durationMinutes := req.DurationMinutes
	if durationMinutes == 0 {
		durationMinutes = apt.DurationMinutes
	}
	start := req.StartTime.UTC()
	if err := s.validateInterval(start, durationMinutes, s.now()); err != nil {
		return nil, err
	}

	decision, err := s.resolver.Check(ctx, apt.CounsellorID, start, durationMinutes, &id)
	if err != nil {
		return nil, fmt.Errorf("availability check failed: %w", err)
	}
	if !decision.Available {
		return nil, apperrors.SlotUnavailable(decision.Reason)
	}

	updated, err := s.appointments.MoveIfFree(ctx, id, start, durationMinutes)
	if err != nil {
		if apperrors.IsKind(err, apperrors.KindSlotUnavailable) {
			s.countConflict()
		}
		return nil, err
	}

	s.count(func(m *metrics.Metrics) { m.Reschedules.Inc() })
	s.emit(ctx, model.EventAppointmentRescheduled, updated)
	s.logger.Info("appointment rescheduled",
		"appointment_id", updated.ID.String(),
		"start_time", updated.StartTime,
	)
	return updated, nil
}

// CancelAppointment cancels a pending or confirmed appointment. For paid
// appointments the refund is requested from the gateway; payment_status
// moves to refunded only once the gateway confirms, otherwise a retry event
// is queued.
func (s *Service) CancelAppointment(ctx context.Context, actor model.Actor, id uuid.UUID, reason string) (*model.Appointment, error) {
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if apt.ClientID != actor.ID && apt.CounsellorID != actor.ID {
		return nil, apperrors.Forbidden("actor is not a party to this appointment")
	}
	if !apt.Active() {
		return nil, apperrors.Validation("appointment can no longer be cancelled")
	}

	var cancelReason *string
	if reason != "" {
		cancelReason = &reason
	}
	won, err := s.appointments.Cancel(ctx, apt.ID, cancelReason)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}
	if !won {
		// A concurrent cancel or completion settled the record first.
		return nil, apperrors.Validation("appointment can no longer be cancelled")
	}
	apt.Status = model.AppointmentStatusCancelled
	apt.CancelReason = cancelReason

	s.count(func(m *metrics.Metrics) { m.Cancellations.Inc() })
	s.emit(ctx, model.EventAppointmentCancelled, apt)

	if apt.PaymentStatus == model.PaymentStatusPaid {
		if err := s.refund(ctx, apt); err != nil {
			s.logger.Error(err, "refund deferred", "appointment_id", apt.ID.String())
			s.emit(ctx, model.EventRefundPending, apt)
		}
	}
	return apt, nil
}

// refund requests the gateway refund for a cancelled appointment. The claim
// on the paid record is taken before the gateway call, so only one caller
// ever reaches the gateway for a given payment; a claim that fails at the
// gateway stays refund_pending and is retried by the sweep.
func (s *Service) refund(ctx context.Context, apt *model.Appointment) error {
	intent, err := s.payments.GetByAppointment(ctx, apt.ID)
	if err != nil {
		return err
	}
	if !intent.Verified || intent.ProviderPaymentID == nil {
		return fmt.Errorf("no verified payment to refund for appointment %s", apt.ID)
	}

	if apt.PaymentStatus == model.PaymentStatusPaid {
		won, err := s.appointments.ClaimRefund(ctx, apt.ID)
		if err != nil {
			return err
		}
		if !won {
			// Another caller holds or already settled this refund.
			return nil
		}
		apt.PaymentStatus = model.PaymentStatusRefundPending
	}

	if err := s.gateway.Refund(ctx, *intent.ProviderPaymentID, apt.Amount); err != nil {
		return err
	}

	won, err := s.appointments.MarkRefunded(ctx, apt.ID)
	if err != nil {
		return fmt.Errorf("failed to record refund: %w", err)
	}
	if won {
		apt.PaymentStatus = model.PaymentStatusRefunded
		s.count(func(m *metrics.Metrics) { m.RefundsIssued.Inc() })
	}
	return nil
}

// RetryPendingRefunds re-attempts refunds for cancelled appointments the
// gateway has not yet confirmed. Claims younger than refundRetryAfter are
// skipped; their first gateway call may still be in flight. Called
// periodically by the worker.
func (s *Service) RetryPendingRefunds(ctx context.Context) (int, error) {
	pending, err := s.appointments.ListCancelledAwaitingRefund(ctx, s.now().Add(-refundRetryAfter), refundBatchSize)
	if err != nil {
		return 0, err
	}

	refunded := 0
	for _, apt := range pending {
		if err := s.refund(ctx, apt); err != nil {
			s.logger.Error(err, "refund retry failed", "appointment_id", apt.ID.String())
			continue
		}
		refunded++
	}
	return refunded, nil
}

// CompleteElapsed transitions confirmed appointments whose end time has
// passed to completed, using one now snapshot for the whole sweep.
func (s *Service) CompleteElapsed(ctx context.Context) (int, error) {
	asOf := s.now()
	elapsed, err := s.appointments.ListElapsedConfirmed(ctx, asOf, completionBatchSize)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, apt := range elapsed {
		won, err := s.appointments.Complete(ctx, apt.ID)
		if err != nil {
			s.logger.Error(err, "failed to complete appointment", "appointment_id", apt.ID.String())
			continue
		}
		if !won {
			// Cancelled between the listing and the transition.
			continue
		}
		apt.Status = model.AppointmentStatusCompleted
		s.emit(ctx, model.EventAppointmentCompleted, apt)
		completed++
	}
	return completed, nil
}

// GetAppointment returns an appointment to one of its parties.
func (s *Service) GetAppointment(ctx context.Context, actor model.Actor, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if apt.ClientID != actor.ID && apt.CounsellorID != actor.ID {
		return nil, apperrors.Forbidden("actor is not a party to this appointment")
	}
	return apt, nil
}

// ListAppointments returns the actor's appointments, newest first.
func (s *Service) ListAppointments(ctx context.Context, actor model.Actor, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	if actor.IsCounsellor() {
		return s.appointments.ListByCounsellor(ctx, actor.ID, filters)
	}
	return s.appointments.ListByClient(ctx, actor.ID, filters)
}

func (s *Service) emit(ctx context.Context, eventType string, apt *model.Appointment) {
	payload, err := json.Marshal(model.AppointmentEvent{
		AppointmentID: apt.ID,
		ClientID:      apt.ClientID,
		CounsellorID:  apt.CounsellorID,
		StartTime:     apt.StartTime,
		OccurredAt:    s.now(),
	})
	if err != nil {
		s.logger.Error(err, "failed to marshal event", "event_type", eventType)
		return
	}

	event := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   payload,
	}
	if err := s.outbox.Create(ctx, event); err != nil {
		// Dispatch is fire-and-forget; the appointment state stands.
		s.logger.Error(err, "failed to enqueue event", "event_type", eventType)
	}
}

func (s *Service) count(fn func(*metrics.Metrics)) {
	if s.metrics != nil {
		fn(s.metrics)
	}
}

func (s *Service) countConflict() {
	s.count(func(m *metrics.Metrics) { m.BookingConflicts.Inc() })
}
