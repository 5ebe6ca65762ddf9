package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mindease/booking-api/internal/email"
	"github.com/mindease/booking-api/internal/model"
	"github.com/mindease/booking-api/internal/repository"
	apperrors "github.com/mindease/booking-api/pkg/errors"
	"github.com/mindease/booking-api/pkg/logger"
	"github.com/mindease/booking-api/pkg/meeting"
	"github.com/mindease/booking-api/pkg/messaging"
	"github.com/mindease/booking-api/pkg/metrics"
)

const (
	maxIssueAttempts = 3
	issueRetryDelay  = 2 * time.Second
	retryBatchSize   = 50
)

// Dispatcher reacts to appointment lifecycle events: it issues meeting
// links and feedback form references and mails the client. Everything here
// is fire-and-forget from the scheduling service's point of view. A failure
// never rolls back a confirmed appointment; links are retried until they
// stick.
type Dispatcher struct {
	appointments    repository.AppointmentRepository
	clients         repository.ClientRepository
	meetings        meeting.Provider
	mailer          email.Service
	feedbackBaseURL string
	logger          *logger.Logger
	metrics         *metrics.Metrics
	retryDelay      time.Duration
}

func NewDispatcher(
	appointments repository.AppointmentRepository,
	clients repository.ClientRepository,
	meetings meeting.Provider,
	mailer email.Service,
	feedbackBaseURL string,
	log *logger.Logger,
	m *metrics.Metrics,
) *Dispatcher {
	return &Dispatcher{
		appointments:    appointments,
		clients:         clients,
		meetings:        meetings,
		mailer:          mailer,
		feedbackBaseURL: feedbackBaseURL,
		logger:          log,
		metrics:         m,
		retryDelay:      issueRetryDelay,
	}
}

type envelope struct {
	Type    string                 `json:"type"`
	Payload model.AppointmentEvent `json:"payload"`
}

// Run consumes appointment events from the broker until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context, broker messaging.Broker, channel string) error {
	msgs, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := d.HandleEvent(ctx, raw); err != nil {
				d.logger.Error(err, "failed to handle event")
			}
		}
	}
}

func (d *Dispatcher) HandleEvent(ctx context.Context, raw []byte) error {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("failed to decode event: %w", err)
	}

	switch env.Type {
	case model.EventAppointmentConfirmed, model.EventAppointmentRescheduled:
		return d.handleConfirmed(ctx, env.Payload.AppointmentID)
	case model.EventAppointmentCompleted:
		return d.IssueFeedbackRequest(ctx, env.Payload.AppointmentID)
	case model.EventAppointmentCancelled:
		return d.handleCancelled(ctx, env.Payload.AppointmentID)
	case model.EventRefundPending:
		// Handled by the scheduling service's refund retry sweep.
		return nil
	default:
		d.logger.Warn("unknown event type", "type", env.Type)
		return nil
	}
}

func (d *Dispatcher) handleConfirmed(ctx context.Context, appointmentID uuid.UUID) error {
	if err := d.IssueMeeting(ctx, appointmentID); err != nil {
		// The link will be picked up by RetryMissingLinks; still notify.
		d.logger.Error(err, "meeting link deferred", "appointment_id", appointmentID.String())
	}

	apt, err := d.appointments.Get(ctx, appointmentID)
	if err != nil {
		return err
	}
	client, err := d.clients.Get(ctx, apt.ClientID)
	if err != nil {
		return err
	}
	if err := d.mailer.SendBookingConfirmed(ctx, client.Email, apt); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}
	return nil
}

func (d *Dispatcher) handleCancelled(ctx context.Context, appointmentID uuid.UUID) error {
	apt, err := d.appointments.Get(ctx, appointmentID)
	if err != nil {
		return err
	}
	client, err := d.clients.Get(ctx, apt.ClientID)
	if err != nil {
		return err
	}
	return d.mailer.SendCancellation(ctx, client.Email, apt)
}

// IssueMeeting creates a meeting link for a confirmed appointment that does
// not have one, with bounded retries against the provider.
func (d *Dispatcher) IssueMeeting(ctx context.Context, appointmentID uuid.UUID) error {
	apt, err := d.appointments.Get(ctx, appointmentID)
	if err != nil {
		return err
	}
	if apt.Status != model.AppointmentStatusConfirmed || apt.MeetingLink != nil {
		return nil
	}

	var link string
	var lastErr error
	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.retryDelay):
			}
		}
		link, lastErr = d.meetings.CreateMeeting(ctx, apt.ID.String())
		if lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		return apperrors.Retryable("meeting provider unavailable", lastErr)
	}

	if err := d.appointments.SetMeetingLink(ctx, apt.ID, link); err != nil {
		return err
	}
	if d.metrics != nil {
		d.metrics.MeetingLinksIssued.Inc()
	}
	d.logger.Info("meeting link issued", "appointment_id", apt.ID.String())
	return nil
}

// IssueFeedbackRequest attaches the feedback form reference once the
// session has ended and mails it to the client.
func (d *Dispatcher) IssueFeedbackRequest(ctx context.Context, appointmentID uuid.UUID) error {
	apt, err := d.appointments.Get(ctx, appointmentID)
	if err != nil {
		return err
	}
	if apt.Status != model.AppointmentStatusCompleted {
		return nil
	}

	if apt.FeedbackFormURL == nil {
		url := fmt.Sprintf("%s?appointment=%s", d.feedbackBaseURL, apt.ID)
		if err := d.appointments.SetFeedbackFormURL(ctx, apt.ID, url); err != nil {
			return err
		}
		apt.FeedbackFormURL = &url
	}

	client, err := d.clients.Get(ctx, apt.ClientID)
	if err != nil {
		return err
	}
	return d.mailer.SendFeedbackRequest(ctx, client.Email, apt)
}

// RetryMissingLinks sweeps confirmed appointments still lacking a meeting
// link. Called periodically by the worker.
func (d *Dispatcher) RetryMissingLinks(ctx context.Context) (int, error) {
	missing, err := d.appointments.ListConfirmedWithoutMeetingLink(ctx, retryBatchSize)
	if err != nil {
		return 0, err
	}

	issued := 0
	for _, apt := range missing {
		if err := d.IssueMeeting(ctx, apt.ID); err != nil {
			d.logger.Error(err, "meeting link retry failed", "appointment_id", apt.ID.String())
			continue
		}
		issued++
	}
	return issued, nil
}
