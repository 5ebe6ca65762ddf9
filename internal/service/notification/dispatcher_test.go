package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindease/booking-api/internal/model"
	apperrors "github.com/mindease/booking-api/pkg/errors"
	"github.com/mindease/booking-api/pkg/logger"
)

type fakeLedger struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*model.Appointment
}

func newFakeLedger(appointments ...*model.Appointment) *fakeLedger {
	f := &fakeLedger{byID: make(map[uuid.UUID]*model.Appointment)}
	for _, apt := range appointments {
		cp := *apt
		f.byID[apt.ID] = &cp
	}
	return f
}

func (f *fakeLedger) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	apt, ok := f.byID[id]
	if !ok {
		return nil, apperrors.NotFound("appointment")
	}
	cp := *apt
	return &cp, nil
}

func (f *fakeLedger) SetMeetingLink(_ context.Context, id uuid.UUID, link string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	apt, ok := f.byID[id]
	if !ok {
		return apperrors.NotFound("appointment")
	}
	apt.MeetingLink = &link
	return nil
}

func (f *fakeLedger) SetFeedbackFormURL(_ context.Context, id uuid.UUID, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	apt, ok := f.byID[id]
	if !ok {
		return apperrors.NotFound("appointment")
	}
	apt.FeedbackFormURL = &url
	return nil
}

func (f *fakeLedger) ListConfirmedWithoutMeetingLink(_ context.Context, limit int) ([]*model.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*model.Appointment
	for _, apt := range f.byID {
		if apt.Status == model.AppointmentStatusConfirmed && apt.MeetingLink == nil {
			cp := *apt
			out = append(out, &cp)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeLedger) CreateIfFree(context.Context, *model.Appointment) error { return nil }
func (f *fakeLedger) MoveIfFree(context.Context, uuid.UUID, time.Time, int) (*model.Appointment, error) {
	return nil, nil
}
func (f *fakeLedger) Confirm(context.Context, uuid.UUID) (bool, error) { return false, nil }
func (f *fakeLedger) Cancel(context.Context, uuid.UUID, *string) (bool, error) {
	return false, nil
}
func (f *fakeLedger) Complete(context.Context, uuid.UUID) (bool, error) { return false, nil }
func (f *fakeLedger) ClaimRefund(context.Context, uuid.UUID) (bool, error) { return false, nil }
func (f *fakeLedger) MarkRefunded(context.Context, uuid.UUID) (bool, error) { return false, nil }
func (f *fakeLedger) ListByClient(context.Context, uuid.UUID, *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}
func (f *fakeLedger) ListByCounsellor(context.Context, uuid.UUID, *model.AppointmentFilters) ([]*model.Appointment, error) {
	return nil, nil
}
func (f *fakeLedger) ListActiveOverlapping(context.Context, uuid.UUID, time.Time, time.Time, *uuid.UUID) ([]*model.Appointment, error) {
	return nil, nil
}
func (f *fakeLedger) ListElapsedConfirmed(context.Context, time.Time, int) ([]*model.Appointment, error) {
	return nil, nil
}
func (f *fakeLedger) ListCancelledAwaitingRefund(context.Context, time.Time, int) ([]*model.Appointment, error) {
	return nil, nil
}

type fakeClients struct {
	email string
}

func (f *fakeClients) Get(_ context.Context, id uuid.UUID) (*model.Client, error) {
	return &model.Client{Base: model.Base{ID: id}, DisplayName: "Test Client", Email: f.email}, nil
}

type fakeMailer struct {
	mu        sync.Mutex
	confirmed []string
	cancelled []string
	feedback  []string
}

func (f *fakeMailer) SendBookingConfirmed(_ context.Context, to string, _ *model.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.confirmed = append(f.confirmed, to)
	return nil
}

func (f *fakeMailer) SendCancellation(_ context.Context, to string, _ *model.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, to)
	return nil
}

func (f *fakeMailer) SendFeedbackRequest(_ context.Context, to string, _ *model.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.feedback = append(f.feedback, to)
	return nil
}

type flakyMeetings struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (f *flakyMeetings) CreateMeeting(_ context.Context, appointmentID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("provider unavailable")
	}
	return "https://meet.google.com/abc-defg-hij", nil
}

func confirmedAppointment() *model.Appointment {
	return &model.Appointment{
		Base:            model.Base{ID: uuid.New()},
		ClientID:        uuid.New(),
		CounsellorID:    uuid.New(),
		StartTime:       time.Date(2026, 9, 2, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Status:          model.AppointmentStatusConfirmed,
		PaymentStatus:   model.PaymentStatusPaid,
	}
}

func newTestDispatcher(ledger *fakeLedger, mailer *fakeMailer, meetings *flakyMeetings) *Dispatcher {
	log := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	d := NewDispatcher(ledger, &fakeClients{email: "client@example.com"}, meetings, mailer, "https://forms.example.com/feedback", log, nil)
	d.retryDelay = 0
	return d
}

func TestIssueMeeting(t *testing.T) {
	t.Run("issues link for confirmed appointment", func(t *testing.T) {
		apt := confirmedAppointment()
		ledger := newFakeLedger(apt)
		d := newTestDispatcher(ledger, &fakeMailer{}, &flakyMeetings{})

		require.NoError(t, d.IssueMeeting(context.Background(), apt.ID))

		stored, err := ledger.Get(context.Background(), apt.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.MeetingLink)
		assert.Contains(t, *stored.MeetingLink, "meet.google.com")
	})

	t.Run("retries transient provider failures", func(t *testing.T) {
		apt := confirmedAppointment()
		ledger := newFakeLedger(apt)
		meetings := &flakyMeetings{failures: 2}
		d := newTestDispatcher(ledger, &fakeMailer{}, meetings)

		require.NoError(t, d.IssueMeeting(context.Background(), apt.ID))
		assert.Equal(t, 3, meetings.calls)
	})

	t.Run("exhausted retries surface a retryable error", func(t *testing.T) {
		apt := confirmedAppointment()
		ledger := newFakeLedger(apt)
		d := newTestDispatcher(ledger, &fakeMailer{}, &flakyMeetings{failures: 10})

		err := d.IssueMeeting(context.Background(), apt.ID)
		assert.True(t, apperrors.IsKind(err, apperrors.KindRetryable))

		stored, err := ledger.Get(context.Background(), apt.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.MeetingLink)
	})

	t.Run("existing link not replaced", func(t *testing.T) {
		apt := confirmedAppointment()
		link := "https://meet.google.com/old-link-xyz"
		apt.MeetingLink = &link
		ledger := newFakeLedger(apt)
		meetings := &flakyMeetings{}
		d := newTestDispatcher(ledger, &fakeMailer{}, meetings)

		require.NoError(t, d.IssueMeeting(context.Background(), apt.ID))
		assert.Zero(t, meetings.calls)
	})

	t.Run("non-confirmed appointment skipped", func(t *testing.T) {
		apt := confirmedAppointment()
		apt.Status = model.AppointmentStatusCancelled
		ledger := newFakeLedger(apt)
		meetings := &flakyMeetings{}
		d := newTestDispatcher(ledger, &fakeMailer{}, meetings)

		require.NoError(t, d.IssueMeeting(context.Background(), apt.ID))
		assert.Zero(t, meetings.calls)
	})
}

func TestIssueFeedbackRequest(t *testing.T) {
	t.Run("completed appointment gets form and email", func(t *testing.T) {
		apt := confirmedAppointment()
		apt.Status = model.AppointmentStatusCompleted
		ledger := newFakeLedger(apt)
		mailer := &fakeMailer{}
		d := newTestDispatcher(ledger, mailer, &flakyMeetings{})

		require.NoError(t, d.IssueFeedbackRequest(context.Background(), apt.ID))

		stored, err := ledger.Get(context.Background(), apt.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.FeedbackFormURL)
		assert.Contains(t, *stored.FeedbackFormURL, apt.ID.String())
		assert.Equal(t, []string{"client@example.com"}, mailer.feedback)
	})

	t.Run("non-completed appointment skipped", func(t *testing.T) {
		apt := confirmedAppointment()
		ledger := newFakeLedger(apt)
		mailer := &fakeMailer{}
		d := newTestDispatcher(ledger, mailer, &flakyMeetings{})

		require.NoError(t, d.IssueFeedbackRequest(context.Background(), apt.ID))
		assert.Empty(t, mailer.feedback)
	})
}

func TestHandleEvent(t *testing.T) {
	event := func(t *testing.T, eventType string, apt *model.Appointment) []byte {
		t.Helper()
		raw, err := json.Marshal(envelope{
			Type: eventType,
			Payload: model.AppointmentEvent{
				AppointmentID: apt.ID,
				ClientID:      apt.ClientID,
				CounsellorID:  apt.CounsellorID,
				StartTime:     apt.StartTime,
				OccurredAt:    time.Now().UTC(),
			},
		})
		require.NoError(t, err)
		return raw
	}

	t.Run("confirmed event issues link and confirmation email", func(t *testing.T) {
		apt := confirmedAppointment()
		ledger := newFakeLedger(apt)
		mailer := &fakeMailer{}
		d := newTestDispatcher(ledger, mailer, &flakyMeetings{})

		require.NoError(t, d.HandleEvent(context.Background(), event(t, model.EventAppointmentConfirmed, apt)))

		stored, err := ledger.Get(context.Background(), apt.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored.MeetingLink)
		assert.Equal(t, []string{"client@example.com"}, mailer.confirmed)
	})

	t.Run("rescheduled event reissues link", func(t *testing.T) {
		apt := confirmedAppointment()
		ledger := newFakeLedger(apt)
		d := newTestDispatcher(ledger, &fakeMailer{}, &flakyMeetings{})

		require.NoError(t, d.HandleEvent(context.Background(), event(t, model.EventAppointmentRescheduled, apt)))

		stored, err := ledger.Get(context.Background(), apt.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored.MeetingLink)
	})

	t.Run("cancelled event sends cancellation email", func(t *testing.T) {
		apt := confirmedAppointment()
		apt.Status = model.AppointmentStatusCancelled
		ledger := newFakeLedger(apt)
		mailer := &fakeMailer{}
		d := newTestDispatcher(ledger, mailer, &flakyMeetings{})

		require.NoError(t, d.HandleEvent(context.Background(), event(t, model.EventAppointmentCancelled, apt)))
		assert.Equal(t, []string{"client@example.com"}, mailer.cancelled)
	})

	t.Run("unknown event type ignored", func(t *testing.T) {
		apt := confirmedAppointment()
		d := newTestDispatcher(newFakeLedger(apt), &fakeMailer{}, &flakyMeetings{})
		assert.NoError(t, d.HandleEvent(context.Background(), event(t, "appointment.unknown", apt)))
	})

	t.Run("malformed payload rejected", func(t *testing.T) {
		apt := confirmedAppointment()
		d := newTestDispatcher(newFakeLedger(apt), &fakeMailer{}, &flakyMeetings{})
		assert.Error(t, d.HandleEvent(context.Background(), []byte("not json")))
	})
}

func TestRetryMissingLinks(t *testing.T) {
	withLink := confirmedAppointment()
	link := "https://meet.google.com/has-link-abc"
	withLink.MeetingLink = &link
	missing := confirmedAppointment()
	pending := confirmedAppointment()
	pending.Status = model.AppointmentStatusPendingPayment

	ledger := newFakeLedger(withLink, missing, pending)
	d := newTestDispatcher(ledger, &fakeMailer{}, &flakyMeetings{})

	issued, err := d.RetryMissingLinks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, issued)

	stored, err := ledger.Get(context.Background(), missing.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.MeetingLink)
}
