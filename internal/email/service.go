package email

import (
	"context"
	"fmt"

	"gopkg.in/gomail.v2"

	"github.com/mindease/booking-api/internal/model"
)

// Service sends transactional mail to appointment parties.
type Service interface {
	SendBookingConfirmed(ctx context.Context, to string, apt *model.Appointment) error
	SendCancellation(ctx context.Context, to string, apt *model.Appointment) error
	SendFeedbackRequest(ctx context.Context, to string, apt *model.Appointment) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smtpService struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPService(cfg SMTPConfig) Service {
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

func (s *smtpService) SendBookingConfirmed(_ context.Context, to string, apt *model.Appointment) error {
	body := fmt.Sprintf(
		"Your session on %s is confirmed.",
		apt.StartTime.Format("Mon, 02 Jan 2006 15:04 MST"),
	)
	if apt.MeetingLink != nil {
		body += fmt.Sprintf(" Join here: %s", *apt.MeetingLink)
	} else {
		body += " Your meeting link will be generated soon."
	}
	return s.send(to, "Session confirmed", body)
}

func (s *smtpService) SendCancellation(_ context.Context, to string, apt *model.Appointment) error {
	body := fmt.Sprintf(
		"Your session on %s has been cancelled.",
		apt.StartTime.Format("Mon, 02 Jan 2006 15:04 MST"),
	)
	if apt.PaymentStatus == model.PaymentStatusRefunded {
		body += " Your payment has been refunded."
	}
	return s.send(to, "Session cancelled", body)
}

func (s *smtpService) SendFeedbackRequest(_ context.Context, to string, apt *model.Appointment) error {
	if apt.FeedbackFormURL == nil {
		return fmt.Errorf("appointment %s has no feedback form url", apt.ID)
	}
	body := fmt.Sprintf(
		"Thanks for attending your session. We'd love your feedback: %s",
		*apt.FeedbackFormURL,
	)
	return s.send(to, "How was your session?", body)
}

func (s *smtpService) send(to, subject, body string) error {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
