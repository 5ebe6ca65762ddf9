package meeting

import (
	"context"
	"crypto/rand"
	"fmt"
)

// Provider issues video meeting links for confirmed appointments.
type Provider interface {
	CreateMeeting(ctx context.Context, appointmentID string) (string, error)
}

const meetAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// codeProvider generates meet links in the xxx-xxxx-xxx form used by the
// hosted meeting service.
type codeProvider struct {
	baseURL string
}

func NewCodeProvider(baseURL string) Provider {
	if baseURL == "" {
		baseURL = "https://meet.google.com"
	}
	return &codeProvider{baseURL: baseURL}
}

func (p *codeProvider) CreateMeeting(_ context.Context, _ string) (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate meet code: %w", err)
	}
	for i, b := range buf {
		buf[i] = meetAlphabet[int(b)%len(meetAlphabet)]
	}
	code := string(buf)
	return fmt.Sprintf("%s/%s-%s-%s", p.baseURL, code[:3], code[3:7], code[7:]), nil
}
