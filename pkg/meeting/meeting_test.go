package meeting

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateMeeting(t *testing.T) {
	p := NewCodeProvider("")

	linkPattern := regexp.MustCompile(`^https://meet\.google\.com/[a-z0-9]{3}-[a-z0-9]{4}-[a-z0-9]{3}$`)

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		link, err := p.CreateMeeting(context.Background(), "apt-1")
		require.NoError(t, err)
		assert.Regexp(t, linkPattern, link)
		seen[link] = true
	}
	assert.Greater(t, len(seen), 1, "links must not repeat deterministically")
}

func TestCreateMeetingCustomBase(t *testing.T) {
	p := NewCodeProvider("https://video.example.com")
	link, err := p.CreateMeeting(context.Background(), "apt-1")
	require.NoError(t, err)
	assert.Contains(t, link, "https://video.example.com/")
}
