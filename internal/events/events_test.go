package events_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sourcepawn-studio/spls/internal/events"
)

func TestContainsKnownEvent(t *testing.T) {
	assert.True(t, events.Contains("player_death"))
	assert.True(t, events.Contains("round_start"))
}

func TestContainsRejectsUnknownEvent(t *testing.T) {
	assert.False(t, events.Contains("not_a_real_event"))
}

func TestNamesHasNoDuplicates(t *testing.T) {
	seen := make(map[string]bool, len(events.Names))
	for _, n := range events.Names {
		assert.False(t, seen[n], "duplicate event name %q", n)
		seen[n] = true
	}
}
