package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range []string{"active", "expired", "collected"} {
		st, err := ParseStatus(s)
		require.NoError(t, err)
		assert.Equal(t, Status(s), st)
	}

	for _, s := range []string{"", "Active", "cancelled"} {
		_, err := ParseStatus(s)
		assert.ErrorIs(t, err, ErrInvalidStatus, s)
	}
}

func TestCanTransitionTo(t *testing.T) {
	all := []Status{StatusActive, StatusExpired, StatusCollected}

	allowed := map[[2]Status]bool{
		{StatusActive, StatusExpired}:   true,
		{StatusActive, StatusCollected}: true,
	}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]Status{from, to}], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.False(t, StatusActive.Terminal())
	assert.True(t, StatusExpired.Terminal())
	assert.True(t, StatusCollected.Terminal())
}

func TestOverdue(t *testing.T) {
	now := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	r := Reservation{Status: StatusActive, ExpiresAt: now}

	assert.False(t, r.Overdue(now))
	assert.True(t, r.Overdue(now.Add(time.Second)))

	r.Status = StatusCollected
	assert.False(t, r.Overdue(now.Add(time.Hour)))
}
