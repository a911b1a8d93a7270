package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "campaign/pkg/domain"
)

func TestEligibility(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewRecipient(id.NewRecipientID(), "a@example.com", nil, now)
	assert.False(t, r.Eligible(), "unverified")
	assert.NotNil(t, r.Segments)

	assert.True(t, r.Verify(now))
	assert.False(t, r.Verify(now.Add(time.Hour)), "second verify is a no-op")
	assert.Equal(t, now, *r.VerifiedAt)
	assert.True(t, r.Eligible())

	assert.True(t, r.OptOut(now))
	assert.False(t, r.OptOut(now.Add(time.Hour)))
	assert.Equal(t, now, *r.OptedOutAt)
	assert.False(t, r.Eligible())

	r.Verify(now)
	assert.False(t, r.Eligible(), "verifying again does not undo opt-out")
}

func TestInSegment(t *testing.T) {
	r := NewRecipient(id.NewRecipientID(), "a@example.com", []string{"donors", "volunteers"}, time.Now())
	assert.True(t, r.InSegment(""))
	assert.True(t, r.InSegment("donors"))
	assert.False(t, r.InSegment("press"))
}
