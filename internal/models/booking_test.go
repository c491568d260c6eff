package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingStatusTransitions(t *testing.T) {
	assert.True(t, CanTransition(BookingPending, BookingApproved))
	assert.True(t, CanTransition(BookingPending, BookingRejected))
	assert.True(t, CanTransition(BookingPending, BookingCancelled))
	assert.True(t, CanTransition(BookingApproved, BookingCompleted))
	assert.True(t, CanTransition(BookingApproved, BookingCancelled))

	statuses := []BookingStatus{BookingPending, BookingApproved, BookingRejected, BookingCompleted, BookingCancelled}
	for _, s := range statuses {
		assert.False(t, CanTransition(s, s), "same-state no-op must be rejected: %s", s)
	}
	for _, terminal := range []BookingStatus{BookingRejected, BookingCompleted, BookingCancelled} {
		for _, to := range statuses {
			assert.False(t, CanTransition(terminal, to), "terminal state %s must not transition to %s", terminal, to)
		}
	}
	assert.False(t, CanTransition(BookingApproved, BookingRejected))
	assert.False(t, CanTransition(BookingApproved, BookingPending))
}

func TestStatusClassification(t *testing.T) {
	assert.True(t, BookingPending.Active())
	assert.True(t, BookingApproved.Active())
	assert.False(t, BookingCancelled.Active())
	assert.False(t, BookingRejected.Active())
	assert.False(t, BookingCompleted.Active())

	assert.True(t, BookingCancelled.Terminal())
	assert.False(t, BookingPending.Terminal())
	assert.False(t, BookingStatus("UNKNOWN").Valid())
}
