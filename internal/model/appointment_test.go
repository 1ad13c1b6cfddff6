package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	allowed := []struct {
		from, to AppointmentStatus
	}{
		{AppointmentStatusRequested, AppointmentStatusBooked},
		{AppointmentStatusBooked, AppointmentStatusConfirmed},
		{AppointmentStatusBooked, AppointmentStatusArrived},
		{AppointmentStatusBooked, AppointmentStatusEarlyCancel},
		{AppointmentStatusBooked, AppointmentStatusLateCancel},
		{AppointmentStatusConfirmed, AppointmentStatusArrived},
		{AppointmentStatusConfirmed, AppointmentStatusEarlyCancel},
		{AppointmentStatusConfirmed, AppointmentStatusLateCancel},
		{AppointmentStatusArrived, AppointmentStatusCompleted},
		{AppointmentStatusArrived, AppointmentStatusNoShow},
	}
	for _, tc := range allowed {
		assert.True(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	denied := []struct {
		from, to AppointmentStatus
	}{
		{AppointmentStatusRequested, AppointmentStatusConfirmed},
		{AppointmentStatusRequested, AppointmentStatusArrived},
		{AppointmentStatusRequested, AppointmentStatusEarlyCancel},
		{AppointmentStatusBooked, AppointmentStatusCompleted},
		{AppointmentStatusBooked, AppointmentStatusNoShow},
		{AppointmentStatusConfirmed, AppointmentStatusCompleted},
		{AppointmentStatusConfirmed, AppointmentStatusNoShow},
		{AppointmentStatusArrived, AppointmentStatusEarlyCancel},
		{AppointmentStatusArrived, AppointmentStatusLateCancel},
		{AppointmentStatusCompleted, AppointmentStatusArrived},
		{AppointmentStatusNoShow, AppointmentStatusBooked},
		{AppointmentStatusEarlyCancel, AppointmentStatusBooked},
		{AppointmentStatusLateCancel, AppointmentStatusCompleted},
	}
	for _, tc := range denied {
		assert.False(t, tc.from.CanTransitionTo(tc.to), "%s -> %s should be denied", tc.from, tc.to)
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []AppointmentStatus{
		AppointmentStatusCompleted,
		AppointmentStatusNoShow,
		AppointmentStatusEarlyCancel,
		AppointmentStatusLateCancel,
	}
	for _, s := range terminal {
		assert.True(t, s.IsTerminal(), "%s should be terminal", s)
		assert.Empty(t, transitions[s], "terminal status %s must have no outbound transitions", s)
	}

	live := []AppointmentStatus{
		AppointmentStatusRequested,
		AppointmentStatusBooked,
		AppointmentStatusConfirmed,
		AppointmentStatusArrived,
	}
	for _, s := range live {
		assert.False(t, s.IsTerminal(), "%s should not be terminal", s)
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, AppointmentStatusRequested.IsValid())
	assert.True(t, AppointmentStatusLateCancel.IsValid())
	assert.False(t, AppointmentStatus("cancelled").IsValid())
	assert.False(t, AppointmentStatus("").IsValid())
}
