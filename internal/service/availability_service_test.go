package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-booking-api/internal/models"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
)

func TestCheckAvailableFreeRoom(t *testing.T) {
	svc := NewAvailabilityService(&fakeOccupationRepo{}, nil, nil)

	err := svc.CheckAvailable(context.Background(), "r1", models.Interval{Start: at(4, 10), DurationHours: 2}, "")
	assert.NoError(t, err)
}

func TestCheckAvailableReportsFirstConflict(t *testing.T) {
	occupations := &fakeOccupationRepo{}
	occupations.add("r1", models.Occupation{
		ID:            "occ-1",
		Kind:          models.OccupationOccurrence,
		Label:         "MATH101-A",
		StartAt:       at(4, 10),
		DurationHours: 2,
	})
	svc := NewAvailabilityService(occupations, nil, nil)

	err := svc.CheckAvailable(context.Background(), "r1", models.Interval{Start: at(4, 11), DurationHours: 2}, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	var conflict *models.ConflictError
	require.True(t, asConflict(err, &conflict))
	assert.Equal(t, "r1", conflict.RoomID)
	assert.Equal(t, "occ-1", conflict.Occupation.ID)
	assert.Contains(t, conflict.Error(), "occupied")
	assert.Contains(t, conflict.Error(), "2024-03-04 10:00")
}

func TestCheckAvailableIgnoresOtherRooms(t *testing.T) {
	occupations := &fakeOccupationRepo{}
	occupations.add("r2", models.Occupation{
		ID:            "occ-1",
		Kind:          models.OccupationBooking,
		StartAt:       at(4, 10),
		DurationHours: 2,
	})
	svc := NewAvailabilityService(occupations, nil, nil)

	err := svc.CheckAvailable(context.Background(), "r1", models.Interval{Start: at(4, 10), DurationHours: 2}, "")
	assert.NoError(t, err)
}

func TestCheckAvailableExcludesSelf(t *testing.T) {
	occupations := &fakeOccupationRepo{}
	occupations.add("r1", models.Occupation{
		ID:            "bk-1",
		Kind:          models.OccupationBooking,
		StartAt:       at(4, 10),
		DurationHours: 2,
	})
	svc := NewAvailabilityService(occupations, nil, nil)
	interval := models.Interval{Start: at(4, 10), DurationHours: 2}

	assert.Error(t, svc.CheckAvailable(context.Background(), "r1", interval, ""))
	assert.NoError(t, svc.CheckAvailable(context.Background(), "r1", interval, "bk-1"))
}

func TestCheckAvailableTouchingIntervals(t *testing.T) {
	occupations := &fakeOccupationRepo{}
	occupations.add("r1", models.Occupation{
		ID:            "occ-1",
		Kind:          models.OccupationOccurrence,
		StartAt:       at(4, 9),
		DurationHours: 2,
	})
	svc := NewAvailabilityService(occupations, nil, nil)

	// Ends exactly at 09:00 and starts exactly at 11:00.
	assert.NoError(t, svc.CheckAvailable(context.Background(), "r1", models.Interval{Start: at(4, 8), DurationHours: 1}, ""))
	assert.NoError(t, svc.CheckAvailable(context.Background(), "r1", models.Interval{Start: at(4, 11), DurationHours: 1}, ""))
}

func TestFindConflict(t *testing.T) {
	occupations := &fakeOccupationRepo{}
	occupations.add("r1", models.Occupation{
		ID:            "occ-1",
		Kind:          models.OccupationOccurrence,
		StartAt:       at(4, 10),
		DurationHours: 1,
	})
	svc := NewAvailabilityService(occupations, nil, nil)

	found, err := svc.FindConflict(context.Background(), "r1", models.Interval{Start: at(4, 10), DurationHours: 1})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "occ-1", found.ID)

	free, err := svc.FindConflict(context.Background(), "r1", models.Interval{Start: at(4, 12), DurationHours: 1})
	require.NoError(t, err)
	assert.Nil(t, free)
}

func TestIntervalOverlapWindow(t *testing.T) {
	base := models.Interval{Start: at(4, 10), DurationHours: 2}
	cases := []struct {
		name     string
		other    models.Interval
		overlaps bool
	}{
		{"inside", models.Interval{Start: at(4, 10).Add(30 * time.Minute), DurationHours: 1}, true},
		{"covers", models.Interval{Start: at(4, 9), DurationHours: 4}, true},
		{"before touching", models.Interval{Start: at(4, 8), DurationHours: 2}, false},
		{"after touching", models.Interval{Start: at(4, 12), DurationHours: 1}, false},
		{"disjoint", models.Interval{Start: at(5, 10), DurationHours: 2}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.overlaps, base.Overlaps(tc.other))
			assert.Equal(t, tc.overlaps, tc.other.Overlaps(base))
		})
	}
}
