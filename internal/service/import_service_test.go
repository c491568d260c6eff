package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-booking-api/internal/models"
)

func jan(day, hour int) time.Time {
	return time.Date(2024, time.January, day, hour, 0, 0, 0, time.UTC)
}

type fakeOccurrenceStore struct {
	batches [][]models.ScheduleOccurrence
}

func (f *fakeOccurrenceStore) BulkCreate(ctx context.Context, occurrences []models.ScheduleOccurrence) error {
	f.batches = append(f.batches, occurrences)
	return nil
}

func (f *fakeOccurrenceStore) total() int {
	n := 0
	for _, batch := range f.batches {
		n += len(batch)
	}
	return n
}

func newImportFixture(occupations *fakeOccupationRepo) (*ImportService, *fakeOccurrenceStore) {
	if occupations == nil {
		occupations = &fakeOccupationRepo{}
	}
	store := &fakeOccurrenceStore{}
	rooms := &fakeRoomRepo{rooms: []models.Room{
		{ID: "r1", Code: "R-101", Active: true},
		{ID: "r2", Code: "R-102", Active: true},
	}}
	availability := NewAvailabilityService(occupations, nil, nil)
	svc := NewImportService(store, rooms, availability, &fakeLocker{}, nil, 500, nil)
	return svc, store
}

func importRow(overrides func(*models.ScheduleImportRow)) models.ScheduleImportRow {
	row := models.ScheduleImportRow{
		SubjectCode: "MATH101",
		ClassCode:   "A",
		StartDate:   "2024-01-01",
		EndDate:     "2024-01-31",
		DayOfWeek:   "Monday",
		StartTime:   "09:00",
		EndTime:     "11:00",
		RoomName:    "R-101",
	}
	if overrides != nil {
		overrides(&row)
	}
	return row
}

func TestImportExpandsWeeklyRows(t *testing.T) {
	svc, store := newImportFixture(nil)

	result, err := svc.ImportSchedule(context.Background(), []models.ScheduleImportRow{importRow(nil)})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 0, result.FailureCount)

	// January 2024 has five Mondays: 1, 8, 15, 22, 29.
	require.Len(t, store.batches, 1)
	require.Len(t, store.batches[0], 5)
	first := store.batches[0][0]
	assert.Equal(t, "r1", first.RoomID)
	assert.Equal(t, "MATH101-A", first.ClassRef)
	assert.Equal(t, 2, first.DurationHours)
	assert.Equal(t, "2024-01-01 09:00", first.StartAt.Format("2006-01-02 15:04"))
}

func TestImportRowFailuresDoNotAbortBatch(t *testing.T) {
	svc, store := newImportFixture(nil)

	rows := []models.ScheduleImportRow{
		importRow(nil),
		importRow(func(r *models.ScheduleImportRow) {
			r.ClassCode = "B"
			r.StartTime = "11:00"
			r.EndTime = "09:00" // inverted
		}),
		importRow(func(r *models.ScheduleImportRow) {
			r.ClassCode = "C"
			r.DayOfWeek = "Tuesday"
			r.StartTime = "13:00"
			r.EndTime = "15:00"
		}),
	}

	result, err := svc.ImportSchedule(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	require.Len(t, result.Errors, 1)
	assert.True(t, strings.HasPrefix(result.Errors[0], "row 2:"), result.Errors[0])
	assert.Len(t, store.batches, 2)
}

func TestImportRowAllOrNothingOnConflict(t *testing.T) {
	occupations := &fakeOccupationRepo{}
	// Room busy only on the third Monday; the whole row must fail anyway.
	occupations.add("r1", models.Occupation{
		ID:            "occ-1",
		Kind:          models.OccupationBooking,
		Label:         "exam",
		StartAt:       jan(15, 9),
		DurationHours: 2,
	})
	svc, store := newImportFixture(occupations)

	result, err := svc.ImportSchedule(context.Background(), []models.ScheduleImportRow{importRow(nil)})
	require.NoError(t, err)
	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "2024-01-15")
	assert.Empty(t, store.batches)
}

func TestImportAutoAssignSkipsPartiallyBusyRoom(t *testing.T) {
	occupations := &fakeOccupationRepo{}
	occupations.add("r1", models.Occupation{
		ID:            "occ-1",
		Kind:          models.OccupationOccurrence,
		StartAt:       jan(15, 9),
		DurationHours: 2,
	})
	svc, store := newImportFixture(occupations)

	row := importRow(func(r *models.ScheduleImportRow) { r.RoomName = "" })
	result, err := svc.ImportSchedule(context.Background(), []models.ScheduleImportRow{row})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)

	// R-101 clashes in week three, so every session lands in R-102.
	require.Equal(t, 5, store.total())
	for _, occ := range store.batches[0] {
		assert.Equal(t, "r2", occ.RoomID)
	}
}

func TestImportNoRoomFitsEverySession(t *testing.T) {
	occupations := &fakeOccupationRepo{}
	occupations.add("r1", models.Occupation{ID: "a", Kind: models.OccupationBooking, StartAt: jan(8, 9), DurationHours: 2})
	occupations.add("r2", models.Occupation{ID: "b", Kind: models.OccupationBooking, StartAt: jan(22, 9), DurationHours: 2})
	svc, store := newImportFixture(occupations)

	row := importRow(func(r *models.ScheduleImportRow) { r.RoomName = "" })
	result, err := svc.ImportSchedule(context.Background(), []models.ScheduleImportRow{row})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FailureCount)
	assert.Contains(t, result.Errors[0], "no room is available")
	assert.Empty(t, store.batches)
}

func TestImportUnknownRoomHint(t *testing.T) {
	svc, _ := newImportFixture(nil)

	row := importRow(func(r *models.ScheduleImportRow) { r.RoomName = "R-999" })
	result, err := svc.ImportSchedule(context.Background(), []models.ScheduleImportRow{row})
	require.NoError(t, err)
	assert.Equal(t, 1, result.FailureCount)
	assert.Contains(t, result.Errors[0], `room "R-999" not found`)
}

func TestImportRowValidation(t *testing.T) {
	svc, _ := newImportFixture(nil)
	ctx := context.Background()

	cases := []struct {
		name     string
		override func(*models.ScheduleImportRow)
		want     string
	}{
		{"missing fields", func(r *models.ScheduleImportRow) { r.SubjectCode = ""; r.StartDate = "" }, "missing required fields: subject_code, start_date"},
		{"bad date", func(r *models.ScheduleImportRow) { r.StartDate = "01/01/2024" }, "invalid start_date"},
		{"bad weekday", func(r *models.ScheduleImportRow) { r.DayOfWeek = "Funday" }, "unknown day_of_week"},
		{"bad time", func(r *models.ScheduleImportRow) { r.StartTime = "9am" }, "invalid start_time"},
		{"fractional hours", func(r *models.ScheduleImportRow) { r.EndTime = "10:30" }, "whole number of hours"},
		{"weekday absent from range", func(r *models.ScheduleImportRow) {
			r.StartDate = "2024-01-02"
			r.EndDate = "2024-01-06"
		}, "no Monday falls"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := svc.ImportSchedule(ctx, []models.ScheduleImportRow{importRow(tc.override)})
			require.NoError(t, err)
			require.Equal(t, 1, result.FailureCount)
			assert.Contains(t, result.Errors[0], tc.want)
		})
	}
}

func TestImportRejectsOversizedBatch(t *testing.T) {
	store := &fakeOccurrenceStore{}
	rooms := &fakeRoomRepo{rooms: []models.Room{{ID: "r1", Code: "R-101", Active: true}}}
	availability := NewAvailabilityService(&fakeOccupationRepo{}, nil, nil)
	svc := NewImportService(store, rooms, availability, &fakeLocker{}, nil, 2, nil)

	rows := []models.ScheduleImportRow{importRow(nil), importRow(nil), importRow(nil)}
	_, err := svc.ImportSchedule(context.Background(), rows)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row limit")
}

func TestImportTemplateColumns(t *testing.T) {
	svc, _ := newImportFixture(nil)

	data, err := svc.ImportTemplate()
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, strings.Join(templateColumns, ","), strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "MATH101")
}
