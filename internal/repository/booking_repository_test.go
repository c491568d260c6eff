package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-booking-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestBookingRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewBookingRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	booking := &models.Booking{
		RoomID:        "room-1",
		RequestedBy:   "user-1",
		StartAt:       time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		DurationHours: 1,
		Reason:        "study group",
		Status:        models.BookingPending,
	}
	require.NoError(t, repo.Create(context.Background(), booking))
	require.NotEmpty(t, booking.ID)
	require.False(t, booking.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryUpdateStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewBookingRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status")).
		WithArgs(models.BookingApproved, sqlmock.AnyArg(), "booking-1", models.BookingPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "booking-1", models.BookingPending, models.BookingApproved))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryUpdateStatusStaleRead(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewBookingRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status")).
		WithArgs(models.BookingApproved, sqlmock.AnyArg(), "booking-1", models.BookingPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "booking-1", models.BookingPending, models.BookingApproved)
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBookingRepositoryListActiveIntersecting(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewBookingRepository(db)
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "room_id", "requested_by", "start_at", "duration_hours", "reason", "status", "created_at", "updated_at"}).
		AddRow("booking-1", "room-1", "user-1", start, 1, "study group", "PENDING", start, start)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, room_id, requested_by, start_at")).
		WithArgs("room-1", start, start.Add(4*time.Hour)).
		WillReturnRows(rows)

	bookings, err := repo.ListActiveIntersecting(context.Background(), "room-1", start, start.Add(4*time.Hour))
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	require.Equal(t, "booking-1", bookings[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOccupationRepositoryListActive(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOccupationRepository(db)
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "room_id", "kind", "label", "start_at", "duration_hours"}).
		AddRow("booking-1", "room-1", "BOOKING", "study group", start, 1).
		AddRow("occ-1", "room-1", "OCCURRENCE", "MATH-101", start.Add(2*time.Hour), 2)
	mock.ExpectQuery("SELECT id, room_id, 'BOOKING' AS kind").
		WithArgs("room-1").
		WillReturnRows(rows)

	occupations, err := repo.ListActive(context.Background(), "room-1")
	require.NoError(t, err)
	require.Len(t, occupations, 2)
	require.Equal(t, models.OccupationBooking, occupations[0].Kind)
	require.Equal(t, models.OccupationOccurrence, occupations[1].Kind)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOccurrenceRepositoryBulkCreateRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewOccurrenceRepository(db)
	start := time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_occurrences")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedule_occurrences")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	occurrences := []models.ScheduleOccurrence{
		{ClassRef: "MATH-101", RoomID: "room-1", StartAt: start, DurationHours: 2},
		{ClassRef: "MATH-101", RoomID: "room-1", StartAt: start.AddDate(0, 0, 7), DurationHours: 2},
	}
	require.Error(t, repo.BulkCreate(context.Background(), occurrences))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomChangeRepositoryMoveOccurrenceIsTransactional(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRoomChangeRepository(db)
	start := time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedule_occurrences SET room_id")).
		WithArgs("room-b", sqlmock.AnyArg(), "occ-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO room_changes")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	change := &models.RoomChange{
		OccupationID:   "occ-1",
		OccupationKind: string(models.OccupationOccurrence),
		OriginalRoomID: "room-a",
		NewRoomID:      "room-b",
		StartAt:        start,
		DurationHours:  2,
		Reason:         "projector broken",
	}
	require.NoError(t, repo.MoveOccurrence(context.Background(), change))
	require.NotEmpty(t, change.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRoomChangeRepositoryMoveBookingRollsBackOnAuditFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewRoomChangeRepository(db)
	start := time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO room_changes")).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	change := &models.RoomChange{
		OccupationID:   "booking-1",
		OccupationKind: string(models.OccupationBooking),
		OriginalRoomID: "room-a",
		NewRoomID:      "room-b",
		StartAt:        start,
		DurationHours:  1,
	}
	replacement := &models.Booking{
		RoomID:        "room-b",
		RequestedBy:   "user-1",
		StartAt:       start,
		DurationHours: 1,
		Status:        models.BookingApproved,
	}
	require.Error(t, repo.MoveBooking(context.Background(), change, replacement))
	require.NoError(t, mock.ExpectationsWereMet())
}
