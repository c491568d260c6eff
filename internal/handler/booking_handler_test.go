package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-booking-api/internal/models"
	"github.com/noah-isme/campus-booking-api/internal/service"
	"github.com/noah-isme/campus-booking-api/pkg/config"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
)

type bookingRepoStub struct {
	booking *models.Booking
}

func (s *bookingRepoStub) Create(ctx context.Context, booking *models.Booking) error {
	booking.ID = "bk-1"
	s.booking = booking
	return nil
}

func (s *bookingRepoStub) FindByID(ctx context.Context, id string) (*models.Booking, error) {
	if s.booking != nil && s.booking.ID == id {
		return s.booking, nil
	}
	return nil, sql.ErrNoRows
}

func (s *bookingRepoStub) UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus) error {
	if s.booking.Status != from {
		return sql.ErrNoRows
	}
	s.booking.Status = to
	return nil
}

func (s *bookingRepoStub) ListActiveIntersecting(ctx context.Context, roomID string, from, to time.Time) ([]models.Booking, error) {
	return nil, nil
}

func (s *bookingRepoStub) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	return nil, 0, nil
}

type roomRepoStub struct{}

func (roomRepoStub) FindByID(ctx context.Context, id string) (*models.Room, error) {
	return &models.Room{ID: id, Code: "R-101", Active: true}, nil
}

type availabilityStub struct {
	err error
}

func (s availabilityStub) CheckAvailable(ctx context.Context, roomID string, interval models.Interval, excludeID string) error {
	return s.err
}

type lockerStub struct{}

func (lockerStub) Acquire(ctx context.Context, roomID string) (func(), error) {
	return func() {}, nil
}

func newBookingHandler(availErr error) (*BookingHandler, *bookingRepoStub) {
	repo := &bookingRepoStub{}
	window := config.BookingConfig{OpenHour: 7, CloseHour: 22, SlotDurationMinutes: 60}
	svc := service.NewBookingService(repo, roomRepoStub{}, availabilityStub{err: availErr}, lockerStub{}, nil, nil, window, nil, nil)
	return NewBookingHandler(svc), repo
}

func postJSON(t *testing.T, body string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/bookings", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return w, c
}

func TestBookingHandlerCreate(t *testing.T) {
	handler, repo := newBookingHandler(nil)
	w, c := postJSON(t, `{"room_id":"r1","requested_by":"u1","start_at":"2024-03-04T10:00:00Z","duration_hours":2}`)

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, repo.booking)
	require.Equal(t, models.BookingPending, repo.booking.Status)
}

func TestBookingHandlerCreateConflict(t *testing.T) {
	conflict := &models.ConflictError{
		RoomID:    "r1",
		Requested: models.Interval{Start: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC), DurationHours: 2},
	}
	conflictErr := appErrors.Wrap(conflict, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflict.Error())
	handler, _ := newBookingHandler(conflictErr)
	w, c := postJSON(t, `{"room_id":"r1","requested_by":"u1","start_at":"2024-03-04T10:00:00Z","duration_hours":2}`)

	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	require.Equal(t, appErrors.ErrConflict.Code, envelope.Error.Code)
}

func TestBookingHandlerCreateBadPayload(t *testing.T) {
	handler, _ := newBookingHandler(nil)
	w, c := postJSON(t, `{"room_id":`)

	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingHandlerSetStatusInvalidTransition(t *testing.T) {
	handler, repo := newBookingHandler(nil)
	repo.booking = &models.Booking{
		ID:            "bk-1",
		RoomID:        "r1",
		StartAt:       time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC),
		DurationHours: 1,
		Status:        models.BookingCompleted,
	}

	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPatch, "/bookings/bk-1/status", strings.NewReader(`{"status":"APPROVED"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "bk-1"}}

	handler.SetStatus(c)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, models.BookingCompleted, repo.booking.Status)
}
