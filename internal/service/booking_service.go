package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-booking-api/internal/models"
	"github.com/noah-isme/campus-booking-api/pkg/config"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
)

type bookingRepository interface {
	Create(ctx context.Context, booking *models.Booking) error
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	UpdateStatus(ctx context.Context, id string, from, to models.BookingStatus) error
	ListActiveIntersecting(ctx context.Context, roomID string, from, to time.Time) ([]models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
}

type roomReader interface {
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type availabilityChecker interface {
	CheckAvailable(ctx context.Context, roomID string, interval models.Interval, excludeID string) error
}

type roomLocker interface {
	Acquire(ctx context.Context, roomID string) (func(), error)
}

// CreateBookingRequest describes payload for creating a booking.
type CreateBookingRequest struct {
	RoomID        string    `json:"room_id" validate:"required"`
	RequestedBy   string    `json:"requested_by" validate:"required"`
	StartAt       time.Time `json:"start_at" validate:"required"`
	DurationHours int       `json:"duration_hours" validate:"required,min=1"`
	Reason        string    `json:"reason"`
}

// SetBookingStatusRequest advances the booking lifecycle.
type SetBookingStatusRequest struct {
	Status models.BookingStatus `json:"status" validate:"required"`
}

// BookingService coordinates booking creation and the lifecycle state machine.
type BookingService struct {
	bookings     bookingRepository
	rooms        roomReader
	availability availabilityChecker
	locks        roomLocker
	cache        *CacheService
	metrics      *MetricsService
	window       config.BookingConfig
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewBookingService instantiates BookingService.
func NewBookingService(
	bookings bookingRepository,
	rooms roomReader,
	availability availabilityChecker,
	locks roomLocker,
	cache *CacheService,
	metrics *MetricsService,
	window config.BookingConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *BookingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BookingService{
		bookings:     bookings,
		rooms:        rooms,
		availability: availability,
		locks:        locks,
		cache:        cache,
		metrics:      metrics,
		window:       window,
		validator:    validate,
		logger:       logger,
	}
}

// Create validates the booking window and availability, then persists a new
// booking in PENDING. This is the only construction path for bookings.
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}

	if _, err := s.rooms.FindByID(ctx, req.RoomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrRoomNotFound, fmt.Sprintf("room %s not found", req.RoomID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	interval := models.Interval{Start: req.StartAt, DurationHours: req.DurationHours}
	if err := s.checkBookingWindow(interval); err != nil {
		return nil, err
	}

	release, err := s.locks.Acquire(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.availability.CheckAvailable(ctx, req.RoomID, interval, ""); err != nil {
		return nil, err
	}

	booking := models.Booking{
		RoomID:        req.RoomID,
		RequestedBy:   req.RequestedBy,
		StartAt:       req.StartAt,
		DurationHours: req.DurationHours,
		Reason:        req.Reason,
		Status:        models.BookingPending,
	}
	if err := s.bookings.Create(ctx, &booking); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
	}

	s.invalidateRoomCache(ctx, req.RoomID)
	if s.metrics != nil {
		s.metrics.RecordBookingCreated()
	}
	s.logger.Info("booking created",
		zap.String("booking_id", booking.ID),
		zap.String("room_id", booking.RoomID),
		zap.String("interval", interval.String()),
	)
	return &booking, nil
}

// SetStatus applies one lifecycle transition. Moving into APPROVED re-checks
// availability excluding the booking's own pending reservation; a conflict
// introduced since creation blocks the transition and leaves the status
// unchanged so the caller may retry or reject explicitly.
func (s *BookingService) SetStatus(ctx context.Context, bookingID string, newStatus models.BookingStatus) (*models.Booking, error) {
	if !newStatus.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown booking status %q", newStatus))
	}

	booking, err := s.bookings.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}

	if !models.CanTransition(booking.Status, newStatus) {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
			fmt.Sprintf("cannot move booking from %s to %s", booking.Status, newStatus))
	}

	if newStatus == models.BookingApproved {
		release, err := s.locks.Acquire(ctx, booking.RoomID)
		if err != nil {
			return nil, err
		}
		defer release()

		if err := s.availability.CheckAvailable(ctx, booking.RoomID, booking.Interval(), booking.ID); err != nil {
			return nil, err
		}
	}

	// The repository only updates a row still in the observed status, so two
	// racing transitions cannot both commit.
	if err := s.bookings.UpdateStatus(ctx, bookingID, booking.Status, newStatus); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidTransition,
				fmt.Sprintf("booking is no longer %s", booking.Status))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking status")
	}

	s.invalidateRoomCache(ctx, booking.RoomID)
	booking.Status = newStatus
	s.logger.Info("booking status changed",
		zap.String("booking_id", booking.ID),
		zap.String("status", string(newStatus)),
	)
	return booking, nil
}

// Get returns a single booking.
func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.bookings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

// GetRoomSchedule returns active bookings for the room intersecting
// [from, to), ordered by start ascending.
func (s *BookingService) GetRoomSchedule(ctx context.Context, roomID string, from, to time.Time) ([]models.Booking, error) {
	if !from.Before(to) {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "schedule range end must be after start")
	}
	if _, err := s.rooms.FindByID(ctx, roomID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrRoomNotFound, fmt.Sprintf("room %s not found", roomID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}

	cacheKey := fmt.Sprintf("schedule:%s:%d:%d", roomID, from.Unix(), to.Unix())
	var cached []models.Booking
	if s.cache.Enabled() {
		if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
			return cached, nil
		}
	}

	bookings, err := s.bookings.ListActiveIntersecting(ctx, roomID, from, to)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room schedule")
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, cacheKey, bookings)
	}
	return bookings, nil
}

// List returns bookings with pagination metadata.
func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, *models.Pagination, error) {
	bookings, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return bookings, pagination, nil
}

// checkBookingWindow enforces the configured operating hours. The interval
// may end exactly at the closing hour.
func (s *BookingService) checkBookingWindow(interval models.Interval) error {
	open := s.window.OpenHour
	close := s.window.CloseHour
	if close <= open {
		return nil // window disabled
	}

	start := interval.Start
	startMinutes := start.Hour()*60 + start.Minute()
	endMinutes := startMinutes + interval.DurationHours*60

	if startMinutes < open*60 || endMinutes > close*60 {
		return appErrors.Clone(appErrors.ErrOutsideBookingWindow,
			fmt.Sprintf("bookings must fall between %02d:00 and %02d:00", open, close))
	}
	if slot := s.window.SlotDurationMinutes; slot > 0 && (startMinutes-open*60)%slot != 0 {
		return appErrors.Clone(appErrors.ErrOutsideBookingWindow,
			fmt.Sprintf("booking start must align to %d minute slots", slot))
	}
	return nil
}

func (s *BookingService) invalidateRoomCache(ctx context.Context, roomID string) {
	if s.cache.Enabled() {
		if err := s.cache.InvalidateRoom(ctx, roomID); err != nil {
			s.logger.Warn("failed to invalidate schedule cache", zap.String("room_id", roomID), zap.Error(err))
		}
	}
}
