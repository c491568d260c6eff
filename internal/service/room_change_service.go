package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-booking-api/internal/models"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
)

type occupationMover interface {
	MoveOccurrence(ctx context.Context, change *models.RoomChange) error
	MoveBooking(ctx context.Context, change *models.RoomChange, replacement *models.Booking) error
	List(ctx context.Context, page, pageSize int) ([]models.RoomChange, int, error)
}

type bookingLoader interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
}

// RoomChangeRequest describes payload for moving an occupation to a new room.
// The occupation is identified by its original room and exact time interval.
type RoomChangeRequest struct {
	OriginalRoomID string    `json:"original_room_id" validate:"required"`
	NewRoomID      string    `json:"new_room_id" validate:"required"`
	StartAt        time.Time `json:"start_at" validate:"required"`
	DurationHours  int       `json:"duration_hours" validate:"required,min=1"`
	Reason         string    `json:"reason" validate:"omitempty,max=500"`
}

// RoomChangeService moves a booking or schedule occurrence to a different
// room, checking the destination for the same interval first. The original
// record keeps its identity in the audit trail.
type RoomChangeService struct {
	changes      occupationMover
	bookings     bookingLoader
	rooms        roomReader
	occupations  occupationLister
	availability availabilityChecker
	locks        roomLocker
	cache        *CacheService
	metrics      *MetricsService
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewRoomChangeService instantiates RoomChangeService.
func NewRoomChangeService(
	changes occupationMover,
	bookings bookingLoader,
	rooms roomReader,
	occupations occupationLister,
	availability availabilityChecker,
	locks roomLocker,
	cache *CacheService,
	metrics *MetricsService,
	logger *zap.Logger,
) *RoomChangeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomChangeService{
		changes:      changes,
		bookings:     bookings,
		rooms:        rooms,
		occupations:  occupations,
		availability: availability,
		locks:        locks,
		cache:        cache,
		metrics:      metrics,
		validator:    validator.New(),
		logger:       logger,
	}
}

// RequestRoomChange moves the occupation occupying the given interval on the
// original room to the new room. Bookings move by cancellation plus an
// equivalent replacement; occurrences are repointed in place.
func (s *RoomChangeService) RequestRoomChange(ctx context.Context, req *RoomChangeRequest) (*models.RoomChange, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid room change request")
	}
	if req.OriginalRoomID == req.NewRoomID {
		return nil, appErrors.ErrSameRoom
	}

	if _, err := s.rooms.FindByID(ctx, req.OriginalRoomID); err != nil {
		return nil, s.roomLookupError(err, req.OriginalRoomID)
	}
	if _, err := s.rooms.FindByID(ctx, req.NewRoomID); err != nil {
		return nil, s.roomLookupError(err, req.NewRoomID)
	}

	// Both rooms are locked in deterministic order so two opposing moves
	// cannot deadlock against each other.
	first, second := req.OriginalRoomID, req.NewRoomID
	if second < first {
		first, second = second, first
	}
	releaseFirst, err := s.locks.Acquire(ctx, first)
	if err != nil {
		return nil, err
	}
	defer releaseFirst()
	releaseSecond, err := s.locks.Acquire(ctx, second)
	if err != nil {
		return nil, err
	}
	defer releaseSecond()

	interval := models.Interval{Start: req.StartAt, DurationHours: req.DurationHours}
	occupation, err := s.locateOccupation(ctx, req.OriginalRoomID, interval)
	if err != nil {
		return nil, err
	}

	if err := s.availability.CheckAvailable(ctx, req.NewRoomID, interval, ""); err != nil {
		return nil, err
	}

	change := &models.RoomChange{
		OccupationID:   occupation.ID,
		OccupationKind: string(occupation.Kind),
		OriginalRoomID: req.OriginalRoomID,
		NewRoomID:      req.NewRoomID,
		StartAt:        occupation.StartAt,
		DurationHours:  occupation.DurationHours,
		Reason:         req.Reason,
	}

	switch occupation.Kind {
	case models.OccupationOccurrence:
		if err := s.changes.MoveOccurrence(ctx, change); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move schedule occurrence")
		}
	case models.OccupationBooking:
		original, err := s.bookings.FindByID(ctx, occupation.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
		}
		// The replacement keeps the original's status so an already
		// approved booking does not fall back to pending review.
		replacement := &models.Booking{
			RoomID:        req.NewRoomID,
			RequestedBy:   original.RequestedBy,
			StartAt:       original.StartAt,
			DurationHours: original.DurationHours,
			Reason:        original.Reason,
			Status:        original.Status,
		}
		if err := s.changes.MoveBooking(ctx, change, replacement); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to move booking")
		}
	default:
		return nil, appErrors.Clone(appErrors.ErrInternal, "unknown occupation kind "+string(occupation.Kind))
	}

	if s.metrics != nil {
		s.metrics.RecordRoomChange()
	}
	s.invalidateRooms(ctx, req.OriginalRoomID, req.NewRoomID)
	s.logger.Info("room change applied",
		zap.String("occupation_id", occupation.ID),
		zap.String("kind", string(occupation.Kind)),
		zap.String("from", req.OriginalRoomID),
		zap.String("to", req.NewRoomID),
	)
	return change, nil
}

// ListChanges returns the audit trail, most recent first.
func (s *RoomChangeService) ListChanges(ctx context.Context, page, pageSize int) ([]models.RoomChange, *models.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	changes, total, err := s.changes.List(ctx, page, pageSize)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list room changes")
	}
	return changes, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// locateOccupation finds the occupation claiming exactly the given interval
// on the room. An overlapping but differently timed occupation is not a
// match; moves target one specific session.
func (s *RoomChangeService) locateOccupation(ctx context.Context, roomID string, interval models.Interval) (*models.Occupation, error) {
	occupations, err := s.occupations.ListActive(ctx, roomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room occupations")
	}
	for i := range occupations {
		if occupations[i].StartAt.Equal(interval.Start) && occupations[i].DurationHours == interval.DurationHours {
			return &occupations[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "no booking or session occupies "+interval.String()+" in that room")
}

func (s *RoomChangeService) roomLookupError(err error, roomID string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrRoomNotFound, "room "+roomID+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
}

func (s *RoomChangeService) invalidateRooms(ctx context.Context, roomIDs ...string) {
	if s.cache == nil || !s.cache.Enabled() {
		return
	}
	for _, roomID := range roomIDs {
		if err := s.cache.InvalidateRoom(ctx, roomID); err != nil {
			s.logger.Warn("failed to invalidate schedule cache", zap.String("room_id", roomID), zap.Error(err))
		}
	}
}
