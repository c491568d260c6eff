package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-booking-api/internal/models"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
)

type occupationLister interface {
	ListActive(ctx context.Context, roomID string) ([]models.Occupation, error)
}

// AvailabilityService answers whether a room is free for a candidate
// interval. It performs no writes; every mutation path consults it before
// committing.
type AvailabilityService struct {
	occupations occupationLister
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewAvailabilityService instantiates AvailabilityService.
func NewAvailabilityService(occupations occupationLister, metrics *MetricsService, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{occupations: occupations, metrics: metrics, logger: logger}
}

// CheckAvailable returns nil when the room is free for the interval. On a
// clash it returns the first conflicting occupation as a ConflictError
// wrapped in ErrConflict. excludeID skips the occupation being re-checked
// against itself; pass "" when not applicable.
func (s *AvailabilityService) CheckAvailable(ctx context.Context, roomID string, interval models.Interval, excludeID string) error {
	existing, err := s.occupations.ListActive(ctx, roomID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room occupations")
	}

	for _, occupation := range existing {
		if excludeID != "" && occupation.ID == excludeID {
			continue
		}
		if interval.Overlaps(occupation.Interval()) {
			if s.metrics != nil {
				s.metrics.RecordConflict(string(occupation.Kind))
			}
			s.logger.Debug("conflict detected",
				zap.String("room_id", roomID),
				zap.String("occupation_id", occupation.ID),
				zap.String("requested", interval.String()),
			)
			conflict := &models.ConflictError{RoomID: roomID, Requested: interval, Occupation: occupation}
			return appErrors.Wrap(conflict, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, conflict.Error())
		}
	}
	return nil
}

// FindConflict reports the first conflicting occupation, or nil when the
// room is free. Used by read-only availability queries.
func (s *AvailabilityService) FindConflict(ctx context.Context, roomID string, interval models.Interval) (*models.Occupation, error) {
	err := s.CheckAvailable(ctx, roomID, interval, "")
	if err == nil {
		return nil, nil
	}
	var conflict *models.ConflictError
	if asConflict(err, &conflict) {
		occupation := conflict.Occupation
		return &occupation, nil
	}
	return nil, err
}

func asConflict(err error, target **models.ConflictError) bool {
	return errors.As(err, target)
}
