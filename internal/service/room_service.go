package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-booking-api/internal/models"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
	"github.com/noah-isme/campus-booking-api/pkg/export"
)

type roomLister interface {
	List(ctx context.Context, filter models.RoomFilter) ([]models.Room, int, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
}

type conflictFinder interface {
	FindConflict(ctx context.Context, roomID string, interval models.Interval) (*models.Occupation, error)
}

// AvailabilityResult answers a point-in-time availability query.
type AvailabilityResult struct {
	Available bool               `json:"available"`
	Conflict  *models.Occupation `json:"conflict,omitempty"`
}

// RoomService serves the room catalogue, availability queries and schedule
// exports.
type RoomService struct {
	rooms        roomLister
	occupations  occupationLister
	availability conflictFinder
	pdf          *export.PDFExporter
	logger       *zap.Logger
}

// NewRoomService instantiates RoomService.
func NewRoomService(rooms roomLister, occupations occupationLister, availability conflictFinder, logger *zap.Logger) *RoomService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoomService{
		rooms:        rooms,
		occupations:  occupations,
		availability: availability,
		pdf:          export.NewPDFExporter(),
		logger:       logger,
	}
}

// List returns rooms with pagination metadata.
func (s *RoomService) List(ctx context.Context, filter models.RoomFilter) ([]models.Room, *models.Pagination, error) {
	rooms, total, err := s.rooms.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list rooms")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return rooms, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single room.
func (s *RoomService) Get(ctx context.Context, id string) (*models.Room, error) {
	room, err := s.rooms.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrRoomNotFound, fmt.Sprintf("room %s not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room")
	}
	return room, nil
}

// CheckAvailability answers whether the room is free for the interval,
// returning the blocking occupation when it is not.
func (s *RoomService) CheckAvailability(ctx context.Context, roomID string, startAt time.Time, durationHours int) (*AvailabilityResult, error) {
	if _, err := s.Get(ctx, roomID); err != nil {
		return nil, err
	}
	if durationHours < 1 {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "duration must be at least one hour")
	}

	conflict, err := s.availability.FindConflict(ctx, roomID, models.Interval{Start: startAt, DurationHours: durationHours})
	if err != nil {
		return nil, err
	}
	return &AvailabilityResult{Available: conflict == nil, Conflict: conflict}, nil
}

// GetOccupations returns every active claim on the room intersecting
// [from, to), bookings and schedule occurrences alike, ordered by start.
func (s *RoomService) GetOccupations(ctx context.Context, roomID string, from, to time.Time) ([]models.Occupation, error) {
	if !from.Before(to) {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "schedule range end must be after start")
	}
	if _, err := s.Get(ctx, roomID); err != nil {
		return nil, err
	}

	all, err := s.occupations.ListActive(ctx, roomID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load room occupations")
	}

	occupations := make([]models.Occupation, 0, len(all))
	for _, occ := range all {
		if occ.StartAt.Before(to) && occ.Interval().End().After(from) {
			occupations = append(occupations, occ)
		}
	}
	return occupations, nil
}

// ExportSchedulePDF renders the room's schedule for the range as a PDF
// document. It returns the document bytes and a suggested filename.
func (s *RoomService) ExportSchedulePDF(ctx context.Context, roomID string, from, to time.Time) ([]byte, string, error) {
	room, err := s.Get(ctx, roomID)
	if err != nil {
		return nil, "", err
	}
	occupations, err := s.GetOccupations(ctx, roomID, from, to)
	if err != nil {
		return nil, "", err
	}

	headers := []string{"Date", "Start", "End", "Type", "Description"}
	rows := make([]map[string]string, 0, len(occupations))
	for _, occ := range occupations {
		interval := occ.Interval()
		rows = append(rows, map[string]string{
			"Date":        occ.StartAt.Format("2006-01-02"),
			"Start":       occ.StartAt.Format("15:04"),
			"End":         interval.End().Format("15:04"),
			"Type":        string(occ.Kind),
			"Description": occ.Label,
		})
	}

	title := fmt.Sprintf("Room %s Schedule", room.Code)
	subtitle := fmt.Sprintf("%s to %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	data, err := s.pdf.Render(export.Dataset{Headers: headers, Rows: rows}, title, subtitle)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule pdf")
	}

	filename := fmt.Sprintf("schedule-%s-%s.pdf", room.Code, from.Format("20060102"))
	return data, filename, nil
}
