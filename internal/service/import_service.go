package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/campus-booking-api/internal/models"
	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
	"github.com/noah-isme/campus-booking-api/pkg/export"
)

type occurrenceWriter interface {
	BulkCreate(ctx context.Context, occurrences []models.ScheduleOccurrence) error
}

type roomCatalogue interface {
	ListActive(ctx context.Context) ([]models.Room, error)
	FindByCode(ctx context.Context, code string) (*models.Room, error)
}

// templateColumns is the column contract for schedule spreadsheets.
var templateColumns = []string{"subject_code", "class_code", "start_date", "end_date", "day_of_week", "start_time", "end_time", "room_name"}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ImportService expands recurring teaching-schedule rows into concrete
// occurrences and persists them per row, all-or-nothing. Failure of one row
// never aborts the others.
type ImportService struct {
	occurrences  occurrenceWriter
	rooms        roomCatalogue
	availability availabilityChecker
	locks        roomLocker
	metrics      *MetricsService
	csv          *export.CSVExporter
	maxRows      int
	logger       *zap.Logger
}

// NewImportService instantiates ImportService.
func NewImportService(
	occurrences occurrenceWriter,
	rooms roomCatalogue,
	availability availabilityChecker,
	locks roomLocker,
	metrics *MetricsService,
	maxRows int,
	logger *zap.Logger,
) *ImportService {
	if maxRows <= 0 {
		maxRows = 500
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		occurrences:  occurrences,
		rooms:        rooms,
		availability: availability,
		locks:        locks,
		metrics:      metrics,
		csv:          export.NewCSVExporter(),
		maxRows:      maxRows,
		logger:       logger,
	}
}

// parsedRow is one import row after validation and expansion.
type parsedRow struct {
	classRef    string
	lecturerRef string
	roomHint    string
	intervals   []models.Interval
}

// ImportSchedule processes every row independently and reports per-row
// outcomes. Row errors are collected into the result, never raised.
func (s *ImportService) ImportSchedule(ctx context.Context, rows []models.ScheduleImportRow) (*models.ImportResult, error) {
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "import requires at least one row")
	}
	if len(rows) > s.maxRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("import exceeds the %d row limit", s.maxRows))
	}

	result := &models.ImportResult{}
	for i, row := range rows {
		rowNum := i + 1
		if err := s.importRow(ctx, row); err != nil {
			result.FailureCount++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", rowNum, err))
			continue
		}
		result.SuccessCount++
	}

	if s.metrics != nil {
		s.metrics.RecordImport(result.SuccessCount, result.FailureCount)
	}
	s.logger.Info("schedule import finished",
		zap.Int("succeeded", result.SuccessCount),
		zap.Int("failed", result.FailureCount),
	)
	return result, nil
}

func (s *ImportService) importRow(ctx context.Context, row models.ScheduleImportRow) error {
	parsed, err := s.parseRow(row)
	if err != nil {
		return err
	}

	if parsed.roomHint != "" {
		room, err := s.rooms.FindByCode(ctx, parsed.roomHint)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("room %q not found", parsed.roomHint)
			}
			return fmt.Errorf("failed to look up room %q: %w", parsed.roomHint, err)
		}
		return s.placeInRoom(ctx, room.ID, parsed)
	}

	// No hint: pick the first room, in room-code order, that is free for
	// every expanded occurrence. A room free in week one may clash in week
	// three, so all occurrences are checked before it is chosen.
	candidates, err := s.rooms.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list rooms: %w", err)
	}
	for _, room := range candidates {
		if err := s.placeInRoom(ctx, room.ID, parsed); err != nil {
			var conflict *models.ConflictError
			if asConflict(err, &conflict) {
				continue
			}
			return err
		}
		return nil
	}
	return fmt.Errorf("no room is available for every session of class %s", parsed.classRef)
}

// placeInRoom checks every occurrence against the room under its lock and,
// when all are free, persists them as one unit.
func (s *ImportService) placeInRoom(ctx context.Context, roomID string, parsed parsedRow) error {
	release, err := s.locks.Acquire(ctx, roomID)
	if err != nil {
		return err
	}
	defer release()

	for _, interval := range parsed.intervals {
		if err := s.availability.CheckAvailable(ctx, roomID, interval, ""); err != nil {
			var conflict *models.ConflictError
			if asConflict(err, &conflict) {
				return fmt.Errorf("session on %s: %w", interval.Start.Format("2006-01-02"), conflict)
			}
			return err
		}
	}

	occurrences := make([]models.ScheduleOccurrence, 0, len(parsed.intervals))
	for _, interval := range parsed.intervals {
		occurrences = append(occurrences, models.ScheduleOccurrence{
			ClassRef:      parsed.classRef,
			LecturerRef:   parsed.lecturerRef,
			RoomID:        roomID,
			StartAt:       interval.Start,
			DurationHours: interval.DurationHours,
		})
	}
	if err := s.occurrences.BulkCreate(ctx, occurrences); err != nil {
		return fmt.Errorf("failed to persist sessions: %w", err)
	}
	return nil
}

func (s *ImportService) parseRow(row models.ScheduleImportRow) (parsedRow, error) {
	var missing []string
	if strings.TrimSpace(row.SubjectCode) == "" {
		missing = append(missing, "subject_code")
	}
	if strings.TrimSpace(row.ClassCode) == "" {
		missing = append(missing, "class_code")
	}
	if strings.TrimSpace(row.StartDate) == "" {
		missing = append(missing, "start_date")
	}
	if strings.TrimSpace(row.EndDate) == "" {
		missing = append(missing, "end_date")
	}
	if strings.TrimSpace(row.DayOfWeek) == "" {
		missing = append(missing, "day_of_week")
	}
	if strings.TrimSpace(row.StartTime) == "" {
		missing = append(missing, "start_time")
	}
	if strings.TrimSpace(row.EndTime) == "" {
		missing = append(missing, "end_time")
	}
	if len(missing) > 0 {
		return parsedRow{}, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	startDate, err := time.Parse("2006-01-02", row.StartDate)
	if err != nil {
		return parsedRow{}, fmt.Errorf("invalid start_date %q", row.StartDate)
	}
	endDate, err := time.Parse("2006-01-02", row.EndDate)
	if err != nil {
		return parsedRow{}, fmt.Errorf("invalid end_date %q", row.EndDate)
	}
	day, ok := weekdays[strings.ToLower(strings.TrimSpace(row.DayOfWeek))]
	if !ok {
		return parsedRow{}, fmt.Errorf("unknown day_of_week %q", row.DayOfWeek)
	}
	startOfDay, err := parseTimeOfDay(row.StartTime)
	if err != nil {
		return parsedRow{}, fmt.Errorf("invalid start_time %q", row.StartTime)
	}
	endOfDay, err := parseTimeOfDay(row.EndTime)
	if err != nil {
		return parsedRow{}, fmt.Errorf("invalid end_time %q", row.EndTime)
	}

	intervals, err := models.ExpandWeekly(startDate, endDate, day, startOfDay, endOfDay)
	if err != nil {
		return parsedRow{}, err
	}
	if len(intervals) == 0 {
		return parsedRow{}, fmt.Errorf("no %s falls between %s and %s", row.DayOfWeek, row.StartDate, row.EndDate)
	}

	return parsedRow{
		classRef:    fmt.Sprintf("%s-%s", strings.TrimSpace(row.SubjectCode), strings.TrimSpace(row.ClassCode)),
		lecturerRef: strings.TrimSpace(row.LecturerRef),
		roomHint:    strings.TrimSpace(row.RoomName),
		intervals:   intervals,
	}, nil
}

func parseTimeOfDay(value string) (time.Duration, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	return time.Duration(parsed.Hour())*time.Hour + time.Duration(parsed.Minute())*time.Minute, nil
}

// ImportTemplate renders the expected spreadsheet columns as CSV bytes with
// one example row.
func (s *ImportService) ImportTemplate() ([]byte, error) {
	return s.csv.Render(export.Dataset{
		Headers: templateColumns,
		Rows: []map[string]string{{
			"subject_code": "MATH101",
			"class_code":   "A",
			"start_date":   "2024-01-01",
			"end_date":     "2024-03-31",
			"day_of_week":  "Monday",
			"start_time":   "07:00",
			"end_time":     "09:00",
			"room_name":    "R-201",
		}},
	})
}
