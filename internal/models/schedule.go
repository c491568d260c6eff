package models

import "time"

// ScheduleOccurrence is one concrete dated teaching session generated from a
// recurring schedule template. Occurrences are immutable once created except
// for room reassignment through the room-change flow.
type ScheduleOccurrence struct {
	ID            string    `db:"id" json:"id"`
	ClassRef      string    `db:"class_ref" json:"class_ref"`
	LecturerRef   string    `db:"lecturer_ref" json:"lecturer_ref,omitempty"`
	RoomID        string    `db:"room_id" json:"room_id"`
	StartAt       time.Time `db:"start_at" json:"start_at"`
	DurationHours int       `db:"duration_hours" json:"duration_hours"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// Interval returns the session's occupied time span.
func (o ScheduleOccurrence) Interval() Interval {
	return Interval{Start: o.StartAt, DurationHours: o.DurationHours}
}

// ScheduleImportRow is one already-parsed row of a teaching-schedule
// spreadsheet. Dates use 2006-01-02, times use 15:04, day_of_week is the
// English weekday name. room_name is optional; when empty a room is
// auto-assigned.
type ScheduleImportRow struct {
	SubjectCode string `json:"subject_code"`
	ClassCode   string `json:"class_code"`
	LecturerRef string `json:"lecturer_ref,omitempty"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	DayOfWeek   string `json:"day_of_week"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	RoomName    string `json:"room_name,omitempty"`
}

// ImportResult summarises a schedule import batch. Row failures never abort
// the batch; they are collected here instead.
type ImportResult struct {
	SuccessCount int      `json:"success_count"`
	FailureCount int      `json:"failure_count"`
	Errors       []string `json:"errors,omitempty"`
}
