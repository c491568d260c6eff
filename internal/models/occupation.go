package models

import (
	"fmt"
	"time"
)

// OccupationKind distinguishes the two sources of room occupation.
type OccupationKind string

const (
	OccupationBooking    OccupationKind = "BOOKING"
	OccupationOccurrence OccupationKind = "OCCURRENCE"
)

// Occupation is any active claim on a room for a specific time interval:
// a booking in PENDING or APPROVED, or a teaching-schedule occurrence.
type Occupation struct {
	ID            string         `db:"id" json:"id"`
	RoomID        string         `db:"room_id" json:"room_id"`
	Kind          OccupationKind `db:"kind" json:"kind"`
	Label         string         `db:"label" json:"label"`
	StartAt       time.Time      `db:"start_at" json:"start_at"`
	DurationHours int            `db:"duration_hours" json:"duration_hours"`
}

// Interval returns the occupied time span.
func (o Occupation) Interval() Interval {
	return Interval{Start: o.StartAt, DurationHours: o.DurationHours}
}

// ConflictError is returned when a candidate interval collides with an
// existing occupation on the same room.
type ConflictError struct {
	RoomID     string     `json:"room_id"`
	Requested  Interval   `json:"requested"`
	Occupation Occupation `json:"occupation"`
}

// Error implements the error interface. The conflicting interval is part of
// the message so a human can resolve the clash manually.
func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	label := e.Occupation.Label
	if label == "" {
		label = string(e.Occupation.Kind)
	}
	return fmt.Sprintf("room %s is occupied %s by %s", e.RoomID, e.Occupation.Interval(), label)
}
