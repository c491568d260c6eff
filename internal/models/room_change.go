package models

import "time"

// RoomChange is the audit record written when an occupation moves to a
// different room. The original record keeps its identity; history is never
// overwritten.
type RoomChange struct {
	ID             string    `db:"id" json:"id"`
	OccupationID   string    `db:"occupation_id" json:"occupation_id"`
	OccupationKind string    `db:"occupation_kind" json:"occupation_kind"`
	OriginalRoomID string    `db:"original_room_id" json:"original_room_id"`
	NewRoomID      string    `db:"new_room_id" json:"new_room_id"`
	StartAt        time.Time `db:"start_at" json:"start_at"`
	DurationHours  int       `db:"duration_hours" json:"duration_hours"`
	Reason         string    `db:"reason" json:"reason,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Interval returns the moved time span.
func (c RoomChange) Interval() Interval {
	return Interval{Start: c.StartAt, DurationHours: c.DurationHours}
}
