package models

import "time"

// BookingStatus enumerates the booking lifecycle states.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingApproved  BookingStatus = "APPROVED"
	BookingRejected  BookingStatus = "REJECTED"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// allowedTransitions is the full transition table. Anything absent here,
// including same-state no-ops, is rejected.
var allowedTransitions = map[BookingStatus]map[BookingStatus]bool{
	BookingPending: {
		BookingApproved:  true,
		BookingRejected:  true,
		BookingCancelled: true,
	},
	BookingApproved: {
		BookingCompleted: true,
		BookingCancelled: true,
	},
}

// CanTransition reports whether from -> to is a legal lifecycle move.
func CanTransition(from, to BookingStatus) bool {
	return allowedTransitions[from][to]
}

// Valid reports whether the status is a known lifecycle state.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingApproved, BookingRejected, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// Active reports whether the status reserves the room for conflict purposes.
func (s BookingStatus) Active() bool {
	return s == BookingPending || s == BookingApproved
}

// Terminal reports whether no further transition may leave this state.
func (s BookingStatus) Terminal() bool {
	return s == BookingRejected || s == BookingCompleted || s == BookingCancelled
}

// Booking represents a point-in-time room reservation. Bookings are never
// physically deleted; cancellation is a status.
type Booking struct {
	ID            string        `db:"id" json:"id"`
	RoomID        string        `db:"room_id" json:"room_id"`
	RequestedBy   string        `db:"requested_by" json:"requested_by"`
	StartAt       time.Time     `db:"start_at" json:"start_at"`
	DurationHours int           `db:"duration_hours" json:"duration_hours"`
	Reason        string        `db:"reason" json:"reason,omitempty"`
	Status        BookingStatus `db:"status" json:"status"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// Interval returns the booking's occupied time span.
func (b Booking) Interval() Interval {
	return Interval{Start: b.StartAt, DurationHours: b.DurationHours}
}

// BookingFilter describes query params for listing bookings.
type BookingFilter struct {
	RoomID      string
	RequestedBy string
	Status      BookingStatus
	From        *time.Time
	To          *time.Time
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
