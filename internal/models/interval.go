package models

import (
	"fmt"
	"time"

	appErrors "github.com/noah-isme/campus-booking-api/pkg/errors"
)

// Interval is a half-open time span [Start, End) measured in whole hours.
type Interval struct {
	Start         time.Time `db:"start_at" json:"start_at"`
	DurationHours int       `db:"duration_hours" json:"duration_hours"`
}

// End returns the exclusive end of the interval.
func (i Interval) End() time.Time {
	return i.Start.Add(time.Duration(i.DurationHours) * time.Hour)
}

// Overlaps reports whether two half-open intervals intersect. Back-to-back
// intervals do not overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start.Before(other.End()) && other.Start.Before(i.End())
}

// String renders the interval for conflict messages.
func (i Interval) String() string {
	return fmt.Sprintf("%s - %s", i.Start.Format("2006-01-02 15:04"), i.End().Format("2006-01-02 15:04"))
}

// ExpandWeekly generates one interval per date between startDate and endDate
// (inclusive) falling on the given weekday. startOfDay and endOfDay are
// offsets from midnight; the span between them must be a positive whole
// number of hours. An empty slice is returned when no date in the range
// matches the weekday.
func ExpandWeekly(startDate, endDate time.Time, day time.Weekday, startOfDay, endOfDay time.Duration) ([]Interval, error) {
	start := truncateToDay(startDate)
	end := truncateToDay(endDate)

	if end.Before(start) {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange,
			fmt.Sprintf("end date %s precedes start date %s", end.Format("2006-01-02"), start.Format("2006-01-02")))
	}
	span := endOfDay - startOfDay
	if span <= 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "end time must be after start time")
	}
	if span%time.Hour != 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidRange, "session length must be a whole number of hours")
	}
	hours := int(span / time.Hour)

	var intervals []Interval
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != day {
			continue
		}
		intervals = append(intervals, Interval{Start: d.Add(startOfDay), DurationHours: hours})
	}
	return intervals, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
