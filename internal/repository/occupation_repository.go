package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-booking-api/internal/models"
)

// OccupationRepository exposes the union of everything that actively claims
// a room: bookings in PENDING/APPROVED plus all schedule occurrences. This is
// the only view the availability checker reasons about; soft-deleted or
// terminal rows never appear here.
type OccupationRepository struct {
	db *sqlx.DB
}

// NewOccupationRepository creates a new occupation repository.
func NewOccupationRepository(db *sqlx.DB) *OccupationRepository {
	return &OccupationRepository{db: db}
}

// ListActive returns all active occupations for a room ordered by start time,
// then id, so conflict detection is deterministic.
func (r *OccupationRepository) ListActive(ctx context.Context, roomID string) ([]models.Occupation, error) {
	const query = `
		SELECT id, room_id, 'BOOKING' AS kind, reason AS label, start_at, duration_hours
		  FROM bookings
		 WHERE room_id = $1 AND status IN ('PENDING', 'APPROVED')
		UNION ALL
		SELECT id, room_id, 'OCCURRENCE' AS kind, class_ref AS label, start_at, duration_hours
		  FROM schedule_occurrences
		 WHERE room_id = $1
		ORDER BY start_at ASC, id ASC`

	var occupations []models.Occupation
	if err := r.db.SelectContext(ctx, &occupations, query, roomID); err != nil {
		return nil, fmt.Errorf("list active occupations: %w", err)
	}
	return occupations, nil
}
