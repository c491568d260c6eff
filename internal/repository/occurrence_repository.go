package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-booking-api/internal/models"
)

// OccurrenceRepository provides persistence for teaching-schedule occurrences.
type OccurrenceRepository struct {
	db *sqlx.DB
}

// NewOccurrenceRepository creates a new occurrence repository.
func NewOccurrenceRepository(db *sqlx.DB) *OccurrenceRepository {
	return &OccurrenceRepository{db: db}
}

// BulkCreate inserts all occurrences of one import row within a transaction.
// Either every occurrence lands or none do.
func (r *OccurrenceRepository) BulkCreate(ctx context.Context, occurrences []models.ScheduleOccurrence) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin bulk create occurrences: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	for i := range occurrences {
		payload := occurrences[i]
		if payload.ID == "" {
			payload.ID = uuid.NewString()
		}
		if payload.CreatedAt.IsZero() {
			payload.CreatedAt = now
		}
		payload.UpdatedAt = now

		if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO schedule_occurrences (id, class_ref, lecturer_ref, room_id, start_at, duration_hours, created_at, updated_at) VALUES (:id, :class_ref, :lecturer_ref, :room_id, :start_at, :duration_hours, :created_at, :updated_at)`, &payload); err != nil {
			return fmt.Errorf("bulk insert occurrence: %w", err)
		}
		occurrences[i] = payload
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk create occurrences: %w", err)
	}
	return nil
}
