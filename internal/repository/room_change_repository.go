package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-booking-api/internal/models"
)

// RoomChangeRepository persists room substitutions and their audit trail.
// Both move variants run the occupation update and the audit insert in a
// single transaction so no half-migrated state can be observed.
type RoomChangeRepository struct {
	db *sqlx.DB
}

// NewRoomChangeRepository creates a new room change repository.
func NewRoomChangeRepository(db *sqlx.DB) *RoomChangeRepository {
	return &RoomChangeRepository{db: db}
}

// MoveOccurrence points a schedule occurrence at the new room and records the
// audit entry atomically.
func (r *RoomChangeRepository) MoveOccurrence(ctx context.Context, change *models.RoomChange) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin occurrence move: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE schedule_occurrences SET room_id = $1, updated_at = $2 WHERE id = $3`, change.NewRoomID, now, change.OccupationID); err != nil {
		return fmt.Errorf("reassign occurrence room: %w", err)
	}

	if err = r.insertAudit(ctx, tx, change, now); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit occurrence move: %w", err)
	}
	return nil
}

// MoveBooking cancels the original booking, creates its replacement on the
// new room and records the audit entry atomically.
func (r *RoomChangeRepository) MoveBooking(ctx context.Context, change *models.RoomChange, replacement *models.Booking) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin booking move: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE bookings SET status = $1, updated_at = $2 WHERE id = $3`, models.BookingCancelled, now, change.OccupationID); err != nil {
		return fmt.Errorf("cancel original booking: %w", err)
	}

	if replacement.ID == "" {
		replacement.ID = uuid.NewString()
	}
	replacement.CreatedAt = now
	replacement.UpdatedAt = now
	if _, err = sqlx.NamedExecContext(ctx, tx, `INSERT INTO bookings (id, room_id, requested_by, start_at, duration_hours, reason, status, created_at, updated_at) VALUES (:id, :room_id, :requested_by, :start_at, :duration_hours, :reason, :status, :created_at, :updated_at)`, replacement); err != nil {
		return fmt.Errorf("create replacement booking: %w", err)
	}

	if err = r.insertAudit(ctx, tx, change, now); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit booking move: %w", err)
	}
	return nil
}

func (r *RoomChangeRepository) insertAudit(ctx context.Context, tx *sqlx.Tx, change *models.RoomChange, now time.Time) error {
	if change.ID == "" {
		change.ID = uuid.NewString()
	}
	change.CreatedAt = now
	if _, err := sqlx.NamedExecContext(ctx, tx, `INSERT INTO room_changes (id, occupation_id, occupation_kind, original_room_id, new_room_id, start_at, duration_hours, reason, created_at) VALUES (:id, :occupation_id, :occupation_kind, :original_room_id, :new_room_id, :start_at, :duration_hours, :reason, :created_at)`, change); err != nil {
		return fmt.Errorf("insert room change audit: %w", err)
	}
	return nil
}

// List returns the audit trail, most recent first.
func (r *RoomChangeRepository) List(ctx context.Context, page, pageSize int) ([]models.RoomChange, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf(`SELECT id, occupation_id, occupation_kind, original_room_id, new_room_id, start_at, duration_hours, reason, created_at FROM room_changes ORDER BY created_at DESC LIMIT %d OFFSET %d`, pageSize, offset)
	var changes []models.RoomChange
	if err := r.db.SelectContext(ctx, &changes, query); err != nil {
		return nil, 0, fmt.Errorf("list room changes: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM room_changes`); err != nil {
		return nil, 0, fmt.Errorf("count room changes: %w", err)
	}
	return changes, total, nil
}
