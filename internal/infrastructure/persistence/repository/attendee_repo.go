package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/acampov/mealpass/internal/application/port"
	"github.com/acampov/mealpass/internal/domain/entity"
	sqlitedb "github.com/acampov/mealpass/internal/infrastructure/persistence/sqlite"
)

// AttendeeRepository implements port.AttendeeRepository on SQLite.
type AttendeeRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAttendeeRepository creates a new attendee repository
func NewAttendeeRepository(db *sql.DB, logger *zap.Logger) port.AttendeeRepository {
	return &AttendeeRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new attendee record
func (r *AttendeeRepository) Create(ctx context.Context, attendee *entity.Attendee) error {
	query := `
		INSERT INTO attendees (name, external_id, email, active, registered_at)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := sqlitedb.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		attendee.Name,
		attendee.ExternalID,
		attendee.Email,
		attendee.Active,
		attendee.RegisteredAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrDuplicateAttendee
		}
		r.logger.Error("Failed to create attendee",
			zap.String("external_id", attendee.ExternalID),
			zap.Error(err))
		return fmt.Errorf("failed to create attendee: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	attendee.ID = id
	return nil
}

// GetByExternalID retrieves an attendee by external id
func (r *AttendeeRepository) GetByExternalID(ctx context.Context, externalID string) (*entity.Attendee, error) {
	query := `
		SELECT id, name, external_id, email, active, registered_at
		FROM attendees
		WHERE external_id = ?
	`

	var attendee entity.Attendee
	err := sqlitedb.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, externalID).Scan(
		&attendee.ID,
		&attendee.Name,
		&attendee.ExternalID,
		&attendee.Email,
		&attendee.Active,
		&attendee.RegisteredAt,
	)
	if err == sql.ErrNoRows {
		return nil, entity.ErrAttendeeNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get attendee",
			zap.String("external_id", externalID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get attendee: %w", err)
	}

	return &attendee, nil
}

// Update rewrites the mutable fields of an attendee
func (r *AttendeeRepository) Update(ctx context.Context, attendee *entity.Attendee) error {
	query := `
		UPDATE attendees
		SET name = ?, email = ?, active = ?
		WHERE external_id = ?
	`

	result, err := sqlitedb.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		attendee.Name,
		attendee.Email,
		attendee.Active,
		attendee.ExternalID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrDuplicateAttendee
		}
		r.logger.Error("Failed to update attendee",
			zap.String("external_id", attendee.ExternalID),
			zap.Error(err))
		return fmt.Errorf("failed to update attendee: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return entity.ErrAttendeeNotFound
	}
	return nil
}

// Delete removes an attendee record
func (r *AttendeeRepository) Delete(ctx context.Context, externalID string) error {
	result, err := sqlitedb.ExecutorFor(ctx, r.db).
		ExecContext(ctx, "DELETE FROM attendees WHERE external_id = ?", externalID)
	if err != nil {
		r.logger.Error("Failed to delete attendee",
			zap.String("external_id", externalID),
			zap.Error(err))
		return fmt.Errorf("failed to delete attendee: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return entity.ErrAttendeeNotFound
	}
	return nil
}

// List retrieves attendees ordered by name
func (r *AttendeeRepository) List(ctx context.Context, activeOnly bool) ([]*entity.Attendee, error) {
	query := `
		SELECT id, name, external_id, email, active, registered_at
		FROM attendees
	`
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY name"

	rows, err := sqlitedb.ExecutorFor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list attendees", zap.Error(err))
		return nil, fmt.Errorf("failed to list attendees: %w", err)
	}
	defer rows.Close()

	var attendees []*entity.Attendee
	for rows.Next() {
		var attendee entity.Attendee
		err := rows.Scan(
			&attendee.ID,
			&attendee.Name,
			&attendee.ExternalID,
			&attendee.Email,
			&attendee.Active,
			&attendee.RegisteredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendee: %w", err)
		}
		attendees = append(attendees, &attendee)
	}
	return attendees, rows.Err()
}

// Verify interface compliance
var _ port.AttendeeRepository = (*AttendeeRepository)(nil)
