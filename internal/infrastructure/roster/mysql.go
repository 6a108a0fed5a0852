// Package roster adapts the externally owned visitor database to the
// AttendeeSource port. The table lives in a MySQL instance this system has
// read-only access to; nothing here ever writes to it.
package roster

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/acampov/mealpass/internal/application/port"
	"github.com/acampov/mealpass/internal/domain/entity"
)

// Config describes where the roster lives. Column names are configurable
// because the external schema is not owned by this system.
type Config struct {
	Table       string
	NameColumn  string
	IDColumn    string
	EmailColumn string
}

// Open opens a connection pool against the external MySQL roster.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping roster database: %w", err)
	}
	return db, nil
}

// Source implements port.AttendeeSource over the external roster.
type Source struct {
	db     *sql.DB
	cfg    Config
	logger *zap.Logger
}

// NewSource creates a new roster source
func NewSource(db *sql.DB, cfg Config, logger *zap.Logger) *Source {
	return &Source{
		db:     db,
		cfg:    cfg,
		logger: logger,
	}
}

// ListIdentities returns every visitor on the roster. The external schema has
// no reliable active column, so visitors are always reported active and the
// activeOnly filter is a no-op here.
func (s *Source) ListIdentities(ctx context.Context, activeOnly bool) ([]entity.AttendeeIdentity, error) {
	query := fmt.Sprintf("SELECT `%s`, `%s`, `%s` FROM `%s`",
		s.cfg.NameColumn, s.cfg.IDColumn, s.cfg.EmailColumn, s.cfg.Table)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.logger.Error("Failed to query roster", zap.String("table", s.cfg.Table), zap.Error(err))
		return nil, fmt.Errorf("failed to query roster: %w", err)
	}
	defer rows.Close()

	var identities []entity.AttendeeIdentity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan roster row: %w", err)
		}
		identities = append(identities, identity)
	}
	return identities, rows.Err()
}

// GetIdentity returns one visitor by document identifier.
func (s *Source) GetIdentity(ctx context.Context, externalID string) (entity.AttendeeIdentity, error) {
	query := fmt.Sprintf("SELECT `%s`, `%s`, `%s` FROM `%s` WHERE `%s` = ?",
		s.cfg.NameColumn, s.cfg.IDColumn, s.cfg.EmailColumn, s.cfg.Table, s.cfg.IDColumn)

	identity, err := scanIdentity(s.db.QueryRowContext(ctx, query, externalID))
	if err == sql.ErrNoRows {
		return entity.AttendeeIdentity{}, entity.ErrAttendeeNotFound
	}
	if err != nil {
		s.logger.Error("Failed to get roster row",
			zap.String("external_id", externalID),
			zap.Error(err))
		return entity.AttendeeIdentity{}, fmt.Errorf("failed to get roster row: %w", err)
	}
	return identity, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIdentity(row rowScanner) (entity.AttendeeIdentity, error) {
	// Roster columns are frequently nullable; missing values become empty
	// strings rather than scan failures.
	var name, id, email sql.NullString
	if err := row.Scan(&name, &id, &email); err != nil {
		return entity.AttendeeIdentity{}, err
	}
	return entity.AttendeeIdentity{
		Name:       name.String,
		ExternalID: id.String,
		Email:      email.String,
		Active:     true,
		Provenance: entity.ProvenanceExternal,
	}, nil
}

// Verify interface compliance
var _ port.AttendeeSource = (*Source)(nil)
