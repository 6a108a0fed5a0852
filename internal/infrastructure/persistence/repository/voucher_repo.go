package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/acampov/mealpass/internal/application/port"
	"github.com/acampov/mealpass/internal/domain/entity"
	sqlitedb "github.com/acampov/mealpass/internal/infrastructure/persistence/sqlite"
)

// mealOrder keeps voucher listings in issuance order without relying on
// insert order.
const mealOrder = `CASE meal_type WHEN 'BREAKFAST' THEN 0 WHEN 'LUNCH' THEN 1 ELSE 2 END`

// VoucherRepository implements port.VoucherRepository on SQLite.
type VoucherRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewVoucherRepository creates a new voucher repository
func NewVoucherRepository(db *sql.DB, logger *zap.Logger) port.VoucherRepository {
	return &VoucherRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new voucher record
func (r *VoucherRepository) Create(ctx context.Context, voucher *entity.Voucher) error {
	query := `
		INSERT INTO vouchers (
			attendee_name, attendee_external_id, attendee_email,
			meal_type, token, used, created_at
		) VALUES (?, ?, ?, ?, ?, 0, ?)
	`

	result, err := sqlitedb.ExecutorFor(ctx, r.db).ExecContext(ctx, query,
		voucher.AttendeeName,
		voucher.AttendeeExternalID,
		voucher.AttendeeEmail,
		string(voucher.MealType),
		voucher.Token.String(),
		voucher.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return entity.ErrDuplicateVoucher
		}
		r.logger.Error("Failed to create voucher",
			zap.String("external_id", voucher.AttendeeExternalID),
			zap.Error(err))
		return fmt.Errorf("failed to create voucher: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	voucher.ID = id
	return nil
}

// FindByAttendee retrieves all vouchers for an attendee external id
func (r *VoucherRepository) FindByAttendee(ctx context.Context, externalID string) ([]*entity.Voucher, error) {
	query := `
		SELECT id, attendee_name, attendee_external_id, attendee_email,
			meal_type, token, used, created_at, redeemed_at
		FROM vouchers
		WHERE attendee_external_id = ?
		ORDER BY ` + mealOrder

	rows, err := sqlitedb.ExecutorFor(ctx, r.db).QueryContext(ctx, query, externalID)
	if err != nil {
		r.logger.Error("Failed to find vouchers",
			zap.String("external_id", externalID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to find vouchers: %w", err)
	}
	defer rows.Close()

	return scanVouchers(rows)
}

// GetByToken retrieves a voucher by token
func (r *VoucherRepository) GetByToken(ctx context.Context, token entity.Token) (*entity.Voucher, error) {
	query := `
		SELECT id, attendee_name, attendee_external_id, attendee_email,
			meal_type, token, used, created_at, redeemed_at
		FROM vouchers
		WHERE token = ?
	`

	row := sqlitedb.ExecutorFor(ctx, r.db).QueryRowContext(ctx, query, token.String())
	voucher, err := scanVoucher(row)
	if err == sql.ErrNoRows {
		return nil, entity.ErrTokenNotFound
	}
	if err != nil {
		r.logger.Error("Failed to get voucher by token", zap.Error(err))
		return nil, fmt.Errorf("failed to get voucher: %w", err)
	}

	return voucher, nil
}

// MarkUsed flips the used flag with a single conditional update. The WHERE
// clause on used = 0 is the compare-and-set: under concurrent redemption of
// one token, exactly one statement reports an affected row.
func (r *VoucherRepository) MarkUsed(ctx context.Context, token entity.Token, redeemedAt time.Time) error {
	query := `
		UPDATE vouchers
		SET used = 1, redeemed_at = ?
		WHERE token = ? AND used = 0
	`

	result, err := sqlitedb.ExecutorFor(ctx, r.db).ExecContext(ctx, query, redeemedAt, token.String())
	if err != nil {
		r.logger.Error("Failed to mark voucher used", zap.Error(err))
		return fmt.Errorf("failed to mark voucher used: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// No row changed: either the voucher is already consumed or the token
	// does not exist. The used flag never unflips, so this read is safe.
	var used bool
	err = sqlitedb.ExecutorFor(ctx, r.db).
		QueryRowContext(ctx, "SELECT used FROM vouchers WHERE token = ?", token.String()).
		Scan(&used)
	if err == sql.ErrNoRows {
		return entity.ErrTokenNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check voucher state: %w", err)
	}
	return entity.ErrAlreadyUsed
}

// List retrieves vouchers ordered by attendee name and meal type
func (r *VoucherRepository) List(ctx context.Context, limit, offset int) ([]*entity.Voucher, error) {
	query := `
		SELECT id, attendee_name, attendee_external_id, attendee_email,
			meal_type, token, used, created_at, redeemed_at
		FROM vouchers
		ORDER BY attendee_name, ` + mealOrder + `
		LIMIT ? OFFSET ?
	`

	rows, err := sqlitedb.ExecutorFor(ctx, r.db).QueryContext(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list vouchers", zap.Error(err))
		return nil, fmt.Errorf("failed to list vouchers: %w", err)
	}
	defer rows.Close()

	return scanVouchers(rows)
}

// Count returns the total voucher count
func (r *VoucherRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := sqlitedb.ExecutorFor(ctx, r.db).
		QueryRowContext(ctx, "SELECT COUNT(*) FROM vouchers").
		Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count vouchers: %w", err)
	}
	return count, nil
}

// rowScanner covers *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanVoucher(row rowScanner) (*entity.Voucher, error) {
	var voucher entity.Voucher
	var mealType, token string
	var redeemedAt sql.NullTime

	err := row.Scan(
		&voucher.ID,
		&voucher.AttendeeName,
		&voucher.AttendeeExternalID,
		&voucher.AttendeeEmail,
		&mealType,
		&token,
		&voucher.Used,
		&voucher.CreatedAt,
		&redeemedAt,
	)
	if err != nil {
		return nil, err
	}

	voucher.MealType = entity.MealType(mealType)
	voucher.Token = entity.Token(token)
	if redeemedAt.Valid {
		voucher.RedeemedAt = &redeemedAt.Time
	}
	return &voucher, nil
}

func scanVouchers(rows *sql.Rows) ([]*entity.Voucher, error) {
	var vouchers []*entity.Voucher
	for rows.Next() {
		voucher, err := scanVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voucher: %w", err)
		}
		vouchers = append(vouchers, voucher)
	}
	return vouchers, rows.Err()
}

// isUniqueViolation reports whether err is a SQLite uniqueness-constraint
// failure.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// Verify interface compliance
var _ port.VoucherRepository = (*VoucherRepository)(nil)
