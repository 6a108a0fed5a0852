package port

import (
	"context"
	"time"

	"github.com/acampov/mealpass/internal/domain/entity"
)

// VoucherRepository defines persistence operations for Voucher.
// Lookups go through the denormalized identity snapshot, never through a
// volatile foreign key, because externally sourced attendees have no local row.
type VoucherRepository interface {
	// Create persists a new voucher. Returns entity.ErrDuplicateVoucher if a
	// voucher already exists for the (attendee, meal type) pair or the token
	// collides; both are enforced by store constraints, not application checks.
	Create(ctx context.Context, voucher *entity.Voucher) error

	// FindByAttendee retrieves all vouchers issued to the given external id,
	// in meal-type issuance order.
	FindByAttendee(ctx context.Context, externalID string) ([]*entity.Voucher, error)

	// GetByToken retrieves a voucher by its token. Returns
	// entity.ErrTokenNotFound if no voucher carries the token.
	GetByToken(ctx context.Context, token entity.Token) (*entity.Voucher, error)

	// MarkUsed atomically transitions the voucher from unused to used. It
	// must be a single conditional update so that two concurrent calls for
	// the same token yield exactly one success; the loser receives
	// entity.ErrAlreadyUsed.
	MarkUsed(ctx context.Context, token entity.Token, redeemedAt time.Time) error

	// List retrieves vouchers ordered by attendee and meal type, for the
	// admin surface and report export.
	List(ctx context.Context, limit, offset int) ([]*entity.Voucher, error)

	// Count returns the total number of vouchers.
	Count(ctx context.Context) (int64, error)
}

// AttendeeRepository defines persistence operations for locally owned
// attendee records.
type AttendeeRepository interface {
	// Create persists a new attendee. Returns entity.ErrDuplicateAttendee
	// if the external id or email is already taken.
	Create(ctx context.Context, attendee *entity.Attendee) error

	// GetByExternalID retrieves an attendee by external id. Returns
	// entity.ErrAttendeeNotFound if absent.
	GetByExternalID(ctx context.Context, externalID string) (*entity.Attendee, error)

	// Update rewrites name, email and active flag of an existing attendee.
	Update(ctx context.Context, attendee *entity.Attendee) error

	// Delete removes an attendee record. Issued vouchers survive: they carry
	// their own identity snapshot.
	Delete(ctx context.Context, externalID string) error

	// List retrieves attendees ordered by name, optionally only active ones.
	List(ctx context.Context, activeOnly bool) ([]*entity.Attendee, error)
}

// AttendeeSource yields attendee identities from one backing store. Both the
// local store and the read-only external roster implement it, so the issuance
// and batch engines never branch on provenance.
type AttendeeSource interface {
	// ListIdentities returns the roster, optionally filtered to active
	// attendees.
	ListIdentities(ctx context.Context, activeOnly bool) ([]entity.AttendeeIdentity, error)

	// GetIdentity returns one identity by external id. Returns
	// entity.ErrAttendeeNotFound if absent.
	GetIdentity(ctx context.Context, externalID string) (entity.AttendeeIdentity, error)
}

// TransactionManager handles database transactions.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
