package entity

import "errors"

var (
	// ErrMalformedCode is returned when a scanned payload does not parse as
	// a token even after normalization.
	ErrMalformedCode = errors.New("malformed voucher code")

	// ErrTokenNotFound is returned when a well-formed token matches no
	// voucher. Kept distinct from ErrMalformedCode for logging; callers
	// must collapse both into the same user-facing invalid-code answer.
	ErrTokenNotFound = errors.New("voucher token not found")

	// ErrAttendeeNotFound is returned when no attendee matches the given
	// external id.
	ErrAttendeeNotFound = errors.New("attendee not found")

	// ErrDuplicateVoucher is returned when a voucher already exists for the
	// (attendee, meal type) pair or the token collides.
	ErrDuplicateVoucher = errors.New("voucher already exists")

	// ErrDuplicateAttendee is returned when a local attendee with the same
	// external id or email already exists.
	ErrDuplicateAttendee = errors.New("attendee already exists")

	// ErrAlreadyIssued is returned when issuance is attempted for an
	// attendee that already holds vouchers.
	ErrAlreadyIssued = errors.New("vouchers already issued for attendee")

	// ErrAttendeeInactive is returned when issuance is attempted for a
	// deactivated local attendee.
	ErrAttendeeInactive = errors.New("attendee is inactive")

	// ErrAlreadyUsed is returned by the store when a conditional mark-used
	// finds the voucher consumed.
	ErrAlreadyUsed = errors.New("voucher already used")
)
