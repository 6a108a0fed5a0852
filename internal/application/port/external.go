package port

import (
	"context"

	"github.com/acampov/mealpass/internal/domain/entity"
)

// NotificationStatus reports what happened to the delivery attempt that
// follows a successful issuance. Delivery problems never reverse an issuance.
type NotificationStatus string

const (
	// NotificationSent means the voucher email was accepted by the relay.
	NotificationSent NotificationStatus = "sent"
	// NotificationFailed means delivery was attempted and failed; the
	// vouchers remain valid and the send can be retried later.
	NotificationFailed NotificationStatus = "failed"
	// NotificationSkipped means no delivery was attempted, e.g. the
	// attendee has no email on record.
	NotificationSkipped NotificationStatus = "skipped"
)

// NotificationSink delivers issued vouchers to an attendee. Implementations
// render one QR image per voucher and must report failure through the status,
// not an error: a broken relay is a dependency failure, not an issuance
// failure.
type NotificationSink interface {
	SendVouchers(ctx context.Context, identity entity.AttendeeIdentity, vouchers []*entity.Voucher) NotificationStatus
}

// QRRenderer turns a token into an image. Render is a deterministic pure
// function of the token; the same token always yields the same bytes.
type QRRenderer interface {
	Render(token entity.Token) ([]byte, error)
}
