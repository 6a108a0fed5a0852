package service

import (
	"context"
	"errors"
	"time"

	"github.com/acampov/mealpass/internal/application/port"
	"github.com/acampov/mealpass/internal/domain/entity"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// IssuanceResult represents the outcome of issuing the voucher set for one
// attendee. Notification reports the delivery attempt; it is informational
// and never invalidates the vouchers.
type IssuanceResult struct {
	Vouchers     []*entity.Voucher
	Notification port.NotificationStatus
}

// IssuanceService creates the full voucher set for an attendee.
type IssuanceService interface {
	// IssueVouchers creates one voucher per meal type, in enumeration order,
	// as a single all-or-nothing unit. Returns entity.ErrAttendeeInactive
	// for deactivated local attendees and entity.ErrAlreadyIssued when any
	// voucher already exists for the identity.
	IssueVouchers(ctx context.Context, identity entity.AttendeeIdentity) (*IssuanceResult, error)
}

type issuanceServiceImpl struct {
	voucherRepo port.VoucherRepository
	txManager   port.TransactionManager
	notifier    port.NotificationSink
	logger      Logger
}

// NewIssuanceService creates a new IssuanceService
func NewIssuanceService(
	voucherRepo port.VoucherRepository,
	txManager port.TransactionManager,
	notifier port.NotificationSink,
	logger Logger,
) IssuanceService {
	return &issuanceServiceImpl{
		voucherRepo: voucherRepo,
		txManager:   txManager,
		notifier:    notifier,
		logger:      logger,
	}
}

// IssueVouchers issues the three meal vouchers for an attendee.
func (s *issuanceServiceImpl) IssueVouchers(ctx context.Context, identity entity.AttendeeIdentity) (*IssuanceResult, error) {
	// Active-flag policy applies to the local store only; the external
	// roster has no reliable active column and its attendees are always
	// considered active.
	if identity.Provenance == entity.ProvenanceLocal && !identity.Active {
		s.logger.Info("Refusing issuance for inactive attendee", "external_id", identity.ExternalID)
		return nil, entity.ErrAttendeeInactive
	}

	now := time.Now().UTC()
	vouchers := make([]*entity.Voucher, 0, len(entity.MealTypes()))
	for _, meal := range entity.MealTypes() {
		vouchers = append(vouchers, &entity.Voucher{
			AttendeeName:       identity.Name,
			AttendeeExternalID: identity.ExternalID,
			AttendeeEmail:      identity.Email,
			MealType:           meal,
			Token:              entity.NewToken(),
			CreatedAt:          now,
		})
	}

	// All three creates share one transaction: either the full set persists
	// or none of it does. A concurrent issuance for the same attendee loses
	// on the (attendee, meal type) uniqueness constraint.
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		existing, err := s.voucherRepo.FindByAttendee(txCtx, identity.ExternalID)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return entity.ErrAlreadyIssued
		}

		for _, v := range vouchers {
			if err := s.voucherRepo.Create(txCtx, v); err != nil {
				if errors.Is(err, entity.ErrDuplicateVoucher) {
					return entity.ErrAlreadyIssued
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, entity.ErrAlreadyIssued) {
			s.logger.Error("Failed to issue vouchers", "external_id", identity.ExternalID, "error", err)
		}
		return nil, err
	}

	// Delivery happens outside the transaction so a slow or failing relay
	// never holds a database lock. The sink reports status instead of
	// returning an error; failure leaves the vouchers valid and retryable
	// at the delivery layer.
	status := s.notifier.SendVouchers(ctx, identity, vouchers)

	s.logger.Info("Vouchers issued",
		"external_id", identity.ExternalID,
		"count", len(vouchers),
		"notification", string(status),
	)

	return &IssuanceResult{
		Vouchers:     vouchers,
		Notification: status,
	}, nil
}
