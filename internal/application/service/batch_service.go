package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/acampov/mealpass/internal/application/port"
	"github.com/acampov/mealpass/internal/domain/entity"
)

// BatchOutcome classifies what happened to one attendee during a batch run.
type BatchOutcome string

const (
	BatchIssued  BatchOutcome = "issued"
	BatchSkipped BatchOutcome = "skipped"
	BatchFailed  BatchOutcome = "failed"
)

// AttendeeOutcome is the per-attendee line of a batch report.
type AttendeeOutcome struct {
	Identity     entity.AttendeeIdentity `json:"identity"`
	Outcome      BatchOutcome            `json:"outcome"`
	Reason       string                  `json:"reason,omitempty"`
	Notification port.NotificationStatus `json:"notification,omitempty"`
}

// BatchReport summarizes a batch issuance run.
type BatchReport struct {
	Processed            int               `json:"processed"`
	Issued               int               `json:"issued"`
	Skipped              int               `json:"skipped"`
	Failed               int               `json:"failed"`
	VouchersCreated      int               `json:"vouchers_created"`
	NotificationsSent    int               `json:"notifications_sent"`
	NotificationsFailed  int               `json:"notifications_failed"`
	NotificationsSkipped int               `json:"notifications_skipped"`
	Outcomes             []AttendeeOutcome `json:"outcomes"`
}

// BatchIssuanceService fans issuance out over a roster of attendees.
type BatchIssuanceService interface {
	// IssueForAll issues vouchers for every active attendee in the source
	// that does not hold any yet. One attendee's failure never stops the
	// rest of the roster; failures are accumulated into the report. The
	// returned error covers only roster enumeration itself.
	IssueForAll(ctx context.Context, source port.AttendeeSource) (*BatchReport, error)
}

type batchIssuanceServiceImpl struct {
	voucherRepo port.VoucherRepository
	issuance    IssuanceService
	logger      Logger
}

// NewBatchIssuanceService creates a new BatchIssuanceService
func NewBatchIssuanceService(
	voucherRepo port.VoucherRepository,
	issuance IssuanceService,
	logger Logger,
) BatchIssuanceService {
	return &batchIssuanceServiceImpl{
		voucherRepo: voucherRepo,
		issuance:    issuance,
		logger:      logger,
	}
}

// IssueForAll processes the roster sequentially and collects per-attendee
// outcomes.
func (s *batchIssuanceServiceImpl) IssueForAll(ctx context.Context, source port.AttendeeSource) (*BatchReport, error) {
	identities, err := source.ListIdentities(ctx, true)
	if err != nil {
		s.logger.Error("Failed to list roster", "error", err)
		return nil, fmt.Errorf("list roster: %w", err)
	}

	report := &BatchReport{}
	for _, identity := range identities {
		report.Processed++

		existing, err := s.voucherRepo.FindByAttendee(ctx, identity.ExternalID)
		if err != nil {
			s.logger.Error("Failed to check existing vouchers",
				"external_id", identity.ExternalID, "error", err)
			report.Failed++
			report.Outcomes = append(report.Outcomes, AttendeeOutcome{
				Identity: identity,
				Outcome:  BatchFailed,
				Reason:   err.Error(),
			})
			continue
		}
		if len(existing) > 0 {
			report.Skipped++
			report.Outcomes = append(report.Outcomes, AttendeeOutcome{
				Identity: identity,
				Outcome:  BatchSkipped,
				Reason:   "already has vouchers",
			})
			continue
		}

		result, err := s.issuance.IssueVouchers(ctx, identity)
		if err != nil {
			// Another caller may have issued between the check and here.
			if errors.Is(err, entity.ErrAlreadyIssued) {
				report.Skipped++
				report.Outcomes = append(report.Outcomes, AttendeeOutcome{
					Identity: identity,
					Outcome:  BatchSkipped,
					Reason:   "already has vouchers",
				})
				continue
			}
			report.Failed++
			report.Outcomes = append(report.Outcomes, AttendeeOutcome{
				Identity: identity,
				Outcome:  BatchFailed,
				Reason:   err.Error(),
			})
			continue
		}

		report.Issued++
		report.VouchersCreated += len(result.Vouchers)
		switch result.Notification {
		case port.NotificationSent:
			report.NotificationsSent++
		case port.NotificationFailed:
			report.NotificationsFailed++
		case port.NotificationSkipped:
			report.NotificationsSkipped++
		}
		report.Outcomes = append(report.Outcomes, AttendeeOutcome{
			Identity:     identity,
			Outcome:      BatchIssued,
			Notification: result.Notification,
		})
	}

	s.logger.Info("Batch issuance finished",
		"processed", report.Processed,
		"issued", report.Issued,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"vouchers_created", report.VouchersCreated,
	)

	return report, nil
}
