package service

import (
	"context"
	"errors"
	"time"

	"github.com/acampov/mealpass/internal/application/port"
	"github.com/acampov/mealpass/internal/domain/entity"
)

// ErrInvalidCode is the single user-facing rejection for unusable scan
// payloads. Malformed input and well-formed-but-unknown tokens both collapse
// into it so the API never reveals which tokens are syntactically plausible;
// the two are kept apart internally for logging.
var ErrInvalidCode = errors.New("invalid voucher code")

// RedemptionOutcome tells the scanning station what happened.
type RedemptionOutcome string

const (
	// OutcomeRedeemed means this call consumed the voucher.
	OutcomeRedeemed RedemptionOutcome = "redeemed"
	// OutcomeAlreadyRedeemed means the voucher was consumed earlier;
	// RedeemedAt carries the original timestamp and no state changed.
	OutcomeAlreadyRedeemed RedemptionOutcome = "already_redeemed"
)

// RedemptionResult describes a resolved redemption attempt.
type RedemptionResult struct {
	Outcome    RedemptionOutcome
	Attendee   string
	MealType   entity.MealType
	RedeemedAt time.Time
}

// RedemptionService validates a scanned payload and consumes the matching
// voucher exactly once.
type RedemptionService interface {
	Redeem(ctx context.Context, raw string) (*RedemptionResult, error)
}

type redemptionServiceImpl struct {
	voucherRepo port.VoucherRepository
	logger      Logger
}

// NewRedemptionService creates a new RedemptionService
func NewRedemptionService(voucherRepo port.VoucherRepository, logger Logger) RedemptionService {
	return &redemptionServiceImpl{
		voucherRepo: voucherRepo,
		logger:      logger,
	}
}

// Redeem normalizes and parses the scanned text, then attempts the one-way
// unused-to-used transition. The store's conditional update is the single
// serialization point: of N concurrent calls for one token, exactly one
// observes the unused state.
func (s *redemptionServiceImpl) Redeem(ctx context.Context, raw string) (*RedemptionResult, error) {
	cleaned := entity.NormalizeScan(raw)

	token, err := entity.ParseToken(cleaned)
	if err != nil {
		s.logger.Info("Rejected malformed scan payload", "length", len(raw))
		return nil, ErrInvalidCode
	}

	voucher, err := s.voucherRepo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, entity.ErrTokenNotFound) {
			s.logger.Info("Rejected unknown token", "token", token.String())
			return nil, ErrInvalidCode
		}
		s.logger.Error("Failed to look up voucher", "error", err)
		return nil, err
	}

	now := time.Now().UTC()
	err = s.voucherRepo.MarkUsed(ctx, token, now)
	if errors.Is(err, entity.ErrAlreadyUsed) {
		// Losing the race (or re-scanning) is not an error: report when the
		// voucher was originally consumed, without a second state change.
		current, gerr := s.voucherRepo.GetByToken(ctx, token)
		if gerr != nil {
			s.logger.Error("Failed to reload redeemed voucher", "token", token.String(), "error", gerr)
			return nil, gerr
		}
		redeemedAt := now
		if current.RedeemedAt != nil {
			redeemedAt = *current.RedeemedAt
		}
		return &RedemptionResult{
			Outcome:    OutcomeAlreadyRedeemed,
			Attendee:   current.AttendeeName,
			MealType:   current.MealType,
			RedeemedAt: redeemedAt,
		}, nil
	}
	if err != nil {
		s.logger.Error("Failed to mark voucher used", "token", token.String(), "error", err)
		return nil, err
	}

	s.logger.Info("Voucher redeemed",
		"attendee", voucher.AttendeeName,
		"meal_type", string(voucher.MealType),
	)

	return &RedemptionResult{
		Outcome:    OutcomeRedeemed,
		Attendee:   voucher.AttendeeName,
		MealType:   voucher.MealType,
		RedeemedAt: now,
	}, nil
}
