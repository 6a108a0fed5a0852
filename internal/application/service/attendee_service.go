package service

import (
	"context"

	"github.com/acampov/mealpass/internal/application/port"
	"github.com/acampov/mealpass/internal/domain/entity"
)

// AttendeeService manages locally owned attendee records.
type AttendeeService interface {
	Create(ctx context.Context, attendee *entity.Attendee) error
	Get(ctx context.Context, externalID string) (*entity.Attendee, error)
	Update(ctx context.Context, attendee *entity.Attendee) error
	Delete(ctx context.Context, externalID string) error
	List(ctx context.Context, activeOnly bool) ([]*entity.Attendee, error)
}

type attendeeServiceImpl struct {
	attendeeRepo port.AttendeeRepository
	logger       Logger
}

// NewAttendeeService creates a new AttendeeService
func NewAttendeeService(attendeeRepo port.AttendeeRepository, logger Logger) AttendeeService {
	return &attendeeServiceImpl{
		attendeeRepo: attendeeRepo,
		logger:       logger,
	}
}

func (s *attendeeServiceImpl) Create(ctx context.Context, attendee *entity.Attendee) error {
	if err := s.attendeeRepo.Create(ctx, attendee); err != nil {
		return err
	}
	s.logger.Info("Attendee created", "external_id", attendee.ExternalID)
	return nil
}

func (s *attendeeServiceImpl) Get(ctx context.Context, externalID string) (*entity.Attendee, error) {
	return s.attendeeRepo.GetByExternalID(ctx, externalID)
}

func (s *attendeeServiceImpl) Update(ctx context.Context, attendee *entity.Attendee) error {
	if err := s.attendeeRepo.Update(ctx, attendee); err != nil {
		return err
	}
	s.logger.Info("Attendee updated", "external_id", attendee.ExternalID)
	return nil
}

func (s *attendeeServiceImpl) Delete(ctx context.Context, externalID string) error {
	if err := s.attendeeRepo.Delete(ctx, externalID); err != nil {
		return err
	}
	s.logger.Info("Attendee deleted", "external_id", externalID)
	return nil
}

func (s *attendeeServiceImpl) List(ctx context.Context, activeOnly bool) ([]*entity.Attendee, error) {
	return s.attendeeRepo.List(ctx, activeOnly)
}

// localAttendeeSource adapts the local attendee repository to the uniform
// AttendeeSource shape consumed by the batch coordinator.
type localAttendeeSource struct {
	attendeeRepo port.AttendeeRepository
}

// NewLocalAttendeeSource exposes locally owned attendees as an AttendeeSource.
func NewLocalAttendeeSource(attendeeRepo port.AttendeeRepository) port.AttendeeSource {
	return &localAttendeeSource{attendeeRepo: attendeeRepo}
}

func (s *localAttendeeSource) ListIdentities(ctx context.Context, activeOnly bool) ([]entity.AttendeeIdentity, error) {
	attendees, err := s.attendeeRepo.List(ctx, activeOnly)
	if err != nil {
		return nil, err
	}
	identities := make([]entity.AttendeeIdentity, 0, len(attendees))
	for _, a := range attendees {
		identities = append(identities, a.Identity())
	}
	return identities, nil
}

func (s *localAttendeeSource) GetIdentity(ctx context.Context, externalID string) (entity.AttendeeIdentity, error) {
	attendee, err := s.attendeeRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		return entity.AttendeeIdentity{}, err
	}
	return attendee.Identity(), nil
}
