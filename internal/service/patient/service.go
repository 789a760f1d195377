package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/echocare/caregiver-api/internal/event"
	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
	"github.com/echocare/caregiver-api/internal/webhook"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

type PatientService interface {
	Create(ctx context.Context, ownerID uuid.UUID, form model.PatientForm) (*model.CareRecipient, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, form model.PatientForm) (*model.CareRecipient, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	Get(ctx context.Context, ownerID, id uuid.UUID) (*model.CareRecipient, error)
	List(ctx context.Context, ownerID uuid.UUID, search string) ([]*model.CareRecipient, error)
}

type Service struct {
	repo     repository.PatientRepository
	notifier webhook.Notifier
	events   event.Publisher
}

func NewService(repo repository.PatientRepository, notifier webhook.Notifier, events event.Publisher) *Service {
	return &Service{
		repo:     repo,
		notifier: notifier,
		events:   events,
	}
}

// Create validates the form, rejects duplicates of an existing recipient
// (same name ignoring case, same primary contact) and inserts it.
//
// The duplicate check and insert are not atomic; two concurrent submits of
// the same person can both succeed.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, form model.PatientForm) (*model.CareRecipient, error) {
	if err := form.Check(); err != nil {
		return nil, err
	}
	form = form.Normalize()

	dup, err := s.repo.FindDuplicate(ctx, ownerID, form.FullName, form.PrimaryContact)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to check duplicates: %w", err))
	}
	if dup != nil {
		return nil, apperrors.Conflict(model.PatientDuplicateMessage)
	}

	patient := &model.CareRecipient{
		Base:    model.Base{ID: uuid.New()},
		OwnerID: ownerID,
	}
	form.Apply(patient)

	if err := s.repo.Create(ctx, patient); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to create patient: %w", err))
	}

	log.Info().
		Str("owner_id", ownerID.String()).
		Str("patient_id", patient.ID.String()).
		Msg("Patient created")

	s.notifier.Fire(webhook.EventPatientCreated, form.Payload(map[string]interface{}{
		"owner_id": ownerID,
	}), ownerID)
	s.events.Publish(ctx, event.Event{
		Type:      event.PatientCreated,
		OwnerID:   ownerID,
		PatientID: patient.ID,
		Patient:   patient,
	})
	return patient, nil
}

func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, form model.PatientForm) (*model.CareRecipient, error) {
	if err := form.Check(); err != nil {
		return nil, err
	}

	patient, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	form.Apply(patient)

	if err := s.repo.Update(ctx, patient); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Patient", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to update patient: %w", err))
	}

	log.Info().Str("patient_id", id.String()).Msg("Patient updated")

	s.notifier.Fire(webhook.EventPatientUpdated, form.Payload(map[string]interface{}{
		"id": id,
	}), ownerID)
	s.events.Publish(ctx, event.Event{
		Type:      event.PatientUpdated,
		OwnerID:   ownerID,
		PatientID: id,
		Patient:   patient,
	})
	return patient, nil
}

// Delete removes the recipient and, through the schema's cascades, every
// record that belongs to it.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("Patient", err)
		}
		return apperrors.Internal(fmt.Errorf("failed to delete patient: %w", err))
	}

	log.Info().Str("patient_id", id.String()).Msg("Patient deleted")

	s.notifier.Fire(webhook.EventPatientDeleted, map[string]interface{}{
		"patient_id": id,
	}, ownerID)
	s.events.Publish(ctx, event.Event{
		Type:      event.PatientDeleted,
		OwnerID:   ownerID,
		PatientID: id,
		RecordID:  id,
	})
	return nil
}

func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*model.CareRecipient, error) {
	patient, err := s.repo.Get(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NotFound("Patient", err)
		}
		return nil, apperrors.Internal(fmt.Errorf("failed to get patient: %w", err))
	}
	return patient, nil
}

// List returns the owner's recipients, newest first, filtered by a
// case-insensitive match on name and contacts.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, search string) ([]*model.CareRecipient, error) {
	patients, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list patients: %w", err))
	}
	out := make([]*model.CareRecipient, 0, len(patients))
	for _, p := range patients {
		if p.Matches(search) {
			out = append(out, p)
		}
	}
	return out, nil
}
