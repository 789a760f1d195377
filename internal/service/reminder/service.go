package reminder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/echocare/caregiver-api/internal/event"
	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
	"github.com/echocare/caregiver-api/internal/timezone"
	"github.com/echocare/caregiver-api/internal/webhook"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

type Patients interface {
	Get(ctx context.Context, ownerID, id uuid.UUID) (*model.CareRecipient, error)
}

type Service struct {
	repo     repository.ReminderRepository
	patients Patients
	notifier webhook.Notifier
	events   event.Publisher
}

func NewService(repo repository.ReminderRepository, patients Patients, notifier webhook.Notifier, events event.Publisher) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		notifier: notifier,
		events:   events,
	}
}

// Create stores a reminder. Start and end are wall-clock values in the
// recipient's zone and are stored as UTC instants.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, form model.ReminderForm) (*model.Reminder, error) {
	form = form.WithDefaults()
	if err := form.Check(); err != nil {
		return nil, err
	}
	patient, err := s.patients.Get(ctx, ownerID, form.PatientID)
	if err != nil {
		return nil, err
	}

	start, err := toUTC("start_datetime", form.StartDatetime, patient.Timezone)
	if err != nil {
		return nil, err
	}
	end, err := toUTC("end_datetime", form.EndDatetime, patient.Timezone)
	if err != nil {
		return nil, err
	}

	reminder := form.Reminder(ownerID, start, end)
	if err := s.repo.Create(ctx, reminder); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to create reminder: %w", err))
	}

	log.Info().
		Str("patient_id", reminder.PatientID.String()).
		Str("reminder_id", reminder.ID.String()).
		Str("zone", patient.Timezone).
		Msg("Reminder created")

	s.notifier.Fire(webhook.EventReminderCreated, reminder.WebhookPayload(patient.Timezone), ownerID)
	s.events.Publish(ctx, event.Event{
		Type:      event.ReminderCreated,
		OwnerID:   ownerID,
		PatientID: reminder.PatientID,
		RecordID:  reminder.ID,
		Reminder:  reminder,
	})
	return reminder, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, patientID, id uuid.UUID) error {
	if _, err := s.patients.Get(ctx, ownerID, patientID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, patientID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("Reminder", err)
		}
		return apperrors.Internal(fmt.Errorf("failed to delete reminder: %w", err))
	}

	s.events.Publish(ctx, event.Event{
		Type:      event.ReminderDeleted,
		OwnerID:   ownerID,
		PatientID: patientID,
		RecordID:  id,
	})
	return nil
}

func (s *Service) List(ctx context.Context, ownerID, patientID uuid.UUID) ([]*model.Reminder, error) {
	if _, err := s.patients.Get(ctx, ownerID, patientID); err != nil {
		return nil, err
	}
	reminders, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list reminders: %w", err))
	}
	return reminders, nil
}

// toUTC converts an optional wall-clock form value. Blank input is nil.
func toUTC(field, local, zone string) (*time.Time, error) {
	if strings.TrimSpace(local) == "" {
		return nil, nil
	}
	t, err := timezone.ToUTC(local, zone)
	if err != nil {
		return nil, apperrors.Validation(model.InvalidDateMessage, []apperrors.FieldError{{
			Field:   field,
			Message: model.InvalidDateMessage,
		}})
	}
	return &t, nil
}
