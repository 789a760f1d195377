package appointment

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
	repo     repository.AppointmentRepository
	patients Patients
	notifier webhook.Notifier
	events   event.Publisher
}

func NewService(repo repository.AppointmentRepository, patients Patients, notifier webhook.Notifier, events event.Publisher) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		notifier: notifier,
		events:   events,
	}
}

// Create stores an appointment. The status defaults to scheduled and the
// appointment time is read in the recipient's zone.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, form model.AppointmentForm) (*model.Appointment, error) {
	form = form.WithDefaults()
	if err := form.Check(); err != nil {
		return nil, err
	}
	patient, err := s.patients.Get(ctx, ownerID, form.PatientID)
	if err != nil {
		return nil, err
	}

	var at *time.Time
	if local := strings.TrimSpace(form.AppointmentAt); local != "" {
		t, err := timezone.ToUTC(local, patient.Timezone)
		if err != nil {
			return nil, apperrors.Validation(model.InvalidDateMessage, []apperrors.FieldError{{
				Field:   "appointment_at",
				Message: model.InvalidDateMessage,
			}})
		}
		at = &t
	}

	appt := form.Appointment(ownerID, at)
	if err := s.repo.Create(ctx, appt); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to create appointment: %w", err))
	}

	log.Info().
		Str("patient_id", appt.PatientID.String()).
		Str("appointment_id", appt.ID.String()).
		Msg("Appointment created")

	s.notifier.Fire(webhook.EventAppointmentCreated, appt.WebhookPayload(patient.Timezone), ownerID)
	s.events.Publish(ctx, event.Event{
		Type:        event.AppointmentCreated,
		OwnerID:     ownerID,
		PatientID:   appt.PatientID,
		RecordID:    appt.ID,
		Appointment: appt,
	})
	return appt, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, patientID, id uuid.UUID) error {
	if _, err := s.patients.Get(ctx, ownerID, patientID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, patientID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("Appointment", err)
		}
		return apperrors.Internal(fmt.Errorf("failed to delete appointment: %w", err))
	}

	s.events.Publish(ctx, event.Event{
		Type:      event.AppointmentDeleted,
		OwnerID:   ownerID,
		PatientID: patientID,
		RecordID:  id,
	})
	return nil
}

func (s *Service) List(ctx context.Context, ownerID, patientID uuid.UUID) ([]*model.Appointment, error) {
	if _, err := s.patients.Get(ctx, ownerID, patientID); err != nil {
		return nil, err
	}
	appts, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list appointments: %w", err))
	}
	return appts, nil
}
