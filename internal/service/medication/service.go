package medication

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/echocare/caregiver-api/internal/event"
	"github.com/echocare/caregiver-api/internal/integration"
	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
	"github.com/echocare/caregiver-api/internal/webhook"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

// Patients resolves a care recipient owned by the caller.
type Patients interface {
	Get(ctx context.Context, ownerID, id uuid.UUID) (*model.CareRecipient, error)
}

// Summarizer produces a plain-language summary of a medication.
type Summarizer interface {
	Request(ctx context.Context, accountID uuid.UUID, data integration.SummaryRequest) (string, error)
}

type Service struct {
	repo       repository.MedicationRepository
	patients   Patients
	summarizer Summarizer
	notifier   webhook.Notifier
	events     event.Publisher
}

func NewService(repo repository.MedicationRepository, patients Patients, summarizer Summarizer, notifier webhook.Notifier, events event.Publisher) *Service {
	return &Service{
		repo:       repo,
		patients:   patients,
		summarizer: summarizer,
		notifier:   notifier,
		events:     events,
	}
}

// Create stores a medication plan. Dose times are cut or padded to the
// number of doses per day and blank entries are dropped.
func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, form model.MedicationForm) (*model.MedicationPlan, error) {
	form = form.WithDefaults()
	if err := form.Check(); err != nil {
		return nil, err
	}
	if _, err := s.patients.Get(ctx, ownerID, form.PatientID); err != nil {
		return nil, err
	}

	plan := form.Plan(ownerID)
	if err := s.repo.Create(ctx, plan); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to create medication plan: %w", err))
	}

	log.Info().
		Str("patient_id", plan.PatientID.String()).
		Str("medication_id", plan.ID.String()).
		Int("doses", len(plan.DoseTimes)).
		Msg("Medication plan created")

	s.notifier.Fire(webhook.EventMedicationCreated, plan.WebhookPayload(), ownerID)
	s.events.Publish(ctx, event.Event{
		Type:       event.MedicationCreated,
		OwnerID:    ownerID,
		PatientID:  plan.PatientID,
		RecordID:   plan.ID,
		Medication: plan,
	})
	return plan, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, patientID, id uuid.UUID) error {
	if _, err := s.patients.Get(ctx, ownerID, patientID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, patientID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("Medication plan", err)
		}
		return apperrors.Internal(fmt.Errorf("failed to delete medication plan: %w", err))
	}

	s.events.Publish(ctx, event.Event{
		Type:      event.MedicationDeleted,
		OwnerID:   ownerID,
		PatientID: patientID,
		RecordID:  id,
	})
	return nil
}

func (s *Service) List(ctx context.Context, ownerID, patientID uuid.UUID) ([]*model.MedicationPlan, error) {
	if _, err := s.patients.Get(ctx, ownerID, patientID); err != nil {
		return nil, err
	}
	plans, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list medication plans: %w", err))
	}
	return plans, nil
}

// Summary is the parsed reply of the summary service.
type Summary struct {
	Text  string                    `json:"text"`
	Lines []integration.SummaryLine `json:"lines"`
}

// Summary asks the summary service to describe a medication. Transport
// failures surface as the generic network message.
func (s *Service) Summary(ctx context.Context, ownerID uuid.UUID, req integration.SummaryRequest) (*Summary, error) {
	text, err := s.summarizer.Request(ctx, ownerID, req)
	if err != nil {
		if errors.Is(err, integration.ErrNotConfigured) {
			return nil, apperrors.Unavailable("Medication summary service is not configured")
		}
		log.Warn().Err(err).Str("medicine", req.MedicineName).Msg("Medication summary failed")
		var statusErr *integration.StatusError
		if errors.As(err, &statusErr) {
			return nil, apperrors.Upstream(statusErr.Error(), err)
		}
		return nil, apperrors.Upstream(integration.SummaryNetworkMessage, err)
	}
	if text == "" {
		text = integration.NoSummaryMessage
	}
	return &Summary{Text: text, Lines: integration.ParseSummary(text)}, nil
}
