package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/echocare/caregiver-api/internal/event"
	"github.com/echocare/caregiver-api/internal/integration"
	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
	"github.com/echocare/caregiver-api/pkg/metrics"
)

const (
	UploadBusyMessage  = "A report upload is already in progress."
	AskRequiredMessage = "Please select a patient and enter a question."
	QANotConfigured    = "Document Q&A service is not configured"
	UploadedMessage    = "Reports uploaded"
	NoReportsMessage   = "No files to upload"
)

// settleTimeout bounds the writes that finish a report after the request
// context is gone.
const settleTimeout = 5 * time.Second

type Patients interface {
	Get(ctx context.Context, ownerID, id uuid.UUID) (*model.CareRecipient, error)
}

type Uploader interface {
	Upload(ctx context.Context, r integration.UploadRequest) (*integration.UploadResult, error)
}

type Answerer interface {
	Ask(ctx context.Context, accountID, patientID uuid.UUID, question string) (*integration.Answer, error)
}

// File is one uploaded report file.
type File struct {
	Name        string
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// Rejected is a file skipped before upload.
type Rejected struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// BatchResult lists the rows written for a batch, in upload order.
type BatchResult struct {
	Reports  []model.ReportView `json:"reports"`
	Rejected []Rejected         `json:"rejected"`
}

// AskResult is an answer with its report link split out.
type AskResult struct {
	Answer  string               `json:"answer"`
	Link    *integration.Link    `json:"link,omitempty"`
	Sources []integration.Source `json:"sources"`
}

type Service struct {
	repo     repository.ReportRepository
	patients Patients
	uploader Uploader
	answerer Answerer
	events   event.Publisher
	metrics  *metrics.Metrics

	uploading sync.Map
}

func NewService(repo repository.ReportRepository, patients Patients, uploader Uploader, answerer Answerer, events event.Publisher, m *metrics.Metrics) *Service {
	return &Service{
		repo:     repo,
		patients: patients,
		uploader: uploader,
		answerer: answerer,
		events:   events,
		metrics:  m,
	}
}

func (s *Service) List(ctx context.Context, ownerID, patientID uuid.UUID) ([]model.ReportView, error) {
	if _, err := s.patients.Get(ctx, ownerID, patientID); err != nil {
		return nil, err
	}
	reports, err := s.repo.ListByPatient(ctx, ownerID, patientID)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to list reports: %w", err))
	}
	views := make([]model.ReportView, len(reports))
	for i, r := range reports {
		views[i] = r.View()
	}
	return views, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, patientID, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, ownerID, patientID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NotFound("Report", err)
		}
		return apperrors.Internal(fmt.Errorf("failed to delete report: %w", err))
	}
	s.events.Publish(ctx, event.Event{
		Type:      event.ReportDeleted,
		OwnerID:   ownerID,
		PatientID: patientID,
		RecordID:  id,
	})
	return nil
}

// Uploading reports whether a batch is running for the account.
func (s *Service) Uploading(ownerID uuid.UUID) bool {
	_, ok := s.uploading.Load(ownerID)
	return ok
}

// UploadBatch uploads files one at a time. Disallowed types are skipped.
// Each accepted file gets a Pending row before it is sent, which is then
// updated with the service's reply or marked Error. If ctx ends mid-batch
// the files not yet sent are recorded as Error. Only one batch per account
// runs at a time.
func (s *Service) UploadBatch(ctx context.Context, ownerID, patientID uuid.UUID, files []File) (*BatchResult, error) {
	if patientID == uuid.Nil {
		return nil, apperrors.Validation(model.ReportNoPatient, []apperrors.FieldError{{
			Field: "patient_id", Message: model.ReportNoPatient,
		}})
	}
	patient, err := s.patients.Get(ctx, ownerID, patientID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperrors.BadRequest(NoReportsMessage, nil)
	}

	if _, busy := s.uploading.LoadOrStore(ownerID, struct{}{}); busy {
		return nil, apperrors.Conflict(UploadBusyMessage)
	}
	defer s.uploading.Delete(ownerID)

	result := &BatchResult{Reports: []model.ReportView{}, Rejected: []Rejected{}}
	var cancelled error
	for _, f := range files {
		if !model.IsAllowedReport(f.Name, f.ContentType) {
			s.metrics.ReportUpload("rejected")
			result.Rejected = append(result.Rejected, Rejected{Name: f.Name, Message: model.ReportTypeMessage})
			continue
		}
		if cancelled == nil {
			cancelled = ctx.Err()
		}
		if cancelled != nil {
			report, err := s.recordFailed(ctx, patient, f)
			if err != nil {
				return result, err
			}
			result.Reports = append(result.Reports, report.View())
			continue
		}

		report, err := s.uploadOne(ctx, patient, f)
		if err != nil {
			return result, err
		}
		result.Reports = append(result.Reports, report.View())
	}
	if cancelled == nil {
		cancelled = ctx.Err()
	}
	return result, cancelled
}

// settleContext outlives the request so a report never stays Pending
// because the caller went away.
func settleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
}

func newReport(patient *model.CareRecipient, f File, status string) *model.MedicalReport {
	return &model.MedicalReport{
		ID:        uuid.New(),
		PatientID: patient.ID,
		OwnerID:   patient.OwnerID,
		FileName:  f.Name,
		Status:    status,
		FileType:  f.ContentType,
	}
}

// recordFailed stores an Error row for a file the batch never sent.
func (s *Service) recordFailed(ctx context.Context, patient *model.CareRecipient, f File) (*model.MedicalReport, error) {
	sctx, cancel := settleContext(ctx)
	defer cancel()

	report := newReport(patient, f, model.ReportStatusError)
	if err := s.repo.Create(sctx, report); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to create report: %w", err))
	}
	s.metrics.ReportUpload("error")
	s.events.Publish(sctx, event.Event{
		Type:      event.ReportUploaded,
		OwnerID:   patient.OwnerID,
		PatientID: patient.ID,
		RecordID:  report.ID,
		Report:    report,
	})
	return report, nil
}

func (s *Service) uploadOne(ctx context.Context, patient *model.CareRecipient, f File) (*model.MedicalReport, error) {
	report := newReport(patient, f, model.ReportStatusPending)
	if err := s.repo.Create(ctx, report); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to create report: %w", err))
	}

	res, err := s.send(ctx, patient, f)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).
			Str("patient_id", patient.ID.String()).
			Str("file", f.Name).
			Msg("Report upload failed")
		report.Status = model.ReportStatusError
		s.metrics.ReportUpload("error")
	} else {
		report.Status = res.Status
		report.SummaryText = res.Summary
		report.StoragePath = res.URL
		s.metrics.ReportUpload("success")
	}

	sctx, cancel := settleContext(ctx)
	defer cancel()
	if err := s.repo.UpdateResult(sctx, report); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("failed to update report: %w", err))
	}

	s.events.Publish(sctx, event.Event{
		Type:      event.ReportUploaded,
		OwnerID:   patient.OwnerID,
		PatientID: patient.ID,
		RecordID:  report.ID,
		Report:    report,
	})
	return report, nil
}

func (s *Service) send(ctx context.Context, patient *model.CareRecipient, f File) (*integration.UploadResult, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open report file: %w", err)
	}
	defer rc.Close()

	return s.uploader.Upload(ctx, integration.UploadRequest{
		AccountID:   patient.OwnerID,
		PatientID:   patient.ID,
		Patient:     patient,
		FileName:    f.Name,
		ContentType: f.ContentType,
		Content:     rc,
	})
}

// Ask forwards a question about the patient's reports. Nothing is sent
// without a patient and a non-blank question.
func (s *Service) Ask(ctx context.Context, ownerID, patientID uuid.UUID, question string) (*AskResult, error) {
	question = strings.TrimSpace(question)
	if patientID == uuid.Nil || question == "" {
		return nil, apperrors.BadRequest(AskRequiredMessage, nil)
	}
	if _, err := s.patients.Get(ctx, ownerID, patientID); err != nil {
		return nil, err
	}

	answer, err := s.answerer.Ask(ctx, ownerID, patientID, question)
	if err != nil {
		if errors.Is(err, integration.ErrNotConfigured) {
			return nil, apperrors.Unavailable(QANotConfigured)
		}
		zerolog.Ctx(ctx).Warn().Err(err).Str("patient_id", patientID.String()).Msg("Report question failed")
		return nil, apperrors.Upstream(model.ReportAnswerFailed, err)
	}

	parsed := integration.ParseAnswer(answer.Text)
	sources := answer.Sources
	if sources == nil {
		sources = []integration.Source{}
	}
	return &AskResult{Answer: parsed.Text, Link: parsed.Link, Sources: sources}, nil
}
