package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
)

const reportColumns = `
	id, patient_id, owner_id,
	COALESCE(file_name, '') AS file_name,
	COALESCE(storage_path, '') AS storage_path,
	COALESCE(external_url, '') AS external_url,
	COALESCE(status, '') AS status,
	COALESCE(summary_text, '') AS summary_text,
	COALESCE(file_type, '') AS file_type,
	created_at`

type reportRepository struct {
	BaseRepository
}

func NewReportRepository(base BaseRepository) repository.ReportRepository {
	return &reportRepository{base}
}

func (r *reportRepository) Create(ctx context.Context, report *model.MedicalReport) error {
	query := `
		INSERT INTO medical_reports (
			id, patient_id, owner_id, file_name, storage_path, external_url,
			status, summary_text, file_type, created_at
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, NULLIF($8, ''), NULLIF($9, ''), $10)
	`
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		report.ID,
		report.PatientID,
		report.OwnerID,
		report.FileName,
		report.StoragePath,
		report.ExternalURL,
		report.Status,
		report.SummaryText,
		report.FileType,
		report.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create medical report: %w", err)
	}
	return nil
}

func (r *reportRepository) UpdateResult(ctx context.Context, report *model.MedicalReport) error {
	query := `
		UPDATE medical_reports
		SET status = $1, summary_text = NULLIF($2, ''), storage_path = NULLIF($3, ''), external_url = NULLIF($4, '')
		WHERE id = $5 AND owner_id = $6
	`
	res, err := r.db.ExecContext(ctx, query,
		report.Status,
		report.SummaryText,
		report.StoragePath,
		report.ExternalURL,
		report.ID,
		report.OwnerID,
	)
	if err != nil {
		return fmt.Errorf("failed to update medical report: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("failed to update medical report: %w", err)
	}
	return nil
}

func (r *reportRepository) Delete(ctx context.Context, ownerID, patientID, id uuid.UUID) error {
	query := `DELETE FROM medical_reports WHERE id = $1 AND patient_id = $2 AND owner_id = $3`
	res, err := r.db.ExecContext(ctx, query, id, patientID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete medical report: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("failed to delete medical report: %w", err)
	}
	return nil
}

func (r *reportRepository) ListByPatient(ctx context.Context, ownerID, patientID uuid.UUID) ([]*model.MedicalReport, error) {
	query := `SELECT ` + reportColumns + ` FROM medical_reports WHERE patient_id = $1 AND owner_id = $2 ORDER BY created_at DESC`
	reports := []*model.MedicalReport{}
	if err := r.db.SelectContext(ctx, &reports, query, patientID, ownerID); err != nil {
		return nil, fmt.Errorf("failed to list medical reports: %w", err)
	}
	return reports, nil
}
