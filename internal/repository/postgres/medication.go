package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
)

const medicationColumns = `
	id, patient_id, created_by, medicine_name,
	COALESCE(dosage, '') AS dosage,
	form, frequency_unit, frequency_value, times_per_day, dose_times,
	food_timing, start_date, end_date,
	COALESCE(notes, '') AS notes,
	remind_weekly, created_at`

type medicationRepository struct {
	BaseRepository
}

func NewMedicationRepository(base BaseRepository) repository.MedicationRepository {
	return &medicationRepository{base}
}

func (r *medicationRepository) Create(ctx context.Context, plan *model.MedicationPlan) error {
	query := `
		INSERT INTO medication_plans (
			id, patient_id, created_by, medicine_name, dosage, form, frequency_unit,
			frequency_value, times_per_day, dose_times, food_timing, start_date,
			end_date, notes, remind_weekly, created_at
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, $11, $12, $13, NULLIF($14, ''), $15, $16)
	`
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	plan.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		plan.ID,
		plan.PatientID,
		plan.CreatedBy,
		plan.MedicineName,
		plan.Dosage,
		plan.Form,
		plan.FrequencyUnit,
		plan.FrequencyValue,
		plan.TimesPerDay,
		plan.DoseTimes,
		plan.FoodTiming,
		plan.StartDate,
		plan.EndDate,
		plan.Notes,
		plan.RemindWeekly,
		plan.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create medication plan: %w", err)
	}
	return nil
}

func (r *medicationRepository) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM medication_plans WHERE id = $1 AND patient_id = $2`, id, patientID)
	if err != nil {
		return fmt.Errorf("failed to delete medication plan: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("failed to delete medication plan: %w", err)
	}
	return nil
}

func (r *medicationRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.MedicationPlan, error) {
	query := `SELECT ` + medicationColumns + ` FROM medication_plans WHERE patient_id = $1 ORDER BY created_at DESC`
	plans := []*model.MedicationPlan{}
	if err := r.db.SelectContext(ctx, &plans, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list medication plans: %w", err)
	}
	return plans, nil
}

func (r *medicationRepository) ListByPatients(ctx context.Context, patientIDs []uuid.UUID) ([]*model.MedicationPlan, error) {
	query := `SELECT ` + medicationColumns + ` FROM medication_plans WHERE patient_id IN (?) ORDER BY created_at DESC`
	plans := []*model.MedicationPlan{}
	if err := r.selectIn(ctx, &plans, query, patientIDs); err != nil {
		return nil, fmt.Errorf("failed to list medication plans: %w", err)
	}
	return plans, nil
}
