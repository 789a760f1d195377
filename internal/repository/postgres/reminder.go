package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
)

const reminderColumns = `
	id, patient_id, created_by, title,
	COALESCE(description, '') AS description,
	frequency_unit, frequency_value, start_datetime, end_datetime, repeat_count,
	COALESCE(notify_channel, '') AS notify_channel,
	remind_2days, remind_1hour, notify_sms, notify_call, notify_whatsapp,
	created_at`

type reminderRepository struct {
	BaseRepository
}

func NewReminderRepository(base BaseRepository) repository.ReminderRepository {
	return &reminderRepository{base}
}

func (r *reminderRepository) Create(ctx context.Context, reminder *model.Reminder) error {
	query := `
		INSERT INTO general_reminders (
			id, patient_id, created_by, title, description, frequency_unit,
			frequency_value, start_datetime, end_datetime, repeat_count, notify_channel,
			remind_2days, remind_1hour, notify_sms, notify_call, notify_whatsapp, created_at
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13, $14, $15, $16, $17)
	`
	if reminder.ID == uuid.Nil {
		reminder.ID = uuid.New()
	}
	reminder.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		reminder.ID,
		reminder.PatientID,
		reminder.CreatedBy,
		reminder.Title,
		reminder.Description,
		reminder.FrequencyUnit,
		reminder.FrequencyValue,
		reminder.StartDatetime,
		reminder.EndDatetime,
		reminder.RepeatCount,
		reminder.NotifyChannel,
		reminder.Remind2Days,
		reminder.Remind1Hour,
		reminder.NotifySMS,
		reminder.NotifyCall,
		reminder.NotifyWhatsapp,
		reminder.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create reminder: %w", err)
	}
	return nil
}

func (r *reminderRepository) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM general_reminders WHERE id = $1 AND patient_id = $2`, id, patientID)
	if err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("failed to delete reminder: %w", err)
	}
	return nil
}

func (r *reminderRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM general_reminders WHERE patient_id = $1 ORDER BY start_datetime ASC NULLS LAST`
	reminders := []*model.Reminder{}
	if err := r.db.SelectContext(ctx, &reminders, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return reminders, nil
}

func (r *reminderRepository) ListByPatients(ctx context.Context, patientIDs []uuid.UUID) ([]*model.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM general_reminders WHERE patient_id IN (?) ORDER BY start_datetime ASC NULLS LAST`
	reminders := []*model.Reminder{}
	if err := r.selectIn(ctx, &reminders, query, patientIDs); err != nil {
		return nil, fmt.Errorf("failed to list reminders: %w", err)
	}
	return reminders, nil
}
