package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
)

const appointmentColumns = `
	id, patient_id, created_by, doctor_name,
	COALESCE(specialization, '') AS specialization,
	COALESCE(hospital, '') AS hospital,
	COALESCE(address, '') AS address,
	COALESCE(phone, '') AS phone,
	appointment_at, status,
	COALESCE(notes, '') AS notes,
	remind_2days, remind_1hour, notify_sms, notify_call, notify_whatsapp,
	created_at`

type appointmentRepository struct {
	BaseRepository
}

func NewAppointmentRepository(base BaseRepository) repository.AppointmentRepository {
	return &appointmentRepository{base}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, patient_id, created_by, doctor_name, specialization, hospital, address,
			phone, appointment_at, status, notes, remind_2days, remind_1hour,
			notify_sms, notify_call, notify_whatsapp, created_at
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9, $10, NULLIF($11, ''), $12, $13, $14, $15, $16, $17)
	`
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	appointment.CreatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.CreatedBy,
		appointment.DoctorName,
		appointment.Specialization,
		appointment.Hospital,
		appointment.Address,
		appointment.Phone,
		appointment.AppointmentAt,
		appointment.Status,
		appointment.Notes,
		appointment.Remind2Days,
		appointment.Remind1Hour,
		appointment.NotifySMS,
		appointment.NotifyCall,
		appointment.NotifyWhatsapp,
		appointment.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, patientID, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM appointments WHERE id = $1 AND patient_id = $2`, id, patientID)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE patient_id = $1 ORDER BY appointment_at ASC NULLS LAST`
	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListByPatients(ctx context.Context, patientIDs []uuid.UUID) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE patient_id IN (?) ORDER BY appointment_at ASC NULLS LAST`
	appointments := []*model.Appointment{}
	if err := r.selectIn(ctx, &appointments, query, patientIDs); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}
