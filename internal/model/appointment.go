package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled   AppointmentStatus = "scheduled"
	AppointmentStatusRescheduled AppointmentStatus = "rescheduled"
	AppointmentStatusCompleted   AppointmentStatus = "completed"
	AppointmentStatusCancelled   AppointmentStatus = "cancelled"
	AppointmentStatusNoShow      AppointmentStatus = "no_show"
)

const (
	AppointmentRequiredMessage = "Patient and doctor name are required"
	AppointmentCreatedMessage  = "Appointment added successfully!"
	AppointmentDeletedMessage  = "Appointment deleted successfully!"
)

type Appointment struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	CreatedBy      uuid.UUID  `db:"created_by" json:"created_by"`
	DoctorName     string     `db:"doctor_name" json:"doctor_name"`
	Specialization string     `db:"specialization" json:"specialization"`
	Hospital       string     `db:"hospital" json:"hospital"`
	Address        string     `db:"address" json:"address"`
	Phone          string     `db:"phone" json:"phone"`
	AppointmentAt  *time.Time `db:"appointment_at" json:"appointment_at"`
	Status         string     `db:"status" json:"status"`
	Notes          string     `db:"notes" json:"notes"`
	NotificationFlags
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// AppointmentPayload is the webhook body for an appointment, with the
// appointment time in the recipient's zone.
type AppointmentPayload struct {
	*Appointment
	AppointmentAt *string `json:"appointment_at"`
}

func (a *Appointment) WebhookPayload(zone string) AppointmentPayload {
	return AppointmentPayload{Appointment: a, AppointmentAt: zoned(a.AppointmentAt, zone)}
}

// AppointmentForm is the create payload. AppointmentAt is a wall-clock value
// in the care recipient's zone unless it carries an offset.
type AppointmentForm struct {
	PatientID      uuid.UUID `json:"patient_id"`
	DoctorName     string    `json:"doctor_name" validate:"required"`
	Specialization string    `json:"specialization"`
	Hospital       string    `json:"hospital"`
	Address        string    `json:"address"`
	Phone          string    `json:"phone"`
	AppointmentAt  string    `json:"appointment_at" validate:"omitempty,localtime"`
	Status         string    `json:"status" validate:"oneof=scheduled rescheduled completed cancelled no_show"`
	Notes          string    `json:"notes"`
	NotificationFlags
}

func (f AppointmentForm) WithDefaults() AppointmentForm {
	if f.Status == "" {
		f.Status = string(AppointmentStatusScheduled)
	}
	return f
}

func (f AppointmentForm) Validate() []apperrors.FieldError {
	f.DoctorName = strings.TrimSpace(f.DoctorName)
	f.AppointmentAt = strings.TrimSpace(f.AppointmentAt)
	fields := fieldErrors(Validator().Struct(f), map[string]string{
		"doctor_name.required": "Doctor name is required",
	})
	if f.PatientID == uuid.Nil {
		fields = append(fields, apperrors.FieldError{Field: "patient_id", Message: "Patient is required"})
	}
	return fields
}

func (f AppointmentForm) Check() error {
	missing := f.PatientID == uuid.Nil || strings.TrimSpace(f.DoctorName) == ""
	return check(f.Validate(), missing, AppointmentRequiredMessage)
}

// Appointment builds the record to insert; at must already be UTC.
func (f AppointmentForm) Appointment(createdBy uuid.UUID, at *time.Time) *Appointment {
	return &Appointment{
		ID:                uuid.New(),
		PatientID:         f.PatientID,
		CreatedBy:         createdBy,
		DoctorName:        strings.TrimSpace(f.DoctorName),
		Specialization:    f.Specialization,
		Hospital:          f.Hospital,
		Address:           f.Address,
		Phone:             f.Phone,
		AppointmentAt:     at,
		Status:            f.Status,
		Notes:             f.Notes,
		NotificationFlags: f.NotificationFlags,
	}
}
