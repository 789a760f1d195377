package dashboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
	"github.com/echocare/caregiver-api/pkg/metrics"
)

// NestedData is the set of records shown under one care recipient.
type NestedData struct {
	Medications  []*model.MedicationPlan `json:"medications"`
	Reminders    []*model.Reminder       `json:"reminders"`
	Appointments []*model.Appointment    `json:"appointments"`
}

func emptyData() *NestedData {
	return &NestedData{
		Medications:  []*model.MedicationPlan{},
		Reminders:    []*model.Reminder{},
		Appointments: []*model.Appointment{},
	}
}

// Loader reads dashboard data from the repositories.
type Loader struct {
	patients     repository.PatientRepository
	medications  repository.MedicationRepository
	reminders    repository.ReminderRepository
	appointments repository.AppointmentRepository
	metrics      *metrics.Metrics
}

func NewLoader(
	patients repository.PatientRepository,
	medications repository.MedicationRepository,
	reminders repository.ReminderRepository,
	appointments repository.AppointmentRepository,
	m *metrics.Metrics,
) *Loader {
	return &Loader{
		patients:     patients,
		medications:  medications,
		reminders:    reminders,
		appointments: appointments,
		metrics:      m,
	}
}

func (l *Loader) Patients(ctx context.Context, ownerID uuid.UUID) ([]*model.CareRecipient, error) {
	patients, err := l.patients.ListByOwner(ctx, ownerID)
	l.metrics.DatabaseOperation("list_patients", err)
	return patients, err
}

// LoadAll fetches the nested records of every id with one query per
// collection and groups the rows by patient. Every id gets an entry with
// non-nil lists, empty when it has no rows.
func (l *Loader) LoadAll(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*NestedData, error) {
	out := make(map[uuid.UUID]*NestedData, len(ids))
	for _, id := range ids {
		out[id] = emptyData()
	}
	if len(ids) == 0 {
		return out, nil
	}

	meds, err := l.medications.ListByPatients(ctx, ids)
	l.metrics.DatabaseOperation("list_medications", err)
	if err != nil {
		l.metrics.DashboardLoad("all", "error")
		return nil, fmt.Errorf("failed to load medications: %w", err)
	}
	reminders, err := l.reminders.ListByPatients(ctx, ids)
	l.metrics.DatabaseOperation("list_reminders", err)
	if err != nil {
		l.metrics.DashboardLoad("all", "error")
		return nil, fmt.Errorf("failed to load reminders: %w", err)
	}
	appointments, err := l.appointments.ListByPatients(ctx, ids)
	l.metrics.DatabaseOperation("list_appointments", err)
	if err != nil {
		l.metrics.DashboardLoad("all", "error")
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}

	for _, m := range meds {
		if d, ok := out[m.PatientID]; ok {
			d.Medications = append(d.Medications, m)
		}
	}
	for _, r := range reminders {
		if d, ok := out[r.PatientID]; ok {
			d.Reminders = append(d.Reminders, r)
		}
	}
	for _, a := range appointments {
		if d, ok := out[a.PatientID]; ok {
			d.Appointments = append(d.Appointments, a)
		}
	}

	l.metrics.DashboardLoad("all", "success")
	return out, nil
}

// LoadOne refreshes the nested records of a single patient.
func (l *Loader) LoadOne(ctx context.Context, id uuid.UUID) (*NestedData, error) {
	data := emptyData()

	meds, err := l.medications.ListByPatient(ctx, id)
	if err != nil {
		l.metrics.DashboardLoad("one", "error")
		return nil, fmt.Errorf("failed to load medications: %w", err)
	}
	reminders, err := l.reminders.ListByPatient(ctx, id)
	if err != nil {
		l.metrics.DashboardLoad("one", "error")
		return nil, fmt.Errorf("failed to load reminders: %w", err)
	}
	appointments, err := l.appointments.ListByPatient(ctx, id)
	if err != nil {
		l.metrics.DashboardLoad("one", "error")
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}

	data.Medications = append(data.Medications, meds...)
	data.Reminders = append(data.Reminders, reminders...)
	data.Appointments = append(data.Appointments, appointments...)

	l.metrics.DashboardLoad("one", "success")
	return data, nil
}
