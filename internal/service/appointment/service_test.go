package appointment

import (
	"context"
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echocare/caregiver-api/internal/event"
	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository/memory"
	"github.com/echocare/caregiver-api/internal/service/patient"
	"github.com/echocare/caregiver-api/internal/service/servicetest"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

func setup(t *testing.T) (*Service, *servicetest.Notifier, *servicetest.Publisher, uuid.UUID, *model.CareRecipient) {
	t.Helper()
	db := memory.NewStore()
	owner := uuid.New()
	patients := patient.NewService(db.Patients(), &servicetest.Notifier{}, &servicetest.Publisher{})
	p, err := patients.Create(context.Background(), owner, model.PatientForm{
		FullName: "Asha", PrimaryContact: "+919999888877", Timezone: "Europe/Istanbul",
	})
	require.NoError(t, err)
	n, pub := &servicetest.Notifier{}, &servicetest.Publisher{}
	return NewService(db.Appointments(), patients, n, pub), n, pub, owner, p
}

func TestCreateAppointment(t *testing.T) {
	ctx := context.Background()
	svc, n, pub, owner, p := setup(t)

	a, err := svc.Create(ctx, owner, model.AppointmentForm{
		PatientID:     p.ID,
		DoctorName:    "Dr. Rao",
		AppointmentAt: "2024-03-10T15:30",
		NotificationFlags: model.NotificationFlags{
			NotifySMS: true,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "scheduled", a.Status)
	assert.Equal(t, time.Date(2024, 3, 10, 12, 30, 0, 0, time.UTC), *a.AppointmentAt)
	assert.True(t, a.NotifySMS)

	calls := n.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "appointment.created", calls[0].Event)
	assert.Equal(t, event.AppointmentCreated, pub.Events()[0].Type)

	body, err := json.Marshal(calls[0].Data)
	require.NoError(t, err)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "2024-03-10T15:30:00+03:00", payload["appointment_at"])
	assert.Equal(t, "Dr. Rao", payload["doctor_name"])
	assert.Equal(t, true, payload["notify_sms"])
}

func TestAppointmentWebhookWithoutTime(t *testing.T) {
	svc, n, _, owner, p := setup(t)
	_, err := svc.Create(context.Background(), owner, model.AppointmentForm{PatientID: p.ID, DoctorName: "Dr. Rao"})
	require.NoError(t, err)

	body, err := json.Marshal(n.Calls()[0].Data)
	require.NoError(t, err)
	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &payload))
	v, ok := payload["appointment_at"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestCreateAppointmentWithoutTime(t *testing.T) {
	svc, _, _, owner, p := setup(t)
	a, err := svc.Create(context.Background(), owner, model.AppointmentForm{PatientID: p.ID, DoctorName: "Dr. Rao"})
	require.NoError(t, err)
	assert.Nil(t, a.AppointmentAt)
}

func TestCreateAppointmentRejectsStatus(t *testing.T) {
	svc, _, _, owner, p := setup(t)
	_, err := svc.Create(context.Background(), owner, model.AppointmentForm{PatientID: p.ID, DoctorName: "Dr. Rao", Status: "maybe"})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestDeleteAppointment(t *testing.T) {
	ctx := context.Background()
	svc, _, pub, owner, p := setup(t)
	a, err := svc.Create(ctx, owner, model.AppointmentForm{PatientID: p.ID, DoctorName: "Dr. Rao"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner, p.ID, a.ID))
	events := pub.Events()
	assert.Equal(t, event.AppointmentDeleted, events[len(events)-1].Type)

	_, err = svc.List(ctx, uuid.New(), p.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}
