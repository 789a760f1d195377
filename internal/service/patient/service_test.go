package patient

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echocare/caregiver-api/internal/event"
	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository/memory"
	"github.com/echocare/caregiver-api/internal/service/servicetest"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

func setup() (*Service, *servicetest.Notifier, *servicetest.Publisher) {
	n := &servicetest.Notifier{}
	p := &servicetest.Publisher{}
	return NewService(memory.NewStore().Patients(), n, p), n, p
}

func validForm() model.PatientForm {
	return model.PatientForm{FullName: "Asha Rao", PrimaryContact: "+919999888877", Timezone: "Asia/Kolkata"}
}

func TestCreatePatient(t *testing.T) {
	ctx := context.Background()
	svc, n, p := setup()
	owner := uuid.New()

	patient, err := svc.Create(ctx, owner, validForm())
	require.NoError(t, err)
	assert.Equal(t, owner, patient.OwnerID)
	assert.Equal(t, "Asia/Kolkata", patient.Timezone)

	calls := n.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "patient.created", calls[0].Event)
	assert.Equal(t, owner, calls[0].AccountID)
	data := calls[0].Data.(map[string]interface{})
	assert.Equal(t, owner, data["owner_id"])
	assert.Equal(t, "Asha Rao", data["full_name"])

	events := p.Events()
	require.Len(t, events, 1)
	assert.Equal(t, event.PatientCreated, events[0].Type)
	assert.Equal(t, patient.ID, events[0].Patient.ID)
}

func TestCreatePatientRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	svc, n, _ := setup()
	owner := uuid.New()
	_, err := svc.Create(ctx, owner, validForm())
	require.NoError(t, err)

	form := validForm()
	form.FullName = "  ASHA rao "
	_, err = svc.Create(ctx, owner, form)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
	assert.Equal(t, model.PatientDuplicateMessage, appErr.Message)
	assert.Len(t, n.Calls(), 1)

	// Another caregiver may add the same person.
	_, err = svc.Create(ctx, uuid.New(), validForm())
	assert.NoError(t, err)
}

func TestCreatePatientValidationSkipsEverything(t *testing.T) {
	svc, n, p := setup()
	_, err := svc.Create(context.Background(), uuid.New(), model.PatientForm{FullName: "Asha", PrimaryContact: "12345"})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, model.PatientPhoneFixMessage, appErr.Message)
	assert.Empty(t, n.Calls())
	assert.Empty(t, p.Events())
}

func TestUpdatePatient(t *testing.T) {
	ctx := context.Background()
	svc, n, p := setup()
	owner := uuid.New()
	created, err := svc.Create(ctx, owner, validForm())
	require.NoError(t, err)

	form := validForm()
	form.Notes = "Allergic to penicillin"
	updated, err := svc.Update(ctx, owner, created.ID, form)
	require.NoError(t, err)
	assert.Equal(t, "Allergic to penicillin", updated.Notes)

	calls, events := n.Calls(), p.Events()
	require.Len(t, calls, 2)
	assert.Equal(t, "patient.updated", calls[1].Event)
	assert.Equal(t, created.ID, calls[1].Data.(map[string]interface{})["id"])
	assert.Equal(t, event.PatientUpdated, events[1].Type)

	_, err = svc.Update(ctx, uuid.New(), created.ID, form)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestDeletePatient(t *testing.T) {
	ctx := context.Background()
	svc, n, p := setup()
	owner := uuid.New()
	created, err := svc.Create(ctx, owner, validForm())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner, created.ID))
	calls, events := n.Calls(), p.Events()
	assert.Equal(t, "patient.deleted", calls[1].Event)
	assert.Equal(t, map[string]interface{}{"patient_id": created.ID}, calls[1].Data)
	assert.Equal(t, event.PatientDeleted, events[1].Type)

	err = svc.Delete(ctx, owner, created.ID)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestListPatientsFilters(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setup()
	owner := uuid.New()
	_, err := svc.Create(ctx, owner, validForm())
	require.NoError(t, err)
	_, err = svc.Create(ctx, owner, model.PatientForm{FullName: "Bala", PrimaryContact: "+918888777766"})
	require.NoError(t, err)

	all, err := svc.List(ctx, owner, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Bala", all[0].FullName)

	found, err := svc.List(ctx, owner, "RAO")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Asha Rao", found[0].FullName)
}
