package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echocare/caregiver-api/internal/event"
	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository/memory"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

type fixture struct {
	db    *memory.Store
	store *Store
	owner uuid.UUID
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	db := memory.NewStore()
	loader := NewLoader(db.Patients(), db.Medications(), db.Reminders(), db.Appointments(), nil)
	return &fixture{db: db, store: NewStore(loader, cfg, nil), owner: uuid.New()}
}

func (f *fixture) patient(t *testing.T, name, contact string) *model.CareRecipient {
	t.Helper()
	p := &model.CareRecipient{OwnerID: f.owner, FullName: name, PrimaryContact: contact}
	require.NoError(t, f.db.Patients().Create(context.Background(), p))
	return p
}

func (f *fixture) medication(t *testing.T, patientID uuid.UUID, name string, end model.Date) *model.MedicationPlan {
	t.Helper()
	m := &model.MedicationPlan{ID: uuid.New(), PatientID: patientID, MedicineName: name, EndDate: end}
	require.NoError(t, f.db.Medications().Create(context.Background(), m))
	return m
}

func TestLoadAllGivesEveryPatientData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	a := f.patient(t, "Asha", "+919999888877")
	b := f.patient(t, "Bala", "+919999888866")
	f.medication(t, a.ID, "Metformin", model.Date{})

	board := f.store.Board(f.owner)
	require.NoError(t, board.LoadAll(ctx))

	view := board.View("", "UTC", time.Now())
	require.Len(t, view.Patients, 2)
	assert.Equal(t, b.ID, view.Patients[0].ID)
	assert.Equal(t, 0, view.Patients[0].Counts.Medications)
	assert.Equal(t, 1, view.Patients[1].Counts.Medications)

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		state, ok := board.Entry(id)
		require.True(t, ok)
		assert.True(t, state.Loaded)
		assert.False(t, state.Expanded)
	}
}

func TestToggleExpandsWithMedicationsTab(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	p := f.patient(t, "Asha", "+919999888877")
	board := f.store.Board(f.owner)

	state, err := board.Toggle(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, state.Expanded)
	assert.Equal(t, TabMedications, state.ActiveTab)

	_, err = board.SetTab(ctx, p.ID, "appointments")
	require.NoError(t, err)

	state, err = board.Toggle(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, state.Expanded)
	assert.Equal(t, TabAppointments, state.ActiveTab)
	assert.True(t, state.Loaded)

	state, err = board.Toggle(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, state.Expanded)
	assert.Equal(t, TabAppointments, state.ActiveTab)
}

func TestReexpandUsesCacheUntilStale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	p := f.patient(t, "Asha", "+919999888877")
	board := f.store.Board(f.owner)

	_, err := board.Toggle(ctx, p.ID)
	require.NoError(t, err)
	_, err = board.Toggle(ctx, p.ID)
	require.NoError(t, err)

	// Written behind the board's back.
	f.medication(t, p.ID, "Aspirin", model.Date{})

	_, err = board.Toggle(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, board.View("", "UTC", time.Now()).Patients[0].Counts.Medications)

	_, err = board.Toggle(ctx, p.ID)
	require.NoError(t, err)
	board.MarkStale(p.ID)
	state, _ := board.Entry(p.ID)
	assert.True(t, state.Stale)

	state, err = board.Toggle(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, state.Stale)
	assert.Equal(t, 1, board.View("", "UTC", time.Now()).Patients[0].Counts.Medications)
}

func TestFirstExpandRefetchesAfterLoadAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	p := f.patient(t, "Asha", "+919999888877")
	board := f.store.Board(f.owner)

	require.NoError(t, board.LoadAll(ctx))
	assert.Equal(t, 0, board.View("", "UTC", time.Now()).Patients[0].Counts.Medications)

	f.medication(t, p.ID, "Metformin", model.Date{})

	state, err := board.Toggle(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, state.Expanded)
	assert.Equal(t, 1, board.View("", "UTC", time.Now()).Patients[0].Counts.Medications)

	_, err = board.Toggle(ctx, p.ID)
	require.NoError(t, err)
	f.medication(t, p.ID, "Aspirin", model.Date{})

	_, err = board.Toggle(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, board.View("", "UTC", time.Now()).Patients[0].Counts.Medications)
}

func TestReexpandRefetchesOldData(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{StaleAfter: time.Minute})
	p := f.patient(t, "Asha", "+919999888877")
	board := f.store.Board(f.owner)

	clock := time.Now()
	board.now = func() time.Time { return clock }

	_, err := board.Toggle(ctx, p.ID)
	require.NoError(t, err)
	_, err = board.Toggle(ctx, p.ID)
	require.NoError(t, err)
	f.medication(t, p.ID, "Aspirin", model.Date{})

	clock = clock.Add(2 * time.Minute)
	_, err = board.Toggle(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, board.View("", "UTC", clock).Patients[0].Counts.Medications)
}

func TestToggleUnknownPatient(t *testing.T) {
	f := newFixture(t, Config{})
	_, err := f.store.Board(f.owner).Toggle(context.Background(), uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrNotFound))
}

func TestSetTabRejectsUnknownTab(t *testing.T) {
	f := newFixture(t, Config{})
	p := f.patient(t, "Asha", "+919999888877")
	_, err := f.store.Board(f.owner).SetTab(context.Background(), p.ID, "reports")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrValidation))
}

func TestApplyPatchesBoard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	p := f.patient(t, "Asha", "+919999888877")
	board := f.store.Board(f.owner)
	require.NoError(t, board.LoadAll(ctx))

	added := &model.CareRecipient{Base: model.Base{ID: uuid.New()}, OwnerID: f.owner, FullName: "Chitra"}
	f.store.Handle(ctx, event.Event{Type: event.PatientCreated, OwnerID: f.owner, PatientID: added.ID, Patient: added})
	view := board.View("", "UTC", time.Now())
	require.Len(t, view.Patients, 2)
	assert.Equal(t, "Chitra", view.Patients[0].FullName)

	renamed := *p
	renamed.FullName = "Asha R"
	f.store.Handle(ctx, event.Event{Type: event.PatientUpdated, OwnerID: f.owner, PatientID: p.ID, Patient: &renamed})
	assert.Equal(t, "Asha R", board.View("", "UTC", time.Now()).Patients[1].FullName)

	med := &model.MedicationPlan{ID: uuid.New(), PatientID: p.ID, MedicineName: "Metformin"}
	f.store.Handle(ctx, event.Event{Type: event.MedicationCreated, OwnerID: f.owner, PatientID: p.ID, Medication: med})
	assert.Equal(t, 1, board.View("", "UTC", time.Now()).Patients[1].Counts.Medications)

	f.store.Handle(ctx, event.Event{Type: event.MedicationDeleted, OwnerID: f.owner, PatientID: p.ID, RecordID: med.ID})
	assert.Equal(t, 0, board.View("", "UTC", time.Now()).Patients[1].Counts.Medications)

	f.store.Handle(ctx, event.Event{Type: event.PatientDeleted, OwnerID: f.owner, PatientID: added.ID})
	view = board.View("", "UTC", time.Now())
	require.Len(t, view.Patients, 1)
	_, ok := board.Entry(added.ID)
	assert.False(t, ok)
}

func TestRemoteEventsInvalidate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	p := f.patient(t, "Asha", "+919999888877")
	board := f.store.Board(f.owner)
	require.NoError(t, board.LoadAll(ctx))

	med := &model.MedicationPlan{ID: uuid.New(), PatientID: p.ID}
	f.store.Handle(ctx, event.Event{Type: event.MedicationCreated, OwnerID: f.owner, PatientID: p.ID, Medication: med, Source: "other"})
	state, _ := board.Entry(p.ID)
	assert.True(t, state.Stale)
	assert.Equal(t, 0, board.View("", "UTC", time.Now()).Patients[0].Counts.Medications)

	f.store.Handle(ctx, event.Event{Type: event.PatientCreated, OwnerID: f.owner, Source: "other"})
	assert.True(t, board.ListStale())
}

func TestViewFiltersAndClassifies(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	p := f.patient(t, "Asha Rao", "+919999888877")
	f.patient(t, "Bala", "+918888777766")

	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	f.medication(t, p.ID, "Ongoing", model.Date{})
	f.medication(t, p.ID, "Finished", model.NewDate(now.AddDate(0, 0, -1)))
	f.medication(t, p.ID, "EndsToday", model.NewDate(now))

	board := f.store.Board(f.owner)
	_, err := board.Toggle(ctx, p.ID)
	require.NoError(t, err)

	view := board.View("9999", "UTC", now)
	require.Len(t, view.Patients, 1)
	pv := view.Patients[0]
	require.NotNil(t, pv.Detail)
	assert.Len(t, pv.Detail.Medications.Upcoming, 2)
	require.Len(t, pv.Detail.Medications.Past, 1)
	assert.Equal(t, "Finished", pv.Detail.Medications.Past[0].MedicineName)
	assert.Equal(t, "Not set", pv.DateOfBirthDisplay)

	view = board.View("bala", "UTC", now)
	require.Len(t, view.Patients, 1)
	assert.Nil(t, view.Patients[0].Detail)
}

func TestStoreReusesBoards(t *testing.T) {
	f := newFixture(t, Config{})
	assert.Same(t, f.store.Board(f.owner), f.store.Board(f.owner))

	_, ok := f.store.Peek(uuid.New())
	assert.False(t, ok)
}

func TestRefreshStale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, Config{})
	p := f.patient(t, "Asha", "+919999888877")
	board := f.store.Board(f.owner)
	_, err := board.Toggle(ctx, p.ID)
	require.NoError(t, err)

	f.medication(t, p.ID, "Aspirin", model.Date{})
	f.store.MarkStale(f.owner, p.ID)

	n, err := f.store.RefreshStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, board.View("", "UTC", time.Now()).Patients[0].Counts.Medications)

	n, err = f.store.RefreshStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
