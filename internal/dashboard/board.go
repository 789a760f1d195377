// Package dashboard holds the per-account dashboard state: the caregiver's
// care recipients, which of them are expanded, the tab shown for each and
// the nested records cached for them.
//
// Cached data is patched in place after local changes. Changes made
// elsewhere are not merged: they mark entries stale, and stale entries are
// refetched on the next expand or by the background refresher. The last
// fetch wins.
package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/event"
	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/repository"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

type Tab string

const (
	TabMedications  Tab = "medications"
	TabReminders    Tab = "reminders"
	TabAppointments Tab = "appointments"
)

func ParseTab(s string) (Tab, bool) {
	switch Tab(s) {
	case TabMedications, TabReminders, TabAppointments:
		return Tab(s), true
	}
	return "", false
}

// Entry is the state kept for one care recipient. Collapsing keeps Data
// and ActiveTab so a later expand can render at once. Opened is set once
// an expand has fetched the patient's own records.
type Entry struct {
	Expanded  bool
	Opened    bool
	ActiveTab Tab
	Data      *NestedData
	LoadedAt  time.Time
	Stale     bool
}

// EntryState is a copy of an entry returned to callers.
type EntryState struct {
	PatientID uuid.UUID  `json:"patient_id"`
	Expanded  bool       `json:"expanded"`
	ActiveTab Tab        `json:"active_tab,omitempty"`
	Loaded    bool       `json:"loaded"`
	LoadedAt  *time.Time `json:"loaded_at,omitempty"`
	Stale     bool       `json:"stale"`
}

// Board is the dashboard of one caregiver account.
type Board struct {
	mu         sync.Mutex
	ownerID    uuid.UUID
	loader     *Loader
	staleAfter time.Duration
	now        func() time.Time

	patients   []*model.CareRecipient
	entries    map[uuid.UUID]*Entry
	loaded     bool
	listStale  bool
	lastLoaded time.Time
}

func newBoard(ownerID uuid.UUID, loader *Loader, staleAfter time.Duration, now func() time.Time) *Board {
	if now == nil {
		now = time.Now
	}
	return &Board{
		ownerID:    ownerID,
		loader:     loader,
		staleAfter: staleAfter,
		now:        now,
		entries:    make(map[uuid.UUID]*Entry),
	}
}

func (b *Board) OwnerID() uuid.UUID { return b.ownerID }

// Ensure loads the board when it has never been loaded or when its
// patient list was invalidated.
func (b *Board) Ensure(ctx context.Context) error {
	b.mu.Lock()
	fresh := b.loaded && !b.listStale
	b.mu.Unlock()
	if fresh {
		return nil
	}
	return b.LoadAll(ctx)
}

// LoadAll reloads the patient list and every patient's nested records.
// View state of patients that still exist is kept.
func (b *Board) LoadAll(ctx context.Context) error {
	patients, err := b.loader.Patients(ctx, b.ownerID)
	if err != nil {
		return apperrors.Internal(err)
	}
	ids := make([]uuid.UUID, len(patients))
	for i, p := range patients {
		ids[i] = p.ID
	}
	data, err := b.loader.LoadAll(ctx, ids)
	if err != nil {
		return apperrors.Internal(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	entries := make(map[uuid.UUID]*Entry, len(patients))
	for _, p := range patients {
		e, ok := b.entries[p.ID]
		if !ok {
			e = &Entry{}
		}
		e.Data = data[p.ID]
		e.LoadedAt = now
		e.Stale = false
		entries[p.ID] = e
	}
	b.patients = patients
	b.entries = entries
	b.loaded = true
	b.listStale = false
	b.lastLoaded = now
	return nil
}

// LoadOne refreshes a single patient's nested records.
func (b *Board) LoadOne(ctx context.Context, patientID uuid.UUID) (EntryState, error) {
	if err := b.Ensure(ctx); err != nil {
		return EntryState{}, err
	}
	b.mu.Lock()
	_, ok := b.entries[patientID]
	b.mu.Unlock()
	if !ok {
		return EntryState{}, apperrors.NotFound("Patient", repository.ErrNotFound)
	}
	return b.refresh(ctx, patientID)
}

func (b *Board) refresh(ctx context.Context, patientID uuid.UUID) (EntryState, error) {
	data, err := b.loader.LoadOne(ctx, patientID)
	if err != nil {
		return EntryState{}, apperrors.Internal(err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[patientID]
	if !ok {
		// Deleted while loading.
		return EntryState{}, apperrors.NotFound("Patient", repository.ErrNotFound)
	}
	e.Data = data
	e.LoadedAt = b.now()
	e.Stale = false
	return e.state(patientID), nil
}

// needsLoad reports whether an entry must be fetched before it is shown.
func (b *Board) needsLoad(e *Entry) bool {
	if e.Data == nil || e.Stale {
		return true
	}
	return b.staleAfter > 0 && b.now().Sub(e.LoadedAt) > b.staleAfter
}

// Toggle collapses an expanded patient or expands a collapsed one. The
// first expand selects the medications tab and always fetches the
// patient's records. Later expands fetch only when the cache is stale.
func (b *Board) Toggle(ctx context.Context, patientID uuid.UUID) (EntryState, error) {
	if err := b.Ensure(ctx); err != nil {
		return EntryState{}, err
	}

	b.mu.Lock()
	e, ok := b.entries[patientID]
	if !ok {
		b.mu.Unlock()
		return EntryState{}, apperrors.NotFound("Patient", repository.ErrNotFound)
	}
	if e.Expanded {
		e.Expanded = false
		state := e.state(patientID)
		b.mu.Unlock()
		return state, nil
	}
	e.Expanded = true
	if e.ActiveTab == "" {
		e.ActiveTab = TabMedications
	}
	load := !e.Opened || b.needsLoad(e)
	state := e.state(patientID)
	b.mu.Unlock()

	if !load {
		return state, nil
	}
	state, err := b.refresh(ctx, patientID)
	if err != nil {
		return state, err
	}
	b.mu.Lock()
	if e, ok := b.entries[patientID]; ok {
		e.Opened = true
	}
	b.mu.Unlock()
	return state, nil
}

// SetTab selects the sub-tab shown for a patient.
func (b *Board) SetTab(ctx context.Context, patientID uuid.UUID, tab string) (EntryState, error) {
	t, ok := ParseTab(tab)
	if !ok {
		return EntryState{}, apperrors.Validation("Invalid tab", []apperrors.FieldError{{
			Field:   "tab",
			Message: "Tab must be one of: medications, reminders, appointments",
		}})
	}
	if err := b.Ensure(ctx); err != nil {
		return EntryState{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[patientID]
	if !ok {
		return EntryState{}, apperrors.NotFound("Patient", repository.ErrNotFound)
	}
	e.ActiveTab = t
	return e.state(patientID), nil
}

// Entry returns a copy of the state of one patient.
func (b *Board) Entry(patientID uuid.UUID) (EntryState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[patientID]
	if !ok {
		return EntryState{}, false
	}
	return e.state(patientID), true
}

func (e *Entry) state(id uuid.UUID) EntryState {
	s := EntryState{
		PatientID: id,
		Expanded:  e.Expanded,
		ActiveTab: e.ActiveTab,
		Loaded:    e.Data != nil,
		Stale:     e.Stale,
	}
	if !e.LoadedAt.IsZero() {
		t := e.LoadedAt
		s.LoadedAt = &t
	}
	return s
}

// MarkStale flags one patient's cached records as out of date.
func (b *Board) MarkStale(patientID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.entries[patientID]; ok {
		e.Stale = true
	}
}

// StaleExpanded lists expanded patients whose records need a refetch.
func (b *Board) StaleExpanded() []uuid.UUID {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []uuid.UUID
	for _, p := range b.patients {
		if e := b.entries[p.ID]; e != nil && e.Expanded && b.needsLoad(e) {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// Refresh refetches the given patients, skipping any deleted meanwhile.
func (b *Board) Refresh(ctx context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		if _, err := b.refresh(ctx, id); err != nil {
			if apperrors.IsCode(err, apperrors.ErrNotFound) {
				continue
			}
			return err
		}
	}
	return nil
}

// Apply patches the board for an event raised by this instance. Events
// from other instances only invalidate.
func (b *Board) Apply(e event.Event) {
	if e.Remote() {
		b.invalidate(e)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch e.Type {
	case event.PatientCreated:
		if e.Patient == nil {
			return
		}
		if _, ok := b.entries[e.Patient.ID]; ok {
			return
		}
		b.patients = append([]*model.CareRecipient{e.Patient}, b.patients...)
		b.entries[e.Patient.ID] = &Entry{Data: emptyData(), LoadedAt: b.now()}

	case event.PatientUpdated:
		if e.Patient == nil {
			return
		}
		for i, p := range b.patients {
			if p.ID == e.Patient.ID {
				b.patients[i] = e.Patient
				break
			}
		}

	case event.PatientDeleted:
		for i, p := range b.patients {
			if p.ID == e.PatientID {
				b.patients = append(b.patients[:i:i], b.patients[i+1:]...)
				break
			}
		}
		delete(b.entries, e.PatientID)

	case event.MedicationCreated:
		if d := b.data(e.PatientID); d != nil && e.Medication != nil {
			d.Medications = append([]*model.MedicationPlan{e.Medication}, d.Medications...)
		}
	case event.MedicationDeleted:
		if d := b.data(e.PatientID); d != nil {
			d.Medications = removeByID(d.Medications, e.RecordID, func(m *model.MedicationPlan) uuid.UUID { return m.ID })
		}

	case event.ReminderCreated:
		if d := b.data(e.PatientID); d != nil && e.Reminder != nil {
			d.Reminders = append([]*model.Reminder{e.Reminder}, d.Reminders...)
		}
	case event.ReminderDeleted:
		if d := b.data(e.PatientID); d != nil {
			d.Reminders = removeByID(d.Reminders, e.RecordID, func(r *model.Reminder) uuid.UUID { return r.ID })
		}

	case event.AppointmentCreated:
		if d := b.data(e.PatientID); d != nil && e.Appointment != nil {
			d.Appointments = append([]*model.Appointment{e.Appointment}, d.Appointments...)
		}
	case event.AppointmentDeleted:
		if d := b.data(e.PatientID); d != nil {
			d.Appointments = removeByID(d.Appointments, e.RecordID, func(a *model.Appointment) uuid.UUID { return a.ID })
		}
	}
}

func (b *Board) invalidate(e event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch e.Type {
	case event.PatientCreated, event.PatientUpdated, event.PatientDeleted:
		b.listStale = true
	default:
		if entry, ok := b.entries[e.PatientID]; ok {
			entry.Stale = true
		}
	}
}

// data returns the cached records of a patient, nil when none are loaded.
func (b *Board) data(patientID uuid.UUID) *NestedData {
	if e, ok := b.entries[patientID]; ok {
		return e.Data
	}
	return nil
}

func removeByID[T any](items []T, id uuid.UUID, key func(T) uuid.UUID) []T {
	out := items[:0:0]
	for _, it := range items {
		if key(it) != id {
			out = append(out, it)
		}
	}
	return out
}

// ListStale reports whether the patient list must be reloaded.
func (b *Board) ListStale() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listStale
}
