package dashboard

import (
	"time"

	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/classifier"
	"github.com/echocare/caregiver-api/internal/model"
	"github.com/echocare/caregiver-api/internal/timezone"
)

// View is the rendered dashboard of one account.
type View struct {
	Patients []PatientView `json:"patients"`
	Total    int           `json:"total"`
	LoadedAt *time.Time    `json:"loaded_at,omitempty"`
}

type PatientView struct {
	*model.CareRecipient
	DateOfBirthDisplay string     `json:"date_of_birth_display"`
	Expanded           bool       `json:"expanded"`
	ActiveTab          Tab        `json:"active_tab,omitempty"`
	Stale              bool       `json:"stale"`
	LoadedAt           *time.Time `json:"loaded_at,omitempty"`
	Counts             Counts     `json:"counts"`
	Detail             *Detail    `json:"detail,omitempty"`
}

type Counts struct {
	Medications  int `json:"medications"`
	Reminders    int `json:"reminders"`
	Appointments int `json:"appointments"`
}

// Detail holds the classified records of an expanded patient.
type Detail struct {
	Medications  Split[MedicationView]  `json:"medications"`
	Reminders    Split[ReminderView]    `json:"reminders"`
	Appointments Split[AppointmentView] `json:"appointments"`
}

type Split[T any] struct {
	Upcoming []T `json:"upcoming"`
	Past     []T `json:"past"`
}

type MedicationView struct {
	*model.MedicationPlan
	StartDisplay string `json:"start_display"`
	EndDisplay   string `json:"end_display"`
	StartingSoon bool   `json:"starting_soon"`
}

type ReminderView struct {
	*model.Reminder
	StartDisplay string `json:"start_display"`
	EndDisplay   string `json:"end_display"`
	WithinWeek   bool   `json:"within_week"`
	Channels     string `json:"channels"`
}

type AppointmentView struct {
	*model.Appointment
	AtDisplay     string `json:"at_display"`
	WithinWeek    bool   `json:"within_week"`
	Notifications string `json:"notifications"`
}

// copy returns the entry with its own NestedData header. Patches replace
// the lists rather than editing them, so the shared backing arrays stay
// valid after the lock is released.
func (e *Entry) copy() Entry {
	c := *e
	if e.Data != nil {
		d := *e.Data
		c.Data = &d
	}
	return c
}

type snapshot struct {
	patient *model.CareRecipient
	entry   Entry
}

// View renders the patients matching search. Records are classified
// against the viewer's clock; dates are shown in the patient's zone,
// falling back to the viewer's.
func (b *Board) View(search, viewerZone string, now time.Time) View {
	b.mu.Lock()
	rows := make([]snapshot, 0, len(b.patients))
	for _, p := range b.patients {
		if !p.Matches(search) {
			continue
		}
		var e Entry
		if entry, ok := b.entries[p.ID]; ok {
			e = entry.copy()
		}
		rows = append(rows, snapshot{patient: p, entry: e})
	}
	var loadedAt *time.Time
	if b.loaded {
		t := b.lastLoaded
		loadedAt = &t
	}
	b.mu.Unlock()

	viewerLoc := timezone.Load(viewerZone)
	now = now.In(viewerLoc)

	out := View{Patients: make([]PatientView, 0, len(rows)), Total: len(rows), LoadedAt: loadedAt}
	for _, r := range rows {
		out.Patients = append(out.Patients, renderPatient(r, viewerZone, now))
	}
	return out
}

func renderPatient(r snapshot, viewerZone string, now time.Time) PatientView {
	pv := PatientView{
		CareRecipient:      r.patient,
		DateOfBirthDisplay: timezone.FormatDate(r.patient.DateOfBirth.Ptr(), timezone.DatePattern),
		Expanded:           r.entry.Expanded,
		ActiveTab:          r.entry.ActiveTab,
		Stale:              r.entry.Stale,
	}
	if !r.entry.LoadedAt.IsZero() {
		t := r.entry.LoadedAt
		pv.LoadedAt = &t
	}
	data := r.entry.Data
	if data == nil {
		return pv
	}
	pv.Counts = Counts{
		Medications:  len(data.Medications),
		Reminders:    len(data.Reminders),
		Appointments: len(data.Appointments),
	}
	if r.entry.Expanded {
		zone := r.patient.Timezone
		if zone == "" {
			zone = viewerZone
		}
		pv.Detail = render(data, zone, now)
	}
	return pv
}

func render(data *NestedData, zone string, now time.Time) *Detail {
	meds := classifier.Partition(data.Medications, classifier.Medications, now)
	reminders := classifier.Partition(data.Reminders, classifier.Reminders, now)
	appts := classifier.Partition(data.Appointments, classifier.Appointments, now)

	medView := func(m *model.MedicationPlan) MedicationView {
		return MedicationView{
			MedicationPlan: m,
			StartDisplay:   timezone.FormatDate(m.StartDate.Ptr(), timezone.DatePattern),
			EndDisplay:     timezone.FormatDate(m.EndDate.Ptr(), timezone.DatePattern),
			StartingSoon:   classifier.StartingSoon(m, now),
		}
	}
	reminderView := func(r *model.Reminder) ReminderView {
		return ReminderView{
			Reminder:     r,
			StartDisplay: timezone.FormatInZone(r.StartDatetime, zone, timezone.DateTimePattern),
			EndDisplay:   timezone.FormatInZone(r.EndDatetime, zone, timezone.DateTimePattern),
			WithinWeek:   classifier.WithinWeek(r.StartDatetime, now),
			Channels:     model.FormatChannels(r.NotifyChannel),
		}
	}
	apptView := func(a *model.Appointment) AppointmentView {
		return AppointmentView{
			Appointment:   a,
			AtDisplay:     timezone.FormatInZone(a.AppointmentAt, zone, timezone.DateTimePattern),
			WithinWeek:    classifier.WithinWeek(a.AppointmentAt, now),
			Notifications: a.Channels(),
		}
	}

	return &Detail{
		Medications:  split(meds, medView),
		Reminders:    split(reminders, reminderView),
		Appointments: split(appts, apptView),
	}
}

func split[T, V any](b classifier.Buckets[T], f func(T) V) Split[V] {
	out := Split[V]{Upcoming: make([]V, 0, len(b.Upcoming)), Past: make([]V, 0, len(b.Past))}
	for _, it := range b.Upcoming {
		out.Upcoming = append(out.Upcoming, f(it))
	}
	for _, it := range b.Past {
		out.Past = append(out.Past, f(it))
	}
	return out
}

// Detail renders one patient's records regardless of expansion.
func (b *Board) Detail(patientID uuid.UUID, viewerZone string, now time.Time) (*Detail, bool) {
	b.mu.Lock()
	e, ok := b.entries[patientID]
	var data *NestedData
	zone := viewerZone
	if ok {
		data = e.copy().Data
		for _, p := range b.patients {
			if p.ID == patientID && p.Timezone != "" {
				zone = p.Timezone
				break
			}
		}
	}
	b.mu.Unlock()
	if data == nil {
		return nil, false
	}
	return render(data, zone, now.In(timezone.Load(viewerZone))), true
}
