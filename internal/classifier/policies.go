package classifier

import (
	"time"

	"github.com/echocare/caregiver-api/internal/model"
)

func medicationEnd(m *model.MedicationPlan) *time.Time   { return m.EndDate.Ptr() }
func medicationStart(m *model.MedicationPlan) *time.Time { return m.StartDate.Ptr() }
func reminderStart(r *model.Reminder) *time.Time         { return r.StartDatetime }
func appointmentAt(a *model.Appointment) *time.Time      { return a.AppointmentAt }

// Medications are active until their end date has passed. A plan without
// an end date is ongoing. Both buckets show the newest start first.
var Medications = Policy[*model.MedicationPlan]{
	Key:      medicationEnd,
	Calendar: true,
	Nulls:    AlwaysUpcoming,
	Upcoming: ByTimeDesc(medicationStart),
	Past:     ByTimeDesc(medicationStart),
}

// Reminders without a start are treated as past. Both buckets run soonest
// first.
var Reminders = Policy[*model.Reminder]{
	Key:      reminderStart,
	Nulls:    AlwaysPast,
	Upcoming: ByTimeAsc(reminderStart),
	Past:     ByTimeAsc(reminderStart),
}

// Appointments without a time are left out of both buckets.
var Appointments = Policy[*model.Appointment]{
	Key:      appointmentAt,
	Nulls:    Excluded,
	Upcoming: ByTimeAsc(appointmentAt),
	Past:     ByTimeAsc(appointmentAt),
}

// StartingSoon reports whether a plan starts within the next seven days.
// Start dates are calendar dates, so they are read as midnight in now's
// location.
func StartingSoon(m *model.MedicationPlan, now time.Time) bool {
	start := m.StartDate.In(now.Location())
	return WithinWeek(start, now)
}
