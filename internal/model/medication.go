package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

type DosageForm string

const (
	DosageFormTablet    DosageForm = "tablet"
	DosageFormSyrup     DosageForm = "syrup"
	DosageFormInjection DosageForm = "injection"
	DosageFormOther     DosageForm = "other"
)

type FrequencyUnit string

const (
	FrequencyOnce    FrequencyUnit = "once"
	FrequencyHourly  FrequencyUnit = "hourly"
	FrequencyDaily   FrequencyUnit = "daily"
	FrequencyWeekly  FrequencyUnit = "weekly"
	FrequencyMonthly FrequencyUnit = "monthly"
)

type FoodTiming string

const (
	FoodTimingNoPref FoodTiming = "no_pref"
	FoodTimingBefore FoodTiming = "before_food"
	FoodTimingAfter  FoodTiming = "after_food"
	FoodTimingWith   FoodTiming = "with_food"
)

const (
	MaxTimesPerDay = 4

	MedicationRequiredMessage = "Patient and medicine names are required"
	MedicationCreatedMessage  = "Medication plan added successfully!"
	MedicationDeletedMessage  = "Medication plan deleted successfully!"
)

// DoseTimes is the ordered list of HH:MM dose times. It is stored as a
// compact JSON array.
type DoseTimes []string

func (d DoseTimes) Value() (driver.Value, error) {
	if d == nil {
		d = DoseTimes{}
	}
	b, err := json.Marshal([]string(d))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (d *DoseTimes) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = DoseTimes{}
		return nil
	case []byte:
		*d = NormalizeDoseTimes(string(v))
		return nil
	case string:
		*d = NormalizeDoseTimes(v)
		return nil
	}
	return fmt.Errorf("cannot scan %T into DoseTimes", value)
}

// NormalizeDoseTimes decodes a stored dose_times value. It accepts a JSON
// array or a JSON string holding an array; anything else yields an empty list.
func NormalizeDoseTimes(raw string) DoseTimes {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DoseTimes{}
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return DoseTimes(list)
	}
	var inner string
	if err := json.Unmarshal([]byte(raw), &inner); err == nil && inner != raw {
		return NormalizeDoseTimes(inner)
	}
	return DoseTimes{}
}

// ResizeDoseTimes returns a list of exactly n entries: existing entries are
// kept by index, missing ones are blank and extras are dropped.
func ResizeDoseTimes(times []string, n int) []string {
	if n < 0 {
		n = 0
	}
	out := make([]string, n)
	for i := 0; i < n && i < len(times); i++ {
		out[i] = times[i]
	}
	return out
}

// CompactDoseTimes trims entries and removes blanks, preserving order.
func CompactDoseTimes(times []string) DoseTimes {
	out := DoseTimes{}
	for _, t := range times {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// MedicationPlan is a recurring medication schedule for a care recipient.
type MedicationPlan struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	CreatedBy      uuid.UUID `db:"created_by" json:"created_by"`
	MedicineName   string    `db:"medicine_name" json:"medicine_name"`
	Dosage         string    `db:"dosage" json:"dosage"`
	Form           string    `db:"form" json:"form"`
	FrequencyUnit  string    `db:"frequency_unit" json:"frequency_unit"`
	FrequencyValue int       `db:"frequency_value" json:"frequency_value"`
	TimesPerDay    int       `db:"times_per_day" json:"times_per_day"`
	DoseTimes      DoseTimes `db:"dose_times" json:"dose_times"`
	FoodTiming     string    `db:"food_timing" json:"food_timing"`
	StartDate      Date      `db:"start_date" json:"start_date"`
	EndDate        Date      `db:"end_date" json:"end_date"`
	Notes          string    `db:"notes" json:"notes"`
	RemindWeekly   bool      `db:"remind_weekly" json:"remind_weekly"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// MedicationForm is the create payload for a medication plan.
type MedicationForm struct {
	PatientID      uuid.UUID `json:"patient_id"`
	MedicineName   string    `json:"medicine_name" validate:"required"`
	Dosage         string    `json:"dosage"`
	Form           string    `json:"form" validate:"oneof=tablet syrup injection other"`
	FrequencyUnit  string    `json:"frequency_unit" validate:"oneof=once hourly daily weekly monthly"`
	FrequencyValue int       `json:"frequency_value" validate:"min=1"`
	TimesPerDay    int       `json:"times_per_day" validate:"min=1,max=4"`
	DoseTimes      []string  `json:"dose_times" validate:"dive,omitempty,hhmm"`
	FoodTiming     string    `json:"food_timing" validate:"oneof=no_pref before_food after_food with_food"`
	StartDate      Date      `json:"start_date"`
	EndDate        Date      `json:"end_date"`
	Notes          string    `json:"notes"`
	RemindWeekly   bool      `json:"remind_weekly"`
}

// DefaultMedicationForm returns the initial form state for a new plan.
func DefaultMedicationForm(today time.Time) MedicationForm {
	return MedicationForm{
		Form:           string(DosageFormTablet),
		FrequencyUnit:  string(FrequencyDaily),
		FrequencyValue: 1,
		TimesPerDay:    1,
		DoseTimes:      []string{""},
		FoodTiming:     string(FoodTimingNoPref),
		StartDate:      NewDate(today),
	}
}

// WithDefaults fills zero-valued enum and count fields from the defaults.
func (f MedicationForm) WithDefaults() MedicationForm {
	if f.Form == "" {
		f.Form = string(DosageFormTablet)
	}
	if f.FrequencyUnit == "" {
		f.FrequencyUnit = string(FrequencyDaily)
	}
	if f.FrequencyValue == 0 {
		f.FrequencyValue = 1
	}
	if f.TimesPerDay == 0 {
		f.TimesPerDay = 1
	}
	if f.FoodTiming == "" {
		f.FoodTiming = string(FoodTimingNoPref)
	}
	return f
}

var medicationMessages = map[string]string{
	"medicine_name.required": "Medicine name is required",
	"times_per_day.min":      "Doses per day must be between 1 and 4",
	"times_per_day.max":      "Doses per day must be between 1 and 4",
}

func (f MedicationForm) Validate() []apperrors.FieldError {
	f.MedicineName = strings.TrimSpace(f.MedicineName)
	fields := fieldErrors(Validator().Struct(f), medicationMessages)
	if f.PatientID == uuid.Nil {
		fields = append(fields, apperrors.FieldError{Field: "patient_id", Message: "Patient is required"})
	}
	fields = append(fields, dateError("start_date", f.StartDate)...)
	fields = append(fields, dateError("end_date", f.EndDate)...)
	if f.StartDate.Valid && f.EndDate.Valid && f.EndDate.Time.Before(f.StartDate.Time) {
		fields = append(fields, apperrors.FieldError{Field: "end_date", Message: "End date cannot be before start date"})
	}
	return fields
}

func (f MedicationForm) Check() error {
	missing := f.PatientID == uuid.Nil || strings.TrimSpace(f.MedicineName) == ""
	return check(f.Validate(), missing, MedicationRequiredMessage)
}

// Plan builds the record to insert. Dose times are resized to TimesPerDay
// and blanks are stripped.
func (f MedicationForm) Plan(createdBy uuid.UUID) *MedicationPlan {
	return &MedicationPlan{
		ID:             uuid.New(),
		PatientID:      f.PatientID,
		CreatedBy:      createdBy,
		MedicineName:   strings.TrimSpace(f.MedicineName),
		Dosage:         strings.TrimSpace(f.Dosage),
		Form:           f.Form,
		FrequencyUnit:  f.FrequencyUnit,
		FrequencyValue: f.FrequencyValue,
		TimesPerDay:    f.TimesPerDay,
		DoseTimes:      CompactDoseTimes(ResizeDoseTimes(f.DoseTimes, f.TimesPerDay)),
		FoodTiming:     f.FoodTiming,
		StartDate:      f.StartDate,
		EndDate:        f.EndDate,
		Notes:          f.Notes,
		RemindWeekly:   f.RemindWeekly,
	}
}

// WebhookPayload is the medication.created body; dose_times is an array.
func (m *MedicationPlan) WebhookPayload() map[string]interface{} {
	return map[string]interface{}{
		"id":              m.ID,
		"patient_id":      m.PatientID,
		"medicine_name":   m.MedicineName,
		"dosage":          m.Dosage,
		"form":            m.Form,
		"frequency_unit":  m.FrequencyUnit,
		"frequency_value": m.FrequencyValue,
		"times_per_day":   m.TimesPerDay,
		"dose_times":      []string(m.DoseTimes),
		"food_timing":     m.FoodTiming,
		"start_date":      m.StartDate,
		"end_date":        m.EndDate,
		"notes":           m.Notes,
		"remind_weekly":   m.RemindWeekly,
		"created_by":      m.CreatedBy,
	}
}
