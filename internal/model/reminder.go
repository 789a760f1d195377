package model

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/timezone"
	apperrors "github.com/echocare/caregiver-api/pkg/errors"
)

const (
	ReminderRequiredMessage = "Patient and title are required"
	ReminderCreatedMessage  = "Reminder added successfully!"
	ReminderDeletedMessage  = "Reminder deleted successfully!"
)

// NotificationFlags are the reminder/appointment delivery switches.
type NotificationFlags struct {
	Remind2Days    bool `db:"remind_2days" json:"remind_2days"`
	Remind1Hour    bool `db:"remind_1hour" json:"remind_1hour"`
	NotifySMS      bool `db:"notify_sms" json:"notify_sms"`
	NotifyCall     bool `db:"notify_call" json:"notify_call"`
	NotifyWhatsapp bool `db:"notify_whatsapp" json:"notify_whatsapp"`
}

// Channels lists the enabled delivery channels in display form.
func (n NotificationFlags) Channels() string {
	var channels []string
	if n.NotifySMS {
		channels = append(channels, "SMS")
	}
	if n.NotifyWhatsapp {
		channels = append(channels, "WhatsApp")
	}
	if n.NotifyCall {
		channels = append(channels, "Call")
	}
	if len(channels) == 0 {
		return "None"
	}
	return strings.Join(channels, ", ")
}

// FormatChannels renders a comma separated channel list such as
// "call,sms,whatsapp" as "Call, SMS, WhatsApp".
func FormatChannels(channel string) string {
	if strings.TrimSpace(channel) == "" {
		return "None"
	}
	parts := strings.Split(channel, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		switch p {
		case "whatsapp":
			out = append(out, "WhatsApp")
		case "sms":
			out = append(out, "SMS")
		case "":
			out = append(out, "")
		default:
			out = append(out, strings.ToUpper(p[:1])+p[1:])
		}
	}
	return strings.Join(out, ", ")
}

// Reminder is a general (non-medication) reminder for a care recipient.
type Reminder struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	PatientID      uuid.UUID  `db:"patient_id" json:"patient_id"`
	CreatedBy      uuid.UUID  `db:"created_by" json:"created_by"`
	Title          string     `db:"title" json:"title"`
	Description    string     `db:"description" json:"description"`
	FrequencyUnit  string     `db:"frequency_unit" json:"frequency_unit"`
	FrequencyValue int        `db:"frequency_value" json:"frequency_value"`
	StartDatetime  *time.Time `db:"start_datetime" json:"start_datetime"`
	EndDatetime    *time.Time `db:"end_datetime" json:"end_datetime"`
	RepeatCount    int        `db:"repeat_count" json:"repeat_count"`
	NotifyChannel  string     `db:"notify_channel" json:"notify_channel"`
	NotificationFlags
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReminderPayload is the webhook body for a reminder. Start and end are
// rendered in the recipient's zone with an explicit offset.
type ReminderPayload struct {
	*Reminder
	StartDatetime *string `json:"start_datetime"`
	EndDatetime   *string `json:"end_datetime"`
}

func (r *Reminder) WebhookPayload(zone string) ReminderPayload {
	return ReminderPayload{
		Reminder:      r,
		StartDatetime: zoned(r.StartDatetime, zone),
		EndDatetime:   zoned(r.EndDatetime, zone),
	}
}

func zoned(t *time.Time, zone string) *string {
	if t == nil {
		return nil
	}
	s := timezone.ToZonedOffsetISOString(*t, zone)
	return &s
}

// ReminderForm is the create payload for a reminder. Start and end are
// wall-clock values in the care recipient's zone unless they carry an offset.
type ReminderForm struct {
	PatientID      uuid.UUID `json:"patient_id"`
	Title          string    `json:"title" validate:"required"`
	Description    string    `json:"description"`
	FrequencyUnit  string    `json:"frequency_unit" validate:"oneof=once hourly daily weekly monthly"`
	FrequencyValue int       `json:"frequency_value" validate:"min=1"`
	StartDatetime  string    `json:"start_datetime" validate:"omitempty,localtime"`
	EndDatetime    string    `json:"end_datetime" validate:"omitempty,localtime"`
	RepeatCount    int       `json:"repeat_count" validate:"min=0"`
	NotifyChannel  string    `json:"notify_channel"`
	NotificationFlags
}

// DefaultReminderForm returns the initial form state for a new reminder.
func DefaultReminderForm() ReminderForm {
	return ReminderForm{
		FrequencyUnit:  string(FrequencyDaily),
		FrequencyValue: 1,
		NotifyChannel:  "call",
	}
}

func (f ReminderForm) WithDefaults() ReminderForm {
	if f.FrequencyUnit == "" {
		f.FrequencyUnit = string(FrequencyDaily)
	}
	if f.FrequencyValue == 0 {
		f.FrequencyValue = 1
	}
	if f.NotifyChannel == "" {
		f.NotifyChannel = "call"
	}
	return f
}

func (f ReminderForm) Validate() []apperrors.FieldError {
	f.Title = strings.TrimSpace(f.Title)
	f.StartDatetime = strings.TrimSpace(f.StartDatetime)
	f.EndDatetime = strings.TrimSpace(f.EndDatetime)
	fields := fieldErrors(Validator().Struct(f), map[string]string{
		"title.required": "Title is required",
	})
	if f.PatientID == uuid.Nil {
		fields = append(fields, apperrors.FieldError{Field: "patient_id", Message: "Patient is required"})
	}
	return fields
}

func (f ReminderForm) Check() error {
	missing := f.PatientID == uuid.Nil || strings.TrimSpace(f.Title) == ""
	return check(f.Validate(), missing, ReminderRequiredMessage)
}

// Reminder builds the record to insert; start and end must already be
// converted to UTC by the caller.
func (f ReminderForm) Reminder(createdBy uuid.UUID, start, end *time.Time) *Reminder {
	return &Reminder{
		ID:                uuid.New(),
		PatientID:         f.PatientID,
		CreatedBy:         createdBy,
		Title:             strings.TrimSpace(f.Title),
		Description:       f.Description,
		FrequencyUnit:     f.FrequencyUnit,
		FrequencyValue:    f.FrequencyValue,
		StartDatetime:     start,
		EndDatetime:       end,
		RepeatCount:       f.RepeatCount,
		NotifyChannel:     f.NotifyChannel,
		NotificationFlags: f.NotificationFlags,
	}
}
