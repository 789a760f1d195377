// Package event carries in-process notifications about changed records so
// list views can update without the form code calling them directly.
package event

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/echocare/caregiver-api/internal/model"
)

type Type string

const (
	PatientCreated     Type = "patient.created"
	PatientUpdated     Type = "patient.updated"
	PatientDeleted     Type = "patient.deleted"
	MedicationCreated  Type = "medication.created"
	MedicationDeleted  Type = "medication.deleted"
	ReminderCreated    Type = "reminder.created"
	ReminderDeleted    Type = "reminder.deleted"
	AppointmentCreated Type = "appointment.created"
	AppointmentDeleted Type = "appointment.deleted"
	ReportUploaded     Type = "report.uploaded"
	ReportDeleted      Type = "report.deleted"
)

// Event describes one change. Only the record matching Type is set; delete
// events carry RecordID instead.
type Event struct {
	Type       Type      `json:"type"`
	OwnerID    uuid.UUID `json:"owner_id"`
	PatientID  uuid.UUID `json:"patient_id"`
	RecordID   uuid.UUID `json:"record_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	// Source is the instance id of a relayed event, empty for local ones.
	Source string `json:"source,omitempty"`

	Patient     *model.CareRecipient  `json:"patient,omitempty"`
	Medication  *model.MedicationPlan `json:"medication,omitempty"`
	Reminder    *model.Reminder       `json:"reminder,omitempty"`
	Appointment *model.Appointment    `json:"appointment,omitempty"`
	Report      *model.MedicalReport  `json:"report,omitempty"`
}

// Remote reports whether the event came from another instance.
func (e Event) Remote() bool {
	return e.Source != ""
}

type Handler func(ctx context.Context, e Event)

// Publisher is what services need from the bus.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Bus delivers events synchronously to its subscribers in subscription order.
type Bus struct {
	mu       sync.RWMutex
	next     int
	handlers []subscription
}

type subscription struct {
	id int
	fn Handler
}

func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers h and returns a function that removes it.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	b.handlers = append(b.handlers, subscription{id: id, fn: h})

	var once sync.Once
	return func() {
		once.Do(func() { b.unsubscribe(id) })
	}
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.handlers {
		if s.id == id {
			b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
			return
		}
	}
}

// Publish calls every handler in turn. A handler that panics is logged and
// skipped; the others still run.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	b.mu.RLock()
	handlers := make([]subscription, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, s := range handlers {
		b.dispatch(ctx, s.fn, e)
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("event", string(e.Type)).
				Str("stack", string(debug.Stack())).
				Msg("Event handler panicked")
		}
	}()
	h(ctx, e)
}
