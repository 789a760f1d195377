// Package servicetest has recording doubles for the collaborators the
// services notify.
package servicetest

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/echocare/caregiver-api/internal/event"
)

// Fired is one recorded webhook notification.
type Fired struct {
	Event     string
	Data      interface{}
	AccountID uuid.UUID
}

type Notifier struct {
	mu    sync.Mutex
	calls []Fired
}

func (n *Notifier) Fire(event string, data interface{}, accountID uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, Fired{Event: event, Data: data, AccountID: accountID})
}

func (n *Notifier) Calls() []Fired {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Fired(nil), n.calls...)
}

type Publisher struct {
	mu     sync.Mutex
	events []event.Event
}

func (p *Publisher) Publish(ctx context.Context, e event.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *Publisher) Events() []event.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]event.Event(nil), p.events...)
}
