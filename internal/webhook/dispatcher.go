// Package webhook posts best-effort notifications to the automation
// endpoint after successful mutations. Delivery is at most once: there is
// no retry or queue, and failures never reach the caller.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/echocare/caregiver-api/pkg/circuitbreaker"
	"github.com/echocare/caregiver-api/pkg/metrics"
)

const UserAgent = "EchoCare-Webhook/1.0"

const (
	EventPatientCreated     = "patient.created"
	EventPatientUpdated     = "patient.updated"
	EventPatientDeleted     = "patient.deleted"
	EventMedicationCreated  = "medication.created"
	EventReminderCreated    = "reminder.created"
	EventAppointmentCreated = "appointment.created"
)

// Payload is the body posted to the receiver.
type Payload struct {
	Event     string      `json:"event"`
	Timestamp string      `json:"timestamp"`
	UserID    string      `json:"user_id"`
	Data      interface{} `json:"data"`
}

// Notifier is the dispatcher surface used by the CRUD services.
type Notifier interface {
	Fire(event string, data interface{}, accountID uuid.UUID)
}

type Option func(*Dispatcher)

func WithHTTPClient(c *http.Client) Option {
	return func(d *Dispatcher) { d.client = c }
}

// WithTimeout bounds each fire-and-forget delivery.
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = t }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

type Dispatcher struct {
	url     string
	client  *http.Client
	timeout time.Duration
	cb      *circuitbreaker.CircuitBreaker
	metrics *metrics.Metrics
	now     func() time.Time
	wg      sync.WaitGroup
}

// NewDispatcher returns a dispatcher posting to url. An empty url makes
// every send a logged no-op.
func NewDispatcher(url string, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		url:     url,
		client:  &http.Client{Timeout: 15 * time.Second},
		timeout: 15 * time.Second,
		now:     time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	d.cb = circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:        "webhook",
		MaxFailures: 10,
		Timeout:     time.Minute,
	})
	return d
}

func (d *Dispatcher) Configured() bool {
	return d.url != ""
}

// Send posts one notification and reports whether the receiver accepted it.
func (d *Dispatcher) Send(ctx context.Context, event string, data interface{}, accountID uuid.UUID) bool {
	if d.url == "" {
		log.Debug().Str("event", event).Msg("Webhook URL not configured, skipping webhook send")
		return false
	}

	start := time.Now()
	err := d.cb.Execute(func() error {
		return d.post(ctx, event, data, accountID)
	})
	if err != nil {
		log.Warn().Err(err).Str("event", event).Msg("Webhook delivery failed")
		d.metrics.ObserveWebhook(event, "failed", time.Since(start))
		return false
	}

	log.Info().Str("event", event).Msg("Webhook sent")
	d.metrics.ObserveWebhook(event, "delivered", time.Since(start))
	return true
}

func (d *Dispatcher) post(ctx context.Context, event string, data interface{}, accountID uuid.UUID) error {
	body, err := json.Marshal(Payload{
		Event:     event,
		Timestamp: d.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		UserID:    accountID.String(),
		Data:      data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post webhook: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook receiver returned %s", resp.Status)
	}
	return nil
}

// Fire sends in the background with its own timeout. The caller's request
// context is not used, so a finished request does not cancel delivery.
func (d *Dispatcher) Fire(event string, data interface{}, accountID uuid.UUID) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.Send(ctx, event, data, accountID)
	}()
}

// Wait blocks until every fired delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
