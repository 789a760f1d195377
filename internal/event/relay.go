package event

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/echocare/caregiver-api/pkg/messaging"
	"github.com/echocare/caregiver-api/pkg/metrics"
)

// Channel is the broker channel shared by all instances.
const Channel = "caregiver.events"

// Relay mirrors local bus events to other instances and hands events from
// other instances to onRemote.
type Relay struct {
	bus        *Bus
	broker     messaging.Broker
	instanceID string
	onRemote   Handler
	metrics    *metrics.Metrics
	logger     zerolog.Logger
}

func NewRelay(bus *Bus, broker messaging.Broker, instanceID string, onRemote Handler, m *metrics.Metrics, logger zerolog.Logger) *Relay {
	return &Relay{
		bus:        bus,
		broker:     broker,
		instanceID: instanceID,
		onRemote:   onRemote,
		metrics:    m,
		logger:     logger.With().Str("component", "event-relay").Logger(),
	}
}

// Start subscribes to the broker and the bus. Both subscriptions end when
// ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	msgs, err := r.broker.Subscribe(ctx, Channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to relay channel: %w", err)
	}

	unsubscribe := r.bus.Subscribe(r.forward)
	go func() {
		defer unsubscribe()
		for payload := range msgs {
			r.receive(ctx, payload)
		}
		r.logger.Info().Msg("Event relay stopped")
	}()

	r.logger.Info().Str("instance", r.instanceID).Msg("Event relay started")
	return nil
}

func (r *Relay) forward(ctx context.Context, e Event) {
	if e.Remote() {
		return
	}
	msg := messaging.Message{Type: string(e.Type), Source: r.instanceID, Payload: e}
	if err := r.broker.Publish(ctx, Channel, msg); err != nil {
		r.logger.Warn().Err(err).Str("event", string(e.Type)).Msg("Failed to relay event")
		return
	}
	r.metrics.RelayMessage("out")
}

type envelope struct {
	Type    string `json:"type"`
	Source  string `json:"source"`
	Payload Event  `json:"payload"`
}

func (r *Relay) receive(ctx context.Context, payload []byte) {
	var msg envelope
	if err := json.Unmarshal(payload, &msg); err != nil {
		r.logger.Warn().Err(err).Msg("Dropping malformed relay message")
		return
	}
	if msg.Source == r.instanceID {
		return
	}

	e := msg.Payload
	e.Source = msg.Source
	r.metrics.RelayMessage("in")
	if r.onRemote != nil {
		r.onRemote(ctx, e)
	}
}
