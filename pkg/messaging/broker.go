package messaging

import (
	"context"
)

// Broker publishes and receives raw messages on named channels.
type Broker interface {
	// Publish marshals message to JSON and sends it on channel.
	Publish(ctx context.Context, channel string, message interface{}) error
	// Subscribe delivers payloads until ctx is done, then closes the channel.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Message is the envelope sent between instances.
type Message struct {
	Type    string      `json:"type"`
	Source  string      `json:"source"`
	Payload interface{} `json:"payload"`
}
