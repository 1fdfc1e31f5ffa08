// Package mqtt connects the light to an MQTT broker: it applies set
// requests from <prefix>/set and publishes updates, pings and lifecycle
// events under the same prefix.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sweeney/led-controller/internal/status"
)

// Topic suffixes under the device prefix.
const (
	TopicSet     = "set"
	TopicUpdated = "updated"
	TopicPing    = "ping"
	TopicSystem  = "system"
)

const (
	// DefaultPort is used when the configured port is empty or invalid.
	DefaultPort = 1883

	// MaxPayload is the exclusive upper bound on inbound set payloads.
	MaxPayload = 256

	// BufferSize is the number of messages kept while disconnected.
	BufferSize = 50
)

// ErrPayloadTooLarge is returned for set payloads of MaxPayload bytes or more.
var ErrPayloadTooLarge = errors.New("mqtt: payload too large")

// Settings describe the broker connection. An empty Server disables MQTT.
type Settings struct {
	Server   string
	Port     int
	ClientID string
	Prefix   string
	Username string
	Password string
}

// Enabled reports whether a broker is configured.
func (s Settings) Enabled() bool {
	return s.Server != ""
}

// Broker returns the broker URL, or "" when disabled.
func (s Settings) Broker() string {
	if !s.Enabled() {
		return ""
	}
	port := s.Port
	if port <= 0 || port > 65535 {
		port = DefaultPort
	}
	return fmt.Sprintf("tcp://%s:%d", s.Server, port)
}

// Topic returns the full topic for a suffix.
func (s Settings) Topic(suffix string) string {
	return s.Prefix + "/" + suffix
}

// Publisher publishes light and lifecycle messages.
type Publisher interface {
	// PublishUpdate sends an encoded snapshot to <prefix>/updated.
	// Returns error if publishing fails (should not crash the process).
	PublishUpdate(payload []byte) error

	// PublishPing sends the keep-alive snapshot to <prefix>/ping.
	PublishPing(payload []byte) error

	// PublishSystem sends a system lifecycle event to <prefix>/system.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "OFFLINE"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (last will) that don't carry daemon information.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// HandleSet decodes a set payload and applies it through svc.
func HandleSet(ctx context.Context, svc status.Service, payload []byte) (status.Snapshot, error) {
	if len(payload) >= MaxPayload {
		return status.Snapshot{}, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}
	req, err := status.ParseRequest(payload)
	if err != nil {
		return status.Snapshot{}, err
	}
	return svc.SetStatus(ctx, status.SourceMQTT, req)
}
