package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/led-controller/internal/metrics"
	"github.com/sweeney/led-controller/internal/status"
)

const (
	connectRetryInterval = 5 * time.Second
	publishTimeout       = 5 * time.Second
	setTimeout           = 5 * time.Second
)

// RealClient talks to an actual MQTT broker. It can be reconfigured at
// runtime; messages published while disconnected are buffered and
// replayed on the next connection.
type RealClient struct {
	service status.Service
	metrics *metrics.Recorder

	configMu sync.Mutex // serializes Configure and Close

	mu       sync.Mutex
	client   paho.Client
	settings Settings
	buffer   *ringBuffer
}

// NewRealClient creates an unconfigured client that applies set requests
// through svc. Call Configure to connect.
func NewRealClient(svc status.Service, rec *metrics.Recorder) *RealClient {
	return &RealClient{
		service: svc,
		metrics: rec,
		buffer:  newRingBuffer(BufferSize),
	}
}

// Configure drops any current connection and connects with s. Connection
// happens in the background and is retried every 5 seconds. An empty
// server leaves MQTT disabled.
func (c *RealClient) Configure(s Settings) {
	c.configMu.Lock()
	defer c.configMu.Unlock()

	c.mu.Lock()
	old := c.client
	c.client = nil
	c.settings = s
	c.mu.Unlock()

	if old != nil {
		old.Disconnect(250)
	}

	if !s.Enabled() {
		log.Printf("mqtt: disabled")
		return
	}

	will, _ := FormatSystemPayload(SystemEvent{Event: "OFFLINE"})
	opts := paho.NewClientOptions().
		AddBroker(s.Broker()).
		SetClientID(s.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(connectRetryInterval).
		SetOrderMatters(false).
		SetBinaryWill(s.Topic(TopicSystem), will, 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})
	if s.Username != "" {
		opts.SetUsername(s.Username)
		opts.SetPassword(s.Password)
	}

	client := paho.NewClient(opts)
	c.mu.Lock()
	c.client = client
	c.mu.Unlock()

	// With connect retry the token only completes once connected.
	client.Connect()
	log.Printf("mqtt: connecting to %s (prefix %q)", s.Broker(), s.Prefix)
}

// Settings returns the current settings.
func (c *RealClient) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings
}

func (c *RealClient) onConnect(cl paho.Client) {
	c.mu.Lock()
	if cl != c.client {
		c.mu.Unlock()
		return
	}
	s := c.settings
	pending := c.buffer.drainAll()
	c.mu.Unlock()

	log.Printf("mqtt: connected to %s", s.Broker())

	topic := s.Topic(TopicSet)
	if err := await(cl.Subscribe(topic, 0, c.onSet)); err != nil {
		log.Printf("mqtt: subscribe %s: %v", topic, err)
	}

	for _, m := range pending {
		if err := await(cl.Publish(s.Topic(m.suffix), m.qos, m.retained, m.payload)); err != nil {
			log.Printf("mqtt: replay to %s: %v", s.Topic(m.suffix), err)
		}
	}
}

func (c *RealClient) onSet(_ paho.Client, m paho.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), setTimeout)
	defer cancel()

	if _, err := HandleSet(ctx, c.service, m.Payload()); err != nil {
		if errors.Is(err, status.ErrInvalidRequest) || errors.Is(err, ErrPayloadTooLarge) {
			c.metrics.ObserveRequest(status.SourceMQTT, metrics.ResultInvalid)
		}
		log.Printf("mqtt: set on %s: %v", m.Topic(), err)
	}
}

// publish sends a message, or buffers it when the connection is down and
// keep is set. It returns a nil token when nothing was sent.
func (c *RealClient) publish(suffix string, payload []byte, qos byte, retained, keep bool) paho.Token {
	c.mu.Lock()
	client := c.client
	s := c.settings
	if client == nil {
		c.mu.Unlock()
		return nil
	}
	if !client.IsConnectionOpen() {
		if keep {
			c.buffer.push(bufferedMsg{suffix: suffix, payload: payload, qos: qos, retained: retained})
		}
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	return client.Publish(s.Topic(suffix), qos, retained, payload)
}

// PublishUpdate sends a snapshot to <prefix>/updated without waiting for
// delivery.
func (c *RealClient) PublishUpdate(payload []byte) error {
	if token := c.publish(TopicUpdated, payload, 0, false, true); token != nil {
		go logFailure(token, TopicUpdated)
	}
	return nil
}

// PublishPing sends the keep-alive snapshot to <prefix>/ping. Pings are
// not buffered.
func (c *RealClient) PublishPing(payload []byte) error {
	if token := c.publish(TopicPing, payload, 0, false, false); token != nil {
		go logFailure(token, TopicPing)
	}
	return nil
}

// PublishSystem sends a system lifecycle event and waits for delivery.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events
	token := c.publish(TopicSystem, payload, 1, event.Retained, true)
	if token == nil {
		return nil
	}
	if err := await(token); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// IsConnected reports whether the client is connected to the broker.
func (c *RealClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil && c.client.IsConnected()
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.configMu.Lock()
	defer c.configMu.Unlock()

	c.mu.Lock()
	client := c.client
	c.client = nil
	c.mu.Unlock()

	if client != nil {
		client.Disconnect(1000) // 1 second timeout
	}
	return nil
}

func await(token paho.Token) error {
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("timeout")
	}
	return token.Error()
}

func logFailure(token paho.Token, suffix string) {
	if err := await(token); err != nil {
		log.Printf("mqtt: publish %s: %v", suffix, err)
	}
}
