// Package system provides a thread-safe tracker of daemon information for
// the /system endpoint and MQTT lifecycle events.
package system

import (
	"sync"
	"time"

	"github.com/sweeney/led-controller/internal/button"
	"github.com/sweeney/led-controller/internal/status"
)

// NetworkInfo contains network state as reported by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	DeviceID     string
	Channels     []string
	PWMFrequency int
	ButtonPollMs int64
	HTTPAddr     string
	Broker       string // empty when MQTT is disabled
	Prefix       string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Lights        status.Snapshot
	Fading        bool
	Buttons       button.Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets the light levels, fade state and button counts.
// Called from the control loop.
func (t *Tracker) Update(lights status.Snapshot, fading bool, counts button.Counts) {
	t.mu.Lock()
	t.snap.Lights = lights.Plain()
	t.snap.Fading = fading
	t.snap.Buttons = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetMQTT records the broker and topic prefix after a reconfiguration.
func (t *Tracker) SetMQTT(broker, prefix string) {
	t.mu.Lock()
	t.snap.Config.Broker = broker
	t.snap.Config.Prefix = prefix
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
