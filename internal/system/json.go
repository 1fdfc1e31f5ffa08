package system

import (
	"encoding/json"
	"time"

	"github.com/sweeney/led-controller/internal/status"
)

// SystemJSON is the top-level JSON envelope for daemon information.
type SystemJSON struct {
	System SystemInner `json:"system"`
}

// SystemInner contains the daemon details.
type SystemInner struct {
	Event         string          `json:"event,omitempty"`
	Reason        string          `json:"reason,omitempty"`
	DeviceID      string          `json:"device_id"`
	Lights        status.Snapshot `json:"lights"`
	Fading        bool            `json:"fading"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	StartTime     string          `json:"start_time"`
	Timestamp     string          `json:"timestamp"`
	MQTT          MQTTStatus      `json:"mqtt"`
	Button        ButtonJSON      `json:"button"`
	Network       *NetworkJSON    `json:"network,omitempty"`
	Config        ConfigJSON      `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
	Prefix    string `json:"prefix,omitempty"`
}

// ButtonJSON is the JSON representation of button gesture counts.
type ButtonJSON struct {
	Clicks int `json:"clicks"`
	Holds  int `json:"holds"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Channels     []string `json:"channels"`
	PWMFrequency int      `json:"pwm_frequency"`
	ButtonPollMs int64    `json:"button_poll_ms"`
	HTTPAddr     string   `json:"http_addr"`
}

func buildInner(snap Snapshot) SystemInner {
	channels := snap.Config.Channels
	if channels == nil {
		channels = []string{}
	}

	inner := SystemInner{
		DeviceID:      snap.Config.DeviceID,
		Lights:        snap.Lights,
		Fading:        snap.Fading,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT: MQTTStatus{
			Connected: snap.MQTTConnected,
			Broker:    snap.Config.Broker,
			Prefix:    snap.Config.Prefix,
		},
		Button: ButtonJSON{
			Clicks: snap.Buttons.Clicks,
			Holds:  snap.Buttons.Holds,
		},
		Config: ConfigJSON{
			Channels:     channels,
			PWMFrequency: snap.Config.PWMFrequency,
			ButtonPollMs: snap.Config.ButtonPollMs,
			HTTPAddr:     snap.Config.HTTPAddr,
		},
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the daemon information for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(SystemJSON{System: buildInner(snap)}, "", "  ")
	return data
}

// FormatSystemEvent returns the daemon information for an MQTT lifecycle event.
func FormatSystemEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(SystemJSON{System: inner})
	return data
}
