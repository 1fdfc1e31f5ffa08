// Package metrics exposes controller activity as Prometheus metrics.
package metrics

import (
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sweeney/led-controller/internal/button"
	"github.com/sweeney/led-controller/internal/pwm"
	"github.com/sweeney/led-controller/internal/status"
)

// Request results.
const (
	ResultChanged   = "changed"
	ResultUnchanged = "unchanged"
	ResultInvalid   = "invalid"
)

// Recorder records controller metrics. A nil *Recorder is a no-op.
type Recorder struct {
	reg *prom.Registry

	requests      *prom.CounterVec
	levels        *prom.GaugeVec
	pwmWrites     *prom.CounterVec
	fading        prom.Gauge
	gestures      *prom.CounterVec
	mqttConnected prom.Gauge
}

// NewRecorder constructs and registers the metrics. A nil registry gets a
// fresh one.
func NewRecorder(reg *prom.Registry) *Recorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	r := &Recorder{
		reg: reg,
		requests: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "ledctl",
			Name:      "requests_total",
			Help:      "Status set requests by source and result",
		}, []string{"source", "result"}),
		levels: prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "ledctl",
			Name:      "channel_level",
			Help:      "Committed brightness level per channel (0-255)",
		}, []string{"channel"}),
		pwmWrites: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "ledctl",
			Name:      "pwm_writes_total",
			Help:      "Duty cycle writes sent to the PWM driver",
		}, []string{"channel"}),
		fading: prom.NewGauge(prom.GaugeOpts{
			Namespace: "ledctl",
			Name:      "fading",
			Help:      "1 while any channel is fading",
		}),
		gestures: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "ledctl",
			Name:      "button_gestures_total",
			Help:      "Recognised button gestures",
		}, []string{"gesture"}),
		mqttConnected: prom.NewGauge(prom.GaugeOpts{
			Namespace: "ledctl",
			Name:      "mqtt_connected",
			Help:      "1 while connected to the MQTT broker",
		}),
	}
	reg.MustRegister(r.requests, r.levels, r.pwmWrites, r.fading, r.gestures, r.mqttConnected)
	return r
}

// Handler returns the exposition handler for the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// ObserveRequest counts a status set request.
func (r *Recorder) ObserveRequest(source, result string) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(source, result).Inc()
}

// ObserveLights records channel levels and the fade state.
func (r *Recorder) ObserveLights(s status.Snapshot, fading bool) {
	if r == nil {
		return
	}
	for _, l := range s.Levels {
		r.levels.WithLabelValues(l.ID).Set(float64(l.Value))
	}
	if fading {
		r.fading.Set(1)
	} else {
		r.fading.Set(0)
	}
}

// ObserveGesture counts a button gesture.
func (r *Recorder) ObserveGesture(g button.Gesture) {
	if r == nil || g == button.GestureNone {
		return
	}
	r.gestures.WithLabelValues(string(g)).Inc()
}

// SetMQTTConnected records the broker connection state.
func (r *Recorder) SetMQTTConnected(connected bool) {
	if r == nil {
		return
	}
	if connected {
		r.mqttConnected.Set(1)
	} else {
		r.mqttConnected.Set(0)
	}
}

// InstrumentDriver wraps d so every duty write is counted under the channel
// id at that index.
func (r *Recorder) InstrumentDriver(d pwm.Driver, ids []string) pwm.Driver {
	if r == nil {
		return d
	}
	return &countingDriver{Driver: d, ids: ids, writes: r.pwmWrites}
}

type countingDriver struct {
	pwm.Driver
	ids    []string
	writes *prom.CounterVec
}

func (c *countingDriver) SetDuty(index int, duty uint16) error {
	label := "unknown"
	if index >= 0 && index < len(c.ids) {
		label = c.ids[index]
	}
	c.writes.WithLabelValues(label).Inc()
	return c.Driver.SetDuty(index, duty)
}
