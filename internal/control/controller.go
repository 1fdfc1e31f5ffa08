// Package control runs the single loop that owns the fade engine, the
// push button and the status indicator. Transports reach the engine only
// through the loop's request channel.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/sweeney/led-controller/internal/button"
	"github.com/sweeney/led-controller/internal/gpio"
	"github.com/sweeney/led-controller/internal/led"
	"github.com/sweeney/led-controller/internal/metrics"
	"github.com/sweeney/led-controller/internal/status"
	"github.com/sweeney/led-controller/internal/system"
)

// DefaultToggleFade is the fade used when a click toggles the light.
const DefaultToggleFade = 500 * time.Millisecond

// ErrStopped is returned by SetStatus and GetStatus once Run has returned.
var ErrStopped = errors.New("control: stopped")

// UpdateSink receives the encoded snapshot of every changed set.
type UpdateSink interface {
	PublishUpdate(payload []byte) error
}

// Pinger receives the periodic keep-alive snapshot.
type Pinger interface {
	PublishPing(payload []byte) error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Options configures a Controller. Only Engine is required.
type Options struct {
	Engine *led.Engine

	Button       gpio.Button
	ButtonConfig button.Config
	Indicator    gpio.Indicator

	Sinks      []UpdateSink
	Pinger     Pinger
	Connection ConnectionStatus
	Tracker    *system.Tracker
	Metrics    *metrics.Recorder

	// ToggleFade is the click toggle fade. Zero uses DefaultToggleFade;
	// negative switches instantly.
	ToggleFade time.Duration
}

// Tickers drive the loop. A nil channel disables that activity.
type Tickers struct {
	Fade   <-chan time.Time
	Button <-chan time.Time
	Ping   <-chan time.Time
}

type request struct {
	get    bool
	source string
	req    status.Request
	reply  chan status.Snapshot
}

// Controller implements status.Service on top of a single owner loop.
type Controller struct {
	engine    *led.Engine
	btn       gpio.Button
	buttons   *button.Controller
	indicator gpio.Indicator

	sinks      []UpdateSink
	pinger     Pinger
	conn       ConnectionStatus
	tracker    *system.Tracker
	metrics    *metrics.Recorder
	toggleFade time.Duration

	blink        uint8
	indicatorOn  bool
	indicatorSet bool

	reqs chan request
	done chan struct{}
}

var _ status.Service = (*Controller)(nil)

// New creates a Controller. Run must be called for requests to be served.
func New(opts Options) *Controller {
	c := &Controller{
		engine:     opts.Engine,
		btn:        opts.Button,
		indicator:  opts.Indicator,
		sinks:      opts.Sinks,
		pinger:     opts.Pinger,
		conn:       opts.Connection,
		tracker:    opts.Tracker,
		metrics:    opts.Metrics,
		toggleFade: opts.ToggleFade,
		reqs:       make(chan request),
		done:       make(chan struct{}),
	}
	if c.indicator == nil {
		c.indicator = gpio.NopIndicator{}
	}
	if c.toggleFade == 0 {
		c.toggleFade = DefaultToggleFade
	}
	if c.toggleFade < 0 {
		c.toggleFade = 0
	}
	if c.btn != nil {
		cfg := opts.ButtonConfig
		if cfg == (button.Config{}) {
			cfg = button.DefaultConfig()
		}
		c.buttons = button.NewController(cfg, c.engine)
	}
	return c
}

// SetStatus applies req on behalf of source.
func (c *Controller) SetStatus(ctx context.Context, source string, req status.Request) (status.Snapshot, error) {
	return c.do(ctx, request{source: source, req: req})
}

// GetStatus returns the committed levels.
func (c *Controller) GetStatus(ctx context.Context) (status.Snapshot, error) {
	return c.do(ctx, request{get: true})
}

func (c *Controller) do(ctx context.Context, r request) (status.Snapshot, error) {
	r.reply = make(chan status.Snapshot, 1)
	select {
	case c.reqs <- r:
	case <-c.done:
		return status.Snapshot{}, ErrStopped
	case <-ctx.Done():
		return status.Snapshot{}, ctx.Err()
	}
	// The loop always replies to a request it accepted.
	return <-r.reply, nil
}

// Run serves requests and drives fades, the button and pings until ctx is
// cancelled. It must be called once.
func (c *Controller) Run(ctx context.Context, t Tickers) error {
	defer close(c.done)

	c.setIndicator(true)
	c.refresh()

	for {
		select {
		case <-ctx.Done():
			return nil

		case r := <-c.reqs:
			if r.get {
				r.reply <- c.engine.Snapshot(0, "")
				continue
			}
			r.reply <- c.set(r.source, r.req)

		case <-t.Fade:
			c.tick()

		case <-t.Button:
			c.pollButton()

		case <-t.Ping:
			c.ping()
		}
	}
}

func (c *Controller) set(source string, req status.Request) status.Snapshot {
	if !c.engine.Apply(led.Targets(req)) {
		c.metrics.ObserveRequest(source, metrics.ResultUnchanged)
		return c.engine.Snapshot(0, "")
	}
	c.metrics.ObserveRequest(source, metrics.ResultChanged)

	snap := c.engine.Snapshot(req.Duration, source)
	log.Printf("set (%s): %s", source, snap)
	c.broadcast(snap)
	c.refresh()
	return snap
}

func (c *Controller) tick() {
	was := c.engine.Fading()
	fading := c.engine.Tick()

	if fading {
		c.blink++
		c.setIndicator(c.blink&7 != 0)
	} else {
		c.blink = 0
		c.setIndicator(true)
	}

	if was && !fading {
		c.refresh()
	}
}

func (c *Controller) pollButton() {
	if c.btn == nil {
		return
	}
	pressed, err := c.btn.Pressed()
	if err != nil {
		log.Printf("button read error: %v", err)
		return
	}

	g := c.buttons.Update(pressed)
	c.metrics.ObserveGesture(g)

	switch g {
	case button.GestureClick:
		log.Printf("button: click")
		if c.engine.Toggle(c.toggleFade) {
			c.broadcast(c.engine.Snapshot(c.toggleFade, status.SourceButton))
		}
		c.refresh()

	case button.GestureHoldStart:
		dir := "down"
		if c.buttons.Direction() {
			dir = "up"
		}
		log.Printf("button: hold (%s)", dir)

	case button.GestureHoldEnd:
		snap := c.engine.Snapshot(0, status.SourceButton)
		log.Printf("button: release %s", snap)
		c.broadcast(snap)
		c.refresh()
	}
}

func (c *Controller) ping() {
	c.refresh()
	if c.pinger == nil {
		return
	}
	payload, err := json.Marshal(c.engine.Snapshot(0, ""))
	if err != nil {
		log.Printf("ping: encode: %v", err)
		return
	}
	if err := c.pinger.PublishPing(payload); err != nil {
		log.Printf("ping publish error: %v", err)
	}
}

// broadcast fans snap out to every sink. Sink failures are logged only.
func (c *Controller) broadcast(snap status.Snapshot) {
	if len(c.sinks) == 0 {
		return
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		log.Printf("broadcast: encode: %v", err)
		return
	}
	for _, s := range c.sinks {
		if err := s.PublishUpdate(payload); err != nil {
			log.Printf("publish update error: %v", err)
		}
	}
}

// refresh pushes the current state to the tracker and metrics.
func (c *Controller) refresh() {
	snap := c.engine.Snapshot(0, "")
	fading := c.engine.Fading()
	c.metrics.ObserveLights(snap, fading)

	var counts button.Counts
	if c.buttons != nil {
		counts = c.buttons.Counts()
	}

	connected := false
	if c.conn != nil {
		connected = c.conn.IsConnected()
		c.metrics.SetMQTTConnected(connected)
	}

	if c.tracker != nil {
		c.tracker.Update(snap, fading, counts)
		if c.conn != nil {
			c.tracker.SetMQTTConnected(connected)
		}
	}
}

func (c *Controller) setIndicator(on bool) {
	if c.indicatorSet && c.indicatorOn == on {
		return
	}
	c.indicatorSet = true
	c.indicatorOn = on
	if err := c.indicator.Set(on); err != nil {
		log.Printf("indicator error: %v", err)
	}
}
