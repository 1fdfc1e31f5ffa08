package control

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/led-controller/internal/button"
	"github.com/sweeney/led-controller/internal/gamma"
	"github.com/sweeney/led-controller/internal/gpio"
	"github.com/sweeney/led-controller/internal/led"
	"github.com/sweeney/led-controller/internal/pwm"
	"github.com/sweeney/led-controller/internal/status"
	"github.com/sweeney/led-controller/internal/system"
)

type fakeSink struct {
	payloads []string
	err      error
}

func (f *fakeSink) PublishUpdate(p []byte) error {
	f.payloads = append(f.payloads, string(p))
	return f.err
}

type fakePinger struct {
	payloads []string
}

func (f *fakePinger) PublishPing(p []byte) error {
	f.payloads = append(f.payloads, string(p))
	return nil
}

type fakeConn struct{ connected bool }

func (f fakeConn) IsConnected() bool { return f.connected }

type harness struct {
	ctl    *Controller
	drv    *pwm.FakeDriver
	sink   *fakeSink
	fade   chan time.Time
	button chan time.Time
	ping   chan time.Time
	cancel context.CancelFunc
	exited chan error
}

func start(t *testing.T, configure func(*Options)) *harness {
	t.Helper()

	drv := pwm.NewFakeDriver()
	eng, err := led.NewEngine(led.DefaultChannels, drv, gamma.MustDefault())
	require.NoError(t, err)

	h := &harness{
		drv:    drv,
		sink:   &fakeSink{},
		fade:   make(chan time.Time),
		button: make(chan time.Time),
		ping:   make(chan time.Time),
		exited: make(chan error, 1),
	}
	opts := Options{Engine: eng, Sinks: []UpdateSink{h.sink}}
	if configure != nil {
		configure(&opts)
	}
	h.ctl = New(opts)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() {
		h.exited <- h.ctl.Run(ctx, Tickers{Fade: h.fade, Button: h.button, Ping: h.ping})
	}()
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	h.cancel()
	<-h.exited
	h.exited <- nil
}

// step delivers one tick and waits until the loop has handled it.
func (h *harness) step(t *testing.T, ch chan time.Time, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		ch <- time.Now()
	}
	h.get(t)
}

func (h *harness) get(t *testing.T) status.Snapshot {
	t.Helper()
	s, err := h.ctl.GetStatus(context.Background())
	require.NoError(t, err)
	return s
}

func (h *harness) set(t *testing.T, source, body string) status.Snapshot {
	t.Helper()
	req, err := status.ParseRequest([]byte(body))
	require.NoError(t, err)
	s, err := h.ctl.SetStatus(context.Background(), source, req)
	require.NoError(t, err)
	return s
}

func TestSetStatusBroadcastsChange(t *testing.T) {
	h := start(t, nil)

	snap := h.set(t, status.SourceHTTP, `{"R":128,"duration":1000}`)

	want := `{"R":128,"G":0,"B":0,"W1":0,"W2":0,"duration":1000,"event":"http"}`
	assert.Equal(t, want, snap.String())
	require.Len(t, h.sink.payloads, 1)
	assert.Equal(t, want, h.sink.payloads[0])
}

func TestSetStatusUnchangedIsPlainAndSilent(t *testing.T) {
	h := start(t, nil)

	h.set(t, status.SourceHTTP, `{"G":40}`)
	snap := h.set(t, status.SourceMQTT, `{"G":40,"duration":500}`)

	assert.Equal(t, `{"R":0,"G":40,"B":0,"W1":0,"W2":0}`, snap.String())
	assert.Len(t, h.sink.payloads, 1)
}

func TestSetStatusUnknownChannelIgnored(t *testing.T) {
	h := start(t, nil)

	snap := h.set(t, status.SourceMQTT, `{"X":10}`)

	assert.Equal(t, `{"R":0,"G":0,"B":0,"W1":0,"W2":0}`, snap.String())
	assert.Empty(t, h.sink.payloads)
}

func TestSinkErrorDoesNotFailSet(t *testing.T) {
	h := start(t, nil)
	h.sink.err = errors.New("broker down")

	snap := h.set(t, status.SourceHTTP, `{"B":7}`)

	v, _ := snap.Value("B")
	assert.Equal(t, uint8(7), v)
}

func TestGetStatusReportsTargetWhileFading(t *testing.T) {
	h := start(t, nil)

	h.set(t, status.SourceHTTP, `{"R":128,"duration":1000}`)

	v, _ := h.get(t).Value("R")
	assert.Equal(t, uint8(128), v, "status is optimistic")
	assert.Empty(t, h.drv.WritesFor(0), "nothing written before the first tick")

	h.step(t, h.fade, 10)
	assert.NotEmpty(t, h.drv.WritesFor(0))

	h.step(t, h.fade, 1)
	assert.Equal(t, gamma.MustDefault().Lookup(128<<2|3), h.drv.Duties[0])
}

func TestIndicatorBlinksWhileFading(t *testing.T) {
	ind := &gpio.FakeIndicator{}
	h := start(t, func(o *Options) { o.Indicator = ind })

	h.set(t, status.SourceHTTP, `{"W1":200,"duration":2000}`)

	h.step(t, h.fade, 9)
	assert.Equal(t, []bool{true, false, true}, ind.Values)

	h.step(t, h.fade, 12)
	assert.True(t, ind.Last(), "steady on once the fade ends")
	assert.Equal(t, []bool{true, false, true, false, true}, ind.Values)

	h.step(t, h.fade, 8)
	assert.Len(t, ind.Values, 5, "idle ticks do not touch the indicator")
}

func testButtonConfig() button.Config {
	return button.Config{Debounce: 2, Hold: 5, Step: 5}
}

func TestButtonClickToggles(t *testing.T) {
	btn := gpio.NewFakeButton([]bool{true, true, true, false})
	h := start(t, func(o *Options) {
		o.Button = btn
		o.ButtonConfig = testButtonConfig()
		o.ToggleFade = -1
	})

	h.step(t, h.button, 4)

	want := `{"R":255,"G":255,"B":255,"W1":255,"W2":255,"event":"button"}`
	require.Len(t, h.sink.payloads, 1)
	assert.Equal(t, want, h.sink.payloads[0])

	// The next click switches off again.
	btn.Reset()
	h.step(t, h.button, 4)
	require.Len(t, h.sink.payloads, 2)
	assert.Equal(t, `{"R":0,"G":0,"B":0,"W1":0,"W2":0,"event":"button"}`, h.sink.payloads[1])
}

func TestButtonClickFadesByDefault(t *testing.T) {
	btn := gpio.NewFakeButton([]bool{true, true, false})
	h := start(t, func(o *Options) {
		o.Button = btn
		o.ButtonConfig = testButtonConfig()
	})

	h.step(t, h.button, 3)

	require.Len(t, h.sink.payloads, 1)
	assert.Contains(t, h.sink.payloads[0], `"duration":500`)
	assert.Empty(t, h.drv.Writes, "toggle fades in over the fade ticker")
}

func TestButtonHoldCancelsFadeAndReportsOnRelease(t *testing.T) {
	samples := []bool{true, true, true, true, true, true, true, false}
	btn := gpio.NewFakeButton(samples)
	tracker := system.NewTracker(time.Now(), system.Config{})
	h := start(t, func(o *Options) {
		o.Button = btn
		o.ButtonConfig = testButtonConfig()
		o.Tracker = tracker
	})

	h.set(t, status.SourceHTTP, `{"R":255,"duration":10000}`)
	require.Len(t, h.sink.payloads, 1)

	// Hold starts on the 5th sample and nudges up on samples 5, 6 and 7.
	h.step(t, h.button, 7)
	assert.Len(t, h.sink.payloads, 1, "no broadcast while holding")
	assert.True(t, tracker.Snapshot().Fading, "tracker still shows the earlier fade")

	h.step(t, h.button, 1)
	require.Len(t, h.sink.payloads, 2)
	assert.Equal(t, `{"R":3,"G":3,"B":3,"W1":3,"W2":3,"event":"button"}`, h.sink.payloads[1])

	// The nudge cancelled the timed fade.
	writes := len(h.drv.Writes)
	h.step(t, h.fade, 3)
	assert.Len(t, h.drv.Writes, writes)

	snap := tracker.Snapshot()
	assert.False(t, snap.Fading)
	assert.Equal(t, 1, snap.Buttons.Holds)
}

func TestButtonReadErrorIgnored(t *testing.T) {
	btn := gpio.NewFakeButton([]bool{true})
	btn.ReadError = errors.New("gpio gone")
	h := start(t, func(o *Options) {
		o.Button = btn
		o.ButtonConfig = testButtonConfig()
	})

	h.step(t, h.button, 10)
	assert.Empty(t, h.sink.payloads)
}

func TestPingPublishesPlainSnapshot(t *testing.T) {
	pinger := &fakePinger{}
	tracker := system.NewTracker(time.Now(), system.Config{})
	h := start(t, func(o *Options) {
		o.Pinger = pinger
		o.Connection = fakeConn{connected: true}
		o.Tracker = tracker
	})

	h.set(t, status.SourceHTTP, `{"G":12,"duration":300}`)
	h.step(t, h.ping, 1)

	require.Len(t, pinger.payloads, 1)
	assert.Equal(t, `{"R":0,"G":12,"B":0,"W1":0,"W2":0}`, pinger.payloads[0])

	snap := tracker.Snapshot()
	assert.True(t, snap.MQTTConnected)
	assert.True(t, snap.Fading)
	v, _ := snap.Lights.Value("G")
	assert.Equal(t, uint8(12), v)
}

func TestTrackerUpdatedWhenFadeEnds(t *testing.T) {
	tracker := system.NewTracker(time.Now(), system.Config{})
	h := start(t, func(o *Options) { o.Tracker = tracker })

	h.set(t, status.SourceHTTP, `{"R":1,"duration":100}`)
	assert.True(t, tracker.Snapshot().Fading)

	h.step(t, h.fade, 2)
	assert.False(t, tracker.Snapshot().Fading)
}

func TestStoppedController(t *testing.T) {
	h := start(t, nil)
	h.stop()

	_, err := h.ctl.GetStatus(context.Background())
	assert.ErrorIs(t, err, ErrStopped)

	_, err = h.ctl.SetStatus(context.Background(), status.SourceHTTP, status.Request{})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestContextCancelledBeforeLoop(t *testing.T) {
	drv := pwm.NewFakeDriver()
	eng, err := led.NewEngine(led.DefaultChannels, drv, gamma.MustDefault())
	require.NoError(t, err)
	ctl := New(Options{Engine: eng})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = ctl.GetStatus(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
