package led

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/sweeney/led-controller/internal/gamma"
	"github.com/sweeney/led-controller/internal/pwm"
	"github.com/sweeney/led-controller/internal/status"
)

// TickInterval is the fade cadence: 10 steps per second. It is also the
// smallest usable fade duration.
const TickInterval = 100 * time.Millisecond

// Channel count limits (RGB plus up to two whites).
const (
	MinChannels = 3
	MaxChannels = 5
)

// DefaultChannels is the full five-channel layout.
var DefaultChannels = []string{"R", "G", "B", "W1", "W2"}

// ErrChannels is returned for an invalid channel layout.
var ErrChannels = errors.New("led: invalid channel layout")

// Target is the requested end state of one channel.
type Target struct {
	Level uint8
	Fade  time.Duration
}

// Engine owns every channel and advances their fades.
//
// Engine is not safe for concurrent use. It is owned by a single control
// loop; other goroutines reach it through that loop.
type Engine struct {
	channels []*Channel
	byID     map[string]*Channel

	// levels remembered by Toggle when switching off
	saved []uint8
}

// NewEngine creates an engine with one channel per id, in order. Channel i
// writes to driver index i. The layout must start with R, G and B.
func NewEngine(ids []string, driver pwm.Driver, table *gamma.Table) (*Engine, error) {
	if len(ids) < MinChannels || len(ids) > MaxChannels {
		return nil, fmt.Errorf("%w: %d channels, want %d..%d", ErrChannels, len(ids), MinChannels, MaxChannels)
	}
	for i, id := range DefaultChannels[:MinChannels] {
		if ids[i] != id {
			return nil, fmt.Errorf("%w: channel %d is %q, want %q", ErrChannels, i, ids[i], id)
		}
	}
	if driver == nil || table == nil {
		return nil, fmt.Errorf("%w: driver and gamma table are required", ErrChannels)
	}

	e := &Engine{byID: make(map[string]*Channel, len(ids))}
	for i, id := range ids {
		if id == "" || id == status.KeyDuration || id == status.KeyEvent {
			return nil, fmt.Errorf("%w: reserved or empty id %q", ErrChannels, id)
		}
		if _, dup := e.byID[id]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrChannels, id)
		}
		ch := newChannel(id, i, driver, table)
		e.channels = append(e.channels, ch)
		e.byID[id] = ch
	}
	return e, nil
}

// Channels returns the channels in order.
func (e *Engine) Channels() []*Channel {
	return e.channels
}

// Channel returns the channel with the given id, or nil.
func (e *Engine) Channel(id string) *Channel {
	return e.byID[id]
}

// IDs returns the channel ids in order.
func (e *Engine) IDs() []string {
	ids := make([]string, len(e.channels))
	for i, ch := range e.channels {
		ids[i] = ch.id
	}
	return ids
}

// Apply sets new targets. Unknown channel ids are skipped so one bad entry
// does not abort the batch. Returns true if any channel changed.
func (e *Engine) Apply(targets map[string]Target) bool {
	changed := false
	for id, t := range targets {
		ch := e.byID[id]
		if ch == nil {
			continue
		}
		if ch.SetTarget(t.Level, Steps(t.Fade)) {
			changed = true
		}
	}
	return changed
}

// Tick advances every channel one fade step. Returns true if any channel
// is still fading.
func (e *Engine) Tick() bool {
	fading := false
	for _, ch := range e.channels {
		if ch.Tick() {
			fading = true
		}
	}
	return fading
}

// Fading reports whether any channel has a fade in progress.
func (e *Engine) Fading() bool {
	for _, ch := range e.channels {
		if ch.Fading() {
			return true
		}
	}
	return false
}

// Nudge moves every channel one manual step. Returns true while at least
// one channel can still move in that direction.
func (e *Engine) Nudge(up bool, step uint16) bool {
	more := false
	for _, ch := range e.channels {
		if ch.Nudge(up, step) {
			more = true
		}
	}
	return more
}

// Toggle switches the light off, remembering current levels, or back on to
// the remembered levels (full brightness if none). Returns true if any
// channel changed.
func (e *Engine) Toggle(fade time.Duration) bool {
	targets := make(map[string]Target, len(e.channels))

	if e.lit() {
		e.saved = make([]uint8, len(e.channels))
		for i, ch := range e.channels {
			e.saved[i] = ch.Level()
			targets[ch.id] = Target{Level: 0, Fade: fade}
		}
		return e.Apply(targets)
	}

	for i, ch := range e.channels {
		level := uint8(status.MaxLevel)
		if e.saved != nil {
			level = e.saved[i]
		}
		targets[ch.id] = Target{Level: level, Fade: fade}
	}
	e.saved = nil
	return e.Apply(targets)
}

func (e *Engine) lit() bool {
	for _, ch := range e.channels {
		if ch.Level() > 0 {
			return true
		}
	}
	return false
}

// Snapshot returns the committed level of every channel, annotated with
// the duration and event of the request that produced it (zero values to
// omit them).
func (e *Engine) Snapshot(duration time.Duration, event string) status.Snapshot {
	levels := make([]status.Level, len(e.channels))
	for i, ch := range e.channels {
		levels[i] = status.Level{ID: ch.id, Value: ch.Level()}
	}
	return status.Snapshot{Levels: levels, Duration: duration, Event: event}
}

// Steps converts a fade duration into a tick count.
func Steps(d time.Duration) uint32 {
	if d <= 0 {
		return 0
	}
	n := d / TickInterval
	// Leave room for the landing tick added by SetTarget.
	if n >= math.MaxUint32 {
		return math.MaxUint32 - 1
	}
	return uint32(n)
}

// Targets expands a status request into per-channel targets sharing the
// request duration.
func Targets(req status.Request) map[string]Target {
	out := make(map[string]Target, len(req.Levels))
	for id, level := range req.Levels {
		out[id] = Target{Level: level, Fade: req.Duration}
	}
	return out
}
