// Package button turns a polled push-button input into gestures: a short
// press is a click, a long press fades every channel up or down.
// This package has no hardware dependencies; samples are passed in.
package button

import "time"

// Gesture is the result of one Update.
type Gesture string

const (
	GestureNone      Gesture = ""
	GestureClick     Gesture = "CLICK"
	GestureHoldStart Gesture = "HOLD_START"
	GestureHolding   Gesture = "HOLDING"
	GestureHoldEnd   Gesture = "HOLD_END"
)

// Nudger moves every channel one manual step. It reports false once no
// channel can move further in that direction.
type Nudger interface {
	Nudge(up bool, step uint16) bool
}

// Config holds thresholds in poll ticks.
type Config struct {
	// Debounce is the minimum press length counted as a click.
	Debounce uint32
	// Hold is the press length at which continuous fading starts.
	Hold uint32
	// Step is the 10-bit duty change per tick while holding.
	Step uint16
}

// Defaults for a 20 ms poll interval.
const (
	DefaultPoll     = 20 * time.Millisecond
	DefaultDebounce = 2
	DefaultHold     = 25
	DefaultStep     = 5
)

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{Debounce: DefaultDebounce, Hold: DefaultHold, Step: DefaultStep}
}

// ConfigForPoll converts debounce and hold durations into tick counts for
// the given poll interval. Counts are at least 1.
func ConfigForPoll(poll, debounce, hold time.Duration, step uint16) Config {
	ticks := func(d time.Duration) uint32 {
		if poll <= 0 || d <= poll {
			return 1
		}
		return uint32(d / poll)
	}
	return Config{Debounce: ticks(debounce), Hold: ticks(hold), Step: step}
}

// Counts tracks gestures since startup.
type Counts struct {
	Clicks int
	Holds  int
}
