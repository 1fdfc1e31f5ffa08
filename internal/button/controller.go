package button

import "math"

// sentinel caps the press counter; a stuck button saturates here instead
// of wrapping back into the click range.
const sentinel = math.MaxUint32 / 2

// Controller tracks one button.
type Controller struct {
	cfg    Config
	nudger Nudger

	count     uint32 // consecutive pressed samples
	up        bool   // direction of the current or last hold
	saturated bool   // the current hold reached the boundary
	counts    Counts
}

// NewController creates a controller that drives nudger while held.
func NewController(cfg Config, nudger Nudger) *Controller {
	if cfg.Debounce == 0 {
		cfg.Debounce = 1
	}
	if cfg.Hold <= cfg.Debounce {
		cfg.Hold = cfg.Debounce + 1
	}
	if cfg.Step == 0 {
		cfg.Step = DefaultStep
	}
	return &Controller{cfg: cfg, nudger: nudger}
}

// Update takes one sample and returns the resulting gesture.
//
// While held past the hold threshold every call nudges all channels one
// step. Each new hold reverses direction; the first one fades up.
func (c *Controller) Update(pressed bool) Gesture {
	if !pressed {
		return c.release()
	}

	if c.count < sentinel {
		c.count++
	}

	switch {
	case c.count < c.cfg.Hold:
		return GestureNone
	case c.count == c.cfg.Hold:
		c.up = !c.up
		c.saturated = false
		c.counts.Holds++
		c.nudge()
		return GestureHoldStart
	default:
		c.nudge()
		return GestureHolding
	}
}

func (c *Controller) release() Gesture {
	n := c.count
	c.count = 0
	c.saturated = false

	switch {
	case n == 0, n < c.cfg.Debounce:
		return GestureNone
	case n < c.cfg.Hold:
		c.counts.Clicks++
		return GestureClick
	default:
		return GestureHoldEnd
	}
}

func (c *Controller) nudge() {
	if c.saturated || c.nudger == nil {
		return
	}
	if !c.nudger.Nudge(c.up, c.cfg.Step) {
		c.saturated = true
	}
}

// Held reports whether the button is currently held past the threshold.
func (c *Controller) Held() bool {
	return c.count >= c.cfg.Hold
}

// Direction reports whether the current or last hold fades up.
func (c *Controller) Direction() bool {
	return c.up
}

// Counts returns gesture counts since startup.
func (c *Controller) Counts() Counts {
	return c.counts
}
