// Package led implements the channel fade engine: per-channel brightness
// state machines that turn target levels into gamma-corrected, non-blocking
// PWM transitions.
package led

import (
	"log"

	"github.com/sweeney/led-controller/internal/gamma"
	"github.com/sweeney/led-controller/internal/pwm"
)

// MaxDuty is the highest internal 10-bit duty.
const MaxDuty = 0x3FF

// Channel is one LED output.
//
// duty is the committed brightness: the fade target while fading. written
// is what has actually been sent to the PWM driver. Public levels are
// duty>>2; writes go through the gamma table.
type Channel struct {
	id     string
	index  int
	driver pwm.Driver
	table  *gamma.Table

	duty    uint16
	written uint16

	remaining   uint32
	increment   float64
	accumulator float64
}

func newChannel(id string, index int, driver pwm.Driver, table *gamma.Table) *Channel {
	return &Channel{id: id, index: index, driver: driver, table: table}
}

// ID returns the channel identifier.
func (c *Channel) ID() string { return c.id }

// Level returns the public 8-bit brightness of the committed duty.
func (c *Channel) Level() uint8 { return uint8(c.duty >> 2) }

// Duty returns the committed 10-bit duty.
func (c *Channel) Duty() uint16 { return c.duty }

// Written returns the 10-bit duty last sent to the driver.
func (c *Channel) Written() uint16 { return c.written }

// Fading reports whether a timed fade is in progress.
func (c *Channel) Fading() bool { return c.remaining > 0 }

// Remaining returns the number of pending fade ticks.
func (c *Channel) Remaining() uint32 { return c.remaining }

// SetTarget starts a transition to level over steps ticks, or writes it
// immediately when steps is 0. The committed duty becomes the target right
// away. Returns false when level already is the committed level.
//
// The low two bits of the 10-bit target are always set, so a level read
// back through Level and written again maps to the same duty.
func (c *Channel) SetTarget(level uint8, steps uint32) bool {
	if c.Level() == level {
		c.cancelFade()
		c.write(c.duty)
		return false
	}

	target := uint16(level)<<2 | 0x3
	if steps == 0 {
		c.cancelFade()
		c.duty = target
		c.write(target)
		return true
	}

	c.accumulator = float64(c.written)
	c.increment = (float64(target) - float64(c.written)) / float64(steps)
	// One extra tick lands exactly on target.
	c.remaining = steps + 1
	c.duty = target
	return true
}

// Tick advances a running fade by one step. Returns whether the channel is
// still fading afterwards.
func (c *Channel) Tick() bool {
	if c.remaining == 0 {
		return false
	}
	c.remaining--

	if c.remaining == 0 {
		c.increment = 0
		c.accumulator = 0
		c.write(c.duty)
		return false
	}

	c.accumulator += c.increment
	if c.accumulator < 0 {
		c.accumulator = 0
	}
	if c.accumulator > MaxDuty {
		c.accumulator = MaxDuty
	}
	c.write(uint16(c.accumulator))
	return true
}

// Nudge cancels any timed fade and moves the output by step toward full
// (up) or off. The move starts from what is on the wire, so a fade in
// progress is frozen where it was. Returns false once the channel sits at
// the boundary in that direction.
func (c *Channel) Nudge(up bool, step uint16) bool {
	c.cancelFade()

	d := int(c.written)
	if up {
		d += int(step)
	} else {
		d -= int(step)
	}
	if d < 0 {
		d = 0
	}
	if d > MaxDuty {
		d = MaxDuty
	}

	c.duty = uint16(d)
	c.write(c.duty)

	if up {
		return c.duty < MaxDuty
	}
	return c.duty > 0
}

func (c *Channel) cancelFade() {
	c.remaining = 0
	c.increment = 0
	c.accumulator = 0
}

// write sends duty to the driver if it differs from the last write.
func (c *Channel) write(duty uint16) {
	if duty == c.written {
		return
	}
	c.written = duty
	if err := c.driver.SetDuty(c.index, c.table.Lookup(duty)); err != nil {
		log.Printf("pwm: channel %s: %v", c.id, err)
	}
}
