//go:build linux

package pwm

import (
	"fmt"
	"log"

	"github.com/stianeikeland/go-rpio/v4"
)

// RealDriver drives the Raspberry Pi PWM peripheral through /dev/gpiomem.
type RealDriver struct {
	pins []rpio.Pin
}

// NewRealDriver puts each pin into PWM mode at the given frequency with the
// output off. Pins are given in engine channel order.
func NewRealDriver(pins []int, freq int) (*RealDriver, error) {
	shared, err := Shared(pins)
	if err != nil {
		return nil, err
	}
	for _, group := range shared {
		log.Printf("pwm: outputs %v share a PWM channel and will mirror each other", group)
	}

	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio memory: %w", err)
	}

	d := &RealDriver{}
	for _, p := range pins {
		pin := rpio.Pin(p)
		pin.Mode(rpio.Pwm)
		pin.Freq(freq)
		pin.DutyCycleWithPwmMode(0, CycleLength, rpio.MarkSpace)
		d.pins = append(d.pins, pin)
	}
	return d, nil
}

// SetDuty writes a duty value to one output.
func (d *RealDriver) SetDuty(index int, duty uint16) error {
	if index < 0 || index >= len(d.pins) {
		return fmt.Errorf("pwm: no output at index %d", index)
	}
	if duty > CycleLength {
		duty = CycleLength
	}
	d.pins[index].DutyCycleWithPwmMode(uint32(duty), CycleLength, rpio.MarkSpace)
	return nil
}

// Close turns every output off and returns the pins to input mode so the
// LEDs stay dark after exit.
func (d *RealDriver) Close() error {
	for _, pin := range d.pins {
		pin.DutyCycleWithPwmMode(0, CycleLength, rpio.MarkSpace)
		pin.Input()
	}
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("close gpio memory: %w", err)
	}
	return nil
}
