// Package pwm drives LED channel outputs with hardware abstraction.
// The real implementation uses the Raspberry Pi PWM peripheral.
// The fake implementation records writes for tests.
package pwm

import (
	"errors"
	"fmt"
	"sort"
)

// Driver writes gamma-corrected duty values to PWM outputs.
type Driver interface {
	// SetDuty sets the duty for the output at index (engine channel order).
	// Duty is in 0..CycleLength. Must not block.
	SetDuty(index int, duty uint16) error

	// Close turns outputs off and releases the peripheral.
	Close() error
}

// CycleLength is the PWM period in counter ticks. It matches the maximum
// value produced by the default gamma table.
const CycleLength = 1000

// DefaultFrequency is the PWM clock frequency in Hz.
const DefaultFrequency = 1000 * CycleLength

// DefaultPins is the pin assignment (BCM numbering) in R, G, B, W1, W2 order.
// The SoC has two PWM channels: pins on the same channel (12/18, 13/19/45)
// mirror each other unless the board routes them to separate controllers.
var DefaultPins = []int{12, 13, 18, 19, 45}

// ErrPin is returned for a pin without a hardware PWM function.
var ErrPin = errors.New("pwm: pin has no hardware PWM function")

// pwmChannel maps BCM pins with a PWM alternate function to their channel.
var pwmChannel = map[int]int{
	12: 0, 18: 0, 40: 0, 52: 0,
	13: 1, 19: 1, 41: 1, 45: 1, 53: 1,
}

// Shared validates pins and returns the groups of output indexes whose pins
// sit on the same PWM channel. Outputs in a group mirror each other.
func Shared(pins []int) ([][]int, error) {
	byChannel := make(map[int][]int)
	for i, pin := range pins {
		ch, ok := pwmChannel[pin]
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrPin, pin)
		}
		byChannel[ch] = append(byChannel[ch], i)
	}

	var groups [][]int
	for _, idx := range byChannel {
		if len(idx) > 1 {
			groups = append(groups, idx)
		}
	}
	sort.Slice(groups, func(a, b int) bool { return groups[a][0] < groups[b][0] })
	return groups, nil
}
