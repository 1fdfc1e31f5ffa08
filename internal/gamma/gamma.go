// Package gamma converts linear 10-bit brightness levels into perceptually
// corrected PWM duty values.
package gamma

import (
	"errors"
	"fmt"
)

const (
	// Size is the number of entries in a table, one per 10-bit level.
	Size = 1024

	// MaxInput is the highest level accepted by Lookup.
	MaxInput = Size - 1

	// MaxOutput is the PWM duty produced for MaxInput by the default table.
	MaxOutput = 1000
)

// ErrNotMonotonic is returned when a table decreases at some index.
var ErrNotMonotonic = errors.New("gamma: table is not monotonically non-decreasing")

// Table is an immutable level-to-duty lookup table.
type Table struct {
	values [Size]uint16
}

// New validates values and copies them into a Table.
func New(values []uint16) (*Table, error) {
	if len(values) != Size {
		return nil, fmt.Errorf("gamma: table has %d entries, want %d", len(values), Size)
	}
	t := &Table{}
	for i, v := range values {
		if i > 0 && v < values[i-1] {
			return nil, fmt.Errorf("%w (index %d)", ErrNotMonotonic, i)
		}
		t.values[i] = v
	}
	return t, nil
}

// Default returns the built-in gamma 2.8 table.
func Default() (*Table, error) {
	return New(defaultValues[:])
}

// MustDefault is like Default but panics on a corrupt table.
func MustDefault() *Table {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup returns the PWM duty for a 10-bit level. Levels above MaxInput
// are treated as MaxInput.
func (t *Table) Lookup(level uint16) uint16 {
	if level > MaxInput {
		level = MaxInput
	}
	return t.values[level]
}

// Max returns the duty produced for full brightness.
func (t *Table) Max() uint16 {
	return t.values[MaxInput]
}
