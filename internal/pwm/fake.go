package pwm

// Write is a single recorded SetDuty call.
type Write struct {
	Index int
	Duty  uint16
}

// FakeDriver records duty writes for test assertions.
type FakeDriver struct {
	// Writes contains every SetDuty call in order.
	Writes []Write

	// Duties holds the last duty written per index.
	Duties map[int]uint16

	// SetError, if set, is returned by SetDuty (the write is still recorded).
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeDriver creates a FakeDriver for testing.
func NewFakeDriver() *FakeDriver {
	return &FakeDriver{Duties: make(map[int]uint16)}
}

// SetDuty records the write.
func (f *FakeDriver) SetDuty(index int, duty uint16) error {
	f.Writes = append(f.Writes, Write{Index: index, Duty: duty})
	f.Duties[index] = duty
	return f.SetError
}

// Close marks the driver as closed.
func (f *FakeDriver) Close() error {
	f.Closed = true
	return nil
}

// WritesFor returns the recorded duties for one index.
func (f *FakeDriver) WritesFor(index int) []uint16 {
	var out []uint16
	for _, w := range f.Writes {
		if w.Index == index {
			out = append(out, w.Duty)
		}
	}
	return out
}

// Reset clears recorded writes.
func (f *FakeDriver) Reset() {
	f.Writes = nil
	f.Duties = make(map[int]uint16)
	f.SetError = nil
	f.Closed = false
}
