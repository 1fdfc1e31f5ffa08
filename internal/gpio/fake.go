package gpio

import "errors"

// FakeButton is a test double that returns scripted button samples.
type FakeButton struct {
	// Samples contains scripted pressed values to return.
	// Each call to Pressed() consumes the next sample.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Pressed()
	ReadError error
}

// NewFakeButton creates a FakeButton with the given samples.
func NewFakeButton(samples []bool) *FakeButton {
	return &FakeButton{Samples: samples}
}

// Pressed returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeButton) Pressed() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Close marks the button as closed.
func (f *FakeButton) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the button to the beginning of samples.
func (f *FakeButton) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeIndicator records indicator values.
type FakeIndicator struct {
	// Values contains every value passed to Set.
	Values []bool

	// Closed tracks if Close was called
	Closed bool
}

// Set records the value.
func (f *FakeIndicator) Set(on bool) error {
	f.Values = append(f.Values, on)
	return nil
}

// Close marks the indicator as closed.
func (f *FakeIndicator) Close() error {
	f.Closed = true
	return nil
}

// Last returns the most recent value, or false if Set was never called.
func (f *FakeIndicator) Last() bool {
	if len(f.Values) == 0 {
		return false
	}
	return f.Values[len(f.Values)-1]
}
