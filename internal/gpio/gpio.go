// Package gpio provides the push-button input and the status indicator
// output with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Button reads the push-button state.
type Button interface {
	// Pressed returns the logical button state. The input is active low:
	// the button pulls the line to ground when pressed.
	Pressed() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Indicator drives the onboard status LED.
type Indicator interface {
	// Set turns the LED on or off.
	Set(on bool) error

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinButton    = 17
	DefaultPinIndicator = 27
)

// NopIndicator is used when no indicator pin is configured.
type NopIndicator struct{}

// Set does nothing.
func (NopIndicator) Set(bool) error { return nil }

// Close does nothing.
func (NopIndicator) Close() error { return nil }
