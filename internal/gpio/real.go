//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Chip is the GPIO character device used for all lines.
const Chip = "gpiochip0"

// RealButton reads the button from actual hardware using Linux GPIO character device.
type RealButton struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealButton requests pin as an active-low input with pull-up.
func NewRealButton(pin int) (*RealButton, error) {
	chip, err := gpiocdev.NewChip(Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request button pin %d: %w", pin, err)
	}

	return &RealButton{chip: chip, line: line}, nil
}

// Pressed returns true while the button holds the line low.
func (b *RealButton) Pressed() (bool, error) {
	v, err := b.line.Value()
	if err != nil {
		return false, fmt.Errorf("read button pin: %w", err)
	}
	return v == 1, nil
}

// Close releases GPIO resources.
func (b *RealButton) Close() error {
	var errs []error
	if b.line != nil {
		if err := b.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	if b.chip != nil {
		if err := b.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealIndicator drives the status LED through an output line.
type RealIndicator struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewRealIndicator requests pin as an output, initially on.
func NewRealIndicator(pin int) (*RealIndicator, error) {
	chip, err := gpiocdev.NewChip(Chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(1))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request indicator pin %d: %w", pin, err)
	}

	return &RealIndicator{chip: chip, line: line}, nil
}

// Set drives the LED.
func (i *RealIndicator) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := i.line.SetValue(v); err != nil {
		return fmt.Errorf("set indicator pin: %w", err)
	}
	return nil
}

// Close turns the LED off and returns the pin to input with pull-down
// (Pi boot default).
func (i *RealIndicator) Close() error {
	var errs []error
	if i.line != nil {
		if err := i.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure indicator pin: %w", err))
		}
		if err := i.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close indicator pin: %w", err))
		}
	}
	if i.chip != nil {
		if err := i.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
