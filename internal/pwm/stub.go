//go:build !linux

package pwm

import "errors"

// RealDriver is not available on non-Linux platforms.
type RealDriver struct{}

// NewRealDriver returns an error on non-Linux platforms.
func NewRealDriver(pins []int, freq int) (*RealDriver, error) {
	return nil, errors.New("pwm: not supported on this platform (requires Linux)")
}

// SetDuty is not implemented on non-Linux platforms.
func (d *RealDriver) SetDuty(index int, duty uint16) error {
	return errors.New("pwm: not supported")
}

// Close is not implemented on non-Linux platforms.
func (d *RealDriver) Close() error {
	return nil
}
