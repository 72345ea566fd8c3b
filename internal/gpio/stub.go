//go:build !linux

package gpio

import (
	"errors"

	"github.com/sweeney/line-follower/internal/logic"
)

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealIO is not available on non-Linux platforms.
type RealIO struct{}

// NewRealIO returns a pin layer whose methods all fail on non-Linux platforms.
func NewRealIO(pins Pins, polarity Polarity) *RealIO {
	return &RealIO{}
}

// Configure is not implemented on non-Linux platforms.
func (r *RealIO) Configure() error {
	return errUnsupported
}

// ReadSensors is not implemented on non-Linux platforms.
func (r *RealIO) ReadSensors() (logic.SensorReading, error) {
	return logic.SensorReading{}, errUnsupported
}

// Apply is not implemented on non-Linux platforms.
func (r *RealIO) Apply(lines logic.Lines) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RealIO) Close() error {
	return nil
}
