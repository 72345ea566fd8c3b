//go:build linux

package gpio

import (
	"fmt"

	"github.com/sweeney/line-follower/internal/logic"
	"github.com/warthog618/go-gpiocdev"
)

const consumer = "line-follower"

// RealIO drives actual hardware using the Linux GPIO character device.
// The sensor and motor lines are each held in one multi-line request, so a
// motor write is a single SetValues call.
type RealIO struct {
	pins     Pins
	polarity Polarity

	chip    *gpiocdev.Chip
	sensors *gpiocdev.Lines
	motors  *gpiocdev.Lines
}

// NewRealIO creates an unconfigured pin layer for the given wiring.
func NewRealIO(pins Pins, polarity Polarity) *RealIO {
	return &RealIO{pins: pins, polarity: polarity}
}

// Configure requests the sensor lines as inputs and the motor lines as
// outputs, all motor lines starting low.
func (r *RealIO) Configure() error {
	if r.chip != nil {
		return ErrAlreadyConfigured
	}
	if err := r.pins.Validate(); err != nil {
		return err
	}

	chip, err := gpiocdev.NewChip(r.pins.Chip, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return fmt.Errorf("open gpio chip %s: %w", r.pins.Chip, err)
	}

	sensors, err := chip.RequestLines(r.pins.SensorOffsets(), gpiocdev.AsInput)
	if err != nil {
		chip.Close()
		return fmt.Errorf("request sensor lines %v: %w", r.pins.SensorOffsets(), err)
	}

	motors, err := chip.RequestLines(r.pins.MotorOffsets(), gpiocdev.AsOutput(0, 0, 0, 0))
	if err != nil {
		sensors.Close()
		chip.Close()
		return fmt.Errorf("request motor lines %v: %w", r.pins.MotorOffsets(), err)
	}

	r.chip = chip
	r.sensors = sensors
	r.motors = motors
	return nil
}

// ReadSensors samples all three sensor lines in one call and applies polarity.
func (r *RealIO) ReadSensors() (logic.SensorReading, error) {
	if r.sensors == nil {
		return logic.SensorReading{}, ErrNotConfigured
	}
	raw := make([]int, 3)
	if err := r.sensors.Values(raw); err != nil {
		return logic.SensorReading{}, fmt.Errorf("read sensor lines: %w", err)
	}
	return Decode(raw, r.polarity), nil
}

// Apply writes the four motor lines.
func (r *RealIO) Apply(lines logic.Lines) error {
	if r.motors == nil {
		return ErrNotConfigured
	}
	if err := r.motors.SetValues(lines.Bits()); err != nil {
		return fmt.Errorf("write motor lines: %w", err)
	}
	return nil
}

// Close drives the motors to stop, then returns every line to input with
// pull-down (matching Pi boot defaults) so the H-bridge is not left enabled.
func (r *RealIO) Close() error {
	var errs []error

	if r.motors != nil {
		if err := r.motors.SetValues(logic.LinesFor(logic.CommandStop).Bits()); err != nil {
			errs = append(errs, fmt.Errorf("stop motors: %w", err))
		}
		if err := r.motors.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure motor lines: %w", err))
		}
		if err := r.motors.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close motor lines: %w", err))
		}
		r.motors = nil
	}
	if r.sensors != nil {
		if err := r.sensors.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sensor lines: %w", err))
		}
		r.sensors = nil
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		r.chip = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
