// Package gpio provides the pin layer for the line follower.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

import (
	"errors"
	"fmt"

	"github.com/sweeney/line-follower/internal/logic"
)

// IO configures the pins, samples the sensors and drives the motor lines.
// It satisfies logic.Hardware.
type IO interface {
	// Configure sets motor lines to output and sensor lines to input.
	// Must be called exactly once, before any other method.
	Configure() error

	// ReadSensors samples the three sensor lines. No caching, no debounce.
	ReadSensors() (logic.SensorReading, error)

	// Apply writes all four motor lines in a single operation.
	Apply(lines logic.Lines) error

	// Close stops the motors and releases GPIO resources.
	Close() error
}

// ErrNotConfigured is returned when the pins are used before Configure.
var ErrNotConfigured = errors.New("gpio: not configured")

// ErrAlreadyConfigured is returned by a second call to Configure.
var ErrAlreadyConfigured = errors.New("gpio: already configured")

// Direction is the mode of a line.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}
	return "input"
}

// Default wiring (BCM numbering on gpiochip0).
const (
	DefaultChip        = "gpiochip0"
	DefaultPinLeft     = 22
	DefaultPinRight    = 23
	DefaultPinObstacle = 24
	DefaultPinLeftPos  = 5
	DefaultPinLeftNeg  = 6
	DefaultPinRightPos = 13
	DefaultPinRightNeg = 19
)

// Pins maps each signal to a line offset on Chip.
type Pins struct {
	Chip     string
	Left     int
	Right    int
	Obstacle int
	LeftPos  int
	LeftNeg  int
	RightPos int
	RightNeg int
}

// DefaultPins returns the default wiring.
func DefaultPins() Pins {
	return Pins{
		Chip:     DefaultChip,
		Left:     DefaultPinLeft,
		Right:    DefaultPinRight,
		Obstacle: DefaultPinObstacle,
		LeftPos:  DefaultPinLeftPos,
		LeftNeg:  DefaultPinLeftNeg,
		RightPos: DefaultPinRightPos,
		RightNeg: DefaultPinRightNeg,
	}
}

// SensorOffsets returns the input offsets in Left, Right, Obstacle order.
func (p Pins) SensorOffsets() []int {
	return []int{p.Left, p.Right, p.Obstacle}
}

// MotorOffsets returns the output offsets in LeftPos, LeftNeg, RightPos, RightNeg order.
func (p Pins) MotorOffsets() []int {
	return []int{p.LeftPos, p.LeftNeg, p.RightPos, p.RightNeg}
}

// Validate checks that every offset is non-negative and used once.
func (p Pins) Validate() error {
	names := []string{"left", "right", "obstacle", "left_pos", "left_neg", "right_pos", "right_neg"}
	offsets := append(p.SensorOffsets(), p.MotorOffsets()...)
	seen := make(map[int]string, len(offsets))
	for i, off := range offsets {
		if off < 0 {
			return fmt.Errorf("pin %s: negative offset %d", names[i], off)
		}
		if other, ok := seen[off]; ok {
			return fmt.Errorf("pin %s: offset %d already used by %s", names[i], off, other)
		}
		seen[off] = names[i]
	}
	return nil
}

// Polarity records which sensors pull their line low when active.
// The zero value is active-high for all three.
type Polarity struct {
	LeftActiveLow     bool
	RightActiveLow    bool
	ObstacleActiveLow bool
}

// Decode converts raw sensor values (Left, Right, Obstacle order) to a
// logical reading.
func Decode(raw []int, pol Polarity) logic.SensorReading {
	return logic.SensorReading{
		Left:     active(raw[0], pol.LeftActiveLow),
		Right:    active(raw[1], pol.RightActiveLow),
		Obstacle: active(raw[2], pol.ObstacleActiveLow),
	}
}

func active(v int, activeLow bool) bool {
	if activeLow {
		return v == 0
	}
	return v != 0
}
