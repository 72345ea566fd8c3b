package gpio

import (
	"errors"

	"github.com/sweeney/line-follower/internal/logic"
)

// FakeIO is a test double that returns scripted sensor readings and records
// every motor write.
type FakeIO struct {
	// Samples contains scripted readings to return.
	// Each call to ReadSensors() consumes the next sample.
	Samples []logic.SensorReading

	// index tracks current position in Samples
	index int

	// Pins is the wiring whose directions Configure records.
	Pins Pins

	// Directions maps each configured offset to its mode.
	Directions map[int]Direction

	// ConfigureCalls counts calls to Configure.
	ConfigureCalls int

	// Reads counts successful calls to ReadSensors.
	Reads int

	// Writes contains every set of lines passed to Apply, in order.
	Writes []logic.Lines

	// Output is the current state of the motor lines.
	Output logic.Lines

	// ReadError, if set, will be returned by ReadSensors().
	ReadError error

	// ApplyError, if set, will be returned by Apply().
	ApplyError error

	// Closed tracks if Close was called
	Closed bool
}

// NewFakeIO creates a FakeIO with the default wiring and the given samples.
func NewFakeIO(samples []logic.SensorReading) *FakeIO {
	return &FakeIO{Samples: samples, Pins: DefaultPins()}
}

// Configure records line directions. A second call fails.
func (f *FakeIO) Configure() error {
	f.ConfigureCalls++
	if f.Directions != nil {
		return ErrAlreadyConfigured
	}
	if err := f.Pins.Validate(); err != nil {
		return err
	}
	f.Directions = make(map[int]Direction)
	for _, off := range f.Pins.SensorOffsets() {
		f.Directions[off] = Input
	}
	for _, off := range f.Pins.MotorOffsets() {
		f.Directions[off] = Output
	}
	return nil
}

// ReadSensors returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakeIO) ReadSensors() (logic.SensorReading, error) {
	if f.Directions == nil {
		return logic.SensorReading{}, ErrNotConfigured
	}
	if f.ReadError != nil {
		return logic.SensorReading{}, f.ReadError
	}
	if len(f.Samples) == 0 {
		return logic.SensorReading{}, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	f.Reads++
	return sample, nil
}

// Apply records the lines and replaces the output state.
func (f *FakeIO) Apply(lines logic.Lines) error {
	if f.Directions == nil {
		return ErrNotConfigured
	}
	if f.ApplyError != nil {
		return f.ApplyError
	}
	f.Writes = append(f.Writes, lines)
	f.Output = lines
	return nil
}

// Close stops the motors and marks the fake as closed.
func (f *FakeIO) Close() error {
	if f.Directions != nil {
		f.Output = logic.LinesFor(logic.CommandStop)
	}
	f.Closed = true
	return nil
}

// Reset rewinds the samples and clears recorded writes.
func (f *FakeIO) Reset() {
	f.index = 0
	f.Reads = 0
	f.Writes = nil
	f.Closed = false
}
