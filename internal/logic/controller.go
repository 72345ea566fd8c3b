package logic

import (
	"fmt"
	"time"
)

// DefaultSettle is the pause after an obstacle stop.
const DefaultSettle = 100 * time.Millisecond

// Hardware is the capability set the controller needs from the pin layer.
type Hardware interface {
	ReadSensors() (SensorReading, error)
	Apply(lines Lines) error
}

// Sleeper blocks the caller for the given duration.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleeperFunc adapts a function such as time.Sleep to Sleeper.
type SleeperFunc func(time.Duration)

// Sleep calls f(d).
func (f SleeperFunc) Sleep(d time.Duration) { f(d) }

// Options tunes loop timing.
type Options struct {
	// Settle is the blocking pause after an obstacle stop.
	Settle time.Duration
	// Poll is an optional pause after every non-obstacle iteration.
	// Zero polls continuously.
	Poll time.Duration
}

// Controller runs the polling control loop. Not safe for concurrent use.
type Controller struct {
	hw      Hardware
	sleeper Sleeper
	opts    Options
	now     func() time.Time

	last          Command
	counts        Counts
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewController creates a controller. The hardware must already be configured.
// A zero Settle defaults to DefaultSettle.
func NewController(hw Hardware, sleeper Sleeper, opts Options, now func() time.Time) *Controller {
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}
	start := now()
	return &Controller{
		hw:            hw,
		sleeper:       sleeper,
		opts:          opts,
		now:           now,
		startTime:     start,
		lastHeartbeat: start,
	}
}

// Step runs one iteration: sample, classify, apply, and wait if an obstacle
// forced a stop. The settle delay completes before Step returns, so no sensor
// read can happen during it.
func (c *Controller) Step() Result {
	t := c.now()
	c.counts.Iterations++

	reading, err := c.hw.ReadSensors()
	if err != nil {
		// Fail safe: an unreadable robot does not keep driving.
		c.counts.Faults++
		res := c.apply(t, SensorReading{}, CommandStop)
		if res.Err != nil {
			res.Err = fmt.Errorf("read sensors: %w (stop: %v)", err, res.Err)
		} else {
			res.Err = fmt.Errorf("read sensors: %w", err)
		}
		return res
	}

	if reading.Obstacle {
		c.counts.ObstacleStops++
		res := c.apply(t, reading, CommandStop)
		res.Obstacle = true
		c.sleeper.Sleep(c.opts.Settle)
		return res
	}

	res := c.apply(t, reading, Classify(reading))
	if c.opts.Poll > 0 {
		c.sleeper.Sleep(c.opts.Poll)
	}
	return res
}

func (c *Controller) apply(t time.Time, reading SensorReading, cmd Command) Result {
	lines := LinesFor(cmd)
	res := Result{
		Time:     t,
		Reading:  reading,
		Command:  cmd,
		Lines:    lines,
		Previous: c.last,
	}

	// A failed write changes nothing on the motors, so it is never a change.
	if err := c.hw.Apply(lines); err != nil {
		c.counts.Faults++
		res.Err = fmt.Errorf("apply %s: %w", cmd, err)
		return res
	}
	res.Changed = cmd != c.last

	switch cmd {
	case CommandForward:
		c.counts.Forward++
	case CommandTurnLeft:
		c.counts.TurnLeft++
	case CommandTurnRight:
		c.counts.TurnRight++
	case CommandStop:
		c.counts.Stop++
	}
	c.last = cmd
	return res
}

// Run repeats Step until stop is closed, calling report after every
// iteration. stop is only checked between iterations. On return the motors
// have been stopped. With a nil stop channel Run never returns.
func (c *Controller) Run(stop <-chan struct{}, report func(Result)) error {
	for {
		select {
		case <-stop:
			if err := c.hw.Apply(LinesFor(CommandStop)); err != nil {
				return fmt.Errorf("stop motors: %w", err)
			}
			c.last = CommandStop
			return nil
		default:
		}

		res := c.Step()
		if report != nil {
			report(res)
		}
	}
}

// Current returns the last command successfully applied, or "" before the first.
func (c *Controller) Current() Command {
	return c.last
}

// CountsSnapshot returns a copy of the activity counters.
func (c *Controller) CountsSnapshot() Counts {
	return c.counts
}

// StartTime returns the time the controller was created.
func (c *Controller) StartTime() time.Time {
	return c.startTime
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}

	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.counts,
	}
}
