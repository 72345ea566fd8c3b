// Package logic contains the pure decision logic of the line follower.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Hardware, blocking waits and the clock are injected.
package logic

import (
	"fmt"
	"strings"
	"time"
)

// Command is the drive command applied to both motors.
type Command string

const (
	CommandForward   Command = "FORWARD"
	CommandTurnLeft  Command = "TURN_LEFT"
	CommandTurnRight Command = "TURN_RIGHT"
	CommandStop      Command = "STOP"
)

// Commands lists every command in truth-table order.
var Commands = []Command{CommandForward, CommandTurnLeft, CommandTurnRight, CommandStop}

// ParseCommand accepts a command name in any case, with or without the
// TURN_ prefix ("left", "turn-left", "TURN_LEFT").
func ParseCommand(s string) (Command, error) {
	n := strings.ToUpper(strings.TrimSpace(s))
	n = strings.ReplaceAll(n, "-", "_")
	switch n {
	case "FORWARD", "FWD":
		return CommandForward, nil
	case "LEFT", "TURN_LEFT":
		return CommandTurnLeft, nil
	case "RIGHT", "TURN_RIGHT":
		return CommandTurnRight, nil
	case "STOP":
		return CommandStop, nil
	}
	return "", fmt.Errorf("unknown command %q", s)
}

// SensorReading is one sample of the three sensors, in logical form.
// Left/Right true = line (black) detected. Obstacle true = path blocked.
type SensorReading struct {
	Obstacle bool
	Left     bool
	Right    bool
}

// Lines is the state of the four motor output lines.
type Lines struct {
	LeftPos  bool
	LeftNeg  bool
	RightPos bool
	RightNeg bool
}

// Bits returns the lines as 0/1 values in LeftPos, LeftNeg, RightPos, RightNeg order.
func (l Lines) Bits() []int {
	return []int{bit(l.LeftPos), bit(l.LeftNeg), bit(l.RightPos), bit(l.RightNeg)}
}

// String formats the lines as "(1,0,1,0)".
func (l Lines) String() string {
	b := l.Bits()
	return fmt.Sprintf("(%d,%d,%d,%d)", b[0], b[1], b[2], b[3])
}

func bit(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Result describes one control loop iteration.
type Result struct {
	Time     time.Time
	Reading  SensorReading
	Command  Command
	Lines    Lines
	Obstacle bool // obstacle override fired; settle delay was taken

	// Previous is the command applied by the prior iteration. It is reported
	// for telemetry only and never influences the decision.
	Previous Command
	Changed  bool

	// Err is set when the hardware failed to read or write during the iteration.
	Err error
}

// Counts tracks loop activity since startup.
type Counts struct {
	Iterations    uint64
	Forward       int
	TurnLeft      int
	TurnRight     int
	Stop          int
	ObstacleStops int
	Faults        int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    Counts
}
