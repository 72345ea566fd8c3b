package logic

// Classify maps a sensor reading to a drive command.
// An obstacle always wins over the line sensors.
//
//	left  right  command
//	0     0      FORWARD
//	1     0      TURN_LEFT
//	0     1      TURN_RIGHT
//	1     1      STOP (end of course or intersection)
func Classify(r SensorReading) Command {
	if r.Obstacle {
		return CommandStop
	}
	switch {
	case !r.Left && !r.Right:
		return CommandForward
	case r.Left && !r.Right:
		return CommandTurnLeft
	case !r.Left && r.Right:
		return CommandTurnRight
	default:
		return CommandStop
	}
}

// LinesFor returns the motor output lines for a command.
// Turns drive a single motor; the other is de-energized, never reversed.
// Unknown commands map to all lines low.
func LinesFor(c Command) Lines {
	switch c {
	case CommandForward:
		return Lines{LeftPos: true, RightPos: true}
	case CommandTurnLeft:
		return Lines{RightPos: true}
	case CommandTurnRight:
		return Lines{LeftPos: true}
	default:
		return Lines{}
	}
}
