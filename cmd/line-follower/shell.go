package main

import (
	"fmt"
	"strings"

	"github.com/abiosoft/ishell/v2"

	"github.com/sweeney/line-follower/internal/gpio"
	"github.com/sweeney/line-follower/internal/logic"
)

// runShell starts an interactive bench shell for checking wiring with the
// wheels off the ground. Motors are stopped when the shell exits.
func runShell(hw gpio.IO, ctrl *logic.Controller) error {
	sh := ishell.New()
	sh.Println("line-follower bench shell; motors stop on exit")

	sh.AddCmd(&ishell.Cmd{
		Name: "read",
		Help: "sample the sensors once",
		Func: func(c *ishell.Context) {
			c.Println(shellRead(hw))
		},
	})

	sh.AddCmd(&ishell.Cmd{
		Name: "drive",
		Help: "drive <forward|left|right|stop>",
		Completer: func([]string) []string {
			return []string{"forward", "left", "right", "stop"}
		},
		Func: func(c *ishell.Context) {
			c.Println(shellDrive(hw, c.Args))
		},
	})

	sh.AddCmd(&ishell.Cmd{
		Name: "step",
		Help: "run one control loop iteration",
		Func: func(c *ishell.Context) {
			c.Println(shellStep(ctrl))
		},
	})

	sh.Run()

	if err := hw.Apply(logic.LinesFor(logic.CommandStop)); err != nil {
		return fmt.Errorf("stop motors: %w", err)
	}
	return nil
}

func shellRead(hw gpio.IO) string {
	r, err := hw.ReadSensors()
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return fmt.Sprintf("%s -> %s", describeReading(r), logic.Classify(r))
}

func shellDrive(hw gpio.IO, args []string) string {
	if len(args) != 1 {
		return "usage: drive <forward|left|right|stop>"
	}
	cmd, err := logic.ParseCommand(args[0])
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	lines := logic.LinesFor(cmd)
	if err := hw.Apply(lines); err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return fmt.Sprintf("%s lines=%s", cmd, lines)
}

func shellStep(ctrl *logic.Controller) string {
	res := ctrl.Step()
	var b strings.Builder
	fmt.Fprintf(&b, "%s -> %s lines=%s", describeReading(res.Reading), res.Command, res.Lines)
	if res.Obstacle {
		b.WriteString(" (obstacle, settled)")
	}
	if res.Err != nil {
		fmt.Fprintf(&b, " error: %v", res.Err)
	}
	return b.String()
}
