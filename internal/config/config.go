// Package config loads the robot's wiring and timing. Sources are applied in
// order: built-in defaults, a YAML file, then LINEFOLLOWER_* environment
// variables. Command-line flags are layered on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v2"

	"github.com/sweeney/line-follower/internal/gpio"
	"github.com/sweeney/line-follower/internal/logic"
)

// ErrInvalidSettle is returned when the settle delay is not positive.
var ErrInvalidSettle = errors.New("config: settle delay must be positive")

// ErrInvalidPoll is returned when the poll interval is negative.
var ErrInvalidPoll = errors.New("config: poll interval must not be negative")

// Config is the full daemon configuration.
type Config struct {
	Pins      Pins      `yaml:"pins"`
	Polarity  Polarity  `yaml:"polarity"`
	Timing    Timing    `yaml:"timing"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Pins is the line offset of every signal on the GPIO chip.
type Pins struct {
	Chip     string `yaml:"chip" env:"LINEFOLLOWER_CHIP"`
	Left     int    `yaml:"left" env:"LINEFOLLOWER_PIN_LEFT"`
	Right    int    `yaml:"right" env:"LINEFOLLOWER_PIN_RIGHT"`
	Obstacle int    `yaml:"obstacle" env:"LINEFOLLOWER_PIN_OBSTACLE"`
	LeftPos  int    `yaml:"left_pos" env:"LINEFOLLOWER_PIN_LEFT_POS"`
	LeftNeg  int    `yaml:"left_neg" env:"LINEFOLLOWER_PIN_LEFT_NEG"`
	RightPos int    `yaml:"right_pos" env:"LINEFOLLOWER_PIN_RIGHT_POS"`
	RightNeg int    `yaml:"right_neg" env:"LINEFOLLOWER_PIN_RIGHT_NEG"`
}

// Polarity marks sensors that pull their line low when active.
type Polarity struct {
	LeftActiveLow     bool `yaml:"left_active_low" env:"LINEFOLLOWER_LEFT_ACTIVE_LOW"`
	RightActiveLow    bool `yaml:"right_active_low" env:"LINEFOLLOWER_RIGHT_ACTIVE_LOW"`
	ObstacleActiveLow bool `yaml:"obstacle_active_low" env:"LINEFOLLOWER_OBSTACLE_ACTIVE_LOW"`
}

// Timing controls the control loop's blocking waits.
type Timing struct {
	Settle time.Duration `yaml:"settle" env:"LINEFOLLOWER_SETTLE"`
	Poll   time.Duration `yaml:"poll" env:"LINEFOLLOWER_POLL"`
}

// Telemetry configures the optional outbound surfaces. Empty disables.
type Telemetry struct {
	Broker    string        `yaml:"broker" env:"LINEFOLLOWER_BROKER"`
	ClientID  string        `yaml:"client_id" env:"LINEFOLLOWER_CLIENT_ID"`
	Heartbeat time.Duration `yaml:"heartbeat" env:"LINEFOLLOWER_HEARTBEAT"`
	HTTPAddr  string        `yaml:"http" env:"LINEFOLLOWER_HTTP"`
}

// Default returns the built-in configuration.
func Default() Config {
	p := gpio.DefaultPins()
	return Config{
		Pins: Pins{
			Chip:     p.Chip,
			Left:     p.Left,
			Right:    p.Right,
			Obstacle: p.Obstacle,
			LeftPos:  p.LeftPos,
			LeftNeg:  p.LeftNeg,
			RightPos: p.RightPos,
			RightNeg: p.RightNeg,
		},
		Timing: Timing{Settle: logic.DefaultSettle},
		Telemetry: Telemetry{
			ClientID:  "line-follower",
			Heartbeat: 15 * time.Minute,
		},
	}
}

// Load builds a Config from the defaults, the YAML file at path (skipped when
// path is empty) and the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := Parse(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg. Keys absent from data keep their current
// value; unknown keys are an error.
func Parse(data []byte, cfg *Config) error {
	return yaml.UnmarshalStrict(data, cfg)
}

// Validate checks the wiring and timing.
func (c Config) Validate() error {
	if err := c.GPIOPins().Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.Timing.Settle <= 0 {
		return ErrInvalidSettle
	}
	if c.Timing.Poll < 0 {
		return ErrInvalidPoll
	}
	return nil
}

// GPIOPins converts the wiring for the pin layer.
func (c Config) GPIOPins() gpio.Pins {
	return gpio.Pins{
		Chip:     c.Pins.Chip,
		Left:     c.Pins.Left,
		Right:    c.Pins.Right,
		Obstacle: c.Pins.Obstacle,
		LeftPos:  c.Pins.LeftPos,
		LeftNeg:  c.Pins.LeftNeg,
		RightPos: c.Pins.RightPos,
		RightNeg: c.Pins.RightNeg,
	}
}

// GPIOPolarity converts the sensor polarity for the pin layer.
func (c Config) GPIOPolarity() gpio.Polarity {
	return gpio.Polarity{
		LeftActiveLow:     c.Polarity.LeftActiveLow,
		RightActiveLow:    c.Polarity.RightActiveLow,
		ObstacleActiveLow: c.Polarity.ObstacleActiveLow,
	}
}

// ActiveLowSensors names the sensors configured active-low.
func (c Config) ActiveLowSensors() []string {
	var out []string
	if c.Polarity.LeftActiveLow {
		out = append(out, "left")
	}
	if c.Polarity.RightActiveLow {
		out = append(out, "right")
	}
	if c.Polarity.ObstacleActiveLow {
		out = append(out, "obstacle")
	}
	return out
}

// ControllerOptions returns the loop timing.
func (c Config) ControllerOptions() logic.Options {
	return logic.Options{Settle: c.Timing.Settle, Poll: c.Timing.Poll}
}
