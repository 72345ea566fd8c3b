// Package mqtt provides outbound telemetry publishing with abstraction for testing.
// Nothing received from the broker ever reaches the control loop.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/line-follower/internal/logic"
)

// Topic is the MQTT topic for drive command changes.
const Topic = "robot/line-follower/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "robot/line-follower/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a command change to the broker.
	// Must not block the control loop; failures are reported, never fatal.
	Publish(result logic.Result) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Robot RobotPayload `json:"robot"`
}

// RobotPayload contains the command change details.
type RobotPayload struct {
	Timestamp string        `json:"timestamp"`
	Command   string        `json:"command"`
	Previous  string        `json:"previous,omitempty"`
	Obstacle  bool          `json:"obstacle"`
	Sensors   SensorPayload `json:"sensors"`
	Lines     []int         `json:"lines"`
}

// SensorPayload is the reading that produced the command.
type SensorPayload struct {
	Left     bool `json:"left"`
	Right    bool `json:"right"`
	Obstacle bool `json:"obstacle"`
}

// FormatPayload creates the JSON payload for a command change.
func FormatPayload(result logic.Result) ([]byte, error) {
	payload := Payload{
		Robot: RobotPayload{
			Timestamp: result.Time.UTC().Format(time.RFC3339Nano),
			Command:   string(result.Command),
			Previous:  string(result.Previous),
			Obstacle:  result.Obstacle,
			Sensors: SensorPayload{
				Left:     result.Reading.Left,
				Right:    result.Reading.Right,
				Obstacle: result.Reading.Obstacle,
			},
			Lines: result.Lines.Bits(),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// WillPayload is the last-will message the broker publishes if the
// connection drops without a clean disconnect. It carries no timestamp
// because it is registered at connect time.
func WillPayload() []byte {
	data, _ := json.Marshal(SystemPayload{
		System: SystemPayloadInner{Event: "OFFLINE", Reason: "CONNECTION_LOST"},
	})
	return data
}

// Discard is a Publisher that drops everything. Used when no broker is configured.
type Discard struct{}

// Publish drops the result.
func (Discard) Publish(logic.Result) error { return nil }

// PublishSystem drops the event.
func (Discard) PublishSystem(SystemEvent) error { return nil }

// Close does nothing.
func (Discard) Close() error { return nil }
