package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Command       string       `json:"command"`
	Sensors       SensorsJSON  `json:"sensors"`
	Lines         []int        `json:"lines"`
	Obstacle      bool         `json:"obstacle"`
	LastError     string       `json:"last_error,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// SensorsJSON is the last sensor reading.
type SensorsJSON struct {
	Left     bool `json:"left"`
	Right    bool `json:"right"`
	Obstacle bool `json:"obstacle"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of loop counts.
type CountsJSON struct {
	Iterations    uint64 `json:"iterations"`
	Forward       int    `json:"forward"`
	TurnLeft      int    `json:"turn_left"`
	TurnRight     int    `json:"turn_right"`
	Stop          int    `json:"stop"`
	ObstacleStops int    `json:"obstacle_stops"`
	Faults        int    `json:"faults"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Chip        string   `json:"chip"`
	SensorPins  []int    `json:"sensor_pins"`
	MotorPins   []int    `json:"motor_pins"`
	ActiveLow   []string `json:"active_low,omitempty"`
	SettleMs    int64    `json:"settle_ms"`
	PollMs      int64    `json:"poll_ms"`
	HeartbeatMs int64    `json:"heartbeat_ms"`
	Broker      string   `json:"broker"`
	HTTPAddr    string   `json:"http_addr"`
}

// CommandOrUnknown returns the command name, or UNKNOWN before the first iteration.
func (s Snapshot) CommandOrUnknown() string {
	if s.Command == "" {
		return "UNKNOWN"
	}
	return string(s.Command)
}

func buildInner(snap Snapshot) StatusInner {
	inner := StatusInner{
		Command: snap.CommandOrUnknown(),
		Sensors: SensorsJSON{
			Left:     snap.Reading.Left,
			Right:    snap.Reading.Right,
			Obstacle: snap.Reading.Obstacle,
		},
		Lines:         snap.Lines.Bits(),
		Obstacle:      snap.Obstacle,
		LastError:     snap.LastError,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Iterations:    snap.Counts.Iterations,
			Forward:       snap.Counts.Forward,
			TurnLeft:      snap.Counts.TurnLeft,
			TurnRight:     snap.Counts.TurnRight,
			Stop:          snap.Counts.Stop,
			ObstacleStops: snap.Counts.ObstacleStops,
			Faults:        snap.Counts.Faults,
		},
		Config: ConfigJSON{
			Chip:        snap.Config.Chip,
			SensorPins:  snap.Config.SensorPins,
			MotorPins:   snap.Config.MotorPins,
			ActiveLow:   snap.Config.ActiveLow,
			SettleMs:    snap.Config.SettleMs,
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}

	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
	return inner
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
