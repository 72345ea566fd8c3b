// Package status provides a thread-safe status tracker for the line-follower daemon.
// The control loop writes it; HTTP handlers read it from their own goroutines.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/line-follower/internal/logic"
)

// NetworkInfo contains network state as written by pi-helper.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Chip        string
	SensorPins  []int // left, right, obstacle
	MotorPins   []int // left+, left-, right+, right-
	ActiveLow   []string
	SettleMs    int64
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Command       logic.Command
	Reading       logic.SensorReading
	Lines         logic.Lines
	Obstacle      bool
	LastError     string
	Counts        logic.Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records the outcome of one loop iteration and the running counts.
func (t *Tracker) Update(res logic.Result, counts logic.Counts) {
	t.mu.Lock()
	t.snap.Command = res.Command
	t.snap.Reading = res.Reading
	t.snap.Lines = res.Lines
	t.snap.Obstacle = res.Obstacle
	if res.Err != nil {
		t.snap.LastError = res.Err.Error()
	} else {
		t.snap.LastError = ""
	}
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
