package main

import (
	"bytes"
	"errors"
	"log"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/line-follower/internal/config"
	"github.com/sweeney/line-follower/internal/gpio"
	"github.com/sweeney/line-follower/internal/logic"
	"github.com/sweeney/line-follower/internal/mqtt"
	"github.com/sweeney/line-follower/internal/status"
)

func TestReadNetworkInfoAllSet(t *testing.T) {
	t.Setenv("NETWORK_TYPE", "wifi")
	t.Setenv("NETWORK_IP", "192.168.1.100")
	t.Setenv("NETWORK_STATUS", "connected")
	t.Setenv("NETWORK_GATEWAY", "192.168.1.1")
	t.Setenv("NETWORK_WIFI_STATUS", "connected")
	t.Setenv("NETWORK_WIFI_SSID", "MyNetwork")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo")
	}

	want := status.NetworkInfo{
		Type:       "wifi",
		IP:         "192.168.1.100",
		Status:     "connected",
		Gateway:    "192.168.1.1",
		WifiStatus: "connected",
		SSID:       "MyNetwork",
	}
	if *info != want {
		t.Errorf("got %+v, want %+v", *info, want)
	}
}

func TestReadNetworkInfoNoneSet(t *testing.T) {
	t.Setenv("NETWORK_STATUS", "")
	if info := readNetworkInfo(); info != nil {
		t.Errorf("expected nil when NETWORK_STATUS is unset, got %+v", info)
	}
}

func TestReadNetworkInfoPartial(t *testing.T) {
	t.Setenv("NETWORK_STATUS", "connected")

	info := readNetworkInfo()
	if info == nil {
		t.Fatal("expected non-nil NetworkInfo when NETWORK_STATUS is set")
	}
	if info.Status != "connected" {
		t.Errorf("Status: got %q, want connected", info.Status)
	}
}

func TestStatusConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Polarity.ObstacleActiveLow = true
	cfg.Telemetry.Broker = "tcp://10.0.0.5:1883"

	sc := statusConfig(cfg)
	if sc.Chip != "gpiochip0" {
		t.Errorf("Chip: got %q", sc.Chip)
	}
	if len(sc.SensorPins) != 3 || len(sc.MotorPins) != 4 {
		t.Errorf("pins: got %v %v", sc.SensorPins, sc.MotorPins)
	}
	if sc.SettleMs != 100 {
		t.Errorf("SettleMs: got %d, want 100", sc.SettleMs)
	}
	if len(sc.ActiveLow) != 1 || sc.ActiveLow[0] != "obstacle" {
		t.Errorf("ActiveLow: got %v", sc.ActiveLow)
	}
	if sc.Broker != "tcp://10.0.0.5:1883" {
		t.Errorf("Broker: got %q", sc.Broker)
	}
}

func TestSignalString(t *testing.T) {
	if signalString(syscall.SIGINT) != "SIGINT" || signalString(syscall.SIGTERM) != "SIGTERM" {
		t.Error("unexpected signal names")
	}
	if signalString(nil) != "UNKNOWN" {
		t.Error("expected UNKNOWN for nil signal")
	}
}

func TestDescribeReading(t *testing.T) {
	got := describeReading(logic.SensorReading{Left: true, Obstacle: true})
	if got != "left=1 right=0 obstacle=1" {
		t.Errorf("got %q", got)
	}
}

// --- runLoop tests ---

// fakeClock returns a function that yields start, start+step, start+2*step, ...
// on successive calls. Only called from the control loop's goroutine.
func fakeClock(start time.Time, step time.Duration) func() time.Time {
	n := 0
	return func() time.Time {
		t := start.Add(time.Duration(n) * step)
		n++
		return t
	}
}

// signalingIO sends a signal once the given number of reads have happened.
// Later iterations keep reading the last sample until the loop notices.
type signalingIO struct {
	*gpio.FakeIO
	sig    chan os.Signal
	signal os.Signal
	after  int
	reads  int
}

func (s *signalingIO) ReadSensors() (logic.SensorReading, error) {
	s.reads++
	if s.reads == s.after {
		s.sig <- s.signal
	}
	return s.FakeIO.ReadSensors()
}

type recordingSleeper struct {
	slept []time.Duration
}

func (r *recordingSleeper) Sleep(d time.Duration) {
	r.slept = append(r.slept, d)
}

type loopResult struct {
	err     error
	io      *gpio.FakeIO
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	sleeper *recordingSleeper
}

func runRunLoop(t *testing.T, fake *gpio.FakeIO, pub *mqtt.FakePublisher, heartbeat time.Duration, clock func() time.Time, signal os.Signal) loopResult {
	t.Helper()
	if err := fake.Configure(); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	sig := make(chan os.Signal, 1)
	hw := &signalingIO{FakeIO: fake, sig: sig, signal: signal, after: len(fake.Samples)}
	if hw.after == 0 {
		hw.after = 1
	}

	sleeper := &recordingSleeper{}
	ctrl := logic.NewController(hw, sleeper, logic.Options{}, clock)
	tracker := status.NewTracker(ctrl.StartTime(), status.Config{})

	err := runLoop(ctrl, pub, pub, tracker, heartbeat, sig)
	return loopResult{err: err, io: fake, pub: pub, tracker: tracker, sleeper: sleeper}
}

func start() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func systemEvents(pub *mqtt.FakePublisher, name string) []mqtt.SystemEvent {
	var out []mqtt.SystemEvent
	for _, se := range pub.SystemEvents {
		if se.Event == name {
			out = append(out, se)
		}
	}
	return out
}

func TestRunLoopPublishesCommandChanges(t *testing.T) {
	fake := gpio.NewFakeIO([]logic.SensorReading{
		{},
		{},
		{Left: true},
		{Left: true},
		{Right: true},
		{Obstacle: true, Left: true},
		{},
	})
	res := runRunLoop(t, fake, mqtt.NewFakePublisher(), 0, fakeClock(start(), 10*time.Millisecond), syscall.SIGTERM)
	if res.err != nil {
		t.Fatalf("runLoop returned error: %v", res.err)
	}

	want := []logic.Command{
		logic.CommandForward,
		logic.CommandTurnLeft,
		logic.CommandTurnRight,
		logic.CommandStop,
		logic.CommandForward,
	}
	got := res.pub.Commands()
	if len(got) != len(want) {
		t.Fatalf("published commands: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("command %d: got %s, want %s", i, got[i], want[i])
		}
	}
	if !res.pub.Results[3].Obstacle {
		t.Error("expected obstacle flag on the STOP event")
	}
}

func TestRunLoopObstacleSettles(t *testing.T) {
	fake := gpio.NewFakeIO([]logic.SensorReading{{}, {Obstacle: true}, {}})
	res := runRunLoop(t, fake, mqtt.NewFakePublisher(), 0, fakeClock(start(), time.Millisecond), syscall.SIGTERM)

	if len(res.sleeper.slept) != 1 || res.sleeper.slept[0] != 100*time.Millisecond {
		t.Errorf("expected one 100ms settle, got %v", res.sleeper.slept)
	}
	if res.tracker.Snapshot().Counts.ObstacleStops != 1 {
		t.Errorf("expected 1 obstacle stop, got %d", res.tracker.Snapshot().Counts.ObstacleStops)
	}
}

func TestRunLoopStopsMotorsOnShutdown(t *testing.T) {
	fake := gpio.NewFakeIO([]logic.SensorReading{{}, {}})
	res := runRunLoop(t, fake, mqtt.NewFakePublisher(), 0, fakeClock(start(), time.Millisecond), syscall.SIGTERM)

	last := res.io.Writes[len(res.io.Writes)-1]
	if last != (logic.Lines{}) {
		t.Errorf("expected final write to stop motors, got %s", last)
	}
	if res.tracker.Snapshot().Command != logic.CommandStop {
		t.Errorf("tracker command after shutdown: got %s, want STOP", res.tracker.Snapshot().Command)
	}
}

func TestRunLoopShutdownEvent(t *testing.T) {
	for _, sig := range []os.Signal{syscall.SIGTERM, syscall.SIGINT} {
		fake := gpio.NewFakeIO([]logic.SensorReading{{}})
		res := runRunLoop(t, fake, mqtt.NewFakePublisher(), 0, fakeClock(start(), time.Millisecond), sig)

		shutdowns := systemEvents(res.pub, "SHUTDOWN")
		if len(shutdowns) != 1 {
			t.Fatalf("%v: expected 1 SHUTDOWN, got %d", sig, len(shutdowns))
		}
		want := signalString(sig)
		if shutdowns[0].Reason != want {
			t.Errorf("reason: got %q, want %q", shutdowns[0].Reason, want)
		}
		if !shutdowns[0].Retained {
			t.Error("SHUTDOWN should be retained")
		}
		if !strings.Contains(string(shutdowns[0].RawPayload), `"reason":"`+want+`"`) {
			t.Errorf("payload missing reason: %s", shutdowns[0].RawPayload)
		}
	}
}

func TestRunLoopReadErrorFailsSafe(t *testing.T) {
	fake := gpio.NewFakeIO([]logic.SensorReading{{}})
	fake.ReadError = errors.New("gpio fault")

	res := runRunLoop(t, fake, mqtt.NewFakePublisher(), 0, fakeClock(start(), time.Millisecond), syscall.SIGTERM)
	if res.err != nil {
		t.Fatalf("runLoop returned error: %v", res.err)
	}

	for i, w := range res.io.Writes {
		if w != (logic.Lines{}) {
			t.Fatalf("write %d: expected STOP while sensors unreadable, got %s", i, w)
		}
	}
	snap := res.tracker.Snapshot()
	if snap.Counts.Faults == 0 {
		t.Error("expected faults to be counted")
	}
	if !strings.Contains(snap.LastError, "gpio fault") {
		t.Errorf("LastError: got %q", snap.LastError)
	}
	if len(systemEvents(res.pub, "SHUTDOWN")) != 1 {
		t.Error("expected SHUTDOWN after GPIO errors")
	}
}

func TestRunLoopWriteFaultDoesNotPublishChanges(t *testing.T) {
	var logs bytes.Buffer
	log.SetOutput(&logs)
	defer log.SetOutput(os.Stderr)

	samples := make([]logic.SensorReading, 50)
	fake := gpio.NewFakeIO(samples)
	fake.ApplyError = errors.New("write fault")

	res := runRunLoop(t, fake, mqtt.NewFakePublisher(), 0, fakeClock(start(), time.Millisecond), syscall.SIGTERM)
	if res.err == nil {
		t.Fatal("expected error when the final stop cannot be written")
	}

	if n := len(res.pub.Results); n != 0 {
		t.Errorf("published %d command changes while no write succeeded", n)
	}
	if n := strings.Count(logs.String(), "command: "); n != 0 {
		t.Errorf("logged %d command changes while no write succeeded", n)
	}
	if n := strings.Count(logs.String(), "control error:"); n != 1 {
		t.Errorf("expected the repeated fault logged once, got %d", n)
	}
	if strings.Contains(logs.String(), "motors stopped") {
		t.Errorf("shutdown log claims motors stopped after a failed stop:\n%s", logs.String())
	}
	if !strings.Contains(logs.String(), "stop motors: write fault") {
		t.Errorf("shutdown log should carry the stop error:\n%s", logs.String())
	}
}

func TestRunLoopPublishErrorDoesNotStopLoop(t *testing.T) {
	fake := gpio.NewFakeIO([]logic.SensorReading{{}, {Left: true}, {Right: true}})
	pub := mqtt.NewFakePublisher()
	pub.PublishError = errors.New("broker unavailable")

	res := runRunLoop(t, fake, pub, 0, fakeClock(start(), time.Millisecond), syscall.SIGTERM)
	if res.err != nil {
		t.Fatalf("runLoop returned error: %v", res.err)
	}
	if len(pub.Results) != 0 {
		t.Errorf("expected 0 recorded results, got %d", len(pub.Results))
	}
	if res.tracker.Snapshot().Counts.TurnRight == 0 {
		t.Error("loop should have kept running past publish errors")
	}
	if len(systemEvents(pub, "SHUTDOWN")) != 1 {
		t.Error("expected SHUTDOWN despite publish errors")
	}
}

func TestRunLoopHeartbeat(t *testing.T) {
	// Clock calls: start (t0), then one per iteration at +5m, +10m, +15m...
	// The 15-minute heartbeat fires on the third iteration.
	fake := gpio.NewFakeIO([]logic.SensorReading{{}, {}, {}})
	res := runRunLoop(t, fake, mqtt.NewFakePublisher(), 15*time.Minute, fakeClock(start(), 5*time.Minute), syscall.SIGTERM)

	hbs := systemEvents(res.pub, "HEARTBEAT")
	if len(hbs) == 0 {
		t.Fatal("expected at least one HEARTBEAT")
	}
	if !hbs[0].Timestamp.Equal(start().Add(15 * time.Minute)) {
		t.Errorf("heartbeat timestamp: got %v", hbs[0].Timestamp)
	}
	if !strings.Contains(string(hbs[0].RawPayload), `"event":"HEARTBEAT"`) {
		t.Errorf("heartbeat payload: %s", hbs[0].RawPayload)
	}
}

func TestRunLoopHeartbeatDisabled(t *testing.T) {
	fake := gpio.NewFakeIO([]logic.SensorReading{{}, {}, {}})
	res := runRunLoop(t, fake, mqtt.NewFakePublisher(), 0, fakeClock(start(), time.Hour), syscall.SIGTERM)

	if n := len(systemEvents(res.pub, "HEARTBEAT")); n != 0 {
		t.Errorf("expected no heartbeats, got %d", n)
	}
}

func TestRunLoopTracksMQTTConnection(t *testing.T) {
	fake := gpio.NewFakeIO([]logic.SensorReading{{}})
	pub := mqtt.NewFakePublisher()
	pub.Connected = true

	res := runRunLoop(t, fake, pub, 0, fakeClock(start(), time.Millisecond), syscall.SIGTERM)
	if !res.tracker.Snapshot().MQTTConnected {
		t.Error("expected tracker to report MQTT connected")
	}
}

// --- bench shell ---

func configuredFake(t *testing.T, samples []logic.SensorReading) *gpio.FakeIO {
	t.Helper()
	f := gpio.NewFakeIO(samples)
	if err := f.Configure(); err != nil {
		t.Fatalf("Configure: %v", err)
	}
	return f
}

func TestShellRead(t *testing.T) {
	f := configuredFake(t, []logic.SensorReading{{Right: true}})
	if got := shellRead(f); got != "left=0 right=1 obstacle=0 -> TURN_RIGHT" {
		t.Errorf("got %q", got)
	}
	if len(f.Writes) != 0 {
		t.Error("read must not drive the motors")
	}
}

func TestShellDrive(t *testing.T) {
	f := configuredFake(t, nil)

	if got := shellDrive(f, []string{"left"}); got != "TURN_LEFT lines=(0,0,1,0)" {
		t.Errorf("got %q", got)
	}
	if f.Output != logic.LinesFor(logic.CommandTurnLeft) {
		t.Errorf("output: got %s", f.Output)
	}

	if got := shellDrive(f, nil); !strings.HasPrefix(got, "usage") {
		t.Errorf("expected usage, got %q", got)
	}
	if got := shellDrive(f, []string{"reverse"}); !strings.HasPrefix(got, "error") {
		t.Errorf("expected error, got %q", got)
	}
}

func TestShellStep(t *testing.T) {
	f := configuredFake(t, []logic.SensorReading{{Obstacle: true}})
	sleeper := &recordingSleeper{}
	ctrl := logic.NewController(f, sleeper, logic.Options{}, fakeClock(start(), time.Millisecond))

	got := shellStep(ctrl)
	if got != "left=0 right=0 obstacle=1 -> STOP lines=(0,0,0,0) (obstacle, settled)" {
		t.Errorf("got %q", got)
	}
	if len(sleeper.slept) != 1 {
		t.Errorf("expected settle delay, got %v", sleeper.slept)
	}
}
