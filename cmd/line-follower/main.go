// Command line-follower drives a two-wheeled line-following robot from three
// binary sensors and four motor direction lines on the GPIO character device.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v6"

	"github.com/sweeney/line-follower/internal/config"
	"github.com/sweeney/line-follower/internal/gpio"
	"github.com/sweeney/line-follower/internal/logic"
	"github.com/sweeney/line-follower/internal/mqtt"
	"github.com/sweeney/line-follower/internal/status"
	"github.com/sweeney/line-follower/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (optional)")
	chip := flag.String("chip", gpio.DefaultChip, "GPIO chip name")
	settle := flag.Duration("settle", logic.DefaultSettle, "Pause after an obstacle stop")
	poll := flag.Duration("poll", 0, "Pause between iterations (0 polls continuously)")
	broker := flag.String("broker", "", "MQTT broker address (empty to disable)")
	heartbeat := flag.Duration("heartbeat", 15*time.Minute, "Heartbeat interval (0 to disable)")
	httpAddr := flag.String("http", "", "HTTP status address (empty to disable)")
	printState := flag.Bool("print-state", false, "Print current sensor state and exit")
	shell := flag.Bool("shell", false, "Start the interactive bench shell instead of the control loop")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}

	// Flags given explicitly win over file and environment.
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "chip":
			cfg.Pins.Chip = *chip
		case "settle":
			cfg.Timing.Settle = *settle
		case "poll":
			cfg.Timing.Poll = *poll
		case "broker":
			cfg.Telemetry.Broker = *broker
		case "heartbeat":
			cfg.Telemetry.Heartbeat = *heartbeat
		case "http":
			cfg.Telemetry.HTTPAddr = *httpAddr
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatalf("fatal: %v", err)
	}

	if err := run(cfg, *printState, *shell); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg config.Config, printState, shell bool) error {
	hw := gpio.NewRealIO(cfg.GPIOPins(), cfg.GPIOPolarity())
	if err := hw.Configure(); err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer hw.Close()

	if printState {
		r, err := hw.ReadSensors()
		if err != nil {
			return fmt.Errorf("read gpio: %w", err)
		}
		fmt.Printf("%s command=%s\n", describeReading(r), logic.Classify(r))
		return nil
	}

	ctrl := logic.NewController(hw, logic.SleeperFunc(time.Sleep), cfg.ControllerOptions(), time.Now)

	if shell {
		return runShell(hw, ctrl)
	}

	var publisher mqtt.Publisher = mqtt.Discard{}
	var mqttStatus mqtt.ConnectionStatus
	if cfg.Telemetry.Broker != "" {
		p, err := mqtt.NewRealPublisher(cfg.Telemetry.Broker, cfg.Telemetry.ClientID)
		if err != nil {
			return fmt.Errorf("init mqtt: %w", err)
		}
		defer p.Close()
		publisher = p
		mqttStatus = p
	}

	tracker := status.NewTracker(ctrl.StartTime(), statusConfig(cfg))
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	if mqttStatus != nil {
		tracker.SetMQTTConnected(mqttStatus.IsConnected())
	}

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	}

	if cfg.Telemetry.HTTPAddr != "" {
		srv := web.New(cfg.Telemetry.HTTPAddr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.Telemetry.HTTPAddr)
	}

	log.Printf("started: chip=%s sensors=%v motors=%v settle=%v poll=%v broker=%q heartbeat=%v",
		cfg.Pins.Chip, cfg.GPIOPins().SensorOffsets(), cfg.GPIOPins().MotorOffsets(),
		cfg.Timing.Settle, cfg.Timing.Poll, cfg.Telemetry.Broker, cfg.Telemetry.Heartbeat)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctrl, publisher, mqttStatus, tracker, cfg.Telemetry.Heartbeat, sigCh)
}

// runLoop runs the controller until a signal arrives. Signals are only acted
// on between iterations; an obstacle settle delay always completes.
func runLoop(ctrl *logic.Controller, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *status.Tracker, heartbeat time.Duration, sig <-chan os.Signal) error {
	stop := make(chan struct{})
	var received os.Signal
	go func() {
		received = <-sig
		close(stop)
	}()

	var lastErr string
	var last logic.Result
	loopErr := ctrl.Run(stop, func(res logic.Result) {
		last = res
		if res.Err != nil {
			if msg := res.Err.Error(); msg != lastErr {
				log.Printf("control error: %v", res.Err)
				lastErr = msg
			}
		} else {
			lastErr = ""
		}

		if tracker != nil {
			tracker.Update(res, ctrl.CountsSnapshot())
		}

		if res.Changed {
			log.Printf("command: %s (%s) lines=%s", res.Command, describeReading(res.Reading), res.Lines)
			if err := publisher.Publish(res); err != nil {
				log.Printf("publish error: %v", err)
			}
			if tracker != nil && mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
		}

		if hb := ctrl.CheckHeartbeat(res.Time, heartbeat); hb != nil {
			log.Printf("heartbeat: uptime=%v iterations=%d obstacle_stops=%d faults=%d",
				hb.Uptime.Truncate(time.Second), hb.Counts.Iterations, hb.Counts.ObstacleStops, hb.Counts.Faults)

			hbEvent := mqtt.SystemEvent{Timestamp: hb.Timestamp, Event: "HEARTBEAT"}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				if net := readNetworkInfo(); net != nil {
					tracker.SetNetwork(net)
				}
				hbEvent.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "HEARTBEAT", "")
			}
			if err := publisher.PublishSystem(hbEvent); err != nil {
				log.Printf("heartbeat publish error: %v", err)
			}
		}
	})

	signalName := signalString(received)
	if loopErr != nil {
		log.Printf("received %s, shutting down: %v", signalName, loopErr)
	} else {
		log.Printf("received %s, motors stopped, shutting down", signalName)
	}

	event := mqtt.SystemEvent{
		Timestamp: time.Now(),
		Event:     "SHUTDOWN",
		Reason:    signalName,
		Retained:  true,
	}
	if tracker != nil {
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		last.Command = ctrl.Current()
		last.Lines = logic.LinesFor(last.Command)
		last.Obstacle = false
		tracker.Update(last, ctrl.CountsSnapshot())
		event.RawPayload = status.FormatStatusEvent(tracker.Snapshot(), "SHUTDOWN", signalName)
	}
	if err := publisher.PublishSystem(event); err != nil {
		log.Printf("failed to publish shutdown event: %v", err)
	}

	return loopErr
}

func signalString(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}

// networkEnv is the network state pi-helper writes to /run/pi-helper.env.
type networkEnv struct {
	Type       string `env:"NETWORK_TYPE"`
	IP         string `env:"NETWORK_IP"`
	Status     string `env:"NETWORK_STATUS"`
	Gateway    string `env:"NETWORK_GATEWAY"`
	WifiStatus string `env:"NETWORK_WIFI_STATUS"`
	SSID       string `env:"NETWORK_WIFI_SSID"`
}

func readNetworkInfo() *status.NetworkInfo {
	var n networkEnv
	if err := env.Parse(&n); err != nil || n.Status == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       n.Type,
		IP:         n.IP,
		Status:     n.Status,
		Gateway:    n.Gateway,
		WifiStatus: n.WifiStatus,
		SSID:       n.SSID,
	}
}

func statusConfig(cfg config.Config) status.Config {
	pins := cfg.GPIOPins()
	return status.Config{
		Chip:        pins.Chip,
		SensorPins:  pins.SensorOffsets(),
		MotorPins:   pins.MotorOffsets(),
		ActiveLow:   cfg.ActiveLowSensors(),
		SettleMs:    cfg.Timing.Settle.Milliseconds(),
		PollMs:      cfg.Timing.Poll.Milliseconds(),
		HeartbeatMs: cfg.Telemetry.Heartbeat.Milliseconds(),
		Broker:      cfg.Telemetry.Broker,
		HTTPAddr:    cfg.Telemetry.HTTPAddr,
	}
}

func describeReading(r logic.SensorReading) string {
	return fmt.Sprintf("left=%d right=%d obstacle=%d", b2i(r.Left), b2i(r.Right), b2i(r.Obstacle))
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
