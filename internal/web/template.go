package web

import (
	"fmt"
	"html/template"
	"io"
	"log"
	"time"

	"github.com/sweeney/line-follower/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"onoff": func(b bool) string {
		if b {
			return "1"
		}
		return "0"
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>Line Follower</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.FORWARD { color: green; font-weight: bold; }
.TURN_LEFT, .TURN_RIGHT { color: #06c; font-weight: bold; }
.STOP { color: red; font-weight: bold; }
.UNKNOWN { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Line Follower</h1>

<h2>Drive</h2>
<table>
<tr><th>Command</th><td id="command" class="{{.CommandOrUnknown}}">{{.CommandOrUnknown}}</td></tr>
<tr><th>Motor lines</th><td>{{.Lines}}</td></tr>
<tr><th>Obstacle stop</th><td>{{if .Obstacle}}yes{{else}}no{{end}}</td></tr>
{{if .LastError}}<tr><th>Last error</th><td class="disconnected">{{.LastError}}</td></tr>{{end}}
</table>

<h2>Sensors</h2>
<table>
<tr><th>Left</th><td>{{onoff .Reading.Left}}</td></tr>
<tr><th>Right</th><td>{{onoff .Reading.Right}}</td></tr>
<tr><th>Obstacle</th><td>{{onoff .Reading.Obstacle}}</td></tr>
</table>

<h2>Counts</h2>
<table>
<tr><th>Iterations</th><td>{{.Counts.Iterations}}</td></tr>
<tr><th>Forward</th><td>{{.Counts.Forward}}</td></tr>
<tr><th>Turn left</th><td>{{.Counts.TurnLeft}}</td></tr>
<tr><th>Turn right</th><td>{{.Counts.TurnRight}}</td></tr>
<tr><th>Stop</th><td>{{.Counts.Stop}}</td></tr>
<tr><th>Obstacle stops</th><td>{{.Counts.ObstacleStops}}</td></tr>
<tr><th>Faults</th><td>{{.Counts.Faults}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Chip</th><td>{{.Config.Chip}}</td></tr>
<tr><th>Sensor pins</th><td>{{.Config.SensorPins}}</td></tr>
<tr><th>Motor pins</th><td>{{.Config.MotorPins}}</td></tr>
<tr><th>Settle</th><td>{{.Config.SettleMs}}ms</td></tr>
<tr><th>Poll</th><td>{{if eq .Config.PollMs 0}}continuous{{else}}{{.Config.PollMs}}ms{{end}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	if err := indexTmpl.Execute(w, data); err != nil {
		log.Printf("web: render index: %v", err)
	}
}
