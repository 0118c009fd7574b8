package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/mask-gate/internal/logic"
	"github.com/sweeney/mask-gate/internal/status"
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
	"stateClass": func(s logic.State) string {
		switch s {
		case logic.StatePositive:
			return "granted"
		case logic.StateNegative:
			return "denied"
		}
		return "unknown"
	},
	"pct": func(f float64) string {
		return fmt.Sprintf("%.0f%%", f*100)
	},
	"ms": func(ms int64) string {
		return (time.Duration(ms) * time.Millisecond).String()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Mask Gate</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.granted { color: green; font-weight: bold; }
.denied { color: red; font-weight: bold; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Mask Gate</h1>

<h2>Access</h2>
<table>
<tr><th>Confirmed</th><td id="state" class="{{stateClass .State}}">{{.State}}</td></tr>
<tr><th>Since</th><td>{{.LastChange.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Last frame</th><td>{{.Last.Kind}}{{if .Last.Label}} ({{.Last.Label}} {{pct .Last.Confidence}}){{end}}</td></tr>
<tr><th>FPS</th><td>{{printf "%.2f" .FPS}}</td></tr>
<tr><th>Frames</th><td>{{.Frames}}</td></tr>
</table>

<h2>Event Counts</h2>
<table>
<tr><th>Granted</th><td>{{.Counts.Granted}}</td></tr>
<tr><th>Denied</th><td>{{.Counts.Denied}}</td></tr>
</table>
{{if .Recent}}
<h2>Recent Transitions</h2>
<table>
{{range .Recent}}<tr><th>{{.Timestamp.UTC.Format "2006-01-02T15:04:05Z"}}</th><td class="{{stateClass .State}}">{{.Type}}{{if .Label}} ({{.Label}} {{pct .Confidence}}){{end}}</td></tr>
{{end}}</table>
{{end}}
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
<tr><th>Camera</th><td>{{.Config.Camera}}{{if .Config.Headless}} (headless){{end}}</td></tr>
<tr><th>Threshold</th><td>{{.Config.Threshold}}</td></tr>
<tr><th>Grant dwell</th><td>{{ms .Config.GrantDwellMs}}</td></tr>
<tr><th>Deny dwell</th><td>{{ms .Config.DenyDwellMs}}</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{ms .Config.HeartbeatMs}}{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/events.json">Events</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot, recent []logic.Event) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
		Recent []logic.Event
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
		Recent:   recent,
	}
	return indexTmpl.Execute(w, data)
}
