package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/dcf77-receiver/internal/status"
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
	"hex": func(v uint64) string {
		return fmt.Sprintf("0x%016x", v)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>DCF77 Receiver</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.synced { color: green; font-weight: bold; }
.searching { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.time { font-size: 1.2em; font-weight: bold; }
</style>
</head>
<body>
<h1>DCF77 Receiver</h1>

<h2>Signal</h2>
<table>
<tr><th>State</th><td class="{{if .Synced}}synced{{else}}searching{{end}}">{{if .Synced}}SYNCED{{else}}SEARCHING{{end}}</td></tr>
{{if .Synced}}<tr><th>Second</th><td>:{{printf "%02d" .Second}}</td></tr>{{end}}
</table>

<h2>Last Frame</h2>
<table>
{{if .LastFrame}}<tr><th>Time</th><td class="time">{{.LastFrame.Time.Format "2006-01-02 15:04 MST"}}</td></tr>
<tr><th>Received</th><td>{{.LastFrame.ReceivedAt.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Zone</th><td>{{if .LastFrame.CEST}}CEST (summer){{else}}CET (winter){{end}}</td></tr>
<tr><th>Raw</th><td>{{hex .LastFrame.Raw}}</td></tr>
{{else}}<tr><th>Time</th><td>none decoded yet</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>Decode Counts</h2>
<table>
<tr><th>Bits</th><td>{{.Counts.Bits}}</td></tr>
<tr><th>Faulty bits</th><td>{{.Counts.FaultyBits}}</td></tr>
<tr><th>Cycles</th><td>{{.Counts.Cycles}}</td></tr>
<tr><th>Frames OK</th><td>{{.Counts.FramesOK}}</td></tr>
<tr><th>Frames rejected</th><td>{{.Counts.FramesBad}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>GPIO</th><td>{{.Config.Chip}} pin {{.Config.Pin}}{{if .Config.Invert}} (inverted){{end}}</td></tr>
<tr><th>Sample</th><td>{{.Config.SampleMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">Metrics</a></p>
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
	indexTmpl.Execute(w, data)
}
