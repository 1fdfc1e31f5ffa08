package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/led-controller/internal/system"
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
	"percent": func(v uint8) int {
		return int(v) * 100 / 255
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>LED Controller {{.Config.DeviceID}}</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.bar { display: inline-block; height: 8px; background: #e8a33d; vertical-align: middle; margin-right: 6px; }
.connected { color: green; }
.disconnected { color: red; }
.live-dot { display: inline-block; width: 8px; height: 8px; border-radius: 50%; margin-left: 6px; vertical-align: middle; }
.live-dot.ok { background: green; }
.live-dot.err { background: red; }
.live-dot.pending { background: orange; }
</style>
</head>
<body>
<h1>LED Controller {{.Config.DeviceID}}<span id="live-dot" class="live-dot pending" title="connecting"></span></h1>

<h2>Channels</h2>
<table>
{{range .Lights.Levels}}<tr><th>{{.ID}}</th><td><span id="bar-{{.ID}}" class="bar" style="width: {{percent .Value}}px"></span><span id="level-{{.ID}}">{{.Value}}</span></td></tr>
{{end}}<tr><th>Fading</th><td>{{if .Fading}}yes{{else}}no{{end}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Config.Prefix}}<tr><th>Topics</th><td>{{.Config.Prefix}}/set, {{.Config.Prefix}}/updated</td></tr>{{end}}
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Button</h2>
<table>
<tr><th>Clicks</th><td>{{.Buttons.Clicks}}</td></tr>
<tr><th>Holds</th><td>{{.Buttons.Holds}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>PWM</th><td>{{.Config.PWMFrequency}}Hz</td></tr>
<tr><th>Button poll</th><td>{{.Config.ButtonPollMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/status">status</a> · <a href="/system">system</a> · <a href="/config">config</a> · <a href="/metrics">metrics</a></p>
<script>
(function() {
  var dot = document.getElementById("live-dot");

  function setDot(cls, title) {
    dot.className = "live-dot " + cls;
    dot.title = title;
  }

  function apply(msg) {
    Object.keys(msg).forEach(function(id) {
      var level = document.getElementById("level-" + id);
      var bar = document.getElementById("bar-" + id);
      if (!level || typeof msg[id] !== "number") {
        return;
      }
      level.textContent = msg[id];
      bar.style.width = Math.floor(msg[id] * 100 / 255) + "px";
    });
  }

  function connect() {
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "/ws");
    ws.onopen = function() { setDot("ok", "live"); };
    ws.onmessage = function(ev) {
      try { apply(JSON.parse(ev.data)); } catch (e) {}
    };
    ws.onclose = function() {
      setDot("err", "offline");
      setTimeout(connect, 5000);
    };
  }
  connect();
})();
</script>
</body>
</html>
`

func renderHTML(w io.Writer, snap system.Snapshot) error {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		system.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	return indexTmpl.Execute(w, data)
}
