package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/led-controller/internal/config"
	"github.com/sweeney/led-controller/internal/metrics"
	"github.com/sweeney/led-controller/internal/status"
	"github.com/sweeney/led-controller/internal/system"
)

// fakeService applies requests to a map of levels, reporting changes the
// way the control loop does.
type fakeService struct {
	mu      sync.Mutex
	levels  map[string]uint8
	sets    []status.Request
	sources []string
	err     error
}

func newFakeService() *fakeService {
	return &fakeService{levels: map[string]uint8{"R": 0, "G": 0, "B": 0}}
}

func (f *fakeService) snapshot() status.Snapshot {
	var s status.Snapshot
	for _, id := range []string{"R", "G", "B"} {
		s.Levels = append(s.Levels, status.Level{ID: id, Value: f.levels[id]})
	}
	return s
}

func (f *fakeService) SetStatus(ctx context.Context, source string, req status.Request) (status.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return status.Snapshot{}, f.err
	}
	f.sets = append(f.sets, req)
	f.sources = append(f.sources, source)

	changed := false
	for id, v := range req.Levels {
		if old, ok := f.levels[id]; ok && old != v {
			f.levels[id] = v
			changed = true
		}
	}
	s := f.snapshot()
	if changed {
		s.Duration = req.Duration
		s.Event = source
	}
	return s, nil
}

func (f *fakeService) calls() (sets []status.Request, sources []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]status.Request(nil), f.sets...), append([]string(nil), f.sources...)
}

func (f *fakeService) GetStatus(ctx context.Context) (status.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return status.Snapshot{}, f.err
	}
	return f.snapshot(), nil
}

type fakeConn struct{ connected bool }

func (f fakeConn) IsConnected() bool { return f.connected }

type testEnv struct {
	ts       *httptest.Server
	svc      *fakeService
	store    *config.Store
	tracker  *system.Tracker
	hub      *Hub
	recorder *metrics.Recorder

	mu      sync.Mutex
	applied []config.Config
}

func (e *testEnv) appliedCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.applied)
}

func (e *testEnv) lastApplied() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.applied) == 0 {
		return config.Config{}
	}
	return e.applied[len(e.applied)-1]
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := config.Open(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("config.Open: %v", err)
	}

	env := &testEnv{
		svc:   newFakeService(),
		store: store,
		tracker: system.NewTracker(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), system.Config{
			DeviceID: store.Get().DeviceID,
			Channels: []string{"R", "G", "B"},
			HTTPAddr: ":80",
		}),
		hub:      NewHub(),
		recorder: metrics.NewRecorder(nil),
	}
	srv := New(Options{
		Addr:    ":0",
		Service: env.svc,
		Config:  store,
		OnConfig: func(c config.Config) {
			env.mu.Lock()
			env.applied = append(env.applied, c)
			env.mu.Unlock()
		},
		Tracker:    env.tracker,
		Connection: fakeConn{connected: true},
		Hub:        env.hub,
		Metrics:    env.recorder,
	})
	env.ts = httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		env.hub.Close()
		env.ts.Close()
	})
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) (int, string) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, rd)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(data)
}

func TestGetStatus(t *testing.T) {
	env := newTestEnv(t)
	env.svc.levels["G"] = 7

	code, body := env.do(t, http.MethodGet, "/status", "")
	if code != 200 {
		t.Fatalf("status: got %d, want 200", code)
	}
	if body != `{"R":0,"G":7,"B":0}` {
		t.Errorf("body: got %s", body)
	}
	if sets, _ := env.svc.calls(); len(sets) != 0 {
		t.Error("GET without query must not set")
	}
}

func TestGetStatusWithQuerySets(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, "/status?R=10&duration=500", "")
	if code != 200 {
		t.Fatalf("status: got %d, want 200", code)
	}
	if body != `{"R":10,"G":0,"B":0,"duration":500,"event":"http"}` {
		t.Errorf("body: got %s", body)
	}
	if _, sources := env.svc.calls(); len(sources) != 1 || sources[0] != status.SourceHTTP {
		t.Errorf("sources: got %v", sources)
	}
}

func TestGetStatusUnusableQuery(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, "/status?R=bright", "")
	if code != http.StatusNotAcceptable {
		t.Errorf("status: got %d, want 406", code)
	}
	if body != `{"message":"Unable to update lights"}` {
		t.Errorf("body: got %s", body)
	}
}

func TestPostStatus(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/status", `{"B":999,"duration":"250"}`)
	if code != 200 {
		t.Fatalf("status: got %d, want 200", code)
	}
	if body != `{"R":0,"G":0,"B":255,"duration":250,"event":"http"}` {
		t.Errorf("body: got %s", body)
	}

	// Same levels again: plain snapshot.
	_, body = env.do(t, http.MethodPost, "/status", `{"B":255}`)
	if body != `{"R":0,"G":0,"B":255}` {
		t.Errorf("unchanged body: got %s", body)
	}
}

func TestPostStatusEmptyBody(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/status", "")
	if code != 200 {
		t.Errorf("status: got %d, want 200", code)
	}
	if body != `{"message":"Body not received"}` {
		t.Errorf("body: got %s", body)
	}
}

func TestPostStatusInvalidJSON(t *testing.T) {
	env := newTestEnv(t)

	for _, in := range []string{`{"R":`, `[1,2]`, `null`} {
		code, body := env.do(t, http.MethodPost, "/status", in)
		if code != http.StatusNotAcceptable {
			t.Errorf("%s: status got %d, want 406", in, code)
		}
		if body != `{"message":"invalid JSON"}` {
			t.Errorf("%s: body got %s", in, body)
		}
	}
	if sets, _ := env.svc.calls(); len(sets) != 0 {
		t.Error("invalid JSON must not reach the service")
	}

	_, metricsBody := env.do(t, http.MethodGet, "/metrics", "")
	if !strings.Contains(metricsBody, `ledctl_requests_total{result="invalid",source="http"} 3`) {
		t.Errorf("expected 3 invalid requests in metrics, got:\n%s", metricsBody)
	}
}

func TestStatusServiceError(t *testing.T) {
	env := newTestEnv(t)
	env.svc.mu.Lock()
	env.svc.err = errors.New("control: stopped")
	env.svc.mu.Unlock()

	code, _ := env.do(t, http.MethodGet, "/status", "")
	if code != http.StatusServiceUnavailable {
		t.Errorf("GET: got %d, want 503", code)
	}
	code, _ = env.do(t, http.MethodPost, "/status", `{"R":1}`)
	if code != http.StatusServiceUnavailable {
		t.Errorf("POST: got %d, want 503", code)
	}
}

func TestStatusMethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)

	code, _ := env.do(t, http.MethodPut, "/status", `{"R":1}`)
	if code != http.StatusMethodNotAllowed {
		t.Errorf("PUT: got %d, want 405", code)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodGet, "/config", "")
	if code != 200 {
		t.Fatalf("GET /config: %d", code)
	}
	if body != `{"mqtt_server":"","mqtt_port":"","mqtt_alias":"","mqtt_login":"","mqtt_passw":""}` {
		t.Errorf("initial config: got %s", body)
	}

	code, body = env.do(t, http.MethodPost, "/config",
		`{"mqtt_server":"broker.lan","mqtt_port":1884,"mqtt_alias":"kitchen","mqtt_passw":"secret"}`)
	if code != 200 {
		t.Fatalf("POST /config: %d", code)
	}

	var pub config.Public
	if err := json.Unmarshal([]byte(body), &pub); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pub.Server != "broker.lan" || pub.Port != "1884" || pub.Alias != "kitchen" {
		t.Errorf("config: got %+v", pub)
	}
	if pub.Password != config.PasswordMask {
		t.Errorf("password must be masked, got %q", pub.Password)
	}
	if env.store.Get().MQTT.Password != "secret" {
		t.Error("password should be stored in clear")
	}

	if n := env.appliedCount(); n != 1 {
		t.Fatalf("OnConfig calls: got %d, want 1", n)
	}
	settings := env.lastApplied().MQTTSettings()
	if settings.Broker() != "tcp://broker.lan:1884" || settings.Prefix != "kitchen" {
		t.Errorf("applied MQTT: got broker %q prefix %q", settings.Broker(), settings.Prefix)
	}
	// The tracker is updated by OnConfig only, once per change.
	if b := env.tracker.Snapshot().Config.Broker; b != "" {
		t.Errorf("server must leave the tracker to OnConfig, got broker %q", b)
	}

	// Echoing the masked config back changes nothing.
	env.do(t, http.MethodPost, "/config", body)
	if env.appliedCount() != 1 {
		t.Error("unchanged config must not trigger a reconfigure")
	}
	if env.store.Get().MQTT.Password != "secret" {
		t.Error("masked echo must not overwrite the password")
	}
}

func TestConfigInvalid(t *testing.T) {
	env := newTestEnv(t)

	code, body := env.do(t, http.MethodPost, "/config", `nope`)
	if code != http.StatusNotAcceptable || body != `{"message":"invalid JSON"}` {
		t.Errorf("got %d %s", code, body)
	}
	code, body = env.do(t, http.MethodPost, "/config", "")
	if code != 200 || body != `{"message":"Body not received"}` {
		t.Errorf("empty body: got %d %s", code, body)
	}
}

func TestConfigDelete(t *testing.T) {
	env := newTestEnv(t)
	id := env.store.Get().DeviceID
	env.do(t, http.MethodPost, "/config", `{"mqtt_server":"broker.lan"}`)

	code, body := env.do(t, http.MethodDelete, "/config", "")
	if code != 200 || body != `{}` {
		t.Errorf("DELETE /config: got %d %s", code, body)
	}
	cfg := env.store.Get()
	if cfg.MQTT.Server != "" {
		t.Errorf("server should be cleared, got %q", cfg.MQTT.Server)
	}
	if cfg.DeviceID != id {
		t.Errorf("device id changed: %q -> %q", id, cfg.DeviceID)
	}
	if n := env.appliedCount(); n != 2 {
		t.Errorf("OnConfig calls: got %d, want 2", n)
	}
	if srv := env.lastApplied().MQTT.Server; srv != "" {
		t.Errorf("reset config handed to OnConfig should have no server, got %q", srv)
	}
}

func TestSystemEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.ts.URL + "/system")
	if err != nil {
		t.Fatalf("GET /system: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	var sj system.SystemJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !sj.System.MQTT.Connected {
		t.Error("connection flag should be refreshed from the MQTT client")
	}
	if sj.System.Config.HTTPAddr != ":80" {
		t.Errorf("HTTPAddr: got %q", sj.System.Config.HTTPAddr)
	}
	if len(sj.System.Config.Channels) != 3 {
		t.Errorf("channels: got %v", sj.System.Config.Channels)
	}
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/", "/index.html"} {
		resp, err := http.Get(env.ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != 200 {
			t.Errorf("%s: status %d", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s: Content-Type %q", path, ct)
		}
		if !strings.Contains(string(body), "LED Controller") {
			t.Errorf("%s: page title missing", path)
		}
	}

	code, _ := env.do(t, http.MethodGet, "/nope", "")
	if code != http.StatusNotFound {
		t.Errorf("unknown path: got %d, want 404", code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.recorder.ObserveRequest(status.SourceMQTT, metrics.ResultChanged)

	code, body := env.do(t, http.MethodGet, "/metrics", "")
	if code != 200 {
		t.Fatalf("status: %d", code)
	}
	if !strings.Contains(body, `ledctl_requests_total{result="changed",source="mqtt"} 1`) {
		t.Errorf("metrics missing request counter:\n%s", body)
	}
}

func TestMetricsDisabled(t *testing.T) {
	srv := New(Options{Service: newFakeService(), Tracker: system.NewTracker(time.Now(), system.Config{})})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("got %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/config", nil))
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("/config without a store: got %d", rec.Code)
	}
}

func dialWS(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readWS(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(msg)
}

func TestWebsocketFeed(t *testing.T) {
	env := newTestEnv(t)
	env.svc.levels["R"] = 42

	conn := dialWS(t, env)
	if got := readWS(t, conn); got != `{"R":42,"G":0,"B":0}` {
		t.Errorf("initial frame: got %s", got)
	}
	if env.hub.Count() != 1 {
		t.Fatalf("Count: got %d, want 1", env.hub.Count())
	}

	update := `{"R":1,"G":2,"B":3,"duration":500,"event":"mqtt"}`
	if err := env.hub.PublishUpdate([]byte(update)); err != nil {
		t.Fatalf("PublishUpdate: %v", err)
	}
	if got := readWS(t, conn); got != update {
		t.Errorf("update frame: got %s", got)
	}
}

func TestWebsocketClientLeaves(t *testing.T) {
	env := newTestEnv(t)

	conn := dialWS(t, env)
	readWS(t, conn)
	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for env.hub.Count() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client was not removed after disconnect")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubDropsSlowClient(t *testing.T) {
	h := NewHub()
	c := &client{send: make(chan []byte, 1), remoteAddr: "test"}
	h.add(c)

	h.PublishUpdate([]byte("1"))
	if h.Count() != 1 {
		t.Fatal("client with room should stay")
	}
	h.PublishUpdate([]byte("2"))
	if h.Count() != 0 {
		t.Error("client with a full queue should be dropped")
	}
	if _, ok := <-c.send; !ok {
		t.Error("queued frame should still be readable")
	}
	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed")
	}
}

func TestHubClose(t *testing.T) {
	h := NewHub()
	c := &client{send: make(chan []byte, 1), remoteAddr: "test"}
	h.add(c)

	h.Close()
	if h.Count() != 0 {
		t.Errorf("Count after Close: got %d", h.Count())
	}
	if _, ok := <-c.send; ok {
		t.Error("send channel should be closed")
	}
	if h.add(&client{send: make(chan []byte, 1)}) {
		t.Error("closed hub must refuse clients")
	}
	if err := h.PublishUpdate([]byte("x")); err != nil {
		t.Errorf("PublishUpdate on closed hub: %v", err)
	}
}
