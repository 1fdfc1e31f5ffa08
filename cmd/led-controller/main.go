// Command led-controller drives a five-channel LED dimmer and exposes it
// over HTTP, MQTT and a push button.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/sweeney/led-controller/internal/button"
	"github.com/sweeney/led-controller/internal/config"
	"github.com/sweeney/led-controller/internal/control"
	"github.com/sweeney/led-controller/internal/gamma"
	"github.com/sweeney/led-controller/internal/gpio"
	"github.com/sweeney/led-controller/internal/led"
	"github.com/sweeney/led-controller/internal/metrics"
	"github.com/sweeney/led-controller/internal/mqtt"
	"github.com/sweeney/led-controller/internal/pwm"
	"github.com/sweeney/led-controller/internal/system"
	"github.com/sweeney/led-controller/internal/web"
)

// PingInterval is the period of the <prefix>/ping keep-alive.
const PingInterval = 60 * time.Second

// Button gesture thresholds, converted to poll ticks at startup.
const (
	buttonDebounce = 40 * time.Millisecond
	buttonHold     = 500 * time.Millisecond
)

type options struct {
	configPath   string
	httpAddr     string
	envFile      string
	channels     []string
	pins         []int
	pinButton    int
	pinIndicator int
	buttonPoll   time.Duration
	pwmFreq      int
	printConfig  bool
}

func main() {
	configPath := flag.String("config", config.DefaultPath, "Configuration file")
	httpAddr := flag.String("http", ":80", "HTTP address (empty to disable)")
	envFile := flag.String("env-file", "/run/pi-helper.env", "pi-helper environment file with network info")
	channels := flag.String("channels", strings.Join(led.DefaultChannels, ","), "Channel ids in output order")
	pins := flag.String("pins", joinInts(pwm.DefaultPins), "BCM PWM pins in channel order")
	pinButton := flag.Int("pin-button", gpio.DefaultPinButton, "BCM pin for the push button (-1 to disable)")
	pinIndicator := flag.Int("pin-indicator", gpio.DefaultPinIndicator, "BCM pin for the status LED (-1 to disable)")
	buttonPoll := flag.Duration("button-poll", button.DefaultPoll, "Button polling interval")
	pwmFreq := flag.Int("pwm-freq", pwm.DefaultFrequency, "PWM clock frequency in Hz")
	printConfig := flag.Bool("print-config", false, "Print the configuration and exit")

	flag.Parse()

	opts := options{
		configPath:   *configPath,
		httpAddr:     *httpAddr,
		envFile:      *envFile,
		channels:     splitList(*channels),
		pinButton:    *pinButton,
		pinIndicator: *pinIndicator,
		buttonPoll:   *buttonPoll,
		pwmFreq:      *pwmFreq,
		printConfig:  *printConfig,
	}
	var err error
	if opts.pins, err = parseInts(*pins); err != nil {
		log.Fatalf("fatal: -pins: %v", err)
	}

	if err := run(opts); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(opts options) error {
	store, err := config.Open(opts.configPath)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	cfg := store.Get()

	if opts.printConfig {
		return printConfig(os.Stdout, cfg)
	}

	if len(opts.pins) < len(opts.channels) {
		return fmt.Errorf("%d channels but only %d pins", len(opts.channels), len(opts.pins))
	}

	// Gamma misconfiguration is fatal before any output is touched.
	table, err := gamma.Default()
	if err != nil {
		return fmt.Errorf("gamma table: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewRecorder(reg)

	driver, err := pwm.NewRealDriver(opts.pins[:len(opts.channels)], opts.pwmFreq)
	if err != nil {
		return fmt.Errorf("init pwm: %w", err)
	}
	defer driver.Close()

	engine, err := led.NewEngine(opts.channels, rec.InstrumentDriver(driver, opts.channels), table)
	if err != nil {
		return err
	}

	var btn gpio.Button
	if opts.pinButton >= 0 {
		b, err := gpio.NewRealButton(opts.pinButton)
		if err != nil {
			return fmt.Errorf("init button: %w", err)
		}
		defer b.Close()
		btn = b
	}

	var indicator gpio.Indicator = gpio.NopIndicator{}
	if opts.pinIndicator >= 0 {
		ind, err := gpio.NewRealIndicator(opts.pinIndicator)
		if err != nil {
			return fmt.Errorf("init indicator: %w", err)
		}
		defer ind.Close()
		indicator = ind
	}

	settings := cfg.MQTTSettings()
	tracker := system.NewTracker(time.Now(), system.Config{
		DeviceID:     cfg.DeviceID,
		Channels:     opts.channels,
		PWMFrequency: opts.pwmFreq,
		ButtonPollMs: opts.buttonPoll.Milliseconds(),
		HTTPAddr:     opts.httpAddr,
		Broker:       settings.Broker(),
		Prefix:       settings.Prefix,
	})
	if err := loadEnvFile(opts.envFile); err != nil {
		log.Printf("env file: %v", err)
	}
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}

	// The controller and the MQTT client reference each other; the client
	// only calls the service from broker callbacks, after Configure.
	var svc lazyService
	client := mqtt.NewRealClient(&svc, rec)
	defer client.Close()

	hub := web.NewHub()
	defer hub.Close()

	ctrl := control.New(control.Options{
		Engine:       engine,
		Button:       btn,
		ButtonConfig: button.ConfigForPoll(opts.buttonPoll, buttonDebounce, buttonHold, button.DefaultStep),
		Indicator:    indicator,
		Sinks:        []control.UpdateSink{client, hub},
		Pinger:       client,
		Connection:   client,
		Tracker:      tracker,
		Metrics:      rec,
	})
	svc.Controller = ctrl

	applyConfig := configApplier(tracker, client)
	client.Configure(settings)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := store.Watch(ctx, func(c config.Config) {
			log.Printf("config: %s changed, reconnecting mqtt", store.Path())
			applyConfig(c)
		})
		if err != nil {
			log.Printf("config watch: %v", err)
		}
	}()

	if opts.httpAddr != "" {
		srv := web.New(web.Options{
			Addr:       opts.httpAddr,
			Service:    ctrl,
			Config:     store,
			OnConfig:   applyConfig,
			Tracker:    tracker,
			Connection: client,
			Hub:        hub,
			Metrics:    rec,
		})
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http server listening on %s", opts.httpAddr)
	}

	log.Printf("started: device=%s channels=%s broker=%s", cfg.DeviceID, strings.Join(opts.channels, ","), displayBroker(settings.Broker()))

	fade := time.NewTicker(led.TickInterval)
	defer fade.Stop()
	ping := time.NewTicker(PingInterval)
	defer ping.Stop()
	tickers := control.Tickers{Fade: fade.C, Ping: ping.C}
	if btn != nil {
		poll := time.NewTicker(opts.buttonPoll)
		defer poll.Stop()
		tickers.Button = poll.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(ctx, ctrl, tickers, client, client, tracker, sigCh, time.Now)
}

// runLoop runs the controller until a signal arrives, announcing the
// daemon's lifecycle on <prefix>/system.
func runLoop(ctx context.Context, ctrl *control.Controller, tickers control.Tickers, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *system.Tracker, sig <-chan os.Signal, now func() time.Time) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- ctrl.Run(ctx, tickers) }()

	// Wait for the loop to serve, so the tracker holds the initial levels.
	if _, err := ctrl.GetStatus(ctx); err != nil {
		return fmt.Errorf("controller: %w", err)
	}
	publishSystem(publisher, mqttStatus, tracker, "STARTUP", "", now)

	select {
	case s := <-sig:
		log.Printf("received %v, shutting down", s)
		publishSystem(publisher, mqttStatus, tracker, "SHUTDOWN", signalName(s), now)
		cancel()
		return <-runErr

	case <-ctx.Done():
		return <-runErr

	case err := <-runErr:
		return err
	}
}

func publishSystem(publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus, tracker *system.Tracker, event, reason string, now func() time.Time) {
	ev := mqtt.SystemEvent{
		Timestamp: now(),
		Event:     event,
		Reason:    reason,
		Retained:  true,
	}
	if tracker != nil {
		if mqttStatus != nil {
			tracker.SetMQTTConnected(mqttStatus.IsConnected())
		}
		ev.RawPayload = system.FormatSystemEvent(tracker.Snapshot(), event, reason)
	}
	if err := publisher.PublishSystem(ev); err != nil {
		log.Printf("failed to publish %s event: %v", strings.ToLower(event), err)
		return
	}
	log.Printf("published %s event", strings.ToLower(event))
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	default:
		return "UNKNOWN"
	}
}

// mqttConfigurer reconnects the broker client with new settings.
type mqttConfigurer interface {
	Configure(mqtt.Settings)
}

// configApplier returns the single handler for config changes from the HTTP
// API and the file watcher.
func configApplier(tracker *system.Tracker, client mqttConfigurer) func(config.Config) {
	return func(c config.Config) {
		s := c.MQTTSettings()
		tracker.SetMQTT(s.Broker(), s.Prefix)
		client.Configure(s)
	}
}

// lazyService forwards to the controller, which is assigned after the MQTT
// client it publishes to has been created.
type lazyService struct {
	*control.Controller
}

func printConfig(w io.Writer, cfg config.Config) error {
	settings := cfg.MQTTSettings()
	out := struct {
		DeviceID string        `json:"device_id"`
		Prefix   string        `json:"prefix"`
		Broker   string        `json:"broker"`
		MQTT     config.Public `json:"mqtt"`
	}{
		DeviceID: cfg.DeviceID,
		Prefix:   cfg.Prefix(),
		Broker:   settings.Broker(),
		MQTT:     cfg.Public(),
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func displayBroker(broker string) string {
	if broker == "" {
		return "(disabled)"
	}
	return broker
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

// loadEnvFile merges path into the environment without overriding
// variables already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func readNetworkInfo() *system.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &system.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseInts(s string) ([]int, error) {
	var out []int
	for _, part := range splitList(s) {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", part)
		}
		out = append(out, n)
	}
	return out, nil
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}
