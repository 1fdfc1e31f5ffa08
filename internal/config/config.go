// Package config persists the controller settings in a YAML file and
// exposes them to the /config endpoint with the password masked.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/led-controller/internal/mqtt"
)

// DefaultPath is the configuration file used when -config is not given.
const DefaultPath = "/etc/led-controller/config.yaml"

// PasswordMask replaces a non-empty password in public output.
const PasswordMask = "*********"

// ClientIDPrefix is prepended to the device ID to form the MQTT client ID.
const ClientIDPrefix = "led-controller-"

// Keys accepted by Update and produced by Public.
const (
	KeyServer   = "mqtt_server"
	KeyPort     = "mqtt_port"
	KeyAlias    = "mqtt_alias"
	KeyLogin    = "mqtt_login"
	KeyPassword = "mqtt_passw"
)

// MQTT holds the broker settings. Port is kept as text the way clients
// send it.
type MQTT struct {
	Server   string `yaml:"server"`
	Port     string `yaml:"port,omitempty"`
	Alias    string `yaml:"alias,omitempty"`
	Login    string `yaml:"login,omitempty"`
	Password string `yaml:"password,omitempty"`
}

// Config is the persisted configuration.
type Config struct {
	DeviceID string `yaml:"device_id"`
	MQTT     MQTT   `yaml:"mqtt"`
}

// Public is the /config representation.
type Public struct {
	Server   string `json:"mqtt_server"`
	Port     string `json:"mqtt_port"`
	Alias    string `json:"mqtt_alias"`
	Login    string `json:"mqtt_login"`
	Password string `json:"mqtt_passw"`
}

// Public returns the configuration with a non-empty password masked.
func (c Config) Public() Public {
	p := Public{
		Server: c.MQTT.Server,
		Port:   c.MQTT.Port,
		Alias:  c.MQTT.Alias,
		Login:  c.MQTT.Login,
	}
	if c.MQTT.Password != "" {
		p.Password = PasswordMask
	}
	return p
}

// Prefix returns the MQTT topic prefix: the alias, or the device ID.
func (c Config) Prefix() string {
	if c.MQTT.Alias != "" {
		return c.MQTT.Alias
	}
	return c.DeviceID
}

// MQTTSettings derives the broker connection settings. An invalid port
// falls back to mqtt.DefaultPort.
func (c Config) MQTTSettings() mqtt.Settings {
	port, err := strconv.Atoi(strings.TrimSpace(c.MQTT.Port))
	if err != nil || port <= 0 || port > 65535 {
		port = mqtt.DefaultPort
	}
	return mqtt.Settings{
		Server:   c.MQTT.Server,
		Port:     port,
		ClientID: ClientIDPrefix + c.DeviceID,
		Prefix:   c.Prefix(),
		Username: c.MQTT.Login,
		Password: c.MQTT.Password,
	}
}

// NewDeviceID returns a random 8 hex digit upper-case identifier.
func NewDeviceID() string {
	id := uuid.New()
	return strings.ToUpper(hex.EncodeToString(id[:4]))
}

// Store is the file-backed configuration. It is safe for concurrent use.
type Store struct {
	path string

	mu  sync.RWMutex
	cfg Config
}

// Open loads the configuration at path. A missing file yields defaults
// with a fresh device ID, which are written back so the ID is stable.
func Open(path string) (*Store, error) {
	s := &Store{path: path}

	cfg, err := load(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		cfg = Config{}
	case err != nil:
		return nil, err
	}

	if cfg.DeviceID == "" {
		cfg.DeviceID = NewDeviceID()
		if err := save(path, cfg); err != nil {
			log.Printf("config: cannot persist device id: %v", err)
		}
	}
	s.cfg = cfg
	return s, nil
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Get returns the current configuration.
func (s *Store) Get() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Update applies the recognised keys of fields and persists the result.
// Values must be strings (the port may also be a number). Unknown keys are
// ignored, as is the masked password echoed back by a client. The second
// result reports whether anything changed.
func (s *Store) Update(fields map[string]any) (Config, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	targets := map[string]*string{
		KeyServer:   &next.MQTT.Server,
		KeyPort:     &next.MQTT.Port,
		KeyAlias:    &next.MQTT.Alias,
		KeyLogin:    &next.MQTT.Login,
		KeyPassword: &next.MQTT.Password,
	}
	for key, dst := range targets {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		v, ok := stringValue(raw)
		if !ok {
			continue
		}
		if key == KeyPassword && v == PasswordMask {
			continue
		}
		*dst = strings.TrimSpace(v)
	}

	if next == s.cfg {
		return s.cfg, false, nil
	}
	if err := save(s.path, next); err != nil {
		return s.cfg, false, err
	}
	s.cfg = next
	return next, true, nil
}

// Reset clears the MQTT settings, keeping only the device ID.
func (s *Store) Reset() (Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := Config{DeviceID: s.cfg.DeviceID}
	if err := save(s.path, next); err != nil {
		return s.cfg, err
	}
	s.cfg = next
	return next, nil
}

// Reload re-reads the file. The second result reports whether the
// configuration changed. A missing file or device ID keeps the current
// values.
func (s *Store) Reload() (Config, bool, error) {
	cfg, err := load(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return s.Get(), false, nil
	}
	if err != nil {
		return s.Get(), false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.DeviceID == "" {
		cfg.DeviceID = s.cfg.DeviceID
	}
	if cfg == s.cfg {
		return cfg, false, nil
	}
	s.cfg = cfg
	return cfg, true, nil
}

func stringValue(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		if x != float64(int64(x)) {
			return "", false
		}
		return strconv.FormatInt(int64(x), 10), true
	case int:
		return strconv.Itoa(x), true
	default:
		return "", false
	}
}

func load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// save writes cfg atomically through a temporary file in the same
// directory.
func save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.yaml")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
