// Package web serves the HTTP interface of the LED controller: the status
// page, the JSON status and config endpoints, a websocket feed of updates
// and Prometheus metrics.
package web

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/sweeney/led-controller/internal/config"
	"github.com/sweeney/led-controller/internal/metrics"
	"github.com/sweeney/led-controller/internal/status"
	"github.com/sweeney/led-controller/internal/system"
)

// maxBody bounds request bodies on POST endpoints.
const maxBody = 4096

// ConfigStore is the persistent configuration used by /config.
type ConfigStore interface {
	Get() config.Config
	Update(fields map[string]any) (config.Config, bool, error)
	Reset() (config.Config, error)
}

// ConnectionStatus reports the MQTT connection state for /system.
type ConnectionStatus interface {
	IsConnected() bool
}

// Options configures a Server. Service and Tracker are required; the rest
// may be nil.
type Options struct {
	Addr       string
	Service    status.Service
	Config     ConfigStore
	OnConfig   func(config.Config) // called after /config changes the settings
	Tracker    *system.Tracker
	Connection ConnectionStatus
	Hub        *Hub
	Metrics    *metrics.Recorder
}

// Server serves the controller over HTTP.
type Server struct {
	httpServer *http.Server
	opts       Options
}

// New creates a Server.
func New(opts Options) *Server {
	s := &Server{opts: opts}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleGetStatus).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handlePostStatus).Methods(http.MethodPost)
	r.HandleFunc("/system", s.handleSystem).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	if opts.Config != nil {
		r.HandleFunc("/config", s.handleGetConfig).Methods(http.MethodGet)
		r.HandleFunc("/config", s.handlePostConfig).Methods(http.MethodPost)
		r.HandleFunc("/config", s.handleDeleteConfig).Methods(http.MethodDelete)
	}
	if opts.Hub != nil {
		r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)
	}

	s.httpServer = &http.Server{
		Addr:    opts.Addr,
		Handler: r,
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.systemSnapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderHTML(w, snap); err != nil {
		log.Printf("http: render index: %v", err)
	}
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	if len(r.URL.Query()) == 0 {
		snap, err := s.opts.Service.GetStatus(r.Context())
		if err != nil {
			writeMessage(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, snap)
		return
	}

	req, ok := status.RequestFromQuery(r.URL.Query())
	if !ok {
		s.opts.Metrics.ObserveRequest(status.SourceHTTP, metrics.ResultInvalid)
		writeMessage(w, http.StatusNotAcceptable, "Unable to update lights")
		return
	}
	s.set(w, r, req)
}

func (s *Server) handlePostStatus(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeMessage(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		writeMessage(w, http.StatusOK, "Body not received")
		return
	}

	req, err := status.ParseRequest(body)
	if err != nil {
		s.opts.Metrics.ObserveRequest(status.SourceHTTP, metrics.ResultInvalid)
		writeMessage(w, http.StatusNotAcceptable, "invalid JSON")
		return
	}
	s.set(w, r, req)
}

func (s *Server) set(w http.ResponseWriter, r *http.Request, req status.Request) {
	snap, err := s.opts.Service.SetStatus(r.Context(), status.SourceHTTP, req)
	if err != nil {
		writeMessage(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSystem(w http.ResponseWriter, r *http.Request) {
	snap := s.systemSnapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(system.FormatJSON(snap))
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	s.opts.Metrics.Handler().ServeHTTP(w, r)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.opts.Config.Get().Public())
}

func (s *Server) handlePostConfig(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeMessage(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		writeMessage(w, http.StatusOK, "Body not received")
		return
	}

	var fields map[string]any
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		writeMessage(w, http.StatusNotAcceptable, "invalid JSON")
		return
	}

	cfg, changed, err := s.opts.Config.Update(fields)
	if err != nil {
		log.Printf("http: save config: %v", err)
		writeMessage(w, http.StatusInternalServerError, "unable to save config")
		return
	}
	if changed {
		log.Printf("http: config updated")
		s.configChanged(cfg)
	}
	writeJSON(w, http.StatusOK, cfg.Public())
}

func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.opts.Config.Reset()
	if err != nil {
		log.Printf("http: reset config: %v", err)
		writeMessage(w, http.StatusInternalServerError, "unable to reset config")
		return
	}
	log.Printf("http: config reset")
	s.configChanged(cfg)
	writeJSON(w, http.StatusOK, struct{}{})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	snap, err := s.opts.Service.GetStatus(r.Context())
	if err != nil {
		writeMessage(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	initial, err := json.Marshal(snap)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.opts.Hub.serve(w, r, initial)
}

// configChanged hands cfg to OnConfig, which owns reconnecting MQTT and
// updating the tracker.
func (s *Server) configChanged(cfg config.Config) {
	if s.opts.OnConfig != nil {
		s.opts.OnConfig(cfg)
	}
}

// systemSnapshot refreshes the connection flag, which the control loop
// only updates on its own events.
func (s *Server) systemSnapshot() system.Snapshot {
	if s.opts.Connection != nil {
		s.opts.Tracker.SetMQTTConnected(s.opts.Connection.IsConnected())
	}
	return s.opts.Tracker.Snapshot()
}
