package webui

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kimata/unit-cooler/internal/valve"
	"github.com/kimata/unit-cooler/internal/watering"
	"github.com/kimata/unit-cooler/internal/worklog"
)

// FlowReader is the narrow view of the actuator's flow sensor this server
// needs for /api/get_flow, kept as an interface so a standalone WebUI
// process can be wired to a no-op or MQTT-fed stand-in.
type FlowReader interface {
	LastFlow() (*float64, error)
}

// nopFlowReader backs /api/get_flow when no local flow sensor is available.
type nopFlowReader struct{}

func (nopFlowReader) LastFlow() (*float64, error) { return nil, nil }

// Server is the WebUI's HTTP surface: a thin router over the Cache plus a
// handful of small collaborators, wrapped in CORS and access-log
// middleware.
type Server struct {
	cache      *Cache
	watering   watering.Source
	unitPrice  float64
	valveCtrl  *valve.Controller
	flow       FlowReader
	work       *worklog.Ring
	registry   *prometheus.Registry
	httpServer *http.Server

	// remoteLogBase, when set, is the base URL ("http://host:port") of the
	// actuator's own small log/status server -- the original's "log server"
	// compatibility surface -- proxied to for the log and flow endpoints
	// when this process has no direct collaborator of its own (i.e. WebUI
	// and actuator run on separate hosts).
	remoteLogBase string
	remoteClient  *http.Client
}

// WithRemoteLog configures base as the actuator's log-server URL, consulted
// by /api/log_view, /api/log_clear, and /api/get_flow whenever the
// corresponding local collaborator (work, flow) was not supplied to New.
func (s *Server) WithRemoteLog(base string) *Server {
	s.remoteLogBase = base
	s.remoteClient = &http.Client{Timeout: 5 * time.Second}
	return s
}

// New builds a Server. valveCtrl, flow, and work may be nil when the WebUI
// runs as a standalone process without direct access to the actuator's
// local state; the corresponding endpoints then report zero values instead
// of failing.
func New(cache *Cache, wateringSource watering.Source, unitPrice float64, valveCtrl *valve.Controller,
	flow FlowReader, work *worklog.Ring, registry *prometheus.Registry) *Server {
	if flow == nil {
		flow = nopFlowReader{}
	}
	return &Server{
		cache: cache, watering: wateringSource, unitPrice: unitPrice,
		valveCtrl: valveCtrl, flow: flow, work: work, registry: registry,
	}
}

// Handler builds the mux.Router wrapped in CORS and access-log middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/stat", s.handleStat).Methods(http.MethodGet)
	r.HandleFunc("/api/watering", s.handleWatering).Methods(http.MethodGet)
	r.HandleFunc("/api/valve_status", s.handleValveStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/get_flow", s.handleGetFlow).Methods(http.MethodGet)
	r.HandleFunc("/api/log_view", s.handleLogView).Methods(http.MethodGet)
	r.HandleFunc("/api/event", s.handleEvent).Methods(http.MethodGet)
	r.HandleFunc("/api/log_clear", s.handleLogClear).Methods(http.MethodGet, http.MethodPost)

	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
	)
	return handlers.CombinedLoggingHandler(os.Stdout, cors(r))
}

// Run serves the HTTP surface on addr until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.httpServer.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
