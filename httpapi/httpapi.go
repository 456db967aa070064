// Package httpapi serves the unit's local status page: live snapshot,
// health, Prometheus metrics and a remote mode button.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"hushlight/log"
	"hushlight/monitor"
)

type StatusSource interface {
	Snapshot() monitor.Snapshot
}

// Check is one named health probe, e.g. a store ping.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

type Handlers struct {
	Status  StatusSource
	Metrics http.Handler
	Checks  []Check

	// Override receives a toggle per POST /override. Nil disables the route.
	Override chan<- struct{}
}

func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", h.Health).Methods("GET")
	r.HandleFunc("/status", h.Snapshot).Methods("GET")
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics).Methods("GET")
	}
	if h.Override != nil {
		r.HandleFunc("/override", h.ToggleOverride).Methods("POST")
	}

	return r
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for _, c := range h.Checks {
		if err := c.Run(ctx); err != nil {
			failed[c.Name] = err.Error()
		}
	}
	if h.Status != nil && !h.Status.Snapshot().SensorOK {
		failed["sensor"] = "no recent loudness reading"
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) Snapshot(w http.ResponseWriter, _ *http.Request) {
	if h.Status == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "monitor not running"})
		return
	}
	writeJSON(w, http.StatusOK, h.Status.Snapshot())
}

func (h *Handlers) ToggleOverride(w http.ResponseWriter, _ *http.Request) {
	select {
	case h.Override <- struct{}{}:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "toggled"})
	default:
		writeJSON(w, http.StatusConflict, map[string]string{"error": "toggle already pending"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type Server struct {
	HTTP *http.Server
}

func NewServer(addr string, h *Handlers) *Server {
	hs := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(h),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return &Server{HTTP: hs}
}

// Start serves until Stop. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	log.Infof("http server listening on %s", s.HTTP.Addr)
	if err := s.HTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	log.Info("http server stopping")
	return s.HTTP.Shutdown(ctx)
}
