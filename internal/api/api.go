// Package api serves the HTTP control surface: a JSON dump of the alarm
// state, arm/disarm actions and a couple of config queries. Every action is
// a panel keypress and every query is a store snapshot.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mjahr/smartalarmserver/internal/config"
	"github.com/mjahr/smartalarmserver/internal/log"
	"github.com/mjahr/smartalarmserver/internal/state"
)

// Panel is the slice of the session the API drives.
type Panel interface {
	Arm(code string) error
	ArmStay(code string) error
	Disarm(code string) error
}

type Server struct {
	cfg   *config.ServerConfig
	log   *log.Logger
	store *state.Store
	panel Panel
}

func New(cfg *config.ServerConfig, store *state.Store, panel Panel, logger *log.Logger) *Server {
	return &Server{
		cfg:   cfg,
		log:   logger,
		store: store,
		panel: panel,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api", s.handleDump)
	mux.HandleFunc("/api/alarm/arm", s.handleArm)
	mux.HandleFunc("/api/alarm/stayarm", s.handleStayArm)
	mux.HandleFunc("/api/alarm/armwithcode", s.handleArmWithCode)
	mux.HandleFunc("/api/alarm/disarm", s.handleDisarm)
	mux.HandleFunc("/api/refresh", s.handleRefresh)
	mux.HandleFunc("/api/config/eventtimeago", s.handleEventTimeAgo)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	s.log.Info("HTTP server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleDump(rw http.ResponseWriter, r *http.Request) {
	s.writeJSON(rw, http.StatusOK, s.store.Snapshot())
}

// alarmCode returns the caller-supplied code, or empty to let the session
// fall back to the configured default.
func alarmCode(r *http.Request) string {
	return r.URL.Query().Get("alarmcode")
}

func (s *Server) handleArm(rw http.ResponseWriter, r *http.Request) {
	if err := s.panel.Arm(alarmCode(r)); err != nil {
		s.writeError(rw, err)
		return
	}
	s.writeJSON(rw, http.StatusOK, map[string]string{"response": "Arm command sent to Envisalink."})
}

func (s *Server) handleStayArm(rw http.ResponseWriter, r *http.Request) {
	if err := s.panel.ArmStay(alarmCode(r)); err != nil {
		s.writeError(rw, err)
		return
	}
	s.writeJSON(rw, http.StatusOK, map[string]string{"response": "Arm Home command sent to Envisalink."})
}

func (s *Server) handleArmWithCode(rw http.ResponseWriter, r *http.Request) {
	code := alarmCode(r)
	if code == "" {
		s.writeJSON(rw, http.StatusBadRequest, map[string]string{"response": "alarmcode parameter is required."})
		return
	}
	if err := s.panel.Arm(code); err != nil {
		s.writeError(rw, err)
		return
	}
	s.writeJSON(rw, http.StatusOK, map[string]string{"response": "Arm With Code command sent to Envisalink."})
}

func (s *Server) handleDisarm(rw http.ResponseWriter, r *http.Request) {
	if err := s.panel.Disarm(alarmCode(r)); err != nil {
		s.writeError(rw, err)
		return
	}
	s.writeJSON(rw, http.StatusOK, map[string]string{"response": "Disarm command sent to Envisalink."})
}

func (s *Server) handleRefresh(rw http.ResponseWriter, r *http.Request) {
	s.writeJSON(rw, http.StatusOK, map[string]string{"response": "Request to refresh data received"})
}

func (s *Server) handleEventTimeAgo(rw http.ResponseWriter, r *http.Request) {
	s.writeJSON(rw, http.StatusOK, map[string]bool{"eventtimeago": *s.cfg.EventTimeAgo})
}

func (s *Server) writeJSON(rw http.ResponseWriter, status int, body interface{}) {
	rw.Header().Set("Content-Type", "application/json")
	rw.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate")
	rw.WriteHeader(status)
	if err := json.NewEncoder(rw).Encode(body); err != nil {
		s.log.Error("Failed to encode response: %v", err)
	}
}

func (s *Server) writeError(rw http.ResponseWriter, err error) {
	s.log.Error("Failed to send panel command: %v", err)
	s.writeJSON(rw, http.StatusServiceUnavailable, map[string]string{"response": err.Error()})
}
