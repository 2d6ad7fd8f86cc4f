// Package server exposes the batch pipeline over HTTP: a multipart endpoint
// starts a run and a websocket streams its progress to every listener.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/certforge/certbatch/batch"
	"github.com/certforge/certbatch/config"
	"github.com/certforge/certbatch/roster"
)

// maxUploadBytes bounds the multipart form held in memory.
const maxUploadBytes = 64 << 20

// Server handles HTTP requests for batch certificate generation.
type Server struct {
	orchestrator *batch.Orchestrator
	cfg          config.Config
	log          *slog.Logger
	hub          *Hub
	upgrader     websocket.Upgrader
}

// New creates a server around an orchestrator.
func New(orchestrator *batch.Orchestrator, cfg config.Config, log *slog.Logger) *Server {
	hub := NewHub(log)
	hub.Start()

	return &Server{
		orchestrator: orchestrator,
		cfg:          cfg,
		log:          log,
		hub:          hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("POST /terminate", s.handleTerminate)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /ws", s.handleWebsocket)
	return mux
}

// ListenAndServe starts the HTTP server on the configured address.
func (s *Server) ListenAndServe() error {
	s.log.Info("server listening", "addr", s.cfg.Listen)
	return http.ListenAndServe(s.cfg.Listen, s.Handler())
}

// Close stops the websocket hub and disconnects its clients.
func (s *Server) Close() {
	s.hub.Stop()
}

// handleGenerate accepts a multipart form with a "template" PDF, a "roster"
// spreadsheet, an optional "placeAndDate" caption and an optional "timeout"
// in milliseconds. It starts a batch and pumps its events to all websocket
// clients.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}

	template, err := formFile(r, "template")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	roster_file, _, err := r.FormFile("roster")
	if err != nil {
		http.Error(w, "missing roster file", http.StatusBadRequest)
		return
	}
	defer roster_file.Close()

	names, err := roster.LoadColumn(roster_file, s.cfg.NameField)
	if err != nil {
		http.Error(w, "invalid roster: "+err.Error(), http.StatusBadRequest)
		return
	}

	timeout := time.Duration(s.cfg.TimeoutMS) * time.Millisecond
	if raw := r.FormValue("timeout"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil || ms < 0 {
			http.Error(w, "invalid timeout", http.StatusBadRequest)
			return
		}
		timeout = time.Duration(ms) * time.Millisecond
	}

	events, err := s.orchestrator.Start(batch.Request{
		Names:        names,
		PlaceAndDate: r.FormValue("placeAndDate"),
		Template:     template,
		Timeout:      timeout,
	})
	switch {
	case errors.Is(err, batch.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	go func() {
		for msg := range events {
			s.hub.Broadcast(msg)
		}
	}()

	job := s.orchestrator.Job()
	s.log.Info("batch started", "job", job.ID, "recipients", len(names))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(job)
}

func (s *Server) handleTerminate(w http.ResponseWriter, r *http.Request) {
	s.orchestrator.Terminate()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := map[string]any{
		"state": s.orchestrator.State().String(),
	}
	if job := s.orchestrator.Job(); job != nil {
		status["job"] = job
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(status)
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}

	s.hub.RegisterClient(conn)

	// Drain control frames; unregister when the peer goes away.
	go func() {
		defer s.hub.UnregisterClient(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func formFile(r *http.Request, name string) ([]byte, error) {
	file, _, err := r.FormFile(name)
	if err != nil {
		return nil, errors.New("missing " + name + " file")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("failed to read " + name + " file")
	}
	return data, nil
}
