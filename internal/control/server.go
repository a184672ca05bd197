// Package control exposes a local HTTP API over a unix socket so the CLI and
// desktop integrations can drive a running daemon: revert, status, autostart
// and a websocket event stream.
package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/clipsqueeze/clipsqueeze/internal/journal"
	"github.com/clipsqueeze/clipsqueeze/internal/pipeline"
)

// SocketName is the control socket filename inside the data directory.
const SocketName = "control.sock"

// Pipeline is the subset of pipeline operations the control surface drives.
type Pipeline interface {
	Revert(ctx context.Context) error
	HasOriginal() bool
	ArtifactPath() string
}

// Autostart manages the login item.
type Autostart interface {
	Enabled() (bool, error)
	Enable() error
	Disable() error
}

// StatusResponse is the GET /v1/status body.
type StatusResponse struct {
	PID         int             `json:"pid"`
	Backend     string          `json:"backend"`
	Artifact    string          `json:"artifact"`
	HasOriginal bool            `json:"has_original"`
	StartedAt   time.Time       `json:"started_at"`
	Totals      *TotalsResponse `json:"totals,omitempty"`
}

// TotalsResponse summarizes the journal for status output.
type TotalsResponse struct {
	Runs          int64      `json:"runs"`
	OriginalBytes uint64     `json:"original_bytes"`
	NewBytes      uint64     `json:"new_bytes"`
	Saved         string     `json:"saved"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
}

// Config carries the server's dependencies. Journal may be nil; status then
// omits totals.
type Config struct {
	Logger    *zap.Logger
	Pipeline  Pipeline
	Journal   *journal.Store
	Autostart Autostart
	Hub       *Hub
	Backend   string
}

// Server answers control requests from the CLI and desktop integrations.
type Server struct {
	logger    *zap.Logger
	pipeline  Pipeline
	journal   *journal.Store
	autostart Autostart
	hub       *Hub
	backend   string
	startedAt time.Time
	upgrader  websocket.Upgrader
}

func NewServer(cfg Config) *Server {
	return &Server{
		logger:    cfg.Logger,
		pipeline:  cfg.Pipeline,
		journal:   cfg.Journal,
		autostart: cfg.Autostart,
		hub:       cfg.Hub,
		backend:   cfg.Backend,
		startedAt: time.Now(),
	}
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Post("/v1/revert", s.handleRevert)
	r.Post("/v1/hide", s.handleHide)
	r.Get("/v1/autostart", s.handleAutostartGet)
	r.Put("/v1/autostart", s.handleAutostartPut)
	r.Get("/v1/status", s.handleStatus)
	r.Get("/v1/events", s.handleEvents)
	return r
}

// Serve binds the unix socket at socketPath and serves until ctx is
// cancelled. A stale socket left by a previous run is removed before binding,
// and the socket is restricted to the owning user.
func (s *Server) Serve(ctx context.Context, socketPath string) error {
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("control: remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("control: bind %s: %w", socketPath, err)
	}
	if err := os.Chmod(socketPath, 0600); err != nil {
		ln.Close()
		return fmt.Errorf("control: chmod socket: %w", err)
	}

	srv := &http.Server{
		Handler:     s.router(),
		ReadTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	s.logger.Info("control socket listening", zap.String("path", socketPath))
	err = srv.Serve(ln)
	os.Remove(socketPath)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) handleRevert(w http.ResponseWriter, r *http.Request) {
	err := s.pipeline.Revert(r.Context())
	switch {
	case errors.Is(err, pipeline.ErrNoOriginal):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no original image stored"})
		return
	case err != nil:
		s.logger.Error("revert failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.hub.Broadcast(Event{Type: EventHideProgress})
	writeJSON(w, http.StatusOK, map[string]string{"status": "reverted"})
}

func (s *Server) handleHide(w http.ResponseWriter, _ *http.Request) {
	s.hub.Broadcast(Event{Type: EventHideProgress})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAutostartGet(w http.ResponseWriter, _ *http.Request) {
	enabled, err := s.autostart.Enabled()
	if err != nil {
		s.logger.Error("autostart query failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": enabled})
}

func (s *Server) handleAutostartPut(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	var err error
	if req.Enabled {
		err = s.autostart.Enable()
	} else {
		err = s.autostart.Disable()
	}
	if err != nil {
		s.logger.Error("autostart update failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"enabled": req.Enabled})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		PID:         os.Getpid(),
		Backend:     s.backend,
		Artifact:    s.pipeline.ArtifactPath(),
		HasOriginal: s.pipeline.HasOriginal(),
		StartedAt:   s.startedAt,
	}
	if s.journal != nil {
		totals, err := s.journal.Totals(r.Context())
		if err != nil {
			s.logger.Warn("journal totals failed", zap.Error(err))
		} else {
			resp.Totals = totalsResponse(totals)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func totalsResponse(t *journal.Totals) *TotalsResponse {
	out := &TotalsResponse{
		Runs:          t.Runs,
		OriginalBytes: t.OriginalBytes,
		NewBytes:      t.NewBytes,
		Saved:         humanize.Bytes(0),
	}
	if t.OriginalBytes > t.NewBytes {
		out.Saved = humanize.Bytes(t.OriginalBytes - t.NewBytes)
	}
	if !t.LastRunAt.IsZero() {
		last := t.LastRunAt
		out.LastRunAt = &last
	}
	return out
}

// handleEvents upgrades to a websocket and streams hub events until the
// client goes away. The read loop exists only to detect disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	id := s.hub.add(conn)
	defer s.hub.remove(id)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
