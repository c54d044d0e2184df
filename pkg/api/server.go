// Package api serves an Engine over HTTP: session control, the discovery
// log, the trail, rendered frames and charts, and a websocket tick stream.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot/vg"

	"zetawatch/pkg/compression"
	"zetawatch/pkg/render"
	"zetawatch/pkg/sweep"
)

// historySize bounds the samples kept for /chart.png.
const historySize = 5000

// Server exposes one engine.
type Server struct {
	engine *sweep.Engine
	logger *logrus.Entry
	opts   render.Options
	hub    *hub

	mu      sync.Mutex
	last    *sweep.Tick
	history *sweep.Trail

	unsubscribe func()
}

// NewServer subscribes to e and returns a server for it. Call Close to
// detach.
func NewServer(e *sweep.Engine, logger *logrus.Entry, opts render.Options) *Server {
	s := &Server{
		engine:  e,
		logger:  logger,
		opts:    opts,
		hub:     newHub(logger),
		history: sweep.NewTrail(historySize),
	}
	s.unsubscribe = e.OnTick(s.onTick)
	return s
}

func (s *Server) onTick(t sweep.Tick) {
	s.mu.Lock()
	if s.last == nil || t.Sample.Parameter < s.last.Sample.Parameter {
		// A new session started from t=0.
		s.history.Reset()
	}
	s.last = &t
	s.history.Push(t.Sample)
	s.mu.Unlock()

	s.hub.broadcast(t)
}

// Close detaches from the engine and drops websocket clients.
func (s *Server) Close() {
	s.unsubscribe()
	s.hub.close()
}

// Handler returns the routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", s.handleSession)
		r.Post("/start", s.handleStart)
		r.Post("/stop", s.handleStop)
	})
	r.Get("/log", s.handleLog)
	r.Delete("/log", s.handleClearLog)
	r.Get("/trail", s.handleTrail)
	r.Get("/frame.png", s.handleFrame)
	r.Get("/chart.png", s.handleChart)
	r.Get("/archive", s.handleArchive)
	r.Get("/ws", s.hub.serve)
	return r
}

// StartRequest is the optional body of POST /session/start.
type StartRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// SessionStatus is returned by GET /session.
type SessionStatus struct {
	Running  bool            `json:"running"`
	T        float64         `json:"t"`
	State    sweep.State     `json:"state"`
	Viewport *sweep.Viewport `json:"viewport,omitempty"`
	Zeros    int             `json:"zeros"`
	Info     string          `json:"info,omitempty"`
	Notice   string          `json:"notice,omitempty"`
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	st := SessionStatus{
		Running: s.engine.Running(),
		T:       s.engine.Parameter(),
		State:   s.engine.State(),
		Zeros:   s.engine.DiscoveryLog().Len(),
	}
	if vp, ok := s.engine.Viewport(); ok {
		st.Viewport = &vp
	}
	if t, ok := s.lastTick(); ok && st.Running {
		st.Info = t.Info()
		if t.Notice != nil {
			st.Notice = t.Notice.String()
		}
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}
	s.mu.Lock()
	s.last = nil
	s.mu.Unlock()

	if err := s.engine.Start(req.Width, req.Height); err != nil {
		s.schedulerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Stop(); err != nil {
		s.schedulerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) schedulerError(w http.ResponseWriter, err error) {
	if errors.Is(err, sweep.ErrAlreadyRunning) || errors.Is(err, sweep.ErrNotRunning) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	s.logger.WithError(err).Error("scheduler request failed")
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// handleLog returns the discovery log as JSON, or as a protobuf ZeroEvents
// message with ?format=proto.
func (s *Server) handleLog(w http.ResponseWriter, r *http.Request) {
	events := s.engine.Log()
	if r.URL.Query().Get("format") == "proto" {
		w.Header().Set("Content-Type", "application/x-protobuf")
		w.Write(compression.MarshalEvents(events))
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleClearLog(w http.ResponseWriter, r *http.Request) {
	s.engine.ClearLog()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTrail(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Trail())
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	vp, ok := s.engine.Viewport()
	if !ok {
		vp = sweep.NewViewport(0, 0)
	}
	var tick sweep.Tick
	if t, ok := s.lastTick(); ok && s.engine.Running() {
		tick = t
	}
	img, err := render.Frame(vp, tick, s.opts)
	if err != nil {
		s.logger.WithError(err).Error("frame render failed")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := render.EncodePNG(w, img); err != nil {
		s.logger.WithError(err).Warn("frame write failed")
	}
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	samples := s.history.Snapshot()
	s.mu.Unlock()

	p, err := render.Chart(samples, s.engine.Log(), s.engine.Config().ZeroThreshold)
	if errors.Is(err, render.ErrNoSamples) {
		http.Error(w, "no samples yet", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("chart failed")
		http.Error(w, "chart failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := render.WriteChart(w, p, 8*vg.Inch, 4*vg.Inch, "png"); err != nil {
		s.logger.WithError(err).Warn("chart write failed")
	}
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	a, err := compression.NewArchive(s.engine.Config().Step, s.engine.Parameter(), s.engine.Log(), s.engine.Trail())
	if err != nil {
		s.logger.WithError(err).Error("archive failed")
		http.Error(w, "archive failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", `attachment; filename="zetawatch.zwa"`)
	if err := compression.WriteArchive(w, a); err != nil {
		s.logger.WithError(err).Warn("archive write failed")
	}
}

func (s *Server) lastTick() (sweep.Tick, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return sweep.Tick{}, false
	}
	return *s.last, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
