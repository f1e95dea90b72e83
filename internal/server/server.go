// Package server exposes the HTTP surface of the social-story backend.
//
// The surface has three parts:
//
//   - REST endpoints for the story catalogue, reader preferences, saved
//     progress, voices, and table-driven highlight resolution.
//   - A streaming narration endpoint that synthesizes page text to audio.
//   - The /ws/listen websocket that bridges a browser-side recognition
//     engine to a server-side listening session controller: raw engine
//     events travel up, typed state/transcript/accuracy events travel down.
//
// Operational endpoints (/healthz, /readyz, /metrics) ride on the same mux.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/LiorLearning/social-story/internal/config"
	"github.com/LiorLearning/social-story/internal/events"
	"github.com/LiorLearning/social-story/internal/health"
	"github.com/LiorLearning/social-story/internal/observe"
	"github.com/LiorLearning/social-story/internal/prefs"
	"github.com/LiorLearning/social-story/internal/story"
	"github.com/LiorLearning/social-story/pkg/voice"
)

// shutdownTimeout bounds graceful HTTP shutdown once the run context ends.
const shutdownTimeout = 10 * time.Second

// Deps holds the collaborators a Server serves. Stories and Prefs are
// required; the rest are optional and their endpoints degrade gracefully
// when absent.
type Deps struct {
	// Stories is the story catalogue. Required.
	Stories story.Store

	// Progress persists per-reader reading progress. Optional; when nil,
	// progress endpoints return 404 and session progress is not saved.
	Progress story.ProgressStore

	// Prefs stores per-reader playback preferences. Required.
	Prefs prefs.Store

	// Voices synthesizes narration. Optional; when nil, /voices and
	// narration return 503.
	Voices voice.Synthesizer

	// DefaultVoice is the profile used when a story does not name its own
	// narration voice.
	DefaultVoice voice.Profile

	// Publisher emits session summaries. A nil publisher drops them.
	Publisher *events.Publisher

	// Metrics receives server instrumentation. Defaults to
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// Health serves /healthz and /readyz. Defaults to a checker-less handler.
	Health *health.Handler
}

// Server is the social-story HTTP server.
type Server struct {
	cfg  config.ServerConfig
	deps Deps

	mu          sync.RWMutex
	recognition config.RecognitionConfig
}

// New validates deps and creates a Server.
func New(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Stories == nil {
		return nil, fmt.Errorf("server: story store is required")
	}
	if deps.Prefs == nil {
		return nil, fmt.Errorf("server: prefs store is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = observe.DefaultMetrics()
	}
	if deps.Health == nil {
		deps.Health = health.New()
	}
	return &Server{
		cfg:         cfg.Server,
		recognition: cfg.Recognition,
		deps:        deps,
	}, nil
}

// Handler builds the full request handler: all routes behind the tracing and
// metrics middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	s.deps.Health.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /stories", s.handleListStories)
	mux.HandleFunc("GET /stories/{id}", s.handleGetStory)
	mux.HandleFunc("GET /stories/{id}/pages/{page}", s.handleGetPage)
	mux.HandleFunc("GET /stories/{id}/pages/{page}/highlight", s.handleHighlight)
	mux.HandleFunc("POST /stories/{id}/pages/{page}/narrate", s.handleNarrate)

	mux.HandleFunc("GET /prefs/{reader}", s.handleGetPrefs)
	mux.HandleFunc("PUT /prefs/{reader}", s.handlePutPrefs)

	mux.HandleFunc("GET /progress/{reader}", s.handleListProgress)
	mux.HandleFunc("GET /progress/{reader}/{story}", s.handleGetProgress)

	mux.HandleFunc("GET /voices", s.handleListVoices)
	mux.HandleFunc("GET /ws/listen", s.handleListen)

	return observe.Middleware(s.deps.Metrics)(mux)
}

// ApplyRecognition swaps the recognition tuning used for new listening
// sessions. Running sessions keep the values they started with.
func (s *Server) ApplyRecognition(rc config.RecognitionConfig) {
	s.mu.Lock()
	s.recognition = rc
	s.mu.Unlock()
	slog.Info("recognition config updated", "language", rc.Language)
}

// recognitionConfig returns the current recognition tuning.
func (s *Server) recognitionConfig() config.RecognitionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recognition
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", s.cfg.ListenAddr, "tls", s.cfg.TLS != nil)
		var err error
		if s.cfg.TLS != nil {
			err = srv.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server: listen on %s: %w", s.cfg.ListenAddr, err)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// writeJSON encodes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("response encode failed", "error", err)
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}
