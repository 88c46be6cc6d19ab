// Package api exposes the test pipeline over HTTP. Handlers never block
// on pipeline execution; runs happen in background goroutines capped by
// a weighted semaphore, and pollers read snapshots.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"golang.org/x/sync/semaphore"

	"github.com/voicelab/callcheck/pkg/pipeline"
	"github.com/voicelab/callcheck/pkg/registry"
)

// Runner executes a run to its terminal state. Satisfied by
// *pipeline.Orchestrator; narrowed so transport tests can stub it.
type Runner interface {
	Run(ctx context.Context, res *pipeline.Result)
	ServiceStatus(ctx context.Context) map[string]bool
}

type Config struct {
	Log      log.Logger
	Registry *registry.Registry
	Runner   Runner

	// AudioDir is served read-only under /storage/audio/.
	AudioDir string

	// MaxConcurrent caps simultaneous pipeline runs. Accepted runs
	// beyond the cap queue on the semaphore.
	MaxConcurrent int64
}

type Server struct {
	log    log.Logger
	reg    *registry.Registry
	runner Runner
	sem    *semaphore.Weighted

	audioDir string
	srv      *http.Server
}

func NewServer(cfg Config) *Server {
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Server{
		log:      cfg.Log,
		reg:      cfg.Registry,
		runner:   cfg.Runner,
		sem:      semaphore.NewWeighted(maxConcurrent),
		audioDir: cfg.AudioDir,
	}
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/test/start", s.handleStart).Methods(http.MethodPost)
	api.HandleFunc("/test/{id}/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/test/{id}/result", s.handleResult).Methods(http.MethodGet)
	api.HandleFunc("/test/{id}/report", s.handleReport).Methods(http.MethodGet)
	api.HandleFunc("/test/{id}/steps", s.handleSteps).Methods(http.MethodGet)
	api.HandleFunc("/test/{id}", s.handleDelete).Methods(http.MethodDelete)
	api.HandleFunc("/tests/list", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/tests/cleanup", s.handleCleanup).Methods(http.MethodPost)
	api.HandleFunc("/system/status", s.handleSystemStatus).Methods(http.MethodGet)

	r.PathPrefix("/storage/audio/").Handler(
		http.StripPrefix("/storage/audio/", http.FileServer(http.Dir(s.audioDir))))

	return cors.AllowAll().Handler(r)
}

func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info("api server listening", "addr", addr)
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

// launch schedules a run in the background, gated by the semaphore.
func (s *Server) launch(res *pipeline.Result) {
	go func() {
		// Acquire with Background never fails.
		_ = s.sem.Acquire(context.Background(), 1)
		defer s.sem.Release(1)
		s.runner.Run(context.Background(), res)
	}()
}
