// Package service wires the configuration, collaborators, pipeline
// orchestrator, run registry and HTTP surfaces into one process.
package service

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/pkg/errors"

	"github.com/voicelab/callcheck/pkg/api"
	"github.com/voicelab/callcheck/pkg/collab"
	"github.com/voicelab/callcheck/pkg/config"
	"github.com/voicelab/callcheck/pkg/metrics"
	"github.com/voicelab/callcheck/pkg/pipeline"
	"github.com/voicelab/callcheck/pkg/registry"
)

type Service struct {
	Config  *config.Config
	Log     log.Logger
	Healthz *HealthzServer
	Metrics *MetricsServer

	Registry     *registry.Registry
	Orchestrator *pipeline.Orchestrator
	API          *api.Server
}

func New(cfg *config.Config, logger log.Logger) (*Service, error) {
	simulator, err := collab.NewLocalCallSimulator(logger, cfg.Storage.TempDir)
	if err != nil {
		return nil, errors.Wrap(err, "creating call simulator")
	}
	store, err := collab.NewDiskStore(logger, cfg.Storage.AudioDir)
	if err != nil {
		return nil, errors.Wrap(err, "creating audio store")
	}

	orch, err := pipeline.New(pipeline.Config{
		Log:           logger,
		Synthesizer:   collab.NewHTTPSynthesizer(logger, cfg.Collaborators.Synthesis.Endpoint, cfg.Collaborators.Synthesis.Timeout),
		Transcriber:   collab.NewHTTPTranscriber(logger, cfg.Collaborators.Transcription.Endpoint, cfg.Collaborators.Transcription.Timeout),
		Analyzer:      collab.NewHTTPAnalyzer(logger, cfg.Collaborators.Analysis.Endpoint, cfg.Collaborators.Analysis.Timeout),
		CallSimulator: simulator,
		Store:         store,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating orchestrator")
	}

	reg := registry.New()
	return &Service{
		Config:       cfg,
		Log:          logger,
		Healthz:      &HealthzServer{log: logger},
		Metrics:      &MetricsServer{},
		Registry:     reg,
		Orchestrator: orch,
		API: api.NewServer(api.Config{
			Log:           logger,
			Registry:      reg,
			Runner:        orch,
			AudioDir:      cfg.Storage.AudioDir,
			MaxConcurrent: cfg.Runs.MaxConcurrent,
		}),
	}, nil
}

func (s *Service) Start(ctx context.Context) {
	s.Log.Info("service starting")

	if s.Config.Healthz.Enabled {
		addr := net.JoinHostPort(s.Config.Healthz.Host, s.Config.Healthz.Port)
		s.Log.Info("starting healthz server", "addr", addr)
		go func() {
			if err := s.Healthz.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Log.Error("error starting healthz server", "err", err)
			}
		}()
	}

	metrics.Debug = s.Config.Metrics.Debug
	if s.Config.Metrics.Enabled {
		addr := net.JoinHostPort(s.Config.Metrics.Host, s.Config.Metrics.Port)
		s.Log.Info("starting metrics server", "addr", addr)
		go func() {
			if err := s.Metrics.Start(ctx, addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.Log.Error("error starting metrics server", "err", err)
			}
		}()
	}

	apiAddr := net.JoinHostPort(s.Config.Server.Host, s.Config.Server.Port)
	go func() {
		if err := s.API.Start(apiAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.Log.Error("error starting api server", "err", err)
		}
	}()

	go s.retentionLoop(ctx)

	s.Log.Info("service started")
}

// retentionLoop prunes terminal runs older than the retention window.
// Running runs are never pruned regardless of age.
func (s *Service) retentionLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := s.Registry.Cleanup(s.Config.Runs.Retention); removed > 0 {
				s.Log.Info("pruned expired runs", "removed", removed)
			}
		}
	}
}

func (s *Service) Shutdown() {
	s.Log.Info("service shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.API.Shutdown(ctx); err != nil {
		s.Log.Error("error stopping api server", "err", err)
	}
	s.Log.Info("api stopped")

	if s.Config.Healthz.Enabled {
		s.Healthz.Shutdown() //nolint:errcheck
		s.Log.Info("healthz stopped")
	}
	if s.Config.Metrics.Enabled {
		s.Metrics.Shutdown() //nolint:errcheck
		s.Log.Info("metrics stopped")
	}
	s.Log.Info("service stopped")
}
