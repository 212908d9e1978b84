package services

import (
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	"roastbot-api/internal/config"
	"roastbot-api/internal/metrics"
	"roastbot-api/internal/services/analysis"
	"roastbot-api/internal/services/auth"
	"roastbot-api/internal/services/messaging"
	"roastbot-api/internal/services/roast"
	"roastbot-api/internal/services/store"
	"roastbot-api/internal/services/stream"
	"roastbot-api/internal/services/tts"
)

// ServiceContainer holds all services
type ServiceContainer struct {
	Config        *config.Config
	Metrics       *metrics.Metrics
	Store         *store.Store
	Auth          *auth.Service
	Messaging     *messaging.Service
	StreamManager *stream.Manager
	Ingestor      *stream.Ingestor
	Roast         *roast.Service
	TTS           *tts.Service
}

// NewServiceContainer creates a new service container
func NewServiceContainer(cfg *config.Config) (*ServiceContainer, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		return nil, err
	}

	m := metrics.New()

	st, err := store.Open(cfg)
	if err != nil {
		return nil, err
	}

	var messagingSvc *messaging.Service
	if cfg.NatsEnabled {
		messagingSvc, err = messaging.NewService(cfg)
		if err != nil {
			log.Warn().Err(err).Msg("NATS unavailable, continuing without event bus")
			messagingSvc = nil
		}
	}

	var analyzer analysis.Analyzer
	if cfg.AnalysisURL != "" {
		analyzer = analysis.NewHTTP(cfg.AnalysisURL, cfg.AnalysisTimeout)
	} else {
		analyzer = analysis.NewStub()
	}
	log.Info().Str("analyzer", analyzer.Name()).Msg("Face analyzer selected")

	manager := stream.NewManager(cfg, m)

	var sink stream.EventSink
	if messagingSvc != nil {
		sink = messagingSvc
	}
	ingestor := stream.NewIngestor(manager, analyzer, cfg.AnalysisTimeout, m, sink)

	return &ServiceContainer{
		Config:        cfg,
		Metrics:       m,
		Store:         st,
		Auth:          auth.NewService(cfg),
		Messaging:     messagingSvc,
		StreamManager: manager,
		Ingestor:      ingestor,
		Roast:         roast.NewService(cfg, st, m, messagingSvc),
		TTS:           tts.NewService(cfg, m),
	}, nil
}

// Shutdown gracefully shuts down all services
func (sc *ServiceContainer) Shutdown(ctx context.Context) error {
	if sc.Messaging != nil {
		if err := sc.Messaging.Shutdown(ctx); err != nil {
			log.Warn().Err(err).Msg("NATS drain failed")
		}
	}

	if sc.Store != nil {
		if err := sc.Store.Close(); err != nil {
			return err
		}
	}

	return nil
}
