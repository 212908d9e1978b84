package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"roastbot-api/internal/config"
)

func NewServiceLogger(cfg *config.Config, service string) zerolog.Logger {
	return log.With().Str("env", cfg.Environment).Str("service", service).Logger()
}

func WithStream(base zerolog.Logger, streamID string) zerolog.Logger {
	return base.With().Str("stream_id", streamID).Logger()
}
