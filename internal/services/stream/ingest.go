package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"roastbot-api/internal/metrics"
	"roastbot-api/internal/models"
	"roastbot-api/internal/services/analysis"
)

// ErrInvalidPayload marks transport-level frame data that cannot be decoded
// at all. The stream state is left untouched when it is returned.
var ErrInvalidPayload = errors.New("invalid image data")

// SubjectStreamAnalysis is the event bus subject for fresh frame analyses.
const SubjectStreamAnalysis = "streams.analysis"

// EventSink receives analysis events for fan-out beyond this process.
type EventSink interface {
	Publish(subject string, data interface{}) error
}

// Ingestor validates incoming frames, runs face analysis under a deadline,
// and publishes into the Manager. Analysis failures are soft: the frame is
// stored either way so the feed stays live.
type Ingestor struct {
	manager  *Manager
	analyzer analysis.Analyzer
	timeout  time.Duration
	metrics  *metrics.Metrics
	events   EventSink
}

// NewIngestor wires the ingest pipeline. events may be nil when no external
// bus is configured.
func NewIngestor(manager *Manager, analyzer analysis.Analyzer, timeout time.Duration, m *metrics.Metrics, events EventSink) *Ingestor {
	return &Ingestor{
		manager:  manager,
		analyzer: analyzer,
		timeout:  timeout,
		metrics:  m,
		events:   events,
	}
}

// IngestResult reports what happened to one accepted frame.
type IngestResult struct {
	// AnalysisErr is set when the frame was stored without a usable analysis.
	AnalysisErr error
}

// Ingest accepts raw frame bytes for a stream. A non-nil error means the
// payload was rejected outright and nothing was stored.
func (i *Ingestor) Ingest(ctx context.Context, streamID string, frame []byte) (IngestResult, error) {
	if len(frame) == 0 {
		return IngestResult{}, fmt.Errorf("%w: empty frame", ErrInvalidPayload)
	}

	actx := ctx
	if i.timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	result, err := i.analyzer.Analyze(actx, frame)
	if err != nil {
		if i.metrics != nil {
			i.metrics.AnalysisFailures.Inc()
		}
		log.Warn().Err(err).Str("stream_id", streamID).Msg("Frame analysis failed, storing frame without analysis")
		i.manager.Publish(streamID, frame, nil)
		return IngestResult{AnalysisErr: err}, nil
	}

	i.manager.Publish(streamID, frame, result)

	if i.events != nil {
		event := models.AnalysisEvent{StreamID: streamID, Analysis: *result, ReceivedAt: time.Now()}
		if err := i.events.Publish(SubjectStreamAnalysis, event); err != nil {
			log.Warn().Err(err).Str("stream_id", streamID).Msg("Failed to publish analysis event")
		}
	}
	return IngestResult{}, nil
}

