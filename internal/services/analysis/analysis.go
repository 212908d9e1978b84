// Package analysis produces face analyses for ingested camera frames.
//
// The default backend is a fixed-result stub matching what the device
// dashboards expect while the real model is offline. A remote HTTP backend
// can be enabled via ANALYSIS_URL.
package analysis

import (
	"context"

	"roastbot-api/internal/models"
)

// Analyzer examines one encoded frame and returns a face analysis. An error
// means the frame could not be analyzed; callers decide whether to keep the
// frame anyway.
type Analyzer interface {
	Analyze(ctx context.Context, frame []byte) (*models.FaceAnalysis, error)
	Name() string
}
