package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"roastbot-api/internal/models"
)

// HTTPAnalyzer sends frames to a remote face-analysis service. The backend
// accepts a JPEG body on POST /analyze and answers with a FaceAnalysis JSON
// document.
type HTTPAnalyzer struct {
	baseURL   string
	client    *http.Client
	isHealthy bool
}

func NewHTTP(baseURL string, timeout time.Duration) *HTTPAnalyzer {
	log.Info().Str("url", baseURL).Msg("Initializing face analysis backend")

	return &HTTPAnalyzer{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *HTTPAnalyzer) Name() string { return "http" }

func (a *HTTPAnalyzer) Analyze(ctx context.Context, frame []byte) (*models.FaceAnalysis, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("empty frame")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/analyze", bytes.NewReader(frame))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := a.client.Do(req)
	if err != nil {
		a.isHealthy = false
		return nil, fmt.Errorf("analysis backend unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.isHealthy = false
		return nil, fmt.Errorf("analysis backend returned status %d", resp.StatusCode)
	}

	var result models.FaceAnalysis
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode analysis response: %w", err)
	}
	if result.Timestamp == 0 {
		result.Timestamp = float64(time.Now().UnixNano()) / 1e9
	}

	a.isHealthy = true
	return &result, nil
}

func (a *HTTPAnalyzer) IsHealthy() bool {
	return a.isHealthy
}
