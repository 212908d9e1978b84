package analysis

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"roastbot-api/internal/models"
)

// StubAnalyzer validates that the frame decodes as an image and returns a
// fixed analysis. It stands in for the face model until one is wired up.
type StubAnalyzer struct{}

func NewStub() *StubAnalyzer {
	return &StubAnalyzer{}
}

func (a *StubAnalyzer) Name() string { return "stub" }

func (a *StubAnalyzer) Analyze(_ context.Context, frame []byte) (*models.FaceAnalysis, error) {
	if len(frame) == 0 {
		return nil, fmt.Errorf("empty frame")
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(frame)); err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	return &models.FaceAnalysis{
		Age:       30,
		Emotion:   map[string]float64{"happy": 0.8, "neutral": 0.2},
		Gender:    "Male",
		Ethnicity: map[string]float64{"white": 0.75, "latino": 0.25},
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
	}, nil
}
