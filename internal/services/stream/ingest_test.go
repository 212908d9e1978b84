package stream

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"roastbot-api/internal/models"
)

type fakeAnalyzer struct {
	result *models.FaceAnalysis
	err    error
	calls  int
}

func (f *fakeAnalyzer) Analyze(_ context.Context, _ []byte) (*models.FaceAnalysis, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeAnalyzer) Name() string { return "fake" }

type fakeSink struct {
	mu       sync.Mutex
	subjects []string
	payloads []interface{}
	err      error
}

func (f *fakeSink) Publish(subject string, data interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return f.err
}

func TestIngestRejectsEmptyFrame(t *testing.T) {
	m := testManager(5, 30*time.Second)
	analyzer := &fakeAnalyzer{result: &models.FaceAnalysis{Age: 30}}
	ing := NewIngestor(m, analyzer, time.Second, nil, nil)

	_, err := ing.Ingest(context.Background(), "cam-1", nil)
	if !errors.Is(err, ErrInvalidPayload) {
		t.Fatalf("expected ErrInvalidPayload, got %v", err)
	}
	if analyzer.calls != 0 {
		t.Error("analyzer should not run for an empty frame")
	}
	if _, ok := m.LatestFrame("cam-1"); ok {
		t.Error("rejected frame must not create stream state")
	}
}

func TestIngestStoresFrameWithAnalysis(t *testing.T) {
	m := testManager(5, 30*time.Second)
	analyzer := &fakeAnalyzer{result: &models.FaceAnalysis{Age: 52, Gender: "Male"}}
	sink := &fakeSink{}
	ing := NewIngestor(m, analyzer, time.Second, nil, sink)

	result, err := ing.Ingest(context.Background(), "cam-1", []byte("frame"))
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if result.AnalysisErr != nil {
		t.Fatalf("unexpected analysis error: %v", result.AnalysisErr)
	}

	frame, ok := m.LatestFrame("cam-1")
	if !ok || string(frame) != "frame" {
		t.Fatal("frame not stored")
	}
	analysis, ok := m.Analysis("cam-1")
	if !ok || analysis == nil || analysis.Age != 52 {
		t.Fatalf("analysis not stored: %+v", analysis)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.subjects) != 1 || sink.subjects[0] != SubjectStreamAnalysis {
		t.Fatalf("unexpected published subjects %v", sink.subjects)
	}
	event, ok := sink.payloads[0].(models.AnalysisEvent)
	if !ok || event.StreamID != "cam-1" || event.Analysis.Age != 52 {
		t.Fatalf("unexpected event payload %+v", sink.payloads[0])
	}
}

// TestIngestKeepsFrameWhenAnalysisFails pins the soft-failure contract: the
// feed must stay live even when the face model is down.
func TestIngestKeepsFrameWhenAnalysisFails(t *testing.T) {
	m := testManager(5, 30*time.Second)
	analyzer := &fakeAnalyzer{err: errors.New("model offline")}
	sink := &fakeSink{}
	ing := NewIngestor(m, analyzer, time.Second, nil, sink)

	result, err := ing.Ingest(context.Background(), "cam-1", []byte("frame"))
	if err != nil {
		t.Fatalf("analysis failure must not reject the frame: %v", err)
	}
	if result.AnalysisErr == nil {
		t.Fatal("expected AnalysisErr to be set")
	}

	if _, ok := m.LatestFrame("cam-1"); !ok {
		t.Fatal("frame should be stored despite the failed analysis")
	}
	analysis, ok := m.Analysis("cam-1")
	if !ok {
		t.Fatal("stream should exist after the failed analysis")
	}
	if analysis != nil {
		t.Fatalf("failed analysis must not be stored, got %+v", analysis)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.subjects) != 0 {
		t.Fatalf("no event should be published for a failed analysis, got %v", sink.subjects)
	}
}

func TestIngestToleratesSinkFailure(t *testing.T) {
	m := testManager(5, 30*time.Second)
	analyzer := &fakeAnalyzer{result: &models.FaceAnalysis{Age: 30}}
	sink := &fakeSink{err: errors.New("nats down")}
	ing := NewIngestor(m, analyzer, time.Second, nil, sink)

	if _, err := ing.Ingest(context.Background(), "cam-1", []byte("frame")); err != nil {
		t.Fatalf("sink failure must not reject the frame: %v", err)
	}
	if _, ok := m.LatestFrame("cam-1"); !ok {
		t.Fatal("frame should be stored")
	}
}

func TestIngestWithoutSink(t *testing.T) {
	m := testManager(5, 30*time.Second)
	ing := NewIngestor(m, &fakeAnalyzer{result: &models.FaceAnalysis{}}, 0, nil, nil)

	if _, err := ing.Ingest(context.Background(), "cam-1", []byte("frame")); err != nil {
		t.Fatalf("ingest without sink: %v", err)
	}
}
