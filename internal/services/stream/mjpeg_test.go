package stream

import (
	"bytes"
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"roastbot-api/internal/config"
)

// serveFeed runs ServeMJPEG until the request context is cancelled and
// returns the recorded response. The body is only inspected after the
// writer goroutine has exited.
func serveFeed(t *testing.T, m *Manager, streamID string, serveFor time.Duration) *httptest.ResponseRecorder {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/stream/"+streamID+"/feed", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		m.ServeMJPEG(rec, req, streamID)
		close(done)
	}()

	time.Sleep(serveFor)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeMJPEG did not stop on client disconnect")
	}
	return rec
}

func TestServeMJPEGPlaceholderBeforeFirstFrame(t *testing.T) {
	m := testManager(5, 30*time.Second)

	rec := serveFeed(t, m, "cam-1", 50*time.Millisecond)

	if ct := rec.Header().Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "no-cache, no-store, must-revalidate" {
		t.Fatalf("unexpected cache control %q", cc)
	}

	body := rec.Body.Bytes()
	if !bytes.Contains(body, []byte("--frame\r\n")) {
		t.Fatal("missing multipart boundary")
	}
	if !bytes.Contains(body, []byte("Content-Type: image/jpeg\r\n\r\n")) {
		t.Fatal("missing part header")
	}

	idx := bytes.Index(body, []byte("\r\n\r\n"))
	if idx < 0 {
		t.Fatal("no part payload found")
	}
	payload := body[idx+4:]
	if len(payload) < 2 || payload[0] != 0xFF || payload[1] != 0xD8 {
		t.Fatal("placeholder part is not JPEG data")
	}
}

func TestServeMJPEGDeliversFramesAndTracksViewers(t *testing.T) {
	m := testManager(5, 30*time.Second)
	frame := []byte{0xFF, 0xD8, 0x01, 0x02, 0x03, 0xFF, 0xD9}
	m.Publish("cam-1", frame, nil)

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", "/api/stream/cam-1/feed", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		m.ServeMJPEG(rec, req, "cam-1")
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for m.Stats().Viewers != 1 {
		if time.Now().After(deadline) {
			t.Fatal("viewer count never reached 1")
		}
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("ServeMJPEG did not stop on client disconnect")
	}

	if m.Stats().Viewers != 0 {
		t.Fatalf("viewer count not released, got %d", m.Stats().Viewers)
	}

	body := rec.Body.Bytes()
	if !bytes.Contains(body, frame) {
		t.Fatal("frame bytes never delivered")
	}
	if bytes.Contains(body, m.placeholder) {
		t.Fatal("placeholder served despite buffered frames")
	}
}

func TestServeMJPEGPacesRepeatFrames(t *testing.T) {
	cfg := &config.Config{
		RingCapacity:      5,
		LivenessWindow:    30 * time.Second,
		ViewerFPSLimit:    20,
		IdlePollInterval:  5 * time.Millisecond,
		PlaceholderWidth:  8,
		PlaceholderHeight: 8,
		JPEGQuality:       75,
	}
	m := NewManager(cfg, nil)
	m.Publish("cam-1", []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil)

	rec := serveFeed(t, m, "cam-1", 250*time.Millisecond)

	// 20 fps over 250ms allows about 5 parts; generous bounds either way
	parts := bytes.Count(rec.Body.Bytes(), []byte("--frame\r\n"))
	if parts < 2 {
		t.Fatalf("expected the latest frame to repeat, got %d parts", parts)
	}
	if parts > 10 {
		t.Fatalf("pacing failed, got %d parts in 250ms at 20fps", parts)
	}
}
