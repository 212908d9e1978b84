package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"roastbot-api/internal/models"
)

// multipartFrame builds an upload_frame body. Empty streamID or nil frame
// leaves that part out.
func multipartFrame(t *testing.T, streamID string, frame []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if streamID != "" {
		if err := w.WriteField("stream_id", streamID); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if frame != nil {
		part, err := w.CreateFormFile("frame", "frame.jpg")
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write(frame); err != nil {
			t.Fatalf("write frame: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func (e *testEnv) uploadFrame(t *testing.T, streamID string, frame []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartFrame(t, streamID, frame)
	req := httptest.NewRequest("POST", "/api/raspi/upload_frame", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

// serveFeed runs an MJPEG feed request until the context is cancelled and
// returns the recorder once the handler has finished writing.
func (e *testEnv) serveFeed(t *testing.T, path, token string, serveFor time.Duration) *httptest.ResponseRecorder {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest("GET", path, nil).WithContext(ctx)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		e.router.ServeHTTP(rec, req)
	}()

	time.Sleep(serveFor)
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("feed handler did not stop after cancel")
	}
	return rec
}

func TestStreamFrameRequiresDeviceKey(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, "POST", "/api/raspi/stream-frame", "", map[string]interface{}{
		"stream_id": "cam-1",
		"frame":     base64.StdEncoding.EncodeToString(jpegFixture(t)),
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without device key, got %d", rec.Code)
	}
	if detail := decodeBody(t, rec)["detail"]; detail != "Invalid API Key" {
		t.Errorf("unexpected detail %v", detail)
	}
}

func TestStreamFrameValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doDevice(t, "/api/raspi/stream-frame", map[string]string{"stream_id": "cam-1"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing frame: expected 422, got %d", rec.Code)
	}

	rec = env.doDevice(t, "/api/raspi/stream-frame", map[string]string{"frame": "aGVsbG8="})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing stream_id: expected 422, got %d", rec.Code)
	}
}

func TestStreamFrameBadBase64(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doDevice(t, "/api/raspi/stream-frame", map[string]string{
		"stream_id": "cam-1",
		"frame":     "!!!not-base64!!!",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	detail, _ := decodeBody(t, rec)["detail"].(string)
	if !strings.HasPrefix(detail, "Invalid image data:") {
		t.Errorf("unexpected detail %q", detail)
	}
}

func TestStreamFrameIngest(t *testing.T) {
	env := newTestEnv(t)
	frame := jpegFixture(t)

	rec := env.doDevice(t, "/api/raspi/stream-frame", map[string]string{
		"stream_id": "cam-front",
		"frame":     base64.StdEncoding.EncodeToString(frame),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("ingest: status %d: %s", rec.Code, rec.Body.String())
	}
	if status := decodeBody(t, rec)["status"]; status != "received" {
		t.Errorf("unexpected status %v", status)
	}

	stored, ok := env.manager.LatestFrame("cam-front")
	if !ok || !bytes.Equal(stored, frame) {
		t.Fatal("frame not buffered for viewers")
	}
	analysis, ok := env.manager.Analysis("cam-front")
	if !ok || analysis == nil || analysis.Age != 30 {
		t.Fatalf("analysis not recorded: %v %v", analysis, ok)
	}
}

// TestStreamFrameAnalysisSoftFailure pins that a frame the analyzer cannot
// read is still accepted and buffered; analysis problems never bounce the
// device.
func TestStreamFrameAnalysisSoftFailure(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doDevice(t, "/api/raspi/stream-frame", map[string]string{
		"stream_id": "cam-bad",
		"frame":     base64.StdEncoding.EncodeToString([]byte("definitely not an image")),
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("soft failure should still be 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if status := decodeBody(t, rec)["status"]; status != "received" {
		t.Errorf("unexpected status %v", status)
	}

	if _, ok := env.manager.LatestFrame("cam-bad"); !ok {
		t.Error("frame should be buffered despite failed analysis")
	}
	analysis, ok := env.manager.Analysis("cam-bad")
	if !ok || analysis != nil {
		t.Errorf("expected nil analysis for known stream, got %v %v", analysis, ok)
	}
}

func TestUploadFrame(t *testing.T) {
	env := newTestEnv(t)

	rec := env.uploadFrame(t, "cam-pi", jpegFixture(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: status %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != "received" || body["analysis"] != "success" {
		t.Fatalf("unexpected response %v", body)
	}
	if _, ok := body["error"]; ok {
		t.Errorf("success response should omit error, got %v", body)
	}
}

func TestUploadFrameAnalysisFailure(t *testing.T) {
	env := newTestEnv(t)

	rec := env.uploadFrame(t, "cam-pi", []byte("junk bytes"))
	if rec.Code != http.StatusOK {
		t.Fatalf("upload: status %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["status"] != "received" || body["analysis"] != "failed" {
		t.Fatalf("unexpected response %v", body)
	}
	if errText, _ := body["error"].(string); errText == "" {
		t.Error("failed analysis should carry the error detail")
	}
}

func TestUploadFrameValidation(t *testing.T) {
	env := newTestEnv(t)

	rec := env.uploadFrame(t, "", jpegFixture(t))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing stream_id: expected 422, got %d", rec.Code)
	}
	if detail := decodeBody(t, rec)["detail"]; detail != "stream_id and frame are required" {
		t.Errorf("unexpected detail %v", detail)
	}

	rec = env.uploadFrame(t, "cam-pi", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing frame: expected 422, got %d", rec.Code)
	}
}

func TestListStreams(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Dana", "dana@example.com", "hunter22")
	token := env.login(t, "dana@example.com", "hunter22")

	rec := env.doJSON(t, "GET", "/api/streams", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = env.doJSON(t, "GET", "/api/streams", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	if len(decodeBody(t, rec)) != 0 {
		t.Fatalf("expected no streams, got %s", rec.Body.String())
	}

	env.uploadFrame(t, "cam-pi", jpegFixture(t))

	rec = env.doJSON(t, "GET", "/api/streams", token, nil)
	body := decodeBody(t, rec)
	entry, ok := body["cam-pi"].(map[string]interface{})
	if !ok {
		t.Fatalf("stream missing from listing: %s", rec.Body.String())
	}
	if lastFrame, _ := entry["last_frame"].(float64); lastFrame <= 0 {
		t.Errorf("unexpected last_frame %v", entry["last_frame"])
	}
	if activeSince, _ := entry["active_since"].(float64); activeSince < 0 || activeSince > 5 {
		t.Errorf("unexpected active_since %v", entry["active_since"])
	}
}

func TestStreamAnalysisEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Dana", "dana@example.com", "hunter22")
	token := env.login(t, "dana@example.com", "hunter22")

	rec := env.doJSON(t, "GET", "/api/stream/ghost/analysis", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown stream: expected 404, got %d", rec.Code)
	}
	if detail := decodeBody(t, rec)["detail"]; detail != "Stream not found or inactive" {
		t.Errorf("unexpected detail %v", detail)
	}

	// A stream whose frames never analyzed answers null, not 404
	env.manager.Publish("cam-na", []byte{0xff, 0xd8, 0x01}, nil)
	rec = env.doJSON(t, "GET", "/api/stream/cam-na/analysis", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("no-analysis stream: status %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "null" {
		t.Fatalf("expected null body, got %q", body)
	}

	env.uploadFrame(t, "cam-pi", jpegFixture(t))
	rec = env.doJSON(t, "GET", "/api/stream/cam-pi/analysis", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("analysis: status %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["age"].(float64) != 30 || body["gender"] != "Male" {
		t.Errorf("unexpected analysis %v", body)
	}
	race, _ := body["race"].(map[string]interface{})
	if race["white"].(float64) != 0.75 {
		t.Errorf("unexpected race scores %v", body["race"])
	}
}

func TestStreamFeedRoute(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Dana", "dana@example.com", "hunter22")
	token := env.login(t, "dana@example.com", "hunter22")

	rec := env.doJSON(t, "GET", "/api/stream/cam-1/feed", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = env.serveFeed(t, "/api/stream/cam-1/feed", token, 50*time.Millisecond)
	if rec.Code != http.StatusOK {
		t.Fatalf("feed: status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
		t.Errorf("unexpected content type %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "--frame\r\n") {
		t.Error("feed body missing multipart boundary")
	}
}

func TestPublicStreamKey(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doJSON(t, "GET", "/api/public-stream/cam-1/wrong-key", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong key, got %d", rec.Code)
	}
	if detail := decodeBody(t, rec)["detail"]; detail != "Invalid API Key" {
		t.Errorf("unexpected detail %v", detail)
	}

	rec = env.serveFeed(t, "/api/public-stream/cam-1/"+testDeviceKey, "", 50*time.Millisecond)
	if rec.Code != http.StatusOK {
		t.Fatalf("public feed: status %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "multipart/x-mixed-replace") {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestLiveAnalysisWebsocket(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "Dana", "dana@example.com", "hunter22")
	token := env.login(t, "dana@example.com", "hunter22")

	server := httptest.NewServer(env.router)
	t.Cleanup(server.Close)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/streams/cam-live/live"

	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Fatal("expected handshake to fail without token")
	} else if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %v", resp)
	} else {
		resp.Body.Close()
	}

	header := http.Header{"Authorization": {"Bearer " + token}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })

	// The subscription registers just after the handshake, so publish until
	// the event comes through.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				env.manager.Publish("cam-live", []byte{0xff, 0xd8, 0x01}, &models.FaceAnalysis{
					Age:    41,
					Gender: "Female",
				})
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event map[string]interface{}
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event["stream_id"] != "cam-live" {
		t.Errorf("unexpected stream %v", event["stream_id"])
	}
	analysis, _ := event["analysis"].(map[string]interface{})
	if analysis == nil || analysis["age"].(float64) != 41 || analysis["gender"] != "Female" {
		t.Errorf("unexpected analysis payload %v", event["analysis"])
	}
}
