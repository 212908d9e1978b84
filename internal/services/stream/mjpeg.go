package stream

import (
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const boundary = "frame"

// ServeMJPEG streams a camera feed as multipart/x-mixed-replace parts. Each
// viewer runs its own loop: the newest frame is re-sent at most the
// configured FPS, and a white card is served while the stream has no frames
// yet. Delivery is lossy; a viewer always receives the latest frame, never a
// backlog.
func (m *Manager) ServeMJPEG(w http.ResponseWriter, r *http.Request, streamID string) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	m.addViewer()
	defer m.removeViewer()

	log.Debug().Str("stream_id", streamID).Msg("MJPEG viewer connected")
	defer log.Debug().Str("stream_id", streamID).Msg("MJPEG viewer disconnected")

	writePart := func(jpeg []byte) bool {
		if _, err := io.WriteString(w, "--"+boundary+"\r\n"); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "Content-Type: image/jpeg\r\n\r\n"); err != nil {
			return false
		}
		if _, err := w.Write(jpeg); err != nil {
			return false
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if _, ok := m.LatestFrame(streamID); !ok && len(m.placeholder) > 0 {
		if !writePart(m.placeholder) {
			return
		}
	}

	ctx := r.Context()
	var lastSent time.Time
	for {
		frame, ok := m.LatestFrame(streamID)
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(m.idlePoll):
			}
			continue
		}

		if wait := m.minFrameInterval - time.Since(lastSent); wait > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
		if ctx.Err() != nil {
			return
		}

		if !writePart(frame) {
			return
		}
		lastSent = time.Now()
	}
}
