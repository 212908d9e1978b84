package models

import "time"

// FrameRecord is one encoded JPEG frame held in a stream's ring buffer.
// Records are immutable once published; readers receive the stored slice and
// must not modify it.
type FrameRecord struct {
	Data       []byte
	ReceivedAt time.Time
}

// FaceAnalysis is the result produced by the analysis backend for a single
// frame. The server stores and forwards it without interpreting the fields;
// the JSON layout matches what device dashboards already consume.
type FaceAnalysis struct {
	Age       int                `json:"age"`
	Emotion   map[string]float64 `json:"emotion"`
	Gender    string             `json:"gender"`
	Ethnicity map[string]float64 `json:"race"`
	Timestamp float64            `json:"timestamp"`
}

// StreamSnapshot is a copy-out view of one stream's reporting state. The
// frame ring itself is never exposed.
type StreamSnapshot struct {
	StreamID    string        `json:"stream_id"`
	LastFrameAt time.Time     `json:"last_frame_at"`
	FrameCount  int           `json:"frame_count"`
	Analysis    *FaceAnalysis `json:"analysis,omitempty"`
}

// StreamActivity describes one entry of the active-stream listing.
// LastFrame is a unix timestamp in seconds, ActiveSince the seconds elapsed
// since that frame, both as floats for the Pi dashboard.
type StreamActivity struct {
	LastFrame   float64 `json:"last_frame"`
	ActiveSince float64 `json:"active_since"`
}

// VideoFramePayload is the JSON ingest body sent by the streaming client.
type VideoFramePayload struct {
	StreamID  string  `json:"stream_id" binding:"required"`
	Frame     string  `json:"frame" binding:"required"`
	Timestamp float64 `json:"timestamp"`
}

// IngestResponse acknowledges a received frame. Analysis is "success" or
// "failed"; Error carries the soft failure detail when analysis failed.
type IngestResponse struct {
	Status   string `json:"status"`
	Analysis string `json:"analysis,omitempty"`
	Error    string `json:"error,omitempty"`
}

// AnalysisEvent is pushed to websocket subscribers and the event bus
// whenever a frame with a fresh analysis is published.
type AnalysisEvent struct {
	StreamID   string       `json:"stream_id"`
	Analysis   FaceAnalysis `json:"analysis"`
	ReceivedAt time.Time    `json:"received_at"`
}

// RoastEvent is published to the event bus after a roast is generated.
type RoastEvent struct {
	RoastID      string    `json:"roast_id"`
	TargetUserID string    `json:"target_user_id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
}
