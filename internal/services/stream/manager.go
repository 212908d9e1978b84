package stream

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"roastbot-api/internal/config"
	"roastbot-api/internal/metrics"
	"roastbot-api/internal/models"
)

// streamState holds one camera's frame ring, liveness clock, and the most
// recent successful analysis.
type streamState struct {
	ring      *frameRing
	lastFrame time.Time
	analysis  *models.FaceAnalysis
}

// Manager owns every stream's frame ring and fans analyses out to
// subscribers. A single mutex guards the stream map; readers copy what they
// need out while holding it. Frame data is treated as immutable once
// published.
type Manager struct {
	mu      sync.Mutex
	streams map[string]*streamState
	subs    map[string]map[chan models.AnalysisEvent]struct{}
	viewers int

	capacity int
	liveness time.Duration
	metrics  *metrics.Metrics

	minFrameInterval time.Duration
	idlePoll         time.Duration
	placeholder      []byte

	// nowFn drives liveness arithmetic; replaced in tests
	nowFn func() time.Time
}

// Stats summarizes buffer state across all streams.
type Stats struct {
	Streams        int   `json:"streams"`
	ActiveStreams  int   `json:"active_streams"`
	BufferedFrames int   `json:"buffered_frames"`
	TotalReceived  int64 `json:"total_received"`
	TotalDropped   int64 `json:"total_dropped"`
	Viewers        int   `json:"viewers"`
}

func NewManager(cfg *config.Config, m *metrics.Metrics) *Manager {
	fpsLimit := cfg.ViewerFPSLimit
	if fpsLimit <= 0 {
		fpsLimit = 15
	}
	idlePoll := cfg.IdlePollInterval
	if idlePoll <= 0 {
		idlePoll = 100 * time.Millisecond
	}

	return &Manager{
		streams:          make(map[string]*streamState),
		subs:             make(map[string]map[chan models.AnalysisEvent]struct{}),
		capacity:         cfg.RingCapacity,
		liveness:         cfg.LivenessWindow,
		metrics:          m,
		minFrameInterval: time.Second / time.Duration(fpsLimit),
		idlePoll:         idlePoll,
		placeholder:      placeholderJPEG(cfg.PlaceholderWidth, cfg.PlaceholderHeight, cfg.JPEGQuality),
		nowFn:            time.Now,
	}
}

// Publish stores a frame for the stream, creating the stream on first use.
// A non-nil analysis replaces the stream's current one and is fanned out to
// subscribers. The frame slice must not be modified after the call.
func (m *Manager) Publish(streamID string, frame []byte, analysis *models.FaceAnalysis) {
	now := m.nowFn()
	record := &models.FrameRecord{Data: frame, ReceivedAt: now}

	m.mu.Lock()
	state, ok := m.streams[streamID]
	if !ok {
		state = &streamState{ring: newFrameRing(m.capacity)}
		m.streams[streamID] = state
		log.Info().Str("stream_id", streamID).Msg("New stream registered")
	}
	state.ring.push(record)
	state.lastFrame = now
	var targets []chan models.AnalysisEvent
	if analysis != nil {
		state.analysis = analysis
		for ch := range m.subs[streamID] {
			targets = append(targets, ch)
		}
	}
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.FramesIngested.Inc()
		m.metrics.BytesIngested.Add(float64(len(frame)))
	}

	if analysis != nil {
		event := models.AnalysisEvent{StreamID: streamID, Analysis: *analysis, ReceivedAt: now}
		for _, ch := range targets {
			// Slow subscribers miss events rather than block ingest
			select {
			case ch <- event:
			default:
			}
		}
	}
}

// LatestFrame returns the newest buffered frame for the stream.
func (m *Manager) LatestFrame(streamID string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.streams[streamID]
	if !ok {
		return nil, false
	}
	record := state.ring.latest()
	if record == nil {
		return nil, false
	}
	return record.Data, true
}

// Analysis returns the stream's most recent analysis. The second return is
// false only when the stream has never ingested a frame; a stream whose
// analyses all failed yields (nil, true).
func (m *Manager) Analysis(streamID string) (*models.FaceAnalysis, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.streams[streamID]
	if !ok {
		return nil, false
	}
	return state.analysis, true
}

// ActiveStreams lists streams that received a frame within the liveness
// window. Staleness is evaluated at call time, not on ingest.
func (m *Manager) ActiveStreams() map[string]models.StreamActivity {
	now := m.nowFn()

	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(map[string]models.StreamActivity)
	for id, state := range m.streams {
		age := now.Sub(state.lastFrame)
		if age < m.liveness {
			result[id] = models.StreamActivity{
				LastFrame:   float64(state.lastFrame.UnixNano()) / 1e9,
				ActiveSince: age.Seconds(),
			}
		}
	}
	return result
}

// Snapshot returns a copy-out view of one stream's reporting state.
func (m *Manager) Snapshot(streamID string) (models.StreamSnapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	state, ok := m.streams[streamID]
	if !ok {
		return models.StreamSnapshot{}, false
	}
	return models.StreamSnapshot{
		StreamID:    streamID,
		LastFrameAt: state.lastFrame,
		FrameCount:  state.ring.len(),
		Analysis:    state.analysis,
	}, true
}

// Stats aggregates buffer counters across all streams.
func (m *Manager) Stats() Stats {
	now := m.nowFn()

	m.mu.Lock()
	defer m.mu.Unlock()

	stats := Stats{Streams: len(m.streams), Viewers: m.viewers}
	for _, state := range m.streams {
		if now.Sub(state.lastFrame) < m.liveness {
			stats.ActiveStreams++
		}
		stats.BufferedFrames += state.ring.len()
		stats.TotalReceived += state.ring.totalReceived
		stats.TotalDropped += state.ring.totalDropped
	}
	return stats
}

// SubscribeAnalysis registers for analysis events on one stream. The
// returned cancel func must be called when the subscriber goes away.
func (m *Manager) SubscribeAnalysis(streamID string) (<-chan models.AnalysisEvent, func()) {
	ch := make(chan models.AnalysisEvent, 8)

	m.mu.Lock()
	set, ok := m.subs[streamID]
	if !ok {
		set = make(map[chan models.AnalysisEvent]struct{})
		m.subs[streamID] = set
	}
	set[ch] = struct{}{}
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if set, ok := m.subs[streamID]; ok {
			delete(set, ch)
			if len(set) == 0 {
				delete(m.subs, streamID)
			}
		}
		m.mu.Unlock()
	}
	return ch, cancel
}

func (m *Manager) addViewer() {
	m.mu.Lock()
	m.viewers++
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.ActiveViewers.Inc()
	}
}

func (m *Manager) removeViewer() {
	m.mu.Lock()
	m.viewers--
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.ActiveViewers.Dec()
	}
}
