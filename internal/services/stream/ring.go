package stream

import "roastbot-api/internal/models"

// frameRing is a fixed-capacity ring buffer of frames. When full, pushing
// evicts the oldest frame. It is not safe for concurrent use; the Manager's
// lock guards every access.
type frameRing struct {
	frames   []*models.FrameRecord
	capacity int
	head     int // Write position
	tail     int // Read position
	count    int // Current frame count

	totalReceived int64
	totalDropped  int64
}

func newFrameRing(capacity int) *frameRing {
	if capacity <= 0 {
		capacity = 30 // Default: one second of frames at camera rate
	}
	return &frameRing{
		frames:   make([]*models.FrameRecord, capacity),
		capacity: capacity,
	}
}

// push adds a frame, dropping the oldest if the ring is full.
func (r *frameRing) push(frame *models.FrameRecord) (dropped bool) {
	r.totalReceived++

	if r.count == r.capacity {
		// Drop oldest frame
		r.frames[r.tail] = nil
		r.tail = (r.tail + 1) % r.capacity
		r.totalDropped++
		dropped = true
	} else {
		r.count++
	}

	r.frames[r.head] = frame
	r.head = (r.head + 1) % r.capacity

	return dropped
}

// latest returns the newest frame, or nil when the ring is empty.
func (r *frameRing) latest() *models.FrameRecord {
	if r.count == 0 {
		return nil
	}
	// Head points to next write position, so go back one
	latestIdx := (r.head - 1 + r.capacity) % r.capacity
	return r.frames[latestIdx]
}

// all returns the buffered frames in chronological order, oldest first. The
// returned slice copies the record pointers, not the frame data.
func (r *frameRing) all() []*models.FrameRecord {
	if r.count == 0 {
		return nil
	}
	result := make([]*models.FrameRecord, r.count)
	for i := 0; i < r.count; i++ {
		idx := (r.tail + i) % r.capacity
		result[i] = r.frames[idx]
	}
	return result
}

func (r *frameRing) len() int {
	return r.count
}
