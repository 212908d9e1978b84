package device

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"roastbot-api/internal/config"
	"roastbot-api/internal/logging"
)

// Agent streams frames to the backend at a fixed rate. It is the Go
// counterpart of the Pi camera scripts: frames come from a directory of
// JPEGs or the synthetic test pattern, and go out either as base64 JSON
// or as multipart uploads depending on the configured mode.
type Agent struct {
	cfg    *config.Config
	client *Client
	source FrameSource
	log    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mutex  sync.RWMutex
	sent   int64
	failed int64
}

// NewAgent creates an agent from config. A configured frame directory
// selects the directory source; otherwise frames are synthesized.
func NewAgent(cfg *config.Config) (*Agent, error) {
	var source FrameSource
	if cfg.DeviceFrameDir != "" {
		var err error
		source, err = NewDirSource(cfg.DeviceFrameDir)
		if err != nil {
			return nil, err
		}
	} else {
		source = NewSyntheticSource(640, 480, cfg.DeviceJPEGQuality)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Agent{
		cfg:    cfg,
		client: NewClient(cfg.DeviceServerURL, cfg.DeviceAPIKey),
		source: source,
		log:    logging.WithStream(logging.NewServiceLogger(cfg, "device"), cfg.DeviceStreamID),
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Client exposes the agent's API client for one-shot calls.
func (a *Agent) Client() *Client {
	return a.client
}

// Start launches the streaming loop in the background.
func (a *Agent) Start() {
	a.log.Info().
		Str("server", a.cfg.DeviceServerURL).
		Str("mode", a.cfg.DeviceUploadMode).
		Int("fps", a.cfg.DeviceFPS).
		Msg("Starting frame streaming")

	a.wg.Add(1)
	go a.streamLoop()
}

// Stop cancels the streaming loop and waits for it to exit.
func (a *Agent) Stop() {
	a.cancel()
	a.wg.Wait()
	a.log.Info().
		Int64("sent", a.Sent()).
		Int64("failed", a.Failed()).
		Msg("Frame streaming stopped")
}

func (a *Agent) streamLoop() {
	defer a.wg.Done()

	fps := a.cfg.DeviceFPS
	if fps <= 0 {
		fps = 10
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-a.ctx.Done():
			return
		case <-ticker.C:
		}

		frame, err := a.source.Next()
		if err != nil {
			a.log.Error().Err(err).Msg("Failed to read frame from source")
			continue
		}

		if err := a.sendFrame(frame); err != nil {
			a.recordFailure()
			failures++
			delay := a.backoffDelay(failures)
			a.log.Warn().
				Err(err).
				Int("consecutive_failures", failures).
				Dur("retry_in", delay).
				Msg("Frame send failed")

			select {
			case <-a.ctx.Done():
				return
			case <-time.After(delay):
			}
			continue
		}

		if failures > 0 {
			a.log.Info().Int("after_failures", failures).Msg("Frame sending recovered")
		}
		failures = 0
		a.recordSent()
	}
}

func (a *Agent) sendFrame(frame []byte) error {
	ctx, cancel := context.WithTimeout(a.ctx, a.cfg.DeviceFrameTimeout)
	defer cancel()

	if a.cfg.DeviceUploadMode == "multipart" {
		ack, err := a.client.UploadFrame(ctx, a.cfg.DeviceStreamID, frame)
		if err != nil {
			return err
		}
		// Analysis failures are soft; the frame itself was accepted.
		if ack.Error != "" {
			a.log.Debug().Str("error", ack.Error).Msg("Server could not analyze frame")
		}
		return nil
	}
	return a.client.SendFrame(ctx, a.cfg.DeviceStreamID, frame)
}

// backoffDelay calculates jittered exponential backoff for send retries.
func (a *Agent) backoffDelay(failures int) time.Duration {
	baseDelay := time.Duration(math.Pow(2, float64(failures-1))) * time.Second

	if baseDelay < a.cfg.DeviceBackoffMin {
		baseDelay = a.cfg.DeviceBackoffMin
	}
	if baseDelay > a.cfg.DeviceBackoffMax {
		baseDelay = a.cfg.DeviceBackoffMax
	}

	jitterPct := float64(a.cfg.DeviceBackoffJitterPct) / 100.0
	jitter := time.Duration(float64(baseDelay) * jitterPct * (rand.Float64()*2 - 1))

	return baseDelay + jitter
}

func (a *Agent) recordSent() {
	a.mutex.Lock()
	a.sent++
	a.mutex.Unlock()
}

func (a *Agent) recordFailure() {
	a.mutex.Lock()
	a.failed++
	a.mutex.Unlock()
}

// Sent returns the number of frames delivered successfully.
func (a *Agent) Sent() int64 {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.sent
}

// Failed returns the number of frame sends that errored.
func (a *Agent) Failed() int64 {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.failed
}

// Stats returns a snapshot of the agent's counters.
func (a *Agent) Stats() map[string]interface{} {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return map[string]interface{}{
		"stream_id": a.cfg.DeviceStreamID,
		"mode":      a.cfg.DeviceUploadMode,
		"sent":      a.sent,
		"failed":    a.failed,
	}
}
