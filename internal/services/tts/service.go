package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"roastbot-api/internal/config"
	"roastbot-api/internal/metrics"
)

// FormatMP3 and FormatPCM name the two audio formats the device speaker
// understands.
const (
	FormatMP3 = "mp3"
	FormatPCM = "pcm"
)

// Service converts roast text to speech through the ElevenLabs API.
type Service struct {
	apiKey  string
	baseURL string
	voiceID string
	model   string
	client  *http.Client
	metrics *metrics.Metrics
}

func NewService(cfg *config.Config, m *metrics.Metrics) *Service {
	return &Service{
		apiKey:  cfg.ElevenLabsAPIKey,
		baseURL: cfg.ElevenLabsBaseURL,
		voiceID: cfg.DefaultVoiceID,
		model:   cfg.TTSModel,
		client:  &http.Client{Timeout: cfg.TTSTimeout},
		metrics: m,
	}
}

type synthesizeRequest struct {
	Text    string `json:"text"`
	ModelID string `json:"model_id"`
}

// Synthesize renders text as speech. An empty voiceID falls back to the
// configured default voice, and any format other than "pcm" is treated as
// mp3. Returns the audio bytes and the response content type.
func (s *Service) Synthesize(ctx context.Context, text, voiceID, format string) ([]byte, string, error) {
	if s.metrics != nil {
		s.metrics.TTSRequests.Inc()
	}
	if voiceID == "" {
		voiceID = s.voiceID
	}

	outputFormat := "mp3_44100_128"
	contentType := "audio/mpeg"
	if format == FormatPCM {
		outputFormat = "pcm_24000"
		contentType = "audio/pcm"
	}

	body, err := json.Marshal(synthesizeRequest{Text: text, ModelID: s.model})
	if err != nil {
		return nil, "", s.fail(err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", s.baseURL, voiceID, outputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, "", s.fail(err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", s.fail(fmt.Errorf("text-to-speech request failed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, "", s.fail(fmt.Errorf("text-to-speech returned status %d: %s", resp.StatusCode, detail))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", s.fail(err)
	}

	log.Debug().Str("voice_id", voiceID).Str("format", outputFormat).Int("bytes", len(audio)).Msg("Speech synthesized")
	return audio, contentType, nil
}

func (s *Service) fail(err error) error {
	if s.metrics != nil {
		s.metrics.TTSFailures.Inc()
	}
	return err
}
