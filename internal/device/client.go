package device

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"roastbot-api/internal/models"
)

// voiceAliases maps the speaker's friendly voice names to ElevenLabs IDs.
var voiceAliases = map[string]string{
	"male1":   "jsCqWAovK2LkecY7zXl4",
	"male2":   "pNInz6obpgDQGcFmaJgB",
	"female1": "21m00Tcm4TlvDq8ikWAM",
	"female2": "AZnzlk1XvdvUeBnXmlld",
	"villain": "VR6AewLTigWG4xSOukaG",
	"deep":    "2EiwWnXFnvU5JabPnv8n",
}

// DefaultVoice suits a roast.
const DefaultVoice = "villain"

// ResolveVoice maps a friendly alias to its voice ID. Unknown values pass
// through untouched so raw ElevenLabs IDs keep working.
func ResolveVoice(name string) string {
	if id, ok := voiceAliases[name]; ok {
		return id
	}
	return name
}

// VoiceAliases lists the known friendly voice names, for --list-voices.
func VoiceAliases() map[string]string {
	out := make(map[string]string, len(voiceAliases))
	for k, v := range voiceAliases {
		out[k] = v
	}
	return out
}

// Client talks to the backend's device endpoints. Timeouts come from the
// caller's context so frame sends can stay tight while roast triggers wait
// out the LLM and TTS round trips.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{},
	}
}

// SendFrame posts a base64-encoded frame as JSON with the device key header.
func (c *Client) SendFrame(ctx context.Context, streamID string, frame []byte) error {
	payload := models.VideoFramePayload{
		StreamID:  streamID,
		Frame:     base64.StdEncoding.EncodeToString(frame),
		Timestamp: float64(time.Now().UnixNano()) / 1e9,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode frame payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/raspi/stream-frame", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send frame: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError("stream-frame", resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// UploadFrame posts the frame as a multipart file, the keyless path the
// PiCamera uploader uses, and returns the server's acknowledgement.
func (c *Client) UploadFrame(ctx context.Context, streamID string, frame []byte) (*models.IngestResponse, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("stream_id", streamID); err != nil {
		return nil, err
	}
	part, err := w.CreateFormFile("frame", "image.jpg")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(frame); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/raspi/upload_frame", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload frame: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError("upload_frame", resp)
	}

	var ack models.IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &ack, nil
}

// TriggerResult carries either synthesized audio or the text fallback the
// backend sends when synthesis failed.
type TriggerResult struct {
	Audio       []byte
	ContentType string
	Fallback    *models.TriggerRoastFallback
}

// TriggerRoast asks the backend to roast the user and speaks the result.
func (c *Client) TriggerRoast(ctx context.Context, userID, name, voice, format string) (*TriggerResult, error) {
	payload := models.TriggerRoastRequest{
		UserID:  userID,
		Name:    name,
		VoiceID: ResolveVoice(voice),
		Format:  format,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode trigger payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/raspi/trigger-roast", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trigger roast: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError("trigger-roast", resp)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "audio") {
		audio, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read audio: %w", err)
		}
		return &TriggerResult{Audio: audio, ContentType: contentType}, nil
	}

	var fallback models.TriggerRoastFallback
	if err := json.NewDecoder(resp.Body).Decode(&fallback); err != nil {
		return nil, fmt.Errorf("decode fallback: %w", err)
	}
	return &TriggerResult{Fallback: &fallback}, nil
}

func apiError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Detail != "" {
		return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, payload.Detail)
	}
	return fmt.Errorf("%s: status %d", op, resp.StatusCode)
}
