package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/storyforge/api/internal/config"
)

const (
	ai33DefaultLabsModel = "eleven_multilingual_v2"
	ai33DefaultMaxModel  = "speech-2.5-hd-preview"
)

// AI33Speech defines the AI33 Pro TTS operations.
type AI33Speech interface {
	CreateLabsTask(ctx context.Context, text string, opts TaskOptions) (string, error)
	CreateMaxTask(ctx context.Context, text string, opts TaskOptions) (string, error)
}

// AI33Client implements AI33Speech against api.ai33.pro. The Labs tier
// lives under /v1, the Max tier under /v1m; authentication is the
// xi-api-key header on both.
type AI33Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewAI33Client creates a new AI33 Pro API client.
func NewAI33Client(cfg *config.AI33Config) *AI33Client {
	return &AI33Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

type ai33LabsPayload struct {
	Text       string `json:"text"`
	Model      string `json:"model"`
	ReceiveURL string `json:"receive_url,omitempty"`
}

type ai33VoiceSetting struct {
	VoiceID string  `json:"voice_id"`
	Vol     float64 `json:"vol"`
	Pitch   float64 `json:"pitch"`
	Speed   float64 `json:"speed"`
}

type ai33MaxPayload struct {
	Text          string           `json:"text"`
	Model         string           `json:"model"`
	VoiceSetting  ai33VoiceSetting `json:"voice_setting"`
	LanguageBoost string           `json:"language_boost"`
	ReceiveURL    string           `json:"receive_url,omitempty"`
}

type ai33TaskResponse struct {
	Success bool   `json:"success"`
	TaskID  string `json:"task_id"`
	Error   string `json:"error"`
}

// CreateLabsTask submits a Labs-tier TTS task. The voice id is part of
// the path, not the payload.
func (c *AI33Client) CreateLabsTask(ctx context.Context, text string, opts TaskOptions) (string, error) {
	payload := ai33LabsPayload{
		Text:  text,
		Model: orDefault(opts.Model, ai33DefaultLabsModel),
	}
	if opts.CallbackURL != "" {
		payload.ReceiveURL = opts.CallbackURL + "/ai33-callback"
	}

	var result ai33TaskResponse
	if err := c.post(ctx, "/v1/text-to-speech/"+opts.VoiceID, payload, &result); err != nil {
		return "", err
	}
	if !result.Success {
		return "", fmt.Errorf("ai33 labs task: %s", orDefault(result.Error, "unknown error"))
	}
	return result.TaskID, nil
}

// CreateMaxTask submits a Max-tier TTS task with the voice_setting
// block the Max API expects.
func (c *AI33Client) CreateMaxTask(ctx context.Context, text string, opts TaskOptions) (string, error) {
	payload := ai33MaxPayload{
		Text:  text,
		Model: orDefault(opts.Model, ai33DefaultMaxModel),
		VoiceSetting: ai33VoiceSetting{
			VoiceID: opts.VoiceID,
			Vol:     1,
			Pitch:   0,
			Speed:   1,
		},
		LanguageBoost: orDefault(opts.Language, "Vietnamese"),
	}
	if opts.CallbackURL != "" {
		payload.ReceiveURL = opts.CallbackURL + "/ai33-callback"
	}

	var result ai33TaskResponse
	if err := c.post(ctx, "/v1m/task/text-to-speech", payload, &result); err != nil {
		return "", err
	}
	if !result.Success {
		return "", fmt.Errorf("ai33 max task: %s", orDefault(result.Error, "unknown error"))
	}
	return result.TaskID, nil
}

func (c *AI33Client) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", c.apiKey)

	log.Printf("[AI33 API] → %s %s", req.Method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[AI33 API] ✗ %s %s request failed: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[AI33 API] ← %d %s %s", resp.StatusCode, req.Method, req.URL.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ai33 API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// IsConfigured returns true if the client has an API key.
func (c *AI33Client) IsConfigured() bool {
	return c.apiKey != ""
}
