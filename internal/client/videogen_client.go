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

const defaultAspectRatio = "VIDEO_ASPECT_RATIO_LANDSCAPE"

// VideoGenerator defines the text-to-video provider operations. The
// provider is synchronous: a successful create already carries the
// download URL.
type VideoGenerator interface {
	CreateVideo(ctx context.Context, prompt, accountName, aspectRatio string) (*VideoResult, error)
}

// VideoResult is a generated video's identity and location.
type VideoResult struct {
	MediaID     string
	DownloadURL string
	Duration    float64
}

// VideoGenClient implements VideoGenerator.
type VideoGenClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewVideoGenClient creates a new T2V API client. Generation can take
// minutes, so the timeout is generous.
func NewVideoGenClient(cfg *config.T2VConfig) *VideoGenClient {
	return &VideoGenClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Minute,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

type t2vPayload struct {
	Prompt      string `json:"prompt"`
	AccountName string `json:"accountName"`
	AspectRatio string `json:"aspectRatio"`
}

type t2vMedia struct {
	ID          string  `json:"id"`
	DownloadURL string  `json:"downloadUrl"`
	Duration    float64 `json:"duration"`
}

type t2vResponse struct {
	Success bool      `json:"success"`
	Media   *t2vMedia `json:"media"`
	Error   string    `json:"error"`
}

// CreateVideo generates a video for a prompt under the named account.
func (c *VideoGenClient) CreateVideo(ctx context.Context, prompt, accountName, aspectRatio string) (*VideoResult, error) {
	payload := t2vPayload{
		Prompt:      prompt,
		AccountName: accountName,
		AspectRatio: orDefault(aspectRatio, defaultAspectRatio),
	}

	bodyBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/api/v1/videos/generations/text-to-video"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Api-Key "+c.apiKey)

	log.Printf("[T2V API] → POST %s (account=%s)", endpoint, accountName)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[T2V API] ✗ POST %s request failed: %v", endpoint, err)
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[T2V API] ← %d POST %s (account=%s)", resp.StatusCode, endpoint, accountName)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("t2v API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result t2vResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if !result.Success || result.Media == nil {
		return nil, fmt.Errorf("t2v generation failed: %s", orDefault(result.Error, "no media in response"))
	}
	if result.Media.DownloadURL == "" {
		return nil, fmt.Errorf("t2v generation: media %s has no download URL", result.Media.ID)
	}

	return &VideoResult{
		MediaID:     result.Media.ID,
		DownloadURL: result.Media.DownloadURL,
		Duration:    result.Media.Duration,
	}, nil
}

// IsConfigured returns true if the client has an API key.
func (c *VideoGenClient) IsConfigured() bool {
	return c.apiKey != ""
}
