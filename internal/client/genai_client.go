package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/storyforge/api/internal/config"
)

// Default voice/model applied when a request leaves them blank.
const (
	genaiDefaultVoiceID   = "3VnrjnYrskPMDsapTr8X"
	genaiDefaultLabsModel = "eleven_turbo_v2_5"
	genaiDefaultMaxModel  = "speech-2.5-hd-preview"
)

// GenAISpeech defines the GenAI Pro TTS operations.
type GenAISpeech interface {
	CreateLabsTask(ctx context.Context, text string, opts TaskOptions) (string, error)
	CreateMaxTask(ctx context.Context, segmentNumber int, text string, opts TaskOptions) (string, error)
	RequestSubtitle(ctx context.Context, taskID string) error
	GetTaskDetails(ctx context.Context, taskID string) (string, error)
}

// TaskOptions carries the per-run overrides for task creation.
type TaskOptions struct {
	VoiceID     string
	Model       string
	Language    string
	CallbackURL string
}

// GenAIClient implements GenAISpeech against genaipro.vn.
type GenAIClient struct {
	httpClient *http.Client
	baseURL    string
	host       string
	apiKey     string
}

// NewGenAIClient creates a new GenAI Pro API client.
func NewGenAIClient(cfg *config.GenAIConfig) *GenAIClient {
	return &GenAIClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: cfg.BaseURL,
		host:    HostOf(cfg.BaseURL),
		apiKey:  cfg.APIKey,
	}
}

// HostOf strips the path from a base URL, for rebasing relative links
// the API returns.
func HostOf(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" {
		return baseURL
	}
	return u.Scheme + "://" + u.Host
}

type genaiLabsPayload struct {
	Input           string  `json:"input"`
	VoiceID         string  `json:"voice_id"`
	ModelID         string  `json:"model_id"`
	Style           int     `json:"style"`
	Speed           float64 `json:"speed"`
	Similarity      float64 `json:"similarity"`
	Stability       float64 `json:"stability"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	CallBackURL     string  `json:"call_back_url,omitempty"`
}

type genaiMaxPayload struct {
	Title       string `json:"title"`
	Text        string `json:"text"`
	VoiceID     string `json:"voice_id"`
	ModelID     string `json:"model_id"`
	IsClone     bool   `json:"is_clone"`
	Language    string `json:"language"`
	CallBackURL string `json:"call_back_url,omitempty"`
}

type genaiTaskResponse struct {
	TaskID   string `json:"task_id"`
	ID       string `json:"id"`
	Subtitle string `json:"subtitle"`
	Error    string `json:"error"`
}

// CreateLabsTask submits a Labs-tier TTS task and returns its task id.
func (c *GenAIClient) CreateLabsTask(ctx context.Context, text string, opts TaskOptions) (string, error) {
	payload := genaiLabsPayload{
		Input:      text,
		VoiceID:    orDefault(opts.VoiceID, genaiDefaultVoiceID),
		ModelID:    orDefault(opts.Model, genaiDefaultLabsModel),
		Style:      0,
		Speed:      1.0,
		Similarity: 0.5,
		Stability:  0.5,
	}
	if opts.CallbackURL != "" {
		payload.CallBackURL = opts.CallbackURL + "/genaipro-callback"
	}

	var result genaiTaskResponse
	if err := c.post(ctx, "/labs/task", payload, &result); err != nil {
		return "", err
	}
	if result.Error != "" {
		return "", fmt.Errorf("genai labs task: %s", result.Error)
	}
	if result.TaskID == "" {
		return "", fmt.Errorf("genai labs task: no task_id in response")
	}
	return result.TaskID, nil
}

// CreateMaxTask submits a Max-tier TTS task. The Max API titles tasks
// by segment number and returns the id under "id", not "task_id".
func (c *GenAIClient) CreateMaxTask(ctx context.Context, segmentNumber int, text string, opts TaskOptions) (string, error) {
	payload := genaiMaxPayload{
		Title:    strconv.Itoa(segmentNumber),
		Text:     text,
		VoiceID:  opts.VoiceID,
		ModelID:  orDefault(opts.Model, genaiDefaultMaxModel),
		IsClone:  true,
		Language: orDefault(opts.Language, "Vietnamese"),
	}
	if opts.CallbackURL != "" {
		payload.CallBackURL = opts.CallbackURL + "/genaipro-callback"
	}

	var result genaiTaskResponse
	if err := c.post(ctx, "/max/tasks", payload, &result); err != nil {
		return "", err
	}
	if result.Error != "" {
		return "", fmt.Errorf("genai max task: %s", result.Error)
	}
	if result.ID == "" {
		return "", fmt.Errorf("genai max task: no id in response")
	}
	return result.ID, nil
}

// RequestSubtitle asks the Labs API to generate an SRT for a finished
// task. Generation is asynchronous; the URL appears in task details
// later.
func (c *GenAIClient) RequestSubtitle(ctx context.Context, taskID string) error {
	payload := map[string]int{
		"max_characters_per_line": 42,
		"max_lines_per_cue":       2,
		"max_seconds_per_cue":     5,
	}

	var result genaiTaskResponse
	if err := c.post(ctx, "/labs/task/subtitle/"+taskID, payload, &result); err != nil {
		return err
	}
	if result.Error != "" {
		return fmt.Errorf("genai subtitle request: %s", result.Error)
	}
	return nil
}

// GetTaskDetails fetches a task and returns its subtitle URL, rebased
// onto the API host when the response carries a relative path.
func (c *GenAIClient) GetTaskDetails(ctx context.Context, taskID string) (string, error) {
	var result genaiTaskResponse
	if err := c.get(ctx, "/labs/task/"+taskID, &result); err != nil {
		return "", err
	}
	if result.Error != "" {
		return "", fmt.Errorf("genai task details: %s", result.Error)
	}
	if result.Subtitle == "" {
		return "", fmt.Errorf("genai task %s: no subtitle URL yet", taskID)
	}
	return absoluteURL(c.host, result.Subtitle), nil
}

func absoluteURL(host, ref string) string {
	if len(ref) >= 4 && ref[:4] == "http" {
		return ref
	}
	return host + ref
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (c *GenAIClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

func (c *GenAIClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

func (c *GenAIClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	log.Printf("[GenAI API] → %s %s", req.Method, req.URL.String())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[GenAI API] ✗ %s %s request failed: %v", req.Method, req.URL.String(), err)
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	log.Printf("[GenAI API] ← %d %s %s", resp.StatusCode, req.Method, req.URL.String())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("genai API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

// IsConfigured returns true if the client has an API key.
func (c *GenAIClient) IsConfigured() bool {
	return c.apiKey != ""
}
