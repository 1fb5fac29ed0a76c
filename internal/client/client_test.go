package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/storyforge/api/internal/config"
)

func TestGenAICreateLabsTask(t *testing.T) {
	var gotBody map[string]interface{}
	var gotAuth, gotPath string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"task_id": "task-123"})
	}))
	defer srv.Close()

	c := NewGenAIClient(&config.GenAIConfig{APIKey: "secret", BaseURL: srv.URL})
	taskID, err := c.CreateLabsTask(context.Background(), "hello world", TaskOptions{
		CallbackURL: "http://localhost:9999",
	})
	if err != nil {
		t.Fatalf("CreateLabsTask() error: %v", err)
	}
	if taskID != "task-123" {
		t.Errorf("taskID = %q", taskID)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/labs/task" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody["input"] != "hello world" {
		t.Errorf("input = %v", gotBody["input"])
	}
	if gotBody["voice_id"] != genaiDefaultVoiceID {
		t.Errorf("default voice not applied: %v", gotBody["voice_id"])
	}
	if gotBody["model_id"] != genaiDefaultLabsModel {
		t.Errorf("default model not applied: %v", gotBody["model_id"])
	}
	if gotBody["call_back_url"] != "http://localhost:9999/genaipro-callback" {
		t.Errorf("call_back_url = %v", gotBody["call_back_url"])
	}
	if gotBody["use_speaker_boost"] != false {
		t.Errorf("use_speaker_boost = %v", gotBody["use_speaker_boost"])
	}
}

func TestGenAICreateMaxTaskUsesIDField(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{"id": "max-42"})
	}))
	defer srv.Close()

	c := NewGenAIClient(&config.GenAIConfig{APIKey: "k", BaseURL: srv.URL})
	taskID, err := c.CreateMaxTask(context.Background(), 7, "text", TaskOptions{VoiceID: "v1"})
	if err != nil {
		t.Fatalf("CreateMaxTask() error: %v", err)
	}
	if taskID != "max-42" {
		t.Errorf("taskID = %q", taskID)
	}
	if gotBody["title"] != "7" {
		t.Errorf("title = %v, want segment number string", gotBody["title"])
	}
	if gotBody["is_clone"] != true {
		t.Errorf("is_clone = %v", gotBody["is_clone"])
	}
}

func TestGenAITaskErrorField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"error": "quota exceeded"})
	}))
	defer srv.Close()

	c := NewGenAIClient(&config.GenAIConfig{APIKey: "k", BaseURL: srv.URL})
	if _, err := c.CreateLabsTask(context.Background(), "x", TaskOptions{}); err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("CreateLabsTask() err = %v, want quota error", err)
	}
}

func TestGenAIGetTaskDetailsRebasesRelativeURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/labs/task/t-1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"subtitle": "/files/t-1.srt"})
	}))
	defer srv.Close()

	c := NewGenAIClient(&config.GenAIConfig{APIKey: "k", BaseURL: srv.URL})
	url, err := c.GetTaskDetails(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("GetTaskDetails() error: %v", err)
	}
	if url != srv.URL+"/files/t-1.srt" {
		t.Errorf("subtitle URL = %q, want rebased onto %s", url, srv.URL)
	}
}

func TestGenAIGetTaskDetailsAbsoluteURLPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"subtitle": "https://cdn.example.com/a.srt"})
	}))
	defer srv.Close()

	c := NewGenAIClient(&config.GenAIConfig{APIKey: "k", BaseURL: srv.URL})
	url, err := c.GetTaskDetails(context.Background(), "t-2")
	if err != nil {
		t.Fatalf("GetTaskDetails() error: %v", err)
	}
	if url != "https://cdn.example.com/a.srt" {
		t.Errorf("subtitle URL = %q", url)
	}
}

func TestGenAIRequestSubtitleConstraints(t *testing.T) {
	var gotBody map[string]int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/labs/task/subtitle/t-9" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer srv.Close()

	c := NewGenAIClient(&config.GenAIConfig{APIKey: "k", BaseURL: srv.URL})
	if err := c.RequestSubtitle(context.Background(), "t-9"); err != nil {
		t.Fatalf("RequestSubtitle() error: %v", err)
	}
	if gotBody["max_characters_per_line"] != 42 || gotBody["max_lines_per_cue"] != 2 || gotBody["max_seconds_per_cue"] != 5 {
		t.Errorf("subtitle constraints = %v", gotBody)
	}
}

func TestAI33CreateLabsTask(t *testing.T) {
	var gotBody map[string]interface{}
	var gotKey, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("xi-api-key")
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "task_id": "a33-1"})
	}))
	defer srv.Close()

	c := NewAI33Client(&config.AI33Config{APIKey: "xi-secret", BaseURL: srv.URL})
	taskID, err := c.CreateLabsTask(context.Background(), "xin chào", TaskOptions{
		VoiceID:     "voice-7",
		CallbackURL: "http://localhost:9999",
	})
	if err != nil {
		t.Fatalf("CreateLabsTask() error: %v", err)
	}
	if taskID != "a33-1" {
		t.Errorf("taskID = %q", taskID)
	}
	if gotKey != "xi-secret" {
		t.Errorf("xi-api-key = %q", gotKey)
	}
	if gotPath != "/v1/text-to-speech/voice-7" {
		t.Errorf("path = %q, voice id must be in the path", gotPath)
	}
	if gotBody["receive_url"] != "http://localhost:9999/ai33-callback" {
		t.Errorf("receive_url = %v", gotBody["receive_url"])
	}
}

func TestAI33CreateMaxTaskVoiceSetting(t *testing.T) {
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1m/task/text-to-speech" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "task_id": "a33-max"})
	}))
	defer srv.Close()

	c := NewAI33Client(&config.AI33Config{APIKey: "k", BaseURL: srv.URL})
	if _, err := c.CreateMaxTask(context.Background(), "text", TaskOptions{VoiceID: "v9"}); err != nil {
		t.Fatalf("CreateMaxTask() error: %v", err)
	}

	vs, ok := gotBody["voice_setting"].(map[string]interface{})
	if !ok {
		t.Fatalf("voice_setting missing: %v", gotBody)
	}
	if vs["voice_id"] != "v9" || vs["vol"] != 1.0 || vs["speed"] != 1.0 {
		t.Errorf("voice_setting = %v", vs)
	}
	if gotBody["language_boost"] != "Vietnamese" {
		t.Errorf("language_boost = %v", gotBody["language_boost"])
	}
}

func TestAI33FailureResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "bad voice"})
	}))
	defer srv.Close()

	c := NewAI33Client(&config.AI33Config{APIKey: "k", BaseURL: srv.URL})
	if _, err := c.CreateLabsTask(context.Background(), "x", TaskOptions{VoiceID: "v"}); err == nil || !strings.Contains(err.Error(), "bad voice") {
		t.Errorf("CreateLabsTask() err = %v, want provider error", err)
	}
}

func TestVideoGenCreateVideo(t *testing.T) {
	var gotAuth string
	var gotBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path != "/api/v1/videos/generations/text-to-video" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"media": map[string]interface{}{
				"id":          "m-1",
				"downloadUrl": "https://cdn.example.com/m-1.mp4",
				"duration":    8.0,
			},
		})
	}))
	defer srv.Close()

	c := NewVideoGenClient(&config.T2VConfig{APIKey: "vk", BaseURL: srv.URL})
	res, err := c.CreateVideo(context.Background(), "a cat", "acct-1", "")
	if err != nil {
		t.Fatalf("CreateVideo() error: %v", err)
	}
	if res.MediaID != "m-1" || res.DownloadURL != "https://cdn.example.com/m-1.mp4" {
		t.Errorf("result = %+v", res)
	}
	if gotAuth != "Api-Key vk" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotBody["accountName"] != "acct-1" {
		t.Errorf("accountName = %v", gotBody["accountName"])
	}
	if gotBody["aspectRatio"] != defaultAspectRatio {
		t.Errorf("default aspect ratio not applied: %v", gotBody["aspectRatio"])
	}
}

func TestVideoGenCreateVideoNoMedia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "account busy"})
	}))
	defer srv.Close()

	c := NewVideoGenClient(&config.T2VConfig{APIKey: "k", BaseURL: srv.URL})
	if _, err := c.CreateVideo(context.Background(), "p", "a", ""); err == nil || !strings.Contains(err.Error(), "account busy") {
		t.Errorf("CreateVideo() err = %v, want provider error", err)
	}
}

func TestDownloaderFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("audio-bytes"))
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "1.mp3")
	n, err := NewDownloader(0).Fetch(context.Background(), srv.URL, out)
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if n != int64(len("audio-bytes")) {
		t.Errorf("Fetch() n = %d", n)
	}
	data, err := os.ReadFile(out)
	if err != nil || string(data) != "audio-bytes" {
		t.Errorf("file content = %q, err = %v", data, err)
	}
}

func TestDownloaderRejectsEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "empty.mp3")
	if _, err := NewDownloader(0).Fetch(context.Background(), srv.URL, out); err == nil {
		t.Fatal("Fetch() of empty body expected error")
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("empty download left a file behind")
	}
}

func TestDownloaderRejectsHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	out := filepath.Join(t.TempDir(), "x.mp3")
	if _, err := NewDownloader(0).Fetch(context.Background(), srv.URL, out); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("Fetch() err = %v, want 404", err)
	}
}
