package service

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/storyforge/api/internal/config"
	"github.com/storyforge/api/internal/model"
	ws "github.com/storyforge/api/internal/websocket"
)

func testConfig() *config.Config {
	return &config.Config{
		GenAI: config.GenAIConfig{VoiceID: "voice-genai", Model: "eleven_turbo_v2_5"},
		AI33:  config.AI33Config{VoiceID: "voice-ai33"},
		T2V:   config.T2VConfig{AspectRatio: "VIDEO_ASPECT_RATIO_LANDSCAPE"},
		Processing: config.ProcessingConfig{
			BatchSize:        2,
			T2VBatchSize:     2,
			T2VTaskDelayMS:   0,
			T2VMaxRetries:    2,
			SubtitleWaitSec:  0,
			SubtitleDelaySec: 0,
			HWAccel:          "cpu",
		},
	}
}

func newTestHub() *ws.Hub {
	hub := ws.NewHub()
	go hub.Run()
	return hub
}

const testSRTContent = "1\n00:00:00,000 --> 00:00:02,000\nhello world\n\n"

// fakeFetcher writes placeholder files instead of downloading. URLs in
// fails produce a download error.
type fakeFetcher struct {
	mu    sync.Mutex
	fails map[string]bool
	urls  []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url, outputPath string) (int64, error) {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	fail := f.fails[url]
	f.mu.Unlock()

	if fail {
		return 0, errors.New("download failed")
	}

	content := "data"
	if strings.HasSuffix(outputPath, ".srt") {
		content = testSRTContent
	}
	if err := os.WriteFile(outputPath, []byte(content), 0o644); err != nil {
		return 0, err
	}
	return int64(len(content)), nil
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func waitForTTSRun(t *testing.T, svc *TTSService, runID string) *model.TTSRunSnapshot {
	t.Helper()
	var snap *model.TTSRunSnapshot
	waitFor(t, 5*time.Second, func() bool {
		var err error
		snap, err = svc.Run(runID)
		if err != nil {
			t.Fatalf("Run(%s): %v", runID, err)
		}
		return snap.Status != model.RunRunning
	})
	return snap
}

func waitForSyncRun(t *testing.T, svc *SyncService, runID string) *model.SyncRunSnapshot {
	t.Helper()
	var snap *model.SyncRunSnapshot
	waitFor(t, 5*time.Second, func() bool {
		var err error
		snap, err = svc.Run(runID)
		if err != nil {
			t.Fatalf("Run(%s): %v", runID, err)
		}
		return snap.Status != model.RunRunning
	})
	return snap
}
