package e2e

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"testing"
)

func TestSyncStart_MissingDirs(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/sync/start",
		`{"voiceDir":"/nope/voice","videoDir":"/nope/video","outputDir":"/nope/out"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestSyncStart_MissingFields(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodPost, "/api/sync/start", `{"voiceDir":"/tmp"}`, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)

	body := parseJSON(t, resp)
	if code := errorCode(t, body); code != "VALIDATION_ERROR" {
		t.Errorf("expected error code VALIDATION_ERROR, got %q", code)
	}
}

func TestSyncRun_Unknown(t *testing.T) {
	ta := setupApp(t)

	resp, err := doRequest(ta.app, http.MethodGet, "/api/sync/runs/no-such-run", "", nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}

func TestSyncCheckMissing(t *testing.T) {
	ta := setupApp(t)

	voiceDir := t.TempDir()
	videoDir := t.TempDir()
	for _, name := range []string{"1.mp3", "2.mp3"} {
		if err := os.WriteFile(filepath.Join(voiceDir, name), []byte("data"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(videoDir, "Scene 1. a cat runs.mp4"), []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}

	req := fmt.Sprintf(`{"voiceDir":%q,"videoDir":%q}`, voiceDir, videoDir)
	resp, err := doRequest(ta.app, http.MethodPost, "/api/sync/check-missing", req, nil)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	if body["total"] != float64(2) {
		t.Errorf("expected total 2, got %v", body["total"])
	}
	if body["existing"] != float64(1) {
		t.Errorf("expected existing 1, got %v", body["existing"])
	}
	missing, ok := body["missing"].([]interface{})
	if !ok || len(missing) != 1 {
		t.Fatalf("expected one missing scene, got %v", body["missing"])
	}
	scene := missing[0].(map[string]interface{})
	if scene["scene"] != float64(2) {
		t.Errorf("expected scene 2 missing, got %v", scene["scene"])
	}
}
