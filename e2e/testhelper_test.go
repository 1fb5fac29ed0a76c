package e2e

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/storyforge/api/internal/client"
	"github.com/storyforge/api/internal/config"
	"github.com/storyforge/api/internal/handler"
	"github.com/storyforge/api/internal/media"
	"github.com/storyforge/api/internal/registry"
	"github.com/storyforge/api/internal/service"
	ws "github.com/storyforge/api/internal/websocket"
)

// testApp holds all components needed for testing
type testApp struct {
	app      *fiber.App
	callback *handler.CallbackServer
	registry *registry.Registry
}

// setupApp creates a Fiber app wired like main.go but with unconfigured
// external clients, so no test ever reaches a real provider.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:     "0",
			LogLevel: "info",
		},
		Callback: config.CallbackConfig{
			Host: "127.0.0.1",
			Port: "0",
		},
		GenAI: config.GenAIConfig{
			BaseURL: "https://genai.test",
			VoiceID: "voice-genai",
		},
		AI33: config.AI33Config{
			BaseURL: "https://ai33.test",
			VoiceID: "voice-ai33",
		},
		T2V: config.T2VConfig{
			BaseURL:     "https://t2v.test",
			AspectRatio: "landscape",
		},
		Processing: config.ProcessingConfig{
			BatchSize:     2,
			T2VBatchSize:  2,
			T2VMaxRetries: 2,
			HWAccel:       "cpu",
		},
	}

	validate := validator.New()

	hub := ws.NewHub()
	go hub.Run()

	genaiClient := client.NewGenAIClient(&cfg.GenAI)
	ai33Client := client.NewAI33Client(&cfg.AI33)
	videogenClient := client.NewVideoGenClient(&cfg.T2V)
	downloader := client.NewDownloader(0)

	reg := registry.New()
	t.Cleanup(reg.Shutdown)

	callbackServer := handler.NewCallbackServer(reg, client.HostOf(cfg.GenAI.BaseURL))
	t.Cleanup(func() { _ = callbackServer.Stop() })

	transcoder := media.NewTranscoder()

	ttsService := service.NewTTSService(cfg, genaiClient, ai33Client, downloader, reg, transcoder, hub)
	t2vService := service.NewT2VService(cfg, videogenClient, downloader, hub)
	syncService := service.NewSyncService(cfg, transcoder, hub)

	ttsHandler := handler.NewTTSHandler(ttsService, validate)
	t2vHandler := handler.NewT2VHandler(t2vService, validate)
	syncHandler := handler.NewSyncHandler(syncService, validate)
	systemHandler := handler.NewSystemHandler(callbackServer, cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: testErrorHandler,
		BodyLimit:    10 * 1024 * 1024,
	})

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"timestamp": time.Now().Unix()})
	})
	app.Get("/health", systemHandler.Health)

	api := app.Group("/api")

	callback := api.Group("/callback-server")
	callback.Post("/start", systemHandler.CallbackStart)
	callback.Post("/stop", systemHandler.CallbackStop)

	tts := api.Group("/tts")
	tts.Post("/split-preview", ttsHandler.SplitPreview)
	tts.Post("/start", ttsHandler.Start)
	tts.Get("/runs/:runId", ttsHandler.Run)
	tts.Post("/runs/:runId/stop", ttsHandler.Stop)
	tts.Post("/check-missing", ttsHandler.CheckMissing)
	tts.Post("/check-missing-srt", ttsHandler.CheckMissingSRT)
	tts.Post("/retry-missing", ttsHandler.RetryMissing)
	tts.Post("/retry-missing-srt", ttsHandler.RetryMissingSRT)
	tts.Post("/join", ttsHandler.Join)
	tts.Post("/merge-srt", ttsHandler.MergeSRT)

	t2v := api.Group("/t2v")
	t2v.Post("/accounts", t2vHandler.AddAccount)
	t2v.Delete("/accounts/:name", t2vHandler.RemoveAccount)
	t2v.Post("/accounts/:name/stop", t2vHandler.StopAccount)
	t2v.Post("/start", t2vHandler.Start)
	t2v.Get("/status", t2vHandler.Status)
	t2v.Post("/stop", t2vHandler.StopAll)
	t2v.Post("/transfer", t2vHandler.Transfer)
	t2v.Post("/prompts/:index", t2vHandler.EditPrompt)
	t2v.Post("/retry-failed", t2vHandler.RetryFailed)
	t2v.Post("/download-generated", t2vHandler.DownloadGenerated)

	sync := api.Group("/sync")
	sync.Post("/start", syncHandler.Start)
	sync.Get("/runs/:runId", syncHandler.Run)
	sync.Post("/runs/:runId/stop", syncHandler.Stop)
	sync.Post("/check-missing", syncHandler.CheckMissing)

	return &testApp{
		app:      app,
		callback: callbackServer,
		registry: reg,
	}
}

func testErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}

// doRequest is a helper to perform HTTP requests against the test app.
func doRequest(app *fiber.App, method, path string, body string, headers map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if body != "" {
		bodyReader = strings.NewReader(body)
	}

	req, err := http.NewRequest(method, path, bodyReader)
	if err != nil {
		return nil, err
	}

	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return app.Test(req, -1)
}

// readBody reads and returns the response body as a string.
func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(b)
}

// parseJSON parses response body into a map.
func parseJSON(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body := readBody(t, resp)
	var result map[string]interface{}
	if err := json.Unmarshal([]byte(body), &result); err != nil {
		t.Fatalf("failed to parse JSON: %v\nbody: %s", err, body)
	}
	return result
}

// assertStatus checks the HTTP status code.
func assertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("expected status %d, got %d", expected, resp.StatusCode)
	}
}

// errorCode extracts error.code from an error envelope.
func errorCode(t *testing.T, body map[string]interface{}) string {
	t.Helper()
	env, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected error envelope, got %v", body)
	}
	code, _ := env["code"].(string)
	return code
}
