package main

import (
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/storyforge/api/internal/client"
	"github.com/storyforge/api/internal/config"
	"github.com/storyforge/api/internal/handler"
	"github.com/storyforge/api/internal/media"
	"github.com/storyforge/api/internal/registry"
	"github.com/storyforge/api/internal/service"
	ws "github.com/storyforge/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize external clients
	genaiClient := client.NewGenAIClient(&cfg.GenAI)
	ai33Client := client.NewAI33Client(&cfg.AI33)
	videogenClient := client.NewVideoGenClient(&cfg.T2V)
	downloader := client.NewDownloader(time.Duration(cfg.Processing.DownloadTimeoutSec) * time.Second)

	// Task registry and the webhook receiver the providers call back into
	reg := registry.New()
	callbackServer := handler.NewCallbackServer(reg, client.HostOf(cfg.GenAI.BaseURL))
	if err := callbackServer.Start(cfg.Callback.Host, cfg.Callback.Port); err != nil {
		log.Fatalf("Failed to start callback server: %v", err)
	}

	// ffmpeg/ffprobe front end
	transcoder := media.NewTranscoder()

	// Initialize services
	ttsService := service.NewTTSService(cfg, genaiClient, ai33Client, downloader, reg, transcoder, hub)
	t2vService := service.NewT2VService(cfg, videogenClient, downloader, hub)
	syncService := service.NewSyncService(cfg, transcoder, hub)

	// Initialize handlers
	ttsHandler := handler.NewTTSHandler(ttsService, validate)
	t2vHandler := handler.NewT2VHandler(t2vService, validate)
	syncHandler := handler.NewSyncHandler(syncService, validate)
	systemHandler := handler.NewSystemHandler(callbackServer, cfg)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${body}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", systemHandler.Health)

	// API routes
	api := app.Group("/api")

	// Callback receiver lifecycle
	callback := api.Group("/callback-server")
	callback.Post("/start", systemHandler.CallbackStart)
	callback.Post("/stop", systemHandler.CallbackStop)

	// TTS routes
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

	// T2V routes
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

	// Sync routes
	sync := api.Group("/sync")
	sync.Post("/start", syncHandler.Start)
	sync.Get("/runs/:runId", syncHandler.Run)
	sync.Post("/runs/:runId/stop", syncHandler.Stop)
	sync.Post("/check-missing", syncHandler.CheckMissing)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/runs/:runId", websocket.New(func(c *websocket.Conn) {
		runID := c.Params("runId")
		hub.HandleConnection(c, runID)
	}))

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		reg.Shutdown()
		if err := callbackServer.Stop(); err != nil {
			log.Printf("Callback server shutdown error: %v", err)
		}
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
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
