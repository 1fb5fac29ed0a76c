package handler

import (
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/storyforge/api/internal/registry"
)

// CallbackServer is the webhook receiver the TTS providers call back
// into. It runs its own listener, separate from the control-plane
// server, so operators can start and stop it independently.
type CallbackServer struct {
	registry  *registry.Registry
	genaiHost string

	mu      sync.Mutex
	app     *fiber.App
	addr    string
	running bool
}

// NewCallbackServer wires the receiver to the task registry. genaiHost
// is used to rebase relative result paths GenAI Pro sends.
func NewCallbackServer(reg *registry.Registry, genaiHost string) *CallbackServer {
	return &CallbackServer{
		registry:  reg,
		genaiHost: genaiHost,
	}
}

type genaiCallbackBody struct {
	ID     string `json:"id"`
	Result string `json:"result"`
	Error  string `json:"error"`
	Status string `json:"status"`
}

type ai33CallbackBody struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Metadata     *struct {
		AudioURL string `json:"audio_url"`
	} `json:"metadata"`
}

func (s *CallbackServer) ack(c *fiber.Ctx, taskID string) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"received":  true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"taskId":    taskID,
	})
}

func (s *CallbackServer) handleGenAI(c *fiber.Ctx) error {
	var body genaiCallbackBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
	}
	if body.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Task ID is required"})
	}

	if body.Result != "" {
		audioURL := body.Result
		if len(audioURL) < 4 || audioURL[:4] != "http" {
			audioURL = s.genaiHost + audioURL
		}
		log.Printf("[Callback] GenAI task %s completed: %s", body.ID, audioURL)
		s.registry.Resolve(body.ID, audioURL)
	} else if body.Error != "" {
		log.Printf("[Callback] GenAI task %s failed: %s", body.ID, body.Error)
		s.registry.Reject(body.ID, errors.New(body.Error))
	}

	return s.ack(c, body.ID)
}

func (s *CallbackServer) handleAI33(c *fiber.Ctx) error {
	var body ai33CallbackBody
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON body"})
	}
	if body.ID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Task ID is required"})
	}

	switch {
	case body.Status == "done" && body.Metadata != nil && body.Metadata.AudioURL != "":
		log.Printf("[Callback] AI33 task %s completed: %s", body.ID, body.Metadata.AudioURL)
		s.registry.Resolve(body.ID, body.Metadata.AudioURL)
	case body.Status == "error" || body.ErrorMessage != "":
		msg := body.ErrorMessage
		if msg == "" {
			msg = "Unknown error"
		}
		log.Printf("[Callback] AI33 task %s failed: %s", body.ID, msg)
		s.registry.Reject(body.ID, errors.New(msg))
	default:
		// Intermediate statuses are informational only.
		log.Printf("[Callback] AI33 task %s - status: %s", body.ID, body.Status)
	}

	return s.ack(c, body.ID)
}

// Start binds the receiver to host:port. Calling Start while it is
// already running succeeds without touching the listener.
func (s *CallbackServer) Start(host, port string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		log.Printf("[Callback] server already running on %s", s.addr)
		return nil
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Post("/genaipro-callback", s.handleGenAI)
	app.Post("/ai33-callback", s.handleAI33)
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	addr := net.JoinHostPort(host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("callback server listen %s: %w", addr, err)
	}

	go func() {
		if err := app.Listener(ln); err != nil {
			log.Printf("[Callback] server error: %v", err)
		}
	}()

	s.app = app
	s.addr = addr
	s.running = true
	log.Printf("[Callback] server running on http://%s", addr)
	return nil
}

// Stop shuts the receiver down. Stopping a stopped server is a no-op.
func (s *CallbackServer) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	err := s.app.ShutdownWithTimeout(5 * time.Second)
	s.app = nil
	s.running = false
	log.Printf("[Callback] server stopped")
	return err
}

// Running reports whether the receiver is listening.
func (s *CallbackServer) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Addr returns the last bound address.
func (s *CallbackServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// App exposes the receiver's fiber app for in-process tests.
func (s *CallbackServer) App() *fiber.App {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.app
}
