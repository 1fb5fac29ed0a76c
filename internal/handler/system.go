package handler

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/storyforge/api/internal/config"
	"github.com/storyforge/api/pkg/response"
)

// SystemHandler serves health and the callback receiver's lifecycle.
type SystemHandler struct {
	callback *CallbackServer
	cfg      *config.Config
}

func NewSystemHandler(callback *CallbackServer, cfg *config.Config) *SystemHandler {
	return &SystemHandler{
		callback: callback,
		cfg:      cfg,
	}
}

// Health handles GET /health
func (h *SystemHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":          "healthy",
		"timestamp":       time.Now().UTC().Format(time.RFC3339),
		"callbackRunning": h.callback.Running(),
	})
}

type callbackStartRequest struct {
	Host string `json:"host"`
	Port string `json:"port"`
}

// CallbackStart handles POST /api/callback-server/start
func (h *SystemHandler) CallbackStart(c *fiber.Ctx) error {
	var req callbackStartRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return response.ValidationError(c, "Invalid request body", nil)
		}
	}
	if req.Host == "" {
		req.Host = h.cfg.Callback.Host
	}
	if req.Port == "" {
		req.Port = h.cfg.Callback.Port
	}

	if err := h.callback.Start(req.Host, req.Port); err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, fiber.Map{
		"success": true,
		"running": true,
		"addr":    h.callback.Addr(),
	})
}

// CallbackStop handles POST /api/callback-server/stop
func (h *SystemHandler) CallbackStop(c *fiber.Ctx) error {
	if err := h.callback.Stop(); err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, fiber.Map{
		"success": true,
		"running": false,
	})
}

// formatValidationErrors formats validator errors for response
func formatValidationErrors(err error) interface{} {
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		errors := make(map[string]string)
		for _, e := range validationErrors {
			errors[e.Field()] = e.Tag()
		}
		return errors
	}
	return nil
}
