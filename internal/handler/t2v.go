package handler

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/storyforge/api/internal/model"
	"github.com/storyforge/api/internal/service"
	"github.com/storyforge/api/pkg/response"
)

type T2VHandler struct {
	service   *service.T2VService
	validator *validator.Validate
}

func NewT2VHandler(svc *service.T2VService, v *validator.Validate) *T2VHandler {
	return &T2VHandler{
		service:   svc,
		validator: v,
	}
}

// AddAccount handles POST /api/t2v/accounts
func (h *T2VHandler) AddAccount(c *fiber.Ctx) error {
	var req model.AddAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := h.service.AddAccount(req.Name); err != nil {
		return response.Conflict(c, err.Error())
	}
	return response.Created(c, fiber.Map{"success": true, "name": req.Name})
}

// RemoveAccount handles DELETE /api/t2v/accounts/:name
func (h *T2VHandler) RemoveAccount(c *fiber.Ctx) error {
	if err := h.service.RemoveAccount(c.Params("name")); err != nil {
		return response.NotFound(c, err.Error())
	}
	return response.NoContent(c)
}

// Start handles POST /api/t2v/start
func (h *T2VHandler) Start(c *fiber.Ctx) error {
	var req model.T2VStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	resp, err := h.service.StartRun(req)
	if err != nil {
		return response.Conflict(c, err.Error())
	}
	return response.Accepted(c, resp)
}

// Status handles GET /api/t2v/status
func (h *T2VHandler) Status(c *fiber.Ctx) error {
	return response.OK(c, h.service.Status())
}

// StopAll handles POST /api/t2v/stop
func (h *T2VHandler) StopAll(c *fiber.Ctx) error {
	h.service.StopAll()
	return response.OK(c, fiber.Map{"success": true})
}

// StopAccount handles POST /api/t2v/accounts/:name/stop
func (h *T2VHandler) StopAccount(c *fiber.Ctx) error {
	if err := h.service.StopAccount(c.Params("name")); err != nil {
		return response.NotFound(c, err.Error())
	}
	return response.OK(c, fiber.Map{"success": true})
}

// Transfer handles POST /api/t2v/transfer
func (h *T2VHandler) Transfer(c *fiber.Ctx) error {
	var req model.TransferRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	resp, err := h.service.Transfer(req)
	if err != nil {
		return response.ValidationError(c, err.Error(), nil)
	}
	return response.OK(c, resp)
}

// EditPrompt handles POST /api/t2v/prompts/:index
func (h *T2VHandler) EditPrompt(c *fiber.Ctx) error {
	index, err := strconv.Atoi(c.Params("index"))
	if err != nil || index < 1 {
		return response.ValidationError(c, "Invalid prompt index", nil)
	}

	var req model.EditPromptRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	if err := h.service.EditPrompt(index, req); err != nil {
		return response.NotFound(c, err.Error())
	}
	return response.OK(c, fiber.Map{"success": true})
}

// RetryFailed handles POST /api/t2v/retry-failed
func (h *T2VHandler) RetryFailed(c *fiber.Ctx) error {
	var req model.RetryFailedRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	total, err := h.service.RetryFailed(req)
	if err != nil {
		return response.Conflict(c, err.Error())
	}
	return response.Accepted(c, fiber.Map{"success": true, "retrying": total})
}

// DownloadGenerated handles POST /api/t2v/download-generated
func (h *T2VHandler) DownloadGenerated(c *fiber.Ctx) error {
	var req model.DownloadGeneratedRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	success, failed, err := h.service.DownloadGenerated(req)
	if err != nil {
		return response.ValidationError(c, err.Error(), nil)
	}
	return response.OK(c, fiber.Map{
		"success":    true,
		"downloaded": success,
		"failed":     failed,
	})
}
