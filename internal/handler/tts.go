package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/storyforge/api/internal/model"
	"github.com/storyforge/api/internal/service"
	"github.com/storyforge/api/pkg/response"
)

type TTSHandler struct {
	service   *service.TTSService
	validator *validator.Validate
}

func NewTTSHandler(svc *service.TTSService, v *validator.Validate) *TTSHandler {
	return &TTSHandler{
		service:   svc,
		validator: v,
	}
}

// SplitPreview handles POST /api/tts/split-preview
func (h *TTSHandler) SplitPreview(c *fiber.Ctx) error {
	var req model.SplitPreviewRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	return response.OK(c, h.service.PreviewSplit(req))
}

// Start handles POST /api/tts/start
func (h *TTSHandler) Start(c *fiber.Ctx) error {
	var req model.TTSStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	runID, total, err := h.service.StartBatch(req)
	if err != nil {
		return response.ValidationError(c, err.Error(), nil)
	}

	return response.Accepted(c, fiber.Map{
		"success": true,
		"runId":   runID,
		"total":   total,
	})
}

// Run handles GET /api/tts/runs/:runId
func (h *TTSHandler) Run(c *fiber.Ctx) error {
	snap, err := h.service.Run(c.Params("runId"))
	if err != nil {
		return response.NotFound(c, err.Error())
	}
	return response.OK(c, snap)
}

// Stop handles POST /api/tts/runs/:runId/stop
func (h *TTSHandler) Stop(c *fiber.Ctx) error {
	if err := h.service.StopRun(c.Params("runId")); err != nil {
		return response.NotFound(c, err.Error())
	}
	return response.OK(c, fiber.Map{"success": true})
}

// CheckMissing handles POST /api/tts/check-missing
func (h *TTSHandler) CheckMissing(c *fiber.Ctx) error {
	var req model.MissingCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	report, err := h.service.CheckMissingFiles(req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, report)
}

// CheckMissingSRT handles POST /api/tts/check-missing-srt
func (h *TTSHandler) CheckMissingSRT(c *fiber.Ctx) error {
	var req model.MissingCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	report, err := h.service.CheckMissingSRT(req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, report)
}

// RetryMissing handles POST /api/tts/retry-missing
func (h *TTSHandler) RetryMissing(c *fiber.Ctx) error {
	var req model.RetryMissingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	runID, missing, err := h.service.RetryMissingVoices(req)
	if err != nil {
		return response.ValidationError(c, err.Error(), nil)
	}

	return response.Accepted(c, fiber.Map{
		"success": true,
		"runId":   runID,
		"missing": missing,
	})
}

// RetryMissingSRT handles POST /api/tts/retry-missing-srt
func (h *TTSHandler) RetryMissingSRT(c *fiber.Ctx) error {
	var req model.MissingCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	runID, missing, err := h.service.RetryMissingSRT(req)
	if err != nil {
		return response.ValidationError(c, err.Error(), nil)
	}

	return response.Accepted(c, fiber.Map{
		"success": true,
		"runId":   runID,
		"missing": missing,
	})
}

// Join handles POST /api/tts/join
func (h *TTSHandler) Join(c *fiber.Ctx) error {
	var req model.DirRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.JoinVoices(req.Dir)
	if err != nil {
		return response.TranscodeError(c, err.Error())
	}
	return response.OK(c, result)
}

// MergeSRT handles POST /api/tts/merge-srt
func (h *TTSHandler) MergeSRT(c *fiber.Ctx) error {
	var req model.DirRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	result, err := h.service.MergeSRT(req.Dir)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, result)
}
