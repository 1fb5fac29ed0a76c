package handler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/storyforge/api/internal/model"
	"github.com/storyforge/api/internal/service"
	"github.com/storyforge/api/pkg/response"
)

type SyncHandler struct {
	service   *service.SyncService
	validator *validator.Validate
}

func NewSyncHandler(svc *service.SyncService, v *validator.Validate) *SyncHandler {
	return &SyncHandler{
		service:   svc,
		validator: v,
	}
}

// Start handles POST /api/sync/start
func (h *SyncHandler) Start(c *fiber.Ctx) error {
	var req model.SyncStartRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	resp, err := h.service.StartSync(req)
	if err != nil {
		return response.ValidationError(c, err.Error(), nil)
	}
	return response.Accepted(c, resp)
}

// Run handles GET /api/sync/runs/:runId
func (h *SyncHandler) Run(c *fiber.Ctx) error {
	snap, err := h.service.Run(c.Params("runId"))
	if err != nil {
		return response.NotFound(c, err.Error())
	}
	return response.OK(c, snap)
}

// Stop handles POST /api/sync/runs/:runId/stop
func (h *SyncHandler) Stop(c *fiber.Ctx) error {
	if err := h.service.StopRun(c.Params("runId")); err != nil {
		return response.NotFound(c, err.Error())
	}
	return response.OK(c, fiber.Map{"success": true})
}

// CheckMissing handles POST /api/sync/check-missing
func (h *SyncHandler) CheckMissing(c *fiber.Ctx) error {
	var req model.MissingVideoCheckRequest
	if err := c.BodyParser(&req); err != nil {
		return response.ValidationError(c, "Invalid request body", nil)
	}
	if err := h.validator.Struct(&req); err != nil {
		return response.ValidationError(c, "Validation failed", formatValidationErrors(err))
	}

	report, err := h.service.CheckMissingVideos(req)
	if err != nil {
		return response.ServiceError(c, err.Error())
	}
	return response.OK(c, report)
}
