package controller

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	helper "universitypoland_backend/internals/helpers"

	"universitypoland_backend/internals/features/settings/service"
)

type SettingsController struct {
	Service *service.Service
}

func NewSettingsController(svc *service.Service) *SettingsController {
	return &SettingsController{Service: svc}
}

type upsertSettingRequest struct {
	Value string `json:"value" validate:"required"`
}

// PutSetting writes a setting value and invalidates the cached entry.
// PUT /admin/settings/:key
func (h *SettingsController) PutSetting(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Params("key"))
	if key == "" {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "missing setting key")
	}

	var req upsertSettingRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "invalid json: "+err.Error())
	}
	if err := helper.ValidateStruct(&req); err != nil {
		return helper.ValidationError(c, err)
	}

	if err := h.Service.Set(c.UserContext(), key, req.Value); err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}
	return helper.Success(c, "setting updated", fiber.Map{"key": key, "value": req.Value})
}

// GetSetting reads a single setting through the cache.
// GET /admin/settings/:key
func (h *SettingsController) GetSetting(c *fiber.Ctx) error {
	key := strings.TrimSpace(c.Params("key"))
	if key == "" {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "missing setting key")
	}

	v, err := h.Service.Get(c.UserContext(), key)
	if errors.Is(err, service.ErrSettingNotFound) {
		return helper.Error(c, fiber.StatusNotFound, "setting not found")
	}
	if err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}
	return helper.Success(c, "setting", fiber.Map{"key": key, "value": v})
}
