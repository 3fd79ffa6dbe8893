package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	helper "universitypoland_backend/internals/helpers"

	"universitypoland_backend/internals/features/admission/applications/dto"
	"universitypoland_backend/internals/features/admission/applications/model"
	"universitypoland_backend/internals/features/admission/applications/service"
)

type ApplicationAdminController struct {
	Service *service.Service
}

func NewApplicationAdminController(svc *service.Service) *ApplicationAdminController {
	return &ApplicationAdminController{Service: svc}
}

// TransitionStatus moves an application along the transition table. A target
// equal to the current status is recorded as a note.
// POST /admin/applications/:id/status
func (h *ApplicationAdminController) TransitionStatus(c *fiber.Ctx) error {
	adminID, err := helper.GetUserID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	appID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "invalid application id")
	}

	var req dto.TransitionRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "invalid json: "+err.Error())
	}
	if err := helper.ValidateStruct(&req); err != nil {
		return helper.ValidationError(c, err)
	}

	to := model.ApplicationStatus(req.Status)
	if !to.Valid() {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "unknown status: "+req.Status)
	}

	app, err := h.Service.Transition(c.UserContext(), appID, to, adminID.String(), req.Comment)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrApplicationNotFound):
			return helper.Error(c, fiber.StatusNotFound, "application not found")
		case errors.Is(err, service.ErrInvalidTransition):
			return helper.Error(c, fiber.StatusUnprocessableEntity, "invalid status transition")
		case errors.Is(err, service.ErrConcurrentChange):
			return helper.Error(c, fiber.StatusConflict, "application changed concurrently, retry")
		default:
			return helper.Error(c, fiber.StatusInternalServerError, err.Error())
		}
	}
	return helper.Success(c, "status updated", dto.FromModel(app))
}
