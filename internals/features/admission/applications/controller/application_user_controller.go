package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	helper "universitypoland_backend/internals/helpers"

	"universitypoland_backend/internals/features/admission/applications/dto"
	"universitypoland_backend/internals/features/admission/applications/service"
)

type ApplicationController struct {
	Service *service.Service
}

func NewApplicationController(svc *service.Service) *ApplicationController {
	return &ApplicationController{Service: svc}
}

// CreateApplication opens a new draft for the authenticated student.
// POST /api/applications
func (h *ApplicationController) CreateApplication(c *fiber.Ctx) error {
	userID, err := helper.GetUserID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	var req dto.CreateApplicationRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "invalid json: "+err.Error())
	}
	if err := helper.ValidateStruct(&req); err != nil {
		return helper.ValidationError(c, err)
	}

	app, err := h.Service.Create(c.UserContext(), userID, req.Program)
	if err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}
	return helper.SuccessWithCode(c, fiber.StatusCreated, "application created", dto.FromModel(app))
}

// ListMyApplications returns the caller's applications.
// GET /api/applications
func (h *ApplicationController) ListMyApplications(c *fiber.Ctx) error {
	userID, err := helper.GetUserID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	apps, err := h.Service.ListOwned(c.UserContext(), userID)
	if err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}

	out := make([]*dto.ApplicationResponse, 0, len(apps))
	for i := range apps {
		out = append(out, dto.FromModel(&apps[i]))
	}
	return helper.Success(c, "applications", out)
}

// GetApplication returns one owned application with its transition history.
// GET /api/applications/:id
func (h *ApplicationController) GetApplication(c *fiber.Ctx) error {
	userID, err := helper.GetUserID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	appID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "invalid application id")
	}

	app, err := h.Service.GetOwned(c.UserContext(), userID, appID)
	if err != nil {
		return mapLifecycleError(c, err)
	}
	history, err := h.Service.History(c.UserContext(), appID)
	if err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}

	return helper.Success(c, "application", fiber.Map{
		"application": dto.FromModel(app),
		"history":     dto.FromTransitionModels(history),
	})
}

// SubmitApplication runs the student-initiated draft -> submitted transition.
// On failure the response enumerates every unmet precondition.
// POST /api/applications/:id/submit
func (h *ApplicationController) SubmitApplication(c *fiber.Ctx) error {
	userID, err := helper.GetUserID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	appID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "invalid application id")
	}

	app, err := h.Service.Submit(c.UserContext(), userID, appID)
	if err != nil {
		var notReady *service.SubmissionNotReadyError
		if errors.As(err, &notReady) {
			return helper.ErrorWithDetails(c, fiber.StatusConflict, "submission not ready", fiber.Map{
				"missing_documents":    notReady.MissingDocuments,
				"application_fee_paid": !notReady.FeeUnpaid,
			})
		}
		return mapLifecycleError(c, err)
	}
	return helper.Success(c, "application submitted", dto.FromModel(app))
}

// DeleteApplication removes a draft.
// DELETE /api/applications/:id
func (h *ApplicationController) DeleteApplication(c *fiber.Ctx) error {
	userID, err := helper.GetUserID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	appID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "invalid application id")
	}

	if err := h.Service.Delete(c.UserContext(), userID, appID); err != nil {
		return mapLifecycleError(c, err)
	}
	return helper.Success(c, "application deleted", fiber.Map{"application_id": appID})
}

// mapLifecycleError translates lifecycle service errors into the error
// taxonomy: not-found, authorization, and retryable state conflicts.
func mapLifecycleError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, service.ErrApplicationNotFound):
		return helper.Error(c, fiber.StatusNotFound, "application not found")
	case errors.Is(err, service.ErrNotOwner):
		return helper.Error(c, fiber.StatusForbidden, "not your application")
	case errors.Is(err, service.ErrInvalidTransition):
		return helper.Error(c, fiber.StatusConflict, "invalid status transition")
	case errors.Is(err, service.ErrDeleteNotAllowed):
		return helper.Error(c, fiber.StatusConflict, "only draft applications can be deleted")
	case errors.Is(err, service.ErrConcurrentChange):
		return helper.Error(c, fiber.StatusConflict, "application changed concurrently, retry")
	default:
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}
}
