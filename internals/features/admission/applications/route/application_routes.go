package route

import (
	"github.com/gofiber/fiber/v2"

	"universitypoland_backend/internals/features/admission/applications/controller"
)

// RegisterUserRoutes mounts the student-facing application endpoints.
func RegisterUserRoutes(r fiber.Router, ctrl *controller.ApplicationController) {
	apps := r.Group("/applications")
	apps.Post("/", ctrl.CreateApplication)
	apps.Get("/", ctrl.ListMyApplications)
	apps.Get("/:id", ctrl.GetApplication)
	apps.Post("/:id/submit", ctrl.SubmitApplication)
	apps.Delete("/:id", ctrl.DeleteApplication)
}

// RegisterAdminRoutes mounts the admin status transition endpoint.
func RegisterAdminRoutes(r fiber.Router, ctrl *controller.ApplicationAdminController) {
	apps := r.Group("/applications")
	apps.Post("/:id/status", ctrl.TransitionStatus)
}
