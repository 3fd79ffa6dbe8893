package route

import (
	"github.com/gofiber/fiber/v2"

	"universitypoland_backend/internals/features/admission/documents/controller"
)

// RegisterUserRoutes mounts the student document endpoints under the
// application resource.
func RegisterUserRoutes(r fiber.Router, ctrl *controller.DocumentController) {
	docs := r.Group("/applications/:id/documents")
	docs.Post("/", ctrl.UploadDocument)
	docs.Get("/", ctrl.ListDocuments)
	docs.Delete("/:docID", ctrl.DeleteDocument)
}

// RegisterAdminRoutes mounts the admin review endpoint.
func RegisterAdminRoutes(r fiber.Router, ctrl *controller.DocumentController) {
	r.Post("/applications/:id/documents/:docID/review", ctrl.ReviewDocument)
}
