package route

import (
	"github.com/gofiber/fiber/v2"

	"universitypoland_backend/internals/features/finance/payments/controller"
)

// RegisterUserRoutes mounts the student-facing payment endpoints.
func RegisterUserRoutes(r fiber.Router, ctrl *controller.PaymentController) {
	r.Post("/applications/:id/fees/:type", ctrl.CreateFeeIntent)
	r.Post("/payments/confirm", ctrl.ConfirmPayment)
	r.Get("/payments", ctrl.ListMyPayments)
}

// RegisterWebhookRoutes mounts the unauthenticated gateway callback.
// Authenticity comes from the signature, not from a session.
func RegisterWebhookRoutes(r fiber.Router, ctrl *controller.PaymentController) {
	r.Post("/webhooks/payment-provider", ctrl.GatewayWebhook)
}
