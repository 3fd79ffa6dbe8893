package routes

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"universitypoland_backend/internals/configs"
	"universitypoland_backend/internals/constants"
	"universitypoland_backend/internals/events"
	"universitypoland_backend/internals/middlewares/auth"

	appcontroller "universitypoland_backend/internals/features/admission/applications/controller"
	approute "universitypoland_backend/internals/features/admission/applications/route"
	appservice "universitypoland_backend/internals/features/admission/applications/service"

	doccontroller "universitypoland_backend/internals/features/admission/documents/controller"
	docroute "universitypoland_backend/internals/features/admission/documents/route"
	docservice "universitypoland_backend/internals/features/admission/documents/service"

	paycontroller "universitypoland_backend/internals/features/finance/payments/controller"
	payroute "universitypoland_backend/internals/features/finance/payments/route"
	payservice "universitypoland_backend/internals/features/finance/payments/service"

	setcontroller "universitypoland_backend/internals/features/settings/controller"
	setservice "universitypoland_backend/internals/features/settings/service"
)

// SetupRoutes wires every feature onto the Fiber app. Shared plumbing
// (stores, outbox, gateway client) is constructed here once.
func SetupRoutes(app *fiber.App, db *gorm.DB, outbox *events.Outbox) {
	// ===================== SHARED PLUMBING =====================
	settingsService := setservice.NewService(setservice.NewGormStore(db))

	admissionStore := appservice.NewGormStore(db)
	documentStore := docservice.NewGormStore(db)

	admissionService := appservice.NewService(admissionStore, documentStore, outbox)
	documentService := docservice.NewService(documentStore, admissionStore, docservice.NewDiskBlobStore("storage/documents"))

	provider := payservice.NewMidtransProvider(configs.MidtransServerKey, configs.MidtransProduction)
	paymentStore := payservice.NewGormStore(db)
	ledger := payservice.NewLedger(paymentStore, admissionStore, provider, settingsService, outbox)

	applicationCtrl := appcontroller.NewApplicationController(admissionService)
	adminApplicationCtrl := appcontroller.NewApplicationAdminController(admissionService)
	documentCtrl := doccontroller.NewDocumentController(documentService)
	paymentCtrl := paycontroller.NewPaymentController(ledger, paymentStore, configs.MidtransServerKey)
	settingsCtrl := setcontroller.NewSettingsController(settingsService)

	// ===================== PUBLIC =====================
	log.Println("[INFO] Setting up webhook routes...")
	payroute.RegisterWebhookRoutes(app, paymentCtrl)

	// ===================== STUDENT API =====================
	log.Println("[INFO] Setting up student API group...")
	api := app.Group("/api", auth.AuthMiddleware())

	approute.RegisterUserRoutes(api, applicationCtrl)
	docroute.RegisterUserRoutes(api, documentCtrl)
	payroute.RegisterUserRoutes(api, paymentCtrl)

	// ===================== ADMIN =====================
	log.Println("[INFO] Setting up admin group...")
	admin := app.Group("/admin", auth.AuthMiddleware(), auth.OnlyRoles(constants.RoleAdmin))

	approute.RegisterAdminRoutes(admin, adminApplicationCtrl)
	docroute.RegisterAdminRoutes(admin, documentCtrl)
	admin.Put("/settings/:key", settingsCtrl.PutSetting)
	admin.Get("/settings/:key", settingsCtrl.GetSetting)
}
