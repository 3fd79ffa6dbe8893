package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	helper "universitypoland_backend/internals/helpers"

	appsvc "universitypoland_backend/internals/features/admission/applications/service"
	"universitypoland_backend/internals/features/finance/payments/dto"
	"universitypoland_backend/internals/features/finance/payments/model"
	"universitypoland_backend/internals/features/finance/payments/service"
	settings "universitypoland_backend/internals/features/settings/service"
)

type PaymentController struct {
	Ledger *service.Ledger
	Store  service.Store
	// ServerKey verifies webhook signatures; injected so tests can sign
	// their own payloads.
	ServerKey string
}

func NewPaymentController(ledger *service.Ledger, store service.Store, serverKey string) *PaymentController {
	return &PaymentController{Ledger: ledger, Store: store, ServerKey: serverKey}
}

/* =======================================================================
   Intent creation
======================================================================= */

// CreateFeeIntent opens a payment intent for one of the two admission fees.
// POST /api/applications/:id/fees/:type
func (h *PaymentController) CreateFeeIntent(c *fiber.Ctx) error {
	userID, err := helper.GetUserID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}
	appID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "invalid application id")
	}

	feeType, ok := parseFeeType(c.Params("type"))
	if !ok {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "unknown fee type")
	}

	res, err := h.Ledger.CreateIntent(c.UserContext(), userID, appID, feeType)
	if err != nil {
		return mapPaymentError(c, err)
	}

	return helper.SuccessWithCode(c, fiber.StatusCreated, "payment intent created", dto.IntentResponse{
		PaymentID:        res.Payment.PaymentID,
		ProviderIntentID: res.Payment.PaymentProviderIntentID,
		ClientSecret:     res.ClientSecret,
		RedirectURL:      res.RedirectURL,
		FeeType:          string(res.Payment.PaymentFeeType),
		Amount:           res.Payment.PaymentAmount,
		Currency:         res.Payment.PaymentCurrency,
		Status:           string(res.Payment.PaymentStatus),
	})
}

/* =======================================================================
   Synchronous confirmation
======================================================================= */

// ConfirmPayment re-checks the gateway and settles the payment. Safe to
// call repeatedly; a settled payment just echoes its current state.
// POST /api/payments/confirm
func (h *PaymentController) ConfirmPayment(c *fiber.Ctx) error {
	userID, err := helper.GetUserID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	var req dto.ConfirmPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return helper.Error(c, fiber.StatusUnprocessableEntity, "invalid json: "+err.Error())
	}
	if err := helper.ValidateStruct(&req); err != nil {
		return helper.ValidationError(c, err)
	}

	res, err := h.Ledger.Confirm(c.UserContext(), userID, req.ProviderIntentID)
	if err != nil {
		return mapPaymentError(c, err)
	}

	return helper.Success(c, "payment state", dto.PaymentFromModel(res.Payment))
}

// ListMyPayments returns the caller's payment history, newest first.
// GET /api/payments
func (h *PaymentController) ListMyPayments(c *fiber.Ctx) error {
	userID, err := helper.GetUserID(c)
	if err != nil {
		return helper.FromFiberError(c, err)
	}

	payments, err := h.Ledger.ListByUser(c.UserContext(), userID)
	if err != nil {
		return helper.Error(c, fiber.StatusInternalServerError, err.Error())
	}
	return helper.Success(c, "payments", dto.PaymentsFromModels(payments))
}

/* =======================================================================
   Webhook
======================================================================= */

type gatewayNotif struct {
	TransactionTime   string `json:"transaction_time"`
	TransactionStatus string `json:"transaction_status"` // capture, settlement, pending, deny, cancel, expire, refund, partial_refund, failure
	StatusCode        string `json:"status_code"`
	SignatureKey      string `json:"signature_key"`
	OrderID           string `json:"order_id"`
	GrossAmount       string `json:"gross_amount"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status"` // accept / challenge / deny
	TransactionID     string `json:"transaction_id"`
	SettlementTime    string `json:"settlement_time"`
	// other fields are safe to ignore
}

// GatewayWebhook ingests asynchronous notifications from the provider.
// Everything except a bad signature or malformed body answers 200, so the
// gateway stops retrying deliveries we have already absorbed.
// POST /webhooks/payment-provider
func (h *PaymentController) GatewayWebhook(c *fiber.Ctx) error {
	var notif gatewayNotif
	if err := c.BodyParser(&notif); err != nil {
		return helper.Error(c, fiber.StatusBadRequest, "invalid payload: "+err.Error())
	}
	if notif.OrderID == "" {
		return helper.Error(c, fiber.StatusBadRequest, "order_id is required")
	}

	if !service.VerifySignature(notif.OrderID, notif.StatusCode, notif.GrossAmount, h.ServerKey, notif.SignatureKey) {
		return helper.Error(c, fiber.StatusBadRequest, "invalid signature")
	}

	ev := h.logGatewayEvent(c, notif)

	outcome := service.MapGatewayStatus(notif.TransactionStatus, notif.FraudStatus)
	var ref *string
	if notif.TransactionID != "" {
		ref = &notif.TransactionID
	}

	res, err := h.Ledger.ApplyOutcome(c.UserContext(), notif.OrderID, outcome, ref, map[string]interface{}{
		"source":         "webhook",
		"gateway_status": notif.TransactionStatus,
		"fraud_status":   notif.FraudStatus,
		"payment_type":   notif.PaymentType,
	})
	if err != nil {
		if errors.Is(err, service.ErrUnknownIntent) {
			// Keep the audit row, acknowledge, move on. Cross-environment
			// deliveries are common on shared gateway accounts.
			h.finishGatewayEvent(c, ev, "ignored", fmt.Sprintf("no payment for order_id=%s", notif.OrderID))
			return helper.Success(c, "ignored", fiber.Map{"order_id": notif.OrderID})
		}
		h.finishGatewayEvent(c, ev, "failed", err.Error())
		return helper.Error(c, fiber.StatusInternalServerError, "reconciliation failed: "+err.Error())
	}

	status := "processed"
	if !res.Applied {
		status = "ignored"
	}
	h.finishGatewayEvent(c, ev, status, "")

	return helper.Success(c, "ok", fiber.Map{
		"order_id":       notif.OrderID,
		"payment_status": res.Payment.PaymentStatus,
		"applied":        res.Applied,
	})
}

func (h *PaymentController) logGatewayEvent(c *fiber.Ctx, notif gatewayNotif) *model.PaymentGatewayEventModel {
	payload := datatypes.JSON(append([]byte(nil), c.Body()...))
	headers, _ := json.Marshal(c.GetReqHeaders())

	ev := &model.PaymentGatewayEventModel{
		GatewayEventProvider:   "midtrans",
		GatewayEventExternalID: &notif.OrderID,
		GatewayEventStatus:     "received",
		GatewayEventPayload:    payload,
		GatewayEventHeaders:    datatypes.JSON(headers),
		GatewayEventReceivedAt: time.Now(),
	}
	if notif.TransactionStatus != "" {
		t := notif.TransactionStatus
		ev.GatewayEventType = &t
	}
	if notif.SignatureKey != "" {
		sig := notif.SignatureKey
		ev.GatewayEventSignature = &sig
	}
	if err := h.Store.LogGatewayEvent(c.UserContext(), ev); err != nil {
		// The audit row is best effort; reconciliation still proceeds.
		return nil
	}
	return ev
}

func (h *PaymentController) finishGatewayEvent(c *fiber.Ctx, ev *model.PaymentGatewayEventModel, status, errMsg string) {
	if ev == nil {
		return
	}
	var ep *string
	if errMsg != "" {
		ep = &errMsg
	}
	_ = h.Store.FinishGatewayEvent(c.UserContext(), ev.GatewayEventID, status, ep)
}

/* =======================================================================
   Helpers
======================================================================= */

func parseFeeType(param string) (model.FeeType, bool) {
	switch param {
	case "application":
		return model.FeeTypeApplication, true
	case "commitment":
		return model.FeeTypeCommitment, true
	}
	return "", false
}

func mapPaymentError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, appsvc.ErrApplicationNotFound), errors.Is(err, service.ErrUnknownIntent):
		return helper.Error(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotOwner):
		return helper.Error(c, fiber.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrAlreadyPaid), errors.Is(err, service.ErrNotEligible):
		return helper.Error(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrProviderUnavailable):
		return helper.Error(c, fiber.StatusBadGateway, err.Error())
	case errors.Is(err, settings.ErrSettingNotFound):
		return helper.Error(c, fiber.StatusConflict, "fee amount is not configured")
	}
	return helper.Error(c, fiber.StatusInternalServerError, err.Error())
}
