package dto

import (
	"time"

	"universitypoland_backend/internals/features/finance/payments/model"

	"github.com/google/uuid"
)

/* ================================
   Requests
================================ */

type ConfirmPaymentRequest struct {
	ProviderIntentID string `json:"provider_intent_id" validate:"required"`
}

/* ================================
   Responses
================================ */

type IntentResponse struct {
	PaymentID        uuid.UUID `json:"payment_id"`
	ProviderIntentID string    `json:"provider_intent_id"`
	ClientSecret     string    `json:"client_secret"`
	RedirectURL      string    `json:"redirect_url,omitempty"`
	FeeType          string    `json:"fee_type"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	Status           string    `json:"status"`
}

type PaymentResponse struct {
	PaymentID        uuid.UUID  `json:"payment_id"`
	ApplicationID    uuid.UUID  `json:"application_id"`
	FeeType          string     `json:"fee_type"`
	Status           string     `json:"status"`
	Amount           int64      `json:"amount"`
	Currency         string     `json:"currency"`
	ProviderIntentID string     `json:"provider_intent_id"`
	GatewayReference *string    `json:"gateway_reference,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	FailedAt         *time.Time `json:"failed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func PaymentFromModel(m *model.PaymentModel) PaymentResponse {
	return PaymentResponse{
		PaymentID:        m.PaymentID,
		ApplicationID:    m.PaymentApplicationID,
		FeeType:          string(m.PaymentFeeType),
		Status:           string(m.PaymentStatus),
		Amount:           m.PaymentAmount,
		Currency:         m.PaymentCurrency,
		ProviderIntentID: m.PaymentProviderIntentID,
		GatewayReference: m.PaymentGatewayReference,
		PaidAt:           m.PaymentPaidAt,
		FailedAt:         m.PaymentFailedAt,
		CreatedAt:        m.PaymentCreatedAt,
	}
}

func PaymentsFromModels(ms []model.PaymentModel) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(ms))
	for i := range ms {
		out = append(out, PaymentFromModel(&ms[i]))
	}
	return out
}
