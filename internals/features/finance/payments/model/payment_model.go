package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

/* ================================
   ENUM mirror (must match DB)
================================ */

type FeeType string
type PaymentStatus string

const (
	FeeTypeApplication FeeType = "application_fee"
	FeeTypeCommitment  FeeType = "commitment_fee"
)

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusSucceeded PaymentStatus = "succeeded"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

func (t FeeType) Valid() bool {
	return t == FeeTypeApplication || t == FeeTypeCommitment
}

// Terminal payment statuses accept no further transition; a retried fee
// creates a fresh row with a fresh provider intent instead.
func (s PaymentStatus) Terminal() bool {
	return s == PaymentStatusSucceeded || s == PaymentStatusFailed || s == PaymentStatusRefunded
}

/* ================================
   MODEL: payments
================================ */

type PaymentModel struct {
	PaymentID uuid.UUID `json:"payment_id" gorm:"column:payment_id;type:uuid;default:gen_random_uuid();primaryKey"`

	PaymentApplicationID uuid.UUID `json:"payment_application_id" gorm:"column:payment_application_id;type:uuid;not null;index"`
	PaymentUserID        uuid.UUID `json:"payment_user_id"        gorm:"column:payment_user_id;type:uuid;not null;index"`

	PaymentFeeType FeeType       `json:"payment_fee_type" gorm:"column:payment_fee_type;type:payment_fee_type;not null"`
	PaymentStatus  PaymentStatus `json:"payment_status"   gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`

	// Amount in the minor currency unit, frozen at intent creation. Later
	// config changes never alter an in-flight intent.
	PaymentAmount   int64  `json:"payment_amount"   gorm:"column:payment_amount;type:bigint;not null;check:payment_amount>=0"`
	PaymentCurrency string `json:"payment_currency" gorm:"column:payment_currency;type:varchar(8);not null"`

	// External idempotency key; both confirmation paths correlate on it.
	PaymentProviderIntentID string  `json:"payment_provider_intent_id" gorm:"column:payment_provider_intent_id;type:text;not null;uniqueIndex"`
	PaymentGatewayReference *string `json:"payment_gateway_reference"  gorm:"column:payment_gateway_reference;type:text"`

	PaymentPaidAt   *time.Time `json:"payment_paid_at"   gorm:"column:payment_paid_at;type:timestamptz"`
	PaymentFailedAt *time.Time `json:"payment_failed_at" gorm:"column:payment_failed_at;type:timestamptz"`

	// Free-form diagnostics: gateway status, failure reason, source path.
	PaymentMeta datatypes.JSON `json:"payment_meta" gorm:"column:payment_meta;type:jsonb"`

	PaymentCreatedAt time.Time `json:"payment_created_at" gorm:"column:payment_created_at;type:timestamptz;not null;default:now()"`
	PaymentUpdatedAt time.Time `json:"payment_updated_at" gorm:"column:payment_updated_at;type:timestamptz;not null;default:now()"`
}

func (PaymentModel) TableName() string { return "payments" }

/* ================================
   MODEL: payment_gateway_events
================================ */

// PaymentGatewayEventModel is the webhook delivery audit log. Every
// delivery is recorded, including duplicates and events for unknown orders.
type PaymentGatewayEventModel struct {
	GatewayEventID uuid.UUID `json:"gateway_event_id" gorm:"column:gateway_event_id;type:uuid;default:gen_random_uuid();primaryKey"`

	GatewayEventProvider   string  `json:"gateway_event_provider"    gorm:"column:gateway_event_provider;type:varchar(32);not null"`
	GatewayEventExternalID *string `json:"gateway_event_external_id" gorm:"column:gateway_event_external_id;type:text;index"`
	GatewayEventType       *string `json:"gateway_event_type"        gorm:"column:gateway_event_type;type:text"`
	GatewayEventSignature  *string `json:"gateway_event_signature"   gorm:"column:gateway_event_signature;type:text"`

	GatewayEventPayload datatypes.JSON `json:"gateway_event_payload" gorm:"column:gateway_event_payload;type:jsonb"`
	GatewayEventHeaders datatypes.JSON `json:"gateway_event_headers" gorm:"column:gateway_event_headers;type:jsonb"`

	// received | processed | ignored | failed
	GatewayEventStatus string  `json:"gateway_event_status" gorm:"column:gateway_event_status;type:varchar(16);not null;default:'received'"`
	GatewayEventError  *string `json:"gateway_event_error"  gorm:"column:gateway_event_error;type:text"`

	GatewayEventReceivedAt  time.Time  `json:"gateway_event_received_at"  gorm:"column:gateway_event_received_at;type:timestamptz;not null;default:now()"`
	GatewayEventProcessedAt *time.Time `json:"gateway_event_processed_at" gorm:"column:gateway_event_processed_at;type:timestamptz"`
}

func (PaymentGatewayEventModel) TableName() string { return "payment_gateway_events" }
