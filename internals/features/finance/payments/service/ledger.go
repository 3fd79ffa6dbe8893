package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"universitypoland_backend/internals/events"
	appmodel "universitypoland_backend/internals/features/admission/applications/model"
	"universitypoland_backend/internals/features/finance/payments/model"
	settings "universitypoland_backend/internals/features/settings/service"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var (
	ErrAlreadyPaid = errors.New("fee already paid for this application")
	ErrNotEligible = errors.New("application is not eligible for this fee")
	ErrNotOwner    = errors.New("payment does not belong to this user")
)

// ApplicationSource is the read-side the ledger needs from admissions.
type ApplicationSource interface {
	Get(ctx context.Context, id uuid.UUID) (*appmodel.ApplicationModel, error)
}

// FeeConfig resolves the configured charge for each fee type. Backed by
// the settings service in production.
type FeeConfig interface {
	Amount(ctx context.Context, key string) (int64, error)
	Currency(ctx context.Context) (string, error)
}

type Ledger struct {
	store    Store
	apps     ApplicationSource
	provider Provider
	fees     FeeConfig
	outbox   *events.Outbox
}

func NewLedger(store Store, apps ApplicationSource, provider Provider, fees FeeConfig, outbox *events.Outbox) *Ledger {
	return &Ledger{store: store, apps: apps, provider: provider, fees: fees, outbox: outbox}
}

/* =========================================================
   Intent creation
========================================================= */

type IntentResult struct {
	Payment      *model.PaymentModel
	ClientSecret string
	RedirectURL  string
}

// CreateIntent freezes the configured amount into a pending payment row
// and opens a transaction at the gateway. The commitment fee is only
// available once the application has been accepted.
func (l *Ledger) CreateIntent(ctx context.Context, userID, applicationID uuid.UUID, feeType model.FeeType) (*IntentResult, error) {
	if !feeType.Valid() {
		return nil, ErrNotEligible
	}

	app, err := l.apps.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ApplicationUserID != userID {
		return nil, ErrNotOwner
	}

	if feeType == model.FeeTypeCommitment && app.ApplicationStatus != appmodel.StatusAccepted {
		return nil, ErrNotEligible
	}

	paid, err := l.store.HasSucceeded(ctx, applicationID, feeType)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, ErrAlreadyPaid
	}

	amount, err := l.fees.Amount(ctx, amountKey(feeType))
	if err != nil {
		return nil, err
	}
	currency, err := l.fees.Currency(ctx)
	if err != nil {
		return nil, err
	}

	orderID := GenOrderID(orderPrefix(feeType))
	intent, err := l.provider.CreateIntent(ctx, IntentRequest{
		OrderID:     orderID,
		Amount:      amount,
		Currency:    currency,
		Description: feeDescription(feeType, app.ApplicationNumber),
	})
	if err != nil {
		return nil, err
	}

	p := &model.PaymentModel{
		PaymentApplicationID:    applicationID,
		PaymentUserID:           userID,
		PaymentFeeType:          feeType,
		PaymentStatus:           model.PaymentStatusPending,
		PaymentAmount:           amount,
		PaymentCurrency:         currency,
		PaymentProviderIntentID: intent.ProviderIntentID,
	}
	if err := l.store.Create(ctx, p); err != nil {
		return nil, err
	}

	return &IntentResult{
		Payment:      p,
		ClientSecret: intent.ClientSecret,
		RedirectURL:  intent.RedirectURL,
	}, nil
}

/* =========================================================
   Reconciliation
========================================================= */

type OutcomeResult struct {
	Payment *model.PaymentModel
	// Applied is true only for the call that actually moved the row out
	// of pending. Duplicates and non-terminal outcomes report false.
	Applied bool
}

// ApplyOutcome is the single choke point both confirmation paths feed
// into. It is safe to call any number of times with the same intent.
func (l *Ledger) ApplyOutcome(ctx context.Context, providerIntentID string, outcome Outcome, gatewayRef *string, meta map[string]interface{}) (*OutcomeResult, error) {
	p, err := l.store.GetByIntentID(ctx, providerIntentID)
	if err != nil {
		return nil, err
	}

	if p.PaymentStatus.Terminal() || outcome == OutcomePending {
		return &OutcomeResult{Payment: p, Applied: false}, nil
	}

	status := model.PaymentStatusFailed
	if outcome == OutcomeSucceeded {
		status = model.PaymentStatusSucceeded
	}

	applied, err := l.store.MarkTerminal(ctx, TerminalChange{
		ProviderIntentID: providerIntentID,
		Status:           status,
		GatewayReference: gatewayRef,
		Meta:             encodeMeta(meta),
		Now:              time.Now(),
	})
	if err != nil {
		return nil, err
	}

	p, err = l.store.GetByIntentID(ctx, providerIntentID)
	if err != nil {
		return nil, err
	}
	if !applied {
		return &OutcomeResult{Payment: p, Applied: false}, nil
	}

	l.publishOutcome(p)
	return &OutcomeResult{Payment: p, Applied: true}, nil
}

// Confirm is the synchronous path: the client claims completion and the
// ledger re-fetches the authoritative status from the gateway before
// moving anything.
func (l *Ledger) Confirm(ctx context.Context, userID uuid.UUID, providerIntentID string) (*OutcomeResult, error) {
	p, err := l.store.GetByIntentID(ctx, providerIntentID)
	if err != nil {
		return nil, err
	}
	if p.PaymentUserID != userID {
		return nil, ErrNotOwner
	}
	if p.PaymentStatus.Terminal() {
		return &OutcomeResult{Payment: p, Applied: false}, nil
	}

	st, err := l.provider.FetchStatus(ctx, providerIntentID)
	if err != nil {
		return nil, err
	}

	var ref *string
	if st.GatewayReference != "" {
		ref = &st.GatewayReference
	}
	return l.ApplyOutcome(ctx, providerIntentID, st.Outcome, ref, map[string]interface{}{
		"source":         "confirm",
		"gateway_status": st.GatewayStatus,
		"fraud_status":   st.FraudStatus,
	})
}

func (l *Ledger) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.PaymentModel, error) {
	return l.store.ListByUser(ctx, userID)
}

/* =========================================================
   Internals
========================================================= */

func (l *Ledger) publishOutcome(p *model.PaymentModel) {
	if l.outbox == nil {
		return
	}
	name := events.EventPaymentFailed
	if p.PaymentStatus == model.PaymentStatusSucceeded {
		name = events.EventPaymentSucceeded
	}
	l.outbox.Publish(events.Event{
		Name:          name,
		ApplicationID: p.PaymentApplicationID,
		UserID:        p.PaymentUserID,
		Payload: map[string]interface{}{
			"payment_id":         p.PaymentID.String(),
			"fee_type":           string(p.PaymentFeeType),
			"amount":             p.PaymentAmount,
			"currency":           p.PaymentCurrency,
			"provider_intent_id": p.PaymentProviderIntentID,
		},
		OccurredAt: time.Now(),
	})
}

func amountKey(t model.FeeType) string {
	if t == model.FeeTypeCommitment {
		return settings.KeyCommitmentFeeAmount
	}
	return settings.KeyApplicationFeeAmount
}

func orderPrefix(t model.FeeType) string {
	if t == model.FeeTypeCommitment {
		return "UP-COM"
	}
	return "UP-APP"
}

func feeDescription(t model.FeeType, applicationNumber string) string {
	if t == model.FeeTypeCommitment {
		return "Commitment fee " + applicationNumber
	}
	return "Application fee " + applicationNumber
}

func encodeMeta(meta map[string]interface{}) datatypes.JSON {
	if len(meta) == 0 {
		return nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}
