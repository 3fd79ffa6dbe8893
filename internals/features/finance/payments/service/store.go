package service

import (
	"context"
	"errors"
	"time"

	"universitypoland_backend/internals/features/finance/payments/model"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrUnknownIntent = errors.New("unknown provider intent")

// TerminalChange is the single write shape for finishing a payment. The
// store applies it only while the row is still pending, so duplicate
// confirmations collapse into a no-op.
type TerminalChange struct {
	ProviderIntentID string
	Status           model.PaymentStatus
	GatewayReference *string
	Meta             datatypes.JSON
	Now              time.Time
}

type Store interface {
	Create(ctx context.Context, p *model.PaymentModel) error
	GetByIntentID(ctx context.Context, providerIntentID string) (*model.PaymentModel, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.PaymentModel, error)
	HasSucceeded(ctx context.Context, applicationID uuid.UUID, feeType model.FeeType) (bool, error)

	// MarkTerminal finishes a pending payment and, on success, flips the
	// matching fee flag on the application inside the same transaction.
	// Returns false without error when the row was no longer pending.
	MarkTerminal(ctx context.Context, ch TerminalChange) (bool, error)

	LogGatewayEvent(ctx context.Context, ev *model.PaymentGatewayEventModel) error
	FinishGatewayEvent(ctx context.Context, eventID uuid.UUID, status string, errMsg *string) error
}

/* ================================
   GORM implementation
================================ */

type gormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Create(ctx context.Context, p *model.PaymentModel) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *gormStore) GetByIntentID(ctx context.Context, providerIntentID string) (*model.PaymentModel, error) {
	var p model.PaymentModel
	err := s.db.WithContext(ctx).
		First(&p, "payment_provider_intent_id = ?", providerIntentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownIntent
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *gormStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.PaymentModel, error) {
	var out []model.PaymentModel
	err := s.db.WithContext(ctx).
		Where("payment_user_id = ?", userID).
		Order("payment_created_at DESC").
		Find(&out).Error
	return out, err
}

func (s *gormStore) HasSucceeded(ctx context.Context, applicationID uuid.UUID, feeType model.FeeType) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.PaymentModel{}).
		Where("payment_application_id = ? AND payment_fee_type = ? AND payment_status = ?",
			applicationID, feeType, model.PaymentStatusSucceeded).
		Count(&n).Error
	return n > 0, err
}

func (s *gormStore) MarkTerminal(ctx context.Context, ch TerminalChange) (bool, error) {
	applied := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"payment_status":     ch.Status,
			"payment_updated_at": ch.Now,
		}
		switch ch.Status {
		case model.PaymentStatusSucceeded:
			updates["payment_paid_at"] = ch.Now
		case model.PaymentStatusFailed:
			updates["payment_failed_at"] = ch.Now
		}
		if ch.GatewayReference != nil && *ch.GatewayReference != "" {
			updates["payment_gateway_reference"] = *ch.GatewayReference
		}
		if len(ch.Meta) > 0 {
			updates["payment_meta"] = ch.Meta
		}

		// Guard on pending: whoever loses the race sees zero rows.
		res := tx.Model(&model.PaymentModel{}).
			Where("payment_provider_intent_id = ? AND payment_status = ?",
				ch.ProviderIntentID, model.PaymentStatusPending).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true

		if ch.Status != model.PaymentStatusSucceeded {
			return nil
		}

		var p model.PaymentModel
		if err := tx.First(&p, "payment_provider_intent_id = ?", ch.ProviderIntentID).Error; err != nil {
			return err
		}

		switch p.PaymentFeeType {
		case model.FeeTypeApplication:
			return tx.Exec(`
				UPDATE applications
				   SET application_fee_paid = TRUE,
				       application_fee_paid_at = COALESCE(application_fee_paid_at, ?),
				       application_updated_at = NOW()
				 WHERE application_id = ?
			`, ch.Now, p.PaymentApplicationID).Error
		case model.FeeTypeCommitment:
			return tx.Exec(`
				UPDATE applications
				   SET commitment_fee_paid = TRUE,
				       commitment_fee_paid_at = COALESCE(commitment_fee_paid_at, ?),
				       application_updated_at = NOW()
				 WHERE application_id = ?
			`, ch.Now, p.PaymentApplicationID).Error
		}
		return nil
	})

	if err != nil {
		return false, err
	}
	return applied, nil
}

func (s *gormStore) LogGatewayEvent(ctx context.Context, ev *model.PaymentGatewayEventModel) error {
	return s.db.WithContext(ctx).Create(ev).Error
}

func (s *gormStore) FinishGatewayEvent(ctx context.Context, eventID uuid.UUID, status string, errMsg *string) error {
	now := time.Now()
	return s.db.WithContext(ctx).Model(&model.PaymentGatewayEventModel{}).
		Where("gateway_event_id = ?", eventID).
		Updates(map[string]interface{}{
			"gateway_event_status":       status,
			"gateway_event_error":        errMsg,
			"gateway_event_processed_at": now,
		}).Error
}
