package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"universitypoland_backend/internals/features/admission/applications/model"
	docmodel "universitypoland_backend/internals/features/admission/documents/model"
)

var ErrApplicationNotFound = errors.New("application not found")

// StatusChange describes one guarded status write. The store applies it only
// if the row still holds From, together with the audit append, in a single
// transaction; Applied == false means another writer got there first.
type StatusChange struct {
	ApplicationID uuid.UUID
	From          model.ApplicationStatus
	To            model.ApplicationStatus
	Actor         string
	Comment       *string
	SubmittedAt   *time.Time

	// Extra guards for the draft -> submitted edge, re-checked inside the
	// same transaction as the write.
	RequireFeePaid        bool
	RequireDocumentsReady bool
}

// Store is the persistence boundary of the lifecycle engine.
type Store interface {
	Create(ctx context.Context, app *model.ApplicationModel) error
	Get(ctx context.Context, id uuid.UUID) (*model.ApplicationModel, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.ApplicationModel, error)
	ListTransitions(ctx context.Context, applicationID uuid.UUID) ([]model.StatusTransitionModel, error)

	// ApplyTransition performs the conditional status write plus the
	// transition-record insert atomically.
	ApplyTransition(ctx context.Context, change StatusChange) (bool, error)

	// AppendNote records a from==to transition without touching the status.
	AppendNote(ctx context.Context, applicationID uuid.UUID, status model.ApplicationStatus, actor string, comment *string) error

	// DeleteDraft removes the application only while it still is a draft.
	DeleteDraft(ctx context.Context, applicationID uuid.UUID) (bool, error)
}

// DocumentSource lists the live document rows of an application for the
// readiness gate.
type DocumentSource interface {
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]docmodel.DocumentModel, error)
}

/* =======================================================================
   GORM store
======================================================================= */

type gormStore struct{ db *gorm.DB }

func NewGormStore(db *gorm.DB) Store { return &gormStore{db: db} }

func (s *gormStore) Create(ctx context.Context, app *model.ApplicationModel) error {
	return s.db.WithContext(ctx).Create(app).Error
}

func (s *gormStore) Get(ctx context.Context, id uuid.UUID) (*model.ApplicationModel, error) {
	var app model.ApplicationModel
	err := s.db.WithContext(ctx).First(&app, "application_id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func (s *gormStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.ApplicationModel, error) {
	var apps []model.ApplicationModel
	err := s.db.WithContext(ctx).
		Where("application_user_id = ?", userID).
		Order("application_created_at DESC").
		Find(&apps).Error
	return apps, err
}

func (s *gormStore) ListTransitions(ctx context.Context, applicationID uuid.UUID) ([]model.StatusTransitionModel, error) {
	var rows []model.StatusTransitionModel
	err := s.db.WithContext(ctx).
		Where("transition_application_id = ?", applicationID).
		Order("transition_created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (s *gormStore) ApplyTransition(ctx context.Context, ch StatusChange) (bool, error) {
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()

		q := tx.Model(&model.ApplicationModel{}).
			Where("application_id = ? AND application_status = ?", ch.ApplicationID, ch.From)
		if ch.RequireFeePaid {
			q = q.Where("application_fee_paid = TRUE")
		}
		if ch.RequireDocumentsReady {
			for _, t := range RequiredDocumentTypes {
				q = q.Where(`EXISTS (
					SELECT 1 FROM documents d
					 WHERE d.document_application_id = applications.application_id
					   AND d.document_type = ?
					   AND d.document_verification_status <> 'rejected'
					   AND d.document_deleted_at IS NULL
				)`, t)
			}
		}

		updates := map[string]interface{}{
			"application_status":     ch.To,
			"application_updated_at": now,
		}
		if ch.SubmittedAt != nil {
			updates["application_submitted_at"] = *ch.SubmittedAt
		}

		res := q.Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}

		rec := model.StatusTransitionModel{
			TransitionApplicationID: ch.ApplicationID,
			TransitionFromStatus:    ch.From,
			TransitionToStatus:      ch.To,
			TransitionActor:         ch.Actor,
			TransitionComment:       ch.Comment,
			TransitionCreatedAt:     now,
		}
		if err := tx.Create(&rec).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

func (s *gormStore) AppendNote(ctx context.Context, applicationID uuid.UUID, status model.ApplicationStatus, actor string, comment *string) error {
	rec := model.StatusTransitionModel{
		TransitionApplicationID: applicationID,
		TransitionFromStatus:    status,
		TransitionToStatus:      status,
		TransitionActor:         actor,
		TransitionComment:       comment,
		TransitionCreatedAt:     time.Now().UTC(),
	}
	return s.db.WithContext(ctx).Create(&rec).Error
}

func (s *gormStore) DeleteDraft(ctx context.Context, applicationID uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).
		Where("application_id = ? AND application_status = ?", applicationID, model.StatusDraft).
		Delete(&model.ApplicationModel{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
