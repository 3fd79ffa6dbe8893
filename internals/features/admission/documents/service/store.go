package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"universitypoland_backend/internals/features/admission/documents/model"
)

var ErrDocumentNotFound = errors.New("document not found")

// Store is the persistence boundary for document rows.
type Store interface {
	Create(ctx context.Context, doc *model.DocumentModel) error
	Get(ctx context.Context, id uuid.UUID) (*model.DocumentModel, error)
	ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]model.DocumentModel, error)

	// SoftDelete removes a pending row; reviewed rows are immutable.
	SoftDelete(ctx context.Context, id uuid.UUID) (bool, error)

	// SetVerification applies the one-way pending -> verified|rejected move.
	// Returns false when the row already left pending.
	SetVerification(ctx context.Context, id uuid.UUID, status model.DocumentVerificationStatus, note *string, reviewedAt time.Time) (bool, error)
}

type gormStore struct{ db *gorm.DB }

func NewGormStore(db *gorm.DB) Store { return &gormStore{db: db} }

func (s *gormStore) Create(ctx context.Context, doc *model.DocumentModel) error {
	return s.db.WithContext(ctx).Create(doc).Error
}

func (s *gormStore) Get(ctx context.Context, id uuid.UUID) (*model.DocumentModel, error) {
	var doc model.DocumentModel
	err := s.db.WithContext(ctx).
		First(&doc, "document_id = ? AND document_deleted_at IS NULL", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *gormStore) ListByApplication(ctx context.Context, applicationID uuid.UUID) ([]model.DocumentModel, error) {
	var docs []model.DocumentModel
	err := s.db.WithContext(ctx).
		Where("document_application_id = ? AND document_deleted_at IS NULL", applicationID).
		Order("document_created_at ASC").
		Find(&docs).Error
	return docs, err
}

func (s *gormStore) SoftDelete(ctx context.Context, id uuid.UUID) (bool, error) {
	now := time.Now().UTC()
	res := s.db.WithContext(ctx).
		Model(&model.DocumentModel{}).
		Where("document_id = ? AND document_deleted_at IS NULL AND document_verification_status = ?",
			id, model.DocumentVerificationPending).
		Updates(map[string]interface{}{
			"document_deleted_at": now,
			"document_updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) SetVerification(ctx context.Context, id uuid.UUID, status model.DocumentVerificationStatus, note *string, reviewedAt time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&model.DocumentModel{}).
		Where("document_id = ? AND document_deleted_at IS NULL AND document_verification_status = ?",
			id, model.DocumentVerificationPending).
		Updates(map[string]interface{}{
			"document_verification_status": status,
			"document_review_note":         note,
			"document_reviewed_at":         reviewedAt,
			"document_updated_at":          reviewedAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
