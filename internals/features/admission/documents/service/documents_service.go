package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	appmodel "universitypoland_backend/internals/features/admission/applications/model"
	"universitypoland_backend/internals/features/admission/documents/model"
)

var (
	ErrInvalidDocumentType   = errors.New("unknown document type")
	ErrApplicationNotMutable = errors.New("documents can only change while the application is a draft")
	ErrNotOwner              = errors.New("application belongs to another user")
	ErrAlreadyReviewed       = errors.New("document already left the pending status")
	ErrInvalidVerdict        = errors.New("verdict must be verified or rejected")
)

// ApplicationSource gives the documents feature read access to the owning
// application without pulling in the whole lifecycle service.
type ApplicationSource interface {
	Get(ctx context.Context, id uuid.UUID) (*appmodel.ApplicationModel, error)
}

type Service struct {
	store Store
	apps  ApplicationSource
	blobs BlobStore
}

func NewService(store Store, apps ApplicationSource, blobs BlobStore) *Service {
	return &Service{store: store, apps: apps, blobs: blobs}
}

// Upload stores the binary under an opaque path and records the metadata
// row. Re-uploading a type with a rejected row simply adds a fresh row; the
// rejected one stays for the audit trail.
func (s *Service) Upload(ctx context.Context, userID, applicationID uuid.UUID, docType model.DocumentType, fileName string, content []byte) (*model.DocumentModel, error) {
	if !docType.Valid() {
		return nil, ErrInvalidDocumentType
	}

	app, err := s.apps.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ApplicationUserID != userID {
		return nil, ErrNotOwner
	}
	if app.ApplicationStatus != appmodel.StatusDraft {
		return nil, ErrApplicationNotMutable
	}

	docID := uuid.New()
	blobPath := path.Join("applications", applicationID.String(), fmt.Sprintf("%s-%s", docType, docID))
	if err := s.blobs.Save(ctx, blobPath, content); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &model.DocumentModel{
		DocumentID:                 docID,
		DocumentApplicationID:      applicationID,
		DocumentType:               docType,
		DocumentVerificationStatus: model.DocumentVerificationPending,
		DocumentFileName:           fileName,
		DocumentFilePath:           blobPath,
		DocumentCreatedAt:          now,
		DocumentUpdatedAt:          now,
	}
	if err := s.store.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) ListByApplication(ctx context.Context, userID, applicationID uuid.UUID) ([]model.DocumentModel, error) {
	app, err := s.apps.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ApplicationUserID != userID {
		return nil, ErrNotOwner
	}
	return s.store.ListByApplication(ctx, applicationID)
}

// Delete removes a pending document while the application is still a draft.
func (s *Service) Delete(ctx context.Context, userID, applicationID, documentID uuid.UUID) error {
	app, err := s.apps.Get(ctx, applicationID)
	if err != nil {
		return err
	}
	if app.ApplicationUserID != userID {
		return ErrNotOwner
	}
	if app.ApplicationStatus != appmodel.StatusDraft {
		return ErrApplicationNotMutable
	}

	doc, err := s.store.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.DocumentApplicationID != applicationID {
		return ErrDocumentNotFound
	}

	deleted, err := s.store.SoftDelete(ctx, documentID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrAlreadyReviewed
	}
	// the blob is best-effort cleanup; the metadata row is authoritative
	_ = s.blobs.Remove(ctx, doc.DocumentFilePath)
	return nil
}

// Review applies the admin verdict. Verification is one-way per row; a
// second review attempt fails instead of overwriting the first.
func (s *Service) Review(ctx context.Context, documentID uuid.UUID, verdict model.DocumentVerificationStatus, note *string) (*model.DocumentModel, error) {
	if verdict != model.DocumentVerificationVerified && verdict != model.DocumentVerificationRejected {
		return nil, ErrInvalidVerdict
	}
	if _, err := s.store.Get(ctx, documentID); err != nil {
		return nil, err
	}

	applied, err := s.store.SetVerification(ctx, documentID, verdict, note, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrAlreadyReviewed
	}
	return s.store.Get(ctx, documentID)
}
