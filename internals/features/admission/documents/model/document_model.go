package model

import (
	"time"

	"github.com/google/uuid"
)

/* ================================
   ENUM mirror (must match DB)
================================ */

type DocumentType string
type DocumentVerificationStatus string

const (
	DocumentTypePassport             DocumentType = "passport"
	DocumentTypeTranscript           DocumentType = "transcript"
	DocumentTypeDiploma              DocumentType = "diploma"
	DocumentTypeLanguageCertificate  DocumentType = "language_certificate"
	DocumentTypeCV                   DocumentType = "cv"
	DocumentTypeRecommendationLetter DocumentType = "recommendation_letter"
	DocumentTypeOther                DocumentType = "other"
)

const (
	DocumentVerificationPending  DocumentVerificationStatus = "pending"
	DocumentVerificationVerified DocumentVerificationStatus = "verified"
	DocumentVerificationRejected DocumentVerificationStatus = "rejected"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocumentTypePassport, DocumentTypeTranscript, DocumentTypeDiploma,
		DocumentTypeLanguageCertificate, DocumentTypeCV,
		DocumentTypeRecommendationLetter, DocumentTypeOther:
		return true
	}
	return false
}

// Terminal reports whether the verification status permits no further change.
// A rejected document is never revived; re-upload creates a new row.
func (s DocumentVerificationStatus) Terminal() bool {
	return s == DocumentVerificationVerified || s == DocumentVerificationRejected
}

/* ================================
   MODEL: documents
================================ */

type DocumentModel struct {
	DocumentID uuid.UUID `json:"document_id" gorm:"column:document_id;type:uuid;default:gen_random_uuid();primaryKey"`

	DocumentApplicationID uuid.UUID `json:"document_application_id" gorm:"column:document_application_id;type:uuid;not null;index"`

	DocumentType               DocumentType               `json:"document_type" gorm:"column:document_type;type:document_type;not null"`
	DocumentVerificationStatus DocumentVerificationStatus `json:"document_verification_status" gorm:"column:document_verification_status;type:document_verification_status;not null;default:'pending'"`

	// Blob key into the external object store; the binary itself never
	// touches this service's database.
	DocumentFileName string `json:"document_file_name" gorm:"column:document_file_name;type:text;not null"`
	DocumentFilePath string `json:"document_file_path" gorm:"column:document_file_path;type:text;not null"`

	DocumentReviewNote *string `json:"document_review_note" gorm:"column:document_review_note;type:text"`

	DocumentReviewedAt *time.Time `json:"document_reviewed_at" gorm:"column:document_reviewed_at;type:timestamptz"`
	DocumentCreatedAt  time.Time  `json:"document_created_at"  gorm:"column:document_created_at;type:timestamptz;not null;default:now()"`
	DocumentUpdatedAt  time.Time  `json:"document_updated_at"  gorm:"column:document_updated_at;type:timestamptz;not null;default:now()"`
	DocumentDeletedAt  *time.Time `json:"document_deleted_at"  gorm:"column:document_deleted_at;type:timestamptz"`
}

func (DocumentModel) TableName() string { return "documents" }
