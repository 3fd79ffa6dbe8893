package dto

import (
	"time"

	"github.com/google/uuid"

	"universitypoland_backend/internals/features/admission/documents/model"
)

type ReviewDocumentRequest struct {
	Verdict string  `json:"verdict" validate:"required,oneof=verified rejected"`
	Note    *string `json:"note" validate:"omitempty,max=2000"`
}

type DocumentResponse struct {
	DocumentID    uuid.UUID  `json:"document_id"`
	ApplicationID uuid.UUID  `json:"application_id"`
	Type          string     `json:"type"`
	Verification  string     `json:"verification_status"`
	FileName      string     `json:"file_name"`
	ReviewNote    *string    `json:"review_note,omitempty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func FromModel(m *model.DocumentModel) *DocumentResponse {
	return &DocumentResponse{
		DocumentID:    m.DocumentID,
		ApplicationID: m.DocumentApplicationID,
		Type:          string(m.DocumentType),
		Verification:  string(m.DocumentVerificationStatus),
		FileName:      m.DocumentFileName,
		ReviewNote:    m.DocumentReviewNote,
		ReviewedAt:    m.DocumentReviewedAt,
		CreatedAt:     m.DocumentCreatedAt,
	}
}

func FromModels(rows []model.DocumentModel) []*DocumentResponse {
	out := make([]*DocumentResponse, 0, len(rows))
	for i := range rows {
		out = append(out, FromModel(&rows[i]))
	}
	return out
}
