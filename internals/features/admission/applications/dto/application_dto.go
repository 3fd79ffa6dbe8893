package dto

import (
	"time"

	"github.com/google/uuid"

	"universitypoland_backend/internals/features/admission/applications/model"
)

/* =======================================================================
   Requests
======================================================================= */

type CreateApplicationRequest struct {
	Program string `json:"program" validate:"required,max=160"`
}

type TransitionRequest struct {
	Status  string  `json:"status" validate:"required"`
	Comment *string `json:"comment" validate:"omitempty,max=2000"`
}

/* =======================================================================
   Responses
======================================================================= */

type ApplicationResponse struct {
	ApplicationID     uuid.UUID `json:"application_id"`
	ApplicationNumber string    `json:"application_number"`
	UserID            uuid.UUID `json:"user_id"`
	Program           string    `json:"program"`
	Status            string    `json:"status"`

	ApplicationFeePaid   bool       `json:"application_fee_paid"`
	ApplicationFeePaidAt *time.Time `json:"application_fee_paid_at,omitempty"`
	CommitmentFeePaid    bool       `json:"commitment_fee_paid"`
	CommitmentFeePaidAt  *time.Time `json:"commitment_fee_paid_at,omitempty"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func FromModel(m *model.ApplicationModel) *ApplicationResponse {
	return &ApplicationResponse{
		ApplicationID:        m.ApplicationID,
		ApplicationNumber:    m.ApplicationNumber,
		UserID:               m.ApplicationUserID,
		Program:              m.ApplicationProgram,
		Status:               string(m.ApplicationStatus),
		ApplicationFeePaid:   m.ApplicationFeePaid,
		ApplicationFeePaidAt: m.ApplicationFeePaidAt,
		CommitmentFeePaid:    m.CommitmentFeePaid,
		CommitmentFeePaidAt:  m.CommitmentFeePaidAt,
		SubmittedAt:          m.ApplicationSubmittedAt,
		CreatedAt:            m.ApplicationCreatedAt,
		UpdatedAt:            m.ApplicationUpdatedAt,
	}
}

type TransitionResponse struct {
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Actor      string    `json:"actor"`
	Comment    *string   `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func FromTransitionModel(m *model.StatusTransitionModel) *TransitionResponse {
	return &TransitionResponse{
		FromStatus: string(m.TransitionFromStatus),
		ToStatus:   string(m.TransitionToStatus),
		Actor:      m.TransitionActor,
		Comment:    m.TransitionComment,
		CreatedAt:  m.TransitionCreatedAt,
	}
}

func FromTransitionModels(rows []model.StatusTransitionModel) []*TransitionResponse {
	out := make([]*TransitionResponse, 0, len(rows))
	for i := range rows {
		out = append(out, FromTransitionModel(&rows[i]))
	}
	return out
}
