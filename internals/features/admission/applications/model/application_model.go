package model

import (
	"time"

	"github.com/google/uuid"
)

/* ================================
   ENUM mirror (must match DB)
================================ */

type ApplicationStatus string

const (
	StatusDraft       ApplicationStatus = "draft"
	StatusSubmitted   ApplicationStatus = "submitted"
	StatusUnderReview ApplicationStatus = "under_review"
	StatusAccepted    ApplicationStatus = "accepted"
	StatusRejected    ApplicationStatus = "rejected"
	StatusWaitlisted  ApplicationStatus = "waitlisted"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusUnderReview,
		StatusAccepted, StatusRejected, StatusWaitlisted:
		return true
	}
	return false
}

// Terminal statuses accept no further transitions, only notes.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusAccepted || s == StatusRejected || s == StatusWaitlisted
}

/* ================================
   MODEL: applications
================================ */

type ApplicationModel struct {
	ApplicationID uuid.UUID `json:"application_id" gorm:"column:application_id;type:uuid;default:gen_random_uuid();primaryKey"`

	// Generated once at creation, immutable afterwards.
	ApplicationNumber string `json:"application_number" gorm:"column:application_number;type:varchar(24);not null;uniqueIndex"`

	ApplicationUserID uuid.UUID `json:"application_user_id" gorm:"column:application_user_id;type:uuid;not null;index"`

	ApplicationProgram string `json:"application_program" gorm:"column:application_program;type:varchar(160);not null"`

	ApplicationStatus ApplicationStatus `json:"application_status" gorm:"column:application_status;type:application_status;not null;default:'draft'"`

	// Cached fee flags, kept consistent with the latest succeeded payment of
	// each type inside the reconciliation transaction. Never set by clients.
	ApplicationFeePaid   bool       `json:"application_fee_paid"    gorm:"column:application_fee_paid;not null;default:false"`
	ApplicationFeePaidAt *time.Time `json:"application_fee_paid_at" gorm:"column:application_fee_paid_at;type:timestamptz"`
	CommitmentFeePaid    bool       `json:"commitment_fee_paid"     gorm:"column:commitment_fee_paid;not null;default:false"`
	CommitmentFeePaidAt  *time.Time `json:"commitment_fee_paid_at"  gorm:"column:commitment_fee_paid_at;type:timestamptz"`

	ApplicationSubmittedAt *time.Time `json:"application_submitted_at" gorm:"column:application_submitted_at;type:timestamptz"`

	ApplicationCreatedAt time.Time `json:"application_created_at" gorm:"column:application_created_at;type:timestamptz;not null;default:now()"`
	ApplicationUpdatedAt time.Time `json:"application_updated_at" gorm:"column:application_updated_at;type:timestamptz;not null;default:now()"`
}

func (ApplicationModel) TableName() string { return "applications" }

/* ================================
   MODEL: application_status_transitions (append-only)
================================ */

// StatusTransitionModel is the audit trail: one row per transition or note,
// never edited and never removed. A note carries from == to.
type StatusTransitionModel struct {
	TransitionID uuid.UUID `json:"transition_id" gorm:"column:transition_id;type:uuid;default:gen_random_uuid();primaryKey"`

	TransitionApplicationID uuid.UUID `json:"transition_application_id" gorm:"column:transition_application_id;type:uuid;not null;index"`

	TransitionFromStatus ApplicationStatus `json:"transition_from_status" gorm:"column:transition_from_status;type:application_status;not null"`
	TransitionToStatus   ApplicationStatus `json:"transition_to_status"   gorm:"column:transition_to_status;type:application_status;not null"`

	// User id, or "system" for machine-initiated transitions.
	TransitionActor   string  `json:"transition_actor"   gorm:"column:transition_actor;type:varchar(64);not null"`
	TransitionComment *string `json:"transition_comment" gorm:"column:transition_comment;type:text"`

	TransitionCreatedAt time.Time `json:"transition_created_at" gorm:"column:transition_created_at;type:timestamptz;not null;default:now()"`
}

func (StatusTransitionModel) TableName() string { return "application_status_transitions" }
