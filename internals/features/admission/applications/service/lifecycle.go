package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"universitypoland_backend/internals/events"
	"universitypoland_backend/internals/features/admission/applications/model"
	docmodel "universitypoland_backend/internals/features/admission/documents/model"
)

const SystemActor = "system"

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrDeleteNotAllowed  = errors.New("only draft applications can be deleted")
	ErrNotOwner          = errors.New("application belongs to another user")
	// ErrConcurrentChange signals that the guarded write lost a race with
	// another writer; the request is safe to retry.
	ErrConcurrentChange = errors.New("application changed concurrently, retry")
)

// SubmissionNotReadyError enumerates the unmet submit preconditions so the
// client can render actionable guidance.
type SubmissionNotReadyError struct {
	MissingDocuments []docmodel.DocumentType
	FeeUnpaid        bool
}

func (e *SubmissionNotReadyError) Error() string {
	parts := make([]string, 0, 2)
	if len(e.MissingDocuments) > 0 {
		names := make([]string, len(e.MissingDocuments))
		for i, t := range e.MissingDocuments {
			names[i] = string(t)
		}
		parts = append(parts, "missing documents: "+strings.Join(names, ", "))
	}
	if e.FeeUnpaid {
		parts = append(parts, "application fee unpaid")
	}
	return "submission not ready: " + strings.Join(parts, "; ")
}

// transitionTable is the closed edge set of the lifecycle.
// draft -> submitted -> under_review -> {accepted|rejected|waitlisted};
// submitted may also be decided directly. Terminal states have no edges.
var transitionTable = map[model.ApplicationStatus][]model.ApplicationStatus{
	model.StatusDraft:       {model.StatusSubmitted},
	model.StatusSubmitted:   {model.StatusUnderReview, model.StatusAccepted, model.StatusRejected, model.StatusWaitlisted},
	model.StatusUnderReview: {model.StatusAccepted, model.StatusRejected, model.StatusWaitlisted},
}

// CanTransition reports whether the edge from -> to is in the table.
func CanTransition(from, to model.ApplicationStatus) bool {
	for _, next := range transitionTable[from] {
		if next == to {
			return true
		}
	}
	return false
}

/* =======================================================================
   Lifecycle service
======================================================================= */

type Service struct {
	store  Store
	docs   DocumentSource
	outbox *events.Outbox
}

func NewService(store Store, docs DocumentSource, outbox *events.Outbox) *Service {
	return &Service{store: store, docs: docs, outbox: outbox}
}

// Create opens a new draft application owned by the student.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, program string) (*model.ApplicationModel, error) {
	now := time.Now().UTC()
	app := &model.ApplicationModel{
		ApplicationID:        uuid.New(),
		ApplicationNumber:    generateApplicationNumber(now),
		ApplicationUserID:    userID,
		ApplicationProgram:   program,
		ApplicationStatus:    model.StatusDraft,
		ApplicationCreatedAt: now,
		ApplicationUpdatedAt: now,
	}
	if err := s.store.Create(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// GetOwned loads an application and enforces ownership.
func (s *Service) GetOwned(ctx context.Context, userID, applicationID uuid.UUID) (*model.ApplicationModel, error) {
	app, err := s.store.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ApplicationUserID != userID {
		return nil, ErrNotOwner
	}
	return app, nil
}

func (s *Service) ListOwned(ctx context.Context, userID uuid.UUID) ([]model.ApplicationModel, error) {
	return s.store.ListByUser(ctx, userID)
}

func (s *Service) History(ctx context.Context, applicationID uuid.UUID) ([]model.StatusTransitionModel, error) {
	return s.store.ListTransitions(ctx, applicationID)
}

// Transition moves the application along one edge of the table. A request
// with to == current status is recorded as a note and changes nothing else.
// The status write and the audit append are one atomic unit; losing the
// conditional write to a concurrent transition yields ErrConcurrentChange.
func (s *Service) Transition(ctx context.Context, applicationID uuid.UUID, to model.ApplicationStatus, actor string, comment *string) (*model.ApplicationModel, error) {
	if !to.Valid() {
		return nil, ErrInvalidTransition
	}

	app, err := s.store.Get(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	from := app.ApplicationStatus

	if to == from {
		if err := s.store.AppendNote(ctx, applicationID, from, actor, comment); err != nil {
			return nil, err
		}
		return app, nil
	}
	if !CanTransition(from, to) {
		return nil, ErrInvalidTransition
	}

	change := StatusChange{
		ApplicationID: applicationID,
		From:          from,
		To:            to,
		Actor:         actor,
		Comment:       comment,
	}
	// The student-facing submit path goes through Submit; an edge into
	// "submitted" keeps its gates even when driven through here.
	if to == model.StatusSubmitted {
		now := time.Now().UTC()
		change.SubmittedAt = &now
		change.RequireFeePaid = true
		change.RequireDocumentsReady = true
	}

	applied, err := s.store.ApplyTransition(ctx, change)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrConcurrentChange
	}

	s.publishStatusChanged(app, from, to)
	return s.store.Get(ctx, applicationID)
}

// Submit is the student-initiated draft -> submitted transition. The unmet
// preconditions are enumerated for the response body; the authoritative
// check happens again inside the guarded write, so a fee or document change
// racing this call can only turn it into a retryable conflict.
func (s *Service) Submit(ctx context.Context, userID, applicationID uuid.UUID) (*model.ApplicationModel, error) {
	app, err := s.GetOwned(ctx, userID, applicationID)
	if err != nil {
		return nil, err
	}
	if app.ApplicationStatus != model.StatusDraft {
		return nil, ErrInvalidTransition
	}

	docs, err := s.docs.ListByApplication(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	notReady := &SubmissionNotReadyError{
		MissingDocuments: MissingDocumentTypes(docs),
		FeeUnpaid:        !app.ApplicationFeePaid,
	}
	if len(notReady.MissingDocuments) > 0 || notReady.FeeUnpaid {
		return nil, notReady
	}

	now := time.Now().UTC()
	applied, err := s.store.ApplyTransition(ctx, StatusChange{
		ApplicationID:         applicationID,
		From:                  model.StatusDraft,
		To:                    model.StatusSubmitted,
		Actor:                 userID.String(),
		SubmittedAt:           &now,
		RequireFeePaid:        true,
		RequireDocumentsReady: true,
	})
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, ErrConcurrentChange
	}

	s.publishStatusChanged(app, model.StatusDraft, model.StatusSubmitted)
	return s.store.Get(ctx, applicationID)
}

// Note appends an administrative from==to record on any status, including
// terminal ones.
func (s *Service) Note(ctx context.Context, applicationID uuid.UUID, actor string, comment *string) error {
	app, err := s.store.Get(ctx, applicationID)
	if err != nil {
		return err
	}
	return s.store.AppendNote(ctx, applicationID, app.ApplicationStatus, actor, comment)
}

// Delete removes a draft; anything past draft is permanent.
func (s *Service) Delete(ctx context.Context, userID, applicationID uuid.UUID) error {
	if _, err := s.GetOwned(ctx, userID, applicationID); err != nil {
		return err
	}
	deleted, err := s.store.DeleteDraft(ctx, applicationID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrDeleteNotAllowed
	}
	return nil
}

func (s *Service) publishStatusChanged(app *model.ApplicationModel, from, to model.ApplicationStatus) {
	if s.outbox == nil {
		return
	}
	s.outbox.Publish(events.Event{
		Name:          events.EventApplicationStatusChanged,
		ApplicationID: app.ApplicationID,
		UserID:        app.ApplicationUserID,
		Payload: map[string]interface{}{
			"application_number": app.ApplicationNumber,
			"from_status":        string(from),
			"to_status":          string(to),
		},
	})
}

// generateApplicationNumber builds the human-readable number handed to the
// student, e.g. APP-2026-7F3A21. Uniqueness is enforced by the DB index.
func generateApplicationNumber(now time.Time) string {
	suffix := strings.ToUpper(uuid.New().String()[:6])
	return fmt.Sprintf("APP-%d-%s", now.Year(), suffix)
}
