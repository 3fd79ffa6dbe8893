package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"universitypoland_backend/internals/features/admission/applications/model"
	docmodel "universitypoland_backend/internals/features/admission/documents/model"
)

/* =======================================================================
   In-memory fake store
======================================================================= */

type fakeAdmissionStore struct {
	mu          sync.Mutex
	apps        map[uuid.UUID]*model.ApplicationModel
	docs        map[uuid.UUID][]docmodel.DocumentModel
	transitions []model.StatusTransitionModel

	failNextApply bool
}

func newFakeAdmissionStore() *fakeAdmissionStore {
	return &fakeAdmissionStore{
		apps: make(map[uuid.UUID]*model.ApplicationModel),
		docs: make(map[uuid.UUID][]docmodel.DocumentModel),
	}
}

func (s *fakeAdmissionStore) Create(_ context.Context, app *model.ApplicationModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *app
	s.apps[app.ApplicationID] = &cp
	return nil
}

func (s *fakeAdmissionStore) Get(_ context.Context, id uuid.UUID) (*model.ApplicationModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, ErrApplicationNotFound
	}
	cp := *app
	return &cp, nil
}

func (s *fakeAdmissionStore) ListByUser(_ context.Context, userID uuid.UUID) ([]model.ApplicationModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.ApplicationModel
	for _, app := range s.apps {
		if app.ApplicationUserID == userID {
			out = append(out, *app)
		}
	}
	return out, nil
}

func (s *fakeAdmissionStore) ListTransitions(_ context.Context, applicationID uuid.UUID) ([]model.StatusTransitionModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.StatusTransitionModel
	for _, r := range s.transitions {
		if r.TransitionApplicationID == applicationID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeAdmissionStore) ApplyTransition(_ context.Context, ch StatusChange) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNextApply {
		s.failNextApply = false
		return false, nil
	}

	app, ok := s.apps[ch.ApplicationID]
	if !ok || app.ApplicationStatus != ch.From {
		return false, nil
	}
	if ch.RequireFeePaid && !app.ApplicationFeePaid {
		return false, nil
	}
	if ch.RequireDocumentsReady && len(MissingDocumentTypes(s.docs[ch.ApplicationID])) > 0 {
		return false, nil
	}

	app.ApplicationStatus = ch.To
	if ch.SubmittedAt != nil {
		app.ApplicationSubmittedAt = ch.SubmittedAt
	}
	s.transitions = append(s.transitions, model.StatusTransitionModel{
		TransitionID:            uuid.New(),
		TransitionApplicationID: ch.ApplicationID,
		TransitionFromStatus:    ch.From,
		TransitionToStatus:      ch.To,
		TransitionActor:         ch.Actor,
		TransitionComment:       ch.Comment,
		TransitionCreatedAt:     time.Now().UTC(),
	})
	return true, nil
}

func (s *fakeAdmissionStore) AppendNote(_ context.Context, applicationID uuid.UUID, status model.ApplicationStatus, actor string, comment *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions = append(s.transitions, model.StatusTransitionModel{
		TransitionID:            uuid.New(),
		TransitionApplicationID: applicationID,
		TransitionFromStatus:    status,
		TransitionToStatus:      status,
		TransitionActor:         actor,
		TransitionComment:       comment,
		TransitionCreatedAt:     time.Now().UTC(),
	})
	return nil
}

func (s *fakeAdmissionStore) DeleteDraft(_ context.Context, applicationID uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[applicationID]
	if !ok || app.ApplicationStatus != model.StatusDraft {
		return false, nil
	}
	delete(s.apps, applicationID)
	return true, nil
}

func (s *fakeAdmissionStore) ListByApplication(_ context.Context, applicationID uuid.UUID) ([]docmodel.DocumentModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]docmodel.DocumentModel(nil), s.docs[applicationID]...), nil
}

func (s *fakeAdmissionStore) addDoc(appID uuid.UUID, t docmodel.DocumentType, status docmodel.DocumentVerificationStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[appID] = append(s.docs[appID], docmodel.DocumentModel{
		DocumentID:                 uuid.New(),
		DocumentApplicationID:      appID,
		DocumentType:               t,
		DocumentVerificationStatus: status,
	})
}

func (s *fakeAdmissionStore) setFeePaid(appID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	s.apps[appID].ApplicationFeePaid = true
	s.apps[appID].ApplicationFeePaidAt = &now
}

func newLifecycleFixture(t *testing.T) (*Service, *fakeAdmissionStore, *model.ApplicationModel, uuid.UUID) {
	t.Helper()
	store := newFakeAdmissionStore()
	svc := NewService(store, store, nil)
	userID := uuid.New()
	app, err := svc.Create(context.Background(), userID, "Computer Science BSc")
	require.NoError(t, err)
	return svc, store, app, userID
}

/* =======================================================================
   Transition table
======================================================================= */

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.ApplicationStatus
		want     bool
	}{
		{model.StatusDraft, model.StatusSubmitted, true},
		{model.StatusDraft, model.StatusAccepted, false},
		{model.StatusDraft, model.StatusUnderReview, false},
		{model.StatusSubmitted, model.StatusUnderReview, true},
		{model.StatusSubmitted, model.StatusAccepted, true},
		{model.StatusSubmitted, model.StatusRejected, true},
		{model.StatusSubmitted, model.StatusWaitlisted, true},
		{model.StatusSubmitted, model.StatusDraft, false},
		{model.StatusUnderReview, model.StatusAccepted, true},
		{model.StatusUnderReview, model.StatusRejected, true},
		{model.StatusUnderReview, model.StatusWaitlisted, true},
		{model.StatusUnderReview, model.StatusSubmitted, false},
		{model.StatusAccepted, model.StatusRejected, false},
		{model.StatusRejected, model.StatusUnderReview, false},
		{model.StatusWaitlisted, model.StatusAccepted, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Fatalf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTransitionRejectsInvalidEdge(t *testing.T) {
	svc, _, app, _ := newLifecycleFixture(t)

	_, err := svc.Transition(context.Background(), app.ApplicationID, model.StatusAccepted, "admin-1", nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.Transition(context.Background(), app.ApplicationID, "bogus", "admin-1", nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransitionWritesStatusAndAuditAtomically(t *testing.T) {
	svc, store, app, _ := newLifecycleFixture(t)
	ctx := context.Background()

	prepareReadySubmission(store, app.ApplicationID)
	submitted, err := svc.Transition(ctx, app.ApplicationID, model.StatusSubmitted, "admin-1", nil)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSubmitted, submitted.ApplicationStatus)

	comment := "forwarded to committee"
	reviewed, err := svc.Transition(ctx, app.ApplicationID, model.StatusUnderReview, "admin-1", &comment)
	require.NoError(t, err)
	assert.Equal(t, model.StatusUnderReview, reviewed.ApplicationStatus)

	recs, err := store.ListTransitions(ctx, app.ApplicationID)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, model.StatusDraft, recs[0].TransitionFromStatus)
	assert.Equal(t, model.StatusSubmitted, recs[0].TransitionToStatus)
	assert.Equal(t, model.StatusSubmitted, recs[1].TransitionFromStatus)
	assert.Equal(t, model.StatusUnderReview, recs[1].TransitionToStatus)
	require.NotNil(t, recs[1].TransitionComment)
	assert.Equal(t, comment, *recs[1].TransitionComment)
}

func TestTransitionToCurrentStatusIsANote(t *testing.T) {
	svc, store, app, _ := newLifecycleFixture(t)
	ctx := context.Background()

	prepareReadySubmission(store, app.ApplicationID)
	_, err := svc.Transition(ctx, app.ApplicationID, model.StatusSubmitted, "admin-1", nil)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, app.ApplicationID, model.StatusAccepted, "admin-1", nil)
	require.NoError(t, err)

	note := "congratulations letter sent"
	got, err := svc.Transition(ctx, app.ApplicationID, model.StatusAccepted, "admin-2", &note)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, got.ApplicationStatus)

	recs, _ := store.ListTransitions(ctx, app.ApplicationID)
	require.Len(t, recs, 3)
	last := recs[2]
	assert.Equal(t, last.TransitionFromStatus, last.TransitionToStatus)
	assert.Equal(t, model.StatusAccepted, last.TransitionToStatus)
}

func TestTerminalStatusAcceptsNoTransitions(t *testing.T) {
	svc, store, app, _ := newLifecycleFixture(t)
	ctx := context.Background()

	prepareReadySubmission(store, app.ApplicationID)
	_, err := svc.Transition(ctx, app.ApplicationID, model.StatusSubmitted, "admin-1", nil)
	require.NoError(t, err)
	_, err = svc.Transition(ctx, app.ApplicationID, model.StatusRejected, "admin-1", nil)
	require.NoError(t, err)

	for _, to := range []model.ApplicationStatus{
		model.StatusDraft, model.StatusSubmitted, model.StatusUnderReview,
		model.StatusAccepted, model.StatusWaitlisted,
	} {
		_, err := svc.Transition(ctx, app.ApplicationID, to, "admin-1", nil)
		assert.ErrorIs(t, err, ErrInvalidTransition, "rejected -> %s must fail", to)
	}
}

/* =======================================================================
   Submit
======================================================================= */

func TestSubmitEnumeratesAllMissingPreconditions(t *testing.T) {
	svc, _, app, userID := newLifecycleFixture(t)

	_, err := svc.Submit(context.Background(), userID, app.ApplicationID)
	var notReady *SubmissionNotReadyError
	require.ErrorAs(t, err, &notReady)
	assert.True(t, notReady.FeeUnpaid)
	assert.ElementsMatch(t, RequiredDocumentTypes, notReady.MissingDocuments)
	assert.Contains(t, notReady.Error(), "application fee unpaid")
}

func TestSubmitReportsOnlyFeeWhenDocumentsUploaded(t *testing.T) {
	svc, store, app, userID := newLifecycleFixture(t)

	for _, dt := range RequiredDocumentTypes {
		store.addDoc(app.ApplicationID, dt, docmodel.DocumentVerificationPending)
	}

	_, err := svc.Submit(context.Background(), userID, app.ApplicationID)
	var notReady *SubmissionNotReadyError
	require.ErrorAs(t, err, &notReady)
	assert.True(t, notReady.FeeUnpaid)
	assert.Empty(t, notReady.MissingDocuments)
	assert.False(t, strings.Contains(notReady.Error(), "missing documents"))
}

func TestSubmitSucceedsWhenReady(t *testing.T) {
	svc, store, app, userID := newLifecycleFixture(t)
	ctx := context.Background()

	prepareReadySubmission(store, app.ApplicationID)
	got, err := svc.Submit(ctx, userID, app.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSubmitted, got.ApplicationStatus)
	require.NotNil(t, got.ApplicationSubmittedAt)

	recs, _ := store.ListTransitions(ctx, app.ApplicationID)
	require.Len(t, recs, 1)
	assert.Equal(t, model.StatusDraft, recs[0].TransitionFromStatus)
	assert.Equal(t, model.StatusSubmitted, recs[0].TransitionToStatus)
	assert.Equal(t, userID.String(), recs[0].TransitionActor)
}

func TestSubmitLosingTheGuardedWriteIsRetryable(t *testing.T) {
	svc, store, app, userID := newLifecycleFixture(t)

	prepareReadySubmission(store, app.ApplicationID)
	store.failNextApply = true

	_, err := svc.Submit(context.Background(), userID, app.ApplicationID)
	assert.ErrorIs(t, err, ErrConcurrentChange)

	got, err := svc.Submit(context.Background(), userID, app.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSubmitted, got.ApplicationStatus)
}

func TestSubmitRejectsForeignApplication(t *testing.T) {
	svc, store, app, _ := newLifecycleFixture(t)
	prepareReadySubmission(store, app.ApplicationID)

	_, err := svc.Submit(context.Background(), uuid.New(), app.ApplicationID)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestSubmitOnlyFromDraft(t *testing.T) {
	svc, store, app, userID := newLifecycleFixture(t)
	ctx := context.Background()

	prepareReadySubmission(store, app.ApplicationID)
	_, err := svc.Submit(ctx, userID, app.ApplicationID)
	require.NoError(t, err)

	_, err = svc.Submit(ctx, userID, app.ApplicationID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

/* =======================================================================
   Delete
======================================================================= */

func TestDeleteOnlyAllowedForDrafts(t *testing.T) {
	svc, store, app, userID := newLifecycleFixture(t)
	ctx := context.Background()

	prepareReadySubmission(store, app.ApplicationID)
	_, err := svc.Submit(ctx, userID, app.ApplicationID)
	require.NoError(t, err)

	err = svc.Delete(ctx, userID, app.ApplicationID)
	assert.ErrorIs(t, err, ErrDeleteNotAllowed)
}

func TestDeleteDraft(t *testing.T) {
	svc, _, app, userID := newLifecycleFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, userID, app.ApplicationID))

	_, err := svc.GetOwned(ctx, userID, app.ApplicationID)
	assert.ErrorIs(t, err, ErrApplicationNotFound)
}

func TestApplicationNumberShape(t *testing.T) {
	svc, _, _, userID := newLifecycleFixture(t)

	app, err := svc.Create(context.Background(), userID, "Data Engineering MSc")
	require.NoError(t, err)
	assert.Regexp(t, `^APP-\d{4}-[0-9A-F]{6}$`, app.ApplicationNumber)
}

func prepareReadySubmission(store *fakeAdmissionStore, appID uuid.UUID) {
	for _, dt := range RequiredDocumentTypes {
		store.addDoc(appID, dt, docmodel.DocumentVerificationPending)
	}
	store.setFeePaid(appID)
}
