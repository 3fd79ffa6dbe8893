package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"universitypoland_backend/internals/events"
	appmodel "universitypoland_backend/internals/features/admission/applications/model"
	"universitypoland_backend/internals/features/finance/payments/model"
	settings "universitypoland_backend/internals/features/settings/service"
)

/* =======================================================================
   In-memory fakes
======================================================================= */

type fakePaymentStore struct {
	mu       sync.Mutex
	payments map[string]*model.PaymentModel // keyed by provider intent id
	apps     map[uuid.UUID]*appmodel.ApplicationModel

	// flagWrites counts how many times MarkTerminal flipped a fee flag,
	// to prove propagation happens at most once per payment.
	flagWrites int

	gatewayEvents []model.PaymentGatewayEventModel
}

func newFakePaymentStore() *fakePaymentStore {
	return &fakePaymentStore{
		payments: make(map[string]*model.PaymentModel),
		apps:     make(map[uuid.UUID]*appmodel.ApplicationModel),
	}
}

func (s *fakePaymentStore) Create(_ context.Context, p *model.PaymentModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.PaymentID == uuid.Nil {
		p.PaymentID = uuid.New()
	}
	p.PaymentCreatedAt = time.Now()
	cp := *p
	s.payments[p.PaymentProviderIntentID] = &cp
	return nil
}

func (s *fakePaymentStore) GetByIntentID(_ context.Context, id string) (*model.PaymentModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[id]
	if !ok {
		return nil, ErrUnknownIntent
	}
	cp := *p
	return &cp, nil
}

func (s *fakePaymentStore) ListByUser(_ context.Context, userID uuid.UUID) ([]model.PaymentModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.PaymentModel
	for _, p := range s.payments {
		if p.PaymentUserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (s *fakePaymentStore) HasSucceeded(_ context.Context, appID uuid.UUID, feeType model.FeeType) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.payments {
		if p.PaymentApplicationID == appID && p.PaymentFeeType == feeType && p.PaymentStatus == model.PaymentStatusSucceeded {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakePaymentStore) MarkTerminal(_ context.Context, ch TerminalChange) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.payments[ch.ProviderIntentID]
	if !ok || p.PaymentStatus != model.PaymentStatusPending {
		return false, nil
	}

	p.PaymentStatus = ch.Status
	p.PaymentUpdatedAt = ch.Now
	switch ch.Status {
	case model.PaymentStatusSucceeded:
		now := ch.Now
		p.PaymentPaidAt = &now
	case model.PaymentStatusFailed:
		now := ch.Now
		p.PaymentFailedAt = &now
	}
	if ch.GatewayReference != nil {
		p.PaymentGatewayReference = ch.GatewayReference
	}
	if len(ch.Meta) > 0 {
		p.PaymentMeta = ch.Meta
	}

	if ch.Status == model.PaymentStatusSucceeded {
		if app, ok := s.apps[p.PaymentApplicationID]; ok {
			now := ch.Now
			switch p.PaymentFeeType {
			case model.FeeTypeApplication:
				app.ApplicationFeePaid = true
				if app.ApplicationFeePaidAt == nil {
					app.ApplicationFeePaidAt = &now
				}
			case model.FeeTypeCommitment:
				app.CommitmentFeePaid = true
				if app.CommitmentFeePaidAt == nil {
					app.CommitmentFeePaidAt = &now
				}
			}
			s.flagWrites++
		}
	}
	return true, nil
}

func (s *fakePaymentStore) LogGatewayEvent(_ context.Context, ev *model.PaymentGatewayEventModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ev.GatewayEventID == uuid.Nil {
		ev.GatewayEventID = uuid.New()
	}
	s.gatewayEvents = append(s.gatewayEvents, *ev)
	return nil
}

func (s *fakePaymentStore) FinishGatewayEvent(_ context.Context, id uuid.UUID, status string, errMsg *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.gatewayEvents {
		if s.gatewayEvents[i].GatewayEventID == id {
			s.gatewayEvents[i].GatewayEventStatus = status
			s.gatewayEvents[i].GatewayEventError = errMsg
		}
	}
	return nil
}

func (s *fakePaymentStore) addApp(userID uuid.UUID, status appmodel.ApplicationStatus) *appmodel.ApplicationModel {
	s.mu.Lock()
	defer s.mu.Unlock()
	app := &appmodel.ApplicationModel{
		ApplicationID:     uuid.New(),
		ApplicationNumber: "APP-2026-ABC123",
		ApplicationUserID: userID,
		ApplicationStatus: status,
	}
	s.apps[app.ApplicationID] = app
	return app
}

func (s *fakePaymentStore) Get(_ context.Context, id uuid.UUID) (*appmodel.ApplicationModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if !ok {
		return nil, errors.New("application not found")
	}
	cp := *app
	return &cp, nil
}

type fakeProvider struct {
	mu          sync.Mutex
	createErr   error
	createCalls int
	fetchCalls  int
	status      ProviderStatus
}

func (p *fakeProvider) CreateIntent(_ context.Context, req IntentRequest) (*Intent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.createCalls++
	if p.createErr != nil {
		return nil, p.createErr
	}
	return &Intent{
		ProviderIntentID: req.OrderID,
		ClientSecret:     "snap-token-" + req.OrderID,
		RedirectURL:      "https://pay.example/" + req.OrderID,
	}, nil
}

func (p *fakeProvider) FetchStatus(_ context.Context, _ string) (*ProviderStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetchCalls++
	st := p.status
	return &st, nil
}

type fakeFeeConfig struct {
	amounts  map[string]int64
	currency string
}

func (f *fakeFeeConfig) Amount(_ context.Context, key string) (int64, error) {
	v, ok := f.amounts[key]
	if !ok {
		return 0, settings.ErrSettingNotFound
	}
	return v, nil
}

func (f *fakeFeeConfig) Currency(_ context.Context) (string, error) {
	return f.currency, nil
}

func defaultFees() *fakeFeeConfig {
	return &fakeFeeConfig{
		amounts: map[string]int64{
			settings.KeyApplicationFeeAmount: 20000, // 200.00 PLN
			settings.KeyCommitmentFeeAmount:  80000,
		},
		currency: "PLN",
	}
}

type captureNotifier struct {
	mu     sync.Mutex
	events []events.Event
}

func (n *captureNotifier) Notify(_ context.Context, ev events.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func newLedgerFixture() (*Ledger, *fakePaymentStore, *fakeProvider) {
	store := newFakePaymentStore()
	provider := &fakeProvider{}
	ledger := NewLedger(store, store, provider, defaultFees(), nil)
	return ledger, store, provider
}

/* =======================================================================
   Intent creation
======================================================================= */

func TestCreateIntentFreezesConfiguredAmount(t *testing.T) {
	ledger, store, _ := newLedgerFixture()
	userID := uuid.New()
	app := store.addApp(userID, appmodel.StatusDraft)

	res, err := ledger.CreateIntent(context.Background(), userID, app.ApplicationID, model.FeeTypeApplication)
	require.NoError(t, err)

	assert.Equal(t, model.PaymentStatusPending, res.Payment.PaymentStatus)
	assert.Equal(t, int64(20000), res.Payment.PaymentAmount)
	assert.Equal(t, "PLN", res.Payment.PaymentCurrency)
	assert.True(t, strings.HasPrefix(res.Payment.PaymentProviderIntentID, "UP-APP-"))
	assert.NotEmpty(t, res.ClientSecret)

	// Later config changes must not touch the frozen row.
	stored, err := store.GetByIntentID(context.Background(), res.Payment.PaymentProviderIntentID)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), stored.PaymentAmount)
}

func TestCreateIntentRejectsForeignApplication(t *testing.T) {
	ledger, store, _ := newLedgerFixture()
	app := store.addApp(uuid.New(), appmodel.StatusDraft)

	_, err := ledger.CreateIntent(context.Background(), uuid.New(), app.ApplicationID, model.FeeTypeApplication)
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestCreateIntentRejectsAlreadyPaidFee(t *testing.T) {
	ledger, store, _ := newLedgerFixture()
	userID := uuid.New()
	app := store.addApp(userID, appmodel.StatusDraft)

	res, err := ledger.CreateIntent(context.Background(), userID, app.ApplicationID, model.FeeTypeApplication)
	require.NoError(t, err)
	_, err = ledger.ApplyOutcome(context.Background(), res.Payment.PaymentProviderIntentID, OutcomeSucceeded, nil, nil)
	require.NoError(t, err)

	_, err = ledger.CreateIntent(context.Background(), userID, app.ApplicationID, model.FeeTypeApplication)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
}

func TestCreateIntentAllowsRetryAfterFailure(t *testing.T) {
	ledger, store, _ := newLedgerFixture()
	userID := uuid.New()
	app := store.addApp(userID, appmodel.StatusDraft)

	res, err := ledger.CreateIntent(context.Background(), userID, app.ApplicationID, model.FeeTypeApplication)
	require.NoError(t, err)
	_, err = ledger.ApplyOutcome(context.Background(), res.Payment.PaymentProviderIntentID, OutcomeFailed, nil, nil)
	require.NoError(t, err)

	retry, err := ledger.CreateIntent(context.Background(), userID, app.ApplicationID, model.FeeTypeApplication)
	require.NoError(t, err)
	assert.NotEqual(t, res.Payment.PaymentProviderIntentID, retry.Payment.PaymentProviderIntentID)
}

func TestCommitmentFeeRequiresAcceptedApplication(t *testing.T) {
	ledger, store, _ := newLedgerFixture()
	userID := uuid.New()

	for _, status := range []appmodel.ApplicationStatus{
		appmodel.StatusDraft, appmodel.StatusSubmitted, appmodel.StatusUnderReview,
		appmodel.StatusRejected, appmodel.StatusWaitlisted,
	} {
		app := store.addApp(userID, status)
		_, err := ledger.CreateIntent(context.Background(), userID, app.ApplicationID, model.FeeTypeCommitment)
		assert.ErrorIs(t, err, ErrNotEligible, "status %s must not take a commitment fee", status)
	}

	accepted := store.addApp(userID, appmodel.StatusAccepted)
	res, err := ledger.CreateIntent(context.Background(), userID, accepted.ApplicationID, model.FeeTypeCommitment)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Payment.PaymentProviderIntentID, "UP-COM-"))
	assert.Equal(t, int64(80000), res.Payment.PaymentAmount)
}

func TestCreateIntentProviderFailureLeavesNoRow(t *testing.T) {
	ledger, store, provider := newLedgerFixture()
	provider.createErr = ErrProviderUnavailable
	userID := uuid.New()
	app := store.addApp(userID, appmodel.StatusDraft)

	_, err := ledger.CreateIntent(context.Background(), userID, app.ApplicationID, model.FeeTypeApplication)
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Empty(t, store.payments)
}

/* =======================================================================
   Reconciliation
======================================================================= */

func TestApplyOutcomeSettlesPaymentAndFeeFlag(t *testing.T) {
	ledger, store, _ := newLedgerFixture()
	userID := uuid.New()
	app := store.addApp(userID, appmodel.StatusDraft)
	res, err := ledger.CreateIntent(context.Background(), userID, app.ApplicationID, model.FeeTypeApplication)
	require.NoError(t, err)

	ref := "txn-123"
	out, err := ledger.ApplyOutcome(context.Background(), res.Payment.PaymentProviderIntentID, OutcomeSucceeded, &ref, nil)
	require.NoError(t, err)

	assert.True(t, out.Applied)
	assert.Equal(t, model.PaymentStatusSucceeded, out.Payment.PaymentStatus)
	require.NotNil(t, out.Payment.PaymentPaidAt)
	require.NotNil(t, out.Payment.PaymentGatewayReference)
	assert.Equal(t, "txn-123", *out.Payment.PaymentGatewayReference)

	got, err := store.Get(context.Background(), app.ApplicationID)
	require.NoError(t, err)
	assert.True(t, got.ApplicationFeePaid)
	require.NotNil(t, got.ApplicationFeePaidAt)
}

func TestApplyOutcomeDuplicateIsNoOp(t *testing.T) {
	ledger, store, _ := newLedgerFixture()
	userID := uuid.New()
	app := store.addApp(userID, appmodel.StatusDraft)
	res, err := ledger.CreateIntent(context.Background(), userID, app.ApplicationID, model.FeeTypeApplication)
	require.NoError(t, err)

	first, err := ledger.ApplyOutcome(context.Background(), res.Payment.PaymentProviderIntentID, OutcomeSucceeded, nil, nil)
	require.NoError(t, err)
	require.True(t, first.Applied)
	firstPaidAt := *first.Payment.PaymentPaidAt

	second, err := ledger.ApplyOutcome(context.Background(), res.Payment.PaymentProviderIntentID, OutcomeSucceeded, nil, nil)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, firstPaidAt, *second.Payment.PaymentPaidAt)

	// A contradictory late delivery is absorbed the same way.
	third, err := ledger.ApplyOutcome(context.Background(), res.Payment.PaymentProviderIntentID, OutcomeFailed, nil, nil)
	require.NoError(t, err)
	assert.False(t, third.Applied)
	assert.Equal(t, model.PaymentStatusSucceeded, third.Payment.PaymentStatus)

	assert.Equal(t, 1, store.flagWrites)
}

func TestApplyOutcomeFailureKeepsFlagsUntouched(t *testing.T) {
	ledger, store, _ := newLedgerFixture()
	userID := uuid.New()
	app := store.addApp(userID, appmodel.StatusDraft)
	res, err := ledger.CreateIntent(context.Background(), userID, app.ApplicationID, model.FeeTypeApplication)
	require.NoError(t, err)

	out, err := ledger.ApplyOutcome(context.Background(), res.Payment.PaymentProviderIntentID, OutcomeFailed, nil,
		map[string]interface{}{"gateway_status": "deny"})
	require.NoError(t, err)

	assert.True(t, out.Applied)
	assert.Equal(t, model.PaymentStatusFailed, out.Payment.PaymentStatus)
	require.NotNil(t, out.Payment.PaymentFailedAt)
	assert.NotEmpty(t, out.Payment.PaymentMeta)

	got, err := store.Get(context.Background(), app.ApplicationID)
	require.NoError(t, err)
	assert.False(t, got.ApplicationFeePaid)
	assert.Equal(t, 0, store.flagWrites)
}

func TestApplyOutcomePendingNeverMovesLedger(t *testing.T) {
	ledger, store, _ := newLedgerFixture()
	userID := uuid.New()
	app := store.addApp(userID, appmodel.StatusDraft)
	res, err := ledger.CreateIntent(context.Background(), userID, app.ApplicationID, model.FeeTypeApplication)
	require.NoError(t, err)

	out, err := ledger.ApplyOutcome(context.Background(), res.Payment.PaymentProviderIntentID, OutcomePending, nil, nil)
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, model.PaymentStatusPending, out.Payment.PaymentStatus)
}

func TestApplyOutcomeUnknownIntent(t *testing.T) {
	ledger, _, _ := newLedgerFixture()
	_, err := ledger.ApplyOutcome(context.Background(), "UP-APP-DOESNOTEXIST", OutcomeSucceeded, nil, nil)
	assert.ErrorIs(t, err, ErrUnknownIntent)
}

func TestApplyOutcomeConcurrentDeliveries(t *testing.T) {
	ledger, store, _ := newLedgerFixture()
	userID := uuid.New()
	app := store.addApp(userID, appmodel.StatusDraft)
	res, err := ledger.CreateIntent(context.Background(), userID, app.ApplicationID, model.FeeTypeApplication)
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	applied := make(chan bool, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := ledger.ApplyOutcome(context.Background(), res.Payment.PaymentProviderIntentID, OutcomeSucceeded, nil, nil)
			if err == nil {
				applied <- out.Applied
			}
		}()
	}
	wg.Wait()
	close(applied)

	wins := 0
	for a := range applied {
		if a {
			wins++
		}
	}
	assert.Equal(t, 1, wins, "exactly one delivery settles the payment")
	assert.Equal(t, 1, store.flagWrites, "fee flag flips exactly once")
}

/* =======================================================================
   Synchronous confirmation
======================================================================= */

func TestConfirmTrustsGatewayNotTheClient(t *testing.T) {
	ledger, store, provider := newLedgerFixture()
	userID := uuid.New()
	app := store.addApp(userID, appmodel.StatusDraft)
	res, err := ledger.CreateIntent(context.Background(), userID, app.ApplicationID, model.FeeTypeApplication)
	require.NoError(t, err)

	// The client claims success but the gateway says deny.
	provider.status = ProviderStatus{Outcome: OutcomeFailed, GatewayStatus: "deny"}

	out, err := ledger.Confirm(context.Background(), userID, res.Payment.PaymentProviderIntentID)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentStatusFailed, out.Payment.PaymentStatus)

	got, err := store.Get(context.Background(), app.ApplicationID)
	require.NoError(t, err)
	assert.False(t, got.ApplicationFeePaid)
}

func TestConfirmSettledPaymentSkipsGateway(t *testing.T) {
	ledger, store, provider := newLedgerFixture()
	userID := uuid.New()
	app := store.addApp(userID, appmodel.StatusDraft)
	res, err := ledger.CreateIntent(context.Background(), userID, app.ApplicationID, model.FeeTypeApplication)
	require.NoError(t, err)

	_, err = ledger.ApplyOutcome(context.Background(), res.Payment.PaymentProviderIntentID, OutcomeSucceeded, nil, nil)
	require.NoError(t, err)
	provider.fetchCalls = 0

	out, err := ledger.Confirm(context.Background(), userID, res.Payment.PaymentProviderIntentID)
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, model.PaymentStatusSucceeded, out.Payment.PaymentStatus)
	assert.Equal(t, 0, provider.fetchCalls)
}

func TestConfirmRejectsForeignPayment(t *testing.T) {
	ledger, store, _ := newLedgerFixture()
	userID := uuid.New()
	app := store.addApp(userID, appmodel.StatusDraft)
	res, err := ledger.CreateIntent(context.Background(), userID, app.ApplicationID, model.FeeTypeApplication)
	require.NoError(t, err)

	_, err = ledger.Confirm(context.Background(), uuid.New(), res.Payment.PaymentProviderIntentID)
	assert.ErrorIs(t, err, ErrNotOwner)
}

/* =======================================================================
   Outbox events
======================================================================= */

func TestSettlementPublishesExactlyOneEvent(t *testing.T) {
	store := newFakePaymentStore()
	provider := &fakeProvider{}
	sink := &captureNotifier{}
	outbox := events.NewOutbox(sink, 16)
	ledger := NewLedger(store, store, provider, defaultFees(), outbox)

	userID := uuid.New()
	app := store.addApp(userID, appmodel.StatusDraft)
	res, err := ledger.CreateIntent(context.Background(), userID, app.ApplicationID, model.FeeTypeApplication)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = ledger.ApplyOutcome(context.Background(), res.Payment.PaymentProviderIntentID, OutcomeSucceeded, nil, nil)
		require.NoError(t, err)
	}
	outbox.Close()

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.events, 1)
	assert.Equal(t, events.EventPaymentSucceeded, sink.events[0].Name)
	assert.Equal(t, app.ApplicationID, sink.events[0].ApplicationID)
}
