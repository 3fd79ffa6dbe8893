package service

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	midtrans "github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

/* =========================================================
   Provider abstraction
========================================================= */

// ErrProviderUnavailable is returned once the retry budget against the
// gateway is exhausted. Callers translate it to a 502.
var ErrProviderUnavailable = errors.New("payment provider unavailable")

// Outcome is the provider-agnostic interpretation of a gateway status.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	// OutcomePending covers every non-terminal gateway status; it never
	// moves the ledger.
	OutcomePending Outcome = "pending"
)

type IntentRequest struct {
	OrderID     string
	Amount      int64 // minor currency unit
	Currency    string
	Description string
	Email       string
}

type Intent struct {
	ProviderIntentID string
	ClientSecret     string
	RedirectURL      string
}

type ProviderStatus struct {
	Outcome          Outcome
	GatewayReference string
	GatewayStatus    string
	FraudStatus      string
}

// Provider is the payment gateway seam. The ledger only ever talks to
// this interface so tests can substitute a fake.
type Provider interface {
	CreateIntent(ctx context.Context, req IntentRequest) (*Intent, error)
	FetchStatus(ctx context.Context, providerIntentID string) (*ProviderStatus, error)
}

/* =========================================================
   Midtrans implementation
========================================================= */

type MidtransProvider struct {
	snap snap.Client
	core coreapi.Client
}

func NewMidtransProvider(serverKey string, useProduction bool) *MidtransProvider {
	env := midtrans.Sandbox
	if useProduction {
		env = midtrans.Production
	}
	p := &MidtransProvider{}
	p.snap.New(serverKey, env)
	p.core.New(serverKey, env)
	return p
}

func (p *MidtransProvider) CreateIntent(ctx context.Context, in IntentRequest) (*Intent, error) {
	if in.Amount <= 0 {
		return nil, errors.New("invalid amount")
	}
	if in.OrderID == "" {
		return nil, errors.New("order id is required")
	}

	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  in.OrderID,
			GrossAmt: in.Amount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			Email: in.Email,
		},
		Items: &[]midtrans.ItemDetails{
			{
				ID:       in.OrderID,
				Price:    in.Amount,
				Qty:      1,
				Name:     truncate(in.Description, 50),
				Category: "admission",
			},
		},
	}

	var resp *snap.Response
	err := withRetry(ctx, providerAttempts, providerBackoff, func() error {
		r, mErr := p.snap.CreateTransaction(req)
		if mErr != nil {
			return mErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &Intent{
		ProviderIntentID: in.OrderID,
		ClientSecret:     resp.Token,
		RedirectURL:      resp.RedirectURL,
	}, nil
}

func (p *MidtransProvider) FetchStatus(ctx context.Context, providerIntentID string) (*ProviderStatus, error) {
	var resp *coreapi.TransactionStatusResponse
	err := withRetry(ctx, providerAttempts, providerBackoff, func() error {
		r, mErr := p.core.CheckTransaction(providerIntentID)
		if mErr != nil {
			return mErr
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ProviderStatus{
		Outcome:          MapGatewayStatus(resp.TransactionStatus, resp.FraudStatus),
		GatewayReference: resp.TransactionID,
		GatewayStatus:    resp.TransactionStatus,
		FraudStatus:      resp.FraudStatus,
	}, nil
}

/* =========================================================
   Status mapping
========================================================= */

// MapGatewayStatus converts a Midtrans transaction status into a ledger
// outcome. Refund statuses stay pending here: refunds are handled by
// finance staff outside this flow, never by the reconciliation path.
func MapGatewayStatus(transactionStatus, fraudStatus string) Outcome {
	ts := strings.ToLower(transactionStatus)
	fraud := strings.ToLower(fraudStatus)

	switch ts {
	case "capture":
		if fraud == "accept" {
			return OutcomeSucceeded
		}
		if fraud == "challenge" {
			return OutcomePending
		}
		return OutcomeFailed

	case "settlement":
		return OutcomeSucceeded

	case "pending":
		return OutcomePending

	case "deny", "cancel", "expire", "failure":
		return OutcomeFailed

	case "refund", "partial_refund":
		return OutcomePending
	}

	return OutcomePending
}

/* =========================================================
   Webhook signature
========================================================= */

// VerifySignature checks the Midtrans notification signature:
// SHA512(order_id + status_code + gross_amount + server_key).
func VerifySignature(orderID, statusCode, grossAmount, serverKey, signature string) bool {
	if signature == "" {
		return false
	}
	want := sha512sum(orderID + statusCode + grossAmount + serverKey)
	return subtle.ConstantTimeCompare([]byte(want), []byte(strings.ToLower(signature))) == 1
}

func sha512sum(s string) string {
	h := sha512.Sum512([]byte(s))
	return hex.EncodeToString(h[:])
}

/* =========================================================
   Utils
========================================================= */

const (
	providerAttempts = 3
	providerBackoff  = 200 * time.Millisecond
)

// withRetry runs fn up to attempts times with exponential backoff and
// wraps the final failure in ErrProviderUnavailable.
func withRetry(ctx context.Context, attempts int, base time.Duration, fn func() error) error {
	var last error
	delay := base
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if last = fn(); last == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, last)
}

// GenOrderID builds a unique provider order id, e.g. UP-APP-9F2C41D830AB.
func GenOrderID(prefix string) string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return fmt.Sprintf("%s-%s", prefix, raw[:12])
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
