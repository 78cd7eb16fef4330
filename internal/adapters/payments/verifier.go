package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campus-music/campus-music-sub001/internal/domain"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const DefaultSignatureTolerance = 5 * time.Minute

// StripeWebhookVerifier authenticates Stripe webhook deliveries against the
// endpoint's signing secret and decodes the parts settlement needs.
type StripeWebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewStripeWebhookVerifier(secret string, tolerance time.Duration) (*StripeWebhookVerifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("stripe webhook secret is required")
	}
	if tolerance <= 0 {
		tolerance = DefaultSignatureTolerance
	}
	return &StripeWebhookVerifier{secret: secret, tolerance: tolerance}, nil
}

// stripeCheckoutSession is the subset of a checkout.session object settlement reads.
type stripeCheckoutSession struct {
	ID            string            `json:"id"`
	AmountTotal   int64             `json:"amount_total"`
	Currency      string            `json:"currency"`
	PaymentStatus string            `json:"payment_status"`
	Metadata      map[string]string `json:"metadata"`
}

func (v *StripeWebhookVerifier) Verify(payload []byte, signatureHeader string) (domain.PaymentEvent, error) {
	if strings.TrimSpace(signatureHeader) == "" {
		return domain.PaymentEvent{}, fmt.Errorf("%w: missing signature header", domain.ErrSignatureInvalid)
	}
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return domain.PaymentEvent{}, fmt.Errorf("%w: %v", domain.ErrSignatureInvalid, err)
		}
		return domain.PaymentEvent{}, fmt.Errorf("%w: %v", domain.ErrMalformedEvent, err)
	}

	out := domain.PaymentEvent{
		EventID:  event.ID,
		Type:     string(event.Type),
		Livemode: event.Livemode,
	}
	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		return out, nil
	}
	if event.Data == nil || len(event.Data.Raw) == 0 {
		return domain.PaymentEvent{}, fmt.Errorf("%w: checkout session payload missing", domain.ErrMalformedEvent)
	}
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("%w: decode checkout session: %v", domain.ErrMalformedEvent, err)
	}
	out.Checkout = &domain.CheckoutSession{
		SessionID:     session.ID,
		AmountTotal:   session.AmountTotal,
		Currency:      session.Currency,
		PaymentStatus: session.PaymentStatus,
		Metadata:      session.Metadata,
	}
	return out, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}
