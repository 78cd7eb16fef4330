package payments

import (
	"errors"
	"testing"
	"time"

	"github.com/campus-music/campus-music-sub001/internal/domain"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test_campus_settlement"

const completedTipEvent = `{
  "id": "evt_test_1",
  "object": "event",
  "type": "checkout.session.completed",
  "livemode": false,
  "data": {
    "object": {
      "id": "tx_123",
      "object": "checkout.session",
      "amount_total": 500,
      "currency": "usd",
      "payment_status": "paid",
      "metadata": {
        "type": "artist_tip",
        "artistId": "a1",
        "supporterId": "u1",
        "amount": "500",
        "message": "great set"
      }
    }
  }
}`

func sign(payload string, secret string, at time.Time) ([]byte, string) {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: at,
	})
	return signed.Payload, signed.Header
}

func newVerifier(t *testing.T) *StripeWebhookVerifier {
	t.Helper()
	v, err := NewStripeWebhookVerifier(testSecret, 5*time.Minute)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	return v
}

func TestVerifyDecodesCheckoutSession(t *testing.T) {
	t.Parallel()
	body, header := sign(completedTipEvent, testSecret, time.Now())

	event, err := newVerifier(t).Verify(body, header)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if event.EventID != "evt_test_1" || event.Type != domain.EventCheckoutSessionCompleted {
		t.Fatalf("unexpected event header fields: %+v", event)
	}
	if event.Checkout == nil {
		t.Fatal("expected checkout session")
	}
	if event.Checkout.SessionID != "tx_123" || event.Checkout.AmountTotal != 500 || event.Checkout.Currency != "usd" {
		t.Fatalf("unexpected session: %+v", event.Checkout)
	}
	if event.Checkout.Metadata["artistId"] != "a1" || event.Checkout.Metadata["amount"] != "500" {
		t.Fatalf("unexpected metadata: %+v", event.Checkout.Metadata)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	t.Parallel()
	body, header := sign(completedTipEvent, "whsec_someone_else", time.Now())

	_, err := newVerifier(t).Verify(body, header)
	if !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	t.Parallel()
	_, header := sign(completedTipEvent, testSecret, time.Now())
	tampered := []byte(`{"id":"evt_test_1","type":"checkout.session.completed","data":{"object":{"id":"tx_123","metadata":{"amount":"50000"}}}}`)

	_, err := newVerifier(t).Verify(tampered, header)
	if !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid, got %v", err)
	}
}

func TestVerifyRejectsMissingAndGarbageHeaders(t *testing.T) {
	t.Parallel()
	v := newVerifier(t)
	for _, header := range []string{"", "   ", "not-a-signature", "t=1234567890,v1=deadbeef"} {
		if _, err := v.Verify([]byte(completedTipEvent), header); !errors.Is(err, domain.ErrSignatureInvalid) {
			t.Fatalf("header %q: expected ErrSignatureInvalid, got %v", header, err)
		}
	}
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	t.Parallel()
	body, header := sign(completedTipEvent, testSecret, time.Now().Add(-time.Hour))

	_, err := newVerifier(t).Verify(body, header)
	if !errors.Is(err, domain.ErrSignatureInvalid) {
		t.Fatalf("expected ErrSignatureInvalid for replayed delivery, got %v", err)
	}
}

func TestVerifyPassesThroughOtherEventTypes(t *testing.T) {
	t.Parallel()
	body, header := sign(`{"id":"evt_test_2","object":"event","type":"payment_intent.succeeded","data":{"object":{"id":"pi_1"}}}`, testSecret, time.Now())

	event, err := newVerifier(t).Verify(body, header)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if event.Type != "payment_intent.succeeded" || event.Checkout != nil {
		t.Fatalf("unexpected event: %+v", event)
	}
}

func TestVerifyReportsUndecodableSignedBody(t *testing.T) {
	t.Parallel()
	body, header := sign(`not json`, testSecret, time.Now())

	_, err := newVerifier(t).Verify(body, header)
	if !errors.Is(err, domain.ErrMalformedEvent) {
		t.Fatalf("expected ErrMalformedEvent, got %v", err)
	}
}

func TestNewVerifierRequiresSecret(t *testing.T) {
	t.Parallel()
	if _, err := NewStripeWebhookVerifier("  ", 0); err == nil {
		t.Fatal("expected error for empty secret")
	}
}
