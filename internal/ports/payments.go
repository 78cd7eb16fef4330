package ports

import (
	"context"

	"github.com/campus-music/campus-music-sub001/internal/domain"
)

// WebhookVerifier authenticates a raw provider payload.
// Implementations return domain.ErrSignatureInvalid for forged or malformed signatures.
type WebhookVerifier interface {
	Verify(payload []byte, signatureHeader string) (domain.PaymentEvent, error)
}

type TipCheckoutParams struct {
	ArtistID    string
	SupporterID string
	Amount      int64
	Currency    string
	Message     string
	SuccessURL  string
	CancelURL   string
}

type TipCheckoutSession struct {
	SessionID   string
	CheckoutURL string
}

// CheckoutClient creates the hosted checkout session the supporter is redirected to.
type CheckoutClient interface {
	CreateTipCheckout(ctx context.Context, params TipCheckoutParams) (TipCheckoutSession, error)
}
