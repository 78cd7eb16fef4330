package payments

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/campus-music/campus-music-sub001/internal/domain"
	"github.com/campus-music/campus-music-sub001/internal/ports"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
)

// StripeCheckoutClient opens hosted Stripe Checkout sessions for tips.
type StripeCheckoutClient struct {
	api        *client.API
	httpClient *http.Client
}

// CheckoutClientConfig configures the outbound Stripe client. BaseURL is only
// set when pointing at a stub server.
type CheckoutClientConfig struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

func NewStripeCheckoutClient(cfg CheckoutClientConfig) (*StripeCheckoutClient, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" {
		return nil, fmt.Errorf("stripe secret key is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        httpClient,
		MaxNetworkRetries: stripe.Int64(2),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		backendCfg.URL = stripe.String(base)
		backendCfg.MaxNetworkRetries = stripe.Int64(0)
	}
	api := &client.API{}
	api.Init(key, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	})
	return &StripeCheckoutClient{api: api, httpClient: httpClient}, nil
}

// CreateTipCheckout creates a one-off payment session whose metadata carries
// everything settlement needs once the payment completes.
func (c *StripeCheckoutClient) CreateTipCheckout(ctx context.Context, p ports.TipCheckoutParams) (ports.TipCheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(p.SuccessURL),
		CancelURL:         stripe.String(p.CancelURL),
		ClientReferenceID: stripe.String(p.SupporterID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(p.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Tip for " + p.ArtistID),
					},
					UnitAmount: stripe.Int64(p.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(domain.MetadataKeyType, domain.MetadataTypeArtistTip)
	params.AddMetadata(domain.MetadataKeyArtistID, p.ArtistID)
	params.AddMetadata(domain.MetadataKeySupporterID, p.SupporterID)
	params.AddMetadata(domain.MetadataKeyAmount, strconv.FormatInt(p.Amount, 10))
	if p.Message != "" {
		params.AddMetadata(domain.MetadataKeyMessage, p.Message)
	}

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return ports.TipCheckoutSession{}, fmt.Errorf("%w: %v", domain.ErrCheckoutUnavailable, err)
	}
	return ports.TipCheckoutSession{SessionID: session.ID, CheckoutURL: session.URL}, nil
}

func (c *StripeCheckoutClient) Close() {
	c.httpClient.CloseIdleConnections()
}
