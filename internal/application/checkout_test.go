package application_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/campus-music/campus-music-sub001/internal/adapters/memory"
	"github.com/campus-music/campus-music-sub001/internal/application"
	"github.com/campus-music/campus-music-sub001/internal/domain"
	"github.com/campus-music/campus-music-sub001/internal/ports"
)

type recordingCheckout struct {
	params ports.TipCheckoutParams
	err    error
}

func (c *recordingCheckout) CreateTipCheckout(_ context.Context, p ports.TipCheckoutParams) (ports.TipCheckoutSession, error) {
	c.params = p
	if c.err != nil {
		return ports.TipCheckoutSession{}, c.err
	}
	return ports.TipCheckoutSession{SessionID: "cs_1", CheckoutURL: "https://checkout.example/cs_1"}, nil
}

func newCheckoutService(c ports.CheckoutClient) *application.Service {
	return application.NewService(application.Dependencies{
		Config: application.Config{
			LedgerCurrency:     "usd",
			MinTipAmount:       100,
			MaxTipAmount:       10000,
			CheckoutSuccessURL: "https://campus.example/tips/thanks",
			CheckoutCancelURL:  "https://campus.example/tips/cancel",
		},
		Ledger:   memory.NewLedgerStore(),
		Checkout: c,
	})
}

func TestCreateTipCheckoutForwardsParams(t *testing.T) {
	t.Parallel()
	rec := &recordingCheckout{}
	svc := newCheckoutService(rec)

	res, err := svc.CreateTipCheckout(context.Background(), ports.AuthClaims{UserID: "u1"}, application.TipCheckoutRequest{
		ArtistID: " a1 ",
		Amount:   500,
		Message:  "  see you at the gig ",
	})
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	if res.SessionID != "cs_1" {
		t.Fatalf("unexpected response: %+v", res)
	}
	want := ports.TipCheckoutParams{
		ArtistID:    "a1",
		SupporterID: "u1",
		Amount:      500,
		Currency:    "usd",
		Message:     "see you at the gig",
		SuccessURL:  "https://campus.example/tips/thanks",
		CancelURL:   "https://campus.example/tips/cancel",
	}
	if rec.params != want {
		t.Fatalf("unexpected params:\n got %+v\nwant %+v", rec.params, want)
	}
}

func TestCreateTipCheckoutValidation(t *testing.T) {
	t.Parallel()
	svc := newCheckoutService(&recordingCheckout{})
	supporter := ports.AuthClaims{UserID: "u1"}

	cases := []struct {
		name   string
		claims ports.AuthClaims
		req    application.TipCheckoutRequest
		want   error
	}{
		{"anonymous", ports.AuthClaims{}, application.TipCheckoutRequest{ArtistID: "a1", Amount: 500}, domain.ErrUnauthorized},
		{"no artist", supporter, application.TipCheckoutRequest{Amount: 500}, domain.ErrInvalidInput},
		{"self tip", supporter, application.TipCheckoutRequest{ArtistID: "u1", Amount: 500}, domain.ErrInvalidInput},
		{"below min", supporter, application.TipCheckoutRequest{ArtistID: "a1", Amount: 99}, domain.ErrInvalidInput},
		{"above max", supporter, application.TipCheckoutRequest{ArtistID: "a1", Amount: 10001}, domain.ErrInvalidInput},
		{"long message", supporter, application.TipCheckoutRequest{ArtistID: "a1", Amount: 500, Message: strings.Repeat("x", 501)}, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		if _, err := svc.CreateTipCheckout(context.Background(), tc.claims, tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestCreateTipCheckoutWrapsProviderFailure(t *testing.T) {
	t.Parallel()
	svc := newCheckoutService(&recordingCheckout{err: errors.New("timeout")})

	_, err := svc.CreateTipCheckout(context.Background(), ports.AuthClaims{UserID: "u1"}, application.TipCheckoutRequest{ArtistID: "a1", Amount: 500})
	if !errors.Is(err, domain.ErrCheckoutUnavailable) {
		t.Fatalf("expected ErrCheckoutUnavailable, got %v", err)
	}
}

func TestCreateTipCheckoutWithoutProvider(t *testing.T) {
	t.Parallel()
	svc := newCheckoutService(nil)

	_, err := svc.CreateTipCheckout(context.Background(), ports.AuthClaims{UserID: "u1"}, application.TipCheckoutRequest{ArtistID: "a1", Amount: 500})
	if !errors.Is(err, domain.ErrCheckoutUnavailable) {
		t.Fatalf("expected ErrCheckoutUnavailable, got %v", err)
	}
}
