package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/campus-music/campus-music-sub001/internal/domain"
	"github.com/campus-music/campus-music-sub001/internal/ports"
)

// CreateTipCheckout opens a hosted checkout for a supporter tipping an artist.
// The metadata attached here is what settlement later trusts once the provider's
// signature has been verified.
func (s *Service) CreateTipCheckout(ctx context.Context, claims ports.AuthClaims, req TipCheckoutRequest) (TipCheckoutResponse, error) {
	supporterID := strings.TrimSpace(claims.UserID)
	if supporterID == "" {
		return TipCheckoutResponse{}, domain.ErrUnauthorized
	}
	if s.checkout == nil {
		return TipCheckoutResponse{}, domain.ErrCheckoutUnavailable
	}
	artistID := strings.TrimSpace(req.ArtistID)
	if artistID == "" {
		return TipCheckoutResponse{}, fmt.Errorf("%w: artist_id is required", domain.ErrInvalidInput)
	}
	if artistID == supporterID {
		return TipCheckoutResponse{}, fmt.Errorf("%w: artists cannot tip themselves", domain.ErrInvalidInput)
	}
	if req.Amount < s.cfg.MinTipAmount || req.Amount > s.cfg.MaxTipAmount {
		return TipCheckoutResponse{}, fmt.Errorf("%w: amount must be between %d and %d", domain.ErrInvalidInput, s.cfg.MinTipAmount, s.cfg.MaxTipAmount)
	}
	message := strings.TrimSpace(req.Message)
	if utf8.RuneCountInString(message) > domain.MaxSupportMessageRunes {
		return TipCheckoutResponse{}, fmt.Errorf("%w: message exceeds %d characters", domain.ErrInvalidInput, domain.MaxSupportMessageRunes)
	}

	session, err := s.checkout.CreateTipCheckout(ctx, ports.TipCheckoutParams{
		ArtistID:    artistID,
		SupporterID: supporterID,
		Amount:      req.Amount,
		Currency:    s.cfg.LedgerCurrency,
		Message:     message,
		SuccessURL:  s.cfg.CheckoutSuccessURL,
		CancelURL:   s.cfg.CheckoutCancelURL,
	})
	if err != nil {
		s.logger().ErrorContext(ctx, "tip checkout creation failed",
			"operation", "create_tip_checkout",
			"outcome", "failure",
			"artist_id", artistID,
			"error", err,
		)
		if errors.Is(err, domain.ErrCheckoutUnavailable) {
			return TipCheckoutResponse{}, err
		}
		return TipCheckoutResponse{}, fmt.Errorf("%w: %v", domain.ErrCheckoutUnavailable, err)
	}
	s.logger().InfoContext(ctx, "tip checkout created",
		"operation", "create_tip_checkout",
		"outcome", "success",
		"artist_id", artistID,
		"supporter_id", supporterID,
		"amount", req.Amount,
		"session_id", session.SessionID,
	)
	return TipCheckoutResponse{SessionID: session.SessionID, CheckoutURL: session.CheckoutURL}, nil
}
