package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/campus-music/campus-music-sub001/internal/domain"
	"github.com/campus-music/campus-music-sub001/internal/ports"
)

const roleAdmin = "ADMIN"

// ListArtistSupports returns an artist's support history, newest first.
func (s *Service) ListArtistSupports(ctx context.Context, claims ports.AuthClaims, artistID string, query SupportListQuery) ([]SupportView, error) {
	artistID = strings.TrimSpace(artistID)
	if err := authorizeArtistRead(claims, artistID); err != nil {
		return nil, err
	}
	limit := query.Limit
	if limit <= 0 {
		limit = s.cfg.DefaultSupportPageSize
	}
	if limit > s.cfg.MaxSupportPageSize {
		limit = s.cfg.MaxSupportPageSize
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	records, err := s.ledger.ListSupportsByArtist(ctx, artistID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	out := make([]SupportView, 0, len(records))
	for _, rec := range records {
		out = append(out, SupportView{
			SupportID:     rec.SupportID,
			SupporterID:   rec.SupporterID,
			ArtistID:      rec.ArtistID,
			Amount:        rec.Amount,
			AmountDisplay: domain.FormatMinorUnits(rec.Amount, s.exponent),
			PaymentMethod: rec.PaymentMethod,
			Message:       rec.Message,
			Status:        rec.Status,
			TransactionID: rec.TransactionID,
			CreatedAt:     rec.CreatedAt,
		})
	}
	return out, nil
}

// GetArtistWallet returns the artist's running totals. Artists who were never
// tipped get a zero wallet rather than a not-found error.
func (s *Service) GetArtistWallet(ctx context.Context, claims ports.AuthClaims, artistID string) (WalletView, error) {
	artistID = strings.TrimSpace(artistID)
	if err := authorizeArtistRead(claims, artistID); err != nil {
		return WalletView{}, err
	}
	wallet, err := s.ledger.GetWallet(ctx, artistID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return WalletView{}, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
		}
		wallet = domain.ArtistWallet{ArtistID: artistID}
	}
	return WalletView{
		ArtistID:             wallet.ArtistID,
		Currency:             s.cfg.LedgerCurrency,
		TotalReceived:        wallet.TotalReceived,
		Balance:              wallet.Balance,
		TotalReceivedDisplay: domain.FormatMinorUnits(wallet.TotalReceived, s.exponent),
		BalanceDisplay:       domain.FormatMinorUnits(wallet.Balance, s.exponent),
		UpdatedAt:            wallet.UpdatedAt,
	}, nil
}

// ReconcileWallets lists wallets whose total received no longer matches the sum
// of their support records.
func (s *Service) ReconcileWallets(ctx context.Context) ([]domain.WalletDiscrepancy, error) {
	drift, err := s.ledger.ReconcileWallets(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}
	outcome := "success"
	if len(drift) > 0 {
		outcome = "drift_detected"
	}
	s.logger().InfoContext(ctx, "wallet reconciliation completed",
		"operation", "reconcile_wallets",
		"outcome", outcome,
		"discrepancies", len(drift),
	)
	return drift, nil
}

func authorizeArtistRead(claims ports.AuthClaims, artistID string) error {
	if strings.TrimSpace(claims.UserID) == "" {
		return domain.ErrUnauthorized
	}
	if artistID == "" {
		return fmt.Errorf("%w: artist id is required", domain.ErrInvalidInput)
	}
	if strings.EqualFold(claims.Role, roleAdmin) || claims.UserID == artistID {
		return nil
	}
	return domain.ErrForbidden
}
