package application

import (
	"log/slog"
	"strings"
	"time"

	"github.com/campus-music/campus-music-sub001/internal/ports"
)

type Service struct {
	cfg      Config
	verifier ports.WebhookVerifier
	ledger   ports.LedgerStore
	settled  ports.SettledTransactionCache
	checkout ports.CheckoutClient
	exponent int32
	nowFn    func() time.Time
}

type Dependencies struct {
	Config   Config
	Verifier ports.WebhookVerifier
	Ledger   ports.LedgerStore
	// Settled is optional; without it every delivery goes straight to the ledger.
	Settled  ports.SettledTransactionCache
	Checkout ports.CheckoutClient
}

func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	if cfg.ServiceName == "" {
		cfg.ServiceName = "support-settlement-service"
	}
	cfg.LedgerCurrency = strings.ToLower(strings.TrimSpace(cfg.LedgerCurrency))
	if cfg.LedgerCurrency == "" {
		cfg.LedgerCurrency = "usd"
	}
	exponent := int32(2)
	if cfg.CurrencyExponent != nil && *cfg.CurrencyExponent >= 0 {
		exponent = *cfg.CurrencyExponent
	}
	if cfg.SettledCacheTTL <= 0 {
		cfg.SettledCacheTTL = 72 * time.Hour
	}
	if cfg.MinTipAmount <= 0 {
		cfg.MinTipAmount = 100
	}
	if cfg.MaxTipAmount <= 0 {
		cfg.MaxTipAmount = 100000
	}
	if cfg.DefaultSupportPageSize <= 0 {
		cfg.DefaultSupportPageSize = 20
	}
	if cfg.MaxSupportPageSize <= 0 {
		cfg.MaxSupportPageSize = 100
	}
	return &Service{
		cfg:      cfg,
		verifier: deps.Verifier,
		ledger:   deps.Ledger,
		settled:  deps.Settled,
		checkout: deps.Checkout,
		exponent: exponent,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the service clock.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.nowFn = now
	}
}

func (s *Service) logger() *slog.Logger {
	return slog.Default().With(
		"service", s.cfg.ServiceName,
		"module", "application",
		"layer", "application",
	)
}
