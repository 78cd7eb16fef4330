package application

import (
	"time"

	"github.com/campus-music/campus-music-sub001/internal/domain"
	"github.com/google/uuid"
)

type Config struct {
	ServiceName string

	// LedgerCurrency is the only currency the ledger accepts; settlements in any
	// other currency are dropped.
	LedgerCurrency string
	// CurrencyExponent is the number of minor-unit digits; nil selects 2.
	CurrencyExponent       *int32
	SettledCacheTTL        time.Duration
	MinTipAmount           int64
	MaxTipAmount           int64
	CheckoutSuccessURL     string
	CheckoutCancelURL      string
	DefaultSupportPageSize int
	MaxSupportPageSize     int
}

type WebhookResult struct {
	Received      bool                     `json:"received"`
	EventID       string                   `json:"event_id,omitempty"`
	EventType     string                   `json:"event_type,omitempty"`
	Outcome       domain.SettlementOutcome `json:"outcome"`
	TransactionID string                   `json:"transaction_id,omitempty"`
	Reason        string                   `json:"reason,omitempty"`
}

type SettlementResult struct {
	Outcome   domain.SettlementOutcome
	SupportID uuid.UUID
}

type SupportView struct {
	SupportID     uuid.UUID `json:"support_id"`
	SupporterID   string    `json:"supporter_id"`
	ArtistID      string    `json:"artist_id"`
	Amount        int64     `json:"amount"`
	AmountDisplay string    `json:"amount_display"`
	PaymentMethod string    `json:"payment_method"`
	Message       string    `json:"message,omitempty"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type WalletView struct {
	ArtistID             string    `json:"artist_id"`
	Currency             string    `json:"currency"`
	TotalReceived        int64     `json:"total_received"`
	Balance              int64     `json:"balance"`
	TotalReceivedDisplay string    `json:"total_received_display"`
	BalanceDisplay       string    `json:"balance_display"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type SupportListQuery struct {
	Limit  int
	Offset int
}

type TipCheckoutRequest struct {
	ArtistID string `json:"artist_id"`
	Amount   int64  `json:"amount"`
	Message  string `json:"message"`
}

type TipCheckoutResponse struct {
	SessionID   string `json:"session_id"`
	CheckoutURL string `json:"checkout_url"`
}
