package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	SupportStatusCompleted = "completed"

	PaymentMethodStripe = "stripe"

	// MaxSupportMessageRunes bounds the free-text note a supporter attaches to a tip.
	MaxSupportMessageRunes = 500
)

type SupportRecord struct {
	SupportID     uuid.UUID
	SupporterID   string
	ArtistID      string
	Amount        int64
	PaymentMethod string
	Message       string
	Status        string
	TransactionID string
	CreatedAt     time.Time
}

type ArtistWallet struct {
	WalletID      uuid.UUID
	ArtistID      string
	TotalReceived int64
	Balance       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CheckInvariant reports a wallet whose running totals can no longer be trusted.
func (w ArtistWallet) CheckInvariant() error {
	if w.Balance < 0 || w.TotalReceived < 0 {
		return fmt.Errorf("wallet %s has negative totals", w.ArtistID)
	}
	if w.TotalReceived < w.Balance {
		return fmt.Errorf("wallet %s balance %d exceeds total received %d", w.ArtistID, w.Balance, w.TotalReceived)
	}
	return nil
}

// TipSettlement is a fully qualified tip ready to be applied to the ledger.
type TipSettlement struct {
	ArtistID      string
	SupporterID   string
	Amount        int64
	Message       string
	TransactionID string
	PaymentMethod string
}

// Canonical returns the tip with its identifiers trimmed. The transaction id is
// the idempotency key, so every write and lookup must use this form.
func (t TipSettlement) Canonical() TipSettlement {
	t.ArtistID = strings.TrimSpace(t.ArtistID)
	t.SupporterID = strings.TrimSpace(t.SupporterID)
	t.TransactionID = strings.TrimSpace(t.TransactionID)
	t.PaymentMethod = strings.TrimSpace(t.PaymentMethod)
	return t
}

func (t TipSettlement) Validate() error {
	if strings.TrimSpace(t.ArtistID) == "" {
		return fmt.Errorf("%w: artist id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(t.SupporterID) == "" {
		return fmt.Errorf("%w: supporter id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(t.TransactionID) == "" {
		return fmt.Errorf("%w: transaction id is required", ErrInvalidInput)
	}
	if t.Amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", ErrInvalidInput)
	}
	if utf8.RuneCountInString(t.Message) > MaxSupportMessageRunes {
		return fmt.Errorf("%w: message exceeds %d characters", ErrInvalidInput, MaxSupportMessageRunes)
	}
	return nil
}

// NewSupportRecord builds the completed record for a validated tip.
func NewSupportRecord(t TipSettlement, now time.Time) SupportRecord {
	method := t.PaymentMethod
	if method == "" {
		method = PaymentMethodStripe
	}
	return SupportRecord{
		SupportID:     uuid.New(),
		SupporterID:   t.SupporterID,
		ArtistID:      t.ArtistID,
		Amount:        t.Amount,
		PaymentMethod: method,
		Message:       t.Message,
		Status:        SupportStatusCompleted,
		TransactionID: t.TransactionID,
		CreatedAt:     now,
	}
}

// NormalizeMessage trims surrounding whitespace and truncates to MaxSupportMessageRunes.
func NormalizeMessage(raw string) string {
	msg := strings.TrimSpace(raw)
	if utf8.RuneCountInString(msg) <= MaxSupportMessageRunes {
		return msg
	}
	runes := []rune(msg)
	return strings.TrimSpace(string(runes[:MaxSupportMessageRunes]))
}

// FormatMinorUnits renders an integer minor-unit amount using the currency exponent,
// e.g. 1250 with exponent 2 -> "12.50".
func FormatMinorUnits(amount int64, exponent int32) string {
	if exponent < 0 {
		exponent = 0
	}
	return decimal.New(amount, -exponent).StringFixed(exponent)
}

// WalletDiscrepancy is a wallet whose running total drifted from its support records.
type WalletDiscrepancy struct {
	ArtistID      string
	TotalReceived int64
	Balance       int64
	SupportSum    int64
}
