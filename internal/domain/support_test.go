package domain

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTipSettlementValidate(t *testing.T) {
	t.Parallel()
	valid := TipSettlement{ArtistID: "a1", SupporterID: "u1", TransactionID: "tx_1", Amount: 500}
	if err := valid.Validate(); err != nil {
		t.Fatalf("expected valid tip, got %v", err)
	}

	cases := map[string]func(*TipSettlement){
		"artist":      func(t *TipSettlement) { t.ArtistID = " " },
		"supporter":   func(t *TipSettlement) { t.SupporterID = "" },
		"transaction": func(t *TipSettlement) { t.TransactionID = "" },
		"zero":        func(t *TipSettlement) { t.Amount = 0 },
		"negative":    func(t *TipSettlement) { t.Amount = -1 },
		"message":     func(t *TipSettlement) { t.Message = strings.Repeat("m", MaxSupportMessageRunes+1) },
	}
	for name, mutate := range cases {
		tip := valid
		mutate(&tip)
		if err := tip.Validate(); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", name, err)
		}
	}
}

func TestNewSupportRecordDefaults(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := NewSupportRecord(TipSettlement{ArtistID: "a1", SupporterID: "u1", TransactionID: "tx_1", Amount: 500}, now)
	if rec.Status != SupportStatusCompleted || rec.PaymentMethod != PaymentMethodStripe {
		t.Fatalf("unexpected defaults: %+v", rec)
	}
	if rec.CreatedAt != now || rec.TransactionID != "tx_1" || rec.SupportID.String() == "" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestNormalizeMessage(t *testing.T) {
	t.Parallel()
	if got := NormalizeMessage("  hi  "); got != "hi" {
		t.Fatalf("expected trimmed message, got %q", got)
	}
	long := strings.Repeat("é", MaxSupportMessageRunes+10)
	if got := NormalizeMessage(long); len([]rune(got)) != MaxSupportMessageRunes {
		t.Fatalf("expected %d runes, got %d", MaxSupportMessageRunes, len([]rune(got)))
	}
}

func TestFormatMinorUnits(t *testing.T) {
	t.Parallel()
	cases := []struct {
		amount   int64
		exponent int32
		want     string
	}{
		{500, 2, "5.00"},
		{1250, 2, "12.50"},
		{7, 2, "0.07"},
		{500, 0, "500"},
		{1234, 3, "1.234"},
	}
	for _, tc := range cases {
		if got := FormatMinorUnits(tc.amount, tc.exponent); got != tc.want {
			t.Fatalf("FormatMinorUnits(%d, %d) = %q, want %q", tc.amount, tc.exponent, got, tc.want)
		}
	}
}

func TestWalletCheckInvariant(t *testing.T) {
	t.Parallel()
	if err := (ArtistWallet{ArtistID: "a1", TotalReceived: 500, Balance: 500}).CheckInvariant(); err != nil {
		t.Fatalf("expected healthy wallet, got %v", err)
	}
	if err := (ArtistWallet{ArtistID: "a1", TotalReceived: 100, Balance: 500}).CheckInvariant(); err == nil {
		t.Fatal("expected balance above total to be flagged")
	}
	if err := (ArtistWallet{ArtistID: "a1", Balance: -1}).CheckInvariant(); err == nil {
		t.Fatal("expected negative balance to be flagged")
	}
}

func TestTipSettlementCanonicalTrimsIdentifiers(t *testing.T) {
	t.Parallel()
	tip := TipSettlement{ArtistID: " a1 ", SupporterID: "\tu1", TransactionID: "tx_124 ", Amount: 300, Message: " hi "}.Canonical()
	if tip.ArtistID != "a1" || tip.SupporterID != "u1" || tip.TransactionID != "tx_124" {
		t.Fatalf("identifiers not trimmed: %+v", tip)
	}
	if tip.Message != " hi " {
		t.Fatalf("message must be left to NormalizeMessage, got %q", tip.Message)
	}
}
