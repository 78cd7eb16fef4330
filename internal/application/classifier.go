package application

import (
	"strconv"
	"strings"

	"github.com/campus-music/campus-music-sub001/internal/domain"
)

// classification is the classifier's verdict on one verified event.
type classification struct {
	outcome domain.SettlementOutcome
	tip     domain.TipSettlement
	reason  string
}

// classifyEvent decides whether a verified event is settled, ignored or dropped.
// Only checkout.session.completed events carrying the full artist_tip metadata
// allow-list are forwarded; anything missing is dropped rather than defaulted.
func (s *Service) classifyEvent(event domain.PaymentEvent) classification {
	if !domain.IsActionableEventType(event.Type) {
		return classification{outcome: domain.OutcomeIgnored, reason: "event type not handled"}
	}
	session := event.Checkout
	if session == nil {
		return dropped("checkout session missing from event")
	}
	meta := session.Metadata
	if strings.TrimSpace(meta[domain.MetadataKeyType]) != domain.MetadataTypeArtistTip {
		return dropped("metadata type is not artist_tip")
	}

	tip := domain.TipSettlement{
		ArtistID:      strings.TrimSpace(meta[domain.MetadataKeyArtistID]),
		SupporterID:   strings.TrimSpace(meta[domain.MetadataKeySupporterID]),
		TransactionID: strings.TrimSpace(session.SessionID),
		Message:       domain.NormalizeMessage(meta[domain.MetadataKeyMessage]),
		PaymentMethod: domain.PaymentMethodStripe,
	}
	switch {
	case tip.ArtistID == "":
		return dropped("metadata artistId missing")
	case tip.SupporterID == "":
		return dropped("metadata supporterId missing")
	case tip.TransactionID == "":
		return dropped("checkout session id missing")
	}

	rawAmount := strings.TrimSpace(meta[domain.MetadataKeyAmount])
	if rawAmount == "" {
		return dropped("metadata amount missing")
	}
	amount, err := strconv.ParseInt(rawAmount, 10, 64)
	if err != nil {
		return dropped("metadata amount is not an integer")
	}
	if amount <= 0 {
		return dropped("metadata amount is not positive")
	}
	if amount > s.cfg.MaxTipAmount {
		return dropped("metadata amount exceeds tip ceiling")
	}
	if session.AmountTotal > 0 && session.AmountTotal != amount {
		return dropped("metadata amount disagrees with session total")
	}
	if currency := strings.ToLower(strings.TrimSpace(session.Currency)); currency != "" && currency != s.cfg.LedgerCurrency {
		return dropped("session currency does not match ledger currency")
	}
	tip.Amount = amount

	if err := tip.Validate(); err != nil {
		return dropped(err.Error())
	}
	return classification{outcome: domain.OutcomeSettled, tip: tip}
}

func dropped(reason string) classification {
	return classification{outcome: domain.OutcomeDropped, reason: reason}
}
