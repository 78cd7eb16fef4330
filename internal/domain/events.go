package domain

const (
	EventCheckoutSessionCompleted = "checkout.session.completed"

	EventSupportSettled = "support.settled"
)

const (
	MetadataKeyType        = "type"
	MetadataKeyArtistID    = "artistId"
	MetadataKeySupporterID = "supporterId"
	MetadataKeyAmount      = "amount"
	MetadataKeyMessage     = "message"

	MetadataTypeArtistTip = "artist_tip"
)

// SettlementOutcome is the definitive result reported back to the payment provider.
type SettlementOutcome string

const (
	OutcomeSettled   SettlementOutcome = "settled"
	OutcomeDuplicate SettlementOutcome = "duplicate"
	OutcomeIgnored   SettlementOutcome = "ignored"
	OutcomeDropped   SettlementOutcome = "dropped"
)

// PaymentEvent is a provider event whose signature has been verified.
type PaymentEvent struct {
	EventID  string
	Type     string
	Livemode bool
	Checkout *CheckoutSession
}

type CheckoutSession struct {
	SessionID     string
	AmountTotal   int64
	Currency      string
	PaymentStatus string
	Metadata      map[string]string
}

// IsActionableEventType reports whether the settlement pipeline acts on an event type.
func IsActionableEventType(eventType string) bool {
	return eventType == EventCheckoutSessionCompleted
}
