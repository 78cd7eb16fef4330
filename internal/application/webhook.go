package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/campus-music/campus-music-sub001/internal/domain"
)

// HandleWebhook runs one inbound provider delivery through verification,
// classification and settlement.
//
// A nil error means the provider should consider the delivery processed, whatever
// the outcome. Errors are either domain.ErrSignatureInvalid or domain.ErrLedgerUnavailable,
// both of which the provider is expected to retry.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signatureHeader string) (WebhookResult, error) {
	event, err := s.verifier.Verify(payload, signatureHeader)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedEvent) {
			s.logger().WarnContext(ctx, "verified webhook could not be decoded",
				"operation", "handle_webhook",
				"outcome", string(domain.OutcomeDropped),
				"error", err,
			)
			return WebhookResult{Outcome: domain.OutcomeDropped, Reason: "event body could not be decoded"}, nil
		}
		s.logger().WarnContext(ctx, "webhook signature rejected",
			"operation", "verify_webhook",
			"outcome", "failure",
			"error", err,
		)
		if errors.Is(err, domain.ErrSignatureInvalid) {
			return WebhookResult{}, err
		}
		return WebhookResult{}, fmt.Errorf("%w: %v", domain.ErrSignatureInvalid, err)
	}

	result := WebhookResult{EventID: event.EventID, EventType: event.Type}
	verdict := s.classifyEvent(event)
	switch verdict.outcome {
	case domain.OutcomeIgnored:
		s.logger().DebugContext(ctx, "webhook event ignored",
			"operation", "classify_event",
			"outcome", string(domain.OutcomeIgnored),
			"event_id", event.EventID,
			"event_type", event.Type,
		)
		result.Outcome = domain.OutcomeIgnored
		return result, nil
	case domain.OutcomeDropped:
		s.logger().WarnContext(ctx, "webhook event dropped",
			"operation", "classify_event",
			"outcome", string(domain.OutcomeDropped),
			"event_id", event.EventID,
			"event_type", event.Type,
			"reason", verdict.reason,
		)
		result.Outcome = domain.OutcomeDropped
		result.Reason = verdict.reason
		return result, nil
	}

	result.TransactionID = verdict.tip.TransactionID
	settled, err := s.Settle(ctx, verdict.tip)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			result.Outcome = domain.OutcomeDropped
			result.Reason = err.Error()
			return result, nil
		}
		return WebhookResult{}, err
	}
	result.Outcome = settled.Outcome
	return result, nil
}
