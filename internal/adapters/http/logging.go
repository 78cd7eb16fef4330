package http

import (
	"context"
	"log/slog"

	"github.com/campus-music/campus-music-sub001/internal/application"
	"github.com/campus-music/campus-music-sub001/internal/domain"
)

const serviceName = "support-settlement-service"

func httpLogger() *slog.Logger {
	return slog.Default().With(
		"service", serviceName,
		"module", "http",
		"layer", "adapter",
	)
}

func logHTTPOperationError(ctx context.Context, operation string, statusCode int, code, message string, err error) {
	fields := []any{
		"operation", operation,
		"outcome", "failure",
		"status_code", statusCode,
		"error_code", code,
		"message", message,
		"request_id", requestIDFromContext(ctx),
	}
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	if statusCode >= 500 {
		httpLogger().ErrorContext(ctx, "http operation failed", fields...)
		return
	}
	httpLogger().WarnContext(ctx, "http operation failed", fields...)
}

// logWebhookOutcome records how a delivery was acknowledged. Dropped deliveries
// are warnings: the provider will not resend them, so they need a human.
func logWebhookOutcome(ctx context.Context, res application.WebhookResult) {
	fields := []any{
		"operation", "stripe_webhook",
		"outcome", string(res.Outcome),
		"event_id", res.EventID,
		"event_type", res.EventType,
		"transaction_id", res.TransactionID,
		"request_id", requestIDFromContext(ctx),
	}
	if res.Outcome == domain.OutcomeDropped {
		httpLogger().WarnContext(ctx, "webhook acknowledged without settlement", append(fields, "reason", res.Reason)...)
		return
	}
	httpLogger().InfoContext(ctx, "webhook acknowledged", fields...)
}
