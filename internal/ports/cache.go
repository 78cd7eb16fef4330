package ports

import (
	"context"
	"time"
)

// SettledTransactionCache remembers transaction ids that already reached the ledger.
// It is an optimization in front of the ledger's uniqueness constraint, never a replacement.
type SettledTransactionCache interface {
	IsSettled(ctx context.Context, transactionID string) (bool, error)
	MarkSettled(ctx context.Context, transactionID string, ttl time.Duration) error
}
