package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/campus-music/campus-music-sub001/internal/domain"
	"github.com/campus-music/campus-music-sub001/internal/ports"
	"github.com/google/uuid"
)

type supportSettledPayload struct {
	SupportID     string `json:"support_id"`
	ArtistID      string `json:"artist_id"`
	SupporterID   string `json:"supporter_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	TransactionID string `json:"transaction_id"`
	SettledAt     string `json:"settled_at"`
}

// Settle applies a tip to the ledger with exactly-once effect per transaction id.
//
// The lookup inside the transaction is an optimistic check; the unique index on
// transaction_id is what actually stops two concurrent deliveries from both crediting.
// A conflict on insert rolls the whole transaction back and reports a duplicate.
func (s *Service) Settle(ctx context.Context, tip domain.TipSettlement) (SettlementResult, error) {
	tip = tip.Canonical()
	if err := tip.Validate(); err != nil {
		return SettlementResult{}, err
	}
	if tip.Amount > s.cfg.MaxTipAmount {
		return SettlementResult{}, fmt.Errorf("%w: amount %d exceeds tip ceiling %d", domain.ErrInvalidInput, tip.Amount, s.cfg.MaxTipAmount)
	}
	log := s.logger().With(
		"operation", "settle_tip",
		"transaction_id", tip.TransactionID,
		"artist_id", tip.ArtistID,
		"amount", tip.Amount,
	)

	if s.isKnownSettled(ctx, tip.TransactionID) {
		log.InfoContext(ctx, "settlement duplicate suppressed", "outcome", string(domain.OutcomeDuplicate), "source", "cache")
		return SettlementResult{Outcome: domain.OutcomeDuplicate}, nil
	}

	now := s.nowFn()
	record := domain.NewSupportRecord(tip, now)
	var existing *domain.SupportRecord
	err := s.ledger.WithinTx(ctx, func(tx ports.LedgerTx) error {
		found, err := tx.FindSupportByTransactionID(ctx, tip.TransactionID)
		if err != nil {
			return fmt.Errorf("find support by transaction id: %w", err)
		}
		if found != nil {
			existing = found
			return nil
		}
		if err := tx.InsertSupport(ctx, record); err != nil {
			return err
		}
		if err := tx.UpsertWalletAdditive(ctx, tip.ArtistID, tip.Amount, now); err != nil {
			return fmt.Errorf("upsert wallet: %w", err)
		}
		event, err := s.supportSettledEvent(record)
		if err != nil {
			return err
		}
		if err := tx.EnqueueOutbox(ctx, event); err != nil {
			return fmt.Errorf("enqueue support settled: %w", err)
		}
		return nil
	})

	switch {
	case errors.Is(err, domain.ErrDuplicateTransaction):
		log.InfoContext(ctx, "settlement duplicate suppressed", "outcome", string(domain.OutcomeDuplicate), "source", "unique_constraint")
		s.markSettled(ctx, tip.TransactionID)
		return SettlementResult{Outcome: domain.OutcomeDuplicate}, nil
	case errors.Is(err, domain.ErrWalletOverflow):
		log.ErrorContext(ctx, "settlement rejected", "outcome", "rejected", "error", err)
		return SettlementResult{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	case err != nil:
		log.ErrorContext(ctx, "settlement failed", "outcome", "failure", "error", err)
		if errors.Is(err, domain.ErrLedgerUnavailable) {
			return SettlementResult{}, err
		}
		return SettlementResult{}, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	case existing != nil:
		log.InfoContext(ctx, "settlement duplicate suppressed",
			"outcome", string(domain.OutcomeDuplicate),
			"source", "ledger_lookup",
			"support_id", existing.SupportID.String(),
		)
		s.markSettled(ctx, tip.TransactionID)
		return SettlementResult{Outcome: domain.OutcomeDuplicate, SupportID: existing.SupportID}, nil
	}

	log.InfoContext(ctx, "settlement applied",
		"outcome", string(domain.OutcomeSettled),
		"support_id", record.SupportID.String(),
		"supporter_id", tip.SupporterID,
	)
	s.markSettled(ctx, tip.TransactionID)
	return SettlementResult{Outcome: domain.OutcomeSettled, SupportID: record.SupportID}, nil
}

func (s *Service) supportSettledEvent(record domain.SupportRecord) (ports.OutboxEvent, error) {
	payload, err := json.Marshal(supportSettledPayload{
		SupportID:     record.SupportID.String(),
		ArtistID:      record.ArtistID,
		SupporterID:   record.SupporterID,
		Amount:        record.Amount,
		Currency:      s.cfg.LedgerCurrency,
		TransactionID: record.TransactionID,
		SettledAt:     record.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return ports.OutboxEvent{}, fmt.Errorf("marshal support settled: %w", err)
	}
	return ports.OutboxEvent{
		EventID:      uuid.New(),
		EventType:    domain.EventSupportSettled,
		PartitionKey: record.ArtistID,
		Payload:      payload,
		OccurredAt:   record.CreatedAt,
	}, nil
}

// isKnownSettled consults the settled-transaction cache. Cache failures fall through
// to the ledger.
func (s *Service) isKnownSettled(ctx context.Context, transactionID string) bool {
	if s.settled == nil {
		return false
	}
	ok, err := s.settled.IsSettled(ctx, transactionID)
	if err != nil {
		s.logger().WarnContext(ctx, "settled cache lookup failed",
			"operation", "settled_cache_lookup",
			"outcome", "failure",
			"transaction_id", transactionID,
			"error", err,
		)
		return false
	}
	return ok
}

func (s *Service) markSettled(ctx context.Context, transactionID string) {
	if s.settled == nil {
		return
	}
	if err := s.settled.MarkSettled(ctx, transactionID, s.cfg.SettledCacheTTL); err != nil {
		s.logger().WarnContext(ctx, "settled cache write failed",
			"operation", "settled_cache_mark",
			"outcome", "failure",
			"transaction_id", transactionID,
			"error", err,
		)
	}
}
