package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campus-music/campus-music-sub001/internal/domain"
	"github.com/campus-music/campus-music-sub001/internal/ports"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerStore persists support records and artist wallets in Postgres.
type LedgerStore struct {
	db *gorm.DB
}

func NewLedgerStore(db *gorm.DB) *LedgerStore {
	return &LedgerStore{db: db}
}

// WithinTx runs fn in a single database transaction. Any error returned by fn
// rolls back every write made through tx.
func (s *LedgerStore) WithinTx(ctx context.Context, fn func(tx ports.LedgerTx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerTx{db: tx})
	})
}

func (s *LedgerStore) ListSupportsByArtist(ctx context.Context, artistID string, limit, offset int) ([]domain.SupportRecord, error) {
	q := s.db.WithContext(ctx).
		Where("artist_id = ?", strings.TrimSpace(artistID)).
		Order("created_at DESC").
		Order("transaction_id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var rows []supportRecordModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.SupportRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomainSupport(row))
	}
	return out, nil
}

func (s *LedgerStore) GetWallet(ctx context.Context, artistID string) (domain.ArtistWallet, error) {
	var row artistWalletModel
	err := s.db.WithContext(ctx).Where("artist_id = ?", strings.TrimSpace(artistID)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ArtistWallet{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.ArtistWallet{}, err
	}
	return toDomainWallet(row), nil
}

const reconcileWalletsSQL = `
SELECT w.artist_id AS artist_id, w.total_received AS total_received, w.balance AS balance, COALESCE(s.support_sum, 0) AS support_sum
FROM artist_wallets w
LEFT JOIN (
    SELECT artist_id, CAST(SUM(amount) AS BIGINT) AS support_sum FROM support_records GROUP BY artist_id
) s ON s.artist_id = w.artist_id
WHERE COALESCE(s.support_sum, 0) <> w.total_received
   OR w.balance > w.total_received
   OR w.balance < 0
UNION ALL
SELECT r.artist_id AS artist_id, 0 AS total_received, 0 AS balance, CAST(SUM(r.amount) AS BIGINT) AS support_sum
FROM support_records r
LEFT JOIN artist_wallets w ON w.artist_id = r.artist_id
WHERE w.artist_id IS NULL
GROUP BY r.artist_id
ORDER BY artist_id`

// ReconcileWallets returns wallets that disagree with the sum of their support
// records, plus artists with supports but no wallet row.
func (s *LedgerStore) ReconcileWallets(ctx context.Context) ([]domain.WalletDiscrepancy, error) {
	var rows []walletDiscrepancyRow
	if err := s.db.WithContext(ctx).Raw(reconcileWalletsSQL).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.WalletDiscrepancy, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.WalletDiscrepancy{
			ArtistID:      row.ArtistID,
			TotalReceived: row.TotalReceived,
			Balance:       row.Balance,
			SupportSum:    row.SupportSum,
		})
	}
	return out, nil
}

type ledgerTx struct {
	db *gorm.DB
}

func (t *ledgerTx) FindSupportByTransactionID(ctx context.Context, transactionID string) (*domain.SupportRecord, error) {
	var row supportRecordModel
	err := t.db.WithContext(ctx).Where("transaction_id = ?", transactionID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec := toDomainSupport(row)
	return &rec, nil
}

func (t *ledgerTx) InsertSupport(ctx context.Context, record domain.SupportRecord) error {
	row := fromDomainSupport(record)
	if err := t.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateTransaction
		}
		return err
	}
	return nil
}

// UpsertWalletAdditive creates the artist's wallet on first credit and otherwise
// increments it in place, so concurrent credits to one artist never overwrite each other.
func (t *ledgerTx) UpsertWalletAdditive(ctx context.Context, artistID string, amount int64, at time.Time) error {
	row := artistWalletModel{
		WalletID:      uuid.New(),
		ArtistID:      artistID,
		TotalReceived: amount,
		Balance:       amount,
		CreatedAt:     at.UTC(),
		UpdatedAt:     at.UTC(),
	}
	err := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "artist_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"total_received": gorm.Expr("artist_wallets.total_received + excluded.total_received"),
			"balance":        gorm.Expr("artist_wallets.balance + excluded.balance"),
			"updated_at":     at.UTC(),
		}),
	}).Create(&row).Error
	if isOutOfRange(err) {
		return fmt.Errorf("%w: artist %s", domain.ErrWalletOverflow, artistID)
	}
	return err
}

func (t *ledgerTx) EnqueueOutbox(ctx context.Context, event ports.OutboxEvent) error {
	row := settlementOutboxModel{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      string(event.Payload),
		CreatedAt:    event.OccurredAt.UTC(),
	}
	return t.db.WithContext(ctx).Create(&row).Error
}
