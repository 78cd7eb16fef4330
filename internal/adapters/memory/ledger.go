package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/campus-music/campus-music-sub001/internal/domain"
	"github.com/campus-music/campus-music-sub001/internal/ports"
	"github.com/google/uuid"
)

// FaultPoint names a ledger write that can be made to fail.
type FaultPoint string

const (
	FaultInsertSupport FaultPoint = "insert_support"
	FaultUpsertWallet  FaultPoint = "upsert_wallet"
	FaultEnqueueOutbox FaultPoint = "enqueue_outbox"
)

// LedgerStore keeps the support ledger in process memory. Transactions are
// serialized and staged against copies, so a failing unit of work leaves no trace.
type LedgerStore struct {
	mu       sync.Mutex
	supports map[string]domain.SupportRecord
	wallets  map[string]domain.ArtistWallet
	outbox   map[uuid.UUID]ports.OutboxRecord
	order    []uuid.UUID
	faults   map[FaultPoint]error
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		supports: map[string]domain.SupportRecord{},
		wallets:  map[string]domain.ArtistWallet{},
		outbox:   map[uuid.UUID]ports.OutboxRecord{},
		faults:   map[FaultPoint]error{},
	}
}

// SetFault makes every write at point fail with err. A nil err clears it.
func (s *LedgerStore) SetFault(point FaultPoint, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, point)
		return
	}
	s.faults[point] = err
}

func (s *LedgerStore) WithinTx(ctx context.Context, fn func(tx ports.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &ledgerTx{
		store:    s,
		supports: map[string]domain.SupportRecord{},
		wallets:  map[string]domain.ArtistWallet{},
	}
	if err := fn(tx); err != nil {
		return err
	}
	for key, row := range tx.supports {
		s.supports[key] = row
	}
	for key, row := range tx.wallets {
		s.wallets[key] = row
	}
	for _, row := range tx.outbox {
		s.outbox[row.OutboxID] = row
		s.order = append(s.order, row.OutboxID)
	}
	return nil
}

func (s *LedgerStore) ListSupportsByArtist(_ context.Context, artistID string, limit, offset int) ([]domain.SupportRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := strings.TrimSpace(artistID)
	out := make([]domain.SupportRecord, 0)
	for _, row := range s.supports {
		if row.ArtistID == id {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].TransactionID > out[j].TransactionID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return []domain.SupportRecord{}, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (s *LedgerStore) GetWallet(_ context.Context, artistID string) (domain.ArtistWallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.wallets[strings.TrimSpace(artistID)]
	if !ok {
		return domain.ArtistWallet{}, domain.ErrNotFound
	}
	return row, nil
}

func (s *LedgerStore) ReconcileWallets(_ context.Context) ([]domain.WalletDiscrepancy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sums := map[string]int64{}
	for _, row := range s.supports {
		sums[row.ArtistID] += row.Amount
	}
	out := make([]domain.WalletDiscrepancy, 0)
	for artistID, wallet := range s.wallets {
		if sums[artistID] != wallet.TotalReceived || wallet.CheckInvariant() != nil {
			out = append(out, domain.WalletDiscrepancy{
				ArtistID:      artistID,
				TotalReceived: wallet.TotalReceived,
				Balance:       wallet.Balance,
				SupportSum:    sums[artistID],
			})
		}
	}
	for artistID, sum := range sums {
		if _, ok := s.wallets[artistID]; !ok {
			out = append(out, domain.WalletDiscrepancy{ArtistID: artistID, SupportSum: sum})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ArtistID < out[j].ArtistID })
	return out, nil
}

// OverwriteWallet replaces a wallet row outside any settlement. Reconciliation
// tooling and tests use it to simulate drift.
func (s *LedgerStore) OverwriteWallet(wallet domain.ArtistWallet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.wallets[wallet.ArtistID] = wallet
}

// SupportCount reports how many support records exist.
func (s *LedgerStore) SupportCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.supports)
}

// OutboxRepository exposes the store's outbox to the outbox worker.
func (s *LedgerStore) OutboxRepository() *OutboxRepository {
	return &OutboxRepository{store: s}
}

type ledgerTx struct {
	store    *LedgerStore
	supports map[string]domain.SupportRecord
	wallets  map[string]domain.ArtistWallet
	outbox   []ports.OutboxRecord
}

func (t *ledgerTx) FindSupportByTransactionID(_ context.Context, transactionID string) (*domain.SupportRecord, error) {
	if row, ok := t.supports[transactionID]; ok {
		return &row, nil
	}
	if row, ok := t.store.supports[transactionID]; ok {
		return &row, nil
	}
	return nil, nil
}

func (t *ledgerTx) InsertSupport(_ context.Context, record domain.SupportRecord) error {
	if err := t.store.faults[FaultInsertSupport]; err != nil {
		return err
	}
	if _, ok := t.store.supports[record.TransactionID]; ok {
		return domain.ErrDuplicateTransaction
	}
	if _, ok := t.supports[record.TransactionID]; ok {
		return domain.ErrDuplicateTransaction
	}
	t.supports[record.TransactionID] = record
	return nil
}

func (t *ledgerTx) UpsertWalletAdditive(_ context.Context, artistID string, amount int64, at time.Time) error {
	if err := t.store.faults[FaultUpsertWallet]; err != nil {
		return err
	}
	wallet, ok := t.wallets[artistID]
	if !ok {
		wallet, ok = t.store.wallets[artistID]
	}
	if !ok {
		wallet = domain.ArtistWallet{WalletID: uuid.New(), ArtistID: artistID, CreatedAt: at}
	}
	if amount > math.MaxInt64-wallet.TotalReceived || amount > math.MaxInt64-wallet.Balance {
		return fmt.Errorf("%w: artist %s", domain.ErrWalletOverflow, artistID)
	}
	wallet.TotalReceived += amount
	wallet.Balance += amount
	wallet.UpdatedAt = at
	t.wallets[artistID] = wallet
	return nil
}

func (t *ledgerTx) EnqueueOutbox(_ context.Context, event ports.OutboxEvent) error {
	if err := t.store.faults[FaultEnqueueOutbox]; err != nil {
		return err
	}
	t.outbox = append(t.outbox, ports.OutboxRecord{
		OutboxID:     event.EventID,
		EventType:    event.EventType,
		PartitionKey: event.PartitionKey,
		Payload:      append([]byte(nil), event.Payload...),
		CreatedAt:    event.OccurredAt,
	})
	return nil
}

// OutboxRepository implements ports.OutboxRepository over a LedgerStore.
type OutboxRepository struct {
	store *LedgerStore
}

func (r *OutboxRepository) FetchUnpublished(_ context.Context, limit int) ([]ports.OutboxRecord, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	out := make([]ports.OutboxRecord, 0, limit)
	for _, id := range r.store.order {
		row, ok := r.store.outbox[id]
		if !ok || row.PublishedAt != nil {
			continue
		}
		out = append(out, row)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *OutboxRepository) MarkPublished(_ context.Context, outboxID uuid.UUID, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	row, ok := r.store.outbox[outboxID]
	if !ok {
		return domain.ErrNotFound
	}
	row.PublishedAt = &at
	r.store.outbox[outboxID] = row
	return nil
}

func (r *OutboxRepository) MarkFailed(_ context.Context, outboxID uuid.UUID, errMsg string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	row, ok := r.store.outbox[outboxID]
	if !ok {
		return domain.ErrNotFound
	}
	row.RetryCount++
	row.LastError = &errMsg
	row.LastErrorAt = &at
	r.store.outbox[outboxID] = row
	return nil
}
