package ports

import (
	"context"
	"time"

	"github.com/campus-music/campus-music-sub001/internal/domain"
)

// LedgerStore is the durable home of support records and artist wallets.
// WithinTx is the only path that mutates either table.
type LedgerStore interface {
	WithinTx(ctx context.Context, fn func(tx LedgerTx) error) error
	ListSupportsByArtist(ctx context.Context, artistID string, limit, offset int) ([]domain.SupportRecord, error)
	GetWallet(ctx context.Context, artistID string) (domain.ArtistWallet, error)
	ReconcileWallets(ctx context.Context) ([]domain.WalletDiscrepancy, error)
}

// LedgerTx is a unit of work opened by LedgerStore.WithinTx.
// InsertSupport returns domain.ErrDuplicateTransaction when the transaction id already exists.
type LedgerTx interface {
	FindSupportByTransactionID(ctx context.Context, transactionID string) (*domain.SupportRecord, error)
	InsertSupport(ctx context.Context, record domain.SupportRecord) error
	UpsertWalletAdditive(ctx context.Context, artistID string, amount int64, at time.Time) error
	EnqueueOutbox(ctx context.Context, event OutboxEvent) error
}
