package bootstrap

import (
	"context"
	"fmt"

	"github.com/campus-music/campus-music-sub001/internal/adapters/memory"
	"github.com/campus-music/campus-music-sub001/internal/adapters/postgres"
	"github.com/campus-music/campus-music-sub001/internal/ports"
)

// Ledger bundles the configured ledger backend with its outbox and lifecycle hooks.
type Ledger struct {
	Store  ports.LedgerStore
	Outbox ports.OutboxRepository
	Ping   func(ctx context.Context) error
	// Migrate applies schema migrations; it is a no-op for the memory driver.
	Migrate func(ctx context.Context) error
	Close   func()
}

func OpenLedger(ctx context.Context, cfg Config) (*Ledger, error) {
	if cfg.LedgerDriver == LedgerDriverMemory {
		store := memory.NewLedgerStore()
		return &Ledger{
			Store:   store,
			Outbox:  store.OutboxRepository(),
			Ping:    func(context.Context) error { return nil },
			Migrate: func(context.Context) error { return nil },
			Close:   func() {},
		}, nil
	}

	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gorm sql db: %w", err)
	}
	return &Ledger{
		Store:   postgres.NewLedgerStore(db),
		Outbox:  postgres.NewOutboxRepository(db),
		Ping:    func(ctx context.Context) error { return postgres.Ping(ctx, db) },
		Migrate: func(ctx context.Context) error { return postgres.RunMigrations(ctx, db) },
		Close:   func() { _ = sqlDB.Close() },
	}, nil
}
