package postgres

import (
	"time"

	"github.com/google/uuid"
)

type supportRecordModel struct {
	SupportID     uuid.UUID `gorm:"column:support_id;type:uuid;primaryKey"`
	SupporterID   string    `gorm:"column:supporter_id"`
	ArtistID      string    `gorm:"column:artist_id"`
	Amount        int64     `gorm:"column:amount"`
	PaymentMethod string    `gorm:"column:payment_method"`
	Message       string    `gorm:"column:message"`
	Status        string    `gorm:"column:status"`
	TransactionID string    `gorm:"column:transaction_id"`
	CreatedAt     time.Time `gorm:"column:created_at"`
}

func (supportRecordModel) TableName() string { return "support_records" }

type artistWalletModel struct {
	WalletID      uuid.UUID `gorm:"column:wallet_id;type:uuid;primaryKey"`
	ArtistID      string    `gorm:"column:artist_id"`
	TotalReceived int64     `gorm:"column:total_received"`
	Balance       int64     `gorm:"column:balance"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (artistWalletModel) TableName() string { return "artist_wallets" }

type settlementOutboxModel struct {
	OutboxID     uuid.UUID  `gorm:"column:outbox_id;type:uuid;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      string     `gorm:"column:payload;type:jsonb"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
	RetryCount   int        `gorm:"column:retry_count"`
	LastError    *string    `gorm:"column:last_error"`
	LastErrorAt  *time.Time `gorm:"column:last_error_at"`
}

func (settlementOutboxModel) TableName() string { return "settlement_outbox" }

type walletDiscrepancyRow struct {
	ArtistID      string `gorm:"column:artist_id"`
	TotalReceived int64  `gorm:"column:total_received"`
	Balance       int64  `gorm:"column:balance"`
	SupportSum    int64  `gorm:"column:support_sum"`
}
