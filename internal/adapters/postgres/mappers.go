package postgres

import (
	"errors"

	"github.com/campus-music/campus-music-sub001/internal/domain"
	"github.com/campus-music/campus-music-sub001/internal/ports"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

func toDomainSupport(row supportRecordModel) domain.SupportRecord {
	return domain.SupportRecord{
		SupportID:     row.SupportID,
		SupporterID:   row.SupporterID,
		ArtistID:      row.ArtistID,
		Amount:        row.Amount,
		PaymentMethod: row.PaymentMethod,
		Message:       row.Message,
		Status:        row.Status,
		TransactionID: row.TransactionID,
		CreatedAt:     row.CreatedAt.UTC(),
	}
}

func fromDomainSupport(rec domain.SupportRecord) supportRecordModel {
	return supportRecordModel{
		SupportID:     rec.SupportID,
		SupporterID:   rec.SupporterID,
		ArtistID:      rec.ArtistID,
		Amount:        rec.Amount,
		PaymentMethod: rec.PaymentMethod,
		Message:       rec.Message,
		Status:        rec.Status,
		TransactionID: rec.TransactionID,
		CreatedAt:     rec.CreatedAt.UTC(),
	}
}

func toDomainWallet(row artistWalletModel) domain.ArtistWallet {
	return domain.ArtistWallet{
		WalletID:      row.WalletID,
		ArtistID:      row.ArtistID,
		TotalReceived: row.TotalReceived,
		Balance:       row.Balance,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
}

func toOutboxRecord(row settlementOutboxModel) ports.OutboxRecord {
	return ports.OutboxRecord{
		OutboxID:     row.OutboxID,
		EventType:    row.EventType,
		PartitionKey: row.PartitionKey,
		Payload:      []byte(row.Payload),
		RetryCount:   row.RetryCount,
		CreatedAt:    row.CreatedAt,
		PublishedAt:  row.PublishedAt,
		LastError:    row.LastError,
		LastErrorAt:  row.LastErrorAt,
	}
}

func isUniqueViolation(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// isOutOfRange matches numeric_value_out_of_range, raised when a bigint sum overflows.
func isOutOfRange(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "22003"
}
