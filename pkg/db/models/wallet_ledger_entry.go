package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dishpatch/dishpatch-backend/pkg/enums"
)

// WalletLedgerEntry records an immutable money movement on a user's wallet.
// The ledger is the system of record: a user's balance is the sum of their
// entries. Debits are stored with a negative amount.
type WalletLedgerEntry struct {
	ID            uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID        uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Type          enums.LedgerEntryType `gorm:"column:type;type:ledger_entry_type_enum;not null"`
	AmountCents   int                   `gorm:"column:amount_cents;not null"`
	SourceOrderID *uuid.UUID            `gorm:"column:source_order_id;type:uuid"`
	Remarks       string                `gorm:"column:remarks;not null;default:''"`
	CreatedAt     time.Time             `gorm:"column:created_at;autoCreateTime"`
}

// WalletAccount holds the per-user cached balance and serves as the row that
// concurrent debits lock. The cached value is rebuildable by replaying the
// ledger and is never the system of record.
type WalletAccount struct {
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	BalanceCents int       `gorm:"column:balance_cents;not null;default:0"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
