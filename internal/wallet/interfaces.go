package wallet

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/dishpatch-backend/pkg/db/models"
	"github.com/dishpatch/dishpatch-backend/pkg/enums"
	"github.com/dishpatch/dishpatch-backend/pkg/pagination"
)

// Repository defines persistence operations for the wallet ledger and the
// cached per-user account row.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// GetOrCreateAccountForUpdate locks the user's account row for the
	// caller's transaction, creating it with a zero balance when absent.
	// The row is the serialization point for concurrent debits.
	GetOrCreateAccountForUpdate(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error)
	GetAccount(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error)
	AppendEntry(ctx context.Context, entry *models.WalletLedgerEntry) (*models.WalletLedgerEntry, error)
	UpdateAccountBalance(ctx context.Context, userID uuid.UUID, balanceCents int) error
	// SumLedger replays the user's full ledger. The result is the
	// authoritative balance.
	SumLedger(ctx context.Context, userID uuid.UUID) (int, error)
	FindEntryByOrderAndType(ctx context.Context, orderID uuid.UUID, entryType enums.LedgerEntryType) (*models.WalletLedgerEntry, error)
	ListEntries(ctx context.Context, userID uuid.UUID, params pagination.Params) (*LedgerList, error)
	ListAccountUserIDs(ctx context.Context, limit int, after *uuid.UUID) ([]uuid.UUID, error)
}

// LedgerList is one page of ledger entries plus the next-page cursor.
type LedgerList struct {
	Entries    []models.WalletLedgerEntry
	NextCursor *pagination.Cursor
}
