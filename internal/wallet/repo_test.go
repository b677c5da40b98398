package wallet

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dishpatch/dishpatch-backend/pkg/db/models"
	"github.com/dishpatch/dishpatch-backend/pkg/enums"
	"github.com/dishpatch/dishpatch-backend/pkg/pagination"
)

func setupWalletTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE wallet_accounts (
			user_id TEXT PRIMARY KEY,
			balance_cents INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE wallet_ledger_entries (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			amount_cents INTEGER NOT NULL,
			source_order_id TEXT,
			remarks TEXT NOT NULL DEFAULT '',
			created_at DATETIME
		)`,
		`CREATE UNIQUE INDEX ux_wallet_ledger_cashback_once
			ON wallet_ledger_entries (source_order_id, type)
			WHERE type = 'cashback'`,
	}
	for _, stmt := range ddl {
		require.NoError(t, gdb.Exec(stmt).Error)
	}
	return gdb
}

func seedEntry(t *testing.T, gdb *gorm.DB, userID uuid.UUID, entryType enums.LedgerEntryType, amountCents int, createdAt time.Time) *models.WalletLedgerEntry {
	t.Helper()
	entry := &models.WalletLedgerEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        entryType,
		AmountCents: amountCents,
		CreatedAt:   createdAt,
	}
	require.NoError(t, gdb.Create(entry).Error)
	return entry
}

func TestRepositoryAppendAndSumLedger(t *testing.T) {
	gdb := setupWalletTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()
	userID := uuid.New()

	sum, err := repo.SumLedger(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 0, sum, "empty ledger sums to zero")

	now := time.Now().UTC()
	_, err = repo.AppendEntry(ctx, &models.WalletLedgerEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        enums.LedgerEntryTypeCredit,
		AmountCents: 7500,
		CreatedAt:   now,
	})
	require.NoError(t, err)
	_, err = repo.AppendEntry(ctx, &models.WalletLedgerEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        enums.LedgerEntryTypeDebit,
		AmountCents: -2500,
		CreatedAt:   now.Add(time.Second),
	})
	require.NoError(t, err)

	// Another user's entries must not bleed into the sum.
	seedEntry(t, gdb, uuid.New(), enums.LedgerEntryTypeCredit, 99999, now)

	sum, err = repo.SumLedger(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5000, sum)
}

func TestRepositoryFindEntryByOrderAndType(t *testing.T) {
	gdb := setupWalletTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	orderID := uuid.New()
	entry := &models.WalletLedgerEntry{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Type:          enums.LedgerEntryTypeCashback,
		AmountCents:   5000,
		SourceOrderID: &orderID,
		CreatedAt:     time.Now().UTC(),
	}
	_, err := repo.AppendEntry(ctx, entry)
	require.NoError(t, err)

	found, err := repo.FindEntryByOrderAndType(ctx, orderID, enums.LedgerEntryTypeCashback)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, entry.ID, found.ID)
	assert.Equal(t, 5000, found.AmountCents)

	missing, err := repo.FindEntryByOrderAndType(ctx, uuid.New(), enums.LedgerEntryTypeCashback)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepositoryCashbackUniquePerOrder(t *testing.T) {
	gdb := setupWalletTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	orderID := uuid.New()
	now := time.Now().UTC()
	_, err := repo.AppendEntry(ctx, &models.WalletLedgerEntry{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Type:          enums.LedgerEntryTypeCashback,
		AmountCents:   3000,
		SourceOrderID: &orderID,
		CreatedAt:     now,
	})
	require.NoError(t, err)

	_, err = repo.AppendEntry(ctx, &models.WalletLedgerEntry{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Type:          enums.LedgerEntryTypeCashback,
		AmountCents:   3000,
		SourceOrderID: &orderID,
		CreatedAt:     now,
	})
	require.Error(t, err, "second cashback entry for the same order must violate the partial unique index")

	// Non-cashback entries for the same order are unrestricted.
	_, err = repo.AppendEntry(ctx, &models.WalletLedgerEntry{
		ID:            uuid.New(),
		UserID:        uuid.New(),
		Type:          enums.LedgerEntryTypeDebit,
		AmountCents:   -1000,
		SourceOrderID: &orderID,
		CreatedAt:     now,
	})
	require.NoError(t, err)
}

func TestRepositoryListEntriesPaginates(t *testing.T) {
	gdb := setupWalletTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()
	userID := uuid.New()

	base := time.Now().UTC().Truncate(time.Second)
	for i := 0; i < 5; i++ {
		seedEntry(t, gdb, userID, enums.LedgerEntryTypeCredit, (i+1)*100, base.Add(time.Duration(i)*time.Minute))
	}

	page, err := repo.ListEntries(ctx, userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	require.NotNil(t, page.NextCursor)
	assert.Equal(t, 500, page.Entries[0].AmountCents, "newest entry first")
	assert.Equal(t, 400, page.Entries[1].AmountCents)

	page2, err := repo.ListEntries(ctx, userID, pagination.Params{
		Limit:  2,
		Cursor: pagination.EncodeCursor(*page.NextCursor),
	})
	require.NoError(t, err)
	require.Len(t, page2.Entries, 2)
	assert.Equal(t, 300, page2.Entries[0].AmountCents)
	assert.Equal(t, 200, page2.Entries[1].AmountCents)

	page3, err := repo.ListEntries(ctx, userID, pagination.Params{
		Limit:  2,
		Cursor: pagination.EncodeCursor(*page2.NextCursor),
	})
	require.NoError(t, err)
	require.Len(t, page3.Entries, 1)
	assert.Equal(t, 100, page3.Entries[0].AmountCents)
	assert.Nil(t, page3.NextCursor)
}

func TestRepositoryAccountBalanceRoundTrip(t *testing.T) {
	gdb := setupWalletTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()
	userID := uuid.New()

	require.NoError(t, gdb.Create(&models.WalletAccount{UserID: userID}).Error)

	require.NoError(t, repo.UpdateAccountBalance(ctx, userID, 12500))
	account, err := repo.GetAccount(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 12500, account.BalanceCents)
}

func TestRepositoryListAccountUserIDs(t *testing.T) {
	gdb := setupWalletTestDB(t)
	repo := NewRepository(gdb)
	ctx := context.Background()

	ids := make([]uuid.UUID, 0, 3)
	for i := 0; i < 3; i++ {
		id := uuid.New()
		ids = append(ids, id)
		require.NoError(t, gdb.Create(&models.WalletAccount{UserID: id}).Error)
	}

	first, err := repo.ListAccountUserIDs(ctx, 2, nil)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.True(t, first[0].String() < first[1].String(), "pages are ordered by user id")

	rest, err := repo.ListAccountUserIDs(ctx, 2, &first[1])
	require.NoError(t, err)
	require.Len(t, rest, 1)

	seen := map[uuid.UUID]bool{first[0]: true, first[1]: true, rest[0]: true}
	for _, id := range ids {
		assert.True(t, seen[id], "all accounts visited across pages")
	}
}
