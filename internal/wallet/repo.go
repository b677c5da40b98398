package wallet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dishpatch/dishpatch-backend/pkg/db/models"
	"github.com/dishpatch/dishpatch-backend/pkg/enums"
	"github.com/dishpatch/dishpatch-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a wallet repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetOrCreateAccountForUpdate(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error) {
	account := models.WalletAccount{UserID: userID}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&account).Error
	if err != nil {
		return nil, err
	}

	var row models.WalletAccount
	err = r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) GetAccount(ctx context.Context, userID uuid.UUID) (*models.WalletAccount, error) {
	var row models.WalletAccount
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) AppendEntry(ctx context.Context, entry *models.WalletLedgerEntry) (*models.WalletLedgerEntry, error) {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (r *repository) UpdateAccountBalance(ctx context.Context, userID uuid.UUID, balanceCents int) error {
	return r.db.WithContext(ctx).
		Model(&models.WalletAccount{}).
		Where("user_id = ?", userID).
		Update("balance_cents", balanceCents).Error
}

func (r *repository) SumLedger(ctx context.Context, userID uuid.UUID) (int, error) {
	var total *int
	err := r.db.WithContext(ctx).
		Model(&models.WalletLedgerEntry{}).
		Where("user_id = ?", userID).
		Select("SUM(amount_cents)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *repository) FindEntryByOrderAndType(ctx context.Context, orderID uuid.UUID, entryType enums.LedgerEntryType) (*models.WalletLedgerEntry, error) {
	var entry models.WalletLedgerEntry
	err := r.db.WithContext(ctx).
		Where("source_order_id = ? AND type = ?", orderID, entryType).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListEntries(ctx context.Context, userID uuid.UUID, params pagination.Params) (*LedgerList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.WalletLedgerEntry{}).
		Where("user_id = ?", userID)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.WalletLedgerEntry
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &LedgerList{Entries: rows}
	if len(rows) > limit {
		list.Entries = rows[:limit]
		last := list.Entries[limit-1]
		list.NextCursor = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return list, nil
}

func (r *repository) ListAccountUserIDs(ctx context.Context, limit int, after *uuid.UUID) ([]uuid.UUID, error) {
	if limit <= 0 {
		limit = 100
	}
	query := r.db.WithContext(ctx).
		Model(&models.WalletAccount{}).
		Order("user_id ASC").
		Limit(limit)
	if after != nil {
		query = query.Where("user_id > ?", *after)
	}
	var ids []uuid.UUID
	err := query.Pluck("user_id", &ids).Error
	return ids, err
}
