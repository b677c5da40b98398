package wallet

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/dishpatch-backend/pkg/errors"
	"github.com/dishpatch/dishpatch-backend/pkg/metrics"
	"github.com/dishpatch/dishpatch-backend/pkg/outbox"
	"github.com/dishpatch/dishpatch-backend/pkg/outbox/payloads"
	"github.com/dishpatch/dishpatch-backend/pkg/pagination"

	"github.com/dishpatch/dishpatch-backend/pkg/db/models"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CreditInput adds money to a user's wallet.
type CreditInput struct {
	UserID        uuid.UUID
	Type          enums.LedgerEntryType
	AmountCents   int
	SourceOrderID *uuid.UUID
	Remarks       string
	ActorUserID   uuid.UUID
	ActorRole     string
}

// DebitInput spends from a user's wallet.
type DebitInput struct {
	UserID        uuid.UUID
	AmountCents   int
	SourceOrderID *uuid.UUID
	Remarks       string
	ActorUserID   uuid.UUID
	ActorRole     string
}

// Service moves money on the append-only wallet ledger. The ledger is the
// system of record; the account row exists for locking and cached reads.
type Service interface {
	Credit(ctx context.Context, input CreditInput) (*models.WalletLedgerEntry, error)
	// CreditTx runs a credit inside a caller-owned transaction so callers
	// can make the ledger write atomic with their own aggregate updates.
	CreditTx(ctx context.Context, tx *gorm.DB, input CreditInput) (*models.WalletLedgerEntry, error)
	Debit(ctx context.Context, input DebitInput) (*models.WalletLedgerEntry, error)
	Balance(ctx context.Context, userID uuid.UUID) (int, error)
	Ledger(ctx context.Context, userID uuid.UUID, params pagination.Params) (*LedgerList, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	metrics *metrics.OrderMetrics
}

// NewService builds a wallet service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, orderMetrics *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc, metrics: orderMetrics}, nil
}

func (s *service) Credit(ctx context.Context, input CreditInput) (*models.WalletLedgerEntry, error) {
	var entry *models.WalletLedgerEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.CreditTx(ctx, tx, input)
		if err != nil {
			return err
		}
		entry = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) CreditTx(ctx context.Context, tx *gorm.DB, input CreditInput) (*models.WalletLedgerEntry, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if !input.Type.Inflow() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit requires an inflow entry type")
	}

	repo := s.repo.WithTx(tx)
	account, err := repo.GetOrCreateAccountForUpdate(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet account")
	}

	entry := &models.WalletLedgerEntry{
		UserID:        input.UserID,
		Type:          input.Type,
		AmountCents:   input.AmountCents,
		SourceOrderID: input.SourceOrderID,
		Remarks:       input.Remarks,
	}
	if _, err := repo.AppendEntry(ctx, entry); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
	}
	if err := repo.UpdateAccountBalance(ctx, input.UserID, account.BalanceCents+input.AmountCents); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cached balance")
	}

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventWalletCredited,
		AggregateType: enums.AggregateWalletLedger,
		AggregateID:   entry.ID,
		Version:       1,
		Actor:         buildActor(input.ActorUserID, input.ActorRole),
		Data: payloads.WalletCreditedEvent{
			UserID:        entry.UserID,
			EntryID:       entry.ID,
			Type:          entry.Type,
			AmountCents:   entry.AmountCents,
			SourceOrderID: entry.SourceOrderID,
		},
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncLedgerEntry(entry.Type.String())
	return entry, nil
}

func (s *service) Debit(ctx context.Context, input DebitInput) (*models.WalletLedgerEntry, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}

	var entry *models.WalletLedgerEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.GetOrCreateAccountForUpdate(ctx, input.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock wallet account")
		}

		// The balance check replays the ledger under the account lock so
		// concurrent debits cannot both observe a stale balance.
		balance, err := repo.SumLedger(ctx, input.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replay ledger")
		}
		if balance < input.AmountCents {
			return pkgerrors.New(pkgerrors.CodeInsufficientBalance, "insufficient wallet balance")
		}

		entry = &models.WalletLedgerEntry{
			UserID:        input.UserID,
			Type:          enums.LedgerEntryTypeDebit,
			AmountCents:   -input.AmountCents,
			SourceOrderID: input.SourceOrderID,
			Remarks:       input.Remarks,
		}
		if _, err := repo.AppendEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append ledger entry")
		}
		if err := repo.UpdateAccountBalance(ctx, input.UserID, balance-input.AmountCents); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cached balance")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWalletDebited,
			AggregateType: enums.AggregateWalletLedger,
			AggregateID:   entry.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: payloads.WalletDebitedEvent{
				UserID:        entry.UserID,
				EntryID:       entry.ID,
				AmountCents:   input.AmountCents,
				SourceOrderID: entry.SourceOrderID,
			},
		}); err != nil {
			return err
		}

		s.metrics.IncLedgerEntry(enums.LedgerEntryTypeDebit.String())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	balance, err := s.repo.SumLedger(ctx, userID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replay ledger")
	}
	return balance, nil
}

func (s *service) Ledger(ctx context.Context, userID uuid.UUID, params pagination.Params) (*LedgerList, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	list, err := s.repo.ListEntries(ctx, userID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	return list, nil
}

func buildActor(userID uuid.UUID, role string) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: role}
}
