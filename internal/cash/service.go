package cash

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/dishpatch-backend/internal/orders"
	"github.com/dishpatch/dishpatch-backend/internal/wallet"
	dbpkg "github.com/dishpatch/dishpatch-backend/pkg/db"
	"github.com/dishpatch/dishpatch-backend/pkg/db/models"
	"github.com/dishpatch/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/dishpatch-backend/pkg/errors"
	"github.com/dishpatch/dishpatch-backend/pkg/metrics"
	"github.com/dishpatch/dishpatch-backend/pkg/outbox"
	"github.com/dishpatch/dishpatch-backend/pkg/outbox/payloads"
)

// cashbackOnceConstraint backs the at-most-once guarantee for change credits.
// One cashback ledger entry per source order, enforced by the database.
const cashbackOnceConstraint = "ux_wallet_ledger_cashback_once"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// RecordInput captures cash physically handed over by the customer.
type RecordInput struct {
	OrderID              uuid.UUID
	CollectedAmountCents int
	MarkDelivered        bool
	ActorUserID          uuid.UUID
	ActorRole            string
}

// CreditChangeInput routes overpaid change into the customer wallet
// instead of physical change.
type CreditChangeInput struct {
	OrderID     uuid.UUID
	UserID      uuid.UUID
	AmountCents int
	Reason      string
	ActorUserID uuid.UUID
	ActorRole   string
}

// Receipt is the order snapshot after a cash collection plus the change
// still owed to the customer.
type Receipt struct {
	Order          models.Order
	ChangeDueCents int
}

// Service reconciles collected cash against the order total. It never
// invents money: change is either handed back physically or converted,
// at most once per order, into a wallet credit.
type Service interface {
	RecordCashCollected(ctx context.Context, input RecordInput) (*Receipt, error)
	CreditChangeToWallet(ctx context.Context, input CreditChangeInput) (*models.Order, error)
}

type service struct {
	orders     orders.Repository
	lifecycle  orders.Service
	wallet     wallet.Service
	walletRepo wallet.Repository
	tx         txRunner
	outbox     outboxPublisher
	metrics    *metrics.OrderMetrics
}

// NewService builds the cash reconciliation service.
// Metrics may be nil; the metrics helpers no-op without a registry.
func NewService(ordersRepo orders.Repository, lifecycle orders.Service, walletSvc wallet.Service, walletRepo wallet.Repository, tx txRunner, outboxSvc outboxPublisher, orderMetrics *metrics.OrderMetrics) (Service, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if lifecycle == nil {
		return nil, fmt.Errorf("order lifecycle service required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if walletRepo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		orders:     ordersRepo,
		lifecycle:  lifecycle,
		wallet:     walletSvc,
		walletRepo: walletRepo,
		tx:         tx,
		outbox:     outboxSvc,
		metrics:    orderMetrics,
	}, nil
}

func (s *service) RecordCashCollected(ctx context.Context, input RecordInput) (*Receipt, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.CollectedAmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "collected amount must be positive")
	}

	var receipt *Receipt
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
		}
		if order.PaymentMethod != enums.PaymentMethodCash {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is not cash on delivery")
		}
		// Once change has been credited the collected amount is clamped to
		// the order total; re-recording would undo that reconciliation.
		if order.ChangeAmountCents != nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "change already credited for order")
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"collected_amount_cents": input.CollectedAmountCents,
			"collected_at":           now,
			"updated_at":             now,
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record cash collection")
		}
		collected := input.CollectedAmountCents
		order.CollectedAmountCents = &collected
		order.CollectedAt = &now
		order.UpdatedAt = now

		var agentID uuid.UUID
		if order.AssignedAgentID != nil {
			agentID = *order.AssignedAgentID
		}
		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCashCollected,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: payloads.CashCollectedEvent{
				OrderID:              order.ID,
				TenantID:             order.TenantID,
				AgentID:              agentID,
				CollectedAmountCents: input.CollectedAmountCents,
				FinalAmountCents:     order.FinalAmountCents,
				CollectedAt:          now,
			},
		}); err != nil {
			return err
		}
		s.metrics.IncCashCollected()

		if input.MarkDelivered {
			delivered, err := s.lifecycle.TransitionTx(ctx, tx, orders.TransitionInput{
				OrderID:     order.ID,
				Target:      enums.OrderStatusDelivered,
				ActorUserID: input.ActorUserID,
				ActorRole:   input.ActorRole,
			})
			if err != nil {
				return err
			}
			order = delivered
		}

		receipt = &Receipt{Order: *order, ChangeDueCents: order.ChangeDueCents()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

func (s *service) CreditChangeToWallet(ctx context.Context, input CreditChangeInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "change amount must be positive")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason required")
	}

	var snapshot *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.ChangeAmountCents != nil {
			return pkgerrors.New(pkgerrors.CodeIdempotency, "change already credited")
		}
		if order.CollectedAmountCents == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no cash recorded for order")
		}
		if input.AmountCents > order.ChangeDueCents() {
			return pkgerrors.New(pkgerrors.CodeValidation, "change amount exceeds change due")
		}

		// The cashback ledger entry is the commit point. If one already
		// exists for this order the money has moved; finish the order-side
		// bookkeeping instead of crediting twice.
		existing, err := s.walletRepo.WithTx(tx).FindEntryByOrderAndType(ctx, order.ID, enums.LedgerEntryTypeCashback)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing cashback entry")
		}

		entry := existing
		if entry == nil {
			orderID := order.ID
			entry, err = s.wallet.CreditTx(ctx, tx, wallet.CreditInput{
				UserID:        input.UserID,
				Type:          enums.LedgerEntryTypeCashback,
				AmountCents:   input.AmountCents,
				SourceOrderID: &orderID,
				Remarks:       input.Reason,
				ActorUserID:   input.ActorUserID,
				ActorRole:     input.ActorRole,
			})
			if err != nil {
				if dbpkg.IsUniqueViolation(err, cashbackOnceConstraint) {
					return pkgerrors.New(pkgerrors.CodeIdempotency, "change already credited")
				}
				return err
			}
		}

		now := time.Now().UTC()
		updates := map[string]any{
			"change_amount_cents":    entry.AmountCents,
			"change_reason":          input.Reason,
			"collected_amount_cents": order.FinalAmountCents,
			"updated_at":             now,
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle order change fields")
		}

		changeAmount := entry.AmountCents
		collected := order.FinalAmountCents
		reason := input.Reason
		order.ChangeAmountCents = &changeAmount
		order.ChangeReason = &reason
		order.CollectedAmountCents = &collected
		order.UpdatedAt = now
		snapshot = order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventChangeCredited,
			AggregateType: enums.AggregateWalletLedger,
			AggregateID:   entry.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: payloads.ChangeCreditedEvent{
				OrderID:           order.ID,
				CustomerID:        input.UserID,
				ChangeAmountCents: entry.AmountCents,
				LedgerEntryID:     entry.ID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func buildActor(userID uuid.UUID, role string) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: role}
}
