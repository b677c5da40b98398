package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/dishpatch-backend/internal/catalog"
	"github.com/dishpatch/dishpatch-backend/pkg/db/models"
	"github.com/dishpatch/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/dishpatch-backend/pkg/errors"
	"github.com/dishpatch/dishpatch-backend/pkg/outbox"
	"github.com/dishpatch/dishpatch-backend/pkg/outbox/payloads"
	"github.com/dishpatch/dishpatch-backend/pkg/types"
)

// Editor mutates the item list of a live order while keeping totals
// consistent. Every operation rejects terminal orders outright.
type Editor interface {
	AddItem(ctx context.Context, input AddItemInput) (*models.Order, error)
	UpdateQuantity(ctx context.Context, input UpdateQuantityInput) (*models.Order, error)
	RemoveItem(ctx context.Context, input RemoveItemInput) (*models.Order, error)
	RecalculateTotal(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
}

type editor struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	catalog catalog.Lookup
}

// NewEditor builds an order item editor with the required dependencies.
func NewEditor(repo Repository, tx txRunner, outboxSvc outboxPublisher, lookup catalog.Lookup) (Editor, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if lookup == nil {
		return nil, fmt.Errorf("catalog lookup required")
	}
	return &editor{repo: repo, tx: tx, outbox: outboxSvc, catalog: lookup}, nil
}

// Totals computes subtotal and final amount from the current line items.
// final = Σ(qty × unit + qty × Σ addon) − discount + delivery + surcharge,
// clamped at zero. Pure and idempotent.
func Totals(items []models.OrderItem, discountCents, deliveryChargeCents, surchargeCents int) (subtotal, final int) {
	for _, item := range items {
		subtotal += item.LineTotalCents()
	}
	final = subtotal - discountCents + deliveryChargeCents + surchargeCents
	if final < 0 {
		final = 0
	}
	return subtotal, final
}

func (e *editor) AddItem(ctx context.Context, input AddItemInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.MenuItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "menu item id required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	return e.mutate(ctx, input.OrderID, input.ActorUserID, input.ActorRole, func(repo Repository, order *models.Order) error {
		line, err := snapshotItem(ctx, e.catalog, order.RestaurantID, input.MenuItemID, input.Quantity, input.Notes)
		if err != nil {
			return err
		}
		line.OrderID = order.ID
		if _, err := repo.CreateItem(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order item")
		}
		order.Items = append(order.Items, *line)
		return nil
	})
}

func (e *editor) UpdateQuantity(ctx context.Context, input UpdateQuantityInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil || input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and item id required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	return e.mutate(ctx, input.OrderID, input.ActorUserID, input.ActorRole, func(repo Repository, order *models.Order) error {
		item, err := repo.FindItem(ctx, order.ID, input.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
		}
		if err := repo.UpdateItemQuantity(ctx, item.ID, input.Quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update item quantity")
		}
		for i := range order.Items {
			if order.Items[i].ID == item.ID {
				order.Items[i].Quantity = input.Quantity
			}
		}
		return nil
	})
}

func (e *editor) RemoveItem(ctx context.Context, input RemoveItemInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil || input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id and item id required")
	}

	return e.mutate(ctx, input.OrderID, input.ActorUserID, input.ActorRole, func(repo Repository, order *models.Order) error {
		item, err := repo.FindItem(ctx, order.ID, input.ItemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
		}
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order item")
		}
		// Removing the last line is allowed; a zero-item order is the
		// caller's problem to interpret.
		kept := order.Items[:0]
		for _, existing := range order.Items {
			if existing.ID != item.ID {
				kept = append(kept, existing)
			}
		}
		order.Items = kept
		return nil
	})
}

func (e *editor) RecalculateTotal(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	var snapshot *models.Order
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		order, err := e.lockLiveOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := e.persistTotals(ctx, repo, order); err != nil {
			return err
		}
		snapshot = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// mutate wraps an item edit in the standard lock + recompute + emit cycle.
func (e *editor) mutate(ctx context.Context, orderID uuid.UUID, actorUserID uuid.UUID, actorRole string, edit func(repo Repository, order *models.Order) error) (*models.Order, error) {
	var snapshot *models.Order
	err := e.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := e.repo.WithTx(tx)
		order, err := e.lockLiveOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if err := edit(repo, order); err != nil {
			return err
		}
		if err := e.persistTotals(ctx, repo, order); err != nil {
			return err
		}
		snapshot = order
		return e.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderItemsChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(actorUserID, actorRole),
			Data: payloads.OrderItemsChangedEvent{
				OrderID:          order.ID,
				TenantID:         order.TenantID,
				SubtotalCents:    order.SubtotalCents,
				FinalAmountCents: order.FinalAmountCents,
				ItemCount:        len(order.Items),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (e *editor) lockLiveOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is terminal")
	}
	return order, nil
}

func (e *editor) persistTotals(ctx context.Context, repo Repository, order *models.Order) error {
	subtotal, final := Totals(order.Items, order.DiscountCents, order.DeliveryChargeCents, order.SurchargeCents)
	now := time.Now().UTC()
	err := repo.Update(ctx, order.ID, map[string]any{
		"subtotal_cents":     subtotal,
		"final_amount_cents": final,
		"updated_at":         now,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order totals")
	}
	order.SubtotalCents = subtotal
	order.FinalAmountCents = final
	order.UpdatedAt = now
	return nil
}

func snapshotAddons(specs []catalog.AddonSpec) types.Addons {
	if len(specs) == 0 {
		return nil
	}
	addons := make(types.Addons, 0, len(specs))
	for _, spec := range specs {
		addons = append(addons, types.Addon{Name: spec.Name, PriceCents: spec.PriceCents})
	}
	return addons
}
