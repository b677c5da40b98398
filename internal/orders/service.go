package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/dishpatch-backend/internal/catalog"
	"github.com/dishpatch/dishpatch-backend/internal/reassignments"
	"github.com/dishpatch/dishpatch-backend/pkg/db/models"
	"github.com/dishpatch/dishpatch-backend/pkg/enums"
	pkgerrors "github.com/dishpatch/dishpatch-backend/pkg/errors"
	"github.com/dishpatch/dishpatch-backend/pkg/metrics"
	"github.com/dishpatch/dishpatch-backend/pkg/outbox"
	"github.com/dishpatch/dishpatch-backend/pkg/outbox/payloads"
	"github.com/dishpatch/dishpatch-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service is the single authority for order lifecycle mutations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Transition(ctx context.Context, input TransitionInput) (*models.Order, error)
	// TransitionTx applies a transition inside a caller-owned transaction so
	// callers can make the status change atomic with their own writes.
	TransitionTx(ctx context.Context, tx *gorm.DB, input TransitionInput) (*models.Order, error)
	AssignAgent(ctx context.Context, input AssignAgentInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID) (*Detail, error)
	List(ctx context.Context, params pagination.Params, filters Filters) (*List, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	outbox   outboxPublisher
	reassign reassignments.Repository
	catalog  catalog.Lookup
	metrics  *metrics.OrderMetrics
}

// NewService builds the order service with its required dependencies.
// Metrics may be nil; the metrics helpers no-op without a registry.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, reassign reassignments.Repository, lookup catalog.Lookup, orderMetrics *metrics.OrderMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if reassign == nil {
		return nil, fmt.Errorf("reassignment repository required")
	}
	if lookup == nil {
		return nil, fmt.Errorf("catalog lookup required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		outbox:   outboxSvc,
		reassign: reassign,
		catalog:  lookup,
		metrics:  orderMetrics,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.RestaurantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "restaurant id required")
	}
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	if input.DiscountCents < 0 || input.SurchargeCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount and surcharge must be non-negative")
	}
	method := input.PaymentMethod
	if method == "" {
		method = enums.PaymentMethodCash
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	tenantID, err := s.catalog.GetTenantID(ctx, input.RestaurantID)
	if err != nil {
		return nil, err
	}
	deliveryCharge, err := s.catalog.GetDeliveryChargeCents(ctx, input.RestaurantID)
	if err != nil {
		return nil, err
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	for _, spec := range input.Items {
		if spec.Quantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
		}
		line, err := snapshotItem(ctx, s.catalog, input.RestaurantID, spec.MenuItemID, spec.Quantity, spec.Notes)
		if err != nil {
			return nil, err
		}
		items = append(items, *line)
	}

	subtotal, final := Totals(items, input.DiscountCents, deliveryCharge, input.SurchargeCents)
	order := &models.Order{
		TenantID:            tenantID,
		RestaurantID:        input.RestaurantID,
		CustomerID:          input.CustomerID,
		PaymentMethod:       method,
		Status:              enums.OrderStatusPending,
		SubtotalCents:       subtotal,
		DiscountCents:       input.DiscountCents,
		DeliveryChargeCents: deliveryCharge,
		SurchargeCents:      input.SurchargeCents,
		FinalAmountCents:    final,
		Notes:               input.Notes,
		Items:               items,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: payloads.OrderCreatedEvent{
				OrderID:          order.ID,
				OrderNumber:      order.OrderNumber,
				TenantID:         order.TenantID,
				RestaurantID:     order.RestaurantID,
				CustomerID:       order.CustomerID,
				FinalAmountCents: order.FinalAmountCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) Transition(ctx context.Context, input TransitionInput) (*models.Order, error) {
	var snapshot *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.TransitionTx(ctx, tx, input)
		if err != nil {
			return err
		}
		snapshot = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *service) TransitionTx(ctx context.Context, tx *gorm.DB, input TransitionInput) (*models.Order, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown target status")
	}

	repo := s.repo.WithTx(tx)
	order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is terminal")
	}
	if !CanTransition(order.Status, input.Target, order.AssignedAgentID != nil) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("illegal transition from %s to %s", order.Status, input.Target)).
			WithDetails(map[string]any{"allowed": NextStatuses(order.Status, order.AssignedAgentID != nil)})
	}
	if input.Target == enums.OrderStatusOutForDelivery {
		if order.AssignedAgentID == nil || order.AgentStatus == nil || !order.AgentStatus.AtLeastAssigned() {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "no agent assigned for delivery")
		}
	}

	now := time.Now().UTC()
	from := order.Status
	updates := map[string]any{
		"status":     input.Target,
		"updated_at": now,
	}
	if input.Target == enums.OrderStatusDelivered {
		updates["delivered_at"] = now
		order.DeliveredAt = &now
	}
	if input.Target == enums.OrderStatusCancelled {
		updates["cancelled_at"] = now
		order.CancelledAt = &now
	}
	if order.AssignedAgentID != nil {
		if agentStatus, ok := agentStatusForOrderStatus(input.Target); ok {
			updates["agent_status"] = agentStatus
			order.AgentStatus = &agentStatus
		}
	}

	if err := repo.Update(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	order.Status = input.Target
	order.UpdatedAt = now

	if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         buildActor(input.ActorUserID, input.ActorRole),
		Data: payloads.OrderStatusChangedEvent{
			OrderID:    order.ID,
			TenantID:   order.TenantID,
			CustomerID: order.CustomerID,
			From:       from,
			To:         input.Target,
			ChangedAt:  now,
		},
	}); err != nil {
		return nil, err
	}

	s.metrics.IncTransition(from.String(), input.Target.String())
	return order, nil
}

func (s *service) AssignAgent(ctx context.Context, input AssignAgentInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.AgentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agent id required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason required")
	}

	var snapshot *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is terminal")
		}

		// Re-requesting the current agent is an idempotent no-op so callers
		// can safely retry a timed-out assignment.
		if order.AssignedAgentID != nil && *order.AssignedAgentID == input.AgentID {
			snapshot = order
			return nil
		}

		now := time.Now().UTC()
		assigned := enums.AgentStatusAssigned
		updates := map[string]any{
			"assigned_agent_id":   input.AgentID,
			"agent_status":        assigned,
			"assigned_at":         now,
			"assignment_attempts": order.AssignmentAttempts + 1,
			"updated_at":          now,
		}

		firstAssignment := order.AssignedAgentID == nil
		var reassignment *models.ReassignmentEvent
		if !firstAssignment {
			statusBefore := enums.AgentStatusAssigned
			if order.AgentStatus != nil {
				statusBefore = *order.AgentStatus
			}
			reassignment = &models.ReassignmentEvent{
				OrderID:      order.ID,
				FromAgentID:  order.AssignedAgentID,
				ToAgentID:    input.AgentID,
				Reason:       input.Reason,
				Note:         input.Note,
				StatusBefore: statusBefore,
				StatusAfter:  assigned,
			}
			if err := s.reassign.AppendTx(tx, reassignment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append reassignment event")
			}
		}

		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order assignment")
		}

		fromAgentID := order.AssignedAgentID
		agentID := input.AgentID
		order.AssignedAgentID = &agentID
		order.AgentStatus = &assigned
		order.AssignedAt = &now
		order.AssignmentAttempts++
		order.UpdatedAt = now
		snapshot = order

		if firstAssignment {
			if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventAgentAssigned,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Version:       1,
				Actor:         buildActor(input.ActorUserID, input.ActorRole),
				Data: payloads.AgentAssignedEvent{
					OrderID:    order.ID,
					TenantID:   order.TenantID,
					AgentID:    input.AgentID,
					AssignedAt: now,
				},
			}); err != nil {
				return err
			}
			return nil
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAgentReassigned,
			AggregateType: enums.AggregateReassignment,
			AggregateID:   reassignment.ID,
			Version:       1,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: payloads.AgentReassignedEvent{
				OrderID:     order.ID,
				TenantID:    order.TenantID,
				FromAgentID: fromAgentID,
				ToAgentID:   input.AgentID,
				Reason:      input.Reason,
				Attempt:     order.AssignmentAttempts,
			},
		}); err != nil {
			return err
		}
		s.metrics.IncReassignment()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*Detail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	history, err := s.reassign.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reassignment history")
	}
	return &Detail{Order: *order, Reassignments: history}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters Filters) (*List, error) {
	list, err := s.repo.ListOrders(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func snapshotItem(ctx context.Context, lookup catalog.Lookup, restaurantID, menuItemID uuid.UUID, quantity int, notes *string) (*models.OrderItem, error) {
	item, err := lookup.GetItem(ctx, menuItemID)
	if err != nil {
		return nil, err
	}
	if item.RestaurantID != restaurantID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item belongs to a different provider")
	}
	if !item.Available {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item is not available")
	}
	return &models.OrderItem{
		MenuItemID:     item.ID,
		Name:           item.Name,
		Quantity:       quantity,
		UnitPriceCents: item.PriceCents,
		Addons:         snapshotAddons(item.Addons),
		Notes:          notes,
	}, nil
}

func buildActor(userID uuid.UUID, role string) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: role}
}
