package payloads

import (
	"time"

	"github.com/dishpatch/dishpatch-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderCreatedEvent signals a newly placed order.
type OrderCreatedEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	OrderNumber      int64     `json:"order_number"`
	TenantID         uuid.UUID `json:"tenant_id"`
	RestaurantID     uuid.UUID `json:"restaurant_id"`
	CustomerID       uuid.UUID `json:"customer_id"`
	FinalAmountCents int       `json:"final_amount_cents"`
}

// OrderStatusChangedEvent is emitted on every lifecycle transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID         `json:"order_id"`
	TenantID   uuid.UUID         `json:"tenant_id"`
	CustomerID uuid.UUID         `json:"customer_id"`
	From       enums.OrderStatus `json:"from"`
	To         enums.OrderStatus `json:"to"`
	ChangedAt  time.Time         `json:"changed_at"`
}

// OrderItemsChangedEvent reports an item edit with the recomputed totals.
type OrderItemsChangedEvent struct {
	OrderID          uuid.UUID `json:"order_id"`
	TenantID         uuid.UUID `json:"tenant_id"`
	SubtotalCents    int       `json:"subtotal_cents"`
	FinalAmountCents int       `json:"final_amount_cents"`
	ItemCount        int       `json:"item_count"`
}

// AgentAssignedEvent is emitted when an order first receives an agent.
type AgentAssignedEvent struct {
	OrderID    uuid.UUID `json:"order_id"`
	TenantID   uuid.UUID `json:"tenant_id"`
	AgentID    uuid.UUID `json:"agent_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// AgentReassignedEvent carries the handoff recorded in the reassignment log.
type AgentReassignedEvent struct {
	OrderID     uuid.UUID  `json:"order_id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	FromAgentID *uuid.UUID `json:"from_agent_id,omitempty"`
	ToAgentID   uuid.UUID  `json:"to_agent_id"`
	Reason      string     `json:"reason"`
	Attempt     int        `json:"attempt"`
}

// CashCollectedEvent reports the cash handed over on delivery.
type CashCollectedEvent struct {
	OrderID              uuid.UUID `json:"order_id"`
	TenantID             uuid.UUID `json:"tenant_id"`
	AgentID              uuid.UUID `json:"agent_id"`
	CollectedAmountCents int       `json:"collected_amount_cents"`
	FinalAmountCents     int       `json:"final_amount_cents"`
	CollectedAt          time.Time `json:"collected_at"`
}

// ChangeCreditedEvent is emitted once per order when overpaid change
// lands in the customer wallet.
type ChangeCreditedEvent struct {
	OrderID           uuid.UUID `json:"order_id"`
	CustomerID        uuid.UUID `json:"customer_id"`
	ChangeAmountCents int       `json:"change_amount_cents"`
	LedgerEntryID     uuid.UUID `json:"ledger_entry_id"`
}

// WalletCreditedEvent reports a generic wallet inflow.
type WalletCreditedEvent struct {
	UserID        uuid.UUID             `json:"user_id"`
	EntryID       uuid.UUID             `json:"entry_id"`
	Type          enums.LedgerEntryType `json:"type"`
	AmountCents   int                   `json:"amount_cents"`
	SourceOrderID *uuid.UUID            `json:"source_order_id,omitempty"`
}

// WalletDebitedEvent reports a wallet spend.
type WalletDebitedEvent struct {
	UserID        uuid.UUID  `json:"user_id"`
	EntryID       uuid.UUID  `json:"entry_id"`
	AmountCents   int        `json:"amount_cents"`
	SourceOrderID *uuid.UUID `json:"source_order_id,omitempty"`
}

// NotificationRequestedEvent tells downstream senders to alert a user.
type NotificationRequestedEvent struct {
	UserID  uuid.UUID              `json:"user_id"`
	OrderID *uuid.UUID             `json:"order_id,omitempty"`
	Type    enums.NotificationType `json:"type"`
	Title   string                 `json:"title"`
	Message string                 `json:"message"`
}
