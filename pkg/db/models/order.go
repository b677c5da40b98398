package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dishpatch/dishpatch-backend/pkg/enums"
)

// Order is the aggregate root for a single customer purchase. The row plus
// its items form one consistency boundary; all mutating operations lock the
// row for the duration of their transaction.
type Order struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber  int64          `gorm:"column:order_number;not null;uniqueIndex;default:nextval('order_number_seq')"`
	TenantID     uuid.UUID      `gorm:"column:tenant_id;type:uuid;not null"`
	RestaurantID uuid.UUID      `gorm:"column:restaurant_id;type:uuid;not null"`
	CustomerID   uuid.UUID      `gorm:"column:customer_id;type:uuid;not null"`
	Currency     enums.Currency `gorm:"column:currency;type:text;not null;default:'INR'"`

	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null;default:'cash'"`

	Status enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'pending'"`

	SubtotalCents       int `gorm:"column:subtotal_cents;not null;default:0"`
	DiscountCents       int `gorm:"column:discount_cents;not null;default:0"`
	DeliveryChargeCents int `gorm:"column:delivery_charge_cents;not null;default:0"`
	SurchargeCents      int `gorm:"column:surcharge_cents;not null;default:0"`
	FinalAmountCents    int `gorm:"column:final_amount_cents;not null;default:0"`

	// Agent fields stay null for agent-less orders (dine-in, pickup).
	AssignedAgentID    *uuid.UUID         `gorm:"column:assigned_agent_id;type:uuid"`
	AgentStatus        *enums.AgentStatus `gorm:"column:agent_status;type:agent_status"`
	AssignedAt         *time.Time         `gorm:"column:assigned_at"`
	AssignmentAttempts int                `gorm:"column:assignment_attempts;not null;default:0"`

	CollectedAmountCents *int       `gorm:"column:collected_amount_cents"`
	CollectedAt          *time.Time `gorm:"column:collected_at"`
	ChangeAmountCents    *int       `gorm:"column:change_amount_cents"`
	ChangeReason         *string    `gorm:"column:change_reason"`

	Notes *string `gorm:"column:notes"`

	Items         []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Reassignments []ReassignmentEvent `gorm:"foreignKey:OrderID"`

	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
}

// ChangeDueCents derives the change owed from the recorded cash collection.
func (o Order) ChangeDueCents() int {
	if o.CollectedAmountCents == nil {
		return 0
	}
	due := *o.CollectedAmountCents - o.FinalAmountCents
	if due < 0 {
		return 0
	}
	return due
}
