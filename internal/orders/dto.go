package orders

import (
	"github.com/google/uuid"

	"github.com/dishpatch/dishpatch-backend/pkg/db/models"
	"github.com/dishpatch/dishpatch-backend/pkg/enums"
	"github.com/dishpatch/dishpatch-backend/pkg/pagination"
)

// NewItemSpec references a catalog item at order creation time.
type NewItemSpec struct {
	MenuItemID uuid.UUID
	Quantity   int
	Notes      *string
}

// CreateInput carries everything needed to place an order.
type CreateInput struct {
	RestaurantID   uuid.UUID
	CustomerID     uuid.UUID
	PaymentMethod  enums.PaymentMethod
	Items          []NewItemSpec
	DiscountCents  int
	SurchargeCents int
	Notes          *string
	ActorUserID    uuid.UUID
	ActorRole      string
}

// TransitionInput requests a status change on an order.
type TransitionInput struct {
	OrderID     uuid.UUID
	Target      enums.OrderStatus
	ActorUserID uuid.UUID
	ActorRole   string
}

// AssignAgentInput binds or re-binds a delivery agent to an order.
type AssignAgentInput struct {
	OrderID     uuid.UUID
	AgentID     uuid.UUID
	Reason      string
	Note        *string
	ActorUserID uuid.UUID
	ActorRole   string
}

// AddItemInput adds a catalog item to a live order.
type AddItemInput struct {
	OrderID     uuid.UUID
	MenuItemID  uuid.UUID
	Quantity    int
	Notes       *string
	ActorUserID uuid.UUID
	ActorRole   string
}

// UpdateQuantityInput requantifies an existing line.
type UpdateQuantityInput struct {
	OrderID     uuid.UUID
	ItemID      uuid.UUID
	Quantity    int
	ActorUserID uuid.UUID
	ActorRole   string
}

// RemoveItemInput deletes a line from a live order.
type RemoveItemInput struct {
	OrderID     uuid.UUID
	ItemID      uuid.UUID
	ActorUserID uuid.UUID
	ActorRole   string
}

// Filters narrow order listings.
type Filters struct {
	TenantID   *uuid.UUID
	Status     *enums.OrderStatus
	CustomerID *uuid.UUID
	AgentID    *uuid.UUID
}

// List is one page of orders plus the cursor for the next page.
type List struct {
	Orders     []models.Order
	NextCursor *pagination.Cursor
}

// Detail is the full aggregate view for a single order.
type Detail struct {
	Order         models.Order
	Reassignments []models.ReassignmentEvent
}
