package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Item is the catalog snapshot the order item editor copies from.
type Item struct {
	ID           uuid.UUID
	RestaurantID uuid.UUID
	Name         string
	PriceCents   int
	Addons       []AddonSpec
	Available    bool
}

// AddonSpec mirrors a catalog addon at lookup time.
type AddonSpec struct {
	Name       string
	PriceCents int
}

// Lookup is the read-only catalog surface the order core depends on.
type Lookup interface {
	GetItem(ctx context.Context, itemID uuid.UUID) (*Item, error)
	GetTenantID(ctx context.Context, restaurantID uuid.UUID) (uuid.UUID, error)
	GetDeliveryChargeCents(ctx context.Context, restaurantID uuid.UUID) (int, error)
}
