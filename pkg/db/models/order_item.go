package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dishpatch/dishpatch-backend/pkg/types"
)

// OrderItem is one line in an order. Unit price and addons are snapshots
// taken from the catalog when the line was added and never change afterward.
type OrderItem struct {
	ID             uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID    `gorm:"column:order_id;type:uuid;not null"`
	MenuItemID     uuid.UUID    `gorm:"column:menu_item_id;type:uuid;not null"`
	Name           string       `gorm:"column:name;not null"`
	Quantity       int          `gorm:"column:quantity;not null"`
	UnitPriceCents int          `gorm:"column:unit_price_cents;not null"`
	Addons         types.Addons `gorm:"column:addons;type:jsonb;serializer:json"`
	Notes          *string      `gorm:"column:notes"`
	CreatedAt      time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}

// LineTotalCents is quantity × (unit price + per-unit addon cost).
func (i OrderItem) LineTotalCents() int {
	return i.Quantity * (i.UnitPriceCents + i.Addons.TotalCents())
}
