package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dishpatch/dishpatch-backend/pkg/types"
)

// Restaurant is the provider an order is placed against. Restaurants belong
// to a tenant; the full tenant/catalog editing surface lives outside this
// service, which only reads these rows for scoping and lookups.
type Restaurant struct {
	ID                  uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TenantID            uuid.UUID `gorm:"column:tenant_id;type:uuid;not null;index"`
	Name                string    `gorm:"column:name;not null"`
	Phone               *string   `gorm:"column:phone"`
	DeliveryChargeCents int       `gorm:"column:delivery_charge_cents;not null;default:0"`
	IsActive            bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// MenuItem is a catalog listing owned by a restaurant. The order item editor
// snapshots price and addons from here at add-time.
type MenuItem struct {
	ID           uuid.UUID    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RestaurantID uuid.UUID    `gorm:"column:restaurant_id;type:uuid;not null;index"`
	Name         string       `gorm:"column:name;not null"`
	Category     *string      `gorm:"column:category"`
	PriceCents   int          `gorm:"column:price_cents;not null"`
	Addons       types.Addons `gorm:"column:addons;type:jsonb;serializer:json"`
	Available    bool         `gorm:"column:available;not null;default:true"`
	CreatedAt    time.Time    `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time    `gorm:"column:updated_at;autoUpdateTime"`
}
