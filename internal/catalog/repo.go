package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/dishpatch-backend/pkg/db/models"
	pkgerrors "github.com/dishpatch/dishpatch-backend/pkg/errors"
)

type repository struct {
	db *gorm.DB
}

// NewLookup builds a gorm-backed catalog lookup.
func NewLookup(db *gorm.DB) Lookup {
	return &repository{db: db}
}

func (r *repository) GetItem(ctx context.Context, itemID uuid.UUID) (*Item, error) {
	var row models.MenuItem
	err := r.db.WithContext(ctx).Where("id = ?", itemID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
	}

	addons := make([]AddonSpec, 0, len(row.Addons))
	for _, addon := range row.Addons {
		addons = append(addons, AddonSpec{Name: addon.Name, PriceCents: addon.PriceCents})
	}

	return &Item{
		ID:           row.ID,
		RestaurantID: row.RestaurantID,
		Name:         row.Name,
		PriceCents:   row.PriceCents,
		Addons:       addons,
		Available:    row.Available,
	}, nil
}

func (r *repository) GetTenantID(ctx context.Context, restaurantID uuid.UUID) (uuid.UUID, error) {
	restaurant, err := r.findRestaurant(ctx, restaurantID)
	if err != nil {
		return uuid.Nil, err
	}
	return restaurant.TenantID, nil
}

func (r *repository) GetDeliveryChargeCents(ctx context.Context, restaurantID uuid.UUID) (int, error) {
	restaurant, err := r.findRestaurant(ctx, restaurantID)
	if err != nil {
		return 0, err
	}
	return restaurant.DeliveryChargeCents, nil
}

func (r *repository) findRestaurant(ctx context.Context, restaurantID uuid.UUID) (*models.Restaurant, error) {
	var row models.Restaurant
	err := r.db.WithContext(ctx).Where("id = ?", restaurantID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "restaurant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load restaurant")
	}
	return &row, nil
}
