package reassignments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dishpatch/dishpatch-backend/pkg/db/models"
)

// Recorder appends audit records inside a caller-owned transaction.
type Recorder interface {
	AppendTx(tx *gorm.DB, event *models.ReassignmentEvent) error
}

// Repository reads and appends the reassignment audit trail.
type Repository interface {
	Recorder
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ReassignmentEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a reassignment repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) AppendTx(tx *gorm.DB, event *models.ReassignmentEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(event).Error
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.ReassignmentEvent, error) {
	var rows []models.ReassignmentEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
