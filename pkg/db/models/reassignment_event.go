package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/dishpatch/dishpatch-backend/pkg/enums"
)

// ReassignmentEvent is one append-only audit record of a delivery-agent
// hand-off. Rows are immutable once written and survive order deletion.
type ReassignmentEvent struct {
	ID           uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID         `gorm:"column:order_id;type:uuid;not null;index"`
	FromAgentID  *uuid.UUID        `gorm:"column:from_agent_id;type:uuid"`
	ToAgentID    uuid.UUID         `gorm:"column:to_agent_id;type:uuid;not null"`
	Reason       string            `gorm:"column:reason;not null"`
	Note         *string           `gorm:"column:note"`
	StatusBefore enums.AgentStatus `gorm:"column:status_before;type:agent_status;not null"`
	StatusAfter  enums.AgentStatus `gorm:"column:status_after;type:agent_status;not null"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`
}
