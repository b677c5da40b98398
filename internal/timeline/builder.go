package timeline

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dishpatch/dishpatch-backend/pkg/db/models"
	"github.com/dishpatch/dishpatch-backend/pkg/enums"
)

// EventKind classifies a timeline entry.
type EventKind string

const (
	KindPlaced        EventKind = "placed"
	KindStatus        EventKind = "status"
	KindAgentAssigned EventKind = "agent_assigned"
	KindReassignment  EventKind = "reassignment"
)

// kindPriority is the fixed tie-break order for events at the same
// instant. Lower sorts first.
var kindPriority = map[EventKind]int{
	KindPlaced:        0,
	KindStatus:        1,
	KindAgentAssigned: 2,
	KindReassignment:  3,
}

// Event is one display-ready timeline entry.
type Event struct {
	Time        time.Time   `json:"time"`
	Kind        EventKind   `json:"kind"`
	Label       string      `json:"label"`
	Description string      `json:"description"`
	ActorRefs   []uuid.UUID `json:"actor_refs,omitempty"`
}

var statusLabels = map[enums.OrderStatus]string{
	enums.OrderStatusConfirmed:      "Order confirmed",
	enums.OrderStatusPreparing:      "Preparing",
	enums.OrderStatusReady:          "Ready for pickup",
	enums.OrderStatusPickedUp:       "Picked up",
	enums.OrderStatusOutForDelivery: "Out for delivery",
	enums.OrderStatusDelivered:      "Delivered",
	enums.OrderStatusCancelled:      "Cancelled",
}

// Build projects an order and its reassignment history into one causally
// ordered event list. It reads state and produces output only; callers can
// invoke it with any snapshot, live or historical.
//
// Per-status timestamps are not stored, so every status milestone past
// "placed" carries the order's updated_at as a best-effort time.
func Build(order models.Order, reassignments []models.ReassignmentEvent) []Event {
	events := []Event{{
		Time:        order.CreatedAt,
		Kind:        KindPlaced,
		Label:       "Order placed",
		Description: fmt.Sprintf("Order #%d placed", order.OrderNumber),
		ActorRefs:   []uuid.UUID{order.CustomerID},
	}}

	if event, ok := firstAssignment(order, reassignments); ok {
		events = append(events, event)
	}

	for _, r := range reassignments {
		actors := make([]uuid.UUID, 0, 2)
		if r.FromAgentID != nil {
			actors = append(actors, *r.FromAgentID)
		}
		actors = append(actors, r.ToAgentID)
		events = append(events, Event{
			Time:        r.CreatedAt,
			Kind:        KindReassignment,
			Label:       "Agent reassigned",
			Description: fmt.Sprintf("Delivery agent reassigned: %s", r.Reason),
			ActorRefs:   actors,
		})
	}

	events = append(events, statusMilestones(order)...)

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Time.Equal(events[j].Time) {
			return events[i].Time.Before(events[j].Time)
		}
		return kindPriority[events[i].Kind] < kindPriority[events[j].Kind]
	})
	return events
}

// firstAssignment recovers the original agent assignment. While no
// reassignment exists the order's own assigned fields describe it;
// after a handover those fields hold the current agent, so the first
// assignment is rebuilt from the earliest reassignment record's
// from_agent. That event carries the handover's timestamp and relies on
// the kind tie-break to sort ahead of it, since the original
// assigned_at is overwritten on reassignment.
func firstAssignment(order models.Order, reassignments []models.ReassignmentEvent) (Event, bool) {
	if len(reassignments) == 0 {
		if order.AssignedAt == nil || order.AssignedAgentID == nil {
			return Event{}, false
		}
		return Event{
			Time:        *order.AssignedAt,
			Kind:        KindAgentAssigned,
			Label:       "Agent assigned",
			Description: "Delivery agent assigned to the order",
			ActorRefs:   []uuid.UUID{*order.AssignedAgentID},
		}, true
	}

	first := reassignments[0]
	for _, r := range reassignments[1:] {
		if r.CreatedAt.Before(first.CreatedAt) {
			first = r
		}
	}
	if first.FromAgentID == nil {
		return Event{}, false
	}
	return Event{
		Time:        first.CreatedAt,
		Kind:        KindAgentAssigned,
		Label:       "Agent assigned",
		Description: "Delivery agent assigned to the order",
		ActorRefs:   []uuid.UUID{*first.FromAgentID},
	}, true
}

// statusMilestones synthesizes one event per status the order has ever
// reached. The happy path is monotonic, so reaching rank N implies every
// rank below it was reached too.
func statusMilestones(order models.Order) []Event {
	var milestones []Event
	if order.Status == enums.OrderStatusCancelled {
		milestones = append(milestones, Event{
			Time:        milestoneTime(order, enums.OrderStatusCancelled),
			Kind:        KindStatus,
			Label:       statusLabels[enums.OrderStatusCancelled],
			Description: "Order was cancelled",
		})
		return milestones
	}

	rank := order.Status.Rank()
	for _, status := range enums.HappyPath[1:] {
		if status.Rank() > rank {
			break
		}
		milestones = append(milestones, Event{
			Time:        milestoneTime(order, status),
			Kind:        KindStatus,
			Label:       statusLabels[status],
			Description: fmt.Sprintf("Order moved to %s", status),
		})
	}
	return milestones
}

func milestoneTime(order models.Order, status enums.OrderStatus) time.Time {
	if status == enums.OrderStatusDelivered && order.DeliveredAt != nil {
		return *order.DeliveredAt
	}
	if status == enums.OrderStatusCancelled && order.CancelledAt != nil {
		return *order.CancelledAt
	}
	return order.UpdatedAt
}
