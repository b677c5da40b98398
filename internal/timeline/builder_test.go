package timeline

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dishpatch/dishpatch-backend/pkg/db/models"
	"github.com/dishpatch/dishpatch-backend/pkg/enums"
)

func baseOrder(status enums.OrderStatus) models.Order {
	created := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	return models.Order{
		ID:          uuid.New(),
		OrderNumber: 42,
		CustomerID:  uuid.New(),
		Status:      status,
		CreatedAt:   created,
		UpdatedAt:   created.Add(30 * time.Minute),
	}
}

func kinds(events []Event) []EventKind {
	out := make([]EventKind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func TestBuildPendingOrderHasOnlyPlacedEvent(t *testing.T) {
	order := baseOrder(enums.OrderStatusPending)

	events := Build(order, nil)
	if len(events) != 1 {
		t.Fatalf("expected one event got %v", kinds(events))
	}
	if events[0].Kind != KindPlaced {
		t.Fatalf("expected placed got %s", events[0].Kind)
	}
	if events[0].Time != order.CreatedAt {
		t.Fatalf("expected placed at creation time got %s", events[0].Time)
	}
	if len(events[0].ActorRefs) != 1 || events[0].ActorRefs[0] != order.CustomerID {
		t.Fatalf("expected customer actor got %v", events[0].ActorRefs)
	}
}

func TestBuildShowsFirstAssignment(t *testing.T) {
	order := baseOrder(enums.OrderStatusConfirmed)
	agentID := uuid.New()
	assignedAt := order.CreatedAt.Add(5 * time.Minute)
	order.AssignedAgentID = &agentID
	order.AssignedAt = &assignedAt

	events := Build(order, nil)

	var assigned *Event
	for i := range events {
		if events[i].Kind == KindAgentAssigned {
			assigned = &events[i]
		}
	}
	if assigned == nil {
		t.Fatalf("expected agent assigned event got %v", kinds(events))
	}
	if assigned.Time != assignedAt {
		t.Fatalf("expected assignment time %s got %s", assignedAt, assigned.Time)
	}
	if len(assigned.ActorRefs) != 1 || assigned.ActorRefs[0] != agentID {
		t.Fatalf("expected agent actor got %v", assigned.ActorRefs)
	}
}

func TestBuildReassignedOrderKeepsFirstAssignment(t *testing.T) {
	order := baseOrder(enums.OrderStatusPending)
	firstAgent := uuid.New()
	secondAgent := uuid.New()
	// assigned_at reflects the reassignment, not the original binding
	reassignedAt := order.CreatedAt.Add(10 * time.Minute)
	order.AssignedAgentID = &secondAgent
	order.AssignedAt = &reassignedAt

	history := []models.ReassignmentEvent{{
		ID:          uuid.New(),
		OrderID:     order.ID,
		FromAgentID: &firstAgent,
		ToAgentID:   secondAgent,
		Reason:      "agent unavailable",
		CreatedAt:   reassignedAt,
	}}

	events := Build(order, history)

	got := kinds(events)
	want := []EventKind{KindPlaced, KindAgentAssigned, KindReassignment}
	if len(got) != len(want) {
		t.Fatalf("expected %v got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event %d: expected %s got %v", i, want[i], got)
		}
	}

	assigned := events[1]
	if len(assigned.ActorRefs) != 1 || assigned.ActorRefs[0] != firstAgent {
		t.Fatalf("first assignment must name the original agent, got %v", assigned.ActorRefs)
	}
	if assigned.Time.After(events[2].Time) {
		t.Fatalf("first assignment at %s must not trail the reassignment at %s", assigned.Time, events[2].Time)
	}

	reassigned := events[2]
	if len(reassigned.ActorRefs) != 2 || reassigned.ActorRefs[0] != firstAgent || reassigned.ActorRefs[1] != secondAgent {
		t.Fatalf("expected from/to agents got %v", reassigned.ActorRefs)
	}
}

func TestBuildMultipleReassignmentsSynthesizeEarliestOrigin(t *testing.T) {
	order := baseOrder(enums.OrderStatusPending)
	agentA := uuid.New()
	agentB := uuid.New()
	agentC := uuid.New()
	lastAt := order.CreatedAt.Add(20 * time.Minute)
	order.AssignedAgentID = &agentC
	order.AssignedAt = &lastAt

	history := []models.ReassignmentEvent{
		{
			ID:          uuid.New(),
			OrderID:     order.ID,
			FromAgentID: &agentB,
			ToAgentID:   agentC,
			Reason:      "vehicle breakdown",
			CreatedAt:   lastAt,
		},
		{
			ID:          uuid.New(),
			OrderID:     order.ID,
			FromAgentID: &agentA,
			ToAgentID:   agentB,
			Reason:      "agent unavailable",
			CreatedAt:   order.CreatedAt.Add(10 * time.Minute),
		},
	}

	events := Build(order, history)

	var assigned *Event
	for i := range events {
		if events[i].Kind == KindAgentAssigned {
			assigned = &events[i]
		}
	}
	if assigned == nil {
		t.Fatalf("expected agent assigned event got %v", kinds(events))
	}
	if len(assigned.ActorRefs) != 1 || assigned.ActorRefs[0] != agentA {
		t.Fatalf("origin must come from the earliest handover, got %v", assigned.ActorRefs)
	}
}

func TestBuildDeliveredOrderCarriesEveryMilestone(t *testing.T) {
	order := baseOrder(enums.OrderStatusDelivered)
	deliveredAt := order.CreatedAt.Add(time.Hour)
	order.DeliveredAt = &deliveredAt

	events := Build(order, nil)

	var labels []string
	for _, e := range events {
		if e.Kind == KindStatus {
			labels = append(labels, e.Label)
		}
	}
	want := []string{"Order confirmed", "Preparing", "Ready for pickup", "Picked up", "Out for delivery", "Delivered"}
	if len(labels) != len(want) {
		t.Fatalf("expected %d milestones got %v", len(want), labels)
	}
	for i, label := range want {
		if labels[i] != label {
			t.Fatalf("milestone %d: expected %q got %q", i, label, labels[i])
		}
	}
	last := events[len(events)-1]
	if last.Label != "Delivered" || last.Time != deliveredAt {
		t.Fatalf("expected delivered milestone at delivery time got %+v", last)
	}
}

func TestBuildPartialProgressStopsAtCurrentStatus(t *testing.T) {
	order := baseOrder(enums.OrderStatusPreparing)

	events := Build(order, nil)

	var labels []string
	for _, e := range events {
		if e.Kind == KindStatus {
			labels = append(labels, e.Label)
		}
	}
	if len(labels) != 2 || labels[0] != "Order confirmed" || labels[1] != "Preparing" {
		t.Fatalf("expected confirmed and preparing only got %v", labels)
	}
}

func TestBuildCancelledOrderHasSingleCancellationMilestone(t *testing.T) {
	order := baseOrder(enums.OrderStatusCancelled)
	cancelledAt := order.CreatedAt.Add(15 * time.Minute)
	order.CancelledAt = &cancelledAt

	events := Build(order, nil)

	if len(events) != 2 {
		t.Fatalf("expected placed plus cancelled got %v", kinds(events))
	}
	if events[1].Kind != KindStatus || events[1].Label != "Cancelled" {
		t.Fatalf("expected cancelled milestone got %+v", events[1])
	}
	if events[1].Time != cancelledAt {
		t.Fatalf("expected cancellation time got %s", events[1].Time)
	}
}

func TestBuildSortsAscendingWithStableTieBreak(t *testing.T) {
	order := baseOrder(enums.OrderStatusConfirmed)
	agentID := uuid.New()
	// Reassignment lands at the exact same instant as the status change.
	tieTime := order.UpdatedAt

	history := []models.ReassignmentEvent{{
		ID:        uuid.New(),
		OrderID:   order.ID,
		ToAgentID: agentID,
		Reason:    "agent unavailable",
		CreatedAt: tieTime,
	}}

	events := Build(order, history)

	if len(events) != 3 {
		t.Fatalf("expected three events got %v", kinds(events))
	}
	if events[0].Kind != KindPlaced {
		t.Fatalf("expected placed first got %v", kinds(events))
	}
	// At the same timestamp the status change sorts before the reassignment.
	if events[1].Kind != KindStatus || events[2].Kind != KindReassignment {
		t.Fatalf("expected status before reassignment on tie got %v", kinds(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].Time.Before(events[i-1].Time) {
			t.Fatalf("events not ascending: %v", events)
		}
	}
}
