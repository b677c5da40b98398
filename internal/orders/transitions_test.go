package orders

import (
	"testing"

	"github.com/dishpatch/dishpatch-backend/pkg/enums"
)

func TestCanTransitionHappyPath(t *testing.T) {
	for i := 0; i < len(enums.HappyPath)-1; i++ {
		from := enums.HappyPath[i]
		to := enums.HappyPath[i+1]
		if !CanTransition(from, to, true) {
			t.Fatalf("expected %s -> %s to be legal", from, to)
		}
	}
}

func TestCanTransitionRejectsSkips(t *testing.T) {
	cases := []struct {
		from enums.OrderStatus
		to   enums.OrderStatus
	}{
		{enums.OrderStatusPending, enums.OrderStatusPreparing},
		{enums.OrderStatusPending, enums.OrderStatusDelivered},
		{enums.OrderStatusConfirmed, enums.OrderStatusPickedUp},
		{enums.OrderStatusReady, enums.OrderStatusOutForDelivery},
		{enums.OrderStatusPickedUp, enums.OrderStatusDelivered},  // agent bound: delivery leg required
		{enums.OrderStatusPreparing, enums.OrderStatusConfirmed}, // backwards
		{enums.OrderStatusConfirmed, enums.OrderStatusConfirmed}, // self
	}
	for _, tc := range cases {
		if CanTransition(tc.from, tc.to, true) {
			t.Fatalf("expected %s -> %s to be illegal", tc.from, tc.to)
		}
	}
}

func TestCanTransitionAgentlessSkipsDeliveryLeg(t *testing.T) {
	if !CanTransition(enums.OrderStatusPickedUp, enums.OrderStatusDelivered, false) {
		t.Fatal("expected agent-less picked_up -> delivered to be legal")
	}
	// the shortcut exists only at the handoff point
	if CanTransition(enums.OrderStatusReady, enums.OrderStatusDelivered, false) {
		t.Fatal("expected agent-less ready -> delivered to be illegal")
	}
	if CanTransition(enums.OrderStatusPending, enums.OrderStatusDelivered, false) {
		t.Fatal("expected agent-less pending -> delivered to be illegal")
	}
}

func TestCanTransitionCancelFromAnyNonTerminal(t *testing.T) {
	for _, from := range enums.HappyPath[:len(enums.HappyPath)-1] {
		if !CanTransition(from, enums.OrderStatusCancelled, true) {
			t.Fatalf("expected %s -> cancelled to be legal", from)
		}
	}
}

func TestCanTransitionTerminalPermitsNothing(t *testing.T) {
	terminals := []enums.OrderStatus{enums.OrderStatusDelivered, enums.OrderStatusCancelled}
	for _, from := range terminals {
		for _, to := range enums.HappyPath {
			if CanTransition(from, to, true) || CanTransition(from, to, false) {
				t.Fatalf("expected %s -> %s to be illegal", from, to)
			}
		}
		if CanTransition(from, enums.OrderStatusCancelled, true) {
			t.Fatalf("expected %s -> cancelled to be illegal", from)
		}
	}
}

func TestNextStatuses(t *testing.T) {
	next := NextStatuses(enums.OrderStatusPending, true)
	if len(next) != 2 || next[0] != enums.OrderStatusConfirmed || next[1] != enums.OrderStatusCancelled {
		t.Fatalf("unexpected next statuses for pending: %v", next)
	}
	next = NextStatuses(enums.OrderStatusOutForDelivery, true)
	if len(next) != 2 || next[0] != enums.OrderStatusDelivered {
		t.Fatalf("unexpected next statuses for out_for_delivery: %v", next)
	}
	next = NextStatuses(enums.OrderStatusPickedUp, false)
	if len(next) != 2 || next[0] != enums.OrderStatusDelivered {
		t.Fatalf("unexpected next statuses for agent-less picked_up: %v", next)
	}
	if NextStatuses(enums.OrderStatusDelivered, true) != nil {
		t.Fatal("expected no next statuses for delivered")
	}
	if NextStatuses(enums.OrderStatusCancelled, false) != nil {
		t.Fatal("expected no next statuses for cancelled")
	}
}
