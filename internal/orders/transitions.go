package orders

import (
	"github.com/dishpatch/dishpatch-backend/pkg/enums"
)

// CanTransition reports whether target is directly reachable from current.
// The lifecycle is a linear happy path with cancellation as a side exit
// from any non-terminal state; terminal states permit nothing. Orders
// with no agent bound (dine-in, self-pickup) have no delivery leg, so
// picked_up hands off straight to delivered for them.
func CanTransition(current, target enums.OrderStatus, hasAgent bool) bool {
	if current.IsTerminal() {
		return false
	}
	if target == enums.OrderStatusCancelled {
		return true
	}
	if !hasAgent && current == enums.OrderStatusPickedUp && target == enums.OrderStatusDelivered {
		return true
	}
	currentRank := current.Rank()
	targetRank := target.Rank()
	if currentRank < 0 || targetRank < 0 {
		return false
	}
	return targetRank == currentRank+1
}

// NextStatuses returns the statuses reachable from current, in happy-path
// order with cancellation last.
func NextStatuses(current enums.OrderStatus, hasAgent bool) []enums.OrderStatus {
	if current.IsTerminal() {
		return nil
	}
	next := []enums.OrderStatus{}
	if !hasAgent && current == enums.OrderStatusPickedUp {
		next = append(next, enums.OrderStatusDelivered)
	} else if rank := current.Rank(); rank >= 0 && rank+1 < len(enums.HappyPath) {
		next = append(next, enums.HappyPath[rank+1])
	}
	next = append(next, enums.OrderStatusCancelled)
	return next
}

// agentStatusForOrderStatus maps delivery milestones onto the assigned
// agent's sub-lifecycle. The admin transition is the authority for these
// milestones, so the agent status is mirrored in the same update.
func agentStatusForOrderStatus(status enums.OrderStatus) (enums.AgentStatus, bool) {
	switch status {
	case enums.OrderStatusPickedUp:
		return enums.AgentStatusPickedUp, true
	case enums.OrderStatusOutForDelivery:
		return enums.AgentStatusOutForDelivery, true
	case enums.OrderStatusDelivered:
		return enums.AgentStatusDelivered, true
	case enums.OrderStatusCancelled:
		return enums.AgentStatusCancelled, true
	default:
		return "", false
	}
}
