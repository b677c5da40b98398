package enums

import "fmt"

// AgentStatus tracks the delivery agent's own sub-lifecycle for an order,
// distinct from the order's customer-facing status.
type AgentStatus string

const (
	AgentStatusPending        AgentStatus = "pending"
	AgentStatusAssigned       AgentStatus = "assigned"
	AgentStatusAccepted       AgentStatus = "accepted"
	AgentStatusPickedUp       AgentStatus = "picked_up"
	AgentStatusOutForDelivery AgentStatus = "out_for_delivery"
	AgentStatusDelivered      AgentStatus = "delivered"
	AgentStatusCancelled      AgentStatus = "cancelled"
)

var validAgentStatuses = []AgentStatus{
	AgentStatusPending,
	AgentStatusAssigned,
	AgentStatusAccepted,
	AgentStatusPickedUp,
	AgentStatusOutForDelivery,
	AgentStatusDelivered,
	AgentStatusCancelled,
}

// String implements fmt.Stringer.
func (s AgentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known AgentStatus.
func (s AgentStatus) IsValid() bool {
	for _, candidate := range validAgentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// AtLeastAssigned reports whether an agent is actively bound to the order
// (assigned or further along the delivery lifecycle).
func (s AgentStatus) AtLeastAssigned() bool {
	switch s {
	case AgentStatusAssigned, AgentStatusAccepted, AgentStatusPickedUp,
		AgentStatusOutForDelivery, AgentStatusDelivered:
		return true
	default:
		return false
	}
}

// ParseAgentStatus converts raw input into an AgentStatus.
func ParseAgentStatus(value string) (AgentStatus, error) {
	for _, candidate := range validAgentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid agent status %q", value)
}
