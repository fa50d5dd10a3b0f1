package routing

import (
	"fmt"

	"waste-fleet-monitor/internal/domain/route"
	appErrors "waste-fleet-monitor/pkg/errors"
)

// State machine for route status transitions
var validTransitions = map[route.Status][]route.Status{
	route.StatusNew: {
		route.StatusStarted,
		route.StatusAbortedByDriver,
		route.StatusAbortedByOperator,
	},
	route.StatusStarted: {
		route.StatusStarted, // Restart refreshes the assignment
		route.StatusMovingHome,
		route.StatusCompleted,
		route.StatusAbortedByDriver,
		route.StatusAbortedByOperator,
	},
	route.StatusMovingHome: {
		route.StatusCompleted,
		route.StatusAbortedByDriver,
		route.StatusAbortedByOperator,
	},
	route.StatusCompleted: {
		// Terminal state - no transitions
	},
	route.StatusAbortedByOperator: {
		// Terminal state - no transitions
	},
	route.StatusAbortedByDriver: {
		// Terminal state - no transitions
	},
}

// ValidateStatusTransition checks if status transition is allowed
func ValidateStatusTransition(currentStatus, newStatus route.Status) error {
	allowedStatuses, exists := validTransitions[currentStatus]
	if !exists {
		return appErrors.NewAppError(
			"INVALID_STATUS",
			fmt.Sprintf("Unknown current status: %s", currentStatus),
			nil,
		)
	}

	for _, allowed := range allowedStatuses {
		if newStatus == allowed {
			return nil
		}
	}

	return appErrors.NewAppError(
		"INVALID_TRANSITION",
		fmt.Sprintf("Cannot transition from %s to %s", currentStatus, newStatus),
		nil,
	)
}

// GetAllowedTransitions returns allowed next statuses
func GetAllowedTransitions(currentStatus route.Status) []route.Status {
	return validTransitions[currentStatus]
}
