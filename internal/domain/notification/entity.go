package notification

import (
	"time"

	"github.com/google/uuid"
)

// Priority orders notifications; a lower number is more urgent.
type Priority int

const (
	PriorityHigh   Priority = 1
	PriorityMedium Priority = 2
	PriorityLow    Priority = 3
)

// Level is the display level tied to a priority.
func (p Priority) Level() string {
	switch p {
	case PriorityHigh:
		return "error"
	case PriorityMedium:
		return "warning"
	default:
		return "info"
	}
}

// Kind identifies a notification template.
type Kind string

const (
	SensorFullnessAboveThreshold Kind = "SENSOR_FULLNESS_ABOVE_THRESHOLD"
	SensorBatteryBelowThreshold  Kind = "SENSOR_BATTERY_BELOW_THRESHOLD"
	SensorFireDetected           Kind = "SENSOR_FIRE_DETECTED"

	TrashbinFullnessAboveThreshold Kind = "TRASHBIN_FULLNESS_ABOVE_THRESHOLD"
	TrashbinBatteryBelowThreshold  Kind = "TRASHBIN_BATTERY_BELOW_THRESHOLD"
	TrashbinFireDetected           Kind = "TRASHBIN_FIRE_DETECTED"
	TrashbinVandalismDetected      Kind = "TRASHBIN_VANDALISM_DETECTED"
	TrashbinReceiverBlocked        Kind = "TRASHBIN_TRASH_RECEIVER_BLOCKED"
	TrashbinDoorsAreOpen           Kind = "TRASHBIN_DOORS_ARE_OPEN"
	TrashbinLowBatteryCode         Kind = "TRASHBIN_LOW_BATTERY_ERROR"

	RouteAbortedByUser        Kind = "ROUTE_ABORTED_BY_USER"
	RouteCompleted            Kind = "ROUTE_COMPLETED"
	RoutePointCollectionIssue Kind = "ROUTE_POINT_COLLECTION_ISSUE"
)

// Notification is addressed to one user. Params feed the template.
type Notification struct {
	ID          uuid.UUID
	RecipientID uuid.UUID
	CompanyID   uuid.UUID
	Kind        Kind
	Priority    Priority
	TargetID    uuid.UUID
	Params      map[string]string
	Pushed      bool
	Emailed     bool
	Read        bool
	CreatedAt   time.Time
}

// Recipient is a user that receives company notifications.
type Recipient struct {
	UserID uuid.UUID
	Email  string
	Name   string
}
