package ingestion

import (
	"fmt"
)

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error [%s]: %s", e.Field, e.Message)
}

// ValidateMessage rejects messages that cannot be attributed to a device
// or are too large to be sensor telemetry.
func ValidateMessage(msg *Message) error {
	if msg == nil {
		return &ValidationError{Field: "message", Message: "message is required"}
	}
	if msg.Topic == "" {
		return &ValidationError{Field: "topic", Message: "topic is required"}
	}
	if _, ok := HardwareIdentity(msg.Topic); !ok {
		return &ValidationError{Field: "topic", Message: "topic carries no hardware identity"}
	}
	if len(msg.Payload) == 0 {
		return &ValidationError{Field: "payload", Message: "payload is empty"}
	}
	if len(msg.Payload) > MaxPayloadSize {
		return &ValidationError{Field: "payload", Message: fmt.Sprintf("payload exceeds %d bytes", MaxPayloadSize)}
	}
	return nil
}
