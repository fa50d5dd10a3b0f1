package notification

import "errors"

var (
	ErrUnknownKind          = errors.New("notification kind is not registered")
	ErrNotificationNotFound = errors.New("notification not found")
)
