package errors

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthorized            = errors.New("unauthorized access")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrInvalidToken            = errors.New("invalid or expired token")
	ErrInvalidCredentials      = errors.New("invalid credentials")

	ErrInvalidInput     = errors.New("invalid input data")
	ErrPayloadTooLarge  = errors.New("request body length cannot exceed 1 MB")
	ErrTooManyRecords   = errors.New("records count in a packet cannot exceed 10,000")
	ErrForeignPacket    = errors.New("providing packets for different device is forbidden")
	ErrLicenseInvalid   = errors.New("company license is missing or invalid")
	ErrInvalidJobStatus = errors.New("job status is not valid")
)

type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Code extracts the application error code, or "" when err is not an AppError.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
