package device

import "errors"

var (
	ErrSensorNotFound      = errors.New("sensor not found")
	ErrTrashbinNotFound    = errors.New("trashbin not found")
	ErrSensorAlreadyExists = errors.New("sensor already exists")
	ErrRecordNotFound      = errors.New("telemetry record not found")
	ErrOnboardingNotFound  = errors.New("onboarding request not found")
	ErrAlreadyApproved     = errors.New("onboarding request already approved")
	ErrUnsupportedMount    = errors.New("mount type is not supported")
)
