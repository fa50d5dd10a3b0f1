package profile

import "errors"

var (
	ErrProfileNotFound       = errors.New("settings profile not found")
	ErrProfileReadOnly       = errors.New("shared settings profiles cannot be edited")
	ErrEmptyConnectionWindow = errors.New("actual connection interval is zero or negative")
	ErrIntervalTooLong       = errors.New("measurement interval configured is too high, it won't happen even once a day")
	ErrInvalidDownsampling   = errors.New("downsampling values can't be equal to 3")
)
