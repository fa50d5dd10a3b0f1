package user

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrUserInactive    = errors.New("user account is inactive")
	ErrInvalidUserRole = errors.New("invalid user role")
)
