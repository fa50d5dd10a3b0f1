package route

import "errors"

var (
	ErrRouteNotFound      = errors.New("route not found")
	ErrAssignmentNotFound = errors.New("route assignment not found")
	ErrPointTarget        = errors.New("either container or sensor should be specified")
	ErrNotRouteDriver     = errors.New("route driver does not match session user")
	ErrRouteFinished      = errors.New("route is already finished")
	ErrRouteNotNew        = errors.New("only new routes can be resent")
	ErrNoPoints           = errors.New("route has no points")
)
