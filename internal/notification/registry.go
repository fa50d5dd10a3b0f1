// Package notification turns device and route events into per-user
// notifications and delivers them by push and email.
package notification

import (
	"fmt"
	"strings"

	"waste-fleet-monitor/internal/domain/notification"
)

// Template renders one notification kind. Placeholders are written as
// {param} and filled from the notification params.
type Template struct {
	Subject string
	Message string
	Link    string
}

// Rendered is a notification ready for delivery.
type Rendered struct {
	Subject string
	Message string
	Link    string
}

// Registry maps every notification kind to its template. It is built once
// at startup and read concurrently afterwards.
type Registry struct {
	templates map[notification.Kind]Template
}

func NewRegistry() *Registry {
	return &Registry{templates: make(map[notification.Kind]Template)}
}

// DefaultRegistry registers every kind the service raises.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterSensorKinds(r)
	RegisterTrashbinKinds(r)
	RegisterRouteKinds(r)
	return r
}

func (r *Registry) Register(kind notification.Kind, tmpl Template) {
	r.templates[kind] = tmpl
}

func (r *Registry) Has(kind notification.Kind) bool {
	_, ok := r.templates[kind]
	return ok
}

// Render fills the template of n's kind.
func (r *Registry) Render(n *notification.Notification) (Rendered, error) {
	tmpl, ok := r.templates[n.Kind]
	if !ok {
		return Rendered{}, fmt.Errorf("%w: %s", notification.ErrUnknownKind, n.Kind)
	}

	pairs := make([]string, 0, len(n.Params)*2)
	for k, v := range n.Params {
		pairs = append(pairs, "{"+k+"}", v)
	}
	replacer := strings.NewReplacer(pairs...)
	return Rendered{
		Subject: replacer.Replace(tmpl.Subject),
		Message: replacer.Replace(tmpl.Message),
		Link:    replacer.Replace(tmpl.Link),
	}, nil
}

const (
	ParamSerial    = "serial_number"
	ParamFullness  = "fullness_level"
	ParamBattery   = "battery_level"
	ParamLatitude  = "lat"
	ParamLongitude = "lng"
	ParamRouteID   = "route_id"
	ParamDriver    = "driver"
	ParamAddress   = "address"
	ParamComment   = "comment"
)

const (
	sensorLink   = "/main/?device_profile=sensor&lat={lat}&lng={lng}"
	trashbinLink = "/main/?device_profile=trashbin&lat={lat}&lng={lng}"
	routeLink    = "/routes/{route_id}"
)

func RegisterSensorKinds(r *Registry) {
	subject := "Sensor {serial_number}"
	r.Register(notification.SensorFullnessAboveThreshold, Template{subject, "Sensor fullness is {fullness_level} percent", sensorLink})
	r.Register(notification.SensorBatteryBelowThreshold, Template{subject, "Sensor battery level is {battery_level} percent", sensorLink})
	r.Register(notification.SensorFireDetected, Template{subject, "Fire and/or high temperature detected", sensorLink})
}

func RegisterTrashbinKinds(r *Registry) {
	subject := "Bin {serial_number}"
	r.Register(notification.TrashbinFullnessAboveThreshold, Template{subject, "Bin fullness is {fullness_level} percent", trashbinLink})
	r.Register(notification.TrashbinBatteryBelowThreshold, Template{subject, "Bin battery level is {battery_level} percent", trashbinLink})
	r.Register(notification.TrashbinFireDetected, Template{subject, "Fire, smoke and/or high temperature detected", trashbinLink})
	r.Register(notification.TrashbinVandalismDetected, Template{subject, "Possible vandalism detected", trashbinLink})
	r.Register(notification.TrashbinReceiverBlocked, Template{subject, "Trash receiver is blocked", trashbinLink})
	r.Register(notification.TrashbinDoorsAreOpen, Template{subject, "One or more doors are open", trashbinLink})
	r.Register(notification.TrashbinLowBatteryCode, Template{subject, "Bin reports a low battery, level is {battery_level} percent", trashbinLink})
}

func RegisterRouteKinds(r *Registry) {
	subject := "Route {route_id}"
	r.Register(notification.RouteAbortedByUser, Template{subject, "Route was aborted by {driver}", routeLink})
	r.Register(notification.RouteCompleted, Template{subject, "Route was completed by {driver}", routeLink})
	r.Register(notification.RoutePointCollectionIssue, Template{subject, "Collection issue at {address}: {comment}", routeLink})
}
