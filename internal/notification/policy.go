package notification

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/notification"
)

// BatteryThreshold is the level at or below which a low battery is reported.
const BatteryThreshold = 30

var fullnessThresholds = []struct {
	level    int
	priority notification.Priority
}{
	{100, notification.PriorityHigh},
	{90, notification.PriorityMedium},
	{75, notification.PriorityLow},
}

type errorRule struct {
	codes    []int
	kind     notification.Kind
	priority notification.Priority
	battery  bool
}

// Ordered by severity; only the first rule with an active code fires.
var errorRules = map[device.Kind][]errorRule{
	device.KindSensor: {
		{codes: []int{2}, kind: notification.SensorFireDetected, priority: notification.PriorityHigh},
	},
	device.KindTrashbin: {
		{codes: []int{8, 9}, kind: notification.TrashbinFireDetected, priority: notification.PriorityHigh},
		{codes: []int{24}, kind: notification.TrashbinVandalismDetected, priority: notification.PriorityHigh},
		{codes: []int{6}, kind: notification.TrashbinReceiverBlocked, priority: notification.PriorityHigh},
		{codes: []int{1, 2, 3, 4, 5}, kind: notification.TrashbinDoorsAreOpen, priority: notification.PriorityHigh},
		{codes: []int{18}, kind: notification.TrashbinLowBatteryCode, priority: notification.PriorityMedium, battery: true},
	},
}

var fullnessKinds = map[device.Kind]notification.Kind{
	device.KindSensor:   notification.SensorFullnessAboveThreshold,
	device.KindTrashbin: notification.TrashbinFullnessAboveThreshold,
}

var batteryKinds = map[device.Kind]notification.Kind{
	device.KindSensor:   notification.SensorBatteryBelowThreshold,
	device.KindTrashbin: notification.TrashbinBatteryBelowThreshold,
}

// DeviceStatus is the device state the status policy evaluates.
type DeviceStatus struct {
	Kind       device.Kind
	ID         uuid.UUID
	CompanyID  uuid.UUID
	Serial     string
	Fullness   int
	Battery    int
	Location   *device.Location
	ErrorCodes []int
	// Satellites count towards the fullness of a master trashbin.
	Satellites []DeviceStatus
}

func SensorStatus(s *device.Sensor, errorCodes []int) DeviceStatus {
	return DeviceStatus{
		Kind:       device.KindSensor,
		ID:         s.ID,
		CompanyID:  s.CompanyID,
		Serial:     s.SerialNumber,
		Fullness:   s.Fullness,
		Battery:    s.Battery,
		Location:   s.Location,
		ErrorCodes: errorCodes,
	}
}

func TrashbinStatus(t *device.Trashbin, errorCodes []int, satellites []*device.Trashbin) DeviceStatus {
	st := DeviceStatus{
		Kind:       device.KindTrashbin,
		ID:         t.ID,
		CompanyID:  t.CompanyID,
		Serial:     t.SerialNumber,
		Fullness:   t.Fullness,
		Battery:    t.Battery,
		Location:   t.Location,
		ErrorCodes: errorCodes,
	}
	if t.IsMaster {
		for _, sat := range satellites {
			st.Satellites = append(st.Satellites, TrashbinStatus(sat, nil, nil))
		}
	}
	return st
}

func (s DeviceStatus) params() map[string]string {
	p := map[string]string{ParamSerial: s.Serial}
	if s.Location != nil {
		p[ParamLatitude] = strconv.FormatFloat(s.Location.Latitude, 'f', -1, 64)
		p[ParamLongitude] = strconv.FormatFloat(s.Location.Longitude, 'f', -1, 64)
	}
	return p
}

// fullAt returns the device itself or the first satellite at or above level.
func (s DeviceStatus) fullAt(level int) (DeviceStatus, bool) {
	if s.Fullness >= level {
		return s, true
	}
	for _, sat := range s.Satellites {
		if sat.Fullness >= level {
			return sat, true
		}
	}
	return DeviceStatus{}, false
}

// Policy decides which status notifications a device state raises.
type Policy struct {
	notifier *Notifier
}

func NewPolicy(notifier *Notifier) *Policy {
	return &Policy{notifier: notifier}
}

// Events lists the notifications for a device state: at most one fullness
// event at the highest threshold crossed, a low battery event, and the
// single most severe active error.
func Events(s DeviceStatus) []Event {
	var events []Event

	for _, th := range fullnessThresholds {
		full, ok := s.fullAt(th.level)
		if !ok {
			continue
		}
		params := full.params()
		params[ParamFullness] = strconv.Itoa(full.Fullness)
		events = append(events, Event{
			CompanyID: s.CompanyID,
			TargetID:  full.ID,
			Kind:      fullnessKinds[s.Kind],
			Priority:  th.priority,
			Params:    params,
		})
		break
	}

	if s.Battery <= BatteryThreshold {
		params := s.params()
		params[ParamBattery] = strconv.Itoa(s.Battery)
		events = append(events, Event{
			CompanyID: s.CompanyID,
			TargetID:  s.ID,
			Kind:      batteryKinds[s.Kind],
			Priority:  notification.PriorityLow,
			Params:    params,
		})
	}

	active := make(map[int]bool, len(s.ErrorCodes))
	for _, c := range s.ErrorCodes {
		active[c] = true
	}
	for _, rule := range errorRules[s.Kind] {
		if !anyActive(active, rule.codes) {
			continue
		}
		params := s.params()
		if rule.battery {
			params[ParamBattery] = strconv.Itoa(s.Battery)
		}
		events = append(events, Event{
			CompanyID: s.CompanyID,
			TargetID:  s.ID,
			Kind:      rule.kind,
			Priority:  rule.priority,
			Params:    params,
		})
		break
	}

	return events
}

func anyActive(active map[int]bool, codes []int) bool {
	for _, c := range codes {
		if active[c] {
			return true
		}
	}
	return false
}

// Evaluate creates the notifications of Events and returns how many were
// stored across all recipients.
func (p *Policy) Evaluate(ctx context.Context, s DeviceStatus) (int, error) {
	total := 0
	for _, ev := range Events(s) {
		n, err := p.notifier.Notify(ctx, ev)
		if err != nil {
			return total, fmt.Errorf("failed to notify %s: %w", ev.Kind, err)
		}
		total += n
	}
	return total, nil
}
