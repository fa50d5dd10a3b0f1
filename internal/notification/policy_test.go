package notification

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/notification"
	"waste-fleet-monitor/internal/domain/user"
	"waste-fleet-monitor/internal/infrastructure/database/memory"
)

func kinds(events []Event) []notification.Kind {
	var out []notification.Kind
	for _, ev := range events {
		out = append(out, ev.Kind)
	}
	return out
}

func TestEventsFullnessPicksHighestThreshold(t *testing.T) {
	tests := []struct {
		name     string
		fullness int
		want     []notification.Kind
		priority notification.Priority
	}{
		{"below every threshold", 74, nil, 0},
		{"low", 75, []notification.Kind{notification.SensorFullnessAboveThreshold}, notification.PriorityLow},
		{"medium", 95, []notification.Kind{notification.SensorFullnessAboveThreshold}, notification.PriorityMedium},
		{"full", 100, []notification.Kind{notification.SensorFullnessAboveThreshold}, notification.PriorityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := Events(DeviceStatus{Kind: device.KindSensor, ID: uuid.New(), Fullness: tt.fullness, Battery: 90})
			assert.Equal(t, tt.want, kinds(events))
			if len(events) > 0 {
				assert.Equal(t, tt.priority, events[0].Priority)
			}
		})
	}
}

func TestEventsBattery(t *testing.T) {
	events := Events(DeviceStatus{Kind: device.KindSensor, Battery: 30})
	require.Len(t, events, 1)
	assert.Equal(t, notification.SensorBatteryBelowThreshold, events[0].Kind)
	assert.Equal(t, notification.PriorityLow, events[0].Priority)
	assert.Equal(t, "30", events[0].Params[ParamBattery])

	assert.Empty(t, Events(DeviceStatus{Kind: device.KindSensor, Battery: 31}))
}

func TestEventsOnlyMostSevereError(t *testing.T) {
	tests := []struct {
		name  string
		kind  device.Kind
		codes []int
		want  notification.Kind
	}{
		{"sensor fire", device.KindSensor, []int{2, 7}, notification.SensorFireDetected},
		{"fire beats everything", device.KindTrashbin, []int{18, 1, 6, 24, 9}, notification.TrashbinFireDetected},
		{"vandalism beats blocked receiver", device.KindTrashbin, []int{6, 24, 3}, notification.TrashbinVandalismDetected},
		{"blocked receiver beats doors", device.KindTrashbin, []int{2, 6}, notification.TrashbinReceiverBlocked},
		{"doors beat low battery code", device.KindTrashbin, []int{18, 4}, notification.TrashbinDoorsAreOpen},
		{"low battery code", device.KindTrashbin, []int{18}, notification.TrashbinLowBatteryCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := Events(DeviceStatus{Kind: tt.kind, Battery: 80, ErrorCodes: tt.codes})
			assert.Equal(t, []notification.Kind{tt.want}, kinds(events))
		})
	}
}

func TestEventsUnknownErrorsAreSilent(t *testing.T) {
	assert.Empty(t, Events(DeviceStatus{Kind: device.KindSensor, Battery: 80, ErrorCodes: []int{99}}))
}

func TestEventsFullSatellite(t *testing.T) {
	master := &device.Trashbin{ID: uuid.New(), SerialNumber: "M-1", IsMaster: true, Fullness: 80, Battery: 90}
	sat := &device.Trashbin{ID: uuid.New(), SerialNumber: "S-1", Fullness: 100, Battery: 90,
		Location: &device.Location{Latitude: 54.68, Longitude: 25.27}}

	events := Events(TrashbinStatus(master, nil, []*device.Trashbin{sat}))
	require.Len(t, events, 1)
	assert.Equal(t, sat.ID, events[0].TargetID)
	assert.Equal(t, notification.PriorityHigh, events[0].Priority)
	assert.Equal(t, "S-1", events[0].Params[ParamSerial])
	assert.Equal(t, "100", events[0].Params[ParamFullness])
	assert.Equal(t, "54.68", events[0].Params[ParamLatitude])
}

func TestPolicyEvaluateNotifiesRecipients(t *testing.T) {
	store := memory.New()
	companyID := uuid.New()
	store.Users().Add(&user.User{CompanyID: companyID, Email: "a@example.com", Role: user.RoleOperator, IsActive: true, Notify: true})
	store.Users().Add(&user.User{CompanyID: companyID, Email: "b@example.com", Role: user.RoleAdmin, IsActive: true, Notify: true})
	store.Users().Add(&user.User{CompanyID: companyID, Email: "driver@example.com", Role: user.RoleDriver, IsActive: true, Notify: true})

	p := NewPolicy(NewNotifier(store.Notifications(), store.Users(), DefaultRegistry()))
	sensor := &device.Sensor{ID: uuid.New(), CompanyID: companyID, SerialNumber: "BWSFNB-02400001", Fullness: 100, Battery: 20}

	n, err := p.Evaluate(context.Background(), SensorStatus(sensor, []int{2}))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Len(t, store.Notifications().All(), 6)
}
