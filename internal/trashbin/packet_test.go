package trashbin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waste-fleet-monitor/internal/domain/device"
	appErrors "waste-fleet-monitor/pkg/errors"
)

func TestVoltageToBattery(t *testing.T) {
	tests := []struct {
		voltage float64
		want    int
	}{
		{11.0, 0},
		{11.8, 0},
		{12.3, 50},
		{12.55, 75},
		{12.8, 100},
		{13.4, 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, VoltageToBattery(tt.voltage), "voltage %.2f", tt.voltage)
	}
}

func TestParsePacket(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"not json", `{`, "Body parsing failed"},
		{"missing version", `{"serial":"A1","data":[]}`, "Mandatory 'version' field is missing"},
		{"missing serial", `{"version":1,"data":[]}`, "Mandatory 'serial' field is missing"},
		{"missing data", `{"version":1,"serial":"A1"}`, "Mandatory 'data' field is missing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePacket([]byte(tt.body))
			var appErr *appErrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.wantMsg, appErr.Message)
		})
	}
}

func TestParsePacketCountsSatelliteRecords(t *testing.T) {
	p, err := ParsePacket([]byte(`{"version":2,"serial":1042,"data":[{"binFilling":10},{"sensorTemperature":4}],
		"bins":[{"serial":"S1","data":[{"binFilling":30}]},{"serial":"S2","data":[{"binFilling":5},{"binFilling":6}]}]}`))
	require.NoError(t, err)

	assert.Equal(t, "1042", p.Serial)
	assert.Equal(t, 5, p.RecordCount())
}

func TestDecodeRecord(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	readings, unknown := decodeRecord(map[string]any{
		"ctime":          "2024-05-01T10:00:00.123456",
		"batteryVoltage": 12.3,
		"simBalance":     "40.5 rub",
		"mystery":        1.0,
	}, now)

	assert.Equal(t, []string{"mystery"}, unknown)
	require.Len(t, readings, 2)
	byMetric := map[device.Metric]reading{}
	for _, r := range readings {
		byMetric[r.metric] = r
	}
	assert.Equal(t, 50.0, byMetric[device.MetricBattery].value)
	assert.Equal(t, 40.5, byMetric[device.MetricSimBalance].value)
	assert.Equal(t, time.Date(2024, 5, 1, 10, 0, 0, 123456000, time.UTC), byMetric[device.MetricBattery].at)

	readings, _ = decodeRecord(map[string]any{"lat": 55.7, "lng": 37.6}, now)
	require.Len(t, readings, 1)
	assert.Equal(t, device.MetricLocation, readings[0].metric)
	assert.Equal(t, now, readings[0].at)
}
