package trashbin

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"waste-fleet-monitor/internal/domain/device"
	appErrors "waste-fleet-monitor/pkg/errors"
)

const (
	MaxBodySize = 1024 * 1024
	MaxRecords  = 10000

	MinVoltage = 11.8
	MaxVoltage = 12.8
)

// Record keys sent by trashbin firmware.
const (
	keyTime        = "ctime"
	keyFullness    = "binFilling"
	keyTemperature = "sensorTemperature"
	keyVoltage     = "batteryVoltage"
	keyPressure    = "sensorPressure"
	keyHumidity    = "sensorHumidity"
	keyAirQuality  = "sensorAirQuality"
	keyTraffic     = "sensorTraffic"
	keySimBalance  = "simBalance"
	keyError       = "Error"
	keyLatitude    = "lat"
	keyLongitude   = "lng"
)

var mandatoryFields = []string{"version", "serial", "data"}

// Packet is the envelope a master trashbin posts for itself and its satellites.
type Packet struct {
	Serial string
	Data   []map[string]any
	Bins   []BinPacket

	raw map[string]any
}

type packetWire struct {
	Serial any              `json:"serial"`
	Data   []map[string]any `json:"data"`
	Bins   []BinPacket      `json:"bins"`
}

// BinPacket carries the records of one satellite.
type BinPacket struct {
	Serial string           `json:"serial"`
	Data   []map[string]any `json:"data"`
}

// RecordCount counts master and satellite records together.
func (p *Packet) RecordCount() int {
	n := len(p.Data)
	for _, b := range p.Bins {
		n += len(b.Data)
	}
	return n
}

// ParsePacket decodes body and checks the mandatory fields.
func ParsePacket(body []byte) (*Packet, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Body parsing failed", err)
	}
	for _, field := range mandatoryFields {
		if _, ok := raw[field]; !ok {
			return nil, appErrors.NewAppError("VALIDATION_ERROR", fmt.Sprintf("Mandatory '%s' field is missing", field), nil)
		}
	}

	var wire packetWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, appErrors.NewAppError("VALIDATION_ERROR", "Body parsing failed", err)
	}
	p := Packet{Serial: fmt.Sprint(wire.Serial), Data: wire.Data, Bins: wire.Bins}
	p.raw = raw
	return &p, nil
}

// VoltageToBattery maps the accumulator voltage linearly onto 0-100 percent.
func VoltageToBattery(voltage float64) int {
	pct := (voltage - MinVoltage) / (MaxVoltage - MinVoltage) * 100
	return int(math.Round(math.Max(0, math.Min(100, pct))))
}

// reading is one decoded record value.
type reading struct {
	metric    device.Metric
	value     float64
	at        time.Time
	latitude  float64
	longitude float64
}

// decodeRecord turns one firmware record into readings. Unknown keys are
// returned so the caller can log them.
func decodeRecord(rec map[string]any, now time.Time) ([]reading, []string) {
	at := now
	if s, ok := rec[keyTime].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			at = t.UTC()
		} else if t, err := time.Parse("2006-01-02T15:04:05.999999", s); err == nil {
			at = t.UTC()
		}
	}

	var out []reading
	var unknown []string
	lat, hasLat := number(rec[keyLatitude])
	lng, hasLng := number(rec[keyLongitude])
	if hasLat && hasLng {
		out = append(out, reading{metric: device.MetricLocation, at: at, latitude: lat, longitude: lng})
	}

	for key, v := range rec {
		var metric device.Metric
		switch key {
		case keyTime, keyLatitude, keyLongitude:
			continue
		case keyFullness:
			metric = device.MetricFullness
		case keyTemperature:
			metric = device.MetricTemperature
		case keyVoltage:
			metric = device.MetricBattery
		case keyPressure:
			metric = device.MetricPressure
		case keyHumidity:
			metric = device.MetricHumidity
		case keyAirQuality:
			metric = device.MetricAirQuality
		case keyTraffic:
			metric = device.MetricTraffic
		case keySimBalance:
			metric = device.MetricSimBalance
		case keyError:
			metric = device.MetricError
		default:
			unknown = append(unknown, key)
			continue
		}

		value, ok := number(v)
		if !ok {
			unknown = append(unknown, key)
			continue
		}
		if metric == device.MetricBattery {
			value = float64(VoltageToBattery(value))
		}
		out = append(out, reading{metric: metric, value: value, at: at})
	}
	return out, unknown
}

// number accepts JSON numbers and numeric strings with a trailing unit,
// e.g. "12.5 rub".
func number(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case string:
		fields := strings.Fields(x)
		if len(fields) == 0 {
			return 0, false
		}
		f, err := strconv.ParseFloat(fields[0], 64)
		return f, err == nil
	}
	return 0, false
}
