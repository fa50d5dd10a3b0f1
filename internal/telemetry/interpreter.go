package telemetry

import (
	"math"
	"regexp"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/logger"
	"waste-fleet-monitor/pkg/codec"
)

// Sensor wire keys.
const (
	KeyRange       = "binFill"
	KeyAmplitude   = "ampltd"
	KeyBattery     = "batV"
	KeyErrorCode   = "rFlag"
	KeyTemperature = "temp"
	KeyICCID       = "ICCID"
	KeyGPS         = "gps"
	KeySimBalance  = "simBalance"
	KeyPhoneNumber = "phoneNum"
)

// DefaultMoistureThresholdMM applies when the container type has none.
const DefaultMoistureThresholdMM = 20

var (
	simBalancePattern  = regexp.MustCompile(`[+-]?\d+(?:\.\d+)`)
	phoneNumberPattern = regexp.MustCompile(`^\d{0,15}$`)
	iccidPattern       = regexp.MustCompile(`^\d{0,20}$`)
)

// Result is the outcome of interpreting one message: the updated sensor and
// the time-series records to append.
type Result struct {
	Sensor  *device.Sensor
	Records []*device.Record
	// Moisture is set when the fullness record still needs the latest
	// moisture-free fullness in its metadata.
	Moisture        bool
	LocationChanged bool
}

// Record returns the first record of metric, if any.
func (r *Result) Record(metric device.Metric) *device.Record {
	for _, rec := range r.Records {
		if rec.Metric == metric {
			return rec
		}
	}
	return nil
}

// Interpret applies every recognized key of msg to a copy of s. It performs
// no I/O and never fails: malformed values are logged and skipped.
func Interpret(s *device.Sensor, msg codec.Message, now time.Time) *Result {
	updated := *s
	res := &Result{Sensor: &updated}
	log := logger.WithDevice(string(device.KindSensor), s.SerialNumber)

	newRecord := func(metric device.Metric, value float64) *device.Record {
		rec := &device.Record{
			ID:         uuid.New(),
			DeviceKind: device.KindSensor,
			DeviceID:   s.ID,
			Metric:     metric,
			Value:      value,
			Actual:     true,
			CreatedAt:  now,
		}
		res.Records = append(res.Records, rec)
		return rec
	}

	if raw, ok := msg.Get(KeyRange); ok {
		interpretRange(res, msg, raw, newRecord, log)
	}

	if raw, ok := msg.Get(KeyBattery); ok {
		if battery, err := strconv.Atoi(raw); err != nil {
			log.Warn("Invalid battery value", zap.String("value", raw))
		} else {
			updated.Battery = battery
			newRecord(device.MetricBattery, float64(battery))
		}
	}

	if raw, ok := msg.Get(KeyErrorCode); ok {
		code, err := strconv.Atoi(raw)
		switch {
		case err != nil:
			log.Warn("Invalid error code value", zap.String("value", raw))
		case code == NoError:
			log.Debug("Error code 0 received, assumed no errors occurred")
		default:
			if _, known := LookupErrorCode(device.KindSensor, code); !known {
				log.Warn("Unrecognized error code received", zap.Int("code", code))
				break
			}
			newRecord(device.MetricError, float64(code))
		}
	}

	if raw, ok := msg.Get(KeyTemperature); ok {
		if temperature, err := strconv.Atoi(raw); err != nil {
			log.Warn("Invalid temperature value", zap.String("value", raw))
		} else {
			updated.Temperature = temperature
			newRecord(device.MetricTemperature, float64(temperature))
		}
	}

	if raw, ok := msg.Get(KeyICCID); ok {
		if iccidPattern.MatchString(raw) {
			updated.SimNumber = raw
		} else {
			log.Warn("Failed to parse ICCID", zap.String("value", raw))
		}
	}

	if raw, ok := msg.Get(KeyGPS); ok {
		loc, err := ParseNMEA(raw)
		if err != nil {
			log.Warn("Skipping GPS value", zap.String("value", raw), zap.Error(err))
		} else {
			res.LocationChanged = s.Location == nil || *s.Location != loc
			updated.Location = &loc
			rec := newRecord(device.MetricLocation, 0)
			rec.Latitude = &loc.Latitude
			rec.Longitude = &loc.Longitude
		}
	}

	if raw, ok := msg.Get(KeySimBalance); ok {
		if match := simBalancePattern.FindString(raw); match == "" {
			log.Warn("Failed to parse SIM balance", zap.String("value", raw))
		} else if v, err := strconv.ParseFloat(match, 64); err == nil {
			balance := math.RoundToEven(v)
			updated.SimBalance = &balance
			newRecord(device.MetricSimBalance, balance)
		}
	}

	if raw, ok := msg.Get(KeyPhoneNumber); ok {
		if phoneNumberPattern.MatchString(raw) {
			updated.PhoneNumber = raw
		} else {
			log.Warn("Failed to parse phone number", zap.String("value", raw))
		}
	}

	return res
}

func interpretRange(res *Result, msg codec.Message, raw string, newRecord func(device.Metric, float64) *device.Record, log *zap.Logger) {
	s := res.Sensor
	rangeMM, err := strconv.Atoi(raw)
	if err != nil {
		log.Warn("Invalid value for range", zap.String("key", KeyRange), zap.String("value", raw))
		return
	}

	geometry, err := GeometryFor(s.ContainerType, s.MountType)
	if err != nil {
		log.Error("Cannot compute fullness", zap.String("mount", string(s.MountType)), zap.Error(err))
		return
	}

	fullness := RoundPercent(geometry.Fullness(float64(rangeMM)))
	s.Fullness = fullness
	rec := newRecord(device.MetricFullness, float64(fullness))

	if rawAmp, ok := msg.Get(KeyAmplitude); ok {
		if amp, err := strconv.Atoi(rawAmp); err != nil {
			log.Warn("Invalid value for signal amplitude", zap.String("value", rawAmp))
		} else {
			rec.Metadata = map[string]any{device.MetadataSignalAmplitude: amp}
		}
	}

	threshold := DefaultMoistureThresholdMM
	if s.ContainerType.MoistureThreshold > 0 {
		threshold = s.ContainerType.MoistureThreshold
	}
	if band, wet := MoistureBand(s.Profile, threshold, float64(rangeMM)); wet {
		if rec.Metadata == nil {
			rec.Metadata = make(map[string]any)
		}
		rec.Metadata[string(codec.BandField(band, "moisture"))] = true
		rec.Metadata[device.MetadataAnyMoisture] = true
		res.Moisture = true
	}
}
