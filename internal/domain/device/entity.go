package device

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"waste-fleet-monitor/internal/domain/profile"
)

// Kind distinguishes the two device families.
type Kind string

const (
	KindSensor   Kind = "sensor"
	KindTrashbin Kind = "trashbin"
)

// MountType is how a sensor is installed inside the container.
type MountType string

const (
	MountHorizontal MountType = "HORIZONTAL"
	MountVertical   MountType = "VERTICAL"
	MountDiagonal   MountType = "DIAGONAL"
)

// DefaultMinRangeMM applies unless a vertical mount configures its own minimum.
const DefaultMinRangeMM = 200

// DefaultContainerVolume is used for route points without a known volume.
const DefaultContainerVolume = 120

// ContainerType carries the geometry a sensor needs to turn distance into fullness.
// Ranges are in meters.
type ContainerType struct {
	ID                 uuid.UUID
	Title              string
	Volume             float64
	HorizontalMaxRange float64
	VerticalMaxRange   float64
	DiagonalMaxRange   float64
	VerticalMinRange   *float64
	MoistureThreshold  int // mm
}

func (ct *ContainerType) MaxRange(mount MountType) (float64, error) {
	switch mount {
	case MountHorizontal:
		return ct.HorizontalMaxRange, nil
	case MountVertical:
		return ct.VerticalMaxRange, nil
	case MountDiagonal:
		return ct.DiagonalMaxRange, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedMount, mount)
}

// MinRange is only defined for vertical mounts.
func (ct *ContainerType) MinRange(mount MountType) *float64 {
	if mount != MountVertical {
		return nil
	}
	return ct.VerticalMinRange
}

type Location struct {
	Latitude  float64
	Longitude float64
}

// Sensor is an MQTT fill-level sensor.
type Sensor struct {
	ID               uuid.UUID
	CompanyID        uuid.UUID
	SerialNumber     string
	HardwareIdentity string
	ProfileID        *uuid.UUID
	Profile          *profile.Profile
	ContainerTypeID  uuid.UUID
	ContainerType    *ContainerType
	MountType        MountType
	Fullness         int
	Battery          int
	Temperature      int
	SimNumber        string
	SimBalance       *float64
	PhoneNumber      string
	Location         *Location
	Address          string
	Disabled         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Trashbin is an HTTP-reporting smart bin. Satellites share the master's
// transmitter and location.
type Trashbin struct {
	ID            uuid.UUID
	CompanyID     uuid.UUID
	SerialNumber  string
	PasswordHash  string
	IsMaster      bool
	MasterID      *uuid.UUID
	MaxVolume     int
	Fullness      int
	Battery       int
	Temperature   int
	Pressure      int
	Humidity      int
	AirQuality    int
	Traffic       int
	Location      *Location
	Address       string
	Disabled      bool
	DataUpdatedAt time.Time
	CreatedAt     time.Time
}

// Metric names one time series.
type Metric string

const (
	MetricFullness    Metric = "fullness"
	MetricBattery     Metric = "battery"
	MetricTemperature Metric = "temperature"
	MetricSimBalance  Metric = "sim_balance"
	MetricError       Metric = "error"
	MetricLocation    Metric = "location"
	MetricPressure    Metric = "pressure"
	MetricHumidity    Metric = "humidity"
	MetricAirQuality  Metric = "air_quality"
	MetricTraffic     Metric = "traffic"
)

// Fullness record metadata keys.
const (
	MetadataAnyMoisture     = "any_measurement_moisture"
	MetadataDryFullness     = "latest_moisture_free_fullness"
	MetadataSignalAmplitude = "signal_amplitude"
)

// Record is one time-series row. Exactly one record per (device, metric) is
// actual, except for errors where every active code is.
type Record struct {
	ID         uuid.UUID
	DeviceKind Kind
	DeviceID   uuid.UUID
	Metric     Metric
	Value      float64
	Latitude   *float64
	Longitude  *float64
	Metadata   map[string]any
	Actual     bool
	CreatedAt  time.Time
}

// RawMessage is an inbound payload stored verbatim before interpretation.
type RawMessage struct {
	ID         uuid.UUID
	DeviceKind Kind
	DeviceID   uuid.UUID
	Topic      string
	Payload    string
	Data       map[string]any
	CreatedAt  time.Time
}

// OnboardingRequest records an unknown hardware identity that reported in.
type OnboardingRequest struct {
	ID               uuid.UUID
	Number           int64
	HardwareIdentity string
	CreatedAt        time.Time
	ApprovedAt       *time.Time
	SensorID         *uuid.UUID
}
