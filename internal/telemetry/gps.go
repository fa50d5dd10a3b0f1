package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"waste-fleet-monitor/internal/domain/device"
)

var (
	ErrNoFix      = errors.New("device reported no GPS fix")
	ErrEmptyParts = errors.New("GPS value has empty parts")
	ErrMalformed  = errors.New("GPS value is malformed")
)

var noFixValues = map[string]bool{
	"error":     true,
	"NoDatagps": true,
	"NoData":    true,
	"":          true,
}

// ParseNMEA decodes "<x>,ddmm.mmmm,N|S,dddmm.mmmm,E|W" into decimal degrees.
func ParseNMEA(value string) (device.Location, error) {
	if noFixValues[value] {
		return device.Location{}, ErrNoFix
	}

	parts := strings.Split(value, ",")
	if len(parts) < 5 {
		return device.Location{}, fmt.Errorf("%w: %d parts", ErrMalformed, len(parts))
	}
	for _, part := range parts[1:5] {
		if part == "" {
			return device.Location{}, ErrEmptyParts
		}
	}

	lat, err := nmeaToDecimal(parts[1])
	if err != nil {
		return device.Location{}, err
	}
	lon, err := nmeaToDecimal(parts[3])
	if err != nil {
		return device.Location{}, err
	}
	if parts[2] == "S" {
		lat = -lat
	}
	if parts[4] == "W" {
		lon = -lon
	}
	return device.Location{Latitude: lat, Longitude: lon}, nil
}

// nmeaToDecimal converts degrees and minutes packed as dddmm.mmmm.
func nmeaToDecimal(v string) (float64, error) {
	whole, fraction, ok := strings.Cut(v, ".")
	if !ok || len(whole) < 3 {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, v)
	}
	degrees, err := strconv.Atoi(whole[:len(whole)-2])
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, v)
	}
	minutes, err := strconv.ParseFloat(whole[len(whole)-2:]+"."+fraction, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, v)
	}
	return float64(degrees) + minutes/60, nil
}
