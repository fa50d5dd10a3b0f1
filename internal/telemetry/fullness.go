package telemetry

import (
	"errors"
	"math"

	"waste-fleet-monitor/internal/domain/device"
	"waste-fleet-monitor/internal/domain/profile"
	"waste-fleet-monitor/pkg/codec"
)

// HorizontalFullness is reported when a horizontally mounted sensor sees waste.
const HorizontalFullness = 90

var (
	ErrMissingContainerType = errors.New("sensor has no container type")
	ErrEmptyRange           = errors.New("container usable range is empty")
)

// Geometry is the usable measuring range of a mounted sensor in millimeters.
type Geometry struct {
	Mount      device.MountType
	MaxRangeMM float64
	MinRangeMM float64
}

// GeometryFor derives the measuring range from the container type. The
// minimum defaults to 200 mm unless a vertical mount configures its own.
func GeometryFor(ct *device.ContainerType, mount device.MountType) (Geometry, error) {
	if ct == nil {
		return Geometry{}, ErrMissingContainerType
	}
	maxRange, err := ct.MaxRange(mount)
	if err != nil {
		return Geometry{}, err
	}

	g := Geometry{Mount: mount, MaxRangeMM: maxRange * 1000, MinRangeMM: device.DefaultMinRangeMM}
	if minRange := ct.MinRange(mount); minRange != nil && *minRange > 0 {
		g.MinRangeMM = *minRange * 1000
	}
	if g.MaxRangeMM-g.MinRangeMM <= 0 {
		return Geometry{}, ErrEmptyRange
	}
	return g, nil
}

// Fullness converts a range-to-waste distance into a fill percentage.
func (g Geometry) Fullness(rangeMM float64) float64 {
	usable := g.MaxRangeMM - g.MinRangeMM

	var filled float64
	switch {
	case rangeMM > g.MaxRangeMM:
		filled = 0
	case rangeMM < g.MinRangeMM:
		filled = usable
	default:
		filled = g.MaxRangeMM - rangeMM
	}

	if g.Mount == device.MountVertical || g.Mount == device.MountDiagonal {
		return filled / usable * 100
	}
	if rangeMM/usable <= 0.5 {
		return HorizontalFullness
	}
	return 0
}

// RoundPercent is the rounding applied to every stored fullness value.
func RoundPercent(v float64) int {
	return int(math.Round(v))
}

// MoistureBand reports which enabled measurement band flagged the reading as
// condensation. Only the first enabled band is considered.
func MoistureBand(p *profile.Profile, thresholdMM int, rangeMM float64) (codec.Band, bool) {
	band, ok := p.EnabledBand()
	if !ok {
		return "", false
	}
	begin := p.Float(codec.BandField(band, codec.DistanceBegin)) * 1000
	end := begin + float64(thresholdMM)
	if begin <= rangeMM && rangeMM <= end {
		return band, true
	}
	return "", false
}
