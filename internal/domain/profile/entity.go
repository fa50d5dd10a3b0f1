package profile

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"waste-fleet-monitor/pkg/codec"
)

// Profile is a settings template shared by many sensors. Values holds the
// fields that differ from the codec table defaults.
type Profile struct {
	ID        uuid.UUID
	CompanyID *uuid.UUID
	Name      string
	Values    map[codec.Field]string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func New(name string) *Profile {
	return &Profile{
		ID:     uuid.New(),
		Name:   name,
		Values: make(map[codec.Field]string),
	}
}

// Value returns the configured value or the table default.
func (p *Profile) Value(f codec.Field) string {
	if p != nil {
		if v, ok := p.Values[f]; ok {
			return v
		}
	}
	spec, err := codec.Lookup(f)
	if err != nil {
		return ""
	}
	return spec.Default
}

func (p *Profile) Int(f codec.Field) int {
	n, err := strconv.Atoi(p.Value(f))
	if err != nil {
		return 0
	}
	return n
}

func (p *Profile) Float(f codec.Field) float64 {
	v, err := strconv.ParseFloat(p.Value(f), 64)
	if err != nil {
		return 0
	}
	return v
}

// Set stores a value after checking it against the field table.
func (p *Profile) Set(f codec.Field, value string) error {
	spec, err := codec.Lookup(f)
	if err != nil {
		return err
	}
	if err := spec.CheckValue(value); err != nil {
		return err
	}
	if p.Values == nil {
		p.Values = make(map[codec.Field]string)
	}
	p.Values[f] = value
	return nil
}

// Clone returns a deep copy so edits can be diffed against the original.
func (p *Profile) Clone() *Profile {
	c := *p
	c.Values = make(map[codec.Field]string, len(p.Values))
	for k, v := range p.Values {
		c.Values[k] = v
	}
	return &c
}

// ConnectionWindowHours is the daily connection window length, wrapping past
// midnight when the stop hour precedes the start hour.
func (p *Profile) ConnectionWindowHours() int {
	start := p.Int(codec.ConnectionScheduleStart)
	stop := p.Int(codec.ConnectionScheduleStop)
	hours := stop - start
	if stop < start {
		hours += 24
	}
	return hours
}

// EnabledBand returns the first measurement band switched on, in
// close, mid, far order.
func (p *Profile) EnabledBand() (codec.Band, bool) {
	for _, b := range codec.Bands {
		if p.Int(codec.BandField(b, codec.OnFlag)) == 1 {
			return b, true
		}
	}
	return "", false
}

// Validate enforces cross-field constraints the field table cannot express.
func (p *Profile) Validate() error {
	for f, v := range p.Values {
		spec, err := codec.Lookup(f)
		if err != nil {
			return err
		}
		if err := spec.CheckValue(v); err != nil {
			return err
		}
	}

	hours := p.ConnectionWindowHours()
	if hours <= 0 {
		return ErrEmptyConnectionWindow
	}
	if p.Int(codec.MeasurementInterval) > hours*60 {
		return ErrIntervalTooLong
	}
	for _, b := range codec.Bands {
		if p.Int(codec.BandField(b, codec.Downsampling)) == 3 {
			return ErrInvalidDownsampling
		}
	}
	return nil
}

// Diff lists the fields whose effective value differs, in table order.
func Diff(before, after *Profile) []codec.Field {
	var changed []codec.Field
	for _, spec := range codec.Fields {
		if before.Value(spec.Field) != after.Value(spec.Field) {
			changed = append(changed, spec.Field)
		}
	}
	return changed
}
