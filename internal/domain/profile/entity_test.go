package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"waste-fleet-monitor/pkg/codec"
)

func TestDefaultsComeFromFieldTable(t *testing.T) {
	p := New("default")

	assert.Equal(t, 30, p.Int(codec.MeasurementInterval))
	assert.Equal(t, 24, p.Int(codec.ConnectionScheduleStop))
	assert.InDelta(t, 0.06, p.Float(codec.BandField(codec.BandClose, codec.DistanceBegin)), 1e-9)

	band, ok := p.EnabledBand()
	require.True(t, ok)
	assert.Equal(t, codec.BandMid, band)
	assert.NoError(t, p.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		values map[codec.Field]string
		want   error
	}{
		{
			name:   "window wraps past midnight",
			values: map[codec.Field]string{codec.ConnectionScheduleStart: "22", codec.ConnectionScheduleStop: "2"},
		},
		{
			name:   "empty window",
			values: map[codec.Field]string{codec.ConnectionScheduleStart: "8", codec.ConnectionScheduleStop: "8"},
			want:   ErrEmptyConnectionWindow,
		},
		{
			name: "interval longer than window",
			values: map[codec.Field]string{
				codec.ConnectionScheduleStart: "8",
				codec.ConnectionScheduleStop:  "9",
				codec.MeasurementInterval:     "120",
			},
			want: ErrIntervalTooLong,
		},
		{
			name:   "downsampling of three",
			values: map[codec.Field]string{codec.BandField(codec.BandFar, codec.Downsampling): "3"},
			want:   ErrInvalidDownsampling,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.name)
			p.Values = tt.values
			err := p.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSetRejectsOutOfRange(t *testing.T) {
	p := New("x")
	assert.ErrorIs(t, p.Set(codec.MeasurementInterval, "2"), codec.ErrInvalidValue)
	assert.ErrorIs(t, p.Set("unknown_field", "2"), codec.ErrUnknownField)
	assert.NoError(t, p.Set(codec.MeasurementInterval, "60"))
}

func TestDiffListsOnlyChangedFields(t *testing.T) {
	before := New("p")
	require.NoError(t, before.Set(codec.GSMTimeout, "40"))

	after := before.Clone()
	require.NoError(t, after.Set(codec.MeasurementInterval, "60"))
	require.NoError(t, after.Set(codec.GSMTimeout, "40"))
	require.NoError(t, after.Set(codec.FireMinTemp, "70"))

	assert.Equal(t, []codec.Field{codec.MeasurementInterval}, Diff(before, after))
}
