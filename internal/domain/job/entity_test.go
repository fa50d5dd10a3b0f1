package job

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{"SUCCESS", StatusSuccess, false},
		{"success", StatusSuccess, false},
		{"FAILURE", StatusFailure, false},
		{"failure", StatusFailure, false},
		{"Success", StatusPending, true},
		{"", StatusPending, true},
		{"DONE", StatusPending, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidStatus)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
