package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorWrapping(t *testing.T) {
	appErr := NewAppError("LICENSE_INVALID", "ingestion aborted", ErrLicenseInvalid)
	wrapped := fmt.Errorf("pipeline: %w", appErr)

	assert.True(t, errors.Is(wrapped, ErrLicenseInvalid))
	assert.Equal(t, "LICENSE_INVALID", Code(wrapped))
	assert.Equal(t, "ingestion aborted: company license is missing or invalid", appErr.Error())
	assert.Equal(t, "", Code(errors.New("plain")))
}
