package utils

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	userID, companyID := uuid.New(), uuid.New()

	token, err := GenerateToken(userID, companyID, "BWSFNB-02400017", "trashbin", "secret", 1)
	require.NoError(t, err)

	claims, err := ValidateToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, companyID, claims.CompanyID)
	assert.Equal(t, "trashbin", claims.Role)
	assert.Equal(t, "BWSFNB-02400017", claims.Subject)

	_, err = ValidateToken(token, "other")
	assert.Error(t, err)
}

func TestExpiredTokenIsRejected(t *testing.T) {
	token, err := GenerateToken(uuid.New(), uuid.New(), "driver@example.com", "driver", "secret", -1)
	require.NoError(t, err)

	_, err = ValidateToken(token, "secret")
	assert.Error(t, err)
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "s3cret"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestValidateStruct(t *testing.T) {
	type request struct {
		Serial string `validate:"required"`
		Status string `validate:"oneof=SUCCESS FAILURE"`
	}

	assert.NoError(t, ValidateStruct(request{Serial: "x", Status: "SUCCESS"}))

	err := ValidateStruct(request{Status: "DONE"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Serial is required")
	assert.Contains(t, err.Error(), "Status must be one of [SUCCESS FAILURE]")
}

func TestSanitizeText(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;blocked&lt;/b&gt;\nby car", SanitizeText("  <b>blocked</b>\nby car\x00 "))
}
