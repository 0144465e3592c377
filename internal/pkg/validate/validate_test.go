package validate

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	MobileNumber string `json:"mobile_number" validate:"required,mobile"`
	OTP          string `json:"otp" validate:"required,otp"`
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(&sample{MobileNumber: "9419114719", OTP: "000123"}))
	assert.NoError(t, Struct(&sample{MobileNumber: "919419114719", OTP: "999999"}))
}

func TestStruct_FieldErrorsUseJSONNames(t *testing.T) {
	err := Struct(&sample{})
	require.Error(t, err)

	var ve Errors
	require.True(t, errors.As(err, &ve))
	assert.Contains(t, ve, "mobile_number")
	assert.Contains(t, ve, "otp")
	assert.Equal(t, []string{"The otp field is required."}, ve["otp"])
}

func TestStruct_MobileShape(t *testing.T) {
	for _, bad := range []string{"941911471", "94191147190", "929419114719", "94191a4719", "+919419114719"} {
		err := Struct(&sample{MobileNumber: bad, OTP: "123456"})
		var ve Errors
		require.True(t, errors.As(err, &ve), bad)
		assert.Contains(t, ve, "mobile_number", bad)
	}
}

func TestStruct_OTPShape(t *testing.T) {
	for _, bad := range []string{"12345", "1234567", "12a456"} {
		err := Struct(&sample{MobileNumber: "9419114719", OTP: bad})
		var ve Errors
		require.True(t, errors.As(err, &ve), bad)
		assert.Contains(t, ve, "otp", bad)
	}
}
