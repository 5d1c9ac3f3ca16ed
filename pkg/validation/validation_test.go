package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/gradebook-api/pkg/errors"
)

type namePayload struct {
	Name string `json:"name" validate:"required,max=5"`
}

func TestValidatorStruct(t *testing.T) {
	v := New()

	require.NoError(t, v.Struct(namePayload{Name: "ok"}))

	err := v.Struct(namePayload{})
	var appErr *appErrors.Error
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
	assert.Equal(t, "name is a required field", appErr.Message)

	err = v.Struct(namePayload{Name: "too long"})
	require.True(t, errors.As(err, &appErr))
	assert.Contains(t, appErr.Message, "name must be a maximum of 5 characters")
}
