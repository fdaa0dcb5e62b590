package jobs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransientWrapping(t *testing.T) {
	base := errors.New("connection reset")
	err := Transient(base)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "transient")
	assert.True(t, errors.Is(err, base))

	assert.Nil(t, Transient(nil))
}

func TestIsValidation(t *testing.T) {
	base := errors.New("missing field")
	err := Invalid("mail", "normalize", []byte(`{"x":1}`), base)

	ve, ok := IsValidation(err)
	require.True(t, ok)
	assert.Equal(t, "mail", ve.Provider)
	assert.Equal(t, "normalize", ve.Stage)
	assert.Equal(t, []byte(`{"x":1}`), []byte(ve.Payload))
	assert.True(t, errors.Is(err, base))
}

func TestIsValidationThroughWrapping(t *testing.T) {
	inner := Invalid("calendar", "normalize", nil, errors.New("bad shape"))
	wrapped := fmt.Errorf("handler: %w", inner)

	ve, ok := IsValidation(wrapped)
	require.True(t, ok)
	assert.Equal(t, "calendar", ve.Provider)
}

func TestIsValidationRejectsOthers(t *testing.T) {
	_, ok := IsValidation(Transient(errors.New("timeout")))
	assert.False(t, ok)

	_, ok = IsValidation(errors.New("plain"))
	assert.False(t, ok)
}

func TestIsQuotaExhausted(t *testing.T) {
	err := &QuotaExhaustedError{Capability: "insight_generation"}
	assert.True(t, IsQuotaExhausted(err))
	assert.True(t, IsQuotaExhausted(fmt.Errorf("stage: %w", err)))
	assert.False(t, IsQuotaExhausted(errors.New("plain")))
	assert.Contains(t, err.Error(), "insight_generation")
}
