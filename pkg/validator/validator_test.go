package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/encounter-api/pkg/errors"
)

type vitals struct {
	Temperature *float64 `json:"temperature,omitempty" validate:"omitempty,gte=30,lte=45"`
}

type payload struct {
	Reason string  `json:"reason" validate:"notblank"`
	Vitals *vitals `json:"vitals,omitempty"`
	Status string  `json:"billing_status,omitempty" validate:"omitempty,oneof=PENDING PAID WAIVED"`
}

func TestValidateNamesJSONFields(t *testing.T) {
	hot := 52.0
	err := New().Validate(payload{Reason: " ", Vitals: &vitals{Temperature: &hot}, Status: "FREE"})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrValidation))
	assert.Contains(t, err.Error(), "reason cannot be blank")
	assert.Contains(t, err.Error(), "vitals.temperature is above the allowed range")
	assert.Contains(t, err.Error(), "billing_status is not an allowed value")
}

func TestValidatePasses(t *testing.T) {
	normal := 37.0
	assert.NoError(t, Validate(&payload{Reason: "typo", Vitals: &vitals{Temperature: &normal}}))
}

func TestValidateStructIgnoresNonStructs(t *testing.T) {
	v := New()
	var p *payload

	assert.NoError(t, v.ValidateStruct(p))
	assert.NoError(t, v.ValidateStruct([]string{"a"}))
	assert.Error(t, v.ValidateStruct(&payload{}))
}
