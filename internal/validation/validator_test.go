package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/quietlocations/backend/internal/domain"
	"github.com/pkordes/quietlocations/backend/internal/validation"
)

type sample struct {
	ID  string  `json:"id" validate:"required"`
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
}

func TestStruct_OK(t *testing.T) {
	require.NoError(t, validation.Struct(sample{ID: "a", Lat: 45}))
}

func TestStruct_UsesJSONNames(t *testing.T) {
	err := validation.Struct(sample{ID: "", Lat: 0})

	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "id is required")
}

func TestStruct_Range(t *testing.T) {
	err := validation.Struct(sample{ID: "a", Lat: 91})

	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "lat must be at most 90")
}

func TestVar(t *testing.T) {
	require.NoError(t, validation.Var("occupancy_level", 3, "gte=1,lte=5"))

	err := validation.Var("occupancy_level", 0, "gte=1,lte=5")
	require.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "occupancy_level must be at least 1")
}
