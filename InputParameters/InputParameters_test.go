package InputParameters

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	fileInput := []byte(`
Title: Unit square
QuadratureOrder: 2
Components: 2
Source: 1.5
MeanConstraint: true
IntegrationPolicy: FailFast
BLAS: false
Regions:
  1:
    Conductivity: 4.0
`)
	var input InputParameters
	require.NoError(t, input.Parse(fileInput))
	assert.Equal(t, "Unit square", input.Title)
	assert.Equal(t, 2, input.Components)
	assert.Equal(t, 1.5, input.Source)
	assert.Equal(t, "FailFast", input.IntegrationPolicy)
	assert.True(t, input.MeanConstraint)
	require.NotNil(t, input.BLAS)
	assert.False(t, *input.BLAS)
	// defaults
	assert.Equal(t, 1., input.Conductivity)
	assert.Equal(t, 1, input.Parallel)

	assert.Equal(t, 4., input.RegionValue(1, "Conductivity", input.Conductivity))
	assert.Equal(t, 1., input.RegionValue(2, "Conductivity", input.Conductivity))
	var out bytes.Buffer
	input.Print(&out)
	assert.Contains(t, out.String(), "= Integration Policy")
	assert.Contains(t, out.String(), "Regions[1] = map[Conductivity:4]")
}

func TestParseErrors(t *testing.T) {
	var input InputParameters
	assert.Error(t, input.Parse([]byte("QuadratureOrder: 3")))
	input = InputParameters{}
	assert.Error(t, input.Parse([]byte("Components: -1")))
	input = InputParameters{}
	assert.Error(t, input.Parse([]byte("Title: [unterminated")))
	input = InputParameters{}
	require.NoError(t, input.Parse([]byte("")))
	assert.Equal(t, "LogAndContinue", input.IntegrationPolicy)
	assert.Nil(t, input.BLAS)
}
