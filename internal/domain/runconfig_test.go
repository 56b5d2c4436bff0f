package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullConfig() RunConfig {
	return RunConfig{
		Dimension: 3, Sal: true, Current: true, BolusVel: true, Density: true,
		Eta: true, Lat: true, Lon: true, Dep: true, PolyDegree: 1, StepSize: 1,
	}
}

func TestRunConfig_Validate(t *testing.T) {
	require.NoError(t, fullConfig().Validate())

	cfg := fullConfig()
	cfg.Dimension = 4
	require.ErrorIs(t, cfg.Validate(), ErrUnsupportedDimension)

	cfg = fullConfig()
	cfg.PolyDegree = 0
	require.Error(t, cfg.Validate())

	cfg = fullConfig()
	cfg.StepSize = 0
	require.Error(t, cfg.Validate())
}

func TestRunConfig_StencilFields(t *testing.T) {
	assert.Equal(t, []FieldName{FieldTemp}, RunConfig{Dimension: 2}.StencilFields())
	assert.Equal(t,
		[]FieldName{FieldTemp, FieldSal, FieldU, FieldV, FieldKwx, FieldKwy, FieldKwz, FieldDensity},
		fullConfig().StencilFields())
	assert.Equal(t,
		[]FieldName{FieldTemp, FieldU, FieldV, FieldDensity},
		RunConfig{Dimension: 2, Current: true, Density: true}.StencilFields())
}

func TestRunConfig_FeatureCount(t *testing.T) {
	tests := []struct {
		name string
		cfg  RunConfig
		want int
	}{
		{"2d temp only", RunConfig{Dimension: 2, PolyDegree: 1, StepSize: 1}, 9},
		{"3d temp only", RunConfig{Dimension: 3, PolyDegree: 1, StepSize: 1}, 27},
		{"3d everything", fullConfig(), 27*8 + 9 + 3},
		{"2d temp eta lat", RunConfig{Dimension: 2, Eta: true, Lat: true, PolyDegree: 1, StepSize: 1}, 19},
		{"2d temp poly 2", RunConfig{Dimension: 2, PolyDegree: 2, StepSize: 1}, 45},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cfg.FeatureCount())
		})
	}
}

func TestRunConfig_DataName(t *testing.T) {
	assert.Equal(t, "3dLatLonDepUVBolSalEtaDnsPolyDeg1_Step1", fullConfig().DataName())
	assert.Equal(t, "2dPolyDeg2_Step3", RunConfig{Dimension: 2, PolyDegree: 2, StepSize: 3}.DataName())
}
