package tensorset_test

import (
	"testing"

	"github.com/couchcryptid/ocean-sample-etl/internal/domain"
	"github.com/couchcryptid/ocean-sample-etl/internal/tensorset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFull(t *testing.T) {
	inputs := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	b, err := tensorset.Full(inputs, []float64{0.1, 0.2, 0.3})
	require.NoError(t, err)

	assert.Equal(t, []int{3, 2}, b.Inputs.Shape().Dimensions)
	assert.Equal(t, []int{3, 1}, b.Targets.Shape().Dimensions)
}

func TestRows_Errors(t *testing.T) {
	inputs := mat.NewDense(2, 2, []float64{1, 2, 3, 4})

	_, err := tensorset.Rows(inputs, []float64{1}, []int{0})
	require.ErrorIs(t, err, domain.ErrShapeMismatch)

	_, err = tensorset.Rows(inputs, []float64{1, 2}, []int{2})
	require.ErrorIs(t, err, domain.ErrOutOfBounds)

	_, err = tensorset.Full(nil, nil)
	require.ErrorIs(t, err, domain.ErrEmptySplit)
}

func TestBatches(t *testing.T) {
	inputs := mat.NewDense(5, 3, nil)
	batches, err := tensorset.Batches(inputs, make([]float64, 5), 2)
	require.NoError(t, err)
	require.Len(t, batches, 3)
	assert.Equal(t, []int{2, 3}, batches[0].Inputs.Shape().Dimensions)
	assert.Equal(t, []int{1, 3}, batches[2].Inputs.Shape().Dimensions)

	_, err = tensorset.Batches(inputs, make([]float64, 5), 0)
	require.Error(t, err)
}
