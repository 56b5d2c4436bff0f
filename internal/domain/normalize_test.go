package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func TestNormalize(t *testing.T) {
	train := []float64{1, 2, 3, 4}
	val := []float64{5}
	test := []float64{0, 2.5}

	scaled, ms := Normalize(train, val, test)

	assert.InDelta(t, 2.5, ms.Mean, 1e-12)
	// Population standard deviation, not the sample one.
	assert.InDelta(t, math.Sqrt(1.25), ms.Std, 1e-12)
	assert.InDelta(t, 0, floats.Sum(scaled.Train), 1e-12)
	assert.InDelta(t, (5-2.5)/math.Sqrt(1.25), scaled.Val[0], 1e-12)
	assert.InDelta(t, 0, scaled.Test[1], 1e-12)
}

func TestNormalize_RoundTrip(t *testing.T) {
	train := []float64{12.5, 13.1, 9.8, 10.0, 11.7}
	val := []float64{10.2, 14.0}
	test := []float64{8.9}

	scaled, ms := Normalize(train, val, test)

	assert.True(t, floats.EqualApprox(train, ms.Invert(scaled.Train), 1e-12))
	assert.True(t, floats.EqualApprox(val, ms.Invert(scaled.Val), 1e-12))
	assert.True(t, floats.EqualApprox(test, ms.Invert(scaled.Test), 1e-12))
}

func TestNormalize_StatisticsIgnoreValAndTest(t *testing.T) {
	train := []float64{1, 2, 3}
	_, a := Normalize(train, []float64{100}, []float64{-100})
	_, b := Normalize(train, []float64{7, 8, 9}, nil)
	assert.Equal(t, a, b)
}

func TestNormalize_ZeroVariance(t *testing.T) {
	scaled, ms := Normalize([]float64{3, 3, 3}, []float64{4}, []float64{3})

	assert.Equal(t, 0.0, ms.Std)
	assert.True(t, ms.Degenerate())
	assert.True(t, math.IsNaN(scaled.Train[0]))
	assert.True(t, math.IsInf(scaled.Val[0], 1))
	assert.True(t, math.IsNaN(scaled.Test[0]))
}

func TestNormalizeColumns(t *testing.T) {
	train := mat.NewDense(3, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
	})
	val := mat.NewDense(1, 2, []float64{4, 40})

	scaled, stats, err := NormalizeColumns(train, val, nil)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Nil(t, scaled.Test)

	assert.InDelta(t, 2, stats[0].Mean, 1e-12)
	assert.InDelta(t, 20, stats[1].Mean, 1e-12)
	assert.InDelta(t, 10*stats[0].Std, stats[1].Std, 1e-12)

	// Columns with proportional values normalise identically.
	for r := 0; r < 3; r++ {
		row := scaled.Train.RawRowView(r)
		assert.InDelta(t, row[0], row[1], 1e-12)
	}
	assert.InDelta(t, 2/math.Sqrt(2.0/3.0), scaled.Val.At(0, 0), 1e-12)

	s := Statistics{Inputs: stats}
	back, err := s.DenormalizeInputs(scaled.Train)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(train, back, 1e-12))
}

func TestNormalizeColumns_Errors(t *testing.T) {
	_, _, err := NormalizeColumns(nil, nil, nil)
	require.ErrorIs(t, err, ErrEmptySplit)

	_, _, err = NormalizeColumns(mat.NewDense(2, 2, nil), mat.NewDense(1, 3, nil), nil)
	require.ErrorIs(t, err, ErrShapeMismatch)
}

func TestStatistics_Degenerate(t *testing.T) {
	s := Statistics{
		Inputs: []MeanStd{{Mean: 1, Std: 2}, {Mean: 5, Std: 0}, {Mean: 0, Std: 1}},
		DeltaT: MeanStd{Mean: 0, Std: 0},
		Temp:   MeanStd{Mean: 10, Std: 1},
	}
	assert.Equal(t, []int{1}, s.DegenerateColumns())
	assert.Equal(t, []int{1}, s.ZeroVarianceColumns())
	assert.Empty(t, s.NonFiniteColumns())
	assert.Equal(t, []string{"delta_t"}, s.DegenerateTargets())
	err := s.CheckVariance()
	require.ErrorIs(t, err, ErrZeroVariance)
	assert.NotErrorIs(t, err, ErrNonFiniteStatistics)

	assert.Equal(t, []float64{1, 5, 0}, s.InputMeans())
	assert.Equal(t, []float64{2, 0, 1}, s.InputStds())

	ok := Statistics{Inputs: []MeanStd{{Std: 1}}, DeltaT: MeanStd{Std: 1}, Temp: MeanStd{Std: 1}}
	require.NoError(t, ok.CheckVariance())
}

func TestStatistics_NonFiniteSeparateFromZeroVariance(t *testing.T) {
	s := Statistics{
		Inputs: []MeanStd{{Mean: math.NaN(), Std: math.NaN()}, {Mean: 5, Std: 0}, {Mean: math.Inf(1), Std: 1}},
		DeltaT: MeanStd{Mean: 0, Std: 1},
		Temp:   MeanStd{Mean: math.NaN(), Std: math.NaN()},
	}
	assert.Equal(t, []int{0, 1, 2}, s.DegenerateColumns())
	assert.Equal(t, []int{1}, s.ZeroVarianceColumns())
	assert.Equal(t, []int{0, 2}, s.NonFiniteColumns())
	assert.Empty(t, s.ZeroVarianceTargets())
	assert.Equal(t, []string{"temp"}, s.NonFiniteTargets())

	err := s.CheckVariance()
	require.ErrorIs(t, err, ErrZeroVariance)
	require.ErrorIs(t, err, ErrNonFiniteStatistics)
}

func TestNormalize_NaNInTraining(t *testing.T) {
	_, ms := Normalize([]float64{1, math.NaN(), 3}, nil, nil)
	assert.True(t, ms.NonFinite())
	assert.False(t, ms.ZeroVariance())
	assert.True(t, ms.Degenerate())
}
