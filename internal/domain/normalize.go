package domain

import (
	"encoding/json"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// MeanStd is the affine transform of one column.
type MeanStd struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
}

// ZeroVariance reports whether the column was constant in training.
func (m MeanStd) ZeroVariance() bool {
	return m.Std == 0
}

// NonFinite reports whether the training values held NaN or ±Inf, leaving
// the mean or std unusable.
func (m MeanStd) NonFinite() bool {
	return !finite(m.Mean) || !finite(m.Std)
}

// Degenerate reports whether the column cannot be normalised.
func (m MeanStd) Degenerate() bool {
	return m.ZeroVariance() || m.NonFinite()
}

type meanStdJSON struct {
	Mean Float `json:"mean"`
	Std  Float `json:"std"`
}

// MarshalJSON writes non-finite values as strings so degenerate columns
// still persist.
func (m MeanStd) MarshalJSON() ([]byte, error) {
	return json.Marshal(meanStdJSON{Mean: Float(m.Mean), Std: Float(m.Std)})
}

func (m *MeanStd) UnmarshalJSON(b []byte) error {
	var j meanStdJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	*m = MeanStd{Mean: float64(j.Mean), Std: float64(j.Std)}
	return nil
}

// Apply returns (x - mean) / std for every element.
func (m MeanStd) Apply(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = (v - m.Mean) / m.Std
	}
	return out
}

// Invert returns x*std + mean for every element.
func (m MeanStd) Invert(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v*m.Std + m.Mean
	}
	return out
}

// Scaled holds the three normalised splits of one array.
type Scaled struct {
	Train, Val, Test []float64
}

// Normalize fits mean and population standard deviation on train and applies
// them to all three splits. A constant train column leaves std at zero and
// the outputs non-finite.
func Normalize(train, val, test []float64) (Scaled, MeanStd) {
	mean, std := stat.PopMeanStdDev(train, nil)
	ms := MeanStd{Mean: mean, Std: std}
	return Scaled{Train: ms.Apply(train), Val: ms.Apply(val), Test: ms.Apply(test)}, ms
}

// ScaledMatrices holds the three normalised feature matrices. Val or Test is
// nil when that split is empty.
type ScaledMatrices struct {
	Train, Val, Test *mat.Dense
}

// NormalizeColumns normalises every column of the feature matrices with the
// statistics of the matching train column.
func NormalizeColumns(train, val, test *mat.Dense) (ScaledMatrices, []MeanStd, error) {
	if train == nil {
		return ScaledMatrices{}, nil, fmt.Errorf("%w: %s", ErrEmptySplit, SplitTrain)
	}
	rows, cols := train.Dims()
	for _, m := range []*mat.Dense{val, test} {
		if m == nil {
			continue
		}
		if _, c := m.Dims(); c != cols {
			return ScaledMatrices{}, nil, fmt.Errorf("%w: %d columns, train has %d", ErrShapeMismatch, c, cols)
		}
	}

	stats := make([]MeanStd, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, train)
		mean, std := stat.PopMeanStdDev(col, nil)
		stats[j] = MeanStd{Mean: mean, Std: std}
	}

	return ScaledMatrices{
		Train: applyColumns(train, stats),
		Val:   applyColumns(val, stats),
		Test:  applyColumns(test, stats),
	}, stats, nil
}

func applyColumns(m *mat.Dense, stats []MeanStd) *mat.Dense {
	if m == nil {
		return nil
	}
	rows, cols := m.Dims()
	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		src, dst := m.RawRowView(r), out.RawRowView(r)
		for j, s := range stats {
			dst[j] = (src[j] - s.Mean) / s.Std
		}
	}
	return out
}

// Statistics is everything needed to undo normalisation: one entry per
// feature column in column order, and one per target.
type Statistics struct {
	Inputs []MeanStd `json:"inputs"`
	DeltaT MeanStd   `json:"delta_t"`
	Temp   MeanStd   `json:"temp"`
}

// InputMeans returns the feature means in column order.
func (s Statistics) InputMeans() []float64 {
	out := make([]float64, len(s.Inputs))
	for i, ms := range s.Inputs {
		out[i] = ms.Mean
	}
	return out
}

// InputStds returns the feature standard deviations in column order.
func (s Statistics) InputStds() []float64 {
	out := make([]float64, len(s.Inputs))
	for i, ms := range s.Inputs {
		out[i] = ms.Std
	}
	return out
}

// DegenerateColumns lists the feature columns that cannot be normalised.
func (s Statistics) DegenerateColumns() []int {
	return s.columns(MeanStd.Degenerate)
}

// ZeroVarianceColumns lists the feature columns that were constant in training.
func (s Statistics) ZeroVarianceColumns() []int {
	return s.columns(MeanStd.ZeroVariance)
}

// NonFiniteColumns lists the feature columns whose training values held NaN or ±Inf.
func (s Statistics) NonFiniteColumns() []int {
	return s.columns(MeanStd.NonFinite)
}

// DegenerateTargets lists the targets that cannot be normalised.
func (s Statistics) DegenerateTargets() []string {
	return s.targets(MeanStd.Degenerate)
}

// ZeroVarianceTargets lists the targets that were constant in training.
func (s Statistics) ZeroVarianceTargets() []string {
	return s.targets(MeanStd.ZeroVariance)
}

// NonFiniteTargets lists the targets whose training values held NaN or ±Inf.
func (s Statistics) NonFiniteTargets() []string {
	return s.targets(MeanStd.NonFinite)
}

func (s Statistics) columns(match func(MeanStd) bool) []int {
	var cols []int
	for i, ms := range s.Inputs {
		if match(ms) {
			cols = append(cols, i)
		}
	}
	return cols
}

func (s Statistics) targets(match func(MeanStd) bool) []string {
	var names []string
	if match(s.DeltaT) {
		names = append(names, "delta_t")
	}
	if match(s.Temp) {
		names = append(names, "temp")
	}
	return names
}

// CheckVariance returns ErrZeroVariance when any column or target was
// constant in training and ErrNonFiniteStatistics when any held NaN or ±Inf.
func (s Statistics) CheckVariance() error {
	var errs []error
	if cols, targets := s.ZeroVarianceColumns(), s.ZeroVarianceTargets(); len(cols) > 0 || len(targets) > 0 {
		errs = append(errs, fmt.Errorf("%w: feature columns %v, targets %v", ErrZeroVariance, cols, targets))
	}
	if cols, targets := s.NonFiniteColumns(), s.NonFiniteTargets(); len(cols) > 0 || len(targets) > 0 {
		errs = append(errs, fmt.Errorf("%w: feature columns %v, targets %v", ErrNonFiniteStatistics, cols, targets))
	}
	return errors.Join(errs...)
}

// DenormalizeInputs maps a normalised feature matrix back to physical units.
func (s Statistics) DenormalizeInputs(m *mat.Dense) (*mat.Dense, error) {
	rows, cols := m.Dims()
	if cols != len(s.Inputs) {
		return nil, fmt.Errorf("%w: %d columns, statistics cover %d", ErrShapeMismatch, cols, len(s.Inputs))
	}
	out := mat.NewDense(rows, cols, nil)
	for r := 0; r < rows; r++ {
		src, dst := m.RawRowView(r), out.RawRowView(r)
		for j, ms := range s.Inputs {
			dst[j] = src[j]*ms.Std + ms.Mean
		}
	}
	return out, nil
}
