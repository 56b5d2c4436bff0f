// Package tensorset turns extracted sample arrays into float32 gomlx tensors
// for training code.
package tensorset

import (
	"fmt"

	"github.com/couchcryptid/ocean-sample-etl/internal/domain"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"gonum.org/v1/gonum/mat"
)

// Batch holds the inputs, shaped (rows, features), and targets, shaped
// (rows, 1), of one batch.
type Batch struct {
	Inputs  *tensors.Tensor
	Targets *tensors.Tensor
}

// Full converts every row of inputs and targets.
func Full(inputs *mat.Dense, targets []float64) (Batch, error) {
	if inputs == nil {
		return Batch{}, domain.ErrEmptySplit
	}
	rows, _ := inputs.Dims()
	idx := make([]int, rows)
	for i := range idx {
		idx[i] = i
	}
	return Rows(inputs, targets, idx)
}

// Rows converts the selected rows of inputs and targets, in the given order.
func Rows(inputs *mat.Dense, targets []float64, idx []int) (Batch, error) {
	if inputs == nil {
		return Batch{}, domain.ErrEmptySplit
	}
	rows, cols := inputs.Dims()
	if rows != len(targets) {
		return Batch{}, fmt.Errorf("%w: %d input rows, %d targets", domain.ErrShapeMismatch, rows, len(targets))
	}

	// One backing array per tensor; rows are views into it.
	in := make([]float32, len(idx)*cols)
	out := make([]float32, len(idx))
	inRows := make([][]float32, len(idx))
	outRows := make([][]float32, len(idx))
	for i, r := range idx {
		if r < 0 || r >= rows {
			return Batch{}, fmt.Errorf("%w: row %d of %d", domain.ErrOutOfBounds, r, rows)
		}
		row := in[i*cols : (i+1)*cols]
		for j, v := range inputs.RawRowView(r) {
			row[j] = float32(v)
		}
		inRows[i] = row
		out[i] = float32(targets[r])
		outRows[i] = out[i : i+1]
	}
	return Batch{
		Inputs:  tensors.FromAnyValue(inRows),
		Targets: tensors.FromAnyValue(outRows),
	}, nil
}

// Batches cuts the rows into consecutive batches of at most size rows.
func Batches(inputs *mat.Dense, targets []float64, size int) ([]Batch, error) {
	if size < 1 {
		return nil, fmt.Errorf("batch size must be at least 1, got %d", size)
	}
	if inputs == nil {
		return nil, domain.ErrEmptySplit
	}
	rows, _ := inputs.Dims()
	var out []Batch
	for lo := 0; lo < rows; lo += size {
		hi := min(lo+size, rows)
		idx := make([]int, hi-lo)
		for i := range idx {
			idx[i] = lo + i
		}
		b, err := Rows(inputs, targets, idx)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}
