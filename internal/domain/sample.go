package domain

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// SampleBlock holds the samples of one region at one timestep. Row i of
// Inputs lines up with element i of every target and reference slice.
type SampleBlock struct {
	Region string
	Time   int
	Inputs *mat.Dense
	DeltaT []float64 // T[t+step] - T[t]
	Temp   []float64 // T[t+step]
	Orig   []float64 // T[t]
	Clim   []float64 // climatological temperature
}

// Rows is the number of samples in the block.
func (b SampleBlock) Rows() int {
	return len(b.DeltaT)
}

// Accumulator folds sample blocks into one split's pool in arrival order.
type Accumulator struct {
	split  Split
	cols   int
	inputs []float64
	deltaT []float64
	temp   []float64
	orig   []float64
	clim   []float64
}

// NewAccumulator starts an empty pool whose rows are cols wide.
func NewAccumulator(split Split, cols int) *Accumulator {
	return &Accumulator{split: split, cols: cols}
}

// Add appends b below the samples already held.
func (a *Accumulator) Add(b SampleBlock) error {
	rows, cols := b.Inputs.Dims()
	if cols != a.cols {
		return fmt.Errorf("%w: %s block %s t=%d has %d features, want %d",
			ErrShapeMismatch, a.split, b.Region, b.Time, cols, a.cols)
	}
	if rows != len(b.DeltaT) || rows != len(b.Temp) || rows != len(b.Orig) || rows != len(b.Clim) {
		return fmt.Errorf("%w: %s block %s t=%d has %d input rows and %d/%d/%d/%d target rows",
			ErrShapeMismatch, a.split, b.Region, b.Time, rows,
			len(b.DeltaT), len(b.Temp), len(b.Orig), len(b.Clim))
	}
	for r := 0; r < rows; r++ {
		a.inputs = append(a.inputs, b.Inputs.RawRowView(r)...)
	}
	a.deltaT = append(a.deltaT, b.DeltaT...)
	a.temp = append(a.temp, b.Temp...)
	a.orig = append(a.orig, b.Orig...)
	a.clim = append(a.clim, b.Clim...)
	return nil
}

// Rows is the number of samples accumulated so far.
func (a *Accumulator) Rows() int {
	return len(a.deltaT)
}

// Pool hands the accumulated samples over. The accumulator must not be used
// afterwards.
func (a *Accumulator) Pool() *Pool {
	p := &Pool{
		Split:  a.split,
		Cols:   a.cols,
		DeltaT: a.deltaT,
		Temp:   a.temp,
		Orig:   a.orig,
		Clim:   a.clim,
	}
	if n := len(a.deltaT); n > 0 {
		p.Inputs = mat.NewDense(n, a.cols, a.inputs)
	}
	*a = Accumulator{split: a.split, cols: a.cols}
	return p
}

// Pool is every sample of one split. Inputs is nil when the split is empty.
type Pool struct {
	Split  Split
	Cols   int
	Inputs *mat.Dense
	DeltaT []float64
	Temp   []float64
	Orig   []float64
	Clim   []float64
}

// Rows is the number of samples in the pool.
func (p *Pool) Rows() int {
	return len(p.DeltaT)
}

// Shuffle draws one permutation from rng and applies it to every array of
// the pool, keeping inputs, targets and references aligned.
func (p *Pool) Shuffle(rng *rand.Rand) {
	n := p.Rows()
	perm := rng.Perm(n)
	if n == 0 {
		return
	}
	shuffled := mat.NewDense(n, p.Cols, nil)
	for i, src := range perm {
		copy(shuffled.RawRowView(i), p.Inputs.RawRowView(src))
	}
	p.Inputs = shuffled
	p.DeltaT = permute(p.DeltaT, perm)
	p.Temp = permute(p.Temp, perm)
	p.Orig = permute(p.Orig, perm)
	p.Clim = permute(p.Clim, perm)
}

func permute(s []float64, perm []int) []float64 {
	out := make([]float64, len(perm))
	for i, src := range perm {
		out[i] = s[src]
	}
	return out
}
