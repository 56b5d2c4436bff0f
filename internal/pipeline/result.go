package pipeline

import (
	"time"

	"github.com/couchcryptid/ocean-sample-etl/internal/domain"
	"gonum.org/v1/gonum/mat"
)

// SplitArrays holds one split's shuffled samples. Inputs, DeltaT and Temp are
// normalised with training statistics; Orig and Clim stay in physical units
// and are only kept for the train and val splits.
type SplitArrays struct {
	Inputs *mat.Dense
	DeltaT []float64
	Temp   []float64
	Orig   []float64
	Clim   []float64
}

// Rows is the number of samples in the split.
func (s *SplitArrays) Rows() int {
	return len(s.DeltaT)
}

// Result is the output of one extraction run.
type Result struct {
	Name       string
	Run        domain.RunConfig
	Train      SplitArrays
	Val        SplitArrays
	Test       SplitArrays
	Statistics domain.Statistics
	Summary    domain.Summary
	StartedAt  time.Time
	FinishedAt time.Time
}

// Split returns the arrays of split s.
func (r *Result) Split(s domain.Split) *SplitArrays {
	switch s {
	case domain.SplitTrain:
		return &r.Train
	case domain.SplitVal:
		return &r.Val
	case domain.SplitTest:
		return &r.Test
	}
	return nil
}

// RawDeltaT returns split s's ΔT targets in physical units.
func (r *Result) RawDeltaT(s domain.Split) []float64 {
	return r.Statistics.DeltaT.Invert(r.Split(s).DeltaT)
}

// Elapsed is how long the run took up to the hand-off to loaders.
func (r *Result) Elapsed() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
