package domain

import "fmt"

// Split names a sample partition.
type Split string

// Splits in time order.
const (
	SplitTrain Split = "train"
	SplitVal   Split = "val"
	SplitTest  Split = "test"
)

// Splits lists the partitions in time order.
var Splits = []Split{SplitTrain, SplitVal, SplitTest}

// SplitOptions sets up the temporal split. Total is the usable length of the
// series, Available the number of timesteps actually present.
type SplitOptions struct {
	Total      int
	Stride     int
	TrainRatio float64
	ValRatio   float64
	Step       int
	Available  int
}

// TimePair is an input time and the time its target is drawn from.
type TimePair struct {
	T      int
	Target int
}

// SplitPlan holds the subsampled time indices of each split.
type SplitPlan struct {
	Train []int
	Val   []int
	Test  []int
	Step  int
}

// PlanSplits cuts [0, Total) at int(Total·TrainRatio) and
// int(Total·ValRatio) and steps each part by Stride. Every index must have
// its target t+Step inside the series.
func PlanSplits(o SplitOptions) (SplitPlan, error) {
	if o.Total <= 0 {
		return SplitPlan{}, fmt.Errorf("total length must be positive, got %d", o.Total)
	}
	if o.Stride < 1 {
		return SplitPlan{}, fmt.Errorf("stride must be at least 1, got %d", o.Stride)
	}
	if o.Step < 1 {
		return SplitPlan{}, fmt.Errorf("step must be at least 1, got %d", o.Step)
	}
	if o.TrainRatio <= 0 || o.TrainRatio > o.ValRatio || o.ValRatio > 1 {
		return SplitPlan{}, fmt.Errorf("split ratios must satisfy 0 < train (%g) <= val (%g) <= 1",
			o.TrainRatio, o.ValRatio)
	}

	b1 := int(float64(o.Total) * o.TrainRatio)
	b2 := int(float64(o.Total) * o.ValRatio)
	plan := SplitPlan{
		Train: stepRange(0, b1, o.Stride),
		Val:   stepRange(b1, b2, o.Stride),
		Test:  stepRange(b2, o.Total, o.Stride),
		Step:  o.Step,
	}

	for _, s := range Splits {
		for _, t := range plan.Times(s) {
			if t+o.Step >= o.Available {
				return SplitPlan{}, fmt.Errorf("%w: %s time %d + step %d needs %d timesteps, have %d",
					ErrTimeOutOfRange, s, t, o.Step, t+o.Step+1, o.Available)
			}
		}
	}
	return plan, nil
}

// Times returns the input time indices of split s.
func (p SplitPlan) Times(s Split) []int {
	switch s {
	case SplitTrain:
		return p.Train
	case SplitVal:
		return p.Val
	case SplitTest:
		return p.Test
	}
	return nil
}

// Pairs returns the (t, t+step) pairs of split s.
func (p SplitPlan) Pairs(s Split) []TimePair {
	times := p.Times(s)
	pairs := make([]TimePair, len(times))
	for i, t := range times {
		pairs[i] = TimePair{T: t, Target: t + p.Step}
	}
	return pairs
}

// Len is the number of timesteps across all splits.
func (p SplitPlan) Len() int {
	return len(p.Train) + len(p.Val) + len(p.Test)
}

func stepRange(lo, hi, stride int) []int {
	var out []int
	for t := lo; t < hi; t += stride {
		out = append(out, t)
	}
	return out
}
