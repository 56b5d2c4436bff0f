package domain

import (
	"encoding/json"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DeltaThresholds are the |ΔT| cut-offs counted in the run summary.
var DeltaThresholds = []float64{0.0005, 0.001, 0.002, 0.0025, 0.003, 0.004, 0.005}

// ThresholdCount is the number of train and validation targets at or beyond
// a cut-off in either direction.
type ThresholdCount struct {
	Threshold float64 `json:"threshold"`
	Train     int     `json:"train"`
	Val       int     `json:"val"`
}

// Moments describes the shape of a target distribution. Std is the
// population standard deviation; Skew and Kurtosis are the biased
// moment ratios, Kurtosis in excess of the normal distribution.
type Moments struct {
	Mean     float64 `json:"mean"`
	Std      float64 `json:"std"`
	Skew     float64 `json:"skew"`
	Kurtosis float64 `json:"kurtosis"`
}

// Shape is the (rows, columns) of one split's feature matrix.
type Shape struct {
	Split Split `json:"split"`
	Rows  int   `json:"rows"`
	Cols  int   `json:"cols"`
}

// Summary describes the unnormalised ΔT targets of a run.
type Summary struct {
	Thresholds []ThresholdCount `json:"thresholds"`
	Max        float64          `json:"max"`
	Min        float64          `json:"min"`
	Train      Moments          `json:"train"`
	Val        Moments          `json:"val"`
	Shapes     []Shape          `json:"shapes"`
}

// Summarize computes the run summary from the unnormalised pools.
func Summarize(train, val, test *Pool) Summary {
	s := Summary{
		Train: moments(train.DeltaT),
		Val:   moments(val.DeltaT),
		Max:   math.Inf(-1),
		Min:   math.Inf(1),
	}
	for _, th := range DeltaThresholds {
		s.Thresholds = append(s.Thresholds, ThresholdCount{
			Threshold: th,
			Train:     countBeyond(train.DeltaT, th),
			Val:       countBeyond(val.DeltaT, th),
		})
	}
	for _, p := range []*Pool{train, val, test} {
		if len(p.DeltaT) > 0 {
			s.Max = math.Max(s.Max, floats.Max(p.DeltaT))
			s.Min = math.Min(s.Min, floats.Min(p.DeltaT))
		}
		s.Shapes = append(s.Shapes, Shape{Split: p.Split, Rows: p.Rows(), Cols: p.Cols})
	}
	if math.IsInf(s.Max, -1) {
		s.Max, s.Min = 0, 0
	}
	return s
}

// countBeyond counts x > th plus x <= -th.
func countBeyond(x []float64, th float64) int {
	n := 0
	for _, v := range x {
		if v > th || v <= -th {
			n++
		}
	}
	return n
}

func moments(x []float64) Moments {
	if len(x) == 0 {
		return Moments{}
	}
	mean, std := stat.PopMeanStdDev(x, nil)
	m := Moments{Mean: mean, Std: std}
	m2 := stat.MomentAbout(2, x, mean, nil)
	if m2 == 0 {
		return m
	}
	m.Skew = stat.MomentAbout(3, x, mean, nil) / math.Pow(m2, 1.5)
	m.Kurtosis = stat.MomentAbout(4, x, mean, nil)/(m2*m2) - 3
	return m
}

type momentsJSON struct {
	Mean     Float `json:"mean"`
	Std      Float `json:"std"`
	Skew     Float `json:"skew"`
	Kurtosis Float `json:"kurtosis"`
}

// MarshalJSON writes non-finite moments as strings.
func (m Moments) MarshalJSON() ([]byte, error) {
	return json.Marshal(momentsJSON{
		Mean: Float(m.Mean), Std: Float(m.Std), Skew: Float(m.Skew), Kurtosis: Float(m.Kurtosis),
	})
}

func (m *Moments) UnmarshalJSON(b []byte) error {
	var j momentsJSON
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	*m = Moments{Mean: float64(j.Mean), Std: float64(j.Std), Skew: float64(j.Skew), Kurtosis: float64(j.Kurtosis)}
	return nil
}

// summaryFields drops Summary's methods so the JSON codecs below do not recurse.
type summaryFields Summary

// MarshalJSON writes a non-finite Max or Min as a string.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		summaryFields
		Max Float `json:"max"`
		Min Float `json:"min"`
	}{summaryFields(s), Float(s.Max), Float(s.Min)})
}

func (s *Summary) UnmarshalJSON(b []byte) error {
	aux := struct {
		*summaryFields
		Max Float `json:"max"`
		Min Float `json:"min"`
	}{summaryFields: (*summaryFields)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	s.Max, s.Min = float64(aux.Max), float64(aux.Min)
	return nil
}
