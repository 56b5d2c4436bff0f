// Command validate checks the artefacts of an extraction run: the statistics
// and summary sidecars, the per-split arrays, and their conversion to
// training tensors.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -dir outputs \
//	  -name alpha.001_3dLatLonDepUVBolSalEtaDnsPolyDeg1_Step1_PredictDelT
package main

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/couchcryptid/ocean-sample-etl/internal/adapter/npy"
	"github.com/couchcryptid/ocean-sample-etl/internal/domain"
	"github.com/couchcryptid/ocean-sample-etl/internal/tensorset"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Normalised training columns must have mean 0 and std 1 within this.
const tolerance = 1e-6

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// splitArrays is one split as read back from disk.
type splitArrays struct {
	inputs *mat.Dense
	deltaT []float64
	temp   []float64
}

func main() {
	dir := flag.String("dir", "outputs", "directory holding the run artefacts")
	name := flag.String("name", "", "artefact name of the run")
	flag.Parse()

	if *name == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(npy.Paths{Dir: *dir, Name: *name}); code != 0 {
		os.Exit(code)
	}
}

func run(paths npy.Paths) int {
	fmt.Println("=== Sample Artefact Validation ===")
	fmt.Println()

	stats, err := npy.ReadStatistics(paths.MeanStd())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load statistics: %v\n", err)
		return 1
	}
	info, err := npy.ReadInfo(paths.Info())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load run info: %v\n", err)
		return 1
	}

	splits := make(map[domain.Split]splitArrays)
	for _, s := range domain.Splits {
		arrays, err := loadSplit(paths, s)
		if errors.Is(err, os.ErrNotExist) {
			fmt.Printf("  Note: no arrays for %s split\n", s)
			continue
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: load %s split: %v\n", s, err)
			return 1
		}
		splits[s] = arrays
	}

	phases := []*phase{
		validateSidecars(info, stats),
		validateShapes(splits, stats),
		validateValues(splits, stats),
		validateNormalisation(splits, stats),
		validateTensors(splits),
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Run %s: %d features, rows train=%d val=%d test=%d\n",
		info.Name, len(stats.Inputs), rows(splits[domain.SplitTrain]), rows(splits[domain.SplitVal]), rows(splits[domain.SplitTest]))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadSplit(paths npy.Paths, s domain.Split) (splitArrays, error) {
	inputs, err := npy.ReadMatrix(paths.Inputs(s))
	if err != nil {
		return splitArrays{}, err
	}
	deltaT, err := npy.ReadVector(paths.DeltaT(s))
	if err != nil {
		return splitArrays{}, err
	}
	temp, err := npy.ReadVector(paths.Temp(s))
	if err != nil {
		return splitArrays{}, err
	}
	return splitArrays{inputs: inputs, deltaT: deltaT, temp: temp}, nil
}

func rows(a splitArrays) int {
	if a.inputs == nil {
		return 0
	}
	r, _ := a.inputs.Dims()
	return r
}

// ── Phase 1: Sidecars ──

func validateSidecars(info npy.Info, stats domain.Statistics) *phase {
	p := &phase{name: "Phase 1: Sidecars (info, statistics)"}

	if err := info.Run.Validate(); err != nil {
		p.errorf("run config: %v", err)
	} else if want := info.Run.FeatureCount(); want != len(stats.Inputs) {
		p.errorf("statistics cover %d columns, run config implies %d", len(stats.Inputs), want)
	}
	if info.Summary.Min > info.Summary.Max {
		p.errorf("summary min %g exceeds max %g", info.Summary.Min, info.Summary.Max)
	}
	if info.FinishedAt.Before(info.StartedAt) {
		p.errorf("finished_at %s precedes started_at %s", info.FinishedAt, info.StartedAt)
	}
	if targets := stats.DegenerateTargets(); len(targets) > 0 {
		p.errorf("degenerate targets: %v", targets)
	}
	if cols := stats.ZeroVarianceColumns(); len(cols) > 0 {
		fmt.Printf("  Note: %d zero-variance feature column(s): %v\n", len(cols), cols)
	}
	if cols := stats.NonFiniteColumns(); len(cols) > 0 {
		fmt.Printf("  Note: %d feature column(s) with NaN or Inf in training: %v\n", len(cols), cols)
	}
	return p
}

// ── Phase 2: Shapes ──

func validateShapes(splits map[domain.Split]splitArrays, stats domain.Statistics) *phase {
	p := &phase{name: "Phase 2: Shapes (rows, columns)"}
	for s, a := range splits {
		r, c := a.inputs.Dims()
		if c != len(stats.Inputs) {
			p.errorf("%s: %d columns, statistics cover %d", s, c, len(stats.Inputs))
		}
		if len(a.deltaT) != r {
			p.errorf("%s: %d delta_t targets for %d rows", s, len(a.deltaT), r)
		}
		if len(a.temp) != r {
			p.errorf("%s: %d temp targets for %d rows", s, len(a.temp), r)
		}
	}
	return p
}

// ── Phase 3: Values ──

func validateValues(splits map[domain.Split]splitArrays, stats domain.Statistics) *phase {
	p := &phase{name: "Phase 3: Values (finite)"}
	for s, a := range splits {
		r, c := a.inputs.Dims()
		bad := 0
		for j := 0; j < c; j++ {
			// Degenerate columns are non-finite by construction.
			if j < len(stats.Inputs) && stats.Inputs[j].Degenerate() {
				continue
			}
			for i := 0; i < r; i++ {
				if !finite(a.inputs.At(i, j)) {
					bad++
				}
			}
		}
		if bad > 0 {
			p.errorf("%s: %d non-finite input values", s, bad)
		}
		for _, v := range a.deltaT {
			if !finite(v) {
				p.errorf("%s: non-finite delta_t target", s)
				break
			}
		}
		for _, v := range a.temp {
			if !finite(v) {
				p.errorf("%s: non-finite temp target", s)
				break
			}
		}
	}
	return p
}

// ── Phase 4: Normalisation ──
// Training columns were scaled with their own statistics.

func validateNormalisation(splits map[domain.Split]splitArrays, stats domain.Statistics) *phase {
	p := &phase{name: "Phase 4: Normalisation (train moments)"}
	train, ok := splits[domain.SplitTrain]
	if !ok {
		p.errorf("train split missing")
		return p
	}
	_, c := train.inputs.Dims()
	for j := 0; j < c && j < len(stats.Inputs); j++ {
		if stats.Inputs[j].Degenerate() {
			continue
		}
		col := mat.Col(nil, j, train.inputs)
		checkMoments(p, fmt.Sprintf("column %d", j), col)
	}
	checkMoments(p, "delta_t", train.deltaT)
	checkMoments(p, "temp", train.temp)
	return p
}

func checkMoments(p *phase, label string, x []float64) {
	mean, std := stat.PopMeanStdDev(x, nil)
	if math.Abs(mean) > tolerance {
		p.errorf("%s: train mean %g, want 0", label, mean)
	}
	if math.Abs(std-1) > tolerance {
		p.errorf("%s: train std %g, want 1", label, std)
	}
}

// ── Phase 5: Tensors ──

func validateTensors(splits map[domain.Split]splitArrays) *phase {
	p := &phase{name: "Phase 5: Tensors (float32 conversion)"}
	for s, a := range splits {
		b, err := tensorset.Full(a.inputs, a.deltaT)
		if err != nil {
			p.errorf("%s: %v", s, err)
			continue
		}
		r, c := a.inputs.Dims()
		if dims := b.Inputs.Shape().Dimensions; len(dims) != 2 || dims[0] != r || dims[1] != c {
			p.errorf("%s: input tensor shape %v, want [%d %d]", s, dims, r, c)
		}
		if dims := b.Targets.Shape().Dimensions; len(dims) != 2 || dims[0] != r || dims[1] != 1 {
			p.errorf("%s: target tensor shape %v, want [%d 1]", s, dims, r)
		}
	}
	return p
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
