// Command genmock runs the extraction pipeline over a small synthetic ocean
// and writes its artefacts, giving cmd/validate and downstream trainers a
// fixture that needs no model output. The run clock is pinned so repeated
// invocations produce identical files.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -timesteps 41 -dimension 3
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/couchcryptid/ocean-sample-etl/internal/adapter/memory"
	"github.com/couchcryptid/ocean-sample-etl/internal/adapter/npy"
	"github.com/couchcryptid/ocean-sample-etl/internal/adapter/plot"
	"github.com/couchcryptid/ocean-sample-etl/internal/domain"
	"github.com/couchcryptid/ocean-sample-etl/internal/observability"
	"github.com/couchcryptid/ocean-sample-etl/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

// Synthetic grid: large enough for every default region and its halo.
const (
	nz = 8
	ny = 10
	nx = 12
)

var mockWrap = domain.WrapLimits{YUpper: 5, ZUpper: 4}

func main() {
	out := flag.String("out", "data/mock", "output directory")
	timesteps := flag.Int("timesteps", 41, "length of the synthetic series")
	dimension := flag.Int("dimension", 3, "stencil dimension (2 or 3)")
	seed := flag.Int64("seed", 5, "seed for the synthetic noise and the shuffle")
	histograms := flag.Bool("histograms", true, "also plot target histograms")
	flag.Parse()

	if err := run(*out, *timesteps, *dimension, *seed, *histograms); err != nil {
		log.Fatal(err)
	}
}

func run(out string, timesteps, dimension int, seed int64, histograms bool) error {
	if timesteps < 2 {
		return fmt.Errorf("need at least 2 timesteps, got %d", timesteps)
	}
	pipeline.SetClock(clockwork.NewFakeClockAt(time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC)))
	defer pipeline.SetClock(nil)

	logger, closer := observability.NewLogger(observability.LogOptions{Level: "info", Format: "text"})
	defer closer.Close()

	src, err := syntheticOcean(timesteps, rand.New(rand.NewSource(seed)))
	if err != nil {
		return err
	}

	cfg := domain.RunConfig{
		Dimension:  dimension,
		Sal:        true,
		Current:    true,
		BolusVel:   true,
		Density:    true,
		Eta:        true,
		Lat:        true,
		Lon:        true,
		Dep:        true,
		PolyDegree: 1,
		StepSize:   1,
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	loaders := []pipeline.Loader{npy.NewStore(out, true, logger)}
	if histograms {
		loaders = append(loaders, plot.NewHistograms(out, logger))
	}

	name := "mock_" + cfg.DataName() + "_PredictDelT"
	p := pipeline.New(src, pipeline.Options{
		Name:       name,
		Run:        cfg,
		Wrap:       mockWrap,
		Total:      timesteps - cfg.StepSize,
		Stride:     1,
		TrainRatio: 0.7,
		ValRatio:   0.9,
		Seed:       seed,
	}, logger, observability.NewMetrics(), loaders...)

	res, err := p.Run(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("Wrote %s to %s: train=%d val=%d test=%d rows\n",
		name, out, res.Train.Rows(), res.Val.Rows(), res.Test.Rows())
	return nil
}

// syntheticOcean builds a stratified ocean with a warm tongue drifting east
// and a little noise on every field.
func syntheticOcean(timesteps int, rng *rand.Rand) (*memory.Source, error) {
	grid := domain.Grid{Nz: nz, Ny: ny, Nx: nx, Lat: make([]float64, ny), Lon: make([]float64, nx), Depth: make([]float64, nz)}
	for y := range grid.Lat {
		grid.Lat[y] = -60 + 5*float64(y)
	}
	for x := range grid.Lon {
		grid.Lon[x] = float64(x) * 360 / nx
	}
	for z := range grid.Depth {
		grid.Depth[z] = 5 + 50*float64(z)
	}

	noise := func(scale float64) float64 { return scale * rng.NormFloat64() }
	series := func(fn func(z, y, x, t int) float64) []domain.Field3D {
		frames := make([]domain.Field3D, timesteps)
		for t := range frames {
			f := domain.NewField3D(nz, ny, nx)
			for z := 0; z < nz; z++ {
				for y := 0; y < ny; y++ {
					for x := 0; x < nx; x++ {
						f.Set(z, y, x, fn(z, y, x, t))
					}
				}
			}
			frames[t] = f
		}
		return frames
	}
	phase := func(x, t int) float64 { return 2*math.Pi*float64(x)/nx - 0.15*float64(t) }

	temp := series(func(z, y, x, t int) float64 {
		return 18 - 1.5*float64(z) + 0.4*float64(y) + math.Sin(phase(x, t))*math.Exp(-float64(z)/3) + noise(0.02)
	})
	sal := series(func(z, y, x, t int) float64 {
		return 34.5 + 0.05*float64(z) - 0.02*float64(y) + 0.1*math.Cos(phase(x, t)) + noise(0.005)
	})
	u := series(func(z, y, x, t int) float64 { return 0.1*math.Cos(phase(x, t)) + noise(0.01) })
	v := series(func(z, y, x, t int) float64 { return 0.05*math.Sin(phase(x, t)+float64(y)) + noise(0.01) })
	kwx := series(func(z, y, x, t int) float64 { return 1e-3 * (1 + 0.2*math.Sin(phase(x, t))) * (1 + noise(0.05)) })
	kwy := series(func(z, y, x, t int) float64 { return 1e-3 * (1 + 0.2*math.Cos(phase(x, t))) * (1 + noise(0.05)) })
	kwz := series(func(z, y, x, t int) float64 { return 1e-5 * float64(z+1) * (1 + noise(0.05)) })
	density := series(func(z, y, x, t int) float64 {
		return 1025 + 0.2*float64(z) - 0.2*(temp[t].At(z, y, x)-10) + 0.8*(sal[t].At(z, y, x)-35)
	})

	src := memory.NewSource(grid)
	for _, s := range []struct {
		name   domain.FieldName
		frames []domain.Field3D
	}{
		{domain.FieldTemp, temp},
		{domain.FieldSal, sal},
		{domain.FieldU, u},
		{domain.FieldV, v},
		{domain.FieldKwx, kwx},
		{domain.FieldKwy, kwy},
		{domain.FieldKwz, kwz},
		{domain.FieldDensity, density},
	} {
		if err := src.AddSeries(s.name, s.frames); err != nil {
			return nil, err
		}
	}

	eta := make([]domain.Field2D, timesteps)
	for t := range eta {
		f := domain.NewField2D(ny, nx)
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				f.Set(y, x, 0.3*math.Sin(phase(x, t))+noise(0.01))
			}
		}
		eta[t] = f
	}
	if err := src.SetEta(eta); err != nil {
		return nil, err
	}

	// Climatology: the time mean of temperature.
	clim := domain.NewField3D(nz, ny, nx)
	for _, f := range temp {
		for i, v := range f.Data {
			clim.Data[i] += v / float64(timesteps)
		}
	}
	src.SetClimatology(clim)
	return src, nil
}
