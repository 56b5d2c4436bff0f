// Package plot renders diagnostic histograms of the extracted targets.
package plot

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/couchcryptid/ocean-sample-etl/internal/adapter/npy"
	"github.com/couchcryptid/ocean-sample-etl/internal/domain"
	"github.com/couchcryptid/ocean-sample-etl/internal/pipeline"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Bins is the number of histogram bins.
const Bins = 100

// Histograms writes one ΔT histogram per split. It implements pipeline.Loader.
type Histograms struct {
	dir    string
	logger *slog.Logger
}

// NewHistograms creates a loader writing PNG files into dir.
func NewHistograms(dir string, logger *slog.Logger) *Histograms {
	return &Histograms{dir: dir, logger: logger}
}

// Load plots the unnormalised ΔT of every non-empty split.
func (h *Histograms) Load(ctx context.Context, res *pipeline.Result) error {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return fmt.Errorf("create figure dir: %w", err)
	}
	paths := npy.Paths{Dir: h.dir, Name: res.Name}
	for _, split := range domain.Splits {
		if err := ctx.Err(); err != nil {
			return err
		}
		values := res.RawDeltaT(split)
		if len(values) == 0 {
			h.logger.Warn("split is empty, no histogram drawn", "split", split)
			continue
		}
		path := paths.Histogram(split)
		if err := Histogram(path, fmt.Sprintf("%s ΔT (%s)", res.Name, split), values); err != nil {
			return err
		}
		h.logger.Info("histogram saved", "split", split, "path", path)
	}
	return nil
}

// Histogram draws values into a PNG at path.
func Histogram(path, title string, values []float64) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "ΔT"
	p.Y.Label.Text = "count"

	hist, err := plotter.NewHist(plotter.Values(values), Bins)
	if err != nil {
		return fmt.Errorf("histogram %s: %w", path, err)
	}
	p.Add(hist)

	if err := p.Save(8*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}
