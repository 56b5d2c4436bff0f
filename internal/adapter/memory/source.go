// Package memory provides a FrameSource backed by in-memory arrays. It feeds
// the pipeline in tests and replays series already loaded by other tools.
package memory

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/couchcryptid/ocean-sample-etl/internal/domain"
)

// Source serves frames from time series held in memory.
type Source struct {
	grid   domain.Grid
	series map[domain.FieldName][]domain.Field3D
	eta    []domain.Field2D
	clim   *domain.Field3D
	reads  atomic.Int64
}

// NewSource creates an empty source over grid.
func NewSource(grid domain.Grid) *Source {
	return &Source{grid: grid, series: make(map[domain.FieldName][]domain.Field3D)}
}

// AddSeries stores the time series of one field. Every frame must fit the grid.
func (s *Source) AddSeries(name domain.FieldName, frames []domain.Field3D) error {
	for t, f := range frames {
		if !s.grid.Fits(f) {
			return fmt.Errorf("%w: %s at t=%d is %dx%dx%d", domain.ErrShapeMismatch, name, t, f.Nz, f.Ny, f.Nx)
		}
	}
	s.series[name] = frames
	return nil
}

// SetEta stores the sea-surface height series.
func (s *Source) SetEta(frames []domain.Field2D) error {
	for t, f := range frames {
		if f.Ny != s.grid.Ny || f.Nx != s.grid.Nx {
			return fmt.Errorf("%w: eta at t=%d is %dx%d", domain.ErrShapeMismatch, t, f.Ny, f.Nx)
		}
	}
	s.eta = frames
	return nil
}

// SetClimatology overrides the default climatology of temperature at t=0.
func (s *Source) SetClimatology(f domain.Field3D) {
	s.clim = &f
}

// Grid returns the grid every series is defined on.
func (s *Source) Grid() domain.Grid {
	return s.grid
}

// Timesteps is the length of the temperature series.
func (s *Source) Timesteps() int {
	return len(s.series[domain.FieldTemp])
}

// Reads is the number of ReadFrame calls served so far.
func (s *Source) Reads() int64 {
	return s.reads.Load()
}

// Climatology returns the configured climatology, or temperature at t=0.
func (s *Source) Climatology(ctx context.Context) (domain.Field3D, error) {
	if err := ctx.Err(); err != nil {
		return domain.Field3D{}, err
	}
	if s.clim != nil {
		return *s.clim, nil
	}
	temp := s.series[domain.FieldTemp]
	if len(temp) == 0 {
		return domain.Field3D{}, fmt.Errorf("no temperature series")
	}
	return temp[0], nil
}

// ReadFrame returns the requested fields at time t.
func (s *Source) ReadFrame(ctx context.Context, t int, req domain.FrameRequest) (domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return domain.Frame{}, err
	}
	s.reads.Add(1)
	frame := domain.Frame{Time: t, Fields: make(map[domain.FieldName]domain.Field3D, len(req.Fields))}
	for _, name := range req.Fields {
		series, ok := s.series[name]
		if !ok {
			return domain.Frame{}, fmt.Errorf("no series for field %q", name)
		}
		if t < 0 || t >= len(series) {
			return domain.Frame{}, fmt.Errorf("%w: %s t=%d of %d", domain.ErrTimeOutOfRange, name, t, len(series))
		}
		frame.Fields[name] = series[t]
	}
	if req.Eta {
		if t < 0 || t >= len(s.eta) {
			return domain.Frame{}, fmt.Errorf("%w: eta t=%d of %d", domain.ErrTimeOutOfRange, t, len(s.eta))
		}
		eta := s.eta[t]
		frame.Eta = &eta
	}
	return frame, nil
}
