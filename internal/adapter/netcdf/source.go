// Package netcdf reads MITgcm time-averaged output through the pure-Go
// NetCDF reader and serves it to the pipeline one timestep at a time.
package netcdf

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"

	"github.com/batchatco/go-native-netcdf/netcdf"
	"github.com/batchatco/go-native-netcdf/netcdf/api"
	"github.com/couchcryptid/ocean-sample-etl/internal/domain"
	lru "github.com/hashicorp/golang-lru/v2"
)

// MITgcm variable names.
const (
	varTemp    = "Ttave"
	varSal     = "Stave"
	varU       = "uVeltave"
	varV       = "vVeltave"
	varKwx     = "Kwx"
	varKwy     = "Kwy"
	varKwz     = "Kwz"
	varEta     = "ETAtave"
	varDensity = "__xarray_dataarray_variable__"
	varTime    = "T"
	varLat     = "Y"
	varLon     = "X"
	varDepth   = "Z"
)

var fieldVars = map[domain.FieldName]string{
	domain.FieldTemp:    varTemp,
	domain.FieldSal:     varSal,
	domain.FieldU:       varU,
	domain.FieldV:       varV,
	domain.FieldKwx:     varKwx,
	domain.FieldKwy:     varKwy,
	domain.FieldKwz:     varKwz,
	domain.FieldDensity: varDensity,
}

// slicer is the part of api.VarGetter the source reads through.
type slicer interface {
	Values() (any, error)
	GetSlice(begin, end int64) (any, error)
}

// Options names the input files.
type Options struct {
	ModelFile       string
	ClimatologyFile string
	// DensityFile is only opened when non-empty.
	DensityFile string
	// CacheSize is the number of decoded frames kept in memory.
	CacheSize int
}

type sliceKey struct {
	name string
	t    int
}

// Source is a pipeline.FrameSource over MITgcm NetCDF files.
type Source struct {
	vars      map[string]slicer
	clim      slicer
	grid      domain.Grid
	timesteps int
	cache     *lru.Cache[sliceKey, domain.Field3D]
	groups    []api.Group
	logger    *slog.Logger
}

// Open opens the model, climatology and optional density files and reads the
// grid coordinates.
func Open(opts Options, logger *slog.Logger) (*Source, error) {
	var groups []api.Group
	closeAll := func() {
		for _, g := range groups {
			g.Close()
		}
	}
	open := func(path string) (api.Group, error) {
		g, err := netcdf.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		groups = append(groups, g)
		return g, nil
	}

	model, err := open(opts.ModelFile)
	if err != nil {
		return nil, err
	}
	vars := make(map[string]slicer)
	for _, name := range []string{varTemp, varSal, varU, varV, varKwx, varKwy, varKwz, varEta, varTime, varLat, varLon, varDepth} {
		vg, err := model.GetVarGetter(name)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("%s: variable %s: %w", opts.ModelFile, name, err)
		}
		vars[name] = vg
	}

	climFile, err := open(opts.ClimatologyFile)
	if err != nil {
		closeAll()
		return nil, err
	}
	clim, err := climFile.GetVarGetter(varTemp)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("%s: variable %s: %w", opts.ClimatologyFile, varTemp, err)
	}

	if opts.DensityFile != "" {
		dens, err := open(opts.DensityFile)
		if err != nil {
			closeAll()
			return nil, err
		}
		vg, err := dens.GetVarGetter(varDensity)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("%s: variable %s: %w", opts.DensityFile, varDensity, err)
		}
		vars[varDensity] = vg
	}

	s, err := newSource(vars, clim, opts.CacheSize, logger)
	if err != nil {
		closeAll()
		return nil, err
	}
	s.groups = groups
	logger.Info("netcdf source opened",
		"model", opts.ModelFile,
		"timesteps", s.timesteps,
		"grid", fmt.Sprintf("%dx%dx%d", s.grid.Nz, s.grid.Ny, s.grid.Nx),
	)
	return s, nil
}

func newSource(vars map[string]slicer, clim slicer, cacheSize int, logger *slog.Logger) (*Source, error) {
	if cacheSize < 1 {
		cacheSize = 1
	}
	// One frame is at most every field plus eta.
	cache, err := lru.New[sliceKey, domain.Field3D](cacheSize * (len(fieldVars) + 1))
	if err != nil {
		return nil, err
	}
	s := &Source{vars: vars, clim: clim, cache: cache, logger: logger}

	coords := make(map[string][]float64, 3)
	for _, name := range []string{varLat, varLon, varDepth} {
		vg, ok := vars[name]
		if !ok {
			return nil, fmt.Errorf("missing coordinate %s", name)
		}
		v, err := vg.Values()
		if err != nil {
			return nil, fmt.Errorf("coordinate %s: %w", name, err)
		}
		if coords[name], err = toFloats(v); err != nil {
			return nil, fmt.Errorf("coordinate %s: %w", name, err)
		}
	}
	s.grid = domain.Grid{
		Nz: len(coords[varDepth]), Ny: len(coords[varLat]), Nx: len(coords[varLon]),
		Lat: coords[varLat], Lon: coords[varLon], Depth: coords[varDepth],
	}

	tv, ok := vars[varTime]
	if !ok {
		return nil, fmt.Errorf("missing coordinate %s", varTime)
	}
	times, err := tv.Values()
	if err != nil {
		return nil, fmt.Errorf("coordinate %s: %w", varTime, err)
	}
	rv := reflect.ValueOf(times)
	if rv.Kind() != reflect.Slice {
		return nil, fmt.Errorf("coordinate %s has type %T", varTime, times)
	}
	s.timesteps = rv.Len()
	return s, nil
}

// Close releases every open file.
func (s *Source) Close() error {
	for _, g := range s.groups {
		g.Close()
	}
	s.groups = nil
	return nil
}

// Grid returns the tracer grid.
func (s *Source) Grid() domain.Grid {
	return s.grid
}

// Timesteps is the length of the time axis.
func (s *Source) Timesteps() int {
	return s.timesteps
}

// Climatology returns the climatological temperature at its first time.
func (s *Source) Climatology(ctx context.Context) (domain.Field3D, error) {
	if err := ctx.Err(); err != nil {
		return domain.Field3D{}, err
	}
	v, err := s.clim.GetSlice(0, 1)
	if err != nil {
		return domain.Field3D{}, fmt.Errorf("climatology: %w", err)
	}
	f, err := volume(v)
	if err != nil {
		return domain.Field3D{}, fmt.Errorf("climatology: %w", err)
	}
	if !s.grid.Fits(f) {
		return domain.Field3D{}, fmt.Errorf("%w: climatology is %dx%dx%d", domain.ErrShapeMismatch, f.Nz, f.Ny, f.Nx)
	}
	return f, nil
}

// ReadFrame decodes the requested fields at time t. Velocities are moved
// from the staggered grid onto cell centres.
func (s *Source) ReadFrame(ctx context.Context, t int, req domain.FrameRequest) (domain.Frame, error) {
	if err := ctx.Err(); err != nil {
		return domain.Frame{}, err
	}
	if t < 0 || t >= s.timesteps {
		return domain.Frame{}, fmt.Errorf("%w: t=%d of %d", domain.ErrTimeOutOfRange, t, s.timesteps)
	}
	frame := domain.Frame{Time: t, Fields: make(map[domain.FieldName]domain.Field3D, len(req.Fields))}
	for _, name := range req.Fields {
		f, err := s.field(name, t)
		if err != nil {
			return domain.Frame{}, err
		}
		frame.Fields[name] = f
	}
	if req.Eta {
		eta, err := s.eta(t)
		if err != nil {
			return domain.Frame{}, err
		}
		frame.Eta = &eta
	}
	return frame, nil
}

func (s *Source) field(name domain.FieldName, t int) (domain.Field3D, error) {
	varName, ok := fieldVars[name]
	if !ok {
		return domain.Field3D{}, fmt.Errorf("unknown field %q", name)
	}
	key := sliceKey{name: varName, t: t}
	if f, ok := s.cache.Get(key); ok {
		return f, nil
	}

	vg, ok := s.vars[varName]
	if !ok {
		return domain.Field3D{}, fmt.Errorf("field %s: variable %s not opened", name, varName)
	}
	v, err := vg.GetSlice(int64(t), int64(t)+1)
	if err != nil {
		return domain.Field3D{}, fmt.Errorf("read %s t=%d: %w", varName, t, err)
	}
	f, err := volume(v)
	if err != nil {
		return domain.Field3D{}, fmt.Errorf("read %s t=%d: %w", varName, t, err)
	}
	switch name {
	case domain.FieldU:
		f = centreX(f)
	case domain.FieldV:
		f = centreY(f)
	}
	if !s.grid.Fits(f) {
		return domain.Field3D{}, fmt.Errorf("%w: %s at t=%d is %dx%dx%d", domain.ErrShapeMismatch, varName, t, f.Nz, f.Ny, f.Nx)
	}
	s.cache.Add(key, f)
	s.logger.Debug("slice decoded", "variable", varName, "time", t)
	return f, nil
}

func (s *Source) eta(t int) (domain.Field2D, error) {
	key := sliceKey{name: varEta, t: t}
	if f, ok := s.cache.Get(key); ok {
		return domain.Field2D{Ny: f.Ny, Nx: f.Nx, Data: f.Data}, nil
	}
	vg, ok := s.vars[varEta]
	if !ok {
		return domain.Field2D{}, fmt.Errorf("variable %s not opened", varEta)
	}
	v, err := vg.GetSlice(int64(t), int64(t)+1)
	if err != nil {
		return domain.Field2D{}, fmt.Errorf("read %s t=%d: %w", varEta, t, err)
	}
	f, err := surface(v)
	if err != nil {
		return domain.Field2D{}, fmt.Errorf("read %s t=%d: %w", varEta, t, err)
	}
	if f.Ny != s.grid.Ny || f.Nx != s.grid.Nx {
		return domain.Field2D{}, fmt.Errorf("%w: %s at t=%d is %dx%d", domain.ErrShapeMismatch, varEta, t, f.Ny, f.Nx)
	}
	s.cache.Add(key, domain.Field3D{Nz: 1, Ny: f.Ny, Nx: f.Nx, Data: f.Data})
	return f, nil
}
