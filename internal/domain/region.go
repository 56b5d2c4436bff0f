package domain

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Region names in processing order.
const (
	RegionInterior = "interior"
	RegionWest     = "west"
	RegionEast     = "east"
)

// Bounds is a half-open index range [Lower, Upper).
type Bounds struct {
	Lower, Upper int
}

// Len is the number of indices in the range.
func (b Bounds) Len() int {
	if b.Upper < b.Lower {
		return 0
	}
	return b.Upper - b.Lower
}

// Halo widens the range by one index on each side.
func (b Bounds) Halo() Bounds {
	return Bounds{Lower: b.Lower - 1, Upper: b.Upper + 1}
}

func (b Bounds) within(n int) bool {
	return b.Lower >= 0 && b.Upper <= n && b.Lower <= b.Upper
}

func (b Bounds) overlaps(o Bounds) bool {
	return b.Lower < o.Upper && o.Lower < b.Upper
}

func (b Bounds) String() string {
	return fmt.Sprintf("[%d,%d)", b.Lower, b.Upper)
}

// Region is a box of forecast cells plus the periodic longitude shift applied
// to every field before windowing. Bounds are in the shifted frame.
type Region struct {
	Name    string
	Z, Y, X Bounds
	Shift   int
}

// Volume is the number of samples the region yields per timestep.
func (r Region) Volume() int {
	return r.Z.Len() * r.Y.Len() * r.X.Len()
}

// InputBounds returns the halo-inclusive slice handed to ExtractStencils. The
// depth range only gains a halo for 3D stencils.
func (r Region) InputBounds(dim int) (z, y, x Bounds) {
	z = r.Z
	if dim == 3 {
		z = r.Z.Halo()
	}
	return z, r.Y.Halo(), r.X.Halo()
}

// originalColumns maps the region's longitude range back to unshifted indices.
func (r Region) originalColumns(nx int) map[int]struct{} {
	cols := make(map[int]struct{}, r.X.Len())
	for x := r.X.Lower; x < r.X.Upper; x++ {
		cols[((x-r.Shift)%nx+nx)%nx] = struct{}{}
	}
	return cols
}

// WrapLimits caps the latitude and depth extent of the two seam strips.
type WrapLimits struct {
	YUpper int
	ZUpper int
}

// DefaultWrapLimits covers the southern throughflow above the land split.
var DefaultWrapLimits = WrapLimits{YUpper: 15, ZUpper: 31}

// Layout is the set of regions sampled every timestep.
type Layout struct {
	Interior Region
	West     Region
	East     Region
}

// DefaultLayout places the interior away from the western land column, the
// two eastern columns and the land rows at the northern edge. The west and
// east strips cover the periodic seam.
func DefaultLayout(g Grid, w WrapLimits) Layout {
	return Layout{
		Interior: Region{
			Name: RegionInterior,
			Z:    Bounds{1, g.Nz - 1},
			Y:    Bounds{1, g.Ny - 3},
			X:    Bounds{1, g.Nx - 2},
		},
		West: Region{
			Name:  RegionWest,
			Z:     Bounds{1, w.ZUpper},
			Y:     Bounds{1, w.YUpper},
			X:     Bounds{1, 2},
			Shift: 1,
		},
		East: Region{
			Name:  RegionEast,
			Z:     Bounds{1, w.ZUpper},
			Y:     Bounds{1, w.YUpper},
			X:     Bounds{g.Nx - 3, g.Nx - 1},
			Shift: -1,
		},
	}
}

// Regions returns the regions in processing order.
func (l Layout) Regions() []Region {
	return []Region{l.Interior, l.West, l.East}
}

// Validate checks that every region is non-empty, that its halo-extended
// input slice lies inside the grid, and that no two regions forecast the same
// cell.
func (l Layout) Validate(g Grid, dim int) error {
	if dim != 2 && dim != 3 {
		return fmt.Errorf("%w: %d", ErrUnsupportedDimension, dim)
	}
	regions := l.Regions()
	var errs []error
	for _, r := range regions {
		if r.Volume() == 0 {
			errs = append(errs, fmt.Errorf("%w: region %s is empty (z%v y%v x%v)",
				ErrOutOfBounds, r.Name, r.Z, r.Y, r.X))
			continue
		}
		z, y, x := r.InputBounds(dim)
		if !z.within(g.Nz) || !y.within(g.Ny) || !x.within(g.Nx) {
			errs = append(errs, fmt.Errorf("%w: region %s input z%v y%v x%v outside grid %dx%dx%d",
				ErrOutOfBounds, r.Name, z, y, x, g.Nz, g.Ny, g.Nx))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	for i := range regions {
		for j := i + 1; j < len(regions); j++ {
			a, b := regions[i], regions[j]
			if !a.Z.overlaps(b.Z) || !a.Y.overlaps(b.Y) {
				continue
			}
			bc := b.originalColumns(g.Nx)
			for c := range a.originalColumns(g.Nx) {
				if _, ok := bc[c]; ok {
					return fmt.Errorf("%w: regions %s and %s both forecast column %d",
						ErrOutOfBounds, a.Name, b.Name, c)
				}
			}
		}
	}
	return nil
}

// Assembler turns one region of one timestep into a SampleBlock.
type Assembler struct {
	cfg  RunConfig
	grid Grid
	clim Field3D

	rolledClim map[int]Field3D
}

// NewAssembler checks the run configuration and climatology against the grid.
func NewAssembler(cfg RunConfig, grid Grid, clim Field3D) (*Assembler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	if !grid.Fits(clim) {
		return nil, fmt.Errorf("%w: climatology is %dx%dx%d, grid is %dx%dx%d",
			ErrShapeMismatch, clim.Nz, clim.Ny, clim.Nx, grid.Nz, grid.Ny, grid.Nx)
	}
	return &Assembler{
		cfg:        cfg,
		grid:       grid,
		clim:       clim,
		rolledClim: map[int]Field3D{0: clim},
	}, nil
}

// Assemble builds the samples of region at frame.Time. next is the
// temperature at frame.Time+step. Targets and reference values are read over
// the region's forecast cells in the same shifted frame as the stencils.
func (a *Assembler) Assemble(region Region, frame Frame, next Field3D) (SampleBlock, error) {
	dim := a.cfg.Dimension
	zIn, yIn, xIn := region.InputBounds(dim)

	names := a.cfg.StencilFields()
	inputs := make([]Field3D, 0, len(names))
	var temp Field3D
	for _, name := range names {
		f, err := frame.Field(name)
		if err != nil {
			return SampleBlock{}, err
		}
		if !a.grid.Fits(f) {
			return SampleBlock{}, fmt.Errorf("%w: field %s is %dx%dx%d at t=%d",
				ErrShapeMismatch, name, f.Nz, f.Ny, f.Nx, frame.Time)
		}
		f = roll3D(f, region.Shift)
		if name == FieldTemp {
			temp = f
		}
		sub, err := f.Sub(zIn, yIn, xIn)
		if err != nil {
			return SampleBlock{}, fmt.Errorf("region %s field %s: %w", region.Name, name, err)
		}
		inputs = append(inputs, sub)
	}

	var eta *Field2D
	if a.cfg.Eta {
		if frame.Eta == nil {
			return SampleBlock{}, fmt.Errorf("frame t=%d has no eta", frame.Time)
		}
		sub, err := frame.Eta.RollX(region.Shift).Sub(yIn, xIn)
		if err != nil {
			return SampleBlock{}, fmt.Errorf("region %s eta: %w", region.Name, err)
		}
		eta = &sub
	}

	stencils, err := ExtractStencils(dim, inputs, eta)
	if err != nil {
		return SampleBlock{}, fmt.Errorf("region %s: %w", region.Name, err)
	}

	features := stencils
	lon := rollSlice(a.grid.Lon, region.Shift)
	coords := BroadcastCoordinates(a.cfg,
		a.grid.Lat[region.Y.Lower:region.Y.Upper],
		lon[region.X.Lower:region.X.Upper],
		a.grid.Depth[region.Z.Lower:region.Z.Upper],
	)
	if coords != nil {
		var joined mat.Dense
		joined.Augment(stencils, coords)
		features = &joined
	}
	features = ExpandInteractions(features, a.cfg.PolyDegree)

	if !a.grid.Fits(next) {
		return SampleBlock{}, fmt.Errorf("%w: target temperature is %dx%dx%d",
			ErrShapeMismatch, next.Nz, next.Ny, next.Nx)
	}
	cur, err := temp.Sub(region.Z, region.Y, region.X)
	if err != nil {
		return SampleBlock{}, fmt.Errorf("region %s target: %w", region.Name, err)
	}
	fut, err := roll3D(next, region.Shift).Sub(region.Z, region.Y, region.X)
	if err != nil {
		return SampleBlock{}, fmt.Errorf("region %s target: %w", region.Name, err)
	}
	clim, err := a.climatology(region.Shift).Sub(region.Z, region.Y, region.X)
	if err != nil {
		return SampleBlock{}, fmt.Errorf("region %s climatology: %w", region.Name, err)
	}

	rows, _ := features.Dims()
	if rows != region.Volume() {
		return SampleBlock{}, fmt.Errorf("%w: region %s produced %d rows for %d cells",
			ErrShapeMismatch, region.Name, rows, region.Volume())
	}

	delta := make([]float64, len(cur.Data))
	for i := range delta {
		delta[i] = fut.Data[i] - cur.Data[i]
	}
	return SampleBlock{
		Region: region.Name,
		Time:   frame.Time,
		Inputs: features,
		DeltaT: delta,
		Temp:   fut.Data,
		Orig:   cur.Data,
		Clim:   clim.Data,
	}, nil
}

func (a *Assembler) climatology(shift int) Field3D {
	if c, ok := a.rolledClim[shift]; ok {
		return c
	}
	c := a.clim.RollX(shift)
	a.rolledClim[shift] = c
	return c
}

func roll3D(f Field3D, shift int) Field3D {
	if shift == 0 {
		return f
	}
	return f.RollX(shift)
}

func rollSlice(s []float64, shift int) []float64 {
	out := make([]float64, len(s))
	rollRows(out, s, len(s), shift)
	return out
}
