package domain

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ExtractStencils builds one row per valid window centre of the halo-inclusive
// fields. Rows follow (depth, lat, lon) row-major order; each field adds a
// contiguous block of window values in (dz, dy, dx) order, in the order the
// fields are given. A non-nil eta is windowed 3×3 and repeated for every
// depth layer after the 3D blocks.
func ExtractStencils(dim int, fields []Field3D, eta *Field2D) (*mat.Dense, error) {
	if dim != 2 && dim != 3 {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedDimension, dim)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields to window", ErrShapeMismatch)
	}
	ref := fields[0]
	for i, f := range fields[1:] {
		if !f.SameShape(ref) {
			return nil, fmt.Errorf("%w: field %d is %dx%dx%d, want %dx%dx%d",
				ErrShapeMismatch, i+1, f.Nz, f.Ny, f.Nx, ref.Nz, ref.Ny, ref.Nx)
		}
	}
	if eta != nil && (eta.Ny != ref.Ny || eta.Nx != ref.Nx) {
		return nil, fmt.Errorf("%w: eta is %dx%d, want %dx%d",
			ErrShapeMismatch, eta.Ny, eta.Nx, ref.Ny, ref.Nx)
	}

	depthWindow := 1
	nz := ref.Nz
	if dim == 3 {
		depthWindow = 3
		nz = ref.Nz - 2
	}
	ny, nx := ref.Ny-2, ref.Nx-2
	if nz <= 0 || ny <= 0 || nx <= 0 {
		return nil, fmt.Errorf("%w: %dx%dx%d too small for a %dD window",
			ErrShapeMismatch, ref.Nz, ref.Ny, ref.Nx, dim)
	}

	cols := depthWindow * 9 * len(fields)
	if eta != nil {
		cols += 9
	}
	out := mat.NewDense(nz*ny*nx, cols, nil)

	r := 0
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				row := out.RawRowView(r)
				c := 0
				for _, f := range fields {
					for dz := 0; dz < depthWindow; dz++ {
						for dy := 0; dy < 3; dy++ {
							base := f.index(z+dz, y+dy, x)
							c += copy(row[c:], f.Data[base:base+3])
						}
					}
				}
				if eta != nil {
					for dy := 0; dy < 3; dy++ {
						base := (y+dy)*eta.Nx + x
						c += copy(row[c:], eta.Data[base:base+3])
					}
				}
				r++
			}
		}
	}
	return out, nil
}
