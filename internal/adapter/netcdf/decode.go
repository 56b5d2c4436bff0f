package netcdf

import (
	"fmt"

	"github.com/couchcryptid/ocean-sample-etl/internal/domain"
)

type number interface {
	~float32 | ~float64 | ~int16 | ~int32 | ~int64
}

// toFloats widens a 1-D coordinate variable.
func toFloats(v any) ([]float64, error) {
	switch s := v.(type) {
	case []float64:
		return widen(s), nil
	case []float32:
		return widen(s), nil
	case []int32:
		return widen(s), nil
	case []int64:
		return widen(s), nil
	case []int16:
		return widen(s), nil
	}
	return nil, fmt.Errorf("unsupported coordinate type %T", v)
}

func widen[T number](s []T) []float64 {
	out := make([]float64, len(s))
	for i, x := range s {
		out[i] = float64(x)
	}
	return out
}

// volume decodes one time slice of a (T, Z, Y, X) variable.
func volume(v any) (domain.Field3D, error) {
	switch s := v.(type) {
	case [][][][]float32:
		if len(s) != 1 {
			return domain.Field3D{}, fmt.Errorf("expected one time slice, got %d", len(s))
		}
		return flatten3(s[0]), nil
	case [][][][]float64:
		if len(s) != 1 {
			return domain.Field3D{}, fmt.Errorf("expected one time slice, got %d", len(s))
		}
		return flatten3(s[0]), nil
	}
	return domain.Field3D{}, fmt.Errorf("unsupported 4-D variable type %T", v)
}

// surface decodes one time slice of a (T, Y, X) variable.
func surface(v any) (domain.Field2D, error) {
	switch s := v.(type) {
	case [][][]float32:
		if len(s) != 1 {
			return domain.Field2D{}, fmt.Errorf("expected one time slice, got %d", len(s))
		}
		return flatten2(s[0]), nil
	case [][][]float64:
		if len(s) != 1 {
			return domain.Field2D{}, fmt.Errorf("expected one time slice, got %d", len(s))
		}
		return flatten2(s[0]), nil
	}
	return domain.Field2D{}, fmt.Errorf("unsupported 3-D variable type %T", v)
}

func flatten3[T number](s [][][]T) domain.Field3D {
	nz := len(s)
	var ny, nx int
	if nz > 0 {
		ny = len(s[0])
		if ny > 0 {
			nx = len(s[0][0])
		}
	}
	f := domain.NewField3D(nz, ny, nx)
	i := 0
	for _, plane := range s {
		for _, row := range plane {
			for _, x := range row {
				f.Data[i] = float64(x)
				i++
			}
		}
	}
	return f
}

func flatten2[T number](s [][]T) domain.Field2D {
	ny := len(s)
	var nx int
	if ny > 0 {
		nx = len(s[0])
	}
	f := domain.NewField2D(ny, nx)
	i := 0
	for _, row := range s {
		for _, x := range row {
			f.Data[i] = float64(x)
			i++
		}
	}
	return f
}

// centreX averages neighbouring columns of a field on the Xp1 grid,
// leaving one column fewer.
func centreX(f domain.Field3D) domain.Field3D {
	out := domain.NewField3D(f.Nz, f.Ny, f.Nx-1)
	for z := 0; z < f.Nz; z++ {
		for y := 0; y < f.Ny; y++ {
			for x := 0; x < out.Nx; x++ {
				out.Set(z, y, x, (f.At(z, y, x)+f.At(z, y, x+1))/2)
			}
		}
	}
	return out
}

// centreY averages neighbouring rows of a field on the Yp1 grid.
func centreY(f domain.Field3D) domain.Field3D {
	out := domain.NewField3D(f.Nz, f.Ny-1, f.Nx)
	for z := 0; z < f.Nz; z++ {
		for y := 0; y < out.Ny; y++ {
			for x := 0; x < f.Nx; x++ {
				out.Set(z, y, x, (f.At(z, y, x)+f.At(z, y+1, x))/2)
			}
		}
	}
	return out
}
