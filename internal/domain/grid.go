package domain

import "fmt"

// FieldName identifies a physical field in a Frame.
type FieldName string

// Field names in stencil order.
const (
	FieldTemp    FieldName = "Temp"
	FieldSal     FieldName = "Sal"
	FieldU       FieldName = "U"
	FieldV       FieldName = "V"
	FieldKwx     FieldName = "Kwx"
	FieldKwy     FieldName = "Kwy"
	FieldKwz     FieldName = "Kwz"
	FieldDensity FieldName = "Density"
)

// Field3D is a (depth, lat, lon) array stored row-major.
type Field3D struct {
	Nz, Ny, Nx int
	Data       []float64
}

// NewField3D allocates a zeroed field.
func NewField3D(nz, ny, nx int) Field3D {
	return Field3D{Nz: nz, Ny: ny, Nx: nx, Data: make([]float64, nz*ny*nx)}
}

func (f Field3D) index(z, y, x int) int {
	return (z*f.Ny+y)*f.Nx + x
}

// At returns the value at (z, y, x).
func (f Field3D) At(z, y, x int) float64 {
	return f.Data[f.index(z, y, x)]
}

// Set stores v at (z, y, x).
func (f Field3D) Set(z, y, x int, v float64) {
	f.Data[f.index(z, y, x)] = v
}

// Len is the number of cells.
func (f Field3D) Len() int {
	return f.Nz * f.Ny * f.Nx
}

// SameShape reports whether g has the same dimensions as f.
func (f Field3D) SameShape(g Field3D) bool {
	return f.Nz == g.Nz && f.Ny == g.Ny && f.Nx == g.Nx
}

// Sub copies the half-open index box z×y×x. Ranges outside the field are an
// error; nothing is clipped.
func (f Field3D) Sub(z, y, x Bounds) (Field3D, error) {
	if !z.within(f.Nz) || !y.within(f.Ny) || !x.within(f.Nx) {
		return Field3D{}, fmt.Errorf("%w: sub z%v y%v x%v of %dx%dx%d",
			ErrOutOfBounds, z, y, x, f.Nz, f.Ny, f.Nx)
	}
	out := NewField3D(z.Len(), y.Len(), x.Len())
	i := 0
	for k := z.Lower; k < z.Upper; k++ {
		for j := y.Lower; j < y.Upper; j++ {
			row := f.index(k, j, x.Lower)
			i += copy(out.Data[i:], f.Data[row:row+x.Len()])
		}
	}
	return out, nil
}

// RollX returns a copy shifted periodically along longitude. A shift of +1
// moves the last column to the front; -1 moves the first column to the back.
func (f Field3D) RollX(shift int) Field3D {
	out := NewField3D(f.Nz, f.Ny, f.Nx)
	rollRows(out.Data, f.Data, f.Nx, shift)
	return out
}

// Field2D is a (lat, lon) array stored row-major.
type Field2D struct {
	Ny, Nx int
	Data   []float64
}

// NewField2D allocates a zeroed field.
func NewField2D(ny, nx int) Field2D {
	return Field2D{Ny: ny, Nx: nx, Data: make([]float64, ny*nx)}
}

// At returns the value at (y, x).
func (f Field2D) At(y, x int) float64 {
	return f.Data[y*f.Nx+x]
}

// Set stores v at (y, x).
func (f Field2D) Set(y, x int, v float64) {
	f.Data[y*f.Nx+x] = v
}

// Sub copies the half-open index box y×x.
func (f Field2D) Sub(y, x Bounds) (Field2D, error) {
	if !y.within(f.Ny) || !x.within(f.Nx) {
		return Field2D{}, fmt.Errorf("%w: sub y%v x%v of %dx%d",
			ErrOutOfBounds, y, x, f.Ny, f.Nx)
	}
	out := NewField2D(y.Len(), x.Len())
	i := 0
	for j := y.Lower; j < y.Upper; j++ {
		row := j*f.Nx + x.Lower
		i += copy(out.Data[i:], f.Data[row:row+x.Len()])
	}
	return out, nil
}

// RollX returns a copy shifted periodically along longitude.
func (f Field2D) RollX(shift int) Field2D {
	out := NewField2D(f.Ny, f.Nx)
	rollRows(out.Data, f.Data, f.Nx, shift)
	return out
}

// rollRows rolls every nx-long row of src into dst.
func rollRows(dst, src []float64, nx, shift int) {
	if nx == 0 {
		return
	}
	s := ((shift % nx) + nx) % nx
	for row := 0; row < len(src); row += nx {
		in := src[row : row+nx]
		out := dst[row : row+nx]
		copy(out[s:], in[:nx-s])
		copy(out[:s], in[nx-s:])
	}
}

// Grid describes the tracer grid shared by every field.
type Grid struct {
	Nz, Ny, Nx int
	Lat        []float64 // len Ny
	Lon        []float64 // len Nx
	Depth      []float64 // len Nz
}

// Validate checks that the coordinate arrays match the dimensions.
func (g Grid) Validate() error {
	if g.Nz <= 0 || g.Ny <= 0 || g.Nx <= 0 {
		return fmt.Errorf("%w: grid %dx%dx%d", ErrShapeMismatch, g.Nz, g.Ny, g.Nx)
	}
	if len(g.Lat) != g.Ny || len(g.Lon) != g.Nx || len(g.Depth) != g.Nz {
		return fmt.Errorf("%w: coordinates lat=%d lon=%d depth=%d for grid %dx%dx%d",
			ErrShapeMismatch, len(g.Lat), len(g.Lon), len(g.Depth), g.Nz, g.Ny, g.Nx)
	}
	return nil
}

// Fits reports whether f is defined on this grid.
func (g Grid) Fits(f Field3D) bool {
	return f.Nz == g.Nz && f.Ny == g.Ny && f.Nx == g.Nx
}

// Frame holds every field read for one timestep.
type Frame struct {
	Time   int
	Fields map[FieldName]Field3D
	Eta    *Field2D
}

// Field returns the named field or an error when the frame lacks it.
func (f Frame) Field(name FieldName) (Field3D, error) {
	v, ok := f.Fields[name]
	if !ok {
		return Field3D{}, fmt.Errorf("frame t=%d has no field %q", f.Time, name)
	}
	return v, nil
}

// FrameRequest names what a source must read for one timestep.
type FrameRequest struct {
	Fields []FieldName
	Eta    bool
}
