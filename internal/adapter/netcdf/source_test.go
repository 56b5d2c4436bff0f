package netcdf

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/couchcryptid/ocean-sample-etl/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeVar serves a fixed value per time slice and counts reads.
type fakeVar struct {
	values any
	slices func(t int64) any
	reads  int
	err    error
}

func (f *fakeVar) Values() (any, error) {
	return f.values, f.err
}

func (f *fakeVar) GetSlice(begin, end int64) (any, error) {
	f.reads++
	if f.err != nil {
		return nil, f.err
	}
	if end != begin+1 {
		return nil, errors.New("fake only serves single slices")
	}
	return f.slices(begin), nil
}

// volumeAt builds a (1, nz, ny, nx) float32 slice holding 100z+10y+x+1000t.
func volumeAt(t int64, nz, ny, nx int) [][][][]float32 {
	v := make([][][]float32, nz)
	for z := range v {
		v[z] = make([][]float32, ny)
		for y := range v[z] {
			v[z][y] = make([]float32, nx)
			for x := range v[z][y] {
				v[z][y][x] = float32(100*z + 10*y + x + 1000*int(t))
			}
		}
	}
	return [][][][]float32{v}
}

func surfaceAt(t int64, ny, nx int) [][][]float64 {
	v := make([][]float64, ny)
	for y := range v {
		v[y] = make([]float64, nx)
		for x := range v[y] {
			v[y][x] = float64(10*y+x) + float64(t)/10
		}
	}
	return [][][]float64{v}
}

func fakeVars() (map[string]slicer, *fakeVar) {
	const nz, ny, nx = 2, 3, 4
	temp := &fakeVar{slices: func(t int64) any { return volumeAt(t, nz, ny, nx) }}
	vars := map[string]slicer{
		varTemp:  temp,
		varU:     &fakeVar{slices: func(t int64) any { return volumeAt(t, nz, ny, nx+1) }},
		varV:     &fakeVar{slices: func(t int64) any { return volumeAt(t, nz, ny+1, nx) }},
		varEta:   &fakeVar{slices: func(t int64) any { return surfaceAt(t, ny, nx) }},
		varTime:  &fakeVar{values: []float64{0, 1, 2, 3, 4}},
		varLat:   &fakeVar{values: []float32{-10, 0, 10}},
		varLon:   &fakeVar{values: []float32{0, 90, 180, 270}},
		varDepth: &fakeVar{values: []float64{-5, -15}},
	}
	return vars, temp
}

func TestNewSource_Grid(t *testing.T) {
	vars, _ := fakeVars()
	src, err := newSource(vars, vars[varTemp], 2, slog.Default())
	require.NoError(t, err)

	g := src.Grid()
	require.NoError(t, g.Validate())
	assert.Equal(t, 2, g.Nz)
	assert.Equal(t, 3, g.Ny)
	assert.Equal(t, 4, g.Nx)
	assert.Equal(t, []float64{0, 90, 180, 270}, g.Lon)
	assert.Equal(t, 5, src.Timesteps())
}

func TestNewSource_MissingCoordinate(t *testing.T) {
	vars, _ := fakeVars()
	delete(vars, varLat)
	_, err := newSource(vars, vars[varTemp], 2, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), varLat)
}

func TestSource_ReadFrame(t *testing.T) {
	vars, _ := fakeVars()
	src, err := newSource(vars, vars[varTemp], 2, slog.Default())
	require.NoError(t, err)

	frame, err := src.ReadFrame(context.Background(), 2, domain.FrameRequest{
		Fields: []domain.FieldName{domain.FieldTemp, domain.FieldU, domain.FieldV},
		Eta:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, frame.Time)

	temp := frame.Fields[domain.FieldTemp]
	assert.InDelta(t, 2123.0, temp.At(1, 2, 3), 0)

	// Staggered velocities land on cell centres: the average of x and x+1.
	u := frame.Fields[domain.FieldU]
	require.True(t, src.Grid().Fits(u))
	assert.InDelta(t, 2000.5, u.At(0, 0, 0), 1e-9)
	v := frame.Fields[domain.FieldV]
	require.True(t, src.Grid().Fits(v))
	assert.InDelta(t, 2005.0, v.At(0, 0, 0), 1e-9)

	require.NotNil(t, frame.Eta)
	assert.InDelta(t, 23.2, frame.Eta.At(2, 3), 1e-9)
}

func TestSource_ReadFrame_Cached(t *testing.T) {
	vars, temp := fakeVars()
	src, err := newSource(vars, vars[varTemp], 2, slog.Default())
	require.NoError(t, err)

	req := domain.FrameRequest{Fields: []domain.FieldName{domain.FieldTemp}}
	for range 3 {
		_, err := src.ReadFrame(context.Background(), 1, req)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, temp.reads)
}

func TestSource_ReadFrame_Errors(t *testing.T) {
	vars, _ := fakeVars()
	src, err := newSource(vars, vars[varTemp], 2, slog.Default())
	require.NoError(t, err)

	_, err = src.ReadFrame(context.Background(), 5, domain.FrameRequest{Fields: []domain.FieldName{domain.FieldTemp}})
	require.ErrorIs(t, err, domain.ErrTimeOutOfRange)

	_, err = src.ReadFrame(context.Background(), 0, domain.FrameRequest{Fields: []domain.FieldName{domain.FieldDensity}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not opened")

	vars[varSal] = &fakeVar{slices: func(t int64) any { return volumeAt(t, 1, 1, 1) }}
	_, err = src.ReadFrame(context.Background(), 0, domain.FrameRequest{Fields: []domain.FieldName{domain.FieldSal}})
	require.ErrorIs(t, err, domain.ErrShapeMismatch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = src.ReadFrame(ctx, 0, domain.FrameRequest{Fields: []domain.FieldName{domain.FieldTemp}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSource_Climatology(t *testing.T) {
	vars, _ := fakeVars()
	clim := &fakeVar{slices: func(t int64) any { return volumeAt(t+7, 2, 3, 4) }}
	src, err := newSource(vars, clim, 2, slog.Default())
	require.NoError(t, err)

	f, err := src.Climatology(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 7000.0, f.At(0, 0, 0), 0)

	clim.err = errors.New("corrupt file")
	_, err = src.Climatology(context.Background())
	require.Error(t, err)
}

func TestToFloats(t *testing.T) {
	got, err := toFloats([]int32{1, 2, 3})
	require.NoError(t, err)
	if diff := cmp.Diff([]float64{1, 2, 3}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	_, err = toFloats([]string{"a"})
	require.Error(t, err)
}

func TestVolume_Errors(t *testing.T) {
	_, err := volume([][][][]float32{})
	require.Error(t, err)
	_, err = volume([][][]float32{})
	require.Error(t, err)
	_, err = surface([][][][]float64{})
	require.Error(t, err)
}

func TestCentre(t *testing.T) {
	f := domain.Field3D{Nz: 1, Ny: 2, Nx: 3, Data: []float64{0, 2, 4, 10, 20, 30}}

	x := centreX(f)
	assert.Equal(t, []float64{1, 3, 15, 25}, x.Data)
	assert.Equal(t, 2, x.Nx)

	y := centreY(f)
	assert.Equal(t, []float64{5, 11, 17}, y.Data)
	assert.Equal(t, 1, y.Ny)
}
