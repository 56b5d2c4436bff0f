package domain

import "gonum.org/v1/gonum/mat"

// BroadcastCoordinates expands the forecast cells' lat, lon and depth into
// one column per enabled coordinate (order lat, lon, dep), rows in (depth,
// lat, lon) row-major order to line up with ExtractStencils. It returns nil
// when no coordinate is enabled.
func BroadcastCoordinates(cfg RunConfig, lat, lon, depth []float64) *mat.Dense {
	cols := 0
	for _, on := range []bool{cfg.Lat, cfg.Lon, cfg.Dep} {
		if on {
			cols++
		}
	}
	rows := len(depth) * len(lat) * len(lon)
	if cols == 0 || rows == 0 {
		return nil
	}

	out := mat.NewDense(rows, cols, nil)
	r := 0
	for _, d := range depth {
		for _, la := range lat {
			for _, lo := range lon {
				row := out.RawRowView(r)
				c := 0
				if cfg.Lat {
					row[c] = la
					c++
				}
				if cfg.Lon {
					row[c] = lo
					c++
				}
				if cfg.Dep {
					row[c] = d
				}
				r++
			}
		}
	}
	return out
}
