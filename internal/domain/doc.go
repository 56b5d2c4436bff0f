// Package domain turns gridded ocean-model output into supervised-learning
// samples: one feature vector per forecastable grid cell, with the change in
// temperature over a fixed number of output steps as the target.
//
// # Data Source
//
// Fields come from MITgcm time-averaged diagnostics on a regular
// latitude/longitude grid with z-levels. Every 3D field is addressed as
// (depth, lat, lon) and stored row-major in a flat slice, so the longitude
// index varies fastest. The surface height (eta) has no depth axis.
//
// Velocities are written on the staggered C-grid (U on Xp1, V on Yp1). The
// NetCDF adapter averages adjacent faces onto cell centres before the fields
// reach this package, so every field here shares the tracer grid.
//
// # Stencils
//
// A sample's inputs are the values of each enabled field in a window around
// the target cell:
//
//	2D: 3×3 (lat, lon) per depth layer; depth passes straight through.
//	3D: 3×3×3 (depth, lat, lon).
//
// Window values are flattened row-major (dz, dy, dx). Field blocks follow the
// fixed order Temp, Sal, U, V, Kwx, Kwy, Kwz, Density (see
// [RunConfig.StencilFields]); eta is windowed 3×3 and repeated for every depth
// layer; lat, lon and depth are appended as single columns. Polynomial degree
// above one appends interaction-only products (no bias, no powers).
//
// # Regions
//
// The domain is a channel that is periodic in longitude and bounded by land
// to the north and south. Samples are drawn from three regions processed in
// the order interior, west, east:
//
//	interior  x∈[1, Nx-2)   y∈[1, Ny-3)  z∈[1, Nz-1)  no shift
//	west      x∈[1, 2)      y∈[1, 15)    z∈[1, 31)    roll +1 (last column to front)
//	east      x∈[Nx-3, Nx-1) y∈[1, 15)   z∈[1, 31)    roll -1 (first column to back)
//
// Rolling the fields before windowing lets the plain sliding window read
// across the periodic seam. Bounds are the forecast cells; the input slice
// adds a one-cell halo in lat and lon, and in depth for 3D stencils. Targets,
// coordinates and reference arrays are taken from the same rolled frame as
// the stencils so they line up row for row.
//
// # Splits
//
// Time indices [0, Total) are cut at int(Total·TrainRatio) and
// int(Total·ValRatio) and stepped by the subsample stride. Each index t pairs
// with t+step; a pair past the end of the series is an error, never clipped.
// Normalisation statistics come from the training split alone.
package domain
