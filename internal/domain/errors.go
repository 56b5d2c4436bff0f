package domain

import "errors"

var (
	// ErrUnsupportedDimension is returned for stencil ranks other than 2 and 3.
	ErrUnsupportedDimension = errors.New("unsupported stencil dimension")

	// ErrTimeOutOfRange is returned when t+step falls past the available series.
	ErrTimeOutOfRange = errors.New("time index out of range")

	// ErrZeroVariance is returned in strict mode when a training column is constant.
	ErrZeroVariance = errors.New("zero variance in training column")

	// ErrNonFiniteStatistics is returned in strict mode when training values
	// hold NaN or ±Inf.
	ErrNonFiniteStatistics = errors.New("non-finite training statistics")

	// ErrShapeMismatch is returned when co-registered arrays disagree in shape.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrOutOfBounds is returned when an index range leaves the grid.
	ErrOutOfBounds = errors.New("index range out of bounds")

	// ErrEmptySplit is returned when the training split holds no samples.
	ErrEmptySplit = errors.New("split has no samples")
)
