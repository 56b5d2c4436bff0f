package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// RunConfig selects the stencil rank, the feature groups and the forecast
// horizon for one extraction run. It is passed by value and never mutated
// once the run starts.
type RunConfig struct {
	Dimension  int  `json:"dimension"`
	Sal        bool `json:"sal"`
	Current    bool `json:"current"`
	BolusVel   bool `json:"bolus_vel"`
	Density    bool `json:"density"`
	Eta        bool `json:"eta"`
	Lat        bool `json:"lat"`
	Lon        bool `json:"lon"`
	Dep        bool `json:"dep"`
	PolyDegree int  `json:"poly_degree"`
	StepSize   int  `json:"step_size"`
}

// Validate rejects configurations no run can start from.
func (c RunConfig) Validate() error {
	if c.Dimension != 2 && c.Dimension != 3 {
		return fmt.Errorf("%w: %d", ErrUnsupportedDimension, c.Dimension)
	}
	if c.PolyDegree < 1 {
		return fmt.Errorf("poly degree must be at least 1, got %d", c.PolyDegree)
	}
	if c.StepSize < 1 {
		return fmt.Errorf("step size must be at least 1, got %d", c.StepSize)
	}
	return nil
}

// StencilFields lists the windowed 3D fields in column-block order.
func (c RunConfig) StencilFields() []FieldName {
	names := []FieldName{FieldTemp}
	if c.Sal {
		names = append(names, FieldSal)
	}
	if c.Current {
		names = append(names, FieldU, FieldV)
	}
	if c.BolusVel {
		names = append(names, FieldKwx, FieldKwy, FieldKwz)
	}
	if c.Density {
		names = append(names, FieldDensity)
	}
	return names
}

// StencilVolume is the number of cells in one window.
func (c RunConfig) StencilVolume() int {
	if c.Dimension == 3 {
		return 27
	}
	return 9
}

// BaseFeatureCount is the column count before polynomial expansion.
func (c RunConfig) BaseFeatureCount() int {
	n := c.StencilVolume() * len(c.StencilFields())
	if c.Eta {
		n += 9
	}
	for _, on := range []bool{c.Lat, c.Lon, c.Dep} {
		if on {
			n++
		}
	}
	return n
}

// FeatureCount is the final width of every sample's feature vector.
func (c RunConfig) FeatureCount() int {
	n := c.BaseFeatureCount()
	if c.PolyDegree > 1 {
		return InteractionColumns(n, c.PolyDegree)
	}
	return n
}

// DataName tags artefacts with the enabled feature groups, for example
// "3dLatLonDepUVBolSalEtaDnsPolyDeg1_Step1".
func (c RunConfig) DataName() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(c.Dimension))
	b.WriteString("d")
	parts := []struct {
		on  bool
		tag string
	}{
		{c.Lat, "Lat"},
		{c.Lon, "Lon"},
		{c.Dep, "Dep"},
		{c.Current, "UV"},
		{c.BolusVel, "Bol"},
		{c.Sal, "Sal"},
		{c.Eta, "Eta"},
		{c.Density, "Dns"},
	}
	for _, p := range parts {
		if p.on {
			b.WriteString(p.tag)
		}
	}
	fmt.Fprintf(&b, "PolyDeg%d_Step%d", c.PolyDegree, c.StepSize)
	return b.String()
}
