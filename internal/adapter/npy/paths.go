// Package npy persists extraction results as NumPy arrays plus JSON
// sidecars, and reads them back for validation.
package npy

import (
	"path/filepath"

	"github.com/couchcryptid/ocean-sample-etl/internal/domain"
)

// Paths names every artefact of one run inside a directory.
type Paths struct {
	Dir  string
	Name string
}

func suffix(s domain.Split) string {
	switch s {
	case domain.SplitVal:
		return "Val"
	case domain.SplitTest:
		return "Te"
	}
	return "Tr"
}

// gz appends the gzip extension to test-split array files.
func gz(s domain.Split, file string) string {
	if s == domain.SplitTest {
		return file + ".gz"
	}
	return file
}

// Inputs is the feature matrix file of split s.
func (p Paths) Inputs(s domain.Split) string {
	return filepath.Join(p.Dir, gz(s, "SinglePoint_"+p.Name+"_Inputs"+suffix(s)+".npy"))
}

// DeltaT is the temperature-change target file of split s.
func (p Paths) DeltaT(s domain.Split) string {
	return filepath.Join(p.Dir, gz(s, "SinglePoint_OutputsDelT"+suffix(s)+".npy"))
}

// Temp is the absolute-temperature target file of split s.
func (p Paths) Temp(s domain.Split) string {
	return filepath.Join(p.Dir, gz(s, "SinglePoint_OutputsTemp"+suffix(s)+".npy"))
}

// MeanStd is the normalisation statistics file.
func (p Paths) MeanStd() string {
	return filepath.Join(p.Dir, "SinglePoint_"+p.Name+"_MeanStd.json")
}

// Info is the run summary file.
func (p Paths) Info() string {
	return filepath.Join(p.Dir, "SinglePoint_"+p.Name+"_info.json")
}

// Histogram is the ΔT histogram image of split s.
func (p Paths) Histogram(s domain.Split) string {
	return filepath.Join(p.Dir, "SinglePoint_"+p.Name+"_histogram_"+string(s)+"_outputs.png")
}
