package npy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/couchcryptid/ocean-sample-etl/internal/domain"
	"github.com/couchcryptid/ocean-sample-etl/internal/pipeline"
	"github.com/klauspost/compress/gzip"
	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

// Info is the run summary written next to the arrays.
type Info struct {
	Name       string           `json:"name"`
	Run        domain.RunConfig `json:"run"`
	Summary    domain.Summary   `json:"summary"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Store writes run artefacts into a directory. It implements pipeline.Loader.
type Store struct {
	dir        string
	saveArrays bool
	logger     *slog.Logger
}

// NewStore creates a store rooted at dir. Arrays are only written when
// saveArrays is set; statistics and the summary always are.
func NewStore(dir string, saveArrays bool, logger *slog.Logger) *Store {
	return &Store{dir: dir, saveArrays: saveArrays, logger: logger}
}

// Load persists res.
func (s *Store) Load(ctx context.Context, res *pipeline.Result) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	paths := Paths{Dir: s.dir, Name: res.Name}

	if err := writeJSON(paths.MeanStd(), res.Statistics); err != nil {
		return err
	}
	info := Info{
		Name:       res.Name,
		Run:        res.Run,
		Summary:    res.Summary,
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
	}
	if err := writeJSON(paths.Info(), info); err != nil {
		return err
	}
	if !s.saveArrays {
		return nil
	}

	for _, split := range domain.Splits {
		if err := ctx.Err(); err != nil {
			return err
		}
		arrays := res.Split(split)
		if arrays.Inputs == nil {
			s.logger.Warn("split is empty, no arrays written", "split", split)
			continue
		}
		if err := WriteMatrix(paths.Inputs(split), arrays.Inputs); err != nil {
			return err
		}
		if err := WriteVector(paths.DeltaT(split), arrays.DeltaT); err != nil {
			return err
		}
		if err := WriteVector(paths.Temp(split), arrays.Temp); err != nil {
			return err
		}
		s.logger.Info("arrays saved", "split", split, "rows", arrays.Rows(), "dir", s.dir)
	}
	return nil
}

// WriteMatrix stores m as a 2-D array. Paths ending in .gz are compressed.
func WriteMatrix(path string, m *mat.Dense) error {
	return writeFile(path, func(w io.Writer) error {
		return npyio.Write(w, m)
	})
}

// WriteVector stores v as a 1-D array. Paths ending in .gz are compressed.
func WriteVector(path string, v []float64) error {
	return writeFile(path, func(w io.Writer) error {
		return npyio.Write(w, v)
	})
}

// ReadMatrix loads a 2-D array written by WriteMatrix.
func ReadMatrix(path string) (*mat.Dense, error) {
	var m mat.Dense
	if err := readFile(path, func(r io.Reader) error {
		return npyio.Read(r, &m)
	}); err != nil {
		return nil, err
	}
	return &m, nil
}

// ReadVector loads a 1-D array written by WriteVector.
func ReadVector(path string) ([]float64, error) {
	var v []float64
	if err := readFile(path, func(r io.Reader) error {
		return npyio.Read(r, &v)
	}); err != nil {
		return nil, err
	}
	return v, nil
}

// ReadStatistics loads the normalisation statistics file.
func ReadStatistics(path string) (domain.Statistics, error) {
	var stats domain.Statistics
	err := readJSON(path, &stats)
	return stats, err
}

// ReadInfo loads the run summary file.
func ReadInfo(path string) (Info, error) {
	var info Info
	err := readJSON(path, &info)
	return info, err
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if !strings.HasSuffix(path, ".gz") {
		if err := write(f); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		return nil
	}
	zw := gzip.NewWriter(f)
	if err := write(zw); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("compress %s: %w", path, err)
	}
	return nil
}

func readFile(path string, read func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("decompress %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}
	if err := read(r); err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
