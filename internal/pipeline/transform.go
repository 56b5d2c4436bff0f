package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/ocean-sample-etl/internal/domain"
	"github.com/couchcryptid/ocean-sample-etl/internal/observability"
)

// RegionTransformer turns one timestep into sample blocks, one per region of
// the layout, in layout order.
type RegionTransformer struct {
	assembler *domain.Assembler
	layout    domain.Layout
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewTransformer creates a RegionTransformer over a validated layout.
func NewTransformer(asm *domain.Assembler, layout domain.Layout, logger *slog.Logger, metrics *observability.Metrics) *RegionTransformer {
	return &RegionTransformer{
		assembler: asm,
		layout:    layout,
		logger:    logger,
		metrics:   metrics,
	}
}

// Transform assembles every region of frame against the target temperature next.
func (t *RegionTransformer) Transform(ctx context.Context, split domain.Split, frame domain.Frame, next domain.Field3D) ([]domain.SampleBlock, error) {
	regions := t.layout.Regions()
	blocks := make([]domain.SampleBlock, 0, len(regions))
	for _, region := range regions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := clock.Now()
		block, err := t.assembler.Assemble(region, frame, next)
		if err != nil {
			return nil, fmt.Errorf("assemble %s t=%d: %w", split, frame.Time, err)
		}
		t.metrics.RegionAssemblyDuration.WithLabelValues(region.Name).Observe(clock.Since(start).Seconds())
		t.metrics.SamplesAssembled.WithLabelValues(string(split), region.Name).Add(float64(block.Rows()))
		t.logger.Debug("region assembled",
			"split", split,
			"time", frame.Time,
			"region", region.Name,
			"samples", block.Rows(),
		)
		blocks = append(blocks, block)
	}
	return blocks, nil
}
